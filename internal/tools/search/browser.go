// Package search provides tools that read the web through a headless
// Chrome instance.
package search

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	"github.com/bobmcallan/humcp/internal/common"
)

// Link is one anchor on a rendered page.
type Link struct {
	Text string `json:"text"`
	Href string `json:"href"`
}

// Page is the state of a document after it finished rendering.
type Page struct {
	URL      string
	Title    string
	HTML     string
	Links    []Link
	JSErrors []string
}

// Renderer loads a URL and returns the rendered document.
type Renderer interface {
	Render(ctx context.Context, url, waitSelector string) (Page, error)
}

// ChromeRenderer renders pages with chromedp. Each call starts its own
// browser so concurrent tool calls do not share tabs.
type ChromeRenderer struct {
	// ExecPath overrides Chrome discovery when set.
	ExecPath string
	Headless bool
	logger   *common.Logger
}

// NewChromeRenderer creates a headless renderer.
func NewChromeRenderer(logger *common.Logger) *ChromeRenderer {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	return &ChromeRenderer{Headless: true, logger: logger}
}

const linksScript = `Array.from(document.querySelectorAll('a[href]')).map(a => ({text: (a.innerText || '').trim(), href: a.href}))`

func (c *ChromeRenderer) Render(ctx context.Context, url, waitSelector string) (Page, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", c.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if c.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(c.ExecPath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	defer allocCancel()
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)
	defer tabCancel()

	var (
		mu       sync.Mutex
		jsErrors []string
	)
	chromedp.ListenTarget(tabCtx, func(ev interface{}) {
		e, ok := ev.(*runtime.EventExceptionThrown)
		if !ok {
			return
		}
		desc := e.ExceptionDetails.Text
		if e.ExceptionDetails.Exception != nil && e.ExceptionDetails.Exception.Description != "" {
			desc = e.ExceptionDetails.Exception.Description
		}
		mu.Lock()
		jsErrors = append(jsErrors, desc)
		mu.Unlock()
	})

	if waitSelector == "" {
		waitSelector = "body"
	}

	var page Page
	start := time.Now()
	err := chromedp.Run(tabCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady(waitSelector, chromedp.ByQuery),
		chromedp.Location(&page.URL),
		chromedp.Title(&page.Title),
		chromedp.OuterHTML("html", &page.HTML, chromedp.ByQuery),
		chromedp.Evaluate(linksScript, &page.Links),
	)
	if err != nil {
		return Page{}, fmt.Errorf("render %s: %w", url, err)
	}

	mu.Lock()
	page.JSErrors = append([]string(nil), jsErrors...)
	mu.Unlock()

	c.logger.Debug().
		Str("url", url).
		Int("html_bytes", len(page.HTML)).
		Int("links", len(page.Links)).
		Dur("elapsed", time.Since(start)).
		Msg("rendered page")
	return page, nil
}
