package search

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"

	"github.com/bobmcallan/humcp/internal/common"
	"github.com/bobmcallan/humcp/internal/registry"
	"github.com/bobmcallan/humcp/internal/tools/result"
)

// Web tool defaults.
const (
	DefaultTimeout   = 30
	DefaultMaxLength = 50000
)

// FetchInput is the argument of search_fetch_page.
type FetchInput struct {
	URL          string `json:"url" jsonschema:"description=Absolute http or https URL"`
	WaitSelector string `json:"wait_selector,omitempty" jsonschema:"description=CSS selector to wait for before reading the page,default=body"`
	Format       string `json:"format,omitempty" jsonschema:"description=Output format,enum=markdown,enum=html,default=markdown"`
	MaxLength    *int   `json:"max_length,omitempty" jsonschema:"description=Maximum characters of content to return; 0 returns all,default=50000"`
	Timeout      *int   `json:"timeout,omitempty" jsonschema:"description=Timeout in seconds,default=30"`
}

// LinksInput is the argument of search_page_links.
type LinksInput struct {
	URL          string `json:"url" jsonschema:"description=Absolute http or https URL"`
	WaitSelector string `json:"wait_selector,omitempty" jsonschema:"description=CSS selector to wait for before reading the page,default=body"`
	Contains     string `json:"contains,omitempty" jsonschema:"description=Keep only links whose href or text contains this substring"`
	Timeout      *int   `json:"timeout,omitempty" jsonschema:"description=Timeout in seconds,default=30"`
}

// Web serves the search_* tools.
type Web struct {
	renderer Renderer
	logger   *common.Logger
}

// NewWeb creates the web tools. A nil renderer uses headless Chrome.
func NewWeb(renderer Renderer, logger *common.Logger) *Web {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	if renderer == nil {
		renderer = NewChromeRenderer(logger)
	}
	return &Web{renderer: renderer, logger: logger}
}

// Register adds the web tools to r.
func (w *Web) Register(r registry.Registrar) error {
	fetch := registry.Typed(w.fetchPage)
	fetch.Name = "search_fetch_page"
	fetch.Description = "Render a web page in a headless browser and return its content as Markdown or HTML."

	links := registry.Typed(w.pageLinks)
	links.Name = "search_page_links"
	links.Description = "Render a web page in a headless browser and list its links."

	return registry.RegisterAll(r, fetch, links)
}

func (w *Web) render(ctx context.Context, rawURL, waitSelector string, timeout *int) (Page, *result.Result) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		r := result.Fail("URL must be an absolute http or https URL: %s", rawURL)
		return Page{}, &r
	}

	seconds := DefaultTimeout
	if timeout != nil && *timeout > 0 {
		seconds = *timeout
	}
	ctx, cancel := context.WithTimeout(ctx, time.Duration(seconds)*time.Second)
	defer cancel()

	page, err := w.renderer.Render(ctx, u.String(), waitSelector)
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		w.logger.Warn().Str("url", u.String()).Int("timeout", seconds).Msg("page render timed out")
		r := result.Fail("Page load timed out after %d seconds", seconds)
		return Page{}, &r
	}
	if err != nil {
		w.logger.Warn().Str("url", u.String()).Err(err).Msg("page render failed")
		r := result.Fail("Failed to load page: %v", err)
		return Page{}, &r
	}
	if page.URL == "" {
		page.URL = u.String()
	}
	return page, nil
}

func (w *Web) fetchPage(ctx context.Context, in FetchInput) (result.Result, error) {
	format := strings.ToLower(in.Format)
	if format == "" {
		format = "markdown"
	}
	if format != "markdown" && format != "html" {
		return result.Fail("Unsupported format: %s", in.Format), nil
	}

	page, fail := w.render(ctx, in.URL, in.WaitSelector, in.Timeout)
	if fail != nil {
		return *fail, nil
	}

	content := page.HTML
	if format == "markdown" {
		var domain string
		if u, err := url.Parse(page.URL); err == nil {
			domain = u.Scheme + "://" + u.Host
		}
		markdown, err := md.NewConverter(domain, true, nil).ConvertString(page.HTML)
		if err != nil {
			return result.Fail("HTML parsing failed: %v", err), nil
		}
		content = markdown
	}

	maxLength := DefaultMaxLength
	if in.MaxLength != nil {
		maxLength = *in.MaxLength
	}
	content, truncated := truncate(content, maxLength)

	w.logger.Info().Str("url", page.URL).Str("format", format).Int("length", len(content)).Msg("fetched page")
	return result.OK(map[string]any{
		"url":       in.URL,
		"final_url": page.URL,
		"title":     page.Title,
		"format":    format,
		"content":   content,
		"length":    len(content),
		"truncated": truncated,
		"js_errors": nonNil(page.JSErrors),
	}), nil
}

func (w *Web) pageLinks(ctx context.Context, in LinksInput) (result.Result, error) {
	page, fail := w.render(ctx, in.URL, in.WaitSelector, in.Timeout)
	if fail != nil {
		return *fail, nil
	}

	links := make([]Link, 0, len(page.Links))
	seen := make(map[string]bool, len(page.Links))
	for _, l := range page.Links {
		if seen[l.Href] {
			continue
		}
		if in.Contains != "" && !strings.Contains(l.Href, in.Contains) && !strings.Contains(l.Text, in.Contains) {
			continue
		}
		seen[l.Href] = true
		links = append(links, l)
	}

	return result.OK(map[string]any{
		"url":       in.URL,
		"final_url": page.URL,
		"title":     page.Title,
		"links":     links,
		"count":     len(links),
	}), nil
}

// truncate cuts s to at most n runes; n <= 0 keeps everything.
func truncate(s string, n int) (string, bool) {
	if n <= 0 {
		return s, false
	}
	r := []rune(s)
	if len(r) <= n {
		return s, false
	}
	return string(r[:n]), true
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
