package toolfilter

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/bobmcallan/humcp/internal/common"
	"github.com/bobmcallan/humcp/internal/registry"
)

// ErrInvalidConfig is returned by Filter when validation finds errors.
var ErrInvalidConfig = errors.New("tools config validation failed")

// ValidationResult collects every problem found in a config.
type ValidationResult struct {
	Valid    bool
	Warnings []string
	Errors   []string
}

// Err returns nil for a valid result, otherwise one error listing every
// validation error.
func (r ValidationResult) Err() error {
	if r.Valid {
		return nil
	}
	var b strings.Builder
	b.WriteString(ErrInvalidConfig.Error())
	b.WriteString(":")
	for _, e := range r.Errors {
		b.WriteString("\n  - ")
		b.WriteString(e)
	}
	return &validationError{msg: b.String()}
}

type validationError struct{ msg string }

func (e *validationError) Error() string { return e.msg }

func (e *validationError) Is(target error) bool { return target == ErrInvalidConfig }

type section struct {
	name   string
	filter FilterConfig
}

func (c ToolsConfig) sections() []section {
	return []section{{"include", c.Include}, {"exclude", c.Exclude}}
}

// Validate checks cfg against the available categories and tool names.
// Unknown categories and unknown exact tool names are errors; a wildcard
// pattern with no matches is a warning.
func Validate(cfg ToolsConfig, categories, tools map[string]struct{}) ValidationResult {
	var res ValidationResult

	available := make([]string, 0, len(categories))
	for c := range categories {
		available = append(available, c)
	}
	sort.Strings(available)

	for _, s := range cfg.sections() {
		for _, c := range s.filter.Categories {
			if _, ok := categories[c]; !ok {
				res.Errors = append(res.Errors, fmt.Sprintf(
					"%s.categories: Unknown category '%s'. Available: [%s]",
					s.name, c, strings.Join(available, ", ")))
			}
		}
	}

	for _, s := range cfg.sections() {
		for _, p := range s.filter.Tools {
			if !IsWildcard(p) {
				if _, ok := tools[p]; !ok {
					res.Errors = append(res.Errors, fmt.Sprintf("%s.tools: Unknown tool '%s'", s.name, p))
				}
				continue
			}
			matched := false
			for t := range tools {
				if Match(p, t) {
					matched = true
					break
				}
			}
			if !matched {
				res.Warnings = append(res.Warnings, fmt.Sprintf("%s.tools: Pattern '%s' matches no tools", s.name, p))
			}
		}
	}

	res.Valid = len(res.Errors) == 0
	return res
}

// ValidateRegistrations validates cfg against the categories and names of regs.
func ValidateRegistrations(cfg ToolsConfig, regs []registry.Registration) ValidationResult {
	categories := make(map[string]struct{})
	tools := make(map[string]struct{}, len(regs))
	for _, r := range regs {
		categories[r.Category] = struct{}{}
		tools[r.Name] = struct{}{}
	}
	return Validate(cfg, categories, tools)
}

// Filter applies cfg to regs, preserving their order. A tool is kept when
// Include is empty or it matches Include by category or name, and then
// dropped when it matches Exclude by category or name.
//
// With validate set, the config is checked first and any validation error
// is returned before filtering; warnings are logged.
func Filter(cfg ToolsConfig, regs []registry.Registration, validate bool, logger *common.Logger) ([]registry.Registration, error) {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	if len(regs) == 0 {
		return nil, nil
	}

	if validate {
		res := ValidateRegistrations(cfg, regs)
		for _, w := range res.Warnings {
			logger.Warn().Str("warning", w).Msg("tools config warning")
		}
		if err := res.Err(); err != nil {
			return nil, err
		}
	}

	filtered := regs
	if !cfg.Include.IsEmpty() {
		filtered = keep(filtered, cfg.Include, true)
	}
	if !cfg.Exclude.IsEmpty() {
		filtered = keep(filtered, cfg.Exclude, false)
	}

	logger.Info().
		Int("kept", len(filtered)).
		Int("total", len(regs)).
		Str("include", describe(cfg.Include, "all")).
		Str("exclude", describe(cfg.Exclude, "none")).
		Msg("filtered tools")

	return filtered, nil
}

// keep returns the registrations whose match against f equals want.
func keep(regs []registry.Registration, f FilterConfig, want bool) []registry.Registration {
	cats := make(map[string]struct{}, len(f.Categories))
	for _, c := range f.Categories {
		cats[c] = struct{}{}
	}
	names := newMatcher(f.Tools)

	out := make([]registry.Registration, 0, len(regs))
	for _, r := range regs {
		_, inCategory := cats[r.Category]
		if (inCategory || names.match(r.Name)) == want {
			out = append(out, r)
		}
	}
	return out
}

func describe(f FilterConfig, empty string) string {
	if f.IsEmpty() {
		return empty
	}
	return fmt.Sprintf("%d categories, %d tools", len(f.Categories), len(f.Tools))
}
