package toolfilter

import (
	"errors"
	"strings"

	"github.com/gobwas/glob"
)

// IsWildcard reports whether p contains a glob metacharacter.
func IsWildcard(p string) bool {
	return strings.ContainsAny(p, "*?[")
}

// Match reports whether name matches pattern. Wildcard patterns use shell
// glob semantics: "*" matches any run of characters, "?" one character,
// "[...]" a character class and "[!...]" its negation. Other patterns must
// equal name exactly.
func Match(pattern, name string) bool {
	if !IsWildcard(pattern) {
		return pattern == name
	}
	g, err := compile(pattern)
	if err != nil {
		return pattern == name
	}
	return g.Match(name)
}

// errMixedClass reports a negated class mixing ranges with other members,
// which gobwas/glob cannot express.
var errMixedClass = errors.New("negated character class with several ranges")

// compile builds a matcher for a shell glob. Braces, commas, backslashes and
// a stray "]" are literals in shell globs, so they are escaped. Character
// classes are rewritten into the forms gobwas/glob understands: a leading
// "]" and a trailing "-" are members, and a class mixing ranges becomes an
// alternation of single classes. An unterminated "[" is a literal.
func compile(pattern string) (glob.Glob, error) {
	var b strings.Builder
	runes := []rune(pattern)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch r {
		case '[':
			end := classEnd(runes, i)
			if end < 0 {
				b.WriteString(`\[`)
				continue
			}
			body := runes[i+1 : end]
			negate := len(body) > 0 && body[0] == '!'
			if negate {
				body = body[1:]
			}
			if err := writeClass(&b, body, negate); err != nil {
				return nil, err
			}
			i = end
			continue
		case '{', '}', '\\', ',', ']':
			b.WriteRune('\\')
		}
		b.WriteRune(r)
	}
	return glob.Compile(b.String())
}

// classEnd returns the index of the "]" closing the class opened at
// runes[open], or -1. A "]" right after "[" or "[!" is a member.
func classEnd(runes []rune, open int) int {
	j := open + 1
	if j < len(runes) && runes[j] == '!' {
		j++
	}
	if j < len(runes) && runes[j] == ']' {
		j++
	}
	for ; j < len(runes); j++ {
		if runes[j] == ']' {
			return j
		}
	}
	return -1
}

type classItem struct{ lo, hi rune }

func classItems(body []rune) []classItem {
	var items []classItem
	for i := 0; i < len(body); i++ {
		if i+2 < len(body) && body[i+1] == '-' {
			items = append(items, classItem{body[i], body[i+2]})
			i += 2
			continue
		}
		items = append(items, classItem{body[i], body[i]})
	}
	return items
}

func writeClass(b *strings.Builder, body []rune, negate bool) error {
	items := classItems(body)
	ranges := 0
	for _, it := range items {
		if it.lo != it.hi {
			ranges++
		}
	}

	open := "["
	if negate {
		open = "[!"
	}
	switch {
	case ranges == 0:
		// gobwas reads a first member followed by "-" as a range, even an
		// escaped one, so dashes go last and a dash-only class is "---".
		var members []rune
		dash := false
		for _, it := range items {
			if it.lo == '-' {
				dash = true
				continue
			}
			members = append(members, it.lo)
		}
		b.WriteString(open)
		if len(members) == 0 {
			b.WriteString("---]")
			return nil
		}
		for _, r := range members {
			if strings.ContainsRune(`]\!`, r) {
				b.WriteRune('\\')
			}
			b.WriteRune(r)
		}
		if dash {
			b.WriteString(`\-`)
		}
		b.WriteByte(']')
	case len(items) == 1:
		b.WriteString(open)
		b.WriteRune(items[0].lo)
		b.WriteByte('-')
		b.WriteRune(items[0].hi)
		b.WriteByte(']')
	case !negate:
		b.WriteByte('{')
		for i, it := range items {
			if i > 0 {
				b.WriteByte(',')
			}
			if err := writeClass(b, []rune{it.lo, '-', it.hi}[:rangeLen(it)], false); err != nil {
				return err
			}
		}
		b.WriteByte('}')
	default:
		return errMixedClass
	}
	return nil
}

func rangeLen(it classItem) int {
	if it.lo == it.hi {
		return 1
	}
	return 3
}

// matcher holds compiled patterns for repeated matching.
type matcher struct {
	exact map[string]struct{}
	globs []glob.Glob
}

func newMatcher(patterns []string) *matcher {
	m := &matcher{exact: make(map[string]struct{})}
	for _, p := range patterns {
		if !IsWildcard(p) {
			m.exact[p] = struct{}{}
			continue
		}
		g, err := compile(p)
		if err != nil {
			m.exact[p] = struct{}{}
			continue
		}
		m.globs = append(m.globs, g)
	}
	return m
}

func (m *matcher) match(name string) bool {
	if _, ok := m.exact[name]; ok {
		return true
	}
	for _, g := range m.globs {
		if g.Match(name) {
			return true
		}
	}
	return false
}
