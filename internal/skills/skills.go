// Package skills loads the SKILL.md guide attached to a tool category.
//
// A skill lives at <root>/<category>/SKILL.md and may start with a YAML
// frontmatter block carrying its name and description.
package skills

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/bobmcallan/humcp/internal/common"
)

// FileName is the name of a skill file.
const FileName = "SKILL.md"

// Skill is the guide for one category.
type Skill struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Content     string `json:"content"`
	Category    string `json:"-"`
}

// Summary is the skill metadata shown in tool listings.
type Summary struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Summary returns the listing form of s.
func (s Skill) Summary() Summary {
	return Summary{Name: s.Name, Description: s.Description}
}

type frontmatter struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

// Discover finds every SKILL.md under root, keyed by category (the name of
// the directory containing it). A missing root yields no skills. Files that
// fail to parse are logged and skipped.
func Discover(root string, logger *common.Logger) (map[string]Skill, error) {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	skills := make(map[string]Skill)
	if root == "" {
		return skills, nil
	}
	if _, err := os.Stat(root); errors.Is(err, os.ErrNotExist) {
		logger.Debug().Str("dir", root).Msg("skills directory not found")
		return skills, nil
	}

	var paths []string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && d.Name() == FileName {
			paths = append(paths, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning skills directory %s: %w", root, err)
	}
	sort.Strings(paths)

	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			logger.Warn().Str("path", p).Err(err).Msg("failed to read skill")
			continue
		}
		category := filepath.Base(filepath.Dir(p))
		skill, err := Parse(string(data), category)
		if err != nil {
			logger.Warn().Str("path", p).Err(err).Msg("failed to parse skill")
			continue
		}
		skills[category] = skill
		logger.Debug().Str("skill", skill.Name).Str("path", p).Msg("loaded skill")
	}

	logger.Info().Int("skills", len(skills)).Msg("discovered skills")
	return skills, nil
}

// Parse reads a skill document. Without frontmatter the whole text is the
// content and the name defaults to the category.
func Parse(text, category string) (Skill, error) {
	skill := Skill{Name: category, Category: category, Content: text}

	head, body, ok := splitFrontmatter(text)
	if !ok {
		return skill, nil
	}

	var fm frontmatter
	if err := yaml.Unmarshal([]byte(head), &fm); err != nil {
		return Skill{}, fmt.Errorf("frontmatter: %w", err)
	}
	if fm.Name != "" {
		skill.Name = fm.Name
	}
	skill.Description = fm.Description
	skill.Content = strings.TrimSpace(body)
	return skill, nil
}

// splitFrontmatter separates a leading "---" delimited block from the rest.
func splitFrontmatter(text string) (head, body string, ok bool) {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	first, rest, found := strings.Cut(text, "\n")
	if !found || strings.TrimSpace(first) != "---" {
		return "", "", false
	}
	lines := strings.SplitAfter(rest, "\n")
	for i, line := range lines {
		if strings.TrimSpace(line) == "---" {
			return strings.Join(lines[:i], ""), strings.Join(lines[i+1:], ""), true
		}
	}
	return "", "", false
}
