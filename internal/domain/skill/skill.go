// Package skill selects short domain checklists to inject into prompts.
package skill

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/janhq/reno-server/internal/domain/intent"
)

// Selection limits.
const (
	MaxSkills        = 3
	MaxLinesPerSkill = 8
)

//go:embed catalog.yaml
var catalogYAML []byte

// Skill is one prompt snippet.
type Skill struct {
	ID        string   `yaml:"id"`
	Name      string   `yaml:"name"`
	Personas  []string `yaml:"personas"`
	Scenarios []string `yaml:"scenarios"`
	Intents   []string `yaml:"intents"`
	Keywords  []string `yaml:"keywords"`
	Lines     []string `yaml:"lines"`
}

// Catalog is the parsed skill table.
type Catalog struct {
	Skills []Skill `yaml:"skills"`
}

// ParseCatalog decodes a YAML catalog.
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse skill catalog: %w", err)
	}
	seen := map[string]struct{}{}
	for _, s := range c.Skills {
		if s.ID == "" {
			return nil, fmt.Errorf("skill without id in catalog")
		}
		if _, dup := seen[s.ID]; dup {
			return nil, fmt.Errorf("duplicate skill id %q", s.ID)
		}
		seen[s.ID] = struct{}{}
	}
	return &c, nil
}

// DefaultCatalog returns the embedded catalog.
func DefaultCatalog() *Catalog {
	c, err := ParseCatalog(catalogYAML)
	if err != nil {
		panic(err)
	}
	return c
}

// Selector is a pure rule table over a catalog.
type Selector struct {
	catalog *Catalog
}

// NewSelector builds a selector. A nil catalog uses the embedded one.
func NewSelector(catalog *Catalog) *Selector {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	return &Selector{catalog: catalog}
}

// Select returns up to MaxSkills skills: persona and scenario defaults first,
// then intent skills, then keyword matches when the intent carries no signal.
func (s *Selector) Select(in intent.Intent, persona, scenario, message string) []Skill {
	var picked []Skill
	seen := map[string]struct{}{}
	add := func(sk Skill) {
		if _, dup := seen[sk.ID]; dup {
			return
		}
		seen[sk.ID] = struct{}{}
		picked = append(picked, sk)
	}

	if persona != "" {
		for _, sk := range s.catalog.Skills {
			if contains(sk.Personas, persona) {
				add(sk)
			}
		}
	}
	if scenario != "" {
		for _, sk := range s.catalog.Skills {
			if contains(sk.Scenarios, scenario) {
				add(sk)
			}
		}
	}
	if intentKnown(in) {
		for _, sk := range s.catalog.Skills {
			if contains(sk.Intents, string(in)) {
				add(sk)
			}
		}
	} else {
		lower := strings.ToLower(message)
		for _, sk := range s.catalog.Skills {
			for _, kw := range sk.Keywords {
				if strings.Contains(lower, kw) {
					add(sk)
					break
				}
			}
		}
	}

	if len(picked) > MaxSkills {
		picked = picked[:MaxSkills]
	}
	return picked
}

// GetContext renders the selected skills as a bullet list block.
func (s *Selector) GetContext(in intent.Intent, persona, scenario, message string) string {
	return Render(s.Select(in, persona, scenario, message))
}

// Render formats skills, capping each at MaxLinesPerSkill lines.
func Render(skills []Skill) string {
	if len(skills) == 0 {
		return ""
	}
	var b strings.Builder
	for i, sk := range skills {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%s:\n", sk.Name)
		lines := sk.Lines
		if len(lines) > MaxLinesPerSkill {
			lines = lines[:MaxLinesPerSkill]
		}
		for _, line := range lines {
			fmt.Fprintf(&b, "- %s\n", line)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// IDs returns the skill ids in order.
func IDs(skills []Skill) []string {
	ids := make([]string, len(skills))
	for i, sk := range skills {
		ids[i] = sk.ID
	}
	return ids
}

// intentKnown treats the default label as "no intent signal".
func intentKnown(in intent.Intent) bool {
	return in != "" && in != intent.Default
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
