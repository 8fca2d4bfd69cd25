// Package stage holds the ordered home-purchase journey every buyer moves through.
package stage

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed stages.yaml
var defaultCatalogYAML []byte

type Stage struct {
	Index       int      `yaml:"-" json:"index"`
	Title       string   `yaml:"title" json:"title"`
	Icon        string   `yaml:"icon" json:"icon"`
	Description string   `yaml:"description" json:"description"`
	AgentTasks  []string `yaml:"agent_tasks" json:"agent_tasks"`
	BuyerTasks  []string `yaml:"buyer_tasks" json:"buyer_tasks"`
}

// Catalog is immutable once built.
type Catalog struct {
	stages []Stage
}

type catalogFile struct {
	Stages []Stage `yaml:"stages"`
}

// Default returns the embedded catalog.
func Default() *Catalog {
	c, err := Parse(defaultCatalogYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded stage catalog: %v", err))
	}
	return c
}

// Load reads a replacement catalog from path, or the embedded one when path is empty.
func Load(path string) (*Catalog, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return Default(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read stage catalog: %w", err)
	}
	return Parse(raw)
}

func Parse(raw []byte) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse stage catalog: %w", err)
	}
	if len(f.Stages) == 0 {
		return nil, fmt.Errorf("stage catalog has no stages")
	}
	out := make([]Stage, len(f.Stages))
	for i, s := range f.Stages {
		if strings.TrimSpace(s.Title) == "" {
			return nil, fmt.Errorf("stage %d has no title", i)
		}
		s.Index = i
		s.AgentTasks = append([]string(nil), s.AgentTasks...)
		s.BuyerTasks = append([]string(nil), s.BuyerTasks...)
		out[i] = s
	}
	return &Catalog{stages: out}, nil
}

// StageAt returns ok=false for any index outside the catalog. Callers render
// that as a locked or unknown stage.
func (c *Catalog) StageAt(index int) (Stage, bool) {
	if c == nil || index < 0 || index >= len(c.stages) {
		return Stage{}, false
	}
	return c.stages[index], true
}

func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.stages)
}

func (c *Catalog) Valid(index int) bool {
	return index >= 0 && index < c.Len()
}

func (c *Catalog) All() []Stage {
	if c == nil {
		return nil
	}
	return append([]Stage(nil), c.stages...)
}

// CanMove reports whether a buyer at from may be moved to to: any forward
// jump, or exactly one step back.
func (c *Catalog) CanMove(from, to int) bool {
	if !c.Valid(from) || !c.Valid(to) {
		return false
	}
	return to > from || to == from-1
}
