package catalog

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed checklist.yaml
var defaultChecklist []byte

// PointsPerItem is the maximum value a single checklist item can earn.
const PointsPerItem = 100

// SpaceType identifies the kind of site being supervised.
type SpaceType string

const (
	SpaceFixed     SpaceType = "fixed"
	SpaceCommunity SpaceType = "community"
	// SpaceAll is only meaningful as a filter value.
	SpaceAll SpaceType = "all"
)

// spaceAliases maps historical wire values to their canonical space type.
var spaceAliases = map[string]SpaceType{
	"fixed":       SpaceFixed,
	"fijo":        SpaceFixed,
	"cdvfijo":     SpaceFixed,
	"community":   SpaceCommunity,
	"parque":      SpaceCommunity,
	"cdvparque":   SpaceCommunity,
	"comunitario": SpaceCommunity,
	"all":         SpaceAll,
	"":            SpaceAll,
}

// ParseSpaceType normalizes a raw space type. The second return is false
// when the value is not recognised.
func ParseSpaceType(raw string) (SpaceType, bool) {
	st, ok := spaceAliases[strings.ToLower(strings.TrimSpace(raw))]
	return st, ok
}

// Component is one of the fixed evaluation categories.
type Component string

const (
	ComponentTechnical      Component = "technical"
	ComponentNutrition      Component = "nutrition"
	ComponentInfrastructure Component = "infrastructure"
)

// Components lists the evaluation categories in display order.
var Components = []Component{ComponentTechnical, ComponentNutrition, ComponentInfrastructure}

// Item is a single checklist question.
type Item struct {
	ID          string      `yaml:"id" json:"id"`
	Label       string      `yaml:"label" json:"label"`
	SpaceTypes  []SpaceType `yaml:"space_types,omitempty" json:"spaceTypes,omitempty"`
	Contractors []string    `yaml:"contractors,omitempty" json:"contractors,omitempty"`
}

// AppliesTo reports whether the item is part of the checklist for the given
// space type and contractor.
func (i Item) AppliesTo(st SpaceType, contractor string) bool {
	if len(i.SpaceTypes) > 0 && st != SpaceAll {
		found := false
		for _, s := range i.SpaceTypes {
			if s == st {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if len(i.Contractors) > 0 {
		for _, c := range i.Contractors {
			if SameContractor(c, contractor) {
				return true
			}
		}
		return false
	}
	return true
}

// SameContractor compares contractor names ignoring case and surrounding space.
func SameContractor(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// Section groups the items of one component.
type Section struct {
	Component Component `yaml:"component" json:"component"`
	Title     string    `yaml:"title" json:"title"`
	Items     []Item    `yaml:"items" json:"items"`
}

// MaxPoints is the section denominator: every item counts, answered or not.
func (s Section) MaxPoints() int {
	return len(s.Items) * PointsPerItem
}

// Provider resolves the applicable checklist for a space type and contractor.
type Provider interface {
	Checklist(st SpaceType, contractor string) []Section
	MaxPossiblePoints(st SpaceType, contractor string) int
}

// Catalog is an immutable checklist definition.
type Catalog struct {
	sections []Section
}

// Load parses a YAML catalog definition.
func Load(data []byte) (*Catalog, error) {
	var doc struct {
		Sections []Section `yaml:"sections"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("error parsing catalog: %w", err)
	}

	for _, sec := range doc.Sections {
		seen := make(map[string]bool, len(sec.Items))
		for _, item := range sec.Items {
			if item.ID == "" {
				return nil, fmt.Errorf("section %q has an item without id", sec.Title)
			}
			if seen[item.ID] {
				return nil, fmt.Errorf("duplicate item id %q in section %q", item.ID, sec.Title)
			}
			seen[item.ID] = true
		}
	}

	return &Catalog{sections: doc.Sections}, nil
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
)

// Default returns the embedded visit checklist.
func Default() *Catalog {
	defaultOnce.Do(func() {
		c, err := Load(defaultChecklist)
		if err != nil {
			panic(fmt.Sprintf("embedded checklist is invalid: %v", err))
		}
		defaultCatalog = c
	})
	return defaultCatalog
}

// Checklist returns a fresh copy of the sections filtered to the items that
// apply to the space type and contractor. Callers may mutate the result.
func (c *Catalog) Checklist(st SpaceType, contractor string) []Section {
	out := make([]Section, 0, len(c.sections))
	for _, sec := range c.sections {
		copied := Section{Component: sec.Component, Title: sec.Title}
		for _, item := range sec.Items {
			if item.AppliesTo(st, contractor) {
				copied.Items = append(copied.Items, copyItem(item))
			}
		}
		out = append(out, copied)
	}
	return out
}

// MaxPossiblePoints is the form-level denominator for the given selection.
func (c *Catalog) MaxPossiblePoints(st SpaceType, contractor string) int {
	return c.ItemCount(st, contractor) * PointsPerItem
}

// ItemCount counts the applicable items across all sections.
func (c *Catalog) ItemCount(st SpaceType, contractor string) int {
	n := 0
	for _, sec := range c.sections {
		for _, item := range sec.Items {
			if item.AppliesTo(st, contractor) {
				n++
			}
		}
	}
	return n
}

// Lookup finds an item by id in any section.
func (c *Catalog) Lookup(itemID string) (Section, Item, bool) {
	for _, sec := range c.sections {
		for _, item := range sec.Items {
			if item.ID == itemID {
				return Section{Component: sec.Component, Title: sec.Title}, copyItem(item), true
			}
		}
	}
	return Section{}, Item{}, false
}

// SectionFor returns the section title for a component.
func (c *Catalog) SectionFor(comp Component) (string, bool) {
	for _, sec := range c.sections {
		if sec.Component == comp {
			return sec.Title, true
		}
	}
	return "", false
}

// ComponentFor maps a section title (or a component name used as a key) to
// its component.
func (c *Catalog) ComponentFor(key string) (Component, bool) {
	for _, sec := range c.sections {
		if sec.Title == key || string(sec.Component) == key {
			return sec.Component, true
		}
	}
	return "", false
}

func copyItem(item Item) Item {
	out := item
	if item.SpaceTypes != nil {
		out.SpaceTypes = append([]SpaceType(nil), item.SpaceTypes...)
	}
	if item.Contractors != nil {
		out.Contractors = append([]string(nil), item.Contractors...)
	}
	return out
}
