// Package item loads the catalog of consumables usable in battle.
package item

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/monbattle/internal/game/battle"
)

var displayTitle = cases.Title(language.English)

type itemEntry struct {
	Name        string  `yaml:"name"`
	HealAmount  int     `yaml:"heal_amount"`
	HealPercent float64 `yaml:"heal_percent"`
	Revive      bool    `yaml:"revive"`
}

type catalogFile struct {
	Items []itemEntry `yaml:"items"`
}

// Catalog resolves item names to their battle effects. Names the catalog does
// not know still resolve, to an item with the default heal.
type Catalog struct {
	items map[string]battle.Item
}

func normalize(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

// NewCatalog builds a Catalog from items.
//
// Postcondition: Returns an error if a name is empty or repeated, a heal
// amount is negative, or a heal percent is outside [0, 1].
func NewCatalog(items []battle.Item) (*Catalog, error) {
	c := &Catalog{items: make(map[string]battle.Item, len(items))}
	for i, it := range items {
		key := normalize(it.Name)
		if key == "" {
			return nil, fmt.Errorf("item[%d] must have a name", i)
		}
		if _, dup := c.items[key]; dup {
			return nil, fmt.Errorf("duplicate item %q", it.Name)
		}
		if it.HealAmount < 0 {
			return nil, fmt.Errorf("item %q heal_amount must be >= 0, got %d", it.Name, it.HealAmount)
		}
		if it.HealPercent < 0 || it.HealPercent > 1 {
			return nil, fmt.Errorf("item %q heal_percent must be in [0, 1], got %f", it.Name, it.HealPercent)
		}
		c.items[key] = it
	}
	return c, nil
}

// DefaultCatalog returns the built-in potions, berries and revives.
func DefaultCatalog() *Catalog {
	c, _ := NewCatalog([]battle.Item{
		{Name: "Potion", HealAmount: 20},
		{Name: "Super Potion", HealAmount: 50},
		{Name: "Hyper Potion", HealAmount: 200},
		{Name: "Max Potion", HealPercent: 1},
		{Name: "Full Restore", HealPercent: 1},
		{Name: "Berry Juice", HealAmount: 20},
		{Name: "Oran Berry", HealAmount: 10},
		{Name: "Sitrus Berry", HealPercent: 0.25},
		{Name: "Revive", HealPercent: 0.5, Revive: true},
		{Name: "Max Revive", HealPercent: 1, Revive: true},
	})
	return c
}

// Lookup resolves name case-insensitively, ignoring repeated spaces.
func (c *Catalog) Lookup(name string) battle.Item {
	key := normalize(name)
	if it, ok := c.items[key]; ok {
		return it
	}
	return battle.Item{Name: displayTitle.String(key)}
}

// Len returns the number of known items.
func (c *Catalog) Len() int {
	return len(c.items)
}

// LoadCatalogFromBytes parses an item catalog from YAML.
func LoadCatalogFromBytes(data []byte) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing item YAML: %w", err)
	}
	items := make([]battle.Item, 0, len(f.Items))
	for _, e := range f.Items {
		items = append(items, battle.Item{Name: e.Name, HealAmount: e.HealAmount, HealPercent: e.HealPercent, Revive: e.Revive})
	}
	return NewCatalog(items)
}

// LoadCatalog reads an item catalog from a YAML file.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading item catalog %q: %w", path, err)
	}
	c, err := LoadCatalogFromBytes(data)
	if err != nil {
		return nil, fmt.Errorf("loading %q: %w", path, err)
	}
	return c, nil
}
