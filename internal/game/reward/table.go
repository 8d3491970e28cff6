// Package reward turns battle outcomes into reward descriptors.
package reward

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/monbattle/internal/game/dice"
)

// Tier is a battle difficulty band.
type Tier string

const (
	TierEasy   Tier = "easy"
	TierNormal Tier = "normal"
	TierHard   Tier = "hard"
	TierElite  Tier = "elite"
)

// Tiers lists every tier in ascending difficulty.
var Tiers = []Tier{TierEasy, TierNormal, TierHard, TierElite}

// ParseTier resolves a tier name case-insensitively.
//
// Postcondition: Returns the tier and true for a known name; TierNormal and
// false for anything else, including the empty string.
func ParseTier(s string) (Tier, bool) {
	t := Tier(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Tiers {
		if t == known {
			return t, true
		}
	}
	return TierNormal, false
}

// ItemDrop is one entry of a tier's item pool.
type ItemDrop struct {
	Name     string `yaml:"name"`
	Category string `yaml:"category"`
	// Quantity is an integer or dice expression such as "1d3".
	Quantity string `yaml:"quantity"`
}

// TierRewards defines what a won battle at one tier can yield.
type TierRewards struct {
	Coins         int        `yaml:"coins"`
	Levels        int        `yaml:"levels"`
	ItemChance    float64    `yaml:"item_chance"`
	MonsterChance float64    `yaml:"monster_chance"`
	MonsterLevel  int        `yaml:"monster_level"`
	Items         []ItemDrop `yaml:"items"`
}

// Table maps every tier to its rewards.
type Table struct {
	Tiers map[Tier]TierRewards `yaml:"tiers"`
}

// DefaultTable returns the built-in reward table.
func DefaultTable() *Table {
	return &Table{Tiers: map[Tier]TierRewards{
		TierEasy: {
			Coins: 100, Levels: 1, ItemChance: 0.30, MonsterChance: 0.10, MonsterLevel: 5,
			Items: []ItemDrop{
				{Name: "Potion", Category: "ITEMS", Quantity: "1"},
				{Name: "Berry Juice", Category: "BERRIES", Quantity: "3"},
				{Name: "Pecha Berry", Category: "BERRIES", Quantity: "2"},
			},
		},
		TierNormal: {
			Coins: 250, Levels: 2, ItemChance: 0.50, MonsterChance: 0.20, MonsterLevel: 10,
			Items: []ItemDrop{
				{Name: "Super Potion", Category: "ITEMS", Quantity: "1"},
				{Name: "Sitrus Berry", Category: "BERRIES", Quantity: "2"},
				{Name: "Bottle Cap", Category: "ITEMS", Quantity: "1"},
			},
		},
		TierHard: {
			Coins: 500, Levels: 3, ItemChance: 0.70, MonsterChance: 0.40, MonsterLevel: 20,
			Items: []ItemDrop{
				{Name: "Hyper Potion", Category: "ITEMS", Quantity: "1"},
				{Name: "Lum Berry", Category: "BERRIES", Quantity: "2"},
				{Name: "Ability Capsule", Category: "ITEMS", Quantity: "1"},
			},
		},
		TierElite: {
			Coins: 1000, Levels: 5, ItemChance: 1.00, MonsterChance: 0.70, MonsterLevel: 30,
			Items: []ItemDrop{
				{Name: "Full Restore", Category: "ITEMS", Quantity: "1"},
				{Name: "Gold Bottle Cap", Category: "ITEMS", Quantity: "1"},
				{Name: "Ability Patch", Category: "ITEMS", Quantity: "1"},
			},
		},
	}}
}

// Validate checks that the table satisfies its invariants.
//
// Precondition: t must not be nil.
// Postcondition: Returns nil iff every tier is known, amounts are non-negative,
// chances are in [0, 1], and every item has a name and a parseable quantity.
func (t *Table) Validate() error {
	for tier, r := range t.Tiers {
		if _, ok := ParseTier(string(tier)); !ok {
			return fmt.Errorf("reward table: unknown tier %q", tier)
		}
		if r.Coins < 0 {
			return fmt.Errorf("reward table: %s coins must be >= 0, got %d", tier, r.Coins)
		}
		if r.Levels < 0 {
			return fmt.Errorf("reward table: %s levels must be >= 0, got %d", tier, r.Levels)
		}
		if r.ItemChance < 0 || r.ItemChance > 1 {
			return fmt.Errorf("reward table: %s item_chance must be in [0, 1], got %f", tier, r.ItemChance)
		}
		if r.MonsterChance < 0 || r.MonsterChance > 1 {
			return fmt.Errorf("reward table: %s monster_chance must be in [0, 1], got %f", tier, r.MonsterChance)
		}
		if r.MonsterChance > 0 && r.MonsterLevel < 1 {
			return fmt.Errorf("reward table: %s monster_level must be >= 1, got %d", tier, r.MonsterLevel)
		}
		if r.ItemChance > 0 && len(r.Items) == 0 {
			return fmt.Errorf("reward table: %s has an item chance but no items", tier)
		}
		for i, item := range r.Items {
			if item.Name == "" {
				return fmt.Errorf("reward table: %s item[%d] must have a name", tier, i)
			}
			expr, err := dice.Parse(item.Quantity)
			if err != nil {
				return fmt.Errorf("reward table: %s item %q quantity: %w", tier, item.Name, err)
			}
			if expr.Min() < 1 {
				return fmt.Errorf("reward table: %s item %q quantity %q can be below 1", tier, item.Name, item.Quantity)
			}
		}
	}
	return nil
}

// LoadTableFromBytes parses a reward table from YAML. Tiers the document
// omits keep their built-in values.
//
// Postcondition: Returns a validated *Table or a non-nil error.
func LoadTableFromBytes(data []byte) (*Table, error) {
	var doc Table
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing reward YAML: %w", err)
	}
	tbl := DefaultTable()
	for tier, r := range doc.Tiers {
		canonical, ok := ParseTier(string(tier))
		if !ok {
			return nil, fmt.Errorf("reward table: unknown tier %q", tier)
		}
		tbl.Tiers[canonical] = r
	}
	if err := tbl.Validate(); err != nil {
		return nil, err
	}
	return tbl, nil
}

// LoadTable reads a reward table from a YAML file.
func LoadTable(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading reward table %q: %w", path, err)
	}
	tbl, err := LoadTableFromBytes(data)
	if err != nil {
		return nil, fmt.Errorf("loading %q: %w", path, err)
	}
	return tbl, nil
}
