// Package opponent provides PvE opponent template definitions and the catalog
// the battle controller draws them from.
package opponent

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/monbattle/internal/game/battle"
	"github.com/cory-johannsen/monbattle/internal/game/reward"
)

// MonsterSpec is one roster slot of an opponent template.
type MonsterSpec struct {
	Name    string   `yaml:"name"`
	Level   int      `yaml:"level"`
	MaxHP   int      `yaml:"max_hp"`
	Attack  int      `yaml:"attack"`
	Defense int      `yaml:"defense"`
	Types   []string `yaml:"types"`
}

// Template defines a reusable opponent party loaded from YAML.
type Template struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	// Difficulty is the reward tier; empty means normal.
	Difficulty string        `yaml:"difficulty"`
	Weather    string        `yaml:"weather"`
	Terrain    string        `yaml:"terrain"`
	Monsters   []MonsterSpec `yaml:"monsters"`
}

// Validate checks that the template satisfies basic invariants.
//
// Precondition: t must not be nil.
// Postcondition: Returns nil iff ID and Name are non-empty, the difficulty is a
// known tier or empty, and the roster holds at least one monster with a name,
// Level >= 1 and MaxHP >= 1.
func (t *Template) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("opponent template: id must not be empty")
	}
	if t.Name == "" {
		return fmt.Errorf("opponent template %q: name must not be empty", t.ID)
	}
	if t.Difficulty != "" {
		if _, ok := reward.ParseTier(t.Difficulty); !ok {
			return fmt.Errorf("opponent template %q: unknown difficulty %q", t.ID, t.Difficulty)
		}
	}
	if len(t.Monsters) == 0 {
		return fmt.Errorf("opponent template %q: roster must not be empty", t.ID)
	}
	for i, m := range t.Monsters {
		if m.Name == "" {
			return fmt.Errorf("opponent template %q: monster[%d] name must not be empty", t.ID, i)
		}
		if m.Level < 1 {
			return fmt.Errorf("opponent template %q: monster %q level must be >= 1", t.ID, m.Name)
		}
		if m.MaxHP < 1 {
			return fmt.Errorf("opponent template %q: monster %q max_hp must be >= 1", t.ID, m.Name)
		}
		if m.Attack < 0 || m.Defense < 0 {
			return fmt.Errorf("opponent template %q: monster %q stats must be >= 0", t.ID, m.Name)
		}
	}
	return nil
}

// Tier returns the template's reward tier.
func (t *Template) Tier() reward.Tier {
	tier, _ := reward.ParseTier(t.Difficulty)
	return tier
}

// Party builds a fresh, fully healed battle party from the template.
//
// Postcondition: Returns a party on the opponents side with no trainer; each
// monster id is "<template id>-<slot>".
func (t *Template) Party(partyID string) battle.Party {
	monsters := make([]battle.Monster, len(t.Monsters))
	for i, m := range t.Monsters {
		monsters[i] = battle.Monster{
			ID:        fmt.Sprintf("%s-%d", t.ID, i+1),
			Name:      m.Name,
			Level:     m.Level,
			MaxHP:     m.MaxHP,
			CurrentHP: m.MaxHP,
			Attack:    m.Attack,
			Defense:   m.Defense,
			Types:     append([]string(nil), m.Types...),
		}
	}
	return battle.Party{
		ID:       partyID,
		Side:     battle.SideOpponents,
		Name:     t.Name,
		Monsters: monsters,
	}
}

// LoadTemplateFromBytes parses a single opponent template from raw YAML bytes.
//
// Postcondition: Returns a validated *Template, or an error.
func LoadTemplateFromBytes(data []byte) (*Template, error) {
	var tmpl Template
	if err := yaml.Unmarshal(data, &tmpl); err != nil {
		return nil, fmt.Errorf("parsing opponent YAML: %w", err)
	}
	if err := tmpl.Validate(); err != nil {
		return nil, err
	}
	return &tmpl, nil
}

// LoadTemplates reads all *.yaml files in dir and returns the parsed templates.
//
// Precondition: dir must be a readable directory.
// Postcondition: Returns all templates or an error on the first parse or validate
// failure; on error, the partial result is discarded.
func LoadTemplates(dir string) ([]*Template, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading opponent dir %q: %w", dir, err)
	}

	var templates []*Template
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %q: %w", path, err)
		}
		tmpl, err := LoadTemplateFromBytes(data)
		if err != nil {
			return nil, fmt.Errorf("loading %q: %w", path, err)
		}
		templates = append(templates, tmpl)
	}
	return templates, nil
}

// Catalog is a read-only index of opponent templates by id.
type Catalog struct {
	byID map[string]*Template
}

// NewCatalog indexes templates.
//
// Postcondition: Returns an error if two templates share an id.
func NewCatalog(templates []*Template) (*Catalog, error) {
	c := &Catalog{byID: make(map[string]*Template, len(templates))}
	for _, t := range templates {
		if _, dup := c.byID[t.ID]; dup {
			return nil, fmt.Errorf("duplicate opponent template id %q", t.ID)
		}
		c.byID[t.ID] = t
	}
	return c, nil
}

// LoadCatalog loads every template in dir into a Catalog.
func LoadCatalog(dir string) (*Catalog, error) {
	templates, err := LoadTemplates(dir)
	if err != nil {
		return nil, err
	}
	return NewCatalog(templates)
}

// Template returns the template with the given id, or an error wrapping
// battle.ErrNotFound.
func (c *Catalog) Template(id string) (*Template, error) {
	t, ok := c.byID[id]
	if !ok {
		return nil, battle.NotFoundf("opponent template %q", id)
	}
	return t, nil
}

// IDs returns every template id in sorted order.
func (c *Catalog) IDs() []string {
	ids := make([]string, 0, len(c.byID))
	for id := range c.byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of templates.
func (c *Catalog) Len() int {
	return len(c.byID)
}
