package trainer

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/monbattle/internal/game/battle"
)

type trainerFile struct {
	ID        string        `yaml:"id"`
	Name      string        `yaml:"name"`
	BattleBox []monsterFile `yaml:"battle_box"`
}

type monsterFile struct {
	ID        string   `yaml:"id"`
	Name      string   `yaml:"name"`
	Level     int      `yaml:"level"`
	MaxHP     int      `yaml:"max_hp"`
	CurrentHP *int     `yaml:"current_hp"`
	Attack    int      `yaml:"attack"`
	Defense   int      `yaml:"defense"`
	Types     []string `yaml:"types"`
}

// LoadFromBytes parses a single trainer from raw YAML bytes. A monster with
// no current_hp starts at full health.
//
// Postcondition: Returns a validated *Trainer, or an error.
func LoadFromBytes(data []byte) (*Trainer, error) {
	var f trainerFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing trainer YAML: %w", err)
	}
	t := &Trainer{ID: f.ID, Name: f.Name, BattleBox: make([]battle.Monster, 0, len(f.BattleBox))}
	for _, m := range f.BattleBox {
		hp := m.MaxHP
		if m.CurrentHP != nil {
			hp = *m.CurrentHP
		}
		t.BattleBox = append(t.BattleBox, battle.Monster{
			ID:        m.ID,
			Name:      m.Name,
			Level:     m.Level,
			MaxHP:     m.MaxHP,
			CurrentHP: hp,
			Attack:    m.Attack,
			Defense:   m.Defense,
			Types:     m.Types,
		})
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// LoadDir reads every *.yaml file in dir as one trainer.
//
// Precondition: dir must be a readable directory.
// Postcondition: Returns all trainers or the first read, parse or validation error.
func LoadDir(dir string) ([]*Trainer, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading trainer dir %q: %w", dir, err)
	}
	var trainers []*Trainer
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %q: %w", path, err)
		}
		t, err := LoadFromBytes(data)
		if err != nil {
			return nil, fmt.Errorf("loading %q: %w", path, err)
		}
		trainers = append(trainers, t)
	}
	return trainers, nil
}
