// Package trainer defines a player trainer and the battle box roster they
// bring into battle.
package trainer

import (
	"fmt"
	"slices"

	"github.com/cory-johannsen/monbattle/internal/game/battle"
)

// MaxBattleBox is the largest roster a trainer may bring into one battle.
const MaxBattleBox = 6

// Trainer is a player with a battle box of monsters.
type Trainer struct {
	ID   string
	Name string
	// BattleBox is the ordered roster used in battle; slot 0 leads.
	BattleBox []battle.Monster
}

// Validate checks that the trainer can be persisted.
//
// Precondition: t must not be nil.
// Postcondition: Returns nil iff ID and Name are non-empty, the battle box
// holds at most MaxBattleBox monsters, and every monster has an id, a name,
// Level >= 1 and MaxHP >= 1.
func (t *Trainer) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("trainer: id must not be empty")
	}
	if t.Name == "" {
		return fmt.Errorf("trainer %q: name must not be empty", t.ID)
	}
	if len(t.BattleBox) > MaxBattleBox {
		return fmt.Errorf("trainer %q: battle box holds at most %d monsters, got %d", t.ID, MaxBattleBox, len(t.BattleBox))
	}
	seen := make(map[string]bool, len(t.BattleBox))
	for i, m := range t.BattleBox {
		if m.ID == "" || m.Name == "" {
			return fmt.Errorf("trainer %q: slot %d needs an id and a name", t.ID, i)
		}
		if seen[m.ID] {
			return fmt.Errorf("trainer %q: monster %q appears twice", t.ID, m.ID)
		}
		seen[m.ID] = true
		if m.Level < 1 || m.MaxHP < 1 {
			return fmt.Errorf("trainer %q: monster %q needs level >= 1 and max_hp >= 1", t.ID, m.Name)
		}
	}
	return nil
}

// Party builds a battle party from the trainer's battle box. The returned
// roster shares no memory with t.
func (t *Trainer) Party(partyID string, side battle.Side) battle.Party {
	roster := make([]battle.Monster, len(t.BattleBox))
	for i, m := range t.BattleBox {
		m.Types = slices.Clone(m.Types)
		roster[i] = m
	}
	return battle.Party{
		ID:        partyID,
		Side:      side,
		TrainerID: t.ID,
		Name:      t.Name,
		Monsters:  roster,
	}
}
