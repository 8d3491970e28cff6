// Package battle implements turn-based monster battle resolution: damage,
// type effectiveness, faint cascades and terminal outcomes.
package battle

import (
	"slices"
	"strings"
)

// Side identifies which team a party fights for.
type Side string

const (
	SidePlayers   Side = "players"
	SideOpponents Side = "opponents"
)

// Opposing returns the other side.
func (s Side) Opposing() Side {
	if s == SidePlayers {
		return SideOpponents
	}
	return SidePlayers
}

// Monster is one roster entry as it exists inside a battle.
type Monster struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Level     int      `json:"level"`
	MaxHP     int      `json:"max_hp"`
	CurrentHP int      `json:"current_hp"`
	Attack    int      `json:"attack"`
	Defense   int      `json:"defense"`
	Types     []string `json:"types"`
	Fainted   bool     `json:"fainted"`
}

// Stats returns the subset of the monster used by the damage formula.
func (m *Monster) Stats() Stats {
	return Stats{Level: m.Level, Attack: m.Attack, Defense: m.Defense}
}

// ApplyDamage reduces CurrentHP by dmg, floored at 0, and marks the monster
// fainted when it reaches 0.
//
// Precondition: dmg >= 0.
// Postcondition: CurrentHP >= 0; Fainted == (CurrentHP == 0). Returns the HP actually removed.
func (m *Monster) ApplyDamage(dmg int) int {
	if dmg <= 0 {
		return 0
	}
	before := m.CurrentHP
	m.CurrentHP -= dmg
	if m.CurrentHP < 0 {
		m.CurrentHP = 0
	}
	m.Fainted = m.CurrentHP == 0
	return before - m.CurrentHP
}

// Heal restores up to amount HP, capped at MaxHP, clearing the fainted flag
// when HP becomes positive.
//
// Postcondition: CurrentHP <= MaxHP. Returns the HP actually restored.
func (m *Monster) Heal(amount int) int {
	if amount <= 0 {
		return 0
	}
	before := m.CurrentHP
	m.CurrentHP = min(m.MaxHP, m.CurrentHP+amount)
	if m.CurrentHP > 0 {
		m.Fainted = false
	}
	return m.CurrentHP - before
}

// HasType reports whether the monster carries the given type (case-insensitive).
func (m *Monster) HasType(t string) bool {
	return slices.ContainsFunc(m.Types, func(mt string) bool { return strings.EqualFold(mt, t) })
}

func (m Monster) clone() Monster {
	m.Types = slices.Clone(m.Types)
	return m
}

// Party is one trainer's (or opponent template's) roster plus its active pointer.
//
// Invariant: ActiveIndex points at a non-fainted monster unless every monster is fainted.
type Party struct {
	ID          string    `json:"id"`
	Side        Side      `json:"side"`
	TrainerID   string    `json:"trainer_id,omitempty"`
	Name        string    `json:"name"`
	Monsters    []Monster `json:"monsters"`
	ActiveIndex int       `json:"active_index"`
}

// Active returns the currently battling monster.
//
// Precondition: len(Monsters) > 0.
func (p *Party) Active() *Monster {
	return &p.Monsters[p.ActiveIndex]
}

// Wiped reports whether every monster in the party has fainted.
func (p *Party) Wiped() bool {
	for i := range p.Monsters {
		if !p.Monsters[i].Fainted {
			return false
		}
	}
	return true
}

// FaintedCount returns the number of fainted monsters in the party.
func (p *Party) FaintedCount() int {
	n := 0
	for i := range p.Monsters {
		if p.Monsters[i].Fainted {
			n++
		}
	}
	return n
}

// NextAvailable returns the first non-fainted roster index in roster order,
// or -1 when the party is wiped.
func (p *Party) NextAvailable() int {
	for i := range p.Monsters {
		if !p.Monsters[i].Fainted {
			return i
		}
	}
	return -1
}

// nextOther returns the first non-fainted index after the active slot,
// wrapping around and skipping the active slot, or -1.
func (p *Party) nextOther() int {
	n := len(p.Monsters)
	for off := 1; off < n; off++ {
		i := (p.ActiveIndex + off) % n
		if !p.Monsters[i].Fainted {
			return i
		}
	}
	return -1
}

func (p Party) clone() Party {
	ms := make([]Monster, len(p.Monsters))
	for i := range p.Monsters {
		ms[i] = p.Monsters[i].clone()
	}
	p.Monsters = ms
	return p
}

// normalize clamps health into [0, MaxHP], derives fainted flags and points
// ActiveIndex at the first available monster.
func (p *Party) normalize() {
	for i := range p.Monsters {
		m := &p.Monsters[i]
		if m.MaxHP < 1 {
			m.MaxHP = 1
		}
		m.CurrentHP = max(0, min(m.CurrentHP, m.MaxHP))
		m.Fainted = m.CurrentHP == 0
	}
	if p.ActiveIndex < 0 || p.ActiveIndex >= len(p.Monsters) || p.Monsters[p.ActiveIndex].Fainted {
		p.ActiveIndex = max(0, p.NextAvailable())
	}
}
