package gameserver

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/cory-johannsen/monbattle/internal/game/battle"
	"github.com/cory-johannsen/monbattle/internal/game/reward"
)

var displayTitle = cases.Title(language.English)

// RenderStatus formats a session for a battle-status reply: environment, win
// condition, then every party's active monster and bench.
func RenderStatus(sess *battle.Session) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Battle %s (%s) - turn %d - %s\n", sess.ID, strings.ToUpper(string(sess.Mode)), sess.Turn, displayTitle.String(string(sess.Status)))
	fmt.Fprintf(&b, "Field: %s\n", sess.Environment)
	if sess.WinCondition > 0 {
		fmt.Fprintf(&b, "Win condition: first side to lose %d monsters loses\n", sess.WinCondition)
	} else {
		b.WriteString("Win condition: knock out every opposing monster\n")
	}
	for _, side := range []battle.Side{battle.SidePlayers, battle.SideOpponents} {
		fmt.Fprintf(&b, "%s (%d/%d fainted):\n", displayTitle.String(string(side)), sess.SideFainted(side), sess.SideRosterSize(side))
		for i, p := range sess.SideParties(side) {
			fmt.Fprintf(&b, "  %d. %s [%s]", i+1, p.Name, p.ID)
			if p.Wiped() {
				b.WriteString(" - no monsters left\n")
				continue
			}
			fmt.Fprintf(&b, " - %s\n", describeMonster(p.Active()))
			var bench []string
			for j := range p.Monsters {
				if j == p.ActiveIndex {
					continue
				}
				bench = append(bench, describeBench(&p.Monsters[j]))
			}
			if len(bench) > 0 {
				fmt.Fprintf(&b, "     bench: %s\n", strings.Join(bench, ", "))
			}
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func describeMonster(m *battle.Monster) string {
	s := fmt.Sprintf("%s Lv%d %d/%d HP", m.Name, m.Level, m.CurrentHP, m.MaxHP)
	if len(m.Types) > 0 {
		s += " (" + strings.Join(m.Types, "/") + ")"
	}
	return s
}

func describeBench(m *battle.Monster) string {
	if m.Fainted {
		return m.Name + " (fainted)"
	}
	return fmt.Sprintf("%s %d/%d", m.Name, m.CurrentHP, m.MaxHP)
}

// RenderReward formats a descriptor as one line.
func RenderReward(d reward.Descriptor) string {
	if d.Empty() {
		return "No rewards this time."
	}
	parts := []string{fmt.Sprintf("%d coins", d.Coins), fmt.Sprintf("%d levels", d.Levels)}
	for _, item := range d.Items {
		parts = append(parts, fmt.Sprintf("%s x%d", item.Name, item.Quantity))
	}
	for _, m := range d.Monsters {
		s := fmt.Sprintf("%s (Lv%d)", m.Name, m.Level)
		if m.IsSpecial {
			s += " *special*"
		}
		parts = append(parts, s)
	}
	prefix := "Rewards: "
	if d.Partial {
		prefix = "Partial rewards: "
	}
	return prefix + strings.Join(parts, ", ")
}
