package battle_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cory-johannsen/monbattle/internal/game/battle"
	"github.com/cory-johannsen/monbattle/internal/game/dice"
)

// stubChart is a sparse type table; absent pairs are neutral.
type stubChart map[string]map[string]float64

func (c stubChart) Multiplier(atk string, def []string) float64 {
	m := 1.0
	for _, d := range def {
		if f, ok := c[atk][d]; ok {
			m *= f
		}
	}
	return m
}

var testChart = stubChart{
	"Electric": {"Water": 2, "Ground": 0},
	"Normal":   {"Ghost": 0},
	"Fire":     {"Water": 0.5, "Grass": 2},
	"Water":    {"Fire": 2},
}

func monster(id string, hp int, types ...string) battle.Monster {
	return battle.Monster{
		ID: id, Name: id, Level: 10, MaxHP: hp, CurrentHP: hp,
		Attack: 30, Defense: 20, Types: types,
	}
}

func roster(prefix string, n, hp int, types ...string) []battle.Monster {
	out := make([]battle.Monster, n)
	for i := range out {
		out[i] = monster(fmt.Sprintf("%s-%d", prefix, i+1), hp, types...)
	}
	return out
}

func pveSession(t testing.TB, players, opponents []battle.Monster) *battle.Session {
	t.Helper()
	s, err := battle.NewSession(battle.Setup{
		ID:   "battle-1",
		Mode: battle.ModePvE,
		Parties: []battle.Party{
			{ID: "p1", Side: battle.SidePlayers, TrainerID: "trainer-1", Name: "Ash", Monsters: players},
			{ID: "o1", Side: battle.SideOpponents, Name: "Wild Pack", Monsters: opponents},
		},
		Difficulty: "normal",
		Now:        time.Unix(1700000000, 0).UTC(),
	})
	require.NoError(t, err)
	return s
}

func newProcessor(src dice.Source, policy battle.Policy) *battle.Processor {
	roller := dice.NewLoggedRoller(src, zap.NewNop())
	return battle.NewProcessor(testChart, battle.DefaultModifierTable(), roller, policy, zap.NewNop())
}

// neutral returns a source whose every variance draw yields a random factor of 1.0.
func neutral() dice.Source {
	return &dice.Fixed{Floats: []float64{0.5}}
}

var playerSignal = &battle.PerformanceSignal{Speed: 60, Accuracy: 90}

func attack(party string) battle.Attack {
	return battle.Attack{PartyID: party, Move: battle.Move{Name: "Thunder Shock", Type: "Electric"}, Signal: playerSignal}
}
