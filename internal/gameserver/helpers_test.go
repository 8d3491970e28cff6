package gameserver_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"

	"github.com/cory-johannsen/monbattle/internal/game/battle"
	"github.com/cory-johannsen/monbattle/internal/game/dice"
	"github.com/cory-johannsen/monbattle/internal/game/opponent"
	"github.com/cory-johannsen/monbattle/internal/game/trainer"
	"github.com/cory-johannsen/monbattle/internal/gameserver"
	"github.com/cory-johannsen/monbattle/internal/gameserver/mock"
)

// flatChart treats every matchup as neutral except Electric into Ground.
type flatChart struct{}

func (flatChart) Multiplier(atk string, def []string) float64 {
	for _, d := range def {
		if atk == "Electric" && d == "Ground" {
			return 0
		}
	}
	return 1
}

func mon(id, name string, hp int, types ...string) battle.Monster {
	return battle.Monster{ID: id, Name: name, Level: 10, MaxHP: hp, CurrentHP: hp, Attack: 30, Defense: 20, Types: types}
}

// tb is the subset of testing.TB that rapid.T also satisfies.
type tb interface {
	Helper()
	require.TestingT
}

func testTrainers(t tb) *gameserver.MemoryTrainers {
	t.Helper()
	store, err := gameserver.NewMemoryTrainers(
		&trainer.Trainer{ID: "ash", Name: "Ash", BattleBox: []battle.Monster{
			mon("ash-1", "Pikachu", 40, "Electric"),
			mon("ash-2", "Bulbasaur", 45, "Grass", "Poison"),
		}},
		&trainer.Trainer{ID: "misty", Name: "Misty", BattleBox: []battle.Monster{mon("misty-1", "Staryu", 30, "Water")}},
		&trainer.Trainer{ID: "brock", Name: "Brock", BattleBox: []battle.Monster{mon("brock-1", "Onix", 35, "Rock", "Ground")}},
		&trainer.Trainer{ID: "gary", Name: "Gary", BattleBox: []battle.Monster{mon("gary-1", "Eevee", 1, "Normal")}},
		&trainer.Trainer{ID: "frail", Name: "Frail", BattleBox: []battle.Monster{mon("frail-1", "Caterpie", 1, "Bug")}},
		&trainer.Trainer{ID: "empty", Name: "Nobody"},
	)
	require.NoError(t, err)
	return store
}

func testCatalog(t tb) *opponent.Catalog {
	t.Helper()
	spec := func(name string, hp int, types ...string) opponent.MonsterSpec {
		return opponent.MonsterSpec{Name: name, Level: 3, MaxHP: hp, Attack: 10, Defense: 20, Types: types}
	}
	catalog, err := opponent.NewCatalog([]*opponent.Template{
		{ID: "rattata-pair", Name: "Rattata Pair", Difficulty: "easy", Monsters: []opponent.MonsterSpec{spec("Rattata", 1, "Normal"), spec("Raticate", 1, "Normal")}},
		{ID: "sand-den", Name: "Sand Den", Difficulty: "hard", Weather: "sandstorm", Terrain: "none", Monsters: []opponent.MonsterSpec{spec("Sandshrew", 50, "Ground")}},
		{ID: "tank", Name: "Tank", Monsters: []opponent.MonsterSpec{spec("Snorlax", 100000, "Normal"), spec("Munchlax", 100000, "Normal")}},
		{ID: "bad-weather", Name: "Broken", Weather: "acid rain", Monsters: []opponent.MonsterSpec{spec("Grimer", 10, "Poison")}},
	})
	require.NoError(t, err)
	return catalog
}

type harness struct {
	controller *gameserver.BattleController
	store      *gameserver.MemoryStore
	rewards    *mock.MockRewardGenerator
	sink       *mock.MockRewardSink
}

// newHarness wires a controller over in-memory stores and gomock reward
// collaborators. Rolls come from src; nil gives a neutral variance and
// failed flee attempts.
func newHarness(t *testing.T, src dice.Source, policy battle.Policy) *harness {
	t.Helper()
	if src == nil {
		src = &dice.Fixed{Floats: []float64{0.5}}
	}
	ctrl := gomock.NewController(t)
	h := &harness{
		store:   gameserver.NewMemoryStore(),
		rewards: mock.NewMockRewardGenerator(ctrl),
		sink:    mock.NewMockRewardSink(ctrl),
	}
	proc := battle.NewProcessor(flatChart{}, nil, dice.NewLoggedRoller(src, zap.NewNop()), policy, zap.NewNop())
	h.controller = gameserver.NewBattleController(proc, h.store, testTrainers(t), testCatalog(t), h.rewards, h.sink, "hard", zap.NewNop())
	return h
}
