package postgres_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/monbattle/internal/game/battle"
	"github.com/cory-johannsen/monbattle/internal/game/reward"
	"github.com/cory-johannsen/monbattle/internal/game/trainer"
	"github.com/cory-johannsen/monbattle/internal/storage/postgres"
	"github.com/cory-johannsen/monbattle/internal/testutil"
)

func uniqueID(prefix string) string {
	return fmt.Sprintf("%s_%d", prefix, time.Now().UnixNano())
}

func makeTrainer(id string) *trainer.Trainer {
	return &trainer.Trainer{
		ID:   id,
		Name: "Ash",
		BattleBox: []battle.Monster{
			{ID: id + "-m1", Name: "Pikachu", Level: 12, MaxHP: 40, CurrentHP: 40, Attack: 30, Defense: 20, Types: []string{"Electric"}},
			{ID: id + "-m2", Name: "Bulbasaur", Level: 10, MaxHP: 45, CurrentHP: 45, Attack: 25, Defense: 25, Types: []string{"Grass", "Poison"}},
			{ID: id + "-m3", Name: "Magikarp", Level: 5, MaxHP: 20, CurrentHP: 20},
		},
	}
}

func makeSession(t *testing.T, id, thread string) *battle.Session {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Millisecond)
	s, err := battle.NewSession(battle.Setup{
		ID:   id,
		Mode: battle.ModePvE,
		Parties: []battle.Party{
			makeTrainer("t1").Party("p1", battle.SidePlayers),
			{ID: "o1", Side: battle.SideOpponents, Name: "Wild", Monsters: []battle.Monster{{ID: "w1", Name: "Rattata", Level: 3, MaxHP: 15, CurrentHP: 15}}},
		},
		Environment: battle.Environment{Weather: battle.WeatherRain},
		Difficulty:  "easy",
		ThreadID:    thread,
		Now:         now,
	})
	require.NoError(t, err)
	return s
}

func TestTrainerRepository_CreateAndGet(t *testing.T) {
	repo := postgres.NewTrainerRepository(testutil.NewPool(t))
	ctx := context.Background()
	tr := makeTrainer(uniqueID("trainer"))

	require.NoError(t, repo.Create(ctx, tr))

	got, err := repo.Get(ctx, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, tr.Name, got.Name)
	require.Len(t, got.BattleBox, 3)
	assert.Equal(t, "Pikachu", got.BattleBox[0].Name)
	assert.Equal(t, []string{"Grass", "Poison"}, got.BattleBox[1].Types)
	assert.Empty(t, got.BattleBox[2].Types)

	err = repo.Create(ctx, tr)
	assert.ErrorIs(t, err, battle.ErrValidation)
}

func TestTrainerRepository_BattleBoxMembership(t *testing.T) {
	repo := postgres.NewTrainerRepository(testutil.NewPool(t))
	ctx := context.Background()
	tr := makeTrainer(uniqueID("trainer"))
	require.NoError(t, repo.Create(ctx, tr))

	require.NoError(t, repo.SetInBattleBox(ctx, tr.ID, tr.BattleBox[1].ID, false))
	got, err := repo.Get(ctx, tr.ID)
	require.NoError(t, err)
	require.Len(t, got.BattleBox, 2)
	assert.Equal(t, "Magikarp", got.BattleBox[1].Name)

	err = repo.SetInBattleBox(ctx, tr.ID, "nope", true)
	assert.ErrorIs(t, err, battle.ErrNotFound)
}

func TestTrainerRepository_GetMissing(t *testing.T) {
	repo := postgres.NewTrainerRepository(testutil.NewPool(t))
	_, err := repo.Get(context.Background(), "ghost")
	assert.ErrorIs(t, err, battle.ErrNotFound)
}

func TestBattleRepository_RoundTrip(t *testing.T) {
	repo := postgres.NewBattleRepository(testutil.NewPool(t))
	ctx := context.Background()
	s := makeSession(t, uniqueID("battle"), "")

	require.NoError(t, repo.Create(ctx, s))
	got, err := repo.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, s, got)

	s.Parties[1].Monsters[0].ApplyDamage(15)
	s.Status = battle.StatusWon
	s.Winner = battle.SidePlayers
	s.TurnLog = append(s.TurnLog, battle.TurnRecord{Turn: 1, Kind: battle.IntentAttack, Narration: []string{"Rattata fainted!"}, Events: []battle.Event{{Kind: battle.EventFaint}}})
	s.Turn = 1
	require.NoError(t, repo.Update(ctx, s))

	got, err = repo.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, battle.StatusWon, got.Status)
	assert.True(t, got.Parties[1].Monsters[0].Fainted)
	assert.Len(t, got.TurnLog, 1)

	_, err = repo.Get(ctx, "missing")
	assert.ErrorIs(t, err, battle.ErrNotFound)
	assert.ErrorIs(t, repo.Update(ctx, makeSession(t, "missing", "")), battle.ErrNotFound)
}

func TestBattleRepository_ThreadBinding(t *testing.T) {
	repo := postgres.NewBattleRepository(testutil.NewPool(t))
	ctx := context.Background()
	thread := uniqueID("thread")

	first := makeSession(t, uniqueID("battle"), thread)
	require.NoError(t, repo.Create(ctx, first))

	bound, err := repo.ForThread(ctx, thread)
	require.NoError(t, err)
	assert.Equal(t, first.ID, bound.ID)

	second := makeSession(t, uniqueID("battle"), thread)
	assert.ErrorIs(t, repo.Create(ctx, second), battle.ErrValidation)

	first.Status = battle.StatusAbandoned
	require.NoError(t, repo.Update(ctx, first))
	_, err = repo.ForThread(ctx, thread)
	assert.ErrorIs(t, err, battle.ErrNotFound)

	require.NoError(t, repo.Create(ctx, second))
}

func TestRewardRepository_DeliverIsIdempotent(t *testing.T) {
	repo := postgres.NewRewardRepository(testutil.NewPool(t))
	ctx := context.Background()
	trainerA, trainerB := uniqueID("a"), uniqueID("b")

	g := reward.Grant{
		BattleID:   uniqueID("battle"),
		TrainerIDs: []string{trainerA, trainerB},
		Descriptor: reward.Descriptor{
			Tier: reward.TierHard, Outcome: battle.StatusWon, Coins: 500, Levels: 3,
			Items:    []reward.Item{{InstanceID: "i1", Name: "Lum Berry", Category: "BERRIES", Quantity: 2}},
			Monsters: []reward.MonsterTemplate{},
		},
		GrantedAt: time.Now().UTC(),
	}
	require.NoError(t, repo.Deliver(ctx, g))
	require.NoError(t, repo.Deliver(ctx, g))

	got, err := repo.ForTrainer(ctx, trainerA)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, g.Descriptor, got[0])

	got, err = repo.ForTrainer(ctx, trainerB)
	require.NoError(t, err)
	assert.Len(t, got, 1)

	got, err = repo.ForTrainer(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, got)
}
