package battle_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/monbattle/internal/game/battle"
)

func validSetup() battle.Setup {
	return battle.Setup{
		ID:   "b-1",
		Mode: battle.ModePvE,
		Parties: []battle.Party{
			{ID: "p1", Side: battle.SidePlayers, TrainerID: "t1", Name: "Ash", Monsters: roster("p", 2, 30)},
			{ID: "o1", Side: battle.SideOpponents, Name: "Wild", Monsters: roster("o", 3, 30)},
		},
		Now: time.Unix(1700000000, 0).UTC(),
	}
}

func TestNewSession_Valid(t *testing.T) {
	s, err := battle.NewSession(validSetup())
	require.NoError(t, err)
	assert.Equal(t, battle.StatusActive, s.Status)
	assert.Equal(t, 0, s.Turn)
	assert.Empty(t, s.TurnLog)
	assert.Equal(t, 3, s.LargestSideRoster())
	assert.Equal(t, []string{"t1"}, s.TrainerIDs(battle.SidePlayers))
	assert.Empty(t, s.TrainerIDs(battle.SideOpponents))
	assert.True(t, s.Environment.Neutral())
}

func TestNewSession_CopiesParties(t *testing.T) {
	setup := validSetup()
	s, err := battle.NewSession(setup)
	require.NoError(t, err)

	setup.Parties[0].Monsters[0].CurrentHP = 1
	setup.Parties[0].Monsters[0].Types = append(setup.Parties[0].Monsters[0].Types, "Fire")
	assert.Equal(t, 30, s.Parties[0].Monsters[0].CurrentHP)
	assert.Empty(t, s.Parties[0].Monsters[0].Types)
}

func TestNewSession_Normalizes(t *testing.T) {
	setup := validSetup()
	setup.Parties[0].Monsters[0].CurrentHP = 0
	setup.Parties[0].Monsters[1].CurrentHP = 99
	s, err := battle.NewSession(setup)
	require.NoError(t, err)

	p := s.Parties[0]
	assert.True(t, p.Monsters[0].Fainted)
	assert.Equal(t, 30, p.Monsters[1].CurrentHP)
	assert.Equal(t, 1, p.ActiveIndex)
}

func TestNewSession_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*battle.Setup)
		want   error
	}{
		{"empty id", func(s *battle.Setup) { s.ID = "" }, battle.ErrValidation},
		{"unknown mode", func(s *battle.Setup) { s.Mode = "raid" }, battle.ErrValidation},
		{"one party", func(s *battle.Setup) { s.Parties = s.Parties[:1] }, battle.ErrValidation},
		{"pve with three parties", func(s *battle.Setup) {
			s.Parties = append(s.Parties, battle.Party{ID: "o2", Side: battle.SideOpponents, Monsters: roster("x", 1, 10)})
		}, battle.ErrValidation},
		{"negative win condition", func(s *battle.Setup) { s.WinCondition = -1 }, battle.ErrValidation},
		{"duplicate party", func(s *battle.Setup) { s.Parties[1].ID = "p1" }, battle.ErrValidation},
		{"bad side", func(s *battle.Setup) { s.Parties[1].Side = "neutral" }, battle.ErrValidation},
		{"one-sided", func(s *battle.Setup) { s.Parties[1].Side = battle.SidePlayers }, battle.ErrValidation},
		{"empty roster", func(s *battle.Setup) { s.Parties[1].Monsters = nil }, battle.ErrInvalidState},
		{"wiped roster", func(s *battle.Setup) {
			for i := range s.Parties[1].Monsters {
				s.Parties[1].Monsters[i].CurrentHP = 0
			}
		}, battle.ErrInvalidState},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setup := validSetup()
			tt.mutate(&setup)
			_, err := battle.NewSession(setup)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestNewSession_PvPAllowsFourParties(t *testing.T) {
	s := pvpSession(t)
	assert.Len(t, s.SideParties(battle.SidePlayers), 2)
	assert.Equal(t, []string{"t3", "t4"}, s.TrainerIDs(battle.SideOpponents))

	p, err := s.PartyForTrainer("t2")
	require.NoError(t, err)
	assert.Equal(t, "p2", p.ID)

	_, err = s.PartyForTrainer("nobody")
	assert.ErrorIs(t, err, battle.ErrNotFound)
}

func TestSession_CloneIsDeep(t *testing.T) {
	s, err := battle.NewSession(validSetup())
	require.NoError(t, err)
	s.TurnLog = append(s.TurnLog, battle.TurnRecord{Turn: 1, Narration: []string{"hello"}})

	cp := s.Clone()
	cp.Parties[0].Monsters[0].CurrentHP = 1
	cp.TurnLog[0].Narration[0] = "changed"

	assert.Equal(t, 30, s.Parties[0].Monsters[0].CurrentHP)
	assert.Equal(t, "hello", s.TurnLog[0].Narration[0])
}

func TestSession_SideDefeated(t *testing.T) {
	s, err := battle.NewSession(validSetup())
	require.NoError(t, err)
	assert.False(t, s.SideDefeated(battle.SideOpponents))

	s.Parties[1].Monsters[0].ApplyDamage(100)
	assert.False(t, s.SideDefeated(battle.SideOpponents))

	s.WinCondition = 1
	assert.True(t, s.SideDefeated(battle.SideOpponents))
	assert.False(t, s.SideDefeated(battle.SidePlayers))
}

func TestStatus(t *testing.T) {
	assert.False(t, battle.StatusActive.Terminal())
	for _, s := range []battle.Status{battle.StatusWon, battle.StatusLost, battle.StatusDraw, battle.StatusRetreat, battle.StatusAbandoned, battle.StatusForfeited} {
		assert.True(t, s.Terminal(), s)
	}
	assert.True(t, battle.StatusWon.RewardEligible())
	assert.True(t, battle.StatusDraw.RewardEligible())
	assert.True(t, battle.StatusRetreat.RewardEligible())
	assert.False(t, battle.StatusLost.RewardEligible())
	assert.False(t, battle.StatusForfeited.RewardEligible())
	assert.False(t, battle.StatusAbandoned.RewardEligible())
}

func TestIntent_Validate(t *testing.T) {
	bad := []battle.Intent{
		battle.Attack{},
		battle.Attack{PartyID: "p1", TargetPartyID: "p1"},
		battle.Attack{PartyID: "p1", Signal: &battle.PerformanceSignal{Accuracy: 150}},
		battle.UseItem{PartyID: "p1"},
		battle.UseItem{PartyID: "p1", TargetIndex: -1, Item: battle.Item{Name: "Potion"}},
		battle.UseItem{PartyID: "p1", Item: battle.Item{Name: "Potion", HealPercent: 2}},
		battle.Switch{PartyID: "p1", ToIndex: -1},
		battle.Flee{},
		battle.Forfeit{},
		battle.Override{Op: "explode"},
		battle.Override{Op: battle.OverrideSetWeather},
		battle.Override{Op: battle.OverrideSetTerrain},
	}
	for _, in := range bad {
		assert.ErrorIs(t, in.Validate(), battle.ErrValidation, "%#v", in)
	}
	assert.NoError(t, battle.Switch{PartyID: "p1", ToIndex: -1, Withdraw: true}.Validate())
	assert.Equal(t, "mod", battle.Override{ModeratorID: "mod"}.Actor())
}
