package gameserver

import (
	"github.com/cory-johannsen/monbattle/internal/config"
	"github.com/cory-johannsen/monbattle/internal/game/battle"
)

// PolicyFromConfig translates the battle section of the configuration into
// processor rules.
//
// Precondition: cfg has passed config.Config.Validate.
func PolicyFromConfig(cfg config.BattleConfig) battle.Policy {
	p := battle.DefaultPolicy()
	p.FleeChance = cfg.FleeChance
	p.AISpeedBase = cfg.AISpeedBase
	p.AIAccuracy = cfg.AIAccuracy
	if cfg.WinConditionPolicy == config.WinConditionReject {
		p.WinCondition = battle.WinConditionReject
	}
	return p
}
