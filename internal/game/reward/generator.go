package reward

import (
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cory-johannsen/monbattle/internal/game/battle"
	"github.com/cory-johannsen/monbattle/internal/game/dice"
)

// MonsterTemplateName is the name given to every rewarded monster template.
const MonsterTemplateName = "Battle Reward Monster"

// Item is one rewarded item stack.
type Item struct {
	InstanceID string `json:"instance_id"`
	Name       string `json:"name"`
	Category   string `json:"category"`
	Quantity   int    `json:"quantity"`
}

// MonsterTemplate describes a monster the inventory sink should create.
type MonsterTemplate struct {
	Name      string `json:"name"`
	Level     int    `json:"level"`
	IsSpecial bool   `json:"is_special"`
	IsStatic  bool   `json:"is_static"`
}

// Descriptor is what one battle outcome earns. It is a value: the generator
// builds a fresh one per terminal transition and nothing mutates it afterwards.
type Descriptor struct {
	Tier     Tier              `json:"tier"`
	Outcome  battle.Status     `json:"outcome"`
	Coins    int               `json:"coins"`
	Levels   int               `json:"levels"`
	Items    []Item            `json:"items"`
	Monsters []MonsterTemplate `json:"monsters"`
	// Partial is set for draw and retreat outcomes.
	Partial bool `json:"partial"`
}

// Empty reports whether the descriptor grants nothing.
func (d Descriptor) Empty() bool {
	return d.Coins == 0 && d.Levels == 0 && len(d.Items) == 0 && len(d.Monsters) == 0
}

// Grant is a descriptor addressed to the trainers who earned it.
type Grant struct {
	BattleID   string     `json:"battle_id"`
	TrainerIDs []string   `json:"trainer_ids"`
	Descriptor Descriptor `json:"descriptor"`
	GrantedAt  time.Time  `json:"granted_at"`
}

// Generator rolls rewards from a Table. It has no side effects beyond logging.
type Generator struct {
	table       *Table
	roller      *dice.Roller
	partialRate float64
	logger      *zap.Logger
}

// NewGenerator creates a Generator.
//
// Precondition: table must have passed Validate; roller must be non-nil;
// partialRate must be in [0, 1].
func NewGenerator(table *Table, roller *dice.Roller, partialRate float64, logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if table == nil {
		table = DefaultTable()
	}
	return &Generator{table: table, roller: roller, partialRate: partialRate, logger: logger}
}

// Generate produces the rewards for a battle that ended with outcome.
//
// Precondition: outcome is a terminal status.
// Postcondition: won yields the full tier rewards with item and monster rolls;
// draw and retreat yield coins and levels scaled by the partial rate, rounded
// down, with no rolls. Any other outcome returns an error wrapping
// battle.ErrInvalidState. An unknown tier is treated as normal.
func (g *Generator) Generate(tier string, outcome battle.Status) (Descriptor, error) {
	if !outcome.RewardEligible() {
		return Descriptor{}, battle.InvalidStatef("outcome %q earns no rewards", outcome)
	}
	t, known := ParseTier(tier)
	if !known && tier != "" {
		g.logger.Warn("unknown reward tier; using normal", zap.String("tier", tier))
	}
	r := g.table.Tiers[t]

	d := Descriptor{
		Tier:     t,
		Outcome:  outcome,
		Items:    []Item{},
		Monsters: []MonsterTemplate{},
	}
	if outcome != battle.StatusWon {
		d.Partial = true
		d.Coins = int(math.Floor(float64(r.Coins) * g.partialRate))
		d.Levels = int(math.Floor(float64(r.Levels) * g.partialRate))
		return d, nil
	}

	d.Coins = r.Coins
	d.Levels = r.Levels
	if len(r.Items) > 0 && g.roller.Chance("reward item", r.ItemChance) {
		item, err := g.rollItem(r.Items[g.roller.Pick("reward item pool", len(r.Items))])
		if err != nil {
			return Descriptor{}, err
		}
		d.Items = append(d.Items, item)
	}
	if g.roller.Chance("reward monster", r.MonsterChance) {
		d.Monsters = append(d.Monsters, MonsterTemplate{
			Name:      MonsterTemplateName,
			Level:     r.MonsterLevel,
			IsSpecial: t == TierElite,
		})
	}
	return d, nil
}

func (g *Generator) rollItem(drop ItemDrop) (Item, error) {
	res, err := g.roller.RollExpr(drop.Quantity)
	if err != nil {
		return Item{}, battle.Validationf("reward item %q: %v", drop.Name, err)
	}
	return Item{
		InstanceID: uuid.New().String(),
		Name:       drop.Name,
		Category:   drop.Category,
		Quantity:   max(1, res.Total()),
	}, nil
}
