// Package gameserver owns the battle session lifecycle: it loads rosters,
// persists sessions, serializes turns per battle and hands rewards to the sink.
package gameserver

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/cory-johannsen/monbattle/internal/game/battle"
	"github.com/cory-johannsen/monbattle/internal/game/reward"
)

// StartRequest describes a battle to create.
type StartRequest struct {
	Mode battle.Mode
	// TrainerIDs fight for the players side, one party each.
	TrainerIDs []string
	// OpponentTrainerIDs fight for the opponents side in PvP.
	OpponentTrainerIDs []string
	// OpponentTemplateID names the catalog template fought in PvE.
	OpponentTemplateID string
	// Environment overrides the template's weather and terrain when set.
	Environment *battle.Environment
	// WinCondition is a knockout count; 0 means a full wipe is required.
	WinCondition int
	ThreadID     string
}

// TurnResult is what one processed turn returns to the caller.
type TurnResult struct {
	Session   *battle.Session
	Narration []string
	// Result is set only on the turn that ended the battle.
	Result *battle.Result
	// Reward is set when that ending was reward-eligible.
	Reward *reward.Descriptor
}

// BattleController is the only component that reads or writes persisted
// battle state.
//
// Precondition: All collaborators must be non-nil after construction.
type BattleController struct {
	processor     *battle.Processor
	sessions      SessionStore
	trainers      TrainerStore
	opponents     OpponentCatalog
	rewards       RewardGenerator
	sink          RewardSink
	pvpDifficulty string
	logger        *zap.Logger
	locks         *keyedMutex
	now           func() time.Time
}

// NewBattleController creates a BattleController.
//
// Precondition: processor, sessions, trainers, opponents, rewards and sink must
// be non-nil; pvpDifficulty is the reward tier used for PvP battles.
// Postcondition: Returns a non-nil BattleController.
func NewBattleController(
	processor *battle.Processor,
	sessions SessionStore,
	trainers TrainerStore,
	opponents OpponentCatalog,
	rewards RewardGenerator,
	sink RewardSink,
	pvpDifficulty string,
	logger *zap.Logger,
) *BattleController {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BattleController{
		processor:     processor,
		sessions:      sessions,
		trainers:      trainers,
		opponents:     opponents,
		rewards:       rewards,
		sink:          sink,
		pvpDifficulty: pvpDifficulty,
		logger:        logger,
		locks:         newKeyedMutex(),
		now:           func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
	}
}

// StartBattle loads every party, builds an active session and persists it.
//
// Postcondition: Returns the new session, or an error wrapping
// battle.ErrNotFound (trainer or template absent), battle.ErrInvalidState
// (empty roster) or battle.ErrValidation (bad request or busy thread).
func (c *BattleController) StartBattle(ctx context.Context, req StartRequest) (*battle.Session, error) {
	if err := validateStart(req); err != nil {
		return nil, err
	}
	if req.ThreadID != "" {
		if existing, err := c.sessions.ForThread(ctx, req.ThreadID); err == nil {
			return nil, battle.Validationf("thread %q already has battle %s in progress", req.ThreadID, existing.ID)
		}
	}

	parties, err := c.loadTrainerParties(ctx, req)
	if err != nil {
		return nil, err
	}

	var env battle.Environment
	difficulty := c.pvpDifficulty
	if req.Mode == battle.ModePvE {
		tmpl, err := c.opponents.Template(req.OpponentTemplateID)
		if err != nil {
			return nil, err
		}
		parties = append(parties, tmpl.Party("o1"))
		difficulty = string(tmpl.Tier())
		if env, err = c.parseEnvironment(tmpl.Weather, tmpl.Terrain); err != nil {
			return nil, fmt.Errorf("opponent template %q: %w", tmpl.ID, err)
		}
	}
	if req.Environment != nil {
		if env, err = c.parseEnvironment(string(req.Environment.Weather), string(req.Environment.Terrain)); err != nil {
			return nil, err
		}
	}

	winCondition := 0
	if req.WinCondition != 0 {
		if winCondition, err = c.processor.Policy().ResolveWinCondition(req.WinCondition, largestRoster(parties)); err != nil {
			return nil, err
		}
	}

	sess, err := battle.NewSession(battle.Setup{
		ID:           uuid.NewString(),
		Mode:         req.Mode,
		Parties:      parties,
		Environment:  env,
		WinCondition: winCondition,
		Difficulty:   difficulty,
		ThreadID:     req.ThreadID,
		Now:          c.now(),
	})
	if err != nil {
		return nil, err
	}
	if err := c.sessions.Create(ctx, sess); err != nil {
		return nil, err
	}

	c.logger.Info("battle started",
		zap.String("battle_id", sess.ID),
		zap.String("mode", string(sess.Mode)),
		zap.Int("parties", len(sess.Parties)),
		zap.String("difficulty", sess.Difficulty),
		zap.String("thread_id", sess.ThreadID),
		zap.Int("win_condition", sess.WinCondition),
	)
	return sess, nil
}

func validateStart(req StartRequest) error {
	switch req.Mode {
	case battle.ModePvE:
		if len(req.TrainerIDs) != 1 {
			return battle.Validationf("a PvE battle needs exactly one trainer, got %d", len(req.TrainerIDs))
		}
		if req.OpponentTemplateID == "" {
			return battle.Validationf("a PvE battle needs an opponent template")
		}
		if len(req.OpponentTrainerIDs) > 0 {
			return battle.Validationf("a PvE battle cannot include opponent trainers")
		}
	case battle.ModePvP:
		if len(req.TrainerIDs) == 0 || len(req.OpponentTrainerIDs) == 0 {
			return battle.Validationf("a PvP battle needs trainers on both sides")
		}
		if n := len(req.TrainerIDs) + len(req.OpponentTrainerIDs); n > battle.MaxParties {
			return battle.Validationf("a battle holds at most %d parties, got %d", battle.MaxParties, n)
		}
	default:
		return battle.Validationf("unknown battle mode %q", req.Mode)
	}
	seen := make(map[string]bool)
	for _, id := range append(append([]string(nil), req.TrainerIDs...), req.OpponentTrainerIDs...) {
		if id == "" {
			return battle.Validationf("trainer id must not be empty")
		}
		if seen[id] {
			return battle.Validationf("trainer %q cannot join a battle twice", id)
		}
		seen[id] = true
	}
	return nil
}

// loadTrainerParties fetches every trainer concurrently and builds their
// parties in request order: players p1..pN, then opponents o1..oM.
func (c *BattleController) loadTrainerParties(ctx context.Context, req StartRequest) ([]battle.Party, error) {
	type slot struct {
		trainerID string
		partyID   string
		side      battle.Side
	}
	var slots []slot
	for i, id := range req.TrainerIDs {
		slots = append(slots, slot{id, fmt.Sprintf("p%d", i+1), battle.SidePlayers})
	}
	for i, id := range req.OpponentTrainerIDs {
		slots = append(slots, slot{id, fmt.Sprintf("o%d", i+1), battle.SideOpponents})
	}

	parties := make([]battle.Party, len(slots))
	g, gctx := errgroup.WithContext(ctx)
	for i, s := range slots {
		g.Go(func() error {
			t, err := c.trainers.Get(gctx, s.trainerID)
			if err != nil {
				return err
			}
			parties[i] = t.Party(s.partyID, s.side)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return parties, nil
}

func (c *BattleController) parseEnvironment(weather, terrain string) (battle.Environment, error) {
	table := c.processor.Environment()
	w, err := table.ParseWeather(weather)
	if err != nil {
		return battle.Environment{}, err
	}
	t, err := table.ParseTerrain(terrain)
	if err != nil {
		return battle.Environment{}, err
	}
	return battle.Environment{Weather: w, Terrain: t}, nil
}

func largestRoster(parties []battle.Party) int {
	sizes := map[battle.Side]int{}
	for _, p := range parties {
		sizes[p.Side] += len(p.Monsters)
	}
	return max(sizes[battle.SidePlayers], sizes[battle.SideOpponents])
}

// ProcessTurn applies one intent to the battle under its exclusive lock and
// persists the result. A reward-eligible ending generates exactly one reward,
// which is delivered after the lock is released.
//
// Postcondition: On a processor, lookup or reward generation error the stored
// session is unchanged. A sink failure is returned wrapped alongside a complete
// TurnResult; the terminal session stays persisted.
func (c *BattleController) ProcessTurn(ctx context.Context, battleID string, in battle.Intent) (TurnResult, error) {
	res, grant, err := c.processLocked(ctx, battleID, in)
	if err != nil || grant == nil {
		return res, err
	}
	if err := c.sink.Deliver(ctx, *grant); err != nil {
		c.logger.Error("delivering reward",
			zap.String("battle_id", battleID),
			zap.Strings("trainer_ids", grant.TrainerIDs),
			zap.Error(err),
		)
		return res, fmt.Errorf("delivering reward for battle %s: %w", battleID, err)
	}
	return res, nil
}

func (c *BattleController) processLocked(ctx context.Context, battleID string, in battle.Intent) (TurnResult, *reward.Grant, error) {
	unlock := c.locks.Lock(battleID)
	defer unlock()

	sess, err := c.sessions.Get(ctx, battleID)
	if err != nil {
		return TurnResult{}, nil, err
	}
	out, err := c.processor.Process(sess, in)
	if err != nil {
		return TurnResult{}, nil, err
	}
	out.Session.UpdatedAt = c.now()

	// The reward is generated before the ending is saved so a generator
	// failure leaves the battle active and the turn can be retried.
	var grant *reward.Grant
	if out.Result != nil && out.Result.Status.RewardEligible() {
		desc, err := c.rewards.Generate(out.Session.Difficulty, out.Result.Status)
		if err != nil {
			c.logger.Error("generating reward",
				zap.String("battle_id", battleID),
				zap.String("status", string(out.Result.Status)),
				zap.Error(err),
			)
			return TurnResult{}, nil, fmt.Errorf("generating reward for battle %s: %w", battleID, err)
		}
		grant = &reward.Grant{
			BattleID:   battleID,
			TrainerIDs: rewardRecipients(out.Session, out.Result.Status),
			Descriptor: desc,
			GrantedAt:  out.Session.UpdatedAt,
		}
	}

	if err := c.sessions.Update(ctx, out.Session); err != nil {
		return TurnResult{}, nil, fmt.Errorf("saving battle %s: %w", battleID, err)
	}
	res := TurnResult{Session: out.Session, Narration: out.Narration, Result: out.Result}
	if grant != nil {
		res.Reward = &grant.Descriptor
	}
	return res, grant, nil
}

// rewardRecipients returns the trainers a reward-eligible outcome pays:
// players on a win or retreat, everyone on a draw.
func rewardRecipients(sess *battle.Session, status battle.Status) []string {
	ids := sess.TrainerIDs(battle.SidePlayers)
	if status == battle.StatusDraw {
		ids = append(ids, sess.TrainerIDs(battle.SideOpponents)...)
	}
	return ids
}

// AbandonBattle marks the battle abandoned. It is a no-op on a battle that has
// already ended.
//
// Postcondition: Returns the stored session or an error wrapping battle.ErrNotFound.
func (c *BattleController) AbandonBattle(ctx context.Context, battleID string) (*battle.Session, error) {
	unlock := c.locks.Lock(battleID)
	defer unlock()

	sess, err := c.sessions.Get(ctx, battleID)
	if err != nil {
		return nil, err
	}
	out, err := c.processor.Abandon(sess, "The battle was abandoned.")
	if err != nil {
		return nil, err
	}
	if out.Result == nil {
		return out.Session, nil
	}
	out.Session.UpdatedAt = c.now()
	if err := c.sessions.Update(ctx, out.Session); err != nil {
		return nil, fmt.Errorf("saving battle %s: %w", battleID, err)
	}
	c.logger.Info("battle abandoned", zap.String("battle_id", battleID), zap.Int("turn", out.Session.Turn))
	return out.Session, nil
}

// Battle returns the stored session.
func (c *BattleController) Battle(ctx context.Context, battleID string) (*battle.Session, error) {
	return c.sessions.Get(ctx, battleID)
}

// BattleForThread returns the active battle bound to threadID.
func (c *BattleController) BattleForThread(ctx context.Context, threadID string) (*battle.Session, error) {
	return c.sessions.ForThread(ctx, threadID)
}

// keyedMutex hands out one mutex per key and forgets it once nobody holds or
// waits on it.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*refMutex)}
}

// Lock blocks until key is exclusively held and returns the matching unlock.
func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &refMutex{}
		k.locks[key] = m
	}
	m.refs++
	k.mu.Unlock()

	m.Lock()
	return func() {
		m.Unlock()
		k.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
