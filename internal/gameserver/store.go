package gameserver

//go:generate mockgen -destination=mock/mock_rewards.go -package=mock github.com/cory-johannsen/monbattle/internal/gameserver RewardGenerator,RewardSink

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/cory-johannsen/monbattle/internal/game/battle"
	"github.com/cory-johannsen/monbattle/internal/game/opponent"
	"github.com/cory-johannsen/monbattle/internal/game/reward"
	"github.com/cory-johannsen/monbattle/internal/game/trainer"
)

// SessionStore persists battle sessions and the thread → battle index.
//
// Implementations: MemoryStore, postgres.BattleRepository, redis.SessionStore.
type SessionStore interface {
	// Create stores a new session. A thread already bound to an active
	// battle yields an error wrapping battle.ErrValidation.
	Create(ctx context.Context, s *battle.Session) error
	// Get returns the session or an error wrapping battle.ErrNotFound.
	Get(ctx context.Context, id string) (*battle.Session, error)
	// Update overwrites the stored snapshot.
	Update(ctx context.Context, s *battle.Session) error
	// ForThread returns the active battle bound to threadID or an error
	// wrapping battle.ErrNotFound.
	ForThread(ctx context.Context, threadID string) (*battle.Session, error)
}

// TrainerStore reads trainer rosters.
type TrainerStore interface {
	Get(ctx context.Context, id string) (*trainer.Trainer, error)
}

// OpponentCatalog resolves PvE opponent templates.
type OpponentCatalog interface {
	Template(id string) (*opponent.Template, error)
}

// RewardGenerator produces a reward descriptor for a terminal outcome.
type RewardGenerator interface {
	Generate(tier string, outcome battle.Status) (reward.Descriptor, error)
}

// RewardSink hands a grant to whatever applies it to inventories.
type RewardSink interface {
	Deliver(ctx context.Context, g reward.Grant) error
}

// MemoryStore is an in-process SessionStore. Sessions are cloned on the way
// in and out so callers never share state with the store.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*battle.Session
	threads  map[string]string
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*battle.Session),
		threads:  make(map[string]string),
	}
}

// Create implements SessionStore.
func (m *MemoryStore) Create(_ context.Context, s *battle.Session) error {
	if s == nil {
		return errors.New("session cannot be nil")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sessions[s.ID]; exists {
		return battle.Validationf("battle %s already exists", s.ID)
	}
	if s.ThreadID != "" {
		if id, bound := m.threads[s.ThreadID]; bound && !m.sessions[id].Status.Terminal() {
			return battle.Validationf("thread %q already has an active battle", s.ThreadID)
		}
		m.threads[s.ThreadID] = s.ID
	}
	m.sessions[s.ID] = s.Clone()
	return nil
}

// Get implements SessionStore.
func (m *MemoryStore) Get(_ context.Context, id string) (*battle.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, battle.NotFoundf("battle %s", id)
	}
	return s.Clone(), nil
}

// Update implements SessionStore.
func (m *MemoryStore) Update(_ context.Context, s *battle.Session) error {
	if s == nil {
		return errors.New("session cannot be nil")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[s.ID]; !ok {
		return battle.NotFoundf("battle %s", s.ID)
	}
	m.sessions[s.ID] = s.Clone()
	if s.Status.Terminal() && s.ThreadID != "" && m.threads[s.ThreadID] == s.ID {
		delete(m.threads, s.ThreadID)
	}
	return nil
}

// ForThread implements SessionStore.
func (m *MemoryStore) ForThread(_ context.Context, threadID string) (*battle.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.threads[threadID]
	if !ok || m.sessions[id].Status.Terminal() {
		return nil, battle.NotFoundf("no active battle in thread %q", threadID)
	}
	return m.sessions[id].Clone(), nil
}

// MemoryTrainers is a TrainerStore over a fixed set of trainers, used by the
// simulator and tests.
type MemoryTrainers struct {
	mu       sync.RWMutex
	trainers map[string]*trainer.Trainer
}

// NewMemoryTrainers validates and indexes the given trainers.
//
// Postcondition: Returns a store or the first validation error.
func NewMemoryTrainers(trainers ...*trainer.Trainer) (*MemoryTrainers, error) {
	m := &MemoryTrainers{trainers: make(map[string]*trainer.Trainer, len(trainers))}
	for _, t := range trainers {
		if err := m.Put(t); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Put adds or replaces a trainer.
func (m *MemoryTrainers) Put(t *trainer.Trainer) error {
	if err := t.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trainers[t.ID] = t
	return nil
}

// Get implements TrainerStore.
func (m *MemoryTrainers) Get(_ context.Context, id string) (*trainer.Trainer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.trainers[id]
	if !ok {
		return nil, battle.NotFoundf("trainer %q", id)
	}
	return t, nil
}

// LogSink is a RewardSink that only logs grants. It stands in for the
// inventory service when no database is configured.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink creates a LogSink.
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger}
}

// Deliver implements RewardSink.
func (s *LogSink) Deliver(_ context.Context, g reward.Grant) error {
	s.logger.Info("reward granted",
		zap.String("battle_id", g.BattleID),
		zap.Strings("trainer_ids", g.TrainerIDs),
		zap.String("tier", string(g.Descriptor.Tier)),
		zap.String("outcome", string(g.Descriptor.Outcome)),
		zap.Int("coins", g.Descriptor.Coins),
		zap.Int("levels", g.Descriptor.Levels),
		zap.Int("items", len(g.Descriptor.Items)),
		zap.Int("monsters", len(g.Descriptor.Monsters)),
	)
	return nil
}
