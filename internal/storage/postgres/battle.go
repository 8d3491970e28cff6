package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/monbattle/internal/game/battle"
)

const activeThreadIndex = "battles_active_thread"

// BattleRepository persists battle sessions as JSONB snapshots. A partial
// unique index binds each thread to at most one active battle.
type BattleRepository struct {
	db *pgxpool.Pool
}

// NewBattleRepository creates a BattleRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewBattleRepository(db *pgxpool.Pool) *BattleRepository {
	return &BattleRepository{db: db}
}

// Create inserts a new session.
//
// Postcondition: Returns nil on success; an error wrapping battle.ErrValidation
// when the id exists or the thread already has an active battle.
func (r *BattleRepository) Create(ctx context.Context, s *battle.Session) error {
	state, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encoding battle %s: %w", s.ID, err)
	}
	_, err = r.db.Exec(ctx, `
		INSERT INTO battles (id, thread_id, status, state, created_at, updated_at)
		VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6)`,
		s.ID, s.ThreadID, string(s.Status), state, s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		if constraint, dup := uniqueViolation(err); dup {
			if constraint == activeThreadIndex {
				return battle.Validationf("thread %q already has an active battle", s.ThreadID)
			}
			return battle.Validationf("battle %s already exists", s.ID)
		}
		return fmt.Errorf("inserting battle: %w", err)
	}
	return nil
}

// Get loads a session by id.
//
// Postcondition: Returns the Session or an error wrapping battle.ErrNotFound.
func (r *BattleRepository) Get(ctx context.Context, id string) (*battle.Session, error) {
	return r.scanOne(ctx, `SELECT state FROM battles WHERE id = $1`, id)
}

// ForThread returns the active battle bound to threadID.
//
// Postcondition: Returns the Session or an error wrapping battle.ErrNotFound.
func (r *BattleRepository) ForThread(ctx context.Context, threadID string) (*battle.Session, error) {
	return r.scanOne(ctx, `SELECT state FROM battles WHERE thread_id = $1 AND status = 'active'`, threadID)
}

// Update overwrites the stored snapshot of s. A terminal status releases the
// thread binding through the partial index.
//
// Postcondition: Returns nil on success or an error wrapping battle.ErrNotFound.
func (r *BattleRepository) Update(ctx context.Context, s *battle.Session) error {
	state, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encoding battle %s: %w", s.ID, err)
	}
	tag, err := r.db.Exec(ctx, `
		UPDATE battles SET status = $2, state = $3, updated_at = $4
		WHERE id = $1`,
		s.ID, string(s.Status), state, s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("updating battle: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return battle.NotFoundf("battle %s", s.ID)
	}
	return nil
}

func (r *BattleRepository) scanOne(ctx context.Context, query string, arg string) (*battle.Session, error) {
	var state []byte
	if err := r.db.QueryRow(ctx, query, arg).Scan(&state); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, battle.NotFoundf("battle for %q", arg)
		}
		return nil, fmt.Errorf("querying battle: %w", err)
	}
	var s battle.Session
	if err := json.Unmarshal(state, &s); err != nil {
		return nil, fmt.Errorf("decoding battle state: %w", err)
	}
	return &s, nil
}
