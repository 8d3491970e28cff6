package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/monbattle/internal/game/reward"
)

// RewardRepository records reward grants for the inventory service to apply.
type RewardRepository struct {
	db *pgxpool.Pool
}

// NewRewardRepository creates a RewardRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewRewardRepository(db *pgxpool.Pool) *RewardRepository {
	return &RewardRepository{db: db}
}

// Deliver writes one row per trainer in the grant inside a single transaction.
// Delivering the same battle to the same trainer twice is a no-op.
//
// Postcondition: Either every trainer's row is recorded or none is.
func (r *RewardRepository) Deliver(ctx context.Context, g reward.Grant) error {
	descriptor, err := json.Marshal(g.Descriptor)
	if err != nil {
		return fmt.Errorf("encoding reward descriptor: %w", err)
	}
	err = pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		for _, trainerID := range g.TrainerIDs {
			if _, err := tx.Exec(ctx, `
				INSERT INTO battle_rewards (battle_id, trainer_id, outcome, coins, levels, descriptor, granted_at)
				VALUES ($1,$2,$3,$4,$5,$6,$7)
				ON CONFLICT (battle_id, trainer_id) DO NOTHING`,
				g.BattleID, trainerID, string(g.Descriptor.Outcome), g.Descriptor.Coins, g.Descriptor.Levels, descriptor, g.GrantedAt,
			); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("recording rewards for battle %s: %w", g.BattleID, err)
	}
	return nil
}

// ForTrainer returns every descriptor recorded for trainerID, oldest first.
//
// Postcondition: Returns a slice (may be empty) or a non-nil error.
func (r *RewardRepository) ForTrainer(ctx context.Context, trainerID string) ([]reward.Descriptor, error) {
	rows, err := r.db.Query(ctx, `
		SELECT descriptor FROM battle_rewards
		WHERE trainer_id = $1 ORDER BY granted_at ASC, id ASC`,
		trainerID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing rewards: %w", err)
	}
	defer rows.Close()

	out := make([]reward.Descriptor, 0)
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scanning reward row: %w", err)
		}
		var d reward.Descriptor
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, fmt.Errorf("decoding reward descriptor: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
