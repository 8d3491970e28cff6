package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/monbattle/internal/game/battle"
	"github.com/cory-johannsen/monbattle/internal/game/trainer"
)

// TrainerRepository provides trainer and battle box persistence.
type TrainerRepository struct {
	db *pgxpool.Pool
}

// NewTrainerRepository creates a TrainerRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewTrainerRepository(db *pgxpool.Pool) *TrainerRepository {
	return &TrainerRepository{db: db}
}

// Create inserts a trainer and their battle box in one transaction.
//
// Precondition: t must pass Validate.
// Postcondition: Returns nil on success; an error wrapping battle.ErrValidation
// if the trainer or a monster id already exists.
func (r *TrainerRepository) Create(ctx context.Context, t *trainer.Trainer) error {
	if err := t.Validate(); err != nil {
		return battle.Validationf("%v", err)
	}
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`INSERT INTO trainers (id, name) VALUES ($1, $2)`,
			t.ID, t.Name,
		); err != nil {
			return err
		}
		for slot, m := range t.BattleBox {
			if _, err := tx.Exec(ctx, `
				INSERT INTO trainer_monsters
					(id, trainer_id, slot, name, level, max_hp, current_hp, attack, defense, types)
				VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
				m.ID, t.ID, slot, m.Name, m.Level, m.MaxHP, m.CurrentHP, m.Attack, m.Defense, typesOrEmpty(m.Types),
			); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if _, dup := uniqueViolation(err); dup {
			return battle.Validationf("trainer %q or one of its monsters already exists", t.ID)
		}
		return fmt.Errorf("inserting trainer: %w", err)
	}
	return nil
}

// Get loads a trainer and the monsters currently in their battle box, in slot order.
//
// Postcondition: Returns the Trainer or an error wrapping battle.ErrNotFound.
func (r *TrainerRepository) Get(ctx context.Context, id string) (*trainer.Trainer, error) {
	t := trainer.Trainer{ID: id}
	err := r.db.QueryRow(ctx, `SELECT name FROM trainers WHERE id = $1`, id).Scan(&t.Name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, battle.NotFoundf("trainer %q", id)
		}
		return nil, fmt.Errorf("querying trainer: %w", err)
	}

	rows, err := r.db.Query(ctx, `
		SELECT id, name, level, max_hp, current_hp, attack, defense, types
		FROM trainer_monsters
		WHERE trainer_id = $1 AND in_battle_box
		ORDER BY slot ASC`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("listing battle box: %w", err)
	}
	defer rows.Close()

	t.BattleBox = make([]battle.Monster, 0)
	for rows.Next() {
		var m battle.Monster
		if err := rows.Scan(&m.ID, &m.Name, &m.Level, &m.MaxHP, &m.CurrentHP, &m.Attack, &m.Defense, &m.Types); err != nil {
			return nil, fmt.Errorf("scanning battle box row: %w", err)
		}
		t.BattleBox = append(t.BattleBox, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading battle box: %w", err)
	}
	return &t, nil
}

// SetInBattleBox moves a monster in or out of its trainer's battle box.
//
// Postcondition: Returns nil on success or an error wrapping battle.ErrNotFound
// if the trainer owns no such monster.
func (r *TrainerRepository) SetInBattleBox(ctx context.Context, trainerID, monsterID string, in bool) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE trainer_monsters SET in_battle_box = $3
		WHERE trainer_id = $1 AND id = $2`,
		trainerID, monsterID, in,
	)
	if err != nil {
		return fmt.Errorf("updating battle box: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return battle.NotFoundf("trainer %q has no monster %q", trainerID, monsterID)
	}
	return nil
}

func typesOrEmpty(types []string) []string {
	if types == nil {
		return []string{}
	}
	return types
}
