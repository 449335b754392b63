package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/spellduel/internal/game/duel"
	"github.com/cory-johannsen/spellduel/internal/storage"
)

// SolutionRepository stores solutions in the solutions table.
type SolutionRepository struct {
	db *pgxpool.Pool
}

// NewSolutionRepository creates a SolutionRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewSolutionRepository(db *pgxpool.Pool) *SolutionRepository {
	return &SolutionRepository{db: db}
}

const solutionColumns = `id, scenario_key, difficulty, player_hp, player_mana, boss_hp, boss_damage,
	mana_spent, spells, expanded, created_at`

// Save upserts s on its scenario key.
//
// Postcondition: Returns the stored row. On conflict the original id is kept
// and every other column is replaced.
func (r *SolutionRepository) Save(ctx context.Context, s storage.Solution) (storage.Solution, error) {
	s = storage.Prepare(s, time.Now())
	row := r.db.QueryRow(ctx,
		`INSERT INTO solutions (`+solutionColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 ON CONFLICT (scenario_key) DO UPDATE SET
		   difficulty  = EXCLUDED.difficulty,
		   player_hp   = EXCLUDED.player_hp,
		   player_mana = EXCLUDED.player_mana,
		   boss_hp     = EXCLUDED.boss_hp,
		   boss_damage = EXCLUDED.boss_damage,
		   mana_spent  = EXCLUDED.mana_spent,
		   spells      = EXCLUDED.spells,
		   expanded    = EXCLUDED.expanded,
		   created_at  = EXCLUDED.created_at
		 RETURNING `+solutionColumns,
		s.ID, s.ScenarioKey, s.Difficulty.String(),
		s.Player.HP, s.Player.Mana, s.Boss.HP, s.Boss.Damage,
		s.ManaSpent, s.Spells, s.Expanded, s.CreatedAt,
	)
	out, err := scanSolution(row)
	if err != nil {
		return storage.Solution{}, fmt.Errorf("upserting solution %q: %w", s.ScenarioKey, err)
	}
	return out, nil
}

// Get returns the solution stored under key.
//
// Postcondition: Returns storage.ErrSolutionNotFound when no row matches.
func (r *SolutionRepository) Get(ctx context.Context, key string) (storage.Solution, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+solutionColumns+` FROM solutions WHERE scenario_key = $1`, key)
	s, err := scanSolution(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return storage.Solution{}, storage.ErrSolutionNotFound
		}
		return storage.Solution{}, fmt.Errorf("querying solution %q: %w", key, err)
	}
	return s, nil
}

// List returns up to limit solutions ordered newest first; limit <= 0 means all.
func (r *SolutionRepository) List(ctx context.Context, limit int) ([]storage.Solution, error) {
	query := `SELECT ` + solutionColumns + ` FROM solutions ORDER BY created_at DESC, scenario_key`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing solutions: %w", err)
	}
	defer rows.Close()

	var out []storage.Solution
	for rows.Next() {
		s, err := scanSolution(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning solution: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating solutions: %w", err)
	}
	return out, nil
}

// Close is a no-op; the pool is owned by the caller.
func (r *SolutionRepository) Close() error { return nil }

func scanSolution(row pgx.Row) (storage.Solution, error) {
	var s storage.Solution
	var difficulty string
	err := row.Scan(
		&s.ID, &s.ScenarioKey, &difficulty,
		&s.Player.HP, &s.Player.Mana, &s.Boss.HP, &s.Boss.Damage,
		&s.ManaSpent, &s.Spells, &s.Expanded, &s.CreatedAt,
	)
	if err != nil {
		return storage.Solution{}, err
	}
	if s.Difficulty, err = duel.ParseDifficulty(difficulty); err != nil {
		return storage.Solution{}, err
	}
	s.CreatedAt = s.CreatedAt.UTC()
	return s, nil
}
