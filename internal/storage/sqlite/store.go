// Package sqlite provides a SQLite-backed solution store for single-host use.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/cory-johannsen/spellduel/internal/game/duel"
	"github.com/cory-johannsen/spellduel/internal/storage"
	"github.com/cory-johannsen/spellduel/internal/storage/sqlite/migrations"
)

// spellSeparator joins spell names in the spells column; names never contain it.
const spellSeparator = ","

// Store persists solutions in SQLite.
type Store struct {
	db *sql.DB
}

// Open opens the database at path, creating it if needed, and applies the
// embedded migrations. ":memory:" opens a private in-memory database.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := path
	if path != ":memory:" {
		dsn = filepath.Clean(path)
	}
	dsn += "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// A single connection keeps ":memory:" databases shared across calls.
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(ctx, db, migrations.FS); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

const columns = `id, scenario_key, difficulty, player_hp, player_mana, boss_hp, boss_damage,
	mana_spent, spells, expanded, created_at`

// Save upserts sol on its scenario key, keeping the original id on conflict.
func (s *Store) Save(ctx context.Context, sol storage.Solution) (storage.Solution, error) {
	sol = storage.Prepare(sol, time.Now())
	row := s.db.QueryRowContext(ctx,
		`INSERT INTO solutions (`+columns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (scenario_key) DO UPDATE SET
		   difficulty  = excluded.difficulty,
		   player_hp   = excluded.player_hp,
		   player_mana = excluded.player_mana,
		   boss_hp     = excluded.boss_hp,
		   boss_damage = excluded.boss_damage,
		   mana_spent  = excluded.mana_spent,
		   spells      = excluded.spells,
		   expanded    = excluded.expanded,
		   created_at  = excluded.created_at
		 RETURNING `+columns,
		sol.ID.String(), sol.ScenarioKey, sol.Difficulty.String(),
		sol.Player.HP, sol.Player.Mana, sol.Boss.HP, sol.Boss.Damage,
		sol.ManaSpent, strings.Join(sol.Spells, spellSeparator), sol.Expanded,
		sol.CreatedAt.UnixMilli(),
	)
	out, err := scan(row)
	if err != nil {
		return storage.Solution{}, fmt.Errorf("upsert solution %q: %w", sol.ScenarioKey, err)
	}
	return out, nil
}

// Get returns the solution stored under key, or storage.ErrSolutionNotFound.
func (s *Store) Get(ctx context.Context, key string) (storage.Solution, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+columns+` FROM solutions WHERE scenario_key = ?`, key)
	sol, err := scan(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.Solution{}, storage.ErrSolutionNotFound
		}
		return storage.Solution{}, fmt.Errorf("get solution %q: %w", key, err)
	}
	return sol, nil
}

// List returns up to limit solutions, newest first; limit <= 0 means all.
func (s *Store) List(ctx context.Context, limit int) ([]storage.Solution, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+columns+` FROM solutions ORDER BY created_at DESC, scenario_key LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list solutions: %w", err)
	}
	defer rows.Close()

	var out []storage.Solution
	for rows.Next() {
		sol, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan solution: %w", err)
		}
		out = append(out, sol)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(row scanner) (storage.Solution, error) {
	var sol storage.Solution
	var id, difficulty, spells string
	var createdAt int64
	if err := row.Scan(
		&id, &sol.ScenarioKey, &difficulty,
		&sol.Player.HP, &sol.Player.Mana, &sol.Boss.HP, &sol.Boss.Damage,
		&sol.ManaSpent, &spells, &sol.Expanded, &createdAt,
	); err != nil {
		return storage.Solution{}, err
	}
	var err error
	if sol.ID, err = uuid.Parse(id); err != nil {
		return storage.Solution{}, fmt.Errorf("parse id: %w", err)
	}
	if sol.Difficulty, err = duel.ParseDifficulty(difficulty); err != nil {
		return storage.Solution{}, err
	}
	sol.Spells = []string{}
	if spells != "" {
		sol.Spells = strings.Split(spells, spellSeparator)
	}
	sol.CreatedAt = time.UnixMilli(createdAt).UTC()
	return sol, nil
}
