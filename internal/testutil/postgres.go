// Package testutil starts throwaway PostgreSQL containers for storage tests.
package testutil

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/cory-johannsen/spellduel/internal/config"
	"github.com/cory-johannsen/spellduel/internal/storage/postgres"
)

const (
	pgImage    = "postgres:16-alpine"
	pgUser     = "duel"
	pgPassword = "duel"
	pgDatabase = "duel_test"
)

// PostgresContainer is a running database plus a pool connected to it.
type PostgresContainer struct {
	Pool   *postgres.Pool
	Config config.DatabaseConfig
}

// NewPostgresContainer starts PostgreSQL and connects a Pool. Both are torn
// down by t.Cleanup.
//
// Postcondition: The test is skipped when no container provider is available
// and failed on any other startup error.
func NewPostgresContainer(t *testing.T) *PostgresContainer {
	t.Helper()
	testcontainers.SkipIfProviderIsNotHealthy(t)
	ctx := context.Background()
	start := time.Now()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        pgImage,
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     pgUser,
				"POSTGRES_PASSWORD": pgPassword,
				"POSTGRES_DB":       pgDatabase,
			},
			// The server logs readiness twice: once for the init run, once for real.
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("starting %s: %v", pgImage, err)
	}
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("container port: %v", err)
	}

	cfg := config.DatabaseConfig{
		Host:     host,
		Port:     port.Int(),
		User:     pgUser,
		Password: pgPassword,
		Name:     pgDatabase,
		SSLMode:  "disable",
		MaxConns: 4,
		MinConns: 1,
	}
	pool, err := postgres.NewPool(ctx, cfg)
	if err != nil {
		t.Fatalf("connecting to %s: %v", pgImage, err)
	}
	t.Cleanup(pool.Close)

	t.Logf("postgres ready at %s:%d [%s]", host, cfg.Port, time.Since(start))
	return &PostgresContainer{Pool: pool, Config: cfg}
}

// ApplyMigrations brings the schema to the latest version with golang-migrate,
// reading the same migrations directory cmd/migrate does.
func (pc *PostgresContainer) ApplyMigrations(t *testing.T) {
	t.Helper()
	m, err := migrate.New("file://"+MigrationsDir(t), pc.Config.DSN())
	if err != nil {
		t.Fatalf("creating migrator: %v", err)
	}
	defer m.Close()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		t.Fatalf("applying migrations: %v", err)
	}
}

// NewPool starts a migrated container and returns its pgx pool.
func NewPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	pc := NewPostgresContainer(t)
	pc.ApplyMigrations(t)
	return pc.Pool.DB()
}

// MigrationsDir returns <module root>/migrations, found by walking up from
// the working directory to go.mod.
func MigrationsDir(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	for dir := wd; ; dir = filepath.Dir(dir) {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return filepath.Join(dir, "migrations")
		}
		if filepath.Dir(dir) == dir {
			t.Fatalf("no go.mod above %s", wd)
		}
	}
}
