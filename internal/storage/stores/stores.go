// Package stores opens the solution store selected by configuration.
package stores

import (
	"context"
	"fmt"

	"github.com/cory-johannsen/spellduel/internal/config"
	"github.com/cory-johannsen/spellduel/internal/storage"
	"github.com/cory-johannsen/spellduel/internal/storage/postgres"
	"github.com/cory-johannsen/spellduel/internal/storage/sqlite"
)

// Opened is an open store. Store is nil when the driver is "none"; Pool is
// set only for the postgres driver.
type Opened struct {
	Store storage.Store
	Pool  *postgres.Pool
}

// Close releases the store and, for postgres, its pool.
func (o Opened) Close() error {
	var err error
	if o.Store != nil {
		err = o.Store.Close()
	}
	if o.Pool != nil {
		o.Pool.Close()
	}
	return err
}

// Open opens the store named by cfg.Storage.Driver.
//
// Postcondition: Returns Opened{} for "none" or an empty driver.
func Open(ctx context.Context, cfg config.Config) (Opened, error) {
	switch cfg.Storage.Driver {
	case "", "none":
		return Opened{}, nil
	case "memory":
		return Opened{Store: storage.NewMemory()}, nil
	case "sqlite":
		st, err := sqlite.Open(ctx, cfg.Storage.SQLitePath)
		if err != nil {
			return Opened{}, err
		}
		return Opened{Store: st}, nil
	case "postgres":
		pool, err := postgres.NewPool(ctx, cfg.Database)
		if err != nil {
			return Opened{}, err
		}
		return Opened{Store: postgres.NewSolutionRepository(pool.DB()), Pool: pool}, nil
	default:
		return Opened{}, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}
