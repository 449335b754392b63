package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/cory-johannsen/spellduel/internal/config"
	"github.com/cory-johannsen/spellduel/internal/storage/postgres"
	"github.com/cory-johannsen/spellduel/internal/testutil"
)

func TestPool_HealthAndWatch(t *testing.T) {
	if testing.Short() {
		t.Skip("container-backed test skipped in short mode")
	}
	pc := testutil.NewPostgresContainer(t)
	require.NoError(t, pc.Pool.Health(context.Background(), time.Second))

	ctx, cancel := context.WithCancel(context.Background())
	reports := make(chan bool, 4)
	done := make(chan struct{})
	go func() {
		pc.Pool.Watch(ctx, 20*time.Millisecond, time.Second, zaptest.NewLogger(t), func(h bool) { reports <- h })
		close(done)
	}()

	select {
	case healthy := <-reports:
		assert.True(t, healthy)
	case <-time.After(5 * time.Second):
		t.Fatal("no health report")
	}
	cancel()
	<-done
}

func TestNewPool_UnreachableDatabase(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := postgres.NewPool(ctx, config.DatabaseConfig{
		Host: "127.0.0.1", Port: 1, User: "u", Name: "db", SSLMode: "disable",
	})
	assert.Error(t, err)
}
