package duelserver_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/cory-johannsen/spellduel/internal/duelserver"
	"github.com/cory-johannsen/spellduel/internal/game/solver"
)

func TestService_StartServeStop(t *testing.T) {
	logger := zaptest.NewLogger(t)
	gs, hs := duelserver.NewGRPCServer(duelserver.NewServer(solver.New(solver.Options{}, logger), duelserver.Options{}, logger))
	svc := duelserver.NewService(gs, hs, "127.0.0.1:0", time.Second, logger)

	done := make(chan error, 1)
	go func() { done <- svc.Start() }()

	require.Eventually(t, func() bool { return svc.Addr() != "" }, 2*time.Second, 10*time.Millisecond)

	conn, err := grpc.NewClient(svc.Addr(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	defer conn.Close()

	req, err := structpb.NewStruct(map[string]any{"player_hp": 10, "player_mana": 250, "boss_hp": 13, "boss_damage": 8, "difficulty": "normal"})
	require.NoError(t, err)
	resp, err := duelserver.NewClient(conn).Solve(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 226.0, resp.AsMap()["mana_spent"])

	svc.Stop()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("service did not stop")
	}
}

func TestService_StartFailsOnBadAddr(t *testing.T) {
	logger := zaptest.NewLogger(t)
	gs, hs := duelserver.NewGRPCServer(duelserver.NewServer(solver.New(solver.Options{}, logger), duelserver.Options{}, logger))
	svc := duelserver.NewService(gs, hs, "256.0.0.1:-1", time.Second, logger)
	assert.Error(t, svc.Start())
}
