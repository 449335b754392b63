package duelserver_test

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/cory-johannsen/spellduel/internal/duelserver"
	"github.com/cory-johannsen/spellduel/internal/game/scenario"
	"github.com/cory-johannsen/spellduel/internal/game/solver"
	"github.com/cory-johannsen/spellduel/internal/storage"
)

type harness struct {
	client *duelserver.Client
	conn   *grpc.ClientConn
	store  *storage.Memory
}

func newHarness(t *testing.T, maxNodes int) *harness {
	t.Helper()
	logger := zaptest.NewLogger(t)
	store := storage.NewMemory()
	cached := storage.NewCached(solver.New(solver.Options{MaxNodes: maxNodes}, logger), store, logger)
	srv := duelserver.NewServer(cached, duelserver.Options{
		Store: store,
		Scenarios: []scenario.Scenario{{
			Name:       "small-poison",
			Player:     scenario.Player{HP: 10, Mana: 250},
			Boss:       scenario.Boss{HP: 13, Damage: 8},
			Difficulty: "normal",
		}},
	}, logger)

	gs, _ := duelserver.NewGRPCServer(srv)
	lis := bufconn.Listen(1 << 20)
	go func() { _ = gs.Serve(lis) }()
	t.Cleanup(gs.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return &harness{client: duelserver.NewClient(conn), conn: conn, store: store}
}

func mustStruct(t *testing.T, m map[string]any) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(m)
	require.NoError(t, err)
	return s
}

func TestSolve_SmallExample(t *testing.T) {
	h := newHarness(t, 0)
	resp, err := h.client.Solve(context.Background(), mustStruct(t, map[string]any{
		"player_hp": 10, "player_mana": 250, "boss_hp": 13, "boss_damage": 8, "difficulty": "normal",
	}))
	require.NoError(t, err)

	m := resp.AsMap()
	assert.Equal(t, 226.0, m["mana_spent"])
	assert.Equal(t, []any{"Poison", "Magic Missile"}, m["spells"])
	assert.Equal(t, "boss killed by effects", m["outcome"])
	assert.Contains(t, m["log"], "This kills the boss, and the player wins! Total mana spent: 226")
}

func TestSolve_NamedScenarioAndCache(t *testing.T) {
	h := newHarness(t, 0)
	ctx := context.Background()
	req := mustStruct(t, map[string]any{"scenario": "small-poison"})

	first, err := h.client.Solve(ctx, req)
	require.NoError(t, err)
	assert.Greater(t, first.AsMap()["expanded"], 0.0)

	second, err := h.client.Solve(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, 0.0, second.AsMap()["expanded"])
	assert.Equal(t, first.AsMap()["mana_spent"], second.AsMap()["mana_spent"])

	list, err := h.client.ListSolutions(ctx, mustStruct(t, map[string]any{}))
	require.NoError(t, err)
	sols := list.AsMap()["solutions"].([]any)
	require.Len(t, sols, 1)
	assert.Equal(t, "p10-m250-b13-d8-normal", sols[0].(map[string]any)["scenario_key"])
}

func TestSolve_StatusCodes(t *testing.T) {
	h := newHarness(t, 5)
	ctx := context.Background()
	cases := []struct {
		name string
		req  map[string]any
		code codes.Code
	}{
		{"no solution", map[string]any{"player_hp": 10, "player_mana": 52, "boss_hp": 13, "boss_damage": 8, "difficulty": "normal"}, codes.NotFound},
		{"budget", map[string]any{"difficulty": "hard"}, codes.ResourceExhausted},
		{"fractional", map[string]any{"boss_hp": 12.5}, codes.InvalidArgument},
		{"wrong type", map[string]any{"boss_hp": "lots"}, codes.InvalidArgument},
		{"dead player", map[string]any{"player_hp": 0}, codes.InvalidArgument},
		{"both", map[string]any{"difficulty": "both"}, codes.InvalidArgument},
		{"unknown difficulty", map[string]any{"difficulty": "nightmare"}, codes.InvalidArgument},
		{"unknown scenario", map[string]any{"scenario": "nope"}, codes.InvalidArgument},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := h.client.Solve(ctx, mustStruct(t, tc.req))
			require.Error(t, err)
			assert.Equal(t, tc.code, status.Code(err), "%v", err)
		})
	}
}

func TestReplay(t *testing.T) {
	h := newHarness(t, 0)
	resp, err := h.client.Replay(context.Background(), mustStruct(t, map[string]any{
		"player_hp": 10, "player_mana": 250, "boss_hp": 14, "boss_damage": 8, "difficulty": "normal",
		"spells": []any{"Recharge", "Shield", "Drain", "Poison", "Magic Missile"},
	}))
	require.NoError(t, err)
	m := resp.AsMap()
	assert.Equal(t, "boss killed by effects", m["outcome"])
	assert.Equal(t, 641.0, m["mana_spent"])
	assert.Equal(t, 1.0, m["player_hp"])
	assert.Equal(t, -1.0, m["boss_hp"])
}

func TestReplay_InvalidSequences(t *testing.T) {
	h := newHarness(t, 0)
	ctx := context.Background()
	for name, spells := range map[string][]any{
		"unknown spell": {"Fireball"},
		"illegal recast": {"Shield", "Shield"},
		"not strings":    {1.0},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := h.client.Replay(ctx, mustStruct(t, map[string]any{"difficulty": "normal", "spells": spells}))
			assert.Equal(t, codes.InvalidArgument, status.Code(err))
		})
	}
}

func TestHealthServing(t *testing.T) {
	h := newHarness(t, 0)
	resp, err := grpc_health_v1.NewHealthClient(h.conn).Check(context.Background(),
		&grpc_health_v1.HealthCheckRequest{Service: duelserver.ServiceName})
	require.NoError(t, err)
	assert.Equal(t, grpc_health_v1.HealthCheckResponse_SERVING, resp.GetStatus())
}

func TestListSolutions_WithoutStore(t *testing.T) {
	srv := duelserver.NewServer(solver.New(solver.Options{}, zaptest.NewLogger(t)), duelserver.Options{}, zaptest.NewLogger(t))
	_, err := srv.ListSolutions(context.Background(), &structpb.Struct{})
	assert.Equal(t, codes.Unimplemented, status.Code(err))
}

func TestNewServer_PanicsOnNil(t *testing.T) {
	assert.Panics(t, func() { duelserver.NewServer(nil, duelserver.Options{}, zaptest.NewLogger(t)) })
}
