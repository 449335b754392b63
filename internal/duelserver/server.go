// Package duelserver exposes the minimum-mana solver and the replay builder
// over gRPC.
package duelserver

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/cory-johannsen/spellduel/internal/game/duel"
	"github.com/cory-johannsen/spellduel/internal/game/replay"
	"github.com/cory-johannsen/spellduel/internal/game/scenario"
	"github.com/cory-johannsen/spellduel/internal/game/solver"
	"github.com/cory-johannsen/spellduel/internal/storage"
)

const tracerName = "github.com/cory-johannsen/spellduel/internal/duelserver"

// defaultListLimit caps ListSolutions when the request omits a limit.
const defaultListLimit = 50

// Server implements DuelServiceServer.
type Server struct {
	solver    storage.Solver
	store     storage.Store
	scenarios map[string]scenario.Scenario
	defaults  scenario.Scenario
	tracer    trace.Tracer
	logger    *zap.Logger
}

// Options configures a Server.
type Options struct {
	// Store backs ListSolutions; nil disables it.
	Store storage.Store
	// Scenarios are addressable by name in Solve requests.
	Scenarios []scenario.Scenario
	// Defaults fill any stat a Solve request omits; zero means scenario.Default().
	Defaults scenario.Scenario
}

// NewServer creates a Server.
//
// Precondition: s and logger must be non-nil.
func NewServer(s storage.Solver, opts Options, logger *zap.Logger) *Server {
	if s == nil || logger == nil {
		panic("duelserver.NewServer: solver and logger must not be nil")
	}
	defaults := opts.Defaults
	if defaults == (scenario.Scenario{}) {
		defaults = scenario.Default()
	}
	byName := make(map[string]scenario.Scenario, len(opts.Scenarios))
	for _, sc := range opts.Scenarios {
		byName[sc.Name] = sc
	}
	return &Server{
		solver:    s,
		store:     opts.Store,
		scenarios: byName,
		defaults:  defaults,
		tracer:    otel.Tracer(tracerName),
		logger:    logger,
	}
}

// duelRequest is the decoded setup shared by Solve and Replay.
type duelRequest struct {
	player     duel.Player
	boss       duel.Boss
	difficulty duel.Difficulty
}

// decodeSetup reads the optional "scenario" name and then the stat fields,
// which override the scenario (or the defaults) one by one.
func (s *Server) decodeSetup(req *structpb.Struct) (duelRequest, error) {
	base := s.defaults
	name, err := stringField(req, "scenario", "")
	if err != nil {
		return duelRequest{}, err
	}
	if name != "" {
		sc, ok := s.scenarios[name]
		if !ok {
			return duelRequest{}, fmt.Errorf("unknown scenario %q", name)
		}
		base = sc
	}

	sc := base
	if sc.Player.HP, err = intField(req, "player_hp", base.Player.HP); err != nil {
		return duelRequest{}, err
	}
	if sc.Player.Mana, err = intField(req, "player_mana", base.Player.Mana); err != nil {
		return duelRequest{}, err
	}
	if sc.Boss.HP, err = intField(req, "boss_hp", base.Boss.HP); err != nil {
		return duelRequest{}, err
	}
	if sc.Boss.Damage, err = intField(req, "boss_damage", base.Boss.Damage); err != nil {
		return duelRequest{}, err
	}
	diffs, err := sc.Difficulties()
	if err != nil {
		return duelRequest{}, err
	}
	diffName, err := stringField(req, "difficulty", diffs[0].String())
	if err != nil {
		return duelRequest{}, err
	}
	sc.Difficulty = diffName
	if strings.EqualFold(strings.TrimSpace(diffName), scenario.DifficultyBoth) {
		return duelRequest{}, errors.New("difficulty must be normal or hard for a single solve")
	}
	if err := sc.Validate(); err != nil {
		return duelRequest{}, err
	}
	d, err := duel.ParseDifficulty(diffName)
	if err != nil {
		return duelRequest{}, err
	}
	p, b := sc.Combatants()
	return duelRequest{player: p, boss: b, difficulty: d}, nil
}

// Solve finds the cheapest winning sequence for the requested setup.
//
// Request fields: scenario, player_hp, player_mana, boss_hp, boss_damage,
// difficulty. Response fields: mana_spent, spells, outcome, expanded,
// discarded, log.
func (s *Server) Solve(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	start := time.Now()
	setup, err := s.decodeSetup(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	ctx, span := s.tracer.Start(ctx, "duel.Solve", trace.WithAttributes(
		attribute.Int("duel.boss_hp", setup.boss.HP),
		attribute.Int("duel.boss_damage", setup.boss.Damage),
		attribute.String("duel.difficulty", setup.difficulty.String()),
	))
	defer span.End()

	res, err := s.solver.Solve(ctx, duel.NewState(setup.player, setup.boss, setup.difficulty))
	span.SetAttributes(
		attribute.Int("solver.expanded", res.Expanded),
		attribute.Int("solver.discarded", res.Discarded),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		s.logger.Info("solve finished without a win",
			zap.String("difficulty", setup.difficulty.String()),
			zap.Int("expanded", res.Expanded),
			zap.Error(err),
		)
		return nil, solveStatus(err)
	}
	span.SetAttributes(attribute.Int("duel.mana_spent", res.ManaSpent()))

	spells := res.Spells()
	log, err := replay.Build(spells, setup.player, setup.boss, setup.difficulty)
	if err != nil {
		span.RecordError(err)
		return nil, status.Errorf(codes.Internal, "replaying solution: %v", err)
	}

	s.logger.Info("solve finished",
		zap.String("difficulty", setup.difficulty.String()),
		zap.Int("mana_spent", res.ManaSpent()),
		zap.Int("expanded", res.Expanded),
		zap.Duration("elapsed", time.Since(start)),
	)
	return structpb.NewStruct(map[string]any{
		"mana_spent": res.ManaSpent(),
		"spells":     stringsToAny(duel.SpellNames(spells)),
		"outcome":    res.Outcome.String(),
		"expanded":   res.Expanded,
		"discarded":  res.Discarded,
		"log":        log.String(),
	})
}

// Replay resolves a given spell sequence and returns its log.
//
// Request fields: the Solve setup fields plus spells. Response fields:
// outcome, mana_spent, player_hp, boss_hp, log.
func (s *Server) Replay(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	setup, err := s.decodeSetup(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	names, err := stringListField(req, "spells")
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	spells, err := duel.ParseSpells(names)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	_, span := s.tracer.Start(ctx, "duel.Replay", trace.WithAttributes(
		attribute.Int("duel.spells", len(spells)),
	))
	defer span.End()

	log, err := replay.Build(spells, setup.player, setup.boss, setup.difficulty)
	if err != nil {
		span.RecordError(err)
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	return structpb.NewStruct(map[string]any{
		"outcome":    log.Outcome.String(),
		"mana_spent": log.ManaSpent,
		"player_hp":  log.Final.Player.HP,
		"boss_hp":    log.Final.Boss.HP,
		"log":        log.String(),
	})
}

// ListSolutions returns stored solutions, newest first.
//
// Request fields: limit. Response fields: solutions, each with scenario_key,
// difficulty, mana_spent, spells, created_at (RFC 3339).
func (s *Server) ListSolutions(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if s.store == nil {
		return nil, status.Error(codes.Unimplemented, "solution storage is not configured")
	}
	limit, err := intField(req, "limit", defaultListLimit)
	if err != nil || limit < 0 {
		return nil, status.Error(codes.InvalidArgument, "limit must be a non-negative integer")
	}
	sols, err := s.store.List(ctx, limit)
	if err != nil {
		s.logger.Error("listing solutions", zap.Error(err))
		return nil, status.Error(codes.Unavailable, "listing solutions failed")
	}
	items := make([]any, 0, len(sols))
	for _, sol := range sols {
		items = append(items, map[string]any{
			"scenario_key": sol.ScenarioKey,
			"difficulty":   sol.Difficulty.String(),
			"mana_spent":   sol.ManaSpent,
			"spells":       stringsToAny(sol.Spells),
			"created_at":   sol.CreatedAt.Format(time.RFC3339),
		})
	}
	return structpb.NewStruct(map[string]any{"solutions": items})
}

func solveStatus(err error) error {
	switch {
	case errors.Is(err, solver.ErrNoSolution):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, solver.ErrSearchBudgetExhausted):
		return status.Error(codes.ResourceExhausted, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
