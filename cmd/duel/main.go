// Package main provides the duel command: it finds the cheapest winning spell
// sequence for a scenario and prints its replay.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/spellduel/internal/config"
	"github.com/cory-johannsen/spellduel/internal/game/duel"
	"github.com/cory-johannsen/spellduel/internal/game/replay"
	"github.com/cory-johannsen/spellduel/internal/game/scenario"
	"github.com/cory-johannsen/spellduel/internal/game/solver"
	"github.com/cory-johannsen/spellduel/internal/observability"
	"github.com/cory-johannsen/spellduel/internal/scripting"
	"github.com/cory-johannsen/spellduel/internal/storage"
	"github.com/cory-johannsen/spellduel/internal/storage/stores"
	"github.com/cory-johannsen/spellduel/internal/tui"
)

func main() {
	configPath := flag.String("config", "", "path to configuration file; empty = defaults plus DUEL_ environment")
	scenarioPath := flag.String("scenario", "", "scenario file (.yaml or .lua); overrides the configured duel")
	inputPath := flag.String("input", "", "boss stats file (\"Hit Points: N\" / \"Damage: M\"); overrides the configured boss")
	showLog := flag.Bool("log", true, "print the winning replay")
	useTUI := flag.Bool("tui", false, "page through the winning replay interactively")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	logger, err := observability.NewLogger(cfg.Logging, "duel")
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	shutdownTracing, err := observability.SetupTracing(ctx, cfg.Tracing)
	if err != nil {
		logger.Fatal("initializing tracing", zap.Error(err))
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Warn("flushing traces", zap.Error(err))
		}
	}()

	sc, err := resolveScenario(ctx, cfg, *scenarioPath, *inputPath, logger)
	if err != nil {
		logger.Fatal("loading scenario", zap.Error(err))
	}

	opened, err := stores.Open(ctx, cfg)
	if err != nil {
		logger.Fatal("opening solution store", zap.Error(err))
	}
	defer opened.Close()
	var s storage.Solver = solver.New(solver.Options{MaxNodes: cfg.Search.MaxNodes}, logger)
	if opened.Store != nil {
		s = storage.NewCached(s, opened.Store, logger)
	}

	diffs, err := sc.Difficulties()
	if err != nil {
		logger.Fatal("scenario difficulty", zap.Error(err))
	}

	var failed bool
	for _, d := range diffs {
		lg, err := solveOne(ctx, s, sc, d, logger)
		if len(diffs) > 1 && !*useTUI {
			fmt.Printf("== %s ==\n", d)
		}
		if err != nil {
			failed = true
			fmt.Println(failureLine(err))
			continue
		}
		if *useTUI {
			if err := tui.Run(lg); err != nil {
				logger.Fatal("running replay viewer", zap.Error(err))
			}
			continue
		}
		printResult(os.Stdout, lg, *showLog)
	}
	if failed {
		os.Exit(1)
	}
}

// failureLine tells an exhausted frontier apart from a search that was cut
// short, since only the former proves no win exists.
func failureLine(err error) string {
	switch {
	case errors.Is(err, solver.ErrNoSolution):
		return "No solution found!"
	case errors.Is(err, solver.ErrSearchBudgetExhausted):
		return "Search budget exhausted before a solution was found; raise search.max_nodes."
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "Search cancelled before a solution was found."
	default:
		return fmt.Sprintf("Search failed: %v", err)
	}
}

func solveOne(ctx context.Context, s storage.Solver, sc scenario.Scenario, d duel.Difficulty, logger *zap.Logger) (*replay.Log, error) {
	start := time.Now()
	player, boss := sc.Combatants()
	res, err := s.Solve(ctx, duel.NewState(player, boss, d))
	if err != nil {
		level := logger.Warn
		if !errors.Is(err, solver.ErrNoSolution) {
			level = logger.Error
		}
		level("no winning sequence",
			zap.String("scenario", sc.Name),
			zap.String("difficulty", d.String()),
			zap.Int("expanded", res.Expanded),
			zap.Error(err),
		)
		return nil, err
	}
	logger.Info("solved",
		zap.String("scenario", sc.Name),
		zap.String("difficulty", d.String()),
		zap.Int("mana_spent", res.ManaSpent()),
		zap.Int("expanded", res.Expanded),
		zap.Duration("elapsed", time.Since(start)),
	)
	return replay.Build(res.Spells(), player, boss, d)
}

func printResult(w io.Writer, lg *replay.Log, withLog bool) {
	if withLog {
		fmt.Fprint(w, lg.String())
		fmt.Fprintln(w)
	}
	fmt.Fprintf(w, "Minimum mana required: %d\n", lg.ManaSpent)
}

// resolveScenario applies, in order, the configured duel, a scenario file,
// and a boss stats file.
func resolveScenario(ctx context.Context, cfg config.Config, scenarioPath, inputPath string, logger *zap.Logger) (scenario.Scenario, error) {
	sc := cfg.Duel.Scenario()
	if scenarioPath != "" {
		runner := scripting.NewRunner(cfg.Search.ScriptInstructionLimit, logger)
		loaded, err := scenario.Load(ctx, scenarioPath, runner)
		if err != nil {
			return scenario.Scenario{}, err
		}
		sc = loaded
	}
	if inputPath != "" {
		data, err := os.ReadFile(inputPath)
		if err != nil {
			return scenario.Scenario{}, fmt.Errorf("reading %q: %w", inputPath, err)
		}
		b, err := scenario.ParseBossStats(string(data))
		if err != nil {
			return scenario.Scenario{}, fmt.Errorf("parsing %q: %w", inputPath, err)
		}
		sc.Boss = b
	}
	return sc, sc.Validate()
}
