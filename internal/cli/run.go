package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/craftloop/internal/config"
	"github.com/roach88/craftloop/internal/engine"
	"github.com/roach88/craftloop/internal/sandbox"
	"github.com/roach88/craftloop/internal/selector"
	"github.com/roach88/craftloop/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database  string
	World     string
	Config    string
	Goals     string
	MaxCycles int
	Random    bool
	Seed      uint64

	// RunIDs allows overriding the run id generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	RunIDs engine.RunIDGenerator
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start or resume the discovery loop",
		Long: `Start or resume the discovery loop against a sandbox world.

Knowledge is loaded from the store (created if missing), so a resumed run
never repeats a combination. The loop stops when every available pair has
been tried, when --max-cycles is reached, or on SIGINT/SIGTERM. Flags
override values from --config.

Exit codes:
  0 - Exhausted, cycle limit reached, or interrupted
  1 - The run failed
  2 - Configuration, setup or storage error

Examples:
  craftloop run --db ./craftloop.db --world ./elements.yaml
  craftloop run --config ./craftloop.yaml --max-cycles 100
  craftloop run --world ./elements.yaml --goals ./goals.cue --random --seed 7`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLoop(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", config.DefaultDB, "path to SQLite database")
	cmd.Flags().StringVar(&opts.World, "world", "", "sandbox world file (YAML)")
	cmd.Flags().StringVar(&opts.Config, "config", "", "run configuration file (YAML)")
	cmd.Flags().StringVar(&opts.Goals, "goals", "", "goal file (CUE)")
	cmd.Flags().IntVar(&opts.MaxCycles, "max-cycles", 0, "stop after N cycles (0 = unbounded)")
	cmd.Flags().BoolVar(&opts.Random, "random", false, "sample pairs at random instead of enumerating")
	cmd.Flags().Uint64Var(&opts.Seed, "seed", 0, "random mode seed (0 = random)")

	return cmd
}

// loadRunConfig reads --config and applies explicitly set flags over it.
func loadRunConfig(opts *RunOptions, cmd *cobra.Command) (*config.Config, error) {
	cfg := config.Default()
	if opts.Config != "" {
		var err error
		if cfg, err = config.Load(opts.Config); err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to load config", err)
		}
	}

	flags := cmd.Flags()
	if flags.Changed("db") || opts.Config == "" {
		cfg.DB = opts.Database
	}
	if flags.Changed("world") {
		cfg.World = opts.World
	}
	if flags.Changed("goals") {
		cfg.GoalsFile = opts.Goals
	}
	if flags.Changed("max-cycles") {
		cfg.MaxCycles = opts.MaxCycles
	}
	if opts.Random {
		cfg.Mode = selector.ModeRandom.String()
	}
	if flags.Changed("seed") {
		cfg.RandomSeed = opts.Seed
	}

	if err := cfg.Validate(); err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	if cfg.World == "" {
		return nil, NewExitError(ExitCommandError, "no world configured: pass --world or set world in the config file")
	}
	return cfg, nil
}

func runLoop(opts *RunOptions, cmd *cobra.Command) error {
	out := opts.formatter(cmd)

	cfg, err := loadRunConfig(opts, cmd)
	if err != nil {
		return err
	}

	world, err := sandbox.LoadWorld(cfg.World)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load world", err)
	}
	spec, err := cfg.GoalSpec()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load goals", err)
	}

	slog.Info("opening database", "path", cfg.DB)
	st, err := store.Open(cfg.DB)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}

	state, err := st.Load(parentCtx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load knowledge", err)
	}
	maxSeq, err := st.MaxSeq(parentCtx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read sequence", err)
	}

	// The environment keeps everything found in earlier runs.
	sb := sandbox.New(world, cfg.Faults, slog.Default())
	sb.Unlock(state.Discovered()...)

	ctrlOpts := []engine.Option{
		engine.WithConfig(cfg.Engine()),
		engine.WithClock(engine.NewClockAt(maxSeq)),
		engine.WithLogger(slog.Default()),
		engine.WithObserver(engine.ObserverFunc(func(ev engine.CycleEvent) {
			out.VerboseLog("%s", formatCycle(ev))
		})),
	}
	if opts.RunIDs != nil {
		ctrlOpts = append(ctrlOpts, engine.WithRunIDs(opts.RunIDs))
	}
	ctrl := engine.New(sb, st, state, spec, ctrlOpts...)

	// Setup signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("received signal, finishing current cycle", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	slog.Info("discovery starting",
		"db", cfg.DB,
		"world", cfg.World,
		"mode", cfg.Mode,
		"known_recipes", len(state.Recipes()),
		"ledger", state.LedgerSize(),
		"resume_seq", maxSeq,
	)

	summary, runErr := ctrl.Run(ctx)
	if exitErr := runExitError(runErr); exitErr != nil {
		_ = out.Error(errorCode(runErr), exitErr.Error(), summary)
		return exitErr
	}
	return out.Success(summary, formatSummary(summary))
}

func formatCycle(ev engine.CycleEvent) string {
	line := fmt.Sprintf("[%d] %s %s + %s -> %s", ev.Cycle, ev.TierName, ev.Pair.A, ev.Pair.B, ev.Outcome)
	if ev.Result != "" {
		line += " " + string(ev.Result)
	}
	if ev.Reward != 0 {
		line += fmt.Sprintf(" (+%d)", ev.Reward)
	}
	if ev.Goal != "" {
		line += " goal:" + ev.Goal
	}
	return line
}

func formatSummary(s engine.Summary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Run %s stopped: %s\n", s.RunID, s.StopReason)
	fmt.Fprintf(&b, "  Cycles:        %d\n", s.Cycles)
	fmt.Fprintf(&b, "  New elements:  %d\n", len(s.NewElements))
	fmt.Fprintf(&b, "  Reward gained: %d\n", s.RewardGained)
	if len(s.GoalsAchieved) > 0 {
		names := make([]string, len(s.GoalsAchieved))
		for i, e := range s.GoalsAchieved {
			names[i] = string(e)
		}
		fmt.Fprintf(&b, "  Goals reached: %s\n", strings.Join(names, ", "))
	}
	if s.Conflicts > 0 {
		fmt.Fprintf(&b, "  Conflicts:     %d\n", s.Conflicts)
	}
	return b.String()
}
