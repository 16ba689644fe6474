package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/craftloop/internal/store"
)

// StatusOptions holds flags for the status command.
type StatusOptions struct {
	*RootOptions
	Database string
	Runs     int
}

// RunInfo is one run as reported by status.
type RunInfo struct {
	ID          string `json:"id"`
	Mode        string `json:"mode"`
	StartedSeq  int64  `json:"started_seq"`
	FinishedSeq int64  `json:"finished_seq"`
	Cycles      int64  `json:"cycles"`
	StopReason  string `json:"stop_reason"`
}

// StatusResult is the status payload.
type StatusResult struct {
	Database string      `json:"database"`
	Stats    store.Stats `json:"stats"`
	Runs     []RunInfo   `json:"runs"`
}

// NewStatusCommand creates the status command.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StatusOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show knowledge counts and recent runs",
		Long: `Show how much the store knows: recipes, attempted pairs, discovered
elements, goal achievements, reward total and the most recent runs.

Example:
  craftloop status --db ./craftloop.db
  craftloop status --db ./craftloop.db --runs 10 --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	cmd.Flags().IntVar(&opts.Runs, "runs", 5, "number of recent runs to show")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

// openExistingStore opens a store that must already exist. Read-only
// commands never create an empty database by accident.
func openExistingStore(path string) (*store.Store, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil, NewExitError(ExitCommandError, fmt.Sprintf("database not found: %s", path))
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return st, nil
}

func closeStore(st *store.Store) {
	if err := st.Close(); err != nil {
		slog.Error("error closing database", "error", err)
	}
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func runStatus(opts *StatusOptions, cmd *cobra.Command) error {
	st, err := openExistingStore(opts.Database)
	if err != nil {
		return err
	}
	defer closeStore(st)
	ctx := commandContext(cmd)

	stats, err := st.Stats(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read stats", err)
	}
	runs, err := st.Runs(ctx, opts.Runs)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read runs", err)
	}

	result := StatusResult{Database: opts.Database, Stats: stats, Runs: make([]RunInfo, 0, len(runs))}
	for _, r := range runs {
		result.Runs = append(result.Runs, RunInfo{
			ID:          r.ID,
			Mode:        r.Mode,
			StartedSeq:  r.StartedSeq,
			FinishedSeq: r.FinishedSeq,
			Cycles:      r.Cycles,
			StopReason:  r.StopReason,
		})
	}

	return opts.formatter(cmd).Success(result, formatStatus(result))
}

func formatStatus(r StatusResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Database: %s\n", r.Database)
	fmt.Fprintf(&b, "  Recipes:        %d\n", r.Stats.Recipes)
	fmt.Fprintf(&b, "  Attempts:       %d\n", r.Stats.Attempts)
	fmt.Fprintf(&b, "  Discovered:     %d\n", r.Stats.Discovered)
	fmt.Fprintf(&b, "  Goals achieved: %d\n", r.Stats.Achieved)
	fmt.Fprintf(&b, "  Conflicts:      %d\n", r.Stats.Conflicts)
	fmt.Fprintf(&b, "  Reward total:   %d\n", r.Stats.RewardTotal)
	fmt.Fprintf(&b, "  Runs:           %d\n", r.Stats.Runs)
	if len(r.Runs) == 0 {
		return b.String()
	}

	fmt.Fprintln(&b, "\nRecent runs:")
	for _, run := range r.Runs {
		stop := run.StopReason
		if stop == "" {
			stop = "unfinished"
		}
		fmt.Fprintf(&b, "  %s  %-10s  %4d cycles  seq %d..%d  %s\n",
			run.ID, run.Mode, run.Cycles, run.StartedSeq, run.FinishedSeq, stop)
	}
	return b.String()
}
