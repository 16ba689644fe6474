package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/craftloop/internal/config"
	"github.com/roach88/craftloop/internal/goals"
	"github.com/roach88/craftloop/internal/ir"
)

// GoalsOptions holds flags for the goals command.
type GoalsOptions struct {
	*RootOptions
	Database string
	Config   string
	Goals    string
}

// GoalsResult is the goals payload.
type GoalsResult struct {
	Categories []goals.CategoryProgress `json:"categories"`
	Done       int                      `json:"done"`
	Total      int                      `json:"total"`
}

// NewGoalsCommand creates the goals command.
func NewGoalsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &GoalsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "goals",
		Short: "Show goal progress per category",
		Long: `Show which goal items have been discovered, category by category in
priority order. Goals come from --goals (CUE), the goals in --config, or
the built-in list.

Example:
  craftloop goals --db ./craftloop.db --goals ./goals.cue`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGoals(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	cmd.Flags().StringVar(&opts.Config, "config", "", "run configuration file (YAML)")
	cmd.Flags().StringVar(&opts.Goals, "goals", "", "goal file (CUE)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func loadGoalSpec(configPath, goalsPath string) (*goals.Spec, error) {
	cfg := config.Default()
	if configPath != "" {
		var err error
		if cfg, err = config.Load(configPath); err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to load config", err)
		}
	}
	if goalsPath != "" {
		cfg.GoalsFile = goalsPath
	}
	spec, err := cfg.GoalSpec()
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load goals", err)
	}
	return spec, nil
}

func runGoals(opts *GoalsOptions, cmd *cobra.Command) error {
	spec, err := loadGoalSpec(opts.Config, opts.Goals)
	if err != nil {
		return err
	}

	st, err := openExistingStore(opts.Database)
	if err != nil {
		return err
	}
	defer closeStore(st)

	state, err := st.Load(commandContext(cmd))
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load knowledge", err)
	}

	result := GoalsResult{Categories: spec.Progress(state.IsDiscovered), Total: spec.Len()}
	for _, t := range spec.Targets() {
		if state.IsDiscovered(t.Item) {
			result.Done++
		}
	}
	return opts.formatter(cmd).Success(result, formatGoals(result))
}

func joinElements(es []ir.Element) string {
	names := make([]string, len(es))
	for i, e := range es {
		names[i] = string(e)
	}
	return strings.Join(names, ", ")
}

func formatGoals(r GoalsResult) string {
	var b strings.Builder
	for _, c := range r.Categories {
		mark := " "
		if c.Done() {
			mark = "✓"
		}
		fmt.Fprintf(&b, "%s %s (%d/%d)\n", mark, c.Category, len(c.Achieved), len(c.Achieved)+len(c.Remaining))
		if len(c.Achieved) > 0 {
			fmt.Fprintf(&b, "    found:   %s\n", joinElements(c.Achieved))
		}
		if len(c.Remaining) > 0 {
			fmt.Fprintf(&b, "    missing: %s\n", joinElements(c.Remaining))
		}
	}
	fmt.Fprintf(&b, "\n%d of %d goal items discovered\n", r.Done, r.Total)
	return b.String()
}
