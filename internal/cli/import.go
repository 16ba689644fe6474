package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/craftloop/internal/store"
)

// ImportOptions holds flags for the import command.
type ImportOptions struct {
	*RootOptions
	Database  string
	Knowledge string
	Progress  string
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ImportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Merge knowledge and progress documents into the store",
		Long: `Merge exported documents into the store. The database is created if it
does not exist. Nothing already known is overwritten: a recipe that
disagrees with the store is recorded as a conflict, and an attempted pair
keeps its outcome. Legacy files with "a,b" keys are accepted.

Example:
  craftloop import --db ./craftloop.db --knowledge knowledge.json --progress progress.json
  craftloop import --db ./craftloop.db --knowledge crafting_library.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	cmd.Flags().StringVar(&opts.Knowledge, "knowledge", "", "knowledge document")
	cmd.Flags().StringVar(&opts.Progress, "progress", "", "progress document")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func readKnowledgeFile(path string) (*store.KnowledgeDocument, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open knowledge document", err)
	}
	defer f.Close()
	doc, err := store.ReadKnowledgeDocument(f)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, fmt.Sprintf("invalid knowledge document %s", path), err)
	}
	return &doc, nil
}

func readProgressFile(path string) (*store.ProgressDocument, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open progress document", err)
	}
	defer f.Close()
	doc, err := store.ReadProgressDocument(f)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, fmt.Sprintf("invalid progress document %s", path), err)
	}
	return &doc, nil
}

func runImport(opts *ImportOptions, cmd *cobra.Command) error {
	if opts.Knowledge == "" && opts.Progress == "" {
		return NewExitError(ExitCommandError, "nothing to import: pass --knowledge and/or --progress")
	}
	kd, err := readKnowledgeFile(opts.Knowledge)
	if err != nil {
		return err
	}
	pd, err := readProgressFile(opts.Progress)
	if err != nil {
		return err
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer closeStore(st)
	ctx := commandContext(cmd)

	state, err := st.Load(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load knowledge", err)
	}
	maxSeq, err := st.MaxSeq(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read sequence", err)
	}

	stats, err := store.Import(state, kd, pd, maxSeq+1, "")
	if err != nil {
		return WrapExitError(ExitCommandError, "import failed", err)
	}
	if err := st.Commit(ctx, state.TakeDelta()); err != nil {
		return WrapExitError(ExitCommandError, "failed to commit import", err)
	}

	text := fmt.Sprintf("Imported %d recipes (%d conflicts), %d attempts, %d discoveries\n",
		stats.Recipes, stats.Conflicts, stats.Attempts, stats.Discoveries)
	return opts.formatter(cmd).Success(stats, text)
}
