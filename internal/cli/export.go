package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/craftloop/internal/store"
)

// Document file names written by export.
const (
	KnowledgeFile = "knowledge.json"
	ProgressFile  = "progress.json"
)

// ExportOptions holds flags for the export command.
type ExportOptions struct {
	*RootOptions
	Database string
	Out      string
}

// ExportResult is the export payload.
type ExportResult struct {
	Knowledge  string `json:"knowledge"`
	Progress   string `json:"progress"`
	Recipes    int    `json:"recipes"`
	Discovered int    `json:"discovered"`
	Attempts   int    `json:"attempts"`
}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write knowledge and progress as JSON documents",
		Long: `Write the store as two portable JSON documents:

  knowledge.json  {"version": "1", "recipes": {"[\"a\",\"b\"]": "result"}}
  progress.json   {"version": "1", "discovered_items": [...], "crafted_combinations": [...]}

Example:
  craftloop export --db ./craftloop.db --out ./backup`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	cmd.Flags().StringVarP(&opts.Out, "out", "o", ".", "output directory")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runExport(opts *ExportOptions, cmd *cobra.Command) error {
	st, err := openExistingStore(opts.Database)
	if err != nil {
		return err
	}
	defer closeStore(st)

	snap, err := st.Snapshot(commandContext(cmd))
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read knowledge", err)
	}
	kd, pd := store.BuildDocuments(snap)

	if err := os.MkdirAll(opts.Out, 0755); err != nil {
		return WrapExitError(ExitCommandError, "failed to create output directory", err)
	}
	result := ExportResult{
		Knowledge:  filepath.Join(opts.Out, KnowledgeFile),
		Progress:   filepath.Join(opts.Out, ProgressFile),
		Recipes:    len(kd.Recipes),
		Discovered: len(pd.DiscoveredItems),
		Attempts:   len(pd.CraftedCombinations),
	}
	if err := writeDocumentFile(result.Knowledge, kd); err != nil {
		return err
	}
	if err := writeDocumentFile(result.Progress, pd); err != nil {
		return err
	}

	text := fmt.Sprintf("Exported %d recipes, %d discovered elements and %d attempts to %s\n",
		result.Recipes, result.Discovered, result.Attempts, opts.Out)
	return opts.formatter(cmd).Success(result, text)
}

// writeDocumentFile writes through a temp file and renames, so a crash never
// leaves a truncated document behind.
func writeDocumentFile(path string, doc any) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to write document", err)
	}
	defer os.Remove(tmp.Name())

	if err := store.WriteDocument(tmp, doc); err != nil {
		tmp.Close()
		return WrapExitError(ExitCommandError, "failed to write document", err)
	}
	if err := tmp.Close(); err != nil {
		return WrapExitError(ExitCommandError, "failed to write document", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return WrapExitError(ExitCommandError, "failed to write document", err)
	}
	return nil
}
