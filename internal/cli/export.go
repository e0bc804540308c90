package cli

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/loctrack/internal/store"
)

// ExportOptions holds flags for the export command.
type ExportOptions struct {
	*RootOptions
	Out        string
	MaxRecords int
}

// ExportResult describes a written export document.
type ExportResult struct {
	Path    string `json:"path"`
	Records uint64 `json:"records"`
	Bytes   int    `json:"bytes"`
}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the history as a JSON document",
		Long: `Write saved samples, newest first, as a JSON export document.

The default file name is location-data-YYYY-MM-DD.json in the current
directory. Use --out - to write to stdout.

Example:
  loctrack export --out backup.json --max-records 500`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Out, "out", "o", "", "output file, or - for stdout")
	cmd.Flags().IntVar(&opts.MaxRecords, "max-records", 0, "maximum samples to export (default from config)")

	return cmd
}

func runExport(opts *ExportOptions, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)
	a, err := openApp(commandContext(cmd), opts.RootOptions, cmd, f)
	if err != nil {
		return err
	}
	defer a.closeLogged()

	limit := opts.MaxRecords
	if limit <= 0 {
		limit = a.cfg.Export.MaxRecords
	}
	if limit <= 0 {
		limit = store.DefaultExportLimit
	}

	doc, err := a.recorder.Export(limit)
	if err != nil {
		return f.fail(ExitFailure, ErrCodeGeneric, "failed to build export", err)
	}

	if opts.Out == "-" {
		_, err := cmd.OutOrStdout().Write(append(doc, '\n'))
		return err
	}

	path := opts.Out
	if path == "" {
		path = a.recorder.ExportFileName()
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return f.fail(ExitFailure, ErrCodeWriteFailed, "failed to create export directory", err)
		}
	}
	if err := os.WriteFile(path, doc, 0o644); err != nil {
		return f.fail(ExitFailure, ErrCodeWriteFailed, "failed to write export", err)
	}

	res := ExportResult{
		Path:    path,
		Records: min(a.recorder.Count(), uint64(limit)),
		Bytes:   len(doc),
	}
	if f.IsJSON() {
		return f.Success(res)
	}
	f.OK("Exported %d records to %s", res.Records, res.Path)
	return nil
}
