package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/loctrack/internal/location"
	"github.com/roach88/loctrack/internal/recorder"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Page    int
	PerPage int
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List saved samples, newest first",
		Long: `List saved samples one page at a time, newest first.

Example:
  loctrack history --page 2 --per-page 20`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().IntVar(&opts.Page, "page", 1, "page number, starting at 1")
	cmd.Flags().IntVar(&opts.PerPage, "per-page", recorder.DefaultPerPage, "samples per page")

	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)
	if opts.Page < 1 {
		return f.fail(ExitCommandError, ErrCodeInvalidInput, fmt.Sprintf("--page must be at least 1, got %d", opts.Page), nil)
	}
	if opts.PerPage < 1 {
		return f.fail(ExitCommandError, ErrCodeInvalidInput, fmt.Sprintf("--per-page must be at least 1, got %d", opts.PerPage), nil)
	}

	a, err := openApp(commandContext(cmd), opts.RootOptions, cmd, f)
	if err != nil {
		return err
	}
	defer a.closeLogged()

	page, err := a.recorder.Page(opts.Page, opts.PerPage)
	if err != nil {
		return f.fail(ExitCommandError, ErrCodeInvalidInput, "failed to read history", err)
	}
	if f.IsJSON() {
		return f.Success(page)
	}

	fmtr := location.DefaultFormatter()
	fmt.Fprintf(f.Writer, "Page %d/%d (%s records)\n", page.Page, page.TotalPages, fmtr.FormatCount(page.Total))
	if len(page.Samples) == 0 {
		fmt.Fprintln(f.Writer, "No samples.")
		return nil
	}
	for _, s := range page.Samples {
		fmt.Fprintln(f.Writer, describeSample(fmtr, s))
	}
	return nil
}
