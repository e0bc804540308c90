package cli

import (
	"github.com/spf13/cobra"
)

// ClearOptions holds flags for the clear command.
type ClearOptions struct {
	*RootOptions
	Yes bool
}

// ClearResult reports how many samples were removed.
type ClearResult struct {
	Removed uint64 `json:"removed"`
}

// NewClearCommand creates the clear command.
func NewClearCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ClearOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every saved sample",
		Long: `Delete every saved sample. Sample IDs are not reused afterwards.

Requires --yes.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClear(opts, cmd)
		},
	}

	cmd.Flags().BoolVarP(&opts.Yes, "yes", "y", false, "confirm deletion")

	return cmd
}

func runClear(opts *ClearOptions, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)
	if !opts.Yes {
		return f.fail(ExitCommandError, ErrCodeNotConfirmed, "refusing to delete history without --yes", nil)
	}

	ctx := commandContext(cmd)
	a, err := openApp(ctx, opts.RootOptions, cmd, f)
	if err != nil {
		return err
	}
	defer a.closeLogged()

	removed := a.recorder.Count()
	if err := a.recorder.Clear(ctx); err != nil {
		return f.fail(ExitFailure, ErrCodeStorage, "failed to clear history", err)
	}

	if f.IsJSON() {
		return f.Success(ClearResult{Removed: removed})
	}
	f.OK("Deleted %d samples", removed)
	return nil
}
