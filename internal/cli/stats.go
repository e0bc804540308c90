package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/loctrack/internal/location"
)

// NewStatsCommand creates the stats command.
func NewStatsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "stats",
		Short:         "Show record count and time range",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(rootOpts, cmd)
		},
	}
}

func runStats(opts *RootOptions, cmd *cobra.Command) error {
	f := newFormatter(opts, cmd)
	a, err := openApp(commandContext(cmd), opts, cmd, f)
	if err != nil {
		return err
	}
	defer a.closeLogged()

	st := a.recorder.Stats()
	if f.IsJSON() {
		return f.Success(st)
	}

	fmtr := location.DefaultFormatter()
	first, last := location.Placeholder, location.Placeholder
	if st.First != nil {
		first = fmtr.FormatTimestamp(st.First.Timestamp)
	}
	if st.Last != nil {
		last = fmtr.FormatTimestamp(st.Last.Timestamp)
	}
	f.Field("Total", fmtr.FormatCount(st.Total))
	f.Field("First", first)
	f.Field("Last", last)
	return nil
}
