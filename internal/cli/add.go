package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/loctrack/internal/location"
)

// AddOptions holds flags for the add command.
type AddOptions struct {
	*RootOptions
	Latitude  float64
	Longitude float64
	Accuracy  float64
	Timestamp int64

	// Now allows overriding the default timestamp source (for testing).
	Now func() time.Time
}

// NewAddCommand creates the add command.
func NewAddCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AddOptions{RootOptions: rootOpts, Now: time.Now}

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Save one position manually",
		Long: `Save one position to the history and wait for it to reach the database.

The timestamp defaults to now. Accuracy is omitted unless given.

Example:
  loctrack add --lat 35.681236 --lon 139.767125 --accuracy 8`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdd(opts, cmd)
		},
	}

	cmd.Flags().Float64Var(&opts.Latitude, "lat", 0, "latitude in degrees (required)")
	cmd.Flags().Float64Var(&opts.Longitude, "lon", 0, "longitude in degrees (required)")
	cmd.Flags().Float64Var(&opts.Accuracy, "accuracy", 0, "accuracy radius in metres")
	cmd.Flags().Int64Var(&opts.Timestamp, "timestamp", 0, "fix time in epoch milliseconds (default now)")
	_ = cmd.MarkFlagRequired("lat")
	_ = cmd.MarkFlagRequired("lon")

	return cmd
}

func runAdd(opts *AddOptions, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)
	ctx := commandContext(cmd)

	pos := location.Position{
		Latitude:  opts.Latitude,
		Longitude: opts.Longitude,
		Timestamp: opts.Timestamp,
	}
	if cmd.Flags().Changed("accuracy") {
		pos.Accuracy = location.Accuracy(opts.Accuracy)
	}
	if !cmd.Flags().Changed("timestamp") {
		pos.Timestamp = opts.Now().UnixMilli()
	}
	if err := pos.Validate(); err != nil {
		return f.fail(ExitCommandError, ErrCodeInvalidInput, "invalid position", err)
	}

	a, err := openApp(ctx, opts.RootOptions, cmd, f)
	if err != nil {
		return err
	}
	defer a.closeLogged()

	sample, err := a.recorder.Save(ctx, pos)
	a.metrics.RecordSave(ctx, "manual", err)
	if err != nil {
		return f.fail(ExitFailure, ErrCodeStorage, "failed to save sample", err)
	}

	if f.IsJSON() {
		return f.Success(sample)
	}
	fmtr := location.DefaultFormatter()
	f.OK("Saved sample #%d", sample.ID)
	f.Field("Latitude", fmtr.FormatCoordinate(sample.Latitude))
	f.Field("Longitude", fmtr.FormatCoordinate(sample.Longitude))
	f.Field("Accuracy", fmtr.FormatAccuracy(sample.Accuracy))
	f.Field("Time", fmtr.FormatTimestamp(sample.Timestamp))
	return nil
}

func describeSample(fmtr *location.Formatter, s location.Sample) string {
	return fmt.Sprintf("#%-5d %s  %s, %s  %s",
		s.ID,
		fmtr.FormatTimestamp(s.Timestamp),
		fmtr.FormatCoordinate(s.Latitude),
		fmtr.FormatCoordinate(s.Longitude),
		fmtr.FormatAccuracy(s.Accuracy))
}
