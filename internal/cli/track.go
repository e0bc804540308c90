package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/loctrack/internal/config"
	"github.com/roach88/loctrack/internal/location"
	"github.com/roach88/loctrack/internal/source"
	"github.com/roach88/loctrack/internal/tracking"
)

// TrackOptions holds flags for the track command.
type TrackOptions struct {
	*RootOptions
	Duration time.Duration

	// IDGenerator allows overriding the session ID generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	IDGenerator tracking.SessionIDGenerator
}

// TrackSummary is printed when tracking ends.
type TrackSummary struct {
	Session   string `json:"session"`
	Status    string `json:"status"`
	Saved     uint64 `json:"saved"`
	Total     uint64 `json:"total"`
	LastError string `json:"last_error,omitempty"`
}

// NewTrackCommand creates the track command.
func NewTrackCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TrackOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "track",
		Short: "Record positions from the configured source",
		Long: `Start a tracking session and record positions until interrupted.

The first fix is saved immediately, every update from the source is saved,
and the last known fix is saved again on each backstop period.

Example:
  loctrack track --config loctrack.yaml
  loctrack track --duration 5m --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrack(opts, cmd)
		},
	}

	cmd.Flags().DurationVar(&opts.Duration, "duration", 0, "stop after this long (default: until interrupted)")

	return cmd
}

func runTrack(opts *TrackOptions, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)

	ctx, cancel := context.WithCancel(commandContext(cmd))
	defer cancel()
	if opts.Duration > 0 {
		ctx, cancel = context.WithTimeout(ctx, opts.Duration)
		defer cancel()
	}

	a, err := openApp(ctx, opts.RootOptions, cmd, f)
	if err != nil {
		return err
	}
	defer a.closeLogged()

	src, err := buildSource(a.cfg.Source)
	if err != nil {
		return f.fail(ExitCommandError, ErrCodeSource, "failed to build position source", err)
	}

	ids := opts.IDGenerator
	if ids == nil {
		ids = tracking.UUIDv7Generator{}
	}
	obs := newTrackObserver(f)
	tr := tracking.New(src, a.recorder,
		tracking.WithConfig(a.cfg.Tracking.SourceOptions()),
		tracking.WithSavePeriod(a.cfg.Tracking.SavePeriod()),
		tracking.WithObserver(obs),
		tracking.WithLogger(a.logger),
		tracking.WithMetrics(a.metrics),
		tracking.WithIDGenerator(ids))
	defer tr.Close()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			a.logger.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	runErr := make(chan error, 1)
	go func() { runErr <- tr.Run(ctx) }()

	a.logger.Info("tracking starting",
		"source", a.cfg.Source.Kind,
		"save_period", a.cfg.Tracking.SavePeriod())
	if !f.IsJSON() {
		fmt.Fprintln(f.Writer, "Tracking. Press Ctrl-C to stop.")
	}

	startErr := tr.Start(ctx)
	if startErr != nil && ctx.Err() == nil {
		cancel()
		<-runErr
		return f.fail(ExitFailure, ErrCodeSource, "failed to start tracking", startErr)
	}

	if err := <-runErr; err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return f.fail(ExitFailure, ErrCodeGeneric, "tracker error", err)
	}

	st := tr.Status()
	summary := TrackSummary{
		Session: st.ID,
		Status:  st.Status.String(),
		Saved:   st.SavedCount,
		Total:   a.recorder.Count(),
	}
	if st.LastError != nil {
		summary.LastError = st.LastError.Error()
	}
	a.logger.Info("tracking stopped", "saved", summary.Saved)

	if f.IsJSON() {
		return obs.emit(trackEvent{Event: "summary", Summary: &summary})
	}
	f.OK("Stopped. Saved %d samples this session (%d total).", summary.Saved, summary.Total)
	return nil
}

// buildSource creates the position source named by cfg.
func buildSource(cfg config.SourceConfig) (source.PositionSource, error) {
	switch cfg.Kind {
	case config.SourceReplay:
		track, err := source.LoadTrack(cfg.TrackFile)
		if err != nil {
			return nil, err
		}
		return source.NewReplay(track,
			source.WithInterval(cfg.Interval()),
			source.WithLoop(cfg.Loop)), nil
	case config.SourceStatic:
		return source.NewStatic(cfg.Latitude, cfg.Longitude, cfg.Accuracy, cfg.Interval()), nil
	default:
		return nil, fmt.Errorf("unknown source kind %q", cfg.Kind)
	}
}

// trackEvent is one JSON line of track output.
type trackEvent struct {
	Event    string             `json:"event"`
	Status   string             `json:"status,omitempty"`
	Trigger  string             `json:"trigger,omitempty"`
	Sample   *location.Sample   `json:"sample,omitempty"`
	Position *location.Position `json:"position,omitempty"`
	Kind     string             `json:"kind,omitempty"`
	Message  string             `json:"message,omitempty"`
	Summary  *TrackSummary      `json:"summary,omitempty"`
}

// trackObserver prints tracker notifications as they happen.
type trackObserver struct {
	mu   sync.Mutex
	f    *OutputFormatter
	enc  *json.Encoder
	fmtr *location.Formatter
}

func newTrackObserver(f *OutputFormatter) *trackObserver {
	return &trackObserver{f: f, enc: json.NewEncoder(f.Writer), fmtr: location.DefaultFormatter()}
}

func (o *trackObserver) emit(ev trackEvent) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.enc.Encode(ev)
}

func (o *trackObserver) text(w func(io.Writer)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	w(o.f.Writer)
}

func (o *trackObserver) StatusChanged(s tracking.Session) {
	if o.f.IsJSON() {
		_ = o.emit(trackEvent{Event: "status", Status: s.Status.String()})
		return
	}
	o.text(func(w io.Writer) { o.f.Field("Status", s.Status.String()) })
}

func (o *trackObserver) PositionUpdated(p location.Position) {
	if !o.f.Verbose {
		return
	}
	if o.f.IsJSON() {
		_ = o.emit(trackEvent{Event: "position", Position: &p})
		return
	}
	o.text(func(w io.Writer) {
		o.f.Field("Position", o.fmtr.FormatCoordinate(p.Latitude)+", "+o.fmtr.FormatCoordinate(p.Longitude))
	})
}

func (o *trackObserver) SampleSaved(s location.Sample, trigger tracking.Trigger) {
	if o.f.IsJSON() {
		_ = o.emit(trackEvent{Event: "saved", Trigger: string(trigger), Sample: &s})
		return
	}
	o.text(func(w io.Writer) {
		fmt.Fprintf(w, "saved %-7s %s\n", trigger, describeSample(o.fmtr, s))
	})
}

func (o *trackObserver) ErrorRaised(err error) {
	if o.f.IsJSON() {
		_ = o.emit(trackEvent{Event: "error", Kind: string(location.KindOf(err)), Message: err.Error()})
		return
	}
	o.text(func(w io.Writer) { errColor.Fprintf(w, "error: %v\n", err) })
}
