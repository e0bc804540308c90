package config

import (
	"log/slog"
	"time"

	"github.com/roach88/loctrack/internal/source"
	"github.com/roach88/loctrack/internal/store"
)

// Source kinds.
const (
	SourceReplay = "replay"
	SourceStatic = "static"
)

// Config is the complete loctrack configuration.
type Config struct {
	Database DatabaseConfig `json:"database" yaml:"database"`
	Tracking TrackingConfig `json:"tracking" yaml:"tracking"`
	Export   ExportConfig   `json:"export" yaml:"export"`
	Source   SourceConfig   `json:"source" yaml:"source"`
	Log      LogConfig      `json:"log" yaml:"log"`
}

// DatabaseConfig selects the SQLite file and driver.
type DatabaseConfig struct {
	Path   string `json:"path" yaml:"path" validate:"required"`
	Driver string `json:"driver" yaml:"driver" validate:"oneof=sqlite3 sqlite"`
}

// TrackingConfig holds state machine and source request options.
type TrackingConfig struct {
	SavePeriodMs  int    `json:"save_period_ms" yaml:"save_period_ms" validate:"gte=1000"`
	HighAccuracy  bool   `json:"high_accuracy" yaml:"high_accuracy"`
	TimeoutMs     uint32 `json:"timeout_ms" yaml:"timeout_ms"`
	MaxCacheAgeMs uint32 `json:"max_cache_age_ms" yaml:"max_cache_age_ms"`
}

// ExportConfig bounds export documents.
type ExportConfig struct {
	MaxRecords int `json:"max_records" yaml:"max_records" validate:"gte=0"`
}

// SourceConfig picks and parameterizes the position source.
type SourceConfig struct {
	Kind       string   `json:"kind" yaml:"kind" validate:"oneof=replay static"`
	TrackFile  string   `json:"track_file" yaml:"track_file" validate:"required_if=Kind replay"`
	IntervalMs int      `json:"interval_ms" yaml:"interval_ms" validate:"gt=0"`
	Loop       bool     `json:"loop" yaml:"loop"`
	Latitude   float64  `json:"latitude" yaml:"latitude" validate:"gte=-90,lte=90"`
	Longitude  float64  `json:"longitude" yaml:"longitude" validate:"gte=-180,lte=180"`
	Accuracy   *float64 `json:"accuracy,omitempty" yaml:"accuracy,omitempty" validate:"omitempty,gte=0"`
}

// LogConfig sets the log level.
type LogConfig struct {
	Level string `json:"level" yaml:"level" validate:"oneof=debug info warn error"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Database: DatabaseConfig{
			Path:   "loctrack.db",
			Driver: "sqlite3",
		},
		Tracking: TrackingConfig{
			SavePeriodMs:  30000,
			HighAccuracy:  true,
			TimeoutMs:     source.DefaultTimeoutMs,
			MaxCacheAgeMs: source.DefaultMaxCacheAgeMs,
		},
		Export: ExportConfig{
			MaxRecords: store.DefaultExportLimit,
		},
		Source: SourceConfig{
			Kind:       SourceStatic,
			IntervalMs: 1000,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// SavePeriod returns the backstop save interval.
func (t TrackingConfig) SavePeriod() time.Duration {
	return time.Duration(t.SavePeriodMs) * time.Millisecond
}

// SourceOptions returns the options passed to the position source.
func (t TrackingConfig) SourceOptions() source.Config {
	return source.Config{
		HighAccuracy:  t.HighAccuracy,
		TimeoutMs:     t.TimeoutMs,
		MaxCacheAgeMs: t.MaxCacheAgeMs,
	}
}

// Interval returns the delay between emitted fixes.
func (s SourceConfig) Interval() time.Duration {
	return time.Duration(s.IntervalMs) * time.Millisecond
}

// SlogLevel maps the configured level to a slog.Level.
func (l LogConfig) SlogLevel() slog.Level {
	switch l.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
