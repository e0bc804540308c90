package source

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/loctrack/internal/location"
)

// Track is a recorded sequence of fixes.
type Track struct {
	Name  string `yaml:"name"`
	Fixes []Fix  `yaml:"fixes"`
}

// Fix is one entry of a track. An entry with Error set makes the source
// fail with that code instead of producing a position.
type Fix struct {
	Latitude  float64  `yaml:"latitude"`
	Longitude float64  `yaml:"longitude"`
	Accuracy  *float64 `yaml:"accuracy,omitempty"`
	Timestamp int64    `yaml:"timestamp,omitempty"` // epoch millis; 0 means "now"
	Error     string   `yaml:"error,omitempty"`
	Message   string   `yaml:"message,omitempty"`
}

// LoadTrack reads and parses a YAML track file.
func LoadTrack(path string) (*Track, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read track file: %w", err)
	}
	track, err := ParseTrack(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return track, nil
}

// ParseTrack parses YAML track content.
func ParseTrack(data []byte) (*Track, error) {
	var track Track
	if err := yaml.Unmarshal(data, &track); err != nil {
		return nil, fmt.Errorf("parse track YAML: %w", err)
	}
	if len(track.Fixes) == 0 {
		return nil, fmt.Errorf("track has no fixes")
	}
	for i, fix := range track.Fixes {
		if fix.Error == "" {
			continue
		}
		if _, err := ParseCode(fix.Error); err != nil {
			return nil, fmt.Errorf("fix %d: %w", i, err)
		}
	}
	return &track, nil
}

// resolve turns a fix into a position or a *PositionError.
func (f Fix) resolve(nowMs int64) (location.Position, error) {
	if f.Error != "" {
		code, err := ParseCode(f.Error)
		if err != nil {
			return location.Position{}, err
		}
		msg := f.Message
		if msg == "" {
			msg = "replayed failure"
		}
		return location.Position{}, &PositionError{Code: code, Message: msg}
	}
	ts := f.Timestamp
	if ts == 0 {
		ts = nowMs
	}
	return location.Position{
		Latitude:  f.Latitude,
		Longitude: f.Longitude,
		Accuracy:  location.CloneAccuracy(f.Accuracy),
		Timestamp: ts,
	}, nil
}
