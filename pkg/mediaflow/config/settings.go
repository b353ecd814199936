package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/randalmurphal/mediaflow/pkg/mediaflow/graph"
)

// Setting keys.
const (
	KeyHistoryCapacity  = "history_capacity"
	KeyVideoCooldown    = "video_cooldown"
	KeyStitchIterations = "stitch_iterations"
	KeyPasteOffset      = "paste_offset"
	KeyDefaultEdgeStyle = "default_edge_style"
	KeySQLitePath       = "sqlite_path"
	KeyOutputFolder     = "output_folder"
)

// Defaults.
const (
	DefaultHistoryCapacity  = 50
	DefaultVideoCooldown    = 2 * time.Second
	DefaultStitchIterations = 1
	DefaultPasteOffset      = 50.0
)

// ErrInvalidSettings is returned by Validate.
var ErrInvalidSettings = errors.New("invalid settings")

// Settings is the engine configuration.
type Settings struct {
	HistoryCapacity  int
	VideoCooldown    time.Duration
	StitchIterations int
	PasteOffset      float64
	DefaultEdgeStyle graph.EdgeStyle
	SQLitePath       string
	OutputFolder     string
}

// DefaultSettings returns the settings used when no file is given.
func DefaultSettings() Settings {
	return Settings{
		HistoryCapacity:  DefaultHistoryCapacity,
		VideoCooldown:    DefaultVideoCooldown,
		StitchIterations: DefaultStitchIterations,
		PasteOffset:      DefaultPasteOffset,
		DefaultEdgeStyle: graph.EdgeStyleBezier,
	}
}

// FromConfig extracts Settings, using the defaults for absent keys.
func FromConfig(c Config) Settings {
	d := DefaultSettings()
	return Settings{
		HistoryCapacity:  c.Int(KeyHistoryCapacity, d.HistoryCapacity),
		VideoCooldown:    c.Duration(KeyVideoCooldown, d.VideoCooldown),
		StitchIterations: c.Int(KeyStitchIterations, d.StitchIterations),
		PasteOffset:      c.Float(KeyPasteOffset, d.PasteOffset),
		DefaultEdgeStyle: graph.EdgeStyle(c.String(KeyDefaultEdgeStyle, string(d.DefaultEdgeStyle))),
		SQLitePath:       c.String(KeySQLitePath, ""),
		OutputFolder:     c.String(KeyOutputFolder, ""),
	}
}

// Validate checks value ranges.
func (s Settings) Validate() error {
	if s.HistoryCapacity < 1 {
		return fmt.Errorf("%w: %s must be positive, got %d", ErrInvalidSettings, KeyHistoryCapacity, s.HistoryCapacity)
	}
	if s.VideoCooldown < 0 {
		return fmt.Errorf("%w: %s must not be negative", ErrInvalidSettings, KeyVideoCooldown)
	}
	if s.StitchIterations < 1 {
		return fmt.Errorf("%w: %s must be positive, got %d", ErrInvalidSettings, KeyStitchIterations, s.StitchIterations)
	}
	switch s.DefaultEdgeStyle {
	case graph.EdgeStyleBezier, graph.EdgeStyleSmoothStep, graph.EdgeStyleStep, graph.EdgeStyleStraight:
	default:
		return fmt.Errorf("%w: unknown %s %q", ErrInvalidSettings, KeyDefaultEdgeStyle, s.DefaultEdgeStyle)
	}
	return nil
}

// PasteDelta returns the paste offset as a position.
func (s Settings) PasteDelta() graph.Position {
	return graph.Position{X: s.PasteOffset, Y: s.PasteOffset}
}
