// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Defaults live in New; Load layers a YAML file and env vars on top.
// - Validation errors wrap ErrInvalidConfig.
package config

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/okian/wrinkles/internal/domain/edge"
	"github.com/okian/wrinkles/internal/domain/landmark"
	"github.com/okian/wrinkles/internal/domain/model"
	"github.com/okian/wrinkles/internal/domain/normalize"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the operational HTTP listen address, e.g. ":9090".
	Addr string `koanf:"addr"`

	// WorkerCount sets the number of face analysis workers.
	WorkerCount int `koanf:"worker_count"`

	// QueueSize bounds the in-memory face job queue.
	QueueSize int `koanf:"queue_size"`

	// FrameDeadlineMS bounds how long a frame waits for its faces. 0 disables the deadline.
	FrameDeadlineMS int `koanf:"frame_deadline_ms"`

	// CanonicalWidth and CanonicalHeight set the normalized face size.
	CanonicalWidth  int `koanf:"canonical_width"`
	CanonicalHeight int `koanf:"canonical_height"`

	// CameraDevice is the capture device id used when Images is empty.
	CameraDevice int `koanf:"camera_device"`

	// Images lists still image files analyzed instead of the camera.
	Images []string `koanf:"images"`

	// CascadePath points at the Haar cascade XML for frontal faces.
	CascadePath string `koanf:"cascade_path"`

	// DetectorScaleFactor and DetectorMinNeighbors tune the cascade.
	DetectorScaleFactor  float64 `koanf:"detector_scale_factor"`
	DetectorMinNeighbors int     `koanf:"detector_min_neighbors"`

	// WindowTitle names the display window. Empty runs headless.
	WindowTitle string `koanf:"window_title"`

	// QuitKey stops the live loop when pressed in the window.
	QuitKey string `koanf:"quit_key"`

	// RenderEdges paints region edge maps into the overlay.
	RenderEdges bool `koanf:"render_edges"`

	// OutputDir receives annotated frames when set.
	OutputDir string `koanf:"output_dir"`

	// Thresholds maps landmark names to edge detector thresholds.
	Thresholds map[string]model.ThresholdPair `koanf:"thresholds"`
}

// New creates a Config with the reference policy defaults.
func New() *Config {
	th := edge.DefaultThresholds()
	thresholds := make(map[string]model.ThresholdPair, len(th))
	for i, name := range landmark.Names() {
		thresholds[name] = th[i]
	}

	return &Config{
		LogLevel:             "info",
		LogFormat:            "text",
		Addr:                 ":9090",
		WorkerCount:          runtime.NumCPU(),
		QueueSize:            64,
		FrameDeadlineMS:      500,
		CanonicalWidth:       normalize.DefaultWidth,
		CanonicalHeight:      normalize.DefaultHeight,
		CameraDevice:         0,
		CascadePath:          "haarcascade_frontalface_default.xml",
		DetectorScaleFactor:  1.3,
		DetectorMinNeighbors: 5,
		WindowTitle:          "Wrinkle Detection",
		QuitKey:              "q",
		RenderEdges:          false,
		Thresholds:           thresholds,
	}
}

// FrameDeadline returns FrameDeadlineMS as a duration.
func (c *Config) FrameDeadline() time.Duration {
	return time.Duration(c.FrameDeadlineMS) * time.Millisecond
}

// ThresholdList returns the thresholds in landmark layout order.
func (c *Config) ThresholdList() ([]model.ThresholdPair, error) {
	out := make([]model.ThresholdPair, 0, landmark.Count)
	for _, name := range landmark.Names() {
		t, ok := c.Thresholds[name]
		if !ok {
			return nil, fmt.Errorf("%w: missing thresholds for %s", ErrInvalidConfig, name)
		}
		if err := edge.ValidateThresholds(t); err != nil {
			return nil, fmt.Errorf("%w: thresholds for %s: %w", ErrInvalidConfig, name, err)
		}
		out = append(out, t)
	}
	return out, nil
}

// Validate checks the configuration for values the service cannot run with.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.WorkerCount < 1:
		return fmt.Errorf("%w: worker_count must be positive, got %d", ErrInvalidConfig, c.WorkerCount)
	case c.QueueSize < 1:
		return fmt.Errorf("%w: queue_size must be positive, got %d", ErrInvalidConfig, c.QueueSize)
	case c.FrameDeadlineMS < 0:
		return fmt.Errorf("%w: frame_deadline_ms must not be negative, got %d", ErrInvalidConfig, c.FrameDeadlineMS)
	case c.CanonicalWidth < 1 || c.CanonicalHeight < 1:
		return fmt.Errorf("%w: canonical size must be positive, got %dx%d", ErrInvalidConfig, c.CanonicalWidth, c.CanonicalHeight)
	case c.DetectorScaleFactor <= 1:
		return fmt.Errorf("%w: detector_scale_factor must be above 1, got %g", ErrInvalidConfig, c.DetectorScaleFactor)
	case c.DetectorMinNeighbors < 0:
		return fmt.Errorf("%w: detector_min_neighbors must not be negative", ErrInvalidConfig)
	case len([]rune(c.QuitKey)) > 1:
		return fmt.Errorf("%w: quit_key must be a single character, got %q", ErrInvalidConfig, c.QuitKey)
	}
	switch strings.ToLower(c.LogFormat) {
	case "", "text", "json":
	default:
		return fmt.Errorf("%w: log_format must be text or json, got %q", ErrInvalidConfig, c.LogFormat)
	}
	for name := range c.Thresholds {
		if !knownLandmark(name) {
			return fmt.Errorf("%w: thresholds for unknown landmark %q", ErrInvalidConfig, name)
		}
	}
	if _, err := c.ThresholdList(); err != nil {
		return err
	}
	return nil
}

func knownLandmark(name string) bool {
	for _, n := range landmark.Names() {
		if n == name {
			return true
		}
	}
	return false
}
