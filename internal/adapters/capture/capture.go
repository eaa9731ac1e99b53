// Package capture provides frame sources: a live camera and still images
// read from disk.
package capture

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gocv.io/x/gocv"

	"github.com/okian/wrinkles/internal/domain/model"
	"github.com/okian/wrinkles/pkg/logger"
)

// Empty camera reads are retried maxEmptyReads times, emptyReadDelay
// apart, before the camera counts as exhausted. A camera still warming up
// gets about 1.5s.
const (
	maxEmptyReads  = 30
	emptyReadDelay = 50 * time.Millisecond
)

// Sentinel errors for frame sources.
var (
	ErrOpenCamera = errors.New("open camera failed")
	ErrNoImages   = errors.New("no images found")
)

// imageExts lists the file extensions Images picks up from directories.
var imageExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".bmp":  true,
	".tif":  true,
	".tiff": true,
	".webp": true,
}

// Option configures a source.
type Option func(*options)

type options struct {
	log            logger.Logger
	maxEmptyReads  int
	emptyReadDelay time.Duration
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

// WithMaxEmptyReads sets how many consecutive empty camera reads are
// tolerated.
func WithMaxEmptyReads(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxEmptyReads = n
		}
	}
}

// WithEmptyReadDelay sets the pause between consecutive empty camera
// reads. Zero retries immediately.
func WithEmptyReadDelay(d time.Duration) Option {
	return func(o *options) {
		if d >= 0 {
			o.emptyReadDelay = d
		}
	}
}

func newOptions(opts []Option) options {
	o := options{log: logger.OrNop("capture"), maxEmptyReads: maxEmptyReads, emptyReadDelay: emptyReadDelay}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// frameReader is the part of gocv.VideoCapture a Camera uses.
type frameReader interface {
	Read(m *gocv.Mat) bool
	Close() error
}

// Camera reads frames from a video capture device.
type Camera struct {
	device int
	vc     frameReader
	opts   options
}

// OpenCamera opens the capture device with the given id.
func OpenCamera(device int, opts ...Option) (*Camera, error) {
	vc, err := gocv.OpenVideoCapture(device)
	if err != nil {
		return nil, fmt.Errorf("%w: device %d: %w", ErrOpenCamera, device, err)
	}
	return &Camera{device: device, vc: vc, opts: newOptions(opts)}, nil
}

// Read fills frame with the next camera frame. Empty reads are retried
// after a short pause; once too many happen in a row the camera is reported
// as exhausted.
func (c *Camera) Read(ctx context.Context, frame *gocv.Mat) error {
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for empty := 0; empty < c.opts.maxEmptyReads; empty++ {
		if empty > 0 && c.opts.emptyReadDelay > 0 {
			if timer == nil {
				timer = time.NewTimer(c.opts.emptyReadDelay)
			} else {
				timer.Reset(c.opts.emptyReadDelay)
			}
			select {
			case <-ctx.Done():
				return fmt.Errorf("camera %d: %w", c.device, ctx.Err())
			case <-timer.C:
			}
		}
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("camera %d: %w", c.device, err)
		}
		if c.vc.Read(frame) && !frame.Empty() {
			if empty > 0 {
				c.opts.log.Debug(ctx, "camera delivered after empty reads",
					logger.Int("device", c.device), logger.Int("empty_reads", empty))
			}
			return nil
		}
	}
	return fmt.Errorf("%w: camera %d returned %d empty frames", model.ErrSourceExhausted, c.device, c.opts.maxEmptyReads)
}

// Close releases the device.
func (c *Camera) Close() error {
	if err := c.vc.Close(); err != nil {
		return fmt.Errorf("close camera %d: %w", c.device, err)
	}
	return nil
}

// Images serves still images from disk, one per Read, in the given order.
// Directories are expanded to the image files they contain, sorted by name.
type Images struct {
	paths []string
	next  int
	opts  options
}

// NewImages resolves paths into the list of image files to serve.
func NewImages(paths []string, opts ...Option) (*Images, error) {
	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("images: %w", err)
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}
		entries, err := os.ReadDir(p)
		if err != nil {
			return nil, fmt.Errorf("images: %w", err)
		}
		var found []string
		for _, e := range entries {
			if !e.IsDir() && imageExts[strings.ToLower(filepath.Ext(e.Name()))] {
				found = append(found, filepath.Join(p, e.Name()))
			}
		}
		sort.Strings(found)
		files = append(files, found...)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w in %v", ErrNoImages, paths)
	}
	return &Images{paths: files, opts: newOptions(opts)}, nil
}

// Len returns the number of images to serve.
func (s *Images) Len() int { return len(s.paths) }

// Read fills frame with the next readable image. Unreadable files are
// logged and skipped.
func (s *Images) Read(ctx context.Context, frame *gocv.Mat) error {
	for s.next < len(s.paths) {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("images: %w", err)
		}
		path := s.paths[s.next]
		s.next++

		img := gocv.IMRead(path, gocv.IMReadColor)
		if img.Empty() {
			_ = img.Close()
			s.opts.log.Warn(ctx, "skipping unreadable image", logger.String("path", path))
			continue
		}
		img.CopyTo(frame)
		_ = img.Close()
		s.opts.log.Debug(ctx, "image loaded", logger.String("path", path))
		return nil
	}
	return fmt.Errorf("%w: all %d images read", model.ErrSourceExhausted, len(s.paths))
}

// Close is a no-op; images are released after each Read.
func (s *Images) Close() error { return nil }
