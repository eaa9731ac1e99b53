package render

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"unicode"

	"gocv.io/x/gocv"

	"github.com/okian/wrinkles/internal/domain/model"
	"github.com/okian/wrinkles/pkg/logger"
)

// ErrWrite is returned when an annotated frame cannot be written.
var ErrWrite = errors.New("write frame failed")

// Sink presents one frame.
type Sink interface {
	Render(ctx context.Context, frame *gocv.Mat, report model.FrameReport) error
	Close() error
}

// Chain annotates each frame once and hands it to every sink in order.
type Chain struct {
	sinks []Sink
	opts  Options
}

// NewChain creates a Chain. With no sinks it only annotates.
func NewChain(opts Options, sinks ...Sink) *Chain {
	return &Chain{sinks: sinks, opts: opts}
}

// Render annotates frame and forwards it. Every sink sees the frame even if
// an earlier one asked to stop; the stop request is returned afterwards.
func (c *Chain) Render(ctx context.Context, frame *gocv.Mat, report model.FrameReport) error {
	Annotate(frame, report, c.opts)

	var stop error
	for _, s := range c.sinks {
		err := s.Render(ctx, frame, report)
		switch {
		case err == nil:
		case errors.Is(err, model.ErrStopRequested):
			stop = err
		default:
			return err
		}
	}
	return stop
}

// Close closes every sink.
func (c *Chain) Close() error {
	var errs []error
	for _, s := range c.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Window shows frames in a desktop window and watches for the quit key.
type Window struct {
	win     *gocv.Window
	quitKey int
}

// NewWindow opens a window with the given title. A zero quitKey disables
// the key check; closing the window still stops.
func NewWindow(title string, quitKey rune) *Window {
	return &Window{
		win:     gocv.NewWindow(title),
		quitKey: int(unicode.ToLower(quitKey)),
	}
}

// Render shows frame and polls the keyboard once.
func (w *Window) Render(_ context.Context, frame *gocv.Mat, _ model.FrameReport) error {
	w.win.IMShow(*frame)
	key := w.win.WaitKey(1)
	if w.quitKey != 0 && key >= 0 && int(unicode.ToLower(rune(key&0xFF))) == w.quitKey {
		return fmt.Errorf("%w: quit key pressed", model.ErrStopRequested)
	}
	if !w.win.IsOpen() {
		return fmt.Errorf("%w: window closed", model.ErrStopRequested)
	}
	return nil
}

// Close closes the window.
func (w *Window) Close() error {
	return w.win.Close()
}

// Files writes every frame as an image into a directory.
type Files struct {
	dir string
	ext string
	log logger.Logger
}

// NewFiles creates dir if needed. ext selects the image format, e.g. ".png".
func NewFiles(dir, ext string, log logger.Logger) (*Files, error) {
	if ext == "" {
		ext = ".png"
	}
	if log == nil {
		log = logger.OrNop("render")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil { //nolint:gosec // output directory is meant to be readable
		return nil, fmt.Errorf("%w: %w", ErrWrite, err)
	}
	return &Files{dir: dir, ext: ext, log: log}, nil
}

// Path returns the file a frame with the given sequence number is written to.
func (f *Files) Path(sequence uint64) string {
	return filepath.Join(f.dir, fmt.Sprintf("frame-%06d%s", sequence, f.ext))
}

// Render writes frame to Path(report.Sequence).
func (f *Files) Render(ctx context.Context, frame *gocv.Mat, report model.FrameReport) error {
	path := f.Path(report.Sequence)
	if !gocv.IMWrite(path, *frame) {
		return fmt.Errorf("%w: %s", ErrWrite, path)
	}
	f.log.Debug(ctx, "frame written", logger.String("path", path), logger.Int("faces", len(report.Faces)))
	return nil
}

// Close is a no-op.
func (f *Files) Close() error { return nil }
