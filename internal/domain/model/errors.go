package model

import "errors"

// Sentinel error kinds shared by the analysis pipeline and the frame loop.
// Callers match them with errors.Is.
var (
	// ErrInvalidInput marks a crop, bounding box or aggregate input that cannot be analyzed.
	// It is fatal for one face only.
	ErrInvalidInput = errors.New("invalid input")

	// ErrRegionOutOfBounds marks a landmark region that extends past the face bounds.
	// The analyzer clips and continues; it surfaces as a warning.
	ErrRegionOutOfBounds = errors.New("region out of bounds")

	// ErrEmptyRegion marks a region with no pixels left after clipping.
	ErrEmptyRegion = errors.New("empty region")

	// ErrSourceExhausted is terminal for the frame loop.
	ErrSourceExhausted = errors.New("frame source exhausted")

	// ErrFrameDropped reports a frame whose faces missed the frame deadline.
	ErrFrameDropped = errors.New("frame dropped")

	// ErrBackpressure reports a face that could not be queued for analysis.
	ErrBackpressure = errors.New("backpressure")

	// ErrStopRequested is returned by a sink when the operator asked to quit.
	ErrStopRequested = errors.New("stop requested")
)
