package queue

import (
	"image"
	"time"

	"gocv.io/x/gocv"

	"github.com/okian/wrinkles/internal/domain/model"
)

// Job is one detected face waiting for analysis. The job owns Crop until
// Complete is called.
type Job struct {
	FrameID string
	Index   int
	Box     image.Rectangle
	Crop    gocv.Mat

	// Done is closed when the frame that produced the job stops waiting.
	Done <-chan struct{}

	// Results receives exactly one FaceResult. It must be buffered for every
	// job of the frame so that Complete never blocks.
	Results chan<- model.FaceResult

	EnqueuedAt time.Time
}

// Abandoned reports whether the frame has stopped waiting for this job.
func (j *Job) Abandoned() bool {
	if j.Done == nil {
		return false
	}
	select {
	case <-j.Done:
		return true
	default:
		return false
	}
}

// Complete releases the crop and delivers res. Index and Box are filled in
// from the job.
func (j *Job) Complete(res model.FaceResult) {
	_ = j.Crop.Close()
	res.Index = j.Index
	res.Box = j.Box
	if j.Results == nil {
		return
	}
	select {
	case j.Results <- res:
	default:
	}
}
