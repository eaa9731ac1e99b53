package api

import (
	"net/http"

	"github.com/okian/wrinkles/internal/domain/model"
)

// FramesDependencies defines the interface for frame report reads.
type FramesDependencies interface {
	LatestFrame() (model.FrameReport, bool)
}

// FramesHandler handles frame report requests.
type FramesHandler struct {
	deps FramesDependencies
}

// NewFramesHandler creates a new frames handler.
func NewFramesHandler(deps FramesDependencies) *FramesHandler {
	return &FramesHandler{deps: deps}
}

// HandleLatest handles GET /frames/latest requests.
func (h *FramesHandler) HandleLatest(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_latest_frame"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	report, ok := h.deps.LatestFrame()
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", opError(op, ErrNotFound, nil))
		return
	}
	writeJSON(w, http.StatusOK, newFrameView(report))
}
