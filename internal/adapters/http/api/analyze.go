package api

import (
	"context"
	"errors"
	"io"
	"net/http"

	"gocv.io/x/gocv"

	"github.com/okian/wrinkles/internal/domain/model"
)

const defaultMaxUploadBytes = 10 << 20

// AnalyzeDependencies defines the interface for single crop analysis.
type AnalyzeDependencies interface {
	AnalyzeCrop(ctx context.Context, crop gocv.Mat) (model.WrinkleReport, error)
}

// AnalyzeHandler analyzes an uploaded face crop.
type AnalyzeHandler struct {
	deps     AnalyzeDependencies
	maxBytes int64
}

// NewAnalyzeHandler creates a new analyze handler accepting bodies up to
// maxBytes.
func NewAnalyzeHandler(deps AnalyzeDependencies, maxBytes int64) *AnalyzeHandler {
	if maxBytes <= 0 {
		maxBytes = defaultMaxUploadBytes
	}
	return &AnalyzeHandler{deps: deps, maxBytes: maxBytes}
}

// HandleAnalyze handles POST /analyze requests. The body is an encoded image
// (JPEG, PNG, ...) holding one face crop.
func (h *AnalyzeHandler) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_analyze"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBytes))
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeError(w, http.StatusRequestEntityTooLarge, "too_large", opError(op, ErrTooLarge, err))
		return
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", opError(op, ErrBadRequest, err))
		return
	}
	if len(body) == 0 {
		writeError(w, http.StatusBadRequest, "bad_request", opError(op, ErrBadRequest, errors.New("empty body")))
		return
	}

	crop, err := gocv.IMDecode(body, gocv.IMReadColor)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", opError(op, ErrBadRequest, err))
		return
	}
	defer crop.Close()
	if crop.Empty() {
		writeError(w, http.StatusBadRequest, "bad_request", opError(op, ErrBadRequest, errors.New("undecodable image")))
		return
	}

	report, err := h.deps.AnalyzeCrop(r.Context(), crop)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, newReportView(report))
	case errors.Is(err, model.ErrBackpressure):
		writeError(w, http.StatusTooManyRequests, "backpressure", opError(op, ErrBackpressure, err))
	case errors.Is(err, model.ErrInvalidInput), errors.Is(err, model.ErrEmptyRegion):
		writeError(w, http.StatusUnprocessableEntity, "invalid_input", opError(op, ErrBadRequest, err))
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, "cancelled", opError(op, ErrUnavailable, err))
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", opError(op, ErrUnavailable, err))
	}
}
