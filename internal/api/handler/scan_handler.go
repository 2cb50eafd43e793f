package handler

import (
	"context"
	"dormancy-monitor/internal/api/handler/dto"
	"dormancy-monitor/internal/batch"
	"dormancy-monitor/internal/dormancy"
	"dormancy-monitor/internal/pkg/apperrors"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
)

// ScanTrigger starts one dormancy scan. Implemented by batch.DormancyScanJob.
type ScanTrigger interface {
	Run(ctx context.Context) (*dormancy.AnalysisResult, error)
}

type ScanHandler struct {
	job    ScanTrigger
	logger *slog.Logger
}

func NewScanHandler(job ScanTrigger, logger *slog.Logger) *ScanHandler {
	return &ScanHandler{
		job:    job,
		logger: logger.With("component", "ScanHandler"),
	}
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		slog.Default().Error("Failed to marshal JSON response", "error", err)
		http.Error(w, `{"error":{"message":"Internal server error"}}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(response)
}

func respondError(w http.ResponseWriter, err error) {
	status, message := http.StatusInternalServerError, "An unexpected error occurred."

	switch {
	case errors.Is(err, batch.ErrRunInProgress):
		status, message = http.StatusConflict, err.Error()
	case errors.Is(err, apperrors.ErrUnauthorized), errors.Is(err, apperrors.ErrForbidden):
		status, message = http.StatusBadGateway, "Ledger API rejected our credentials."
	case errors.Is(err, apperrors.ErrRateLimited):
		status, message = http.StatusBadGateway, "Ledger API rate limit exhausted."
	case errors.Is(err, apperrors.ErrUpstream):
		status, message = http.StatusBadGateway, "Ledger API is unavailable."
	case errors.Is(err, apperrors.ErrConfiguration):
		message = err.Error()
	default:
		slog.Default().Error("Unhandled internal error", "error", err)
	}

	respondJSON(w, status, dto.ErrorResponse{Error: dto.ErrorDetail{Message: message}})
}

// RunScan triggers an on-demand dormancy analysis and returns the
// classified summary.
func (h *ScanHandler) RunScan(w http.ResponseWriter, r *http.Request) {
	h.logger.InfoContext(r.Context(), "Manual dormancy scan requested.")

	result, err := h.job.Run(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.NewScanResultResponse(result))
}
