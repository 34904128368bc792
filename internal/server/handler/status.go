package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/alanyoungcy/auctionbot/internal/domain"
)

// TickRunner is the part of the tick service the API drives.
type TickRunner interface {
	RunOnce(ctx context.Context) (domain.TickReport, error)
	Last() (domain.TickReport, bool)
}

// StatusHandler reports the run mode and the last tick, and lets operators
// force a tick.
type StatusHandler struct {
	mode      string
	startedAt time.Time
	ticks     TickRunner
	logger    *slog.Logger
}

// NewStatusHandler creates a StatusHandler.
func NewStatusHandler(mode string, ticks TickRunner, logger *slog.Logger) *StatusHandler {
	return &StatusHandler{mode: mode, startedAt: time.Now().UTC(), ticks: ticks, logger: logger}
}

// GetStatus responds with the mode, uptime and last tick report.
// GET /api/status
func (h *StatusHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"mode":           h.mode,
		"uptime_seconds": int64(time.Since(h.startedAt).Seconds()),
	}
	if last, ok := h.ticks.Last(); ok {
		resp["last_tick"] = last
	}
	writeJSON(w, http.StatusOK, resp)
}

// RunTick runs one tick synchronously and returns its report. A tick already
// running in another process answers 409.
// POST /api/tick
func (h *StatusHandler) RunTick(w http.ResponseWriter, r *http.Request) {
	rep, err := h.ticks.RunOnce(r.Context())
	if err != nil {
		status := errorStatus(err)
		if status == http.StatusInternalServerError {
			h.logger.ErrorContext(r.Context(), "handler: run tick failed", slog.String("error", err.Error()))
		}
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, rep)
}
