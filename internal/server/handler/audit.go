package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/alanyoungcy/auctionbot/internal/domain"
)

// AuditHandler exposes the audit log and the tick report stream.
type AuditHandler struct {
	audit  domain.AuditStore
	bus    domain.EventBus
	stream string
	logger *slog.Logger
}

// NewAuditHandler creates an AuditHandler. bus may be nil, in which case the
// tick history endpoint answers 404.
func NewAuditHandler(audit domain.AuditStore, bus domain.EventBus, stream string, logger *slog.Logger) *AuditHandler {
	return &AuditHandler{audit: audit, bus: bus, stream: stream, logger: logger}
}

// ListAudit returns audit entries newest first.
// GET /api/audit?limit=50&offset=0
func (h *AuditHandler) ListAudit(w http.ResponseWriter, r *http.Request) {
	entries, err := h.audit.List(r.Context(), parseListOpts(r))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list audit failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to list audit entries")
		return
	}
	if entries == nil {
		entries = []domain.AuditEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

// ListTicks pages through archived tick reports on the bus stream.
// GET /api/ticks?after=0&count=20
func (h *AuditHandler) ListTicks(w http.ResponseWriter, r *http.Request) {
	if h.bus == nil {
		writeError(w, http.StatusNotFound, "tick history requires redis")
		return
	}
	after := r.URL.Query().Get("after")
	if after == "" {
		after = "0"
	}
	count := 20
	if v, err := strconv.Atoi(r.URL.Query().Get("count")); err == nil && v > 0 {
		count = min(v, 200)
	}

	msgs, err := h.bus.StreamRead(r.Context(), h.stream, after, count)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: read tick stream failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to read tick history")
		return
	}
	out := make([]map[string]any, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, map[string]any{"stream_id": m.ID, "report": rawJSON(m.Payload)})
	}
	writeJSON(w, http.StatusOK, map[string]any{"ticks": out})
}

// rawJSON embeds an already encoded payload verbatim.
type rawJSON []byte

func (r rawJSON) MarshalJSON() ([]byte, error) {
	if len(r) == 0 {
		return []byte("null"), nil
	}
	return r, nil
}
