package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/alanyoungcy/auctionbot/internal/domain"
	"github.com/alanyoungcy/auctionbot/internal/service"
)

// ChannelAdmin is the administrative surface the channel endpoints use.
type ChannelAdmin interface {
	Snapshot(ch domain.ChannelID) (domain.ChannelConfig, error)
	Snapshots() []domain.ChannelConfig
	Execute(ctx context.Context, ch domain.ChannelID, cmd service.Command) (service.CommandResult, error)
}

// ListingReader is the read side of the ledger.
type ListingReader interface {
	ListListings(ctx context.Context, ch domain.ChannelID, f domain.ListingFilter) ([]domain.Listing, error)
}

// ChannelHandler serves channel configuration, commands and listings.
type ChannelHandler struct {
	admin   ChannelAdmin
	ledger  ListingReader
	botGUID int64
	logger  *slog.Logger
}

// NewChannelHandler creates a ChannelHandler.
func NewChannelHandler(admin ChannelAdmin, ledger ListingReader, botGUID int64, logger *slog.Logger) *ChannelHandler {
	return &ChannelHandler{admin: admin, ledger: ledger, botGUID: botGUID, logger: logger}
}

// ListChannels returns every live channel configuration.
// GET /api/channels
func (h *ChannelHandler) ListChannels(w http.ResponseWriter, r *http.Request) {
	cfgs := h.admin.Snapshots()
	if cfgs == nil {
		cfgs = []domain.ChannelConfig{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"channels": cfgs})
}

// GetChannel returns one channel configuration.
// GET /api/channels/{channel}
func (h *ChannelHandler) GetChannel(w http.ResponseWriter, r *http.Request) {
	ch, ok := channelParam(w, r)
	if !ok {
		return
	}
	cfg, err := h.admin.Snapshot(ch)
	if err != nil {
		writeError(w, errorStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

// RunCommand applies an administrative command.
// POST /api/channels/{channel}/commands
// {"command":"maxprice","quality":"blue","args":["1500"]}
func (h *ChannelHandler) RunCommand(w http.ResponseWriter, r *http.Request) {
	ch, ok := channelParam(w, r)
	if !ok {
		return
	}
	var cmd service.Command
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&cmd); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if cmd.Name == "" {
		writeError(w, http.StatusBadRequest, "command is required")
		return
	}

	res, err := h.admin.Execute(r.Context(), ch, cmd)
	if err != nil {
		status := errorStatus(err)
		if status == http.StatusInternalServerError {
			h.logger.ErrorContext(r.Context(), "handler: command failed",
				slog.String("channel", ch.String()),
				slog.String("command", cmd.Name),
				slog.String("error", err.Error()),
			)
		}
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ListListings returns active listings in a channel. ?owner=bot restricts
// them to the bot's own.
// GET /api/channels/{channel}/listings
func (h *ChannelHandler) ListListings(w http.ResponseWriter, r *http.Request) {
	ch, ok := channelParam(w, r)
	if !ok {
		return
	}
	f := domain.ListingFilter{ActiveAt: time.Now()}
	if r.URL.Query().Get("owner") == "bot" {
		f.Owner = h.botGUID
	}
	listings, err := h.ledger.ListListings(r.Context(), ch, f)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list listings failed",
			slog.String("channel", ch.String()),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list listings")
		return
	}

	opts := parseListOpts(r)
	total := len(listings)
	start := min(opts.Offset, total)
	end := min(start+opts.Limit, total)
	page := listings[start:end]
	if page == nil {
		page = []domain.Listing{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"total": total, "listings": page})
}
