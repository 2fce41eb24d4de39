// Package server implements the upload front end's HTTP API. It never
// touches the panel: files go into the shared watched folder, commands go
// through the mailbox, and settings go into the shared store.
package server

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/paperfeed/paperfeed/internal/mailbox"
	"github.com/paperfeed/paperfeed/internal/paperd/content"
	"github.com/paperfeed/paperfeed/internal/paperweb/config"
	"github.com/paperfeed/paperfeed/internal/paperweb/events"
	"github.com/paperfeed/paperfeed/internal/paperweb/ratelimit"
	"github.com/paperfeed/paperfeed/internal/store"
)

// Handler carries the front end's dependencies
type Handler struct {
	cfg      *config.Config
	content  *content.Store
	db       *store.Store
	producer *mailbox.Producer
	hub      *events.Hub
	limiters *ratelimit.CommonRateLimiters
	logger   zerolog.Logger
}

// NewHandler assembles the HTTP handler
func NewHandler(
	cfg *config.Config,
	contentStore *content.Store,
	db *store.Store,
	producer *mailbox.Producer,
	hub *events.Hub,
	limiters *ratelimit.CommonRateLimiters,
	logger zerolog.Logger,
) *Handler {
	return &Handler{
		cfg:      cfg,
		content:  contentStore,
		db:       db,
		producer: producer,
		hub:      hub,
		limiters: limiters,
		logger:   logger.With().Str("component", "paperweb-http").Logger(),
	}
}

func (h *Handler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			h.logger.Error().Err(err).Msg("failed to encode response")
		}
	}
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	code, msg := statusOf(err)
	if code >= http.StatusInternalServerError {
		h.logger.Error().Err(err).Msg("request failed")
	}
	h.respondJSON(w, code, map[string]string{"error": msg})
}
