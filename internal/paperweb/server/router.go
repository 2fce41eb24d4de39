package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Router builds the full API surface
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(h.requestLogger)

	r.Get("/healthz", h.handleHealth)
	r.Get("/readyz", h.handleHealth)

	r.Route("/api/v1alpha1", func(r chi.Router) {
		r.Route("/content", func(r chi.Router) {
			r.With(h.limiters.UploadLimiter()).Post("/", h.handleUpload)
			r.With(h.limiters.UploadLimiter()).Put("/raw", h.handleRawUpload)
			r.With(h.limiters.UploadLimiter()).Post("/text", h.handleTextUpload)
			r.With(h.limiters.APIRequestLimiter()).Get("/", h.handleListContent)
			r.With(h.limiters.APIRequestLimiter()).Get("/latest", h.handleLatestContent)
			r.With(h.limiters.APIRequestLimiter()).Delete("/{name}", h.handleDeleteContent)
			r.With(h.limiters.APIRequestLimiter()).Post("/cleanup", h.handleCleanup)
		})

		r.Route("/display", func(r chi.Router) {
			r.With(h.limiters.CommandLimiter()).Post("/", h.handleDisplay)
			r.With(h.limiters.CommandLimiter()).Post("/refresh", h.handleRefresh)
			r.With(h.limiters.CommandLimiter()).Post("/clear", h.handleClear)
			r.With(h.limiters.APIRequestLimiter()).Get("/", h.handleStatus)
		})

		r.Route("/settings", func(r chi.Router) {
			r.Use(h.limiters.APIRequestLimiter())
			r.Get("/", h.handleGetSettings)
			r.Put("/", h.handlePutSettings)
		})

		r.Route("/playlists", func(r chi.Router) {
			r.With(h.limiters.APIRequestLimiter()).Get("/", h.handlePlaylistList)
			r.With(h.limiters.APIRequestLimiter()).Post("/", h.handlePlaylistCreate)
			r.With(h.limiters.CommandLimiter()).Post("/advance", h.handlePlaylistAdvance)
			r.With(h.limiters.CommandLimiter()).Post("/resume", h.handlePlaylistResume)
			r.Route("/{name}", func(r chi.Router) {
				r.With(h.limiters.APIRequestLimiter()).Delete("/", h.handlePlaylistDelete)
				r.With(h.limiters.APIRequestLimiter()).Post("/rename", h.handlePlaylistRename)
				r.With(h.limiters.APIRequestLimiter()).Put("/items", h.handlePlaylistSetItems)
				r.With(h.limiters.APIRequestLimiter()).Put("/randomize", h.handlePlaylistRandomize)
				r.With(h.limiters.CommandLimiter()).Post("/activate", h.handlePlaylistActivate)
			})
		})

		r.With(h.limiters.WebSocketLimiter()).Get("/events", h.hub.ServeHTTP)
	})

	return r
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// requestLogger logs one line per request
func (h *Handler) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		h.logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Str("requestId", middleware.GetReqID(r.Context())).
			Msg("request")
	})
}
