package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/paperfeed/paperfeed/api/types/v1alpha1"
)

// send writes one command into the mailbox and waits for the renderer's
// response, publishing feed events either side of the round trip
func (h *Handler) send(w http.ResponseWriter, r *http.Request, cmd v1alpha1.Command) {
	h.hub.Publish(v1alpha1.EventCommandSent, map[string]string{
		"kind": string(cmd.Kind),
		"id":   cmd.ID.String(),
	})

	resp, err := h.producer.Send(r.Context(), cmd, time.Duration(h.cfg.Mailbox.ResponseTimeout))
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.hub.Publish(v1alpha1.EventCommandAnswered, map[string]string{
		"kind":   string(cmd.Kind),
		"id":     cmd.ID.String(),
		"status": string(resp.Status),
	})

	if resp.Status != v1alpha1.StatusOK {
		h.respondJSON(w, http.StatusUnprocessableEntity, resp)
		return
	}
	h.respondJSON(w, http.StatusOK, resp)
}

// handleDisplay asks the renderer to show an item; an empty target means the
// current best candidate
func (h *Handler) handleDisplay(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Target string `json:"target"`
	}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.respondError(w, ErrInvalidRequest("invalid request body"))
			return
		}
	}
	cmd := v1alpha1.NewCommand(v1alpha1.CommandDisplay)
	cmd.Target = req.Target
	h.send(w, r, cmd)
}

// handleRefresh asks for an anti-ghosting redraw
func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	h.send(w, r, v1alpha1.NewCommand(v1alpha1.CommandRefresh))
}

// handleClear blanks the panel, optionally to a named color
func (h *Handler) handleClear(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Color string `json:"color"`
	}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.respondError(w, ErrInvalidRequest("invalid request body"))
			return
		}
	}
	cmd := v1alpha1.NewCommand(v1alpha1.CommandClear)
	cmd.Color = req.Color
	h.send(w, r, cmd)
}

// handleStatus reports renderer state; the query never touches hardware so
// it is answered even mid-render
func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	h.send(w, r, v1alpha1.NewCommand(v1alpha1.CommandQueryInfo))
}

// Playlist edits are owned by the renderer; the front end relays them
// through the mailbox so there is exactly one playlist writer.

func (h *Handler) handlePlaylistList(w http.ResponseWriter, r *http.Request) {
	h.send(w, r, v1alpha1.NewCommand(v1alpha1.CommandPlaylistList))
}

func (h *Handler) handlePlaylistCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, ErrInvalidRequest("invalid request body"))
		return
	}
	cmd := v1alpha1.NewCommand(v1alpha1.CommandPlaylistCreate)
	cmd.Playlist = &v1alpha1.PlaylistArgs{Name: req.Name}
	h.sendPlaylist(w, r, cmd)
}

func (h *Handler) handlePlaylistDelete(w http.ResponseWriter, r *http.Request) {
	cmd := v1alpha1.NewCommand(v1alpha1.CommandPlaylistDelete)
	cmd.Playlist = &v1alpha1.PlaylistArgs{Name: chi.URLParam(r, "name")}
	h.sendPlaylist(w, r, cmd)
}

func (h *Handler) handlePlaylistRename(w http.ResponseWriter, r *http.Request) {
	var req struct {
		NewName string `json:"newName"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, ErrInvalidRequest("invalid request body"))
		return
	}
	cmd := v1alpha1.NewCommand(v1alpha1.CommandPlaylistRename)
	cmd.Playlist = &v1alpha1.PlaylistArgs{Name: chi.URLParam(r, "name"), NewName: req.NewName}
	h.sendPlaylist(w, r, cmd)
}

func (h *Handler) handlePlaylistSetItems(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Items []string `json:"items"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, ErrInvalidRequest("invalid request body"))
		return
	}
	cmd := v1alpha1.NewCommand(v1alpha1.CommandPlaylistSetItems)
	cmd.Playlist = &v1alpha1.PlaylistArgs{Name: chi.URLParam(r, "name"), Items: req.Items}
	h.sendPlaylist(w, r, cmd)
}

func (h *Handler) handlePlaylistRandomize(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Randomize bool `json:"randomize"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, ErrInvalidRequest("invalid request body"))
		return
	}
	cmd := v1alpha1.NewCommand(v1alpha1.CommandPlaylistRandomize)
	cmd.Playlist = &v1alpha1.PlaylistArgs{Name: chi.URLParam(r, "name"), Randomize: req.Randomize}
	h.sendPlaylist(w, r, cmd)
}

func (h *Handler) handlePlaylistActivate(w http.ResponseWriter, r *http.Request) {
	cmd := v1alpha1.NewCommand(v1alpha1.CommandPlaylistActivate)
	cmd.Playlist = &v1alpha1.PlaylistArgs{Name: chi.URLParam(r, "name")}
	h.sendPlaylist(w, r, cmd)
}

func (h *Handler) handlePlaylistAdvance(w http.ResponseWriter, r *http.Request) {
	h.sendPlaylist(w, r, v1alpha1.NewCommand(v1alpha1.CommandPlaylistAdvance))
}

func (h *Handler) handlePlaylistResume(w http.ResponseWriter, r *http.Request) {
	h.sendPlaylist(w, r, v1alpha1.NewCommand(v1alpha1.CommandPlaylistResume))
}

// sendPlaylist relays a playlist command and announces the change on the
// event feed when it succeeds
func (h *Handler) sendPlaylist(w http.ResponseWriter, r *http.Request, cmd v1alpha1.Command) {
	resp, err := h.producer.Send(r.Context(), cmd, time.Duration(h.cfg.Mailbox.ResponseTimeout))
	if err != nil {
		h.respondError(w, err)
		return
	}
	if resp.Status != v1alpha1.StatusOK {
		h.respondJSON(w, http.StatusUnprocessableEntity, resp)
		return
	}
	if cmd.Kind != v1alpha1.CommandPlaylistList {
		h.hub.Publish(v1alpha1.EventPlaylistChanged, map[string]string{
			"kind": string(cmd.Kind),
		})
	}
	h.respondJSON(w, http.StatusOK, resp)
}
