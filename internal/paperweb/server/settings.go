package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/paperfeed/paperfeed/api/types/v1alpha1"
	"github.com/paperfeed/paperfeed/internal/paperd/errors"
)

// defaultSettings mirrors the renderer's documented defaults for the first
// GET before anything has been saved
func defaultSettings() v1alpha1.Settings {
	return v1alpha1.Settings{
		Orientation:         "landscape",
		AutoDisplay:         true,
		ThrottleEnabled:     true,
		MinInterval:         30 * time.Second,
		StartupDelay:        60 * time.Second,
		StartupTimerEnabled: true,
		RefreshInterval:     24 * time.Hour,
		RefreshTimerEnabled: true,
		SleepMode:           true,
		PlaylistEnabled:     false,
		RotationInterval:    time.Hour,
		OverrideTimeout:     30 * time.Minute,
	}
}

var validOrientations = map[string]bool{
	"landscape":         true,
	"portrait":          true,
	"landscape-flipped": true,
	"portrait-flipped":  true,
}

// handleGetSettings returns the stored settings, or the defaults when
// nothing has been saved yet
func (h *Handler) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.db.LoadSettings()
	if err != nil {
		if errors.IsNotFound(err) {
			h.respondJSON(w, http.StatusOK, defaultSettings())
			return
		}
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, settings)
}

// handlePutSettings validates and stores new settings, then tells the
// renderer to reload. A renderer that is down still gets the new settings at
// its next startup, so a relay failure is reported but not fatal.
func (h *Handler) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	var settings v1alpha1.Settings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		h.respondError(w, ErrInvalidRequest("invalid request body"))
		return
	}
	if err := validateSettings(settings); err != nil {
		h.respondError(w, err)
		return
	}

	if err := h.db.SaveSettings(settings); err != nil {
		h.respondError(w, err)
		return
	}
	h.hub.Publish(v1alpha1.EventSettingsChanged, map[string]string{
		"orientation": settings.Orientation,
	})

	resp, err := h.producer.Send(r.Context(), v1alpha1.NewCommand(v1alpha1.CommandReloadSettings), time.Duration(h.cfg.Mailbox.ResponseTimeout))
	if err != nil {
		h.logger.Warn().Err(err).Msg("settings saved but renderer not reloaded")
		h.respondJSON(w, http.StatusAccepted, map[string]string{
			"message": "settings saved; renderer reload pending",
		})
		return
	}
	if resp.Status != v1alpha1.StatusOK {
		h.respondJSON(w, http.StatusUnprocessableEntity, resp)
		return
	}
	h.respondJSON(w, http.StatusOK, settings)
}

func validateSettings(s v1alpha1.Settings) error {
	if !validOrientations[s.Orientation] {
		return ErrInvalidRequest("invalid orientation")
	}
	if s.ThrottleEnabled && s.MinInterval < time.Second {
		return ErrInvalidRequest("minInterval must be at least 1 second")
	}
	if s.StartupTimerEnabled && s.StartupDelay < time.Second {
		return ErrInvalidRequest("startupDelay must be at least 1 second")
	}
	if s.RefreshTimerEnabled && s.RefreshInterval < time.Minute {
		return ErrInvalidRequest("refreshInterval must be at least 1 minute")
	}
	if s.PlaylistEnabled && s.RotationInterval < 10*time.Second {
		return ErrInvalidRequest("rotationInterval must be at least 10 seconds")
	}
	if s.OverrideTimeout < 0 {
		return ErrInvalidRequest("overrideTimeout cannot be negative")
	}
	return nil
}
