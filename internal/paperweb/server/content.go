package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/paperfeed/paperfeed/api/types/v1alpha1"
	"github.com/paperfeed/paperfeed/internal/paperd/content"
)

// handleUpload stores a multipart form upload (field "file") in the watched
// folder. The renderer's watcher picks it up from there.
func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(h.cfg.Content.MaxUploadSize); err != nil {
		h.respondError(w, ErrTooLarge("upload exceeds size limit"))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		h.respondError(w, ErrInvalidRequest("missing file field"))
		return
	}
	defer file.Close()

	h.storeUpload(w, header.Filename, file)
}

// handleRawUpload stores a raw request body under the X-Filename header,
// for curl-style producers that don't speak multipart
func (h *Handler) handleRawUpload(w http.ResponseWriter, r *http.Request) {
	name := r.Header.Get("X-Filename")
	if name == "" {
		h.respondError(w, ErrInvalidRequest("missing X-Filename header"))
		return
	}
	body := http.MaxBytesReader(w, r.Body, h.cfg.Content.MaxUploadSize)
	defer body.Close()

	h.storeUpload(w, name, body)
}

// handleTextUpload stores literal text as a .txt item
func (h *Handler) handleTextUpload(w http.ResponseWriter, r *http.Request) {
	var req v1alpha1.TextUploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, ErrInvalidRequest("invalid request body"))
		return
	}
	if req.Content == "" {
		h.respondError(w, ErrInvalidRequest("empty text content"))
		return
	}
	// the stored name gets its timestamp suffix in storeUpload
	name := req.Filename
	if name == "" {
		name = "text.txt"
	}
	if !strings.HasSuffix(strings.ToLower(name), ".txt") {
		name += ".txt"
	}

	h.storeUpload(w, name, strings.NewReader(req.Content))
}

// storeUpload validates the name and writes the payload atomically into the
// watched folder. The stored name carries a unix-timestamp suffix so a
// re-upload of the same file never overwrites the earlier item.
func (h *Handler) storeUpload(w http.ResponseWriter, name string, src io.Reader) {
	name = filepath.Base(name)
	if name == "" || name == "." || strings.HasPrefix(name, ".") {
		h.respondError(w, ErrInvalidRequest("invalid filename"))
		return
	}
	if !content.AllowedExtension(name) {
		h.respondError(w, ErrInvalidRequest("file type not allowed"))
		return
	}
	stored := h.uniqueName(name)

	size, err := h.writeAtomic(stored, src)
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.logger.Info().Str("name", stored).Int64("size", size).Msg("upload stored")
	h.hub.Publish(v1alpha1.EventContentUploaded, map[string]string{"name": stored})
	h.respondJSON(w, http.StatusCreated, v1alpha1.UploadResponse{
		Message:  "upload stored",
		Filename: stored,
		Size:     size,
	})
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// timestampName sanitizes the base name and appends the upload time before
// the extension, e.g. "photo.png" -> "photo-1724601600.png". A positive seq
// disambiguates uploads landing within the same second.
func timestampName(name string, now time.Time, seq int) string {
	ext := filepath.Ext(name)
	base := unsafeChars.ReplaceAllString(strings.TrimSuffix(name, ext), "_")
	if seq > 0 {
		return fmt.Sprintf("%s-%d-%d%s", base, now.Unix(), seq, ext)
	}
	return fmt.Sprintf("%s-%d%s", base, now.Unix(), ext)
}

// uniqueName picks a timestamped name not already taken in the watched folder
func (h *Handler) uniqueName(name string) string {
	now := time.Now()
	stored := timestampName(name, now, 0)
	for seq := 1; ; seq++ {
		if _, err := os.Stat(filepath.Join(h.content.Dir(), stored)); err != nil {
			return stored
		}
		stored = timestampName(name, now, seq)
	}
}

// writeAtomic lands the file under a temporary dot name first so the
// renderer's watcher only ever sees complete files
func (h *Handler) writeAtomic(name string, src io.Reader) (int64, error) {
	dir := h.content.Dir()
	tmp, err := os.CreateTemp(dir, "."+name+".*")
	if err != nil {
		return 0, err
	}
	defer os.Remove(tmp.Name())

	size, err := io.Copy(tmp, io.LimitReader(src, h.cfg.Content.MaxUploadSize+1))
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return 0, err
	}
	if size > h.cfg.Content.MaxUploadSize {
		return 0, ErrTooLarge("upload exceeds size limit")
	}
	if err := os.Rename(tmp.Name(), filepath.Join(dir, name)); err != nil {
		return 0, err
	}
	return size, nil
}

// handleListContent enumerates the store, newest first
func (h *Handler) handleListContent(w http.ResponseWriter, r *http.Request) {
	items, err := h.content.List()
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, v1alpha1.ContentItemList{
		Items:      items,
		TotalCount: len(items),
	})
}

// handleLatestContent returns the most recent item's metadata
func (h *Handler) handleLatestContent(w http.ResponseWriter, r *http.Request) {
	item, err := h.content.Latest()
	if err != nil {
		h.respondError(w, err)
		return
	}
	if item == nil {
		h.respondError(w, ErrNotFound("store is empty"))
		return
	}
	h.respondJSON(w, http.StatusOK, item)
}

// handleDeleteContent removes one item from the store
func (h *Handler) handleDeleteContent(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := h.content.Delete(name); err != nil {
		h.respondError(w, err)
		return
	}
	h.hub.Publish(v1alpha1.EventContentDeleted, map[string]string{"name": name})
	h.respondJSON(w, http.StatusOK, map[string]string{"message": "deleted", "name": name})
}

// handleCleanup trims the store down to the requested number of newest files
func (h *Handler) handleCleanup(w http.ResponseWriter, r *http.Request) {
	var req v1alpha1.CleanupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, ErrInvalidRequest("invalid request body"))
		return
	}
	if req.KeepCount < 0 {
		h.respondError(w, ErrInvalidRequest("keepCount cannot be negative"))
		return
	}

	removed, err := h.content.Cleanup(req.KeepCount)
	if err != nil {
		h.respondError(w, err)
		return
	}
	for _, name := range removed {
		h.hub.Publish(v1alpha1.EventContentDeleted, map[string]string{"name": name})
	}

	remaining, err := h.content.List()
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, v1alpha1.CleanupResponse{
		Message:      "cleanup complete",
		FilesRemoved: removed,
		FilesKept:    len(remaining),
	})
}
