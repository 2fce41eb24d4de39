package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paperfeed/paperfeed/api/types/v1alpha1"
	"github.com/paperfeed/paperfeed/internal/mailbox"
	"github.com/paperfeed/paperfeed/internal/paperd/content"
	"github.com/paperfeed/paperfeed/internal/paperweb/config"
	"github.com/paperfeed/paperfeed/internal/paperweb/events"
	"github.com/paperfeed/paperfeed/internal/paperweb/ratelimit"
	ratelimitmem "github.com/paperfeed/paperfeed/internal/paperweb/ratelimit/memory"
	"github.com/paperfeed/paperfeed/internal/store"
)

// fakeRenderer answers mailbox commands the way paperd would
type fakeRenderer struct {
	mu        sync.Mutex
	responses map[v1alpha1.CommandKind]v1alpha1.Response
	received  []v1alpha1.Command
}

func (f *fakeRenderer) handle(ctx context.Context, cmd v1alpha1.Command) v1alpha1.Response {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.received = append(f.received, cmd)
	if resp, ok := f.responses[cmd.Kind]; ok {
		return resp
	}
	return v1alpha1.Response{Status: v1alpha1.StatusOK}
}

func (f *fakeRenderer) respond(kind v1alpha1.CommandKind, resp v1alpha1.Response) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[kind] = resp
}

func (f *fakeRenderer) commands() []v1alpha1.Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]v1alpha1.Command, len(f.received))
	copy(out, f.received)
	return out
}

type fixture struct {
	router   chi.Router
	watchDir string
	db       *store.Store
	renderer *fakeRenderer
}

func newFixture(t *testing.T, withRenderer bool) *fixture {
	t.Helper()

	cfg := config.Default()
	cfg.Content.WatchDir = t.TempDir()
	cfg.Content.MaxUploadSize = 1 << 20
	cfg.Mailbox.Dir = t.TempDir()
	cfg.Mailbox.ResponseTimeout = config.Duration(5 * time.Second)
	cfg.Store.Path = filepath.Join(t.TempDir(), "paperfeed.db")
	if !withRenderer {
		// nobody will answer; keep the wait short
		cfg.Mailbox.ResponseTimeout = config.Duration(300 * time.Millisecond)
	}

	contentStore, err := content.NewStore(cfg.Content.WatchDir)
	require.NoError(t, err)
	db, err := store.Open(cfg.Store.Path)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	producer, err := mailbox.NewProducer(cfg.Mailbox.Dir)
	require.NoError(t, err)

	slogger := slog.New(slog.NewTextHandler(io.Discard, nil))
	// no limits registered: every request passes
	limitService := ratelimit.NewService(ratelimitmem.NewStore(), slogger)
	limiters := ratelimit.NewCommonRateLimiters(limitService, slogger)

	hub := events.NewHub(slogger)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = hub.Run(ctx) }()

	renderer := &fakeRenderer{responses: map[v1alpha1.CommandKind]v1alpha1.Response{}}
	if withRenderer {
		consumer, err := mailbox.NewConsumer(cfg.Mailbox.Dir, renderer.handle, slogger)
		require.NoError(t, err)
		go func() { _ = consumer.Run(ctx) }()
	}

	handler := NewHandler(cfg, contentStore, db, producer, hub, limiters, zerolog.Nop())
	return &fixture{
		router:   handler.Router(),
		watchDir: cfg.Content.WatchDir,
		db:       db,
		renderer: renderer,
	}
}

func (f *fixture) do(t *testing.T, method, path string, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func TestHealthEndpoints(t *testing.T) {
	f := newFixture(t, false)
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/healthz", "").Code)
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/readyz", "").Code)
}

func TestMultipartUpload(t *testing.T) {
	f := newFixture(t, false)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "photo.png")
	require.NoError(t, err)
	_, err = fw.Write([]byte("fake image bytes"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1alpha1/content/", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	var resp v1alpha1.UploadResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Regexp(t, `^photo-\d+\.png$`, resp.Filename)
	assert.Equal(t, int64(16), resp.Size)

	data, err := os.ReadFile(filepath.Join(f.watchDir, resp.Filename))
	require.NoError(t, err)
	assert.Equal(t, "fake image bytes", string(data))
}

func TestUploadSameNameNeverOverwrites(t *testing.T) {
	f := newFixture(t, false)

	upload := func(body string) string {
		req := httptest.NewRequest(http.MethodPut, "/api/v1alpha1/content/raw", strings.NewReader(body))
		req.Header.Set("X-Filename", "note.txt")
		w := httptest.NewRecorder()
		f.router.ServeHTTP(w, req)
		require.Equal(t, http.StatusCreated, w.Code)
		var resp v1alpha1.UploadResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		return resp.Filename
	}

	first := upload("first body")
	second := upload("second body")

	// both items survive; the earlier upload is intact
	data, err := os.ReadFile(filepath.Join(f.watchDir, first))
	require.NoError(t, err)
	assert.Equal(t, "first body", string(data))
	data, err = os.ReadFile(filepath.Join(f.watchDir, second))
	require.NoError(t, err)
	assert.Equal(t, "second body", string(data))
}

func TestUploadRejectsDisallowedExtension(t *testing.T) {
	f := newFixture(t, false)

	req := httptest.NewRequest(http.MethodPut, "/api/v1alpha1/content/raw", strings.NewReader("binary"))
	req.Header.Set("X-Filename", "malware.exe")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.NoFileExists(t, filepath.Join(f.watchDir, "malware.exe"))
}

func TestRawUpload(t *testing.T) {
	f := newFixture(t, false)

	req := httptest.NewRequest(http.MethodPut, "/api/v1alpha1/content/raw", strings.NewReader("note body"))
	req.Header.Set("X-Filename", "note.txt")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	var resp v1alpha1.UploadResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Regexp(t, `^note-\d+\.txt$`, resp.Filename)
	assert.FileExists(t, filepath.Join(f.watchDir, resp.Filename))

	// missing header
	req = httptest.NewRequest(http.MethodPut, "/api/v1alpha1/content/raw", strings.NewReader("x"))
	w = httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRawUploadStripsPathComponents(t *testing.T) {
	f := newFixture(t, false)

	req := httptest.NewRequest(http.MethodPut, "/api/v1alpha1/content/raw", strings.NewReader("x"))
	req.Header.Set("X-Filename", "../../etc/passwd.txt")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	// only the base name survives into the stored filename
	var resp v1alpha1.UploadResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Regexp(t, `^passwd-\d+\.txt$`, resp.Filename)
	assert.FileExists(t, filepath.Join(f.watchDir, resp.Filename))
}

func TestTextUploadDefaultsName(t *testing.T) {
	f := newFixture(t, false)

	w := f.do(t, http.MethodPost, "/api/v1alpha1/content/text", `{"content":"hello panel"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	var resp v1alpha1.UploadResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, strings.HasPrefix(resp.Filename, "text-"))
	assert.True(t, strings.HasSuffix(resp.Filename, ".txt"))

	w = f.do(t, http.MethodPost, "/api/v1alpha1/content/text", `{"content":""}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListAndLatestContent(t *testing.T) {
	f := newFixture(t, false)

	w := f.do(t, http.MethodGet, "/api/v1alpha1/content/latest", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	require.NoError(t, os.WriteFile(filepath.Join(f.watchDir, "a.txt"), []byte("a"), 0o644))

	w = f.do(t, http.MethodGet, "/api/v1alpha1/content/", "")
	require.Equal(t, http.StatusOK, w.Code)
	var list v1alpha1.ContentItemList
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Equal(t, 1, list.TotalCount)
	assert.Equal(t, "a.txt", list.Items[0].Name)

	w = f.do(t, http.MethodGet, "/api/v1alpha1/content/latest", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestDeleteContent(t *testing.T) {
	f := newFixture(t, false)
	require.NoError(t, os.WriteFile(filepath.Join(f.watchDir, "gone.txt"), []byte("x"), 0o644))

	w := f.do(t, http.MethodDelete, "/api/v1alpha1/content/gone.txt", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.NoFileExists(t, filepath.Join(f.watchDir, "gone.txt"))

	w = f.do(t, http.MethodDelete, "/api/v1alpha1/content/gone.txt", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCleanup(t *testing.T) {
	f := newFixture(t, false)
	for i, name := range []string{"a.txt", "b.txt", "c.txt"} {
		path := filepath.Join(f.watchDir, name)
		require.NoError(t, os.WriteFile(path, []byte(name), 0o644))
		when := time.Now().Add(-time.Duration(3-i) * time.Hour)
		require.NoError(t, os.Chtimes(path, when, when))
	}

	w := f.do(t, http.MethodPost, "/api/v1alpha1/content/cleanup", `{"keepCount":1}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp v1alpha1.CleanupResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.ElementsMatch(t, []string{"a.txt", "b.txt"}, resp.FilesRemoved)
	assert.Equal(t, 1, resp.FilesKept)

	w = f.do(t, http.MethodPost, "/api/v1alpha1/content/cleanup", `{"keepCount":-1}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDisplayCommandRelayed(t *testing.T) {
	f := newFixture(t, true)

	w := f.do(t, http.MethodPost, "/api/v1alpha1/display/", `{"target":"photo.png"}`)
	require.Equal(t, http.StatusOK, w.Code)

	cmds := f.renderer.commands()
	require.Len(t, cmds, 1)
	assert.Equal(t, v1alpha1.CommandDisplay, cmds[0].Kind)
	assert.Equal(t, "photo.png", cmds[0].Target)
}

func TestDisplayWithoutBodyMeansBestCandidate(t *testing.T) {
	f := newFixture(t, true)

	w := f.do(t, http.MethodPost, "/api/v1alpha1/display/", "")
	require.Equal(t, http.StatusOK, w.Code)

	cmds := f.renderer.commands()
	require.Len(t, cmds, 1)
	assert.Empty(t, cmds[0].Target)
}

func TestRendererErrorBecomes422(t *testing.T) {
	f := newFixture(t, true)
	f.renderer.respond(v1alpha1.CommandDisplay, v1alpha1.Response{
		Status: v1alpha1.StatusError,
		Error:  &v1alpha1.Error{Code: "CONTENT_MISSING", Message: "content item not found"},
	})

	w := f.do(t, http.MethodPost, "/api/v1alpha1/display/", `{"target":"absent.png"}`)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var resp v1alpha1.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, "CONTENT_MISSING", resp.Error.Code)
}

func TestStatusReturnsRendererPayload(t *testing.T) {
	f := newFixture(t, true)
	payload, err := json.Marshal(v1alpha1.DisplayInfo{
		Device:      "epd2in9b",
		Width:       296,
		Height:      160,
		Orientation: "landscape",
		CurrentItem: "photo.png",
	})
	require.NoError(t, err)
	f.renderer.respond(v1alpha1.CommandQueryInfo, v1alpha1.Response{
		Status:  v1alpha1.StatusOK,
		Payload: payload,
	})

	w := f.do(t, http.MethodGet, "/api/v1alpha1/display/", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp v1alpha1.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	var info v1alpha1.DisplayInfo
	require.NoError(t, json.Unmarshal(resp.Payload, &info))
	assert.Equal(t, "photo.png", info.CurrentItem)
}

func TestCommandTimeoutBecomes504(t *testing.T) {
	f := newFixture(t, false)

	w := f.do(t, http.MethodPost, "/api/v1alpha1/display/refresh", "")
	assert.Equal(t, http.StatusGatewayTimeout, w.Code)
}

func TestGetSettingsDefaultsBeforeFirstSave(t *testing.T) {
	f := newFixture(t, false)

	w := f.do(t, http.MethodGet, "/api/v1alpha1/settings/", "")
	require.Equal(t, http.StatusOK, w.Code)

	var settings v1alpha1.Settings
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &settings))
	assert.Equal(t, "landscape", settings.Orientation)
	assert.True(t, settings.AutoDisplay)
}

func TestPutSettingsStoresAndRelaysReload(t *testing.T) {
	f := newFixture(t, true)

	body, err := json.Marshal(defaultSettings())
	require.NoError(t, err)

	w := f.do(t, http.MethodPut, "/api/v1alpha1/settings/", string(body))
	require.Equal(t, http.StatusOK, w.Code)

	stored, err := f.db.LoadSettings()
	require.NoError(t, err)
	assert.Equal(t, "landscape", stored.Orientation)

	cmds := f.renderer.commands()
	require.Len(t, cmds, 1)
	assert.Equal(t, v1alpha1.CommandReloadSettings, cmds[0].Kind)
}

func TestPutSettingsInvalidOrientation(t *testing.T) {
	f := newFixture(t, false)

	settings := defaultSettings()
	settings.Orientation = "diagonal"
	body, err := json.Marshal(settings)
	require.NoError(t, err)

	w := f.do(t, http.MethodPut, "/api/v1alpha1/settings/", string(body))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPutSettingsRendererDownIsAccepted(t *testing.T) {
	f := newFixture(t, false)

	body, err := json.Marshal(defaultSettings())
	require.NoError(t, err)

	// the save succeeds even though nobody answers the reload command;
	// the renderer picks the settings up at its next startup
	w := f.do(t, http.MethodPut, "/api/v1alpha1/settings/", string(body))
	assert.Equal(t, http.StatusAccepted, w.Code)

	stored, err := f.db.LoadSettings()
	require.NoError(t, err)
	assert.Equal(t, "landscape", stored.Orientation)
}

func TestPlaylistCommandsRelayed(t *testing.T) {
	f := newFixture(t, true)

	w := f.do(t, http.MethodPost, "/api/v1alpha1/playlists/", `{"name":"morning"}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodPut, "/api/v1alpha1/playlists/morning/items", `{"items":["a.png","b.png"]}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodPost, "/api/v1alpha1/playlists/morning/activate", "")
	require.Equal(t, http.StatusOK, w.Code)

	cmds := f.renderer.commands()
	require.Len(t, cmds, 3)
	assert.Equal(t, v1alpha1.CommandPlaylistCreate, cmds[0].Kind)
	assert.Equal(t, "morning", cmds[0].Playlist.Name)
	assert.Equal(t, v1alpha1.CommandPlaylistSetItems, cmds[1].Kind)
	assert.Equal(t, []string{"a.png", "b.png"}, cmds[1].Playlist.Items)
	assert.Equal(t, v1alpha1.CommandPlaylistActivate, cmds[2].Kind)
}
