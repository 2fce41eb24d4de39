package daemon

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paperfeed/paperfeed/api/types/v1alpha1"
	"github.com/paperfeed/paperfeed/internal/mailbox"
	"github.com/paperfeed/paperfeed/internal/paperd/config"
	"github.com/paperfeed/paperfeed/internal/paperd/playlist"
	"github.com/paperfeed/paperfeed/internal/store"
)

const testTimeout = 10 * time.Second

// newTestDaemon assembles a full renderer on the memory panel with all
// timers off, plus a producer speaking to it through a real mailbox.
// Auto-display stays off unless a test opts in, so the watcher cannot race
// the commands under test.
func newTestDaemon(t *testing.T, mutate ...func(*config.Config)) (*config.Config, *mailbox.Producer) {
	t.Helper()

	cfg := config.Default()
	cfg.Content.WatchDir = t.TempDir()
	cfg.Mailbox.Dir = t.TempDir()
	cfg.Store.Path = filepath.Join(t.TempDir(), "paperfeed.db")
	cfg.Display.AutoDisplay = false
	cfg.Timing.ThrottleEnabled = false
	cfg.Timing.StartupTimerEnabled = false
	cfg.Timing.RefreshTimerEnabled = false
	cfg.Timing.SleepMode = false
	cfg.Timing.ClearOnExit = false
	for _, fn := range mutate {
		fn(cfg)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	d, err := New(cfg, logger)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = d.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	producer, err := mailbox.NewProducer(cfg.Mailbox.Dir)
	require.NoError(t, err)
	return cfg, producer
}

func send(t *testing.T, producer *mailbox.Producer, cmd v1alpha1.Command) *v1alpha1.Response {
	t.Helper()
	resp, err := producer.Send(context.Background(), cmd, testTimeout)
	require.NoError(t, err)
	return resp
}

func queryInfo(t *testing.T, producer *mailbox.Producer) v1alpha1.DisplayInfo {
	t.Helper()
	resp := send(t, producer, v1alpha1.NewCommand(v1alpha1.CommandQueryInfo))
	require.Equal(t, v1alpha1.StatusOK, resp.Status)
	var info v1alpha1.DisplayInfo
	require.NoError(t, json.Unmarshal(resp.Payload, &info))
	return info
}

func TestQueryInfoOverMailbox(t *testing.T) {
	_, producer := newTestDaemon(t)

	info := queryInfo(t, producer)
	assert.Equal(t, "memory", info.Device)
	assert.Equal(t, 296, info.Width)
	assert.Equal(t, 160, info.Height)
	assert.Equal(t, "landscape", info.Orientation)
	// rotation is off by default
	assert.Equal(t, v1alpha1.ScheduleManual, info.ScheduleMode)
	assert.Equal(t, playlist.DefaultName, info.ActivePlaylist)
}

func TestDisplayCommandOverMailbox(t *testing.T) {
	cfg, producer := newTestDaemon(t)
	require.NoError(t, os.WriteFile(filepath.Join(cfg.Content.WatchDir, "note.txt"), []byte("hello"), 0o644))

	cmd := v1alpha1.NewCommand(v1alpha1.CommandDisplay)
	cmd.Target = "note.txt"
	resp := send(t, producer, cmd)
	require.Equal(t, v1alpha1.StatusOK, resp.Status)

	info := queryInfo(t, producer)
	assert.Equal(t, "note.txt", info.CurrentItem)
	assert.False(t, info.LastRenderAt.IsZero())
}

func TestDisplayMissingTargetIsAnError(t *testing.T) {
	_, producer := newTestDaemon(t)

	cmd := v1alpha1.NewCommand(v1alpha1.CommandDisplay)
	cmd.Target = "absent.txt"
	resp := send(t, producer, cmd)
	require.Equal(t, v1alpha1.StatusError, resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "CONTENT_MISSING", resp.Error.Code)
}

func TestClearDropsExplicitSelection(t *testing.T) {
	cfg, producer := newTestDaemon(t)
	require.NoError(t, os.WriteFile(filepath.Join(cfg.Content.WatchDir, "note.txt"), []byte("hello"), 0o644))

	cmd := v1alpha1.NewCommand(v1alpha1.CommandDisplay)
	cmd.Target = "note.txt"
	require.Equal(t, v1alpha1.StatusOK, send(t, producer, cmd).Status)

	resp := send(t, producer, v1alpha1.NewCommand(v1alpha1.CommandClear))
	require.Equal(t, v1alpha1.StatusOK, resp.Status)
	assert.Empty(t, queryInfo(t, producer).CurrentItem)
}

func TestUnknownCommandRejected(t *testing.T) {
	_, producer := newTestDaemon(t)

	resp := send(t, producer, v1alpha1.NewCommand("self-destruct"))
	require.Equal(t, v1alpha1.StatusError, resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "COMMAND_UNKNOWN", resp.Error.Code)
}

func TestPlaylistLifecycleOverMailbox(t *testing.T) {
	_, producer := newTestDaemon(t)

	create := v1alpha1.NewCommand(v1alpha1.CommandPlaylistCreate)
	create.Playlist = &v1alpha1.PlaylistArgs{Name: "morning"}
	require.Equal(t, v1alpha1.StatusOK, send(t, producer, create).Status)

	setItems := v1alpha1.NewCommand(v1alpha1.CommandPlaylistSetItems)
	setItems.Playlist = &v1alpha1.PlaylistArgs{Name: "morning", Items: []string{"a.png", "b.png"}}
	require.Equal(t, v1alpha1.StatusOK, send(t, producer, setItems).Status)

	list := send(t, producer, v1alpha1.NewCommand(v1alpha1.CommandPlaylistList))
	require.Equal(t, v1alpha1.StatusOK, list.Status)
	var payload v1alpha1.PlaylistList
	require.NoError(t, json.Unmarshal(list.Payload, &payload))
	require.Len(t, payload.Playlists, 2)
	assert.Equal(t, playlist.DefaultName, payload.Active)
	assert.Equal(t, v1alpha1.ScheduleManual, payload.Mode)

	// the default playlist stays protected through the wire
	del := v1alpha1.NewCommand(v1alpha1.CommandPlaylistDelete)
	del.Playlist = &v1alpha1.PlaylistArgs{Name: playlist.DefaultName}
	resp := send(t, producer, del)
	require.Equal(t, v1alpha1.StatusError, resp.Status)
	assert.Equal(t, "PLAYLIST_DEFAULT", resp.Error.Code)

	// playlist commands without arguments are rejected, not crashed on
	rename := v1alpha1.NewCommand(v1alpha1.CommandPlaylistRename)
	resp = send(t, producer, rename)
	require.Equal(t, v1alpha1.StatusError, resp.Status)
	assert.Equal(t, "COMMAND_ARGS", resp.Error.Code)
}

func TestPlaylistAdvanceSkipsMissingItems(t *testing.T) {
	cfg, producer := newTestDaemon(t)
	require.NoError(t, os.WriteFile(filepath.Join(cfg.Content.WatchDir, "real.txt"), []byte("here"), 0o644))

	create := v1alpha1.NewCommand(v1alpha1.CommandPlaylistCreate)
	create.Playlist = &v1alpha1.PlaylistArgs{Name: "show"}
	require.Equal(t, v1alpha1.StatusOK, send(t, producer, create).Status)

	setItems := v1alpha1.NewCommand(v1alpha1.CommandPlaylistSetItems)
	setItems.Playlist = &v1alpha1.PlaylistArgs{Name: "show", Items: []string{"real.txt", "missing.png"}}
	require.Equal(t, v1alpha1.StatusOK, send(t, producer, setItems).Status)

	activate := v1alpha1.NewCommand(v1alpha1.CommandPlaylistActivate)
	activate.Playlist = &v1alpha1.PlaylistArgs{Name: "show"}
	require.Equal(t, v1alpha1.StatusOK, send(t, producer, activate).Status)

	// position 0 -> next is the missing item, which must be skipped, and
	// the wrap-around lands back on the real one
	resp := send(t, producer, v1alpha1.NewCommand(v1alpha1.CommandPlaylistAdvance))
	require.Equal(t, v1alpha1.StatusOK, resp.Status)

	assert.Equal(t, "real.txt", queryInfo(t, producer).CurrentItem)

	list := send(t, producer, v1alpha1.NewCommand(v1alpha1.CommandPlaylistList))
	require.Equal(t, v1alpha1.StatusOK, list.Status)
	var payload v1alpha1.PlaylistList
	require.NoError(t, json.Unmarshal(list.Payload, &payload))
	for _, pl := range payload.Playlists {
		if pl.Name == "show" {
			assert.Equal(t, 0, pl.Position)
		}
	}
}

func TestReloadSettingsSwapsConfiguration(t *testing.T) {
	cfg, producer := newTestDaemon(t)

	// no stored settings yet
	resp := send(t, producer, v1alpha1.NewCommand(v1alpha1.CommandReloadSettings))
	require.Equal(t, v1alpha1.StatusError, resp.Status)
	assert.Equal(t, "SETTINGS_MISSING", resp.Error.Code)

	// store new settings the way the front end would, then reload
	db, err := store.Open(cfg.Store.Path)
	require.NoError(t, err)
	defer db.Close()
	settings := settingsFromConfig(cfg)
	settings.Orientation = "portrait"
	require.NoError(t, db.SaveSettings(settings))

	resp = send(t, producer, v1alpha1.NewCommand(v1alpha1.CommandReloadSettings))
	require.Equal(t, v1alpha1.StatusOK, resp.Status)

	info := queryInfo(t, producer)
	assert.Equal(t, "portrait", info.Orientation)
	assert.Equal(t, 160, info.Width)
	assert.Equal(t, 296, info.Height)
}

func TestNewUploadAutoDisplays(t *testing.T) {
	cfg, producer := newTestDaemon(t, func(c *config.Config) {
		c.Display.AutoDisplay = true
	})

	require.NoError(t, os.WriteFile(filepath.Join(cfg.Content.WatchDir, "fresh.txt"), []byte("fresh"), 0o644))

	// the watcher debounces arrivals before announcing them
	require.Eventually(t, func() bool {
		return queryInfo(t, producer).CurrentItem == "fresh.txt"
	}, testTimeout, 100*time.Millisecond)
}
