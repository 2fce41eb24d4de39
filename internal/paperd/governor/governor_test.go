package governor

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paperfeed/paperfeed/internal/paperd/content"
	"github.com/paperfeed/paperfeed/internal/paperd/epd"
	"github.com/paperfeed/paperfeed/internal/paperd/render"
)

type fixture struct {
	drv     *epd.Memory
	store   *content.Store
	tracker *content.Tracker
	gov     *Governor
	cancel  context.CancelFunc
	done    chan struct{}
}

func newFixture(t *testing.T, cfg Config, failOps map[string]bool) *fixture {
	t.Helper()

	store, err := content.NewStore(t.TempDir())
	require.NoError(t, err)

	drv := epd.NewMemory(epd.MemoryCapabilities())
	drv.FailOps = failOps
	tracker := content.NewTracker(true)
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	gov := New(drv, store, tracker, cfg, render.OrientationLandscape, logger)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = gov.Run(ctx)
	}()

	f := &fixture{drv: drv, store: store, tracker: tracker, gov: gov, cancel: cancel, done: done}
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return f
}

func (f *fixture) addFile(t *testing.T, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(f.store.Dir(), name), []byte(body), 0o644))
}

// waitFor polls until the condition holds or the deadline passes
func waitFor(t *testing.T, timeout time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return cond()
}

func TestRefreshTimerRecursWithoutCommands(t *testing.T) {
	f := newFixture(t, Config{
		RefreshTimerEnabled: true,
		RefreshInterval:     100 * time.Millisecond,
	}, nil)
	f.addFile(t, "note.txt", "hello panel")
	require.NoError(t, f.gov.Display(context.Background(), "note.txt"))

	// with no further commands the anti-ghosting timer keeps firing,
	// each firing a clear followed by a redraw of the current content
	require.True(t, waitFor(t, 5*time.Second, func() bool {
		clears := 0
		for _, op := range f.drv.Ops() {
			if op == "clear" {
				clears++
			}
		}
		return clears >= 3
	}))

	// a redraw follows every clear; the final clear may still be mid-cycle
	ops := f.drv.Ops()
	for i := 0; i < len(ops)-1; i++ {
		if ops[i] == "clear" {
			assert.Equal(t, "render", ops[i+1])
		}
	}
	assert.Equal(t, "note.txt", f.gov.Info().CurrentItem)
}

func TestDisplayShowsNamedItem(t *testing.T) {
	f := newFixture(t, Config{}, nil)
	f.addFile(t, "note.txt", "hello panel")

	// the startup placeholder renders first
	require.True(t, waitFor(t, time.Second, func() bool {
		return f.drv.RenderCount() >= 1
	}))

	err := f.gov.Display(context.Background(), "note.txt")
	require.NoError(t, err)

	info := f.gov.Info()
	assert.Equal(t, "note.txt", info.CurrentItem)
	assert.True(t, info.RealContent)
	assert.False(t, info.LastRenderAt.IsZero())
	assert.Equal(t, 2, f.drv.RenderCount())
}

func TestEmptyTargetResolvesNewest(t *testing.T) {
	f := newFixture(t, Config{}, nil)
	f.addFile(t, "old.txt", "old")
	older := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(f.store.Dir(), "old.txt"), older, older))
	f.addFile(t, "new.txt", "new")

	require.NoError(t, f.gov.Display(context.Background(), ""))
	assert.Equal(t, "new.txt", f.gov.Info().CurrentItem)
}

func TestMissingTargetFallsBack(t *testing.T) {
	f := newFixture(t, Config{}, nil)
	f.addFile(t, "present.txt", "here")

	// the named item does not exist; the resolver falls through to the
	// newest stored item rather than failing the render
	require.NoError(t, f.gov.Display(context.Background(), "gone.txt"))
	assert.Equal(t, "present.txt", f.gov.Info().CurrentItem)
}

func TestEmptyStoreShowsPlaceholder(t *testing.T) {
	f := newFixture(t, Config{}, nil)

	require.True(t, waitFor(t, time.Second, func() bool {
		return f.drv.RenderCount() >= 1
	}))

	require.NoError(t, f.gov.Display(context.Background(), ""))
	info := f.gov.Info()
	assert.Equal(t, content.FallbackName, info.CurrentItem)
	assert.False(t, info.RealContent)
}

func TestThrottleCoalescesMostRecentWins(t *testing.T) {
	f := newFixture(t, Config{
		ThrottleEnabled: true,
		MinInterval:     300 * time.Millisecond,
	}, nil)
	f.addFile(t, "a.txt", "a")
	f.addFile(t, "b.txt", "b")

	// the placeholder render opens the throttle window
	require.True(t, waitFor(t, time.Second, func() bool {
		return f.drv.RenderCount() >= 1
	}))

	// both submissions inside the window are accepted; only the newer
	// intent survives the drain
	require.NoError(t, f.gov.Display(context.Background(), "a.txt"))
	require.NoError(t, f.gov.Display(context.Background(), "b.txt"))
	assert.Equal(t, 1, f.drv.RenderCount())

	require.True(t, waitFor(t, 2*time.Second, func() bool {
		return f.gov.Info().CurrentItem == "b.txt"
	}))
	assert.Equal(t, 2, f.drv.RenderCount())
}

func TestStartupGraceDefersRealContent(t *testing.T) {
	f := newFixture(t, Config{
		StartupTimerEnabled: true,
		StartupDelay:        250 * time.Millisecond,
	}, nil)
	f.addFile(t, "early.txt", "early bird")

	// the placeholder is exempt from the startup gate
	require.True(t, waitFor(t, time.Second, func() bool {
		return f.drv.RenderCount() >= 1
	}))

	require.NoError(t, f.gov.Display(context.Background(), "early.txt"))
	assert.Equal(t, 1, f.drv.RenderCount())
	assert.NotEqual(t, "early.txt", f.gov.Info().CurrentItem)

	require.True(t, waitFor(t, 2*time.Second, func() bool {
		return f.gov.Info().CurrentItem == "early.txt"
	}))
}

func TestFailedRenderRepliesError(t *testing.T) {
	f := newFixture(t, Config{}, map[string]bool{"render": true})
	f.addFile(t, "a.txt", "a")

	err := f.gov.Display(context.Background(), "a.txt")
	require.Error(t, err)

	// a failed operation never advances the throttle clock
	info := f.gov.Info()
	assert.True(t, info.LastRenderAt.IsZero())
	assert.Empty(t, info.CurrentItem)
}

func TestSleepModeBracketsEveryOperation(t *testing.T) {
	f := newFixture(t, Config{SleepMode: true}, nil)
	f.addFile(t, "a.txt", "a")

	require.True(t, waitFor(t, time.Second, func() bool {
		return f.drv.RenderCount() >= 1
	}))
	require.NoError(t, f.gov.Display(context.Background(), "a.txt"))

	ops := f.drv.Ops()
	require.GreaterOrEqual(t, len(ops), 6)
	// every render sits between a wake and a sleep
	for i, op := range ops {
		if op == "render" {
			require.Greater(t, i, 0)
			assert.Equal(t, "init", ops[i-1])
			require.Less(t, i+1, len(ops))
			assert.Equal(t, "sleep", ops[i+1])
		}
	}
}

func TestClearResetsCurrentItem(t *testing.T) {
	f := newFixture(t, Config{}, nil)
	f.addFile(t, "a.txt", "a")

	require.NoError(t, f.gov.Display(context.Background(), "a.txt"))
	require.Equal(t, "a.txt", f.gov.Info().CurrentItem)

	require.NoError(t, f.gov.Clear(context.Background(), epd.White))
	assert.Empty(t, f.gov.Info().CurrentItem)
}

func TestRefreshRedrawsCurrentContent(t *testing.T) {
	f := newFixture(t, Config{}, nil)
	f.addFile(t, "a.txt", "a")

	require.NoError(t, f.gov.Display(context.Background(), "a.txt"))
	before := f.drv.RenderCount()

	require.NoError(t, f.gov.Refresh(context.Background()))
	assert.Equal(t, "a.txt", f.gov.Info().CurrentItem)
	assert.Equal(t, before+1, f.drv.RenderCount())
}

func TestReconfigureSwapsOrientation(t *testing.T) {
	f := newFixture(t, Config{}, nil)

	info := f.gov.Info()
	require.Equal(t, 296, info.Width)
	require.Equal(t, 160, info.Height)

	err := f.gov.Reconfigure(context.Background(), Config{}, render.OrientationPortrait)
	require.NoError(t, err)

	info = f.gov.Info()
	assert.Equal(t, 160, info.Width)
	assert.Equal(t, 296, info.Height)
	assert.Equal(t, string(render.OrientationPortrait), info.Orientation)
}

func TestInfoAnsweredWithoutHardware(t *testing.T) {
	// every driver operation fails; the query path must not care
	f := newFixture(t, Config{}, map[string]bool{
		"init": true, "render": true, "clear": true, "sleep": true,
	})

	info := f.gov.Info()
	assert.Equal(t, "memory", info.Device)
	assert.Equal(t, 296, info.Width)
	assert.Equal(t, 160, info.Height)
}
