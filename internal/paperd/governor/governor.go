// Package governor owns the single allowed path to the panel hardware. Every
// producer (mailbox consumer, folder watcher, playlist scheduler, internal
// timers) funnels render intents into one goroutine, which enforces the
// minimum refresh interval, the startup grace period, periodic anti-ghosting
// refreshes, and sleep-mode bracketing.
package governor

import (
	"context"
	"image"
	"log/slog"
	"sync"
	"time"

	"github.com/paperfeed/paperfeed/api/types/v1alpha1"
	"github.com/paperfeed/paperfeed/internal/paperd/content"
	"github.com/paperfeed/paperfeed/internal/paperd/epd"
	apperrors "github.com/paperfeed/paperfeed/internal/paperd/errors"
	"github.com/paperfeed/paperfeed/internal/paperd/render"
)

// Op is a render intent kind
type Op string

const (
	// OpDisplay renders one content item
	OpDisplay Op = "display"
	// OpRefresh clears and redraws the current content
	OpRefresh Op = "refresh"
	// OpClear blanks the panel
	OpClear Op = "clear"
)

// Config is the governor's timing policy. Swapped atomically on settings
// reload, never mutated in place.
type Config struct {
	// ThrottleEnabled enforces MinInterval between hardware renders
	ThrottleEnabled bool
	// MinInterval is the minimum spacing between hardware operations
	MinInterval time.Duration
	// StartupTimerEnabled defers real content until StartupDelay elapses
	StartupTimerEnabled bool
	// StartupDelay is the grace period after Run starts
	StartupDelay time.Duration
	// RefreshTimerEnabled schedules periodic anti-ghosting refreshes
	RefreshTimerEnabled bool
	// RefreshInterval is the anti-ghosting period
	RefreshInterval time.Duration
	// SleepMode brackets every operation with wake and sleep
	SleepMode bool
	// ClearOnStart blanks the panel before the first frame
	ClearOnStart bool
	// ClearOnExit blanks the panel during shutdown
	ClearOnExit bool
	// InitialFile, when set, becomes the explicit selection at startup
	InitialFile string
}

type intent struct {
	op     Op
	target string
	color  epd.Color
	reply  chan error
}

type reconfig struct {
	cfg    Config
	target render.Target
	done   chan struct{}
}

type request struct {
	in   *intent
	conf *reconfig
}

// Info is a read-only snapshot of governor state; it never touches hardware
type Info struct {
	// Device is the panel variant
	Device string
	// Width and Height are the logical frame dimensions
	Width  int
	Height int
	// Orientation is the configured orientation
	Orientation string
	// CurrentItem is the content on the panel, if any
	CurrentItem string
	// LastRenderAt is when the last hardware render completed
	LastRenderAt time.Time
	// RealContent reports whether non-placeholder content has rendered
	RealContent bool
}

// Governor serializes all hardware access. Exactly one operation is ever in
// flight; timing state is touched only on the Run goroutine.
type Governor struct {
	drv     epd.Driver
	store   *content.Store
	tracker *content.Tracker
	logger  *slog.Logger

	requests chan request

	// loop-owned state
	cfg         Config
	target      render.Target
	lastRender  time.Time
	startupDone bool
	pending     *intent
	drain       *time.Timer
	drainC      <-chan time.Time

	// snapshot for Info
	mu       sync.Mutex
	snapshot Info
}

// New creates a governor for one panel
func New(drv epd.Driver, store *content.Store, tracker *content.Tracker, cfg Config, orientation render.Orientation, logger *slog.Logger) *Governor {
	caps := drv.Capabilities()
	target := render.Normalize(caps, orientation)
	g := &Governor{
		drv:      drv,
		store:    store,
		tracker:  tracker,
		logger:   logger,
		requests: make(chan request, 16),
		cfg:      cfg,
		target:   target,
	}
	g.snapshot = Info{
		Device:      caps.Device,
		Width:       target.Width,
		Height:      target.Height,
		Orientation: string(orientation),
	}
	return g
}

// Display submits a display intent. An empty target means the resolver's
// current best candidate. Returns once the render completed or the intent was
// accepted into the throttle queue.
func (g *Governor) Display(ctx context.Context, target string) error {
	return g.submit(ctx, &intent{op: OpDisplay, target: target})
}

// Refresh submits an anti-ghosting refresh: clear, then redraw the current
// content
func (g *Governor) Refresh(ctx context.Context) error {
	return g.submit(ctx, &intent{op: OpRefresh})
}

// Clear submits a clear to the given color
func (g *Governor) Clear(ctx context.Context, c epd.Color) error {
	return g.submit(ctx, &intent{op: OpClear, color: c})
}

// Reconfigure swaps in a new timing policy and render target. The swap
// happens on the control goroutine between operations.
func (g *Governor) Reconfigure(ctx context.Context, cfg Config, orientation render.Orientation) error {
	target := render.Normalize(g.drv.Capabilities(), orientation)
	rc := &reconfig{cfg: cfg, target: target, done: make(chan struct{})}
	select {
	case g.requests <- request{conf: rc}:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-rc.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Info reports governor state without hardware contention; query commands
// are always answered immediately from this snapshot
func (g *Governor) Info() Info {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.snapshot
}

func (g *Governor) submit(ctx context.Context, in *intent) error {
	in.reply = make(chan error, 1)
	select {
	case g.requests <- request{in: in}:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-in.reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run drives the control loop until the context is canceled. It is the only
// goroutine that ever calls the adapter.
func (g *Governor) Run(ctx context.Context) error {
	if !g.cfg.SleepMode {
		if err := g.drv.Init(); err != nil {
			return err
		}
	}
	if g.cfg.ClearOnStart {
		if err := g.perform(func() error { return g.drv.Clear(epd.White) }); err != nil {
			g.logger.Error("clear on start failed", "error", err)
		}
	}
	if g.cfg.InitialFile != "" {
		if item, err := g.store.Stat(g.cfg.InitialFile); err == nil {
			g.tracker.SetExplicit(*item)
		} else {
			g.logger.Error("initial file not found", "name", g.cfg.InitialFile)
			g.renderFrame(render.NotFound(g.cfg.InitialFile, g.target), g.cfg.InitialFile, false)
		}
	}

	// The placeholder may render before the startup grace period elapses;
	// only real content waits.
	if g.currentItem() == "" {
		g.renderFrame(render.Welcome(g.store.Dir(), g.target), content.FallbackName, false)
	}

	var startupC <-chan time.Time
	if g.cfg.StartupTimerEnabled {
		startup := time.NewTimer(g.cfg.StartupDelay)
		defer startup.Stop()
		startupC = startup.C
	} else {
		g.startupDone = true
	}

	var refreshC <-chan time.Time
	if g.cfg.RefreshTimerEnabled {
		refresh := time.NewTicker(g.cfg.RefreshInterval)
		defer refresh.Stop()
		refreshC = refresh.C
	}

	for {
		select {
		case <-ctx.Done():
			g.shutdown()
			return nil

		case req := <-g.requests:
			switch {
			case req.conf != nil:
				g.cfg = req.conf.cfg
				g.target = req.conf.target
				g.updateSnapshot(func(s *Info) {
					s.Width = req.conf.target.Width
					s.Height = req.conf.target.Height
					s.Orientation = string(req.conf.target.Orientation)
				})
				close(req.conf.done)
			case req.in != nil:
				g.handle(req.in)
			}

		case <-startupC:
			g.startupDone = true
			if g.pending != nil {
				g.drainPending()
			} else if !g.Info().RealContent {
				g.handle(&intent{op: OpDisplay, reply: make(chan error, 1)})
			}

		case <-refreshC:
			g.handle(&intent{op: OpRefresh, reply: make(chan error, 1)})

		case <-g.drainC:
			g.drainC = nil
			g.drainPending()
		}
	}
}

// handle applies the startup and throttle gates, coalescing deferred intents
// most-recent-wins so a stale frame is never rendered once the gate opens
func (g *Governor) handle(in *intent) {
	if !g.startupDone {
		// drained by the startup timer; a newer intent supersedes
		g.pending = in
		in.reply <- nil
		return
	}
	if g.cfg.ThrottleEnabled && !g.lastRender.IsZero() {
		if wait := time.Until(g.lastRender.Add(g.cfg.MinInterval)); wait > 0 {
			g.pending = in
			g.armDrain(wait)
			in.reply <- nil
			return
		}
	}
	g.execute(in)
}

func (g *Governor) armDrain(d time.Duration) {
	if g.drain == nil {
		g.drain = time.NewTimer(d)
	} else {
		if !g.drain.Stop() {
			select {
			case <-g.drain.C:
			default:
			}
		}
		g.drain.Reset(d)
	}
	g.drainC = g.drain.C
}

// drainPending re-submits the coalesced intent through the gates, so a drain
// at the startup deadline still honors the throttle window
func (g *Governor) drainPending() {
	if g.pending == nil {
		return
	}
	in := g.pending
	g.pending = nil
	g.handle(in)
}

// execute performs one hardware operation. Failures produce an error reply
// and do not advance lastRender, so a failed attempt never blocks a retry.
func (g *Governor) execute(in *intent) {
	var err error
	switch in.op {
	case OpClear:
		err = g.perform(func() error { return g.drv.Clear(in.color) })
		if err == nil {
			g.updateSnapshot(func(s *Info) {
				s.CurrentItem = ""
				s.LastRenderAt = g.lastRender
			})
		}
	case OpRefresh:
		err = g.refresh()
	case OpDisplay:
		err = g.display(in.target)
	}
	if err != nil {
		g.logger.Error("hardware operation failed", "op", string(in.op), "error", err)
	}
	in.reply <- err
}

// display resolves the target, composes the frame, and renders it. A missing
// explicit target falls through to the next priority tier instead of failing
// the whole render.
func (g *Governor) display(target string) error {
	item := g.resolveTarget(target)
	frame, real := g.compose(item)
	return g.renderFrame(frame, item.Name, real)
}

func (g *Governor) resolveTarget(target string) v1alpha1.ContentItem {
	if target == content.FallbackName {
		target = ""
	}
	if target != "" {
		if item, err := g.store.Stat(target); err == nil {
			return *item
		}
		g.logger.Warn("display target missing, falling back", "name", target)
		g.tracker.Forget(target)
	}
	return content.Resolve(g.tracker.Snapshot(g.store))
}

// compose builds the logical frame for an item; decode failures become the
// on-panel error banner. The second return reports whether the frame shows
// real (non-placeholder) content.
func (g *Governor) compose(item v1alpha1.ContentItem) (*image.RGBA, bool) {
	if item.Name == content.FallbackName {
		return render.Welcome(g.store.Dir(), g.target), false
	}
	data, err := g.store.Read(item.Name)
	if err != nil {
		if apperrors.IsContentMissing(err) {
			g.tracker.Forget(item.Name)
			fallback := content.Resolve(g.tracker.Snapshot(g.store))
			if fallback.Name != item.Name {
				return g.compose(fallback)
			}
		}
		return render.ErrorBanner(item.Name, err.Error(), g.target), false
	}

	switch item.Kind {
	case v1alpha1.ContentImage:
		frame, err := render.Image(data, g.target)
		if err != nil {
			g.logger.Error("image compose failed", "name", item.Name, "error", err)
			return render.ErrorBanner(item.Name, err.Error(), g.target), false
		}
		return frame, true
	case v1alpha1.ContentText:
		return render.Text(item.Name, string(data), g.target), true
	default:
		return render.FileInfo(item, g.target), true
	}
}

// refresh clears then redraws the current content; the hardware exposes no
// dedicated anti-ghosting primitive
func (g *Governor) refresh() error {
	current := g.currentItem()
	err := g.perform(func() error {
		if err := g.drv.Clear(epd.White); err != nil {
			return err
		}
		item := g.resolveTarget(current)
		frame, _ := g.compose(item)
		current = item.Name
		return g.drv.Render(render.Rotate(frame, g.target.Turns))
	})
	if err == nil {
		g.updateSnapshot(func(s *Info) {
			s.CurrentItem = current
			s.LastRenderAt = g.lastRender
		})
	}
	return err
}

// renderFrame pushes one composed logical frame through the shared rotation
// step and onto the panel
func (g *Governor) renderFrame(frame *image.RGBA, name string, real bool) error {
	err := g.perform(func() error {
		return g.drv.Render(render.Rotate(frame, g.target.Turns))
	})
	if err != nil {
		return err
	}
	g.updateSnapshot(func(s *Info) {
		s.CurrentItem = name
		s.LastRenderAt = g.lastRender
		if real {
			s.RealContent = true
		}
	})
	if name != "" && name != content.FallbackName {
		g.logger.Info("displayed content", "name", name)
	}
	return nil
}

// perform wraps one hardware operation with symmetric sleep bracketing and
// advances lastRender only on success
func (g *Governor) perform(op func() error) error {
	if g.cfg.SleepMode {
		if err := g.drv.Init(); err != nil {
			return err
		}
		defer func() {
			// always re-sleep, even after a failed op, so the panel
			// is never left powered on an error path
			if err := g.drv.Sleep(); err != nil {
				g.logger.Error("panel sleep failed", "error", err)
			}
		}()
	}
	if err := op(); err != nil {
		return err
	}
	g.lastRender = time.Now()
	return nil
}

func (g *Governor) shutdown() {
	if g.cfg.ClearOnExit {
		if err := g.perform(func() error { return g.drv.Clear(epd.White) }); err != nil {
			g.logger.Error("clear on exit failed", "error", err)
		}
	}
	if !g.cfg.SleepMode {
		if err := g.drv.Sleep(); err != nil {
			g.logger.Error("panel sleep failed", "error", err)
		}
	}
	g.logger.Info("panel released")
}

func (g *Governor) currentItem() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.snapshot.CurrentItem
}

func (g *Governor) updateSnapshot(fn func(*Info)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	fn(&g.snapshot)
}
