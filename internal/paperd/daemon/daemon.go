// Package daemon wires the renderer's components together: panel driver,
// content store, timing governor, playlist scheduler, and the command
// mailbox. One Daemon owns the panel for the process lifetime.
package daemon

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/paperfeed/paperfeed/api/types/v1alpha1"
	"github.com/paperfeed/paperfeed/internal/mailbox"
	"github.com/paperfeed/paperfeed/internal/paperd/config"
	"github.com/paperfeed/paperfeed/internal/paperd/content"
	"github.com/paperfeed/paperfeed/internal/paperd/epd"
	"github.com/paperfeed/paperfeed/internal/paperd/epd/waveshare"
	"github.com/paperfeed/paperfeed/internal/paperd/governor"
	"github.com/paperfeed/paperfeed/internal/paperd/playlist"
	"github.com/paperfeed/paperfeed/internal/paperd/render"
	"github.com/paperfeed/paperfeed/internal/store"
)

// Daemon is the assembled renderer
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger

	contentStore *content.Store
	tracker      *content.Tracker
	governor     *governor.Governor
	scheduler    *playlist.Scheduler
	watcher      *content.Watcher
	consumer     *mailbox.Consumer
	db           *store.Store
}

// New assembles the renderer from configuration. Stored settings written by
// the front end overlay the config file values.
func New(cfg *config.Config, logger *slog.Logger) (*Daemon, error) {
	contentStore, err := content.NewStore(cfg.Content.WatchDir)
	if err != nil {
		return nil, err
	}

	db, err := store.Open(cfg.Store.Path)
	if err != nil {
		return nil, err
	}

	settings := effectiveSettings(cfg, db, logger)
	govCfg, orientation, schedOpts := mapSettings(cfg, settings)

	drv, err := openPanel(cfg.Panel)
	if err != nil {
		db.Close()
		return nil, err
	}

	tracker := content.NewTracker(settings.AutoDisplay)
	gov := governor.New(drv, contentStore, tracker, govCfg, orientation, logger)

	panel := &playlistPanel{store: contentStore, gov: gov}
	sched, err := playlist.NewScheduler(db, panel, schedOpts, logger)
	if err != nil {
		db.Close()
		return nil, err
	}

	d := &Daemon{
		cfg:          cfg,
		logger:       logger,
		contentStore: contentStore,
		tracker:      tracker,
		governor:     gov,
		scheduler:    sched,
		db:           db,
	}

	d.watcher = content.NewWatcher(contentStore, logger)
	d.watcher.OnItem = d.onNewContent
	d.watcher.OnRemove = d.onRemovedContent

	consumer, err := mailbox.NewConsumer(cfg.Mailbox.Dir, d.dispatch, logger)
	if err != nil {
		db.Close()
		return nil, err
	}
	d.consumer = consumer

	return d, nil
}

// Run starts every component and blocks until the context is canceled or a
// component fails
func (d *Daemon) Run(ctx context.Context) error {
	defer d.db.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	errs := make(chan error, 4)

	run := func(name string, fn func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(ctx); err != nil && ctx.Err() == nil {
				d.logger.Error("component failed", "component", name, "error", err)
				errs <- err
			}
		}()
	}

	run("governor", d.governor.Run)
	run("watcher", d.watcher.Run)
	run("scheduler", d.scheduler.Run)
	run("mailbox", d.consumer.Run)

	var err error
	select {
	case <-ctx.Done():
	case err = <-errs:
		cancel()
	}
	wg.Wait()
	return err
}

// playlistPanel fronts the governor for the scheduler. The governor
// substitutes the resolver's candidate when a named target is missing; the
// scheduler instead needs a hard failure so its advance loop skips the item.
type playlistPanel struct {
	store *content.Store
	gov   *governor.Governor
}

func (p *playlistPanel) Display(ctx context.Context, target string) error {
	if _, err := p.store.Stat(target); err != nil {
		return err
	}
	return p.gov.Display(ctx, target)
}

// onNewContent reacts to a settled arrival in the watched folder. With
// auto-display on, the new item takes the panel and suspends any rotation.
func (d *Daemon) onNewContent(item v1alpha1.ContentItem) {
	d.tracker.SetLastUpload(item)
	st := d.tracker.Snapshot(d.contentStore)
	if !st.AutoDisplay || st.Explicit != nil {
		return
	}
	d.scheduler.Suspend()
	if err := d.governor.Display(context.Background(), ""); err != nil {
		d.logger.Error("auto-display failed", "name", item.Name, "error", err)
	}
}

// onRemovedContent drops tracker references to a deleted item
func (d *Daemon) onRemovedContent(name string) {
	d.tracker.Forget(name)
}

// openPanel selects the configured panel driver
func openPanel(cfg config.PanelConfig) (epd.Driver, error) {
	caps, err := epd.Lookup(cfg.Variant)
	if err != nil {
		return nil, err
	}
	if cfg.Variant == "memory" {
		return epd.NewMemory(caps), nil
	}
	return waveshare.Open(waveshare.Config{
		Capabilities: caps,
		SPIPort:      cfg.SPIPort,
		DCPin:        cfg.DCPin,
		ResetPin:     cfg.ResetPin,
		BusyPin:      cfg.BusyPin,
	})
}

// effectiveSettings merges the config file with the stored settings. Absent
// or malformed stored settings fall back to the file values.
func effectiveSettings(cfg *config.Config, db *store.Store, logger *slog.Logger) v1alpha1.Settings {
	settings := settingsFromConfig(cfg)
	stored, err := db.LoadSettings()
	if err != nil {
		logger.Info("no stored settings, using configuration file", "error", err)
		return settings
	}
	return *stored
}

// settingsFromConfig flattens the config file into the shared settings shape
func settingsFromConfig(cfg *config.Config) v1alpha1.Settings {
	return v1alpha1.Settings{
		Orientation:         cfg.Display.Orientation,
		AutoDisplay:         cfg.Display.AutoDisplay,
		ThrottleEnabled:     cfg.Timing.ThrottleEnabled,
		MinInterval:         time.Duration(cfg.Timing.MinInterval),
		StartupDelay:        time.Duration(cfg.Timing.StartupDelay),
		StartupTimerEnabled: cfg.Timing.StartupTimerEnabled,
		RefreshInterval:     time.Duration(cfg.Timing.RefreshInterval),
		RefreshTimerEnabled: cfg.Timing.RefreshTimerEnabled,
		SleepMode:           cfg.Timing.SleepMode,
		PlaylistEnabled:     cfg.Playlist.Enabled,
		RotationInterval:    time.Duration(cfg.Playlist.RotationInterval),
		OverrideTimeout:     time.Duration(cfg.Playlist.OverrideTimeout),
	}
}

// mapSettings translates shared settings into component configurations.
// ClearOnStart, ClearOnExit, and InitialFile come only from the config file.
func mapSettings(cfg *config.Config, settings v1alpha1.Settings) (governor.Config, render.Orientation, playlist.Options) {
	orientation, err := render.ParseOrientation(settings.Orientation)
	if err != nil {
		orientation = render.OrientationLandscape
	}
	govCfg := governor.Config{
		ThrottleEnabled:     settings.ThrottleEnabled,
		MinInterval:         settings.MinInterval,
		StartupTimerEnabled: settings.StartupTimerEnabled,
		StartupDelay:        settings.StartupDelay,
		RefreshTimerEnabled: settings.RefreshTimerEnabled,
		RefreshInterval:     settings.RefreshInterval,
		SleepMode:           settings.SleepMode,
		ClearOnStart:        cfg.Timing.ClearOnStart,
		ClearOnExit:         cfg.Timing.ClearOnExit,
		InitialFile:         cfg.Content.InitialFile,
	}
	schedOpts := playlist.Options{
		Enabled:          settings.PlaylistEnabled,
		RotationInterval: settings.RotationInterval,
		OverrideTimeout:  settings.OverrideTimeout,
	}
	return govCfg, orientation, schedOpts
}
