package playlist

import (
	"context"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/paperfeed/paperfeed/api/types/v1alpha1"
	"github.com/paperfeed/paperfeed/internal/paperd/errors"
)

// Options holds the scheduler's timer policy
type Options struct {
	// Enabled turns on timer-driven rotation
	Enabled bool
	// RotationInterval is the time between advances
	RotationInterval time.Duration
	// OverrideTimeout bounds a live override; zero means it never expires
	OverrideTimeout time.Duration
}

// Scheduler steps through the active playlist on a timer. An explicit
// display command suspends rotation (a live override) until the timeout
// elapses or an operator resumes it.
type Scheduler struct {
	repo   Repository
	panel  Panel
	logger *slog.Logger

	mu            sync.Mutex
	opts          Options
	overriding    bool
	overrideUntil time.Time

	// reload wakes the Run loop after a Reconfigure
	reload chan struct{}
}

// NewScheduler creates a scheduler and guarantees the default playlist exists
func NewScheduler(repo Repository, panel Panel, opts Options, logger *slog.Logger) (*Scheduler, error) {
	if _, err := repo.GetPlaylist(DefaultName); err != nil {
		if !errors.IsNotFound(err) {
			return nil, err
		}
		if err := repo.SavePlaylist(v1alpha1.Playlist{Name: DefaultName}); err != nil {
			return nil, err
		}
	}
	if active, err := repo.ActivePlaylist(); err != nil || active == "" {
		if err := repo.SetActivePlaylist(DefaultName); err != nil {
			return nil, err
		}
	}
	return &Scheduler{
		repo:   repo,
		panel:  panel,
		opts:   opts,
		logger: logger,
		reload: make(chan struct{}, 1),
	}, nil
}

// Mode reports the current schedule mode
func (s *Scheduler) Mode() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.modeLocked()
}

func (s *Scheduler) modeLocked() string {
	if !s.opts.Enabled {
		return v1alpha1.ScheduleManual
	}
	if s.overriding {
		return v1alpha1.ScheduleLiveOverride
	}
	return v1alpha1.SchedulePlaylist
}

// Status reports the schedule mode and, for a bounded live override, its
// expiry
func (s *Scheduler) Status() (mode string, overrideUntil *time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	mode = s.modeLocked()
	if s.overriding && !s.overrideUntil.IsZero() {
		until := s.overrideUntil
		overrideUntil = &until
	}
	return mode, overrideUntil
}

// Reconfigure swaps the timer policy; the Run loop picks it up immediately
func (s *Scheduler) Reconfigure(opts Options) {
	s.mu.Lock()
	s.opts = opts
	if !opts.Enabled {
		s.overriding = false
	}
	s.mu.Unlock()
	select {
	case s.reload <- struct{}{}:
	default:
	}
}

// Suspend pauses rotation after content outside the playlist takes the
// panel. Rotation resumes when the override times out or Resume is called.
func (s *Scheduler) Suspend() {
	s.mu.Lock()
	if !s.opts.Enabled {
		s.mu.Unlock()
		return
	}
	s.overriding = true
	if s.opts.OverrideTimeout > 0 {
		s.overrideUntil = time.Now().Add(s.opts.OverrideTimeout)
	} else {
		s.overrideUntil = time.Time{}
	}
	until := s.overrideUntil
	s.mu.Unlock()
	s.logger.Info("rotation suspended", "until", until)

	// wake the Run loop so it waits on the expiry deadline
	select {
	case s.reload <- struct{}{}:
	default:
	}
}

// Resume ends a live override and puts the current playlist item back on
// the panel
func (s *Scheduler) Resume(ctx context.Context) error {
	s.mu.Lock()
	s.overriding = false
	enabled := s.opts.Enabled
	s.mu.Unlock()
	if !enabled {
		return errors.NewError("PLAYLIST_DISABLED", "rotation is not enabled", "playlist.Resume", errors.ErrInvalidInput)
	}
	s.logger.Info("rotation resumed")
	return s.showCurrent(ctx)
}

// Run drives the rotation timer until the context is canceled. During a
// bounded live override the loop waits on the expiry deadline instead, so
// the override retires the moment it elapses.
func (s *Scheduler) Run(ctx context.Context) error {
	for {
		s.mu.Lock()
		interval := s.opts.RotationInterval
		enabled := s.opts.Enabled
		overriding := s.overriding
		until := s.overrideUntil
		s.mu.Unlock()

		if !enabled {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-s.reload:
				continue
			}
		}

		wait := interval
		expiring := false
		if overriding && !until.IsZero() {
			if d := time.Until(until); d < wait {
				wait = d
				expiring = true
			}
		}
		if wait < 0 {
			wait = 0
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.reload:
			continue
		case <-time.After(wait):
			if expiring {
				s.expireOverride(ctx)
			} else {
				s.tick(ctx)
			}
		}
	}
}

// tick advances the rotation; an active override holds it in place
func (s *Scheduler) tick(ctx context.Context) {
	s.mu.Lock()
	overriding := s.overriding
	s.mu.Unlock()
	if overriding {
		return
	}
	if err := s.Advance(ctx); err != nil {
		s.logger.Error("rotation advance failed", "error", err)
	}
}

// expireOverride retires an elapsed live override and puts the current
// playlist item back on the panel, the same hand-back Resume performs
func (s *Scheduler) expireOverride(ctx context.Context) {
	s.mu.Lock()
	if !s.overriding || s.overrideUntil.IsZero() || time.Now().Before(s.overrideUntil) {
		s.mu.Unlock()
		return
	}
	s.overriding = false
	s.mu.Unlock()

	s.logger.Info("live override expired")
	if err := s.showCurrent(ctx); err != nil {
		s.logger.Error("redisplay after override expiry failed", "error", err)
	}
}

// Advance moves the active playlist to its next item and displays it. Items
// whose files have disappeared are skipped; a full cycle of missing items
// leaves the panel untouched.
func (s *Scheduler) Advance(ctx context.Context) error {
	pl, err := s.active()
	if err != nil {
		return err
	}
	n := len(pl.Items)
	if n == 0 {
		return errors.NewError("PLAYLIST_EMPTY", "active playlist has no items", "playlist.Advance", errors.ErrInvalidInput)
	}

	pos := pl.Position
	var lastErr error
	for attempt := 0; attempt < n; attempt++ {
		pos = s.next(pos, n, pl.Randomize)
		if err := s.panel.Display(ctx, pl.Items[pos]); err != nil {
			s.logger.Warn("skipping playlist item", "item", pl.Items[pos], "error", err)
			lastErr = err
			continue
		}
		pl.Position = pos
		return s.repo.SavePlaylist(*pl)
	}
	return lastErr
}

// next picks the following index. Random order still advances: the current
// index is never drawn again unless it is the only item.
func (s *Scheduler) next(cur, n int, randomize bool) int {
	if n == 1 {
		return 0
	}
	if randomize {
		return (cur + 1 + rand.Intn(n-1)) % n
	}
	return (cur + 1) % n
}

// showCurrent redisplays the active playlist's current item
func (s *Scheduler) showCurrent(ctx context.Context) error {
	pl, err := s.active()
	if err != nil {
		return err
	}
	if len(pl.Items) == 0 {
		return errors.NewError("PLAYLIST_EMPTY", "active playlist has no items", "playlist.Resume", errors.ErrInvalidInput)
	}
	if pl.Position < 0 || pl.Position >= len(pl.Items) {
		pl.Position = 0
	}
	if err := s.panel.Display(ctx, pl.Items[pl.Position]); err != nil {
		return err
	}
	return s.repo.SavePlaylist(*pl)
}

func (s *Scheduler) active() (*v1alpha1.Playlist, error) {
	name, err := s.repo.ActivePlaylist()
	if err != nil {
		return nil, err
	}
	return s.repo.GetPlaylist(name)
}

// Create adds an empty playlist
func (s *Scheduler) Create(name string) error {
	if name == "" {
		return errors.NewError("PLAYLIST_NAME", "playlist name is required", "playlist.Create", errors.ErrInvalidInput)
	}
	if _, err := s.repo.GetPlaylist(name); err == nil {
		return errors.NewError("PLAYLIST_EXISTS", "playlist already exists", "playlist.Create", errors.ErrConflict)
	} else if !errors.IsNotFound(err) {
		return err
	}
	return s.repo.SavePlaylist(v1alpha1.Playlist{Name: name})
}

// Delete removes a playlist. The default playlist cannot be deleted;
// deleting the active playlist falls back to the default.
func (s *Scheduler) Delete(name string) error {
	if name == DefaultName {
		return errors.NewError("PLAYLIST_DEFAULT", "the default playlist cannot be deleted", "playlist.Delete", errors.ErrInvalidInput)
	}
	active, err := s.repo.ActivePlaylist()
	if err != nil {
		return err
	}
	if err := s.repo.DeletePlaylist(name); err != nil {
		return err
	}
	if active == name {
		return s.repo.SetActivePlaylist(DefaultName)
	}
	return nil
}

// Rename changes a playlist's name, following the active selection
func (s *Scheduler) Rename(oldName, newName string) error {
	if oldName == DefaultName {
		return errors.NewError("PLAYLIST_DEFAULT", "the default playlist cannot be renamed", "playlist.Rename", errors.ErrInvalidInput)
	}
	if newName == "" || newName == DefaultName {
		return errors.NewError("PLAYLIST_NAME", "invalid playlist name", "playlist.Rename", errors.ErrInvalidInput)
	}
	if _, err := s.repo.GetPlaylist(newName); err == nil {
		return errors.NewError("PLAYLIST_EXISTS", "playlist already exists", "playlist.Rename", errors.ErrConflict)
	} else if !errors.IsNotFound(err) {
		return err
	}
	active, err := s.repo.ActivePlaylist()
	if err != nil {
		return err
	}
	if err := s.repo.RenamePlaylist(oldName, newName); err != nil {
		return err
	}
	if active == oldName {
		return s.repo.SetActivePlaylist(newName)
	}
	return nil
}

// SetItems replaces a playlist's item list and resets its position
func (s *Scheduler) SetItems(name string, items []string) error {
	pl, err := s.repo.GetPlaylist(name)
	if err != nil {
		return err
	}
	pl.Items = items
	pl.Position = 0
	return s.repo.SavePlaylist(*pl)
}

// SetRandomize flips a playlist's advancement order
func (s *Scheduler) SetRandomize(name string, randomize bool) error {
	pl, err := s.repo.GetPlaylist(name)
	if err != nil {
		return err
	}
	pl.Randomize = randomize
	return s.repo.SavePlaylist(*pl)
}

// Activate selects the playlist to rotate and shows its current item when
// rotation is on
func (s *Scheduler) Activate(ctx context.Context, name string) error {
	if _, err := s.repo.GetPlaylist(name); err != nil {
		return err
	}
	if err := s.repo.SetActivePlaylist(name); err != nil {
		return err
	}
	s.mu.Lock()
	enabled := s.opts.Enabled
	s.overriding = false
	s.mu.Unlock()
	if !enabled {
		return nil
	}
	if err := s.showCurrent(ctx); err != nil && !errors.IsInvalidInput(err) {
		return err
	}
	return nil
}

// List returns every playlist with the active selection and schedule mode
func (s *Scheduler) List() (*v1alpha1.PlaylistList, error) {
	playlists, err := s.repo.ListPlaylists()
	if err != nil {
		return nil, err
	}
	active, err := s.repo.ActivePlaylist()
	if err != nil {
		return nil, err
	}
	return &v1alpha1.PlaylistList{
		Playlists: playlists,
		Active:    active,
		Mode:      s.Mode(),
	}, nil
}
