package daemon

import (
	"context"
	"encoding/json"
	stderrors "errors"

	"github.com/paperfeed/paperfeed/api/types/v1alpha1"
	"github.com/paperfeed/paperfeed/internal/paperd/epd"
	"github.com/paperfeed/paperfeed/internal/paperd/errors"
)

// dispatch routes one mailbox command to the owning component. Queries are
// answered from snapshots; everything touching the panel goes through the
// governor and inherits its gating.
func (d *Daemon) dispatch(ctx context.Context, cmd v1alpha1.Command) v1alpha1.Response {
	switch cmd.Kind {
	case v1alpha1.CommandDisplay:
		return d.result(d.handleDisplay(ctx, cmd.Target))
	case v1alpha1.CommandRefresh:
		return d.result(d.governor.Refresh(ctx))
	case v1alpha1.CommandClear:
		return d.result(d.handleClear(ctx, cmd.Color))
	case v1alpha1.CommandQueryInfo:
		return d.handleQueryInfo()
	case v1alpha1.CommandReloadSettings:
		return d.result(d.handleReloadSettings(ctx))
	case v1alpha1.CommandPlaylistCreate:
		return d.result(d.scheduler.Create(playlistName(cmd)))
	case v1alpha1.CommandPlaylistDelete:
		return d.result(d.scheduler.Delete(playlistName(cmd)))
	case v1alpha1.CommandPlaylistRename:
		if cmd.Playlist == nil {
			return d.result(missingArgs("playlist-rename"))
		}
		return d.result(d.scheduler.Rename(cmd.Playlist.Name, cmd.Playlist.NewName))
	case v1alpha1.CommandPlaylistSetItems:
		if cmd.Playlist == nil {
			return d.result(missingArgs("playlist-set-items"))
		}
		return d.result(d.scheduler.SetItems(cmd.Playlist.Name, cmd.Playlist.Items))
	case v1alpha1.CommandPlaylistRandomize:
		if cmd.Playlist == nil {
			return d.result(missingArgs("playlist-randomize"))
		}
		return d.result(d.scheduler.SetRandomize(cmd.Playlist.Name, cmd.Playlist.Randomize))
	case v1alpha1.CommandPlaylistActivate:
		return d.result(d.scheduler.Activate(ctx, playlistName(cmd)))
	case v1alpha1.CommandPlaylistAdvance:
		return d.result(d.scheduler.Advance(ctx))
	case v1alpha1.CommandPlaylistResume:
		return d.result(d.handleResume(ctx))
	case v1alpha1.CommandPlaylistList:
		return d.handlePlaylistList()
	default:
		return d.result(errors.NewError("COMMAND_UNKNOWN", "unknown command kind: "+string(cmd.Kind), "daemon.dispatch", errors.ErrInvalidInput))
	}
}

// handleDisplay shows a named item, or the resolver's best candidate when no
// target is given. A named target becomes the sticky explicit selection and
// suspends any rotation.
func (d *Daemon) handleDisplay(ctx context.Context, target string) error {
	if target == "" {
		return d.governor.Display(ctx, "")
	}
	item, err := d.contentStore.Stat(target)
	if err != nil {
		return err
	}
	d.tracker.SetExplicit(*item)
	d.scheduler.Suspend()
	return d.governor.Display(ctx, target)
}

// handleClear blanks the panel and drops the explicit selection so a later
// bare display command doesn't resurrect it
func (d *Daemon) handleClear(ctx context.Context, color string) error {
	d.tracker.ClearExplicit()
	return d.governor.Clear(ctx, epd.ParseColor(color))
}

// handleResume ends a live override and hands the panel back to the playlist
func (d *Daemon) handleResume(ctx context.Context) error {
	d.tracker.ClearExplicit()
	return d.scheduler.Resume(ctx)
}

// handleQueryInfo answers immediately from snapshots, never waiting on
// hardware or the throttle queue
func (d *Daemon) handleQueryInfo() v1alpha1.Response {
	info := d.governor.Info()
	mode, overrideUntil := d.scheduler.Status()
	active, err := d.db.ActivePlaylist()
	if err != nil {
		d.logger.Warn("cannot read active playlist", "error", err)
	}

	payload := v1alpha1.DisplayInfo{
		Device:         info.Device,
		Width:          info.Width,
		Height:         info.Height,
		Orientation:    info.Orientation,
		CurrentItem:    info.CurrentItem,
		LastRenderAt:   info.LastRenderAt,
		ScheduleMode:   mode,
		OverrideUntil:  overrideUntil,
		ActivePlaylist: active,
	}
	return d.payloadResponse(payload)
}

// handleReloadSettings re-reads the settings store and swaps the new policy
// into the governor, scheduler, and tracker
func (d *Daemon) handleReloadSettings(ctx context.Context) error {
	settings, err := d.db.LoadSettings()
	if err != nil {
		return err
	}
	govCfg, orientation, schedOpts := mapSettings(d.cfg, *settings)
	if err := d.governor.Reconfigure(ctx, govCfg, orientation); err != nil {
		return err
	}
	d.scheduler.Reconfigure(schedOpts)
	d.tracker.SetAutoDisplay(settings.AutoDisplay)
	d.logger.Info("settings reloaded",
		"orientation", settings.Orientation,
		"autoDisplay", settings.AutoDisplay,
		"playlistEnabled", settings.PlaylistEnabled)
	return nil
}

func (d *Daemon) handlePlaylistList() v1alpha1.Response {
	list, err := d.scheduler.List()
	if err != nil {
		return d.result(err)
	}
	return d.payloadResponse(list)
}

// result wraps a component error into the wire response shape
func (d *Daemon) result(err error) v1alpha1.Response {
	if err == nil {
		return v1alpha1.Response{Status: v1alpha1.StatusOK}
	}
	return v1alpha1.Response{
		Status: v1alpha1.StatusError,
		Error:  wireError(err),
	}
}

func (d *Daemon) payloadResponse(v interface{}) v1alpha1.Response {
	payload, err := json.Marshal(v)
	if err != nil {
		return d.result(err)
	}
	return v1alpha1.Response{Status: v1alpha1.StatusOK, Payload: payload}
}

// wireError keeps the machine-readable code when the failure is a domain
// error
func wireError(err error) *v1alpha1.Error {
	var domainErr *errors.Error
	if stderrors.As(err, &domainErr) {
		return &v1alpha1.Error{Code: domainErr.Code, Message: err.Error()}
	}
	return &v1alpha1.Error{Code: "INTERNAL", Message: err.Error()}
}

func playlistName(cmd v1alpha1.Command) string {
	if cmd.Playlist == nil {
		return ""
	}
	return cmd.Playlist.Name
}

func missingArgs(kind string) error {
	return errors.NewError("COMMAND_ARGS", "missing playlist arguments for "+kind, "daemon.dispatch", errors.ErrInvalidInput)
}
