package v1alpha1

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// CommandKind identifies what a mailbox command asks the renderer to do
type CommandKind string

const (
	// CommandDisplay renders a content item; an empty target means "the
	// current best candidate" as decided by the priority resolver
	CommandDisplay CommandKind = "display"
	// CommandRefresh clears and redraws the current content to combat
	// panel ghosting
	CommandRefresh CommandKind = "refresh"
	// CommandClear blanks the panel to a single color
	CommandClear CommandKind = "clear"
	// CommandQueryInfo reports renderer state without touching hardware
	CommandQueryInfo CommandKind = "query-info"
	// CommandReloadSettings makes the renderer re-read the settings store
	// and swap in a fresh configuration snapshot
	CommandReloadSettings CommandKind = "reload-settings"

	// CommandPlaylistCreate creates a named playlist
	CommandPlaylistCreate CommandKind = "playlist-create"
	// CommandPlaylistDelete removes a playlist (the default playlist is
	// protected)
	CommandPlaylistDelete CommandKind = "playlist-delete"
	// CommandPlaylistRename renames a playlist
	CommandPlaylistRename CommandKind = "playlist-rename"
	// CommandPlaylistSetItems replaces a playlist's ordered membership
	CommandPlaylistSetItems CommandKind = "playlist-set-items"
	// CommandPlaylistRandomize toggles randomized advancement
	CommandPlaylistRandomize CommandKind = "playlist-randomize"
	// CommandPlaylistActivate makes a playlist the current rotation
	CommandPlaylistActivate CommandKind = "playlist-activate"
	// CommandPlaylistAdvance moves the rotation forward one step
	CommandPlaylistAdvance CommandKind = "playlist-advance"
	// CommandPlaylistResume ends a live override and returns control to
	// the playlist rotation
	CommandPlaylistResume CommandKind = "playlist-resume"
	// CommandPlaylistList reports all playlists and the active rotation
	CommandPlaylistList CommandKind = "playlist-list"
)

// Command is a single request written into the mailbox by a producer and
// consumed exactly once by the renderer
type Command struct {
	// Kind identifies the requested operation
	Kind CommandKind `json:"kind"`
	// ID uniquely identifies this command and its paired response
	ID uuid.UUID `json:"id"`
	// CreatedAt is when the producer wrote the command
	CreatedAt time.Time `json:"createdAt"`
	// Target names a content item for display commands; empty means the
	// resolver's current best candidate
	Target string `json:"target,omitempty"`
	// Color names a panel color for clear commands (default white)
	Color string `json:"color,omitempty"`
	// Playlist carries the arguments of playlist commands
	Playlist *PlaylistArgs `json:"playlist,omitempty"`
}

// PlaylistArgs carries the parameters of playlist mailbox commands
type PlaylistArgs struct {
	// Name is the playlist the command operates on
	Name string `json:"name,omitempty"`
	// NewName is the target name for rename commands
	NewName string `json:"newName,omitempty"`
	// Items is the ordered membership for set-items commands
	Items []string `json:"items,omitempty"`
	// Randomize is the flag value for randomize commands
	Randomize bool `json:"randomize,omitempty"`
}

// ResponseStatus reports the outcome of a command
type ResponseStatus string

const (
	// StatusOK indicates the command was honored
	StatusOK ResponseStatus = "ok"
	// StatusError indicates the command failed; Error holds the reason
	StatusError ResponseStatus = "error"
)

// Response is the renderer's reply to a single command, written next to the
// command file in the mailbox
type Response struct {
	// CommandID matches the ID of the command being answered
	CommandID uuid.UUID `json:"commandId"`
	// Status reports success or failure
	Status ResponseStatus `json:"status"`
	// Error describes the failure when Status is error
	Error *Error `json:"error,omitempty"`
	// CompletedAt is when the renderer finished the command
	CompletedAt time.Time `json:"completedAt"`
	// Payload holds kind-specific result data, such as DisplayInfo for
	// query commands
	Payload json.RawMessage `json:"payload,omitempty"`
}

// DisplayInfo is the payload answering a query-info command
type DisplayInfo struct {
	// Device identifies the panel variant in use
	Device string `json:"device"`
	// Width and Height are the logical landscape frame dimensions
	Width  int `json:"width"`
	Height int `json:"height"`
	// Orientation is the configured orientation name
	Orientation string `json:"orientation"`
	// CurrentItem names the content currently on the panel, if any
	CurrentItem string `json:"currentItem,omitempty"`
	// LastRenderAt is when the panel last completed a render
	LastRenderAt time.Time `json:"lastRenderAt,omitempty"`
	// ScheduleMode reports manual, playlist, or live-override operation
	ScheduleMode string `json:"scheduleMode"`
	// OverrideUntil is when a live override expires, if one is active and
	// bounded
	OverrideUntil *time.Time `json:"overrideUntil,omitempty"`
	// ActivePlaylist names the current rotation
	ActivePlaylist string `json:"activePlaylist,omitempty"`
}

// NewCommand builds a command of the given kind with a fresh ID
func NewCommand(kind CommandKind) Command {
	return Command{
		Kind:      kind,
		ID:        uuid.New(),
		CreatedAt: time.Now().UTC(),
	}
}
