package v1alpha1

import "time"

// Playlist is a named ordered collection of content items
type Playlist struct {
	// Name identifies the playlist
	Name string `json:"name"`
	// Items is the ordered list of content item names
	Items []string `json:"items"`
	// Position is the index of the item currently in rotation
	Position int `json:"position"`
	// Randomize selects random-order advancement
	Randomize bool `json:"randomize"`
}

// PlaylistList is the payload answering a playlist-list command
type PlaylistList struct {
	// Playlists holds every stored playlist
	Playlists []Playlist `json:"playlists"`
	// Active names the playlist currently in rotation
	Active string `json:"active"`
	// Mode reports the schedule mode (manual, playlist, live-override)
	Mode string `json:"mode"`
}

// ScheduleMode names the scheduler's operating mode on the wire
const (
	// ScheduleManual means no autonomous rotation
	ScheduleManual = "manual"
	// SchedulePlaylist means timer-driven rotation of the active playlist
	SchedulePlaylist = "playlist"
	// ScheduleLiveOverride means rotation is suspended after an explicit
	// display command
	ScheduleLiveOverride = "live-override"
)

// Settings is the flat configuration record shared through the settings
// store. The front end writes it; the renderer reads it at startup and on a
// reload-settings command.
type Settings struct {
	// Orientation is one of landscape, landscape-flipped, portrait,
	// portrait-flipped
	Orientation string `json:"orientation"`
	// AutoDisplay shows new uploads as they arrive
	AutoDisplay bool `json:"autoDisplay"`
	// ThrottleEnabled enforces the minimum interval between renders
	ThrottleEnabled bool `json:"throttleEnabled"`
	// MinInterval is the minimum spacing between hardware renders
	MinInterval time.Duration `json:"minInterval"`
	// StartupDelay is the grace period before the first content render
	StartupDelay time.Duration `json:"startupDelay"`
	// StartupTimerEnabled gates the startup grace period
	StartupTimerEnabled bool `json:"startupTimerEnabled"`
	// RefreshInterval is the anti-ghosting refresh period
	RefreshInterval time.Duration `json:"refreshInterval"`
	// RefreshTimerEnabled gates the periodic refresh
	RefreshTimerEnabled bool `json:"refreshTimerEnabled"`
	// SleepMode brackets every hardware operation with wake and sleep
	SleepMode bool `json:"sleepMode"`
	// PlaylistEnabled turns on timer-driven rotation
	PlaylistEnabled bool `json:"playlistEnabled"`
	// RotationInterval is the time between playlist advances
	RotationInterval time.Duration `json:"rotationInterval"`
	// OverrideTimeout bounds a live override; zero means it never
	// auto-expires
	OverrideTimeout time.Duration `json:"overrideTimeout"`
}
