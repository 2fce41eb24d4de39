// Package playlist implements named content rotations and the scheduler
// that steps through them on the panel.
package playlist

import (
	"context"

	"github.com/paperfeed/paperfeed/api/types/v1alpha1"
)

// DefaultName is the built-in playlist; it always exists and cannot be
// deleted or renamed
const DefaultName = "default"

// Repository persists playlists and the active selection
type Repository interface {
	// ListPlaylists returns all playlists sorted by name
	ListPlaylists() ([]v1alpha1.Playlist, error)
	// GetPlaylist returns one playlist by name
	GetPlaylist(name string) (*v1alpha1.Playlist, error)
	// SavePlaylist creates or replaces a playlist
	SavePlaylist(p v1alpha1.Playlist) error
	// DeletePlaylist removes a playlist
	DeletePlaylist(name string) error
	// RenamePlaylist changes a playlist's name, keeping items and position
	RenamePlaylist(oldName, newName string) error
	// ActivePlaylist returns the name of the selected playlist
	ActivePlaylist() (string, error)
	// SetActivePlaylist records the selected playlist
	SetActivePlaylist(name string) error
}

// Panel is the subset of the renderer the scheduler drives
type Panel interface {
	Display(ctx context.Context, target string) error
}
