package v1alpha1

import "time"

// EventType identifies what happened in the display system
type EventType string

const (
	// EventContentUploaded fires when a file lands in the watched store
	EventContentUploaded EventType = "CONTENT_UPLOADED"
	// EventContentDeleted fires when a file is removed from the store
	EventContentDeleted EventType = "CONTENT_DELETED"
	// EventCommandSent fires when the front end writes a mailbox command
	EventCommandSent EventType = "COMMAND_SENT"
	// EventCommandAnswered fires when the renderer's response arrives
	EventCommandAnswered EventType = "COMMAND_ANSWERED"
	// EventSettingsChanged fires when the settings record is rewritten
	EventSettingsChanged EventType = "SETTINGS_CHANGED"
	// EventPlaylistChanged fires when a playlist is edited or activated
	EventPlaylistChanged EventType = "PLAYLIST_CHANGED"
)

// Event is a single message on the web front end's event feed
type Event struct {
	// Type indicates what kind of event occurred
	Type EventType `json:"type"`
	// Timestamp records when the event occurred
	Timestamp time.Time `json:"timestamp"`
	// Data contains event-specific details
	Data map[string]string `json:"data,omitempty"`
}
