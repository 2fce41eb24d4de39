// Package store persists settings and playlists in an embedded SQLite
// database shared by the renderer and the upload front end. The front end is
// the only settings writer; the renderer re-reads on a reload-settings
// command, so both sides open the same file with WAL enabled.
package store

import (
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/paperfeed/paperfeed/api/types/v1alpha1"
	"github.com/paperfeed/paperfeed/internal/paperd/errors"
)

const settingsKey = "settings"
const activePlaylistKey = "active_playlist"

// Store wraps the shared database
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	// modernc.org/sqlite takes pragmas as _pragma=name(value) pairs
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS kv (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS playlists (
		name TEXT PRIMARY KEY,
		randomize BOOLEAN NOT NULL DEFAULT FALSE,
		position INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS playlist_items (
		playlist TEXT NOT NULL REFERENCES playlists(name) ON DELETE CASCADE ON UPDATE CASCADE,
		idx INTEGER NOT NULL,
		item TEXT NOT NULL,
		PRIMARY KEY (playlist, idx)
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}
	_, err := s.db.Exec("PRAGMA foreign_keys = ON")
	return err
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// LoadSettings returns the stored settings, or ErrNotFound when none have
// been saved yet
func (s *Store) LoadSettings() (*v1alpha1.Settings, error) {
	row := s.db.QueryRow("SELECT value FROM kv WHERE key = ?", settingsKey)
	var value string
	if err := row.Scan(&value); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NewError("SETTINGS_MISSING", "no stored settings", "store.LoadSettings", errors.ErrNotFound)
		}
		return nil, err
	}
	var settings v1alpha1.Settings
	if err := json.Unmarshal([]byte(value), &settings); err != nil {
		return nil, errors.NewError("SETTINGS_PARSE", "stored settings are malformed", "store.LoadSettings", err)
	}
	return &settings, nil
}

// SaveSettings replaces the stored settings
func (s *Store) SaveSettings(settings v1alpha1.Settings) error {
	value, err := json.Marshal(settings)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, settingsKey, string(value), time.Now())
	return err
}

// ListPlaylists returns all playlists with their items, sorted by name
func (s *Store) ListPlaylists() ([]v1alpha1.Playlist, error) {
	rows, err := s.db.Query("SELECT name, randomize, position FROM playlists ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var playlists []v1alpha1.Playlist
	for rows.Next() {
		var p v1alpha1.Playlist
		if err := rows.Scan(&p.Name, &p.Randomize, &p.Position); err != nil {
			return nil, err
		}
		playlists = append(playlists, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range playlists {
		items, err := s.playlistItems(playlists[i].Name)
		if err != nil {
			return nil, err
		}
		playlists[i].Items = items
	}
	return playlists, nil
}

// GetPlaylist returns one playlist by name
func (s *Store) GetPlaylist(name string) (*v1alpha1.Playlist, error) {
	row := s.db.QueryRow("SELECT name, randomize, position FROM playlists WHERE name = ?", name)
	var p v1alpha1.Playlist
	if err := row.Scan(&p.Name, &p.Randomize, &p.Position); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NewError("PLAYLIST_MISSING", "playlist not found", "store.GetPlaylist", errors.ErrNotFound)
		}
		return nil, err
	}
	items, err := s.playlistItems(name)
	if err != nil {
		return nil, err
	}
	p.Items = items
	return &p, nil
}

func (s *Store) playlistItems(name string) ([]string, error) {
	rows, err := s.db.Query("SELECT item FROM playlist_items WHERE playlist = ? ORDER BY idx", name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []string
	for rows.Next() {
		var item string
		if err := rows.Scan(&item); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// SavePlaylist creates or replaces a playlist and its items
func (s *Store) SavePlaylist(p v1alpha1.Playlist) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`
		INSERT INTO playlists (name, randomize, position) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET randomize = excluded.randomize, position = excluded.position
	`, p.Name, p.Randomize, p.Position); err != nil {
		return err
	}
	if _, err := tx.Exec("DELETE FROM playlist_items WHERE playlist = ?", p.Name); err != nil {
		return err
	}
	for idx, item := range p.Items {
		if _, err := tx.Exec(
			"INSERT INTO playlist_items (playlist, idx, item) VALUES (?, ?, ?)",
			p.Name, idx, item,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// DeletePlaylist removes a playlist and its items
func (s *Store) DeletePlaylist(name string) error {
	res, err := s.db.Exec("DELETE FROM playlists WHERE name = ?", name)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errors.NewError("PLAYLIST_MISSING", "playlist not found", "store.DeletePlaylist", errors.ErrNotFound)
	}
	return nil
}

// RenamePlaylist changes a playlist's name; items follow via cascade
func (s *Store) RenamePlaylist(oldName, newName string) error {
	res, err := s.db.Exec("UPDATE playlists SET name = ? WHERE name = ?", newName, oldName)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errors.NewError("PLAYLIST_MISSING", "playlist not found", "store.RenamePlaylist", errors.ErrNotFound)
	}
	return nil
}

// ActivePlaylist returns the selected playlist name, empty when none is set
func (s *Store) ActivePlaylist() (string, error) {
	row := s.db.QueryRow("SELECT value FROM kv WHERE key = ?", activePlaylistKey)
	var name string
	if err := row.Scan(&name); err != nil {
		if err == sql.ErrNoRows {
			return "", nil
		}
		return "", err
	}
	return name, nil
}

// SetActivePlaylist records the selected playlist
func (s *Store) SetActivePlaylist(name string) error {
	_, err := s.db.Exec(`
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, activePlaylistKey, name, time.Now())
	return err
}
