// Package content manages the watched content store: enumerating and
// classifying files, reacting to filesystem changes, and resolving which
// item should currently be on the panel.
package content

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/paperfeed/paperfeed/api/types/v1alpha1"
	"github.com/paperfeed/paperfeed/internal/paperd/errors"
)

// kind classification by extension, following the upload allowlist
var (
	imageExts = map[string]bool{
		".jpg": true, ".jpeg": true, ".png": true, ".bmp": true, ".gif": true,
	}
	textExts = map[string]bool{
		".txt": true, ".md": true, ".py": true, ".js": true, ".html": true,
		".css": true, ".json": true, ".xml": true, ".csv": true,
	}
	documentExts = map[string]bool{
		".pdf": true,
	}
)

// AllowedExtension reports whether uploads of this filename are accepted;
// the upload API refuses anything it cannot classify
func AllowedExtension(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return imageExts[ext] || textExts[ext] || documentExts[ext]
}

// KindOf classifies a filename by extension
func KindOf(name string) v1alpha1.ContentKind {
	ext := strings.ToLower(filepath.Ext(name))
	switch {
	case imageExts[ext]:
		return v1alpha1.ContentImage
	case textExts[ext]:
		return v1alpha1.ContentText
	case documentExts[ext]:
		return v1alpha1.ContentDocument
	default:
		return v1alpha1.ContentGeneric
	}
}

// Store reads the watched folder. The renderer only ever reads; writes come
// from the upload front end and external producers dropping files in.
type Store struct {
	dir string
}

// NewStore opens the watched folder, creating it if needed
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.NewError("CONTENT_DIR", "cannot create watched folder", "content.NewStore", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the watched folder path
func (s *Store) Dir() string {
	return s.dir
}

// List enumerates the store's items, most recently modified first. Dot files
// are invisible to the display pipeline.
func (s *Store) List() ([]v1alpha1.ContentItem, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, errors.NewError("CONTENT_LIST", "cannot read watched folder", "content.List", err)
	}
	items := make([]v1alpha1.ContentItem, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		items = append(items, v1alpha1.ContentItem{
			Name:       entry.Name(),
			Kind:       KindOf(entry.Name()),
			Size:       info.Size(),
			ModifiedAt: info.ModTime(),
			Source:     v1alpha1.SourceExisting,
		})
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].ModifiedAt.After(items[j].ModifiedAt)
	})
	return items, nil
}

// Latest returns the most recently modified item, or nil for an empty store
func (s *Store) Latest() (*v1alpha1.ContentItem, error) {
	items, err := s.List()
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}
	return &items[0], nil
}

// Stat looks up one item by name
func (s *Store) Stat(name string) (*v1alpha1.ContentItem, error) {
	if !validName(name) {
		return nil, errors.NewError("CONTENT_NAME", "invalid content name", "content.Stat", errors.ErrInvalidInput)
	}
	info, err := os.Stat(filepath.Join(s.dir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewError("CONTENT_MISSING", "content item not found", "content.Stat", errors.ErrContentMissing)
		}
		return nil, errors.NewError("CONTENT_STAT", "cannot stat content item", "content.Stat", err)
	}
	return &v1alpha1.ContentItem{
		Name:       name,
		Kind:       KindOf(name),
		Size:       info.Size(),
		ModifiedAt: info.ModTime(),
		Source:     v1alpha1.SourceExisting,
	}, nil
}

// Read returns an item's bytes
func (s *Store) Read(name string) ([]byte, error) {
	if !validName(name) {
		return nil, errors.NewError("CONTENT_NAME", "invalid content name", "content.Read", errors.ErrInvalidInput)
	}
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewError("CONTENT_MISSING", "content item not found", "content.Read", errors.ErrContentMissing)
		}
		return nil, errors.NewError("CONTENT_READ", "cannot read content item", "content.Read", err)
	}
	return data, nil
}

// Delete removes an item from the store
func (s *Store) Delete(name string) error {
	if !validName(name) {
		return errors.NewError("CONTENT_NAME", "invalid content name", "content.Delete", errors.ErrInvalidInput)
	}
	if err := os.Remove(filepath.Join(s.dir, name)); err != nil {
		if os.IsNotExist(err) {
			return errors.NewError("CONTENT_MISSING", "content item not found", "content.Delete", errors.ErrContentMissing)
		}
		return errors.NewError("CONTENT_DELETE", "cannot delete content item", "content.Delete", err)
	}
	return nil
}

// Cleanup removes all but the keepCount most recent items and returns the
// deleted names
func (s *Store) Cleanup(keepCount int) ([]string, error) {
	if keepCount < 0 {
		keepCount = 0
	}
	items, err := s.List()
	if err != nil {
		return nil, err
	}
	if len(items) <= keepCount {
		return nil, nil
	}
	var removed []string
	for _, item := range items[keepCount:] {
		if err := s.Delete(item.Name); err != nil {
			return removed, err
		}
		removed = append(removed, item.Name)
	}
	return removed, nil
}

// validName rejects names that would escape the watched folder
func validName(name string) bool {
	return name != "" && name == filepath.Base(name) && !strings.HasPrefix(name, ".")
}
