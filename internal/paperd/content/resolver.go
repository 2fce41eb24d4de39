package content

import (
	"sync"

	"github.com/paperfeed/paperfeed/api/types/v1alpha1"
)

// FallbackName is the synthetic item resolved when nothing else is available;
// the renderer draws the welcome placeholder for it.
const FallbackName = ".welcome"

// Fallback is the synthetic placeholder item guaranteeing resolver totality
func Fallback() v1alpha1.ContentItem {
	return v1alpha1.ContentItem{
		Name:   FallbackName,
		Kind:   v1alpha1.ContentGeneric,
		Source: v1alpha1.SourceSynthetic,
	}
}

// PriorityState is a snapshot of the candidate set competing for the panel.
// Producers mutate it through Tracker; Resolve reads it.
type PriorityState struct {
	// Explicit is a sticky operator selection, cleared only explicitly
	Explicit *v1alpha1.ContentItem
	// LastUpload is the most recent arrival in the watched folder
	LastUpload *v1alpha1.ContentItem
	// Newest is the most recently modified item in the store, if any
	Newest *v1alpha1.ContentItem
	// AutoDisplay gates the last-upload tier
	AutoDisplay bool
}

// Resolve picks the single item that should be on screen. Total and
// deterministic: every input yields exactly one item, with the synthetic
// placeholder as the final tier.
func Resolve(st PriorityState) v1alpha1.ContentItem {
	if st.Explicit != nil {
		return *st.Explicit
	}
	if st.AutoDisplay && st.LastUpload != nil {
		return *st.LastUpload
	}
	if st.Newest != nil {
		return *st.Newest
	}
	return Fallback()
}

// Tracker holds the mutable candidate state shared by the producers (watcher,
// command dispatch) and snapshotted for resolution.
type Tracker struct {
	mu          sync.Mutex
	explicit    *v1alpha1.ContentItem
	lastUpload  *v1alpha1.ContentItem
	autoDisplay bool
}

// NewTracker creates a tracker with the given auto-display setting
func NewTracker(autoDisplay bool) *Tracker {
	return &Tracker{autoDisplay: autoDisplay}
}

// SetExplicit records a sticky operator selection
func (t *Tracker) SetExplicit(item v1alpha1.ContentItem) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.explicit = &item
}

// ClearExplicit removes the operator selection
func (t *Tracker) ClearExplicit() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.explicit = nil
}

// SetLastUpload records a new arrival
func (t *Tracker) SetLastUpload(item v1alpha1.ContentItem) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lastUpload = &item
}

// SetAutoDisplay updates the auto-display gate on settings reload
func (t *Tracker) SetAutoDisplay(enabled bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.autoDisplay = enabled
}

// Forget drops any candidate referencing a deleted item
func (t *Tracker) Forget(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.explicit != nil && t.explicit.Name == name {
		t.explicit = nil
	}
	if t.lastUpload != nil && t.lastUpload.Name == name {
		t.lastUpload = nil
	}
}

// Snapshot captures the current priority state, consulting the store for the
// newest item tier
func (t *Tracker) Snapshot(store *Store) PriorityState {
	t.mu.Lock()
	st := PriorityState{
		Explicit:    t.explicit,
		LastUpload:  t.lastUpload,
		AutoDisplay: t.autoDisplay,
	}
	t.mu.Unlock()

	if newest, err := store.Latest(); err == nil {
		st.Newest = newest
	}
	return st
}
