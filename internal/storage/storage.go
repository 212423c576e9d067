// Package storage provides the in-memory event window that deduplicates events
// fetched across repeated polls.
//
// The window keeps a history of every distinct event it has accepted, in
// ingestion order, and a set of seen ids that by default only grows. Nothing is
// persisted; the window lives and dies with the process.
package storage

import (
	"sort"
	"sync"

	"github.com/rewired-gh/hubbub/internal/models"
)

// Window deduplicates incoming batches by event id
type Window struct {
	mu     sync.RWMutex
	seen   *SeenSet
	events []models.Event
}

// New creates an empty window with an unbounded seen set
func New() *Window {
	return NewWithSeen(NewSeenSet(0, 0))
}

// NewWithSeen creates an empty window using the given seen set
func NewWithSeen(seen *SeenSet) *Window {
	if seen == nil {
		seen = NewSeenSet(0, 0)
	}
	return &Window{seen: seen}
}

// Ingest adds the events in batch whose ids have not been seen before and returns
// them stably sorted by creation time, oldest first. Duplicate ids within the
// same batch are collapsed to their first occurrence. Events failing validation
// are dropped. Re-ingesting a seen batch returns an empty slice.
func (w *Window) Ingest(batch []models.Event) []models.Event {
	w.mu.Lock()
	defer w.mu.Unlock()

	added := make([]models.Event, 0, len(batch))
	for _, e := range batch {
		if err := e.Validate(); err != nil {
			continue
		}
		if w.seen.Seen(e.ID) {
			continue
		}
		w.seen.Mark(e.ID)
		added = append(added, e)
	}

	sort.SliceStable(added, func(i, j int) bool {
		return added[i].CreatedAt.Before(added[j].CreatedAt)
	})
	w.events = append(w.events, added...)
	return added
}

// All returns a copy of every event accepted so far, in ingestion order
func (w *Window) All() []models.Event {
	w.mu.RLock()
	defer w.mu.RUnlock()

	out := make([]models.Event, len(w.events))
	copy(out, w.events)
	return out
}

// Len returns the number of events accepted so far
func (w *Window) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.events)
}

// SeenCount returns the number of ids currently remembered
func (w *Window) SeenCount() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.seen.Len()
}

// Bounded reports whether the seen set may forget ids
func (w *Window) Bounded() bool {
	return w.seen.Bounded()
}
