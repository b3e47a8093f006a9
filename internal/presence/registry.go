// Package presence tracks which volunteers are online and whether they are
// free to take a chat. It replaces the raw volunteer map the boundary used to
// share: callers only get the atomic operations below, never the map itself.
package presence

import (
	"iter"
	"sync"
	"time"

	"github.com/Saymum-GS/Awaken-DIU/internal/domain"
)

// Entry is one online volunteer. Values returned from the registry are
// copies; mutating them does not touch registry state.
type Entry struct {
	VolunteerID string
	Name        string
	Conn        domain.Sender
	Busy        bool
	OnlineSince time.Time
}

// Registry is the in-memory presence registry. All operations are atomic with
// respect to concurrent connections and none of them block.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*Entry
	order   []string // registration order, for deterministic Free() scans
}

func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[string]*Entry),
	}
}

// SetOnline registers a volunteer as free, replacing any previous presence
// for the same volunteer (a reconnect supersedes the old connection).
func (r *Registry) SetOnline(volunteerID, name string, conn domain.Sender) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[volunteerID]; !exists {
		r.order = append(r.order, volunteerID)
	}
	r.entries[volunteerID] = &Entry{
		VolunteerID: volunteerID,
		Name:        name,
		Conn:        conn,
		OnlineSince: time.Now(),
	}
}

// SetOffline removes a volunteer unconditionally, busy or not. Removing a
// busy volunteer does not touch their in-progress session.
func (r *Registry) SetOffline(volunteerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[volunteerID]; !exists {
		return
	}
	delete(r.entries, volunteerID)
	for i, id := range r.order {
		if id == volunteerID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// SetBusy toggles availability without removing the entry. Returns false if
// the volunteer is not online.
func (r *Registry) SetBusy(volunteerID string, busy bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, exists := r.entries[volunteerID]
	if !exists {
		return false
	}
	e.Busy = busy
	return true
}

// Get returns a copy of the volunteer's entry.
func (r *Registry) Get(volunteerID string) (Entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, exists := r.entries[volunteerID]
	if !exists {
		return Entry{}, false
	}
	return *e, true
}

// Count returns the number of online volunteers, busy or free. This is the
// value broadcast as the volunteer-count signal.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// FreeCount returns the number of online volunteers not in a chat.
func (r *Registry) FreeCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, e := range r.entries {
		if !e.Busy {
			n++
		}
	}
	return n
}

// Free yields currently free volunteers in registration order. The sequence
// is lazy and restartable: each range re-scans live state, so entries that
// went busy or offline between yields are skipped.
func (r *Registry) Free() iter.Seq[Entry] {
	return func(yield func(Entry) bool) {
		r.mu.Lock()
		ids := make([]string, len(r.order))
		copy(ids, r.order)
		r.mu.Unlock()

		for _, id := range ids {
			r.mu.Lock()
			e, exists := r.entries[id]
			if !exists || e.Busy {
				r.mu.Unlock()
				continue
			}
			entry := *e
			r.mu.Unlock()

			if !yield(entry) {
				return
			}
		}
	}
}
