// Package queue holds students waiting for a volunteer. Arrival order is
// always preserved on enqueue; the configured policy only decides which entry
// leaves first.
package queue

import (
	"fmt"
	"sync"
	"time"

	"github.com/Saymum-GS/Awaken-DIU/internal/domain"
)

// Policy selects the dequeue order.
//
// The platform historically ran two disagreeing variants (pure arrival order
// in one handler, an intent to prioritise risk in the other), so the choice is
// explicit configuration. FIFO is the documented default.
type Policy string

const (
	PolicyFIFO Policy = "fifo"
	PolicyRisk Policy = "risk"
)

// ParsePolicy validates a policy name from configuration.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case PolicyFIFO, PolicyRisk:
		return Policy(s), nil
	case "":
		return PolicyFIFO, nil
	default:
		return "", fmt.Errorf("unknown queue policy %q (want fifo or risk)", s)
	}
}

// Entry is one waiting student. The session it references already exists in
// the store with status waiting.
type Entry struct {
	SessionID   string
	StudentID   string
	StudentName string
	RiskLevel   domain.RiskLevel
	EnqueuedAt  time.Time
	Conn        domain.Sender
}

// Queue is the ordered collection of waiting students.
type Queue struct {
	mu      sync.Mutex
	policy  Policy
	entries []Entry
}

func New(policy Policy) *Queue {
	return &Queue{policy: policy}
}

// Enqueue appends to the tail. Arrival order, never risk order.
func (q *Queue) Enqueue(e Entry) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.entries = append(q.entries, e)
}

// EnqueueFront returns an entry to the head of the queue, preserving its
// original arrival time. Used when a match falls through (volunteer gone at
// accept time, or the store write for the pairing failed).
func (q *Queue) EnqueueFront(e Entry) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.entries = append([]Entry{e}, q.entries...)
}

// RemoveBySession removes the entry for a session if present. Idempotent:
// removing an absent session is a no-op and reports false.
func (q *Queue) RemoveBySession(sessionID string) (Entry, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, e := range q.entries {
		if e.SessionID == sessionID {
			q.entries = append(q.entries[:i], q.entries[i+1:]...)
			return e, true
		}
	}
	return Entry{}, false
}

// Next returns the candidate the policy would dequeue, without removing it.
func (q *Queue) Next() (Entry, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	i, ok := q.nextIndex()
	if !ok {
		return Entry{}, false
	}
	return q.entries[i], true
}

// DequeueNext removes and returns the next candidate per the policy.
func (q *Queue) DequeueNext() (Entry, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	i, ok := q.nextIndex()
	if !ok {
		return Entry{}, false
	}
	e := q.entries[i]
	q.entries = append(q.entries[:i], q.entries[i+1:]...)
	return e, true
}

// nextIndex picks the dequeue index under the configured policy. Callers must
// hold q.mu. Risk policy picks the most urgent level, FIFO within a level.
func (q *Queue) nextIndex() (int, bool) {
	if len(q.entries) == 0 {
		return 0, false
	}
	if q.policy != PolicyRisk {
		return 0, true
	}

	best := 0
	for i := 1; i < len(q.entries); i++ {
		if q.entries[i].RiskLevel.MoreUrgent(q.entries[best].RiskLevel) {
			best = i
		}
	}
	return best, true
}

// Len returns the current queue size.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// Snapshot returns a copy of the queue contents in arrival order.
func (q *Queue) Snapshot() []Entry {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]Entry, len(q.entries))
	copy(out, q.entries)
	return out
}
