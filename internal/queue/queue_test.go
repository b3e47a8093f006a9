package queue

import (
	"testing"
	"time"

	"github.com/Saymum-GS/Awaken-DIU/internal/domain"
)

var base = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

func entry(sessionID, studentID string, risk domain.RiskLevel, offset time.Duration) Entry {
	return Entry{
		SessionID:  sessionID,
		StudentID:  studentID,
		RiskLevel:  risk,
		EnqueuedAt: base.Add(offset),
	}
}

func TestParsePolicy(t *testing.T) {
	if p, err := ParsePolicy(""); err != nil || p != PolicyFIFO {
		t.Fatalf("empty policy: got %q, %v", p, err)
	}
	if p, err := ParsePolicy("risk"); err != nil || p != PolicyRisk {
		t.Fatalf("risk policy: got %q, %v", p, err)
	}
	if _, err := ParsePolicy("lifo"); err == nil {
		t.Fatal("unknown policy should be rejected")
	}
}

func TestFIFOIgnoresRisk(t *testing.T) {
	q := New(PolicyFIFO)
	q.Enqueue(entry("s1", "a", domain.RiskLow, 0))
	q.Enqueue(entry("s2", "b", domain.RiskHigh, time.Second))

	e, ok := q.DequeueNext()
	if !ok || e.SessionID != "s1" {
		t.Fatalf("got %q, want s1 (arrival order)", e.SessionID)
	}
	e, ok = q.DequeueNext()
	if !ok || e.SessionID != "s2" {
		t.Fatalf("got %q, want s2", e.SessionID)
	}
	if _, ok := q.DequeueNext(); ok {
		t.Fatal("queue should be empty")
	}
}

func TestRiskPolicyPrefersUrgent(t *testing.T) {
	q := New(PolicyRisk)
	q.Enqueue(entry("s1", "a", domain.RiskLow, 0))
	q.Enqueue(entry("s2", "b", domain.RiskHigh, time.Second))
	q.Enqueue(entry("s3", "c", domain.RiskMedium, 2*time.Second))

	want := []string{"s2", "s3", "s1"}
	for _, id := range want {
		e, ok := q.DequeueNext()
		if !ok || e.SessionID != id {
			t.Fatalf("got %q, want %q", e.SessionID, id)
		}
	}
}

func TestRiskPolicyFIFOWithinLevel(t *testing.T) {
	q := New(PolicyRisk)
	q.Enqueue(entry("s1", "a", domain.RiskHigh, 0))
	q.Enqueue(entry("s2", "b", domain.RiskHigh, time.Second))

	e, _ := q.DequeueNext()
	if e.SessionID != "s1" {
		t.Fatalf("got %q, want s1 (earlier arrival at same level)", e.SessionID)
	}
}

func TestNextDoesNotRemove(t *testing.T) {
	q := New(PolicyFIFO)
	q.Enqueue(entry("s1", "a", domain.RiskLow, 0))

	if _, ok := q.Next(); !ok {
		t.Fatal("Next: queue should have a candidate")
	}
	if q.Len() != 1 {
		t.Fatalf("Len = %d after Next, want 1", q.Len())
	}
}

func TestEnqueueFrontRestoresHeadAndArrivalTime(t *testing.T) {
	q := New(PolicyFIFO)
	first := entry("s1", "a", domain.RiskLow, 0)
	q.Enqueue(first)
	q.Enqueue(entry("s2", "b", domain.RiskLow, time.Second))

	got, ok := q.DequeueNext()
	if !ok || got.SessionID != "s1" {
		t.Fatalf("dequeued %q, want s1", got.SessionID)
	}

	// Failed match: the student goes back to the head.
	q.EnqueueFront(got)

	head, ok := q.Next()
	if !ok || head.SessionID != "s1" {
		t.Fatalf("head = %q after EnqueueFront, want s1", head.SessionID)
	}
	if !head.EnqueuedAt.Equal(first.EnqueuedAt) {
		t.Fatalf("arrival time changed: %v, want %v", head.EnqueuedAt, first.EnqueuedAt)
	}
}

func TestRemoveBySessionIsIdempotent(t *testing.T) {
	q := New(PolicyFIFO)
	q.Enqueue(entry("s1", "a", domain.RiskLow, 0))

	if _, ok := q.RemoveBySession("s1"); !ok {
		t.Fatal("first remove should find the entry")
	}
	if _, ok := q.RemoveBySession("s1"); ok {
		t.Fatal("second remove should be a no-op")
	}
	if _, ok := q.RemoveBySession("nope"); ok {
		t.Fatal("removing an unknown session should be a no-op")
	}
	if q.Len() != 0 {
		t.Fatalf("Len = %d, want 0", q.Len())
	}
}

func TestRemoveBySessionKeepsOrder(t *testing.T) {
	q := New(PolicyFIFO)
	q.Enqueue(entry("s1", "a", domain.RiskLow, 0))
	q.Enqueue(entry("s2", "b", domain.RiskLow, time.Second))
	q.Enqueue(entry("s3", "c", domain.RiskLow, 2*time.Second))

	q.RemoveBySession("s2")

	snap := q.Snapshot()
	if len(snap) != 2 || snap[0].SessionID != "s1" || snap[1].SessionID != "s3" {
		t.Fatalf("unexpected queue contents after remove: %+v", snap)
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	q := New(PolicyFIFO)
	q.Enqueue(entry("s1", "a", domain.RiskLow, 0))

	snap := q.Snapshot()
	snap[0].SessionID = "mutated"

	head, _ := q.Next()
	if head.SessionID != "s1" {
		t.Fatal("mutating the snapshot must not affect the queue")
	}
}
