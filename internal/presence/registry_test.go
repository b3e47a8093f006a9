package presence

import (
	"testing"
)

type stubSender struct{ id string }

func (s *stubSender) SendMessage(v interface{}) error { return nil }

func TestSetOnlineAndCount(t *testing.T) {
	r := NewRegistry()
	r.SetOnline("v1", "Alice", &stubSender{"c1"})
	r.SetOnline("v2", "Bob", &stubSender{"c2"})

	if r.Count() != 2 {
		t.Fatalf("Count = %d, want 2", r.Count())
	}
	if r.FreeCount() != 2 {
		t.Fatalf("FreeCount = %d, want 2", r.FreeCount())
	}

	e, ok := r.Get("v1")
	if !ok || e.Name != "Alice" || e.Busy {
		t.Fatalf("unexpected entry %+v", e)
	}
}

func TestReconnectReplacesConnection(t *testing.T) {
	r := NewRegistry()
	old := &stubSender{"old"}
	r.SetOnline("v1", "Alice", old)
	r.SetBusy("v1", true)

	next := &stubSender{"new"}
	r.SetOnline("v1", "Alice", next)

	e, ok := r.Get("v1")
	if !ok {
		t.Fatal("volunteer should still be online")
	}
	if e.Conn != next {
		t.Fatal("reconnect should replace the connection")
	}
	// A fresh registration starts free again.
	if e.Busy {
		t.Fatal("reconnect should reset busy")
	}
	if r.Count() != 1 {
		t.Fatalf("Count = %d after reconnect, want 1", r.Count())
	}
}

func TestSetOfflineRemovesBusyVolunteer(t *testing.T) {
	r := NewRegistry()
	r.SetOnline("v1", "Alice", &stubSender{"c1"})
	r.SetBusy("v1", true)

	r.SetOffline("v1")
	if _, ok := r.Get("v1"); ok {
		t.Fatal("volunteer should be gone after SetOffline")
	}
	if r.Count() != 0 {
		t.Fatalf("Count = %d, want 0", r.Count())
	}

	// Idempotent.
	r.SetOffline("v1")
}

func TestSetBusyUnknownVolunteer(t *testing.T) {
	r := NewRegistry()
	if r.SetBusy("ghost", true) {
		t.Fatal("SetBusy on unknown volunteer should report false")
	}
}

func TestFreeSkipsBusy(t *testing.T) {
	r := NewRegistry()
	r.SetOnline("v1", "Alice", &stubSender{"c1"})
	r.SetOnline("v2", "Bob", &stubSender{"c2"})
	r.SetOnline("v3", "Cara", &stubSender{"c3"})
	r.SetBusy("v2", true)

	var got []string
	for e := range r.Free() {
		got = append(got, e.VolunteerID)
	}
	if len(got) != 2 || got[0] != "v1" || got[1] != "v3" {
		t.Fatalf("Free() yielded %v, want [v1 v3]", got)
	}
	if r.FreeCount() != 2 {
		t.Fatalf("FreeCount = %d, want 2", r.FreeCount())
	}
}

func TestFreeIsRestartable(t *testing.T) {
	r := NewRegistry()
	r.SetOnline("v1", "Alice", &stubSender{"c1"})

	seq := r.Free()

	n := 0
	for range seq {
		n++
	}
	if n != 1 {
		t.Fatalf("first pass yielded %d, want 1", n)
	}

	// State changed between ranges: the second pass sees it.
	r.SetBusy("v1", true)
	n = 0
	for range seq {
		n++
	}
	if n != 0 {
		t.Fatalf("second pass yielded %d after SetBusy, want 0", n)
	}
}

func TestFreeEarlyBreak(t *testing.T) {
	r := NewRegistry()
	r.SetOnline("v1", "Alice", &stubSender{"c1"})
	r.SetOnline("v2", "Bob", &stubSender{"c2"})

	var first string
	for e := range r.Free() {
		first = e.VolunteerID
		break
	}
	if first != "v1" {
		t.Fatalf("first free = %q, want v1 (registration order)", first)
	}
}

func TestGetReturnsCopy(t *testing.T) {
	r := NewRegistry()
	r.SetOnline("v1", "Alice", &stubSender{"c1"})

	e, _ := r.Get("v1")
	e.Busy = true

	fresh, _ := r.Get("v1")
	if fresh.Busy {
		t.Fatal("mutating a returned entry must not touch registry state")
	}
}
