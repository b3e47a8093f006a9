package domain

import (
	"errors"
	"testing"
	"time"
)

var t0 = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

func newWaitingSession(t *testing.T) *ChatSession {
	t.Helper()
	s, err := NewChatSession("sess-1", "student-1", "screen-1", RiskMedium)
	if err != nil {
		t.Fatalf("NewChatSession: %v", err)
	}
	return s
}

func TestNewChatSessionStartsWaiting(t *testing.T) {
	s := newWaitingSession(t)
	if s.Status != StatusWaiting {
		t.Fatalf("status = %q, want %q", s.Status, StatusWaiting)
	}
	if s.VolunteerID != "" {
		t.Fatalf("volunteerID = %q, want empty", s.VolunteerID)
	}
	if s.StartTime != nil || s.EndTime != nil {
		t.Fatal("start/end time should be unset on creation")
	}
}

func TestNewChatSessionValidation(t *testing.T) {
	var ve *ValidationError

	if _, err := NewChatSession("", "student-1", "", RiskLow); !errors.As(err, &ve) {
		t.Fatalf("missing id: got %v, want ValidationError", err)
	}
	if _, err := NewChatSession("sess-1", "", "", RiskLow); !errors.As(err, &ve) {
		t.Fatalf("missing studentId: got %v, want ValidationError", err)
	}
	if _, err := NewChatSession("sess-1", "student-1", "", RiskLevel("critical")); !errors.As(err, &ve) {
		t.Fatalf("bad risk: got %v, want ValidationError", err)
	}
}

func TestAcceptBindsVolunteerAndStartTime(t *testing.T) {
	s := newWaitingSession(t)

	if err := s.Accept("vol-1", t0); err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if s.Status != StatusActive {
		t.Fatalf("status = %q, want %q", s.Status, StatusActive)
	}
	if s.VolunteerID != "vol-1" {
		t.Fatalf("volunteerID = %q, want vol-1", s.VolunteerID)
	}
	if s.StartTime == nil || !s.StartTime.Equal(t0) {
		t.Fatalf("startTime = %v, want %v", s.StartTime, t0)
	}
}

func TestAcceptRejectsNonWaiting(t *testing.T) {
	s := newWaitingSession(t)
	if err := s.Accept("vol-1", t0); err != nil {
		t.Fatalf("Accept: %v", err)
	}

	var it *InvalidTransitionError
	if err := s.Accept("vol-2", t0); !errors.As(err, &it) {
		t.Fatalf("second accept: got %v, want InvalidTransitionError", err)
	}
	if s.VolunteerID != "vol-1" {
		t.Fatalf("volunteerID changed to %q on rejected accept", s.VolunteerID)
	}
}

func TestAppendMessageOnlyWhileActive(t *testing.T) {
	s := newWaitingSession(t)

	var it *InvalidTransitionError
	if _, err := s.AppendMessage(RoleStudent, "A", "hello?", t0); !errors.As(err, &it) {
		t.Fatalf("message while waiting: got %v, want InvalidTransitionError", err)
	}

	if err := s.Accept("vol-1", t0); err != nil {
		t.Fatalf("Accept: %v", err)
	}
	msg, err := s.AppendMessage(RoleStudent, "A", "hello", t0.Add(time.Second))
	if err != nil {
		t.Fatalf("AppendMessage: %v", err)
	}
	if msg.Sender != RoleStudent || msg.Text != "hello" {
		t.Fatalf("unexpected message %+v", msg)
	}
	if len(s.Messages) != 1 {
		t.Fatalf("transcript length = %d, want 1", len(s.Messages))
	}

	if err := s.End("", t0.Add(time.Minute)); err != nil {
		t.Fatalf("End: %v", err)
	}
	if _, err := s.AppendMessage(RoleVolunteer, "V", "late", t0.Add(2*time.Minute)); !errors.As(err, &it) {
		t.Fatalf("message after end: got %v, want InvalidTransitionError", err)
	}
	if len(s.Messages) != 1 {
		t.Fatal("rejected message must not be appended")
	}
}

func TestAppendMessagePreservesOrder(t *testing.T) {
	s := newWaitingSession(t)
	if err := s.Accept("vol-1", t0); err != nil {
		t.Fatalf("Accept: %v", err)
	}

	texts := []string{"first", "second", "third"}
	for i, text := range texts {
		if _, err := s.AppendMessage(RoleStudent, "A", text, t0.Add(time.Duration(i)*time.Second)); err != nil {
			t.Fatalf("AppendMessage %d: %v", i, err)
		}
	}
	for i, text := range texts {
		if s.Messages[i].Text != text {
			t.Fatalf("message %d = %q, want %q", i, s.Messages[i].Text, text)
		}
	}
}

func TestAppendMessageValidation(t *testing.T) {
	s := newWaitingSession(t)
	if err := s.Accept("vol-1", t0); err != nil {
		t.Fatalf("Accept: %v", err)
	}

	var ve *ValidationError
	if _, err := s.AppendMessage(RoleStudent, "A", "", t0); !errors.As(err, &ve) {
		t.Fatalf("empty text: got %v, want ValidationError", err)
	}
	if _, err := s.AppendMessage(SenderRole("admin"), "A", "hi", t0); !errors.As(err, &ve) {
		t.Fatalf("bad role: got %v, want ValidationError", err)
	}
}

func TestEndSetsDurationWholeSeconds(t *testing.T) {
	s := newWaitingSession(t)
	if err := s.Accept("vol-1", t0); err != nil {
		t.Fatalf("Accept: %v", err)
	}

	end := t0.Add(95*time.Second + 700*time.Millisecond)
	if err := s.End("went well", end); err != nil {
		t.Fatalf("End: %v", err)
	}
	if s.Status != StatusEnded {
		t.Fatalf("status = %q, want %q", s.Status, StatusEnded)
	}
	if s.Duration != 95 {
		t.Fatalf("duration = %d, want 95", s.Duration)
	}
	if s.VolunteerNotes != "went well" {
		t.Fatalf("notes = %q", s.VolunteerNotes)
	}
}

func TestEndClampsNegativeDuration(t *testing.T) {
	s := newWaitingSession(t)
	if err := s.Accept("vol-1", t0); err != nil {
		t.Fatalf("Accept: %v", err)
	}
	// Clock skew: end before start.
	if err := s.End("", t0.Add(-time.Minute)); err != nil {
		t.Fatalf("End: %v", err)
	}
	if s.Duration != 0 {
		t.Fatalf("duration = %d, want 0", s.Duration)
	}
}

func TestEscalateIsTerminalWithoutEndTime(t *testing.T) {
	s := newWaitingSession(t)
	if err := s.Accept("vol-1", t0); err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if err := s.Escalate("self-harm risk"); err != nil {
		t.Fatalf("Escalate: %v", err)
	}

	if s.Status != StatusEscalated {
		t.Fatalf("status = %q, want %q", s.Status, StatusEscalated)
	}
	if !s.Escalated || s.EscalationReason != "self-harm risk" {
		t.Fatalf("escalation flags: %v %q", s.Escalated, s.EscalationReason)
	}
	if s.EndTime != nil || s.Duration != 0 {
		t.Fatal("escalation must not set endTime or duration")
	}

	// Escalated is terminal: neither end nor a second escalation applies.
	var it *InvalidTransitionError
	if err := s.End("", t0.Add(time.Minute)); !errors.As(err, &it) {
		t.Fatalf("end after escalate: got %v, want InvalidTransitionError", err)
	}
	if err := s.Escalate("again"); !errors.As(err, &it) {
		t.Fatalf("double escalate: got %v, want InvalidTransitionError", err)
	}
}

func TestEscalateRequiresReasonAndActive(t *testing.T) {
	s := newWaitingSession(t)

	var it *InvalidTransitionError
	if err := s.Escalate("reason"); !errors.As(err, &it) {
		t.Fatalf("escalate while waiting: got %v, want InvalidTransitionError", err)
	}

	if err := s.Accept("vol-1", t0); err != nil {
		t.Fatalf("Accept: %v", err)
	}
	var ve *ValidationError
	if err := s.Escalate(""); !errors.As(err, &ve) {
		t.Fatalf("empty reason: got %v, want ValidationError", err)
	}
}

func TestSkipClosesWaitingSession(t *testing.T) {
	s := newWaitingSession(t)
	if err := s.Skip(t0); err != nil {
		t.Fatalf("Skip: %v", err)
	}
	if s.Status != StatusEnded {
		t.Fatalf("status = %q, want %q", s.Status, StatusEnded)
	}
	if s.VolunteerID != "" {
		t.Fatal("skip must not bind a volunteer")
	}
	if s.VolunteerNotes != "skipped before match" {
		t.Fatalf("notes = %q", s.VolunteerNotes)
	}

	var it *InvalidTransitionError
	if err := s.Skip(t0); !errors.As(err, &it) {
		t.Fatalf("double skip: got %v, want InvalidTransitionError", err)
	}
}

func TestSkipRejectsActiveSession(t *testing.T) {
	s := newWaitingSession(t)
	if err := s.Accept("vol-1", t0); err != nil {
		t.Fatalf("Accept: %v", err)
	}
	var it *InvalidTransitionError
	if err := s.Skip(t0); !errors.As(err, &it) {
		t.Fatalf("skip while active: got %v, want InvalidTransitionError", err)
	}
}

func TestMoreUrgent(t *testing.T) {
	if !RiskHigh.MoreUrgent(RiskMedium) || !RiskMedium.MoreUrgent(RiskLow) {
		t.Fatal("risk ordering broken")
	}
	if RiskLow.MoreUrgent(RiskLow) {
		t.Fatal("equal levels must not outrank each other")
	}
}

func TestParseRiskLevel(t *testing.T) {
	for _, valid := range []string{"low", "medium", "high"} {
		if _, err := ParseRiskLevel(valid); err != nil {
			t.Fatalf("ParseRiskLevel(%q): %v", valid, err)
		}
	}
	if _, err := ParseRiskLevel("critical"); err == nil {
		t.Fatal("ParseRiskLevel should reject unknown levels")
	}
	if _, err := ParseRiskLevel(""); err == nil {
		t.Fatal("ParseRiskLevel should reject empty input")
	}
}

func TestErrorCodes(t *testing.T) {
	cases := []struct {
		err  error
		code string
	}{
		{&ValidationError{Field: "x", Reason: "required"}, "VALIDATION"},
		{&InvalidTransitionError{From: StatusEnded, Op: "end"}, "INVALID_TRANSITION"},
		{&NotFoundError{Resource: "session", ID: "s1"}, "NOT_FOUND"},
		{&PersistenceError{Op: "update", Err: errors.New("boom")}, "PERSISTENCE"},
		{errors.New("other"), "BAD_REQUEST"},
	}
	for _, c := range cases {
		if got := ErrorCode(c.err); got != c.code {
			t.Errorf("ErrorCode(%v) = %q, want %q", c.err, got, c.code)
		}
	}
}
