package domain

import (
	"time"
)

// RiskLevel is the severity classification copied from the triggering
// screening when a session is created. Immutable afterwards.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// ParseRiskLevel validates a risk level received from a client.
func ParseRiskLevel(s string) (RiskLevel, error) {
	switch RiskLevel(s) {
	case RiskLow, RiskMedium, RiskHigh:
		return RiskLevel(s), nil
	default:
		return "", &ValidationError{Field: "riskLevel", Reason: "must be one of low, medium, high"}
	}
}

// priority orders risk levels for the risk-priority queue policy.
func (r RiskLevel) priority() int {
	switch r {
	case RiskHigh:
		return 2
	case RiskMedium:
		return 1
	default:
		return 0
	}
}

// MoreUrgent reports whether r outranks other for risk-priority dequeue.
func (r RiskLevel) MoreUrgent(other RiskLevel) bool {
	return r.priority() > other.priority()
}

// Status is the lifecycle state of a chat session.
//
//	waiting -> active -> ended
//	                  -> escalated
//	waiting -> ended            (skip before a match)
//
// ended and escalated are terminal. An escalation hands the session off to a
// psychologist out-of-band; it never "ends" afterwards.
type Status string

const (
	StatusWaiting   Status = "waiting"
	StatusActive    Status = "active"
	StatusEscalated Status = "escalated"
	StatusEnded     Status = "ended"
)

// SenderRole identifies which side of the conversation authored a message.
type SenderRole string

const (
	RoleStudent   SenderRole = "student"
	RoleVolunteer SenderRole = "volunteer"
)

// ParseSenderRole validates a sender role received from a client.
func ParseSenderRole(s string) (SenderRole, error) {
	switch SenderRole(s) {
	case RoleStudent, RoleVolunteer:
		return SenderRole(s), nil
	default:
		return "", &ValidationError{Field: "sender", Reason: "must be student or volunteer"}
	}
}

// Message is one transcript entry. The transcript is append-only and its
// insertion order is the conversation order.
type Message struct {
	Sender     SenderRole `json:"sender"`
	SenderName string     `json:"senderName"`
	Text       string     `json:"text"`
	Timestamp  time.Time  `json:"timestamp"`
}

// ChatSession is the persisted record of one support conversation between a
// student and at most one volunteer.
type ChatSession struct {
	ID               string     `json:"id"`
	StudentID        string     `json:"studentId"`
	VolunteerID      string     `json:"volunteerId,omitempty"`
	ScreeningID      string     `json:"screeningId,omitempty"`
	RiskLevel        RiskLevel  `json:"riskLevel"`
	Status           Status     `json:"status"`
	Messages         []Message  `json:"messages"`
	Escalated        bool       `json:"escalated"`
	EscalationReason string     `json:"escalationReason,omitempty"`
	VolunteerNotes   string     `json:"volunteerNotes,omitempty"`
	StartTime        *time.Time `json:"startTime,omitempty"`
	EndTime          *time.Time `json:"endTime,omitempty"`
	Duration         int64      `json:"duration,omitempty"` // whole seconds
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

// NewChatSession creates a session in the waiting state.
func NewChatSession(id, studentID, screeningID string, risk RiskLevel) (*ChatSession, error) {
	if id == "" {
		return nil, &ValidationError{Field: "id", Reason: "required"}
	}
	if studentID == "" {
		return nil, &ValidationError{Field: "studentId", Reason: "required"}
	}
	if _, err := ParseRiskLevel(string(risk)); err != nil {
		return nil, err
	}

	return &ChatSession{
		ID:          id,
		StudentID:   studentID,
		ScreeningID: screeningID,
		RiskLevel:   risk,
		Status:      StatusWaiting,
	}, nil
}

// Accept transitions waiting -> active and binds the volunteer. Presence
// re-validation is the caller's job; this only enforces the state machine.
func (s *ChatSession) Accept(volunteerID string, now time.Time) error {
	if volunteerID == "" {
		return &ValidationError{Field: "volunteerId", Reason: "required"}
	}
	if s.Status != StatusWaiting {
		return &InvalidTransitionError{From: s.Status, Op: "accept"}
	}

	s.VolunteerID = volunteerID
	s.Status = StatusActive
	if s.StartTime == nil {
		t := now
		s.StartTime = &t
	}
	return nil
}

// AppendMessage appends a transcript entry with a server-assigned timestamp.
// Messages are only permitted while the session is active.
func (s *ChatSession) AppendMessage(sender SenderRole, senderName, text string, now time.Time) (Message, error) {
	if text == "" {
		return Message{}, &ValidationError{Field: "text", Reason: "required"}
	}
	if _, err := ParseSenderRole(string(sender)); err != nil {
		return Message{}, err
	}
	if s.Status != StatusActive {
		return Message{}, &InvalidTransitionError{From: s.Status, Op: "message"}
	}

	msg := Message{
		Sender:     sender,
		SenderName: senderName,
		Text:       text,
		Timestamp:  now,
	}
	s.Messages = append(s.Messages, msg)
	return msg, nil
}

// Escalate transitions active -> escalated. Escalation is a handoff, not a
// completion: endTime and duration stay unset.
func (s *ChatSession) Escalate(reason string) error {
	if reason == "" {
		return &ValidationError{Field: "reason", Reason: "required"}
	}
	if s.Status != StatusActive {
		return &InvalidTransitionError{From: s.Status, Op: "escalate"}
	}

	s.Status = StatusEscalated
	s.Escalated = true
	s.EscalationReason = reason
	return nil
}

// End transitions active -> ended, setting endTime and the derived duration
// in whole seconds.
func (s *ChatSession) End(notes string, now time.Time) error {
	if s.Status != StatusActive {
		return &InvalidTransitionError{From: s.Status, Op: "end"}
	}

	t := now
	s.Status = StatusEnded
	s.EndTime = &t
	if s.StartTime != nil {
		s.Duration = int64(t.Sub(*s.StartTime) / time.Second)
		if s.Duration < 0 {
			s.Duration = 0
		}
	}
	if notes != "" {
		s.VolunteerNotes = notes
	}
	return nil
}

// Skip closes a still-waiting session that left the queue without a match.
// The record ends with no volunteer bound to it.
func (s *ChatSession) Skip(now time.Time) error {
	if s.Status != StatusWaiting {
		return &InvalidTransitionError{From: s.Status, Op: "skip"}
	}

	t := now
	s.Status = StatusEnded
	s.EndTime = &t
	s.VolunteerNotes = "skipped before match"
	return nil
}
