package events

import (
	"context"
	"time"
)

// Session lifecycle event types published for downstream consumers
// (volunteer statistics, escalation review). Dashboards themselves live in
// another service; this feed only carries the facts.
const (
	EventSessionCreated   = "session_created"
	EventSessionMatched   = "session_matched"
	EventSessionAccepted  = "session_accepted"
	EventMessageSent      = "message_sent"
	EventSessionEscalated = "session_escalated"
	EventSessionEnded     = "session_ended"
	EventSessionSkipped   = "session_skipped"
)

// SessionEvent is one lifecycle fact about a chat session.
type SessionEvent struct {
	Type        string    `json:"type"`
	SessionID   string    `json:"session_id"`
	StudentID   string    `json:"student_id,omitempty"`
	VolunteerID string    `json:"volunteer_id,omitempty"`
	RiskLevel   string    `json:"risk_level,omitempty"`
	Detail      string    `json:"detail,omitempty"`
	Duration    int64     `json:"duration,omitempty"`
	WaitTime    int64     `json:"wait_time,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// EventProducer publishes session lifecycle events.
type EventProducer interface {
	Produce(ctx context.Context, event *SessionEvent) error
	Close() error
}

// NopProducer drops all events. Used when Kafka is not configured.
type NopProducer struct{}

func (NopProducer) Produce(ctx context.Context, event *SessionEvent) error { return nil }
func (NopProducer) Close() error                                           { return nil }
