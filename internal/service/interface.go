package service

import (
	"context"

	"github.com/Saymum-GS/Awaken-DIU/internal/domain"
)

// Notifier delivers outbound events to connected parties. The WebSocket hub
// implements it; tests substitute a recording fake.
type Notifier interface {
	// SendToUser delivers an event to one identified party. Reports whether
	// the party had a live connection.
	SendToUser(role, userID string, message interface{}) bool

	// Broadcast delivers an event to every connected client.
	Broadcast(message interface{}) error
}

// CountPublisher propagates the volunteer-count signal to sibling instances.
type CountPublisher interface {
	PublishCount(ctx context.Context, count int) error
}

// NopCountPublisher is used when Redis is not configured.
type NopCountPublisher struct{}

func (NopCountPublisher) PublishCount(ctx context.Context, count int) error { return nil }

// QueueStats describes the waiting queue for the read-only API.
type QueueStats struct {
	Length     int            `json:"length"`
	OldestWait int64          `json:"oldestWaitSeconds"`
	ByRisk     map[string]int `json:"byRisk"`
}

// VolunteerStats describes the presence registry for the read-only API.
type VolunteerStats struct {
	Online int `json:"online"`
	Free   int `json:"free"`
	Busy   int `json:"busy"`
}

// ChatService is the matching and session-lifecycle engine behind the
// WebSocket boundary.
type ChatService interface {
	HandleVolunteerOnline(ctx context.Context, conn domain.Sender, volunteerID, name string) error
	HandleVolunteerOffline(ctx context.Context, volunteerID string) error
	HandleRequestChat(ctx context.Context, conn domain.Sender, studentID, studentName, screeningID, riskLevel string) error
	HandleSendMessage(ctx context.Context, conn domain.Sender, sessionID, sender, senderName, text string) error
	HandleAcceptChat(ctx context.Context, conn domain.Sender, volunteerID, sessionID, volunteerName string) error
	HandleEscalateChat(ctx context.Context, conn domain.Sender, sessionID, reason string) error
	HandleEndChat(ctx context.Context, conn domain.Sender, sessionID, volunteerID, notes string) error
	HandleSkipChat(ctx context.Context, conn domain.Sender, sessionID string) error
	HandleDisconnect(ctx context.Context, role, userID string) error

	GetSession(ctx context.Context, sessionID string) (*domain.ChatSession, error)
	QueueStats() QueueStats
	VolunteerStats() VolunteerStats

	Stop() error
}
