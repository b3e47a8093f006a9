package audit

import (
	"context"

	"github.com/Saymum-GS/Awaken-DIU/pkg/log"
)

// Audit actions for the chat engine.
const (
	ActionVolunteerOnline  = "chat.volunteer_online"
	ActionVolunteerOffline = "chat.volunteer_offline"
	ActionRequestChat      = "chat.request"
	ActionSendMessage      = "chat.send_message"
	ActionAcceptChat       = "chat.accept"
	ActionEscalateChat     = "chat.escalate"
	ActionEndChat          = "chat.end"
	ActionSkipChat         = "chat.skip"
	ActionDisconnect       = "chat.disconnect"
)

// Field constants for audit entries.
const (
	FieldAction = "action"
	FieldDetail = "detail"
	FieldActor  = "actor_id"
)

// Log emits a structured audit log entry via the context logger.
func Log(ctx context.Context, action string, actorID string, msg string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Str(FieldActor, actorID).
		Msg(msg)
}

// LogWithSession emits an audit log bound to a session id.
func LogWithSession(ctx context.Context, action string, actorID string, sessionID string, msg string) {
	Log(log.WithSession(ctx, sessionID), action, actorID, msg)
}
