package domain

import "time"

// WebSocket event types from clients.
const (
	MsgTypeVolunteerOnline  = "volunteer-online"
	MsgTypeVolunteerOffline = "volunteer-offline"
	MsgTypeRequestChat      = "student-request-chat"
	MsgTypeSendMessage      = "send-message"
	MsgTypeAcceptChat       = "volunteer-accept-chat"
	MsgTypeEscalateChat     = "escalate-chat"
	MsgTypeEndChat          = "end-chat"
	MsgTypeSkipChat         = "skip-chat"
)

// WebSocket event types to clients.
const (
	MsgTypeChatStatus     = "chat-status"
	MsgTypeReceiveMessage = "receive-message"
	MsgTypeVolunteerJoined = "volunteer-joined"
	MsgTypeStudentJoined  = "student-joined"
	MsgTypeNewChatRequest = "new-chat-request"
	MsgTypeChatEscalated  = "chat-escalated"
	MsgTypeChatEnded      = "chat-ended"
	MsgTypeVolunteerCount = "volunteer-count"
	MsgTypeError          = "error"
)

// BaseMessage is the common envelope for all WebSocket messages.
type BaseMessage struct {
	Type string `json:"type"`
}

// Client -> Server events

type VolunteerOnlineMessage struct {
	Type        string `json:"type"`
	VolunteerID string `json:"volunteerId"`
	Name        string `json:"name"`
}

type VolunteerOfflineMessage struct {
	Type        string `json:"type"`
	VolunteerID string `json:"volunteerId"`
}

type RequestChatMessage struct {
	Type        string `json:"type"`
	StudentID   string `json:"studentId"`
	StudentName string `json:"studentName"`
	ScreeningID string `json:"screeningId"`
	RiskLevel   string `json:"riskLevel"`
}

type SendMessageMessage struct {
	Type       string `json:"type"`
	SessionID  string `json:"sessionId"`
	Sender     string `json:"sender"`
	SenderName string `json:"senderName"`
	Text       string `json:"text"`
}

type AcceptChatMessage struct {
	Type          string `json:"type"`
	VolunteerID   string `json:"volunteerId"`
	SessionID     string `json:"sessionId"`
	VolunteerName string `json:"volunteerName"`
}

type EscalateChatMessage struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId"`
	Reason    string `json:"reason"`
}

type EndChatMessage struct {
	Type        string `json:"type"`
	SessionID   string `json:"sessionId"`
	VolunteerID string `json:"volunteerId,omitempty"`
	Notes       string `json:"notes,omitempty"`
}

type SkipChatMessage struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId"`
}

// Server -> Client events

type ChatStatusMessage struct {
	Type      string `json:"type"`
	Status    string `json:"status"`
	Message   string `json:"message"`
	SessionID string `json:"sessionId"`
}

type ReceiveMessageMessage struct {
	Type       string    `json:"type"`
	Sender     string    `json:"sender"`
	SenderName string    `json:"senderName"`
	Text       string    `json:"text"`
	Timestamp  time.Time `json:"timestamp"`
}

type VolunteerJoinedMessage struct {
	Type          string `json:"type"`
	VolunteerName string `json:"volunteerName"`
	SessionID     string `json:"sessionId"`
}

type StudentJoinedMessage struct {
	Type        string `json:"type"`
	SessionID   string `json:"sessionId"`
	StudentName string `json:"studentName"`
}

type NewChatRequestMessage struct {
	Type        string `json:"type"`
	SessionID   string `json:"sessionId"`
	StudentName string `json:"studentName"`
	RiskLevel   string `json:"riskLevel"`
	WaitTime    int64  `json:"waitTime"` // whole seconds in queue
}

type ChatEscalatedMessage struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId"`
	Message   string `json:"message"`
	Reason    string `json:"reason,omitempty"`
}

type ChatEndedMessage struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId"`
	Message   string `json:"message"`
	Duration  int64  `json:"duration,omitempty"`
}

type VolunteerCountMessage struct {
	Type      string    `json:"type"`
	Count     int       `json:"count"`
	Timestamp time.Time `json:"timestamp"`
}

type ErrorMessage struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewErrorMessage builds the structured error event for a failed operation.
func NewErrorMessage(code, message string) *ErrorMessage {
	return &ErrorMessage{
		Type:    MsgTypeError,
		Code:    code,
		Message: message,
	}
}

// NewErrorFrom maps a domain error onto the wire error event.
func NewErrorFrom(err error) *ErrorMessage {
	return NewErrorMessage(ErrorCode(err), err.Error())
}
