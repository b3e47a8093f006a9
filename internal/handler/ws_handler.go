package handler

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/Saymum-GS/Awaken-DIU/internal/config"
	"github.com/Saymum-GS/Awaken-DIU/internal/domain"
	"github.com/Saymum-GS/Awaken-DIU/internal/hub"
	"github.com/Saymum-GS/Awaken-DIU/internal/service"
)

// WSHandler handles WebSocket connections for the chat engine.
type WSHandler struct {
	hub      *hub.Hub
	service  service.ChatService
	wsConfig config.WebSocketConfig
	upgrader websocket.Upgrader
}

// NewWSHandler creates a new WebSocket handler.
func NewWSHandler(h *hub.Hub, svc service.ChatService, wsCfg config.WebSocketConfig) *WSHandler {
	return &WSHandler{
		hub:      h,
		service:  svc,
		wsConfig: wsCfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow all origins for now
			},
		},
	}
}

// HandleWebSocket handles WebSocket upgrade and connection.
func (h *WSHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	client := hub.NewClient(uuid.New().String(), h.hub, conn, h.wsConfig)
	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump(func(c *hub.Client, message []byte) {
		h.handleMessage(c, message)
	}, h.onDisconnect)
}

func (h *WSHandler) handleMessage(c *hub.Client, message []byte) {
	ctx := context.Background()

	var base domain.BaseMessage
	if err := json.Unmarshal(message, &base); err != nil {
		log.Printf("Failed to parse message: %v", err)
		c.SendMessage(domain.NewErrorMessage("BAD_REQUEST", "invalid message format"))
		return
	}

	switch base.Type {
	case domain.MsgTypeVolunteerOnline:
		var msg domain.VolunteerOnlineMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			c.SendMessage(domain.NewErrorMessage("BAD_REQUEST", "invalid volunteer-online message"))
			return
		}
		c.Identify(string(domain.RoleVolunteer), msg.VolunteerID, msg.Name)
		if err := h.service.HandleVolunteerOnline(ctx, c, msg.VolunteerID, msg.Name); err != nil {
			log.Printf("HandleVolunteerOnline error: %v", err)
		}

	case domain.MsgTypeVolunteerOffline:
		var msg domain.VolunteerOfflineMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			c.SendMessage(domain.NewErrorMessage("BAD_REQUEST", "invalid volunteer-offline message"))
			return
		}
		if err := h.service.HandleVolunteerOffline(ctx, msg.VolunteerID); err != nil {
			log.Printf("HandleVolunteerOffline error: %v", err)
		}

	case domain.MsgTypeRequestChat:
		var msg domain.RequestChatMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			c.SendMessage(domain.NewErrorMessage("BAD_REQUEST", "invalid student-request-chat message"))
			return
		}
		c.Identify(string(domain.RoleStudent), msg.StudentID, msg.StudentName)
		if err := h.service.HandleRequestChat(ctx, c, msg.StudentID, msg.StudentName, msg.ScreeningID, msg.RiskLevel); err != nil {
			log.Printf("HandleRequestChat error: %v", err)
		}

	case domain.MsgTypeSendMessage:
		var msg domain.SendMessageMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			c.SendMessage(domain.NewErrorMessage("BAD_REQUEST", "invalid send-message message"))
			return
		}
		if err := h.service.HandleSendMessage(ctx, c, msg.SessionID, msg.Sender, msg.SenderName, msg.Text); err != nil {
			log.Printf("HandleSendMessage error: %v", err)
		}

	case domain.MsgTypeAcceptChat:
		var msg domain.AcceptChatMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			c.SendMessage(domain.NewErrorMessage("BAD_REQUEST", "invalid volunteer-accept-chat message"))
			return
		}
		c.Identify(string(domain.RoleVolunteer), msg.VolunteerID, msg.VolunteerName)
		if err := h.service.HandleAcceptChat(ctx, c, msg.VolunteerID, msg.SessionID, msg.VolunteerName); err != nil {
			log.Printf("HandleAcceptChat error: %v", err)
		}

	case domain.MsgTypeEscalateChat:
		var msg domain.EscalateChatMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			c.SendMessage(domain.NewErrorMessage("BAD_REQUEST", "invalid escalate-chat message"))
			return
		}
		if err := h.service.HandleEscalateChat(ctx, c, msg.SessionID, msg.Reason); err != nil {
			log.Printf("HandleEscalateChat error: %v", err)
		}

	case domain.MsgTypeEndChat:
		var msg domain.EndChatMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			c.SendMessage(domain.NewErrorMessage("BAD_REQUEST", "invalid end-chat message"))
			return
		}
		if err := h.service.HandleEndChat(ctx, c, msg.SessionID, msg.VolunteerID, msg.Notes); err != nil {
			log.Printf("HandleEndChat error: %v", err)
		}

	case domain.MsgTypeSkipChat:
		var msg domain.SkipChatMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			c.SendMessage(domain.NewErrorMessage("BAD_REQUEST", "invalid skip-chat message"))
			return
		}
		if err := h.service.HandleSkipChat(ctx, c, msg.SessionID); err != nil {
			log.Printf("HandleSkipChat error: %v", err)
		}

	default:
		c.SendMessage(domain.NewErrorMessage("BAD_REQUEST", "unknown message type: "+base.Type))
	}
}

// onDisconnect is called when a client's read pump exits.
func (h *WSHandler) onDisconnect(c *hub.Client) {
	role, userID := c.Identity()
	if userID == "" {
		return
	}
	if err := h.service.HandleDisconnect(context.Background(), role, userID); err != nil {
		log.Printf("HandleDisconnect error: %v", err)
	}
}
