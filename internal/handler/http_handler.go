package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/Saymum-GS/Awaken-DIU/internal/domain"
	"github.com/Saymum-GS/Awaken-DIU/internal/service"
)

// HTTPHandler serves the read-only HTTP API next to the WebSocket endpoint.
type HTTPHandler struct {
	service service.ChatService
}

// NewHTTPHandler creates a new HTTP handler.
func NewHTTPHandler(svc service.ChatService) *HTTPHandler {
	return &HTTPHandler{
		service: svc,
	}
}

// QueueResponse is the API response for queue statistics.
type QueueResponse struct {
	Length     int            `json:"length"`
	OldestWait int64          `json:"oldestWait"` // whole seconds
	ByRisk     map[string]int `json:"byRisk"`
}

// VolunteersResponse is the API response for volunteer presence.
type VolunteersResponse struct {
	Online int `json:"online"`
	Free   int `json:"free"`
	Busy   int `json:"busy"`
}

// GetSession handles GET /api/v1/sessions/{session_id}
func (h *HTTPHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	sessionID := vars["session_id"]

	if sessionID == "" {
		http.Error(w, "session_id is required", http.StatusBadRequest)
		return
	}

	session, err := h.service.GetSession(r.Context(), sessionID)
	if err != nil {
		var nf *domain.NotFoundError
		if errors.As(err, &nf) {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to get session", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(session)
}

// GetQueue handles GET /api/v1/queue
func (h *HTTPHandler) GetQueue(w http.ResponseWriter, r *http.Request) {
	stats := h.service.QueueStats()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(QueueResponse{
		Length:     stats.Length,
		OldestWait: stats.OldestWait,
		ByRisk:     stats.ByRisk,
	})
}

// GetVolunteers handles GET /api/v1/volunteers
func (h *HTTPHandler) GetVolunteers(w http.ResponseWriter, r *http.Request) {
	stats := h.service.VolunteerStats()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(VolunteersResponse{
		Online: stats.Online,
		Free:   stats.Free,
		Busy:   stats.Busy,
	})
}

// Health handles GET /health
func (h *HTTPHandler) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// RegisterRoutes registers all HTTP and WebSocket routes.
func RegisterRoutes(r *mux.Router, ws *WSHandler, api *HTTPHandler) {
	r.HandleFunc("/ws", ws.HandleWebSocket)
	r.HandleFunc("/health", api.Health).Methods(http.MethodGet)

	v1 := r.PathPrefix("/api/v1").Subrouter()
	v1.HandleFunc("/sessions/{session_id}", api.GetSession).Methods(http.MethodGet)
	v1.HandleFunc("/queue", api.GetQueue).Methods(http.MethodGet)
	v1.HandleFunc("/volunteers", api.GetVolunteers).Methods(http.MethodGet)
}
