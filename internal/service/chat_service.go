package service

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Saymum-GS/Awaken-DIU/internal/audit"
	"github.com/Saymum-GS/Awaken-DIU/internal/domain"
	"github.com/Saymum-GS/Awaken-DIU/internal/events"
	"github.com/Saymum-GS/Awaken-DIU/internal/presence"
	"github.com/Saymum-GS/Awaken-DIU/internal/queue"
	"github.com/Saymum-GS/Awaken-DIU/internal/store"
)

// chatService owns the presence registry, the waiting queue and the matcher.
// A single mutex serializes every registry/queue/matcher mutation so
// concurrent connections can never double-assign a volunteer or a queue
// entry. Store I/O runs outside the lock: each operation reserves its
// in-memory effects, writes the record, and commits or rolls back.
type chatService struct {
	mu       sync.Mutex
	registry *presence.Registry
	queue    *queue.Queue
	store    store.SessionStore
	notifier Notifier
	producer events.EventProducer
	counts   CountPublisher

	// pending holds matcher assignments the volunteer has not accepted yet.
	// An assignment is consumed by accept, or returned to the head of the
	// queue when the volunteer disappears first.
	pending map[string]pendingMatch // sessionID -> assignment

	// active maps each in-flight session to its volunteer, so a busy
	// volunteer always references exactly one session.
	active map[string]string // sessionID -> volunteerID

	now func() time.Time
}

type pendingMatch struct {
	entry       queue.Entry
	volunteerID string
}

// NewChatService wires the engine.
func NewChatService(
	registry *presence.Registry,
	q *queue.Queue,
	st store.SessionStore,
	notifier Notifier,
	producer events.EventProducer,
	counts CountPublisher,
) ChatService {
	return &chatService{
		registry: registry,
		queue:    q,
		store:    st,
		notifier: notifier,
		producer: producer,
		counts:   counts,
		pending:  make(map[string]pendingMatch),
		active:   make(map[string]string),
		now:      time.Now,
	}
}

func (s *chatService) HandleVolunteerOnline(ctx context.Context, conn domain.Sender, volunteerID, name string) error {
	if volunteerID == "" {
		return s.reject(conn, &domain.ValidationError{Field: "volunteerId", Reason: "required"})
	}
	if name == "" {
		return s.reject(conn, &domain.ValidationError{Field: "name", Reason: "required"})
	}

	s.mu.Lock()
	s.registry.SetOnline(volunteerID, name, conn)
	// A reconnect while a session is still active must not make the
	// volunteer matchable again.
	if _, ok := s.volunteerActiveSession(volunteerID); ok {
		s.registry.SetBusy(volunteerID, true)
	}
	s.tryMatchAll(ctx)
	s.mu.Unlock()

	s.broadcastVolunteerCount(ctx)
	audit.Log(ctx, audit.ActionVolunteerOnline, volunteerID, "volunteer online")
	return nil
}

func (s *chatService) HandleVolunteerOffline(ctx context.Context, volunteerID string) error {
	if volunteerID == "" {
		return &domain.ValidationError{Field: "volunteerId", Reason: "required"}
	}

	s.mu.Lock()
	if sid, ok := s.volunteerActiveSession(volunteerID); ok {
		// Known leak in the product: the in-progress session stays active
		// until the other party ends it. Flagged, not auto-ended.
		log.Printf("Volunteer %s went offline mid-session; session %s left active", volunteerID, sid)
	}
	s.registry.SetOffline(volunteerID)

	// Unaccepted assignments for this volunteer go back to the head of the
	// queue with their original arrival time.
	for sessionID, pm := range s.pending {
		if pm.volunteerID == volunteerID {
			delete(s.pending, sessionID)
			s.queue.EnqueueFront(pm.entry)
			s.notifyRequeued(pm.entry)
		}
	}
	s.tryMatchAll(ctx)
	s.mu.Unlock()

	s.broadcastVolunteerCount(ctx)
	audit.Log(ctx, audit.ActionVolunteerOffline, volunteerID, "volunteer offline")
	return nil
}

func (s *chatService) HandleRequestChat(ctx context.Context, conn domain.Sender, studentID, studentName, screeningID, riskLevel string) error {
	risk, err := domain.ParseRiskLevel(riskLevel)
	if err != nil {
		return s.reject(conn, err)
	}

	session, err := domain.NewChatSession(uuid.New().String(), studentID, screeningID, risk)
	if err != nil {
		return s.reject(conn, err)
	}

	// Durable record first; the queue entry only exists once the session
	// record does.
	if err := s.store.Create(ctx, session); err != nil {
		return s.reject(conn, err)
	}

	conn.SendMessage(&domain.ChatStatusMessage{
		Type:      domain.MsgTypeChatStatus,
		Status:    string(domain.StatusWaiting),
		Message:   "Looking for a volunteer...",
		SessionID: session.ID,
	})

	s.mu.Lock()
	s.queue.Enqueue(queue.Entry{
		SessionID:   session.ID,
		StudentID:   studentID,
		StudentName: studentName,
		RiskLevel:   risk,
		EnqueuedAt:  s.now(),
		Conn:        conn,
	})
	s.tryMatchAll(ctx)
	s.mu.Unlock()

	s.produce(ctx, &events.SessionEvent{
		Type:      events.EventSessionCreated,
		SessionID: session.ID,
		StudentID: studentID,
		RiskLevel: string(risk),
		Timestamp: s.now(),
	})
	audit.LogWithSession(ctx, audit.ActionRequestChat, studentID, session.ID, "student waiting for chat")
	return nil
}

func (s *chatService) HandleSendMessage(ctx context.Context, conn domain.Sender, sessionID, sender, senderName, text string) error {
	if sessionID == "" {
		return s.reject(conn, &domain.ValidationError{Field: "sessionId", Reason: "required"})
	}

	session, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return s.reject(conn, err)
	}

	msg, err := session.AppendMessage(domain.SenderRole(sender), senderName, text, s.now())
	if err != nil {
		return s.reject(conn, err)
	}

	if err := s.store.AppendMessage(ctx, sessionID, msg); err != nil {
		return s.reject(conn, err)
	}

	out := &domain.ReceiveMessageMessage{
		Type:       domain.MsgTypeReceiveMessage,
		Sender:     string(msg.Sender),
		SenderName: msg.SenderName,
		Text:       msg.Text,
		Timestamp:  msg.Timestamp,
	}
	s.notifier.SendToUser(string(domain.RoleStudent), session.StudentID, out)
	if session.VolunteerID != "" {
		s.notifier.SendToUser(string(domain.RoleVolunteer), session.VolunteerID, out)
	}

	s.produce(ctx, &events.SessionEvent{
		Type:        events.EventMessageSent,
		SessionID:   sessionID,
		StudentID:   session.StudentID,
		VolunteerID: session.VolunteerID,
		Timestamp:   msg.Timestamp,
	})
	return nil
}

func (s *chatService) HandleAcceptChat(ctx context.Context, conn domain.Sender, volunteerID, sessionID, volunteerName string) error {
	if volunteerID == "" {
		return s.reject(conn, &domain.ValidationError{Field: "volunteerId", Reason: "required"})
	}
	if sessionID == "" {
		return s.reject(conn, &domain.ValidationError{Field: "sessionId", Reason: "required"})
	}

	// Reserve under the lock: presence re-validated, volunteer marked busy,
	// queue entry and pending assignment consumed.
	s.mu.Lock()
	pm, wasPending := s.pending[sessionID]

	// An offer is exclusive to the volunteer the matcher reserved it for.
	// Anyone else taking it would leave that volunteer busy with no session.
	if wasPending && pm.volunteerID != volunteerID {
		s.mu.Unlock()
		return s.reject(conn, &domain.ValidationError{Field: "sessionId", Reason: "is offered to another volunteer"})
	}

	vol, online := s.registry.Get(volunteerID)
	if !online {
		if wasPending {
			delete(s.pending, sessionID)
			s.queue.EnqueueFront(pm.entry)
			s.notifyRequeued(pm.entry)
			s.tryMatchAll(ctx)
		}
		s.mu.Unlock()
		return s.reject(conn, &domain.NotFoundError{Resource: "volunteer", ID: volunteerID})
	}
	if vol.Busy && !wasPending {
		s.mu.Unlock()
		return s.reject(conn, &domain.ValidationError{Field: "volunteerId", Reason: "is not free"})
	}

	s.registry.SetBusy(volunteerID, true)
	entry, hadEntry := s.queue.RemoveBySession(sessionID)
	if wasPending {
		delete(s.pending, sessionID)
		entry, hadEntry = pm.entry, true
	}
	s.mu.Unlock()

	session, err := s.store.Get(ctx, sessionID)
	if err == nil {
		err = session.Accept(volunteerID, s.now())
	}
	if err == nil {
		err = s.store.Update(ctx, session)
	}

	if err != nil {
		s.mu.Lock()
		s.registry.SetBusy(volunteerID, false)
		var pe *domain.PersistenceError
		if hadEntry && errors.As(err, &pe) {
			// The student is not lost on a failed write: back to the head
			// of the queue with the original arrival time.
			s.queue.EnqueueFront(entry)
			s.notifyRequeued(entry)
		}
		s.tryMatchAll(ctx)
		s.mu.Unlock()
		return s.reject(conn, err)
	}

	s.mu.Lock()
	s.active[sessionID] = volunteerID
	s.mu.Unlock()

	studentName := entry.StudentName
	if studentName == "" {
		studentName = "Anonymous"
	}

	s.notifier.SendToUser(string(domain.RoleStudent), session.StudentID, &domain.VolunteerJoinedMessage{
		Type:          domain.MsgTypeVolunteerJoined,
		VolunteerName: volunteerName,
		SessionID:     sessionID,
	})
	conn.SendMessage(&domain.StudentJoinedMessage{
		Type:        domain.MsgTypeStudentJoined,
		SessionID:   sessionID,
		StudentName: studentName,
	})

	s.produce(ctx, &events.SessionEvent{
		Type:        events.EventSessionAccepted,
		SessionID:   sessionID,
		StudentID:   session.StudentID,
		VolunteerID: volunteerID,
		RiskLevel:   string(session.RiskLevel),
		Timestamp:   s.now(),
	})
	audit.LogWithSession(ctx, audit.ActionAcceptChat, volunteerID, sessionID, "chat accepted")
	return nil
}

func (s *chatService) HandleEscalateChat(ctx context.Context, conn domain.Sender, sessionID, reason string) error {
	if sessionID == "" {
		return s.reject(conn, &domain.ValidationError{Field: "sessionId", Reason: "required"})
	}

	session, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return s.reject(conn, err)
	}
	if err := session.Escalate(reason); err != nil {
		return s.reject(conn, err)
	}
	if err := s.store.Update(ctx, session); err != nil {
		return s.reject(conn, err)
	}

	s.mu.Lock()
	delete(s.active, sessionID)
	if session.VolunteerID != "" {
		s.registry.SetBusy(session.VolunteerID, false)
	}
	s.tryMatchAll(ctx)
	s.mu.Unlock()

	s.notifier.SendToUser(string(domain.RoleStudent), session.StudentID, &domain.ChatEscalatedMessage{
		Type:      domain.MsgTypeChatEscalated,
		SessionID: sessionID,
		Message:   "Your case has been escalated to a psychologist",
	})
	if session.VolunteerID != "" {
		s.notifier.SendToUser(string(domain.RoleVolunteer), session.VolunteerID, &domain.ChatEscalatedMessage{
			Type:      domain.MsgTypeChatEscalated,
			SessionID: sessionID,
			Message:   "Chat escalated to psychologist",
			Reason:    reason,
		})
	}

	s.produce(ctx, &events.SessionEvent{
		Type:        events.EventSessionEscalated,
		SessionID:   sessionID,
		StudentID:   session.StudentID,
		VolunteerID: session.VolunteerID,
		RiskLevel:   string(session.RiskLevel),
		Detail:      reason,
		Timestamp:   s.now(),
	})
	audit.LogWithSession(ctx, audit.ActionEscalateChat, session.VolunteerID, sessionID, "chat escalated")
	return nil
}

func (s *chatService) HandleEndChat(ctx context.Context, conn domain.Sender, sessionID, volunteerID, notes string) error {
	if sessionID == "" {
		return s.reject(conn, &domain.ValidationError{Field: "sessionId", Reason: "required"})
	}

	session, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return s.reject(conn, err)
	}
	if err := session.End(notes, s.now()); err != nil {
		return s.reject(conn, err)
	}
	if err := s.store.Update(ctx, session); err != nil {
		return s.reject(conn, err)
	}

	freed := session.VolunteerID
	if freed == "" {
		freed = volunteerID
	}

	s.mu.Lock()
	delete(s.active, sessionID)
	if freed != "" {
		s.registry.SetBusy(freed, false)
	}
	s.tryMatchAll(ctx)
	s.mu.Unlock()

	s.notifier.SendToUser(string(domain.RoleStudent), session.StudentID, &domain.ChatEndedMessage{
		Type:      domain.MsgTypeChatEnded,
		SessionID: sessionID,
		Message:   "Chat session has ended",
	})
	if freed != "" {
		s.notifier.SendToUser(string(domain.RoleVolunteer), freed, &domain.ChatEndedMessage{
			Type:      domain.MsgTypeChatEnded,
			SessionID: sessionID,
			Message:   "Chat session has ended",
			Duration:  session.Duration,
		})
	}

	s.produce(ctx, &events.SessionEvent{
		Type:        events.EventSessionEnded,
		SessionID:   sessionID,
		StudentID:   session.StudentID,
		VolunteerID: session.VolunteerID,
		RiskLevel:   string(session.RiskLevel),
		Duration:    session.Duration,
		Timestamp:   s.now(),
	})
	audit.LogWithSession(ctx, audit.ActionEndChat, freed, sessionID, "chat ended")
	return nil
}

func (s *chatService) HandleSkipChat(ctx context.Context, conn domain.Sender, sessionID string) error {
	if sessionID == "" {
		return s.reject(conn, &domain.ValidationError{Field: "sessionId", Reason: "required"})
	}

	session, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return s.reject(conn, err)
	}
	if err := session.Skip(s.now()); err != nil {
		return s.reject(conn, err)
	}
	if err := s.store.Update(ctx, session); err != nil {
		return s.reject(conn, err)
	}

	s.mu.Lock()
	s.queue.RemoveBySession(sessionID)
	if pm, ok := s.pending[sessionID]; ok {
		delete(s.pending, sessionID)
		s.registry.SetBusy(pm.volunteerID, false)
		s.tryMatchAll(ctx)
	}
	s.mu.Unlock()

	conn.SendMessage(&domain.ChatStatusMessage{
		Type:      domain.MsgTypeChatStatus,
		Status:    string(domain.StatusEnded),
		Message:   "Left the waiting queue",
		SessionID: sessionID,
	})

	s.produce(ctx, &events.SessionEvent{
		Type:      events.EventSessionSkipped,
		SessionID: sessionID,
		StudentID: session.StudentID,
		RiskLevel: string(session.RiskLevel),
		Timestamp: s.now(),
	})
	audit.LogWithSession(ctx, audit.ActionSkipChat, session.StudentID, sessionID, "chat skipped")
	return nil
}

func (s *chatService) HandleDisconnect(ctx context.Context, role, userID string) error {
	if userID == "" {
		return nil
	}

	switch domain.SenderRole(role) {
	case domain.RoleVolunteer:
		return s.HandleVolunteerOffline(ctx, userID)

	case domain.RoleStudent:
		s.mu.Lock()
		for _, entry := range s.queue.Snapshot() {
			if entry.StudentID == userID {
				s.queue.RemoveBySession(entry.SessionID)
			}
		}
		for sessionID, pm := range s.pending {
			if pm.entry.StudentID == userID {
				delete(s.pending, sessionID)
				s.registry.SetBusy(pm.volunteerID, false)
			}
		}
		s.tryMatchAll(ctx)
		s.mu.Unlock()
		audit.Log(ctx, audit.ActionDisconnect, userID, "student disconnected")
	}
	return nil
}

func (s *chatService) GetSession(ctx context.Context, sessionID string) (*domain.ChatSession, error) {
	return s.store.Get(ctx, sessionID)
}

func (s *chatService) QueueStats() QueueStats {
	entries := s.queue.Snapshot()
	stats := QueueStats{
		Length: len(entries),
		ByRisk: make(map[string]int),
	}
	now := s.now()
	for _, e := range entries {
		stats.ByRisk[string(e.RiskLevel)]++
		wait := int64(now.Sub(e.EnqueuedAt) / time.Second)
		if wait > stats.OldestWait {
			stats.OldestWait = wait
		}
	}
	return stats
}

func (s *chatService) VolunteerStats() VolunteerStats {
	online := s.registry.Count()
	free := s.registry.FreeCount()
	return VolunteerStats{
		Online: online,
		Free:   free,
		Busy:   online - free,
	}
}

func (s *chatService) Stop() error {
	if err := s.producer.Close(); err != nil {
		log.Printf("Failed to close event producer: %v", err)
	}
	return nil
}

// volunteerActiveSession returns the active session bound to a volunteer, if
// any. Caller must hold s.mu.
func (s *chatService) volunteerActiveSession(volunteerID string) (string, bool) {
	for sessionID, vid := range s.active {
		if vid == volunteerID {
			return sessionID, true
		}
	}
	return "", false
}

// notifyRequeued tells a student their match fell through and they are back
// at the head of the queue.
func (s *chatService) notifyRequeued(e queue.Entry) {
	if e.Conn == nil {
		return
	}
	e.Conn.SendMessage(&domain.ChatStatusMessage{
		Type:      domain.MsgTypeChatStatus,
		Status:    string(domain.StatusWaiting),
		Message:   "Looking for a volunteer...",
		SessionID: e.SessionID,
	})
}

// reject reports a failed operation back to the originating connection and
// returns the error for logging. No state has been committed when it runs.
func (s *chatService) reject(conn domain.Sender, err error) error {
	if conn != nil {
		conn.SendMessage(domain.NewErrorFrom(err))
	}
	return err
}

// broadcastVolunteerCount pushes the current count to local clients and to
// sibling instances. Called after every presence change, outside the lock.
func (s *chatService) broadcastVolunteerCount(ctx context.Context) {
	count := s.registry.Count()
	s.notifier.Broadcast(&domain.VolunteerCountMessage{
		Type:      domain.MsgTypeVolunteerCount,
		Count:     count,
		Timestamp: s.now(),
	})
	if err := s.counts.PublishCount(ctx, count); err != nil {
		log.Printf("Failed to publish volunteer count: %v", err)
	}
}

func (s *chatService) produce(ctx context.Context, event *events.SessionEvent) {
	if err := s.producer.Produce(ctx, event); err != nil {
		log.Printf("Failed to produce %s event: %v", event.Type, err)
	}
}
