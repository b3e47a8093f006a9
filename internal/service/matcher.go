package service

import (
	"context"
	"log"
	"time"

	"github.com/Saymum-GS/Awaken-DIU/internal/domain"
	"github.com/Saymum-GS/Awaken-DIU/internal/events"
)

// tryMatchAll pairs waiting students with free volunteers until one side
// runs out. Caller must hold s.mu. Each pairing marks the volunteer busy
// and records a pending assignment; the session only becomes active when
// the volunteer accepts.
func (s *chatService) tryMatchAll(ctx context.Context) {
	for {
		if _, ok := s.queue.Next(); !ok {
			return
		}

		var volunteerID string
		for vol := range s.registry.Free() {
			volunteerID = vol.VolunteerID
			break
		}
		if volunteerID == "" {
			return
		}

		entry, ok := s.queue.DequeueNext()
		if !ok {
			return
		}

		s.registry.SetBusy(volunteerID, true)
		s.pending[entry.SessionID] = pendingMatch{entry: entry, volunteerID: volunteerID}

		waitTime := int64(s.now().Sub(entry.EnqueuedAt) / time.Second)
		if waitTime < 0 {
			waitTime = 0
		}

		vol, online := s.registry.Get(volunteerID)
		if !online || vol.Conn == nil {
			continue
		}
		if err := vol.Conn.SendMessage(&domain.NewChatRequestMessage{
			Type:        domain.MsgTypeNewChatRequest,
			SessionID:   entry.SessionID,
			StudentName: anonymousName(entry.StudentName),
			RiskLevel:   string(entry.RiskLevel),
			WaitTime:    waitTime,
		}); err != nil {
			log.Printf("Failed to offer session %s to volunteer %s: %v", entry.SessionID, volunteerID, err)
		}

		s.produce(ctx, &events.SessionEvent{
			Type:        events.EventSessionMatched,
			SessionID:   entry.SessionID,
			StudentID:   entry.StudentID,
			VolunteerID: volunteerID,
			RiskLevel:   string(entry.RiskLevel),
			WaitTime:    waitTime,
			Timestamp:   s.now(),
		})
	}
}

func anonymousName(name string) string {
	if name == "" {
		return "Anonymous"
	}
	return name
}
