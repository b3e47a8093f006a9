package pubsub

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Saymum-GS/Awaken-DIU/internal/domain"
	"github.com/Saymum-GS/Awaken-DIU/internal/hub"
	pkglog "github.com/Saymum-GS/Awaken-DIU/pkg/log"
)

// Subscriber listens on the Redis count channel and rebroadcasts volunteer
// counts from sibling instances to the local hub.
type Subscriber struct {
	client     *redis.Client
	channel    string
	hub        *hub.Hub
	instanceID string
	doneCh     chan struct{}
}

// NewSubscriber creates a subscriber for volunteer count updates.
func NewSubscriber(client *redis.Client, channel string, h *hub.Hub, instanceID string) *Subscriber {
	if channel == "" {
		channel = "chat:volunteer_count"
	}
	return &Subscriber{
		client:     client,
		channel:    channel,
		hub:        h,
		instanceID: instanceID,
		doneCh:     make(chan struct{}),
	}
}

// Done returns a channel that is closed when Run() exits.
func (s *Subscriber) Done() <-chan struct{} { return s.doneCh }

// Run subscribes and rebroadcasts count updates until ctx is done.
// Reconnects on receive errors.
func (s *Subscriber) Run(ctx context.Context) {
	defer close(s.doneCh)
	l := pkglog.L()

	for {
		select {
		case <-ctx.Done():
			return
		default:
			if err := s.runSubscription(ctx); err != nil && ctx.Err() == nil {
				l.Warn().Err(err).Msg("count pubsub subscription error, reconnecting in 2s")
				select {
				case <-ctx.Done():
					return
				case <-time.After(2 * time.Second):
					continue
				}
			}
			return
		}
	}
}

func (s *Subscriber) runSubscription(ctx context.Context) error {
	pubsub := s.client.Subscribe(ctx, s.channel)
	defer pubsub.Close()

	// Wait for subscription to be active
	if _, err := pubsub.Receive(ctx); err != nil {
		return err
	}

	ch := pubsub.Channel()

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			s.handleMessage(msg.Payload)
		}
	}
}

func (s *Subscriber) handleMessage(payload string) {
	l := pkglog.L()

	var update CountUpdatePayload
	if err := json.Unmarshal([]byte(payload), &update); err != nil {
		l.Warn().Err(err).Msg("count pubsub: invalid payload")
		return
	}
	// Local count was already broadcast at publish time.
	if update.OriginInstanceID != "" && update.OriginInstanceID == s.instanceID {
		return
	}

	msg := &domain.VolunteerCountMessage{
		Type:      domain.MsgTypeVolunteerCount,
		Count:     update.Count,
		Timestamp: time.Now(),
	}
	if err := s.hub.Broadcast(msg); err != nil {
		l.Error().Err(err).Msg("count pubsub: broadcast error")
	}
}
