package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// CountUpdatePayload is the cross-instance volunteer count message. Every
// instance publishes its local count on presence changes; peers rebroadcast
// it to their own clients.
type CountUpdatePayload struct {
	Count            int    `json:"count"`
	OriginInstanceID string `json:"origin_instance_id,omitempty"`
}

// Config holds Redis connection configuration for the count channel.
type Config struct {
	Address    string
	Password   string
	DB         int
	Channel    string // e.g. chat:volunteer_count
	InstanceID string // origin_instance_id in published payloads
}

// Publisher publishes volunteer count updates over Redis Pub/Sub.
type Publisher struct {
	client     *redis.Client
	channel    string
	instanceID string
}

// NewPublisher connects to Redis and returns a publisher for the count
// channel. The connection is shared with the subscriber via Client().
func NewPublisher(cfg Config) (*Publisher, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	channel := cfg.Channel
	if channel == "" {
		channel = "chat:volunteer_count"
	}

	return &Publisher{
		client:     client,
		channel:    channel,
		instanceID: cfg.InstanceID,
	}, nil
}

// Client exposes the underlying connection for the subscriber.
func (p *Publisher) Client() *redis.Client { return p.client }

// Channel returns the Pub/Sub channel name in use.
func (p *Publisher) Channel() string { return p.channel }

// PublishCount publishes the local volunteer count to sibling instances.
func (p *Publisher) PublishCount(ctx context.Context, count int) error {
	data, err := json.Marshal(CountUpdatePayload{
		Count:            count,
		OriginInstanceID: p.instanceID,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal count payload: %w", err)
	}
	return p.client.Publish(ctx, p.channel, string(data)).Err()
}

// Close closes the Redis connection.
func (p *Publisher) Close() error {
	return p.client.Close()
}
