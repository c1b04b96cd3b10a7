package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/yourusername/tracker-api/internal/domain/entity"
)

// userRegisteredChannel — канал Redis Pub/Sub для событий регистрации
const userRegisteredChannel = "events:user_registered"

// Notifier publishes fire-and-forget domain events. Delivery and ordering are
// not guaranteed; subscribers that miss an event miss it.
type Notifier interface {
	UserRegistered(ctx context.Context, user *entity.User) error
}

// NoopNotifier is used when no event transport is configured.
type NoopNotifier struct{}

func (n *NoopNotifier) UserRegistered(ctx context.Context, user *entity.User) error {
	log.Printf("[Notifier] noop user_registered ID=%d", user.ID)
	return nil
}

// userRegisteredEvent is the wire payload published to subscribers.
type userRegisteredEvent struct {
	UserID    uint      `json:"user_id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	Timestamp time.Time `json:"timestamp"`
}

// RedisNotifier публикует события в Redis Pub/Sub
type RedisNotifier struct {
	client redis.UniversalClient
}

func NewRedisNotifier(client redis.UniversalClient) (*RedisNotifier, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required for RedisNotifier")
	}
	return &RedisNotifier{client: client}, nil
}

func (n *RedisNotifier) UserRegistered(ctx context.Context, user *entity.User) error {
	event := userRegisteredEvent{
		UserID:    user.ID,
		Username:  user.Username,
		Email:     user.Email,
		FullName:  user.FullName,
		Timestamp: time.Now().UTC(),
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal user_registered event: %w", err)
	}
	if err := n.client.Publish(ctx, userRegisteredChannel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish user_registered event: %w", err)
	}
	return nil
}
