// Package events publishes domain events about users, sessions and enrollments.
//
// Without Kafka brokers events go to an in-process gochannel pub/sub, which
// drops every message on a topic nobody has subscribed to.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v2/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

const (
	TopicUserRegistered  = "users.registered"
	TopicSessionOffered  = "sessions.offered"
	TopicSessionEnrolled = "sessions.enrolled"
)

// requestIDKey is the context key under which handlers store the request id
type requestIDKey struct{}

// WithRequestID attaches a request id that Emit copies into message metadata
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// UserRegistered is published after a registration commits
type UserRegistered struct {
	Username     string    `json:"username"`
	Credits      int       `json:"credits"`
	RegisteredAt time.Time `json:"registeredAt"`
}

// SessionOffered is published after an offer commits
type SessionOffered struct {
	SessionID       string    `json:"sessionId"`
	Teacher         string    `json:"teacher"`
	Title           string    `json:"title"`
	CreditsRequired int       `json:"creditsRequired"`
	Reward          int       `json:"reward"`
	OfferedAt       time.Time `json:"offeredAt"`
}

// Emitter marshals payloads into watermill messages and publishes them.
// Publishing is best effort: failures are logged and never returned to callers.
type Emitter struct {
	publisher message.Publisher
	logger    *slog.Logger
}

// NewEmitter wraps a watermill publisher. A nil publisher discards events.
func NewEmitter(publisher message.Publisher, logger *slog.Logger) *Emitter {
	return &Emitter{publisher: publisher, logger: logger}
}

// Emit publishes payload on topic
func (e *Emitter) Emit(ctx context.Context, topic string, payload any) {
	if e == nil || e.publisher == nil {
		return
	}

	body, err := json.Marshal(payload)
	if err != nil {
		e.logger.Error("failed to marshal event", "topic", topic, "error", err)
		return
	}

	msg := message.NewMessage(watermill.NewUUID(), body)
	if requestID, ok := ctx.Value(requestIDKey{}).(string); ok && requestID != "" {
		msg.Metadata.Set("request_id", requestID)
	}

	if err := e.publisher.Publish(topic, msg); err != nil {
		e.logger.Error("failed to publish event", "topic", topic, "message_uuid", msg.UUID, "error", err)
		return
	}
	e.logger.Debug("event published", "topic", topic, "message_uuid", msg.UUID)
}

// NewPublisher returns a Kafka publisher when brokers are configured and an
// in-process channel pub/sub otherwise. The in-process publisher keeps no
// messages for topics without subscribers.
func NewPublisher(brokers []string, logger *slog.Logger) (message.Publisher, error) {
	wmLogger := watermill.NewSlogLogger(logger)

	if len(brokers) == 0 {
		return gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 64}, wmLogger), nil
	}

	publisher, err := kafka.NewPublisher(kafka.PublisherConfig{
		Brokers:   brokers,
		Marshaler: kafka.DefaultMarshaler{},
	}, wmLogger)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka publisher: %w", err)
	}
	return publisher, nil
}
