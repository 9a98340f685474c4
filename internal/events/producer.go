// Package events publishes domain events to Kafka.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

const (
	TopicUsers    = "user_events"
	TopicContacts = "contact_events"
)

const (
	UserRegistered  = "user_registered"
	UserLoggedIn    = "user_logged_in"
	EmailConfirmed  = "email_confirmed"
	PasswordUpdated = "password_updated"
	AvatarUpdated   = "avatar_updated"
	ContactCreated  = "contact_created"
	ContactUpdated  = "contact_updated"
	ContactDeleted  = "contact_deleted"
)

type Event struct {
	Type      string    `json:"type"`
	UserID    uint      `json:"user_id"`
	Email     string    `json:"email,omitempty"`
	ContactID uint      `json:"contact_id,omitempty"`
	At        time.Time `json:"at"`
}

type Publisher interface {
	PublishEvent(ctx context.Context, topic, key string, event any) error
	Close() error
}

type writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Producer struct {
	w      writer
	topics map[string]string
}

// NewProducer writes to brokers. topics renames the logical topics
// (TopicUsers, TopicContacts) to the names used on the cluster.
func NewProducer(brokers []string, topics map[string]string) *Producer {
	return &Producer{topics: topics, w: &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
		WriteTimeout:           5 * time.Second,
	}}
}

func (p *Producer) PublishEvent(ctx context.Context, topic, key string, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("kafka: json.Marshal failed: %w", err)
	}

	if name, ok := p.topics[topic]; ok && name != "" {
		topic = name
	}
	if err := p.w.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: data,
	}); err != nil {
		return fmt.Errorf("kafka: write failed: %w", err)
	}
	return nil
}

func (p *Producer) Close() error {
	return p.w.Close()
}

// Nop drops every event. Used when no brokers are configured.
type Nop struct{}

func (Nop) PublishEvent(context.Context, string, string, any) error { return nil }
func (Nop) Close() error                                           { return nil }
