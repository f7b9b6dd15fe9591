package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fjod/go_shop/internal/domain"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

const DefaultCartTopic = "cart-events"

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaPublisher struct {
	writer messageWriter
	now    func() time.Time
}

func NewKafkaPublisher(topic string, brokers ...string) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
		RequiredAcks:           kafka.RequireOne,
	}
	return &KafkaPublisher{writer: w, now: time.Now}
}

// PublishCart writes one event keyed by user id, so events of one cart stay
// ordered within a partition.
func (p *KafkaPublisher) PublishCart(ctx context.Context, cart *domain.Cart, outcome domain.CartOutcome) error {
	event := CartEvent{
		ID:         uuid.NewString(),
		Type:       eventType(outcome),
		UserID:     cart.UserID,
		Version:    cart.Version,
		Items:      cart.Items,
		OccurredAt: p.now().UTC(),
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal cart event failed: %w", err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(cart.UserID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(event.Type)},
		},
	})
	if err != nil {
		return fmt.Errorf("publish cart event failed: %w", err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

func eventType(outcome domain.CartOutcome) string {
	if outcome == domain.CartCreated {
		return TypeCartCreated
	}
	return TypeCartUpdated
}
