package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes events to a Kafka topic.
// Messages are keyed by item id, so the hash balancer keeps each item's events on
// one partition in publish order. Bids that commit close together may publish in
// either order; consumers order an item's BidPlaced events by Amount.
type KafkaPublisher struct {
	w messageWriter
}

// NewKafkaPublisher builds a synchronous writer that waits for all in-sync replicas
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		w: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			MaxAttempts:  5,
			WriteTimeout: 5 * time.Second,
			ReadTimeout:  5 * time.Second,
			BatchTimeout: 10 * time.Millisecond,
		},
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, ev Event) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", ev.Type, err)
	}
	err = p.w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(ev.ItemID),
		Value: b,
		Time:  ev.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(ev.Type)},
		},
	})
	if err != nil {
		return fmt.Errorf("publish %s event for item %s: %w", ev.Type, ev.ItemID, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error { return p.w.Close() }
