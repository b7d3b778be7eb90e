package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func TestKafkaPublisher_Publish(t *testing.T) {
	t.Parallel()

	w := &fakeWriter{}
	p := &KafkaPublisher{w: w}
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	ev := Event{
		Type:       BidPlaced,
		ItemID:     "item1",
		BidID:      "bid1",
		UserID:     "user1",
		Amount:     decimal.RequireFromString("15.50"),
		OccurredAt: at,
	}
	require.NoError(t, p.Publish(context.Background(), ev))
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	require.Equal(t, "item1", string(msg.Key))
	require.Equal(t, at, msg.Time)
	require.Equal(t, "event_type", msg.Headers[0].Key)
	require.Equal(t, "bid_placed", string(msg.Headers[0].Value))

	var body map[string]any
	require.NoError(t, json.Unmarshal(msg.Value, &body))
	require.Equal(t, "bid_placed", body["type"])
	require.Equal(t, "15.5", body["amount"])

	require.NoError(t, p.Close())
	require.True(t, w.closed)
}

func TestKafkaPublisher_WriteError(t *testing.T) {
	t.Parallel()

	p := &KafkaPublisher{w: &fakeWriter{err: errors.New("broker down")}}
	err := p.Publish(context.Background(), Event{Type: ItemClosed, ItemID: "item1"})
	require.ErrorContains(t, err, "broker down")
	require.ErrorContains(t, err, "item_closed")
}

func TestRecorder(t *testing.T) {
	t.Parallel()

	r := NewRecorder()
	require.NoError(t, r.Publish(context.Background(), Event{Type: BidPlaced, ItemID: "a"}))

	boom := errors.New("boom")
	r.FailWith(boom)
	require.ErrorIs(t, r.Publish(context.Background(), Event{Type: BidPlaced, ItemID: "b"}), boom)

	got := r.Events()
	require.Len(t, got, 1)
	require.Equal(t, "a", got[0].ItemID)

	var nop Publisher = NopPublisher{}
	require.NoError(t, nop.Publish(context.Background(), Event{}))
}
