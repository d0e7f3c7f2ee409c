package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahinestrog/gomarketplace/internal/cart"
)

type fakeChannel struct {
	exchange, key string
	msg           amqp.Publishing
	closed        bool
}

func (f *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	f.exchange, f.key, f.msg = exchange, key, msg
	return nil
}

func (f *fakeChannel) Close() error { f.closed = true; return nil }

var (
	_ cart.Notifier = (*Publisher)(nil)
	_ cart.Notifier = Nop{}
)

func TestPublisher_CartUpdated(t *testing.T) {
	ch := &fakeChannel{}
	at := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
	p := &Publisher{channel: ch, exchange: "cart.events", log: zerolog.Nop(), now: func() time.Time { return at }}

	st := cart.State{{ID: "a", Title: "Mug", Price: 12.5, Quantity: 2}}
	require.NoError(t, p.CartUpdated(context.Background(), st))

	assert.Equal(t, "cart.events", ch.exchange)
	assert.Equal(t, TypeCartUpdated, ch.key)
	assert.Equal(t, "application/json", ch.msg.ContentType)

	var env struct {
		ID        string      `json:"id"`
		Type      string      `json:"type"`
		Timestamp time.Time   `json:"timestamp"`
		Payload   CartUpdated `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(ch.msg.Body, &env))
	_, err := uuid.Parse(env.ID)
	assert.NoError(t, err)
	assert.Equal(t, TypeCartUpdated, env.Type)
	assert.True(t, at.Equal(env.Timestamp))
	assert.Equal(t, 2, env.Payload.Count)
	assert.InDelta(t, 25.0, env.Payload.Total, 1e-9)
	assert.Equal(t, []cart.LineItem(st), env.Payload.Items)

	p.Close()
	assert.True(t, ch.closed)
}

func TestPublisher_EmptyCartPublishesEmptyList(t *testing.T) {
	ch := &fakeChannel{}
	p := &Publisher{channel: ch, exchange: "x", log: zerolog.Nop(), now: time.Now}
	require.NoError(t, p.CartUpdated(context.Background(), nil))
	assert.Contains(t, string(ch.msg.Body), `"items":[]`)
}
