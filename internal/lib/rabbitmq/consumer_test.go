package rabbitmq

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConsumer struct {
	deliveries chan amqp.Delivery
	err        error
}

func (f *fakeConsumer) Consume(_, _ string, _, _, _, _ bool, _ amqp.Table) (<-chan amqp.Delivery, error) {
	return f.deliveries, f.err
}

type fakeAcknowledger struct {
	mu      sync.Mutex
	acked   []uint64
	nack    []uint64
	requeue map[uint64]bool
}

func (a *fakeAcknowledger) Ack(tag uint64, _ bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.acked = append(a.acked, tag)
	return nil
}

func (a *fakeAcknowledger) Nack(tag uint64, _ bool, requeue bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.nack = append(a.nack, tag)
	if a.requeue == nil {
		a.requeue = make(map[uint64]bool)
	}
	a.requeue[tag] = requeue
	return nil
}

func (a *fakeAcknowledger) Reject(tag uint64, _ bool) error {
	return nil
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func TestConsumeMessages_AckAndNack(t *testing.T) {
	ack := &fakeAcknowledger{}
	consumer := &fakeConsumer{deliveries: make(chan amqp.Delivery, 2)}
	consumer.deliveries <- amqp.Delivery{Acknowledger: ack, DeliveryTag: 1, Body: []byte("ok")}
	consumer.deliveries <- amqp.Delivery{Acknowledger: ack, DeliveryTag: 2, Body: []byte("bad")}
	close(consumer.deliveries)

	err := ConsumeMessages(context.Background(), consumer, VerificationQueue, newNoopLogger(), func(body []byte) error {
		if string(body) == "bad" {
			return errors.New("handler failed")
		}
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, []uint64{1}, ack.acked)
	assert.Equal(t, []uint64{2}, ack.nack)
	assert.True(t, ack.requeue[2])
}

func TestConsumeMessages_DropsPermanentFailures(t *testing.T) {
	ack := &fakeAcknowledger{}
	consumer := &fakeConsumer{deliveries: make(chan amqp.Delivery, 2)}
	consumer.deliveries <- amqp.Delivery{Acknowledger: ack, DeliveryTag: 1, Body: []byte("{")}
	consumer.deliveries <- amqp.Delivery{Acknowledger: ack, DeliveryTag: 2, Body: []byte("smtp down")}
	close(consumer.deliveries)

	err := ConsumeMessages(context.Background(), consumer, VerificationQueue, newNoopLogger(), func(body []byte) error {
		if string(body) == "{" {
			return Permanent(errors.New("unexpected end of JSON input"))
		}
		return errors.New("connection refused")
	})
	require.NoError(t, err)

	assert.Empty(t, ack.acked)
	assert.ElementsMatch(t, []uint64{1, 2}, ack.nack)
	assert.False(t, ack.requeue[1])
	assert.True(t, ack.requeue[2])
}

func TestPermanent(t *testing.T) {
	cause := errors.New("bad body")
	err := Permanent(cause)
	assert.ErrorIs(t, err, ErrPermanent)
	assert.ErrorIs(t, err, cause)
	assert.False(t, errors.Is(cause, ErrPermanent))
}

func TestConsumeMessages_StopsOnContextCancel(t *testing.T) {
	consumer := &fakeConsumer{deliveries: make(chan amqp.Delivery)}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := ConsumeMessages(ctx, consumer, VerificationQueue, newNoopLogger(), func([]byte) error { return nil })
	assert.NoError(t, err)
}

func TestConsumeMessages_ConsumeError(t *testing.T) {
	consumer := &fakeConsumer{err: errors.New("no queue")}
	err := ConsumeMessages(context.Background(), consumer, VerificationQueue, newNoopLogger(), func([]byte) error { return nil })
	assert.ErrorContains(t, err, "no queue")
}
