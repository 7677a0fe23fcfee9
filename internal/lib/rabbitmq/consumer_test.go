package rabbitmq

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAcknowledger struct {
	mu     sync.Mutex
	acked  []uint64
	nacked map[uint64]bool
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
	if a.nacked == nil {
		a.nacked = map[uint64]bool{}
	}
	a.nacked[tag] = requeue
	return nil
}

func (a *fakeAcknowledger) Reject(tag uint64, requeue bool) error {
	return a.Nack(tag, false, requeue)
}

type fakeDeliveries struct {
	ch  chan amqp.Delivery
	err error
}

func (f *fakeDeliveries) Consume(_, _ string, _, _, _, _ bool, _ amqp.Table) (<-chan amqp.Delivery, error) {
	return f.ch, f.err
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func TestConsumerMessage_AckAndNack(t *testing.T) {
	ack := &fakeAcknowledger{}
	src := &fakeDeliveries{ch: make(chan amqp.Delivery, 3)}

	var wg sync.WaitGroup
	wg.Add(3)
	handler := func(body []byte) error {
		defer wg.Done()
		if string(body) == "bad" {
			return errors.New("handler failed")
		}
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, ConsumerMessage(ctx, newNoopLogger(), src, QueueGiftCode, handler))

	src.ch <- amqp.Delivery{Acknowledger: ack, DeliveryTag: 1, Body: []byte("ok")}
	src.ch <- amqp.Delivery{Acknowledger: ack, DeliveryTag: 2, Body: []byte("bad")}
	src.ch <- amqp.Delivery{Acknowledger: ack, DeliveryTag: 3, Body: []byte("bad"), Redelivered: true}

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for handler")
	}

	assert.Eventually(t, func() bool {
		ack.mu.Lock()
		defer ack.mu.Unlock()
		return len(ack.acked) == 1 && len(ack.nacked) == 2
	}, 2*time.Second, 10*time.Millisecond)

	ack.mu.Lock()
	defer ack.mu.Unlock()
	assert.Equal(t, []uint64{1}, ack.acked)
	assert.True(t, ack.nacked[2], "первая ошибка возвращает сообщение в очередь")
	assert.False(t, ack.nacked[3], "повторная ошибка не возвращает сообщение")
}

func TestConsumerMessage_ConsumeError(t *testing.T) {
	src := &fakeDeliveries{err: errors.New("no queue")}

	err := ConsumerMessage(context.Background(), newNoopLogger(), src, "missing", func([]byte) error { return nil })

	assert.ErrorContains(t, err, "rabbitmq.ConsumerMessage")
}
