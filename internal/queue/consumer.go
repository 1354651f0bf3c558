package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/iliyamo/tts-access-api/internal/model"
)

// StatusWriter persists a task status.  The Redis status repository
// satisfies it.
type StatusWriter interface {
	Put(ctx context.Context, st model.TTSStatus) error
}

// StatusConsumer mirrors worker status events from a RabbitMQ queue into
// the status store, for workers that report over the broker instead of
// writing the store directly.
type StatusConsumer struct {
	URL   string
	Queue string
	Store StatusWriter
	Log   *zap.Logger
}

func NewStatusConsumer(url, queue string, store StatusWriter, log *zap.Logger) *StatusConsumer {
	return &StatusConsumer{URL: url, Queue: queue, Store: store, Log: log}
}

// Run connects, declares the queue (durable) and consumes until ctx is
// cancelled.  Broker failures are retried with exponential backoff capped at
// 30s; a message that cannot be handled is rejected without requeue so a
// poison message can not spin the loop.
func (c *StatusConsumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(c.URL)
		if err != nil {
			c.Log.Warn("status-consumer: dial failed", zap.Error(err), zap.Duration("retry_in", backoff))
			if !sleepCtx(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consumeLoop(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.Log.Warn("status-consumer: consume loop ended, reconnecting", zap.Error(err))
		if !sleepCtx(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func (c *StatusConsumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		c.Log.Warn("status-consumer: set QoS failed", zap.Error(err))
	}
	if _, err := ch.QueueDeclare(c.Queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(c.Queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := c.handleMessage(ctx, d.Body); err != nil {
				c.Log.Warn("status-consumer: handle message failed", zap.Error(err))
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func (c *StatusConsumer) handleMessage(ctx context.Context, body []byte) error {
	var ev TTSStatusEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.TaskID == "" {
		return errors.New("event without taskId")
	}
	switch ev.Status {
	case model.TTSStatusQueued, model.TTSStatusProcessing, model.TTSStatusDone, model.TTSStatusFailed:
	default:
		return fmt.Errorf("unknown status %q", ev.Status)
	}
	if err := c.Store.Put(ctx, model.TTSStatus{TaskID: ev.TaskID, Status: ev.Status, File: ev.File}); err != nil {
		return fmt.Errorf("store status: %w", err)
	}
	return nil
}

// sleepCtx waits for d and reports false if ctx ended first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
