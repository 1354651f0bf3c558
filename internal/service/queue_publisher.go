package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	q "github.com/iliyamo/tts-access-api/internal/queue"
)

// TaskPublisher hands a TTS task to the external worker.
type TaskPublisher interface {
	PublishTask(ctx context.Context, ev q.TTSTaskEvent) error
}

// RabbitPublisher publishes TTS tasks to a durable RabbitMQ queue.  It dials
// per publish: submissions are rare and this keeps no connection state to
// repair after a broker restart.
type RabbitPublisher struct {
	URL   string
	Queue string
	Log   *zap.Logger
}

func NewRabbitPublisher(url, queue string, log *zap.Logger) *RabbitPublisher {
	return &RabbitPublisher{URL: url, Queue: queue, Log: log}
}

// PublishTask marshals ev and publishes it as a persistent message on the
// default exchange with the queue name as routing key.
func (p *RabbitPublisher) PublishTask(ctx context.Context, ev q.TTSTaskEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal task: %w", err)
	}

	conn, err := amqp.Dial(p.URL)
	if err != nil {
		p.Log.Warn("rabbitmq: dial failed", zap.Error(err))
		return fmt.Errorf("dial broker: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	// Durable so queued tasks survive broker restarts.
	if _, err := ch.QueueDeclare(
		p.Queue, // name
		true,    // durable
		false,   // autoDelete
		false,   // exclusive
		false,   // noWait
		nil,     // args
	); err != nil {
		return fmt.Errorf("declare %s: %w", p.Queue, err)
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    ev.TaskID,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", p.Queue, false, false, pub); err != nil {
		p.Log.Warn("rabbitmq: publish failed", zap.String("task_id", ev.TaskID), zap.Error(err))
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}
