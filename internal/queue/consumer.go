package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/lib/pq"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.opentelemetry.io/otel"

	"staff-chat/internal/observability"
	"staff-chat/internal/repositories"
)

// Consumer is the queue worker that performs the durable message insert. The
// NOTIFY trigger on the messages table fans the insert out to realtime
// subscribers, so the worker itself does not broadcast anything.
type Consumer struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	queue    string
	messages repositories.MessageRepository
}

// NewConsumer connects and declares the same durable queue the publisher uses.
func NewConsumer(amqpURL, queueName string, messages repositories.MessageRepository) (*Consumer, error) {
	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		return nil, fmt.Errorf("queue consumer: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("queue consumer: %w", err)
	}
	if err := ch.Qos(8, 0, false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("queue consumer: %w", err)
	}
	if _, err := ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("queue consumer: %w", err)
	}

	return &Consumer{conn: conn, ch: ch, queue: queueName, messages: messages}, nil
}

// Run consumes jobs until the context is cancelled. A malformed payload or an
// insert that can never succeed is rejected without requeue; a transient
// insert failure is requeued and retried.
func (c *Consumer) Run(ctx context.Context) error {
	deliveries, err := c.ch.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("queue consumer: delivery channel closed")
			}
			if err := c.process(ctx, d.Body); err != nil {
				if errors.Is(err, errMalformedJob) || errors.Is(err, errUnprocessableJob) {
					log.Printf("queue worker: dropping job: %v", err)
					observability.IncQueueError("drop")
					_ = d.Reject(false)
					continue
				}
				log.Printf("queue worker: job failed, requeueing: %v", err)
				observability.IncQueueError("consume")
				_ = d.Nack(false, true)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

var (
	errMalformedJob     = errors.New("malformed send job")
	errUnprocessableJob = errors.New("unprocessable send job")
)

func (c *Consumer) process(ctx context.Context, body []byte) error {
	ctx, span := otel.Tracer("staff-chat/queue").Start(ctx, "queue.consume")
	defer span.End()

	var job SendJob
	if err := json.Unmarshal(body, &job); err != nil {
		return fmt.Errorf("%w: %v", errMalformedJob, err)
	}
	if job.JobID == "" || job.RoomID == 0 {
		return fmt.Errorf("%w: missing job id or room id", errMalformedJob)
	}

	if _, err := c.messages.InsertMessage(ctx, job.RoomID, job.SenderID, job.Ciphertext, job.IV, job.JobID); err != nil {
		// integrity violations cannot succeed on redelivery, e.g. the room
		// was deleted while the job was in flight
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Class() == "23" {
			return fmt.Errorf("%w: %v", errUnprocessableJob, err)
		}
		return fmt.Errorf("insert message: %w", err)
	}
	observability.IncQueueConsumed()
	return nil
}

// Close shuts the channel and connection down.
func (c *Consumer) Close() error {
	if c.ch != nil {
		_ = c.ch.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
