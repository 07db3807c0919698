package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"staff-chat/internal/observability"
)

// DefaultQueue is the outbound message queue name.
const DefaultQueue = "chat.outbound"

// ErrQueueUnavailable reports a failed enqueue. The caller must not present
// the message as sent; the user retries explicitly.
var ErrQueueUnavailable = errors.New("message queue unavailable")

// SendJob is the opaque payload carried between Send and the worker. The body
// is already encrypted when the job is built; the queue never sees plaintext.
type SendJob struct {
	JobID      string    `json:"job_id"`
	RoomID     int       `json:"room_id"`
	SenderID   int       `json:"sender_id"`
	Ciphertext string    `json:"ciphertext"`
	IV         string    `json:"iv"`
	SentAt     time.Time `json:"sent_at"`
}

// Publisher enqueues send jobs for the worker. At-least-once: a redelivered
// job is deduplicated at insert time by its job id.
type Publisher interface {
	PublishSend(ctx context.Context, job SendJob) error
	Close() error
}

// AMQPPublisher publishes send jobs to a durable RabbitMQ queue. Unlike the
// audit event path there is no noop fallback here: dropping a send the user
// believes went out is never acceptable.
type AMQPPublisher struct {
	conn  *amqp.Connection
	ch    *amqp.Channel
	queue string
}

// NewAMQPPublisher connects and declares the durable queue.
func NewAMQPPublisher(amqpURL, queueName string) (*AMQPPublisher, error) {
	if amqpURL == "" {
		return nil, fmt.Errorf("%w: empty amqp url", ErrQueueUnavailable)
	}

	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQueueUnavailable, err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("%w: %v", ErrQueueUnavailable, err)
	}

	if _, err := ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("%w: %v", ErrQueueUnavailable, err)
	}

	return &AMQPPublisher{conn: conn, ch: ch, queue: queueName}, nil
}

// PublishSend enqueues one job. Jobs published sequentially on this channel
// stay in order within the queue.
func (p *AMQPPublisher) PublishSend(ctx context.Context, job SendJob) error {
	body, err := json.Marshal(job)
	if err != nil {
		return err
	}

	err = p.ch.PublishWithContext(ctx, "", p.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    job.JobID,
		Timestamp:    job.SentAt,
		Body:         body,
	})
	if err != nil {
		observability.IncQueueError("publish")
		return fmt.Errorf("%w: %v", ErrQueueUnavailable, err)
	}
	observability.IncQueuePublished()
	return nil
}

func (p *AMQPPublisher) Close() error {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
