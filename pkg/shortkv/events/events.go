// Package events publishes click events to a message queue for downstream
// analytics. Publishing is best-effort; the redirect path never blocks on it.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

// ClickEvent records one resolution of a short link.
type ClickEvent struct {
	URLKey    string    `json:"urlKey"`
	UserAgent string    `json:"userAgent"`
	Timestamp time.Time `json:"timestamp"`
}

// Publisher emits click events.
type Publisher interface {
	PublishClick(ctx context.Context, event ClickEvent) error
	Close() error
}

// AMQPPublisher publishes click events to a durable RabbitMQ queue.
type AMQPPublisher struct {
	conn    *amqp091.Connection
	channel *amqp091.Channel
	queue   string
}

// NewAMQPPublisher connects to RabbitMQ and declares the click queue.
func NewAMQPPublisher(url, queue string) (*AMQPPublisher, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	_, err = ch.QueueDeclare(
		queue,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,   // args
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}
	return &AMQPPublisher{conn: conn, channel: ch, queue: queue}, nil
}

func (p *AMQPPublisher) PublishClick(ctx context.Context, event ClickEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.channel.PublishWithContext(
		ctx,
		"", p.queue, false, false,
		amqp091.Publishing{
			ContentType: "application/json",
			Body:        body,
		},
	)
}

func (p *AMQPPublisher) Close() error {
	if err := p.channel.Close(); err != nil {
		p.conn.Close()
		return err
	}
	return p.conn.Close()
}

// NopPublisher drops events; used when no queue is configured.
type NopPublisher struct{}

func (NopPublisher) PublishClick(ctx context.Context, event ClickEvent) error { return nil }
func (NopPublisher) Close() error                                             { return nil }
