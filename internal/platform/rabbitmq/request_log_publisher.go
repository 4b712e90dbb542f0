package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"lsm-digest/internal/model"
)

// RequestLogPublisher queues agent reply audit records for the request-log worker.
type RequestLogPublisher struct {
	conn      *amqp.Connection
	queueName string
}

func NewRequestLogPublisher(conn *amqp.Connection, queueName string) *RequestLogPublisher {
	return &RequestLogPublisher{
		conn:      conn,
		queueName: queueName,
	}
}

func (p *RequestLogPublisher) Publish(ctx context.Context, entry model.RequestLog) error {
	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("open rabbitmq channel failed: %w", err)
	}
	defer ch.Close()

	if err := DeclareQueue(ch, p.queueName); err != nil {
		return err
	}

	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal request log payload failed: %w", err)
	}

	if err := ch.PublishWithContext(
		ctx,
		"",
		p.queueName,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         payload,
			DeliveryMode: amqp.Persistent,
		},
	); err != nil {
		return fmt.Errorf("publish request log failed: %w", err)
	}
	return nil
}
