package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"lsm-digest/internal/logger"
	"lsm-digest/internal/model"
	"lsm-digest/internal/platform/rabbitmq"
)

type RequestLogStore interface {
	Insert(ctx context.Context, entry *model.RequestLog) error
}

// RequestLogWorker drains the request-log queue into the audit collection.
type RequestLogWorker struct {
	conn      *amqp.Connection
	store     RequestLogStore
	queueName string
	log       logger.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewRequestLogWorker(conn *amqp.Connection, store RequestLogStore, queueName string, log logger.Logger) *RequestLogWorker {
	if log == nil {
		log = logger.NewNop()
	}
	return &RequestLogWorker{
		conn:      conn,
		store:     store,
		queueName: queueName,
		log:       log.With(logger.String("queue", queueName)),
	}
}

func (w *RequestLogWorker) Start(ctx context.Context) error {
	if w.cancel != nil {
		return nil
	}

	workerCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	ch, err := w.conn.Channel()
	if err != nil {
		cancel()
		return fmt.Errorf("open worker channel failed: %w", err)
	}
	if err := rabbitmq.DeclareQueue(ch, w.queueName); err != nil {
		_ = ch.Close()
		cancel()
		return err
	}
	if err := ch.Qos(16, 0, false); err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("set worker qos failed: %w", err)
	}

	deliveries, err := ch.Consume(w.queueName, "", false, false, false, false, nil)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("consume queue failed: %w", err)
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer ch.Close()

		for {
			select {
			case <-workerCtx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					w.log.Warn("request log deliveries closed")
					return
				}
				if err := w.persist(workerCtx, d.Body); err != nil {
					w.log.Error("request log dropped", logger.Error(err))
					_ = d.Nack(false, false)
					continue
				}
				_ = d.Ack(false)
			}
		}
	}()

	w.log.Info("request log worker started")
	return nil
}

func (w *RequestLogWorker) persist(ctx context.Context, body []byte) error {
	var entry model.RequestLog
	if err := json.Unmarshal(body, &entry); err != nil {
		return fmt.Errorf("decode request log failed: %w", err)
	}
	if entry.Kind == "" {
		return fmt.Errorf("decode request log failed: missing kind")
	}
	return w.store.Insert(ctx, &entry)
}

func (w *RequestLogWorker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}
