package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/xavierca1/prospect-crm/internal/entity"
)

// Consumer is the subset of *amqp.Channel the worker needs.
type Consumer interface {
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
}

// Worker drains the activities queue into the activities table.
type Worker struct {
	Channel Consumer
	Store   entity.ActivityGateway
	Logger  *zap.Logger
}

func NewWorker(ch Consumer, store entity.ActivityGateway, logger *zap.Logger) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{Channel: ch, Store: store, Logger: logger}
}

// Start consumes until ctx is done or the channel closes.
func (w *Worker) Start(ctx context.Context, queueName string) error {
	msgs, err := w.Channel.Consume(
		queueName,
		"",    // consumer
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	w.Logger.Info("activity worker waiting", zap.String("queue", queueName))

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return errors.New("delivery channel closed")
			}
			w.handle(ctx, d)
		}
	}
}

func (w *Worker) handle(ctx context.Context, d amqp.Delivery) {
	var event ActivityEvent
	if err := json.Unmarshal(d.Body, &event); err != nil {
		w.Logger.Error("malformed activity event", zap.Error(err))
		// no requeue: poison messages go to the DLQ
		_ = d.Nack(false, false)
		return
	}

	if err := w.Store.Insert(ctx, event.Activity()); err != nil {
		w.Logger.Error("failed to store activity",
			zap.String("prospect_id", event.ProspectID),
			zap.String("activity_type", event.ActivityType),
			zap.Error(err),
		)
		// an unknown prospect never becomes valid
		requeue := !errors.Is(err, entity.ErrProspectNotFound) && !d.Redelivered
		_ = d.Nack(false, requeue)
		return
	}

	_ = d.Ack(false)
}
