package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/xavierca1/prospect-crm/internal/entity"
)

// ActivityEvent is the message body published for every audit entry.
type ActivityEvent struct {
	ProspectID   string    `json:"prospect_id"`
	ActivityType string    `json:"activity_type"`
	Description  string    `json:"description"`
	Stage        *int      `json:"stage,omitempty"`
	CreatedBy    string    `json:"created_by"`
	OccurredAt   time.Time `json:"occurred_at"`
}

func NewActivityEvent(a entity.ProspectActivity, at time.Time) ActivityEvent {
	return ActivityEvent{
		ProspectID:   a.ProspectID,
		ActivityType: a.ActivityType,
		Description:  a.Description,
		Stage:        a.Stage,
		CreatedBy:    a.CreatedBy,
		OccurredAt:   at,
	}
}

func (e ActivityEvent) Activity() entity.ProspectActivity {
	return entity.ProspectActivity{
		ProspectID:   e.ProspectID,
		ActivityType: e.ActivityType,
		Description:  e.Description,
		Stage:        e.Stage,
		CreatedBy:    e.CreatedBy,
		CreatedAt:    e.OccurredAt,
	}
}

// Publisher is satisfied by *amqp.Channel.
type Publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// ActivityProducer records activities by publishing them to the prospects
// exchange. It implements usecase.AuditLog.
type ActivityProducer struct {
	Ch  Publisher
	Now func() time.Time
}

func NewProducer(ch Publisher) *ActivityProducer {
	return &ActivityProducer{Ch: ch, Now: time.Now}
}

func (p *ActivityProducer) Record(ctx context.Context, activity entity.ProspectActivity) error {
	body, err := json.Marshal(NewActivityEvent(activity, p.Now()))
	if err != nil {
		return fmt.Errorf("failed to encode activity event: %w", err)
	}

	err = p.Ch.PublishWithContext(ctx,
		ExchangeName,
		RoutingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Type:         activity.ActivityType,
			Timestamp:    p.Now(),
			Body:         body,
			DeliveryMode: amqp.Persistent,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish activity event: %w", err)
	}
	return nil
}
