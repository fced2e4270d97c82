package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/angelmondragon/mycms-backend/internal/money"
	"github.com/angelmondragon/mycms-backend/internal/orders"
	"github.com/angelmondragon/mycms-backend/pkg/enums"
)

type Type string

const (
	OrderCreated   Type = "order.created"
	OrderPaid      Type = "order.paid"
	OrderCancelled Type = "order.cancelled"
)

const defaultPublishTimeout = 5 * time.Second

// OrderEvent is the JSON envelope published for an order lifecycle change.
type OrderEvent struct {
	EventID       string              `json:"event_id"`
	EventType     Type                `json:"event_type"`
	Tenant        string              `json:"tenant"`
	OrderID       string              `json:"order_id"`
	PaymentStatus enums.PaymentStatus `json:"payment_status"`
	Amount        string              `json:"amount"`
	TransactionID string              `json:"transaction_id,omitempty"`
	OccurredAt    time.Time           `json:"occurred_at"`
}

// NewOrderEvent builds an event for order owned by tenant.
func NewOrderEvent(eventType Type, tenant string, order orders.Order) OrderEvent {
	return OrderEvent{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		Tenant:        tenant,
		OrderID:       order.OrderID,
		PaymentStatus: order.PaymentStatus,
		Amount:        money.FormatAmount(order.Amount),
		TransactionID: order.PayPalTxnID,
		OccurredAt:    time.Now().UTC(),
	}
}

// Publisher emits order events. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, event OrderEvent) error
}

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(context.Context, OrderEvent) error { return nil }

type topicPublisher interface {
	Publish(context.Context, *gcppubsub.Message) publishResult
	ResumePublish(orderingKey string)
}

type publishResult interface {
	Get(context.Context) (string, error)
}

// PubSubPublisher publishes events to a Pub/Sub topic.
type PubSubPublisher struct {
	topic   topicPublisher
	timeout time.Duration
}

func NewPubSubPublisher(p *gcppubsub.Publisher) (*PubSubPublisher, error) {
	if p == nil {
		return nil, errors.New("pubsub publisher is required")
	}
	return &PubSubPublisher{topic: &gcpPublisher{Publisher: p}, timeout: defaultPublishTimeout}, nil
}

func (p *PubSubPublisher) Publish(ctx context.Context, event OrderEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal order event: %w", err)
	}
	// Events for one tenant keep their order; a failed publish pauses the
	// key until ResumePublish.
	msg := &gcppubsub.Message{
		Data:        data,
		OrderingKey: event.Tenant,
		Attributes: map[string]string{
			"event_id":   event.EventID,
			"event_type": string(event.EventType),
			"tenant":     event.Tenant,
			"order_id":   event.OrderID,
		},
	}
	publishCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	result := p.topic.Publish(publishCtx, msg)
	if result == nil {
		return errors.New("publisher returned nil result")
	}
	if _, err := result.Get(publishCtx); err != nil {
		p.topic.ResumePublish(msg.OrderingKey)
		return fmt.Errorf("publish %s: %w", event.EventType, err)
	}
	return nil
}

type gcpPublisher struct {
	*gcppubsub.Publisher
}

func (p *gcpPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	if p == nil || p.Publisher == nil {
		return nil
	}
	return p.Publisher.Publish(ctx, msg)
}

func (p *gcpPublisher) ResumePublish(orderingKey string) {
	if p == nil || p.Publisher == nil {
		return
	}
	p.Publisher.ResumePublish(orderingKey)
}
