package services

import (
	"encoding/json"
	"time"

	"marketplace/internal/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Routing keys of order events.
const (
	EventOrderCreated       = "order.created"
	EventOrderStatusChanged = "order.status_changed"
)

// EventPublisher delivers order events to a broker.
type EventPublisher interface {
	Publish(routingKey string, body []byte) error
}

// OrderEvent is the message body of every order event.
type OrderEvent struct {
	Type           string             `json:"type"`
	OrderID        string             `json:"order_id"`
	CustomerID     string             `json:"customer_id"`
	Status         models.OrderStatus `json:"status"`
	PreviousStatus models.OrderStatus `json:"previous_status,omitempty"`
	TotalAmount    decimal.Decimal    `json:"total_amount"`
	ItemCount      int                `json:"item_count"`
	OccurredAt     time.Time          `json:"occurred_at"`
}

func newOrderEvent(eventType string, o *models.Order, previous models.OrderStatus) OrderEvent {
	return OrderEvent{
		Type:           eventType,
		OrderID:        o.ID,
		CustomerID:     o.CustomerID,
		Status:         o.Status,
		PreviousStatus: previous,
		TotalAmount:    o.TotalAmount,
		ItemCount:      len(o.Items),
		OccurredAt:     time.Now().UTC(),
	}
}

// publish is best effort: the order is already committed, so a broker
// failure is logged and swallowed.
func publish(publisher EventPublisher, logger *zap.Logger, event OrderEvent) {
	if publisher == nil {
		return
	}
	body, err := json.Marshal(event)
	if err != nil {
		logger.Error("failed to marshal order event", zap.String("order_id", event.OrderID), zap.Error(err))
		return
	}
	if err := publisher.Publish(event.Type, body); err != nil {
		logger.Warn("failed to publish order event",
			zap.String("type", event.Type),
			zap.String("order_id", event.OrderID),
			zap.Error(err))
		return
	}
	logger.Debug("order event published", zap.String("type", event.Type), zap.String("order_id", event.OrderID))
}
