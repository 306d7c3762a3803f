// Package events publishes order lifecycle events for downstream
// consumers (fulfilment, mail, analytics).
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/thalesgaldino/silvershop-api/internal/domain"
)

type OrderPlaced struct {
	OrderID     int64        `json:"order_id"`
	SessionID   string       `json:"session_id"`
	Email       string       `json:"email"`
	TotalAmount string       `json:"total_amount"`
	Items       []PlacedItem `json:"items"`
	PlacedAt    time.Time    `json:"placed_at"`
}

type PlacedItem struct {
	ProductID   int64  `json:"product_id"`
	VariationID int64  `json:"variation_id,omitempty"`
	Title       string `json:"title"`
	Quantity    int    `json:"quantity"`
	UnitPrice   string `json:"unit_price"`
}

// NewOrderPlaced snapshots a placed order into its event payload.
func NewOrderPlaced(o *domain.Order, placedAt time.Time) OrderPlaced {
	items := make([]PlacedItem, len(o.Items))
	for i, li := range o.Items {
		items[i] = PlacedItem{
			ProductID:   li.ProductID,
			VariationID: li.VariationID,
			Title:       li.Title,
			Quantity:    li.Quantity,
			UnitPrice:   li.UnitPrice.StringFixed(2),
		}
	}
	return OrderPlaced{
		OrderID:     o.ID,
		SessionID:   o.SessionID,
		Email:       o.Buyer.Email,
		TotalAmount: o.Total().StringFixed(2),
		Items:       items,
		PlacedAt:    placedAt,
	}
}

type Publisher interface {
	OrderPlaced(ctx context.Context, event OrderPlaced) error
	Close() error
}

type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    topic,
			Balancer: &kafka.LeastBytes{},
		},
	}
}

func (p *KafkaPublisher) OrderPlaced(ctx context.Context, event OrderPlaced) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal order placed event: %w", err)
	}
	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.SessionID),
		Value: payload,
	})
	if err != nil {
		return fmt.Errorf("publish order placed event: %w", err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// Noop drops events; used in tests and when no broker is configured.
type Noop struct{}

func (Noop) OrderPlaced(context.Context, OrderPlaced) error { return nil }
func (Noop) Close() error                                   { return nil }
