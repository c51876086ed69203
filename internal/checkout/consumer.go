// Package checkout listens for completed checkouts and empties the
// corresponding cart. Checkout itself is an external collaborator; the
// contract here is only "cart is cleared on success".
package checkout

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// CartClearer is what the consumer needs from the cart layer.
type CartClearer interface {
	ClearCart(ctx context.Context, ownerID string, authenticated bool) error
}

type completedEvent struct {
	OwnerID       string `json:"owner_id"`
	OrderID       string `json:"order_id"`
	Authenticated bool   `json:"authenticated"`
}

type Consumer struct {
	carts  CartClearer
	reader *kafka.Reader
	log    *zap.Logger
}

func NewConsumer(carts CartClearer, log *zap.Logger, brokers ...string) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    "checkout-completed",
		GroupID:  "storefront-cart-clearer",
		MaxBytes: 10e6, // 10MB
	})
	return &Consumer{carts: carts, reader: reader, log: log}
}

func (c *Consumer) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		m, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() == nil {
				c.log.Warn("reading checkout event failed", zap.Error(err))
			}
			continue
		}
		c.handle(ctx, m.Value)
	}
}

func (c *Consumer) Close() {
	if err := c.reader.Close(); err != nil {
		c.log.Warn("closing checkout reader failed", zap.Error(err))
	}
}

// handle processes one checkout event. Malformed events are dropped with a
// log line; a clear failure is logged and the event is not retried, the
// next mutation persist will converge the stores anyway.
func (c *Consumer) handle(ctx context.Context, payload []byte) {
	var event completedEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		c.log.Warn("malformed checkout event", zap.Error(err))
		return
	}
	if event.OwnerID == "" {
		c.log.Warn("checkout event missing owner_id", zap.String("order_id", event.OrderID))
		return
	}

	if err := c.carts.ClearCart(ctx, event.OwnerID, event.Authenticated); err != nil {
		c.log.Warn("clearing cart after checkout failed",
			zap.String("owner", event.OwnerID),
			zap.String("order_id", event.OrderID),
			zap.Error(err))
		return
	}
}
