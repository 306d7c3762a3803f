// Package checkout extends the cart façade with the two-phase order
// submission flow: collect buyer fields, pick the payment path, place
// the order.
package checkout

import (
	"context"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/thalesgaldino/silvershop-api/internal/cart"
	"github.com/thalesgaldino/silvershop-api/internal/domain"
	"github.com/thalesgaldino/silvershop-api/internal/events"
)

const (
	msgCartNotFound       = "Cart not found"
	msgPaymentUnavailable = "Payment not available at the moment. Please try again later"
	msgOrderSent          = "Order sent"
	msgOrderFailed        = "Order could not be placed"
	msgPaymentFirstTodo   = "Pay-before-place checkout is not implemented"
)

// Gateway describes the selected payment gateway's capability flags.
// Offsite gateways redirect the buyer; manual gateways settle out of
// band. Either lets order submission proceed without on-site card data.
type Gateway struct {
	Name    string
	Offsite bool
	Manual  bool
}

// GatewaySelector resolves the gateway the session's order would pay
// through.
type GatewaySelector interface {
	Selected(ctx context.Context, sessionID string) (Gateway, error)
}

// StaticGateway always selects the same gateway; checkout configuration
// in this deployment is global, not per-order.
type StaticGateway struct {
	Gateway Gateway
}

func (s StaticGateway) Selected(context.Context, string) (Gateway, error) {
	return s.Gateway, nil
}

type Config struct {
	// PlaceBeforePayment places the order before any payment step runs.
	PlaceBeforePayment bool
	// ComponentPaymentData marks that a checkout component collects
	// payment data itself, which also unlocks submission.
	ComponentPaymentData bool
}

// SubmitRequest carries the buyer fields, and optionally a cart to
// replay before submitting (guest flows post the whole cart along with
// the order).
type SubmitRequest struct {
	FirstName string           `json:"firstname"`
	Surname   string           `json:"surname"`
	Email     string           `json:"email"`
	Notes     string           `json:"notes"`
	DataCart  []cart.BatchEntry `json:"datacart,omitempty"`
}

type Service struct {
	engine    cart.OrderEngine
	gateways  GatewaySelector
	cfg       Config
	publisher events.Publisher
	breaker   *gobreaker.CircuitBreaker[*domain.Order]
	log       *slog.Logger
	now       func() time.Time
}

func New(engine cart.OrderEngine, gateways GatewaySelector, cfg Config, publisher events.Publisher, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		engine:    engine,
		gateways:  gateways,
		cfg:       cfg,
		publisher: publisher,
		breaker: gobreaker.NewCircuitBreaker[*domain.Order](gobreaker.Settings{
			Name:    "place-order",
			Timeout: 30 * time.Second,
		}),
		log: log,
		now: time.Now,
	}
}

// SendOrder is phase one: replay an optional posted cart, require a
// non-empty order, and check the gateway can actually take this order
// before handing over to SubmitPayment.
func (s *Service) SendOrder(ctx context.Context, c *cart.Service, req SubmitRequest) *cart.Envelope {
	if len(req.DataCart) > 0 {
		// Replay failures surface per item on the submit outcome; the
		// order check below catches a fully failed replay.
		c.AddItems(ctx, req.DataCart)
	}

	order, err := s.engine.Current(ctx, c.SessionID())
	if err != nil {
		s.log.ErrorContext(ctx, "checkout fault", "operation", "sendOrder", "error", err)
		return cart.Fail(cart.OperationWithCode(500, msgOrderFailed))
	}
	if order == nil || order.ItemCount() == 0 {
		return cart.Fail(cart.NotFound(msgCartNotFound))
	}

	gateway, err := s.gateways.Selected(ctx, c.SessionID())
	if err != nil {
		s.log.ErrorContext(ctx, "checkout fault", "operation", "sendOrder", "error", err)
		return cart.Fail(cart.OperationWithCode(500, msgPaymentUnavailable))
	}
	if !gateway.Offsite && !gateway.Manual && !s.cfg.ComponentPaymentData {
		return cart.Fail(cart.OperationWithCode(500, msgPaymentUnavailable))
	}

	return s.SubmitPayment(ctx, c, req)
}

// SubmitPayment is phase two: write buyer fields, recalculate, and —
// when configured to place before payment — place the order and emit the
// order-placed event. The pay-first path has no implementation and must
// say so instead of silently succeeding.
func (s *Service) SubmitPayment(ctx context.Context, c *cart.Service, req SubmitRequest) *cart.Envelope {
	sessionID := c.SessionID()

	err := s.engine.SetBuyer(ctx, sessionID, domain.Buyer{
		FirstName: req.FirstName,
		Surname:   req.Surname,
		Email:     req.Email,
		Notes:     req.Notes,
	})
	if err != nil {
		s.log.ErrorContext(ctx, "checkout fault", "operation", "submitPayment", "error", err)
		return cart.Fail(cart.OperationWithCode(500, msgOrderFailed))
	}

	// Final recalculation before anything financial happens.
	if err := s.engine.Recalculate(ctx, sessionID); err != nil {
		s.log.ErrorContext(ctx, "checkout fault", "operation", "submitPayment", "error", err)
		return cart.Fail(cart.OperationWithCode(500, msgOrderFailed))
	}

	if !s.cfg.PlaceBeforePayment {
		return cart.Fail(cart.NotImplemented(msgPaymentFirstTodo))
	}

	placed, err := s.breaker.Execute(func() (*domain.Order, error) {
		return s.engine.PlaceOrder(ctx, sessionID)
	})
	if err != nil {
		if rej, ok := cart.Rejected(err); ok {
			return cart.Fail(cart.OperationWithCode(500, rej.Reason))
		}
		s.log.ErrorContext(ctx, "place order failed", "session_id", sessionID, "error", err)
		return cart.Fail(cart.OperationWithCode(500, msgOrderFailed))
	}

	if err := s.publisher.OrderPlaced(ctx, events.NewOrderPlaced(placed, s.now())); err != nil {
		// The order is placed; a lost event must not fail the checkout.
		s.log.ErrorContext(ctx, "order placed event publish failed", "order_id", placed.ID, "error", err)
	}

	return cart.Success(msgOrderSent, cart.RegionCart, cart.RegionSummary, cart.RegionShippingMethod).
		Updated().
		WithTotalItems(0)
}
