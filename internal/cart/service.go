package cart

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/thalesgaldino/silvershop-api/internal/catalog"
	"github.com/thalesgaldino/silvershop-api/internal/domain"
	"github.com/thalesgaldino/silvershop-api/internal/lists"
	"github.com/thalesgaldino/silvershop-api/internal/session"
	"github.com/thalesgaldino/silvershop-api/internal/stale"
)

// Client-facing messages. The engine's own rejection reasons pass
// through verbatim; engine faults never do.
const (
	msgItemAdded        = "Item added successfully."
	msgItemsAdded       = "Items added successfully."
	msgItemsPartial     = "Some items could not be added"
	msgMalformedID      = "Missing or malformed ID"
	msgProductNotFound  = "Product does not exist"
	msgCartNotFound     = "Cart not found"
	msgCartFault        = "Cart could not be updated"
	msgBadAttributes    = "Missing [ProductAttributes] parameter in correct format"
	msgNoVariation      = "That variation is not available"
	msgCouponMissing    = "Missing coupon code"
	msgCouponNotFound   = "Coupon could not be found"
	msgCouponInvalid    = "Could not apply coupon."
	msgCouponApplied    = "Coupon applied."
	msgCartCleared      = "Cart cleared"
	msgCartAlreadyEmpty = "Cart already empty"
	msgShippingUpdated  = "Cart shipping updated"
	msgShippingGet      = "Get current shipping method"
	msgNoShippingRate   = "No shipping rate for that zone"
	msgQuantitySet      = "Quantity updated"
	msgLineNotFound     = "Cart item not found"
)

// Deps are the collaborators a façade instance is built over. All of
// them are ports; the façade owns no persistence of its own.
type Deps struct {
	Engine   OrderEngine
	Catalog  catalog.Catalog
	Coupons  catalog.Coupons
	Rates    catalog.ShippingRates
	Sessions session.Store
	Lists    *lists.Reconciler
	Stale    *stale.Service
	Hooks    *Hooks
	Log      *slog.Logger
	Currency string
	Now      func() time.Time
}

// Service is the cart mutation façade. One instance is constructed per
// request, bound to one session's order; the staleness hash is
// materialized at construction and refreshed after each mutation so the
// dispatcher persists a token that reflects the post-mutation state.
type Service struct {
	deps      Deps
	sessionID string
	hash      string
}

func New(ctx context.Context, deps Deps, sessionID string) (*Service, error) {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Log == nil {
		deps.Log = slog.Default()
	}
	s := &Service{deps: deps, sessionID: sessionID}
	order, err := deps.Engine.Current(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load current order: %w", err)
	}
	s.hash = deps.Stale.Compute(order)
	return s, nil
}

// Hash returns the materialized staleness token for this instance.
func (s *Service) Hash() string { return s.hash }

// SessionID returns the session this façade is bound to.
func (s *Service) SessionID() string { return s.sessionID }

// Get builds the full cart view: order lines, table-visible modifiers,
// totals and the three list summaries. Reading the lists prunes their
// dead entries (see lists.Reconciler).
func (s *Service) Get(ctx context.Context) *Envelope {
	order, err := s.deps.Engine.Current(ctx, s.sessionID)
	if err != nil {
		return s.fault(ctx, "get", err)
	}
	view := newView(order, s.hash, s.deps.Currency)

	for kind, dst := range map[lists.Kind]*ListView{
		lists.KindWish:    &view.WishList,
		lists.KindCompare: &view.CompareList,
		lists.KindEnquiry: &view.EnquiryList,
	} {
		res, err := s.deps.Lists.Reconcile(ctx, s.sessionID, kind)
		if err != nil {
			return s.fault(ctx, "get", err)
		}
		dst.Items = res.IDs
		dst.Total = res.Count
	}

	total := 0
	if order != nil {
		total = order.ItemCount()
	}
	return Success("", RegionCart, RegionSummary).WithCart(view).WithTotalItems(total).WithHash(s.hash)
}

// AddItem validates and resolves a plain product, then delegates to the
// engine. Quantity is clamped to at least 1.
func (s *Service) AddItem(ctx context.Context, rawID string, quantity int) *Envelope {
	input := map[string]any{"id": rawID, "quantity": quantity}
	s.deps.Hooks.emit(ctx, HookEvent{Operation: "addItem", Phase: HookBefore, Input: input})

	env := s.addItem(ctx, rawID, quantity)

	s.deps.Hooks.emit(ctx, HookEvent{Operation: "addItem", Phase: HookAfter, Input: input, Outcome: env})
	return env
}

func (s *Service) addItem(ctx context.Context, rawID string, quantity int) *Envelope {
	id, ok := parseID(rawID)
	if !ok {
		return Fail(Validation(msgMalformedID))
	}

	product, err := s.deps.Catalog.Product(ctx, id)
	if errors.Is(err, catalog.ErrNotFound) {
		return Fail(NotFound(msgProductNotFound))
	}
	if err != nil {
		return s.fault(ctx, "addItem", err)
	}

	return s.addBuyable(ctx, "addItem", product, quantity)
}

// AddVariation is the variant-selecting form of AddItem: attributes must
// be a non-empty mapping resolving to a specific variation.
func (s *Service) AddVariation(ctx context.Context, rawID string, quantity int, attrs map[string]string) *Envelope {
	input := map[string]any{"id": rawID, "quantity": quantity, "attributes": attrs}
	s.deps.Hooks.emit(ctx, HookEvent{Operation: "addVariation", Phase: HookBefore, Input: input})

	env := s.addVariation(ctx, rawID, quantity, attrs)

	s.deps.Hooks.emit(ctx, HookEvent{Operation: "addVariation", Phase: HookAfter, Input: input, Outcome: env})
	return env
}

func (s *Service) addVariation(ctx context.Context, rawID string, quantity int, attrs map[string]string) *Envelope {
	id, ok := parseID(rawID)
	if !ok {
		return Fail(Validation(msgMalformedID))
	}
	if len(attrs) == 0 {
		return Fail(Validation(msgBadAttributes))
	}

	variation, err := s.deps.Catalog.VariationByAttributes(ctx, id, attrs)
	if errors.Is(err, catalog.ErrNotFound) {
		return Fail(Operation(msgNoVariation))
	}
	if err != nil {
		return s.fault(ctx, "addVariation", err)
	}

	return s.addBuyable(ctx, "addVariation", variation, quantity)
}

func (s *Service) addBuyable(ctx context.Context, op string, item Buyable, quantity int) *Envelope {
	if quantity <= 0 {
		quantity = 1
	}
	if err := s.ensureOrder(ctx); err != nil {
		return Fail(err)
	}

	if _, err := s.deps.Engine.AddLine(ctx, s.sessionID, item, quantity); err != nil {
		if rej, ok := Rejected(err); ok {
			return Fail(Operation(rej.Reason))
		}
		return s.fault(ctx, op, err)
	}

	order, err := s.deps.Engine.Current(ctx, s.sessionID)
	if err != nil {
		return s.fault(ctx, op, err)
	}
	s.refreshHash(order)

	msg := msgItemAdded
	if quantity != 1 {
		msg = msgItemsAdded
	}
	return Success(msg, RegionCart, RegionSummary, RegionShippingMethod).
		Updated().
		WithTotalItems(order.ItemCount())
}

// BatchEntry is one element of a batch add request.
type BatchEntry struct {
	ID       int64 `json:"id"`
	Quantity int   `json:"quantity"`
}

// AddItems applies each entry sequentially against the same order and
// reports one result per entry. There is no rollback: entries committed
// before a failing one stay committed, the overall status turns error
// and the failing entries are identified individually.
func (s *Service) AddItems(ctx context.Context, entries []BatchEntry) *Envelope {
	input := map[string]any{"entries": entries}
	s.deps.Hooks.emit(ctx, HookEvent{Operation: "addItems", Phase: HookBefore, Input: input})

	env := s.addItems(ctx, entries)

	s.deps.Hooks.emit(ctx, HookEvent{Operation: "addItems", Phase: HookAfter, Input: input, Outcome: env})
	return env
}

func (s *Service) addItems(ctx context.Context, entries []BatchEntry) *Envelope {
	if len(entries) == 0 {
		return Fail(Validation(msgMalformedID))
	}
	if err := s.ensureOrder(ctx); err != nil {
		return Fail(err)
	}

	results := make([]BatchResult, 0, len(entries))
	committed := 0
	for _, entry := range entries {
		results = append(results, s.addBatchEntry(ctx, entry, &committed))
	}

	order, err := s.deps.Engine.Current(ctx, s.sessionID)
	if err != nil {
		return s.fault(ctx, "addItems", err)
	}
	if committed > 0 {
		s.refreshHash(order)
	}

	if committed == len(entries) {
		return Success(msgItemsAdded, RegionCart, RegionSummary, RegionShippingMethod).
			Updated().
			WithTotalItems(order.ItemCount()).
			WithResults(results)
	}

	env := Fail(Operation(msgItemsPartial)).WithResults(results)
	env.Refresh = []Region{RegionCart, RegionSummary, RegionShippingMethod}
	if committed > 0 {
		env.Updated()
	}
	return env
}

func (s *Service) addBatchEntry(ctx context.Context, entry BatchEntry, committed *int) BatchResult {
	if entry.ID <= 0 {
		return BatchResult{ID: entry.ID, Status: StatusError, Message: msgMalformedID}
	}
	product, err := s.deps.Catalog.Product(ctx, entry.ID)
	if errors.Is(err, catalog.ErrNotFound) {
		return BatchResult{ID: entry.ID, Status: StatusError, Message: msgProductNotFound}
	}
	if err != nil {
		s.logFault(ctx, "addItems", err)
		return BatchResult{ID: entry.ID, Status: StatusError, Message: msgCartFault}
	}

	quantity := entry.Quantity
	if quantity <= 0 {
		quantity = 1
	}
	if _, err := s.deps.Engine.AddLine(ctx, s.sessionID, product, quantity); err != nil {
		if rej, ok := Rejected(err); ok {
			return BatchResult{ID: entry.ID, Status: StatusError, Message: rej.Reason}
		}
		s.logFault(ctx, "addItems", err)
		return BatchResult{ID: entry.ID, Status: StatusError, Message: msgCartFault}
	}
	*committed++
	return BatchResult{ID: entry.ID, Status: StatusSuccess, Message: msgItemAdded}
}

// ApplyCoupon canonicalizes the code, validates the coupon against the
// current order and stores the active code in the session.
func (s *Service) ApplyCoupon(ctx context.Context, code string) *Envelope {
	input := map[string]any{"code": code}
	s.deps.Hooks.emit(ctx, HookEvent{Operation: "applyCoupon", Phase: HookBefore, Input: input})

	env := s.applyCoupon(ctx, code)

	s.deps.Hooks.emit(ctx, HookEvent{Operation: "applyCoupon", Phase: HookAfter, Input: input, Outcome: env})
	return env
}

func (s *Service) applyCoupon(ctx context.Context, code string) *Envelope {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return Fail(Validation(msgCouponMissing))
	}

	coupon, err := s.deps.Coupons.ByCode(ctx, code)
	if errors.Is(err, catalog.ErrNotFound) {
		return Fail(NotFound(msgCouponNotFound))
	}
	if err != nil {
		return s.fault(ctx, "applyCoupon", err)
	}

	order, err := s.deps.Engine.Current(ctx, s.sessionID)
	if err != nil {
		return s.fault(ctx, "applyCoupon", err)
	}
	if !coupon.ValidFor(order, s.deps.Now()) {
		return Fail(Operation(msgCouponInvalid))
	}

	if err := s.deps.Sessions.Set(ctx, s.sessionID, session.KeyCouponCode, code); err != nil {
		return s.fault(ctx, "applyCoupon", err)
	}
	if err := s.deps.Engine.ApplyCoupon(ctx, s.sessionID, coupon); err != nil {
		return s.fault(ctx, "applyCoupon", err)
	}

	order, err = s.deps.Engine.Current(ctx, s.sessionID)
	if err != nil {
		return s.fault(ctx, "applyCoupon", err)
	}
	s.refreshHash(order)

	return Success(msgCouponApplied, RegionCart, RegionSummary).Updated()
}

// Clear removes every line item. Clearing an already-empty cart is a
// soft failure: status error, code 200, and repeat calls keep it empty.
func (s *Service) Clear(ctx context.Context) *Envelope {
	s.deps.Hooks.emit(ctx, HookEvent{Operation: "clear", Phase: HookBefore})

	env := s.clear(ctx)

	s.deps.Hooks.emit(ctx, HookEvent{Operation: "clear", Phase: HookAfter, Outcome: env})
	return env
}

func (s *Service) clear(ctx context.Context) *Envelope {
	order, err := s.deps.Engine.Current(ctx, s.sessionID)
	if err != nil {
		return s.fault(ctx, "clear", err)
	}
	if order == nil || len(order.Items) == 0 {
		return Fail(NoOp(msgCartAlreadyEmpty))
	}

	if err := s.deps.Engine.ClearLines(ctx, s.sessionID); err != nil {
		return s.fault(ctx, "clear", err)
	}
	order, err = s.deps.Engine.Current(ctx, s.sessionID)
	if err != nil {
		return s.fault(ctx, "clear", err)
	}
	s.refreshHash(order)

	return Success(msgCartCleared, RegionCart, RegionSummary).Updated()
}

// UpdateShipping resolves the first rate bound to the zone and sets the
// order's shipping method. A zone with no rate is a controlled 404.
func (s *Service) UpdateShipping(ctx context.Context, rawZoneID string) *Envelope {
	input := map[string]any{"zone_id": rawZoneID}
	s.deps.Hooks.emit(ctx, HookEvent{Operation: "updateShipping", Phase: HookBefore, Input: input})

	env := s.updateShipping(ctx, rawZoneID)

	s.deps.Hooks.emit(ctx, HookEvent{Operation: "updateShipping", Phase: HookAfter, Input: input, Outcome: env})
	return env
}

func (s *Service) updateShipping(ctx context.Context, rawZoneID string) *Envelope {
	zoneID, ok := parseID(rawZoneID)
	if !ok {
		return Fail(Validation(msgMalformedID))
	}

	rate, err := s.deps.Rates.FirstForZone(ctx, zoneID)
	if errors.Is(err, catalog.ErrNotFound) {
		return Fail(NotFound(msgNoShippingRate))
	}
	if err != nil {
		return s.fault(ctx, "updateShipping", err)
	}

	if err := s.ensureOrder(ctx); err != nil {
		return Fail(err)
	}
	if err := s.deps.Engine.SetShippingMethod(ctx, s.sessionID, rate); err != nil {
		return s.fault(ctx, "updateShipping", err)
	}
	order, err := s.deps.Engine.Current(ctx, s.sessionID)
	if err != nil {
		return s.fault(ctx, "updateShipping", err)
	}
	s.refreshHash(order)

	return Success(msgShippingUpdated, RegionCart, RegionSummary, RegionShipping).
		Updated().
		WithShippingID(rate.MethodID)
}

// GetShipping is read-only; it reports the current shipping method
// without touching the order.
func (s *Service) GetShipping(ctx context.Context) *Envelope {
	env := Success(msgShippingGet, RegionCart, RegionSummary, RegionShipping)
	order, err := s.deps.Engine.Current(ctx, s.sessionID)
	if err != nil {
		return s.fault(ctx, "getShipping", err)
	}
	if order != nil && order.Shipping != nil {
		env.WithShippingID(order.Shipping.MethodID)
	}
	return env
}

// SetItemQuantity sets an existing line to an absolute quantity;
// zero removes the line.
func (s *Service) SetItemQuantity(ctx context.Context, rawLineID string, quantity int) *Envelope {
	lineID, ok := parseID(rawLineID)
	if !ok {
		return Fail(Validation(msgMalformedID))
	}
	if quantity < 0 {
		return Fail(Validation(msgMalformedID))
	}
	_, err := s.deps.Engine.SetLineQuantity(ctx, s.sessionID, lineID, quantity)
	return s.finishLineOp(ctx, "setQuantity", err)
}

// AdjustItem changes an existing line's quantity by delta (negative to
// remove units); a line dropping to zero or below is removed.
func (s *Service) AdjustItem(ctx context.Context, rawLineID string, delta int) *Envelope {
	lineID, ok := parseID(rawLineID)
	if !ok {
		return Fail(Validation(msgMalformedID))
	}
	_, err := s.deps.Engine.AdjustLine(ctx, s.sessionID, lineID, delta)
	return s.finishLineOp(ctx, "adjustItem", err)
}

func (s *Service) finishLineOp(ctx context.Context, op string, err error) *Envelope {
	if errors.Is(err, ErrLineNotFound) {
		return Fail(NotFound(msgLineNotFound))
	}
	if err != nil {
		if rej, ok := Rejected(err); ok {
			return Fail(Operation(rej.Reason))
		}
		return s.fault(ctx, op, err)
	}
	order, err := s.deps.Engine.Current(ctx, s.sessionID)
	if err != nil {
		return s.fault(ctx, op, err)
	}
	s.refreshHash(order)

	total := 0
	if order != nil {
		total = order.ItemCount()
	}
	return Success(msgQuantitySet, RegionCart, RegionSummary, RegionShippingMethod).
		Updated().
		WithTotalItems(total)
}

func (s *Service) ensureOrder(ctx context.Context) error {
	order, err := s.deps.Engine.Current(ctx, s.sessionID)
	if err != nil {
		s.logFault(ctx, "ensureOrder", err)
		return NoCart(msgCartNotFound)
	}
	if order != nil {
		return nil
	}
	if _, err := s.deps.Engine.Create(ctx, s.sessionID); err != nil {
		s.logFault(ctx, "ensureOrder", err)
		return NoCart(msgCartNotFound)
	}
	return nil
}

func (s *Service) refreshHash(order *domain.Order) {
	s.hash = s.deps.Stale.Compute(order)
}

// fault converts an unexpected downstream error into a sanitized 500
// envelope. The raw error goes to the log, never to the client.
func (s *Service) fault(ctx context.Context, op string, err error) *Envelope {
	s.logFault(ctx, op, err)
	return Fail(OperationWithCode(500, msgCartFault))
}

func (s *Service) logFault(ctx context.Context, op string, err error) {
	s.deps.Log.ErrorContext(ctx, "cart operation fault",
		"operation", op,
		"session_id", s.sessionID,
		"error", err)
}

// parseID accepts only well-formed positive identifiers.
func parseID(raw string) (int64, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
