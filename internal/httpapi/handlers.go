package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/thalesgaldino/silvershop-api/internal/cart"
	"github.com/thalesgaldino/silvershop-api/internal/catalog"
	"github.com/thalesgaldino/silvershop-api/internal/checkout"
	"github.com/thalesgaldino/silvershop-api/internal/lists"
	"github.com/thalesgaldino/silvershop-api/internal/session"
	"github.com/thalesgaldino/silvershop-api/internal/stale"
)

// Handler is the request dispatcher: it builds one cart façade per
// request bound to the visitor's session, invokes one operation, and
// persists the resulting staleness hash for everything except ping.
type Handler struct {
	deps     cart.Deps
	checkout *checkout.Service
	log      *slog.Logger
}

func NewHandler(deps cart.Deps, co *checkout.Service, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{deps: deps, checkout: co, log: log}
}

func (h *Handler) newCart(r *http.Request) (*cart.Service, error) {
	return cart.New(r.Context(), h.deps, sessionFromContext(r.Context()))
}

// The transport always answers 200; the envelope carries the
// HTTP-analog code in the body, which is the protocol the storefront
// client speaks.
func (h *Handler) respondEnvelope(w http.ResponseWriter, r *http.Request, c *cart.Service, env *cart.Envelope) {
	h.persistHash(r, c)
	respondJSON(w, http.StatusOK, env, h.log)
}

// persistHash writes the façade's post-operation hash against the
// session so later pings compare with a durable value.
func (h *Handler) persistHash(r *http.Request, c *cart.Service) {
	ctx := r.Context()
	if err := h.deps.Sessions.Set(ctx, c.SessionID(), session.KeyCartHash, c.Hash()); err != nil {
		h.log.ErrorContext(ctx, "persist cart hash failed", "session_id", c.SessionID(), "error", err)
	}
}

func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	c, err := h.newCart(r)
	if err != nil {
		h.fault(w, r, err)
		return
	}
	h.respondEnvelope(w, r, c, c.Get(r.Context()))
}

func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	c, err := h.newCart(r)
	if err != nil {
		h.fault(w, r, err)
		return
	}
	quantity, _ := strconv.Atoi(r.URL.Query().Get("quantity"))
	env := c.AddItem(r.Context(), chi.URLParam(r, "id"), quantity)
	h.respondEnvelope(w, r, c, env)
}

type addVariationRequest struct {
	Quantity          int               `json:"quantity"`
	ProductAttributes map[string]string `json:"ProductAttributes"`
}

func (h *Handler) AddVariation(w http.ResponseWriter, r *http.Request) {
	c, err := h.newCart(r)
	if err != nil {
		h.fault(w, r, err)
		return
	}
	var req addVariationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondEnvelope(w, r, c, cart.Fail(cart.Validation("invalid JSON body")))
		return
	}
	env := c.AddVariation(r.Context(), chi.URLParam(r, "id"), req.Quantity, req.ProductAttributes)
	h.respondEnvelope(w, r, c, env)
}

func (h *Handler) AddItems(w http.ResponseWriter, r *http.Request) {
	c, err := h.newCart(r)
	if err != nil {
		h.fault(w, r, err)
		return
	}
	var entries []cart.BatchEntry
	if err := json.NewDecoder(r.Body).Decode(&entries); err != nil {
		h.respondEnvelope(w, r, c, cart.Fail(cart.Validation("invalid JSON body")))
		return
	}
	h.respondEnvelope(w, r, c, c.AddItems(r.Context(), entries))
}

func (h *Handler) PromoCode(w http.ResponseWriter, r *http.Request) {
	c, err := h.newCart(r)
	if err != nil {
		h.fault(w, r, err)
		return
	}
	code := r.URL.Query().Get("code")
	if code == "" {
		// No code given: behave as a plain cart read, like the original.
		h.respondEnvelope(w, r, c, c.Get(r.Context()))
		return
	}
	h.respondEnvelope(w, r, c, c.ApplyCoupon(r.Context(), code))
}

func (h *Handler) Clear(w http.ResponseWriter, r *http.Request) {
	c, err := h.newCart(r)
	if err != nil {
		h.fault(w, r, err)
		return
	}
	h.respondEnvelope(w, r, c, c.Clear(r.Context()))
}

func (h *Handler) UpdateShipping(w http.ResponseWriter, r *http.Request) {
	c, err := h.newCart(r)
	if err != nil {
		h.fault(w, r, err)
		return
	}
	env := c.UpdateShipping(r.Context(), r.URL.Query().Get("ID"))
	h.respondEnvelope(w, r, c, env)
}

func (h *Handler) GetShipping(w http.ResponseWriter, r *http.Request) {
	c, err := h.newCart(r)
	if err != nil {
		h.fault(w, r, err)
		return
	}
	h.respondEnvelope(w, r, c, c.GetShipping(r.Context()))
}

// Item quantity sub-actions on an existing order line.
func (h *Handler) ItemAction(w http.ResponseWriter, r *http.Request) {
	c, err := h.newCart(r)
	if err != nil {
		h.fault(w, r, err)
		return
	}
	id := chi.URLParam(r, "id")
	quantity, _ := strconv.Atoi(r.URL.Query().Get("quantity"))

	var env *cart.Envelope
	switch chi.URLParam(r, "action") {
	case "setQuantity":
		env = c.SetItemQuantity(r.Context(), id, quantity)
	case "addOne":
		env = c.AdjustItem(r.Context(), id, 1)
	case "removeOne":
		env = c.AdjustItem(r.Context(), id, -1)
	case "addQuantity":
		env = c.AdjustItem(r.Context(), id, quantity)
	case "removeQuantity":
		env = c.AdjustItem(r.Context(), id, -quantity)
	case "removeAll":
		env = c.SetItemQuantity(r.Context(), id, 0)
	default:
		env = c.Get(r.Context())
	}
	h.respondEnvelope(w, r, c, env)
}

func (h *Handler) SubmitOrder(w http.ResponseWriter, r *http.Request) {
	c, err := h.newCart(r)
	if err != nil {
		h.fault(w, r, err)
		return
	}
	var req checkout.SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondEnvelope(w, r, c, cart.Fail(cart.Validation("invalid JSON body")))
		return
	}
	h.respondEnvelope(w, r, c, h.checkout.SendOrder(r.Context(), c, req))
}

// Ping implements the staleness echo: the client's token comes back
// unchanged when nothing changed, otherwise the new token. Ping never
// persists the hash.
func (h *Handler) Ping(w http.ResponseWriter, r *http.Request) {
	c, err := h.newCart(r)
	if err != nil {
		h.fault(w, r, err)
		return
	}
	clientHash := r.URL.Query().Get("hash")
	respondJSON(w, http.StatusOK, map[string]string{
		"hash": stale.Ping(clientHash, c.Hash()),
	}, h.log)
}

func (h *Handler) GetList(w http.ResponseWriter, r *http.Request) {
	kind, err := lists.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		respondJSON(w, http.StatusOK, cart.Fail(cart.Validation("unknown list kind")), h.log)
		return
	}
	res, err := h.deps.Lists.Reconcile(r.Context(), sessionFromContext(r.Context()), kind)
	if err != nil {
		h.fault(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, res, h.log)
}

func (h *Handler) ToggleList(w http.ResponseWriter, r *http.Request) {
	kind, err := lists.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		respondJSON(w, http.StatusOK, cart.Fail(cart.Validation("unknown list kind")), h.log)
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		respondJSON(w, http.StatusOK, cart.Fail(cart.Validation("Missing or malformed ID")), h.log)
		return
	}
	variation := r.URL.Query().Get("variation") == "1"

	sessionID := sessionFromContext(r.Context())
	added, err := h.deps.Lists.Toggle(r.Context(), sessionID, kind, id, variation)
	if errors.Is(err, catalog.ErrNotFound) {
		respondJSON(w, http.StatusOK, cart.Fail(cart.NotFound("Product does not exist")), h.log)
		return
	}
	if err != nil {
		h.fault(w, r, err)
		return
	}

	msg := "Removed from list"
	if added {
		msg = "Added to list"
	}
	respondJSON(w, http.StatusOK, cart.Success(msg, cart.RegionSummary).Updated(), h.log)
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"}, h.log)
}

func (h *Handler) fault(w http.ResponseWriter, r *http.Request, err error) {
	h.log.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
	respondJSON(w, http.StatusOK, cart.Fail(cart.OperationWithCode(500, "Cart could not be updated")), h.log)
}

func respondJSON(w http.ResponseWriter, status int, data interface{}, log *slog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error("failed to encode response", "error", err)
	}
}
