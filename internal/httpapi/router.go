package httpapi

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter wires the shop API routes. The URL shape mirrors the
// storefront client's expectations: everything hangs off /shop/api/cart.
func NewRouter(h *Handler, requestTimeout time.Duration) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.Timeout(requestTimeout))
	r.Use(middleware.Compress(5))
	r.Use(SessionMiddleware)

	r.Get("/health", h.Health)

	r.Route("/shop/api/cart", func(r chi.Router) {
		r.Get("/", h.GetCart)
		r.Get("/ping", h.Ping)
		r.Post("/add", h.AddItems)
		r.Post("/clear", h.Clear)
		r.Get("/promocode", h.PromoCode)
		r.Post("/promocode", h.PromoCode)
		r.Post("/submitorder", h.SubmitOrder)

		r.Post("/product/{id}/add", h.AddItem)
		r.Post("/product/{id}/addVariation", h.AddVariation)

		r.Post("/item/{id}/{action}", h.ItemAction)

		r.Get("/shipping", h.GetShipping)
		r.Post("/shipping/update", h.UpdateShipping)

		r.Get("/list/{kind}", h.GetList)
		r.Post("/list/{kind}/toggle/{id}", h.ToggleList)
	})

	return r
}
