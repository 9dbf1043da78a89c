package transport

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/tarjuman/order-service/internal/handler"
	"github.com/tarjuman/order-service/internal/profile"
)

// Handlers bundles the wired HTTP handlers for router construction.
type Handlers struct {
	Auth    *handler.AuthHandler
	Orders  *handler.OrderHandler
	Duitku  *handler.DuitkuHandler
	Promo   *handler.PromoHandler
	Admin   *handler.AdminHandler
	Webhook *handler.WebhookHandler
}

// NewRouter assembles the service's route tree. The payment callback and
// the signup webhook authenticate themselves and stay outside the session
// middleware.
func NewRouter(profiles profile.Service, h Handlers) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/signin", h.Auth.HandleSignIn)
		r.Post("/auth/signout", h.Auth.HandleSignOut)

		r.Post("/duitku/callback", h.Duitku.HandleCallback)
		r.Post("/webhooks/users", h.Webhook.HandleUserSignup)

		r.Group(func(r chi.Router) {
			r.Use(handler.Authenticator(profiles))

			r.Post("/orders", h.Orders.HandleCreateOrder)
			r.Get("/orders", h.Orders.HandleListOrders)
			r.Get("/orders/{id}", h.Orders.HandleGetOrder)
			r.Post("/orders/{id}/pay", h.Orders.HandlePayOrder)

			r.Get("/duitku/payment-methods", h.Duitku.HandlePaymentMethods)
			r.Post("/promo/validate", h.Promo.HandleValidate)

			r.Group(func(r chi.Router) {
				r.Use(handler.RequireAdmin)

				r.Post("/admin/orders/{id}", h.Admin.HandleUpdateOrder)
				r.Post("/admin/orders/{id}/draft", h.Admin.HandleUploadDraft)
				r.Post("/admin/orders/{id}/finalize", h.Admin.HandleFinalize)
				r.Post("/admin/test-email", h.Admin.HandleTestEmail)
			})
		})
	})

	return r
}
