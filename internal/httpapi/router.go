package httpapi

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func NewRouter(app *App) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", healthHandler)
	r.Post("/v1/notifications", app.enqueueHandler)
	r.Get("/v1/queues/stats", app.statsHandler)
	r.Post("/v1/purchases/{id}/payment-clicks", app.paymentClickHandler)
	r.Post("/telegram/webhook", app.webhookHandler)

	return r
}
