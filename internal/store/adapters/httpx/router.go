package httpx

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/jcmexdev/storefront/internal/store/adapters/httpx/middlewares"
)

func NewRouter(handler *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middlewares.AttachTracingMetadata)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", handler.Health)

	r.Route("/products", func(r chi.Router) {
		r.Post("/", handler.CreateProduct)
		r.Get("/", handler.ListProducts)
		r.Get("/{id}", handler.GetProduct)
		r.Patch("/{id}", handler.UpdateProduct)
		r.Delete("/{id}", handler.DeleteProduct)
	})

	r.Route("/orders", func(r chi.Router) {
		r.Post("/", handler.CreateOrder)
		r.Get("/{id}", handler.GetOrder)
		r.Delete("/{id}", handler.DeleteOrder)
		r.Post("/{id}/lines", handler.AddLine)
		r.Patch("/{id}/lines/{lineID}", handler.UpdateLine)
		r.Delete("/{id}/lines/{lineID}", handler.RemoveLine)
		r.Post("/{id}/recalculate", handler.RecalculateTotal)
		r.Put("/{id}/status", handler.SetStatus)
	})

	r.Get("/users/{id}/orders", handler.ListUserOrders)

	r.Route("/reports", func(r chi.Router) {
		r.Get("/users", handler.UserSpendReport)
		r.Get("/products", handler.ProductSalesReport)
		r.Get("/inventory", handler.InventoryReport)
		r.Get("/stats", handler.StatsReport)
		r.Get("/multi-line-orders", handler.MultiLineOrdersReport)
	})
	return r
}
