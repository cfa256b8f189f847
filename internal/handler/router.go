package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	custommiddleware "github.com/mmeshcher/storefront/internal/middleware"
	"github.com/mmeshcher/storefront/internal/model"
)

// SetupRouter настраивает HTTP-маршруты и middleware витрины.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(custommiddleware.RequestID)
	r.Use(custommiddleware.Logger(h.logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(custommiddleware.GzipMiddleware)
	r.Use(h.auth.Middleware)

	requireAdmin := custommiddleware.RequireRole(model.RoleAdmin)

	r.Get("/health", h.Health)

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", h.Register)
			r.Post("/login", h.Login)
			r.With(custommiddleware.RequireAuth).Get("/me", h.Me)
		})

		r.Route("/products", func(r chi.Router) {
			r.Get("/", h.ListProducts)
			r.Get("/search", h.SearchProducts)
			r.Get("/{id}", h.GetProduct)

			r.Group(func(r chi.Router) {
				r.Use(requireAdmin)
				r.Post("/", h.CreateProduct)
				r.Delete("/{id}", h.DeleteProduct)
			})
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(requireAdmin)

			r.Get("/products", h.ListProducts)
			r.Post("/products", h.CreateProduct)
			r.Put("/products/{id}", h.UpdateProduct)
			r.Delete("/products/{id}", h.DeleteProduct)
		})

		r.Route("/user", func(r chi.Router) {
			r.Use(custommiddleware.RequireAuth)

			r.Post("/orders", h.PlaceOrder)
			r.Get("/orders", h.ListOrders)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, http.StatusText(http.StatusNotFound))
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, http.StatusText(http.StatusMethodNotAllowed))
	})

	return r
}
