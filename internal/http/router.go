package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type RouterConfig struct {
	JWTSecret      []byte
	RequestTimeout time.Duration
}

// NewRouter mounts the public catalog routes, the admin catalog routes and
// the authenticated cart routes under /api/v1.
func NewRouter(catalog CatalogService, carts CartService, cfg RouterConfig) http.Handler {
	productHandler := NewProductHandler(catalog, cfg.RequestTimeout)
	cartHandler := NewCartHandler(carts, cfg.RequestTimeout)
	auth := AuthMiddleware(cfg.JWTSecret)
	jsonOnly := middleware.AllowContentType("application/json")

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(RequestIDMiddleware)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.RequestTimeout))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/products", func(r chi.Router) {
			r.Get("/", productHandler.List)
			r.Get("/{id}", productHandler.Get)

			r.Group(func(r chi.Router) {
				r.Use(auth, RequireAdmin)
				r.With(jsonOnly).Post("/", productHandler.Create)
				r.With(jsonOnly).Put("/{id}", productHandler.Update)
				r.Delete("/{id}", productHandler.Delete)
			})
		})

		r.Get("/categories/{id}/products", productHandler.ListByCategory)

		r.Group(func(r chi.Router) {
			r.Use(auth)

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", cartHandler.GetCart)
				r.With(jsonOnly).Post("/items", cartHandler.AddItem)
				r.With(jsonOnly).Put("/items", cartHandler.UpdateItem)
				r.Delete("/items/{productId}", cartHandler.RemoveItem)
			})
			r.With(jsonOnly).Put("/users/{userId}/cart/items", cartHandler.ReplaceAllItems)
		})
	})

	return otelhttp.NewHandler(r, "go_shop")
}
