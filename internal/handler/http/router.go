package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/handcrafthq/marketplace/pkg/health"
	"github.com/handcrafthq/marketplace/pkg/middleware"
)

// RouterConfig collects everything the HTTP router needs.
type RouterConfig struct {
	Products *ProductHandler
	Ratings  *RatingHandler
	Auth     *AuthHandler
	Health   *health.Handler

	// TokenValidator authenticates bearer tokens on protected routes.
	TokenValidator middleware.TokenValidator

	// MediaDir, when non-empty, is served under /media for locally stored
	// product images.
	MediaDir string

	CORS   middleware.CORSConfig
	Logger *slog.Logger
}

// NewRouter builds the chi router with all API routes and middleware.
func NewRouter(cfg RouterConfig) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.RequestLogger(cfg.Logger))
	r.Use(middleware.RequestLogging(cfg.Logger))
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(middleware.PrometheusMetrics("marketplace"))

	r.Get("/health/live", cfg.Health.LivenessHandler())
	r.Get("/health/ready", cfg.Health.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())

	if cfg.MediaDir != "" {
		fs := http.StripPrefix("/media/", http.FileServer(http.Dir(cfg.MediaDir)))
		r.Get("/media/*", fs.ServeHTTP)
	}

	authn := middleware.Auth(cfg.TokenValidator)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Use(ContentTypeJSON)
			r.Post("/register", cfg.Auth.Register)
			r.Post("/login", cfg.Auth.Login)
			r.Post("/refresh", cfg.Auth.Refresh)
		})

		r.Route("/products", func(r chi.Router) {
			r.Get("/", cfg.Products.ListProducts)
			r.Get("/categories", cfg.Products.ListCategories)
			r.Get("/{id}", cfg.Products.GetProduct)

			r.Group(func(r chi.Router) {
				r.Use(authn)
				// Any authenticated account may create a listing and becomes
				// its seller; ownership is enforced on update and delete.
				r.Post("/", cfg.Products.CreateProduct)
				r.Put("/{id}", cfg.Products.UpdateProduct)
				r.Delete("/{id}", cfg.Products.DeleteProduct)
				r.With(ContentTypeJSON).Post("/{id}/ratings", cfg.Ratings.RateProduct)
			})
		})

		r.Route("/sellers", func(r chi.Router) {
			r.With(authn).Get("/me/products", cfg.Products.MyProducts)
			r.Get("/{sellerId}/products", cfg.Products.SellerProducts)
		})
	})

	return r
}
