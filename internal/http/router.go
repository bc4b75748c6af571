package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/fjod/storefront-checkout/pkg/metrics"
)

type RouterConfig struct {
	ServiceName    string
	RequestTimeout time.Duration
	AllowedOrigins []string
	Metrics        *metrics.ServerMetrics
	MetricsHandler http.Handler

	Checkout *CheckoutHandler
	Bridge   *BridgeHandler
	Wallets  *WalletHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(RequestIDMiddleware)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware)
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", requestIDHeader, sessionIDHeader},
		ExposedHeaders:   []string{requestIDHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(middleware.Compress(5))
	r.Use(BearerTokenMiddleware)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	r.Post("/api/apple-pay/validate-merchant", cfg.Bridge.ValidateMerchant)

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/checkout/{cart_id}", func(r chi.Router) {
			r.Get("/step", cfg.Checkout.GetStep)
			r.Get("/consistency", cfg.Checkout.GetConsistency)
			r.Post("/reconcile", cfg.Checkout.Reconcile)
			r.Post("/place-order", cfg.Checkout.PlaceOrder)
		})
		r.Route("/wallets", func(r chi.Router) {
			r.Get("/readiness", cfg.Wallets.Readiness)
			r.Post("/{rail}/dismiss", cfg.Wallets.Dismiss)
		})
	})

	return otelhttp.NewHandler(r, cfg.ServiceName)
}
