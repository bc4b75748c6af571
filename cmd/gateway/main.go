package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/fjod/storefront-checkout/internal/backend"
	"github.com/fjod/storefront-checkout/internal/bridge"
	"github.com/fjod/storefront-checkout/internal/config"
	"github.com/fjod/storefront-checkout/internal/health"
	h "github.com/fjod/storefront-checkout/internal/http"
	"github.com/fjod/storefront-checkout/internal/preferences"
	"github.com/fjod/storefront-checkout/internal/publisher"
	"github.com/fjod/storefront-checkout/internal/secrets"
	"github.com/fjod/storefront-checkout/internal/service"
	"github.com/fjod/storefront-checkout/internal/wallet"
	"github.com/fjod/storefront-checkout/pkg/circuitbreaker"
	"github.com/fjod/storefront-checkout/pkg/logger"
	"github.com/fjod/storefront-checkout/pkg/metrics"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	log := logger.New(cfg.ServiceName, cfg.LogLevel)
	slog.SetDefault(log)

	// Forward trace context to the commerce backend through otelhttp transports.
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	if err := run(cfg, log); err != nil {
		log.Error("gateway stopped with error", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *slog.Logger) error {
	ctx := context.Background()

	keys, err := backendKeys(ctx, cfg)
	if err != nil {
		return fmt.Errorf("resolve backend key: %w", err)
	}

	breaker := circuitbreaker.DefaultConfig()
	breaker.ConsecutiveFailures = cfg.BreakerFailures
	breaker.OpenTimeout = cfg.BreakerOpenTimeout

	client := backend.NewClient(backend.Options{
		BaseURL: cfg.BackendURL,
		Keys:    keys,
		Breaker: breaker,
		Logger:  log,
		// A shared customer load may outlive its first caller, never a request.
		LoadTimeout: cfg.RequestTimeout,
	})
	log.Info("commerce backend configured", slog.String("url", cfg.BackendURL))

	// Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	serverMetrics := metrics.NewServerMetrics(reg, "checkout")
	bridgeMetrics := metrics.NewBridgeMetrics(reg)

	// Checkout events
	var events interface {
		service.EventPublisher
		Close() error
	} = publisher.Nop{}
	if len(cfg.KafkaBrokers) > 0 {
		events = publisher.New(publisher.NewKafkaWriter(cfg.KafkaTopic, cfg.KafkaBrokers...), log)
		log.Info("publishing checkout events", slog.String("topic", cfg.KafkaTopic))
	}
	defer events.Close()

	// Wallet prompt preferences
	var prefs preferences.Store
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Warn("redis unavailable, wallet prompt preferences disabled", slog.Any("error", err))
		} else {
			prefs = preferences.NewRedisStore(redisClient, cfg.PreferencesTTL)
			log.Info("redis ping succeeded")
		}
	}

	bridgeTimeout, clamped := cfg.BridgeTimeout()
	if clamped {
		log.Warn("merchant validation timeout does not fit in the request timeout",
			slog.Duration("configured", cfg.MerchantValidationTimeout),
			slog.Duration("request_timeout", cfg.RequestTimeout),
			slog.Duration("using", bridgeTimeout))
	}

	checkoutService := service.NewCheckoutService(client, events, log)
	merchantBridge := bridge.New(client, bridgeTimeout, bridgeMetrics, log)
	detector := wallet.NewDetector(cfg.WalletProbeTimeout, log,
		wallet.ApplePayProbe{Enabled: cfg.ApplePayEnabled},
		wallet.NewGooglePayProbe(cfg.GooglePayEnabled, cfg.GooglePayScriptURL))

	router := h.NewRouter(h.RouterConfig{
		ServiceName:    cfg.ServiceName,
		RequestTimeout: cfg.RequestTimeout,
		AllowedOrigins: cfg.AllowedOrigins,
		Metrics:        serverMetrics,
		MetricsHandler: metrics.Handler(reg),
		Checkout:       h.NewCheckoutHandler(checkoutService, cfg.RequestTimeout),
		Bridge:         h.NewBridgeHandler(merchantBridge, cfg.MaxRequestBodySize, log),
		Wallets:        h.NewWalletHandler(detector, prefs, cfg.WalletProbeTimeout, log),
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
	if err != nil {
		return fmt.Errorf("listen grpc: %w", err)
	}
	healthServer := health.NewServer(cfg.ServiceName)

	errCh := make(chan error, 2)
	go func() {
		log.Info("checkout gateway starting", slog.String("port", cfg.HTTPPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()
	go func() {
		log.Info("grpc health listening", slog.String("port", cfg.GRPCPort))
		if err := healthServer.Serve(lis); err != nil {
			errCh <- fmt.Errorf("grpc server: %w", err)
		}
	}()
	healthServer.SetServing(true)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		healthServer.GracefulStop()
		return err
	}

	log.Info("shutting down server...")
	healthServer.SetServing(false)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	healthServer.GracefulStop()

	log.Info("server exited")
	return nil
}

// backendKeys prefers Secret Manager when a project is configured. The key is
// read once at startup.
func backendKeys(ctx context.Context, cfg *config.Config) (secrets.Provider, error) {
	if cfg.SecretProjectID == "" {
		if cfg.BackendAPIKey == "" {
			return nil, nil
		}
		return secrets.Static(cfg.BackendAPIKey), nil
	}

	smClient, err := secretmanager.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("secret manager client: %w", err)
	}
	defer smClient.Close()

	sm := secrets.NewSecretManager(smClient, cfg.SecretProjectID, cfg.SecretName, cfg.SecretVersion)
	key, err := sm.BackendAPIKey(ctx)
	if err != nil {
		return nil, err
	}
	return secrets.Static(key), nil
}
