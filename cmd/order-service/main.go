package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tarjuman/order-service/internal/config"
	"github.com/tarjuman/order-service/internal/db"
	"github.com/tarjuman/order-service/internal/duitku"
	"github.com/tarjuman/order-service/internal/gatewaycache"
	"github.com/tarjuman/order-service/internal/handler"
	"github.com/tarjuman/order-service/internal/notify"
	"github.com/tarjuman/order-service/internal/order"
	"github.com/tarjuman/order-service/internal/profile"
	"github.com/tarjuman/order-service/internal/promo"
	"github.com/tarjuman/order-service/internal/transport"
)

const methodsCacheTTL = 5 * time.Minute

// unconfiguredGateway lets the service boot without payment credentials.
// Payment initiation then fails per request instead of at startup.
type unconfiguredGateway struct{}

func (unconfiguredGateway) RequestTransaction(context.Context, duitku.TransactionRequest) (*duitku.TransactionResponse, error) {
	return nil, duitku.ErrMissingCredentials
}

type disabledNotifier struct{}

func (disabledNotifier) Send(context.Context, string, string, string, string) error {
	return notify.ErrMissingCredentials
}

func main() {
	zerolog.SetGlobalLevel(zerolog.DebugLevel)

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	log.Logger = log.With().Str("service", "order-service").Logger()

	log.Info().Msg("Order service starting...")

	cfg, err := config.Load(".env")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	ctx := context.Background()

	pg, err := db.New(ctx, cfg.Postgres)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer pg.Close()

	if err := pg.ApplyMigrations(cfg.Postgres); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply migrations")
	}

	var (
		gateway  order.Gateway = unconfiguredGateway{}
		verifier handler.CallbackVerifier
		fetch    gatewaycache.Fetcher
	)
	gatewayClient, err := duitku.NewClient(cfg.Duitku)
	switch {
	case err == nil:
		gateway = gatewayClient
		verifier = gatewayClient
		fetch = gatewayClient.GetPaymentMethods
	case errors.Is(err, duitku.ErrMissingCredentials):
		log.Warn().Msg("Duitku credentials not set, payments are disabled")
		fetch = func(context.Context, int64) ([]duitku.PaymentMethod, error) {
			return nil, duitku.ErrMissingCredentials
		}
	default:
		log.Fatal().Err(err).Msg("Failed to build payment gateway client")
	}

	var notifier notify.Notifier = disabledNotifier{}
	if client, err := notify.NewClient(cfg.SendPulse); err == nil {
		notifier = client
	} else {
		log.Warn().Msg("SendPulse credentials not set, email notifications are disabled")
	}

	var methodsStore gatewaycache.Store = gatewaycache.NewMemoryStore()
	if cfg.Redis.Addr != "" {
		methodsStore = gatewaycache.NewRedisStore(redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr}))
		log.Info().Str("addr", cfg.Redis.Addr).Msg("Using redis for the payment method cache")
	}
	methodsCache := gatewaycache.NewMethodsCache(methodsStore, fetch, methodsCacheTTL)

	profileRepo := profile.NewRepository(pg.Pool)
	profileSvc := profile.NewService(profileRepo)

	promoRepo := promo.NewRepository(pg.Pool)
	orderRepo := order.NewRepository(pg.Pool)
	orderSvc := order.NewService(orderRepo, promoRepo, gateway, notifier)

	router := transport.NewRouter(profileSvc, transport.Handlers{
		Auth:    handler.NewAuthHandler(profileSvc),
		Orders:  handler.NewOrderHandler(orderSvc),
		Duitku:  handler.NewDuitkuHandler(methodsCache, verifier, orderSvc),
		Promo:   handler.NewPromoHandler(promoRepo),
		Admin:   handler.NewAdminHandler(orderSvc, notifier),
		Webhook: handler.NewWebhookHandler(cfg.App.WebhookSecret, notifier),
	})

	srv := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.App.Port).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	log.Info().Msg("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Shutdown failed")
	}
	log.Info().Msg("Server stopped")
}
