package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ditch-app/billing-service/config"
	"github.com/ditch-app/billing-service/internal/api/rest"
	"github.com/ditch-app/billing-service/internal/api/rest/middleware"
	"github.com/ditch-app/billing-service/internal/db"
	"github.com/ditch-app/billing-service/internal/integration/square"
	"github.com/ditch-app/billing-service/internal/kafka"
	"github.com/ditch-app/billing-service/internal/metrics"
	"github.com/ditch-app/billing-service/internal/repository"
	"github.com/ditch-app/billing-service/internal/repository/postgres"
	"github.com/ditch-app/billing-service/internal/service"
	"github.com/ditch-app/billing-service/pkg/logger"
)

// closer ресурс, который закрывается при остановке
type closer struct {
	name  string
	close func() error
}

// App представляет собой контейнер для всех компонентов приложения
type App struct {
	Config   *config.Config
	Registry *prometheus.Registry
	Router   *gin.Engine
	Server   *rest.Server

	closers []closer
	log     *logger.Logger
}

// New создает и инициализирует приложение. Недоступные Redis, Kafka и журнал
// вебхуков в Postgres не фатальны: сервис продолжает работу без них.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (*App, error) {
	if cfg.App.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	a := &App{Config: cfg, log: log}

	a.Registry = metrics.NewRegistry()
	billingMetrics := metrics.NewBillingMetrics(a.Registry)

	squareClient := square.NewClient(square.Config{
		AccessToken:      cfg.Square.AccessToken,
		LocationID:       cfg.Square.LocationID,
		BaseURL:          cfg.Square.BaseURL,
		APIVersion:       cfg.Square.APIVersion,
		HTTPTimeout:      cfg.Square.HTTPTimeout,
		LookupMaxElapsed: cfg.Square.LookupMaxElapsed,
	}, billingMetrics, log.Named("square"))
	if !squareClient.Configured() {
		log.Warnw("Square access token or location ID is not set, checkout is disabled")
	}

	store, err := a.subscriptionStore(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	webhookService := service.NewWebhookService(service.WebhookDeps{
		Store:     store,
		Orders:    squareClient,
		Ledger:    a.webhookLedger(ctx),
		Publisher: a.publisher(ctx),
		Metrics:   billingMetrics,
	}, service.WebhookSettings{
		SignatureKey:     cfg.Square.WebhookSignatureKey,
		RequireSignature: cfg.Square.RequireWebhookSignature,
	}, log.Named("webhook"))

	checkoutService := service.NewCheckoutService(squareClient, service.CheckoutSettings{
		ItemName:           cfg.Checkout.ItemName,
		PriceCents:         cfg.Checkout.PriceCents,
		Currency:           cfg.Checkout.Currency,
		SupportEmail:       cfg.Checkout.SupportEmail,
		DefaultOrigin:      cfg.Checkout.DefaultOrigin,
		SubscriptionPlanID: cfg.Square.SubscriptionPlanID,
	}, billingMetrics, log.Named("checkout"))

	var validator middleware.TokenValidator
	if cfg.Supabase.JWTSecret != "" {
		validator = &middleware.HMACTokenValidator{Secret: []byte(cfg.Supabase.JWTSecret)}
	} else {
		log.Warnw("SUPABASE_JWT_SECRET is not set, checkout and subscription endpoints are unauthenticated")
	}

	a.Router = rest.SetupRouter(rest.RouterDeps{
		Checkout:      checkoutService,
		Webhook:       webhookService,
		Subscriptions: service.NewSubscriptionService(store, log.Named("subscriptions")),
		Auth:          middleware.NewJWTMiddleware(validator, log),
		Registry:      a.Registry,
		WebhookURL:    cfg.Square.WebhookURL,
	}, log)
	a.Server = rest.NewServer(a.Router, cfg.Server, log)

	return a, nil
}

// subscriptionStore выбирает хранилище по STORE_DRIVER и оборачивает его кешем Redis.
// nil без ошибки означает, что хранилище не настроено.
func (a *App) subscriptionStore(ctx context.Context) (repository.SubscriptionStore, error) {
	cfg := a.Config
	var store repository.SubscriptionStore

	switch cfg.Store.Driver {
	case config.StoreDriverSupabase:
		if cfg.Supabase.URL == "" || cfg.Supabase.ServiceRoleKey == "" {
			a.log.Warnw("SUPABASE_URL or SUPABASE_SERVICE_ROLE_KEY is not set, webhooks will fail with a configuration error")
			return nil, nil
		}
		store = repository.NewSupabaseSubscriptionStore(repository.SupabaseConfig{
			URL:            cfg.Supabase.URL,
			ServiceRoleKey: cfg.Supabase.ServiceRoleKey,
			HTTPTimeout:    cfg.Square.HTTPTimeout,
		}, a.log.Named("supabase"))
	case config.StoreDriverPostgres:
		if cfg.Database.DSN == "" {
			return nil, errors.New("app: STORE_DRIVER=postgres requires DATABASE_DSN")
		}
		pool, err := postgres.NewConnection(ctx, cfg.Database.DSN, a.log)
		if err != nil {
			return nil, fmt.Errorf("app: failed to connect to postgres: %w", err)
		}
		a.addCloser("postgres pool", func() error {
			pool.Close()
			return nil
		})
		store = repository.NewPostgresSubscriptionStore(pool, a.log)
	case config.StoreDriverMemory:
		a.log.Warnw("Using in-memory subscription store, state is lost on restart")
		store = repository.NewInMemorySubscriptionStore(a.log)
	}

	if store == nil || !cfg.Redis.Enabled() {
		return store, nil
	}
	client, err := repository.ConnectRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, a.log)
	if err != nil {
		a.log.Warnw("Failed to initialize Redis cache, continuing without caching", "error", err)
		return store, nil
	}
	cache := repository.NewRedisCacheRepository(client, a.log)
	a.addCloser("redis", cache.Close)
	a.log.Infow("Using cached subscription store")
	return repository.NewCachedSubscriptionStore(store, cache, a.log), nil
}

// webhookLedger журнал вебхуков в Postgres при заданном DATABASE_DSN, иначе в памяти
func (a *App) webhookLedger(ctx context.Context) repository.WebhookEventLedger {
	if a.Config.Database.DSN == "" {
		return repository.NewInMemoryWebhookEventLedger()
	}
	dbClient, err := db.NewDBClient(ctx, a.Config.Database.DSN, a.log)
	if err != nil {
		a.log.Warnw("Failed to connect webhook ledger database, using in-memory ledger", "error", err)
		return repository.NewInMemoryWebhookEventLedger()
	}
	a.addCloser("webhook ledger", dbClient.Close)
	return dbClient
}

// publisher продюсер Kafka по KAFKA_DRIVER. nil, если Kafka не настроена или недоступна.
func (a *App) publisher(ctx context.Context) kafka.Publisher {
	cfg := a.Config.Kafka
	if !cfg.Enabled() {
		a.log.Infow("KAFKA_BROKERS is not set, subscription events are not published")
		return nil
	}

	if err := kafka.EnsureTopics(ctx, cfg.Brokers, kafka.DefaultTopics(cfg.Topic), a.log); err != nil {
		a.log.Warnw("Failed to ensure Kafka topics", "error", err)
	}

	var (
		publisher kafka.Publisher
		err       error
	)
	switch cfg.Driver {
	case config.KafkaDriverSarama:
		publisher, err = kafka.NewSaramaPublisher(kafka.NewConfig(cfg.Brokers), cfg.Topic, a.log)
	default:
		publisher, err = kafka.NewKafkaGoPublisher(cfg.Brokers, cfg.Topic, a.log)
	}
	if err != nil {
		a.log.Errorw("Failed to initialize Kafka producer, continuing without event publishing", "error", err)
		return nil
	}
	a.addCloser("kafka producer", publisher.Close)
	return publisher
}

func (a *App) addCloser(name string, fn func() error) {
	a.closers = append(a.closers, closer{name: name, close: fn})
}

// Run запускает HTTP сервер и блокируется до отмены ctx или ошибки сервера,
// после чего выполняет graceful shutdown.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- a.Server.Start()
	}()

	var runErr error
	select {
	case <-ctx.Done():
		a.log.Infow("Shutdown signal received")
	case runErr = <-errCh:
		if runErr != nil {
			a.log.Errorw("HTTP server stopped", "error", runErr)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout())
	defer cancel()
	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		a.log.Errorw("Server forced to shutdown", "error", err)
	}

	a.Close()
	a.log.Infow("Server exited properly")
	return runErr
}

func (a *App) shutdownTimeout() time.Duration {
	if a.Config.Server.ShutdownTimeout > 0 {
		return a.Config.Server.ShutdownTimeout
	}
	return 30 * time.Second
}

// Close закрывает ресурсы в обратном порядке
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		c := a.closers[i]
		if err := c.close(); err != nil {
			a.log.Errorw("Error closing resource", "resource", c.name, "error", err)
		}
	}
	a.closers = nil
}
