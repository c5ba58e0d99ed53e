package app

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ditch-app/billing-service/config"
	"github.com/ditch-app/billing-service/internal/repository"
	"github.com/ditch-app/billing-service/pkg/logger"
)

func testConfig() *config.Config {
	return &config.Config{
		App:    config.AppConfig{Env: "test"},
		Server: config.ServerConfig{Port: "0"},
		Square: config.SquareConfig{
			SubscriptionPlanID: "monthly_premium",
		},
		Checkout: config.CheckoutConfig{
			ItemName:      "Ditch Premium",
			PriceCents:    299,
			Currency:      "USD",
			DefaultOrigin: "http://localhost:5173",
		},
		Store: config.StoreConfig{Driver: config.StoreDriverMemory},
		Kafka: config.KafkaConfig{Driver: config.KafkaDriverKafkaGo},
	}
}

func TestNew_MemoryStore(t *testing.T) {
	a, err := New(context.Background(), testConfig(), logger.NewNop())
	require.NoError(t, err)
	defer a.Close()

	rec := httptest.NewRecorder()
	a.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	a.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/create-checkout-session", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestNew_SupabaseWithoutCredentials(t *testing.T) {
	cfg := testConfig()
	cfg.Store.Driver = config.StoreDriverSupabase

	a, err := New(context.Background(), cfg, logger.NewNop())
	require.NoError(t, err)
	defer a.Close()

	store, err := a.subscriptionStore(context.Background())
	require.NoError(t, err)
	assert.Nil(t, store)
}

func TestNew_PostgresRequiresDSN(t *testing.T) {
	cfg := testConfig()
	cfg.Store.Driver = config.StoreDriverPostgres

	_, err := New(context.Background(), cfg, logger.NewNop())
	assert.ErrorContains(t, err, "DATABASE_DSN")
}

func TestSubscriptionStore_RedisCache(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig()
	cfg.Redis = config.RedisConfig{Addr: mr.Addr()}

	a := &App{Config: cfg, log: logger.NewNop()}
	store, err := a.subscriptionStore(context.Background())
	require.NoError(t, err)

	_, ok := store.(*repository.CachedSubscriptionStore)
	assert.True(t, ok)
	assert.Len(t, a.closers, 1)
	a.Close()
	assert.Empty(t, a.closers)
}

func TestPublisher_DisabledWithoutBrokers(t *testing.T) {
	a := &App{Config: testConfig(), log: logger.NewNop()}
	assert.Nil(t, a.publisher(context.Background()))
}

func TestClose_ReverseOrder(t *testing.T) {
	a := &App{log: logger.NewNop()}
	var order []string
	a.addCloser("first", func() error { order = append(order, "first"); return nil })
	a.addCloser("second", func() error { order = append(order, "second"); return errors.New("ignored") })

	a.Close()
	assert.Equal(t, []string{"second", "first"}, order)
}
