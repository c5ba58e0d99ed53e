package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Драйверы хранилища подписок
const (
	StoreDriverSupabase = "supabase"
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

// Драйверы Kafka
const (
	KafkaDriverKafkaGo = "kafka-go"
	KafkaDriverSarama  = "sarama"
)

// Config структура конфигурации приложения
type Config struct {
	App      AppConfig
	Server   ServerConfig
	Logging  LoggingConfig
	Square   SquareConfig
	Checkout CheckoutConfig
	Store    StoreConfig
	Supabase SupabaseConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
}

// AppConfig общие настройки окружения
type AppConfig struct {
	Env string
}

// IsProduction возвращает true для APP_ENV=production
func (c AppConfig) IsProduction() bool {
	return c.Env == "production"
}

// ServerConfig конфигурация HTTP сервера
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// LoggingConfig конфигурация логгера
type LoggingConfig struct {
	Level string
}

// SquareConfig конфигурация Square API
type SquareConfig struct {
	AccessToken             string
	LocationID              string
	SubscriptionPlanID      string
	WebhookSignatureKey     string
	WebhookURL              string
	RequireWebhookSignature bool
	BaseURL                 string
	APIVersion              string
	HTTPTimeout             time.Duration
	LookupMaxElapsed        time.Duration
}

// HasCredentials проверяет, что токен и локация заданы
func (c SquareConfig) HasCredentials() bool {
	return c.AccessToken != "" && c.LocationID != ""
}

// CheckoutConfig параметры создаваемой ссылки на оплату
type CheckoutConfig struct {
	ItemName      string
	PriceCents    int64
	Currency      string
	SupportEmail  string
	DefaultOrigin string
}

// StoreConfig выбор хранилища подписок
type StoreConfig struct {
	Driver string
}

// SupabaseConfig доступ к Supabase (REST и JWT)
type SupabaseConfig struct {
	URL            string
	ServiceRoleKey string
	JWTSecret      string
}

// DatabaseConfig конфигурация базы данных
type DatabaseConfig struct {
	DSN string
}

// RedisConfig конфигурация Redis кеша
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// Enabled возвращает true, если адрес Redis задан
func (c RedisConfig) Enabled() bool {
	return c.Addr != ""
}

// KafkaConfig конфигурация публикации событий
type KafkaConfig struct {
	Brokers []string
	Topic   string
	Driver  string
}

// Enabled возвращает true, если заданы брокеры
func (c KafkaConfig) Enabled() bool {
	return len(c.Brokers) > 0
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("PORT", "8080")
	v.SetDefault("SERVER_READ_TIMEOUT", "15s")
	v.SetDefault("SERVER_WRITE_TIMEOUT", "15s")
	v.SetDefault("SERVER_SHUTDOWN_TIMEOUT", "30s")
	v.SetDefault("LOG_LEVEL", "info")

	v.SetDefault("SQUARE_SUBSCRIPTION_PLAN_ID", "monthly_premium")
	v.SetDefault("SQUARE_WEBHOOK_REQUIRE_SIGNATURE", false)
	v.SetDefault("SQUARE_BASE_URL", "https://connect.squareup.com")
	v.SetDefault("SQUARE_API_VERSION", "2024-10-17")
	v.SetDefault("SQUARE_HTTP_TIMEOUT", "10s")
	v.SetDefault("SQUARE_LOOKUP_MAX_ELAPSED", "5s")

	v.SetDefault("CHECKOUT_ITEM_NAME", "Ditch Premium")
	v.SetDefault("CHECKOUT_PRICE_CENTS", 299)
	v.SetDefault("CHECKOUT_CURRENCY", "USD")
	v.SetDefault("CHECKOUT_SUPPORT_EMAIL", "support@ditch.app")
	v.SetDefault("CHECKOUT_DEFAULT_ORIGIN", "http://localhost:5173")

	v.SetDefault("STORE_DRIVER", StoreDriverSupabase)
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("KAFKA_TOPIC", "subscription_changed")
	v.SetDefault("KAFKA_DRIVER", KafkaDriverKafkaGo)
}

// Load загружает конфигурацию из переменных окружения.
// Вне production сначала подгружается .env (если он есть), затем опциональный config.yml.
func Load() (*Config, error) {
	if os.Getenv("APP_ENV") != "production" {
		// .env не обязателен
		_ = godotenv.Load()
	}

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: failed to read config.yml: %w", err)
		}
	}

	cfg := &Config{
		App: AppConfig{
			Env: v.GetString("APP_ENV"),
		},
		Server: ServerConfig{
			Port:            v.GetString("PORT"),
			ReadTimeout:     v.GetDuration("SERVER_READ_TIMEOUT"),
			WriteTimeout:    v.GetDuration("SERVER_WRITE_TIMEOUT"),
			ShutdownTimeout: v.GetDuration("SERVER_SHUTDOWN_TIMEOUT"),
		},
		Logging: LoggingConfig{
			Level: v.GetString("LOG_LEVEL"),
		},
		Square: SquareConfig{
			AccessToken:             v.GetString("SQUARE_ACCESS_TOKEN"),
			LocationID:              v.GetString("SQUARE_LOCATION_ID"),
			SubscriptionPlanID:      v.GetString("SQUARE_SUBSCRIPTION_PLAN_ID"),
			WebhookSignatureKey:     v.GetString("SQUARE_WEBHOOK_SIGNATURE_KEY"),
			WebhookURL:              v.GetString("SQUARE_WEBHOOK_URL"),
			RequireWebhookSignature: v.GetBool("SQUARE_WEBHOOK_REQUIRE_SIGNATURE"),
			BaseURL:                 strings.TrimRight(v.GetString("SQUARE_BASE_URL"), "/"),
			APIVersion:              v.GetString("SQUARE_API_VERSION"),
			HTTPTimeout:             v.GetDuration("SQUARE_HTTP_TIMEOUT"),
			LookupMaxElapsed:        v.GetDuration("SQUARE_LOOKUP_MAX_ELAPSED"),
		},
		Checkout: CheckoutConfig{
			ItemName:      v.GetString("CHECKOUT_ITEM_NAME"),
			PriceCents:    v.GetInt64("CHECKOUT_PRICE_CENTS"),
			Currency:      v.GetString("CHECKOUT_CURRENCY"),
			SupportEmail:  v.GetString("CHECKOUT_SUPPORT_EMAIL"),
			DefaultOrigin: v.GetString("CHECKOUT_DEFAULT_ORIGIN"),
		},
		Store: StoreConfig{
			Driver: strings.ToLower(v.GetString("STORE_DRIVER")),
		},
		Supabase: SupabaseConfig{
			URL:            strings.TrimRight(v.GetString("SUPABASE_URL"), "/"),
			ServiceRoleKey: v.GetString("SUPABASE_SERVICE_ROLE_KEY"),
			JWTSecret:      v.GetString("SUPABASE_JWT_SECRET"),
		},
		Database: DatabaseConfig{
			DSN: v.GetString("DATABASE_DSN"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		Kafka: KafkaConfig{
			Brokers: splitList(v.GetString("KAFKA_BROKERS")),
			Topic:   v.GetString("KAFKA_TOPIC"),
			Driver:  strings.ToLower(v.GetString("KAFKA_DRIVER")),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Store.Driver {
	case StoreDriverSupabase, StoreDriverPostgres, StoreDriverMemory:
	default:
		return fmt.Errorf("config: unknown STORE_DRIVER %q", c.Store.Driver)
	}
	switch c.Kafka.Driver {
	case KafkaDriverKafkaGo, KafkaDriverSarama:
	default:
		return fmt.Errorf("config: unknown KAFKA_DRIVER %q", c.Kafka.Driver)
	}
	if c.Checkout.PriceCents <= 0 {
		return fmt.Errorf("config: CHECKOUT_PRICE_CENTS must be positive, got %d", c.Checkout.PriceCents)
	}
	return nil
}

// splitList разбирает список через запятую, пропуская пустые элементы
func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
