package square

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ditch-app/billing-service/pkg/logger"
)

const (
	// DefaultBaseURL production Square API
	DefaultBaseURL = "https://connect.squareup.com"
	// DefaultAPIVersion значение заголовка Square-Version
	DefaultAPIVersion = "2024-10-17"

	defaultHTTPTimeout          = 10 * time.Second
	defaultLookupMaxElapsed     = 5 * time.Second
	defaultLookupInitialBackoff = 200 * time.Millisecond

	serviceName = "square"
)

// Config конфигурация клиента Square
type Config struct {
	AccessToken string
	LocationID  string
	BaseURL     string
	APIVersion  string
	HTTPTimeout time.Duration

	// LookupMaxElapsed ограничивает суммарное время повторов при получении заказа
	LookupMaxElapsed time.Duration
	// LookupInitialBackoff первый интервал между повторами
	LookupInitialBackoff time.Duration
}

// RequestObserver получает длительность каждого запроса к Square (метрики)
type RequestObserver interface {
	ObserveProviderRequest(operation string, statusCode int, duration time.Duration)
}

// Client представляет клиент для работы с Square API
type Client struct {
	cfg        Config
	httpClient *http.Client
	observer   RequestObserver
	log        *logger.Logger
}

// NewClient создает новый клиент Square. observer может быть nil.
func NewClient(cfg Config, observer RequestObserver, log *logger.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.APIVersion == "" {
		cfg.APIVersion = DefaultAPIVersion
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = defaultHTTPTimeout
	}
	if cfg.LookupMaxElapsed <= 0 {
		cfg.LookupMaxElapsed = defaultLookupMaxElapsed
	}
	if cfg.LookupInitialBackoff <= 0 {
		cfg.LookupInitialBackoff = defaultLookupInitialBackoff
	}

	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.HTTPTimeout},
		observer:   observer,
		log:        log,
	}
}

// Configured проверяет, что заданы токен доступа и локация
func (c *Client) Configured() bool {
	return c.cfg.AccessToken != "" && c.cfg.LocationID != ""
}

// APIError элемент массива errors в ответе Square
type APIError struct {
	Category string `json:"category"`
	Code     string `json:"code"`
	Detail   string `json:"detail"`
	Field    string `json:"field,omitempty"`
}

type errorEnvelope struct {
	Errors []APIError `json:"errors"`
}

// firstErrorDetail достает errors[0].detail из тела ответа, если оно есть
func firstErrorDetail(body []byte) string {
	var env errorEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return ""
	}
	if len(env.Errors) == 0 {
		return ""
	}
	return env.Errors[0].Detail
}

// do выполняет запрос к Square и возвращает статус и сырое тело ответа.
// Ошибка возвращается только для сетевых сбоев и ошибок сериализации.
func (c *Client) do(ctx context.Context, operation, method, path string, payload any) (int, []byte, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, fmt.Errorf("square: failed to marshal %s request: %w", operation, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, body)
	if err != nil {
		return 0, nil, fmt.Errorf("square: failed to build %s request: %w", operation, err)
	}
	req.Header.Set("Square-Version", c.cfg.APIVersion)
	req.Header.Set("Authorization", "Bearer "+c.cfg.AccessToken)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.observe(operation, 0, time.Since(start))
		return 0, nil, fmt.Errorf("square: %s request failed: %w", operation, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	c.observe(operation, resp.StatusCode, time.Since(start))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("square: failed to read %s response: %w", operation, err)
	}

	c.log.Debugw("Square API call finished", "operation", operation, "status", resp.StatusCode)
	return resp.StatusCode, respBody, nil
}

func (c *Client) observe(operation string, statusCode int, d time.Duration) {
	if c.observer != nil {
		c.observer.ObserveProviderRequest(operation, statusCode, d)
	}
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}

func statusLabel(status int) string {
	if status == 0 {
		return "network_error"
	}
	return strconv.Itoa(status)
}
