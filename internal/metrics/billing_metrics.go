package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ditch-app/billing-service/internal/domain"
)

// Исходы обработки вебхука
const (
	OutcomeApplied   = "applied"
	OutcomeIgnored   = "ignored"
	OutcomeDuplicate = "duplicate"
	OutcomeRejected  = "rejected"
	OutcomeFailed    = "failed"
)

// Результаты создания checkout-сессии
const (
	CheckoutResultCreated       = "created"
	CheckoutResultInvalid       = "invalid"
	CheckoutResultNotConfigured = "not_configured"
	CheckoutResultProviderError = "provider_error"
)

// BillingMetrics интерфейс для метрик биллинга
type BillingMetrics interface {
	IncCheckoutSession(result string)
	IncWebhookEvent(eventType, outcome string)
	IncSubscriptionTransition(upd domain.SubscriptionUpdate)
	ObserveProviderRequest(operation string, statusCode int, duration time.Duration)
}

type billingMetrics struct {
	checkoutSessions        *prometheus.CounterVec
	providerRequestDuration *prometheus.HistogramVec
	webhookEvents           *prometheus.CounterVec
	subscriptionTransitions *prometheus.CounterVec
}

// NewBillingMetrics регистрирует метрики биллинга в реестре
func NewBillingMetrics(registry prometheus.Registerer) BillingMetrics {
	factory := promauto.With(registry)
	return &billingMetrics{
		checkoutSessions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "billing_checkout_sessions_total",
				Help: "The total number of checkout session requests by result",
			},
			[]string{"result"},
		),
		providerRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "billing_provider_request_duration_seconds",
				Help:    "Latency of payment provider API calls",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation", "status"},
		),
		webhookEvents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "billing_webhook_events_total",
				Help: "The total number of received webhook events by type and outcome",
			},
			[]string{"type", "outcome"},
		),
		subscriptionTransitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "billing_subscription_transitions_total",
				Help: "The total number of applied subscription transitions",
			},
			[]string{"tier", "status"},
		),
	}
}

func (m *billingMetrics) IncCheckoutSession(result string) {
	m.checkoutSessions.WithLabelValues(result).Inc()
}

func (m *billingMetrics) IncWebhookEvent(eventType, outcome string) {
	if eventType == "" {
		eventType = "unknown"
	}
	m.webhookEvents.WithLabelValues(eventType, outcome).Inc()
}

func (m *billingMetrics) IncSubscriptionTransition(upd domain.SubscriptionUpdate) {
	m.subscriptionTransitions.WithLabelValues(string(upd.Tier), string(upd.Status)).Inc()
}

// ObserveProviderRequest реализует square.RequestObserver.
// Нулевой статус означает сетевую ошибку.
func (m *billingMetrics) ObserveProviderRequest(operation string, statusCode int, duration time.Duration) {
	status := "network_error"
	if statusCode > 0 {
		status = strconv.Itoa(statusCode)
	}
	m.providerRequestDuration.WithLabelValues(operation, status).Observe(duration.Seconds())
}

type nopMetrics struct{}

// NewNop возвращает метрики, которые ничего не записывают
func NewNop() BillingMetrics { return nopMetrics{} }

func (nopMetrics) IncCheckoutSession(string)                           {}
func (nopMetrics) IncWebhookEvent(string, string)                      {}
func (nopMetrics) IncSubscriptionTransition(domain.SubscriptionUpdate) {}
func (nopMetrics) ObserveProviderRequest(string, int, time.Duration)   {}
