package service

import (
	"context"
	"fmt"
	"time"

	"github.com/ditch-app/billing-service/internal/domain"
	"github.com/ditch-app/billing-service/internal/integration/square"
	"github.com/ditch-app/billing-service/internal/kafka"
	"github.com/ditch-app/billing-service/internal/metrics"
	"github.com/ditch-app/billing-service/internal/repository"
	"github.com/ditch-app/billing-service/pkg/logger"
)

// OrderRetriever получает заказ провайдера по идентификатору
type OrderRetriever interface {
	RetrieveOrder(ctx context.Context, orderID string) (*square.Order, error)
}

// WebhookSettings настройки проверки подписи
type WebhookSettings struct {
	SignatureKey     string
	RequireSignature bool
}

// WebhookDeps зависимости сервиса вебхуков. Ledger, Publisher и Metrics опциональны.
type WebhookDeps struct {
	Store     repository.SubscriptionStore
	Orders    OrderRetriever
	Ledger    repository.WebhookEventLedger
	Publisher kafka.Publisher
	Metrics   metrics.BillingMetrics
}

// ReconcileInput входящая доставка вебхука
type ReconcileInput struct {
	Body      []byte
	Signature string

	// URL полный адрес уведомления, участвующий в подписи
	URL string
}

// WebhookService интерфейс сервиса для работы с вебхуками
type WebhookService interface {
	// Reconcile проверяет доставку и применяет событие к подписке пользователя.
	// nil означает, что доставку нужно подтвердить ответом 200.
	Reconcile(ctx context.Context, in ReconcileInput) error
}

// webhookService реализация сервиса для работы с вебхуками
type webhookService struct {
	deps     WebhookDeps
	settings WebhookSettings
	now      func() time.Time
	log      *logger.Logger
}

// NewWebhookService создает новый сервис для работы с вебхуками
func NewWebhookService(deps WebhookDeps, settings WebhookSettings, log *logger.Logger) WebhookService {
	if deps.Metrics == nil {
		deps.Metrics = metrics.NewNop()
	}
	if settings.SignatureKey == "" && !settings.RequireSignature {
		log.Warnw("Webhook signature key is not configured, deliveries will not be verified")
	}
	return &webhookService{
		deps:     deps,
		settings: settings,
		now:      time.Now,
		log:      log,
	}
}

func (s *webhookService) Reconcile(ctx context.Context, in ReconcileInput) error {
	if s.deps.Store == nil {
		s.log.Errorw("Subscription store is not configured")
		return domain.NewConfigurationError(ErrMsgServerConfiguration)
	}

	signatureValid, err := s.verify(in)
	if err != nil {
		s.deps.Metrics.IncWebhookEvent("", metrics.OutcomeRejected)
		return err
	}

	event, err := square.ParseEvent(in.Body)
	if err != nil {
		s.deps.Metrics.IncWebhookEvent("", metrics.OutcomeRejected)
		s.log.Errorw("Failed to parse webhook event", "error", err)
		return err
	}

	s.log.Infow("Received webhook event", "type", event.Type, "eventID", event.EventID)

	record := s.record(ctx, event, in.Body, signatureValid)
	if record != nil && record.IsProcessed() {
		s.log.Infow("Webhook event already processed, skipping", "type", event.Type, "eventID", record.ProviderEventID, "attempts", record.AttemptCount)
		s.deps.Metrics.IncWebhookEvent(event.Type, metrics.OutcomeDuplicate)
		return nil
	}

	outcome, err := s.dispatch(ctx, event)
	if err != nil {
		s.deps.Metrics.IncWebhookEvent(event.Type, metrics.OutcomeFailed)
		s.markFailed(ctx, record, err)
		return err
	}

	s.deps.Metrics.IncWebhookEvent(event.Type, outcome)
	s.markProcessed(ctx, record)
	return nil
}

// verify возвращает признак проверенной подписи.
// Без ключа или заголовка проверка пропускается, если не включен строгий режим.
func (s *webhookService) verify(in ReconcileInput) (bool, error) {
	key := s.settings.SignatureKey
	if key == "" || in.Signature == "" {
		if !s.settings.RequireSignature {
			return false, nil
		}
		if key == "" {
			s.log.Errorw("Webhook signature is required but the signature key is not configured")
			return false, domain.NewConfigurationError(ErrMsgServerConfiguration)
		}
		s.log.Warnw("Webhook delivery without signature rejected")
		return false, &domain.SignatureError{Reason: "missing " + square.SignatureHeader + " header"}
	}

	if !square.VerifySignature(key, in.URL, in.Body, in.Signature) {
		s.log.Warnw("Webhook signature mismatch", "url", in.URL)
		return false, &domain.SignatureError{Reason: "signature mismatch"}
	}
	return true, nil
}

// dispatch применяет событие и возвращает исход для метрик
func (s *webhookService) dispatch(ctx context.Context, event *square.Event) (string, error) {
	eventType := domain.WebhookEventType(event.Type)
	switch {
	case eventType.IsPayment():
		return s.handlePayment(ctx, event)
	case eventType.IsSubscription():
		return s.handleSubscription(ctx, event)
	default:
		s.log.Infow("Unhandled webhook event type", "type", event.Type)
		return metrics.OutcomeIgnored, nil
	}
}

func (s *webhookService) handlePayment(ctx context.Context, event *square.Event) (string, error) {
	payment := event.Data.Object.Payment
	if !payment.IsCompleted() {
		s.log.Debugw("Payment is not completed, nothing to do", "paymentID", payment.ID, "status", payment.Status)
		return metrics.OutcomeIgnored, nil
	}
	if s.deps.Orders == nil {
		s.log.Warnw("Order lookup is not configured", "orderID", payment.OrderID)
		return metrics.OutcomeIgnored, nil
	}

	order, err := s.deps.Orders.RetrieveOrder(ctx, payment.OrderID)
	if err != nil {
		s.log.Warnw("Failed to retrieve order for completed payment", "orderID", payment.OrderID, "error", err)
		return metrics.OutcomeIgnored, nil
	}

	userID := order.UserID()
	if userID == "" {
		s.log.Warnw("Order has no user_id metadata", "orderID", payment.OrderID)
		return metrics.OutcomeIgnored, nil
	}

	return s.apply(ctx, event, userID, domain.PremiumActivation(s.now()))
}

func (s *webhookService) handleSubscription(ctx context.Context, event *square.Event) (string, error) {
	sub := event.Data.Object.Subscription
	userID := sub.UserID()
	if userID == "" {
		s.log.Warnw("Subscription has no user_id metadata", "subscriptionID", sub.ID)
		return metrics.OutcomeIgnored, nil
	}

	return s.apply(ctx, event, userID, domain.MapProviderSubscriptionStatus(sub.Status))
}

func (s *webhookService) apply(ctx context.Context, event *square.Event, userID string, upd domain.SubscriptionUpdate) (string, error) {
	rows, err := s.deps.Store.UpdateByUserID(ctx, userID, upd)
	if err != nil {
		s.log.Errorw("Failed to update subscription", "userID", userID, "error", err)
		return metrics.OutcomeFailed, fmt.Errorf("failed to update subscription: %w", err)
	}
	if rows == 0 {
		s.log.Warnw("No subscription rows matched", "userID", userID, "type", event.Type)
		return metrics.OutcomeIgnored, nil
	}

	s.log.Infow("Subscription updated", "userID", userID, "tier", upd.Tier, "status", upd.Status, "rows", rows)
	s.deps.Metrics.IncSubscriptionTransition(upd)
	s.publish(ctx, event, userID, upd)
	return metrics.OutcomeApplied, nil
}

func (s *webhookService) publish(ctx context.Context, event *square.Event, userID string, upd domain.SubscriptionUpdate) {
	if s.deps.Publisher == nil {
		return
	}
	changed := domain.SubscriptionChangedEvent{
		UserID:          userID,
		Tier:            upd.Tier,
		Status:          upd.Status,
		ExpiresAt:       upd.ExpiresAt,
		SourceEventType: event.Type,
		SourceEventID:   event.EventID,
		OccurredAt:      s.now().UTC(),
	}
	if err := s.deps.Publisher.PublishSubscriptionChanged(ctx, changed); err != nil {
		s.log.Errorw("Failed to publish subscription event", "userID", userID, "error", err)
	}
}

func (s *webhookService) record(ctx context.Context, event *square.Event, body []byte, signatureValid bool) *domain.WebhookEvent {
	if s.deps.Ledger == nil {
		return nil
	}
	// Без event_id одинаковые тела могут быть разными переходами, такие доставки не дедуплицируются
	if event.EventID == "" {
		s.log.Debugw("Webhook event has no event_id, ledger skipped", "type", event.Type)
		return nil
	}
	stored, _, err := s.deps.Ledger.CreateIfNotExists(ctx, &domain.WebhookEvent{
		Provider:        domain.ProviderSquare,
		ProviderEventID: event.EventID,
		EventType:       event.Type,
		Payload:         body,
		SignatureValid:  signatureValid,
	})
	if err != nil {
		s.log.Errorw("Failed to record webhook event", "type", event.Type, "error", err)
		return nil
	}
	return stored
}

func (s *webhookService) markProcessed(ctx context.Context, record *domain.WebhookEvent) {
	if record == nil {
		return
	}
	if err := s.deps.Ledger.MarkProcessed(ctx, record.ID); err != nil {
		s.log.Errorw("Failed to mark webhook event processed", "id", record.ID, "error", err)
	}
}

func (s *webhookService) markFailed(ctx context.Context, record *domain.WebhookEvent, cause error) {
	if record == nil {
		return
	}
	if err := s.deps.Ledger.MarkFailed(ctx, record.ID, cause.Error()); err != nil {
		s.log.Errorw("Failed to mark webhook event failed", "id", record.ID, "error", err)
	}
}
