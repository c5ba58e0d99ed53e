package service

import (
	"context"
	"strings"
	"time"

	"github.com/ditch-app/billing-service/internal/domain"
	"github.com/ditch-app/billing-service/internal/repository"
	"github.com/ditch-app/billing-service/pkg/logger"
)

// ErrMsgServerConfiguration ответ, если хранилище подписок не настроено
const ErrMsgServerConfiguration = "Server configuration error"

// SubscriptionView ответ GET /subscriptions/:userId
type SubscriptionView struct {
	UserID    string                    `json:"user_id"`
	Tier      domain.SubscriptionTier   `json:"tier"`
	Status    domain.SubscriptionStatus `json:"status"`
	StartedAt time.Time                 `json:"started_at"`
	ExpiresAt *time.Time                `json:"expires_at"`
	Entitled  bool                      `json:"entitled"`
}

// NewSubscriptionView собирает ответ из строки подписки
func NewSubscriptionView(sub *domain.Subscription) SubscriptionView {
	return SubscriptionView{
		UserID:    sub.UserID,
		Tier:      sub.Tier,
		Status:    sub.Status,
		StartedAt: sub.StartedAt,
		ExpiresAt: sub.ExpiresAt,
		Entitled:  sub.IsEntitled(),
	}
}

// SubscriptionService чтение текущей подписки пользователя
type SubscriptionService interface {
	Get(ctx context.Context, userID string) (*domain.Subscription, error)
}

type subscriptionService struct {
	store repository.SubscriptionStore
	log   *logger.Logger
}

// NewSubscriptionService создает сервис чтения подписок. store может быть nil,
// тогда каждый вызов возвращает ошибку конфигурации.
func NewSubscriptionService(store repository.SubscriptionStore, log *logger.Logger) SubscriptionService {
	return &subscriptionService{store: store, log: log}
}

func (s *subscriptionService) Get(ctx context.Context, userID string) (*domain.Subscription, error) {
	if s.store == nil {
		return nil, domain.NewConfigurationError(ErrMsgServerConfiguration)
	}
	if strings.TrimSpace(userID) == "" {
		return nil, domain.NewValidationError("userId", ErrMsgUserIDRequired)
	}

	s.log.Debugw("Getting subscription", "userID", userID)
	return s.store.GetByUserID(ctx, userID)
}
