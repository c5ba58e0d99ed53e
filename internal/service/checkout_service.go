package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/ditch-app/billing-service/internal/domain"
	"github.com/ditch-app/billing-service/internal/integration/square"
	"github.com/ditch-app/billing-service/internal/metrics"
	"github.com/ditch-app/billing-service/pkg/logger"
)

// Сообщения об ошибках checkout
const (
	ErrMsgSquareNotConfigured = "Square is not configured. Please add your Square access token and location ID."
	ErrMsgUserIDRequired      = "User ID is required"
)

// PaymentLinkCreator создает ссылки на оплату у провайдера
type PaymentLinkCreator interface {
	Configured() bool
	CreatePaymentLink(ctx context.Context, in square.CreatePaymentLinkRequest) (*square.PaymentLink, error)
}

// CheckoutSettings параметры товара и страницы оплаты
type CheckoutSettings struct {
	ItemName           string
	PriceCents         int64
	Currency           string
	SupportEmail       string
	DefaultOrigin      string
	SubscriptionPlanID string
}

// CheckoutSession ответ POST /create-checkout-session
type CheckoutSession struct {
	URL        string `json:"url"`
	CheckoutID string `json:"checkoutId"`
}

// CheckoutService интерфейс сервиса создания checkout-сессий
type CheckoutService interface {
	// Configured возвращает false, если не заданы учетные данные Square
	Configured() bool
	// CreateSession создает ссылку на оплату премиума для пользователя.
	// origin используется для redirect_url, пустой заменяется значением по умолчанию.
	CreateSession(ctx context.Context, userID, origin string) (*CheckoutSession, error)
}

type checkoutService struct {
	links    PaymentLinkCreator
	settings CheckoutSettings
	metrics  metrics.BillingMetrics
	newKey   func() string
	log      *logger.Logger
}

// NewCheckoutService создает новый сервис checkout
func NewCheckoutService(links PaymentLinkCreator, settings CheckoutSettings, m metrics.BillingMetrics, log *logger.Logger) CheckoutService {
	if m == nil {
		m = metrics.NewNop()
	}
	return &checkoutService{
		links:    links,
		settings: settings,
		metrics:  m,
		newKey:   uuid.NewString,
		log:      log,
	}
}

func (s *checkoutService) Configured() bool {
	return s.links != nil && s.links.Configured()
}

func (s *checkoutService) CreateSession(ctx context.Context, userID, origin string) (*CheckoutSession, error) {
	if !s.Configured() {
		s.metrics.IncCheckoutSession(metrics.CheckoutResultNotConfigured)
		return nil, domain.NewConfigurationError(ErrMsgSquareNotConfigured)
	}
	if strings.TrimSpace(userID) == "" {
		s.metrics.IncCheckoutSession(metrics.CheckoutResultInvalid)
		return nil, domain.NewValidationError("userId", ErrMsgUserIDRequired)
	}
	if origin == "" {
		origin = s.settings.DefaultOrigin
	}

	s.log.Infow("Creating checkout session", "userID", userID)

	link, err := s.links.CreatePaymentLink(ctx, s.buildRequest(userID, origin))
	if err != nil {
		s.metrics.IncCheckoutSession(metrics.CheckoutResultProviderError)
		var providerErr *domain.ProviderError
		if errors.As(err, &providerErr) {
			s.log.Errorw("Failed to create checkout session", "userID", userID, "error", providerErr.Describe())
		} else {
			s.log.Errorw("Failed to create checkout session", "userID", userID, "error", err)
		}
		return nil, err
	}

	s.metrics.IncCheckoutSession(metrics.CheckoutResultCreated)
	return &CheckoutSession{URL: link.URL, CheckoutID: link.ID}, nil
}

func (s *checkoutService) buildRequest(userID, origin string) square.CreatePaymentLinkRequest {
	return square.CreatePaymentLinkRequest{
		IdempotencyKey: s.newKey(),
		Order: square.Order{
			LineItems: []square.LineItem{{
				Name:     s.settings.ItemName,
				Quantity: "1",
				BasePriceMoney: square.Money{
					Amount:   s.settings.PriceCents,
					Currency: s.settings.Currency,
				},
			}},
			Metadata: map[string]string{square.MetadataUserIDKey: userID},
		},
		CheckoutOptions: &square.CheckoutOptions{
			RedirectURL:          strings.TrimRight(origin, "/") + "/?success=true",
			MerchantSupportEmail: s.settings.SupportEmail,
			SubscriptionPlanID:   s.settings.SubscriptionPlanID,
		},
		PaymentNote: "Premium subscription for user: " + userID,
	}
}
