package square

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/ditch-app/billing-service/internal/domain"
)

const (
	operationCreatePaymentLink = "create_payment_link"

	// MetadataUserIDKey ключ метаданных заказа с идентификатором пользователя
	MetadataUserIDKey = "user_id"

	// DefaultCheckoutErrorMessage сообщение, если Square не прислал detail
	DefaultCheckoutErrorMessage = "Failed to create checkout session"
)

// ErrMissingPaymentLink успешный ответ Square без payment_link
var ErrMissingPaymentLink = errors.New("square: response does not contain a payment link")

// Money сумма в минимальных единицах валюты
type Money struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// LineItem позиция заказа
type LineItem struct {
	Name           string `json:"name"`
	Quantity       string `json:"quantity"`
	BasePriceMoney Money  `json:"base_price_money"`
}

// Order заказ Square. Metadata хранит user_id, по которому вебхук находит пользователя.
type Order struct {
	ID         string            `json:"id,omitempty"`
	LocationID string            `json:"location_id"`
	State      string            `json:"state,omitempty"`
	LineItems  []LineItem        `json:"line_items,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// UserID возвращает user_id из метаданных заказа
func (o *Order) UserID() string {
	if o == nil {
		return ""
	}
	return o.Metadata[MetadataUserIDKey]
}

// CheckoutOptions настройки страницы оплаты
type CheckoutOptions struct {
	RedirectURL          string `json:"redirect_url,omitempty"`
	MerchantSupportEmail string `json:"merchant_support_email,omitempty"`
	SubscriptionPlanID   string `json:"subscription_plan_id,omitempty"`
}

// CreatePaymentLinkRequest тело POST /v2/online-checkout/payment-links
type CreatePaymentLinkRequest struct {
	IdempotencyKey  string           `json:"idempotency_key"`
	Order           Order            `json:"order"`
	CheckoutOptions *CheckoutOptions `json:"checkout_options,omitempty"`
	PaymentNote     string           `json:"payment_note,omitempty"`
}

// PaymentLink созданная ссылка на оплату
type PaymentLink struct {
	ID      string `json:"id"`
	URL     string `json:"url"`
	OrderID string `json:"order_id,omitempty"`
}

type createPaymentLinkResponse struct {
	PaymentLink *PaymentLink `json:"payment_link"`
	Errors      []APIError   `json:"errors"`
}

// CreatePaymentLink создает ссылку на оплату. Один вызов - один запрос, без повторов:
// повтор с тем же idempotency_key должен делать вызывающий.
func (c *Client) CreatePaymentLink(ctx context.Context, in CreatePaymentLinkRequest) (*PaymentLink, error) {
	if in.Order.LocationID == "" {
		in.Order.LocationID = c.cfg.LocationID
	}

	status, body, err := c.do(ctx, operationCreatePaymentLink, http.MethodPost, "/v2/online-checkout/payment-links", in)
	if err != nil {
		return nil, err
	}

	if !isSuccess(status) {
		message := firstErrorDetail(body)
		if message == "" {
			message = DefaultCheckoutErrorMessage
		}
		c.log.Errorw("Square API error while creating payment link", "status", status, "detail", message)
		return nil, domain.NewProviderError(serviceName, status, message, nil)
	}

	var out createPaymentLinkResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("square: failed to decode payment link response: %w", err)
	}
	if out.PaymentLink == nil || out.PaymentLink.URL == "" {
		return nil, ErrMissingPaymentLink
	}

	c.log.Infow("Square payment link created", "paymentLinkID", out.PaymentLink.ID, "orderID", out.PaymentLink.OrderID)
	return out.PaymentLink, nil
}
