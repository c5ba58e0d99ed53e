package square

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"

	"github.com/ditch-app/billing-service/internal/domain"
)

// SignatureHeader заголовок с подписью вебхука
const SignatureHeader = "X-Square-Signature"

// Статус платежа, после которого выдается премиум
const PaymentStatusCompleted = "COMPLETED"

// ComputeSignature считает base64(SHA-256(key + notificationURL + body))
func ComputeSignature(signatureKey, notificationURL string, body []byte) string {
	h := sha256.New()
	h.Write([]byte(signatureKey))
	h.Write([]byte(notificationURL))
	h.Write(body)
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

// VerifySignature сравнивает подпись из заголовка с вычисленной за постоянное время
func VerifySignature(signatureKey, notificationURL string, body []byte, signature string) bool {
	expected := ComputeSignature(signatureKey, notificationURL, body)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(signature)) == 1
}

// Event конверт вебхука Square
type Event struct {
	Type       string    `json:"type"`
	EventID    string    `json:"event_id,omitempty"`
	MerchantID string    `json:"merchant_id,omitempty"`
	CreatedAt  string    `json:"created_at,omitempty"`
	Data       EventData `json:"data"`
}

// EventData поле data конверта
type EventData struct {
	Type   string      `json:"type,omitempty"`
	ID     string      `json:"id,omitempty"`
	Object EventObject `json:"object"`
}

// EventObject содержит объект события. Заполнено только поле, соответствующее типу.
type EventObject struct {
	Payment      *Payment      `json:"payment,omitempty"`
	Subscription *Subscription `json:"subscription,omitempty"`
}

// Payment объект платежа в событиях payment.*
type Payment struct {
	ID      string `json:"id,omitempty"`
	Status  string `json:"status"`
	OrderID string `json:"order_id,omitempty"`
}

// IsCompleted возвращает true для завершенного платежа, привязанного к заказу
func (p *Payment) IsCompleted() bool {
	return p != nil && p.Status == PaymentStatusCompleted && p.OrderID != ""
}

// Subscription объект подписки в событиях subscription.*
type Subscription struct {
	ID         string            `json:"id,omitempty"`
	Status     string            `json:"status"`
	PlanID     string            `json:"plan_id,omitempty"`
	CustomerID string            `json:"customer_id,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// UserID возвращает user_id из метаданных подписки
func (s *Subscription) UserID() string {
	if s == nil {
		return ""
	}
	return s.Metadata[MetadataUserIDKey]
}

// ParseEvent разбирает тело вебхука и проверяет форму конверта.
// Для событий payment.* и subscription.* соответствующий объект обязателен.
func ParseEvent(body []byte) (*Event, error) {
	var event Event
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, domain.NewMalformedEventError("body is not valid JSON", err)
	}
	if event.Type == "" {
		return nil, domain.NewMalformedEventError("event type is missing", nil)
	}

	eventType := domain.WebhookEventType(event.Type)
	switch {
	case eventType.IsPayment() && event.Data.Object.Payment == nil:
		return nil, domain.NewMalformedEventError(event.Type+" event has no payment object", nil)
	case eventType.IsSubscription() && event.Data.Object.Subscription == nil:
		return nil, domain.NewMalformedEventError(event.Type+" event has no subscription object", nil)
	}
	return &event, nil
}
