package repository

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/ditch-app/billing-service/internal/domain"
)

const (
	// DefaultLedgerSize максимальное число записей журнала в памяти
	DefaultLedgerSize = 10000
	// DefaultLedgerTTL время хранения записи, покрывает окно повторных доставок Square
	DefaultLedgerTTL = 72 * time.Hour
)

// WebhookEventLedger журнал входящих вебхуков для дедупликации повторных доставок
type WebhookEventLedger interface {
	// CreateIfNotExists сохраняет событие, если пары (provider, provider_event_id) еще нет.
	// Возвращает сохраненную запись и признак того, что она создана этим вызовом.
	CreateIfNotExists(ctx context.Context, event *domain.WebhookEvent) (*domain.WebhookEvent, bool, error)
	// MarkProcessed отмечает событие как успешно обработанное
	MarkProcessed(ctx context.Context, id uuid.UUID) error
	// MarkFailed отмечает событие как завершившееся ошибкой
	MarkFailed(ctx context.Context, id uuid.UUID, processingErr string) error
}

// InMemoryWebhookEventLedger журнал вебхуков в памяти.
// Размер и время жизни записей ограничены, тело события не хранится после обработки.
type InMemoryWebhookEventLedger struct {
	mu     sync.Mutex
	events *expirable.LRU[string, *domain.WebhookEvent]
	byID   *expirable.LRU[uuid.UUID, string]
	now    func() time.Time
}

// NewInMemoryWebhookEventLedger создает журнал в памяти с ограничениями по умолчанию
func NewInMemoryWebhookEventLedger() *InMemoryWebhookEventLedger {
	return NewBoundedWebhookEventLedger(DefaultLedgerSize, DefaultLedgerTTL)
}

// NewBoundedWebhookEventLedger создает журнал не больше size записей, каждая живет ttl
func NewBoundedWebhookEventLedger(size int, ttl time.Duration) *InMemoryWebhookEventLedger {
	return &InMemoryWebhookEventLedger{
		events: expirable.NewLRU[string, *domain.WebhookEvent](size, nil, ttl),
		byID:   expirable.NewLRU[uuid.UUID, string](size, nil, ttl),
		now:    time.Now,
	}
}

func ledgerKey(provider, eventID string) string {
	return provider + "/" + eventID
}

// CreateIfNotExists реализует WebhookEventLedger
func (l *InMemoryWebhookEventLedger) CreateIfNotExists(_ context.Context, event *domain.WebhookEvent) (*domain.WebhookEvent, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := ledgerKey(event.Provider, event.ProviderEventID)
	if stored, ok := l.events.Get(key); ok {
		stored.AttemptCount++
		stored.UpdatedAt = l.now()
		cp := *stored
		return &cp, false, nil
	}

	now := l.now()
	stored := *event
	stored.ID = uuid.New()
	stored.Status = domain.WebhookEventStatusPending
	stored.AttemptCount = 1
	stored.CreatedAt = now
	stored.UpdatedAt = now
	l.events.Add(key, &stored)
	l.byID.Add(stored.ID, key)

	cp := stored
	return &cp, true, nil
}

// MarkProcessed реализует WebhookEventLedger
func (l *InMemoryWebhookEventLedger) MarkProcessed(_ context.Context, id uuid.UUID) error {
	return l.update(id, func(e *domain.WebhookEvent) {
		now := l.now()
		e.Status = domain.WebhookEventStatusProcessed
		e.ProcessedAt = &now
		e.ProcessingError = nil
		e.Payload = nil
	})
}

// MarkFailed реализует WebhookEventLedger
func (l *InMemoryWebhookEventLedger) MarkFailed(_ context.Context, id uuid.UUID, processingErr string) error {
	return l.update(id, func(e *domain.WebhookEvent) {
		e.Status = domain.WebhookEventStatusFailed
		e.ProcessingError = &processingErr
	})
}

func (l *InMemoryWebhookEventLedger) update(id uuid.UUID, fn func(e *domain.WebhookEvent)) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	key, ok := l.byID.Get(id)
	if !ok {
		return ErrNotFound
	}
	e, ok := l.events.Get(key)
	if !ok {
		return ErrNotFound
	}
	fn(e)
	e.UpdatedAt = l.now()
	return nil
}

// Get возвращает копию записи по provider и provider_event_id
func (l *InMemoryWebhookEventLedger) Get(provider, eventID string) (domain.WebhookEvent, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.events.Peek(ledgerKey(provider, eventID))
	if !ok {
		return domain.WebhookEvent{}, false
	}
	return *e, true
}

// Len число записей в журнале
func (l *InMemoryWebhookEventLedger) Len() int {
	return l.events.Len()
}
