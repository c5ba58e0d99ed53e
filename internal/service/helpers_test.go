package service

import (
	"context"
	"errors"
	"sync"

	"github.com/ditch-app/billing-service/internal/domain"
	"github.com/ditch-app/billing-service/internal/integration/square"
)

type fakeLinks struct {
	configured bool
	link       *square.PaymentLink
	err        error
	requests   []square.CreatePaymentLinkRequest
}

func (f *fakeLinks) Configured() bool { return f.configured }

func (f *fakeLinks) CreatePaymentLink(_ context.Context, in square.CreatePaymentLinkRequest) (*square.PaymentLink, error) {
	f.requests = append(f.requests, in)
	if f.err != nil {
		return nil, f.err
	}
	return f.link, nil
}

type fakeOrders struct {
	orders map[string]*square.Order
	err    error
	calls  int
}

func (f *fakeOrders) RetrieveOrder(_ context.Context, orderID string) (*square.Order, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	order, ok := f.orders[orderID]
	if !ok {
		return nil, errors.New("order not found")
	}
	return order, nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []domain.SubscriptionChangedEvent
	err    error
}

func (p *fakePublisher) PublishSubscriptionChanged(_ context.Context, event domain.SubscriptionChangedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *fakePublisher) Close() error { return nil }

// countingStore считает записи и может отдавать ошибку
type countingStore struct {
	updates int
	rows    int64
	err     error
}

func (s *countingStore) UpdateByUserID(context.Context, string, domain.SubscriptionUpdate) (int64, error) {
	s.updates++
	return s.rows, s.err
}

func (s *countingStore) GetByUserID(context.Context, string) (*domain.Subscription, error) {
	return nil, domain.ErrNotFound
}
