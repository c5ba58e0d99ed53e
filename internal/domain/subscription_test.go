package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMapProviderSubscriptionStatus(t *testing.T) {
	tests := []struct {
		name       string
		status     string
		wantTier   SubscriptionTier
		wantStatus SubscriptionStatus
	}{
		{"active", "ACTIVE", SubscriptionTierPremium, SubscriptionStatusActive},
		{"canceled", "CANCELED", SubscriptionTierFree, SubscriptionStatusCancelled},
		{"paused", "PAUSED", SubscriptionTierFree, SubscriptionStatusExpired},
		{"deactivated", "DEACTIVATED", SubscriptionTierFree, SubscriptionStatusExpired},
		{"pending", "PENDING", SubscriptionTierFree, SubscriptionStatusExpired},
		{"empty", "", SubscriptionTierFree, SubscriptionStatusExpired},
		{"lowercase is not active", "active", SubscriptionTierFree, SubscriptionStatusExpired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapProviderSubscriptionStatus(tt.status)
			assert.Equal(t, tt.wantTier, got.Tier)
			assert.Equal(t, tt.wantStatus, got.Status)
			assert.Nil(t, got.ExpiresAt, "subscription events must not touch expires_at")
		})
	}
}

func TestPremiumActivation_AddsOneCalendarMonth(t *testing.T) {
	now := time.Date(2024, time.January, 15, 10, 30, 0, 0, time.UTC)

	upd := PremiumActivation(now)

	assert.Equal(t, SubscriptionTierPremium, upd.Tier)
	assert.Equal(t, SubscriptionStatusActive, upd.Status)
	if assert.NotNil(t, upd.ExpiresAt) {
		assert.Equal(t, time.Date(2024, time.February, 15, 10, 30, 0, 0, time.UTC), *upd.ExpiresAt)
		assert.False(t, upd.ExpiresAt.Before(now))
	}
}

func TestSubscription_IsEntitled(t *testing.T) {
	tests := []struct {
		tier   SubscriptionTier
		status SubscriptionStatus
		want   bool
	}{
		{SubscriptionTierFree, SubscriptionStatusActive, false},
		{SubscriptionTierPremium, SubscriptionStatusActive, true},
		{SubscriptionTierLifetime, SubscriptionStatusActive, true},
		{SubscriptionTierPremium, SubscriptionStatusCancelled, false},
		{SubscriptionTierPremium, SubscriptionStatusExpired, false},
	}

	for _, tt := range tests {
		sub := Subscription{Tier: tt.tier, Status: tt.status}
		assert.Equal(t, tt.want, sub.IsEntitled(), "%s/%s", tt.tier, tt.status)
	}
}
