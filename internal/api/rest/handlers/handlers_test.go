package handlers

import (
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ditch-app/billing-service/internal/domain"
)

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{domain.NewValidationError("userId", "User ID is required"), http.StatusBadRequest},
		{&domain.SignatureError{Reason: "mismatch"}, http.StatusBadRequest},
		{domain.NewConfigurationError("Server configuration error"), http.StatusInternalServerError},
		{domain.NewMalformedEventError("bad", nil), http.StatusInternalServerError},
		{domain.NewProviderError("square", http.StatusUnauthorized, "nope", nil), http.StatusUnauthorized},
		{domain.NewProviderError("square", 0, "network", nil), http.StatusInternalServerError},
		{fmt.Errorf("wrapped: %w", domain.ErrNotFound), http.StatusNotFound},
		{domain.ErrUnauthenticated, http.StatusUnauthorized},
		{domain.ErrForbidden, http.StatusForbidden},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, statusFor(tc.err), tc.err.Error())
	}
}

func TestRequestURL(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/square-webhook?a=b", nil)
	req.Host = "billing.example.com"
	assert.Equal(t, "http://billing.example.com/square-webhook?a=b", RequestURL(req))

	req.TLS = &tls.ConnectionState{}
	assert.Equal(t, "https://billing.example.com/square-webhook?a=b", RequestURL(req))

	req.TLS = nil
	req.Header.Set("X-Forwarded-Proto", "https, http")
	assert.Equal(t, "https://billing.example.com/square-webhook?a=b", RequestURL(req))
}
