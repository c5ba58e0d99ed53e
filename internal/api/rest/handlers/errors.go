package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ditch-app/billing-service/internal/domain"
	"github.com/ditch-app/billing-service/pkg/res"
)

// statusFor сопоставляет ошибку домена HTTP статусу
func statusFor(err error) int {
	var (
		validationErr *domain.ValidationError
		configErr     *domain.ConfigurationError
		signatureErr  *domain.SignatureError
		providerErr   *domain.ProviderError
		malformedErr  *domain.MalformedEventError
	)

	switch {
	case errors.As(err, &validationErr), errors.As(err, &signatureErr):
		return http.StatusBadRequest
	case errors.As(err, &providerErr):
		if providerErr.StatusCode >= 400 && providerErr.StatusCode <= 599 {
			return providerErr.StatusCode
		}
		return http.StatusInternalServerError
	case errors.As(err, &configErr), errors.As(err, &malformedErr):
		return http.StatusInternalServerError
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// writeError пишет {"error": "..."} со статусом, соответствующим ошибке
func writeError(c *gin.Context, err error) {
	_ = c.Error(err)
	res.Error(c, statusFor(err), err.Error())
}
