package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ditch-app/billing-service/internal/api/rest/middleware"
	"github.com/ditch-app/billing-service/internal/domain"
	"github.com/ditch-app/billing-service/internal/service"
	"github.com/ditch-app/billing-service/pkg/logger"
	"github.com/ditch-app/billing-service/pkg/req"
	"github.com/ditch-app/billing-service/pkg/res"
)

// CreateCheckoutRequest тело POST /create-checkout-session
type CreateCheckoutRequest struct {
	UserID string `json:"userId" validate:"required"`
}

// CheckoutHandler обработчик создания checkout-сессий
type CheckoutHandler struct {
	svc service.CheckoutService
	log *logger.Logger
}

// NewCheckoutHandler создает новый обработчик checkout
func NewCheckoutHandler(svc service.CheckoutService, log *logger.Logger) *CheckoutHandler {
	return &CheckoutHandler{svc: svc, log: log}
}

// CreateSession обрабатывает POST /create-checkout-session
func (h *CheckoutHandler) CreateSession(c *gin.Context) {
	// без учетных данных Square тело даже не читаем
	if !h.svc.Configured() {
		writeError(c, domain.NewConfigurationError(service.ErrMsgSquareNotConfigured))
		return
	}

	body, err := req.Decode[CreateCheckoutRequest](c.Request.Body)
	if err != nil && !errors.Is(err, req.ErrEmptyBody) {
		h.log.Warnw("Invalid checkout request body", "error", err)
		res.Error(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := req.IsValid(body); err != nil {
		h.log.Warnw("Checkout request failed validation", "field", req.FirstInvalidField(err))
		writeError(c, domain.NewValidationError("userId", service.ErrMsgUserIDRequired))
		return
	}

	if !middleware.CanAccessUser(c, body.UserID) {
		writeError(c, domain.ErrForbidden)
		return
	}

	session, err := h.svc.CreateSession(c.Request.Context(), body.UserID, c.GetHeader("Origin"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, session)
}
