package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ditch-app/billing-service/internal/api/rest/middleware"
	"github.com/ditch-app/billing-service/internal/domain"
	"github.com/ditch-app/billing-service/internal/service"
	"github.com/ditch-app/billing-service/pkg/logger"
	"github.com/ditch-app/billing-service/pkg/res"
)

// SubscriptionHandler обработчик чтения подписок
type SubscriptionHandler struct {
	svc service.SubscriptionService
	log *logger.Logger
}

// NewSubscriptionHandler создает новый обработчик подписок
func NewSubscriptionHandler(svc service.SubscriptionService, log *logger.Logger) *SubscriptionHandler {
	return &SubscriptionHandler{svc: svc, log: log}
}

// GetSubscription обрабатывает GET /subscriptions/:userId
func (h *SubscriptionHandler) GetSubscription(c *gin.Context) {
	userID := c.Param("userId")
	if !middleware.CanAccessUser(c, userID) {
		writeError(c, domain.ErrForbidden)
		return
	}

	sub, err := h.svc.Get(c.Request.Context(), userID)
	if err != nil {
		if statusFor(err) == http.StatusNotFound {
			res.Error(c, http.StatusNotFound, "Subscription not found")
			return
		}
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, service.NewSubscriptionView(sub))
}
