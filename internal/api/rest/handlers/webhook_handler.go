package handlers

import (
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ditch-app/billing-service/internal/integration/square"
	"github.com/ditch-app/billing-service/internal/service"
	"github.com/ditch-app/billing-service/pkg/logger"
	"github.com/ditch-app/billing-service/pkg/res"
)

// maxWebhookBody ограничение размера тела вебхука
const maxWebhookBody = 1 << 20

// WebhookHandler обработчик для вебхуков
type WebhookHandler struct {
	svc service.WebhookService

	// notificationURL адрес, зарегистрированный в Square. Пустой - восстанавливается из запроса.
	notificationURL string
	log             *logger.Logger
}

// NewWebhookHandler создает новый обработчик вебхуков
func NewWebhookHandler(svc service.WebhookService, notificationURL string, log *logger.Logger) *WebhookHandler {
	return &WebhookHandler{svc: svc, notificationURL: notificationURL, log: log}
}

// HandleSquareWebhook обрабатывает POST /square-webhook
func (h *WebhookHandler) HandleSquareWebhook(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody+1))
	if err != nil {
		h.log.Errorw("Failed to read webhook body", "error", err)
		res.Error(c, http.StatusBadRequest, "Failed to read webhook body")
		return
	}
	if len(body) > maxWebhookBody {
		h.log.Warnw("Webhook body exceeds limit", "limit", maxWebhookBody)
		res.Error(c, http.StatusRequestEntityTooLarge, "Webhook body too large")
		return
	}

	err = h.svc.Reconcile(c.Request.Context(), service.ReconcileInput{
		Body:      body,
		Signature: c.GetHeader(square.SignatureHeader),
		URL:       h.requestURL(c.Request),
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}

func (h *WebhookHandler) requestURL(r *http.Request) string {
	if h.notificationURL != "" {
		return h.notificationURL
	}
	return RequestURL(r)
}

// RequestURL восстанавливает полный URL запроса с учетом прокси
func RequestURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = strings.TrimSpace(strings.Split(proto, ",")[0])
	}
	return scheme + "://" + r.Host + r.URL.RequestURI()
}
