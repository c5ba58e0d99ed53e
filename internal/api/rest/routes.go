package rest

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ditch-app/billing-service/internal/api/rest/handlers"
	"github.com/ditch-app/billing-service/internal/api/rest/middleware"
	"github.com/ditch-app/billing-service/internal/metrics"
	"github.com/ditch-app/billing-service/internal/service"
	"github.com/ditch-app/billing-service/pkg/logger"
)

// RouterDeps сервисы, которые обслуживает роутер
type RouterDeps struct {
	Checkout      service.CheckoutService
	Webhook       service.WebhookService
	Subscriptions service.SubscriptionService
	Auth          *middleware.JWTMiddleware
	Registry      *prometheus.Registry

	// WebhookURL адрес уведомлений для проверки подписи, пустой - из запроса
	WebhookURL string
}

// SetupRouter настраивает маршрутизатор Gin с маршрутами и middleware
func SetupRouter(deps RouterDeps, log *logger.Logger) *gin.Engine {
	r := gin.New()

	r.Use(middleware.LoggerMiddleware(log))
	r.Use(gin.Recovery())

	r.GET("/health", handlers.HealthCheck)
	if deps.Registry != nil {
		r.GET("/metrics", gin.WrapH(metrics.Handler(deps.Registry)))
	}

	auth := deps.Auth
	if auth == nil {
		auth = middleware.NewJWTMiddleware(nil, log)
	}

	checkoutHandler := handlers.NewCheckoutHandler(deps.Checkout, log)
	checkout := r.Group("/create-checkout-session", middleware.CORS(middleware.CheckoutCORS))
	{
		checkout.OPTIONS("", handlers.Preflight)
		checkout.POST("", auth.RequireAuth(), checkoutHandler.CreateSession)
	}

	webhookHandler := handlers.NewWebhookHandler(deps.Webhook, deps.WebhookURL, log)
	webhook := r.Group("/square-webhook", middleware.CORS(middleware.WebhookCORS))
	{
		webhook.OPTIONS("", handlers.Preflight)
		webhook.POST("", webhookHandler.HandleSquareWebhook)
	}

	subscriptionHandler := handlers.NewSubscriptionHandler(deps.Subscriptions, log)
	subscriptions := r.Group("/subscriptions", middleware.CORS(middleware.CheckoutCORS))
	{
		subscriptions.OPTIONS("/:userId", handlers.Preflight)
		subscriptions.GET("/:userId", auth.RequireAuth(), subscriptionHandler.GetSubscription)
	}

	return r
}
