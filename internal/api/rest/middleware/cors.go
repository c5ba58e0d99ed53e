package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// CORSPolicy заголовки CORS одного маршрута
type CORSPolicy struct {
	AllowOrigin  string
	AllowMethods string
	AllowHeaders string
}

// CheckoutCORS политика для /create-checkout-session и /subscriptions
var CheckoutCORS = CORSPolicy{
	AllowOrigin:  "*",
	AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	AllowHeaders: "Content-Type, Authorization, X-Client-Info, Apikey",
}

// WebhookCORS политика для /square-webhook
var WebhookCORS = CORSPolicy{
	AllowOrigin:  "*",
	AllowMethods: "POST, OPTIONS",
	AllowHeaders: "Content-Type, Authorization, X-Client-Info, Apikey, X-Square-Signature",
}

// CORS выставляет заголовки на каждый ответ, включая ошибки.
// Preflight (OPTIONS) завершается ответом 200 без тела.
func CORS(policy CORSPolicy) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", policy.AllowOrigin)
		h.Set("Access-Control-Allow-Methods", policy.AllowMethods)
		h.Set("Access-Control-Allow-Headers", policy.AllowHeaders)

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusOK)
			return
		}
		c.Next()
	}
}
