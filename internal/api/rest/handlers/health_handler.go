package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// HealthCheck обработчик для проверки работоспособности сервиса
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "OK",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// Preflight пустой обработчик OPTIONS, ответ формирует CORS middleware
func Preflight(c *gin.Context) {
	c.Status(http.StatusOK)
}
