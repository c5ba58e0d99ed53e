package res

import "github.com/gin-gonic/gin"

// ErrorResponse формат JSON-ответа для ошибок: {"error": "..."}
type ErrorResponse struct {
	Error string `json:"error"`
}

// Error пишет конверт ошибки и прерывает цепочку gin-обработчиков.
func Error(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, ErrorResponse{Error: message})
}
