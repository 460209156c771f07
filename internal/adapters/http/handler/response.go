package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	statusSuccess = "success"
	statusError   = "error"
)

// Envelope は全レスポンス共通の形式です。
type Envelope struct {
	Status  string `json:"status"`
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func respond(c *gin.Context, code int, data any) {
	c.JSON(code, Envelope{
		Status:  statusSuccess,
		Code:    code,
		Message: http.StatusText(code),
		Data:    data,
	})
}

func respondError(c *gin.Context, code int, message string) {
	c.JSON(code, Envelope{
		Status:  statusError,
		Code:    code,
		Message: message,
	})
}
