package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
)

// Every endpoint answers with the same envelope: success plus either a
// data payload or a human-readable message, always timestamped.
type Response struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Message   string      `json:"message,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

func respondData(c *gin.Context, status int, data interface{}) {
	c.JSON(status, Response{
		Success:   true,
		Data:      data,
		Timestamp: time.Now(),
	})
}

func respondMessage(c *gin.Context, status int, message string) {
	c.JSON(status, Response{
		Success:   true,
		Message:   message,
		Timestamp: time.Now(),
	})
}

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, Response{
		Success:   false,
		Message:   message,
		Timestamp: time.Now(),
	})
}
