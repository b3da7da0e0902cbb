package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/Financial-Times/session-user-data-service-sub000/internal/infrastructure/security"
)

const requestIDKey = "requestId"

// RequestID tags every request with a ULID, echoed in the response header
// so log lines can be correlated with client reports. An incoming
// X-Request-Id is honored.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-Id")
		if id == "" {
			id = security.GenerateULID()
		}
		c.Set(requestIDKey, id)
		c.Header("X-Request-Id", id)
		c.Next()
	}
}

// GetRequestID returns the request's correlation ID.
func GetRequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}
