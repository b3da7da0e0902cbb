// Package handlers provides the HTTP handlers for the comment-widget and
// user endpoints.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Financial-Times/session-user-data-service-sub000/internal/domain/errors"
)

// respondError maps a tagged domain error onto an HTTP status. Unclassified
// articles read as not found: the widget treats both the same way.
func respondError(c *gin.Context, err error) {
	switch errors.KindOf(err) {
	case errors.KindNotFound, errors.KindUnclassified:
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.KindInvalidInput, errors.KindBadRequest:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.KindServiceUnavailable:
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "a backing service is unavailable"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// sessionID extracts the caller's session from the query string or the
// site's session cookie.
func sessionID(c *gin.Context) string {
	if id := c.Query("sessionId"); id != "" {
		return id
	}
	if cookie, err := c.Cookie("FTSession"); err == nil {
		return cookie
	}
	return ""
}
