package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Financial-Times/session-user-data-service-sub000/internal/infrastructure/observability/logging"
	"github.com/Financial-Times/session-user-data-service-sub000/internal/infrastructure/observability/performance"
)

// Pinger reports document-store reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandlers contains the operational endpoints
type HealthHandlers struct {
	documents   Pinger
	logger      *logging.ChanneledLogger
	perfTracker *performance.Tracker
}

// NewHealthHandlers creates health handlers with injected dependencies
func NewHealthHandlers(documents Pinger, logger *logging.ChanneledLogger, perfTracker *performance.Tracker) *HealthHandlers {
	return &HealthHandlers{
		documents:   documents,
		logger:      logger,
		perfTracker: perfTracker,
	}
}

// GTG is the good-to-go probe. The service can serve reads without its
// document store, so only the process itself gates the answer.
func (h *HealthHandlers) GTG(c *gin.Context) {
	c.String(http.StatusOK, "OK")
}

// Health reports the document-store connection state plus aggregate
// request statistics.
func (h *HealthHandlers) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	checks := gin.H{"documentStore": "ok"}
	healthy := true
	if err := h.documents.Ping(ctx); err != nil {
		h.logger.Database().Warn("Health probe failed to reach document store", "error", err)
		checks["documentStore"] = err.Error()
		healthy = false
	}

	c.JSON(http.StatusOK, gin.H{
		"healthy": healthy,
		"checks":  checks,
		"stats":   h.perfTracker.GetOverallStats(),
	})
}
