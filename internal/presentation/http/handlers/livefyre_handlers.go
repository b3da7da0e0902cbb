package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Financial-Times/session-user-data-service-sub000/internal/application/services"
	"github.com/Financial-Times/session-user-data-service-sub000/internal/infrastructure/observability/logging"
	"github.com/Financial-Times/session-user-data-service-sub000/internal/infrastructure/observability/performance"
	"github.com/Financial-Times/session-user-data-service-sub000/internal/presentation/http/middleware"
)

// LivefyreHandlers contains the comment-widget HTTP handlers
type LivefyreHandlers struct {
	livefyreService *services.LivefyreService
	logger          *logging.ChanneledLogger
	perfTracker     *performance.Tracker
}

// NewLivefyreHandlers creates comment-widget handlers with injected dependencies
func NewLivefyreHandlers(livefyreService *services.LivefyreService, logger *logging.ChanneledLogger, perfTracker *performance.Tracker) *LivefyreHandlers {
	return &LivefyreHandlers{
		livefyreService: livefyreService,
		logger:          logger,
		perfTracker:     perfTracker,
	}
}

// Init returns collection details plus, when a session is presented, the
// auth bundle, assembled in parallel.
func (h *LivefyreHandlers) Init(c *gin.Context) {
	marker := h.perfTracker.StartOperation("livefyre:init", middleware.GetRequestID(c))
	defer h.perfTracker.CompleteOperation(marker)

	articleID := c.Query("articleId")
	title := c.Query("title")
	articleURL := c.Query("url")
	if articleID == "" || articleURL == "" {
		marker.SetSuccess(false)
		c.JSON(http.StatusBadRequest, gin.H{"error": "articleId and url are required"})
		return
	}
	marker.AddMetadata("articleId", articleID)

	data, err := h.livefyreService.InitData(c.Request.Context(), articleID, title, articleURL, sessionID(c))
	if err != nil {
		marker.SetError(err)
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, data)
}

// Metadata returns the article's merged tag set.
func (h *LivefyreHandlers) Metadata(c *gin.Context) {
	marker := h.perfTracker.StartOperation("livefyre:metadata", middleware.GetRequestID(c))
	defer h.perfTracker.CompleteOperation(marker)

	articleID := c.Query("articleId")
	articleURL := c.Query("url")
	if articleID == "" {
		marker.SetSuccess(false)
		c.JSON(http.StatusBadRequest, gin.H{"error": "articleId is required"})
		return
	}

	tags, err := h.livefyreService.Tags(c.Request.Context(), articleID, articleURL)
	if err != nil {
		marker.SetError(err)
		respondError(c, err)
		return
	}
	if tags == nil {
		tags = []string{}
	}
	c.JSON(http.StatusOK, tags)
}

// GetCollectionDetails returns the signed collection metadata on its own.
func (h *LivefyreHandlers) GetCollectionDetails(c *gin.Context) {
	marker := h.perfTracker.StartOperation("livefyre:collectionDetails", middleware.GetRequestID(c))
	defer h.perfTracker.CompleteOperation(marker)

	articleID := c.Query("articleId")
	title := c.Query("title")
	articleURL := c.Query("url")
	if articleID == "" || articleURL == "" {
		marker.SetSuccess(false)
		c.JSON(http.StatusBadRequest, gin.H{"error": "articleId and url are required"})
		return
	}

	details, err := h.livefyreService.CollectionDetails(c.Request.Context(), articleID, title, articleURL)
	if err != nil {
		marker.SetError(err)
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, details)
}
