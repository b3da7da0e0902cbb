package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Financial-Times/session-user-data-service-sub000/internal/application/services"
	"github.com/Financial-Times/session-user-data-service-sub000/internal/domain/entities"
	"github.com/Financial-Times/session-user-data-service-sub000/internal/domain/errors"
	"github.com/Financial-Times/session-user-data-service-sub000/internal/infrastructure/observability/logging"
	"github.com/Financial-Times/session-user-data-service-sub000/internal/infrastructure/observability/performance"
	"github.com/Financial-Times/session-user-data-service-sub000/internal/presentation/http/middleware"
)

// UpdateBasicInfoRequest defines the structure for pushed profile updates.
type UpdateBasicInfoRequest struct {
	UserID    string `json:"userId" binding:"required"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// UserHandlers contains the user-facing HTTP handlers
type UserHandlers struct {
	userService     *services.UserService
	livefyreService *services.LivefyreService
	logger          *logging.ChanneledLogger
	perfTracker     *performance.Tracker
}

// NewUserHandlers creates user handlers with injected dependencies
func NewUserHandlers(userService *services.UserService, livefyreService *services.LivefyreService, logger *logging.ChanneledLogger, perfTracker *performance.Tracker) *UserHandlers {
	return &UserHandlers{
		userService:     userService,
		livefyreService: livefyreService,
		logger:          logger,
		perfTracker:     perfTracker,
	}
}

// requireSession pulls the session ID or rejects the request.
func (h *UserHandlers) requireSession(c *gin.Context, marker *performance.Marker) (string, bool) {
	id := sessionID(c)
	if id == "" {
		marker.SetSuccess(false)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "a session is required"})
		return "", false
	}
	return id, true
}

// GetAuth returns the comment-platform auth bundle for the session. An
// unknown session reads as unauthorized here rather than not found.
func (h *UserHandlers) GetAuth(c *gin.Context) {
	marker := h.perfTracker.StartOperation("user:getAuth", middleware.GetRequestID(c))
	defer h.perfTracker.CompleteOperation(marker)

	session, ok := h.requireSession(c, marker)
	if !ok {
		return
	}

	auth, err := h.livefyreService.CommentsAuth(c.Request.Context(), session)
	if err != nil {
		marker.SetError(err)
		if errors.IsNotFound(err) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid session"})
			return
		}
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, auth)
}

// GetPseudonym returns the session owner's display name.
func (h *UserHandlers) GetPseudonym(c *gin.Context) {
	marker := h.perfTracker.StartOperation("user:getPseudonym", middleware.GetRequestID(c))
	defer h.perfTracker.CompleteOperation(marker)

	session, ok := h.requireSession(c, marker)
	if !ok {
		return
	}

	pseudonym, err := h.userService.Pseudonym(c.Request.Context(), session)
	if err != nil {
		marker.SetError(err)
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"pseudonym": pseudonym})
}

// SetPseudonym stores a new display name for the session owner.
func (h *UserHandlers) SetPseudonym(c *gin.Context) {
	marker := h.perfTracker.StartOperation("user:setPseudonym", middleware.GetRequestID(c))
	defer h.perfTracker.CompleteOperation(marker)

	session, ok := h.requireSession(c, marker)
	if !ok {
		return
	}
	pseudonym := c.Query("pseudonym")
	if pseudonym == "" {
		pseudonym = c.PostForm("pseudonym")
	}

	if err := h.userService.SetPseudonym(c.Request.Context(), session, pseudonym); err != nil {
		marker.SetError(err)
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// EmptyPseudonym removes the display name.
func (h *UserHandlers) EmptyPseudonym(c *gin.Context) {
	marker := h.perfTracker.StartOperation("user:emptyPseudonym", middleware.GetRequestID(c))
	defer h.perfTracker.CompleteOperation(marker)

	session, ok := h.requireSession(c, marker)
	if !ok {
		return
	}

	if err := h.userService.EmptyPseudonym(c.Request.Context(), session); err != nil {
		marker.SetError(err)
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// UpdateEmailPreferences merges the posted notification settings into the
// stored set.
func (h *UserHandlers) UpdateEmailPreferences(c *gin.Context) {
	marker := h.perfTracker.StartOperation("user:updateEmailPreferences", middleware.GetRequestID(c))
	defer h.perfTracker.CompleteOperation(marker)

	session, ok := h.requireSession(c, marker)
	if !ok {
		return
	}
	var prefs entities.EmailPreferences
	if err := c.ShouldBindJSON(&prefs); err != nil {
		marker.SetSuccess(false)
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed preferences payload"})
		return
	}

	if err := h.userService.UpdateEmailPreferences(c.Request.Context(), session, &prefs); err != nil {
		marker.SetError(err)
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// UpdateBasicInfo stores profile data pushed by an upstream notification.
func (h *UserHandlers) UpdateBasicInfo(c *gin.Context) {
	marker := h.perfTracker.StartOperation("user:updateBasicInfo", middleware.GetRequestID(c))
	defer h.perfTracker.CompleteOperation(marker)

	var req UpdateBasicInfoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		marker.SetSuccess(false)
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed user info payload"})
		return
	}

	info := &entities.BasicUserInfo{Email: req.Email, FirstName: req.FirstName, LastName: req.LastName}
	if err := h.userService.UpdateBasicInfo(c.Request.Context(), req.UserID, info); err != nil {
		marker.SetError(err)
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
