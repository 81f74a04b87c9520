package notifications

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/scribeworks/backend/internal/middleware"
	"github.com/scribeworks/backend/internal/models"
	"github.com/scribeworks/backend/pkg/response"
)

// Handler handles notification HTTP endpoints.
type Handler struct {
	repo    *Repository
	service *Service
}

// NewHandler creates a notifications handler.
func NewHandler(repo *Repository, service *Service) *Handler {
	return &Handler{repo: repo, service: service}
}

// SendRequest is the body for POST /notifications/send.
type SendRequest struct {
	TargetIDs []uuid.UUID `json:"target_ids" binding:"required,min=1"`
	Title     string      `json:"title" binding:"required"`
	Body      string      `json:"body" binding:"required"`
	ProjectID *uuid.UUID  `json:"project_id"`
}

// BroadcastRequest is the body for POST /notifications/broadcast.
type BroadcastRequest struct {
	Title string `json:"title" binding:"required"`
	Body  string `json:"body" binding:"required"`
}

// Send handles POST /notifications/send. Delivers to permitted targets
// and reports who was skipped.
func (h *Handler) Send(c *gin.Context) {
	senderID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	var body SendRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "target_ids, title and body required")
		return
	}
	result, err := h.service.Notify(c.Request.Context(), senderID, body.TargetIDs, models.NotifyMessage, body.Title, body.Body, body.ProjectID)
	if err != nil {
		response.Internal(c, "failed to send notifications")
		return
	}
	response.OK(c, result)
}

// Broadcast handles POST /notifications/broadcast. Queues a fan-out to the
// caller's whole subtree.
func (h *Handler) Broadcast(c *gin.Context) {
	senderID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	var body BroadcastRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "title and body required")
		return
	}
	if err := h.service.Broadcast(c.Request.Context(), senderID, body.Title, body.Body); err != nil {
		if err == ErrQueueUnavailable {
			response.ServiceUnavailable(c, "broadcast queue unavailable")
			return
		}
		response.Internal(c, "failed to queue broadcast")
		return
	}
	response.OK(c, gin.H{"queued": true})
}

// List handles GET /notifications?unread=true&limit=.
func (h *Handler) List(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	unreadOnly := c.Query("unread") == "true"
	limit := 50
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 200 {
			response.BadRequest(c, "limit must be 1–200")
			return
		}
		limit = n
	}
	items, err := h.repo.ListForRecipient(c.Request.Context(), userID, unreadOnly, limit)
	if err != nil {
		response.Internal(c, "failed to load notifications")
		return
	}
	unread, err := h.repo.CountUnread(c.Request.Context(), userID)
	if err != nil {
		response.Internal(c, "failed to load notifications")
		return
	}
	response.OK(c, gin.H{"items": items, "unread": unread})
}

// MarkRead handles PATCH /notifications/:id/read.
func (h *Handler) MarkRead(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid notification id")
		return
	}
	ok, err := h.repo.MarkRead(c.Request.Context(), id, userID)
	if err != nil {
		response.Internal(c, "failed to mark notification read")
		return
	}
	if !ok {
		response.NotFound(c, "notification not found or already read")
		return
	}
	response.NoContent(c)
}

// MarkAllRead handles POST /notifications/read-all.
func (h *Handler) MarkAllRead(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	n, err := h.repo.MarkAllRead(c.Request.Context(), userID)
	if err != nil {
		response.Internal(c, "failed to mark notifications read")
		return
	}
	response.OK(c, gin.H{"updated": n})
}
