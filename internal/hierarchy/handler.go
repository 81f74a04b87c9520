package hierarchy

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/scribeworks/backend/internal/middleware"
	"github.com/scribeworks/backend/pkg/response"
)

// Handler handles hierarchy HTTP endpoints.
type Handler struct {
	repo    *Repository
	service *Service
}

// NewHandler creates a hierarchy handler.
func NewHandler(repo *Repository, service *Service) *Handler {
	return &Handler{repo: repo, service: service}
}

// MoveRequest is the body for POST /hierarchy/move.
type MoveRequest struct {
	UserID      uuid.UUID `json:"user_id" binding:"required"`
	NewParentID uuid.UUID `json:"new_parent_id" binding:"required"`
	Reason      *string   `json:"reason"`
}

// Me handles GET /hierarchy/me. Returns the caller's node with profile.
func (h *Handler) Me(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	entry, err := h.repo.GetEntry(c.Request.Context(), userID)
	if err != nil {
		response.NotFound(c, "hierarchy node not found")
		return
	}
	response.OK(c, entry)
}

// Tree handles GET /hierarchy/tree. Returns the caller's subtree nested.
func (h *Handler) Tree(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	entries, err := h.repo.Subtree(c.Request.Context(), userID)
	if err != nil {
		response.Internal(c, "failed to load subtree")
		return
	}
	root := BuildTree(userID, entries)
	if root == nil {
		response.NotFound(c, "hierarchy node not found")
		return
	}
	response.OK(c, root)
}

// Changes handles GET /hierarchy/changes?limit=. Super agent only.
func (h *Handler) Changes(c *gin.Context) {
	limit := 100
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 500 {
			response.BadRequest(c, "limit must be 1–500")
			return
		}
		limit = n
	}
	changes, err := h.repo.ListChanges(c.Request.Context(), limit)
	if err != nil {
		response.Internal(c, "failed to load hierarchy changes")
		return
	}
	response.OK(c, changes)
}

// Move handles POST /hierarchy/move. Super agent only.
func (h *Handler) Move(c *gin.Context) {
	actorID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	var body MoveRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "user_id and new_parent_id required")
		return
	}
	change, check, err := h.service.Move(c.Request.Context(), MoveInput{
		UserID:      body.UserID,
		NewParentID: body.NewParentID,
		ActorID:     actorID,
		Reason:      body.Reason,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrUserNotFound), errors.Is(err, ErrParentNotFound):
			response.Fail(c, http.StatusNotFound, response.CodeNotFound, err.Error())
		case errors.Is(err, ErrNotTreeRoot):
			response.Fail(c, http.StatusForbidden, response.CodePermission, err.Error())
		default:
			response.Internal(c, "failed to apply move")
		}
		return
	}
	if !check.Valid {
		if check.Code == CodeNoChange {
			response.Fail(c, http.StatusConflict, response.CodeNoChange, check.Reason)
			return
		}
		response.Fail(c, http.StatusBadRequest, response.CodeHierarchy, check.Reason)
		return
	}
	response.OK(c, change)
}
