package finance

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/scribeworks/backend/internal/middleware"
	"github.com/scribeworks/backend/internal/models"
	"github.com/scribeworks/backend/pkg/response"
)

// ProjectSource lists the projects visible to a viewer.
type ProjectSource interface {
	ListForViewer(ctx context.Context, viewerID uuid.UUID) ([]models.Project, error)
}

// Handler handles financial summary endpoints.
type Handler struct {
	projects ProjectSource
}

// NewHandler creates a finance handler.
func NewHandler(projects ProjectSource) *Handler {
	return &Handler{projects: projects}
}

// Summary handles GET /finance/summary. Aggregates run over the viewer's
// visible projects after role filtering.
func (h *Handler) Summary(c *gin.Context) {
	viewerID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	role := c.MustGet(middleware.ContextUserRole).(models.Role)
	list, err := h.projects.ListForViewer(c.Request.Context(), viewerID)
	if err != nil {
		response.Internal(c, "failed to load projects")
		return
	}
	response.OK(c, BuildSummary(list, Viewer{ID: viewerID, Role: role}))
}
