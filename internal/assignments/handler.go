package assignments

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/scribeworks/backend/internal/middleware"
	"github.com/scribeworks/backend/internal/models"
	"github.com/scribeworks/backend/pkg/response"
)

// Handler handles assignment HTTP endpoints.
type Handler struct {
	repo    *Repository
	service *Service
}

// NewHandler creates an assignments handler.
func NewHandler(repo *Repository, service *Service) *Handler {
	return &Handler{repo: repo, service: service}
}

// AssignRequest is the body for POST /assignments.
type AssignRequest struct {
	ProjectID      uuid.UUID `json:"project_id" binding:"required"`
	AssigneeID     uuid.UUID `json:"assignee_id" binding:"required"`
	AssignmentType string    `json:"assignment_type" binding:"required,oneof=agent sub_agent worker sub_worker"`
}

// Assign handles POST /assignments. Any role may call; rejected attempts
// are recorded and surface the capability message with 403.
func (h *Handler) Assign(c *gin.Context) {
	assignerID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	var body AssignRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "project_id, assignee_id and a valid assignment_type are required")
		return
	}
	rec, check, err := h.service.Assign(c.Request.Context(), AssignInput{
		ProjectID:  body.ProjectID,
		AssigneeID: body.AssigneeID,
		AssignerID: assignerID,
		Type:       models.AssignmentType(body.AssignmentType),
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrProjectNotFound), errors.Is(err, ErrAssignerNotFound), errors.Is(err, ErrAssigneeNotFound):
			response.Fail(c, http.StatusNotFound, response.CodeNotFound, err.Error())
		default:
			response.Internal(c, "failed to apply assignment")
		}
		return
	}
	if !check.Valid {
		response.Fail(c, http.StatusForbidden, response.CodePermission, check.Message)
		return
	}
	response.Created(c, rec)
}

// History handles GET /assignments/project/:id. Visible to the super agent
// and to users on the project.
func (h *Handler) History(c *gin.Context) {
	viewerID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	role := c.MustGet(middleware.ContextUserRole).(models.Role)
	projectID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid project id")
		return
	}
	if role != models.RoleSuperAgent {
		onProject, err := h.repo.ViewerOnProject(c.Request.Context(), projectID, viewerID)
		if err != nil {
			response.Internal(c, "failed to check project access")
			return
		}
		if !onProject {
			response.Forbidden(c, "not a participant on this project")
			return
		}
	}
	list, err := h.repo.ListForProject(c.Request.Context(), projectID)
	if err != nil {
		response.Internal(c, "failed to load assignment history")
		return
	}
	response.OK(c, list)
}
