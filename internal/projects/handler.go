package projects

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/scribeworks/backend/internal/finance"
	"github.com/scribeworks/backend/internal/middleware"
	"github.com/scribeworks/backend/internal/models"
	"github.com/scribeworks/backend/internal/pricing"
	"github.com/scribeworks/backend/pkg/response"
)

// Handler handles project HTTP endpoints. Every project it returns passes
// through the financial filter for the viewer first.
type Handler struct {
	repo    *Repository
	service *Service
}

// NewHandler creates a projects handler.
func NewHandler(repo *Repository, service *Service) *Handler {
	return &Handler{repo: repo, service: service}
}

func viewer(c *gin.Context) finance.Viewer {
	return finance.Viewer{
		ID:   c.MustGet(middleware.ContextUserID).(uuid.UUID),
		Role: c.MustGet(middleware.ContextUserRole).(models.Role),
	}
}

// CreateRequest is the body for POST /projects.
type CreateRequest struct {
	Title       string    `json:"title" binding:"required"`
	Description string    `json:"description"`
	WordCount   int       `json:"word_count" binding:"required,min=1"`
	Deadline    time.Time `json:"deadline" binding:"required"`
}

// Create handles POST /projects. Clients only.
func (h *Handler) Create(c *gin.Context) {
	v := viewer(c)
	var body CreateRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "title, word_count and deadline are required")
		return
	}
	p, err := h.service.Create(c.Request.Context(), CreateInput{
		ClientID:    v.ID,
		Title:       body.Title,
		Description: body.Description,
		WordCount:   body.WordCount,
		Deadline:    body.Deadline,
	})
	if err != nil {
		var verr *pricing.ValidationError
		if errors.As(err, &verr) {
			response.Fail(c, http.StatusBadRequest, response.CodeValidation, verr.Reason)
			return
		}
		response.Internal(c, "failed to create project")
		return
	}
	response.Created(c, finance.FilterProject(*p, v))
}

// List handles GET /projects. Scope is the viewer's subtree.
func (h *Handler) List(c *gin.Context) {
	v := viewer(c)
	list, err := h.repo.ListForViewer(c.Request.Context(), v.ID)
	if err != nil {
		response.Internal(c, "failed to load projects")
		return
	}
	response.OK(c, finance.FilterProjects(list, v))
}

// Get handles GET /projects/:id.
func (h *Handler) Get(c *gin.Context) {
	v := viewer(c)
	projectID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid project id")
		return
	}
	p, err := h.repo.GetByID(c.Request.Context(), projectID)
	if err != nil {
		response.NotFound(c, "project not found")
		return
	}
	if v.Role != models.RoleSuperAgent {
		ok, err := h.repo.VisibleTo(c.Request.Context(), projectID, v.ID)
		if err != nil {
			response.Internal(c, "failed to check project access")
			return
		}
		if !ok {
			response.Forbidden(c, "project is outside your subtree")
			return
		}
	}
	response.OK(c, finance.FilterProject(*p, v))
}

// Requote handles POST /projects/:id/requote. Agents and the super agent.
func (h *Handler) Requote(c *gin.Context) {
	v := viewer(c)
	projectID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid project id")
		return
	}
	p, err := h.service.Requote(c.Request.Context(), RequoteInput{
		ProjectID: projectID,
		ActorID:   v.ID,
		ActorRole: v.Role,
	})
	if err != nil {
		var verr *pricing.ValidationError
		switch {
		case errors.Is(err, ErrProjectNotFound):
			response.Fail(c, http.StatusNotFound, response.CodeNotFound, err.Error())
		case errors.Is(err, ErrNotProjectAgent):
			response.Fail(c, http.StatusForbidden, response.CodePermission, err.Error())
		case errors.Is(err, ErrNotQuotable):
			response.Fail(c, http.StatusConflict, response.CodeValidation, err.Error())
		case errors.As(err, &verr):
			response.Fail(c, http.StatusBadRequest, response.CodeValidation, verr.Reason)
		default:
			response.Internal(c, "failed to requote project")
		}
		return
	}
	response.OK(c, finance.FilterProject(*p, v))
}

// TransitionRequest is the body for POST /projects/:id/status.
type TransitionRequest struct {
	Status string `json:"status" binding:"required"`
}

// Transition handles POST /projects/:id/status.
func (h *Handler) Transition(c *gin.Context) {
	v := viewer(c)
	projectID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid project id")
		return
	}
	var body TransitionRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "status is required")
		return
	}
	next := models.ProjectStatus(body.Status)
	if !next.Valid() {
		response.Fail(c, http.StatusBadRequest, response.CodeValidation, "unknown status "+body.Status)
		return
	}
	if v.Role != models.RoleSuperAgent {
		ok, err := h.repo.VisibleTo(c.Request.Context(), projectID, v.ID)
		if err != nil {
			response.Internal(c, "failed to check project access")
			return
		}
		if !ok {
			response.Forbidden(c, "project is outside your subtree")
			return
		}
	}
	p, err := h.service.Transition(c.Request.Context(), TransitionInput{
		ProjectID: projectID,
		Next:      next,
		ActorID:   v.ID,
		ActorRole: v.Role,
	})
	if err != nil {
		var terr *TransitionError
		switch {
		case errors.Is(err, ErrProjectNotFound):
			response.Fail(c, http.StatusNotFound, response.CodeNotFound, err.Error())
		case errors.As(err, &terr):
			response.Fail(c, http.StatusConflict, response.CodeValidation, terr.Error())
		default:
			response.Internal(c, "failed to change project status")
		}
		return
	}
	response.OK(c, finance.FilterProject(*p, v))
}
