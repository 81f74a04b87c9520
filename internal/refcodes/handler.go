package refcodes

import (
	"errors"
	"net/http"
	"regexp"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/scribeworks/backend/internal/models"
	"github.com/scribeworks/backend/pkg/response"
)

// Prefix must be uppercase alphanumeric, 2–8 chars.
var prefixRegex = regexp.MustCompile(`^[A-Z0-9]{2,8}$`)

// Handler handles reference code HTTP endpoints.
type Handler struct {
	issuer *Issuer
	repo   *Repository
	logger *zap.Logger
}

// NewHandler creates a reference codes handler.
func NewHandler(issuer *Issuer, repo *Repository, logger *zap.Logger) *Handler {
	return &Handler{issuer: issuer, repo: repo, logger: logger}
}

// GenerateRequest is the body for POST /codes.
type GenerateRequest struct {
	CodeType string `json:"code_type" binding:"required"`
	Prefix   string `json:"prefix"`
}

// Generate handles POST /codes. Issues a recruitment code owned by the caller.
func (h *Handler) Generate(c *gin.Context) {
	userID := c.MustGet("user_id").(uuid.UUID)
	role := c.MustGet("user_role").(models.Role)

	var req GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "code_type required")
		return
	}
	codeType := models.CodeType(req.CodeType)
	if !codeType.Valid() {
		response.BadRequest(c, "code_type must be one of agent_recruitment, client_recruitment, worker_recruitment")
		return
	}
	if req.Prefix != "" && !prefixRegex.MatchString(req.Prefix) {
		response.BadRequest(c, "prefix must be 2–8 uppercase letters or digits")
		return
	}

	ref, err := h.issuer.Generate(c.Request.Context(), userID, role, codeType, req.Prefix)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotEntitled):
			response.Fail(c, http.StatusForbidden, response.CodePermission, "your role cannot issue "+req.CodeType+" codes")
		case errors.Is(err, ErrCodeSpaceExhausted):
			h.logger.Error("code generation exhausted retries", zap.String("owner_id", userID.String()))
			response.Internal(c, "could not generate a unique code, try again")
		default:
			response.Internal(c, "failed to generate code")
		}
		return
	}
	response.Created(c, ref)
}

// List handles GET /codes. Returns the caller's issued codes.
func (h *Handler) List(c *gin.Context) {
	userID := c.MustGet("user_id").(uuid.UUID)
	list, err := h.repo.ListByOwner(c.Request.Context(), userID)
	if err != nil {
		response.Internal(c, "failed to list codes")
		return
	}
	response.OK(c, list)
}

// ValidateRequest is the body for POST /codes/validate.
type ValidateRequest struct {
	Code string `json:"code" binding:"required"`
}

// ValidateResponse tells a prospective registrant what a code grants.
type ValidateResponse struct {
	Valid     bool            `json:"valid"`
	Reason    string          `json:"reason,omitempty"`
	CodeType  models.CodeType `json:"code_type,omitempty"`
	GrantRole models.Role     `json:"grant_role,omitempty"`
}

// Validate handles POST /codes/validate. Public: used by the registration
// form to tell unknown, deactivated and expired codes apart.
func (h *Handler) Validate(c *gin.Context) {
	var req ValidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "code required")
		return
	}
	v, err := h.issuer.Validate(c.Request.Context(), req.Code)
	if err != nil {
		response.Internal(c, "failed to validate code")
		return
	}
	resp := ValidateResponse{Valid: v.Valid, Reason: v.Reason}
	if v.Ref != nil {
		resp.CodeType = v.Ref.CodeType
		if granted, ok := GrantRole(v.OwnerRole, v.Ref.CodeType); ok {
			resp.GrantRole = granted
		}
	}
	response.OK(c, resp)
}

// Deactivate handles DELETE /codes/:id. Owner-only; the code row is kept.
func (h *Handler) Deactivate(c *gin.Context) {
	userID := c.MustGet("user_id").(uuid.UUID)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid code id")
		return
	}
	ok, err := h.repo.Deactivate(c.Request.Context(), id, userID)
	if err != nil {
		response.Internal(c, "failed to deactivate code")
		return
	}
	if !ok {
		response.NotFound(c, "code not found")
		return
	}
	response.NoContent(c)
}
