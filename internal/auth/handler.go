package auth

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/scribeworks/backend/internal/models"
	"github.com/scribeworks/backend/internal/refcodes"
	"github.com/scribeworks/backend/pkg/response"
	"github.com/scribeworks/backend/pkg/utils"
)

// RegisterRequest is the body for POST /auth/register. Every registration
// goes through a reference code; the code decides role and tree position.
type RegisterRequest struct {
	Email         string `json:"email" binding:"required,email"`
	Password      string `json:"password" binding:"required,min=6"`
	FullName      string `json:"full_name" binding:"required"`
	ReferenceCode string `json:"reference_code" binding:"required"`
}

// LoginRequest is the body for POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// TokenResponse is the auth response with JWT.
type TokenResponse struct {
	Token     string                `json:"token"`
	User      models.UserPublic     `json:"user"`
	Hierarchy *models.HierarchyNode `json:"hierarchy,omitempty"`
}

// Handler handles auth HTTP endpoints.
type Handler struct {
	repo   *Repository
	issuer *refcodes.Issuer
	jwt    *JWTService
	logger *zap.Logger
}

// NewHandler creates an auth handler.
func NewHandler(repo *Repository, issuer *refcodes.Issuer, jwt *JWTService, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, issuer: issuer, jwt: jwt, logger: logger}
}

// Register handles POST /auth/register. Validates the reference code,
// derives the registrant's role and parent from it, and creates the user
// with their hierarchy node in one transaction.
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	v, err := h.issuer.Validate(c.Request.Context(), req.ReferenceCode)
	if err != nil {
		response.Internal(c, "failed to validate reference code")
		return
	}
	if !v.Valid {
		switch v.Reason {
		case "not_found":
			response.Fail(c, http.StatusNotFound, response.CodeNotFound, "reference code not found")
		case "inactive":
			response.Fail(c, http.StatusBadRequest, response.CodeInactive, "reference code is no longer active")
		case "expired":
			response.Fail(c, http.StatusBadRequest, response.CodeExpired, "reference code has expired")
		default:
			response.BadRequest(c, "invalid reference code")
		}
		return
	}

	placement, err := refcodes.PlacementFor(v)
	if err != nil {
		if errors.Is(err, refcodes.ErrTreeDepth) {
			response.Fail(c, http.StatusBadRequest, response.CodeHierarchy, "recruitment tree is at maximum depth below this recruiter")
			return
		}
		response.Internal(c, "failed to derive placement from code")
		return
	}

	if _, err := h.repo.GetByEmail(c.Request.Context(), req.Email); err == nil {
		response.BadRequest(c, "email already registered")
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		response.Internal(c, "failed to hash password")
		return
	}

	user, node, err := h.repo.Create(c.Request.Context(), CreateUserParams{
		Email:        req.Email,
		PasswordHash: hash,
		FullName:     req.FullName,
		Role:         placement.Role,
		ParentID:     &placement.ParentID,
		Level:        placement.Level,
		SuperAgentID: &placement.SuperAgentID,
	})
	if err != nil {
		response.Internal(c, "failed to create user")
		return
	}
	h.logger.Info("user registered",
		zap.String("user_id", user.ID.String()),
		zap.String("role", string(user.Role)),
		zap.Int("level", node.Level),
		zap.String("recruited_by", placement.ParentID.String()))

	token, err := h.jwt.Generate(user.ID, user.Email, user.Role)
	if err != nil {
		response.Internal(c, "failed to generate token")
		return
	}

	response.Created(c, TokenResponse{Token: token, User: user.ToPublic(), Hierarchy: node})
}

// Login handles POST /auth/login.
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	user, err := h.repo.GetByEmail(c.Request.Context(), req.Email)
	if err != nil {
		response.Unauthorized(c, "invalid email or password")
		return
	}

	if !utils.CheckPassword(req.Password, user.Password) {
		response.Unauthorized(c, "invalid email or password")
		return
	}

	token, err := h.jwt.Generate(user.ID, user.Email, user.Role)
	if err != nil {
		response.Internal(c, "failed to generate token")
		return
	}

	response.OK(c, TokenResponse{Token: token, User: user.ToPublic()})
}

// Me handles GET /users/me.
func (h *Handler) Me(c *gin.Context) {
	userID := c.MustGet("user_id").(uuid.UUID)
	user, err := h.repo.GetByID(c.Request.Context(), userID)
	if err != nil {
		response.NotFound(c, "user not found")
		return
	}
	response.OK(c, user.ToPublic())
}

// List handles GET /users (super_agent only).
func (h *Handler) List(c *gin.Context) {
	list, err := h.repo.List(c.Request.Context())
	if err != nil {
		response.Internal(c, "failed to list users")
		return
	}
	response.OK(c, list)
}
