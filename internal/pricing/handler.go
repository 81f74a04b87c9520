package pricing

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/scribeworks/backend/internal/middleware"
	"github.com/scribeworks/backend/internal/models"
	"github.com/scribeworks/backend/pkg/response"
)

// Handler handles pricing HTTP endpoints.
type Handler struct {
	engine *Engine
	repo   *Repository
}

// NewHandler creates a pricing handler.
func NewHandler(engine *Engine, repo *Repository) *Handler {
	return &Handler{engine: engine, repo: repo}
}

// QuoteRequestBody is the body for POST /pricing/quote.
type QuoteRequestBody struct {
	WordCount int        `json:"word_count" binding:"required,min=1"`
	Deadline  time.Time  `json:"deadline" binding:"required"`
	AgentID   *uuid.UUID `json:"agent_id"`
}

// SaveConfigRequest is the body for PUT /pricing/config.
type SaveConfigRequest struct {
	MinWordCount   int             `json:"min_word_count" binding:"required,min=1"`
	MaxWordCount   int             `json:"max_word_count" binding:"required,min=1"`
	BaseRatePer500 decimal.Decimal `json:"base_rate_per_500" binding:"required"`
	FeePercentage  decimal.Decimal `json:"fee_percentage"`
}

// QuotePreview handles POST /pricing/quote. Prices a hypothetical request
// against the flat table or, when agent_id is given, that agent's rate card.
func (h *Handler) QuotePreview(c *gin.Context) {
	var body QuoteRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "word_count and deadline required")
		return
	}
	var rates *AgentRates
	if body.AgentID != nil {
		cfg, err := h.repo.ActiveForAgent(c.Request.Context(), *body.AgentID)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			response.Internal(c, "failed to load agent rates")
			return
		}
		rates = RatesFrom(cfg)
	}
	quote, err := h.engine.Quote(QuoteRequest{WordCount: body.WordCount, Deadline: body.Deadline, AgentRates: rates})
	if err != nil {
		var ve *ValidationError
		if errors.As(err, &ve) {
			response.Fail(c, http.StatusBadRequest, response.CodeValidation, ve.Reason)
			return
		}
		response.Internal(c, "failed to price request")
		return
	}
	response.OK(c, quote)
}

// GetConfig handles GET /pricing/config. Returns the calling agent's open
// rate card and history.
func (h *Handler) GetConfig(c *gin.Context) {
	agentID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	active, err := h.repo.ActiveForAgent(c.Request.Context(), agentID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		response.Internal(c, "failed to load rate card")
		return
	}
	history, err := h.repo.History(c.Request.Context(), agentID)
	if err != nil {
		response.Internal(c, "failed to load rate card history")
		return
	}
	response.OK(c, gin.H{"active": active, "history": history})
}

// SaveConfig handles PUT /pricing/config. Supersedes the calling agent's
// rate card.
func (h *Handler) SaveConfig(c *gin.Context) {
	agentID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	var body SaveConfigRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "min_word_count, max_word_count and base_rate_per_500 required")
		return
	}
	if body.MaxWordCount < body.MinWordCount {
		response.Fail(c, http.StatusBadRequest, response.CodeValidation, "max_word_count must be at least min_word_count")
		return
	}
	if !body.BaseRatePer500.IsPositive() {
		response.Fail(c, http.StatusBadRequest, response.CodeValidation, "base_rate_per_500 must be positive")
		return
	}
	if body.FeePercentage.IsNegative() || body.FeePercentage.GreaterThan(decimal.NewFromInt(100)) {
		response.Fail(c, http.StatusBadRequest, response.CodeValidation, "fee_percentage must be between 0 and 100")
		return
	}
	cfg := &models.AgentPricingConfig{
		AgentID:        agentID,
		MinWordCount:   body.MinWordCount,
		MaxWordCount:   body.MaxWordCount,
		BaseRatePer500: body.BaseRatePer500,
		FeePercentage:  body.FeePercentage,
	}
	if err := h.repo.Upsert(c.Request.Context(), cfg); err != nil {
		response.Internal(c, "failed to save rate card")
		return
	}
	response.OK(c, cfg)
}
