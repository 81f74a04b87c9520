package reports

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/scribeworks/backend/internal/middleware"
	"github.com/scribeworks/backend/internal/models"
	"github.com/scribeworks/backend/pkg/queue"
	"github.com/scribeworks/backend/pkg/response"
)

// Presigner mints download URLs for completed exports.
type Presigner interface {
	GeneratePresignedDownloadURL(ctx context.Context, bucket, key string, expires time.Duration) (string, error)
	PresignExpire() time.Duration
	ReportsBucket() string
}

// Handler handles financial report endpoints. store is nil when S3 is not
// configured; report endpoints then answer 503.
type Handler struct {
	repo  *Repository
	queue *queue.Queue
	store Presigner
}

// NewHandler creates a reports handler.
func NewHandler(repo *Repository, q *queue.Queue, store Presigner) *Handler {
	return &Handler{repo: repo, queue: q, store: store}
}

// CreateRequest is the body for POST /reports/financial.
type CreateRequest struct {
	PeriodStart time.Time `json:"period_start" binding:"required"`
	PeriodEnd   time.Time `json:"period_end" binding:"required"`
}

// Create handles POST /reports/financial. The export runs on the worker;
// the response carries the pending row to poll.
func (h *Handler) Create(c *gin.Context) {
	if h.store == nil || h.queue == nil {
		response.ServiceUnavailable(c, "report export is not configured")
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	role := c.MustGet(middleware.ContextUserRole).(models.Role)
	var body CreateRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "period_start and period_end are required")
		return
	}
	if !body.PeriodEnd.After(body.PeriodStart) {
		response.Fail(c, http.StatusBadRequest, response.CodeValidation, "period_end must be after period_start")
		return
	}
	rep := &models.FinancialReport{
		RequestedBy: userID,
		Role:        role,
		PeriodStart: body.PeriodStart,
		PeriodEnd:   body.PeriodEnd,
	}
	if err := h.repo.Create(c.Request.Context(), rep); err != nil {
		response.Internal(c, "failed to create report request")
		return
	}
	if err := h.queue.EnqueueReportExport(c.Request.Context(), queue.ReportExportPayload{ReportID: rep.ID, UserID: userID}); err != nil {
		_ = h.repo.MarkFailed(c.Request.Context(), rep.ID, "failed to enqueue export job")
		response.Internal(c, "failed to enqueue export job")
		return
	}
	response.Created(c, rep)
}

// List handles GET /reports. Own requests only.
func (h *Handler) List(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	list, err := h.repo.ListForUser(c.Request.Context(), userID)
	if err != nil {
		response.Internal(c, "failed to load reports")
		return
	}
	response.OK(c, list)
}

// Download handles GET /reports/:id/download. Mints a presigned URL for
// the requester's completed export.
func (h *Handler) Download(c *gin.Context) {
	if h.store == nil {
		response.ServiceUnavailable(c, "report download is not configured")
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	reportID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid report id")
		return
	}
	rep, err := h.repo.GetByID(c.Request.Context(), reportID)
	if err != nil {
		response.NotFound(c, "report not found")
		return
	}
	if rep.RequestedBy != userID {
		response.Forbidden(c, "not your report")
		return
	}
	if rep.Status != models.ReportCompleted {
		response.Fail(c, http.StatusConflict, response.CodeUnavailable, "report is not ready for download")
		return
	}
	expires := h.store.PresignExpire()
	url, err := h.store.GeneratePresignedDownloadURL(c.Request.Context(), h.store.ReportsBucket(), rep.S3Key, expires)
	if err != nil {
		response.Internal(c, "failed to presign download")
		return
	}
	response.OK(c, gin.H{"url": url, "expires_in_seconds": int(expires.Seconds())})
}
