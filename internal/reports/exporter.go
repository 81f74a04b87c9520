package reports

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"io"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/scribeworks/backend/internal/finance"
	"github.com/scribeworks/backend/internal/models"
	"github.com/scribeworks/backend/pkg/storage"
)

// ProjectSource lists a user's visible projects over a period.
type ProjectSource interface {
	ListForViewerPeriod(ctx context.Context, viewerID uuid.UUID, from, to time.Time) ([]models.Project, error)
}

// Uploader stores finished CSV exports.
type Uploader interface {
	Upload(ctx context.Context, bucket, key, contentType string, body io.Reader, contentLength int64) (string, error)
	ReportsBucket() string
}

// Exporter runs one report request end to end: load projects, filter for
// the requester's role, render CSV, upload, flip the row to completed.
type Exporter struct {
	repo     *Repository
	projects ProjectSource
	store    Uploader
	logger   *zap.Logger
}

// NewExporter creates a report exporter.
func NewExporter(repo *Repository, projects ProjectSource, store Uploader, logger *zap.Logger) *Exporter {
	return &Exporter{repo: repo, projects: projects, store: store, logger: logger}
}

// Export processes one report job. Errors are recorded on the row and
// returned so the queue can retry; a retry that succeeds overwrites the
// failed state. Completed reports are never re-exported.
func (e *Exporter) Export(ctx context.Context, reportID uuid.UUID) error {
	rep, err := e.repo.GetByID(ctx, reportID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			e.logger.Warn("report row missing, dropping job", zap.String("report_id", reportID.String()))
			return nil
		}
		return err
	}
	if rep.Status == models.ReportCompleted {
		return nil
	}

	projects, err := e.projects.ListForViewerPeriod(ctx, rep.RequestedBy, rep.PeriodStart, rep.PeriodEnd)
	if err != nil {
		e.fail(ctx, rep.ID, err)
		return err
	}

	body := BuildCSV(projects, finance.Viewer{ID: rep.RequestedBy, Role: rep.Role})
	key := storage.ReportKey(rep.RequestedBy.String(), rep.ID.String())
	if _, err := e.store.Upload(ctx, e.store.ReportsBucket(), key, storage.ReportContentType, bytes.NewReader(body), int64(len(body))); err != nil {
		e.fail(ctx, rep.ID, err)
		return err
	}
	if err := e.repo.MarkCompleted(ctx, rep.ID, key, int64(len(body))); err != nil {
		return err
	}

	e.logger.Info("report exported",
		zap.String("report_id", rep.ID.String()),
		zap.String("requested_by", rep.RequestedBy.String()),
		zap.Int("projects", len(projects)),
		zap.Int("bytes", len(body)))
	return nil
}

func (e *Exporter) fail(ctx context.Context, id uuid.UUID, cause error) {
	if err := e.repo.MarkFailed(ctx, id, cause.Error()); err != nil {
		e.logger.Warn("failed to record report failure", zap.Error(err))
	}
}

var csvHeader = []string{
	"project_id", "title", "status", "word_count", "deadline", "urgency_level",
	"cost_gbp", "base_price", "deadline_charge", "agent_fee",
	"super_worker_fee", "worker_payment", "profit_margin", "system_profit",
}

// BuildCSV renders the projects as CSV, applying the financial filter per
// row. Withheld fields render as empty cells, never zeroes.
func BuildCSV(projects []models.Project, v finance.Viewer) []byte {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Write(csvHeader)
	for _, p := range projects {
		p = finance.FilterProject(p, v)
		w.Write([]string{
			p.ID.String(),
			p.Title,
			string(p.Status),
			strconv.Itoa(p.WordCount),
			p.Deadline.UTC().Format(time.RFC3339),
			p.UrgencyLevel,
			cell(p.CostGBP),
			cell(p.BasePrice),
			cell(p.DeadlineCharge),
			cell(p.AgentFee),
			cell(p.SuperWorkerFee),
			cell(p.WorkerPayment),
			cell(p.ProfitMargin),
			cell(p.SystemProfit),
		})
	}
	w.Flush()
	return buf.Bytes()
}

func cell(d *decimal.Decimal) string {
	if d == nil {
		return ""
	}
	return d.StringFixed(2)
}
