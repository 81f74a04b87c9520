package reports

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/scribeworks/backend/internal/models"
)

const reportColumns = `id, requested_by, role, period_start, period_end, status, s3_key, size_bytes, error, created_at, completed_at`

// Repository handles financial report rows.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a reports repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanReport(row pgx.Row) (*models.FinancialReport, error) {
	var rep models.FinancialReport
	err := row.Scan(&rep.ID, &rep.RequestedBy, &rep.Role, &rep.PeriodStart, &rep.PeriodEnd,
		&rep.Status, &rep.S3Key, &rep.SizeBytes, &rep.Error, &rep.CreatedAt, &rep.CompletedAt)
	if err != nil {
		return nil, err
	}
	return &rep, nil
}

// Create inserts a pending report request.
func (r *Repository) Create(ctx context.Context, rep *models.FinancialReport) error {
	const q = `INSERT INTO financial_reports (id, requested_by, role, period_start, period_end)
		VALUES (gen_random_uuid(), $1, $2, $3, $4)
		RETURNING id, status, created_at`
	return r.pool.QueryRow(ctx, q, rep.RequestedBy, rep.Role, rep.PeriodStart, rep.PeriodEnd).
		Scan(&rep.ID, &rep.Status, &rep.CreatedAt)
}

// GetByID returns one report.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.FinancialReport, error) {
	const q = `SELECT ` + reportColumns + ` FROM financial_reports WHERE id = $1`
	return scanReport(r.pool.QueryRow(ctx, q, id))
}

// ListForUser returns the user's report requests, newest first.
func (r *Repository) ListForUser(ctx context.Context, userID uuid.UUID) ([]models.FinancialReport, error) {
	const q = `SELECT ` + reportColumns + ` FROM financial_reports WHERE requested_by = $1 ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.FinancialReport
	for rows.Next() {
		rep, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *rep)
	}
	return list, rows.Err()
}

// MarkCompleted records the uploaded object and flips the status.
func (r *Repository) MarkCompleted(ctx context.Context, id uuid.UUID, s3Key string, sizeBytes int64) error {
	const q = `UPDATE financial_reports
		SET status = 'completed', s3_key = $2, size_bytes = $3, error = '', completed_at = NOW()
		WHERE id = $1`
	_, err := r.pool.Exec(ctx, q, id, s3Key, sizeBytes)
	return err
}

// MarkFailed records the failure reason.
func (r *Repository) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	const q = `UPDATE financial_reports
		SET status = 'failed', error = $2, completed_at = NOW()
		WHERE id = $1`
	_, err := r.pool.Exec(ctx, q, id, reason)
	return err
}
