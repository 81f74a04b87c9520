package projects

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/scribeworks/backend/internal/models"
)

const projectColumns = `p.id, p.client_id, p.agent_id, p.sub_agent_id, p.worker_id, p.sub_worker_id,
	p.title, p.description, p.word_count, p.deadline, p.status, p.urgency_level,
	p.cost_gbp, p.base_price, p.deadline_charge, p.agent_fee, p.super_worker_fee,
	p.worker_payment, p.profit_margin, p.system_profit, p.created_at, p.updated_at`

// subtreeCTE collects the viewer and every descendant; project visibility
// is "some participant sits in my subtree". A super agent's subtree is the
// whole tree they root, a leaf's subtree is just themselves.
const subtreeCTE = `WITH RECURSIVE subtree AS (
	SELECT user_id FROM hierarchy WHERE user_id = $1
	UNION ALL
	SELECT h.user_id FROM hierarchy h JOIN subtree s ON h.parent_id = s.user_id
)`

const participantInSubtree = `(p.client_id IN (SELECT user_id FROM subtree)
	OR p.agent_id IN (SELECT user_id FROM subtree)
	OR p.sub_agent_id IN (SELECT user_id FROM subtree)
	OR p.worker_id IN (SELECT user_id FROM subtree)
	OR p.sub_worker_id IN (SELECT user_id FROM subtree))`

// Repository handles project persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a projects repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanProject(row pgx.Row) (*models.Project, error) {
	var p models.Project
	err := row.Scan(&p.ID, &p.ClientID, &p.AgentID, &p.SubAgentID, &p.WorkerID, &p.SubWorkerID,
		&p.Title, &p.Description, &p.WordCount, &p.Deadline, &p.Status, &p.UrgencyLevel,
		&p.CostGBP, &p.BasePrice, &p.DeadlineCharge, &p.AgentFee, &p.SuperWorkerFee,
		&p.WorkerPayment, &p.ProfitMargin, &p.SystemProfit, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func collectProjects(rows pgx.Rows) ([]models.Project, error) {
	defer rows.Close()
	var list []models.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *p)
	}
	return list, rows.Err()
}

// Create inserts a project with its priced breakdown.
func (r *Repository) Create(ctx context.Context, p *models.Project) error {
	const q = `INSERT INTO projects (id, client_id, title, description, word_count, deadline, status, urgency_level,
		cost_gbp, base_price, deadline_charge, agent_fee, super_worker_fee, worker_payment, profit_margin, system_profit)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, q, p.ClientID, p.Title, p.Description, p.WordCount, p.Deadline, p.Status,
		p.UrgencyLevel, p.CostGBP, p.BasePrice, p.DeadlineCharge, p.AgentFee, p.SuperWorkerFee,
		p.WorkerPayment, p.ProfitMargin, p.SystemProfit).
		Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
}

// GetByID returns one project.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	const q = `SELECT ` + projectColumns + ` FROM projects p WHERE p.id = $1`
	return scanProject(r.pool.QueryRow(ctx, q, id))
}

// ListForViewer returns every project with a participant in the viewer's
// subtree, newest first.
func (r *Repository) ListForViewer(ctx context.Context, viewerID uuid.UUID) ([]models.Project, error) {
	const q = subtreeCTE + `
		SELECT ` + projectColumns + ` FROM projects p
		WHERE ` + participantInSubtree + `
		ORDER BY p.created_at DESC`
	rows, err := r.pool.Query(ctx, q, viewerID)
	if err != nil {
		return nil, err
	}
	return collectProjects(rows)
}

// ListForViewerPeriod is ListForViewer restricted to projects created in
// [from, to); used by the report exporter.
func (r *Repository) ListForViewerPeriod(ctx context.Context, viewerID uuid.UUID, from, to time.Time) ([]models.Project, error) {
	const q = subtreeCTE + `
		SELECT ` + projectColumns + ` FROM projects p
		WHERE ` + participantInSubtree + `
		  AND p.created_at >= $2 AND p.created_at < $3
		ORDER BY p.created_at`
	rows, err := r.pool.Query(ctx, q, viewerID, from, to)
	if err != nil {
		return nil, err
	}
	return collectProjects(rows)
}

// VisibleTo reports whether the viewer's subtree touches the project.
func (r *Repository) VisibleTo(ctx context.Context, projectID, viewerID uuid.UUID) (bool, error) {
	const q = subtreeCTE + `
		SELECT EXISTS (SELECT 1 FROM projects p WHERE p.id = $2 AND ` + participantInSubtree + `)`
	var ok bool
	err := r.pool.QueryRow(ctx, q, viewerID, projectID).Scan(&ok)
	return ok, err
}

// SaveQuote persists a recomputed price breakdown and the status it quotes
// the project into.
func (r *Repository) SaveQuote(ctx context.Context, p *models.Project) error {
	const q = `UPDATE projects SET status = $2, urgency_level = $3, cost_gbp = $4, base_price = $5,
		deadline_charge = $6, agent_fee = $7, super_worker_fee = $8, worker_payment = $9,
		profit_margin = $10, system_profit = $11, updated_at = NOW()
		WHERE id = $1 RETURNING updated_at`
	return r.pool.QueryRow(ctx, q, p.ID, p.Status, p.UrgencyLevel, p.CostGBP, p.BasePrice,
		p.DeadlineCharge, p.AgentFee, p.SuperWorkerFee, p.WorkerPayment, p.ProfitMargin, p.SystemProfit).
		Scan(&p.UpdatedAt)
}

// statusForUpdateTx locks the project row and returns its current status.
func (r *Repository) statusForUpdateTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) (models.ProjectStatus, error) {
	const q = `SELECT status FROM projects WHERE id = $1 FOR UPDATE`
	var status models.ProjectStatus
	err := tx.QueryRow(ctx, q, id).Scan(&status)
	return status, err
}

// setStatusTx updates the project status inside the transaction.
func (r *Repository) setStatusTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, status models.ProjectStatus) error {
	const q = `UPDATE projects SET status = $2, updated_at = NOW() WHERE id = $1`
	_, err := tx.Exec(ctx, q, id, status)
	return err
}
