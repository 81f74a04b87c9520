package assignments

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/scribeworks/backend/internal/models"
)

// slotColumns maps an assignment type to the projects column it fills.
var slotColumns = map[models.AssignmentType]string{
	models.AssignAgent:     "agent_id",
	models.AssignSubAgent:  "sub_agent_id",
	models.AssignWorker:    "worker_id",
	models.AssignSubWorker: "sub_worker_id",
}

// Repository handles assignment history persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an assignments repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListForProject returns a project's assignment history, newest first.
func (r *Repository) ListForProject(ctx context.Context, projectID uuid.UUID) ([]models.AssignmentRecord, error) {
	const q = `SELECT id, project_id, assignee_id, assigner_id, assignment_type, is_valid, level_diff, effective_from, effective_until
		FROM assignment_history WHERE project_id = $1 ORDER BY effective_from DESC`
	rows, err := r.pool.Query(ctx, q, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.AssignmentRecord
	for rows.Next() {
		var rec models.AssignmentRecord
		if err := rows.Scan(&rec.ID, &rec.ProjectID, &rec.AssigneeID, &rec.AssignerID, &rec.AssignmentType,
			&rec.IsValid, &rec.LevelDiff, &rec.EffectiveFrom, &rec.EffectiveUntil); err != nil {
			return nil, err
		}
		list = append(list, rec)
	}
	return list, rows.Err()
}

// ProjectExists reports whether the project is present.
func (r *Repository) ProjectExists(ctx context.Context, projectID uuid.UUID) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM projects WHERE id = $1)`
	var ok bool
	err := r.pool.QueryRow(ctx, q, projectID).Scan(&ok)
	return ok, err
}

// ViewerOnProject reports whether the viewer is the project's client or
// occupies one of its role slots.
func (r *Repository) ViewerOnProject(ctx context.Context, projectID, viewerID uuid.UUID) (bool, error) {
	const q = `SELECT EXISTS (
		SELECT 1 FROM projects
		WHERE id = $1
		  AND (client_id = $2 OR agent_id = $2 OR sub_agent_id = $2 OR worker_id = $2 OR sub_worker_id = $2)
	)`
	var ok bool
	err := r.pool.QueryRow(ctx, q, projectID, viewerID).Scan(&ok)
	return ok, err
}

// InsertRejected records a rejected assignment attempt. The row is closed
// on insert so it can never collide with the open row for the slot.
func (r *Repository) InsertRejected(ctx context.Context, rec *models.AssignmentRecord) error {
	const q = `INSERT INTO assignment_history (id, project_id, assignee_id, assigner_id, assignment_type, is_valid, level_diff, effective_until)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, FALSE, $5, NOW())
		RETURNING id, effective_from, effective_until`
	return r.pool.QueryRow(ctx, q, rec.ProjectID, rec.AssigneeID, rec.AssignerID, rec.AssignmentType, rec.LevelDiff).
		Scan(&rec.ID, &rec.EffectiveFrom, &rec.EffectiveUntil)
}

// Apply writes an accepted assignment atomically: the project row is
// locked, the open history row for (project, type) is closed, the new open
// row inserted and the project's slot column updated.
func (r *Repository) Apply(ctx context.Context, rec *models.AssignmentRecord) error {
	column, ok := slotColumns[rec.AssignmentType]
	if !ok {
		return fmt.Errorf("unknown assignment type %q", rec.AssignmentType)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	const lockProject = `SELECT id FROM projects WHERE id = $1 FOR UPDATE`
	var projectID uuid.UUID
	if err := tx.QueryRow(ctx, lockProject, rec.ProjectID).Scan(&projectID); err != nil {
		if err == pgx.ErrNoRows {
			return ErrProjectNotFound
		}
		return err
	}

	const closeOpen = `UPDATE assignment_history SET effective_until = NOW()
		WHERE project_id = $1 AND assignment_type = $2 AND effective_until IS NULL`
	if _, err := tx.Exec(ctx, closeOpen, rec.ProjectID, rec.AssignmentType); err != nil {
		return err
	}

	const insert = `INSERT INTO assignment_history (id, project_id, assignee_id, assigner_id, assignment_type, is_valid, level_diff)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, TRUE, $5)
		RETURNING id, effective_from`
	if err := tx.QueryRow(ctx, insert, rec.ProjectID, rec.AssigneeID, rec.AssignerID, rec.AssignmentType, rec.LevelDiff).
		Scan(&rec.ID, &rec.EffectiveFrom); err != nil {
		return err
	}

	slotUpdate := fmt.Sprintf(`UPDATE projects SET %s = $2, updated_at = NOW() WHERE id = $1`, column)
	if _, err := tx.Exec(ctx, slotUpdate, rec.ProjectID, rec.AssigneeID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
