package refcodes

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/scribeworks/backend/internal/models"
)

// Repository handles reference code persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a reference code repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Insert stores a new code. Fails with a unique violation when the code
// string already exists (active or not).
func (r *Repository) Insert(ctx context.Context, ownerID uuid.UUID, codeType models.CodeType, code string, expiresAt *time.Time) (*models.ReferenceCode, error) {
	const q = `INSERT INTO reference_codes (id, code, owner_id, code_type, expires_at)
		VALUES (gen_random_uuid(), $1, $2, $3, $4)
		RETURNING id, code, owner_id, code_type, is_active, expires_at, created_at`
	var ref models.ReferenceCode
	err := r.pool.QueryRow(ctx, q, code, ownerID, string(codeType), expiresAt).
		Scan(&ref.ID, &ref.Code, &ref.OwnerID, &ref.CodeType, &ref.IsActive, &ref.ExpiresAt, &ref.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &ref, nil
}

// GetByCode returns a code with its owner's role and tree position.
func (r *Repository) GetByCode(ctx context.Context, code string) (*CodeOwner, error) {
	const q = `SELECT rc.id, rc.code, rc.owner_id, rc.code_type, rc.is_active, rc.expires_at, rc.created_at,
			u.role, h.hierarchy_level, h.super_agent_id
		FROM reference_codes rc
		JOIN users u ON u.id = rc.owner_id
		JOIN hierarchy h ON h.user_id = rc.owner_id
		WHERE rc.code = $1`
	var co CodeOwner
	err := r.pool.QueryRow(ctx, q, code).
		Scan(&co.Ref.ID, &co.Ref.Code, &co.Ref.OwnerID, &co.Ref.CodeType, &co.Ref.IsActive, &co.Ref.ExpiresAt, &co.Ref.CreatedAt,
			&co.OwnerRole, &co.OwnerLevel, &co.SuperAgentID)
	if err != nil {
		return nil, err
	}
	return &co, nil
}

// ListByOwner returns all codes issued by a user, newest first.
func (r *Repository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.ReferenceCode, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, code, owner_id, code_type, is_active, expires_at, created_at
		FROM reference_codes WHERE owner_id = $1 ORDER BY created_at DESC`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.ReferenceCode
	for rows.Next() {
		var ref models.ReferenceCode
		if err := rows.Scan(&ref.ID, &ref.Code, &ref.OwnerID, &ref.CodeType, &ref.IsActive, &ref.ExpiresAt, &ref.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, ref)
	}
	return list, rows.Err()
}

// Deactivate flips is_active off for a code the owner issued. Returns
// false when no such code exists for this owner.
func (r *Repository) Deactivate(ctx context.Context, id, ownerID uuid.UUID) (bool, error) {
	const q = `UPDATE reference_codes SET is_active = FALSE WHERE id = $1 AND owner_id = $2`
	tag, err := r.pool.Exec(ctx, q, id, ownerID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
