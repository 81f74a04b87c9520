package hierarchy

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/scribeworks/backend/internal/models"
)

// Repository handles hierarchy tree persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a hierarchy repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetNode returns the hierarchy row for a user.
func (r *Repository) GetNode(ctx context.Context, userID uuid.UUID) (*models.HierarchyNode, error) {
	const q = `SELECT user_id, parent_id, hierarchy_level, super_agent_id, created_at, updated_at
		FROM hierarchy WHERE user_id = $1`
	var n models.HierarchyNode
	err := r.pool.QueryRow(ctx, q, userID).Scan(&n.UserID, &n.ParentID, &n.Level, &n.SuperAgentID, &n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// GetEntry returns the hierarchy row joined with the user's profile.
func (r *Repository) GetEntry(ctx context.Context, userID uuid.UUID) (*models.HierarchyEntry, error) {
	const q = `SELECT h.user_id, h.parent_id, h.hierarchy_level, h.super_agent_id, h.created_at, h.updated_at,
			u.email, u.full_name, u.role
		FROM hierarchy h
		JOIN users u ON u.id = h.user_id
		WHERE h.user_id = $1`
	var e models.HierarchyEntry
	err := r.pool.QueryRow(ctx, q, userID).Scan(&e.UserID, &e.ParentID, &e.Level, &e.SuperAgentID,
		&e.CreatedAt, &e.UpdatedAt, &e.Email, &e.FullName, &e.Role)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// Subtree returns the user's subtree (the user included) ordered by level
// then recruitment time, suitable for nesting into a tree view.
func (r *Repository) Subtree(ctx context.Context, rootID uuid.UUID) ([]models.HierarchyEntry, error) {
	const q = `WITH RECURSIVE subtree AS (
			SELECT user_id FROM hierarchy WHERE user_id = $1
			UNION ALL
			SELECT h.user_id FROM hierarchy h JOIN subtree s ON h.parent_id = s.user_id
		)
		SELECT h.user_id, h.parent_id, h.hierarchy_level, h.super_agent_id, h.created_at, h.updated_at,
			u.email, u.full_name, u.role
		FROM subtree s
		JOIN hierarchy h ON h.user_id = s.user_id
		JOIN users u ON u.id = s.user_id
		ORDER BY h.hierarchy_level, h.created_at`
	rows, err := r.pool.Query(ctx, q, rootID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.HierarchyEntry
	for rows.Next() {
		var e models.HierarchyEntry
		if err := rows.Scan(&e.UserID, &e.ParentID, &e.Level, &e.SuperAgentID, &e.CreatedAt, &e.UpdatedAt,
			&e.Email, &e.FullName, &e.Role); err != nil {
			return nil, err
		}
		list = append(list, e)
	}
	return list, rows.Err()
}

// DescendantIDs returns the ids of every user strictly below userID.
func (r *Repository) DescendantIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	const q = `WITH RECURSIVE subtree AS (
			SELECT user_id FROM hierarchy WHERE parent_id = $1
			UNION ALL
			SELECT h.user_id FROM hierarchy h JOIN subtree s ON h.parent_id = s.user_id
		)
		SELECT user_id FROM subtree`
	rows, err := r.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// IsDescendant reports whether childID sits strictly below ancestorID.
func (r *Repository) IsDescendant(ctx context.Context, ancestorID, childID uuid.UUID) (bool, error) {
	const q = `WITH RECURSIVE subtree AS (
			SELECT user_id FROM hierarchy WHERE parent_id = $1
			UNION ALL
			SELECT h.user_id FROM hierarchy h JOIN subtree s ON h.parent_id = s.user_id
		)
		SELECT EXISTS (SELECT 1 FROM subtree WHERE user_id = $2)`
	var ok bool
	err := r.pool.QueryRow(ctx, q, ancestorID, childID).Scan(&ok)
	return ok, err
}

// ListChanges returns the most recent move audit rows.
func (r *Repository) ListChanges(ctx context.Context, limit int) ([]models.HierarchyChange, error) {
	const q = `SELECT id, user_id, old_parent_id, new_parent_id, old_level, new_level, changed_by, reason, created_at
		FROM hierarchy_changes ORDER BY created_at DESC LIMIT $1`
	rows, err := r.pool.Query(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.HierarchyChange
	for rows.Next() {
		var ch models.HierarchyChange
		if err := rows.Scan(&ch.ID, &ch.UserID, &ch.OldParentID, &ch.NewParentID, &ch.OldLevel, &ch.NewLevel,
			&ch.ChangedBy, &ch.Reason, &ch.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, ch)
	}
	return list, rows.Err()
}

// entryForUpdate reads a hierarchy row with its profile under a row lock,
// inside the move transaction.
func (r *Repository) entryForUpdate(ctx context.Context, tx pgx.Tx, userID uuid.UUID) (*models.HierarchyEntry, error) {
	const q = `SELECT h.user_id, h.parent_id, h.hierarchy_level, h.super_agent_id, h.created_at, h.updated_at,
			u.email, u.full_name, u.role
		FROM hierarchy h
		JOIN users u ON u.id = h.user_id
		WHERE h.user_id = $1
		FOR UPDATE OF h`
	var e models.HierarchyEntry
	err := tx.QueryRow(ctx, q, userID).Scan(&e.UserID, &e.ParentID, &e.Level, &e.SuperAgentID,
		&e.CreatedAt, &e.UpdatedAt, &e.Email, &e.FullName, &e.Role)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// ancestorIDsTx walks upward from userID and returns the chain including
// userID itself.
func (r *Repository) ancestorIDsTx(ctx context.Context, tx pgx.Tx, userID uuid.UUID) ([]uuid.UUID, error) {
	const q = `WITH RECURSIVE ancestors AS (
			SELECT user_id, parent_id FROM hierarchy WHERE user_id = $1
			UNION ALL
			SELECT h.user_id, h.parent_id FROM hierarchy h JOIN ancestors a ON h.user_id = a.parent_id
		)
		SELECT user_id FROM ancestors`
	rows, err := tx.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// maxSubtreeLevelTx returns the deepest level in the user's subtree, the
// user's own level when they have no descendants.
func (r *Repository) maxSubtreeLevelTx(ctx context.Context, tx pgx.Tx, userID uuid.UUID) (int, error) {
	const q = `WITH RECURSIVE subtree AS (
			SELECT user_id, hierarchy_level FROM hierarchy WHERE user_id = $1
			UNION ALL
			SELECT h.user_id, h.hierarchy_level FROM hierarchy h JOIN subtree s ON h.parent_id = s.user_id
		)
		SELECT MAX(hierarchy_level) FROM subtree`
	var level int
	err := tx.QueryRow(ctx, q, userID).Scan(&level)
	return level, err
}

// moveSubtreeTx re-parents the user and shifts the whole subtree: every
// descendant keeps its relative depth and is retargeted to the destination
// tree's root.
func (r *Repository) moveSubtreeTx(ctx context.Context, tx pgx.Tx, userID, newParentID uuid.UUID, levelDelta int, newSuperAgentID uuid.UUID) error {
	const reparent = `UPDATE hierarchy SET parent_id = $2, updated_at = NOW() WHERE user_id = $1`
	if _, err := tx.Exec(ctx, reparent, userID, newParentID); err != nil {
		return err
	}
	const shift = `WITH RECURSIVE subtree AS (
			SELECT user_id FROM hierarchy WHERE user_id = $1
			UNION ALL
			SELECT h.user_id FROM hierarchy h JOIN subtree s ON h.parent_id = s.user_id
		)
		UPDATE hierarchy SET hierarchy_level = hierarchy_level + $2, super_agent_id = $3, updated_at = NOW()
		WHERE user_id IN (SELECT user_id FROM subtree)`
	_, err := tx.Exec(ctx, shift, userID, levelDelta, newSuperAgentID)
	return err
}

// insertChangeTx appends a move audit row.
func (r *Repository) insertChangeTx(ctx context.Context, tx pgx.Tx, ch *models.HierarchyChange) error {
	const q = `INSERT INTO hierarchy_changes (id, user_id, old_parent_id, new_parent_id, old_level, new_level, changed_by, reason)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`
	return tx.QueryRow(ctx, q, ch.UserID, ch.OldParentID, ch.NewParentID, ch.OldLevel, ch.NewLevel, ch.ChangedBy, ch.Reason).
		Scan(&ch.ID, &ch.CreatedAt)
}
