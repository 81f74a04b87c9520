package auth

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/scribeworks/backend/internal/models"
)

// Repository handles user persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an auth repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetByID returns a user by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	const q = `SELECT id, email, password_hash, full_name, role, created_at, updated_at
		FROM users WHERE id = $1`
	var u models.User
	err := r.pool.QueryRow(ctx, q, id).Scan(&u.ID, &u.Email, &u.Password, &u.FullName, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByEmail returns a user by email.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	const q = `SELECT id, email, password_hash, full_name, role, created_at, updated_at
		FROM users WHERE email = $1`
	var u models.User
	err := r.pool.QueryRow(ctx, q, email).Scan(&u.ID, &u.Email, &u.Password, &u.FullName, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// List returns all users ordered by name.
func (r *Repository) List(ctx context.Context) ([]models.UserPublic, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, email, full_name, role, created_at FROM users ORDER BY full_name, email`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.UserPublic
	for rows.Next() {
		var u models.UserPublic
		if err := rows.Scan(&u.ID, &u.Email, &u.FullName, &u.Role, &u.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, u)
	}
	return list, rows.Err()
}

// CountByRole returns how many users hold the given role.
func (r *Repository) CountByRole(ctx context.Context, role models.Role) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE role = $1`, string(role)).Scan(&n)
	return n, err
}

// CreateUserParams holds everything needed to place a new user in the tree.
// ParentID and SuperAgentID are nil only for the root super_agent, whose
// node points at itself.
type CreateUserParams struct {
	Email        string
	PasswordHash string
	FullName     string
	Role         models.Role
	ParentID     *uuid.UUID
	Level        int
	SuperAgentID *uuid.UUID
}

// Create inserts the user row and its hierarchy node in one transaction.
func (r *Repository) Create(ctx context.Context, p CreateUserParams) (*models.User, *models.HierarchyNode, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	const insertUser = `INSERT INTO users (id, email, password_hash, full_name, role)
		VALUES (gen_random_uuid(), $1, $2, $3, $4)
		RETURNING id, email, password_hash, full_name, role, created_at, updated_at`
	var u models.User
	err = tx.QueryRow(ctx, insertUser, p.Email, p.PasswordHash, p.FullName, string(p.Role)).
		Scan(&u.ID, &u.Email, &u.Password, &u.FullName, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, nil, fmt.Errorf("insert user: %w", err)
	}

	superAgentID := u.ID
	if p.SuperAgentID != nil {
		superAgentID = *p.SuperAgentID
	}
	const insertNode = `INSERT INTO hierarchy (user_id, parent_id, hierarchy_level, super_agent_id)
		VALUES ($1, $2, $3, $4)
		RETURNING user_id, parent_id, hierarchy_level, super_agent_id, created_at, updated_at`
	var n models.HierarchyNode
	err = tx.QueryRow(ctx, insertNode, u.ID, p.ParentID, p.Level, superAgentID).
		Scan(&n.UserID, &n.ParentID, &n.Level, &n.SuperAgentID, &n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		return nil, nil, fmt.Errorf("insert hierarchy node: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, fmt.Errorf("commit: %w", err)
	}
	return &u, &n, nil
}
