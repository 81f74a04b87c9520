package pricing

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/scribeworks/backend/internal/models"
)

// Repository handles agent rate card persistence. One row per agent is
// open at a time (effective_until IS NULL); saving closes the old row.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a pricing repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ActiveForAgent returns the agent's open rate card.
func (r *Repository) ActiveForAgent(ctx context.Context, agentID uuid.UUID) (*models.AgentPricingConfig, error) {
	const q = `SELECT id, agent_id, min_word_count, max_word_count, base_rate_per_500, fee_percentage, effective_from, effective_until
		FROM agent_pricing_configs WHERE agent_id = $1 AND effective_until IS NULL`
	var cfg models.AgentPricingConfig
	err := r.pool.QueryRow(ctx, q, agentID).Scan(&cfg.ID, &cfg.AgentID, &cfg.MinWordCount, &cfg.MaxWordCount,
		&cfg.BaseRatePer500, &cfg.FeePercentage, &cfg.EffectiveFrom, &cfg.EffectiveUntil)
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Upsert supersedes the agent's rate card: the open row (if any) is closed
// and the new card inserted as the open row, atomically. History stays.
func (r *Repository) Upsert(ctx context.Context, cfg *models.AgentPricingConfig) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	const closeOpen = `UPDATE agent_pricing_configs SET effective_until = NOW()
		WHERE agent_id = $1 AND effective_until IS NULL`
	if _, err := tx.Exec(ctx, closeOpen, cfg.AgentID); err != nil {
		return err
	}
	const insert = `INSERT INTO agent_pricing_configs (id, agent_id, min_word_count, max_word_count, base_rate_per_500, fee_percentage)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5)
		RETURNING id, effective_from`
	if err := tx.QueryRow(ctx, insert, cfg.AgentID, cfg.MinWordCount, cfg.MaxWordCount, cfg.BaseRatePer500, cfg.FeePercentage).
		Scan(&cfg.ID, &cfg.EffectiveFrom); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// History returns the agent's rate cards, newest first.
func (r *Repository) History(ctx context.Context, agentID uuid.UUID) ([]models.AgentPricingConfig, error) {
	const q = `SELECT id, agent_id, min_word_count, max_word_count, base_rate_per_500, fee_percentage, effective_from, effective_until
		FROM agent_pricing_configs WHERE agent_id = $1 ORDER BY effective_from DESC`
	rows, err := r.pool.Query(ctx, q, agentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.AgentPricingConfig
	for rows.Next() {
		var cfg models.AgentPricingConfig
		if err := rows.Scan(&cfg.ID, &cfg.AgentID, &cfg.MinWordCount, &cfg.MaxWordCount,
			&cfg.BaseRatePer500, &cfg.FeePercentage, &cfg.EffectiveFrom, &cfg.EffectiveUntil); err != nil {
			return nil, err
		}
		list = append(list, cfg)
	}
	return list, rows.Err()
}

// RatesFrom converts a stored rate card to engine input. nil stays nil so
// the flat platform table applies.
func RatesFrom(cfg *models.AgentPricingConfig) *AgentRates {
	if cfg == nil {
		return nil
	}
	return &AgentRates{
		BaseRatePer500: cfg.BaseRatePer500,
		FeePercentage:  cfg.FeePercentage,
		MinWordCount:   cfg.MinWordCount,
		MaxWordCount:   cfg.MaxWordCount,
	}
}
