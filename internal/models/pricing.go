package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AgentPricingConfig is an agent's personal rate card. At most one row per
// agent is open (EffectiveUntil nil); saving a new card closes the old row
// so history is retained.
type AgentPricingConfig struct {
	ID             uuid.UUID       `json:"id"`
	AgentID        uuid.UUID       `json:"agent_id"`
	MinWordCount   int             `json:"min_word_count"`
	MaxWordCount   int             `json:"max_word_count"`
	BaseRatePer500 decimal.Decimal `json:"base_rate_per_500"`
	FeePercentage  decimal.Decimal `json:"fee_percentage"`
	EffectiveFrom  time.Time       `json:"effective_from"`
	EffectiveUntil *time.Time      `json:"effective_until,omitempty"`
}
