package pricing

import (
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// unitWords is the charge unit for agent-specific linear rates.
const unitWords = 500

// ValidationError marks a quote request rejected on its inputs.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

// AgentRates is an agent's linear rate card as the engine consumes it.
type AgentRates struct {
	BaseRatePer500 decimal.Decimal
	FeePercentage  decimal.Decimal
	MinWordCount   int
	MaxWordCount   int
}

// Fees is the split of a quote across roles. SuperWorkerFee and WorkerFee
// each equal the base cost; SystemTotal is the internal accounting total,
// not a client-facing price.
type Fees struct {
	AgentFee       decimal.Decimal `json:"agent_fee"`
	SuperWorkerFee decimal.Decimal `json:"super_worker_fee"`
	WorkerFee      decimal.Decimal `json:"worker_fee"`
	SystemTotal    decimal.Decimal `json:"system_total"`
}

// Quote is a full price breakdown for a word count and deadline.
type Quote struct {
	BaseCost      decimal.Decimal `json:"base_cost"`
	UrgencyCharge decimal.Decimal `json:"urgency_charge"`
	TotalCost     decimal.Decimal `json:"total_cost"`
	UrgencyLevel  string          `json:"urgency_level"`
	Fees          Fees            `json:"fees"`
}

// QuoteRequest carries the pricing inputs. Now defaults to time.Now when
// zero; AgentRates nil selects the flat platform table.
type QuoteRequest struct {
	WordCount  int
	Deadline   time.Time
	Now        time.Time
	AgentRates *AgentRates
}

// Engine prices quotes from explicit tables.
type Engine struct {
	table   RateTable
	urgency []UrgencyBand
	feePct  decimal.Decimal
}

// NewEngine creates a pricing engine. systemFeePct is the agent fee
// percentage applied on the flat path, where no agent rate card exists.
func NewEngine(table RateTable, urgency []UrgencyBand, systemFeePct decimal.Decimal) *Engine {
	return &Engine{table: table, urgency: urgency, feePct: systemFeePct}
}

// Quote prices a request. Word counts outside the applicable bounds, past
// deadlines, non-positive rates and fee percentages outside [0,100] come
// back as *ValidationError.
func (e *Engine) Quote(req QuoteRequest) (*Quote, error) {
	now := req.Now
	if now.IsZero() {
		now = time.Now()
	}
	if req.Deadline.Before(now) {
		return nil, &ValidationError{Reason: "deadline is in the past"}
	}

	minWords, maxWords := e.table.MinWords, e.table.MaxWords
	feePct := e.feePct
	if req.AgentRates != nil {
		minWords, maxWords = req.AgentRates.MinWordCount, req.AgentRates.MaxWordCount
		feePct = req.AgentRates.FeePercentage
	}
	if req.WordCount < minWords || req.WordCount > maxWords {
		return nil, &ValidationError{Reason: fmt.Sprintf("word count %d outside the allowed range %d–%d", req.WordCount, minWords, maxWords)}
	}
	if feePct.IsNegative() || feePct.GreaterThan(decimal.NewFromInt(100)) {
		return nil, &ValidationError{Reason: "fee percentage must be between 0 and 100"}
	}

	var base decimal.Decimal
	if req.AgentRates != nil {
		rate := req.AgentRates.BaseRatePer500
		if !rate.IsPositive() {
			return nil, &ValidationError{Reason: "base rate must be positive"}
		}
		units := (req.WordCount + unitWords - 1) / unitWords
		base = rate.Mul(decimal.NewFromInt(int64(units)))
	} else {
		base = e.table.PriceFor(req.WordCount)
	}

	level, charge := urgencyFor(e.urgency, req.Deadline.Sub(now))
	agentFee := base.Mul(feePct).Div(decimal.NewFromInt(100)).Round(2)
	total := base.Add(charge).Add(agentFee)

	return &Quote{
		BaseCost:      base,
		UrgencyCharge: charge,
		TotalCost:     total,
		UrgencyLevel:  level,
		Fees: Fees{
			AgentFee:       agentFee,
			SuperWorkerFee: base,
			WorkerFee:      base,
			SystemTotal:    total.Add(base).Add(base),
		},
	}, nil
}

// urgencyFor maps time-until-deadline to a tier. Day counts round up, so a
// deadline 24h01m away counts as two days; the listed thresholds are
// inclusive.
func urgencyFor(bands []UrgencyBand, until time.Duration) (string, decimal.Decimal) {
	days := int(math.Ceil(until.Hours() / 24))
	for _, b := range bands {
		if days <= b.MaxDays {
			return b.Level, b.Charge
		}
	}
	return UrgencyNormal, decimal.Zero
}
