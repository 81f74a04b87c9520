package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProjectStatus tracks a project through its lifecycle.
type ProjectStatus string

const (
	StatusPendingQuote         ProjectStatus = "pending_quote"
	StatusQuoted               ProjectStatus = "quoted"
	StatusPendingQuoteApproval ProjectStatus = "pending_quote_approval"
	StatusApproved             ProjectStatus = "approved"
	StatusInProgress           ProjectStatus = "in_progress"
	StatusSubmitted            ProjectStatus = "submitted"
	StatusCompleted            ProjectStatus = "completed"
	StatusCancelled            ProjectStatus = "cancelled"
	StatusRejectedPayment      ProjectStatus = "rejected_payment"
)

// Valid reports whether the status is one of the known statuses.
func (s ProjectStatus) Valid() bool {
	_, ok := statusTransitions[s]
	return ok
}

// statusTransitions is the canonical lifecycle table. Each status maps to
// the set of statuses it may move to next.
var statusTransitions = map[ProjectStatus][]ProjectStatus{
	StatusPendingQuote:         {StatusQuoted, StatusCancelled},
	StatusQuoted:               {StatusPendingQuoteApproval, StatusCancelled},
	StatusPendingQuoteApproval: {StatusApproved, StatusCancelled},
	StatusApproved:             {StatusInProgress, StatusRejectedPayment, StatusCancelled},
	StatusInProgress:           {StatusSubmitted, StatusCancelled},
	StatusSubmitted:            {StatusCompleted, StatusInProgress},
	StatusCompleted:            {},
	StatusCancelled:            {},
	StatusRejectedPayment:      {StatusApproved, StatusCancelled},
}

// CanTransition reports whether a project may move from s to next.
func (s ProjectStatus) CanTransition(next ProjectStatus) bool {
	for _, t := range statusTransitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// Project is a written-work order. Role-slot fields are nil until filled
// by an assignment. Monetary fields are pointers so role-based filtering
// can withhold them from a response entirely; they are derived by the
// pricing engine, never edited directly.
type Project struct {
	ID          uuid.UUID  `json:"id"`
	ClientID    uuid.UUID  `json:"client_id"`
	AgentID     *uuid.UUID `json:"agent_id,omitempty"`
	SubAgentID  *uuid.UUID `json:"sub_agent_id,omitempty"`
	WorkerID    *uuid.UUID `json:"worker_id,omitempty"`
	SubWorkerID *uuid.UUID `json:"sub_worker_id,omitempty"`

	Title        string        `json:"title"`
	Description  string        `json:"description,omitempty"`
	WordCount    int           `json:"word_count"`
	Deadline     time.Time     `json:"deadline"`
	Status       ProjectStatus `json:"status"`
	UrgencyLevel string        `json:"urgency_level,omitempty"`

	CostGBP        *decimal.Decimal `json:"cost_gbp,omitempty"`
	BasePrice      *decimal.Decimal `json:"base_price,omitempty"`
	DeadlineCharge *decimal.Decimal `json:"deadline_charge,omitempty"`
	AgentFee       *decimal.Decimal `json:"agent_fee,omitempty"`
	SuperWorkerFee *decimal.Decimal `json:"super_worker_fee,omitempty"`
	WorkerPayment  *decimal.Decimal `json:"worker_payment,omitempty"`
	ProfitMargin   *decimal.Decimal `json:"profit_margin,omitempty"`
	SystemProfit   *decimal.Decimal `json:"system_profit,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Money returns a pointer to a copy of d, for populating project
// monetary fields.
func Money(d decimal.Decimal) *decimal.Decimal {
	return &d
}
