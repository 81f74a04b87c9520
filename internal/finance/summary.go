package finance

import (
	"github.com/shopspring/decimal"

	"github.com/scribeworks/backend/internal/models"
)

// Summary aggregates the financial fields a viewer is allowed to see
// across their projects. Totals are nil when the role sees no such field
// on any project, so they never leak as zeroes.
type Summary struct {
	Projects int                          `json:"projects"`
	ByStatus map[models.ProjectStatus]int `json:"by_status"`

	TotalValue       *decimal.Decimal `json:"total_value,omitempty"`
	TotalAgentFees   *decimal.Decimal `json:"total_agent_fees,omitempty"`
	TotalWorkerPay   *decimal.Decimal `json:"total_worker_payments,omitempty"`
	TotalProfit      *decimal.Decimal `json:"total_profit,omitempty"`
	TotalSystemShare *decimal.Decimal `json:"total_system_share,omitempty"`
}

// BuildSummary filters each project for the viewer and sums what remains
// visible. The filter runs first, so a total can never include an amount
// the role could not read on the project itself.
func BuildSummary(projects []models.Project, v Viewer) Summary {
	s := Summary{ByStatus: make(map[models.ProjectStatus]int)}
	for _, p := range projects {
		p = FilterProject(p, v)
		s.Projects++
		s.ByStatus[p.Status]++
		s.TotalValue = addMoney(s.TotalValue, p.CostGBP)
		s.TotalAgentFees = addMoney(s.TotalAgentFees, p.AgentFee)
		s.TotalWorkerPay = addMoney(s.TotalWorkerPay, p.WorkerPayment)
		s.TotalProfit = addMoney(s.TotalProfit, p.ProfitMargin)
		s.TotalSystemShare = addMoney(s.TotalSystemShare, p.SystemProfit)
	}
	return s
}

func addMoney(total, amount *decimal.Decimal) *decimal.Decimal {
	if amount == nil {
		return total
	}
	if total == nil {
		return models.Money(*amount)
	}
	return models.Money(total.Add(*amount))
}
