package finance

import (
	"github.com/google/uuid"

	"github.com/scribeworks/backend/internal/models"
)

// Viewer identifies who is looking at financial data.
type Viewer struct {
	ID   uuid.UUID
	Role models.Role
}

// FilterProject strips the monetary fields the viewer's role may not see
// and returns the projected copy. Stripped fields are nil pointers, so
// they vanish from the JSON body rather than rendering as zeroes. Every
// endpoint that returns a project must pass it through here before
// serialization.
func FilterProject(p models.Project, v Viewer) models.Project {
	switch v.Role {
	case models.RoleSuperAgent:
		// Unrestricted view.
	case models.RoleAgent:
		stripProfits(&p)
		if !agentOnProject(&p, v.ID) {
			stripAll(&p)
		}
	case models.RoleSuperWorker:
		p.AgentFee = nil
		stripProfits(&p)
	case models.RoleClient:
		if p.ClientID == v.ID {
			stripInternal(&p)
		} else {
			stripAll(&p)
		}
	default:
		// Workers and unknown roles see no monetary data at all.
		stripAll(&p)
	}
	return p
}

// FilterProjects applies FilterProject to every element.
func FilterProjects(list []models.Project, v Viewer) []models.Project {
	out := make([]models.Project, len(list))
	for i, p := range list {
		out[i] = FilterProject(p, v)
	}
	return out
}

func agentOnProject(p *models.Project, viewerID uuid.UUID) bool {
	if p.AgentID != nil && *p.AgentID == viewerID {
		return true
	}
	return p.SubAgentID != nil && *p.SubAgentID == viewerID
}

// stripAll removes every monetary field.
func stripAll(p *models.Project) {
	p.CostGBP = nil
	p.BasePrice = nil
	p.DeadlineCharge = nil
	p.AgentFee = nil
	p.SuperWorkerFee = nil
	p.WorkerPayment = nil
	stripProfits(p)
}

// stripProfits removes the margin fields only the super agent may see.
func stripProfits(p *models.Project) {
	p.ProfitMargin = nil
	p.SystemProfit = nil
}

// stripInternal keeps the client-facing price fields and removes the
// internal fee and profit breakdown.
func stripInternal(p *models.Project) {
	p.AgentFee = nil
	p.SuperWorkerFee = nil
	p.WorkerPayment = nil
	stripProfits(p)
}
