package finance

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/scribeworks/backend/internal/models"
)

// pricedProject returns a project with every monetary field populated, so
// each test can assert exactly which fields survive the filter.
func pricedProject(clientID uuid.UUID) models.Project {
	return models.Project{
		ID:        uuid.New(),
		ClientID:  clientID,
		Title:     "dissertation chapter",
		WordCount: 1000,
		Status:    models.StatusQuoted,

		CostGBP:        models.Money(decimal.NewFromInt(170)),
		BasePrice:      models.Money(decimal.NewFromInt(55)),
		DeadlineCharge: models.Money(decimal.NewFromInt(10)),
		AgentFee:       models.Money(decimal.NewFromInt(11)),
		SuperWorkerFee: models.Money(decimal.NewFromInt(55)),
		WorkerPayment:  models.Money(decimal.NewFromInt(55)),
		ProfitMargin:   models.Money(decimal.NewFromInt(11)),
		SystemProfit:   models.Money(decimal.NewFromInt(60)),
	}
}

func money(t *testing.T, d *decimal.Decimal) string {
	t.Helper()
	require.NotNil(t, d)
	return d.String()
}

func requireNoMoney(t *testing.T, p models.Project) {
	t.Helper()
	require.Nil(t, p.CostGBP)
	require.Nil(t, p.BasePrice)
	require.Nil(t, p.DeadlineCharge)
	require.Nil(t, p.AgentFee)
	require.Nil(t, p.SuperWorkerFee)
	require.Nil(t, p.WorkerPayment)
	require.Nil(t, p.ProfitMargin)
	require.Nil(t, p.SystemProfit)
}

func TestFilterProject_WorkerSeesNoMoney(t *testing.T) {
	workerID := uuid.New()
	p := pricedProject(uuid.New())
	// Even the assigned worker gets no monetary fields.
	p.WorkerID = &workerID

	got := FilterProject(p, Viewer{ID: workerID, Role: models.RoleWorker})
	requireNoMoney(t, got)
}

func TestFilterProject_OwningClientKeepsPriceOnly(t *testing.T) {
	clientID := uuid.New()
	got := FilterProject(pricedProject(clientID), Viewer{ID: clientID, Role: models.RoleClient})

	require.Equal(t, "170", money(t, got.CostGBP))
	require.Equal(t, "55", money(t, got.BasePrice))
	require.Equal(t, "10", money(t, got.DeadlineCharge))
	require.Nil(t, got.AgentFee)
	require.Nil(t, got.SuperWorkerFee)
	require.Nil(t, got.WorkerPayment)
	require.Nil(t, got.ProfitMargin)
	require.Nil(t, got.SystemProfit)
}

func TestFilterProject_ForeignClientSeesNothing(t *testing.T) {
	got := FilterProject(pricedProject(uuid.New()), Viewer{ID: uuid.New(), Role: models.RoleClient})
	requireNoMoney(t, got)
}

func TestFilterProject_AgentOnProjectKeepsFeesNotProfits(t *testing.T) {
	agentID := uuid.New()
	p := pricedProject(uuid.New())
	p.AgentID = &agentID

	got := FilterProject(p, Viewer{ID: agentID, Role: models.RoleAgent})
	require.Equal(t, "170", money(t, got.CostGBP))
	require.Equal(t, "11", money(t, got.AgentFee))
	require.Equal(t, "55", money(t, got.WorkerPayment))
	require.Nil(t, got.ProfitMargin)
	require.Nil(t, got.SystemProfit)

	// The sub-agent slot counts as being on the project too.
	subAgentID := uuid.New()
	p = pricedProject(uuid.New())
	p.SubAgentID = &subAgentID
	got = FilterProject(p, Viewer{ID: subAgentID, Role: models.RoleAgent})
	require.NotNil(t, got.CostGBP)
	require.Nil(t, got.ProfitMargin)
}

func TestFilterProject_AgentOffProjectSeesNothing(t *testing.T) {
	otherAgent := uuid.New()
	p := pricedProject(uuid.New())
	p.AgentID = &otherAgent

	got := FilterProject(p, Viewer{ID: uuid.New(), Role: models.RoleAgent})
	requireNoMoney(t, got)
}

func TestFilterProject_SuperWorkerKeepsWorkerPay(t *testing.T) {
	got := FilterProject(pricedProject(uuid.New()), Viewer{ID: uuid.New(), Role: models.RoleSuperWorker})

	require.Equal(t, "55", money(t, got.SuperWorkerFee))
	require.Equal(t, "55", money(t, got.WorkerPayment))
	require.Equal(t, "170", money(t, got.CostGBP))
	require.Nil(t, got.AgentFee)
	require.Nil(t, got.ProfitMargin)
	require.Nil(t, got.SystemProfit)
}

func TestFilterProject_SuperAgentUnfiltered(t *testing.T) {
	got := FilterProject(pricedProject(uuid.New()), Viewer{ID: uuid.New(), Role: models.RoleSuperAgent})

	require.Equal(t, "170", money(t, got.CostGBP))
	require.Equal(t, "11", money(t, got.AgentFee))
	require.Equal(t, "11", money(t, got.ProfitMargin))
	require.Equal(t, "60", money(t, got.SystemProfit))
}

func TestFilterProject_DoesNotMutateInput(t *testing.T) {
	p := pricedProject(uuid.New())
	_ = FilterProject(p, Viewer{ID: uuid.New(), Role: models.RoleWorker})

	require.NotNil(t, p.CostGBP)
	require.NotNil(t, p.SystemProfit)
}

func TestBuildSummary_TotalsFollowVisibility(t *testing.T) {
	a := pricedProject(uuid.New())
	b := pricedProject(uuid.New())
	b.Status = models.StatusCompleted
	projects := []models.Project{a, b}

	s := BuildSummary(projects, Viewer{ID: uuid.New(), Role: models.RoleSuperAgent})
	require.Equal(t, 2, s.Projects)
	require.Equal(t, 1, s.ByStatus[models.StatusQuoted])
	require.Equal(t, 1, s.ByStatus[models.StatusCompleted])
	require.Equal(t, "340", money(t, s.TotalValue))
	require.Equal(t, "22", money(t, s.TotalAgentFees))
	require.Equal(t, "22", money(t, s.TotalProfit))
	require.Equal(t, "120", money(t, s.TotalSystemShare))

	s = BuildSummary(projects, Viewer{ID: uuid.New(), Role: models.RoleWorker})
	require.Equal(t, 2, s.Projects)
	require.Nil(t, s.TotalValue)
	require.Nil(t, s.TotalAgentFees)
	require.Nil(t, s.TotalProfit)
	require.Nil(t, s.TotalSystemShare)
}

func TestBuildSummary_OwningClientSumsOwnProjectsOnly(t *testing.T) {
	clientID := uuid.New()
	own := pricedProject(clientID)
	foreign := pricedProject(uuid.New())

	s := BuildSummary([]models.Project{own, foreign}, Viewer{ID: clientID, Role: models.RoleClient})
	require.Equal(t, 2, s.Projects)
	require.Equal(t, "170", money(t, s.TotalValue))
	require.Nil(t, s.TotalAgentFees)
	require.Nil(t, s.TotalWorkerPay)
}
