package projects

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/scribeworks/backend/internal/models"
	"github.com/scribeworks/backend/internal/pricing"
)

type fakeGraph struct {
	nodes       map[uuid.UUID]*models.HierarchyNode
	descendants map[uuid.UUID]map[uuid.UUID]bool
}

func (g *fakeGraph) GetNode(_ context.Context, userID uuid.UUID) (*models.HierarchyNode, error) {
	return g.nodes[userID], nil
}

func (g *fakeGraph) IsDescendant(_ context.Context, ancestorID, userID uuid.UUID) (bool, error) {
	return g.descendants[ancestorID][userID], nil
}

func dec(s string) decimal.Decimal {
	d, _ := decimal.NewFromString(s)
	return d
}

func TestApplyQuote_MapsBreakdown(t *testing.T) {
	q := &pricing.Quote{
		BaseCost:      dec("55"),
		UrgencyCharge: dec("10"),
		TotalCost:     dec("70.5"),
		UrgencyLevel:  pricing.UrgencyUrgent,
		Fees: pricing.Fees{
			AgentFee:       dec("5.5"),
			SuperWorkerFee: dec("55"),
			WorkerFee:      dec("55"),
			SystemTotal:    dec("180.5"),
		},
	}
	var p models.Project
	applyQuote(&p, q)

	require.Equal(t, pricing.UrgencyUrgent, p.UrgencyLevel)
	require.Equal(t, "70.5", p.CostGBP.String())
	require.Equal(t, "55", p.BasePrice.String())
	require.Equal(t, "10", p.DeadlineCharge.String())
	require.Equal(t, "5.5", p.AgentFee.String())
	require.Equal(t, "55", p.SuperWorkerFee.String())
	require.Equal(t, "55", p.WorkerPayment.String())
	require.Equal(t, "15.5", p.ProfitMargin.String())
	require.Equal(t, "180.5", p.SystemProfit.String())
}

func TestParticipantIDs_SkipsEmptySlots(t *testing.T) {
	clientID, agentID, workerID := uuid.New(), uuid.New(), uuid.New()
	p := &models.Project{ClientID: clientID, AgentID: &agentID, WorkerID: &workerID}

	require.ElementsMatch(t, []uuid.UUID{clientID, agentID, workerID}, participantIDs(p))
}

func TestRequotePermitted_SuperAgentAlways(t *testing.T) {
	s := &Service{graph: &fakeGraph{}}
	p := &models.Project{ClientID: uuid.New()}

	err := s.requotePermitted(context.Background(), p, RequoteInput{ActorID: uuid.New(), ActorRole: models.RoleSuperAgent})
	require.NoError(t, err)
}

func TestRequotePermitted_AgentSlots(t *testing.T) {
	agentID, subAgentID := uuid.New(), uuid.New()
	s := &Service{graph: &fakeGraph{}}
	p := &models.Project{ClientID: uuid.New(), AgentID: &agentID, SubAgentID: &subAgentID}

	require.NoError(t, s.requotePermitted(context.Background(), p, RequoteInput{ActorID: agentID, ActorRole: models.RoleAgent}))
	require.NoError(t, s.requotePermitted(context.Background(), p, RequoteInput{ActorID: subAgentID, ActorRole: models.RoleAgent}))

	err := s.requotePermitted(context.Background(), p, RequoteInput{ActorID: uuid.New(), ActorRole: models.RoleAgent})
	require.ErrorIs(t, err, ErrNotProjectAgent)
}

func TestRequotePermitted_AgentOverOwnClient(t *testing.T) {
	agentID, clientID := uuid.New(), uuid.New()
	graph := &fakeGraph{descendants: map[uuid.UUID]map[uuid.UUID]bool{
		agentID: {clientID: true},
	}}
	s := &Service{graph: graph}

	// Unassigned project from the agent's own client may be quoted.
	p := &models.Project{ClientID: clientID}
	require.NoError(t, s.requotePermitted(context.Background(), p, RequoteInput{ActorID: agentID, ActorRole: models.RoleAgent}))

	// A foreign client's project may not.
	p = &models.Project{ClientID: uuid.New()}
	err := s.requotePermitted(context.Background(), p, RequoteInput{ActorID: agentID, ActorRole: models.RoleAgent})
	require.ErrorIs(t, err, ErrNotProjectAgent)

	// Once an agent slot is filled, subtree membership no longer grants it.
	other := uuid.New()
	p = &models.Project{ClientID: clientID, AgentID: &other}
	err = s.requotePermitted(context.Background(), p, RequoteInput{ActorID: agentID, ActorRole: models.RoleAgent})
	require.ErrorIs(t, err, ErrNotProjectAgent)
}

func TestRequotePermitted_WorkerRolesNever(t *testing.T) {
	s := &Service{graph: &fakeGraph{}}
	p := &models.Project{ClientID: uuid.New()}

	for _, role := range []models.Role{models.RoleSuperWorker, models.RoleWorker, models.RoleClient} {
		err := s.requotePermitted(context.Background(), p, RequoteInput{ActorID: uuid.New(), ActorRole: role})
		require.ErrorIs(t, err, ErrNotProjectAgent, "role %s", role)
	}
}

func TestTransitionError_NamesBothStatuses(t *testing.T) {
	err := &TransitionError{From: models.StatusQuoted, To: models.StatusCompleted}
	require.Contains(t, err.Error(), "quoted")
	require.Contains(t, err.Error(), "completed")
}
