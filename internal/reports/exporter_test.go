package reports

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/scribeworks/backend/internal/finance"
	"github.com/scribeworks/backend/internal/models"
)

func exportProject(clientID uuid.UUID, title string) models.Project {
	return models.Project{
		ID:        uuid.New(),
		ClientID:  clientID,
		Title:     title,
		WordCount: 1500,
		Deadline:  time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		Status:    models.StatusApproved,

		CostGBP:        models.Money(decimal.NewFromInt(80)),
		BasePrice:      models.Money(decimal.NewFromInt(70)),
		DeadlineCharge: models.Money(decimal.NewFromInt(5)),
		AgentFee:       models.Money(decimal.NewFromInt(5)),
		SuperWorkerFee: models.Money(decimal.NewFromInt(70)),
		WorkerPayment:  models.Money(decimal.NewFromInt(70)),
		ProfitMargin:   models.Money(decimal.NewFromInt(10)),
		SystemProfit:   models.Money(decimal.NewFromInt(220)),
	}
}

func parseCSV(t *testing.T, body []byte) [][]string {
	t.Helper()
	records, err := csv.NewReader(bytes.NewReader(body)).ReadAll()
	require.NoError(t, err)
	return records
}

func TestBuildCSV_SuperAgentFullBreakdown(t *testing.T) {
	projects := []models.Project{
		exportProject(uuid.New(), "thesis intro"),
		exportProject(uuid.New(), "case study"),
	}
	body := BuildCSV(projects, finance.Viewer{ID: uuid.New(), Role: models.RoleSuperAgent})

	records := parseCSV(t, body)
	require.Len(t, records, 3)
	require.Equal(t, csvHeader, records[0])

	row := records[1]
	require.Equal(t, "thesis intro", row[1])
	require.Equal(t, "approved", row[2])
	require.Equal(t, "1500", row[3])
	require.Equal(t, "2025-06-01T12:00:00Z", row[4])
	require.Equal(t, "80.00", row[6])
	require.Equal(t, "10.00", row[12])
	require.Equal(t, "220.00", row[13])
}

func TestBuildCSV_WorkerRowsCarryNoMoney(t *testing.T) {
	body := BuildCSV([]models.Project{exportProject(uuid.New(), "essay")}, finance.Viewer{ID: uuid.New(), Role: models.RoleWorker})

	records := parseCSV(t, body)
	require.Len(t, records, 2)
	for _, col := range records[1][6:] {
		require.Empty(t, col)
	}
	// Non-monetary columns survive.
	require.Equal(t, "essay", records[1][1])
}

func TestBuildCSV_OwningClientKeepsPriceColumns(t *testing.T) {
	clientID := uuid.New()
	body := BuildCSV([]models.Project{exportProject(clientID, "report")}, finance.Viewer{ID: clientID, Role: models.RoleClient})

	records := parseCSV(t, body)
	row := records[1]
	require.Equal(t, "80.00", row[6])
	require.Equal(t, "70.00", row[7])
	require.Equal(t, "5.00", row[8])
	require.Empty(t, row[9])  // agent_fee
	require.Empty(t, row[12]) // profit_margin
	require.Empty(t, row[13]) // system_profit
}

func TestBuildCSV_EmptyPeriod(t *testing.T) {
	body := BuildCSV(nil, finance.Viewer{ID: uuid.New(), Role: models.RoleSuperAgent})

	records := parseCSV(t, body)
	require.Len(t, records, 1)
	require.Equal(t, csvHeader, records[0])
}
