package pricing

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func requireDec(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.True(t, got.Equal(decimal.RequireFromString(want)), "want %s, got %s", want, got)
}

func flatEngine(feePct int64) *Engine {
	return NewEngine(DefaultRateTable(), DefaultUrgencyBands(), decimal.NewFromInt(feePct))
}

func TestDefaultRateTable_Shape(t *testing.T) {
	table := DefaultRateTable()
	require.Len(t, table.Bands, 40)
	requireDec(t, "45", table.Bands[0])
	requireDec(t, "55", table.Bands[1])
	requireDec(t, "70", table.Bands[2])
	requireDec(t, "440", table.Bands[39])
	for i := 1; i < len(table.Bands); i++ {
		require.True(t, table.Bands[i].GreaterThanOrEqual(table.Bands[i-1]), "band %d regressed", i+1)
	}
}

func TestQuote_FlatTableAnchors(t *testing.T) {
	eng := flatEngine(0)
	deadline := testNow.Add(30 * 24 * time.Hour)

	cases := []struct {
		words int
		base  string
	}{
		{500, "45"},
		{501, "55"},
		{1000, "55"},
		{1500, "70"},
		{10000, "240"},
		{20000, "440"},
	}
	for _, tc := range cases {
		q, err := eng.Quote(QuoteRequest{WordCount: tc.words, Deadline: deadline, Now: testNow})
		require.NoError(t, err, "words=%d", tc.words)
		requireDec(t, tc.base, q.BaseCost)
		requireDec(t, "0", q.UrgencyCharge)
		require.Equal(t, UrgencyNormal, q.UrgencyLevel)
		requireDec(t, tc.base, q.TotalCost)
	}
}

func TestQuote_UrgencyBoundaries(t *testing.T) {
	eng := flatEngine(0)

	cases := []struct {
		until  time.Duration
		level  string
		charge string
	}{
		{0, UrgencyRush, "30"},
		{24 * time.Hour, UrgencyRush, "30"},
		{25 * time.Hour, UrgencyUrgent, "10"},
		{48 * time.Hour, UrgencyUrgent, "10"},
		{72 * time.Hour, UrgencyModerate, "5"},
		{144 * time.Hour, UrgencyModerate, "5"},
		{145 * time.Hour, UrgencyNormal, "0"},
		{168 * time.Hour, UrgencyNormal, "0"},
	}
	for _, tc := range cases {
		q, err := eng.Quote(QuoteRequest{WordCount: 500, Deadline: testNow.Add(tc.until), Now: testNow})
		require.NoError(t, err, "until=%s", tc.until)
		require.Equal(t, tc.level, q.UrgencyLevel, "until=%s", tc.until)
		requireDec(t, tc.charge, q.UrgencyCharge)
		requireDec(t, decimal.RequireFromString("45").Add(decimal.RequireFromString(tc.charge)).String(), q.TotalCost)
	}
}

func TestQuote_PastDeadlineRejected(t *testing.T) {
	eng := flatEngine(0)
	_, err := eng.Quote(QuoteRequest{WordCount: 500, Deadline: testNow.Add(-time.Minute), Now: testNow})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	require.Contains(t, ve.Reason, "deadline")
}

func TestQuote_FlatBoundsRejectedNamingBounds(t *testing.T) {
	eng := flatEngine(0)
	deadline := testNow.Add(10 * 24 * time.Hour)

	for _, words := range []int{499, 20001} {
		_, err := eng.Quote(QuoteRequest{WordCount: words, Deadline: deadline, Now: testNow})
		var ve *ValidationError
		require.ErrorAs(t, err, &ve, "words=%d", words)
		require.Contains(t, ve.Reason, "500")
		require.Contains(t, ve.Reason, "20000")
	}
}

func TestQuote_SystemFeeAppliedOnFlatPath(t *testing.T) {
	eng := flatEngine(10)
	q, err := eng.Quote(QuoteRequest{WordCount: 1000, Deadline: testNow.Add(10 * 24 * time.Hour), Now: testNow})
	require.NoError(t, err)
	requireDec(t, "55", q.BaseCost)
	requireDec(t, "5.5", q.Fees.AgentFee)
	requireDec(t, "60.5", q.TotalCost)
	requireDec(t, "55", q.Fees.SuperWorkerFee)
	requireDec(t, "55", q.Fees.WorkerFee)
	requireDec(t, "170.5", q.Fees.SystemTotal)
}

func TestQuote_AgentLinearPath(t *testing.T) {
	eng := flatEngine(10)
	rates := &AgentRates{
		BaseRatePer500: decimal.NewFromInt(20),
		FeePercentage:  decimal.NewFromInt(15),
		MinWordCount:   500,
		MaxWordCount:   5000,
	}

	q, err := eng.Quote(QuoteRequest{
		WordCount:  1200,
		Deadline:   testNow.Add(48 * time.Hour),
		Now:        testNow,
		AgentRates: rates,
	})
	require.NoError(t, err)
	requireDec(t, "60", q.BaseCost) // ceil(1200/500) = 3 units
	requireDec(t, "10", q.UrgencyCharge)
	requireDec(t, "9", q.Fees.AgentFee)
	requireDec(t, "79", q.TotalCost)
	requireDec(t, "60", q.Fees.SuperWorkerFee)
	requireDec(t, "60", q.Fees.WorkerFee)
	requireDec(t, "199", q.Fees.SystemTotal)
}

func TestQuote_AgentUnitCeiling(t *testing.T) {
	eng := flatEngine(0)
	rates := &AgentRates{
		BaseRatePer500: decimal.NewFromInt(10),
		FeePercentage:  decimal.Zero,
		MinWordCount:   500,
		MaxWordCount:   20000,
	}
	q, err := eng.Quote(QuoteRequest{
		WordCount:  501,
		Deadline:   testNow.Add(10 * 24 * time.Hour),
		Now:        testNow,
		AgentRates: rates,
	})
	require.NoError(t, err)
	requireDec(t, "20", q.BaseCost)
}

func TestQuote_AgentBoundsRejectedNamingBounds(t *testing.T) {
	eng := flatEngine(0)
	rates := &AgentRates{
		BaseRatePer500: decimal.NewFromInt(20),
		FeePercentage:  decimal.NewFromInt(10),
		MinWordCount:   1000,
		MaxWordCount:   5000,
	}
	deadline := testNow.Add(10 * 24 * time.Hour)

	for _, words := range []int{900, 5001} {
		_, err := eng.Quote(QuoteRequest{WordCount: words, Deadline: deadline, Now: testNow, AgentRates: rates})
		var ve *ValidationError
		require.ErrorAs(t, err, &ve, "words=%d", words)
		require.Contains(t, ve.Reason, "1000")
		require.Contains(t, ve.Reason, "5000")
	}
}

func TestQuote_AgentRateMustBePositive(t *testing.T) {
	eng := flatEngine(0)
	rates := &AgentRates{
		BaseRatePer500: decimal.Zero,
		FeePercentage:  decimal.NewFromInt(10),
		MinWordCount:   500,
		MaxWordCount:   5000,
	}
	_, err := eng.Quote(QuoteRequest{WordCount: 1000, Deadline: testNow.Add(week()), Now: testNow, AgentRates: rates})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	require.Contains(t, ve.Reason, "base rate")
}

func TestQuote_FeePercentageBounds(t *testing.T) {
	deadline := testNow.Add(week())

	for _, pct := range []int64{-1, 101} {
		rates := &AgentRates{
			BaseRatePer500: decimal.NewFromInt(20),
			FeePercentage:  decimal.NewFromInt(pct),
			MinWordCount:   500,
			MaxWordCount:   5000,
		}
		_, err := flatEngine(0).Quote(QuoteRequest{WordCount: 1000, Deadline: deadline, Now: testNow, AgentRates: rates})
		var ve *ValidationError
		require.ErrorAs(t, err, &ve, "pct=%d", pct)
		require.Contains(t, ve.Reason, "fee percentage")
	}

	_, err := flatEngine(150).Quote(QuoteRequest{WordCount: 1000, Deadline: deadline, Now: testNow})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
}

func week() time.Duration {
	return 8 * 24 * time.Hour
}
