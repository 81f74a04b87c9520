package pricing

import "github.com/shopspring/decimal"

// Urgency level names, from tightest deadline to loosest.
const (
	UrgencyRush     = "rush"
	UrgencyUrgent   = "urgent"
	UrgencyModerate = "moderate"
	UrgencyNormal   = "normal"
)

// RateTable is the flat platform price table. Bands[i] is the price for
// word counts up to (i+1)*BandSize; requests outside [MinWords, MaxWords]
// are rejected, never clamped. Passed into the engine explicitly so tests
// and future revisions can substitute alternate tables.
type RateTable struct {
	BandSize int
	Bands    []decimal.Decimal
	MinWords int
	MaxWords int
}

// PriceFor returns the band price for a word count already known to be
// inside the table's bounds.
func (t RateTable) PriceFor(words int) decimal.Decimal {
	band := (words + t.BandSize - 1) / t.BandSize
	if band < 1 {
		band = 1
	}
	if band > len(t.Bands) {
		band = len(t.Bands)
	}
	return t.Bands[band-1]
}

// UrgencyBand maps a day-count ceiling to a level name and surcharge.
// Deadlines beyond the last band are normal with no surcharge.
type UrgencyBand struct {
	MaxDays int
	Level   string
	Charge  decimal.Decimal
}

// DefaultRateTable returns the standard 40-band table: up to 500 words 45,
// up to 1000 words 55, up to 1500 words 70, then +10 per band through
// 20000 words at 440.
func DefaultRateTable() RateTable {
	bands := make([]decimal.Decimal, 0, 40)
	bands = append(bands, decimal.NewFromInt(45), decimal.NewFromInt(55))
	price := int64(70)
	for i := 2; i < 40; i++ {
		bands = append(bands, decimal.NewFromInt(price))
		price += 10
	}
	return RateTable{BandSize: 500, Bands: bands, MinWords: 500, MaxWords: 20000}
}

// DefaultUrgencyBands returns the standard surcharge tiers: within one day
// rush 30, two days urgent 10, three to six days moderate 5, a week or
// more normal with no surcharge.
func DefaultUrgencyBands() []UrgencyBand {
	return []UrgencyBand{
		{MaxDays: 1, Level: UrgencyRush, Charge: decimal.NewFromInt(30)},
		{MaxDays: 2, Level: UrgencyUrgent, Charge: decimal.NewFromInt(10)},
		{MaxDays: 6, Level: UrgencyModerate, Charge: decimal.NewFromInt(5)},
	}
}
