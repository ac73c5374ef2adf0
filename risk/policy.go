package risk

// Policy holds the capital-preservation limits applied to every proposal.
// Percentages are fractions: 0.02 means 2%.
type Policy struct {
	// MinConfidence rejects proposals before any sizing work.
	MinConfidence float64

	// RiskPerTrade is the equity fraction put at risk between entry and stop.
	RiskPerTrade float64

	// MaxPositionPct caps a single position at this fraction of equity,
	// expressed in units.
	MaxPositionPct float64

	// MaxDailyLossPct halts new trading for the rest of the daily window
	// once realized losses reach this fraction of equity.
	MaxDailyLossPct float64

	// MaxExposurePct caps the sum of open position units at this fraction
	// of equity.
	MaxExposurePct float64

	// MinLotUnits is the smallest viable order. Sizes clamped below it are
	// rejected, not submitted.
	MinLotUnits float64

	// AllowPyramiding permits a second open position for the same
	// instrument+strategy pair.
	AllowPyramiding bool
}

// DefaultPolicy mirrors the production limits: 60% confidence floor, 2% risk
// per trade, 10% position cap, 5% daily loss limit.
func DefaultPolicy() Policy {
	return Policy{
		MinConfidence:   0.6,
		RiskPerTrade:    0.02,
		MaxPositionPct:  0.10,
		MaxDailyLossPct: 0.05,
		MaxExposurePct:  0.30,
		MinLotUnits:     1000,
		AllowPyramiding: false,
	}
}
