package models

import "math"

// Sub-score weights for the composite blend.
const (
	weightMarket     = 0.40
	weightTechnical  = 0.35
	weightInvestment = 0.25
)

// CompositeScore blends the three 0-100 sub-scores 40/35/25 and rounds to
// the nearest integer.
func CompositeScore(market, technical, investment int) int {
	blended := weightMarket*float64(market) +
		weightTechnical*float64(technical) +
		weightInvestment*float64(investment)
	return int(math.Round(blended))
}

// TierForScore maps a composite score to its viability tier. Boundaries are
// inclusive at the top of each bucket: 75 is T1, 74 is T2.
func TierForScore(score int) Tier {
	switch {
	case score >= 75:
		return Tier1
	case score >= 50:
		return Tier2
	case score >= 25:
		return Tier3
	default:
		return Tier4
	}
}

// GradeForScore maps a score to a display letter grade. Independent of tier;
// used only for presentation.
func GradeForScore(score int) string {
	switch {
	case score >= 97:
		return "A+"
	case score >= 93:
		return "A"
	case score >= 90:
		return "A-"
	case score >= 87:
		return "B+"
	case score >= 83:
		return "B"
	case score >= 80:
		return "B-"
	case score >= 77:
		return "C+"
	case score >= 73:
		return "C"
	case score >= 70:
		return "C-"
	case score >= 65:
		return "D+"
	case score >= 60:
		return "D"
	case score >= 50:
		return "D-"
	default:
		return "F"
	}
}
