package models

import "fmt"

// RiskCategory is one of four ordered tiers derived from the trust score.
type RiskCategory string

const (
	RiskLow      RiskCategory = "Low Risk"
	RiskModerate RiskCategory = "Moderate Risk"
	RiskHigh     RiskCategory = "High Risk"
	RiskVeryHigh RiskCategory = "Very High Risk"

	// RiskAll is the list filter meaning "no filter".
	RiskAll = "All"
)

// Tier lower bounds, inclusive.
const (
	LowRiskThreshold      = 70.0
	ModerateRiskThreshold = 50.0
	HighRiskThreshold     = 30.0
)

// RiskCategories lists the tiers from best to worst.
var RiskCategories = []RiskCategory{RiskLow, RiskModerate, RiskHigh, RiskVeryHigh}

// CategoryForScore maps a trust score to its tier.
func CategoryForScore(score float64) RiskCategory {
	switch {
	case score >= LowRiskThreshold:
		return RiskLow
	case score >= ModerateRiskThreshold:
		return RiskModerate
	case score >= HighRiskThreshold:
		return RiskHigh
	default:
		return RiskVeryHigh
	}
}

// Approved is true for Low and Moderate risk.
func (c RiskCategory) Approved() bool {
	return c == RiskLow || c == RiskModerate
}

func (c RiskCategory) Valid() bool {
	for _, known := range RiskCategories {
		if c == known {
			return true
		}
	}
	return false
}

func (c RiskCategory) String() string {
	return string(c)
}

// ParseRiskFilter turns a filter string into a category. An empty string or
// "All" yields the empty category, meaning no filter.
func ParseRiskFilter(s string) (RiskCategory, error) {
	if s == "" || s == RiskAll {
		return "", nil
	}
	c := RiskCategory(s)
	if !c.Valid() {
		return "", fmt.Errorf("unknown risk category %q", s)
	}
	return c, nil
}
