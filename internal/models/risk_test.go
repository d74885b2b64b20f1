package models

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategoryForScore(t *testing.T) {
	tests := []struct {
		score    float64
		expected RiskCategory
	}{
		{100, RiskLow},
		{70, RiskLow},
		{69.9, RiskModerate},
		{50, RiskModerate},
		{49.9, RiskHigh},
		{30, RiskHigh},
		{29.9, RiskVeryHigh},
		{0, RiskVeryHigh},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, CategoryForScore(tt.score), "score %.1f", tt.score)
	}
}

func TestRiskCategory_Approved(t *testing.T) {
	assert.True(t, RiskLow.Approved())
	assert.True(t, RiskModerate.Approved())
	assert.False(t, RiskHigh.Approved())
	assert.False(t, RiskVeryHigh.Approved())
	assert.False(t, RiskCategory("Unknown").Approved())
}

func TestApprovalMatchesScoreThreshold(t *testing.T) {
	for score := 0.0; score <= 100.0; score += 0.1 {
		assert.Equal(t, score >= ModerateRiskThreshold, CategoryForScore(score).Approved(), "score %.1f", score)
	}
}

func TestParseRiskFilter(t *testing.T) {
	c, err := ParseRiskFilter("")
	require.NoError(t, err)
	assert.Equal(t, RiskCategory(""), c)

	c, err = ParseRiskFilter("All")
	require.NoError(t, err)
	assert.Equal(t, RiskCategory(""), c)

	c, err = ParseRiskFilter("High Risk")
	require.NoError(t, err)
	assert.Equal(t, RiskHigh, c)

	_, err = ParseRiskFilter("Medium Risk")
	assert.Error(t, err)
}

func TestApplicationFields_Normalize(t *testing.T) {
	f := ApplicationFields{ApplicantName: "   "}.Normalize()
	assert.Equal(t, DefaultApplicantName, f.ApplicantName)

	f = ApplicationFields{ApplicantName: " Amina Yusuf "}.Normalize()
	assert.Equal(t, "Amina Yusuf", f.ApplicantName)
}

func TestApplicationFields_CheckConsistency(t *testing.T) {
	ok := ApplicationFields{TrustScore: 76.9, RiskCategory: RiskLow}
	assert.NoError(t, ok.CheckConsistency())

	mismatch := ApplicationFields{TrustScore: 76.9, RiskCategory: RiskHigh}
	assert.Error(t, mismatch.CheckConsistency())

	unknown := ApplicationFields{TrustScore: 76.9, RiskCategory: "Medium"}
	assert.Error(t, unknown.CheckConsistency())

	outOfRange := ApplicationFields{TrustScore: 101, RiskCategory: RiskLow}
	assert.Error(t, outOfRange.CheckConsistency())
}

func TestApplicationFields_CheckConsistency_RejectsMalformedScores(t *testing.T) {
	tests := []struct {
		name  string
		score float64
		cat   RiskCategory
	}{
		{"nan", math.NaN(), RiskVeryHigh},
		{"positive infinity", math.Inf(1), RiskLow},
		{"negative infinity", math.Inf(-1), RiskVeryHigh},
		{"two decimals", 76.93, RiskLow},
		{"three decimals", 12.345, RiskVeryHigh},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := ApplicationFields{TrustScore: tt.score, RiskCategory: tt.cat}
			assert.Error(t, f.CheckConsistency())
		})
	}

	for _, score := range []float64{0, 0.1, 29.9, 50.0, 76.9, 100} {
		f := ApplicationFields{TrustScore: score, RiskCategory: CategoryForScore(score)}
		assert.NoError(t, f.CheckConsistency(), score)
	}
}
