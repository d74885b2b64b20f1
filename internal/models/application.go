// internal/models/application.go
package models

import (
	"fmt"
	"math"
	"strings"
	"time"
)

const (
	DefaultApplicantName = "Anonymous"
	DefaultOfficerID     = "system"

	// TimestampLayout is the persisted timestamp format, second precision, UTC.
	TimestampLayout = "2006-01-02 15:04:05"
)

// ApplicationFields is everything a caller supplies for one evaluated application.
// ID and Timestamp are assigned by the store.
type ApplicationFields struct {
	ApplicantName string       `json:"applicantName"`
	FarmSize      float64      `json:"farmSize"`
	SoilScore     int          `json:"soilScore"`
	Rainfall      float64      `json:"rainfall"`
	PreviousLoans int          `json:"previousLoans"`
	YieldAmount   float64      `json:"yieldAmount"`
	TrustScore    float64      `json:"trustScore"`
	RiskCategory  RiskCategory `json:"riskCategory"`
}

// ApplicationRecord is one immutable row of the applications table.
type ApplicationRecord struct {
	ID            int64        `json:"id"`
	ApplicantName string       `json:"applicantName"`
	FarmSize      float64      `json:"farmSize"`
	SoilScore     int          `json:"soilScore"`
	Rainfall      float64      `json:"rainfall"`
	PreviousLoans int          `json:"previousLoans"`
	YieldAmount   float64      `json:"yieldAmount"`
	TrustScore    float64      `json:"trustScore"`
	RiskCategory  RiskCategory `json:"riskCategory"`
	OfficerID     string       `json:"officerId"`
	Timestamp     time.Time    `json:"timestamp"`
}

func (r ApplicationRecord) Approved() bool {
	return r.RiskCategory.Approved()
}

// ApplicationStats is the aggregate view over all records.
type ApplicationStats struct {
	Total        int                  `json:"total"`
	Approved     int                  `json:"approved"`
	Rejected     int                  `json:"rejected"`
	AvgScore     float64              `json:"avgScore"`
	Distribution map[RiskCategory]int `json:"distribution"`
}

// Normalize fills the documented defaults for blank names.
func (f ApplicationFields) Normalize() ApplicationFields {
	f.ApplicantName = strings.TrimSpace(f.ApplicantName)
	if f.ApplicantName == "" {
		f.ApplicantName = DefaultApplicantName
	}
	return f
}

// CheckConsistency reports whether the score and the category agree.
func (f ApplicationFields) CheckConsistency() error {
	if !f.RiskCategory.Valid() {
		return fmt.Errorf("unknown risk category %q", f.RiskCategory)
	}
	if math.IsNaN(f.TrustScore) || math.IsInf(f.TrustScore, 0) {
		return fmt.Errorf("trust score %v is not a finite number", f.TrustScore)
	}
	if f.TrustScore < 0 || f.TrustScore > 100 {
		return fmt.Errorf("trust score %.1f outside [0, 100]", f.TrustScore)
	}
	// scores carry exactly one decimal
	if math.Abs(math.Round(f.TrustScore*10)/10-f.TrustScore) > 1e-9 {
		return fmt.Errorf("trust score %v has more than one decimal", f.TrustScore)
	}
	if want := CategoryForScore(f.TrustScore); want != f.RiskCategory {
		return fmt.Errorf("trust score %.1f belongs to %q, got %q", f.TrustScore, want, f.RiskCategory)
	}
	return nil
}
