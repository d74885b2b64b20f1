// internal/workers/application/create-application-record/models.go
package createapplicationrecord

import "agritrust-workers/internal/models"

// Input is an already evaluated application. The scoring fields come from
// the evaluate-credit-score task earlier in the process.
type Input struct {
	ApplicantName string  `json:"applicantName"`
	FarmSize      float64 `json:"farmSize"`
	SoilScore     int     `json:"soilScore"`
	Rainfall      float64 `json:"rainfall"`
	PreviousLoans int     `json:"previousLoans"`
	YieldAmount   float64 `json:"yieldAmount"`
	TrustScore    float64 `json:"trustScore"`
	RiskCategory  string  `json:"riskCategory"`
	OfficerID     string  `json:"officerId"`
}

func (in *Input) fields() models.ApplicationFields {
	return models.ApplicationFields{
		ApplicantName: in.ApplicantName,
		FarmSize:      in.FarmSize,
		SoilScore:     in.SoilScore,
		Rainfall:      in.Rainfall,
		PreviousLoans: in.PreviousLoans,
		YieldAmount:   in.YieldAmount,
		TrustScore:    in.TrustScore,
		RiskCategory:  models.RiskCategory(in.RiskCategory),
	}
}

type Output struct {
	ApplicationID int64  `json:"applicationId"`
	OfficerID     string `json:"officerId"`
	CreatedAt     string `json:"createdAt"` // ISO 8601
}
