// internal/workers/scoring/evaluate-credit-score/models.go
package evaluatecreditscore

import "agritrust-workers/internal/scoring"

type Input struct {
	ApplicantName string  `json:"applicantName"`
	FarmSize      float64 `json:"farmSize"`
	SoilScore     int     `json:"soilScore"`
	Rainfall      float64 `json:"rainfall"`
	PreviousLoans int     `json:"previousLoans"`
	YieldAmount   float64 `json:"yieldAmount"`
}

func (in *Input) toRequest() scoring.Request {
	return scoring.Request{
		FarmSize:      in.FarmSize,
		SoilScore:     in.SoilScore,
		Rainfall:      in.Rainfall,
		PreviousLoans: in.PreviousLoans,
		YieldAmount:   in.YieldAmount,
	}
}

type Output struct {
	TrustScore   float64               `json:"trustScore"`
	RiskCategory string                `json:"riskCategory"`
	Approved     bool                  `json:"approved"`
	ModelVersion string                `json:"modelVersion"`
	LatencyMs    float64               `json:"latencyMs"`
	Explanations []scoring.Explanation `json:"explanations"`
}
