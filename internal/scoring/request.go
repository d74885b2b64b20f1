package scoring

import (
	"fmt"
	"math"
	"strings"

	"agritrust-workers/internal/common/errors"
)

// Request carries the five model inputs. Field order here is irrelevant;
// FeatureVector fixes the order the model was trained on.
type Request struct {
	FarmSize      float64 `json:"farm_size"`
	SoilScore     int     `json:"soil_score"`
	Rainfall      float64 `json:"rainfall"`
	PreviousLoans int     `json:"previous_loans"`
	YieldAmount   float64 `json:"yield_amount"`
}

// FeatureVector returns [farm_size, soil_score, rainfall, previous_loans, yield_amount].
func (r Request) FeatureVector() []float64 {
	return []float64{
		r.FarmSize,
		float64(r.SoilScore),
		r.Rainfall,
		float64(r.PreviousLoans),
		r.YieldAmount,
	}
}

// Validate rejects out-of-range inputs. Evaluate does not call it; every
// boundary that accepts a Request does.
func (r Request) Validate() error {
	var problems []string

	check := func(ok bool, format string, args ...interface{}) {
		if !ok {
			problems = append(problems, fmt.Sprintf(format, args...))
		}
	}

	check(isFinite(r.FarmSize) && r.FarmSize > 0, "farm_size must be positive, got %v", r.FarmSize)
	check(r.SoilScore >= 0 && r.SoilScore <= 100, "soil_score must be in [0, 100], got %d", r.SoilScore)
	check(isFinite(r.Rainfall) && r.Rainfall >= 0, "rainfall must be non-negative, got %v", r.Rainfall)
	check(r.PreviousLoans >= 0, "previous_loans must be non-negative, got %d", r.PreviousLoans)
	check(isFinite(r.YieldAmount) && r.YieldAmount > 0, "yield_amount must be positive, got %v", r.YieldAmount)

	if len(problems) > 0 {
		return errors.NewApplicationValidationFailedError(strings.Join(problems, "; "))
	}
	return nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
