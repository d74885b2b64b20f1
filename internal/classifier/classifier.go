// Package classifier provides the pre-trained binary classifier behind credit
// scoring. A classifier is loaded once at startup and shared read-only.
package classifier

import (
	"context"
	"math"
)

// FeatureOrder is the exact column order the model was trained on. Every
// feature vector passed to PredictProba must follow it.
var FeatureOrder = []string{
	"farm_size",
	"soil_score",
	"rainfall",
	"previous_loans",
	"yield_amount",
}

// Classifier returns P(approved) for one feature vector.
type Classifier interface {
	PredictProba(ctx context.Context, features []float64) (float64, error)
	Version() string
}

// ImportanceReporter is implemented by classifiers that can explain which
// features drive their splits.
type ImportanceReporter interface {
	FeatureImportance() map[string]float64
}

func Sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

func featureIndex(name string) int {
	for i, f := range FeatureOrder {
		if f == name {
			return i
		}
	}
	return -1
}
