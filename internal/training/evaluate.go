package training

import (
	"context"
	"fmt"
	"sort"

	"agritrust-workers/internal/classifier"
)

// Predict scores every sample with c.
func Predict(ctx context.Context, c classifier.Classifier, samples []Sample) ([]float64, error) {
	probs := make([]float64, len(samples))
	for i, s := range samples {
		p, err := c.PredictProba(ctx, s.Features)
		if err != nil {
			return nil, fmt.Errorf("sample %d: %w", i, err)
		}
		probs[i] = p
	}
	return probs, nil
}

// Accuracy counts p >= 0.5 as a positive prediction.
func Accuracy(samples []Sample, probs []float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	correct := 0
	for i, s := range samples {
		pred := 0
		if probs[i] >= 0.5 {
			pred = 1
		}
		if pred == s.Label {
			correct++
		}
	}
	return float64(correct) / float64(len(samples))
}

// ROCAUC is the Mann-Whitney estimate with average ranks for ties. It returns
// 0.5 when only one class is present.
func ROCAUC(samples []Sample, probs []float64) float64 {
	idx := make([]int, len(samples))
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool { return probs[idx[a]] < probs[idx[b]] })

	ranks := make([]float64, len(samples))
	for i := 0; i < len(idx); {
		j := i
		for j+1 < len(idx) && probs[idx[j+1]] == probs[idx[i]] {
			j++
		}
		avg := float64(i+j)/2 + 1
		for k := i; k <= j; k++ {
			ranks[idx[k]] = avg
		}
		i = j + 1
	}

	var pos, neg int
	var rankSum float64
	for i, s := range samples {
		if s.Label == 1 {
			pos++
			rankSum += ranks[i]
		} else {
			neg++
		}
	}
	if pos == 0 || neg == 0 {
		return 0.5
	}
	return (rankSum - float64(pos*(pos+1))/2) / float64(pos*neg)
}
