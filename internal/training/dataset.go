// Package training generates the synthetic loan dataset and fits the
// gradient-boosted tree ensemble served by the classifier package.
package training

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"math/rand"
	"strconv"

	"agritrust-workers/internal/classifier"
)

const (
	DefaultSamples = 600
	DefaultSeed    = 42
)

// Sample is one labelled row. Features follow classifier.FeatureOrder.
type Sample struct {
	Features []float64
	Label    int
}

// GenerateDataset draws n applicants. Larger farms with better soil and
// rainfall yield more; approval is a noisy logistic function of a weighted
// creditworthiness score, so the classes are not perfectly separable.
func GenerateDataset(n int, seed int64) []Sample {
	rng := rand.New(rand.NewSource(seed))

	farm := make([]float64, n)
	soil := make([]float64, n)
	rain := make([]float64, n)
	loans := make([]float64, n)
	yield := make([]float64, n)

	maxYield := 0.0
	for i := 0; i < n; i++ {
		farm[i] = round(0.5+rng.Float64()*49.5, 2)
		soil[i] = float64(20 + rng.Intn(81))
		rain[i] = round(200+rng.Float64()*1300, 1)
		loans[i] = float64(rng.Intn(6))

		y := round(0.05*farm[i]+0.03*soil[i]+0.002*rain[i]+rng.NormFloat64()*0.5, 2)
		yield[i] = math.Max(y, 0.1)
		maxYield = math.Max(maxYield, yield[i])
	}

	samples := make([]Sample, n)
	for i := 0; i < n; i++ {
		score := 0.30*(farm[i]/50) +
			0.25*(soil[i]/100) +
			0.20*(rain[i]/1500) +
			0.15*(yield[i]/maxYield) -
			0.10*(loans[i]/5) +
			rng.NormFloat64()*0.08

		prob := 1 / (1 + math.Exp(-8*(score-0.5)))
		label := 0
		if rng.Float64() < prob {
			label = 1
		}

		samples[i] = Sample{
			Features: []float64{farm[i], soil[i], rain[i], loans[i], yield[i]},
			Label:    label,
		}
	}
	return samples
}

// ApprovalRate is the fraction of positive labels.
func ApprovalRate(samples []Sample) float64 {
	if len(samples) == 0 {
		return 0
	}
	pos := 0
	for _, s := range samples {
		pos += s.Label
	}
	return float64(pos) / float64(len(samples))
}

// StratifiedSplit shuffles each class separately and moves testFraction of
// it into the test set, preserving the class balance in both halves.
func StratifiedSplit(samples []Sample, testFraction float64, seed int64) (train, test []Sample, err error) {
	if testFraction <= 0 || testFraction >= 1 {
		return nil, nil, fmt.Errorf("test fraction must be in (0, 1), got %v", testFraction)
	}

	rng := rand.New(rand.NewSource(seed))
	byClass := map[int][]Sample{}
	for _, s := range samples {
		byClass[s.Label] = append(byClass[s.Label], s)
	}

	for _, label := range []int{0, 1} {
		group := byClass[label]
		rng.Shuffle(len(group), func(i, j int) { group[i], group[j] = group[j], group[i] })

		nTest := int(math.Round(float64(len(group)) * testFraction))
		test = append(test, group[:nTest]...)
		train = append(train, group[nTest:]...)
	}

	rng.Shuffle(len(train), func(i, j int) { train[i], train[j] = train[j], train[i] })
	rng.Shuffle(len(test), func(i, j int) { test[i], test[j] = test[j], test[i] })
	return train, test, nil
}

// WriteDatasetCSV writes the samples with a header of feature names plus "approved".
func WriteDatasetCSV(w io.Writer, samples []Sample) error {
	cw := csv.NewWriter(w)
	header := append(append([]string{}, classifier.FeatureOrder...), "approved")
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, s := range samples {
		row := make([]string, 0, len(s.Features)+1)
		for _, v := range s.Features {
			row = append(row, strconv.FormatFloat(v, 'f', -1, 64))
		}
		row = append(row, strconv.Itoa(s.Label))
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
