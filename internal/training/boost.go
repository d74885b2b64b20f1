package training

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"agritrust-workers/internal/classifier"
)

// Params controls the booster. Zero fields are replaced by DefaultParams.
type Params struct {
	MaxDepth        int
	LearningRate    float64
	Rounds          int
	Subsample       float64
	ColsampleByTree float64
	Lambda          float64
	MinChildWeight  float64
	Seed            int64
	ModelVersion    string
}

func DefaultParams() Params {
	return Params{
		MaxDepth:        4,
		LearningRate:    0.05,
		Rounds:          300,
		Subsample:       0.8,
		ColsampleByTree: 0.8,
		Lambda:          1.0,
		MinChildWeight:  1.0,
		Seed:            DefaultSeed,
		ModelVersion:    "1.3.0-agritrust",
	}
}

func (p Params) withDefaults() Params {
	d := DefaultParams()
	if p.MaxDepth <= 0 {
		p.MaxDepth = d.MaxDepth
	}
	if p.LearningRate <= 0 {
		p.LearningRate = d.LearningRate
	}
	if p.Rounds <= 0 {
		p.Rounds = d.Rounds
	}
	if p.Subsample <= 0 || p.Subsample > 1 {
		p.Subsample = d.Subsample
	}
	if p.ColsampleByTree <= 0 || p.ColsampleByTree > 1 {
		p.ColsampleByTree = d.ColsampleByTree
	}
	if p.Lambda < 0 {
		p.Lambda = d.Lambda
	}
	if p.MinChildWeight <= 0 {
		p.MinChildWeight = d.MinChildWeight
	}
	if p.ModelVersion == "" {
		p.ModelVersion = d.ModelVersion
	}
	return p
}

type trainer struct {
	params   Params
	samples  []Sample
	grad     []float64
	hess     []float64
	gain     []float64
	features []int
	nextID   int
}

// Train fits a logistic-loss gradient-boosted ensemble and returns it as an
// artifact. Importance is the share of total split gain per feature.
func Train(samples []Sample, params Params) (*classifier.Artifact, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("no training samples")
	}
	nFeatures := len(classifier.FeatureOrder)
	for i, s := range samples {
		if len(s.Features) != nFeatures {
			return nil, fmt.Errorf("sample %d has %d features, expected %d", i, len(s.Features), nFeatures)
		}
		if s.Label != 0 && s.Label != 1 {
			return nil, fmt.Errorf("sample %d has label %d, expected 0 or 1", i, s.Label)
		}
	}

	params = params.withDefaults()
	rng := rand.New(rand.NewSource(params.Seed))

	base := logit(clamp(ApprovalRate(samples), 1e-6, 1-1e-6))
	margins := make([]float64, len(samples))
	for i := range margins {
		margins[i] = base
	}

	t := &trainer{
		params:  params,
		samples: samples,
		grad:    make([]float64, len(samples)),
		hess:    make([]float64, len(samples)),
		gain:    make([]float64, nFeatures),
	}

	trees := make([]*classifier.Node, 0, params.Rounds)
	for round := 0; round < params.Rounds; round++ {
		for i, s := range samples {
			p := classifier.Sigmoid(margins[i])
			t.grad[i] = p - float64(s.Label)
			t.hess[i] = math.Max(p*(1-p), 1e-16)
		}

		rows := sampleRows(rng, len(samples), params.Subsample)
		t.features = sampleColumns(rng, nFeatures, params.ColsampleByTree)
		t.nextID = 0

		root := t.grow(rows, 0)
		trees = append(trees, root)

		for i, s := range samples {
			margins[i] += leafValue(root, s.Features)
		}
	}

	return &classifier.Artifact{
		Format:       classifier.ArtifactFormat,
		ModelVersion: params.ModelVersion,
		Objective:    classifier.ObjectiveLogistic,
		FeatureNames: append([]string{}, classifier.FeatureOrder...),
		BaseMargin:   base,
		Trees:        trees,
		Importance:   t.importance(),
	}, nil
}

func (t *trainer) grow(rows []int, depth int) *classifier.Node {
	id := t.nextID
	t.nextID++

	var g, h float64
	for _, r := range rows {
		g += t.grad[r]
		h += t.hess[r]
	}

	if depth < t.params.MaxDepth {
		if s, ok := t.bestSplit(rows, g, h); ok {
			var left, right []int
			for _, r := range rows {
				if t.samples[r].Features[s.feature] < s.threshold {
					left = append(left, r)
				} else {
					right = append(right, r)
				}
			}
			t.gain[s.feature] += s.gain

			yes := t.grow(left, depth+1)
			no := t.grow(right, depth+1)
			threshold := s.threshold
			return &classifier.Node{
				NodeID:         id,
				Depth:          depth,
				Split:          classifier.FeatureOrder[s.feature],
				SplitCondition: &threshold,
				Yes:            yes.NodeID,
				No:             no.NodeID,
				Missing:        yes.NodeID,
				Children:       []*classifier.Node{yes, no},
			}
		}
	}

	leaf := -g / (h + t.params.Lambda) * t.params.LearningRate
	return &classifier.Node{NodeID: id, Depth: depth, Leaf: &leaf}
}

type split struct {
	feature   int
	threshold float64
	gain      float64
}

func (t *trainer) bestSplit(rows []int, g, h float64) (split, bool) {
	lambda := t.params.Lambda
	parent := g * g / (h + lambda)

	best := split{gain: 0}
	found := false
	sorted := make([]int, len(rows))

	for _, f := range t.features {
		copy(sorted, rows)
		sort.Slice(sorted, func(i, j int) bool {
			return t.samples[sorted[i]].Features[f] < t.samples[sorted[j]].Features[f]
		})

		var gl, hl float64
		for i := 0; i < len(sorted)-1; i++ {
			r := sorted[i]
			gl += t.grad[r]
			hl += t.hess[r]

			cur := t.samples[r].Features[f]
			next := t.samples[sorted[i+1]].Features[f]
			if cur == next {
				continue
			}

			gr, hr := g-gl, h-hl
			if hl < t.params.MinChildWeight || hr < t.params.MinChildWeight {
				continue
			}

			gain := 0.5 * (gl*gl/(hl+lambda) + gr*gr/(hr+lambda) - parent)
			if gain > best.gain {
				best = split{feature: f, threshold: (cur + next) / 2, gain: gain}
				found = true
			}
		}
	}
	return best, found
}

func (t *trainer) importance() map[string]float64 {
	var total float64
	for _, g := range t.gain {
		total += g
	}
	out := make(map[string]float64, len(t.gain))
	for i, g := range t.gain {
		if total > 0 {
			out[classifier.FeatureOrder[i]] = g / total
		} else {
			out[classifier.FeatureOrder[i]] = 0
		}
	}
	return out
}

func leafValue(n *classifier.Node, x []float64) float64 {
	for !n.IsLeaf() {
		if x[featureIndex(n.Split)] < *n.SplitCondition {
			n = n.Children[0]
		} else {
			n = n.Children[1]
		}
	}
	return *n.Leaf
}

func featureIndex(name string) int {
	for i, f := range classifier.FeatureOrder {
		if f == name {
			return i
		}
	}
	return -1
}

func sampleRows(rng *rand.Rand, n int, fraction float64) []int {
	rows := make([]int, 0, n)
	for i := 0; i < n; i++ {
		if fraction >= 1 || rng.Float64() < fraction {
			rows = append(rows, i)
		}
	}
	if len(rows) == 0 {
		rows = append(rows, rng.Intn(n))
	}
	return rows
}

func sampleColumns(rng *rand.Rand, n int, fraction float64) []int {
	k := int(math.Max(1, math.Floor(float64(n)*fraction)))
	cols := rng.Perm(n)[:k]
	sort.Ints(cols)
	return cols
}

func logit(p float64) float64 {
	return math.Log(p / (1 - p))
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}
