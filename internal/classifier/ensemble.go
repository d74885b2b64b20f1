package classifier

import (
	"context"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"agritrust-workers/internal/common/errors"
)

type flatNode struct {
	feature   int // -1 for leaves
	threshold float64
	yes       int32
	no        int32
	missing   int32
	leaf      float64
}

type compiledTree []flatNode

func (t compiledTree) eval(x []float64) float64 {
	i := int32(0)
	for {
		n := &t[i]
		if n.feature < 0 {
			return n.leaf
		}
		v := x[n.feature]
		switch {
		case math.IsNaN(v):
			i = n.missing
		case v < n.threshold:
			i = n.yes
		default:
			i = n.no
		}
	}
}

// Ensemble is a compiled gradient-boosted tree model. It is immutable after
// construction and safe for concurrent use.
type Ensemble struct {
	version    string
	baseMargin float64
	trees      []compiledTree
	importance map[string]float64
}

// LoadEnsemble reads, validates and compiles an artifact from disk. Any
// failure is reported as MODEL_UNAVAILABLE.
func LoadEnsemble(path string) (*Ensemble, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewModelUnavailableError(fmt.Errorf("read model artifact: %w", err))
	}

	e, err := ParseEnsemble(raw)
	if err != nil {
		return nil, errors.NewModelUnavailableError(fmt.Errorf("load model artifact %s: %w", path, err))
	}
	return e, nil
}

func ParseEnsemble(raw []byte) (*Ensemble, error) {
	a, err := DecodeArtifact(raw)
	if err != nil {
		return nil, err
	}
	return NewEnsemble(a)
}

// NewEnsemble compiles an in-memory artifact.
func NewEnsemble(a *Artifact) (*Ensemble, error) {
	if len(a.Trees) == 0 {
		return nil, fmt.Errorf("artifact has no trees")
	}

	trees := make([]compiledTree, 0, len(a.Trees))
	splitCounts := map[string]float64{}
	for i, root := range a.Trees {
		t, err := compileTree(root, splitCounts)
		if err != nil {
			return nil, fmt.Errorf("tree %d: %w", i, err)
		}
		trees = append(trees, t)
	}

	importance := a.Importance
	if len(importance) == 0 {
		importance = normalize(splitCounts)
	}

	return &Ensemble{
		version:    a.ModelVersion,
		baseMargin: a.BaseMargin,
		trees:      trees,
		importance: importance,
	}, nil
}

func compileTree(root *Node, splitCounts map[string]float64) (compiledTree, error) {
	if root == nil {
		return nil, fmt.Errorf("nil root")
	}

	var nodes []*Node
	index := map[int]int32{}
	var walk func(n *Node) error
	walk = func(n *Node) error {
		if _, dup := index[n.NodeID]; dup {
			return fmt.Errorf("duplicate nodeid %d", n.NodeID)
		}
		index[n.NodeID] = int32(len(nodes))
		nodes = append(nodes, n)
		for _, c := range n.Children {
			if err := walk(c); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(root); err != nil {
		return nil, err
	}

	out := make(compiledTree, len(nodes))
	for i, n := range nodes {
		if n.IsLeaf() {
			out[i] = flatNode{feature: -1, leaf: *n.Leaf}
			continue
		}

		feature, err := resolveFeature(n.Split)
		if err != nil {
			return nil, fmt.Errorf("node %d: %w", n.NodeID, err)
		}
		if n.SplitCondition == nil {
			return nil, fmt.Errorf("node %d: split without split_condition", n.NodeID)
		}

		children := map[int]bool{}
		for _, c := range n.Children {
			children[c.NodeID] = true
		}
		missing := n.Missing
		if missing == 0 {
			missing = n.Yes
		}
		for _, target := range []int{n.Yes, n.No, missing} {
			if !children[target] {
				return nil, fmt.Errorf("node %d: branch %d is not a direct child", n.NodeID, target)
			}
		}

		out[i] = flatNode{
			feature:   feature,
			threshold: *n.SplitCondition,
			yes:       index[n.Yes],
			no:        index[n.No],
			missing:   index[missing],
		}
		splitCounts[FeatureOrder[feature]]++
	}
	return out, nil
}

// resolveFeature accepts a feature name or the positional "fN" form.
func resolveFeature(split string) (int, error) {
	if i := featureIndex(split); i >= 0 {
		return i, nil
	}
	if strings.HasPrefix(split, "f") {
		if i, err := strconv.Atoi(split[1:]); err == nil && i >= 0 && i < len(FeatureOrder) {
			return i, nil
		}
	}
	return -1, fmt.Errorf("unknown split feature %q", split)
}

func normalize(counts map[string]float64) map[string]float64 {
	var total float64
	for _, c := range counts {
		total += c
	}
	out := make(map[string]float64, len(FeatureOrder))
	for _, f := range FeatureOrder {
		if total > 0 {
			out[f] = counts[f] / total
		} else {
			out[f] = 0
		}
	}
	return out
}

// Margin is the raw log-odds before the logistic link.
func (e *Ensemble) Margin(features []float64) float64 {
	m := e.baseMargin
	for _, t := range e.trees {
		m += t.eval(features)
	}
	return m
}

func (e *Ensemble) PredictProba(ctx context.Context, features []float64) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if len(features) != len(FeatureOrder) {
		return 0, fmt.Errorf("expected %d features, got %d", len(FeatureOrder), len(features))
	}
	return Sigmoid(e.Margin(features)), nil
}

func (e *Ensemble) Version() string {
	return e.version
}

func (e *Ensemble) NumTrees() int {
	return len(e.trees)
}

// FeatureImportance returns a copy of the per-feature importance scores.
func (e *Ensemble) FeatureImportance() map[string]float64 {
	out := make(map[string]float64, len(e.importance))
	for k, v := range e.importance {
		out[k] = v
	}
	return out
}
