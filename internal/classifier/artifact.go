package classifier

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

const (
	ArtifactFormat    = "agritrust-gbt/v1"
	ObjectiveLogistic = "binary:logistic"
)

//go:embed artifact.schema.json
var artifactSchemaJSON string

var artifactSchema = gojsonschema.NewStringLoader(artifactSchemaJSON)

// Artifact is the serialized tree ensemble. Trees use the same node layout as
// an XGBoost JSON dump.
type Artifact struct {
	Format       string             `json:"format"`
	ModelVersion string             `json:"model_version"`
	Objective    string             `json:"objective"`
	FeatureNames []string           `json:"feature_names"`
	BaseMargin   float64            `json:"base_margin"`
	Trees        []*Node            `json:"trees"`
	Importance   map[string]float64 `json:"importance,omitempty"`
	Metrics      map[string]float64 `json:"metrics,omitempty"`
}

type Node struct {
	NodeID         int      `json:"nodeid"`
	Depth          int      `json:"depth,omitempty"`
	Split          string   `json:"split,omitempty"`
	SplitCondition *float64 `json:"split_condition,omitempty"`
	Yes            int      `json:"yes,omitempty"`
	No             int      `json:"no,omitempty"`
	Missing        int      `json:"missing,omitempty"`
	Leaf           *float64 `json:"leaf,omitempty"`
	Children       []*Node  `json:"children,omitempty"`
}

func (n *Node) IsLeaf() bool {
	return n.Leaf != nil
}

// ValidateArtifactJSON checks raw bytes against the embedded JSON Schema.
func ValidateArtifactJSON(raw []byte) error {
	result, err := gojsonschema.Validate(artifactSchema, gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return fmt.Errorf("artifact is not valid JSON: %w", err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return fmt.Errorf("artifact schema violations: %s", strings.Join(msgs, "; "))
	}
	return nil
}

// DecodeArtifact validates and decodes an artifact.
func DecodeArtifact(raw []byte) (*Artifact, error) {
	if err := ValidateArtifactJSON(raw); err != nil {
		return nil, err
	}

	var a Artifact
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, fmt.Errorf("failed to decode artifact: %w", err)
	}

	if len(a.FeatureNames) != len(FeatureOrder) {
		return nil, fmt.Errorf("artifact has %d features, expected %d", len(a.FeatureNames), len(FeatureOrder))
	}
	for i, name := range a.FeatureNames {
		if name != FeatureOrder[i] {
			return nil, fmt.Errorf("feature %d is %q, expected %q", i, name, FeatureOrder[i])
		}
	}

	return &a, nil
}

func (a *Artifact) Marshal() ([]byte, error) {
	return json.MarshalIndent(a, "", "  ")
}
