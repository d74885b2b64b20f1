// Package scoring turns applicant farm data into a trust score, a risk tier
// and an approval decision.
package scoring

import (
	"context"
	"fmt"
	"math"
	"time"

	"agritrust-workers/internal/classifier"
	"agritrust-workers/internal/common/errors"
	"agritrust-workers/internal/models"
)

// Outcome is the result of one evaluation.
type Outcome struct {
	TrustScore   float64             `json:"trust_score"`
	RiskCategory models.RiskCategory `json:"risk_category"`
	Approved     bool                `json:"approved"`
	ModelVersion string              `json:"model_version"`
	LatencyMs    float64             `json:"latency_ms"`
}

// Recorder receives one observation per successful evaluation.
type Recorder interface {
	RecordEvaluation(ctx context.Context, category string, approved bool, latency time.Duration)
}

type Options struct {
	// Now defaults to time.Now.
	Now      func() time.Time
	Recorder Recorder
}

type Pipeline struct {
	model    classifier.Classifier
	now      func() time.Time
	recorder Recorder
}

func NewPipeline(model classifier.Classifier, opts Options) *Pipeline {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Pipeline{
		model:    model,
		now:      now,
		recorder: opts.Recorder,
	}
}

// TrustScore maps a probability onto the 0-100 scale with a logistic curve
// centred at 0.5, rounded to one decimal.
func TrustScore(p float64) float64 {
	raw := 100 / (1 + math.Exp(-10*(p-0.5)))
	return math.Round(raw*10) / 10
}

// Evaluate scores one request. Input ranges are not checked here.
func (p *Pipeline) Evaluate(ctx context.Context, req Request) (*Outcome, error) {
	if p.model == nil {
		return nil, errors.NewModelUnavailableError(fmt.Errorf("no classifier loaded"))
	}

	features := req.FeatureVector()

	start := p.now()
	prob, err := p.model.PredictProba(ctx, features)
	if err != nil {
		if _, ok := errors.AsStandardError(err); ok {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, err
		}
		return nil, errors.NewModelUnavailableError(err)
	}
	if math.IsNaN(prob) || prob < 0 || prob > 1 {
		return nil, errors.NewModelUnavailableError(fmt.Errorf("classifier returned probability %v", prob))
	}

	score := TrustScore(prob)
	category := models.CategoryForScore(score)
	approved := score >= models.ModerateRiskThreshold
	latency := p.now().Sub(start)

	if p.recorder != nil {
		p.recorder.RecordEvaluation(ctx, string(category), approved, latency)
	}

	return &Outcome{
		TrustScore:   score,
		RiskCategory: category,
		Approved:     approved,
		ModelVersion: p.model.Version(),
		LatencyMs:    math.Round(float64(latency.Microseconds())/10) / 100,
	}, nil
}

// ModelVersion reports the loaded classifier's version.
func (p *Pipeline) ModelVersion() string {
	if p.model == nil {
		return ""
	}
	return p.model.Version()
}

// FeatureImportance returns nil when the classifier cannot report importances.
func (p *Pipeline) FeatureImportance() map[string]float64 {
	if r, ok := p.model.(classifier.ImportanceReporter); ok {
		return r.FeatureImportance()
	}
	return nil
}
