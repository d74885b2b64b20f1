package scoring

import (
	"context"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"agritrust-workers/internal/common/errors"
	"agritrust-workers/internal/models"
)

type fixedClassifier struct {
	p       float64
	err     error
	version string
	got     []float64
}

func (f *fixedClassifier) PredictProba(_ context.Context, features []float64) (float64, error) {
	f.got = features
	return f.p, f.err
}

func (f *fixedClassifier) Version() string { return f.version }

type mockRecorder struct {
	mock.Mock
}

func (m *mockRecorder) RecordEvaluation(ctx context.Context, category string, approved bool, latency time.Duration) {
	m.Called(ctx, category, approved, latency)
}

// steppingClock advances by step on every call.
func steppingClock(step time.Duration) func() time.Time {
	var mu sync.Mutex
	t := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now := t
		t = t.Add(step)
		return now
	}
}

func sampleRequest() Request {
	return Request{FarmSize: 5.0, SoilScore: 65, Rainfall: 750.0, PreviousLoans: 1, YieldAmount: 3.5}
}

func TestTrustScore(t *testing.T) {
	tests := []struct {
		p    float64
		want float64
	}{
		{0.5, 50.0},
		{0.62, 76.9},
		{0.0, 0.7},
		{1.0, 99.3},
		{0.38, 23.1},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("p=%.2f", tt.p), func(t *testing.T) {
			assert.Equal(t, tt.want, TrustScore(tt.p))
		})
	}
}

func TestTrustScore_Monotonic(t *testing.T) {
	prev := TrustScore(0)
	for i := 1; i <= 1000; i++ {
		s := TrustScore(float64(i) / 1000)
		assert.GreaterOrEqual(t, s, prev, "p=%v", float64(i)/1000)
		assert.GreaterOrEqual(t, s, 0.0)
		assert.LessOrEqual(t, s, 100.0)
		prev = s
	}
}

func TestPipeline_Evaluate(t *testing.T) {
	tests := []struct {
		name     string
		p        float64
		score    float64
		category models.RiskCategory
		approved bool
	}{
		{"strong applicant", 0.62, 76.9, models.RiskLow, true},
		{"boundary", 0.5, 50.0, models.RiskModerate, true},
		{"weak applicant", 0.4, 26.9, models.RiskVeryHigh, false},
		{"high risk", 0.45, 37.8, models.RiskHigh, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clf := &fixedClassifier{p: tt.p, version: "1.3.0-agritrust"}
			rec := &mockRecorder{}
			rec.On("RecordEvaluation", mock.Anything, string(tt.category), tt.approved, 1500*time.Microsecond).Return()

			p := NewPipeline(clf, Options{Now: steppingClock(1500 * time.Microsecond), Recorder: rec})
			out, err := p.Evaluate(context.Background(), sampleRequest())
			require.NoError(t, err)

			assert.Equal(t, tt.score, out.TrustScore)
			assert.Equal(t, tt.category, out.RiskCategory)
			assert.Equal(t, tt.approved, out.Approved)
			assert.Equal(t, "1.3.0-agritrust", out.ModelVersion)
			assert.Equal(t, 1.5, out.LatencyMs)
			assert.Equal(t, []float64{5.0, 65, 750.0, 1, 3.5}, clf.got)
			rec.AssertExpectations(t)
		})
	}
}

func TestPipeline_ApprovalMatchesCategory(t *testing.T) {
	for i := 0; i <= 100; i++ {
		prob := float64(i) / 100
		out, err := NewPipeline(&fixedClassifier{p: prob}, Options{}).Evaluate(context.Background(), sampleRequest())
		require.NoError(t, err)

		assert.Equal(t, out.TrustScore >= 50, out.Approved, "p=%v", prob)
		assert.Equal(t, out.RiskCategory.Approved(), out.Approved, "p=%v", prob)
		assert.Equal(t, models.CategoryForScore(out.TrustScore), out.RiskCategory)
	}
}

func TestPipeline_ModelUnavailable(t *testing.T) {
	tests := []struct {
		name string
		clf  *fixedClassifier
	}{
		{"classifier error", &fixedClassifier{err: fmt.Errorf("tree walk failed")}},
		{"already typed", &fixedClassifier{err: errors.NewModelUnavailableError(fmt.Errorf("gone"))}},
		{"nan probability", &fixedClassifier{p: math.NaN()}},
		{"probability above one", &fixedClassifier{p: 1.2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := NewPipeline(tt.clf, Options{}).Evaluate(context.Background(), sampleRequest())
			assert.Nil(t, out)
			require.Error(t, err)
			assert.True(t, errors.HasCode(err, errors.ErrCodeModelUnavailable))
			assert.Equal(t, 0, errors.GetRetryCount(errors.ErrCodeModelUnavailable))
		})
	}

	t.Run("no classifier", func(t *testing.T) {
		_, err := NewPipeline(nil, Options{}).Evaluate(context.Background(), sampleRequest())
		assert.True(t, errors.HasCode(err, errors.ErrCodeModelUnavailable))
	})
}

func TestPipeline_ContextCancelled(t *testing.T) {
	clf := &fixedClassifier{err: context.Canceled}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewPipeline(clf, Options{}).Evaluate(ctx, sampleRequest())
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, errors.HasCode(err, errors.ErrCodeModelUnavailable))
}

func TestRequest_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(r *Request)
		valid  bool
	}{
		{"valid", func(r *Request) {}, true},
		{"zero farm size", func(r *Request) { r.FarmSize = 0 }, false},
		{"soil above 100", func(r *Request) { r.SoilScore = 101 }, false},
		{"soil at bounds", func(r *Request) { r.SoilScore = 100 }, true},
		{"negative rainfall", func(r *Request) { r.Rainfall = -1 }, false},
		{"zero rainfall", func(r *Request) { r.Rainfall = 0 }, true},
		{"negative loans", func(r *Request) { r.PreviousLoans = -1 }, false},
		{"zero yield", func(r *Request) { r.YieldAmount = 0 }, false},
		{"infinite yield", func(r *Request) { r.YieldAmount = math.Inf(1) }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := sampleRequest()
			tt.mutate(&r)
			err := r.Validate()
			if tt.valid {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.HasCode(err, errors.ErrCodeApplicationValidationFailed))
		})
	}
}

func TestExplain(t *testing.T) {
	notes := Explain(Request{FarmSize: 1.5, SoilScore: 30, Rainfall: 350, PreviousLoans: 0, YieldAmount: 1.2}, 20)

	bySeverity := map[string]Severity{}
	for _, n := range notes {
		bySeverity[n.Factor] = n.Severity
	}
	assert.Equal(t, SeverityWarning, bySeverity["rainfall"])
	assert.Equal(t, SeverityWarning, bySeverity["yield_amount"])
	assert.Equal(t, SeverityWarning, bySeverity["soil_score"])
	assert.Equal(t, SeverityInfo, bySeverity["previous_loans"])
	assert.Equal(t, SeverityInfo, bySeverity["farm_size"])
	assert.Equal(t, "overall", notes[len(notes)-1].Factor)
	assert.Equal(t, SeverityWarning, notes[len(notes)-1].Severity)

	strong := Explain(Request{FarmSize: 25, SoilScore: 80, Rainfall: 900, PreviousLoans: 2, YieldAmount: 6}, 82.4)
	for _, n := range strong {
		assert.Equal(t, SeverityPositive, n.Severity, n.Factor)
	}

	// mid-range inputs produce no yield, soil or farm-size note
	mid := Explain(sampleRequest(), 55)
	factors := make([]string, 0, len(mid))
	for _, n := range mid {
		factors = append(factors, n.Factor)
	}
	assert.Equal(t, []string{"rainfall", "previous_loans", "overall"}, factors)
	assert.Equal(t, SeverityInfo, mid[len(mid)-1].Severity)
}
