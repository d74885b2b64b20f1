package classifier

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"agritrust-workers/internal/common/errors"
	commonhttp "agritrust-workers/internal/common/http"
)

type predictRequest struct {
	Features []float64 `json:"features"`
}

type predictResponse struct {
	Probability float64 `json:"probability"`
}

// Remote calls an out-of-process model service.
type Remote struct {
	client  *commonhttp.Client
	url     string
	apiKey  string
	version string
}

func NewRemote(baseURL, apiKey, version string, timeout time.Duration) *Remote {
	return &Remote{
		client:  commonhttp.NewClient(timeout),
		url:     strings.TrimRight(baseURL, "/") + "/predict-proba",
		apiKey:  apiKey,
		version: version,
	}
}

func (r *Remote) PredictProba(ctx context.Context, features []float64) (float64, error) {
	if len(features) != len(FeatureOrder) {
		return 0, fmt.Errorf("expected %d features, got %d", len(FeatureOrder), len(features))
	}

	headers := map[string]string{}
	if r.apiKey != "" {
		headers["X-API-Key"] = r.apiKey
	}

	var resp predictResponse
	if err := r.client.PostJSON(ctx, r.url, headers, predictRequest{Features: features}, &resp); err != nil {
		return 0, errors.NewModelUnavailableError(fmt.Errorf("model service: %w", err))
	}

	p := resp.Probability
	if math.IsNaN(p) || p < 0 || p > 1 {
		return 0, errors.NewModelUnavailableError(fmt.Errorf("model service returned probability %v", p))
	}
	return p, nil
}

func (r *Remote) Version() string {
	return r.version
}
