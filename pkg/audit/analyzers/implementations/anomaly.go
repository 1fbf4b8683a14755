package implementations

import (
	"context"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/pkg/errors"

	"github.com/solguard/solguard-api/pkg/audit/models"
)

const anomalyTimeout = 30 * time.Second

// AnomalyDetector talks to the ML-based anomaly service. It is the
// slowest and flakiest engine, so detection gets a longer timeout and
// the health probe retries before reporting the service down.
type AnomalyDetector struct {
	httpClient
}

func NewAnomalyDetector(baseURL string) *AnomalyDetector {
	return &AnomalyDetector{httpClient: newHTTPClient(baseURL, anomalyTimeout)}
}

func (d AnomalyDetector) Detect(ctx context.Context, source string) (*models.AnomalyResult, error) {
	var resp models.AnomalyResult
	req := struct {
		Source string `json:"source"`
	}{Source: source}

	if err := d.postJSON(ctx, "/v1/anomaly", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (d AnomalyDetector) HealthCheck(ctx context.Context) error {
	probe := func() error {
		return d.get(ctx, "/health")
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxElapsedTime = 3 * time.Second

	if err := backoff.Retry(probe, backoff.WithContext(b, ctx)); err != nil {
		return errors.Wrap(err, "anomaly detector is unhealthy")
	}
	return nil
}
