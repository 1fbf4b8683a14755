package implementations

import (
	"context"
	"time"

	"github.com/solguard/solguard-api/pkg/audit/models"
)

// GasOptimizer talks to the external gas-usage analyzer.
type GasOptimizer struct {
	httpClient
}

func NewGasOptimizer(baseURL string, timeout time.Duration) *GasOptimizer {
	return &GasOptimizer{httpClient: newHTTPClient(baseURL, timeout)}
}

func (o GasOptimizer) Optimize(ctx context.Context, source string) ([]models.GasIssue, error) {
	var resp struct {
		Issues []models.GasIssue `json:"issues"`
	}
	req := struct {
		Source string `json:"source"`
	}{Source: source}

	if err := o.postJSON(ctx, "/v1/optimize", req, &resp); err != nil {
		return nil, err
	}
	return resp.Issues, nil
}
