package implementations

import (
	"context"
	"time"

	"github.com/solguard/solguard-api/pkg/audit/models"
)

// ComplianceChecker talks to the external standard-compliance engine.
// Standards the engine doesn't know are absent from the result map.
type ComplianceChecker struct {
	httpClient
}

func NewComplianceChecker(baseURL string, timeout time.Duration) *ComplianceChecker {
	return &ComplianceChecker{httpClient: newHTTPClient(baseURL, timeout)}
}

func (c ComplianceChecker) Check(ctx context.Context, source string, standards []string) (map[string]models.ComplianceResult, error) {
	var resp struct {
		Results map[string]models.ComplianceResult `json:"results"`
	}
	req := struct {
		Source    string   `json:"source"`
		Standards []string `json:"standards"`
	}{Source: source, Standards: standards}

	if err := c.postJSON(ctx, "/v1/compliance", req, &resp); err != nil {
		return nil, err
	}
	return resp.Results, nil
}
