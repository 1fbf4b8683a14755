package implementations

import (
	"context"
	"time"

	"github.com/solguard/solguard-api/pkg/audit/models"
)

// SecurityScanner talks to the external static-analysis engine.
type SecurityScanner struct {
	httpClient
}

func NewSecurityScanner(baseURL string, timeout time.Duration) *SecurityScanner {
	return &SecurityScanner{httpClient: newHTTPClient(baseURL, timeout)}
}

func (s SecurityScanner) Scan(ctx context.Context, source string) ([]models.Vulnerability, error) {
	var resp struct {
		Vulnerabilities []models.Vulnerability `json:"vulnerabilities"`
	}
	req := struct {
		Source string `json:"source"`
	}{Source: source}

	if err := s.postJSON(ctx, "/v1/scan", req, &resp); err != nil {
		return nil, err
	}
	return resp.Vulnerabilities, nil
}
