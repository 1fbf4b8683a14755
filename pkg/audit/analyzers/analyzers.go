// Package analyzers defines the analysis engines the audit pipeline
// runs against contract source code.
package analyzers

import (
	"context"

	"github.com/solguard/solguard-api/pkg/audit/models"
)

type SecurityScanner interface {
	Scan(ctx context.Context, source string) ([]models.Vulnerability, error)
}

type GasOptimizer interface {
	Optimize(ctx context.Context, source string) ([]models.GasIssue, error)
}

type ComplianceChecker interface {
	Check(ctx context.Context, source string, standards []string) (map[string]models.ComplianceResult, error)
}

// AnomalyDetector is the one engine with external health state: probe
// it with HealthCheck before committing an analysis run to it.
type AnomalyDetector interface {
	Detect(ctx context.Context, source string) (*models.AnomalyResult, error)
	HealthCheck(ctx context.Context) error
}
