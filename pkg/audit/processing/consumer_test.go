package processing

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solguard/solguard-api/internal/shared/logutil"
	"github.com/solguard/solguard-api/pkg/audit/analyzers"
	"github.com/solguard/solguard-api/pkg/audit/models"
	"github.com/solguard/solguard-api/pkg/audit/store"
	"github.com/solguard/solguard-api/pkg/audit/store/storetest"
)

type fakeFactory struct {
	scan     func(ctx context.Context, source string) ([]models.Vulnerability, error)
	optimize func(ctx context.Context, source string) ([]models.GasIssue, error)
	check    func(ctx context.Context, source string, standards []string) (map[string]models.ComplianceResult, error)
	detect   func(ctx context.Context, source string) (*models.AnomalyResult, error)

	releases int
}

func (f *fakeFactory) release() analyzers.ReleaseFunc {
	return func() { f.releases++ }
}

func (f *fakeFactory) AcquireSecurityScanner(ctx context.Context) (analyzers.SecurityScanner, analyzers.ReleaseFunc, error) {
	return scannerFunc(f.scan), f.release(), nil
}

func (f *fakeFactory) AcquireGasOptimizer(ctx context.Context) (analyzers.GasOptimizer, analyzers.ReleaseFunc, error) {
	return optimizerFunc(f.optimize), f.release(), nil
}

func (f *fakeFactory) AcquireComplianceChecker(ctx context.Context) (analyzers.ComplianceChecker, analyzers.ReleaseFunc, error) {
	return checkerFunc(f.check), f.release(), nil
}

func (f *fakeFactory) AcquireAnomalyDetector(ctx context.Context) (analyzers.AnomalyDetector, analyzers.ReleaseFunc, error) {
	return detectorFunc(f.detect), f.release(), nil
}

type scannerFunc func(ctx context.Context, source string) ([]models.Vulnerability, error)

func (f scannerFunc) Scan(ctx context.Context, source string) ([]models.Vulnerability, error) {
	return f(ctx, source)
}

type optimizerFunc func(ctx context.Context, source string) ([]models.GasIssue, error)

func (f optimizerFunc) Optimize(ctx context.Context, source string) ([]models.GasIssue, error) {
	return f(ctx, source)
}

type checkerFunc func(ctx context.Context, source string, standards []string) (map[string]models.ComplianceResult, error)

func (f checkerFunc) Check(ctx context.Context, source string, standards []string) (map[string]models.ComplianceResult, error) {
	return f(ctx, source, standards)
}

type detectorFunc func(ctx context.Context, source string) (*models.AnomalyResult, error)

func (f detectorFunc) Detect(ctx context.Context, source string) (*models.AnomalyResult, error) {
	return f(ctx, source)
}

func (f detectorFunc) HealthCheck(ctx context.Context) error {
	return nil
}

func passthroughFactory() *fakeFactory {
	return &fakeFactory{
		scan: func(ctx context.Context, source string) ([]models.Vulnerability, error) {
			return nil, nil
		},
		optimize: func(ctx context.Context, source string) ([]models.GasIssue, error) {
			return nil, nil
		},
		check: func(ctx context.Context, source string, standards []string) (map[string]models.ComplianceResult, error) {
			return map[string]models.ComplianceResult{}, nil
		},
		detect: func(ctx context.Context, source string) (*models.AnomalyResult, error) {
			return &models.AnomalyResult{}, nil
		},
	}
}

func setupRun(t *testing.T, stores *store.Stores, opts models.AnalysisOptions) *RunMessage {
	ctx := context.Background()

	contract := &models.Contract{
		OwnerID:    1,
		Name:       "Token",
		SourceCode: "contract Token {}",
		Status:     models.ContractStatusAnalyzing,
	}
	require.NoError(t, stores.Contracts.Create(ctx, contract))

	analysis := &models.Analysis{
		ContractID: contract.ID,
		Status:     models.AnalysisStatusPending,
	}
	require.NoError(t, stores.Analyzes.Create(ctx, analysis))

	return &RunMessage{
		AnalysisID: analysis.ID,
		ContractID: contract.ID,
		Options:    opts,
	}
}

func TestConsumeAggregatesFindings(t *testing.T) {
	stores := storetest.NewStores()
	factory := passthroughFactory()
	factory.scan = func(ctx context.Context, source string) ([]models.Vulnerability, error) {
		return []models.Vulnerability{
			{ID: "SG-1", Name: "Reentrancy", Severity: models.SeverityCritical,
				Location: models.Location{Line: 42}, Recommendation: "add a guard"},
			{ID: "SG-2", Name: "Unchecked send", Severity: models.SeverityLow,
				Location: models.Location{Line: 10}},
		}, nil
	}
	factory.optimize = func(ctx context.Context, source string) ([]models.GasIssue, error) {
		return []models.GasIssue{
			{Description: "use calldata", Location: models.Location{Line: 7}},
		}, nil
	}
	factory.check = func(ctx context.Context, source string, standards []string) (map[string]models.ComplianceResult, error) {
		assert.Equal(t, []string{"ERC20"}, standards)
		return map[string]models.ComplianceResult{
			"ERC20": {Standard: "ERC20", Compliant: false, MissingRequirements: []string{"implement decimals()"}},
		}, nil
	}
	factory.detect = func(ctx context.Context, source string) (*models.AnomalyResult, error) {
		return &models.AnomalyResult{
			IsAnomaly: false, AnomalyScore: 0.2,
			Recommendations: []string{"review delegatecall usage"},
		}, nil
	}

	msg := setupRun(t, stores, models.AnalysisOptions{
		SecurityScan:        true,
		GasOptimization:     true,
		ComplianceCheck:     true,
		AnomalyDetection:    true,
		ComplianceStandards: []string{"ERC20"},
	})

	consumer := NewConsumer(logutil.NewStderrLog("test"), stores, factory)
	require.NoError(t, consumer.Consume(context.Background(), msg))
	assert.Equal(t, 4, factory.releases)

	a, err := stores.Analyzes.GetByID(context.Background(), msg.AnalysisID)
	require.NoError(t, err)
	assert.Equal(t, models.AnalysisStatusCompleted, a.Status)
	require.NotNil(t, a.CompletedAt)

	bundle, err := a.Bundle()
	require.NoError(t, err)
	assert.Equal(t, models.SeverityCritical, bundle.OverallRiskRating)
	assert.Len(t, bundle.Vulnerabilities, 2)

	var lines []string
	for _, r := range bundle.Recommendations {
		lines = append(lines, r.DisplayText())
	}
	assert.Equal(t, []string{
		"optimize gas at line 7: use calldata",
		"address ERC20 compliance: implement decimals()",
		"review delegatecall usage",
		"fix Reentrancy at line 42: add a guard",
		"fix Unchecked send at line 10",
	}, lines)

	contract, err := stores.Contracts.GetByID(context.Background(), msg.ContractID)
	require.NoError(t, err)
	assert.Equal(t, models.ContractStatusAnalyzed, contract.Status)
}

func TestConsumeAnomalyRaisesRisk(t *testing.T) {
	stores := storetest.NewStores()
	factory := passthroughFactory()
	factory.detect = func(ctx context.Context, source string) (*models.AnomalyResult, error) {
		return &models.AnomalyResult{IsAnomaly: true, AnomalyScore: 0.95}, nil
	}

	msg := setupRun(t, stores, models.AnalysisOptions{AnomalyDetection: true})
	consumer := NewConsumer(logutil.NewStderrLog("test"), stores, factory)
	require.NoError(t, consumer.Consume(context.Background(), msg))

	a, err := stores.Analyzes.GetByID(context.Background(), msg.AnalysisID)
	require.NoError(t, err)
	bundle, err := a.Bundle()
	require.NoError(t, err)
	assert.Equal(t, models.SeverityHigh, bundle.OverallRiskRating)
}

func TestConsumeAnomalyNeverLowersRisk(t *testing.T) {
	b := &models.FindingsBundle{
		Vulnerabilities: []models.Vulnerability{{Severity: models.SeverityCritical}},
		AnomalyResult:   &models.AnomalyResult{AnomalyScore: 0.99},
	}
	assert.Equal(t, models.SeverityCritical, riskRating(b))
}

func TestConsumeAnomalyFailureDegrades(t *testing.T) {
	stores := storetest.NewStores()
	factory := passthroughFactory()
	factory.detect = func(ctx context.Context, source string) (*models.AnomalyResult, error) {
		return nil, errors.New("anomaly service down")
	}

	msg := setupRun(t, stores, models.AnalysisOptions{SecurityScan: true, AnomalyDetection: true})
	consumer := NewConsumer(logutil.NewStderrLog("test"), stores, factory)
	require.NoError(t, consumer.Consume(context.Background(), msg))

	a, err := stores.Analyzes.GetByID(context.Background(), msg.AnalysisID)
	require.NoError(t, err)
	assert.Equal(t, models.AnalysisStatusCompleted, a.Status)

	bundle, err := a.Bundle()
	require.NoError(t, err)
	assert.Nil(t, bundle.AnomalyResult)
}

func TestConsumeAnalyzerFailure(t *testing.T) {
	stores := storetest.NewStores()
	factory := passthroughFactory()
	factory.scan = func(ctx context.Context, source string) ([]models.Vulnerability, error) {
		return nil, errors.New("scanner crashed")
	}

	msg := setupRun(t, stores, models.AnalysisOptions{SecurityScan: true})
	consumer := NewConsumer(logutil.NewStderrLog("test"), stores, factory)

	err := consumer.Consume(context.Background(), msg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "security scanner")

	a, err := stores.Analyzes.GetByID(context.Background(), msg.AnalysisID)
	require.NoError(t, err)
	assert.Equal(t, models.AnalysisStatusFailed, a.Status)
	require.NotNil(t, a.CompletedAt)
	assert.Contains(t, a.Error, "scanner crashed")

	contract, err := stores.Contracts.GetByID(context.Background(), msg.ContractID)
	require.NoError(t, err)
	assert.Equal(t, models.ContractStatusFailed, contract.Status)
}

func TestConsumeSkipsCompleted(t *testing.T) {
	stores := storetest.NewStores()
	factory := passthroughFactory()

	msg := setupRun(t, stores, models.AnalysisOptions{SecurityScan: true})

	a, err := stores.Analyzes.GetByID(context.Background(), msg.AnalysisID)
	require.NoError(t, err)
	a.Status = models.AnalysisStatusCompleted
	require.NoError(t, stores.Analyzes.Update(context.Background(), a))

	called := false
	factory.scan = func(ctx context.Context, source string) ([]models.Vulnerability, error) {
		called = true
		return nil, nil
	}

	consumer := NewConsumer(logutil.NewStderrLog("test"), stores, factory)
	require.NoError(t, consumer.Consume(context.Background(), msg))
	assert.False(t, called)
}
