package processing

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/solguard/solguard-api/internal/api/apierrors"
	"github.com/solguard/solguard-api/internal/shared/logutil"
	"github.com/solguard/solguard-api/pkg/audit/analyzers"
	"github.com/solguard/solguard-api/pkg/audit/models"
	"github.com/solguard/solguard-api/pkg/audit/store"
)

// AnalyzerFactory hands out scoped analyzer instances; every acquire
// is paired with a deferred release.
type AnalyzerFactory interface {
	AcquireSecurityScanner(ctx context.Context) (analyzers.SecurityScanner, analyzers.ReleaseFunc, error)
	AcquireGasOptimizer(ctx context.Context) (analyzers.GasOptimizer, analyzers.ReleaseFunc, error)
	AcquireComplianceChecker(ctx context.Context) (analyzers.ComplianceChecker, analyzers.ReleaseFunc, error)
	AcquireAnomalyDetector(ctx context.Context) (analyzers.AnomalyDetector, analyzers.ReleaseFunc, error)
}

// anomalyRaiseThreshold: an anomaly score above it raises the overall
// risk rating to at least High, never lowers it.
const anomalyRaiseThreshold = 0.9

const maxVulnRecommendations = 3

type Consumer struct {
	log     logutil.Log
	stores  *store.Stores
	factory AnalyzerFactory
}

func NewConsumer(log logutil.Log, stores *store.Stores, factory AnalyzerFactory) *Consumer {
	return &Consumer{
		log:     log,
		stores:  stores,
		factory: factory,
	}
}

// Consume runs one analysis job. A returned error makes the queue
// retry per its attempts policy; an already completed analysis is
// skipped so redelivery is harmless. A failed analysis is re-run: it
// only stays failed once the queue's attempt ceiling is exhausted.
func (c Consumer) Consume(ctx context.Context, msg *RunMessage) error {
	a, err := c.stores.Analyzes.GetByID(ctx, msg.AnalysisID)
	if err != nil {
		if err == apierrors.ErrNotFound {
			c.log.Warnf("Skip analysis job: analysis %d not found", msg.AnalysisID)
			return nil
		}
		return err
	}

	if a.Status == models.AnalysisStatusCompleted {
		c.log.Warnf("Skip analysis job: analysis %d is already completed", a.ID)
		return nil
	}

	contract, err := c.stores.Contracts.GetByID(ctx, msg.ContractID)
	if err != nil {
		return err
	}

	a.Status = models.AnalysisStatusProcessing
	a.StartedAt = time.Now()
	a.Error = ""
	if err = c.stores.Analyzes.Update(ctx, a); err != nil {
		return err
	}

	bundle, err := c.runAnalyzers(ctx, contract.SourceCode, msg.Options)
	if err != nil {
		c.fail(ctx, a, contract, err)
		return err
	}

	if err = a.SetBundle(bundle); err != nil {
		c.fail(ctx, a, contract, err)
		return err
	}

	now := time.Now()
	a.Status = models.AnalysisStatusCompleted
	a.CompletedAt = &now
	if err = c.stores.Analyzes.Update(ctx, a); err != nil {
		return err
	}

	if err = c.stores.Contracts.UpdateStatus(ctx, contract.ID, models.ContractStatusAnalyzed); err != nil {
		return err
	}

	c.log.Infof("Analysis %d of contract %d completed: risk %s",
		a.ID, contract.ID, bundle.OverallRiskRating)
	return nil
}

func (c Consumer) fail(ctx context.Context, a *models.Analysis, contract *models.Contract, cause error) {
	now := time.Now()
	a.Status = models.AnalysisStatusFailed
	a.CompletedAt = &now
	a.Error = cause.Error()
	if err := c.stores.Analyzes.Update(ctx, a); err != nil {
		c.log.Errorf("Can't mark analysis %d failed: %s", a.ID, err)
	}
	if err := c.stores.Contracts.UpdateStatus(ctx, contract.ID, models.ContractStatusFailed); err != nil {
		c.log.Errorf("Can't mark contract %d failed: %s", contract.ID, err)
	}
}

// runAnalyzers executes the enabled engines in a fixed order so
// finding and recommendation ordering is deterministic.
func (c Consumer) runAnalyzers(ctx context.Context, source string, opts models.AnalysisOptions) (*models.FindingsBundle, error) {
	bundle := &models.FindingsBundle{
		ComplianceResults: map[string]models.ComplianceResult{},
	}

	if opts.SecurityScan {
		vulns, err := c.scanSecurity(ctx, source)
		if err != nil {
			return nil, &apierrors.DependencyError{Dependency: "security scanner", Err: err}
		}
		bundle.Vulnerabilities = vulns
	}

	if opts.GasOptimization {
		issues, err := c.optimizeGas(ctx, source)
		if err != nil {
			return nil, &apierrors.DependencyError{Dependency: "gas optimizer", Err: err}
		}
		bundle.GasIssues = issues
	}

	if opts.ComplianceCheck {
		results, err := c.checkCompliance(ctx, source, opts.ComplianceStandards)
		if err != nil {
			return nil, &apierrors.DependencyError{Dependency: "compliance checker", Err: err}
		}
		bundle.ComplianceResults = results
	}

	if opts.AnomalyDetection {
		// anomaly detection degrades: a failure loses the anomaly
		// section but never fails the analysis
		res, err := c.detectAnomalies(ctx, source)
		if err != nil {
			c.log.Warnf("Anomaly detection failed, continuing without it: %s", err)
		} else {
			bundle.AnomalyResult = res
		}
	}

	bundle.OverallRiskRating = riskRating(bundle)
	bundle.Recommendations = synthesizeRecommendations(bundle)
	return bundle, nil
}

func (c Consumer) scanSecurity(ctx context.Context, source string) ([]models.Vulnerability, error) {
	scanner, release, err := c.factory.AcquireSecurityScanner(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	return scanner.Scan(ctx, source)
}

func (c Consumer) optimizeGas(ctx context.Context, source string) ([]models.GasIssue, error) {
	optimizer, release, err := c.factory.AcquireGasOptimizer(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	return optimizer.Optimize(ctx, source)
}

func (c Consumer) checkCompliance(ctx context.Context, source string, standards []string) (map[string]models.ComplianceResult, error) {
	checker, release, err := c.factory.AcquireComplianceChecker(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	return checker.Check(ctx, source, standards)
}

func (c Consumer) detectAnomalies(ctx context.Context, source string) (*models.AnomalyResult, error) {
	detector, release, err := c.factory.AcquireAnomalyDetector(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	return detector.Detect(ctx, source)
}

// riskRating is the highest vulnerability severity; a strong anomaly
// signal raises it to at least High.
func riskRating(b *models.FindingsBundle) models.Severity {
	rating := models.MaxSeverity(b.Vulnerabilities)

	if b.AnomalyResult != nil && b.AnomalyResult.AnomalyScore > anomalyRaiseThreshold {
		if rating.Rank() < models.SeverityHigh.Rank() {
			rating = models.SeverityHigh
		}
	}
	return rating
}

// synthesizeRecommendations builds the advisory list in a fixed order:
// gas issues, non-compliant standards, anomaly recommendations, then
// up to three highest-severity vulnerabilities.
func synthesizeRecommendations(b *models.FindingsBundle) []models.Recommendation {
	var recs []models.Recommendation

	for _, g := range b.GasIssues {
		recs = append(recs, models.PlainRecommendation(
			fmt.Sprintf("optimize gas at line %d: %s", g.Location.Line, g.Description)))
	}

	for _, name := range sortedStandardNames(b.ComplianceResults) {
		res := b.ComplianceResults[name]
		if res.Compliant {
			continue
		}
		line := fmt.Sprintf("address %s compliance", name)
		if len(res.MissingRequirements) != 0 {
			line = fmt.Sprintf("address %s compliance: %s", name, res.MissingRequirements[0])
		}
		recs = append(recs, models.PlainRecommendation(line))
	}

	if b.AnomalyResult != nil {
		for _, r := range b.AnomalyResult.Recommendations {
			recs = append(recs, models.PlainRecommendation(r))
		}
	}

	vulns := make([]models.Vulnerability, len(b.Vulnerabilities))
	copy(vulns, b.Vulnerabilities)
	sort.SliceStable(vulns, func(i, j int) bool {
		return vulns[i].Severity.Rank() > vulns[j].Severity.Rank()
	})
	for i, v := range vulns {
		if i == maxVulnRecommendations {
			break
		}
		line := fmt.Sprintf("fix %s at line %d", v.Name, v.Location.Line)
		if v.Recommendation != "" {
			line += ": " + v.Recommendation
		}
		recs = append(recs, models.PlainRecommendation(line))
	}

	return recs
}

func sortedStandardNames(results map[string]models.ComplianceResult) []string {
	names := make([]string, 0, len(results))
	for name := range results {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
