package analyzers

import (
	"context"

	"github.com/solguard/solguard-api/internal/shared/logutil"
)

// ReleaseFunc returns an acquired analyzer to the factory. It must be
// called exactly once per successful acquire, typically deferred.
type ReleaseFunc func()

// Factory hands out analyzer instances and tracks how many are checked
// out, so shutdown and tests can verify nothing leaked.
type Factory struct {
	log logutil.Log

	security   SecurityScanner
	gas        GasOptimizer
	compliance ComplianceChecker
	anomaly    AnomalyDetector

	tracker *leakTracker
}

func NewFactory(log logutil.Log, security SecurityScanner, gas GasOptimizer,
	compliance ComplianceChecker, anomaly AnomalyDetector) *Factory {

	return &Factory{
		log:        log,
		security:   security,
		gas:        gas,
		compliance: compliance,
		anomaly:    anomaly,
		tracker:    newLeakTracker(),
	}
}

func (f Factory) AcquireSecurityScanner(ctx context.Context) (SecurityScanner, ReleaseFunc, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	return f.security, f.tracker.acquire("security"), nil
}

func (f Factory) AcquireGasOptimizer(ctx context.Context) (GasOptimizer, ReleaseFunc, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	return f.gas, f.tracker.acquire("gas"), nil
}

func (f Factory) AcquireComplianceChecker(ctx context.Context) (ComplianceChecker, ReleaseFunc, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	return f.compliance, f.tracker.acquire("compliance"), nil
}

func (f Factory) AcquireAnomalyDetector(ctx context.Context) (AnomalyDetector, ReleaseFunc, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	return f.anomaly, f.tracker.acquire("anomaly"), nil
}

// ActiveCount reports analyzers currently checked out.
func (f Factory) ActiveCount() int {
	return f.tracker.active()
}
