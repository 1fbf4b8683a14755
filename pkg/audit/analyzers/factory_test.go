package analyzers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solguard/solguard-api/internal/shared/logutil"
)

func TestFactoryTracksReleases(t *testing.T) {
	f := NewFactory(logutil.NewStderrLog("test"), nil, nil, nil, nil)
	ctx := context.Background()

	_, release1, err := f.AcquireSecurityScanner(ctx)
	require.NoError(t, err)
	_, release2, err := f.AcquireAnomalyDetector(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, f.ActiveCount())

	release1()
	release1() // double release is a no-op
	assert.Equal(t, 1, f.ActiveCount())

	release2()
	assert.Equal(t, 0, f.ActiveCount())
}

func TestFactoryCancelledContext(t *testing.T) {
	f := NewFactory(logutil.NewStderrLog("test"), nil, nil, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := f.AcquireGasOptimizer(ctx)
	assert.Error(t, err)
}
