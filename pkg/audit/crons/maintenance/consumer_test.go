package maintenance

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solguard/solguard-api/internal/api/apierrors"
	"github.com/solguard/solguard-api/internal/shared/logutil"
	"github.com/solguard/solguard-api/internal/shared/queue"
	"github.com/solguard/solguard-api/pkg/audit/models"
	"github.com/solguard/solguard-api/pkg/audit/store/storetest"
)

type fakePurger struct {
	name   string
	purged []queue.Status
}

func (p *fakePurger) Name() string { return p.name }

func (p *fakePurger) Purge(st queue.Status, olderThan time.Duration) (int, error) {
	p.purged = append(p.purged, st)
	return 1, nil
}

func TestPruneAnalyzes(t *testing.T) {
	stores := storetest.NewStores()
	ctx := context.Background()

	old := time.Now().Add(-40 * 24 * time.Hour)
	recent := time.Now().Add(-time.Hour)

	orphaned := &models.Analysis{ContractID: 1, Status: models.AnalysisStatusCompleted, CompletedAt: &old}
	require.NoError(t, stores.Analyzes.Create(ctx, orphaned))

	fresh := &models.Analysis{ContractID: 1, Status: models.AnalysisStatusCompleted, CompletedAt: &recent}
	require.NoError(t, stores.Analyzes.Create(ctx, fresh))

	referenced := &models.Analysis{ContractID: 2, Status: models.AnalysisStatusCompleted, CompletedAt: &old}
	require.NoError(t, stores.Analyzes.Create(ctx, referenced))
	require.NoError(t, stores.Reports.Create(ctx, &models.Report{
		ContractID: 2, AnalysisID: referenced.ID, Status: models.ReportStatusCompleted,
	}))

	consumer := NewConsumer(logutil.NewStderrLog("test"), stores, nil)
	require.NoError(t, consumer.PruneAnalyzes(ctx, &PruneMessage{}))

	_, err := stores.Analyzes.GetByID(ctx, orphaned.ID)
	assert.Equal(t, apierrors.ErrNotFound, err)

	_, err = stores.Analyzes.GetByID(ctx, fresh.ID)
	assert.NoError(t, err)

	_, err = stores.Analyzes.GetByID(ctx, referenced.ID)
	assert.NoError(t, err)
}

func TestPurgeQueues(t *testing.T) {
	p1 := &fakePurger{name: "analysis"}
	p2 := &fakePurger{name: "report"}

	consumer := NewConsumer(logutil.NewStderrLog("test"), storetest.NewStores(), []Purger{p1, p2})
	require.NoError(t, consumer.PurgeQueues(context.Background(), &PurgeMessage{}))

	want := []queue.Status{queue.StatusCompleted, queue.StatusFailed}
	assert.Equal(t, want, p1.purged)
	assert.Equal(t, want, p2.purged)
}
