package analysis

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solguard/solguard-api/internal/api/apierrors"
	"github.com/solguard/solguard-api/internal/shared/logutil"
	"github.com/solguard/solguard-api/internal/shared/queue"
	"github.com/solguard/solguard-api/pkg/audit/models"
	"github.com/solguard/solguard-api/pkg/audit/processing"
	"github.com/solguard/solguard-api/pkg/audit/request"
	"github.com/solguard/solguard-api/pkg/audit/store"
	"github.com/solguard/solguard-api/pkg/audit/store/storetest"
)

type fakeEnqueuer struct {
	err      error
	enqueued []string
	messages []interface{}
}

func (f *fakeEnqueuer) Enqueue(ctx context.Context, task string, message interface{}, eo *queue.EnqueueOptions) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.enqueued = append(f.enqueued, task)
	f.messages = append(f.messages, message)
	return "1", nil
}

type fakeDetector struct {
	healthErr error
}

func (d fakeDetector) Detect(ctx context.Context, source string) (*models.AnomalyResult, error) {
	return nil, nil
}

func (d fakeDetector) HealthCheck(ctx context.Context) error {
	return d.healthErr
}

func authCtx(userID uint) *request.AuthorizedContext {
	return &request.AuthorizedContext{
		BaseContext: request.BaseContext{
			Ctx: context.Background(),
			Log: logutil.NewStderrLog("test"),
		},
		UserID: userID,
	}
}

func createContract(t *testing.T, stores *store.Stores, ownerID uint, source string) *models.Contract {
	c := &models.Contract{
		OwnerID:    ownerID,
		Name:       "Token",
		SourceCode: source,
		Status:     models.ContractStatusUploaded,
	}
	require.NoError(t, stores.Contracts.Create(context.Background(), c))
	return c
}

func TestStartEnqueues(t *testing.T) {
	stores := storetest.NewStores()
	q := &fakeEnqueuer{}
	svc := BasicService{Stores: stores, Producer: processing.NewProducer(q), Anomaly: fakeDetector{}}

	c := createContract(t, stores, 1, "contract Token {}")

	status, err := svc.Start(authCtx(1), c.ID, &StartPayload{
		Options: models.AnalysisOptions{SecurityScan: true, AnomalyDetection: true},
	})
	require.NoError(t, err)
	assert.Equal(t, models.AnalysisStatusPending, status.Status)
	assert.NotEmpty(t, status.GUID)

	require.Len(t, q.enqueued, 1)
	assert.Equal(t, processing.TaskRun, q.enqueued[0])
	msg := q.messages[0].(processing.RunMessage)
	assert.True(t, msg.Options.AnomalyDetection)

	got, err := stores.Contracts.GetByID(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ContractStatusAnalyzing, got.Status)
}

func TestStartRejectsEmptySource(t *testing.T) {
	stores := storetest.NewStores()
	svc := BasicService{Stores: stores, Producer: processing.NewProducer(&fakeEnqueuer{})}

	c := createContract(t, stores, 1, "")

	_, err := svc.Start(authCtx(1), c.ID, &StartPayload{})
	require.Error(t, err)
	assert.Equal(t, apierrors.ErrValidation, errors.Cause(err))
}

func TestStartForeignContract(t *testing.T) {
	stores := storetest.NewStores()
	svc := BasicService{Stores: stores, Producer: processing.NewProducer(&fakeEnqueuer{})}

	c := createContract(t, stores, 1, "contract Token {}")

	_, err := svc.Start(authCtx(2), c.ID, &StartPayload{})
	assert.Equal(t, apierrors.ErrNotFound, err)
}

func TestStartUnhealthyAnomalyDetectorDisablesIt(t *testing.T) {
	stores := storetest.NewStores()
	q := &fakeEnqueuer{}
	svc := BasicService{
		Stores:   stores,
		Producer: processing.NewProducer(q),
		Anomaly:  fakeDetector{healthErr: errors.New("down")},
	}

	c := createContract(t, stores, 1, "contract Token {}")

	_, err := svc.Start(authCtx(1), c.ID, &StartPayload{
		Options: models.AnalysisOptions{SecurityScan: true, AnomalyDetection: true},
	})
	require.NoError(t, err)

	msg := q.messages[0].(processing.RunMessage)
	assert.False(t, msg.Options.AnomalyDetection)
	assert.True(t, msg.Options.SecurityScan)
}

func TestStartEnqueueFailureRevertsContract(t *testing.T) {
	stores := storetest.NewStores()
	q := &fakeEnqueuer{err: errors.New("redis down")}
	svc := BasicService{Stores: stores, Producer: processing.NewProducer(q)}

	c := createContract(t, stores, 1, "contract Token {}")

	_, err := svc.Start(authCtx(1), c.ID, &StartPayload{})
	require.Error(t, err)
	var qerr *apierrors.QueueError
	assert.True(t, errors.As(err, &qerr))

	got, err := stores.Contracts.GetByID(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ContractStatusUploaded, got.Status)

	// the failed analysis row is kept for diagnostics
	a, err := stores.Analyzes.MostRecentForContract(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AnalysisStatusFailed, a.Status)
	assert.Contains(t, a.Error, "redis down")
	require.NotNil(t, a.CompletedAt)
}

func TestGetStatus(t *testing.T) {
	stores := storetest.NewStores()
	svc := BasicService{Stores: stores, Producer: processing.NewProducer(&fakeEnqueuer{})}

	c := createContract(t, stores, 1, "contract Token {}")

	_, err := svc.GetStatus(authCtx(1), c.ID)
	assert.Equal(t, apierrors.ErrNotFound, err)

	a := &models.Analysis{ContractID: c.ID, Status: models.AnalysisStatusCompleted}
	require.NoError(t, a.SetBundle(&models.FindingsBundle{OverallRiskRating: models.SeverityMedium}))
	require.NoError(t, stores.Analyzes.Create(context.Background(), a))

	status, err := svc.GetStatus(authCtx(1), c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AnalysisStatusCompleted, status.Status)
	require.NotNil(t, status.Findings)
	assert.Equal(t, models.SeverityMedium, status.Findings.OverallRiskRating)
}
