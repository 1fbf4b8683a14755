package reporting

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solguard/solguard-api/internal/shared/logutil"
	"github.com/solguard/solguard-api/pkg/audit/models"
	"github.com/solguard/solguard-api/pkg/audit/reportgen"
	"github.com/solguard/solguard-api/pkg/audit/store"
	"github.com/solguard/solguard-api/pkg/audit/store/storetest"
)

type fakeRenderer struct {
	failOn models.ReportFormat
	calls  []models.ReportFormat
}

func (r *fakeRenderer) Render(format models.ReportFormat, data *reportgen.AuditData) ([]byte, error) {
	r.calls = append(r.calls, format)
	if format == r.failOn {
		return nil, errors.New("render blew up")
	}
	return []byte("rendered " + string(format)), nil
}

type fakeArtifacts struct {
	saved map[models.ReportFormat]string
}

func (a *fakeArtifacts) Save(contractID uint, format models.ReportFormat, content []byte) (string, error) {
	if a.saved == nil {
		a.saved = map[models.ReportFormat]string{}
	}
	path := fmt.Sprintf("/artifacts/%d/report.%s", contractID, format.Ext())
	a.saved[format] = path
	return path, nil
}

func setupReport(t *testing.T, stores *store.Stores, formats []models.ReportFormat) *GenerateMessage {
	ctx := context.Background()

	contract := &models.Contract{
		OwnerID:    1,
		Name:       "Token",
		SourceCode: "contract Token {}",
		Status:     models.ContractStatusAnalyzed,
	}
	require.NoError(t, stores.Contracts.Create(ctx, contract))

	now := time.Now()
	analysis := &models.Analysis{
		ContractID:  contract.ID,
		Status:      models.AnalysisStatusCompleted,
		CompletedAt: &now,
	}
	require.NoError(t, analysis.SetBundle(&models.FindingsBundle{
		OverallRiskRating: models.SeverityLow,
		Vulnerabilities:   []models.Vulnerability{{Severity: models.SeverityLow}},
	}))
	require.NoError(t, stores.Analyzes.Create(ctx, analysis))

	report := &models.Report{
		ContractID: contract.ID,
		AnalysisID: analysis.ID,
		Status:     models.ReportStatusPending,
	}
	require.NoError(t, report.SetRequestedFormats(formats))
	require.NoError(t, stores.Reports.Create(ctx, report))

	return &GenerateMessage{
		ReportID:   report.ID,
		ContractID: contract.ID,
		Formats:    formats,
	}
}

func TestConsumeRendersAllFormats(t *testing.T) {
	stores := storetest.NewStores()
	renderer := &fakeRenderer{}
	artifacts := &fakeArtifacts{}

	formats := []models.ReportFormat{models.FormatMarkdown, models.FormatJSON}
	msg := setupReport(t, stores, formats)

	consumer := NewConsumer(logutil.NewStderrLog("test"), stores, renderer, artifacts)
	require.NoError(t, consumer.Consume(context.Background(), msg))

	assert.Equal(t, formats, renderer.calls)

	r, err := stores.Reports.GetByID(context.Background(), msg.ReportID)
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusCompleted, r.Status)

	available, err := r.AvailableFormats()
	require.NoError(t, err)
	assert.Equal(t, formats, available)

	paths, err := r.FilePaths()
	require.NoError(t, err)
	assert.Len(t, paths, 2)
	assert.Equal(t, artifacts.saved[models.FormatJSON], paths[models.FormatJSON])

	assert.Contains(t, r.Summary, "Overall risk: Low.")
}

func TestConsumeFirstRenderFailureFailsWholeReport(t *testing.T) {
	stores := storetest.NewStores()
	renderer := &fakeRenderer{failOn: models.FormatJSON}
	artifacts := &fakeArtifacts{}

	formats := []models.ReportFormat{models.FormatMarkdown, models.FormatJSON, models.FormatHTML}
	msg := setupReport(t, stores, formats)

	consumer := NewConsumer(logutil.NewStderrLog("test"), stores, renderer, artifacts)
	err := consumer.Consume(context.Background(), msg)
	require.Error(t, err)

	// rendering stopped at the failing format
	assert.Equal(t, []models.ReportFormat{models.FormatMarkdown, models.FormatJSON}, renderer.calls)

	r, err := stores.Reports.GetByID(context.Background(), msg.ReportID)
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusFailed, r.Status)
	assert.Contains(t, r.Error, "json")

	// the earlier markdown file stays on disk but is not available
	assert.Contains(t, artifacts.saved, models.FormatMarkdown)
	available, err := r.AvailableFormats()
	require.NoError(t, err)
	assert.Equal(t, []models.ReportFormat{}, available)
}

func TestConsumeExpiredContextFailsReport(t *testing.T) {
	stores := storetest.NewStores()
	renderer := &fakeRenderer{}
	artifacts := &fakeArtifacts{}

	msg := setupReport(t, stores, []models.ReportFormat{models.FormatPDF, models.FormatJSON})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	consumer := NewConsumer(logutil.NewStderrLog("test"), stores, renderer, artifacts)
	err := consumer.Consume(ctx, msg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "context canceled")

	// no format was rendered past the deadline
	assert.Empty(t, renderer.calls)

	r, err := stores.Reports.GetByID(context.Background(), msg.ReportID)
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusFailed, r.Status)
	assert.NotEmpty(t, r.Error)

	available, err := r.AvailableFormats()
	require.NoError(t, err)
	assert.Equal(t, []models.ReportFormat{}, available)
}

func TestConsumeSkipsCompleted(t *testing.T) {
	stores := storetest.NewStores()
	renderer := &fakeRenderer{}
	artifacts := &fakeArtifacts{}

	msg := setupReport(t, stores, []models.ReportFormat{models.FormatMarkdown})

	r, err := stores.Reports.GetByID(context.Background(), msg.ReportID)
	require.NoError(t, err)
	r.Status = models.ReportStatusCompleted
	require.NoError(t, stores.Reports.Update(context.Background(), r))

	consumer := NewConsumer(logutil.NewStderrLog("test"), stores, renderer, artifacts)
	require.NoError(t, consumer.Consume(context.Background(), msg))
	assert.Empty(t, renderer.calls)
}
