package reporting

import (
	"context"
	"time"

	"github.com/solguard/solguard-api/internal/api/apierrors"
	"github.com/solguard/solguard-api/internal/shared/logutil"
	"github.com/solguard/solguard-api/pkg/audit/models"
	"github.com/solguard/solguard-api/pkg/audit/reportgen"
	"github.com/solguard/solguard-api/pkg/audit/store"
)

const auditorName = "SolGuard"

type Renderer interface {
	Render(format models.ReportFormat, data *reportgen.AuditData) ([]byte, error)
}

type ArtifactSaver interface {
	Save(contractID uint, format models.ReportFormat, content []byte) (string, error)
}

type Consumer struct {
	log       logutil.Log
	stores    *store.Stores
	renderer  Renderer
	artifacts ArtifactSaver
}

func NewConsumer(log logutil.Log, stores *store.Stores, renderer Renderer, artifacts ArtifactSaver) *Consumer {
	return &Consumer{
		log:       log,
		stores:    stores,
		renderer:  renderer,
		artifacts: artifacts,
	}
}

// Consume renders one report job. Formats are rendered in the caller's
// order; the first failing format fails the whole report. Files
// written before the failure stay on disk but are never listed as
// available.
func (c Consumer) Consume(ctx context.Context, msg *GenerateMessage) error {
	r, err := c.stores.Reports.GetByID(ctx, msg.ReportID)
	if err != nil {
		if err == apierrors.ErrNotFound {
			c.log.Warnf("Skip report job: report %d not found", msg.ReportID)
			return nil
		}
		return err
	}

	if r.Status == models.ReportStatusCompleted {
		c.log.Warnf("Skip report job: report %d is already completed", r.ID)
		return nil
	}

	contract, err := c.stores.Contracts.GetByID(ctx, msg.ContractID)
	if err != nil {
		return err
	}

	analysis, err := c.stores.Analyzes.GetByID(ctx, r.AnalysisID)
	if err != nil {
		return err
	}
	bundle, err := analysis.Bundle()
	if err != nil {
		return err
	}

	r.Status = models.ReportStatusGenerating
	r.Error = ""
	if err = c.stores.Reports.Update(ctx, r); err != nil {
		return err
	}

	auditedAt := time.Now()
	if analysis.CompletedAt != nil {
		auditedAt = *analysis.CompletedAt
	}
	data := &reportgen.AuditData{
		ContractName:    contract.Name,
		ContractAddress: contract.Address,
		CompilerVersion: contract.CompilerVersion,
		SourceCode:      contract.SourceCode,
		AuditedAt:       auditedAt,
		Auditor:         auditorName,
		Bundle:          bundle,
	}

	paths := map[models.ReportFormat]string{}
	for _, format := range msg.Formats {
		// the job timeout cancels ctx; stop before the next format
		// instead of rendering past the deadline
		if ctxErr := ctx.Err(); ctxErr != nil {
			rerr := &apierrors.RenderError{Format: string(format), Err: ctxErr}
			c.fail(ctx, r, rerr)
			return rerr
		}

		content, renderErr := c.renderer.Render(format, data)
		if renderErr != nil {
			rerr := &apierrors.RenderError{Format: string(format), Err: renderErr}
			c.fail(ctx, r, rerr)
			return rerr
		}

		path, saveErr := c.artifacts.Save(contract.ID, format, content)
		if saveErr != nil {
			rerr := &apierrors.RenderError{Format: string(format), Err: saveErr}
			c.fail(ctx, r, rerr)
			return rerr
		}
		paths[format] = path
	}

	if err = r.SetFilePaths(paths); err != nil {
		return err
	}
	if err = r.SetAvailableFormats(msg.Formats); err != nil {
		return err
	}
	r.Summary = reportgen.Summary(bundle)
	r.Status = models.ReportStatusCompleted
	if err = c.stores.Reports.Update(ctx, r); err != nil {
		return err
	}

	c.log.Infof("Report %d of contract %d completed with %d formats",
		r.ID, contract.ID, len(msg.Formats))
	return nil
}

func (c Consumer) fail(ctx context.Context, r *models.Report, cause error) {
	r.Status = models.ReportStatusFailed
	r.Error = cause.Error()
	if err := r.SetAvailableFormats(nil); err != nil {
		c.log.Errorf("Can't reset available formats of report %d: %s", r.ID, err)
	}
	if err := c.stores.Reports.Update(ctx, r); err != nil {
		c.log.Errorf("Can't mark report %d failed: %s", r.ID, err)
	}
}
