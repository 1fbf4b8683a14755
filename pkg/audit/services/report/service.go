package report

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/solguard/solguard-api/internal/api/apierrors"
	"github.com/solguard/solguard-api/pkg/audit/models"
	"github.com/solguard/solguard-api/pkg/audit/reporting"
	"github.com/solguard/solguard-api/pkg/audit/request"
	"github.com/solguard/solguard-api/pkg/audit/store"
)

type GeneratePayload struct {
	Formats []string `json:"formats"`
}

type Metadata struct {
	ReportID         uint                  `json:"reportId"`
	Status           models.ReportStatus   `json:"status"`
	RequestedFormats []models.ReportFormat `json:"requestedFormats"`
	AvailableFormats []models.ReportFormat `json:"availableFormats"`
	Summary          string                `json:"summary,omitempty"`
	Error            string                `json:"error,omitempty"`
}

type Download struct {
	Content     []byte
	ContentType string
	Filename    string
}

// ArtifactReader reads stored report files and removes a contract's
// artifact directory on regeneration.
type ArtifactReader interface {
	Read(path string) ([]byte, error)
	DeleteAll(contractID uint) error
}

type Service interface {
	//url:/v1/contracts/{contractid}/reports method:POST
	Generate(rc *request.AuthorizedContext, contractID uint, payload *GeneratePayload) (*Metadata, error)

	//url:/v1/contracts/{contractid}/reports
	GetMetadata(rc *request.AuthorizedContext, contractID uint) (*Metadata, error)

	//url:/v1/contracts/{contractid}/reports/{format}
	Download(rc *request.AuthorizedContext, contractID uint, format string) (*Download, error)
}

type BasicService struct {
	Stores    *store.Stores
	Producer  *reporting.Producer
	Artifacts ArtifactReader
}

// Generate validates the requested formats, requires a completed
// analysis and replaces any previous reports of the contract: old rows
// and artifact files are deleted before the new job is enqueued.
func (s BasicService) Generate(rc *request.AuthorizedContext, contractID uint, payload *GeneratePayload) (*Metadata, error) {
	contract, err := s.Stores.Contracts.GetForOwner(rc.Ctx, contractID, rc.UserID)
	if err != nil {
		return nil, err
	}

	if len(payload.Formats) == 0 {
		return nil, errors.Wrap(apierrors.ErrValidation, "no report formats requested")
	}
	formats := make([]models.ReportFormat, 0, len(payload.Formats))
	for _, raw := range payload.Formats {
		f, perr := models.ParseFormat(raw)
		if perr != nil {
			return nil, errors.Wrap(apierrors.ErrValidation, perr.Error())
		}
		formats = append(formats, f)
	}

	analysis, err := s.Stores.Analyzes.MostRecentCompletedForContract(rc.Ctx, contract.ID)
	if err != nil {
		if err == apierrors.ErrNotFound {
			return nil, errors.Wrap(apierrors.ErrNotFound, "no completed analysis for contract")
		}
		return nil, err
	}

	if err = s.Stores.Reports.DeleteByContract(rc.Ctx, contract.ID); err != nil {
		return nil, err
	}
	if err = s.Artifacts.DeleteAll(contract.ID); err != nil {
		return nil, err
	}

	r := &models.Report{
		ContractID: contract.ID,
		AnalysisID: analysis.ID,
		Status:     models.ReportStatusPending,
	}
	if err = r.SetRequestedFormats(formats); err != nil {
		return nil, err
	}
	if err = s.Stores.Reports.Create(rc.Ctx, r); err != nil {
		return nil, err
	}

	if err = s.Producer.Put(rc.Ctx, r.ID, contract.ID, formats); err != nil {
		r.Status = models.ReportStatusFailed
		r.Error = err.Error()
		if uerr := s.Stores.Reports.Update(rc.Ctx, r); uerr != nil {
			rc.Log.Errorf("Can't mark report %d failed after enqueue error: %s", r.ID, uerr)
		}
		return nil, &apierrors.QueueError{Err: err}
	}

	rc.Log.Infof("Enqueued report %d for contract %d with formats %v", r.ID, contract.ID, formats)
	return metadataOf(r)
}

func (s BasicService) GetMetadata(rc *request.AuthorizedContext, contractID uint) (*Metadata, error) {
	if _, err := s.Stores.Contracts.GetForOwner(rc.Ctx, contractID, rc.UserID); err != nil {
		return nil, err
	}

	r, err := s.Stores.Reports.MostRecentForContract(rc.Ctx, contractID)
	if err != nil {
		return nil, err
	}
	return metadataOf(r)
}

func (s BasicService) Download(rc *request.AuthorizedContext, contractID uint, format string) (*Download, error) {
	contract, err := s.Stores.Contracts.GetForOwner(rc.Ctx, contractID, rc.UserID)
	if err != nil {
		return nil, err
	}

	f, err := models.ParseFormat(format)
	if err != nil {
		return nil, errors.Wrap(apierrors.ErrValidation, err.Error())
	}

	r, err := s.Stores.Reports.MostRecentForContract(rc.Ctx, contractID)
	if err != nil {
		return nil, err
	}

	available, err := r.AvailableFormats()
	if err != nil {
		return nil, err
	}
	if !containsFormat(available, f) {
		return nil, errors.Wrapf(apierrors.ErrNotFound, "format %s is not available", f)
	}

	paths, err := r.FilePaths()
	if err != nil {
		return nil, err
	}
	content, err := s.Artifacts.Read(paths[f])
	if err != nil {
		return nil, err
	}

	return &Download{
		Content:     content,
		ContentType: f.ContentType(),
		Filename:    fmt.Sprintf("%s-security-audit.%s", contract.Name, f.Ext()),
	}, nil
}

func metadataOf(r *models.Report) (*Metadata, error) {
	requested, err := r.RequestedFormats()
	if err != nil {
		return nil, err
	}
	available, err := r.AvailableFormats()
	if err != nil {
		return nil, err
	}
	if available == nil {
		available = []models.ReportFormat{}
	}

	return &Metadata{
		ReportID:         r.ID,
		Status:           r.Status,
		RequestedFormats: requested,
		AvailableFormats: available,
		Summary:          r.Summary,
		Error:            r.Error,
	}, nil
}

func containsFormat(formats []models.ReportFormat, f models.ReportFormat) bool {
	for _, other := range formats {
		if other == f {
			return true
		}
	}
	return false
}
