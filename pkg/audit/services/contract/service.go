package contract

import (
	"github.com/pkg/errors"

	"github.com/solguard/solguard-api/internal/api/apierrors"
	"github.com/solguard/solguard-api/pkg/audit/models"
	"github.com/solguard/solguard-api/pkg/audit/request"
	"github.com/solguard/solguard-api/pkg/audit/store"
)

const maxPageSize = 100

type CreatePayload struct {
	Name            string `json:"name"`
	Address         string `json:"address"`
	CompilerVersion string `json:"compilerVersion"`
	SourceCode      string `json:"sourceCode"`
}

type Service interface {
	//url:/v1/contracts method:POST
	Create(rc *request.AuthorizedContext, payload *CreatePayload) (*models.Contract, error)

	//url:/v1/contracts
	List(rc *request.AuthorizedContext, offset, limit int) ([]models.Contract, error)

	//url:/v1/contracts/{contractid}
	Get(rc *request.AuthorizedContext, contractID uint) (*models.Contract, error)
}

type BasicService struct {
	Stores *store.Stores
}

func (s BasicService) Create(rc *request.AuthorizedContext, payload *CreatePayload) (*models.Contract, error) {
	if payload.Name == "" {
		return nil, errors.Wrap(apierrors.ErrValidation, "contract name is required")
	}
	if payload.SourceCode == "" {
		return nil, errors.Wrap(apierrors.ErrValidation, "contract source code is required")
	}

	c := &models.Contract{
		OwnerID:         rc.UserID,
		Name:            payload.Name,
		Address:         payload.Address,
		CompilerVersion: payload.CompilerVersion,
		SourceCode:      payload.SourceCode,
		Status:          models.ContractStatusUploaded,
	}
	if err := s.Stores.Contracts.Create(rc.Ctx, c); err != nil {
		return nil, err
	}

	rc.Log.Infof("Created contract %d for user %d", c.ID, rc.UserID)
	return c, nil
}

func (s BasicService) List(rc *request.AuthorizedContext, offset, limit int) ([]models.Contract, error) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 || limit > maxPageSize {
		limit = maxPageSize
	}
	return s.Stores.Contracts.ListByOwnerPaginated(rc.Ctx, rc.UserID, offset, limit)
}

func (s BasicService) Get(rc *request.AuthorizedContext, contractID uint) (*models.Contract, error) {
	return s.Stores.Contracts.GetForOwner(rc.Ctx, contractID, rc.UserID)
}
