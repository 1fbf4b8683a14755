package contract

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solguard/solguard-api/internal/api/apierrors"
	"github.com/solguard/solguard-api/internal/shared/logutil"
	"github.com/solguard/solguard-api/pkg/audit/models"
	"github.com/solguard/solguard-api/pkg/audit/request"
	"github.com/solguard/solguard-api/pkg/audit/store/storetest"
)

func authCtx(userID uint) *request.AuthorizedContext {
	return &request.AuthorizedContext{
		BaseContext: request.BaseContext{
			Ctx: context.Background(),
			Log: logutil.NewStderrLog("test"),
		},
		UserID: userID,
	}
}

func TestCreateAndGet(t *testing.T) {
	svc := BasicService{Stores: storetest.NewStores()}

	c, err := svc.Create(authCtx(1), &CreatePayload{
		Name:       "Token",
		SourceCode: "contract Token {}",
	})
	require.NoError(t, err)
	assert.Equal(t, models.ContractStatusUploaded, c.Status)
	assert.Equal(t, uint(1), c.OwnerID)

	got, err := svc.Get(authCtx(1), c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Token", got.Name)

	_, err = svc.Get(authCtx(2), c.ID)
	assert.Equal(t, apierrors.ErrNotFound, err)
}

func TestCreateValidation(t *testing.T) {
	svc := BasicService{Stores: storetest.NewStores()}

	_, err := svc.Create(authCtx(1), &CreatePayload{SourceCode: "contract C {}"})
	require.Error(t, err)
	assert.Equal(t, apierrors.ErrValidation, errors.Cause(err))

	_, err = svc.Create(authCtx(1), &CreatePayload{Name: "C"})
	require.Error(t, err)
	assert.Equal(t, apierrors.ErrValidation, errors.Cause(err))
}

func TestListIsScopedToOwner(t *testing.T) {
	svc := BasicService{Stores: storetest.NewStores()}

	_, err := svc.Create(authCtx(1), &CreatePayload{Name: "A", SourceCode: "contract A {}"})
	require.NoError(t, err)
	_, err = svc.Create(authCtx(2), &CreatePayload{Name: "B", SourceCode: "contract B {}"})
	require.NoError(t, err)

	list, err := svc.List(authCtx(1), 0, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "A", list[0].Name)
}
