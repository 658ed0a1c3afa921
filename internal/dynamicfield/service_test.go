package dynamicfield

import (
	"context"
	"testing"

	"github.com/lgcert/indigene-certificate/database/dbtest"
	"github.com/lgcert/indigene-certificate/internal/apperr"
	"github.com/lgcert/indigene-certificate/internal/auditlog"
	"github.com/lgcert/indigene-certificate/internal/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) Service {
	db := dbtest.Open(t, &DynamicField{}, &auditlog.AuditLog{})
	return NewService(NewRepository(db), auditlog.NewService(auditlog.NewRepository(db), nil))
}

func scope(id uint) *uint { return &id }

func TestCreateScopedToOwnLGA(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	f, err := svc.Create(ctx, 5, scope(3), Input{Label: "Father's Name", Kind: KindText, Required: true}, "")
	require.NoError(t, err)
	assert.Equal(t, uint(3), f.LocalGovernmentID)
	assert.Equal(t, "father_s_name", f.Key)

	_, err = svc.Create(ctx, 5, scope(3), Input{LocalGovernmentID: 4, Label: "Ward", Kind: KindText}, "")
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = svc.Create(ctx, 5, scope(3), Input{Label: "Father's Name", Kind: KindText}, "")
	assert.ErrorIs(t, err, apperr.ErrDuplicate)

	_, err = svc.Create(ctx, 1, nil, Input{Label: "Ward", Kind: KindText}, "")
	var verr *validation.Error
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "local_government_id", verr.Field)

	_, err = svc.Create(ctx, 1, nil, Input{LocalGovernmentID: 4, Label: "Clan", Kind: KindSelect}, "")
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "options", verr.Field)

	_, err = svc.Create(ctx, 1, nil, Input{LocalGovernmentID: 4, Label: "Clan", Kind: "colour"}, "")
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "kind", verr.Field)
}

func TestUpdateDeleteRespectScope(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	f, err := svc.Create(ctx, 1, nil, Input{LocalGovernmentID: 3, Label: "Ward", Kind: KindText}, "")
	require.NoError(t, err)

	_, err = svc.Update(ctx, 5, scope(4), f.ID, Input{Label: "Ward", Kind: KindNumber}, "")
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	updated, err := svc.Update(ctx, 5, scope(3), f.ID, Input{Label: "Ward number", Kind: KindNumber, Required: true, Position: 2}, "")
	require.NoError(t, err)
	assert.Equal(t, "ward_number", updated.Key)
	assert.Equal(t, KindNumber, updated.Kind)

	assert.ErrorIs(t, svc.Delete(ctx, 5, scope(4), f.ID, ""), apperr.ErrForbidden)
	require.NoError(t, svc.Delete(ctx, 5, scope(3), f.ID, ""))
	assert.ErrorIs(t, svc.Delete(ctx, 5, scope(3), f.ID, ""), apperr.ErrNotFound)
}

func TestValidateExtra(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, 1, nil, Input{LocalGovernmentID: 3, Label: "Ward", Kind: KindNumber, Required: true, Position: 1}, "")
	require.NoError(t, err)
	_, err = svc.Create(ctx, 1, nil, Input{LocalGovernmentID: 3, Label: "Clan", Kind: KindSelect, Options: []string{"Ofu", "Ibe"}, Position: 2}, "")
	require.NoError(t, err)
	_, err = svc.Create(ctx, 1, nil, Input{LocalGovernmentID: 3, Label: "Arrival", Kind: KindDate, Position: 3}, "")
	require.NoError(t, err)

	err = svc.ValidateExtra(ctx, 3, map[string]string{})
	assert.EqualError(t, err, "Ward is required")

	err = svc.ValidateExtra(ctx, 3, map[string]string{"ward": "ten"})
	assert.EqualError(t, err, "Ward must be a number")

	err = svc.ValidateExtra(ctx, 3, map[string]string{"ward": "10", "clan": "Other"})
	assert.EqualError(t, err, "Clan must be one of: Ofu, Ibe")

	err = svc.ValidateExtra(ctx, 3, map[string]string{"ward": "10", "clan": "Ibe", "arrival": "yesterday"})
	var verr *validation.Error
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "arrival", verr.Field)

	assert.NoError(t, svc.ValidateExtra(ctx, 3, map[string]string{"ward": "10", "clan": "Ibe", "arrival": "2001-05-04"}))
	assert.NoError(t, svc.ValidateExtra(ctx, 99, nil))
}
