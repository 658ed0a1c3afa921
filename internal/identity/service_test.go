package identity

import (
	"context"
	"errors"
	"testing"

	"github.com/lgcert/indigene-certificate/database/dbtest"
	"github.com/lgcert/indigene-certificate/internal/access"
	"github.com/lgcert/indigene-certificate/internal/apperr"
	"github.com/lgcert/indigene-certificate/internal/auditlog"
	"github.com/lgcert/indigene-certificate/internal/lifecycle"
	"github.com/lgcert/indigene-certificate/internal/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubStore struct {
	records  map[uint]*lifecycle.Record
	verified []uint
}

func (s *stubStore) Record(_ context.Context, id uint) (*lifecycle.Record, error) {
	r, ok := s.records[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return r, nil
}

func (s *stubStore) SetPaymentStatus(context.Context, uint, lifecycle.PaymentStatus, string) error {
	return nil
}

func (s *stubStore) MarkNINVerified(_ context.Context, id uint) error {
	s.verified = append(s.verified, id)
	return nil
}

func newTestService(t *testing.T) (Service, *stubStore) {
	db := dbtest.Open(t, &auditlog.AuditLog{})
	store := &stubStore{records: map[uint]*lifecycle.Record{
		1: {Type: "application", ID: 1, UserID: 9, LocalGovernmentID: 3, FullName: "Amina Bello", NIN: "12345678901"},
		2: {Type: "application", ID: 2, UserID: 9, LocalGovernmentID: 3, FullName: "Someone Else", NIN: "10987654321"},
	}}
	svc := NewService(
		NewMemoryRegistry(SampleIdentities()...),
		map[string]lifecycle.RecordStore{"application": store},
		auditlog.NewService(auditlog.NewRepository(db), nil),
	)
	return svc, store
}

var owner = access.Viewer{UserID: 9, Role: access.RoleApplicant}

func TestVerifyMarksRecord(t *testing.T) {
	svc, store := newTestService(t)
	res, err := svc.Verify(context.Background(), owner, VerifyInput{NIN: "12345678901", RecordType: "application", RecordID: 1}, "")
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, res.Status)
	assert.True(t, res.Verified)
	assert.Equal(t, "Amina Bello", res.FullName)
	assert.Equal(t, []uint{1}, store.verified)
}

func TestVerifyWithoutRecord(t *testing.T) {
	svc, store := newTestService(t)
	res, err := svc.Verify(context.Background(), owner, VerifyInput{NIN: "55566677788"}, "")
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, res.Status)
	assert.False(t, res.Verified)
	assert.Empty(t, store.verified)
}

func TestVerifyMismatchIsNotAnError(t *testing.T) {
	svc, store := newTestService(t)
	res, err := svc.Verify(context.Background(), owner, VerifyInput{NIN: "10987654321", RecordType: "application", RecordID: 2}, "")
	require.NoError(t, err)
	assert.Equal(t, StatusMismatch, res.Status)
	assert.False(t, res.Verified)
	assert.Empty(t, store.verified)
}

func TestVerifyErrors(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Verify(ctx, owner, VerifyInput{NIN: "123"}, "")
	var verr *validation.Error
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "NIN must be exactly 11 digits", verr.Message)

	_, err = svc.Verify(ctx, owner, VerifyInput{NIN: "00000000000"}, "")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = svc.Verify(ctx, owner, VerifyInput{NIN: "10987654321", RecordType: "application", RecordID: 1}, "")
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "nin", verr.Field)

	_, err = svc.Verify(ctx, access.Viewer{UserID: 4, Role: access.RoleApplicant}, VerifyInput{NIN: "12345678901", RecordType: "application", RecordID: 1}, "")
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = svc.Verify(ctx, owner, VerifyInput{NIN: "12345678901", RecordType: "passport", RecordID: 1}, "")
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "record_type", verr.Field)
}

func TestNameMatches(t *testing.T) {
	id := Identity{FirstName: "Ibrahim", MiddleName: "Musa", LastName: "Sani"}
	assert.True(t, NameMatches("SANI Ibrahim", id))
	assert.True(t, NameMatches("ibrahim musa sani", id))
	assert.False(t, NameMatches("Ibrahim Bello", id))
	assert.Equal(t, "*******8901", maskNIN("12345678901"))
}
