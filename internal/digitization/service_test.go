package digitization

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lgcert/indigene-certificate/database/dbtest"
	"github.com/lgcert/indigene-certificate/internal/access"
	"github.com/lgcert/indigene-certificate/internal/apperr"
	"github.com/lgcert/indigene-certificate/internal/auditlog"
	"github.com/lgcert/indigene-certificate/internal/certificate"
	"github.com/lgcert/indigene-certificate/internal/event"
	"github.com/lgcert/indigene-certificate/internal/lifecycle"
	"github.com/lgcert/indigene-certificate/internal/localgovernment"
	"github.com/lgcert/indigene-certificate/internal/validation"
	"github.com/lgcert/indigene-certificate/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type linkCall struct {
	reference string
	userID    uint
}

type fakeLinker struct {
	calls []linkCall
	err   error
}

func (f *fakeLinker) MarkDigitized(_ context.Context, reference string, userID, _ uint) error {
	f.calls = append(f.calls, linkCall{reference, userID})
	return f.err
}

type fixture struct {
	db     *gorm.DB
	svc    Service
	events *event.Recorder
	linker *fakeLinker
	certs  certificate.Service
	lga    localgovernment.LocalGovernment
}

var (
	holder     = access.Viewer{UserID: 9, Role: access.RoleApplicant}
	superadmin = access.Viewer{UserID: 1, Role: access.RoleSuperAdmin}
)

func newFixture(t *testing.T) *fixture {
	db := dbtest.Open(t, &Request{}, &lifecycle.History{}, &localgovernment.LocalGovernment{}, &certificate.Certificate{}, &auditlog.AuditLog{})
	lga := localgovernment.LocalGovernment{Name: "Nsukka", State: "Enugu", Code: "NSK", ApplicationFee: 4000, DigitizationFee: 2500, IsActive: true}
	require.NoError(t, db.Create(&lga).Error)

	auditSvc := auditlog.NewService(auditlog.NewRepository(db), nil)
	rec := &event.Recorder{}
	linker := &fakeLinker{}
	certs := certificate.NewService(certificate.NewRepository(db), auditSvc, rec, func(id string) string { return "/verify/" + id }, nil)
	svc := NewService(NewRepository(db), localgovernment.NewService(localgovernment.NewRepository(db), auditSvc), certs, linker, rec, auditSvc, nil)
	return &fixture{db: db, svc: svc, events: rec, linker: linker, certs: certs, lga: lga}
}

func (f *fixture) form() SubmitForm {
	return SubmitForm{
		FullName:             "Chidi Okafor",
		NIN:                  "10987654321",
		DateOfBirth:          "1984-11-20",
		State:                "Enugu",
		LocalGovernmentID:    f.lga.ID,
		Village:              "Obukpa",
		Phone:                "08051234567",
		Email:                "chidi@example.com",
		OldCertificateNumber: "nsk/1999/0042",
		IssueYear:            "1999",
	}
}

func file(size int64) *utils.StoredFile {
	return &utils.StoredFile{Path: "digitization/x", URL: "/files/digitization/x", Size: size}
}

func (f *fixture) submit(t *testing.T, form SubmitForm) *Request {
	t.Helper()
	req, err := f.svc.Submit(context.Background(), SubmitInput{
		UserID: holder.UserID,
		Form:   form,
		Photo:  file(validation.MB / 2),
		Scan:   file(2 * validation.MB),
	})
	require.NoError(t, err)
	return req
}

func TestSubmitDigitization(t *testing.T) {
	f := newFixture(t)
	req := f.submit(t, f.form())

	assert.Regexp(t, `^DIG-\d{8}-[0-9A-F]{6}$`, req.Reference)
	assert.Equal(t, "NSK/1999/0042", req.OldCertificateNumber)
	assert.Equal(t, lifecycle.StatusPending, req.Status)
	assert.False(t, req.Finalized)
	assert.Empty(t, req.IDSlipURL)
}

func TestSubmitDigitizationValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	form := f.form()
	form.IssueYear = "2999"
	_, err := f.svc.Submit(ctx, SubmitInput{UserID: 9, Form: form, Photo: file(10), Scan: file(10)})
	var verr *validation.Error
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "issue_year", verr.Field)

	form = f.form()
	form.OldCertificateNumber = ""
	_, err = f.svc.Submit(ctx, SubmitInput{UserID: 9, Form: form, Photo: file(10), Scan: file(10)})
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "old_certificate_number", verr.Field)

	_, err = f.svc.Submit(ctx, SubmitInput{UserID: 9, Form: f.form(), Photo: file(10)})
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "scan", verr.Field)

	_, err = f.svc.Submit(ctx, SubmitInput{
		UserID: 9,
		Form:   f.form(),
		Photo:  file(validation.MB),
		IDSlip: file(2 * validation.MB),
		Scan:   file(3*validation.MB + 1),
	})
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, validation.AggregateSizeMessage, verr.Message)
}

func TestCheckAttachments(t *testing.T) {
	assert.NoError(t, CheckAttachments(validation.MB, 2*validation.MB, 3*validation.MB))
	assert.Error(t, CheckAttachments(validation.MB, 2*validation.MB, 3*validation.MB+1))
}

func TestUpdateSecondaryFields(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := f.submit(t, f.form())

	updated, err := f.svc.Update(ctx, holder, req.ID, UpdateInput{Address: " 4 Market Road ", Email: "CHIDI@Example.com"}, "")
	require.NoError(t, err)
	assert.Equal(t, "4 Market Road", updated.Address)
	assert.Equal(t, "chidi@example.com", updated.Email)
	assert.Equal(t, "08051234567", updated.Phone)

	_, err = f.svc.Update(ctx, holder, req.ID, UpdateInput{Phone: "12345"}, "")
	var verr *validation.Error
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "phone", verr.Field)

	_, err = f.svc.Update(ctx, access.Viewer{UserID: 10, Role: access.RoleApplicant}, req.ID, UpdateInput{Address: "x"}, "")
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	require.NoError(t, f.svc.SetPaymentStatus(ctx, req.ID, lifecycle.PaymentPaid, "PAY-1"))
	_, err = f.svc.Finalize(ctx, holder, req.ID, "PAY-1", "")
	require.NoError(t, err)
	_, err = f.svc.Update(ctx, holder, req.ID, UpdateInput{Address: "elsewhere"}, "")
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)
}

func TestFinalizeRequiresVerifiedPayment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := f.submit(t, f.form())

	_, err := f.svc.Finalize(ctx, holder, req.ID, "PAY-9", "")
	assert.ErrorIs(t, err, apperr.ErrPaymentRequired)

	require.NoError(t, f.svc.SetPaymentStatus(ctx, req.ID, lifecycle.PaymentPaid, "PAY-9"))
	_, err = f.svc.Finalize(ctx, holder, req.ID, "PAY-OTHER", "")
	assert.ErrorIs(t, err, apperr.ErrPaymentRequired)

	_, err = f.svc.Finalize(ctx, access.Viewer{UserID: 10, Role: access.RoleApplicant}, req.ID, "PAY-9", "")
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	done, err := f.svc.Finalize(ctx, holder, req.ID, "PAY-9", "")
	require.NoError(t, err)
	assert.True(t, done.Finalized)
	assert.NotNil(t, done.FinalizedAt)

	again, err := f.svc.Finalize(ctx, holder, req.ID, "PAY-9", "")
	require.NoError(t, err)
	assert.Equal(t, done.FinalizedAt.Unix(), again.FinalizedAt.Unix())
}

func TestApprovalIssuesDigitizedCertificate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	form := f.form()
	form.ApplicationReference = "app-20260101-abc123"
	req := f.submit(t, form)

	require.NoError(t, f.svc.SetPaymentStatus(ctx, req.ID, lifecycle.PaymentPaid, "PAY-1"))
	_, err := f.svc.ChangeStatus(ctx, superadmin, req.ID, lifecycle.StatusApproved, "", "")
	assert.ErrorIs(t, err, apperr.ErrPaymentRequired)

	_, err = f.svc.Finalize(ctx, holder, req.ID, "PAY-1", "")
	require.NoError(t, err)
	approved, err := f.svc.ChangeStatus(ctx, superadmin, req.ID, lifecycle.StatusApproved, "", "")
	require.NoError(t, err)
	assert.NotEmpty(t, approved.CertificateID)
	assert.Equal(t, []linkCall{{"APP-20260101-ABC123", holder.UserID}}, f.linker.calls)

	certs, err := f.certs.ListMine(ctx, holder.UserID)
	require.NoError(t, err)
	require.Len(t, certs, 1)
	assert.True(t, certs[0].Digitized)
	assert.Equal(t, "NSK/1999/0042", certs[0].OldCertificateNumber)

	_, err = f.svc.ChangeStatus(ctx, superadmin, req.ID, lifecycle.StatusDigitization, "", "")
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)
}

func TestApprovalStopsWhenLinkFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	form := f.form()
	form.ApplicationReference = "APP-20260101-000000"
	req := f.submit(t, form)
	require.NoError(t, f.svc.SetPaymentStatus(ctx, req.ID, lifecycle.PaymentPaid, "PAY-1"))
	_, err := f.svc.Finalize(ctx, holder, req.ID, "PAY-1", "")
	require.NoError(t, err)

	f.linker.err = apperr.ErrForbidden
	_, err = f.svc.ChangeStatus(ctx, superadmin, req.ID, lifecycle.StatusApproved, "", "")
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	got, err := f.svc.Get(ctx, holder, req.ID)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusPending, got.Status)
}

func TestAbandonStaleSkipsFinalized(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	stale := f.submit(t, f.form())
	finalized := f.submit(t, f.form())
	require.NoError(t, f.db.Model(&Request{}).Where("id IN ?", []uint{stale.ID, finalized.ID}).
		Update("submitted_at", time.Now().Add(-100*time.Hour)).Error)
	require.NoError(t, f.db.Model(&Request{}).Where("id = ?", finalized.ID).Update("finalized", true).Error)

	n, err := f.svc.AbandonStale(ctx, time.Now().Add(-72*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	rec, err := f.svc.Record(ctx, stale.ID)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.PaymentAbandoned, rec.PaymentStatus)
}
