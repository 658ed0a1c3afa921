package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lgcert/indigene-certificate/internal/application"
	"github.com/lgcert/indigene-certificate/internal/digitization"
	"github.com/lgcert/indigene-certificate/internal/identity"
	"github.com/lgcert/indigene-certificate/internal/lifecycle"
	"github.com/lgcert/indigene-certificate/internal/payment"
	"github.com/lgcert/indigene-certificate/internal/portal/apiclient"
	"github.com/lgcert/indigene-certificate/internal/portal/upload"
	"github.com/lgcert/indigene-certificate/internal/validation"
)

func identityInput(nin string) identity.VerifyInput {
	return identity.VerifyInput{NIN: nin}
}

func aminaForm() validation.ApplicationForm {
	return validation.ApplicationForm{
		FullName: "Amina Bello", NIN: "12345678901", DateOfBirth: "1990-04-01",
		State: "Lagos", LocalGovernmentID: 1, Village: "Agidingbi",
		Phone: "08031234567", Email: "amina@example.com", Address: "12 Allen Avenue",
	}
}

func photo() *upload.File {
	return &upload.File{Name: "me.jpg", Type: validation.MimeJPEG, Size: 200 * 1024, Data: []byte{0xFF, 0xD8}}
}

func slip() *upload.File {
	return &upload.File{Name: "slip.pdf", Type: validation.MimePDF, Size: 300 * 1024, Data: []byte("%PDF-1.4")}
}

func login(t *testing.T, m *MockBackend, email string) {
	t.Helper()
	_, err := m.Login(context.Background(), email, "secret123")
	require.NoError(t, err)
}

func submitPaidApplication(t *testing.T, m *MockBackend) *application.Application {
	t.Helper()
	ctx := context.Background()
	app, err := m.SubmitApplication(ctx, ApplicationSubmission{Form: aminaForm(), Photo: photo(), IDSlip: slip()})
	require.NoError(t, err)
	init, err := m.InitializePayment(ctx, payment.InitializeRequest{RecordType: application.RecordType, RecordID: app.ID})
	require.NoError(t, err)
	_, err = m.VerifyPayment(ctx, init.Reference)
	require.NoError(t, err)
	return app
}

func TestMockLogin(t *testing.T) {
	m := NewMockBackend(0)

	_, err := m.Login(context.Background(), "amina@example.com", "wrong")
	assert.True(t, apiclient.IsCategory(err, apiclient.CategoryInvalidCredentials))

	res, err := m.Login(context.Background(), "AMINA@example.com", "secret123")
	require.NoError(t, err)
	assert.Equal(t, "Amina Bello", res.User.FullName)
	assert.NotEmpty(t, res.AccessToken)

	require.NoError(t, m.Logout(context.Background()))
	_, err = m.Me(context.Background())
	assert.True(t, apiclient.IsCategory(err, apiclient.CategorySessionExpired))
}

func TestMockRegisterRejectsDuplicateEmail(t *testing.T) {
	m := NewMockBackend(0)
	form := validation.RegistrationForm{FullName: "Chidi Okafor", Email: "chidi@example.com", Phone: "08031234567", Password: "secret123", ConfirmPassword: "secret123"}

	u, err := m.Register(context.Background(), form)
	require.NoError(t, err)
	assert.Equal(t, "applicant", u.Role)

	_, err = m.Register(context.Background(), form)
	assert.True(t, apiclient.IsCategory(err, apiclient.CategoryConflict))
}

func TestMockApplicationLifecycle(t *testing.T) {
	ctx := context.Background()
	m := NewMockBackend(0)
	login(t, m, "amina@example.com")

	app := submitPaidApplication(t, m)
	got, err := m.GetApplication(ctx, app.ID)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.PaymentPaid, got.PaymentStatus)
	assert.Equal(t, "Ikeja", got.LocalGovernmentName)

	_, err = m.ChangeApplicationStatus(ctx, app.ID, StatusChange{Status: "approved"})
	assert.True(t, apiclient.IsCategory(err, apiclient.CategoryForbidden))

	login(t, m, "admin@ikeja.gov.ng")
	_, err = m.ChangeApplicationStatus(ctx, app.ID, StatusChange{Status: "digitization"})
	assert.True(t, apiclient.IsCategory(err, apiclient.CategoryConflict))

	approved, err := m.ChangeApplicationStatus(ctx, app.ID, StatusChange{Status: "approved"})
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusApproved, approved.Status)
	require.NotEmpty(t, approved.CertificateID)

	_, err = m.ChangeApplicationStatus(ctx, app.ID, StatusChange{Status: "rejected", Note: "late"})
	assert.True(t, apiclient.IsCategory(err, apiclient.CategoryConflict))

	login(t, m, "amina@example.com")
	certs, err := m.ListMyCertificates(ctx)
	require.NoError(t, err)
	require.Len(t, certs, 1)

	v, err := m.VerifyCertificate(ctx, approved.CertificateID)
	require.NoError(t, err)
	assert.True(t, v.Valid)
	assert.Equal(t, "Amina Bello", v.HolderName)

	pdf, err := m.DownloadCertificate(ctx, certs[0].ID)
	require.NoError(t, err)
	assert.Contains(t, string(pdf), approved.CertificateID)
}

func TestMockRejectionNeedsNote(t *testing.T) {
	ctx := context.Background()
	m := NewMockBackend(0)
	login(t, m, "amina@example.com")
	app, err := m.SubmitApplication(ctx, ApplicationSubmission{Form: aminaForm(), Photo: photo(), IDSlip: slip()})
	require.NoError(t, err)

	login(t, m, "admin@ikeja.gov.ng")
	_, err = m.ChangeApplicationStatus(ctx, app.ID, StatusChange{Status: "rejected"})
	assert.True(t, apiclient.IsCategory(err, apiclient.CategoryValidation))

	_, err = m.ChangeApplicationStatus(ctx, app.ID, StatusChange{Status: "approved"})
	assert.True(t, apiclient.IsCategory(err, apiclient.CategoryRejected), "unpaid applications cannot be approved")

	rejected, err := m.ChangeApplicationStatus(ctx, app.ID, StatusChange{Status: "rejected", Note: "NIN slip unreadable"})
	require.NoError(t, err)
	assert.Equal(t, "NIN slip unreadable", rejected.ReviewNote)
}

func TestMockSubmitChecksAttachments(t *testing.T) {
	m := NewMockBackend(0)
	login(t, m, "amina@example.com")

	big := slip()
	big.Size = 6 * validation.MB
	_, err := m.SubmitApplication(context.Background(), ApplicationSubmission{Form: aminaForm(), Photo: photo(), IDSlip: big})
	require.Error(t, err)
	assert.True(t, apiclient.IsCategory(err, apiclient.CategoryValidation))
	assert.Contains(t, err.Error(), "NIN slip must not exceed 5MB")

	_, err = m.SubmitApplication(context.Background(), ApplicationSubmission{Form: aminaForm(), Photo: photo()})
	assert.True(t, apiclient.IsCategory(err, apiclient.CategoryValidation))
}

func TestMockVerifyNIN(t *testing.T) {
	ctx := context.Background()
	m := NewMockBackend(0)
	login(t, m, "amina@example.com")

	_, err := m.VerifyNIN(ctx, identityInput("123"))
	assert.True(t, apiclient.IsCategory(err, apiclient.CategoryValidation))

	_, err = m.VerifyNIN(ctx, identityInput("99999999999"))
	assert.True(t, apiclient.IsCategory(err, apiclient.CategoryNotFound))

	form := aminaForm()
	form.FullName = "Someone Else"
	app, err := m.SubmitApplication(ctx, ApplicationSubmission{Form: form, Photo: photo(), IDSlip: slip()})
	require.NoError(t, err)

	res, err := m.VerifyNIN(ctx, identity.VerifyInput{NIN: form.NIN, RecordType: application.RecordType, RecordID: app.ID})
	require.NoError(t, err)
	assert.Equal(t, identity.StatusMismatch, res.Status)
	assert.False(t, res.Verified)

	res, err = m.VerifyNIN(ctx, identityInput("12345678901"))
	require.NoError(t, err)
	assert.Equal(t, identity.StatusSuccess, res.Status)
	assert.Equal(t, "Amina Bello", res.FullName)
}

func TestMockVerifyNINChecksRecord(t *testing.T) {
	ctx := context.Background()
	m := NewMockBackend(0)
	login(t, m, "amina@example.com")

	app, err := m.SubmitApplication(ctx, ApplicationSubmission{Form: aminaForm(), Photo: photo(), IDSlip: slip()})
	require.NoError(t, err)

	_, err = m.VerifyNIN(ctx, identity.VerifyInput{NIN: "98765432109", RecordType: application.RecordType, RecordID: app.ID})
	require.Error(t, err)
	assert.True(t, apiclient.IsCategory(err, apiclient.CategoryValidation))
	assert.Contains(t, err.Error(), "NIN does not match the submitted record")

	_, err = m.VerifyNIN(ctx, identity.VerifyInput{NIN: app.NIN, RecordType: application.RecordType, RecordID: app.ID + 100})
	assert.True(t, apiclient.IsCategory(err, apiclient.CategoryNotFound))

	_, err = m.VerifyNIN(ctx, identity.VerifyInput{NIN: app.NIN, RecordType: "permit", RecordID: app.ID})
	assert.True(t, apiclient.IsCategory(err, apiclient.CategoryValidation))

	res, err := m.VerifyNIN(ctx, identity.VerifyInput{NIN: app.NIN, RecordType: application.RecordType, RecordID: app.ID})
	require.NoError(t, err)
	assert.True(t, res.Verified)
	got, err := m.GetApplication(ctx, app.ID)
	require.NoError(t, err)
	assert.True(t, got.NINVerified)
}

func TestMockPaymentUsesFeeSchedule(t *testing.T) {
	ctx := context.Background()
	m := NewMockBackend(0)
	m.AutoCapture = false
	login(t, m, "amina@example.com")

	app, err := m.SubmitApplication(ctx, ApplicationSubmission{Form: aminaForm(), Photo: photo(), IDSlip: slip()})
	require.NoError(t, err)
	init, err := m.InitializePayment(ctx, payment.InitializeRequest{RecordType: application.RecordType, RecordID: app.ID})
	require.NoError(t, err)
	assert.Equal(t, 5000.0, init.Amount)
	assert.NotEmpty(t, init.AuthorizationURL)

	res, err := m.VerifyPayment(ctx, init.Reference)
	require.NoError(t, err)
	assert.Equal(t, "pending", res.Status)

	m.SetPaymentCaptured(init.Reference, true)
	res, err = m.VerifyPayment(ctx, init.Reference)
	require.NoError(t, err)
	assert.Equal(t, "success", res.Status)
	assert.NotNil(t, res.PaidAt)

	_, err = m.InitializePayment(ctx, payment.InitializeRequest{RecordType: application.RecordType, RecordID: app.ID})
	assert.True(t, apiclient.IsCategory(err, apiclient.CategoryConflict))
}

func TestMockDigitizationNeedsFinalizeBeforeApproval(t *testing.T) {
	ctx := context.Background()
	m := NewMockBackend(0)
	login(t, m, "amina@example.com")

	scan := &upload.File{Name: "old.pdf", Type: validation.MimePDF, Size: validation.MB, Data: []byte("%PDF-1.4")}
	req, err := m.SubmitDigitization(ctx, DigitizationSubmission{
		Form: validation.DigitizationForm{
			FullName: "Amina Bello", NIN: "12345678901", DateOfBirth: "1990-04-01", State: "Lagos",
			LocalGovernmentID: 1, Phone: "08031234567", Email: "amina@example.com",
			OldCertificateNumber: "ikj/1998/004", IssueYear: "1998",
		},
		Photo: photo(), Scan: scan,
	})
	require.NoError(t, err)
	assert.Equal(t, "IKJ/1998/004", req.OldCertificateNumber)

	_, err = m.FinalizeDigitization(ctx, req.ID, "PAY-nothing")
	assert.True(t, apiclient.IsCategory(err, apiclient.CategoryRejected))

	init, err := m.InitializePayment(ctx, payment.InitializeRequest{RecordType: digitization.RecordType, RecordID: req.ID})
	require.NoError(t, err)
	assert.Equal(t, 3000.0, init.Amount)
	_, err = m.VerifyPayment(ctx, init.Reference)
	require.NoError(t, err)

	login(t, m, "admin@ikeja.gov.ng")
	_, err = m.ChangeDigitizationStatus(ctx, req.ID, StatusChange{Status: "approved"})
	assert.True(t, apiclient.IsCategory(err, apiclient.CategoryRejected))

	login(t, m, "amina@example.com")
	done, err := m.FinalizeDigitization(ctx, req.ID, init.Reference)
	require.NoError(t, err)
	assert.True(t, done.Finalized)

	_, err = m.UpdateDigitization(ctx, req.ID, digitization.UpdateInput{Address: "new"})
	assert.True(t, apiclient.IsCategory(err, apiclient.CategoryConflict))

	login(t, m, "admin@ikeja.gov.ng")
	approved, err := m.ChangeDigitizationStatus(ctx, req.ID, StatusChange{Status: "approved"})
	require.NoError(t, err)
	assert.NotEmpty(t, approved.CertificateID)
}

func TestMockFailAndCalls(t *testing.T) {
	ctx := context.Background()
	m := NewMockBackend(0)
	boom := apiclient.NewError(apiclient.CategoryServer, errors.New("boom"))
	m.Fail("ListLocalGovernments", boom)

	_, err := m.ListLocalGovernments(ctx, "")
	assert.ErrorIs(t, err, boom)

	m.Fail("ListLocalGovernments", nil)
	lgas, err := m.ListLocalGovernments(ctx, "lagos")
	require.NoError(t, err)
	assert.Len(t, lgas, 2)

	assert.Equal(t, []string{"ListLocalGovernments", "ListLocalGovernments"}, m.Calls())
}

func TestMockLatencyHonoursContext(t *testing.T) {
	m := NewMockBackend(time.Second)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := m.ListLocalGovernments(ctx, "")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Empty(t, m.Calls())
}

func TestMockAdminListAndDashboard(t *testing.T) {
	ctx := context.Background()
	m := NewMockBackend(0)
	login(t, m, "amina@example.com")
	submitPaidApplication(t, m)

	login(t, m, "admin@ikeja.gov.ng")
	page, err := m.ListApplications(ctx, ListFilter{Search: "amina", PageSize: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 1, page.Count)
	assert.False(t, page.HasNext())

	empty, err := m.ListApplications(ctx, ListFilter{Status: "approved"})
	require.NoError(t, err)
	assert.Empty(t, empty.Items)

	dash, err := m.DashboardStats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, dash.Applications.Total)
	assert.EqualValues(t, 1, dash.PendingReview)
	assert.Equal(t, 5000.0, dash.Revenue)

	_, err = m.ListAuditLogs(ctx, AuditFilter{})
	assert.True(t, apiclient.IsCategory(err, apiclient.CategoryForbidden))
}
