package reports

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"testing"
	"time"

	"github.com/lgcert/indigene-certificate/database/dbtest"
	"github.com/lgcert/indigene-certificate/internal/apperr"
	"github.com/lgcert/indigene-certificate/internal/application"
	"github.com/lgcert/indigene-certificate/internal/auditlog"
	"github.com/lgcert/indigene-certificate/internal/digitization"
	"github.com/lgcert/indigene-certificate/internal/lifecycle"
	"github.com/lgcert/indigene-certificate/internal/payment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

func TestDateRange(t *testing.T) {
	now := time.Date(2026, 3, 15, 13, 30, 0, 0, time.UTC)

	start, end, err := DateRange(DateRangeDaily, "", "", now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2026, 3, 15, 23, 59, 59, 0, time.UTC), end)

	start, end, err = DateRange(DateRangeMonthly, "", "", now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2026, 3, 31, 23, 59, 59, 0, time.UTC), end)

	start, _, err = DateRange("", "", "", now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC), start)

	start, end, err = DateRange(DateRangeCustom, "2026-01-01", "2026-01-31", now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2026, 1, 31, 23, 59, 59, 0, time.UTC), end)

	_, _, err = DateRange(DateRangeCustom, "2026-02-01", "2026-01-01", now)
	assert.Error(t, err)
	_, _, err = DateRange(DateRangeCustom, "", "2026-01-01", now)
	assert.Error(t, err)
}

type fixture struct {
	db  *gorm.DB
	svc *service
	now time.Time
}

func newFixture(t *testing.T) *fixture {
	db := dbtest.Open(t, &application.Application{}, &digitization.Request{}, &payment.Payment{}, &auditlog.AuditLog{})
	audit := auditlog.NewService(auditlog.NewRepository(db), nil)
	now := time.Date(2026, 6, 15, 12, 0, 0, 0, time.Local)
	svc := NewService(NewRepository(db), NewExporter(), audit).(*service)
	svc.now = func() time.Time { return now }
	return &fixture{db: db, svc: svc, now: now}
}

func (f *fixture) seedApplication(t *testing.T, ref string, lga uint, status lifecycle.Status, at time.Time) {
	t.Helper()
	require.NoError(t, f.db.Create(&application.Application{
		Reference: ref, UserID: 9, FullName: "Amina Bello", NIN: "12345678901", DateOfBirth: "1990-01-01",
		State: "Lagos", LocalGovernmentID: lga, LocalGovernmentName: "Ikeja", Village: "Agidingbi",
		Status: status, PaymentStatus: lifecycle.PaymentUnpaid, SubmittedAt: at,
	}).Error)
}

func TestExportApplicationsCSV(t *testing.T) {
	f := newFixture(t)
	f.seedApplication(t, "APP-1", 1, lifecycle.StatusPending, f.now.AddDate(0, 0, -2))
	f.seedApplication(t, "APP-2", 1, lifecycle.StatusApproved, f.now.AddDate(0, 0, -1))
	f.seedApplication(t, "APP-3", 2, lifecycle.StatusPending, f.now.AddDate(0, 0, -1))
	f.seedApplication(t, "APP-OLD", 1, lifecycle.StatusPending, f.now.AddDate(-1, 0, 0))

	lga := uint(1)
	file, err := f.svc.Export(context.Background(), 1, Request{
		Report: ReportApplications, DateRange: DateRangeMonthly, LocalGovernmentID: &lga,
	}, "")
	require.NoError(t, err)
	assert.Equal(t, "text/csv", file.ContentType)
	assert.Equal(t, "applications_report_20260615_120000.csv", file.Filename)

	records, err := csv.NewReader(bytes.NewReader(file.Data)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "Reference", records[0][1])
	assert.Equal(t, "APP-1", records[1][1])
	assert.Equal(t, "APP-2", records[2][1])

	file, err = f.svc.Export(context.Background(), 1, Request{
		Report: ReportApplications, DateRange: DateRangeMonthly, Status: string(lifecycle.StatusApproved),
	}, "")
	require.NoError(t, err)
	records, err = csv.NewReader(bytes.NewReader(file.Data)).ReadAll()
	require.NoError(t, err)
	assert.Len(t, records, 2)

	var exported int64
	require.NoError(t, f.db.Model(&auditlog.AuditLog{}).Where("action = ?", "REPORT_EXPORTED").Count(&exported).Error)
	assert.Equal(t, int64(2), exported)
}

func TestExportExcelAndPDF(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.db.Create(&digitization.Request{
		Reference: "DIG-1", UserID: 9, FullName: "Chidi Okafor", NIN: "10987654321", DateOfBirth: "1985-02-02",
		State: "Lagos", LocalGovernmentID: 1, LocalGovernmentName: "Ikeja", Village: "Ojodu",
		OldCertificateNumber: "IKJ/1999/0042", IssueYear: "1999",
		Status: lifecycle.StatusPending, PaymentStatus: lifecycle.PaymentPaid, SubmittedAt: f.now,
	}).Error)

	file, err := f.svc.Export(context.Background(), 1, Request{Report: ReportDigitization, Format: FormatExcel, DateRange: DateRangeDaily}, "")
	require.NoError(t, err)
	assert.Equal(t, "digitization_report_20260615_120000.xlsx", file.Filename)

	book, err := excelize.OpenReader(bytes.NewReader(file.Data))
	require.NoError(t, err)
	defer book.Close()
	rows, err := book.GetRows("Digitization Report")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Old Certificate", rows[0][10])
	assert.Equal(t, "IKJ/1999/0042", rows[1][10])

	file, err = f.svc.Export(context.Background(), 1, Request{Report: ReportAuditLogs, Format: FormatPDF}, "")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(file.Data, []byte("%PDF")))
	assert.Equal(t, "application/pdf", file.ContentType)
}

func TestExportRejectsUnknownInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Export(ctx, 1, Request{Report: "invoices"}, "")
	assert.True(t, errors.Is(err, apperr.ErrInvalidInput))

	_, err = f.svc.Export(ctx, 1, Request{Report: ReportPayments, Format: "docx"}, "")
	assert.True(t, errors.Is(err, apperr.ErrInvalidInput))

	_, err = f.svc.Export(ctx, 1, Request{Report: ReportPayments, DateRange: DateRangeCustom}, "")
	assert.True(t, errors.Is(err, apperr.ErrInvalidInput))
}

func TestPaymentTableFormatsAmounts(t *testing.T) {
	paid := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	table := paymentTable([]PaymentRow{
		{Reference: "PAY-1", RecordType: "application", RecordID: 3, Amount: 5000, Currency: "NGN", Gateway: "mock", Status: "paid", PaidAt: &paid, CreatedAt: paid},
		{Reference: "PAY-2", RecordType: "digitization", RecordID: 4, Amount: 2500.5, Currency: "NGN", Gateway: "mock", Status: "pending", CreatedAt: paid},
	})
	require.Len(t, table.Rows, 2)
	assert.Equal(t, "5000.00", table.Rows[0][3])
	assert.Equal(t, "2026-06-01 09:00:00", table.Rows[0][7])
	assert.Equal(t, "2500.50", table.Rows[1][3])
	assert.Empty(t, table.Rows[1][7])
}
