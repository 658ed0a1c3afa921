package reports

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/lgcert/indigene-certificate/internal/apperr"
	"github.com/lgcert/indigene-certificate/internal/auditlog"
)

type Service interface {
	Export(ctx context.Context, actorID uint, req Request, ip string) (*File, error)
}

type service struct {
	repo     Repository
	exporter Exporter
	auditSvc auditlog.Service
	now      func() time.Time
}

func NewService(repo Repository, exporter Exporter, auditSvc auditlog.Service) Service {
	return &service{repo: repo, exporter: exporter, auditSvc: auditSvc, now: time.Now}
}

func (s *service) Export(ctx context.Context, actorID uint, req Request, ip string) (*File, error) {
	switch req.Format {
	case "":
		req.Format = FormatCSV
	case FormatCSV, FormatExcel, FormatPDF:
	default:
		return nil, fmt.Errorf("unsupported format %q: %w", req.Format, apperr.ErrInvalidInput)
	}

	now := s.now()
	start, end, err := DateRange(req.DateRange, req.StartDate, req.EndDate, now)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, apperr.ErrInvalidInput)
	}
	req.Start, req.End = start, end

	table, err := s.table(ctx, req)
	if err != nil {
		return nil, err
	}
	file, err := s.exporter.Export(req.Report, req.Format, *table, now)
	if err != nil {
		return nil, err
	}

	s.auditSvc.LogAction(ctx, &actorID, req.LocalGovernmentID, "REPORT_EXPORTED", map[string]interface{}{
		"report": req.Report,
		"format": req.Format,
		"from":   start.Format("2006-01-02"),
		"to":     end.Format("2006-01-02"),
		"rows":   len(table.Rows),
	}, ip, auditlog.StatusSuccess)
	return file, nil
}

func (s *service) table(ctx context.Context, req Request) (*Table, error) {
	switch req.Report {
	case ReportApplications:
		rows, err := s.repo.Applications(ctx, req)
		if err != nil {
			return nil, err
		}
		return recordTable("Applications Report", rows, false), nil
	case ReportDigitization:
		rows, err := s.repo.Digitization(ctx, req)
		if err != nil {
			return nil, err
		}
		return recordTable("Digitization Report", rows, true), nil
	case ReportPayments:
		rows, err := s.repo.Payments(ctx, req)
		if err != nil {
			return nil, err
		}
		return paymentTable(rows), nil
	case ReportAuditLogs:
		rows, err := s.repo.AuditLogs(ctx, req)
		if err != nil {
			return nil, err
		}
		return auditTable(rows), nil
	default:
		return nil, fmt.Errorf("unknown report %q: %w", req.Report, apperr.ErrInvalidInput)
	}
}

func recordTable(title string, rows []RecordRow, digitized bool) *Table {
	t := &Table{
		Title:   title,
		Headers: []string{"ID", "Reference", "Full Name", "NIN", "Local Government", "Village", "Status", "Payment", "Certificate", "Submitted"},
		Widths:  []float64{12, 38, 40, 24, 32, 28, 22, 20, 35, 26},
	}
	if digitized {
		t.Headers = append(t.Headers, "Old Certificate", "Issue Year")
		t.Widths = []float64{10, 34, 34, 22, 28, 22, 20, 16, 30, 22, 24, 15}
	}
	for _, r := range rows {
		row := []string{
			strconv.FormatUint(uint64(r.ID), 10),
			r.Reference,
			r.FullName,
			r.NIN,
			r.LocalGovernmentName,
			r.Village,
			r.Status,
			r.PaymentStatus,
			r.CertificateID,
			r.SubmittedAt.Format("2006-01-02"),
		}
		if digitized {
			row = append(row, r.OldCertificateNumber, r.IssueYear)
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

func paymentTable(rows []PaymentRow) *Table {
	t := &Table{
		Title:   "Payments Report",
		Headers: []string{"Reference", "Record", "Record ID", "Amount", "Currency", "Gateway", "Status", "Paid At", "Created"},
		Widths:  []float64{42, 28, 20, 28, 20, 25, 22, 46, 46},
	}
	for _, r := range rows {
		paid := ""
		if r.PaidAt != nil {
			paid = r.PaidAt.Format("2006-01-02 15:04:05")
		}
		t.Rows = append(t.Rows, []string{
			r.Reference,
			r.RecordType,
			strconv.FormatUint(uint64(r.RecordID), 10),
			strconv.FormatFloat(r.Amount, 'f', 2, 64),
			r.Currency,
			r.Gateway,
			r.Status,
			paid,
			r.CreatedAt.Format("2006-01-02 15:04:05"),
		})
	}
	return t
}

func auditTable(rows []AuditRow) *Table {
	t := &Table{
		Title:   "Audit Logs Report",
		Headers: []string{"ID", "User ID", "LGA ID", "Action", "Status", "IP Address", "Timestamp", "Details"},
		Widths:  []float64{12, 16, 16, 50, 18, 28, 35, 102},
	}
	optional := func(v *uint) string {
		if v == nil {
			return ""
		}
		return strconv.FormatUint(uint64(*v), 10)
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, []string{
			strconv.FormatUint(uint64(r.ID), 10),
			optional(r.UserID),
			optional(r.LocalGovernmentID),
			r.Action,
			r.Status,
			r.IPAddress,
			r.CreatedAt.Format("2006-01-02 15:04:05"),
			r.Details,
		})
	}
	return t
}
