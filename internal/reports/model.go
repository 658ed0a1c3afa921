package reports

import "time"

const (
	ReportApplications = "applications"
	ReportDigitization = "digitization"
	ReportPayments     = "payments"
	ReportAuditLogs    = "audit_logs"
)

const (
	DateRangeDaily   = "daily"
	DateRangeWeekly  = "weekly"
	DateRangeMonthly = "monthly"
	DateRangeYearly  = "yearly"
	DateRangeCustom  = "custom"
)

const (
	FormatCSV   = "csv"
	FormatExcel = "excel"
	FormatPDF   = "pdf"
)

// Request selects one export. LocalGovernmentID is forced to the caller's
// scope for lg admins.
type Request struct {
	Report            string    `json:"report"`
	Format            string    `json:"format"`
	DateRange         string    `json:"date_range"`
	StartDate         string    `json:"start_date,omitempty"`
	EndDate           string    `json:"end_date,omitempty"`
	Status            string    `json:"status,omitempty"`
	LocalGovernmentID *uint     `json:"local_government_id,omitempty"`
	Start             time.Time `json:"-"`
	End               time.Time `json:"-"`
}

// Table is a report ready for any export format.
type Table struct {
	Title   string
	Headers []string
	Widths  []float64
	Rows    [][]string
}

// File is a rendered export.
type File struct {
	Data        []byte
	Filename    string
	ContentType string
}

type RecordRow struct {
	ID                   uint
	Reference            string
	FullName             string
	NIN                  string
	LocalGovernmentName  string
	Village              string
	Status               string
	PaymentStatus        string
	CertificateID        string
	OldCertificateNumber string
	IssueYear            string
	SubmittedAt          time.Time
}

type PaymentRow struct {
	Reference  string
	RecordType string
	RecordID   uint
	Amount     float64
	Currency   string
	Gateway    string
	Status     string
	PaidAt     *time.Time
	CreatedAt  time.Time
}

type AuditRow struct {
	ID                uint
	UserID            *uint
	LocalGovernmentID *uint
	Action            string
	Status            string
	IPAddress         string
	Details           string
	CreatedAt         time.Time
}
