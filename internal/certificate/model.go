package certificate

import "time"

const (
	RecordApplication  = "application"
	RecordDigitization = "digitization"
)

type Certificate struct {
	ID                   uint      `gorm:"primaryKey" json:"id"`
	CertificateID        string    `gorm:"size:40;not null;uniqueIndex" json:"certificate_id"`
	RecordType           string    `gorm:"size:20;not null;uniqueIndex:idx_certificate_record" json:"record_type"`
	RecordID             uint      `gorm:"not null;uniqueIndex:idx_certificate_record" json:"record_id"`
	UserID               uint      `gorm:"not null;index" json:"user_id"`
	HolderName           string    `gorm:"size:150;not null" json:"holder_name"`
	NIN                  string    `gorm:"column:nin;size:11;not null" json:"nin"`
	DateOfBirth          string    `gorm:"size:10" json:"date_of_birth"`
	LocalGovernmentID    uint      `gorm:"not null;index" json:"local_government_id"`
	LocalGovernmentName  string    `gorm:"size:120" json:"local_government_name"`
	LocalGovernmentCode  string    `gorm:"size:12" json:"local_government_code"`
	State                string    `gorm:"size:80" json:"state"`
	Village              string    `gorm:"size:120" json:"village"`
	Digitized            bool      `gorm:"not null" json:"digitized"`
	OldCertificateNumber string    `gorm:"size:60" json:"old_certificate_number,omitempty"`
	IssuedAt             time.Time `gorm:"not null" json:"issued_at"`
	CreatedAt            time.Time `json:"created_at"`
}

// IssueInput is what an approved record contributes to its certificate.
type IssueInput struct {
	RecordType           string
	RecordID             uint
	UserID               uint
	HolderName           string
	NIN                  string
	DateOfBirth          string
	LocalGovernmentID    uint
	LocalGovernmentName  string
	LocalGovernmentCode  string
	State                string
	Village              string
	Digitized            bool
	OldCertificateNumber string
	ActorID              uint
	IPAddress            string
}

// VerificationPayload is the JSON object encoded in the certificate QR code.
type VerificationPayload struct {
	CertificateID string `json:"certificateId"`
	HolderName    string `json:"holderName"`
	NIN           string `json:"nin"`
	VerifyURL     string `json:"verifyUrl"`
}

// Verification is the public answer to a certificate lookup.
type Verification struct {
	Valid           bool       `json:"valid"`
	CertificateID   string     `json:"certificate_id"`
	HolderName      string     `json:"holder_name,omitempty"`
	LocalGovernment string     `json:"local_government,omitempty"`
	State           string     `json:"state,omitempty"`
	IssuedAt        *time.Time `json:"issued_at,omitempty"`
	Digitized       bool       `json:"digitized"`
}
