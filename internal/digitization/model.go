package digitization

import (
	"time"

	"github.com/lgcert/indigene-certificate/internal/lifecycle"
	"github.com/lgcert/indigene-certificate/utils"
)

const RecordType = "digitization"

// Request asks for a paper certificate to be converted into a digital record.
type Request struct {
	ID                   uint                    `gorm:"primaryKey" json:"id"`
	Reference            string                  `gorm:"size:32;not null;uniqueIndex" json:"reference"`
	UserID               uint                    `gorm:"not null;index" json:"user_id"`
	FullName             string                  `gorm:"size:150;not null" json:"full_name"`
	NIN                  string                  `gorm:"column:nin;size:11;not null;index" json:"nin"`
	DateOfBirth          string                  `gorm:"size:10;not null" json:"date_of_birth"`
	State                string                  `gorm:"size:80;not null" json:"state"`
	LocalGovernmentID    uint                    `gorm:"not null;index" json:"local_government_id"`
	LocalGovernmentName  string                  `gorm:"size:120" json:"local_government"`
	Village              string                  `gorm:"size:120" json:"village"`
	Phone                string                  `gorm:"size:20;not null" json:"phone"`
	Email                string                  `gorm:"size:150;not null" json:"email"`
	Address              string                  `gorm:"type:text" json:"address"`
	OldCertificateNumber string                  `gorm:"size:60;not null;index" json:"old_certificate_number"`
	IssueYear            string                  `gorm:"size:4;not null" json:"issue_year"`
	ApplicationReference string                  `gorm:"size:32" json:"application_reference,omitempty"`
	PhotoPath            string                  `json:"-"`
	PhotoURL             string                  `json:"photo_url"`
	IDSlipPath           string                  `json:"-"`
	IDSlipURL            string                  `json:"id_slip_url"`
	ScanPath             string                  `json:"-"`
	ScanURL              string                  `json:"scan_url"`
	Status               lifecycle.Status        `gorm:"size:20;not null;index" json:"status"`
	PaymentStatus        lifecycle.PaymentStatus `gorm:"size:20;not null;index" json:"payment_status"`
	PaymentReference     string                  `gorm:"size:64;index" json:"payment_reference,omitempty"`
	NINVerified          bool                    `gorm:"column:nin_verified;not null" json:"nin_verified"`
	Finalized            bool                    `gorm:"not null" json:"finalized"`
	FinalizedAt          *time.Time              `json:"finalized_at,omitempty"`
	ReviewNote           string                  `gorm:"type:text" json:"review_note,omitempty"`
	ReviewedBy           *uint                   `json:"reviewed_by,omitempty"`
	CertificateID        string                  `gorm:"size:40" json:"certificate_id,omitempty"`
	SubmittedAt          time.Time               `gorm:"not null;index" json:"submitted_at"`
	ProcessedAt          *time.Time              `json:"processed_at,omitempty"`
	CreatedAt            time.Time               `json:"created_at"`
	UpdatedAt            time.Time               `json:"updated_at"`
}

func (Request) TableName() string {
	return "digitization_requests"
}

func (r Request) Record() *lifecycle.Record {
	return &lifecycle.Record{
		Type:              RecordType,
		ID:                r.ID,
		Reference:         r.Reference,
		UserID:            r.UserID,
		LocalGovernmentID: r.LocalGovernmentID,
		FullName:          r.FullName,
		NIN:               r.NIN,
		Email:             r.Email,
		Status:            r.Status,
		PaymentStatus:     r.PaymentStatus,
		PaymentReference:  r.PaymentReference,
		NINVerified:       r.NINVerified,
	}
}

type SubmitForm struct {
	FullName             string `form:"full_name" json:"full_name"`
	NIN                  string `form:"nin" json:"nin"`
	DateOfBirth          string `form:"date_of_birth" json:"date_of_birth"`
	State                string `form:"state" json:"state"`
	LocalGovernmentID    uint   `form:"local_government_id" json:"local_government_id"`
	Village              string `form:"village" json:"village"`
	Phone                string `form:"phone" json:"phone"`
	Email                string `form:"email" json:"email"`
	Address              string `form:"address" json:"address"`
	OldCertificateNumber string `form:"old_certificate_number" json:"old_certificate_number"`
	IssueYear            string `form:"issue_year" json:"issue_year"`
	ApplicationReference string `form:"application_reference" json:"application_reference"`
}

type SubmitInput struct {
	UserID    uint
	Form      SubmitForm
	Photo     *utils.StoredFile
	IDSlip    *utils.StoredFile
	Scan      *utils.StoredFile
	IPAddress string
}

// UpdateInput carries the secondary fields. Empty strings leave values unchanged.
type UpdateInput struct {
	Address string `json:"address"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
	Village string `json:"village"`
}

type FinalizeInput struct {
	PaymentReference string `json:"payment_reference" binding:"required"`
}

type Filter struct {
	Status            string
	Search            string
	LocalGovernmentID *uint
	PaymentStatus     string
	Page              int
	PageSize          int
}

type Page struct {
	Items    []Request
	Total    int64
	Page     int
	PageSize int
}

type StatusInput struct {
	Status string `json:"status" binding:"required"`
	Note   string `json:"note"`
}
