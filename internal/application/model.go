package application

import (
	"encoding/json"
	"time"

	"github.com/lgcert/indigene-certificate/internal/lifecycle"
	"github.com/lgcert/indigene-certificate/utils"
	"gorm.io/datatypes"
)

const RecordType = "application"

type Application struct {
	ID                  uint                    `gorm:"primaryKey" json:"id"`
	Reference           string                  `gorm:"size:32;not null;uniqueIndex" json:"reference"`
	UserID              uint                    `gorm:"not null;index" json:"user_id"`
	FullName            string                  `gorm:"size:150;not null" json:"full_name"`
	NIN                 string                  `gorm:"column:nin;size:11;not null;index" json:"nin"`
	DateOfBirth         string                  `gorm:"size:10;not null" json:"date_of_birth"`
	State               string                  `gorm:"size:80;not null" json:"state"`
	LocalGovernmentID   uint                    `gorm:"not null;index" json:"local_government_id"`
	LocalGovernmentName string                  `gorm:"size:120" json:"local_government"`
	Village             string                  `gorm:"size:120;not null" json:"village"`
	Phone               string                  `gorm:"size:20" json:"phone"`
	Email               string                  `gorm:"size:150" json:"email"`
	Address             string                  `gorm:"type:text" json:"address"`
	Landmark            string                  `gorm:"size:200" json:"landmark"`
	ExtraFields         datatypes.JSON          `json:"extra_fields"`
	PhotoPath           string                  `json:"-"`
	PhotoURL            string                  `json:"photo_url"`
	IDSlipPath          string                  `json:"-"`
	IDSlipURL           string                  `json:"id_slip_url"`
	Status              lifecycle.Status        `gorm:"size:20;not null;index" json:"status"`
	PaymentStatus       lifecycle.PaymentStatus `gorm:"size:20;not null;index" json:"payment_status"`
	PaymentReference    string                  `gorm:"size:64;index" json:"payment_reference,omitempty"`
	NINVerified         bool                    `gorm:"column:nin_verified;not null" json:"nin_verified"`
	ReviewNote          string                  `gorm:"type:text" json:"review_note,omitempty"`
	ReviewedBy          *uint                   `json:"reviewed_by,omitempty"`
	CertificateID       string                  `gorm:"size:40" json:"certificate_id,omitempty"`
	SubmittedAt         time.Time               `gorm:"not null;index" json:"submitted_at"`
	ProcessedAt         *time.Time              `json:"processed_at,omitempty"`
	CreatedAt           time.Time               `json:"created_at"`
	UpdatedAt           time.Time               `json:"updated_at"`
}

func (Application) TableName() string {
	return "applications"
}

func (a Application) Extra() map[string]string {
	out := map[string]string{}
	if len(a.ExtraFields) > 0 {
		_ = json.Unmarshal(a.ExtraFields, &out)
	}
	return out
}

func (a *Application) SetExtra(values map[string]string) {
	if len(values) == 0 {
		a.ExtraFields = nil
		return
	}
	b, _ := json.Marshal(values)
	a.ExtraFields = datatypes.JSON(b)
}

func (a Application) Record() *lifecycle.Record {
	return &lifecycle.Record{
		Type:              RecordType,
		ID:                a.ID,
		Reference:         a.Reference,
		UserID:            a.UserID,
		LocalGovernmentID: a.LocalGovernmentID,
		FullName:          a.FullName,
		NIN:               a.NIN,
		Email:             a.Email,
		Status:            a.Status,
		PaymentStatus:     a.PaymentStatus,
		PaymentReference:  a.PaymentReference,
		NINVerified:       a.NINVerified,
	}
}

// SubmitInput is the base data sent with the attachments.
type SubmitInput struct {
	UserID    uint
	Form      SubmitForm
	Photo     *utils.StoredFile
	IDSlip    *utils.StoredFile
	IPAddress string
}

// SubmitForm is the first wizard step plus contact details.
type SubmitForm struct {
	FullName          string `form:"full_name" json:"full_name"`
	NIN               string `form:"nin" json:"nin"`
	DateOfBirth       string `form:"date_of_birth" json:"date_of_birth"`
	State             string `form:"state" json:"state"`
	LocalGovernmentID uint   `form:"local_government_id" json:"local_government_id"`
	Village           string `form:"village" json:"village"`
	Phone             string `form:"phone" json:"phone"`
	Email             string `form:"email" json:"email"`
}

// UpdateInput carries the secondary fields. Empty strings leave values unchanged.
type UpdateInput struct {
	Address     string            `json:"address"`
	Landmark    string            `json:"landmark"`
	Phone       string            `json:"phone"`
	Email       string            `json:"email"`
	ExtraFields map[string]string `json:"extra_fields"`
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
	Items    []Application
	Total    int64
	Page     int
	PageSize int
}

type StatusInput struct {
	Status string `json:"status" binding:"required"`
	Note   string `json:"note"`
}
