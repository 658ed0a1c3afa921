package payment

import (
	"time"

	"github.com/lgcert/indigene-certificate/internal/lifecycle"
)

const (
	ModeRedirect = "redirect"
	ModeInline   = "inline"
)

// Payment is one gateway charge for an application or digitization request.
type Payment struct {
	ID                uint                    `gorm:"primaryKey" json:"id"`
	Reference         string                  `gorm:"size:32;not null;uniqueIndex" json:"reference"`
	RecordType        string                  `gorm:"size:20;not null;index:idx_payment_record" json:"record_type"`
	RecordID          uint                    `gorm:"not null;index:idx_payment_record" json:"record_id"`
	UserID            uint                    `gorm:"not null;index" json:"user_id"`
	LocalGovernmentID uint                    `gorm:"not null;index" json:"local_government_id"`
	Amount            float64                 `gorm:"not null" json:"amount"`
	Currency          string                  `gorm:"size:3;not null" json:"currency"`
	Gateway           string                  `gorm:"size:20;not null" json:"gateway"`
	Mode              string                  `gorm:"size:10;not null" json:"mode"`
	GatewayOrderID    string                  `gorm:"size:64;index" json:"gateway_order_id"`
	GatewayPaymentID  string                  `gorm:"size:64" json:"gateway_payment_id,omitempty"`
	Method            string                  `gorm:"size:30" json:"method,omitempty"`
	AuthorizationURL  string                  `gorm:"type:text" json:"authorization_url,omitempty"`
	Status            lifecycle.PaymentStatus `gorm:"size:20;not null;index" json:"status"`
	PaidAt            *time.Time              `json:"paid_at,omitempty"`
	CreatedAt         time.Time               `json:"created_at"`
	UpdatedAt         time.Time               `json:"updated_at"`
}

func (Payment) TableName() string {
	return "payments"
}

// InitializeRequest starts a charge. The amount is always taken from the
// local government fee schedule.
type InitializeRequest struct {
	RecordType  string `json:"record_type" binding:"required"`
	RecordID    uint   `json:"record_id" binding:"required"`
	Mode        string `json:"mode"`
	CallbackURL string `json:"callback_url"`
}

type InitializeResponse struct {
	Reference        string  `json:"reference"`
	AuthorizationURL string  `json:"authorization_url,omitempty"`
	Amount           float64 `json:"amount"`
	Currency         string  `json:"currency"`
	Mode             string  `json:"mode"`
	Key              string  `json:"key,omitempty"`
	OrderID          string  `json:"order_id,omitempty"`
}

// VerifyResponse reports "success", "pending" or "failed".
type VerifyResponse struct {
	Reference     string                  `json:"reference"`
	Status        string                  `json:"status"`
	PaymentStatus lifecycle.PaymentStatus `json:"payment_status"`
	Amount        float64                 `json:"amount"`
	Currency      string                  `json:"currency"`
	PaidAt        *time.Time              `json:"paid_at,omitempty"`
	RecordType    string                  `json:"record_type"`
	RecordID      uint                    `json:"record_id"`
}

// CallbackRequest is posted by the inline checkout once the gateway captures a payment.
type CallbackRequest struct {
	OrderID   string `json:"razorpay_order_id" form:"razorpay_order_id" binding:"required"`
	PaymentID string `json:"razorpay_payment_id" form:"razorpay_payment_id" binding:"required"`
	Signature string `json:"razorpay_signature" form:"razorpay_signature" binding:"required"`
}

func verifyStatus(s lifecycle.PaymentStatus) string {
	switch s {
	case lifecycle.PaymentPaid:
		return "success"
	case lifecycle.PaymentFailed, lifecycle.PaymentAbandoned:
		return "failed"
	}
	return "pending"
}

func (p Payment) response() *VerifyResponse {
	return &VerifyResponse{
		Reference:     p.Reference,
		Status:        verifyStatus(p.Status),
		PaymentStatus: p.Status,
		Amount:        p.Amount,
		Currency:      p.Currency,
		PaidAt:        p.PaidAt,
		RecordType:    p.RecordType,
		RecordID:      p.RecordID,
	}
}
