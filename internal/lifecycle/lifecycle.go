// Package lifecycle holds the review states shared by applications and
// digitization requests, their forward-only transitions and the status history.
package lifecycle

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lgcert/indigene-certificate/internal/apperr"
	"gorm.io/gorm"
)

type Status string

const (
	StatusPending      Status = "pending"
	StatusUnderReview  Status = "under_review"
	StatusApproved     Status = "approved"
	StatusRejected     Status = "rejected"
	StatusDigitization Status = "digitization"
)

type PaymentStatus string

const (
	PaymentUnpaid    PaymentStatus = "unpaid"
	PaymentPending   PaymentStatus = "pending"
	PaymentPaid      PaymentStatus = "paid"
	PaymentFailed    PaymentStatus = "failed"
	PaymentAbandoned PaymentStatus = "abandoned"
)

var transitions = map[Status][]Status{
	StatusPending:     {StatusUnderReview, StatusApproved, StatusRejected},
	StatusUnderReview: {StatusApproved, StatusRejected},
	StatusApproved:    {StatusDigitization},
}

func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusPending, StatusUnderReview, StatusApproved, StatusRejected, StatusDigitization:
		return st, nil
	}
	return "", fmt.Errorf("unknown status %q: %w", s, apperr.ErrInvalidInput)
}

// CanTransition reports whether from may move to to.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports states an administrator can no longer change.
func IsTerminal(s Status) bool {
	return len(transitions[s]) == 0
}

// Check returns ErrInvalidTransition when from cannot move to to.
func Check(from, to Status) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("%s -> %s: %w", from, to, apperr.ErrInvalidTransition)
	}
	return nil
}

// NewReference formats <prefix>-<yyyymmdd>-<6 hex>.
func NewReference(prefix string, at time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return fmt.Sprintf("%s-%s-%s", prefix, at.Format("20060102"), suffix)
}

// History is one recorded status change.
type History struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	RecordType string    `gorm:"size:20;not null;index:idx_history_record" json:"record_type"`
	RecordID   uint      `gorm:"not null;index:idx_history_record" json:"record_id"`
	FromStatus Status    `gorm:"size:20" json:"from_status"`
	ToStatus   Status    `gorm:"size:20;not null" json:"to_status"`
	Note       string    `gorm:"type:text" json:"note,omitempty"`
	ChangedBy  uint      `json:"changed_by"`
	CreatedAt  time.Time `json:"created_at"`
}

func (History) TableName() string {
	return "status_history"
}

// RecordHistory appends a status change inside tx.
func RecordHistory(ctx context.Context, tx *gorm.DB, recordType string, recordID uint, from, to Status, note string, actorID uint) error {
	return tx.WithContext(ctx).Create(&History{
		RecordType: recordType,
		RecordID:   recordID,
		FromStatus: from,
		ToStatus:   to,
		Note:       note,
		ChangedBy:  actorID,
	}).Error
}

func ListHistory(ctx context.Context, db *gorm.DB, recordType string, recordID uint) ([]History, error) {
	var out []History
	err := db.WithContext(ctx).
		Where("record_type = ? AND record_id = ?", recordType, recordID).
		Order("created_at ASC, id ASC").
		Find(&out).Error
	return out, err
}

// Record is the view of an application or digitization request that the
// payment and identity flows work with.
type Record struct {
	Type              string        `json:"record_type"`
	ID                uint          `json:"record_id"`
	Reference         string        `json:"reference"`
	UserID            uint          `json:"user_id"`
	LocalGovernmentID uint          `json:"local_government_id"`
	FullName          string        `json:"full_name"`
	NIN               string        `json:"nin"`
	Email             string        `json:"email"`
	Status            Status        `json:"status"`
	PaymentStatus     PaymentStatus `json:"payment_status"`
	PaymentReference  string        `json:"payment_reference"`
	NINVerified       bool          `json:"nin_verified"`
}

// RecordStore is implemented by the application and digitization services.
type RecordStore interface {
	Record(ctx context.Context, id uint) (*Record, error)
	SetPaymentStatus(ctx context.Context, id uint, status PaymentStatus, reference string) error
	MarkNINVerified(ctx context.Context, id uint) error
}

// Stats are per-status counts for dashboards.
type Stats struct {
	Total         int64            `json:"total"`
	ByStatus      map[Status]int64 `json:"by_status"`
	Paid          int64            `json:"paid"`
	Monthly       []MonthCount     `json:"monthly"`
	AwaitingCount int64            `json:"awaiting_review"`
}

type MonthCount struct {
	Month string `json:"month"`
	Count int64  `json:"count"`
}

// Months buckets timestamps into the last n calendar months ending at now,
// oldest first, formatted YYYY-MM.
func Months(times []time.Time, now time.Time, n int) []MonthCount {
	out := make([]MonthCount, n)
	index := make(map[string]int, n)
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	for i := 0; i < n; i++ {
		m := first.AddDate(0, i-(n-1), 0).Format("2006-01")
		out[i] = MonthCount{Month: m}
		index[m] = i
	}
	for _, t := range times {
		if i, ok := index[t.In(now.Location()).Format("2006-01")]; ok {
			out[i].Count++
		}
	}
	return out
}
