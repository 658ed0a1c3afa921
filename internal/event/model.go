package event

import (
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	ApplicationSubmitted Type = "application.submitted"
	StatusChanged        Type = "application.status_changed"
	PaymentVerified      Type = "payment.verified"
	CertificateIssued    Type = "certificate.issued"
)

// Event is the message carried on the Kafka topic.
type Event struct {
	ID                string    `json:"id"`
	Type              Type      `json:"type"`
	RecordType        string    `json:"record_type"`
	RecordID          uint      `json:"record_id"`
	Reference         string    `json:"reference,omitempty"`
	UserID            uint      `json:"user_id"`
	LocalGovernmentID uint      `json:"local_government_id"`
	HolderName        string    `json:"holder_name,omitempty"`
	Email             string    `json:"email,omitempty"`
	Status            string    `json:"status,omitempty"`
	Note              string    `json:"note,omitempty"`
	CertificateID     string    `json:"certificate_id,omitempty"`
	Amount            float64   `json:"amount,omitempty"`
	OccurredAt        time.Time `json:"occurred_at"`
}

// New stamps an event with an id and time.
func New(t Type, recordType string, recordID uint) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       t,
		RecordType: recordType,
		RecordID:   recordID,
		OccurredAt: time.Now().UTC(),
	}
}
