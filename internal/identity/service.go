package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/lgcert/indigene-certificate/internal/access"
	"github.com/lgcert/indigene-certificate/internal/apperr"
	"github.com/lgcert/indigene-certificate/internal/auditlog"
	"github.com/lgcert/indigene-certificate/internal/lifecycle"
	"github.com/lgcert/indigene-certificate/internal/validation"
	"github.com/lgcert/indigene-certificate/metrics"
)

const (
	StatusSuccess  = "success"
	StatusMismatch = "mismatch"
)

type VerifyInput struct {
	NIN        string `json:"nin" binding:"required"`
	RecordType string `json:"record_type"`
	RecordID   uint   `json:"record_id"`
}

type Result struct {
	Status     string `json:"status"`
	Message    string `json:"message"`
	NIN        string `json:"nin"`
	FullName   string `json:"full_name"`
	RecordType string `json:"record_type,omitempty"`
	RecordID   uint   `json:"record_id,omitempty"`
	Verified   bool   `json:"verified"`
}

type Service interface {
	Verify(ctx context.Context, viewer access.Viewer, in VerifyInput, ip string) (*Result, error)
}

type service struct {
	registry Registry
	records  map[string]lifecycle.RecordStore
	auditSvc auditlog.Service
}

// NewService verifies against registry. records maps a record type to the
// store whose NINVerified flag a successful check sets.
func NewService(registry Registry, records map[string]lifecycle.RecordStore, auditSvc auditlog.Service) Service {
	return &service{registry: registry, records: records, auditSvc: auditSvc}
}

func (s *service) Verify(ctx context.Context, viewer access.Viewer, in VerifyInput, ip string) (*Result, error) {
	nin := strings.TrimSpace(in.NIN)
	if err := validation.ValidateNIN(nin).Err(); err != nil {
		metrics.RecordNINCheck("invalid")
		return nil, err
	}

	var rec *lifecycle.Record
	if in.RecordType != "" {
		store, ok := s.records[in.RecordType]
		if !ok {
			return nil, &validation.Error{Field: "record_type", Message: "Unknown record type " + in.RecordType}
		}
		r, err := store.Record(ctx, in.RecordID)
		if err != nil {
			return nil, err
		}
		if !viewer.CanSee(r.UserID, r.LocalGovernmentID) {
			return nil, fmt.Errorf("%s %d: %w", in.RecordType, in.RecordID, apperr.ErrForbidden)
		}
		if r.NIN != nin {
			return nil, &validation.Error{Field: "nin", Message: "NIN does not match the submitted record"}
		}
		rec = r
	}

	id, err := s.registry.Lookup(ctx, nin)
	if err != nil {
		outcome := "error"
		if errors.Is(err, apperr.ErrNotFound) {
			outcome = "not_found"
			err = fmt.Errorf("NIN not found in the registry: %w", apperr.ErrNotFound)
		}
		metrics.RecordNINCheck(outcome)
		s.audit(ctx, viewer, rec, nin, outcome, ip, auditlog.StatusFailure)
		return nil, err
	}

	result := &Result{
		Status:   StatusSuccess,
		Message:  "NIN verified successfully",
		NIN:      nin,
		FullName: id.FullName(),
	}
	if rec == nil {
		metrics.RecordNINCheck(StatusSuccess)
		s.audit(ctx, viewer, nil, nin, StatusSuccess, ip, auditlog.StatusSuccess)
		return result, nil
	}

	result.RecordType = rec.Type
	result.RecordID = rec.ID
	if !NameMatches(rec.FullName, *id) {
		result.Status = StatusMismatch
		result.Message = "Name on the record does not match the NIN registry"
		metrics.RecordNINCheck(StatusMismatch)
		s.audit(ctx, viewer, rec, nin, StatusMismatch, ip, auditlog.StatusFailure)
		return result, nil
	}

	if err := s.records[rec.Type].MarkNINVerified(ctx, rec.ID); err != nil {
		return nil, err
	}
	result.Verified = true
	metrics.RecordNINCheck(StatusSuccess)
	s.audit(ctx, viewer, rec, nin, StatusSuccess, ip, auditlog.StatusSuccess)
	return result, nil
}

func (s *service) audit(ctx context.Context, viewer access.Viewer, rec *lifecycle.Record, nin, outcome, ip, status string) {
	details := map[string]interface{}{
		"nin":     maskNIN(nin),
		"outcome": outcome,
	}
	var lgaID *uint
	if rec != nil {
		details["record_type"] = rec.Type
		details["record_id"] = rec.ID
		lgaID = &rec.LocalGovernmentID
	}
	s.auditSvc.LogAction(ctx, &viewer.UserID, lgaID, "NIN_VERIFIED", details, ip, status)
}

// maskNIN keeps the last four digits.
func maskNIN(nin string) string {
	if len(nin) <= 4 {
		return nin
	}
	return strings.Repeat("*", len(nin)-4) + nin[len(nin)-4:]
}

// NameMatches reports whether the record name contains the registry first and
// last names, ignoring case and order.
func NameMatches(recordName string, id Identity) bool {
	tokens := map[string]bool{}
	for _, t := range strings.Fields(strings.ToLower(recordName)) {
		tokens[t] = true
	}
	for _, want := range []string{id.FirstName, id.LastName} {
		want = strings.ToLower(strings.TrimSpace(want))
		if want != "" && !tokens[want] {
			return false
		}
	}
	return true
}
