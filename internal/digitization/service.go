package digitization

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/lgcert/indigene-certificate/internal/access"
	"github.com/lgcert/indigene-certificate/internal/apperr"
	"github.com/lgcert/indigene-certificate/internal/auditlog"
	"github.com/lgcert/indigene-certificate/internal/certificate"
	"github.com/lgcert/indigene-certificate/internal/event"
	"github.com/lgcert/indigene-certificate/internal/lifecycle"
	"github.com/lgcert/indigene-certificate/internal/localgovernment"
	"github.com/lgcert/indigene-certificate/internal/validation"
	"github.com/lgcert/indigene-certificate/logger"
	"github.com/lgcert/indigene-certificate/metrics"
	"github.com/lgcert/indigene-certificate/utils"
)

// ApplicationLinker moves the application a request was raised for into digitization.
type ApplicationLinker interface {
	MarkDigitized(ctx context.Context, reference string, userID, actorID uint) error
}

type Service interface {
	lifecycle.RecordStore

	Submit(ctx context.Context, in SubmitInput) (*Request, error)
	// Update edits secondary fields while the request is pending and not finalized.
	Update(ctx context.Context, viewer access.Viewer, id uint, in UpdateInput, ip string) (*Request, error)
	// Finalize completes a paid request so it can be reviewed.
	Finalize(ctx context.Context, viewer access.Viewer, id uint, paymentReference, ip string) (*Request, error)
	ListMine(ctx context.Context, userID uint) ([]Request, error)
	Get(ctx context.Context, viewer access.Viewer, id uint) (*Request, error)
	List(ctx context.Context, filter Filter) (*Page, error)
	ChangeStatus(ctx context.Context, viewer access.Viewer, id uint, to lifecycle.Status, note, ip string) (*Request, error)
	History(ctx context.Context, viewer access.Viewer, id uint) ([]lifecycle.History, error)
	AbandonStale(ctx context.Context, before time.Time) (int, error)
	Stats(ctx context.Context, localGovernmentID *uint, months int) (*lifecycle.Stats, error)
}

type service struct {
	repo      Repository
	lgas      localgovernment.Service
	issuer    certificate.Issuer
	linker    ApplicationLinker
	publisher event.Publisher
	auditSvc  auditlog.Service
	log       *logger.Logger
	now       func() time.Time
}

func NewService(repo Repository, lgas localgovernment.Service, issuer certificate.Issuer, linker ApplicationLinker, publisher event.Publisher, auditSvc auditlog.Service, log *logger.Logger) Service {
	if log == nil {
		log = logger.Nop()
	}
	return &service{
		repo:      repo,
		lgas:      lgas,
		issuer:    issuer,
		linker:    linker,
		publisher: publisher,
		auditSvc:  auditSvc,
		log:       log,
		now:       time.Now,
	}
}

func (s *service) validate(f SubmitForm) error {
	form := validation.DigitizationForm{
		FullName:             f.FullName,
		NIN:                  f.NIN,
		DateOfBirth:          f.DateOfBirth,
		State:                f.State,
		LocalGovernmentID:    f.LocalGovernmentID,
		Village:              f.Village,
		Phone:                f.Phone,
		Email:                f.Email,
		OldCertificateNumber: f.OldCertificateNumber,
		IssueYear:            f.IssueYear,
	}
	return validation.First(
		func() validation.Result { return validation.ValidateDigitization(form) },
		func() validation.Result { return validation.ValidateNotAfter("Date of birth", f.DateOfBirth, s.now()) },
		func() validation.Result { return issueYearNotAfter(f.IssueYear, s.now()) },
	).Err()
}

func issueYearNotAfter(year string, now time.Time) validation.Result {
	if y, _ := strconv.Atoi(year); y > now.Year() {
		return validation.Result{Field: "issue_year", Message: "Issue year cannot be in the future"}
	}
	return validation.OK
}

// CheckAttachments enforces the combined size ceiling of the uploads.
func CheckAttachments(sizes ...int64) error {
	return validation.CheckAggregate(validation.DigitizationMaxTotal, sizes...).Err()
}

func attachmentSizes(files ...*utils.StoredFile) []int64 {
	var sizes []int64
	for _, f := range files {
		if f != nil {
			sizes = append(sizes, f.Size)
		}
	}
	return sizes
}

func (s *service) Submit(ctx context.Context, in SubmitInput) (*Request, error) {
	if err := s.validate(in.Form); err != nil {
		return nil, err
	}
	if in.Photo == nil {
		return nil, &validation.Error{Field: "photo", Message: validation.DigitizationPhoto.Label + " is required"}
	}
	if in.Scan == nil {
		return nil, &validation.Error{Field: "scan", Message: validation.DigitizationScan.Label + " is required"}
	}
	if err := CheckAttachments(attachmentSizes(in.Photo, in.IDSlip, in.Scan)...); err != nil {
		return nil, err
	}

	lga, err := s.lgas.Get(ctx, in.Form.LocalGovernmentID)
	if err != nil {
		return nil, err
	}
	if !lga.IsActive {
		return nil, &validation.Error{Field: "local_government", Message: lga.Name + " is not accepting requests"}
	}

	now := s.now()
	req := &Request{
		Reference:            lifecycle.NewReference("DIG", now),
		UserID:               in.UserID,
		FullName:             strings.TrimSpace(in.Form.FullName),
		NIN:                  in.Form.NIN,
		DateOfBirth:          in.Form.DateOfBirth,
		State:                strings.TrimSpace(in.Form.State),
		LocalGovernmentID:    lga.ID,
		LocalGovernmentName:  lga.Name,
		Village:              strings.TrimSpace(in.Form.Village),
		Phone:                strings.TrimSpace(in.Form.Phone),
		Email:                strings.ToLower(strings.TrimSpace(in.Form.Email)),
		Address:              strings.TrimSpace(in.Form.Address),
		OldCertificateNumber: strings.ToUpper(strings.TrimSpace(in.Form.OldCertificateNumber)),
		IssueYear:            in.Form.IssueYear,
		ApplicationReference: strings.ToUpper(strings.TrimSpace(in.Form.ApplicationReference)),
		PhotoPath:            in.Photo.Path,
		PhotoURL:             in.Photo.URL,
		ScanPath:             in.Scan.Path,
		ScanURL:              in.Scan.URL,
		Status:               lifecycle.StatusPending,
		PaymentStatus:        lifecycle.PaymentUnpaid,
		SubmittedAt:          now,
	}
	if in.IDSlip != nil {
		req.IDSlipPath = in.IDSlip.Path
		req.IDSlipURL = in.IDSlip.URL
	}
	if err := s.repo.Create(ctx, req); err != nil {
		return nil, fmt.Errorf("create digitization request: %w", err)
	}

	metrics.RecordSubmission(RecordType)
	s.auditSvc.LogAction(ctx, &in.UserID, &lga.ID, "DIGITIZATION_SUBMITTED", map[string]interface{}{
		"request_id":             req.ID,
		"reference":              req.Reference,
		"old_certificate_number": req.OldCertificateNumber,
	}, in.IPAddress, auditlog.StatusSuccess)
	s.publish(ctx, event.ApplicationSubmitted, req, "")
	return req, nil
}

func (s *service) publish(ctx context.Context, t event.Type, req *Request, note string) {
	e := event.New(t, RecordType, req.ID)
	e.Reference = req.Reference
	e.UserID = req.UserID
	e.LocalGovernmentID = req.LocalGovernmentID
	e.HolderName = req.FullName
	e.Email = req.Email
	e.Status = string(req.Status)
	e.Note = note
	e.CertificateID = req.CertificateID
	if err := s.publisher.Publish(ctx, e); err != nil {
		s.log.Warnf("digitization %s: %s not published: %v", req.Reference, t, err)
	}
}

func (s *service) load(ctx context.Context, id uint) (*Request, error) {
	req, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("digitization request %d: %w", id, apperr.ErrNotFound)
		}
		return nil, err
	}
	return req, nil
}

func (s *service) Get(ctx context.Context, viewer access.Viewer, id uint) (*Request, error) {
	req, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !viewer.CanSee(req.UserID, req.LocalGovernmentID) {
		return nil, fmt.Errorf("digitization request %d: %w", id, apperr.ErrForbidden)
	}
	return req, nil
}

func (s *service) Update(ctx context.Context, viewer access.Viewer, id uint, in UpdateInput, ip string) (*Request, error) {
	req, err := s.Get(ctx, viewer, id)
	if err != nil {
		return nil, err
	}
	if req.UserID != viewer.UserID {
		return nil, fmt.Errorf("digitization request %d: %w", id, apperr.ErrForbidden)
	}
	if req.Status != lifecycle.StatusPending || req.Finalized {
		return nil, fmt.Errorf("digitization request %d is %s: %w", id, req.Status, apperr.ErrInvalidTransition)
	}

	err = validation.First(
		func() validation.Result { return optional(in.Phone, validation.ValidatePhone) },
		func() validation.Result { return optional(in.Email, validation.ValidateEmail) },
	).Err()
	if err != nil {
		return nil, err
	}

	req.Address = strings.TrimSpace(firstNonEmpty(in.Address, req.Address))
	req.Village = strings.TrimSpace(firstNonEmpty(in.Village, req.Village))
	req.Phone = strings.TrimSpace(firstNonEmpty(in.Phone, req.Phone))
	req.Email = strings.ToLower(strings.TrimSpace(firstNonEmpty(in.Email, req.Email)))
	if err := s.repo.Save(ctx, req); err != nil {
		return nil, err
	}
	s.auditSvc.LogAction(ctx, &viewer.UserID, &req.LocalGovernmentID, "DIGITIZATION_UPDATED", map[string]interface{}{
		"request_id": req.ID,
		"reference":  req.Reference,
	}, ip, auditlog.StatusSuccess)
	return req, nil
}

func optional(v string, check func(string) validation.Result) validation.Result {
	if strings.TrimSpace(v) == "" {
		return validation.OK
	}
	return check(v)
}

func firstNonEmpty(v, fallback string) string {
	if strings.TrimSpace(v) != "" {
		return v
	}
	return fallback
}

func (s *service) Finalize(ctx context.Context, viewer access.Viewer, id uint, paymentReference, ip string) (*Request, error) {
	req, err := s.Get(ctx, viewer, id)
	if err != nil {
		return nil, err
	}
	if req.UserID != viewer.UserID {
		return nil, fmt.Errorf("digitization request %d: %w", id, apperr.ErrForbidden)
	}
	if req.Finalized {
		return req, nil
	}

	paymentReference = strings.TrimSpace(paymentReference)
	if paymentReference == "" {
		return nil, &validation.Error{Field: "payment_reference", Message: "Payment reference is required"}
	}
	if req.PaymentStatus != lifecycle.PaymentPaid || req.PaymentReference != paymentReference {
		s.auditSvc.LogAction(ctx, &viewer.UserID, &req.LocalGovernmentID, "DIGITIZATION_FINALIZED", map[string]interface{}{
			"request_id":        req.ID,
			"payment_reference": paymentReference,
			"payment_status":    req.PaymentStatus,
		}, ip, auditlog.StatusFailure)
		return nil, fmt.Errorf("digitization request %s: %w", req.Reference, apperr.ErrPaymentRequired)
	}

	now := s.now()
	req.Finalized = true
	req.FinalizedAt = &now
	if err := s.repo.Save(ctx, req); err != nil {
		return nil, err
	}
	s.auditSvc.LogAction(ctx, &viewer.UserID, &req.LocalGovernmentID, "DIGITIZATION_FINALIZED", map[string]interface{}{
		"request_id":        req.ID,
		"reference":         req.Reference,
		"payment_reference": paymentReference,
	}, ip, auditlog.StatusSuccess)
	return req, nil
}

func (s *service) ListMine(ctx context.Context, userID uint) ([]Request, error) {
	return s.repo.ListByUser(ctx, userID)
}

func (s *service) List(ctx context.Context, filter Filter) (*Page, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = 10
	}
	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &Page{Items: items, Total: total, Page: filter.Page, PageSize: filter.PageSize}, nil
}

// ChangeStatus applies an administrator decision. Only finalized requests can
// be approved; approval issues a digitized certificate.
func (s *service) ChangeStatus(ctx context.Context, viewer access.Viewer, id uint, to lifecycle.Status, note, ip string) (*Request, error) {
	req, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !viewer.CanManage(req.LocalGovernmentID) {
		return nil, fmt.Errorf("digitization request %d: %w", id, apperr.ErrForbidden)
	}

	from := req.Status
	fail := func(err error) (*Request, error) {
		s.auditSvc.LogAction(ctx, &viewer.UserID, &req.LocalGovernmentID, "DIGITIZATION_STATUS_CHANGED", map[string]interface{}{
			"request_id": req.ID,
			"from":       from,
			"to":         to,
			"reason":     err.Error(),
		}, ip, auditlog.StatusFailure)
		return nil, err
	}

	if to == lifecycle.StatusDigitization {
		return fail(fmt.Errorf("digitization requests end at approval: %w", apperr.ErrInvalidTransition))
	}
	if err := lifecycle.Check(from, to); err != nil {
		return fail(err)
	}
	if to == lifecycle.StatusRejected && strings.TrimSpace(note) == "" {
		return fail(&validation.Error{Field: "note", Message: "A reason is required when rejecting"})
	}

	if to == lifecycle.StatusApproved {
		if !req.Finalized || req.PaymentStatus != lifecycle.PaymentPaid {
			return fail(fmt.Errorf("digitization request %s: %w", req.Reference, apperr.ErrPaymentRequired))
		}
		if req.ApplicationReference != "" && s.linker != nil {
			if err := s.linker.MarkDigitized(ctx, req.ApplicationReference, req.UserID, viewer.UserID); err != nil {
				return fail(err)
			}
		}
		lga, err := s.lgas.Get(ctx, req.LocalGovernmentID)
		if err != nil {
			return fail(err)
		}
		cert, err := s.issuer.Issue(ctx, certificate.IssueInput{
			RecordType:           RecordType,
			RecordID:             req.ID,
			UserID:               req.UserID,
			HolderName:           req.FullName,
			NIN:                  req.NIN,
			DateOfBirth:          req.DateOfBirth,
			LocalGovernmentID:    lga.ID,
			LocalGovernmentName:  lga.Name,
			LocalGovernmentCode:  lga.Code,
			State:                req.State,
			Village:              req.Village,
			Digitized:            true,
			OldCertificateNumber: req.OldCertificateNumber,
			ActorID:              viewer.UserID,
			IPAddress:            ip,
		})
		if err != nil {
			return fail(err)
		}
		req.CertificateID = cert.CertificateID
	}

	now := s.now()
	req.Status = to
	req.ReviewNote = strings.TrimSpace(note)
	req.ReviewedBy = &viewer.UserID
	if lifecycle.IsTerminal(to) || to == lifecycle.StatusApproved {
		req.ProcessedAt = &now
	}
	if err := s.repo.ChangeStatus(ctx, req, from, req.ReviewNote, viewer.UserID); err != nil {
		return fail(err)
	}

	metrics.RecordStatusChange(RecordType, string(to))
	s.auditSvc.LogAction(ctx, &viewer.UserID, &req.LocalGovernmentID, "DIGITIZATION_STATUS_CHANGED", map[string]interface{}{
		"request_id": req.ID,
		"reference":  req.Reference,
		"from":       from,
		"to":         to,
		"note":       req.ReviewNote,
	}, ip, auditlog.StatusSuccess)
	s.publish(ctx, event.StatusChanged, req, req.ReviewNote)
	return req, nil
}

func (s *service) History(ctx context.Context, viewer access.Viewer, id uint) ([]lifecycle.History, error) {
	if _, err := s.Get(ctx, viewer, id); err != nil {
		return nil, err
	}
	return s.repo.History(ctx, id)
}

func (s *service) Record(ctx context.Context, id uint) (*lifecycle.Record, error) {
	req, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return req.Record(), nil
}

func (s *service) SetPaymentStatus(ctx context.Context, id uint, status lifecycle.PaymentStatus, reference string) error {
	values := map[string]interface{}{"payment_status": status}
	if reference != "" {
		values["payment_reference"] = reference
	}
	return s.update(ctx, id, values)
}

func (s *service) MarkNINVerified(ctx context.Context, id uint) error {
	return s.update(ctx, id, map[string]interface{}{"nin_verified": true})
}

func (s *service) update(ctx context.Context, id uint, values map[string]interface{}) error {
	if err := s.repo.UpdateColumns(ctx, id, values); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("digitization request %d: %w", id, apperr.ErrNotFound)
		}
		return err
	}
	return nil
}

func (s *service) AbandonStale(ctx context.Context, before time.Time) (int, error) {
	stale, err := s.repo.StaleUnpaid(ctx, before)
	if err != nil {
		return 0, err
	}
	for _, req := range stale {
		if err := s.update(ctx, req.ID, map[string]interface{}{"payment_status": lifecycle.PaymentAbandoned}); err != nil {
			return 0, err
		}
		s.auditSvc.LogAction(ctx, nil, &req.LocalGovernmentID, "DIGITIZATION_ABANDONED", map[string]interface{}{
			"request_id":     req.ID,
			"reference":      req.Reference,
			"payment_status": req.PaymentStatus,
		}, "", auditlog.StatusSuccess)
	}
	return len(stale), nil
}

func (s *service) Stats(ctx context.Context, localGovernmentID *uint, months int) (*lifecycle.Stats, error) {
	byStatus, err := s.repo.CountByStatus(ctx, localGovernmentID)
	if err != nil {
		return nil, err
	}
	paid, err := s.repo.CountPaid(ctx, localGovernmentID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	since := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()).AddDate(0, -(months - 1), 0)
	times, err := s.repo.SubmittedSince(ctx, localGovernmentID, since)
	if err != nil {
		return nil, err
	}
	stats := &lifecycle.Stats{ByStatus: byStatus, Paid: paid, Monthly: lifecycle.Months(times, now, months)}
	for _, n := range byStatus {
		stats.Total += n
	}
	stats.AwaitingCount = byStatus[lifecycle.StatusPending] + byStatus[lifecycle.StatusUnderReview]
	return stats, nil
}
