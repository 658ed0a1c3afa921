package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/lgcert/indigene-certificate/internal/access"
	"github.com/lgcert/indigene-certificate/internal/apperr"
	"github.com/lgcert/indigene-certificate/internal/auditlog"
	"github.com/lgcert/indigene-certificate/internal/certificate"
	"github.com/lgcert/indigene-certificate/internal/dynamicfield"
	"github.com/lgcert/indigene-certificate/internal/event"
	"github.com/lgcert/indigene-certificate/internal/lifecycle"
	"github.com/lgcert/indigene-certificate/internal/localgovernment"
	"github.com/lgcert/indigene-certificate/internal/validation"
	"github.com/lgcert/indigene-certificate/logger"
	"github.com/lgcert/indigene-certificate/metrics"
)

type Service interface {
	lifecycle.RecordStore

	Submit(ctx context.Context, in SubmitInput) (*Application, error)
	Update(ctx context.Context, viewer access.Viewer, id uint, in UpdateInput, ip string) (*Application, error)
	ListMine(ctx context.Context, userID uint) ([]Application, error)
	Get(ctx context.Context, viewer access.Viewer, id uint) (*Application, error)
	List(ctx context.Context, filter Filter) (*Page, error)
	ChangeStatus(ctx context.Context, viewer access.Viewer, id uint, to lifecycle.Status, note, ip string) (*Application, error)
	History(ctx context.Context, viewer access.Viewer, id uint) ([]lifecycle.History, error)

	// MarkDigitized moves an approved application of userID into digitization.
	MarkDigitized(ctx context.Context, reference string, userID, actorID uint) error
	AbandonStale(ctx context.Context, before time.Time) (int, error)
	Stats(ctx context.Context, localGovernmentID *uint, months int) (*lifecycle.Stats, error)
}

type service struct {
	repo      Repository
	lgas      localgovernment.Service
	fields    dynamicfield.Service
	issuer    certificate.Issuer
	publisher event.Publisher
	auditSvc  auditlog.Service
	log       *logger.Logger
	now       func() time.Time
}

func NewService(repo Repository, lgas localgovernment.Service, fields dynamicfield.Service, issuer certificate.Issuer, publisher event.Publisher, auditSvc auditlog.Service, log *logger.Logger) Service {
	if log == nil {
		log = logger.Nop()
	}
	return &service{
		repo:      repo,
		lgas:      lgas,
		fields:    fields,
		issuer:    issuer,
		publisher: publisher,
		auditSvc:  auditSvc,
		log:       log,
		now:       time.Now,
	}
}

func (s *service) validateSubmit(f SubmitForm) error {
	form := validation.ApplicationForm{
		FullName:          f.FullName,
		NIN:               f.NIN,
		DateOfBirth:       f.DateOfBirth,
		State:             f.State,
		LocalGovernmentID: f.LocalGovernmentID,
		Village:           f.Village,
	}
	return validation.First(
		func() validation.Result { return validation.ValidateApplicationPersonal(form) },
		func() validation.Result { return validation.ValidateNotAfter("Date of birth", f.DateOfBirth, s.now()) },
		func() validation.Result { return optional(f.Phone, validation.ValidatePhone) },
		func() validation.Result { return optional(f.Email, validation.ValidateEmail) },
	).Err()
}

func optional(v string, check func(string) validation.Result) validation.Result {
	if strings.TrimSpace(v) == "" {
		return validation.OK
	}
	return check(v)
}

func (s *service) Submit(ctx context.Context, in SubmitInput) (*Application, error) {
	if err := s.validateSubmit(in.Form); err != nil {
		return nil, err
	}
	if in.Photo == nil {
		return nil, &validation.Error{Field: "photo", Message: validation.ApplicationPhoto.Label + " is required"}
	}
	if in.IDSlip == nil {
		return nil, &validation.Error{Field: "id_slip", Message: validation.ApplicationIDSlip.Label + " is required"}
	}

	lga, err := s.lgas.Get(ctx, in.Form.LocalGovernmentID)
	if err != nil {
		return nil, err
	}
	if !lga.IsActive {
		return nil, &validation.Error{Field: "local_government", Message: lga.Name + " is not accepting applications"}
	}

	now := s.now()
	app := &Application{
		Reference:           lifecycle.NewReference("APP", now),
		UserID:              in.UserID,
		FullName:            strings.TrimSpace(in.Form.FullName),
		NIN:                 in.Form.NIN,
		DateOfBirth:         in.Form.DateOfBirth,
		State:               strings.TrimSpace(in.Form.State),
		LocalGovernmentID:   lga.ID,
		LocalGovernmentName: lga.Name,
		Village:             strings.TrimSpace(in.Form.Village),
		Phone:               strings.TrimSpace(in.Form.Phone),
		Email:               strings.ToLower(strings.TrimSpace(in.Form.Email)),
		PhotoPath:           in.Photo.Path,
		PhotoURL:            in.Photo.URL,
		IDSlipPath:          in.IDSlip.Path,
		IDSlipURL:           in.IDSlip.URL,
		Status:              lifecycle.StatusPending,
		PaymentStatus:       lifecycle.PaymentUnpaid,
		SubmittedAt:         now,
	}
	if err := s.repo.Create(ctx, app); err != nil {
		s.auditSvc.LogAction(ctx, &in.UserID, &lga.ID, "APPLICATION_SUBMITTED", map[string]interface{}{
			"error": err.Error(),
		}, in.IPAddress, auditlog.StatusFailure)
		return nil, fmt.Errorf("create application: %w", err)
	}

	metrics.RecordSubmission(RecordType)
	s.auditSvc.LogAction(ctx, &in.UserID, &lga.ID, "APPLICATION_SUBMITTED", map[string]interface{}{
		"application_id": app.ID,
		"reference":      app.Reference,
	}, in.IPAddress, auditlog.StatusSuccess)
	s.publish(ctx, event.ApplicationSubmitted, app, "")
	return app, nil
}

func (s *service) publish(ctx context.Context, t event.Type, app *Application, note string) {
	e := event.New(t, RecordType, app.ID)
	e.Reference = app.Reference
	e.UserID = app.UserID
	e.LocalGovernmentID = app.LocalGovernmentID
	e.HolderName = app.FullName
	e.Email = app.Email
	e.Status = string(app.Status)
	e.Note = note
	e.CertificateID = app.CertificateID
	if err := s.publisher.Publish(ctx, e); err != nil {
		s.log.Warnf("application %s: %s not published: %v", app.Reference, t, err)
	}
}

func (s *service) load(ctx context.Context, id uint) (*Application, error) {
	app, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("application %d: %w", id, apperr.ErrNotFound)
		}
		return nil, err
	}
	return app, nil
}

func (s *service) Get(ctx context.Context, viewer access.Viewer, id uint) (*Application, error) {
	app, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !viewer.CanSee(app.UserID, app.LocalGovernmentID) {
		return nil, fmt.Errorf("application %d: %w", id, apperr.ErrForbidden)
	}
	return app, nil
}

// Update accepts secondary fields from the owner while the application is pending.
func (s *service) Update(ctx context.Context, viewer access.Viewer, id uint, in UpdateInput, ip string) (*Application, error) {
	app, err := s.Get(ctx, viewer, id)
	if err != nil {
		return nil, err
	}
	if app.UserID != viewer.UserID {
		return nil, fmt.Errorf("application %d: %w", id, apperr.ErrForbidden)
	}
	if app.Status != lifecycle.StatusPending {
		return nil, fmt.Errorf("application %d is %s: %w", id, app.Status, apperr.ErrInvalidTransition)
	}

	address := firstNonEmpty(in.Address, app.Address)
	err = validation.First(
		func() validation.Result { return validation.ValidateRequired("Address", address) },
		func() validation.Result { return optional(in.Phone, validation.ValidatePhone) },
		func() validation.Result { return optional(in.Email, validation.ValidateEmail) },
	).Err()
	if err != nil {
		return nil, err
	}

	extra := app.Extra()
	for k, v := range in.ExtraFields {
		extra[k] = strings.TrimSpace(v)
	}
	if err := s.fields.ValidateExtra(ctx, app.LocalGovernmentID, extra); err != nil {
		return nil, err
	}

	app.Address = strings.TrimSpace(address)
	app.Landmark = strings.TrimSpace(firstNonEmpty(in.Landmark, app.Landmark))
	app.Phone = strings.TrimSpace(firstNonEmpty(in.Phone, app.Phone))
	app.Email = strings.ToLower(strings.TrimSpace(firstNonEmpty(in.Email, app.Email)))
	app.SetExtra(extra)
	if err := s.repo.Save(ctx, app); err != nil {
		return nil, err
	}

	s.auditSvc.LogAction(ctx, &viewer.UserID, &app.LocalGovernmentID, "APPLICATION_UPDATED", map[string]interface{}{
		"application_id": app.ID,
		"extra_fields":   len(extra),
	}, ip, auditlog.StatusSuccess)
	return app, nil
}

func firstNonEmpty(v, fallback string) string {
	if strings.TrimSpace(v) != "" {
		return v
	}
	return fallback
}

func (s *service) ListMine(ctx context.Context, userID uint) ([]Application, error) {
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

// ChangeStatus applies an administrator decision. Approval needs a paid
// application and issues the certificate.
func (s *service) ChangeStatus(ctx context.Context, viewer access.Viewer, id uint, to lifecycle.Status, note, ip string) (*Application, error) {
	app, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !viewer.CanManage(app.LocalGovernmentID) {
		return nil, fmt.Errorf("application %d: %w", id, apperr.ErrForbidden)
	}

	from := app.Status
	fail := func(err error) (*Application, error) {
		s.auditSvc.LogAction(ctx, &viewer.UserID, &app.LocalGovernmentID, "APPLICATION_STATUS_CHANGED", map[string]interface{}{
			"application_id": app.ID,
			"from":           from,
			"to":             to,
			"reason":         err.Error(),
		}, ip, auditlog.StatusFailure)
		return nil, err
	}

	if to == lifecycle.StatusDigitization {
		return fail(fmt.Errorf("applications enter digitization through a digitization request: %w", apperr.ErrInvalidTransition))
	}
	if err := lifecycle.Check(from, to); err != nil {
		return fail(err)
	}
	if to == lifecycle.StatusRejected && strings.TrimSpace(note) == "" {
		return fail(&validation.Error{Field: "note", Message: "A reason is required when rejecting"})
	}

	if to == lifecycle.StatusApproved {
		if app.PaymentStatus != lifecycle.PaymentPaid {
			return fail(fmt.Errorf("application %s: %w", app.Reference, apperr.ErrPaymentRequired))
		}
		lga, err := s.lgas.Get(ctx, app.LocalGovernmentID)
		if err != nil {
			return fail(err)
		}
		cert, err := s.issuer.Issue(ctx, certificate.IssueInput{
			RecordType:          RecordType,
			RecordID:            app.ID,
			UserID:              app.UserID,
			HolderName:          app.FullName,
			NIN:                 app.NIN,
			DateOfBirth:         app.DateOfBirth,
			LocalGovernmentID:   lga.ID,
			LocalGovernmentName: lga.Name,
			LocalGovernmentCode: lga.Code,
			State:               app.State,
			Village:             app.Village,
			ActorID:             viewer.UserID,
			IPAddress:           ip,
		})
		if err != nil {
			return fail(err)
		}
		app.CertificateID = cert.CertificateID
	}

	now := s.now()
	app.Status = to
	app.ReviewNote = strings.TrimSpace(note)
	app.ReviewedBy = &viewer.UserID
	if to == lifecycle.StatusApproved || to == lifecycle.StatusRejected {
		app.ProcessedAt = &now
	}
	if err := s.repo.ChangeStatus(ctx, app, from, app.ReviewNote, viewer.UserID); err != nil {
		return fail(err)
	}

	metrics.RecordStatusChange(RecordType, string(to))
	s.auditSvc.LogAction(ctx, &viewer.UserID, &app.LocalGovernmentID, "APPLICATION_STATUS_CHANGED", map[string]interface{}{
		"application_id": app.ID,
		"reference":      app.Reference,
		"from":           from,
		"to":             to,
		"note":           app.ReviewNote,
	}, ip, auditlog.StatusSuccess)
	s.publish(ctx, event.StatusChanged, app, app.ReviewNote)
	return app, nil
}

func (s *service) History(ctx context.Context, viewer access.Viewer, id uint) ([]lifecycle.History, error) {
	if _, err := s.Get(ctx, viewer, id); err != nil {
		return nil, err
	}
	return s.repo.History(ctx, id)
}

func (s *service) MarkDigitized(ctx context.Context, reference string, userID, actorID uint) error {
	app, err := s.repo.GetByReference(ctx, reference)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("application %s: %w", reference, apperr.ErrNotFound)
		}
		return err
	}
	if app.UserID != userID {
		return fmt.Errorf("application %s: %w", reference, apperr.ErrForbidden)
	}
	if err := lifecycle.Check(app.Status, lifecycle.StatusDigitization); err != nil {
		return err
	}
	from := app.Status
	app.Status = lifecycle.StatusDigitization
	if err := s.repo.ChangeStatus(ctx, app, from, "digitized", actorID); err != nil {
		return err
	}
	metrics.RecordStatusChange(RecordType, string(app.Status))
	s.publish(ctx, event.StatusChanged, app, "digitized")
	return nil
}

// Record implements lifecycle.RecordStore.
func (s *service) Record(ctx context.Context, id uint) (*lifecycle.Record, error) {
	app, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return app.Record(), nil
}

func (s *service) SetPaymentStatus(ctx context.Context, id uint, status lifecycle.PaymentStatus, reference string) error {
	values := map[string]interface{}{"payment_status": status}
	if reference != "" {
		values["payment_reference"] = reference
	}
	if err := s.repo.UpdateColumns(ctx, id, values); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("application %d: %w", id, apperr.ErrNotFound)
		}
		return err
	}
	return nil
}

func (s *service) MarkNINVerified(ctx context.Context, id uint) error {
	if err := s.repo.UpdateColumns(ctx, id, map[string]interface{}{"nin_verified": true}); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("application %d: %w", id, apperr.ErrNotFound)
		}
		return err
	}
	return nil
}

// AbandonStale flags pending applications whose payment never completed.
func (s *service) AbandonStale(ctx context.Context, before time.Time) (int, error) {
	stale, err := s.repo.StaleUnpaid(ctx, before)
	if err != nil {
		return 0, err
	}
	for _, app := range stale {
		if err := s.repo.UpdateColumns(ctx, app.ID, map[string]interface{}{"payment_status": lifecycle.PaymentAbandoned}); err != nil {
			return 0, err
		}
		s.auditSvc.LogAction(ctx, nil, &app.LocalGovernmentID, "APPLICATION_ABANDONED", map[string]interface{}{
			"application_id": app.ID,
			"reference":      app.Reference,
			"payment_status": app.PaymentStatus,
			"submitted_at":   app.SubmittedAt,
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
