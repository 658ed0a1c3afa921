package payment

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
	"github.com/lgcert/indigene-certificate/internal/event"
	"github.com/lgcert/indigene-certificate/internal/lifecycle"
	"github.com/lgcert/indigene-certificate/internal/localgovernment"
	"github.com/lgcert/indigene-certificate/logger"
	"github.com/lgcert/indigene-certificate/metrics"
)

// PaymentFetcher is implemented by gateways that can resolve a single captured payment.
type PaymentFetcher interface {
	FetchPayment(paymentID string) (*Verification, error)
}

type Service interface {
	Initialize(ctx context.Context, viewer access.Viewer, req InitializeRequest, ip string) (*InitializeResponse, error)
	// Verify asks the gateway for the charge status and updates the owning record. Repeated calls are safe.
	Verify(ctx context.Context, viewer access.Viewer, reference, ip string) (*VerifyResponse, error)
	Callback(ctx context.Context, req CallbackRequest, ip string) (*VerifyResponse, error)
	// Reconcile is Verify without an acting user, for gateway returns and sweeps.
	Reconcile(ctx context.Context, reference, ip string) (*VerifyResponse, error)
	Get(ctx context.Context, reference string) (*Payment, error)
	ListMine(ctx context.Context, userID uint) ([]Payment, error)
	Revenue(ctx context.Context, localGovernmentID *uint) (float64, error)
}

type Config struct {
	Currency string
	// CallbackURL is where the redirect checkout returns to with ?reference=.
	CallbackURL string
}

type service struct {
	repo      Repository
	gateway   Gateway
	records   map[string]lifecycle.RecordStore
	lgas      localgovernment.Service
	publisher event.Publisher
	auditSvc  auditlog.Service
	cfg       Config
	log       *logger.Logger
	now       func() time.Time
}

func NewService(repo Repository, gateway Gateway, records map[string]lifecycle.RecordStore, lgas localgovernment.Service, publisher event.Publisher, auditSvc auditlog.Service, cfg Config, log *logger.Logger) Service {
	if log == nil {
		log = logger.Nop()
	}
	if cfg.Currency == "" {
		cfg.Currency = "NGN"
	}
	return &service{
		repo:      repo,
		gateway:   gateway,
		records:   records,
		lgas:      lgas,
		publisher: publisher,
		auditSvc:  auditSvc,
		cfg:       cfg,
		log:       log,
		now:       time.Now,
	}
}

func (s *service) store(recordType string) (lifecycle.RecordStore, error) {
	store, ok := s.records[recordType]
	if !ok {
		return nil, fmt.Errorf("unknown record type %q: %w", recordType, apperr.ErrInvalidInput)
	}
	return store, nil
}

func (s *service) fee(ctx context.Context, rec *lifecycle.Record) (float64, error) {
	fees, err := s.lgas.Fees(ctx, rec.LocalGovernmentID)
	if err != nil {
		return 0, err
	}
	if rec.Type == "digitization" {
		return fees.DigitizationFee, nil
	}
	return fees.ApplicationFee, nil
}

func (s *service) Initialize(ctx context.Context, viewer access.Viewer, req InitializeRequest, ip string) (*InitializeResponse, error) {
	store, err := s.store(req.RecordType)
	if err != nil {
		return nil, err
	}
	rec, err := store.Record(ctx, req.RecordID)
	if err != nil {
		return nil, err
	}
	if rec.UserID != viewer.UserID {
		return nil, fmt.Errorf("%s %d: %w", rec.Type, rec.ID, apperr.ErrForbidden)
	}
	if rec.PaymentStatus == lifecycle.PaymentPaid {
		return nil, fmt.Errorf("%s %s is already paid: %w", rec.Type, rec.Reference, apperr.ErrDuplicate)
	}

	amount, err := s.fee(ctx, rec)
	if err != nil {
		return nil, err
	}
	if amount <= 0 {
		return nil, fmt.Errorf("no fee configured for local government %d: %w", rec.LocalGovernmentID, apperr.ErrInvalidInput)
	}

	mode := req.Mode
	if mode != ModeInline {
		mode = ModeRedirect
	}
	reference := lifecycle.NewReference("PAY", s.now())
	callback := req.CallbackURL
	if callback == "" && s.cfg.CallbackURL != "" {
		callback = s.cfg.CallbackURL + "?reference=" + reference
	}

	checkout, err := s.gateway.Initialize(ctx, Charge{
		Reference:     reference,
		Amount:        amount,
		Currency:      s.cfg.Currency,
		Description:   fmt.Sprintf("Indigene certificate %s fee (%s)", rec.Type, rec.Reference),
		CustomerName:  rec.FullName,
		CustomerEmail: rec.Email,
		CallbackURL:   callback,
		Mode:          mode,
	})
	if err != nil {
		metrics.RecordPayment("initialize", false)
		s.auditSvc.LogAction(ctx, &viewer.UserID, &rec.LocalGovernmentID, "PAYMENT_INITIALIZED", map[string]interface{}{
			"record_type": rec.Type,
			"record_id":   rec.ID,
			"amount":      amount,
			"error":       err.Error(),
		}, ip, auditlog.StatusFailure)
		return nil, fmt.Errorf("%v: %w", err, apperr.ErrUnavailable)
	}

	p := &Payment{
		Reference:         reference,
		RecordType:        rec.Type,
		RecordID:          rec.ID,
		UserID:            rec.UserID,
		LocalGovernmentID: rec.LocalGovernmentID,
		Amount:            amount,
		Currency:          s.cfg.Currency,
		Gateway:           s.gateway.Name(),
		Mode:              mode,
		GatewayOrderID:    checkout.GatewayOrderID,
		AuthorizationURL:  checkout.AuthorizationURL,
		Status:            lifecycle.PaymentPending,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to create payment record: %w", err)
	}
	if err := store.SetPaymentStatus(ctx, rec.ID, lifecycle.PaymentPending, reference); err != nil {
		return nil, err
	}

	metrics.RecordPayment("initialize", true)
	s.auditSvc.LogAction(ctx, &viewer.UserID, &rec.LocalGovernmentID, "PAYMENT_INITIALIZED", map[string]interface{}{
		"record_type": rec.Type,
		"record_id":   rec.ID,
		"reference":   reference,
		"amount":      amount,
		"gateway":     p.Gateway,
		"mode":        mode,
	}, ip, auditlog.StatusSuccess)

	return &InitializeResponse{
		Reference:        reference,
		AuthorizationURL: checkout.AuthorizationURL,
		Amount:           amount,
		Currency:         s.cfg.Currency,
		Mode:             mode,
		Key:              checkout.Key,
		OrderID:          checkout.GatewayOrderID,
	}, nil
}

func (s *service) Get(ctx context.Context, reference string) (*Payment, error) {
	p, err := s.repo.GetByReference(ctx, strings.TrimSpace(reference))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("payment %s: %w", reference, apperr.ErrNotFound)
		}
		return nil, err
	}
	return p, nil
}

func (s *service) Verify(ctx context.Context, viewer access.Viewer, reference, ip string) (*VerifyResponse, error) {
	p, err := s.Get(ctx, reference)
	if err != nil {
		return nil, err
	}
	if !viewer.CanSee(p.UserID, p.LocalGovernmentID) {
		return nil, fmt.Errorf("payment %s: %w", reference, apperr.ErrForbidden)
	}
	return s.reconcile(ctx, p, &viewer.UserID, ip)
}

func (s *service) Reconcile(ctx context.Context, reference, ip string) (*VerifyResponse, error) {
	p, err := s.Get(ctx, reference)
	if err != nil {
		return nil, err
	}
	return s.reconcile(ctx, p, nil, ip)
}

func (s *service) reconcile(ctx context.Context, p *Payment, actorID *uint, ip string) (*VerifyResponse, error) {
	if p.Status == lifecycle.PaymentPaid {
		return p.response(), nil
	}
	v, err := s.gateway.Verify(ctx, p.GatewayOrderID, p.Mode)
	if err != nil {
		metrics.RecordPayment("verify", false)
		s.auditSvc.LogAction(ctx, actorID, &p.LocalGovernmentID, "PAYMENT_VERIFICATION_FAILED", map[string]interface{}{
			"reference": p.Reference,
			"error":     err.Error(),
		}, ip, auditlog.StatusFailure)
		return nil, fmt.Errorf("%v: %w", err, apperr.ErrUnavailable)
	}
	if err := s.apply(ctx, p, v, actorID, ip); err != nil {
		return nil, err
	}
	return p.response(), nil
}

func (s *service) Callback(ctx context.Context, req CallbackRequest, ip string) (*VerifyResponse, error) {
	if !s.gateway.VerifySignature(req.OrderID, req.PaymentID, req.Signature) {
		metrics.RecordPayment("callback", false)
		s.auditSvc.LogAction(ctx, nil, nil, "PAYMENT_VERIFICATION_FAILED", map[string]interface{}{
			"order_id":   req.OrderID,
			"payment_id": req.PaymentID,
			"reason":     "invalid payment signature",
		}, ip, auditlog.StatusFailure)
		return nil, fmt.Errorf("invalid payment signature: %w", apperr.ErrInvalidInput)
	}

	p, err := s.repo.GetByGatewayOrderID(ctx, req.OrderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("payment for order %s: %w", req.OrderID, apperr.ErrNotFound)
		}
		return nil, err
	}
	if p.Status == lifecycle.PaymentPaid {
		return p.response(), nil
	}

	var v *Verification
	if fetcher, ok := s.gateway.(PaymentFetcher); ok {
		v, err = fetcher.FetchPayment(req.PaymentID)
	} else {
		v, err = s.gateway.Verify(ctx, p.GatewayOrderID, p.Mode)
	}
	if err != nil {
		metrics.RecordPayment("callback", false)
		return nil, fmt.Errorf("%v: %w", err, apperr.ErrUnavailable)
	}
	if v.GatewayPaymentID == "" {
		v.GatewayPaymentID = req.PaymentID
	}
	if err := s.apply(ctx, p, v, nil, ip); err != nil {
		return nil, err
	}
	return p.response(), nil
}

// apply records the gateway outcome on the payment and its owning record.
func (s *service) apply(ctx context.Context, p *Payment, v *Verification, actorID *uint, ip string) error {
	if v.Status == lifecycle.PaymentPending {
		metrics.RecordPayment("verify", true)
		return nil
	}

	store, err := s.store(p.RecordType)
	if err != nil {
		return err
	}
	p.Status = v.Status
	p.GatewayPaymentID = v.GatewayPaymentID
	p.Method = v.Method
	if v.Status == lifecycle.PaymentPaid {
		now := s.now()
		p.PaidAt = &now
	}
	if err := s.repo.Update(ctx, p); err != nil {
		return err
	}
	rec, err := store.Record(ctx, p.RecordID)
	if err != nil {
		return err
	}
	paid := v.Status == lifecycle.PaymentPaid
	// A paid record is never downgraded, and a superseded reference only
	// reports its own outcome.
	owns := rec.PaymentStatus != lifecycle.PaymentPaid && (paid || rec.PaymentReference == p.Reference)
	if owns {
		if err := store.SetPaymentStatus(ctx, p.RecordID, v.Status, p.Reference); err != nil {
			return err
		}
	} else if paid {
		s.log.Warnf("payment %s captured for %s %d already paid with %s", p.Reference, p.RecordType, p.RecordID, rec.PaymentReference)
	}

	metrics.RecordPayment("verify", paid)
	action, status := "PAYMENT_FAILED", auditlog.StatusFailure
	if paid {
		action, status = "PAYMENT_VERIFIED", auditlog.StatusSuccess
	}
	if actorID == nil {
		actorID = &p.UserID
	}
	s.auditSvc.LogAction(ctx, actorID, &p.LocalGovernmentID, action, map[string]interface{}{
		"reference":          p.Reference,
		"record_type":        p.RecordType,
		"record_id":          p.RecordID,
		"amount":             p.Amount,
		"gateway_payment_id": p.GatewayPaymentID,
		"method":             p.Method,
	}, ip, status)

	if paid && owns {
		s.publishVerified(ctx, store, p)
	}
	return nil
}

func (s *service) publishVerified(ctx context.Context, store lifecycle.RecordStore, p *Payment) {
	e := event.New(event.PaymentVerified, p.RecordType, p.RecordID)
	e.UserID = p.UserID
	e.LocalGovernmentID = p.LocalGovernmentID
	e.Amount = p.Amount
	e.Status = string(p.Status)
	if rec, err := store.Record(ctx, p.RecordID); err == nil {
		e.Reference = rec.Reference
		e.HolderName = rec.FullName
		e.Email = rec.Email
	}
	if err := s.publisher.Publish(ctx, e); err != nil {
		s.log.Warnf("payment %s: %s not published: %v", p.Reference, e.Type, err)
	}
}

func (s *service) ListMine(ctx context.Context, userID uint) ([]Payment, error) {
	return s.repo.ListByUser(ctx, userID)
}

func (s *service) Revenue(ctx context.Context, localGovernmentID *uint) (float64, error) {
	return s.repo.SumPaid(ctx, localGovernmentID)
}
