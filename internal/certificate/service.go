package certificate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lgcert/indigene-certificate/internal/access"
	"github.com/lgcert/indigene-certificate/internal/apperr"
	"github.com/lgcert/indigene-certificate/internal/auditlog"
	"github.com/lgcert/indigene-certificate/internal/event"
	"github.com/lgcert/indigene-certificate/logger"
	"github.com/lgcert/indigene-certificate/metrics"
)

// Issuer is what the approval flows need from this package.
type Issuer interface {
	Issue(ctx context.Context, in IssueInput) (*Certificate, error)
}

type Service interface {
	Issuer
	ListMine(ctx context.Context, userID uint) ([]Certificate, error)
	Get(ctx context.Context, viewer access.Viewer, id uint) (*Certificate, error)
	Download(ctx context.Context, viewer access.Viewer, id uint) (*Certificate, []byte, error)
	QR(ctx context.Context, viewer access.Viewer, id uint) ([]byte, error)
	Verify(ctx context.Context, certificateID string) (*Verification, error)
	CountIssued(ctx context.Context, localGovernmentID *uint) (int64, error)
}

type service struct {
	repo      Repository
	auditSvc  auditlog.Service
	publisher event.Publisher
	verifyURL func(certificateID string) string
	log       *logger.Logger
	now       func() time.Time
}

func NewService(repo Repository, auditSvc auditlog.Service, publisher event.Publisher, verifyURL func(string) string, log *logger.Logger) Service {
	if log == nil {
		log = logger.Nop()
	}
	return &service{
		repo:      repo,
		auditSvc:  auditSvc,
		publisher: publisher,
		verifyURL: verifyURL,
		log:       log,
		now:       time.Now,
	}
}

// NewCertificateID formats LGC-<LGA code>-<year>-<8 hex>.
func NewCertificateID(lgaCode string, issued time.Time) string {
	code := strings.ToUpper(strings.TrimSpace(lgaCode))
	if code == "" {
		code = "LGA"
	}
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("LGC-%s-%d-%s", code, issued.Year(), suffix)
}

// Issue is idempotent per record: a second call returns the existing certificate.
func (s *service) Issue(ctx context.Context, in IssueInput) (*Certificate, error) {
	if existing, err := s.repo.GetByRecord(ctx, in.RecordType, in.RecordID); err == nil {
		return existing, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	issued := s.now().UTC()
	cert := &Certificate{
		CertificateID:        NewCertificateID(in.LocalGovernmentCode, issued),
		RecordType:           in.RecordType,
		RecordID:             in.RecordID,
		UserID:               in.UserID,
		HolderName:           in.HolderName,
		NIN:                  in.NIN,
		DateOfBirth:          in.DateOfBirth,
		LocalGovernmentID:    in.LocalGovernmentID,
		LocalGovernmentName:  in.LocalGovernmentName,
		LocalGovernmentCode:  in.LocalGovernmentCode,
		State:                in.State,
		Village:              in.Village,
		Digitized:            in.Digitized,
		OldCertificateNumber: in.OldCertificateNumber,
		IssuedAt:             issued,
	}
	if err := s.repo.Create(ctx, cert); err != nil {
		s.auditSvc.LogAction(ctx, &in.ActorID, &in.LocalGovernmentID, "CERTIFICATE_ISSUED", map[string]interface{}{
			"record_type": in.RecordType,
			"record_id":   in.RecordID,
			"error":       err.Error(),
		}, in.IPAddress, auditlog.StatusFailure)
		return nil, fmt.Errorf("issue certificate: %w", err)
	}

	metrics.RecordCertificateIssued()
	s.auditSvc.LogAction(ctx, &in.ActorID, &in.LocalGovernmentID, "CERTIFICATE_ISSUED", map[string]interface{}{
		"certificate_id": cert.CertificateID,
		"record_type":    in.RecordType,
		"record_id":      in.RecordID,
	}, in.IPAddress, auditlog.StatusSuccess)

	e := event.New(event.CertificateIssued, in.RecordType, in.RecordID)
	e.UserID = in.UserID
	e.LocalGovernmentID = in.LocalGovernmentID
	e.HolderName = in.HolderName
	e.CertificateID = cert.CertificateID
	if err := s.publisher.Publish(ctx, e); err != nil {
		s.log.Warnf("certificate %s issued but event not published: %v", cert.CertificateID, err)
	}
	return cert, nil
}

func (s *service) ListMine(ctx context.Context, userID uint) ([]Certificate, error) {
	return s.repo.ListByUser(ctx, userID)
}

func (s *service) Get(ctx context.Context, viewer access.Viewer, id uint) (*Certificate, error) {
	cert, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("certificate %d: %w", id, apperr.ErrNotFound)
		}
		return nil, err
	}
	if !viewer.CanSee(cert.UserID, cert.LocalGovernmentID) {
		return nil, fmt.Errorf("certificate %d: %w", id, apperr.ErrForbidden)
	}
	return cert, nil
}

func (s *service) QR(ctx context.Context, viewer access.Viewer, id uint) ([]byte, error) {
	cert, err := s.Get(ctx, viewer, id)
	if err != nil {
		return nil, err
	}
	return QRCode(Payload(cert, s.verifyURL(cert.CertificateID)))
}

func (s *service) Download(ctx context.Context, viewer access.Viewer, id uint) (*Certificate, []byte, error) {
	cert, err := s.Get(ctx, viewer, id)
	if err != nil {
		return nil, nil, err
	}
	qr, err := QRCode(Payload(cert, s.verifyURL(cert.CertificateID)))
	if err != nil {
		return nil, nil, err
	}
	pdf, err := RenderPDF(cert, qr)
	if err != nil {
		return nil, nil, err
	}
	return cert, pdf, nil
}

// Verify never fails for unknown identifiers; it reports them as invalid.
func (s *service) Verify(ctx context.Context, certificateID string) (*Verification, error) {
	certificateID = strings.ToUpper(strings.TrimSpace(certificateID))
	cert, err := s.repo.GetByCertificateID(ctx, certificateID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &Verification{Valid: false, CertificateID: certificateID}, nil
		}
		return nil, err
	}
	issued := cert.IssuedAt
	return &Verification{
		Valid:           true,
		CertificateID:   cert.CertificateID,
		HolderName:      cert.HolderName,
		LocalGovernment: cert.LocalGovernmentName,
		State:           cert.State,
		IssuedAt:        &issued,
		Digitized:       cert.Digitized,
	}, nil
}

func (s *service) CountIssued(ctx context.Context, localGovernmentID *uint) (int64, error) {
	return s.repo.CountIssued(ctx, localGovernmentID)
}
