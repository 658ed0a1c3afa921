package services

import (
	"context"
	"strings"

	"github.com/lgcert/indigene-certificate/internal/application"
	"github.com/lgcert/indigene-certificate/internal/auditlog"
	"github.com/lgcert/indigene-certificate/internal/certificate"
	"github.com/lgcert/indigene-certificate/internal/digitization"
	"github.com/lgcert/indigene-certificate/internal/dynamicfield"
	"github.com/lgcert/indigene-certificate/internal/identity"
	"github.com/lgcert/indigene-certificate/internal/localgovernment"
	"github.com/lgcert/indigene-certificate/internal/payment"
	"github.com/lgcert/indigene-certificate/internal/portal/apiclient"
	"github.com/lgcert/indigene-certificate/internal/superadmin"
	"github.com/lgcert/indigene-certificate/internal/validation"
	"github.com/lgcert/indigene-certificate/logger"
)

// AuthService owns the session: it is started on login and cleared on logout.
type AuthService struct {
	backend Backend
	session *apiclient.Session
	log     *logger.Logger
}

func NewAuthService(backend Backend, session *apiclient.Session, log *logger.Logger) *AuthService {
	if log == nil {
		log = logger.Nop()
	}
	return &AuthService{backend: backend, session: session, log: log}
}

func (s *AuthService) Register(ctx context.Context, form validation.RegistrationForm) (*apiclient.User, error) {
	if r := validation.ValidateRegistration(form); !r.Valid {
		return nil, r.Err()
	}
	return s.backend.Register(ctx, form)
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*apiclient.User, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return nil, &validation.Error{Field: "email", Message: "Email and password are required"}
	}
	res, err := s.backend.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if err := s.session.Start(res.AccessToken, res.RefreshToken, res.User); err != nil {
		return nil, err
	}
	s.log.Infof("signed in as %s", email)
	return res.User, nil
}

// Logout clears the local session even when the backend call fails.
func (s *AuthService) Logout(ctx context.Context) error {
	err := s.backend.Logout(ctx)
	if cerr := s.session.Clear(); cerr != nil {
		return cerr
	}
	if err != nil && !apiclient.IsCategory(err, apiclient.CategorySessionExpired) {
		s.log.Warnf("logout: %v", err)
	}
	return nil
}

// Me refreshes the cached profile.
func (s *AuthService) Me(ctx context.Context) (*apiclient.User, error) {
	u, err := s.backend.Me(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.session.SetUser(u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *AuthService) Session() *apiclient.Session { return s.session }

type ApplicationService struct {
	backend Backend
}

func NewApplicationService(b Backend) *ApplicationService { return &ApplicationService{backend: b} }

func (s *ApplicationService) Submit(ctx context.Context, in ApplicationSubmission) (*application.Application, error) {
	return s.backend.SubmitApplication(ctx, in)
}

func (s *ApplicationService) Update(ctx context.Context, id uint, in application.UpdateInput) (*application.Application, error) {
	return s.backend.UpdateApplication(ctx, id, in)
}

func (s *ApplicationService) Mine(ctx context.Context) ([]application.Application, error) {
	return s.backend.ListMyApplications(ctx)
}

func (s *ApplicationService) List(ctx context.Context, filter ListFilter) (Page[application.Application], error) {
	return s.backend.ListApplications(ctx, filter)
}

func (s *ApplicationService) Get(ctx context.Context, id uint) (*application.Application, error) {
	return s.backend.GetApplication(ctx, id)
}

func (s *ApplicationService) ChangeStatus(ctx context.Context, id uint, change StatusChange) (*application.Application, error) {
	return s.backend.ChangeApplicationStatus(ctx, id, change)
}

type DigitizationService struct {
	backend Backend
}

func NewDigitizationService(b Backend) *DigitizationService { return &DigitizationService{backend: b} }

func (s *DigitizationService) Submit(ctx context.Context, in DigitizationSubmission) (*digitization.Request, error) {
	return s.backend.SubmitDigitization(ctx, in)
}

func (s *DigitizationService) Update(ctx context.Context, id uint, in digitization.UpdateInput) (*digitization.Request, error) {
	return s.backend.UpdateDigitization(ctx, id, in)
}

func (s *DigitizationService) Finalize(ctx context.Context, id uint, reference string) (*digitization.Request, error) {
	return s.backend.FinalizeDigitization(ctx, id, reference)
}

func (s *DigitizationService) Mine(ctx context.Context) ([]digitization.Request, error) {
	return s.backend.ListMyDigitization(ctx)
}

func (s *DigitizationService) List(ctx context.Context, filter ListFilter) (Page[digitization.Request], error) {
	return s.backend.ListDigitization(ctx, filter)
}

func (s *DigitizationService) ChangeStatus(ctx context.Context, id uint, change StatusChange) (*digitization.Request, error) {
	return s.backend.ChangeDigitizationStatus(ctx, id, change)
}

// IdentityService checks a NIN locally before asking the registry.
type IdentityService struct {
	backend Backend
}

func NewIdentityService(b Backend) *IdentityService { return &IdentityService{backend: b} }

func (s *IdentityService) Verify(ctx context.Context, in identity.VerifyInput) (*identity.Result, error) {
	if r := validation.ValidateNIN(in.NIN); !r.Valid {
		return nil, r.Err()
	}
	return s.backend.VerifyNIN(ctx, in)
}

type PaymentService struct {
	backend Backend
}

func NewPaymentService(b Backend) *PaymentService { return &PaymentService{backend: b} }

func (s *PaymentService) Initialize(ctx context.Context, in payment.InitializeRequest) (*payment.InitializeResponse, error) {
	return s.backend.InitializePayment(ctx, in)
}

func (s *PaymentService) Verify(ctx context.Context, reference string) (*payment.VerifyResponse, error) {
	if strings.TrimSpace(reference) == "" {
		return nil, &validation.Error{Field: "reference", Message: "Payment reference is required"}
	}
	return s.backend.VerifyPayment(ctx, reference)
}

// Fee returns the fee of recordType at lgaID.
func (s *PaymentService) Fee(ctx context.Context, lgaID uint, recordType string) (float64, error) {
	fees, err := s.backend.GetLGAFee(ctx, lgaID)
	if err != nil {
		return 0, err
	}
	if recordType == digitization.RecordType {
		return fees.DigitizationFee, nil
	}
	return fees.ApplicationFee, nil
}

type CertificateService struct {
	backend Backend
}

func NewCertificateService(b Backend) *CertificateService { return &CertificateService{backend: b} }

func (s *CertificateService) Mine(ctx context.Context) ([]certificate.Certificate, error) {
	return s.backend.ListMyCertificates(ctx)
}

func (s *CertificateService) Download(ctx context.Context, id uint) ([]byte, error) {
	return s.backend.DownloadCertificate(ctx, id)
}

// Verify reports an unknown certificate as invalid rather than as an error.
func (s *CertificateService) Verify(ctx context.Context, certificateID string) (*certificate.Verification, error) {
	certificateID = strings.TrimSpace(certificateID)
	if certificateID == "" {
		return nil, &validation.Error{Field: "certificate_id", Message: "Certificate ID is required"}
	}
	v, err := s.backend.VerifyCertificate(ctx, certificateID)
	if apiclient.IsCategory(err, apiclient.CategoryNotFound) {
		return &certificate.Verification{Valid: false, CertificateID: certificateID}, nil
	}
	return v, err
}

// AdminService groups the lg-admin and super-admin operations.
type AdminService struct {
	backend Backend
}

func NewAdminService(b Backend) *AdminService { return &AdminService{backend: b} }

func (s *AdminService) LocalGovernments(ctx context.Context, state string) ([]localgovernment.LocalGovernment, error) {
	return s.backend.ListLocalGovernments(ctx, state)
}

func (s *AdminService) CreateLocalGovernment(ctx context.Context, in localgovernment.Input) (*localgovernment.LocalGovernment, error) {
	return s.backend.CreateLocalGovernment(ctx, in)
}

func (s *AdminService) UpdateLocalGovernment(ctx context.Context, id uint, in localgovernment.Input) (*localgovernment.LocalGovernment, error) {
	return s.backend.UpdateLocalGovernment(ctx, id, in)
}

func (s *AdminService) DeleteLocalGovernment(ctx context.Context, id uint) error {
	return s.backend.DeleteLocalGovernment(ctx, id)
}

func (s *AdminService) Fields(ctx context.Context, lgaID uint) ([]dynamicfield.DynamicField, error) {
	return s.backend.ListDynamicFields(ctx, lgaID)
}

func (s *AdminService) CreateField(ctx context.Context, in dynamicfield.Input) (*dynamicfield.DynamicField, error) {
	return s.backend.CreateDynamicField(ctx, in)
}

func (s *AdminService) UpdateField(ctx context.Context, id uint, in dynamicfield.Input) (*dynamicfield.DynamicField, error) {
	return s.backend.UpdateDynamicField(ctx, id, in)
}

func (s *AdminService) DeleteField(ctx context.Context, id uint) error {
	return s.backend.DeleteDynamicField(ctx, id)
}

func (s *AdminService) AuditLogs(ctx context.Context, filter AuditFilter) (Page[auditlog.AuditLogResponse], error) {
	return s.backend.ListAuditLogs(ctx, filter)
}

func (s *AdminService) Dashboard(ctx context.Context) (*superadmin.Dashboard, error) {
	return s.backend.DashboardStats(ctx)
}
