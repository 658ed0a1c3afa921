package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/lgcert/indigene-certificate/internal/apperr"
	"github.com/lgcert/indigene-certificate/internal/application"
	"github.com/lgcert/indigene-certificate/internal/auditlog"
	"github.com/lgcert/indigene-certificate/internal/auth"
	"github.com/lgcert/indigene-certificate/internal/certificate"
	"github.com/lgcert/indigene-certificate/internal/digitization"
	"github.com/lgcert/indigene-certificate/internal/dynamicfield"
	"github.com/lgcert/indigene-certificate/internal/identity"
	"github.com/lgcert/indigene-certificate/internal/lifecycle"
	"github.com/lgcert/indigene-certificate/internal/localgovernment"
	"github.com/lgcert/indigene-certificate/internal/payment"
	"github.com/lgcert/indigene-certificate/internal/portal/apiclient"
	"github.com/lgcert/indigene-certificate/internal/superadmin"
	"github.com/lgcert/indigene-certificate/internal/validation"
)

type mockUser struct {
	user     apiclient.User
	password string
}

type mockPayment struct {
	payment.Payment
	captured bool
}

// MockBackend keeps every record in memory and answers after a fixed delay.
// Failures carry the same categories as the HTTP path.
type MockBackend struct {
	latency time.Duration
	now     func() time.Time

	// AutoCapture marks payments paid as soon as they are verified.
	AutoCapture bool

	mu        sync.Mutex
	nextID    uint
	current   *apiclient.User
	users     map[string]*mockUser
	apps      map[uint]*application.Application
	digs      map[uint]*digitization.Request
	certs     []certificate.Certificate
	payments  map[string]*mockPayment
	lgas      map[uint]*localgovernment.LocalGovernment
	fields    map[uint]*dynamicfield.DynamicField
	audit     []auditlog.AuditLogResponse
	registry  *identity.MemoryRegistry
	failures  map[string]error
	calls     []string
	initCount map[string]int
}

var _ Backend = (*MockBackend)(nil)

func NewMockBackend(latency time.Duration) *MockBackend {
	m := &MockBackend{
		latency:     latency,
		now:         time.Now,
		AutoCapture: true,
		users:       map[string]*mockUser{},
		apps:        map[uint]*application.Application{},
		digs:        map[uint]*digitization.Request{},
		payments:    map[string]*mockPayment{},
		lgas:        map[uint]*localgovernment.LocalGovernment{},
		fields:      map[uint]*dynamicfield.DynamicField{},
		registry:    identity.NewMemoryRegistry(identity.SampleIdentities()...),
		failures:    map[string]error{},
		initCount:   map[string]int{},
	}
	m.seed()
	return m
}

func (m *MockBackend) id() uint {
	m.nextID++
	return m.nextID
}

func (m *MockBackend) seed() {
	for _, lga := range localgovernment.SampleLocalGovernments() {
		lga := lga
		lga.ID = m.id()
		lga.CreatedAt = m.now()
		m.lgas[lga.ID] = &lga
	}
	m.users["amina@example.com"] = &mockUser{
		user:     apiclient.User{ID: m.id(), FullName: "Amina Bello", Email: "amina@example.com", Phone: "08031234567", Role: auth.RoleApplicant},
		password: "secret123",
	}
	lgaID := uint(1)
	m.users["admin@ikeja.gov.ng"] = &mockUser{
		user: apiclient.User{
			ID: m.id(), FullName: "Ikeja Admin", Email: "admin@ikeja.gov.ng", Role: auth.RoleLGAdmin,
			Permissions:       []auth.PermissionFlag{auth.PermViewApplications, auth.PermReviewApplications, auth.PermViewDigitization},
			LocalGovernmentID: &lgaID,
		},
		password: "secret123",
	}
	m.users["superadmin@lgcert.gov.ng"] = &mockUser{
		user:     apiclient.User{ID: m.id(), FullName: "Super Admin", Email: "superadmin@lgcert.gov.ng", Role: auth.RoleSuperAdmin},
		password: "secret123",
	}
}

// Fail makes every later call of op return err until cleared with a nil err.
func (m *MockBackend) Fail(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.failures, op)
		return
	}
	m.failures[op] = err
}

// Calls lists the operations invoked so far, in order.
func (m *MockBackend) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

// Restore signs the stored user back in, for a process that resumes a saved
// session. Unknown users are ignored.
func (m *MockBackend) Restore(u *apiclient.User) {
	if u == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if known, ok := m.users[strings.ToLower(u.Email)]; ok {
		user := known.user
		m.current = &user
	}
}

// SetPaymentCaptured decides what the next verification of reference reports.
func (m *MockBackend) SetPaymentCaptured(reference string, captured bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.payments[reference]; ok {
		p.captured = captured
	}
}

// call waits out the latency and then takes the lock. The caller must unlock.
func (m *MockBackend) call(ctx context.Context, op string) error {
	if m.latency > 0 {
		t := time.NewTimer(m.latency)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
	m.mu.Lock()
	m.calls = append(m.calls, op)
	if err := m.failures[op]; err != nil {
		m.mu.Unlock()
		return err
	}
	return nil
}

func mockErr(status int, msg string) error {
	b, _ := json.Marshal(map[string]string{"error": msg})
	return apiclient.MapError(status, b)
}

func validationErr(r validation.Result) error {
	b, _ := json.Marshal(map[string]interface{}{
		"error":  r.Message,
		"errors": map[string][]string{r.Field: {r.Message}},
	})
	return apiclient.MapError(http.StatusBadRequest, b)
}

func (m *MockBackend) requireUser() (*apiclient.User, error) {
	if m.current == nil {
		return nil, apiclient.NewError(apiclient.CategorySessionExpired, nil)
	}
	return m.current, nil
}

func (m *MockBackend) logAction(action, status string, lgaID *uint) {
	var uid *uint
	if m.current != nil {
		id := m.current.ID
		uid = &id
	}
	m.audit = append(m.audit, auditlog.AuditLogResponse{
		ID: uint(len(m.audit) + 1), UserID: uid, LocalGovernmentID: lgaID,
		Action: action, Status: status, Details: "{}", CreatedAt: m.now(),
	})
}

func (m *MockBackend) Register(ctx context.Context, form validation.RegistrationForm) (*apiclient.User, error) {
	if err := m.call(ctx, "Register"); err != nil {
		return nil, err
	}
	defer m.mu.Unlock()
	if r := validation.ValidateRegistration(form); !r.Valid {
		return nil, validationErr(r)
	}
	email := strings.ToLower(strings.TrimSpace(form.Email))
	if _, ok := m.users[email]; ok {
		return nil, mockErr(http.StatusConflict, "Email already registered")
	}
	u := &mockUser{user: apiclient.User{ID: m.id(), FullName: form.FullName, Email: email, Phone: form.Phone, Role: auth.RoleApplicant}, password: form.Password}
	m.users[email] = u
	out := u.user
	return &out, nil
}

func (m *MockBackend) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	if err := m.call(ctx, "Login"); err != nil {
		return nil, err
	}
	defer m.mu.Unlock()
	u, ok := m.users[strings.ToLower(strings.TrimSpace(email))]
	if !ok || u.password != password {
		return nil, apiclient.NewError(apiclient.CategoryInvalidCredentials, nil)
	}
	user := u.user
	m.current = &user
	return &LoginResult{AccessToken: "mock-access-" + uuid.NewString(), RefreshToken: "mock-refresh-" + uuid.NewString(), User: &user}, nil
}

func (m *MockBackend) Me(ctx context.Context) (*apiclient.User, error) {
	if err := m.call(ctx, "Me"); err != nil {
		return nil, err
	}
	defer m.mu.Unlock()
	return m.requireUser()
}

func (m *MockBackend) Logout(ctx context.Context) error {
	if err := m.call(ctx, "Logout"); err != nil {
		return err
	}
	defer m.mu.Unlock()
	m.current = nil
	return nil
}

// lga returns the named local government or a not-found error. Caller holds mu.
func (m *MockBackend) lga(id uint) (*localgovernment.LocalGovernment, error) {
	l, ok := m.lgas[id]
	if !ok || !l.IsActive {
		return nil, mockErr(http.StatusNotFound, "Local government not found")
	}
	return l, nil
}

func reference(prefix string, now time.Time) string {
	return fmt.Sprintf("%s-%s-%s", prefix, now.Format("20060102"), strings.ToUpper(uuid.NewString()[:6]))
}

func (m *MockBackend) SubmitApplication(ctx context.Context, in ApplicationSubmission) (*application.Application, error) {
	if err := m.call(ctx, "SubmitApplication"); err != nil {
		return nil, err
	}
	defer m.mu.Unlock()
	user, err := m.requireUser()
	if err != nil {
		return nil, err
	}
	if r := validation.ValidateApplicationPersonal(in.Form); !r.Valid {
		return nil, validationErr(r)
	}
	if in.Photo == nil {
		return nil, validationErr(validation.Result{Field: "photo", Message: "Passport photograph is required"})
	}
	if in.IDSlip == nil {
		return nil, validationErr(validation.Result{Field: "id_slip", Message: "NIN slip is required"})
	}
	if r := validation.ApplicationPhoto.Check(in.Photo.Type, in.Photo.Size); !r.Valid {
		return nil, validationErr(r)
	}
	if r := validation.ApplicationIDSlip.Check(in.IDSlip.Type, in.IDSlip.Size); !r.Valid {
		return nil, validationErr(r)
	}
	lga, err := m.lga(in.Form.LocalGovernmentID)
	if err != nil {
		return nil, err
	}

	now := m.now()
	f := in.Form
	app := &application.Application{
		ID: m.id(), Reference: reference("APP", now), UserID: user.ID,
		FullName: f.FullName, NIN: f.NIN, DateOfBirth: f.DateOfBirth, State: f.State,
		LocalGovernmentID: lga.ID, LocalGovernmentName: lga.Name, Village: f.Village,
		Phone: f.Phone, Email: f.Email,
		Status: lifecycle.StatusPending, PaymentStatus: lifecycle.PaymentUnpaid,
		SubmittedAt: now, CreatedAt: now, UpdatedAt: now,
	}
	m.apps[app.ID] = app
	m.logAction("APPLICATION_SUBMITTED", auditlog.StatusSuccess, &app.LocalGovernmentID)
	out := *app
	return &out, nil
}

func (m *MockBackend) ownApplication(id uint) (*application.Application, error) {
	user, err := m.requireUser()
	if err != nil {
		return nil, err
	}
	app, ok := m.apps[id]
	if !ok {
		return nil, mockErr(http.StatusNotFound, "Application not found")
	}
	if user.Role == auth.RoleApplicant && app.UserID != user.ID {
		return nil, mockErr(http.StatusForbidden, "Not your application")
	}
	return app, nil
}

func (m *MockBackend) UpdateApplication(ctx context.Context, id uint, in application.UpdateInput) (*application.Application, error) {
	if err := m.call(ctx, "UpdateApplication"); err != nil {
		return nil, err
	}
	defer m.mu.Unlock()
	app, err := m.ownApplication(id)
	if err != nil {
		return nil, err
	}
	if app.Status != lifecycle.StatusPending {
		return nil, mockErr(http.StatusConflict, "Only pending applications can be edited")
	}
	if in.Address != "" {
		app.Address = in.Address
	}
	if app.Address == "" {
		return nil, validationErr(validation.ValidateRequired("Address", ""))
	}
	if in.Landmark != "" {
		app.Landmark = in.Landmark
	}
	if in.Phone != "" {
		app.Phone = in.Phone
	}
	if in.Email != "" {
		app.Email = in.Email
	}
	if len(in.ExtraFields) > 0 {
		app.SetExtra(in.ExtraFields)
	}
	app.UpdatedAt = m.now()
	out := *app
	return &out, nil
}

func (m *MockBackend) ListMyApplications(ctx context.Context) ([]application.Application, error) {
	if err := m.call(ctx, "ListMyApplications"); err != nil {
		return nil, err
	}
	defer m.mu.Unlock()
	user, err := m.requireUser()
	if err != nil {
		return nil, err
	}
	out := []application.Application{}
	for _, a := range m.apps {
		if a.UserID == user.ID {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *MockBackend) ListApplications(ctx context.Context, filter ListFilter) (Page[application.Application], error) {
	if err := m.call(ctx, "ListApplications"); err != nil {
		return Page[application.Application]{}, err
	}
	defer m.mu.Unlock()
	if _, err := m.requireUser(); err != nil {
		return Page[application.Application]{}, err
	}
	var all []application.Application
	for _, a := range m.apps {
		if matches(filter, string(a.Status), string(a.PaymentStatus), a.LocalGovernmentID, a.FullName, a.NIN, a.Reference) {
			all = append(all, *a)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })
	return paginate(all, filter.Page, filter.PageSize), nil
}

func matches(f ListFilter, status, paymentStatus string, lgaID uint, haystack ...string) bool {
	if f.Status != "" && f.Status != status {
		return false
	}
	if f.PaymentStatus != "" && f.PaymentStatus != paymentStatus {
		return false
	}
	if f.LocalGovernmentID > 0 && f.LocalGovernmentID != lgaID {
		return false
	}
	if f.Search == "" {
		return true
	}
	needle := strings.ToLower(f.Search)
	for _, h := range haystack {
		if strings.Contains(strings.ToLower(h), needle) {
			return true
		}
	}
	return false
}

func paginate[T any](all []T, page, size int) Page[T] {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 10
	}
	out := Page[T]{Items: []T{}, Count: int64(len(all))}
	start := (page - 1) * size
	if start < len(all) {
		end := start + size
		if end > len(all) {
			end = len(all)
		}
		out.Items = all[start:end]
	}
	if start+size < len(all) {
		out.Next = fmt.Sprintf("?page=%d", page+1)
	}
	if page > 1 {
		out.Previous = fmt.Sprintf("?page=%d", page-1)
	}
	return out
}

func (m *MockBackend) GetApplication(ctx context.Context, id uint) (*application.Application, error) {
	if err := m.call(ctx, "GetApplication"); err != nil {
		return nil, err
	}
	defer m.mu.Unlock()
	app, err := m.ownApplication(id)
	if err != nil {
		return nil, err
	}
	out := *app
	return &out, nil
}

func (m *MockBackend) checkTransition(from lifecycle.Status, change StatusChange) (lifecycle.Status, error) {
	user, err := m.requireUser()
	if err != nil {
		return "", err
	}
	if user.Role == auth.RoleApplicant {
		return "", mockErr(http.StatusForbidden, "Administrators only")
	}
	to, err := lifecycle.ParseStatus(change.Status)
	if err != nil {
		return "", mockErr(http.StatusBadRequest, err.Error())
	}
	if to == lifecycle.StatusRejected && strings.TrimSpace(change.Note) == "" {
		return "", validationErr(validation.Result{Field: "note", Message: "A note is required when rejecting"})
	}
	if err := lifecycle.Check(from, to); err != nil {
		return "", mockErr(http.StatusConflict, err.Error())
	}
	return to, nil
}

func (m *MockBackend) issue(recordType string, recordID, userID, lgaID uint, holder, nin string, digitized bool) string {
	lga := m.lgas[lgaID]
	code := "LGA"
	name := ""
	if lga != nil {
		code, name = lga.Code, lga.Name
	}
	now := m.now()
	cert := certificate.Certificate{
		ID: m.id(), CertificateID: fmt.Sprintf("LGC-%s-%d-%s", code, now.Year(), strings.ToUpper(uuid.NewString()[:8])),
		RecordType: recordType, RecordID: recordID, UserID: userID, HolderName: holder, NIN: nin,
		LocalGovernmentID: lgaID, LocalGovernmentName: name, LocalGovernmentCode: code,
		Digitized: digitized, IssuedAt: now, CreatedAt: now,
	}
	m.certs = append(m.certs, cert)
	return cert.CertificateID
}

func (m *MockBackend) ChangeApplicationStatus(ctx context.Context, id uint, change StatusChange) (*application.Application, error) {
	if err := m.call(ctx, "ChangeApplicationStatus"); err != nil {
		return nil, err
	}
	defer m.mu.Unlock()
	app, ok := m.apps[id]
	if !ok {
		return nil, mockErr(http.StatusNotFound, "Application not found")
	}
	to, err := m.checkTransition(app.Status, change)
	if err != nil {
		return nil, err
	}
	if to == lifecycle.StatusDigitization {
		return nil, mockErr(http.StatusConflict, "Applications move to digitization through a digitization request")
	}
	if to == lifecycle.StatusApproved && app.PaymentStatus != lifecycle.PaymentPaid {
		return nil, mockErr(http.StatusPaymentRequired, "Application has no verified payment")
	}
	now := m.now()
	app.Status, app.ReviewNote, app.ProcessedAt = to, change.Note, &now
	if to == lifecycle.StatusApproved {
		app.CertificateID = m.issue(application.RecordType, app.ID, app.UserID, app.LocalGovernmentID, app.FullName, app.NIN, false)
	}
	m.logAction("APPLICATION_STATUS_CHANGED", auditlog.StatusSuccess, &app.LocalGovernmentID)
	out := *app
	return &out, nil
}

func (m *MockBackend) SubmitDigitization(ctx context.Context, in DigitizationSubmission) (*digitization.Request, error) {
	if err := m.call(ctx, "SubmitDigitization"); err != nil {
		return nil, err
	}
	defer m.mu.Unlock()
	user, err := m.requireUser()
	if err != nil {
		return nil, err
	}
	if r := validation.ValidateDigitization(in.Form); !r.Valid {
		return nil, validationErr(r)
	}
	if in.Photo == nil || in.Scan == nil {
		return nil, validationErr(validation.Result{Field: "scan", Message: "Passport photograph and certificate scan are required"})
	}
	if r := validation.DigitizationPhoto.Check(in.Photo.Type, in.Photo.Size); !r.Valid {
		return nil, validationErr(r)
	}
	if r := validation.DigitizationScan.Check(in.Scan.Type, in.Scan.Size); !r.Valid {
		return nil, validationErr(r)
	}
	sizes := []int64{in.Photo.Size, in.Scan.Size}
	if in.IDSlip != nil {
		if r := validation.DigitizationIDSlip.Check(in.IDSlip.Type, in.IDSlip.Size); !r.Valid {
			return nil, validationErr(r)
		}
		sizes = append(sizes, in.IDSlip.Size)
	}
	if r := validation.CheckAggregate(validation.DigitizationMaxTotal, sizes...); !r.Valid {
		return nil, validationErr(r)
	}
	lga, err := m.lga(in.Form.LocalGovernmentID)
	if err != nil {
		return nil, err
	}

	now := m.now()
	f := in.Form
	req := &digitization.Request{
		ID: m.id(), Reference: reference("DIG", now), UserID: user.ID,
		FullName: f.FullName, NIN: f.NIN, DateOfBirth: f.DateOfBirth, State: f.State,
		LocalGovernmentID: lga.ID, LocalGovernmentName: lga.Name, Village: f.Village,
		Phone: f.Phone, Email: f.Email, Address: f.Address,
		OldCertificateNumber: strings.ToUpper(f.OldCertificateNumber), IssueYear: f.IssueYear,
		ApplicationReference: in.ApplicationReference,
		Status:               lifecycle.StatusPending, PaymentStatus: lifecycle.PaymentUnpaid,
		SubmittedAt: now, CreatedAt: now, UpdatedAt: now,
	}
	m.digs[req.ID] = req
	m.logAction("DIGITIZATION_SUBMITTED", auditlog.StatusSuccess, &req.LocalGovernmentID)
	out := *req
	return &out, nil
}

func (m *MockBackend) ownDigitization(id uint) (*digitization.Request, error) {
	user, err := m.requireUser()
	if err != nil {
		return nil, err
	}
	req, ok := m.digs[id]
	if !ok {
		return nil, mockErr(http.StatusNotFound, "Digitization request not found")
	}
	if user.Role == auth.RoleApplicant && req.UserID != user.ID {
		return nil, mockErr(http.StatusForbidden, "Not your request")
	}
	return req, nil
}

func (m *MockBackend) UpdateDigitization(ctx context.Context, id uint, in digitization.UpdateInput) (*digitization.Request, error) {
	if err := m.call(ctx, "UpdateDigitization"); err != nil {
		return nil, err
	}
	defer m.mu.Unlock()
	req, err := m.ownDigitization(id)
	if err != nil {
		return nil, err
	}
	if req.Status != lifecycle.StatusPending || req.Finalized {
		return nil, mockErr(http.StatusConflict, "Only pending requests can be edited")
	}
	if in.Address != "" {
		req.Address = in.Address
	}
	if in.Village != "" {
		req.Village = in.Village
	}
	if in.Phone != "" {
		req.Phone = in.Phone
	}
	if in.Email != "" {
		req.Email = in.Email
	}
	req.UpdatedAt = m.now()
	out := *req
	return &out, nil
}

func (m *MockBackend) FinalizeDigitization(ctx context.Context, id uint, paymentReference string) (*digitization.Request, error) {
	if err := m.call(ctx, "FinalizeDigitization"); err != nil {
		return nil, err
	}
	defer m.mu.Unlock()
	req, err := m.ownDigitization(id)
	if err != nil {
		return nil, err
	}
	if req.Finalized {
		out := *req
		return &out, nil
	}
	if req.PaymentStatus != lifecycle.PaymentPaid || req.PaymentReference != paymentReference {
		return nil, mockErr(http.StatusPaymentRequired, "Payment has not been verified")
	}
	now := m.now()
	req.Finalized, req.FinalizedAt = true, &now
	out := *req
	return &out, nil
}

func (m *MockBackend) ListMyDigitization(ctx context.Context) ([]digitization.Request, error) {
	if err := m.call(ctx, "ListMyDigitization"); err != nil {
		return nil, err
	}
	defer m.mu.Unlock()
	user, err := m.requireUser()
	if err != nil {
		return nil, err
	}
	out := []digitization.Request{}
	for _, r := range m.digs {
		if r.UserID == user.ID {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *MockBackend) ListDigitization(ctx context.Context, filter ListFilter) (Page[digitization.Request], error) {
	if err := m.call(ctx, "ListDigitization"); err != nil {
		return Page[digitization.Request]{}, err
	}
	defer m.mu.Unlock()
	if _, err := m.requireUser(); err != nil {
		return Page[digitization.Request]{}, err
	}
	var all []digitization.Request
	for _, r := range m.digs {
		if matches(filter, string(r.Status), string(r.PaymentStatus), r.LocalGovernmentID, r.FullName, r.NIN, r.Reference, r.OldCertificateNumber) {
			all = append(all, *r)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })
	return paginate(all, filter.Page, filter.PageSize), nil
}

func (m *MockBackend) ChangeDigitizationStatus(ctx context.Context, id uint, change StatusChange) (*digitization.Request, error) {
	if err := m.call(ctx, "ChangeDigitizationStatus"); err != nil {
		return nil, err
	}
	defer m.mu.Unlock()
	req, ok := m.digs[id]
	if !ok {
		return nil, mockErr(http.StatusNotFound, "Digitization request not found")
	}
	to, err := m.checkTransition(req.Status, change)
	if err != nil {
		return nil, err
	}
	if to == lifecycle.StatusDigitization {
		return nil, mockErr(http.StatusConflict, "Digitization requests are approved or rejected")
	}
	if to == lifecycle.StatusApproved && (!req.Finalized || req.PaymentStatus != lifecycle.PaymentPaid) {
		return nil, mockErr(http.StatusPaymentRequired, "Request is not finalized with a verified payment")
	}
	now := m.now()
	req.Status, req.ReviewNote, req.ProcessedAt = to, change.Note, &now
	if to == lifecycle.StatusApproved {
		req.CertificateID = m.issue(digitization.RecordType, req.ID, req.UserID, req.LocalGovernmentID, req.FullName, req.NIN, true)
	}
	m.logAction("DIGITIZATION_STATUS_CHANGED", auditlog.StatusSuccess, &req.LocalGovernmentID)
	out := *req
	return &out, nil
}

func (m *MockBackend) VerifyNIN(ctx context.Context, in identity.VerifyInput) (*identity.Result, error) {
	if err := m.call(ctx, "VerifyNIN"); err != nil {
		return nil, err
	}
	defer m.mu.Unlock()
	if _, err := m.requireUser(); err != nil {
		return nil, err
	}
	nin := strings.TrimSpace(in.NIN)
	if r := validation.ValidateNIN(nin); !r.Valid {
		return nil, validationErr(r)
	}

	var holder, recordNIN string
	var markVerified func()
	switch in.RecordType {
	case "":
	case application.RecordType:
		a, err := m.ownApplication(in.RecordID)
		if err != nil {
			return nil, err
		}
		holder, recordNIN, markVerified = a.FullName, a.NIN, func() { a.NINVerified = true }
	case digitization.RecordType:
		r, err := m.ownDigitization(in.RecordID)
		if err != nil {
			return nil, err
		}
		holder, recordNIN, markVerified = r.FullName, r.NIN, func() { r.NINVerified = true }
	default:
		return nil, validationErr(validation.Result{Field: "record_type", Message: "Unknown record type " + in.RecordType})
	}
	if markVerified != nil && recordNIN != nin {
		return nil, validationErr(validation.Result{Field: "nin", Message: "NIN does not match the submitted record"})
	}

	id, err := m.registry.Lookup(ctx, nin)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, mockErr(http.StatusNotFound, "NIN not found in the registry")
	}
	if err != nil {
		return nil, mockErr(http.StatusBadGateway, err.Error())
	}
	result := &identity.Result{Status: identity.StatusSuccess, Message: "NIN verified successfully", NIN: nin, FullName: id.FullName(), RecordType: in.RecordType, RecordID: in.RecordID}
	if markVerified != nil && !identity.NameMatches(holder, *id) {
		result.Status = identity.StatusMismatch
		result.Message = "Name on the record does not match the NIN registry"
		return result, nil
	}
	if markVerified != nil {
		markVerified()
	}
	result.Verified = true
	return result, nil
}

func (m *MockBackend) record(recordType string, id uint) (lgaID uint, status *lifecycle.PaymentStatus, ref *string, fee func(*localgovernment.LocalGovernment) float64, err error) {
	switch recordType {
	case application.RecordType:
		if a, ok := m.apps[id]; ok {
			return a.LocalGovernmentID, &a.PaymentStatus, &a.PaymentReference, func(l *localgovernment.LocalGovernment) float64 { return l.ApplicationFee }, nil
		}
	case digitization.RecordType:
		if r, ok := m.digs[id]; ok {
			return r.LocalGovernmentID, &r.PaymentStatus, &r.PaymentReference, func(l *localgovernment.LocalGovernment) float64 { return l.DigitizationFee }, nil
		}
	default:
		return 0, nil, nil, nil, mockErr(http.StatusBadRequest, "Unknown record type "+recordType)
	}
	return 0, nil, nil, nil, mockErr(http.StatusNotFound, "Record not found")
}

func (m *MockBackend) InitializePayment(ctx context.Context, in payment.InitializeRequest) (*payment.InitializeResponse, error) {
	if err := m.call(ctx, "InitializePayment"); err != nil {
		return nil, err
	}
	defer m.mu.Unlock()
	user, err := m.requireUser()
	if err != nil {
		return nil, err
	}
	lgaID, status, ref, fee, err := m.record(in.RecordType, in.RecordID)
	if err != nil {
		return nil, err
	}
	if *status == lifecycle.PaymentPaid {
		return nil, mockErr(http.StatusConflict, "Record is already paid")
	}
	lga := m.lgas[lgaID]
	amount := fee(lga)
	m.initCount[in.RecordType]++
	now := m.now()
	p := &mockPayment{Payment: payment.Payment{
		ID: m.id(), Reference: reference("PAY", now), RecordType: in.RecordType, RecordID: in.RecordID,
		UserID: user.ID, LocalGovernmentID: lgaID, Amount: amount, Currency: "NGN", Gateway: "mock",
		Mode: "redirect", Status: lifecycle.PaymentPending, CreatedAt: now, UpdatedAt: now,
	}, captured: m.AutoCapture}
	p.AuthorizationURL = "https://checkout.mock/pay/" + p.Reference
	m.payments[p.Reference] = p
	*status, *ref = lifecycle.PaymentPending, p.Reference
	return &payment.InitializeResponse{Reference: p.Reference, AuthorizationURL: p.AuthorizationURL, Amount: amount, Currency: "NGN", Mode: "redirect"}, nil
}

func (m *MockBackend) VerifyPayment(ctx context.Context, reference string) (*payment.VerifyResponse, error) {
	if err := m.call(ctx, "VerifyPayment"); err != nil {
		return nil, err
	}
	defer m.mu.Unlock()
	p, ok := m.payments[reference]
	if !ok {
		return nil, mockErr(http.StatusNotFound, "Payment not found")
	}
	resp := &payment.VerifyResponse{Reference: p.Reference, Amount: p.Amount, Currency: p.Currency, RecordType: p.RecordType, RecordID: p.RecordID}
	if !p.captured {
		resp.Status, resp.PaymentStatus = "pending", lifecycle.PaymentPending
		return resp, nil
	}
	if p.Status != lifecycle.PaymentPaid {
		now := m.now()
		p.Status, p.PaidAt = lifecycle.PaymentPaid, &now
		if _, status, ref, _, err := m.record(p.RecordType, p.RecordID); err == nil {
			*status, *ref = lifecycle.PaymentPaid, p.Reference
		}
	}
	resp.Status, resp.PaymentStatus, resp.PaidAt = "success", lifecycle.PaymentPaid, p.PaidAt
	return resp, nil
}

func (m *MockBackend) ListMyCertificates(ctx context.Context) ([]certificate.Certificate, error) {
	if err := m.call(ctx, "ListMyCertificates"); err != nil {
		return nil, err
	}
	defer m.mu.Unlock()
	user, err := m.requireUser()
	if err != nil {
		return nil, err
	}
	out := []certificate.Certificate{}
	for _, c := range m.certs {
		if c.UserID == user.ID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *MockBackend) DownloadCertificate(ctx context.Context, id uint) ([]byte, error) {
	if err := m.call(ctx, "DownloadCertificate"); err != nil {
		return nil, err
	}
	defer m.mu.Unlock()
	user, err := m.requireUser()
	if err != nil {
		return nil, err
	}
	for _, c := range m.certs {
		if c.ID == id {
			if user.Role == auth.RoleApplicant && c.UserID != user.ID {
				return nil, mockErr(http.StatusForbidden, "Not your certificate")
			}
			return []byte("%PDF-1.4\n% " + c.CertificateID + "\n%%EOF\n"), nil
		}
	}
	return nil, mockErr(http.StatusNotFound, "Certificate not found")
}

func (m *MockBackend) VerifyCertificate(ctx context.Context, certificateID string) (*certificate.Verification, error) {
	if err := m.call(ctx, "VerifyCertificate"); err != nil {
		return nil, err
	}
	defer m.mu.Unlock()
	for _, c := range m.certs {
		if strings.EqualFold(c.CertificateID, certificateID) {
			issued := c.IssuedAt
			return &certificate.Verification{Valid: true, CertificateID: c.CertificateID, HolderName: c.HolderName, LocalGovernment: c.LocalGovernmentName, IssuedAt: &issued, Digitized: c.Digitized}, nil
		}
	}
	return nil, mockErr(http.StatusNotFound, "Certificate not found")
}

func (m *MockBackend) ListLocalGovernments(ctx context.Context, state string) ([]localgovernment.LocalGovernment, error) {
	if err := m.call(ctx, "ListLocalGovernments"); err != nil {
		return nil, err
	}
	defer m.mu.Unlock()
	out := []localgovernment.LocalGovernment{}
	for _, l := range m.lgas {
		if state == "" || strings.EqualFold(l.State, state) {
			out = append(out, *l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *MockBackend) GetLGAFee(ctx context.Context, id uint) (*localgovernment.Fees, error) {
	if err := m.call(ctx, "GetLGAFee"); err != nil {
		return nil, err
	}
	defer m.mu.Unlock()
	l, err := m.lga(id)
	if err != nil {
		return nil, err
	}
	return &localgovernment.Fees{LocalGovernmentID: l.ID, ApplicationFee: l.ApplicationFee, DigitizationFee: l.DigitizationFee}, nil
}

func (m *MockBackend) requireRole(role string) error {
	user, err := m.requireUser()
	if err != nil {
		return err
	}
	if user.Role != role && user.Role != auth.RoleSuperAdmin {
		return mockErr(http.StatusForbidden, "Insufficient permissions")
	}
	return nil
}

func (m *MockBackend) CreateLocalGovernment(ctx context.Context, in localgovernment.Input) (*localgovernment.LocalGovernment, error) {
	if err := m.call(ctx, "CreateLocalGovernment"); err != nil {
		return nil, err
	}
	defer m.mu.Unlock()
	if err := m.requireRole(auth.RoleSuperAdmin); err != nil {
		return nil, err
	}
	for _, l := range m.lgas {
		if strings.EqualFold(l.Code, in.Code) {
			return nil, mockErr(http.StatusConflict, "Local government code already exists")
		}
	}
	now := m.now()
	l := &localgovernment.LocalGovernment{ID: m.id(), Name: in.Name, State: in.State, Code: strings.ToUpper(in.Code), ApplicationFee: in.ApplicationFee, DigitizationFee: in.DigitizationFee, IsActive: in.IsActive == nil || *in.IsActive, CreatedAt: now, UpdatedAt: now}
	m.lgas[l.ID] = l
	out := *l
	return &out, nil
}

func (m *MockBackend) UpdateLocalGovernment(ctx context.Context, id uint, in localgovernment.Input) (*localgovernment.LocalGovernment, error) {
	if err := m.call(ctx, "UpdateLocalGovernment"); err != nil {
		return nil, err
	}
	defer m.mu.Unlock()
	if err := m.requireRole(auth.RoleSuperAdmin); err != nil {
		return nil, err
	}
	l, ok := m.lgas[id]
	if !ok {
		return nil, mockErr(http.StatusNotFound, "Local government not found")
	}
	l.Name, l.State, l.Code = in.Name, in.State, strings.ToUpper(in.Code)
	l.ApplicationFee, l.DigitizationFee = in.ApplicationFee, in.DigitizationFee
	if in.IsActive != nil {
		l.IsActive = *in.IsActive
	}
	l.UpdatedAt = m.now()
	out := *l
	return &out, nil
}

func (m *MockBackend) DeleteLocalGovernment(ctx context.Context, id uint) error {
	if err := m.call(ctx, "DeleteLocalGovernment"); err != nil {
		return err
	}
	defer m.mu.Unlock()
	if err := m.requireRole(auth.RoleSuperAdmin); err != nil {
		return err
	}
	if _, ok := m.lgas[id]; !ok {
		return mockErr(http.StatusNotFound, "Local government not found")
	}
	delete(m.lgas, id)
	return nil
}

func (m *MockBackend) ListDynamicFields(ctx context.Context, lgaID uint) ([]dynamicfield.DynamicField, error) {
	if err := m.call(ctx, "ListDynamicFields"); err != nil {
		return nil, err
	}
	defer m.mu.Unlock()
	out := []dynamicfield.DynamicField{}
	for _, f := range m.fields {
		if f.LocalGovernmentID == lgaID {
			out = append(out, *f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

// fieldScope resolves which local government an lg-admin may edit.
func (m *MockBackend) fieldScope(requested uint) (uint, error) {
	if err := m.requireRole(auth.RoleLGAdmin); err != nil {
		return 0, err
	}
	if m.current.Role == auth.RoleLGAdmin {
		if !m.current.Has(auth.PermManageFields) {
			return 0, mockErr(http.StatusForbidden, "Missing permission manage_fields")
		}
		return *m.current.LocalGovernmentID, nil
	}
	if requested == 0 {
		return 0, validationErr(validation.Result{Field: "local_government_id", Message: "local_government_id is required"})
	}
	return requested, nil
}

func fieldFromInput(f *dynamicfield.DynamicField, in dynamicfield.Input) error {
	if !in.Kind.Valid() {
		return validationErr(validation.Result{Field: "kind", Message: "Unknown field kind " + string(in.Kind)})
	}
	if r := validation.ValidateRequired("Label", in.Label); !r.Valid {
		return validationErr(r)
	}
	f.Label, f.Kind, f.Required, f.Position = in.Label, in.Kind, in.Required, in.Position
	f.Key = in.Key
	if f.Key == "" {
		f.Key = validation.FieldKey(in.Label)
	}
	f.Options = nil
	if len(in.Options) > 0 {
		b, _ := json.Marshal(in.Options)
		f.Options = datatypes.JSON(b)
	}
	return nil
}

func (m *MockBackend) CreateDynamicField(ctx context.Context, in dynamicfield.Input) (*dynamicfield.DynamicField, error) {
	if err := m.call(ctx, "CreateDynamicField"); err != nil {
		return nil, err
	}
	defer m.mu.Unlock()
	lgaID, err := m.fieldScope(in.LocalGovernmentID)
	if err != nil {
		return nil, err
	}
	f := &dynamicfield.DynamicField{ID: m.id(), LocalGovernmentID: lgaID, CreatedBy: m.current.ID, CreatedAt: m.now()}
	if err := fieldFromInput(f, in); err != nil {
		return nil, err
	}
	for _, other := range m.fields {
		if other.LocalGovernmentID == lgaID && other.Key == f.Key {
			return nil, mockErr(http.StatusConflict, "Field key already exists")
		}
	}
	m.fields[f.ID] = f
	out := *f
	return &out, nil
}

func (m *MockBackend) UpdateDynamicField(ctx context.Context, id uint, in dynamicfield.Input) (*dynamicfield.DynamicField, error) {
	if err := m.call(ctx, "UpdateDynamicField"); err != nil {
		return nil, err
	}
	defer m.mu.Unlock()
	f, ok := m.fields[id]
	if !ok {
		return nil, mockErr(http.StatusNotFound, "Field not found")
	}
	lgaID, err := m.fieldScope(f.LocalGovernmentID)
	if err != nil {
		return nil, err
	}
	if lgaID != f.LocalGovernmentID {
		return nil, mockErr(http.StatusForbidden, "Field belongs to another local government")
	}
	if err := fieldFromInput(f, in); err != nil {
		return nil, err
	}
	f.UpdatedAt = m.now()
	out := *f
	return &out, nil
}

func (m *MockBackend) DeleteDynamicField(ctx context.Context, id uint) error {
	if err := m.call(ctx, "DeleteDynamicField"); err != nil {
		return err
	}
	defer m.mu.Unlock()
	f, ok := m.fields[id]
	if !ok {
		return mockErr(http.StatusNotFound, "Field not found")
	}
	lgaID, err := m.fieldScope(f.LocalGovernmentID)
	if err != nil {
		return err
	}
	if lgaID != f.LocalGovernmentID {
		return mockErr(http.StatusForbidden, "Field belongs to another local government")
	}
	delete(m.fields, id)
	return nil
}

func (m *MockBackend) ListAuditLogs(ctx context.Context, filter AuditFilter) (Page[auditlog.AuditLogResponse], error) {
	if err := m.call(ctx, "ListAuditLogs"); err != nil {
		return Page[auditlog.AuditLogResponse]{}, err
	}
	defer m.mu.Unlock()
	if err := m.requireRole(auth.RoleSuperAdmin); err != nil {
		return Page[auditlog.AuditLogResponse]{}, err
	}
	var all []auditlog.AuditLogResponse
	for i := len(m.audit) - 1; i >= 0; i-- {
		a := m.audit[i]
		if filter.Action != "" && a.Action != filter.Action {
			continue
		}
		if filter.Status != "" && a.Status != filter.Status {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(a.Action), strings.ToLower(filter.Search)) {
			continue
		}
		all = append(all, a)
	}
	return paginate(all, filter.Page, filter.Limit), nil
}

func (m *MockBackend) DashboardStats(ctx context.Context) (*superadmin.Dashboard, error) {
	if err := m.call(ctx, "DashboardStats"); err != nil {
		return nil, err
	}
	defer m.mu.Unlock()
	if err := m.requireRole(auth.RoleLGAdmin); err != nil {
		return nil, err
	}
	scope := m.current.LocalGovernmentID
	if m.current.Role == auth.RoleSuperAdmin {
		scope = nil
	}
	inScope := func(lgaID uint) bool { return scope == nil || *scope == lgaID }

	apps := &lifecycle.Stats{ByStatus: map[lifecycle.Status]int64{}}
	digs := &lifecycle.Stats{ByStatus: map[lifecycle.Status]int64{}}
	dash := &superadmin.Dashboard{LocalGovernmentID: scope, Applications: apps, Digitization: digs}
	for _, a := range m.apps {
		if !inScope(a.LocalGovernmentID) {
			continue
		}
		apps.Total++
		apps.ByStatus[a.Status]++
		if a.PaymentStatus == lifecycle.PaymentPaid {
			apps.Paid++
		}
	}
	for _, r := range m.digs {
		if !inScope(r.LocalGovernmentID) {
			continue
		}
		digs.Total++
		digs.ByStatus[r.Status]++
		if r.PaymentStatus == lifecycle.PaymentPaid {
			digs.Paid++
		}
	}
	for _, p := range m.payments {
		if p.Status == lifecycle.PaymentPaid && inScope(p.LocalGovernmentID) {
			dash.Revenue += p.Amount
		}
	}
	for _, c := range m.certs {
		if inScope(c.LocalGovernmentID) {
			dash.CertificatesIssued++
		}
	}
	dash.PendingReview = apps.ByStatus[lifecycle.StatusPending] + apps.ByStatus[lifecycle.StatusUnderReview] +
		digs.ByStatus[lifecycle.StatusPending] + digs.ByStatus[lifecycle.StatusUnderReview]
	return dash, nil
}
