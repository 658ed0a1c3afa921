// Package workflow drives the four-step application and digitization wizards:
// two client-side steps, a review step whose Next submits the record and
// starts payment, and a payment step whose Submit confirms it.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/lgcert/indigene-certificate/internal/application"
	"github.com/lgcert/indigene-certificate/internal/digitization"
	"github.com/lgcert/indigene-certificate/internal/dynamicfield"
	"github.com/lgcert/indigene-certificate/internal/identity"
	"github.com/lgcert/indigene-certificate/internal/payment"
	"github.com/lgcert/indigene-certificate/internal/portal/apiclient"
	"github.com/lgcert/indigene-certificate/internal/portal/services"
	"github.com/lgcert/indigene-certificate/internal/portal/upload"
	"github.com/lgcert/indigene-certificate/internal/validation"
	"github.com/lgcert/indigene-certificate/logger"
)

type Kind string

const (
	KindApplication  Kind = "application"
	KindDigitization Kind = "digitization"
)

func (k Kind) recordType() string {
	if k == KindDigitization {
		return digitization.RecordType
	}
	return application.RecordType
}

const (
	FirstStep = 1
	// ReviewStep is the step whose Next submits the record and starts payment.
	ReviewStep = 3
	Steps      = 4

	DashboardPath = "/dashboard"
)

var (
	ErrBusy            = errors.New("please wait for the current operation to finish")
	ErrPaymentRequired = errors.New("complete payment first")
)

// Stage names one network call of the submission sequence.
type Stage string

const (
	StageSubmit          Stage = "submit"
	StageUpdate          Stage = "update"
	StageVerifyIdentity  Stage = "verify identity"
	StageInitPayment     Stage = "initialize payment"
	StageLaunchPayment   Stage = "open payment window"
	StageVerifyPayment   Stage = "verify payment"
	StageFinalizeRequest Stage = "finalize request"
)

// StageError reports which call of a sequence failed.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string { return string(e.Stage) + ": " + Message(e.Err) }

func (e *StageError) Unwrap() error { return e.Err }

// PaymentStatusError is returned by Submit when the gateway has not confirmed the charge.
type PaymentStatusError struct {
	Reference string
	Status    string
}

func (e *PaymentStatusError) Error() string {
	return fmt.Sprintf("payment %s is %s, not confirmed", e.Reference, e.Status)
}

// Message renders err for the user.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var stage *StageError
	if errors.As(err, &stage) {
		return stage.Error()
	}
	var apiErr *apiclient.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return err.Error()
}

// Draft is everything the user has entered so far.
type Draft struct {
	Application          validation.ApplicationForm
	Digitization         validation.DigitizationForm
	ApplicationReference string
}

// State is a snapshot of the controller.
type State struct {
	Kind                  Kind
	Step                  int
	IsSubmitting          bool
	IsInitializingPayment bool
	PaymentReference      string
	AuthorizationURL      string
	RecordID              uint
	Reference             string
	Fee                   float64
	LastError             error
	Warnings              []string
	Completed             bool
}

type Options struct {
	Launcher    Launcher
	Navigator   Navigator
	CallbackURL string
	// Fields are the extra inputs the chosen local government asks for.
	Fields []dynamicfield.DynamicField
	Log    *logger.Logger
}

type Controller struct {
	kind         Kind
	applications *services.ApplicationService
	digitization *services.DigitizationService
	identity     *services.IdentityService
	payments     *services.PaymentService
	launcher     Launcher
	navigator    Navigator
	callbackURL  string
	fields       []dynamicfield.DynamicField
	log          *logger.Logger

	Photo  *upload.Controller
	IDSlip *upload.Controller
	Scan   *upload.Controller

	mu        sync.Mutex
	draft     Draft
	state     State
	feeLoaded bool
}

func New(kind Kind, backend services.Backend, opts Options) *Controller {
	log := opts.Log
	if log == nil {
		log = logger.Nop()
	}
	launcher := opts.Launcher
	if launcher == nil {
		launcher = BrowserLauncher{}
	}
	navigator := opts.Navigator
	if navigator == nil {
		navigator = NavigatorFunc(func(string) {})
	}
	c := &Controller{
		kind:         kind,
		applications: services.NewApplicationService(backend),
		digitization: services.NewDigitizationService(backend),
		identity:     services.NewIdentityService(backend),
		payments:     services.NewPaymentService(backend),
		launcher:     launcher,
		navigator:    navigator,
		callbackURL:  opts.CallbackURL,
		fields:       opts.Fields,
		log:          log.With("workflow", string(kind)),
		state:        State{Kind: kind, Step: FirstStep},
	}
	if kind == KindDigitization {
		photo, slip, scan := upload.DigitizationConfigs()
		c.Photo, c.IDSlip, c.Scan = upload.NewController(photo, log), upload.NewController(slip, log), upload.NewController(scan, log)
	} else {
		photo, slip := upload.ApplicationConfigs()
		c.Photo, c.IDSlip = upload.NewController(photo, log), upload.NewController(slip, log)
	}
	return c
}

func (c *Controller) Kind() Kind { return c.kind }

// SetDraft replaces the entered form values. Changing a value the record was
// created with drops the submitted record, its pending payment and the cached
// fee, so the next submission starts over.
func (c *Controller) SetDraft(d Draft) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.state.Completed && c.baseFields(c.draft) != c.baseFields(d) {
		if c.state.RecordID != 0 {
			c.log.Infof("draft changed, dropping %s %s", c.kind, c.state.Reference)
		}
		c.state.RecordID, c.state.Reference = 0, ""
		c.state.PaymentReference, c.state.AuthorizationURL = "", ""
		c.state.Fee, c.feeLoaded = 0, false
	}
	c.draft = d
}

// submittedFields are the values update cannot change on a submitted record.
type submittedFields struct {
	FullName, NIN, DateOfBirth, State, Village string
	LocalGovernmentID                          uint
	OldCertificateNumber, IssueYear, Reference string
}

func (c *Controller) baseFields(d Draft) submittedFields {
	if c.kind == KindDigitization {
		f := d.Digitization
		return submittedFields{
			FullName: f.FullName, NIN: f.NIN, DateOfBirth: f.DateOfBirth, State: f.State,
			LocalGovernmentID: f.LocalGovernmentID, OldCertificateNumber: f.OldCertificateNumber,
			IssueYear: f.IssueYear, Reference: d.ApplicationReference,
		}
	}
	f := d.Application
	return submittedFields{
		FullName: f.FullName, NIN: f.NIN, DateOfBirth: f.DateOfBirth, State: f.State,
		Village: f.Village, LocalGovernmentID: f.LocalGovernmentID,
	}
}

func (c *Controller) Draft() Draft {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.state
	s.Warnings = append([]string(nil), c.state.Warnings...)
	return s
}

func (c *Controller) Step() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Step
}

// begin marks the controller busy. It fails when another call holds it.
func (c *Controller) begin(submitting bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.IsSubmitting || c.state.IsInitializingPayment {
		return ErrBusy
	}
	c.state.IsSubmitting = submitting
	c.state.IsInitializingPayment = !submitting
	c.state.LastError = nil
	return nil
}

func (c *Controller) end(err error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.IsSubmitting = false
	c.state.IsInitializingPayment = false
	c.state.LastError = err
	if err != nil {
		c.log.Warnf("step %d: %s", c.state.Step, Message(err))
	}
	return err
}

func (c *Controller) fail(err error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.LastError = err
	return err
}

func (c *Controller) warn(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Warnings = append(c.state.Warnings, msg)
	c.log.Warn(msg)
}

// Next validates the current step and advances. At the review step it runs
// the submission sequence and only advances when every call succeeds. At the
// last step it does nothing.
func (c *Controller) Next(ctx context.Context) error {
	c.mu.Lock()
	step, completed, busy := c.state.Step, c.state.Completed, c.state.IsSubmitting || c.state.IsInitializingPayment
	pendingLaunch := step == ReviewStep && c.state.PaymentReference != "" && c.state.AuthorizationURL != ""
	draft := c.draft
	c.mu.Unlock()

	if busy {
		return ErrBusy
	}
	if step >= Steps || completed {
		return nil
	}
	if err := c.validateStep(step, draft); err != nil {
		return c.fail(err)
	}
	if step < ReviewStep {
		c.mu.Lock()
		c.state.Step++
		c.state.LastError = nil
		c.mu.Unlock()
		return nil
	}
	if pendingLaunch {
		return c.ReopenPayment(ctx)
	}
	return c.runSequence(ctx, draft)
}

// Back moves one step back without validation. It never goes below the first
// step and does nothing while a call is in flight.
func (c *Controller) Back() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.IsSubmitting || c.state.IsInitializingPayment || c.state.Completed {
		return c.state.Step
	}
	if c.state.Step > FirstStep {
		c.state.Step--
	}
	c.state.LastError = nil
	return c.state.Step
}

func (c *Controller) validateStep(step int, d Draft) error {
	var r validation.Result
	switch c.kind {
	case KindDigitization:
		switch step {
		case 1:
			r = validation.ValidateDigitizationPersonal(d.Digitization)
			if r.Valid && c.Photo.File() == nil {
				r = validation.Result{Field: "photo", Message: "Passport photograph is required"}
			}
		case 2:
			r = validation.ValidateDigitizationCertificate(d.Digitization)
			if r.Valid && c.Scan.File() == nil {
				r = validation.Result{Field: "scan", Message: "Certificate scan is required"}
			}
			if r.Valid {
				if err := upload.CheckAggregate(validation.DigitizationMaxTotal, c.Photo.File(), c.IDSlip.File(), c.Scan.File()); err != nil {
					return err
				}
			}
		default:
			r = validation.ValidateDigitization(d.Digitization)
		}
	default:
		switch step {
		case 1:
			r = validation.ValidateApplicationPersonal(d.Application)
			if r.Valid && c.Photo.File() == nil {
				r = validation.Result{Field: "photo", Message: "Passport photograph is required"}
			}
			if r.Valid && c.IDSlip.File() == nil {
				r = validation.Result{Field: "id_slip", Message: "NIN slip is required"}
			}
		case 2:
			r = validation.ValidateApplicationContact(d.Application)
		default:
			r = validation.ValidateApplication(d.Application)
			if r.Valid {
				r = c.validateExtraFields(d.Application.ExtraFields)
			}
		}
	}
	return r.Err()
}

func (c *Controller) validateExtraFields(values map[string]string) validation.Result {
	for _, f := range c.fields {
		if f.Required && strings.TrimSpace(values[f.Key]) == "" {
			return validation.Result{Field: f.Key, Message: f.Label + " is required"}
		}
		if f.Kind == dynamicfield.KindSelect && values[f.Key] != "" {
			ok := false
			for _, choice := range f.Choices() {
				ok = ok || choice == values[f.Key]
			}
			if !ok {
				return validation.Result{Field: f.Key, Message: f.Label + " must be one of: " + strings.Join(f.Choices(), ", ")}
			}
		}
	}
	return validation.OK
}

func (c *Controller) lgaID(d Draft) uint {
	if c.kind == KindDigitization {
		return d.Digitization.LocalGovernmentID
	}
	return d.Application.LocalGovernmentID
}

func (c *Controller) nin(d Draft) string {
	if c.kind == KindDigitization {
		return d.Digitization.NIN
	}
	return d.Application.NIN
}

// loadFee looks the fee up once. Failures leave it at zero; the backend
// charges the authoritative amount anyway.
func (c *Controller) loadFee(ctx context.Context, d Draft) {
	c.mu.Lock()
	loaded := c.feeLoaded
	c.mu.Unlock()
	if loaded {
		return
	}
	fee, err := c.payments.Fee(ctx, c.lgaID(d), c.kind.recordType())
	if err != nil {
		c.log.Warnf("fee lookup: %s", Message(err))
		fee = 0
	}
	c.mu.Lock()
	c.state.Fee, c.feeLoaded = fee, err == nil
	c.mu.Unlock()
}

func (c *Controller) runSequence(ctx context.Context, d Draft) (err error) {
	if err := c.begin(true); err != nil {
		return err
	}
	defer func() { err = c.end(err) }()

	c.loadFee(ctx, d)

	id, err := c.submit(ctx, d)
	if err != nil {
		return &StageError{Stage: StageSubmit, Err: err}
	}
	if err := c.update(ctx, id, d); err != nil {
		return &StageError{Stage: StageUpdate, Err: err}
	}
	if err := c.verifyIdentity(ctx, id, d); err != nil {
		return &StageError{Stage: StageVerifyIdentity, Err: err}
	}

	c.mu.Lock()
	c.state.IsSubmitting, c.state.IsInitializingPayment = false, true
	c.mu.Unlock()

	init, err := c.payments.Initialize(ctx, payment.InitializeRequest{
		RecordType:  c.kind.recordType(),
		RecordID:    id,
		Mode:        payment.ModeRedirect,
		CallbackURL: c.callbackURL,
	})
	if err != nil {
		return &StageError{Stage: StageInitPayment, Err: err}
	}
	c.mu.Lock()
	c.state.PaymentReference = init.Reference
	c.state.AuthorizationURL = init.AuthorizationURL
	c.state.Fee = init.Amount
	c.mu.Unlock()

	return c.launch(init.AuthorizationURL)
}

// submit creates the record once. A retry after a later failure reuses it.
func (c *Controller) submit(ctx context.Context, d Draft) (uint, error) {
	c.mu.Lock()
	id := c.state.RecordID
	c.mu.Unlock()
	if id != 0 {
		return id, nil
	}

	var ref string
	if c.kind == KindDigitization {
		req, err := c.digitization.Submit(ctx, services.DigitizationSubmission{
			Form:                 d.Digitization,
			ApplicationReference: d.ApplicationReference,
			Photo:                c.Photo.File(),
			IDSlip:               c.IDSlip.File(),
			Scan:                 c.Scan.File(),
		})
		if err != nil {
			return 0, err
		}
		id, ref = req.ID, req.Reference
	} else {
		app, err := c.applications.Submit(ctx, services.ApplicationSubmission{
			Form:   d.Application,
			Photo:  c.Photo.File(),
			IDSlip: c.IDSlip.File(),
		})
		if err != nil {
			return 0, err
		}
		id, ref = app.ID, app.Reference
	}

	c.mu.Lock()
	c.state.RecordID, c.state.Reference = id, ref
	c.mu.Unlock()
	c.log.Infof("submitted %s %s", c.kind, ref)
	return id, nil
}

func (c *Controller) update(ctx context.Context, id uint, d Draft) error {
	if c.kind == KindDigitization {
		f := d.Digitization
		_, err := c.digitization.Update(ctx, id, digitization.UpdateInput{Address: f.Address, Phone: f.Phone, Email: f.Email, Village: f.Village})
		return err
	}
	f := d.Application
	_, err := c.applications.Update(ctx, id, application.UpdateInput{
		Address: f.Address, Landmark: f.Landmark, Phone: f.Phone, Email: f.Email, ExtraFields: f.ExtraFields,
	})
	return err
}

// verifyIdentity halts an application on any error. A digitization request
// only warns unless the session is gone. A non-success answer always warns.
func (c *Controller) verifyIdentity(ctx context.Context, id uint, d Draft) error {
	res, err := c.identity.Verify(ctx, identity.VerifyInput{NIN: c.nin(d), RecordType: c.kind.recordType(), RecordID: id})
	if err != nil {
		if c.kind == KindApplication || halts(err) {
			return err
		}
		c.warn("NIN verification: " + Message(err))
		return nil
	}
	if res.Status != identity.StatusSuccess {
		msg := res.Message
		if msg == "" {
			msg = "NIN verification returned " + res.Status
		}
		c.warn(msg)
	}
	return nil
}

func halts(err error) bool {
	return apiclient.IsCategory(err, apiclient.CategorySessionExpired) ||
		errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func (c *Controller) launch(url string) error {
	if err := c.launcher.Open(url); err != nil {
		if !errors.Is(err, ErrPopupBlocked) {
			err = fmt.Errorf("%w (%v)", ErrPopupBlocked, err)
		}
		return &StageError{Stage: StageLaunchPayment, Err: err}
	}
	c.mu.Lock()
	c.state.Step = Steps
	c.mu.Unlock()
	return nil
}

// ReopenPayment retries opening the payment window for the current reference.
func (c *Controller) ReopenPayment(ctx context.Context) (err error) {
	c.mu.Lock()
	ref, url := c.state.PaymentReference, c.state.AuthorizationURL
	c.mu.Unlock()
	if ref == "" || url == "" {
		return c.fail(ErrPaymentRequired)
	}
	if err := c.begin(false); err != nil {
		return err
	}
	defer func() { err = c.end(err) }()
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.launch(url)
}

// Submit confirms the payment and completes the flow. Without a reference it
// fails with ErrPaymentRequired and never navigates.
func (c *Controller) Submit(ctx context.Context) (err error) {
	c.mu.Lock()
	ref, id, completed := c.state.PaymentReference, c.state.RecordID, c.state.Completed
	c.mu.Unlock()
	if completed {
		return nil
	}
	if ref == "" {
		return c.fail(ErrPaymentRequired)
	}
	if err := c.begin(true); err != nil {
		return err
	}
	defer func() { err = c.end(err) }()

	res, err := c.payments.Verify(ctx, ref)
	if err != nil {
		return &StageError{Stage: StageVerifyPayment, Err: err}
	}
	if res.Status != "success" {
		return &PaymentStatusError{Reference: ref, Status: res.Status}
	}
	if c.kind == KindDigitization {
		if _, err := c.digitization.Finalize(ctx, id, ref); err != nil {
			return &StageError{Stage: StageFinalizeRequest, Err: err}
		}
	}

	c.mu.Lock()
	c.state.Completed = true
	c.state.Step = Steps
	c.mu.Unlock()
	c.log.Infof("payment %s confirmed", ref)
	c.navigator.Navigate(DashboardPath)
	return nil
}
