// Package services translates portal intents into backend calls. One Backend
// is chosen when the portal is composed: HTTPBackend talks to the REST API,
// MockBackend serves canned records in memory.
package services

import (
	"context"
	"net/url"
	"strconv"

	"github.com/lgcert/indigene-certificate/internal/application"
	"github.com/lgcert/indigene-certificate/internal/auditlog"
	"github.com/lgcert/indigene-certificate/internal/certificate"
	"github.com/lgcert/indigene-certificate/internal/digitization"
	"github.com/lgcert/indigene-certificate/internal/dynamicfield"
	"github.com/lgcert/indigene-certificate/internal/identity"
	"github.com/lgcert/indigene-certificate/internal/localgovernment"
	"github.com/lgcert/indigene-certificate/internal/payment"
	"github.com/lgcert/indigene-certificate/internal/portal/apiclient"
	"github.com/lgcert/indigene-certificate/internal/portal/upload"
	"github.com/lgcert/indigene-certificate/internal/superadmin"
	"github.com/lgcert/indigene-certificate/internal/validation"
)

// Page is the one list shape the portal consumes, whatever the endpoint returned.
type Page[T any] struct {
	Items    []T
	Count    int64
	Next     string
	Previous string
}

func (p Page[T]) HasNext() bool { return p.Next != "" }

// ListFilter is the query of an admin list.
type ListFilter struct {
	Status            string
	PaymentStatus     string
	Search            string
	LocalGovernmentID uint
	Page              int
	PageSize          int
}

func (f ListFilter) query() url.Values {
	q := url.Values{}
	set := func(k, v string) {
		if v != "" {
			q.Set(k, v)
		}
	}
	set("status", f.Status)
	set("payment_status", f.PaymentStatus)
	set("search", f.Search)
	if f.LocalGovernmentID > 0 {
		q.Set("local_government_id", strconv.FormatUint(uint64(f.LocalGovernmentID), 10))
	}
	if f.Page > 0 {
		q.Set("page", strconv.Itoa(f.Page))
	}
	if f.PageSize > 0 {
		q.Set("page_size", strconv.Itoa(f.PageSize))
	}
	return q
}

// AuditFilter narrows the audit log listing.
type AuditFilter struct {
	Action   string
	Status   string
	Search   string
	FromDate string
	ToDate   string
	Page     int
	Limit    int
}

func (f AuditFilter) query() url.Values {
	q := url.Values{}
	for k, v := range map[string]string{
		"action": f.Action, "status": f.Status, "search": f.Search,
		"from_date": f.FromDate, "to_date": f.ToDate,
	} {
		if v != "" {
			q.Set(k, v)
		}
	}
	if f.Page > 0 {
		q.Set("page", strconv.Itoa(f.Page))
	}
	if f.Limit > 0 {
		q.Set("limit", strconv.Itoa(f.Limit))
	}
	return q
}

type LoginResult struct {
	AccessToken  string          `json:"accessToken"`
	RefreshToken string          `json:"refreshToken"`
	User         *apiclient.User `json:"user"`
}

// ApplicationSubmission is the base data and attachments of a new application.
type ApplicationSubmission struct {
	Form   validation.ApplicationForm
	Photo  *upload.File
	IDSlip *upload.File
}

type DigitizationSubmission struct {
	Form                 validation.DigitizationForm
	ApplicationReference string
	Photo                *upload.File
	IDSlip               *upload.File
	Scan                 *upload.File
}

type StatusChange struct {
	Status string `json:"status"`
	Note   string `json:"note,omitempty"`
}

type Backend interface {
	Register(ctx context.Context, form validation.RegistrationForm) (*apiclient.User, error)
	Login(ctx context.Context, email, password string) (*LoginResult, error)
	Me(ctx context.Context) (*apiclient.User, error)
	Logout(ctx context.Context) error

	SubmitApplication(ctx context.Context, in ApplicationSubmission) (*application.Application, error)
	UpdateApplication(ctx context.Context, id uint, in application.UpdateInput) (*application.Application, error)
	ListMyApplications(ctx context.Context) ([]application.Application, error)
	ListApplications(ctx context.Context, filter ListFilter) (Page[application.Application], error)
	GetApplication(ctx context.Context, id uint) (*application.Application, error)
	ChangeApplicationStatus(ctx context.Context, id uint, change StatusChange) (*application.Application, error)

	SubmitDigitization(ctx context.Context, in DigitizationSubmission) (*digitization.Request, error)
	UpdateDigitization(ctx context.Context, id uint, in digitization.UpdateInput) (*digitization.Request, error)
	FinalizeDigitization(ctx context.Context, id uint, paymentReference string) (*digitization.Request, error)
	ListMyDigitization(ctx context.Context) ([]digitization.Request, error)
	ListDigitization(ctx context.Context, filter ListFilter) (Page[digitization.Request], error)
	ChangeDigitizationStatus(ctx context.Context, id uint, change StatusChange) (*digitization.Request, error)

	VerifyNIN(ctx context.Context, in identity.VerifyInput) (*identity.Result, error)

	InitializePayment(ctx context.Context, in payment.InitializeRequest) (*payment.InitializeResponse, error)
	VerifyPayment(ctx context.Context, reference string) (*payment.VerifyResponse, error)

	ListMyCertificates(ctx context.Context) ([]certificate.Certificate, error)
	DownloadCertificate(ctx context.Context, id uint) ([]byte, error)
	VerifyCertificate(ctx context.Context, certificateID string) (*certificate.Verification, error)

	ListLocalGovernments(ctx context.Context, state string) ([]localgovernment.LocalGovernment, error)
	GetLGAFee(ctx context.Context, id uint) (*localgovernment.Fees, error)
	CreateLocalGovernment(ctx context.Context, in localgovernment.Input) (*localgovernment.LocalGovernment, error)
	UpdateLocalGovernment(ctx context.Context, id uint, in localgovernment.Input) (*localgovernment.LocalGovernment, error)
	DeleteLocalGovernment(ctx context.Context, id uint) error

	ListDynamicFields(ctx context.Context, lgaID uint) ([]dynamicfield.DynamicField, error)
	CreateDynamicField(ctx context.Context, in dynamicfield.Input) (*dynamicfield.DynamicField, error)
	UpdateDynamicField(ctx context.Context, id uint, in dynamicfield.Input) (*dynamicfield.DynamicField, error)
	DeleteDynamicField(ctx context.Context, id uint) error

	ListAuditLogs(ctx context.Context, filter AuditFilter) (Page[auditlog.AuditLogResponse], error)
	DashboardStats(ctx context.Context) (*superadmin.Dashboard, error)
}
