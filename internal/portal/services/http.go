package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/tidwall/gjson"

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

// HTTPBackend calls the REST API through one apiclient.Client.
type HTTPBackend struct {
	client *apiclient.Client
}

var _ Backend = (*HTTPBackend)(nil)

func NewHTTPBackend(client *apiclient.Client) *HTTPBackend {
	return &HTTPBackend{client: client}
}

func idPath(format string, id uint) string {
	return fmt.Sprintf(format, id)
}

func (b *HTTPBackend) body(ctx context.Context, req apiclient.Request) ([]byte, error) {
	resp, err := b.client.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

func getData[T any](ctx context.Context, b *HTTPBackend, req apiclient.Request) (*T, error) {
	body, err := b.body(ctx, req)
	if err != nil {
		return nil, err
	}
	return decodeData[T](body)
}

func getPage[T any](ctx context.Context, b *HTTPBackend, path string, q url.Values) (Page[T], error) {
	body, err := b.body(ctx, apiclient.Request{Method: http.MethodGet, Path: path, Query: q})
	if err != nil {
		return Page[T]{}, err
	}
	return decodePage[T](body)
}

func getList[T any](ctx context.Context, b *HTTPBackend, path string, q url.Values) ([]T, error) {
	page, err := getPage[T](ctx, b, path, q)
	if err != nil {
		return nil, err
	}
	return page.Items, nil
}

func filePart(field string, f *upload.File) apiclient.FilePart {
	return apiclient.FilePart{Field: field, Filename: f.Name, ContentType: f.Type, Data: f.Data}
}

func (b *HTTPBackend) Register(ctx context.Context, form validation.RegistrationForm) (*apiclient.User, error) {
	body, err := b.body(ctx, apiclient.Request{Method: http.MethodPost, Path: "/auth/register", JSON: form, Anonymous: true})
	if err != nil {
		return nil, err
	}
	var u apiclient.User
	if err := json.Unmarshal([]byte(gjson.GetBytes(body, "user").Raw), &u); err != nil {
		return nil, fmt.Errorf("decode user: %w", err)
	}
	return &u, nil
}

func (b *HTTPBackend) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	var out LoginResult
	err := b.client.JSON(ctx, apiclient.Request{
		Method:    http.MethodPost,
		Path:      "/auth/login",
		JSON:      map[string]string{"email": email, "password": password},
		Anonymous: true,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (b *HTTPBackend) Me(ctx context.Context) (*apiclient.User, error) {
	return getData[apiclient.User](ctx, b, apiclient.Request{Method: http.MethodGet, Path: "/auth/me"})
}

func (b *HTTPBackend) Logout(ctx context.Context) error {
	_, err := b.client.Do(ctx, apiclient.Request{Method: http.MethodPost, Path: "/auth/logout"})
	return err
}

func (b *HTTPBackend) SubmitApplication(ctx context.Context, in ApplicationSubmission) (*application.Application, error) {
	f := in.Form
	form := &apiclient.Multipart{}
	form.Add("full_name", f.FullName)
	form.Add("nin", f.NIN)
	form.Add("date_of_birth", f.DateOfBirth)
	form.Add("state", f.State)
	form.Add("local_government_id", strconv.FormatUint(uint64(f.LocalGovernmentID), 10))
	form.Add("village", f.Village)
	form.Add("phone", f.Phone)
	form.Add("email", f.Email)
	if in.Photo != nil {
		form.Files = append(form.Files, filePart("photo", in.Photo))
	}
	if in.IDSlip != nil {
		form.Files = append(form.Files, filePart("id_slip", in.IDSlip))
	}
	return getData[application.Application](ctx, b, apiclient.Request{Method: http.MethodPost, Path: "/applications", Form: form})
}

func (b *HTTPBackend) UpdateApplication(ctx context.Context, id uint, in application.UpdateInput) (*application.Application, error) {
	return getData[application.Application](ctx, b, apiclient.Request{Method: http.MethodPatch, Path: idPath("/applications/%d", id), JSON: in})
}

func (b *HTTPBackend) ListMyApplications(ctx context.Context) ([]application.Application, error) {
	return getList[application.Application](ctx, b, "/applications/my", nil)
}

func (b *HTTPBackend) ListApplications(ctx context.Context, filter ListFilter) (Page[application.Application], error) {
	return getPage[application.Application](ctx, b, "/admin/applications", filter.query())
}

func (b *HTTPBackend) GetApplication(ctx context.Context, id uint) (*application.Application, error) {
	return getData[application.Application](ctx, b, apiclient.Request{Method: http.MethodGet, Path: idPath("/applications/%d", id)})
}

func (b *HTTPBackend) ChangeApplicationStatus(ctx context.Context, id uint, change StatusChange) (*application.Application, error) {
	return getData[application.Application](ctx, b, apiclient.Request{Method: http.MethodPatch, Path: idPath("/admin/applications/%d/status", id), JSON: change})
}

func (b *HTTPBackend) SubmitDigitization(ctx context.Context, in DigitizationSubmission) (*digitization.Request, error) {
	f := in.Form
	form := &apiclient.Multipart{}
	form.Add("full_name", f.FullName)
	form.Add("nin", f.NIN)
	form.Add("date_of_birth", f.DateOfBirth)
	form.Add("state", f.State)
	form.Add("local_government_id", strconv.FormatUint(uint64(f.LocalGovernmentID), 10))
	form.Add("village", f.Village)
	form.Add("phone", f.Phone)
	form.Add("email", f.Email)
	form.Add("address", f.Address)
	form.Add("old_certificate_number", f.OldCertificateNumber)
	form.Add("issue_year", f.IssueYear)
	if in.ApplicationReference != "" {
		form.Add("application_reference", in.ApplicationReference)
	}
	for field, file := range map[string]*upload.File{"photo": in.Photo, "id_slip": in.IDSlip, "scan": in.Scan} {
		if file != nil {
			form.Files = append(form.Files, filePart(field, file))
		}
	}
	return getData[digitization.Request](ctx, b, apiclient.Request{Method: http.MethodPost, Path: "/digitization", Form: form})
}

func (b *HTTPBackend) UpdateDigitization(ctx context.Context, id uint, in digitization.UpdateInput) (*digitization.Request, error) {
	return getData[digitization.Request](ctx, b, apiclient.Request{Method: http.MethodPatch, Path: idPath("/digitization/%d", id), JSON: in})
}

func (b *HTTPBackend) FinalizeDigitization(ctx context.Context, id uint, paymentReference string) (*digitization.Request, error) {
	return getData[digitization.Request](ctx, b, apiclient.Request{
		Method: http.MethodPost,
		Path:   idPath("/digitization/%d/finalize", id),
		JSON:   digitization.FinalizeInput{PaymentReference: paymentReference},
	})
}

func (b *HTTPBackend) ListMyDigitization(ctx context.Context) ([]digitization.Request, error) {
	return getList[digitization.Request](ctx, b, "/digitization/my", nil)
}

func (b *HTTPBackend) ListDigitization(ctx context.Context, filter ListFilter) (Page[digitization.Request], error) {
	return getPage[digitization.Request](ctx, b, "/admin/digitization", filter.query())
}

func (b *HTTPBackend) ChangeDigitizationStatus(ctx context.Context, id uint, change StatusChange) (*digitization.Request, error) {
	return getData[digitization.Request](ctx, b, apiclient.Request{Method: http.MethodPatch, Path: idPath("/admin/digitization/%d/status", id), JSON: change})
}

func (b *HTTPBackend) VerifyNIN(ctx context.Context, in identity.VerifyInput) (*identity.Result, error) {
	return getData[identity.Result](ctx, b, apiclient.Request{Method: http.MethodPost, Path: "/identity/verify-nin", JSON: in})
}

func (b *HTTPBackend) InitializePayment(ctx context.Context, in payment.InitializeRequest) (*payment.InitializeResponse, error) {
	return getData[payment.InitializeResponse](ctx, b, apiclient.Request{Method: http.MethodPost, Path: "/payments/initialize", JSON: in})
}

func (b *HTTPBackend) VerifyPayment(ctx context.Context, reference string) (*payment.VerifyResponse, error) {
	return getData[payment.VerifyResponse](ctx, b, apiclient.Request{Method: http.MethodGet, Path: "/payments/verify/" + url.PathEscape(reference)})
}

func (b *HTTPBackend) ListMyCertificates(ctx context.Context) ([]certificate.Certificate, error) {
	return getList[certificate.Certificate](ctx, b, "/certificates/my", nil)
}

func (b *HTTPBackend) DownloadCertificate(ctx context.Context, id uint) ([]byte, error) {
	return b.client.Bytes(ctx, apiclient.Request{Method: http.MethodGet, Path: idPath("/certificates/%d/download", id)})
}

func (b *HTTPBackend) VerifyCertificate(ctx context.Context, certificateID string) (*certificate.Verification, error) {
	return getData[certificate.Verification](ctx, b, apiclient.Request{
		Method:    http.MethodGet,
		Path:      "/certificates/verify/" + url.PathEscape(certificateID),
		Anonymous: true,
	})
}

func (b *HTTPBackend) ListLocalGovernments(ctx context.Context, state string) ([]localgovernment.LocalGovernment, error) {
	q := url.Values{}
	if state != "" {
		q.Set("state", state)
	}
	return getList[localgovernment.LocalGovernment](ctx, b, "/local-governments", q)
}

func (b *HTTPBackend) GetLGAFee(ctx context.Context, id uint) (*localgovernment.Fees, error) {
	return getData[localgovernment.Fees](ctx, b, apiclient.Request{Method: http.MethodGet, Path: idPath("/local-governments/%d/fees", id)})
}

func (b *HTTPBackend) CreateLocalGovernment(ctx context.Context, in localgovernment.Input) (*localgovernment.LocalGovernment, error) {
	return getData[localgovernment.LocalGovernment](ctx, b, apiclient.Request{Method: http.MethodPost, Path: "/superadmin/local-governments", JSON: in})
}

func (b *HTTPBackend) UpdateLocalGovernment(ctx context.Context, id uint, in localgovernment.Input) (*localgovernment.LocalGovernment, error) {
	return getData[localgovernment.LocalGovernment](ctx, b, apiclient.Request{Method: http.MethodPut, Path: idPath("/superadmin/local-governments/%d", id), JSON: in})
}

func (b *HTTPBackend) DeleteLocalGovernment(ctx context.Context, id uint) error {
	_, err := b.client.Do(ctx, apiclient.Request{Method: http.MethodDelete, Path: idPath("/superadmin/local-governments/%d", id)})
	return err
}

func (b *HTTPBackend) ListDynamicFields(ctx context.Context, lgaID uint) ([]dynamicfield.DynamicField, error) {
	return getList[dynamicfield.DynamicField](ctx, b, idPath("/local-governments/%d/fields", lgaID), nil)
}

func (b *HTTPBackend) CreateDynamicField(ctx context.Context, in dynamicfield.Input) (*dynamicfield.DynamicField, error) {
	return getData[dynamicfield.DynamicField](ctx, b, apiclient.Request{Method: http.MethodPost, Path: "/admin/dynamic-fields", JSON: in})
}

func (b *HTTPBackend) UpdateDynamicField(ctx context.Context, id uint, in dynamicfield.Input) (*dynamicfield.DynamicField, error) {
	return getData[dynamicfield.DynamicField](ctx, b, apiclient.Request{Method: http.MethodPut, Path: idPath("/admin/dynamic-fields/%d", id), JSON: in})
}

func (b *HTTPBackend) DeleteDynamicField(ctx context.Context, id uint) error {
	_, err := b.client.Do(ctx, apiclient.Request{Method: http.MethodDelete, Path: idPath("/admin/dynamic-fields/%d", id)})
	return err
}

func (b *HTTPBackend) ListAuditLogs(ctx context.Context, filter AuditFilter) (Page[auditlog.AuditLogResponse], error) {
	return getPage[auditlog.AuditLogResponse](ctx, b, "/auditlogs", filter.query())
}

func (b *HTTPBackend) DashboardStats(ctx context.Context) (*superadmin.Dashboard, error) {
	return getData[superadmin.Dashboard](ctx, b, apiclient.Request{Method: http.MethodGet, Path: "/admin/dashboard"})
}
