package services

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lgcert/indigene-certificate/internal/application"
	"github.com/lgcert/indigene-certificate/internal/lifecycle"
	"github.com/lgcert/indigene-certificate/internal/portal/apiclient"
	"github.com/lgcert/indigene-certificate/internal/portal/upload"
	"github.com/lgcert/indigene-certificate/internal/validation"
)

func newHTTPBackend(t *testing.T, mux *http.ServeMux) (*HTTPBackend, *apiclient.Session) {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	session, err := apiclient.NewSession(nil)
	require.NoError(t, err)
	require.NoError(t, session.Start("access-1", "refresh-1", &apiclient.User{ID: 2}))
	return NewHTTPBackend(apiclient.New(session, apiclient.Options{BaseURL: srv.URL})), session
}

type obj map[string]interface{}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestHTTPListApplicationsEnvelope(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/admin/applications", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer access-1", r.Header.Get("Authorization"))
		q := r.URL.Query()
		assert.Equal(t, "pending", q.Get("status"))
		assert.Equal(t, "2", q.Get("page"))
		assert.Equal(t, "25", q.Get("page_size"))
		assert.Empty(t, q.Get("search"))
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"results":  []application.Application{{ID: 26, FullName: "Amina Bello"}},
			"count":    95,
			"next":     "/admin/applications?page=3",
			"previous": "/admin/applications?page=1",
		})
	})
	b, _ := newHTTPBackend(t, mux)

	page, err := b.ListApplications(context.Background(), ListFilter{Status: "pending", Page: 2, PageSize: 25})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Amina Bello", page.Items[0].FullName)
	assert.EqualValues(t, 95, page.Count)
	assert.True(t, page.HasNext())
}

func TestHTTPBareArrayAndDataWrapper(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/applications/my", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, []application.Application{{ID: 1}, {ID: 2}})
	})
	mux.HandleFunc("/applications/5", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, obj{"data": application.Application{ID: 5, Status: lifecycle.StatusUnderReview}})
	})
	b, _ := newHTTPBackend(t, mux)

	mine, err := b.ListMyApplications(context.Background())
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	app, err := b.GetApplication(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusUnderReview, app.Status)
}

func TestHTTPSubmitApplicationSendsMultipart(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/applications", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "Amina Bello", r.FormValue("full_name"))
		assert.Equal(t, "12345678901", r.FormValue("nin"))
		assert.Equal(t, "1", r.FormValue("local_government_id"))

		file, hdr, err := r.FormFile("id_slip")
		require.NoError(t, err)
		defer file.Close()
		data, _ := io.ReadAll(file)
		assert.Equal(t, "slip.pdf", hdr.Filename)
		assert.Equal(t, validation.MimePDF, hdr.Header.Get("Content-Type"))
		assert.Equal(t, "%PDF-1.4", string(data))

		writeJSON(w, http.StatusCreated, obj{"message": "Application submitted", "data": application.Application{ID: 11, Reference: "APP-1"}})
	})
	b, _ := newHTTPBackend(t, mux)

	app, err := b.SubmitApplication(context.Background(), ApplicationSubmission{
		Form:   validation.ApplicationForm{FullName: "Amina Bello", NIN: "12345678901", LocalGovernmentID: 1},
		Photo:  &upload.File{Name: "me.jpg", Type: validation.MimeJPEG, Data: []byte{0xFF, 0xD8}},
		IDSlip: &upload.File{Name: "slip.pdf", Type: validation.MimePDF, Data: []byte("%PDF-1.4")},
	})
	require.NoError(t, err)
	assert.Equal(t, uint(11), app.ID)
	assert.Equal(t, "APP-1", app.Reference)
}

func TestHTTPLoginIsAnonymous(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, obj{
			"accessToken":  "a",
			"refreshToken": "r",
			"user":         obj{"id": 9, "fullName": "Chidi Okafor", "role": "applicant"},
		})
	})
	b, _ := newHTTPBackend(t, mux)

	res, err := b.Login(context.Background(), "chidi@example.com", "secret123")
	require.NoError(t, err)
	assert.Equal(t, "a", res.AccessToken)
	assert.Equal(t, "Chidi Okafor", res.User.FullName)
}

func TestHTTPAuditLogsAndDownload(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/auditlogs", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "10", r.URL.Query().Get("limit"))
		writeJSON(w, http.StatusOK, obj{"data": []obj{{"id": 1, "action": "LOGIN"}}, "total": 31, "page": 1, "limit": 10, "total_pages": 4})
	})
	mux.HandleFunc("/certificates/3/download", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("%PDF-1.4 cert"))
	})
	b, _ := newHTTPBackend(t, mux)

	page, err := b.ListAuditLogs(context.Background(), AuditFilter{Limit: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 31, page.Count)
	assert.Equal(t, "LOGIN", page.Items[0].Action)

	pdf, err := b.DownloadCertificate(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 cert", string(pdf))
}

func TestHTTPUnknownCertificateIsInvalid(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/certificates/verify/", func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		writeJSON(w, http.StatusNotFound, obj{"error": "Certificate not found", "data": obj{"valid": false}})
	})
	b, _ := newHTTPBackend(t, mux)

	_, err := b.VerifyCertificate(context.Background(), "LGC-NOPE")
	assert.True(t, apiclient.IsCategory(err, apiclient.CategoryNotFound))

	v, err := NewCertificateService(b).Verify(context.Background(), " LGC-NOPE ")
	require.NoError(t, err)
	assert.False(t, v.Valid)
	assert.Equal(t, "LGC-NOPE", v.CertificateID)
}

func TestHTTPValidationErrorIsFlattened(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/identity/verify-nin", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, obj{"error": "validation failed", "errors": obj{"nin": []string{"NIN must be exactly 11 digits"}}})
	})
	b, _ := newHTTPBackend(t, mux)

	_, err := b.VerifyNIN(context.Background(), identityInput("123"))
	require.Error(t, err)
	assert.True(t, apiclient.IsCategory(err, apiclient.CategoryValidation))
	assert.Contains(t, err.Error(), "nin: NIN must be exactly 11 digits")
}
