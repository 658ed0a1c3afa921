package superadmin

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/lgcert/indigene-certificate/config"
	"github.com/lgcert/indigene-certificate/database/dbtest"
	"github.com/lgcert/indigene-certificate/internal/access"
	"github.com/lgcert/indigene-certificate/internal/auditlog"
	"github.com/lgcert/indigene-certificate/internal/auth"
	"github.com/lgcert/indigene-certificate/internal/httpctx"
	"github.com/lgcert/indigene-certificate/internal/lifecycle"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStats struct {
	stats  lifecycle.Stats
	scopes []*uint
}

func (f *fakeStats) Stats(_ context.Context, lgaID *uint, _ int) (*lifecycle.Stats, error) {
	f.scopes = append(f.scopes, lgaID)
	s := f.stats
	return &s, nil
}

type fakeCounter int64

func (f fakeCounter) CountIssued(context.Context, *uint) (int64, error) { return int64(f), nil }

type fakeRevenue float64

func (f fakeRevenue) Revenue(context.Context, *uint) (float64, error) { return float64(f), nil }

func newTestService(t *testing.T) (*Service, *fakeStats) {
	db := dbtest.Open(t, &auth.UserRole{}, &auth.User{}, &auditlog.AuditLog{})
	require.NoError(t, auth.SeedUserRoles(db))
	audit := auditlog.NewService(auditlog.NewRepository(db), nil)
	authSvc := auth.NewService(auth.NewRepository(db), &config.Config{
		JWTAccessSecret:     "a",
		JWTRefreshSecret:    "r",
		JWTAccessTTLMinutes: 5,
		JWTRefreshTTLHours:  1,
	}, audit)
	apps := &fakeStats{stats: lifecycle.Stats{Total: 7, AwaitingCount: 3}}
	digs := &fakeStats{stats: lifecycle.Stats{Total: 2, AwaitingCount: 1}}
	return NewService(authSvc, apps, digs, fakeCounter(4), fakeRevenue(25000), audit), apps
}

func TestCreateAdminValidatesPermissions(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateAdmin(ctx, 1, CreateAdminRequest{
		FullName: "Tunde Admin", Email: "tunde@ikeja.gov.ng", Password: "password1",
		LocalGovernmentID: 3, Permissions: []string{"view_applications", "launch_rockets"},
	}, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "launch_rockets")

	user, err := svc.CreateAdmin(ctx, 1, CreateAdminRequest{
		FullName: "Tunde Admin", Email: "tunde@ikeja.gov.ng", Password: "password1",
		LocalGovernmentID: 3, Permissions: []string{"view_applications", "review_applications"},
	}, "")
	require.NoError(t, err)
	assert.Equal(t, []auth.PermissionFlag{auth.PermViewApplications, auth.PermReviewApplications}, user.Flags())

	lga := uint(3)
	admins, err := svc.ListAdmins(ctx, &lga)
	require.NoError(t, err)
	require.Len(t, admins, 1)
	assert.Equal(t, "active", admins[0].Status)

	updated, err := svc.UpdatePermissions(ctx, 1, user.ID, []string{"manage_fields"}, "")
	require.NoError(t, err)
	assert.Equal(t, []auth.PermissionFlag{auth.PermManageFields}, updated.Flags())

	require.NoError(t, svc.UpdateStatus(ctx, 1, user.ID, "inactive", ""))
	admins, err = svc.ListAdmins(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, "inactive", admins[0].Status)
}

func TestBulkUploadAdmins(t *testing.T) {
	svc, _ := newTestService(t)
	csv := strings.Join([]string{
		"full_name,email,phone,password,local_government_id,permissions",
		"Ada Obi,ada@lga.gov.ng,08031234567,password1,1,view_applications;view_reports",
		"No Lga,nolga@lga.gov.ng,,password1,,",
		"Ada Again,ada@lga.gov.ng,,password1,1,",
		"Short Pw,short@lga.gov.ng,,pw,2,",
	}, "\n")

	res, err := svc.BulkUploadAdmins(context.Background(), strings.NewReader(csv), 1, "")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Created)
	assert.Equal(t, 3, res.Failed)
	require.Len(t, res.Errors, 3)
	assert.Equal(t, 3, res.Errors[0].Row)
	assert.Equal(t, "invalid local_government_id", res.Errors[0].Error)

	_, err = svc.BulkUploadAdmins(context.Background(), strings.NewReader("name,email\n"), 1, "")
	require.Error(t, err)
}

func TestDashboardAggregates(t *testing.T) {
	svc, apps := newTestService(t)
	lga := uint(5)

	d, err := svc.Dashboard(context.Background(), &lga, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(7), d.Applications.Total)
	assert.Equal(t, int64(2), d.Digitization.Total)
	assert.Equal(t, int64(4), d.PendingReview)
	assert.Equal(t, int64(4), d.CertificatesIssued)
	assert.Equal(t, 25000.0, d.Revenue)
	require.Len(t, apps.scopes, 1)
	assert.Equal(t, &lga, apps.scopes[0])
}

func TestHandlerScopesDashboardForLGAdmins(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc, apps := newTestService(t)
	h := NewHandler(svc)
	scope := uint(8)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(httpctx.KeyUserID, uint(2))
		c.Set(httpctx.KeyRole, access.RoleLGAdmin)
		c.Set(httpctx.KeyLGAScope, &scope)
	})
	r.GET("/admin/dashboard", h.Dashboard)
	r.POST("/superadmin/users", h.CreateAdmin)
	r.POST("/superadmin/users/bulk-upload", h.BulkUpload)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin/dashboard?local_government_id=1", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, &scope, apps.scopes[0])

	body := `{"fullName":"A","email":"a@lga.gov.ng","password":"password1","localGovernmentId":1}`
	for _, want := range []int{http.StatusCreated, http.StatusConflict} {
		w = httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/superadmin/users", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)
		assert.Equal(t, want, w.Code, w.Body.String())
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "admins.csv")
	require.NoError(t, err)
	_, _ = part.Write([]byte("full_name,email,phone,password,local_government_id\nB,b@lga.gov.ng,,password1,1\n"))
	require.NoError(t, mw.Close())
	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/superadmin/users/bulk-upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"created":1`)
}
