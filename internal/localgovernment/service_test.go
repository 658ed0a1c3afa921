package localgovernment

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/lgcert/indigene-certificate/database/dbtest"
	"github.com/lgcert/indigene-certificate/internal/apperr"
	"github.com/lgcert/indigene-certificate/internal/auditlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (Service, *gorm.DB) {
	db := dbtest.Open(t, &LocalGovernment{}, &auditlog.AuditLog{})
	audit := auditlog.NewService(auditlog.NewRepository(db), nil)
	return NewService(NewRepository(db), audit), db
}

func TestSeedAndList(t *testing.T) {
	svc, db := newTestService(t)
	require.NoError(t, SeedLocalGovernments(db))
	require.NoError(t, SeedLocalGovernments(db))

	all, err := svc.List(context.Background(), Filter{})
	require.NoError(t, err)
	assert.Len(t, all, len(sampleLGAs))

	lagos, err := svc.List(context.Background(), Filter{State: "lagos"})
	require.NoError(t, err)
	assert.Len(t, lagos, 2)
	assert.Equal(t, "Eti-Osa", lagos[0].Name)

	found, err := svc.List(context.Background(), Filter{Search: "nsk"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Nsukka", found[0].Name)
}

func TestCreateUpdateDelete(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, 1, Input{Name: "Ikeja"}, "")
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)

	lga, err := svc.Create(ctx, 1, Input{Name: "Ikeja", State: "Lagos", Code: "ikj", ApplicationFee: 5000}, "")
	require.NoError(t, err)
	assert.Equal(t, "IKJ", lga.Code)
	assert.True(t, lga.IsActive)

	_, err = svc.Create(ctx, 1, Input{Name: "Other", State: "Lagos", Code: "IKJ"}, "")
	assert.ErrorIs(t, err, apperr.ErrDuplicate)

	inactive := false
	updated, err := svc.Update(ctx, 1, lga.ID, Input{Name: "Ikeja", State: "Lagos", Code: "IKJ", ApplicationFee: 6000, DigitizationFee: 2500, IsActive: &inactive}, "")
	require.NoError(t, err)
	assert.False(t, updated.IsActive)

	fees, err := svc.Fees(ctx, lga.ID)
	require.NoError(t, err)
	assert.Equal(t, 6000.0, fees.ApplicationFee)
	assert.Equal(t, 2500.0, fees.DigitizationFee)

	active, err := svc.List(ctx, Filter{ActiveOnly: true})
	require.NoError(t, err)
	assert.Empty(t, active)

	require.NoError(t, svc.Delete(ctx, 1, lga.ID, ""))
	assert.ErrorIs(t, svc.Delete(ctx, 1, lga.ID, ""), apperr.ErrNotFound)
	_, err = svc.Fees(ctx, lga.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestHandlerShapes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc, db := newTestService(t)
	require.NoError(t, SeedLocalGovernments(db))
	h := NewHandler(svc)
	r := gin.New()
	r.GET("/local-governments", h.List)
	r.GET("/local-governments/:id/fees", h.GetFees)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/local-governments?state=Kano", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `[{"id":`)
	assert.Contains(t, w.Body.String(), "Kano Municipal")

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/local-governments/1/fees", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"application_fee":5000`)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/local-governments/999/fees", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/local-governments/abc/fees", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
