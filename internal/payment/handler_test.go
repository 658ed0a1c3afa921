package payment

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/lgcert/indigene-certificate/internal/access"
	"github.com/lgcert/indigene-certificate/internal/httpctx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRouter(f *fixture) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(f.svc, f.gateway, "http://portal/payment/callback")
	r := gin.New()
	authed := r.Group("/", func(c *gin.Context) {
		c.Set(httpctx.KeyUserID, owner.UserID)
		c.Set(httpctx.KeyRole, access.RoleApplicant)
		c.Next()
	})
	authed.POST("/payments/initialize", h.Initialize)
	authed.GET("/payments/verify/:reference", h.Verify)
	authed.GET("/payments/my", h.ListMine)
	r.POST("/payments/callback", h.Callback)
	r.GET("/payments/checkout/:reference", h.Checkout)
	r.POST("/payments/checkout/:reference", h.CompleteCheckout)
	return r
}

func TestMockCheckoutRoundTrip(t *testing.T) {
	f := newFixture(t)
	r := newRouter(f)

	w := httptest.NewRecorder()
	body := bytes.NewBufferString(`{"record_type":"application","record_id":1}`)
	req := httptest.NewRequest(http.MethodPost, "/payments/initialize", body)
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created struct {
		Data InitializeResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	ref := created.Data.Reference

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/payments/checkout/"+ref, nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), ref)
	assert.Contains(t, w.Body.String(), "NGN 5000.00")
	assert.Contains(t, w.Body.String(), "Pay now")

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/payments/checkout/"+ref, nil))
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "http://portal/payment/callback?reference="+ref+"&status=success", w.Header().Get("Location"))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/payments/verify/"+ref, nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"success"`)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/payments/my", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var mine []Payment
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &mine))
	assert.Len(t, mine, 1)
}

func TestCallbackRejectsForgedSignature(t *testing.T) {
	f := newFixture(t)
	r := newRouter(f)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/payments/callback",
		strings.NewReader(`{"razorpay_order_id":"order_1","razorpay_payment_id":"pay_1","razorpay_signature":"bad"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/payments/callback", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestInitializeUnknownRecord(t *testing.T) {
	f := newFixture(t)
	r := newRouter(f)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/payments/initialize", strings.NewReader(`{"record_type":"application","record_id":77}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
