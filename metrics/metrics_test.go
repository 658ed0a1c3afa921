package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMiddlewareCountsByRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Middleware())
	r.GET("/api/v1/applications/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	before := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/api/v1/applications/:id", "204"))

	for _, id := range []string{"1", "2"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/applications/"+id, nil))
		assert.Equal(t, http.StatusNoContent, w.Code)
	}

	after := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/api/v1/applications/:id", "204"))
	assert.Equal(t, before+2, after)
}

func TestDomainCounters(t *testing.T) {
	before := testutil.ToFloat64(ninChecks.WithLabelValues("not_found"))
	RecordNINCheck("not_found")
	assert.Equal(t, before+1, testutil.ToFloat64(ninChecks.WithLabelValues("not_found")))

	beforePay := testutil.ToFloat64(payments.WithLabelValues("verify", "failure"))
	RecordPayment("verify", false)
	assert.Equal(t, beforePay+1, testutil.ToFloat64(payments.WithLabelValues("verify", "failure")))
}
