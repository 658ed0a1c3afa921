package payment

import (
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lgcert/indigene-certificate/internal/httpctx"
)

var checkoutPage = template.Must(template.New("checkout").Parse(`<!doctype html>
<html>
<head><title>Payment {{.Reference}}</title></head>
<body>
<h1>Indigene certificate fee</h1>
<p>Reference: {{.Reference}}</p>
<p>Amount: {{.Currency}} {{printf "%.2f" .Amount}}</p>
{{if eq .Status "paid"}}<p>This payment is complete.</p>{{else}}
<form method="post" action="{{.Action}}"><button type="submit">Pay now</button></form>{{end}}
</body>
</html>`))

type Handler struct {
	service Service
	mock    *MockGateway
	// returnURL receives the reference once a mock checkout completes.
	returnURL string
}

// NewHandler wires the payment endpoints. mock is nil unless the mock gateway is active.
func NewHandler(service Service, mock *MockGateway, returnURL string) *Handler {
	return &Handler{service: service, mock: mock, returnURL: returnURL}
}

// Initialize starts a charge for an application or digitization request
// @Summary Initialize payment
// @Tags payments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body InitializeRequest true "Record to pay for"
// @Success 201 {object} InitializeResponse
// @Router /payments/initialize [post]
func (h *Handler) Initialize(c *gin.Context) {
	var req InitializeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	resp, err := h.service.Initialize(c.Request.Context(), httpctx.Viewer(c), req, httpctx.ClientIP(c))
	if err != nil {
		httpctx.Fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

// Verify checks a charge with the gateway
// @Summary Verify payment
// @Tags payments
// @Produce json
// @Security BearerAuth
// @Param reference path string true "Payment reference"
// @Success 200 {object} VerifyResponse
// @Router /payments/verify/{reference} [get]
func (h *Handler) Verify(c *gin.Context) {
	resp, err := h.service.Verify(c.Request.Context(), httpctx.Viewer(c), c.Param("reference"), httpctx.ClientIP(c))
	if err != nil {
		httpctx.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// Callback accepts the signed gateway return for inline checkouts
// @Summary Payment callback
// @Tags payments
// @Accept json
// @Produce json
// @Param body body CallbackRequest true "Gateway signature"
// @Success 200 {object} VerifyResponse
// @Router /payments/callback [post]
func (h *Handler) Callback(c *gin.Context) {
	var req CallbackRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	resp, err := h.service.Callback(c.Request.Context(), req, httpctx.ClientIP(c))
	if err != nil {
		httpctx.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// ListMine returns the caller's payments
// @Summary My payments
// @Tags payments
// @Produce json
// @Security BearerAuth
// @Success 200 {array} Payment
// @Router /payments/my [get]
func (h *Handler) ListMine(c *gin.Context) {
	items, err := h.service.ListMine(c.Request.Context(), httpctx.UserID(c))
	if err != nil {
		httpctx.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

// Checkout renders the hosted page of the mock gateway.
func (h *Handler) Checkout(c *gin.Context) {
	if h.mock == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "checkout page is only served by the mock gateway"})
		return
	}
	p, err := h.service.Get(c.Request.Context(), c.Param("reference"))
	if err != nil {
		httpctx.Fail(c, err)
		return
	}
	c.Header("Content-Type", "text/html; charset=utf-8")
	c.Status(http.StatusOK)
	_ = checkoutPage.Execute(c.Writer, map[string]interface{}{
		"Reference": p.Reference,
		"Amount":    p.Amount,
		"Currency":  p.Currency,
		"Status":    string(p.Status),
		"Action":    c.Request.URL.Path,
	})
}

// CompleteCheckout pays a mock order and sends the browser back to the portal.
func (h *Handler) CompleteCheckout(c *gin.Context) {
	if h.mock == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "checkout page is only served by the mock gateway"})
		return
	}
	p, err := h.service.Get(c.Request.Context(), c.Param("reference"))
	if err != nil {
		httpctx.Fail(c, err)
		return
	}
	h.mock.Complete(p.GatewayOrderID)
	resp, err := h.service.Reconcile(c.Request.Context(), p.Reference, httpctx.ClientIP(c))
	if err != nil {
		httpctx.Fail(c, err)
		return
	}
	if h.returnURL == "" {
		c.JSON(http.StatusOK, gin.H{"data": resp})
		return
	}
	c.Redirect(http.StatusSeeOther, h.returnURL+"?reference="+p.Reference+"&status="+resp.Status)
}
