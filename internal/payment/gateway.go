package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	razorpay "github.com/razorpay/razorpay-go"

	"github.com/lgcert/indigene-certificate/internal/lifecycle"
)

// Charge is what the gateway is asked to collect.
type Charge struct {
	Reference     string
	Amount        float64
	Currency      string
	Description   string
	CustomerName  string
	CustomerEmail string
	CallbackURL   string
	Mode          string
}

type Checkout struct {
	GatewayOrderID   string
	AuthorizationURL string
	Key              string
}

type Verification struct {
	Status           lifecycle.PaymentStatus
	GatewayPaymentID string
	Method           string
	Amount           float64
}

type Gateway interface {
	Name() string
	Initialize(ctx context.Context, charge Charge) (*Checkout, error)
	Verify(ctx context.Context, gatewayOrderID, mode string) (*Verification, error)
	VerifySignature(orderID, paymentID, signature string) bool
}

// Signature is the hex HMAC-SHA256 of "<order>|<payment>" under secret.
func Signature(secret, orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

func checkSignature(secret, orderID, paymentID, signature string) bool {
	return hmac.Equal([]byte(Signature(secret, orderID, paymentID)), []byte(signature))
}

// RazorpayGateway uses payment links for redirects and orders for the inline modal.
type RazorpayGateway struct {
	client *razorpay.Client
	key    string
	secret string
}

func NewRazorpayGateway(key, secret string) *RazorpayGateway {
	return &RazorpayGateway{
		client: razorpay.NewClient(key, secret),
		key:    key,
		secret: secret,
	}
}

func (g *RazorpayGateway) Name() string { return "razorpay" }

func minorUnits(amount float64) int {
	return int(amount*100 + 0.5)
}

func (g *RazorpayGateway) Initialize(_ context.Context, charge Charge) (*Checkout, error) {
	notes := map[string]interface{}{"reference": charge.Reference}

	if charge.Mode == ModeInline {
		order, err := g.client.Order.Create(map[string]interface{}{
			"amount":          minorUnits(charge.Amount),
			"currency":        charge.Currency,
			"receipt":         charge.Reference,
			"payment_capture": 1,
			"notes":           notes,
		}, nil)
		if err != nil {
			return nil, fmt.Errorf("razorpay order creation failed: %w", err)
		}
		orderID, ok := order["id"].(string)
		if !ok {
			return nil, fmt.Errorf("unable to extract order_id from razorpay response")
		}
		return &Checkout{GatewayOrderID: orderID, Key: g.key}, nil
	}

	link, err := g.client.PaymentLink.Create(map[string]interface{}{
		"amount":          minorUnits(charge.Amount),
		"currency":        charge.Currency,
		"reference_id":    charge.Reference,
		"description":     charge.Description,
		"customer":        map[string]interface{}{"name": charge.CustomerName, "email": charge.CustomerEmail},
		"notify":          map[string]interface{}{"email": charge.CustomerEmail != ""},
		"callback_url":    charge.CallbackURL,
		"callback_method": "get",
		"notes":           notes,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("razorpay payment link creation failed: %w", err)
	}
	linkID, _ := link["id"].(string)
	shortURL, _ := link["short_url"].(string)
	if linkID == "" || shortURL == "" {
		return nil, fmt.Errorf("unable to extract payment link from razorpay response")
	}
	return &Checkout{GatewayOrderID: linkID, AuthorizationURL: shortURL, Key: g.key}, nil
}

func (g *RazorpayGateway) Verify(_ context.Context, gatewayOrderID, mode string) (*Verification, error) {
	var (
		body map[string]interface{}
		err  error
	)
	if mode == ModeInline {
		body, err = g.client.Order.Fetch(gatewayOrderID, nil, nil)
	} else {
		body, err = g.client.PaymentLink.Fetch(gatewayOrderID, nil, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("razorpay fetch failed: %w", err)
	}

	status, ok := body["status"].(string)
	if !ok {
		return nil, fmt.Errorf("invalid payment status format")
	}
	v := &Verification{Status: razorpayStatus(status), Amount: amountFrom(body["amount_paid"]) / 100}
	if payments, ok := body["payments"].([]interface{}); ok && len(payments) > 0 {
		if p, ok := payments[len(payments)-1].(map[string]interface{}); ok {
			v.GatewayPaymentID, _ = p["payment_id"].(string)
			v.Method, _ = p["method"].(string)
		}
	}
	return v, nil
}

// FetchPayment resolves a captured payment, as the inline callback does.
func (g *RazorpayGateway) FetchPayment(paymentID string) (*Verification, error) {
	payment, err := g.client.Payment.Fetch(paymentID, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("razorpay payment fetch failed: %w", err)
	}
	status, _ := payment["status"].(string)
	method, _ := payment["method"].(string)
	v := &Verification{
		Status:           lifecycle.PaymentPending,
		GatewayPaymentID: paymentID,
		Method:           method,
		Amount:           amountFrom(payment["amount"]) / 100,
	}
	switch status {
	case "captured":
		v.Status = lifecycle.PaymentPaid
	case "failed":
		v.Status = lifecycle.PaymentFailed
	}
	return v, nil
}

func (g *RazorpayGateway) VerifySignature(orderID, paymentID, signature string) bool {
	return checkSignature(g.secret, orderID, paymentID, signature)
}

func razorpayStatus(s string) lifecycle.PaymentStatus {
	switch s {
	case "paid", "captured":
		return lifecycle.PaymentPaid
	case "cancelled", "expired", "failed":
		return lifecycle.PaymentFailed
	}
	return lifecycle.PaymentPending
}

func amountFrom(v interface{}) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case int:
		return float64(val)
	case json.Number:
		f, _ := val.Float64()
		return f
	}
	return 0
}

// MockGateway completes charges locally. With AutoCapture every verification
// succeeds; otherwise a charge is paid once its checkout page is visited.
type MockGateway struct {
	AutoCapture bool
	secret      string
	checkoutURL func(reference string) string

	mu        sync.Mutex
	completed map[string]time.Time
	failed    map[string]bool
	amounts   map[string]float64
}

func NewMockGateway(secret string, autoCapture bool, checkoutURL func(reference string) string) *MockGateway {
	return &MockGateway{
		AutoCapture: autoCapture,
		secret:      secret,
		checkoutURL: checkoutURL,
		completed:   map[string]time.Time{},
		failed:      map[string]bool{},
		amounts:     map[string]float64{},
	}
}

func (g *MockGateway) Name() string { return "mock" }

func (g *MockGateway) Initialize(_ context.Context, charge Charge) (*Checkout, error) {
	orderID := "mock_" + strings.ToLower(charge.Reference)
	g.mu.Lock()
	g.amounts[orderID] = charge.Amount
	g.mu.Unlock()
	return &Checkout{GatewayOrderID: orderID, AuthorizationURL: g.checkoutURL(charge.Reference), Key: "mock"}, nil
}

// Complete marks a mock order as paid.
func (g *MockGateway) Complete(orderID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.completed[orderID]; !ok {
		g.completed[orderID] = time.Now()
	}
}

// Fail marks a mock order as declined or expired.
func (g *MockGateway) Fail(orderID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failed[orderID] = true
}

func (g *MockGateway) Verify(_ context.Context, gatewayOrderID, _ string) (*Verification, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failed[gatewayOrderID] {
		return &Verification{Status: lifecycle.PaymentFailed}, nil
	}
	_, done := g.completed[gatewayOrderID]
	if !done && !g.AutoCapture {
		return &Verification{Status: lifecycle.PaymentPending}, nil
	}
	return &Verification{
		Status:           lifecycle.PaymentPaid,
		GatewayPaymentID: "pay_" + strings.TrimPrefix(gatewayOrderID, "mock_"),
		Method:           "mock",
		Amount:           g.amounts[gatewayOrderID],
	}, nil
}

func (g *MockGateway) VerifySignature(orderID, paymentID, signature string) bool {
	return checkSignature(g.secret, orderID, paymentID, signature)
}
