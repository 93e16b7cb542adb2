package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/ghpaylink/paylink-gobackend/internal/config"
	"github.com/ghpaylink/paylink-gobackend/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGateway(t *testing.T, baseURL, secretKey string) *FlutterwaveClient {
	t.Helper()
	cfg := &config.Config{
		GatewaySecretKey: secretKey,
		GatewayBaseURL:   baseURL,
		GatewayTimeout:   5 * time.Second,
		RedirectURL:      "https://shop.example.com/success.html",
		Currency:         "GHS",
	}
	return NewFlutterwaveClient(cfg, quietLogger())
}

func testPaymentRequest() models.PaymentRequest {
	return models.PaymentRequest{Name: "Ama", Email: "ama@example.com", Amount: decimal.NewFromInt(50)}
}

func TestFlutterwaveClient_InitiatePayment(t *testing.T) {
	t.Run("returns the hosted link and the gateway body", func(t *testing.T) {
		var got map[string]interface{}
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/v3/payments", r.URL.Path)
			assert.Equal(t, "Bearer sk_test_123", r.Header.Get("Authorization"))

			dec := json.NewDecoder(r.Body)
			dec.UseNumber()
			require.NoError(t, dec.Decode(&got))

			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"status":"success","message":"Hosted Link","data":{"link":"https://checkout.flutterwave.com/v3/hosted/pay/abc"}}`))
		}))
		defer server.Close()

		link, err := newTestGateway(t, server.URL, "sk_test_123").InitiatePayment(context.Background(), testPaymentRequest())
		require.NoError(t, err)

		assert.Equal(t, "https://checkout.flutterwave.com/v3/hosted/pay/abc", link.Link)
		assert.True(t, strings.HasPrefix(link.TxRef, "ghpaylink-"))
		assert.JSONEq(t, `{"status":"success","message":"Hosted Link","data":{"link":"https://checkout.flutterwave.com/v3/hosted/pay/abc"}}`, string(link.Body))

		assert.Equal(t, link.TxRef, got["tx_ref"])
		assert.Equal(t, json.Number("50"), got["amount"])
		assert.Equal(t, "GHS", got["currency"])
		assert.Equal(t, "https://shop.example.com/success.html", got["redirect_url"])
		assert.Equal(t, map[string]interface{}{"email": "ama@example.com", "name": "Ama"}, got["customer"])
		assert.Equal(t, map[string]interface{}{"title": "GH Paylink", "description": "Payment via GH Paylink"}, got["customizations"])
	})

	t.Run("relays a gateway error body", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"status":"error","message":"Invalid currency"}`))
		}))
		defer server.Close()

		link, err := newTestGateway(t, server.URL, "sk_test_123").InitiatePayment(context.Background(), testPaymentRequest())

		assert.Nil(t, link)
		var gwErr *GatewayError
		require.ErrorAs(t, err, &gwErr)
		assert.Equal(t, http.StatusBadRequest, gwErr.StatusCode)
		assert.JSONEq(t, `{"status":"error","message":"Invalid currency"}`, string(gwErr.Body))
	})

	t.Run("quotes a non-JSON error body", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
			w.Write([]byte("upstream down"))
		}))
		defer server.Close()

		_, err := newTestGateway(t, server.URL, "sk_test_123").InitiatePayment(context.Background(), testPaymentRequest())

		var gwErr *GatewayError
		require.ErrorAs(t, err, &gwErr)
		assert.Equal(t, http.StatusBadGateway, gwErr.StatusCode)
		assert.Equal(t, `"upstream down"`, string(gwErr.Body))
	})

	t.Run("treats a response without a link as a failure", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"status":"error","message":"Merchant suspended","data":null}`))
		}))
		defer server.Close()

		_, err := newTestGateway(t, server.URL, "sk_test_123").InitiatePayment(context.Background(), testPaymentRequest())

		var gwErr *GatewayError
		require.ErrorAs(t, err, &gwErr)
		assert.Equal(t, http.StatusOK, gwErr.StatusCode)
		assert.Contains(t, string(gwErr.Body), "Merchant suspended")
	})

	t.Run("fails without calling the gateway when no key is configured", func(t *testing.T) {
		called := false
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			called = true
		}))
		defer server.Close()

		_, err := newTestGateway(t, server.URL, "").InitiatePayment(context.Background(), testPaymentRequest())

		assert.ErrorIs(t, err, ErrGatewayNotConfigured)
		assert.False(t, called)
	})

	t.Run("wraps a transport failure", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		url := server.URL
		server.Close()

		_, err := newTestGateway(t, url, "sk_test_123").InitiatePayment(context.Background(), testPaymentRequest())

		var gwErr *GatewayError
		require.ErrorAs(t, err, &gwErr)
		assert.NotNil(t, gwErr.Err)
		assert.Zero(t, gwErr.StatusCode)
	})
}

func TestFlutterwaveClient_NewTxRef(t *testing.T) {
	client := newTestGateway(t, "http://localhost", "sk")
	client.now = func() time.Time { return time.UnixMilli(1700000000123) }

	first := client.NewTxRef()
	second := client.NewTxRef()

	assert.Regexp(t, regexp.MustCompile(`^ghpaylink-1700000000123-[0-9a-f]{8}$`), first)
	assert.NotEqual(t, first, second)
}
