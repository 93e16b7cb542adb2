package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ghpaylink/paylink-gobackend/internal/config"
	"github.com/ghpaylink/paylink-gobackend/internal/logger"
	"github.com/ghpaylink/paylink-gobackend/internal/models"
	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	txRefPrefix           = "ghpaylink-"
	paymentTitle          = "GH Paylink"
	paymentDescription    = "Payment via GH Paylink"
	flutterwavePaymentsV3 = "/v3/payments"
)

// ErrGatewayNotConfigured is returned when no gateway secret key was set.
var ErrGatewayNotConfigured = errors.New("payment gateway secret key is not configured")

// GatewayError is a failed payment-creation call. Body holds the gateway's
// response when there was one, so it can be relayed to the caller.
type GatewayError struct {
	StatusCode int
	Body       json.RawMessage
	Err        error
}

func (e *GatewayError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("payment gateway call failed: %v", e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("payment gateway returned status %d: %s", e.StatusCode, string(e.Body))
	default:
		return fmt.Sprintf("payment gateway rejected the request: %s", string(e.Body))
	}
}

func (e *GatewayError) Unwrap() error { return e.Err }

type flutterwaveCustomer struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

type flutterwaveCustomizations struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type flutterwavePaymentRequest struct {
	TxRef          string                    `json:"tx_ref"`
	Amount         json.Number               `json:"amount"`
	Currency       string                    `json:"currency"`
	RedirectURL    string                    `json:"redirect_url"`
	Customer       flutterwaveCustomer       `json:"customer"`
	Customizations flutterwaveCustomizations `json:"customizations"`
}

type flutterwavePaymentResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Data    struct {
		Link string `json:"link"`
	} `json:"data"`
}

// FlutterwaveClient creates hosted payment links. Each call is a single
// attempt; failures go straight back to the caller.
type FlutterwaveClient struct {
	client      *resty.Client
	secretKey   string
	redirectURL string
	currency    string
	log         logrus.FieldLogger
	now         func() time.Time
}

func NewFlutterwaveClient(cfg *config.Config, log logrus.FieldLogger) *FlutterwaveClient {
	client := resty.New().
		SetBaseURL(cfg.GatewayBaseURL).
		SetTimeout(cfg.GatewayTimeout).
		SetHeader("Content-Type", "application/json")

	return &FlutterwaveClient{
		client:      client,
		secretKey:   cfg.GatewaySecretKey,
		redirectURL: cfg.RedirectURL,
		currency:    cfg.Currency,
		log:         log,
		now:         time.Now,
	}
}

// NewTxRef returns a merchant transaction reference. The millisecond stamp
// keeps references sortable; the random suffix keeps concurrent requests
// within the same millisecond distinct.
func (c *FlutterwaveClient) NewTxRef() string {
	return fmt.Sprintf("%s%d-%s", txRefPrefix, c.now().UnixMilli(), strings.SplitN(uuid.NewString(), "-", 2)[0])
}

// InitiatePayment asks the gateway for a hosted payment link.
func (c *FlutterwaveClient) InitiatePayment(ctx context.Context, req models.PaymentRequest) (*models.PaymentLink, error) {
	if c.secretKey == "" {
		c.log.Error("FLW_SECRET_KEY is not set, cannot initiate payment")
		return nil, &GatewayError{Err: ErrGatewayNotConfigured}
	}

	body := flutterwavePaymentRequest{
		TxRef:       c.NewTxRef(),
		Amount:      json.Number(req.Amount.String()),
		Currency:    c.currency,
		RedirectURL: c.redirectURL,
		Customer: flutterwaveCustomer{
			Email: req.Email,
			Name:  req.Name,
		},
		Customizations: flutterwaveCustomizations{
			Title:       paymentTitle,
			Description: paymentDescription,
		},
	}

	entry := c.log.WithFields(logrus.Fields{
		"tx_ref":   body.TxRef,
		"email":    logger.MaskEmail(req.Email),
		"amount":   body.Amount,
		"currency": body.Currency,
	})
	entry.Info("Initiating payment")

	var result flutterwavePaymentResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetAuthToken(c.secretKey).
		SetBody(body).
		SetResult(&result).
		Post(flutterwavePaymentsV3)
	if err != nil {
		entry.WithError(err).Error("Payment gateway request failed")
		return nil, &GatewayError{Err: err}
	}

	raw := rawBody(resp.Body())
	if resp.IsError() {
		entry.WithFields(logrus.Fields{"status": resp.StatusCode(), "response": string(raw)}).Error("Payment gateway returned an error")
		return nil, &GatewayError{StatusCode: resp.StatusCode(), Body: raw}
	}

	if !strings.EqualFold(result.Status, "success") || result.Data.Link == "" {
		entry.WithFields(logrus.Fields{"gateway_status": result.Status, "gateway_message": result.Message}).Warn("Payment gateway did not return a link")
		return nil, &GatewayError{StatusCode: http.StatusOK, Body: raw}
	}

	entry.Info("Payment link created")
	return &models.PaymentLink{
		TxRef: body.TxRef,
		Link:  result.Data.Link,
		Body:  raw,
	}, nil
}

// rawBody returns b as JSON, quoting it when the gateway sent something else.
func rawBody(b []byte) json.RawMessage {
	if len(b) > 0 && json.Valid(b) {
		return json.RawMessage(b)
	}
	quoted, _ := json.Marshal(string(b))
	return json.RawMessage(quoted)
}
