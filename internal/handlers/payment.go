package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ghpaylink/paylink-gobackend/internal/models"
	"github.com/ghpaylink/paylink-gobackend/internal/services"
	"github.com/sirupsen/logrus"
)

const maxPaymentBodyBytes = 64 << 10

// PaymentInitiator obtains hosted payment links from the gateway.
type PaymentInitiator interface {
	InitiatePayment(ctx context.Context, req models.PaymentRequest) (*models.PaymentLink, error)
}

type PaymentHandler struct {
	gateway PaymentInitiator
	log     logrus.FieldLogger
}

func NewPaymentHandler(gateway PaymentInitiator, log logrus.FieldLogger) *PaymentHandler {
	return &PaymentHandler{gateway: gateway, log: log}
}

// CreatePayment relays {name, email, amount} to the gateway and answers with
// the gateway's response body.
func (h *PaymentHandler) CreatePayment(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name   string      `json:"name"`
		Email  string      `json:"email"`
		Amount interface{} `json:"amount"`
	}

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxPaymentBodyBytes))
	dec.UseNumber()
	if err := dec.Decode(&body); err != nil {
		writeJSON(w, h.log, http.StatusBadRequest, errorResponse{Message: "Invalid request body"})
		return
	}

	req, err := services.ValidatePaymentRequest(body.Name, body.Email, body.Amount)
	if err != nil {
		var invalid *services.ValidationError
		if errors.As(err, &invalid) {
			writeJSON(w, h.log, http.StatusBadRequest, errorResponse{Message: "All fields are required", Error: invalid.Fields})
			return
		}
		writeJSON(w, h.log, http.StatusBadRequest, errorResponse{Message: err.Error()})
		return
	}

	link, err := h.gateway.InitiatePayment(r.Context(), req)
	if err != nil {
		h.log.WithError(err).Error("Payment initiation error")
		writeJSON(w, h.log, http.StatusInternalServerError, errorResponse{
			Message: "Payment initiation failed",
			Error:   gatewayDiagnostic(err),
		})
		return
	}

	writeRawJSON(w, h.log, http.StatusOK, link.Body)
}

// gatewayDiagnostic returns the gateway's own response when there was one,
// otherwise the error text.
func gatewayDiagnostic(err error) interface{} {
	var gwErr *services.GatewayError
	if errors.As(err, &gwErr) && len(gwErr.Body) > 0 {
		return gwErr.Body
	}
	return err.Error()
}
