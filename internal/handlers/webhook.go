package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/ghpaylink/paylink-gobackend/internal/services"
	"github.com/sirupsen/logrus"
)

const maxWebhookBodyBytes = 1 << 20

// WebhookIngester runs one webhook delivery to completion.
type WebhookIngester interface {
	Ingest(ctx context.Context, signature string, payload []byte) (services.Outcome, error)
}

type WebhookHandler struct {
	ingester WebhookIngester
	log      logrus.FieldLogger
}

func NewWebhookHandler(ingester WebhookIngester, log logrus.FieldLogger) *WebhookHandler {
	return &WebhookHandler{ingester: ingester, log: log}
}

// Webhook answers the gateway in plain text. Only a bad signature, a body
// that is not JSON or a storage failure produce a non-200 response.
func (h *WebhookHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBodyBytes))
	if err != nil {
		h.log.WithError(err).Warn("Failed to read webhook body")
		writeText(w, h.log, http.StatusBadRequest, "Invalid webhook payload")
		return
	}

	outcome, err := h.ingester.Ingest(r.Context(), r.Header.Get(services.SignatureHeader), payload)
	switch {
	case errors.Is(err, services.ErrInvalidSignature):
		writeText(w, h.log, http.StatusUnauthorized, "Invalid signature")
	case errors.Is(err, services.ErrInvalidPayload):
		writeText(w, h.log, http.StatusBadRequest, "Invalid webhook payload")
	case err != nil:
		writeText(w, h.log, http.StatusInternalServerError, "Server error")
	case outcome == services.OutcomeIgnored:
		writeText(w, h.log, http.StatusOK, "Webhook received (no action)")
	default:
		writeText(w, h.log, http.StatusOK, "Webhook received")
	}
}
