package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// PaymentRequest is the frontend's request for a hosted payment link.
type PaymentRequest struct {
	Name   string          `json:"name"`
	Email  string          `json:"email"`
	Amount decimal.Decimal `json:"amount"`
}

// PaymentLink is what the gateway returned for a payment request. Body is the
// gateway's full response and is relayed to the frontend unchanged.
type PaymentLink struct {
	TxRef string
	Link  string
	Body  json.RawMessage
}

// WebhookDefect is a successful-payment webhook that could not be turned into
// a transaction record. It is kept for operator follow-up.
type WebhookDefect struct {
	Reason     string          `json:"reason"`
	Field      string          `json:"field,omitempty"`
	Raw        json.RawMessage `json:"raw,omitempty"`
	ReceivedAt time.Time       `json:"received_at"`
}
