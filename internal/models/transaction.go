package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Status is the normalized outcome of a gateway transaction.
type Status string

const (
	StatusPending    Status = "pending"
	StatusSuccessful Status = "successful"
	StatusFailed     Status = "failed"
	StatusUnknown    Status = "unknown"
)

// Customer is the payer identity embedded in a transaction record.
type Customer struct {
	ID          string `json:"id,omitempty"`
	Name        string `json:"name,omitempty"`
	Email       string `json:"email,omitempty"`
	PhoneNumber string `json:"phone_number,omitempty"`
}

// TransactionRecord is a confirmed payment as reported by the gateway webhook.
// TxRef is unique across all stored records.
type TransactionRecord struct {
	ID                string          `json:"id,omitempty"`
	TxRef             string          `json:"tx_ref"`
	GatewayRef        string          `json:"flw_ref,omitempty"`
	Amount            decimal.Decimal `json:"amount"`
	ChargedAmount     decimal.Decimal `json:"charged_amount"`
	Currency          string          `json:"currency"`
	Status            Status          `json:"status"`
	PaymentType       string          `json:"payment_type,omitempty"`
	ProcessorResponse string          `json:"processor_response,omitempty"`
	Customer          Customer        `json:"customer"`
	CreatedAt         time.Time       `json:"created_at"`
	Raw               json.RawMessage `json:"raw,omitempty"`
}

// UpsertResult reports whether an upsert created a new record and the id of
// the record that now owns the TxRef.
type UpsertResult struct {
	Created bool
	ID      string
}
