package services

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ghpaylink/paylink-gobackend/internal/models"
	"github.com/shopspring/decimal"
)

// ErrInvalidPayload is returned when a webhook body is not valid JSON.
var ErrInvalidPayload = errors.New("invalid webhook payload")

// MissingRequiredFieldError means a successful-payment payload lacks a field
// no record can be stored without.
type MissingRequiredFieldError struct {
	Field string
}

func (e *MissingRequiredFieldError) Error() string {
	return fmt.Sprintf("missing required field %q in successful payment payload", e.Field)
}

// Field aliases in priority order. The gateway's payload schema has changed
// between integrations, so every known spelling is listed.
var (
	eventTypeAliases         = []string{"event", "event.type"}
	txRefAliases             = []string{"tx_ref", "txref"}
	gatewayRefAliases        = []string{"flw_ref", "flwref"}
	amountAliases            = []string{"amount", "charged_amount"}
	chargedAmountAliases     = []string{"charged_amount"}
	currencyAliases          = []string{"currency"}
	statusAliases            = []string{"status"}
	paymentTypeAliases       = []string{"payment_type", "paymentType"}
	processorResponseAliases = []string{"processor_response", "processorResponse"}
	createdAtAliases         = []string{"created_at", "createdAt"}

	customerIDAliases    = []string{"id"}
	customerNameAliases  = []string{"name", "fullname"}
	customerEmailAliases = []string{"email"}
	customerPhoneAliases = []string{"phone_number", "phone"}
	flatCustomerIDAlias  = []string{"customer_id"}
)

// Event-type substrings that mark a completed charge.
var completedChargeIndicators = []string{"charge", "completed"}

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.000Z",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Normalized is the outcome of normalizing one webhook payload. Record is set
// only for successful payloads.
type Normalized struct {
	Successful bool
	EventType  string
	Record     *models.TransactionRecord
}

// Normalizer turns gateway webhook payloads into transaction records.
type Normalizer struct {
	DefaultCurrency string
	Now             func() time.Time
}

func NewNormalizer(defaultCurrency string) *Normalizer {
	return &Normalizer{DefaultCurrency: defaultCurrency, Now: time.Now}
}

// Normalize classifies payload and, when it reports a successful payment,
// extracts the canonical record. A non-successful payload is not an error,
// and neither is an empty body or valid JSON that is not an object: neither
// can report a payment.
func (n *Normalizer) Normalize(payload []byte) (Normalized, error) {
	if len(bytes.TrimSpace(payload)) == 0 {
		return Normalized{}, nil
	}
	if !json.Valid(payload) {
		return Normalized{}, ErrInvalidPayload
	}
	event, ok := decodeFields(payload)
	if !ok {
		return Normalized{}, nil
	}

	// Transaction fields live under "data" on current payloads and at the
	// top level on older ones.
	data := event
	if nested, ok := event["data"].(map[string]interface{}); ok {
		data = fields(nested)
	}

	result := Normalized{EventType: event.str(eventTypeAliases...)}
	result.Successful = isSuccessful(data, result.EventType)
	if !result.Successful {
		return result, nil
	}

	gatewayRef := data.str(gatewayRefAliases...)
	txRef := data.str(txRefAliases...)
	if txRef == "" && gatewayRef != "" {
		txRef = "ref-" + gatewayRef
	}
	if txRef == "" {
		return result, &MissingRequiredFieldError{Field: "tx_ref"}
	}

	amount, found := data.decimal(amountAliases...)
	if !found {
		return result, &MissingRequiredFieldError{Field: "amount"}
	}
	chargedAmount, _ := data.decimal(chargedAmountAliases...)

	currency := strings.ToUpper(data.str(currencyAliases...))
	if currency == "" {
		currency = n.DefaultCurrency
	}

	customer := data.object("customer")
	record := &models.TransactionRecord{
		TxRef:             txRef,
		GatewayRef:        gatewayRef,
		Amount:            amount,
		ChargedAmount:     chargedAmount,
		Currency:          currency,
		Status:            normalizeStatus(data.str(statusAliases...)),
		PaymentType:       data.str(paymentTypeAliases...),
		ProcessorResponse: data.str(processorResponseAliases...),
		Customer: models.Customer{
			ID:          firstNonEmpty(customer.str(customerIDAliases...), data.str(flatCustomerIDAlias...)),
			Name:        customer.str(customerNameAliases...),
			Email:       customer.str(customerEmailAliases...),
			PhoneNumber: customer.str(customerPhoneAliases...),
		},
		CreatedAt: n.createdAt(data),
		Raw:       compactRaw(payload),
	}
	result.Record = record
	return result, nil
}

func (n *Normalizer) now() time.Time {
	if n.Now != nil {
		return n.Now().UTC()
	}
	return time.Now().UTC()
}

func (n *Normalizer) createdAt(data fields) time.Time {
	for _, key := range createdAtAliases {
		switch v := data[key].(type) {
		case string:
			for _, layout := range timestampLayouts {
				if t, err := time.Parse(layout, strings.TrimSpace(v)); err == nil {
					return t.UTC()
				}
			}
		case json.Number:
			if ms, err := v.Int64(); err == nil && ms > 0 {
				return time.UnixMilli(ms).UTC()
			}
		}
	}
	return n.now()
}

func isSuccessful(data fields, eventType string) bool {
	if strings.EqualFold(data.str(statusAliases...), string(models.StatusSuccessful)) {
		return true
	}
	if strings.EqualFold(data.str("event"), "charge.completed") {
		return true
	}
	lowered := strings.ToLower(eventType)
	for _, indicator := range completedChargeIndicators {
		if lowered != "" && strings.Contains(lowered, indicator) {
			return true
		}
	}
	return false
}

func normalizeStatus(status string) models.Status {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "":
		// The gateway omits status on some completed-charge events.
		return models.StatusSuccessful
	case "successful", "success", "succeeded":
		return models.StatusSuccessful
	case "pending":
		return models.StatusPending
	case "failed", "failure", "cancelled":
		return models.StatusFailed
	default:
		return models.StatusUnknown
	}
}

// fields is a permissive view over one JSON object of the payload.
type fields map[string]interface{}

// decodeFields reports false when payload is not a JSON object.
func decodeFields(payload []byte) (fields, bool) {
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()
	var m map[string]interface{}
	if err := dec.Decode(&m); err != nil || m == nil {
		return nil, false
	}
	return fields(m), true
}

// str returns the first alias holding a non-empty string or a number.
func (f fields) str(aliases ...string) string {
	for _, key := range aliases {
		switch v := f[key].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case json.Number:
			return v.String()
		}
	}
	return ""
}

// decimal returns the first alias that parses to a non-zero amount. found
// reports whether any alias was present at all; present but unparsable
// values yield zero.
func (f fields) decimal(aliases ...string) (value decimal.Decimal, found bool) {
	for _, key := range aliases {
		raw, ok := f[key]
		if !ok || raw == nil {
			continue
		}
		found = true

		var d decimal.Decimal
		var err error
		switch v := raw.(type) {
		case json.Number:
			d, err = decimal.NewFromString(v.String())
		case string:
			d, err = decimal.NewFromString(strings.TrimSpace(v))
		default:
			err = strconv.ErrSyntax
		}
		if err == nil && !d.IsZero() {
			return d, true
		}
	}
	return decimal.Zero, found
}

func (f fields) object(key string) fields {
	if nested, ok := f[key].(map[string]interface{}); ok {
		return fields(nested)
	}
	return fields{}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func compactRaw(payload []byte) json.RawMessage {
	var buf bytes.Buffer
	if err := json.Compact(&buf, payload); err != nil {
		return json.RawMessage(payload)
	}
	return json.RawMessage(buf.Bytes())
}
