package services

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ghpaylink/paylink-gobackend/internal/models"
	"github.com/shopspring/decimal"
)

// ValidationError lists the payment request fields that were missing or
// unusable.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid payment request: %s", strings.Join(e.Fields, ", "))
}

// ValidatePaymentRequest checks the /pay body. amount may be a JSON number
// or a numeric string and must be greater than zero.
func ValidatePaymentRequest(name, email string, amount interface{}) (models.PaymentRequest, error) {
	req := models.PaymentRequest{
		Name:  strings.TrimSpace(name),
		Email: strings.TrimSpace(email),
	}

	var invalid []string
	if req.Name == "" {
		invalid = append(invalid, "name")
	}
	if req.Email == "" {
		invalid = append(invalid, "email")
	}

	parsed, ok := parseAmount(amount)
	if !ok || !parsed.IsPositive() {
		invalid = append(invalid, "amount")
	}
	req.Amount = parsed

	if len(invalid) > 0 {
		return models.PaymentRequest{}, &ValidationError{Fields: invalid}
	}
	return req, nil
}

func parseAmount(amount interface{}) (decimal.Decimal, bool) {
	var s string
	switch v := amount.(type) {
	case json.Number:
		s = v.String()
	case string:
		s = strings.TrimSpace(v)
	case float64:
		return decimal.NewFromFloat(v), true
	default:
		return decimal.Zero, false
	}
	if s == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}
