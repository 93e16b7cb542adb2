package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ghpaylink/paylink-gobackend/internal/models"
	"github.com/sirupsen/logrus"
)

// ErrInvalidSignature is returned when a webhook does not carry the
// configured secret.
var ErrInvalidSignature = errors.New("invalid webhook signature")

// Outcome is the terminal state of one webhook delivery.
type Outcome string

const (
	OutcomeRejected  Outcome = "rejected"
	OutcomeInvalid   Outcome = "invalid"
	OutcomeIgnored   Outcome = "ignored"
	OutcomeDefect    Outcome = "defect"
	OutcomeStored    Outcome = "stored"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeFailed    Outcome = "failed"
)

// Acknowledged reports whether the gateway should receive a success response.
func (o Outcome) Acknowledged() bool {
	switch o {
	case OutcomeIgnored, OutcomeDefect, OutcomeStored, OutcomeDuplicate:
		return true
	}
	return false
}

// WebhookService runs one webhook delivery through signature check,
// normalization and storage, in that order.
type WebhookService struct {
	secret     string
	normalizer *Normalizer
	store      TransactionStore
	defects    DefectReporter
	log        logrus.FieldLogger
	now        func() time.Time
}

func NewWebhookService(secret string, normalizer *Normalizer, store TransactionStore, defects DefectReporter, log logrus.FieldLogger) *WebhookService {
	return &WebhookService{
		secret:     secret,
		normalizer: normalizer,
		store:      store,
		defects:    defects,
		log:        log,
		now:        time.Now,
	}
}

// Ingest processes one delivery. A non-nil error is returned only for a bad
// signature, an unparsable body, or a storage failure; every other outcome
// is acknowledged.
func (s *WebhookService) Ingest(ctx context.Context, signature string, payload []byte) (Outcome, error) {
	if !VerifySignature(signature, s.secret) {
		s.log.WithFields(logrus.Fields{
			"signature_present": signature != "",
			"secret_configured": s.secret != "",
		}).Warn("Invalid webhook signature")
		return OutcomeRejected, ErrInvalidSignature
	}

	s.log.WithField("payload", string(payload)).Debug("Webhook data received")

	normalized, err := s.normalizer.Normalize(payload)
	if err != nil {
		var missing *MissingRequiredFieldError
		if errors.As(err, &missing) {
			s.defects.Report(ctx, models.WebhookDefect{
				Reason:     err.Error(),
				Field:      missing.Field,
				Raw:        compactRaw(payload),
				ReceivedAt: s.now().UTC(),
			})
			return OutcomeDefect, nil
		}
		s.log.WithError(err).Warn("Rejecting unparsable webhook body")
		return OutcomeInvalid, err
	}

	if !normalized.Successful {
		s.log.WithField("event", normalized.EventType).Info("Webhook received but not a successful payment")
		return OutcomeIgnored, nil
	}

	record := normalized.Record
	entry := s.log.WithFields(logrus.Fields{
		"tx_ref":   record.TxRef,
		"flw_ref":  record.GatewayRef,
		"amount":   record.Amount.String(),
		"currency": record.Currency,
	})

	result, err := s.store.Upsert(ctx, record)
	if err != nil {
		entry.WithError(err).Error("Error processing webhook")
		return OutcomeFailed, fmt.Errorf("store transaction %s: %w", record.TxRef, err)
	}

	if !result.Created {
		entry.WithField("id", result.ID).Info("Duplicate webhook delivery, transaction already stored")
		return OutcomeDuplicate, nil
	}

	entry.WithField("id", result.ID).Info("Transaction saved")
	return OutcomeStored, nil
}
