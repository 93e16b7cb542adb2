package services

import (
	"context"
	"errors"

	"github.com/ghpaylink/paylink-gobackend/internal/models"
)

// ErrStoreUnavailable is returned by every operation when no datastore was
// configured or reachable at startup.
var ErrStoreUnavailable = errors.New("transaction store unavailable")

// TransactionStore persists transaction records, at most one per TxRef.
//
// Upsert must be a single atomic insert-if-absent: concurrent deliveries of
// the same TxRef race on the datastore's unique constraint, exactly one gets
// Created=true and the rest observe the conflict as Created=false. An existing
// record is never modified (first write wins).
type TransactionStore interface {
	Upsert(ctx context.Context, record *models.TransactionRecord) (models.UpsertResult, error)
	// List returns every record, newest CreatedAt first.
	List(ctx context.Context) ([]models.TransactionRecord, error)
	EnsureIndexes(ctx context.Context) error
}

// UnavailableStore stands in when storage is not configured so the process
// can still serve health checks.
type UnavailableStore struct{}

func (UnavailableStore) Upsert(context.Context, *models.TransactionRecord) (models.UpsertResult, error) {
	return models.UpsertResult{}, ErrStoreUnavailable
}

func (UnavailableStore) List(context.Context) ([]models.TransactionRecord, error) {
	return nil, ErrStoreUnavailable
}

func (UnavailableStore) EnsureIndexes(context.Context) error {
	return ErrStoreUnavailable
}
