package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/ghpaylink/paylink-gobackend/internal/models"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS transactions (
		id                 BIGSERIAL PRIMARY KEY,
		tx_ref             TEXT        NOT NULL,
		flw_ref            TEXT        NOT NULL DEFAULT '',
		amount             NUMERIC     NOT NULL DEFAULT 0,
		charged_amount     NUMERIC     NOT NULL DEFAULT 0,
		currency           TEXT        NOT NULL,
		status             TEXT        NOT NULL,
		payment_type       TEXT        NOT NULL DEFAULT '',
		processor_response TEXT        NOT NULL DEFAULT '',
		customer_id        TEXT        NOT NULL DEFAULT '',
		customer_name      TEXT        NOT NULL DEFAULT '',
		customer_email     TEXT        NOT NULL DEFAULT '',
		customer_phone     TEXT        NOT NULL DEFAULT '',
		created_at         TIMESTAMPTZ NOT NULL,
		raw                JSONB,
		CONSTRAINT transactions_tx_ref_key UNIQUE (tx_ref)
	)`,
	`CREATE INDEX IF NOT EXISTS transactions_created_at_idx ON transactions (created_at DESC)`,
}

const (
	insertTransactionQuery = `INSERT INTO transactions
		(tx_ref, flw_ref, amount, charged_amount, currency, status, payment_type, processor_response,
		 customer_id, customer_name, customer_email, customer_phone, created_at, raw)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (tx_ref) DO NOTHING
		RETURNING id`
	selectTransactionIDQuery = `SELECT id FROM transactions WHERE tx_ref = $1`
	listTransactionsQuery    = `SELECT id, tx_ref, flw_ref, amount, charged_amount, currency, status, payment_type,
		processor_response, customer_id, customer_name, customer_email, customer_phone, created_at, raw
		FROM transactions ORDER BY created_at DESC`
)

// PostgresTransactionStore keeps transactions in PostgreSQL. The tx_ref
// unique constraint makes the insert-if-absent atomic.
type PostgresTransactionStore struct {
	db  *sqlx.DB
	log logrus.FieldLogger
}

func NewPostgresTransactionStore(db *sqlx.DB, log logrus.FieldLogger) *PostgresTransactionStore {
	return &PostgresTransactionStore{db: db, log: log}
}

type transactionRow struct {
	ID                int64           `db:"id"`
	TxRef             string          `db:"tx_ref"`
	FlwRef            string          `db:"flw_ref"`
	Amount            decimal.Decimal `db:"amount"`
	ChargedAmount     decimal.Decimal `db:"charged_amount"`
	Currency          string          `db:"currency"`
	Status            string          `db:"status"`
	PaymentType       string          `db:"payment_type"`
	ProcessorResponse string          `db:"processor_response"`
	CustomerID        string          `db:"customer_id"`
	CustomerName      string          `db:"customer_name"`
	CustomerEmail     string          `db:"customer_email"`
	CustomerPhone     string          `db:"customer_phone"`
	CreatedAt         time.Time       `db:"created_at"`
	Raw               []byte          `db:"raw"`
}

func (s *PostgresTransactionStore) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	for _, stmt := range postgresSchema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}

func (s *PostgresTransactionStore) Upsert(ctx context.Context, record *models.TransactionRecord) (models.UpsertResult, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var raw interface{}
	if len(record.Raw) > 0 {
		raw = string(record.Raw)
	}

	var id int64
	err := s.db.QueryRowxContext(ctx, insertTransactionQuery,
		record.TxRef,
		record.GatewayRef,
		record.Amount,
		record.ChargedAmount,
		record.Currency,
		string(record.Status),
		record.PaymentType,
		record.ProcessorResponse,
		record.Customer.ID,
		record.Customer.Name,
		record.Customer.Email,
		record.Customer.PhoneNumber,
		record.CreatedAt,
		raw,
	).Scan(&id)

	switch {
	case err == nil:
		record.ID = strconv.FormatInt(id, 10)
		return models.UpsertResult{Created: true, ID: record.ID}, nil
	case errors.Is(err, sql.ErrNoRows):
		// ON CONFLICT DO NOTHING returns no row: the tx_ref is already stored.
		if err := s.db.GetContext(ctx, &id, selectTransactionIDQuery, record.TxRef); err != nil {
			s.log.WithError(err).WithField("tx_ref", record.TxRef).Warn("Duplicate transaction but existing id lookup failed")
			return models.UpsertResult{Created: false}, nil
		}
		return models.UpsertResult{Created: false, ID: strconv.FormatInt(id, 10)}, nil
	default:
		return models.UpsertResult{}, fmt.Errorf("failed to save transaction: %w", err)
	}
}

func (s *PostgresTransactionStore) List(ctx context.Context) ([]models.TransactionRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var rows []transactionRow
	if err := s.db.SelectContext(ctx, &rows, listTransactionsQuery); err != nil {
		return nil, fmt.Errorf("failed to fetch transactions: %w", err)
	}

	records := make([]models.TransactionRecord, 0, len(rows))
	for _, row := range rows {
		record := models.TransactionRecord{
			ID:                strconv.FormatInt(row.ID, 10),
			TxRef:             row.TxRef,
			GatewayRef:        row.FlwRef,
			Amount:            row.Amount,
			ChargedAmount:     row.ChargedAmount,
			Currency:          row.Currency,
			Status:            models.Status(row.Status),
			PaymentType:       row.PaymentType,
			ProcessorResponse: row.ProcessorResponse,
			Customer: models.Customer{
				ID:          row.CustomerID,
				Name:        row.CustomerName,
				Email:       row.CustomerEmail,
				PhoneNumber: row.CustomerPhone,
			},
			CreatedAt: row.CreatedAt.UTC(),
		}
		if len(row.Raw) > 0 {
			record.Raw = json.RawMessage(row.Raw)
		}
		records = append(records, record)
	}
	return records, nil
}
