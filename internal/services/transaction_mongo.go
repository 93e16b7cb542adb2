package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/ghpaylink/paylink-gobackend/internal/models"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const transactionsCollection = "transactions"

// MongoTransactionStore relies on the unique tx_ref index for
// insert-if-absent. Writes are refused until that index is confirmed.
type MongoTransactionStore struct {
	collection *mongo.Collection
	log        logrus.FieldLogger

	indexMu sync.Mutex
	indexed bool
}

func NewMongoTransactionStore(db *mongo.Database, log logrus.FieldLogger) *MongoTransactionStore {
	return NewMongoTransactionStoreWithCollection(db.Collection(transactionsCollection), log)
}

func NewMongoTransactionStoreWithCollection(collection *mongo.Collection, log logrus.FieldLogger) *MongoTransactionStore {
	return &MongoTransactionStore{collection: collection, log: log}
}

type customerDocument struct {
	ID          string `bson:"id,omitempty"`
	Name        string `bson:"name,omitempty"`
	Email       string `bson:"email,omitempty"`
	PhoneNumber string `bson:"phone_number,omitempty"`
}

type transactionDocument struct {
	ID                primitive.ObjectID   `bson:"_id"`
	TxRef             string               `bson:"tx_ref"`
	FlwRef            string               `bson:"flw_ref,omitempty"`
	Amount            primitive.Decimal128 `bson:"amount"`
	ChargedAmount     primitive.Decimal128 `bson:"charged_amount"`
	Currency          string               `bson:"currency"`
	Status            string               `bson:"status"`
	PaymentType       string               `bson:"payment_type,omitempty"`
	ProcessorResponse string               `bson:"processor_response,omitempty"`
	Customer          customerDocument     `bson:"customer"`
	CreatedAt         time.Time            `bson:"created_at"`
	Raw               bson.D               `bson:"raw,omitempty"`
}

// storedTransaction is the read shape. Amounts and customer id are decoded
// loosely because older documents hold plain numbers.
type storedTransaction struct {
	ID                primitive.ObjectID `bson:"_id"`
	TxRef             string             `bson:"tx_ref"`
	FlwRef            string             `bson:"flw_ref"`
	Amount            bson.RawValue      `bson:"amount"`
	ChargedAmount     bson.RawValue      `bson:"charged_amount"`
	Currency          string             `bson:"currency"`
	Status            string             `bson:"status"`
	PaymentType       string             `bson:"payment_type"`
	ProcessorResponse string             `bson:"processor_response"`
	Customer          struct {
		ID          bson.RawValue `bson:"id"`
		Name        string        `bson:"name"`
		Email       string        `bson:"email"`
		PhoneNumber string        `bson:"phone_number"`
	} `bson:"customer"`
	CreatedAt time.Time `bson:"created_at"`
	Raw       bson.Raw  `bson:"raw"`
}

// EnsureIndexes creates the unique tx_ref index that Upsert relies on.
func (s *MongoTransactionStore) EnsureIndexes(ctx context.Context) error {
	s.indexMu.Lock()
	defer s.indexMu.Unlock()
	return s.ensureIndexesLocked(ctx)
}

// requireIndexes retries index creation until it succeeds once.
func (s *MongoTransactionStore) requireIndexes(ctx context.Context) error {
	s.indexMu.Lock()
	defer s.indexMu.Unlock()
	if s.indexed {
		return nil
	}
	if err := s.ensureIndexesLocked(ctx); err != nil {
		return fmt.Errorf("unique tx_ref index unavailable, refusing write: %w", err)
	}
	s.log.Info("Transaction indexes created")
	return nil
}

func (s *MongoTransactionStore) ensureIndexesLocked(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	indexModels := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "tx_ref", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("tx_ref_unique"),
		},
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
	}
	if _, err := s.collection.Indexes().CreateMany(ctx, indexModels); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	s.indexed = true
	return nil
}

// Upsert inserts record unless its TxRef is already stored. The unique index
// turns a concurrent duplicate into a duplicate-key error, which is reported
// as Created=false. Without the index Upsert fails rather than risk a
// second document for the same TxRef.
func (s *MongoTransactionStore) Upsert(ctx context.Context, record *models.TransactionRecord) (models.UpsertResult, error) {
	if err := s.requireIndexes(ctx); err != nil {
		return models.UpsertResult{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	doc, err := s.toDocument(record)
	if err != nil {
		return models.UpsertResult{}, err
	}

	if _, err := s.collection.InsertOne(ctx, doc); err != nil {
		if !mongo.IsDuplicateKeyError(err) {
			return models.UpsertResult{}, fmt.Errorf("failed to save transaction: %w", err)
		}

		var existing struct {
			ID primitive.ObjectID `bson:"_id"`
		}
		opts := options.FindOne().SetProjection(bson.M{"_id": 1})
		if err := s.collection.FindOne(ctx, bson.M{"tx_ref": record.TxRef}, opts).Decode(&existing); err != nil {
			s.log.WithError(err).WithField("tx_ref", record.TxRef).Warn("Duplicate transaction but existing id lookup failed")
			return models.UpsertResult{Created: false}, nil
		}
		return models.UpsertResult{Created: false, ID: existing.ID.Hex()}, nil
	}

	record.ID = doc.ID.Hex()
	return models.UpsertResult{Created: true, ID: record.ID}, nil
}

// List returns every stored transaction sorted by created_at descending.
func (s *MongoTransactionStore) List(ctx context.Context) ([]models.TransactionRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	cur, err := s.collection.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch transactions: %w", err)
	}
	defer cur.Close(ctx)

	var docs []storedTransaction
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode transactions: %w", err)
	}

	records := make([]models.TransactionRecord, 0, len(docs))
	for _, doc := range docs {
		records = append(records, s.fromDocument(doc))
	}
	return records, nil
}

func (s *MongoTransactionStore) toDocument(record *models.TransactionRecord) (*transactionDocument, error) {
	amount, err := primitive.ParseDecimal128(record.Amount.String())
	if err != nil {
		return nil, fmt.Errorf("invalid amount %s: %w", record.Amount, err)
	}
	charged, err := primitive.ParseDecimal128(record.ChargedAmount.String())
	if err != nil {
		return nil, fmt.Errorf("invalid charged amount %s: %w", record.ChargedAmount, err)
	}

	doc := &transactionDocument{
		ID:                primitive.NewObjectID(),
		TxRef:             record.TxRef,
		FlwRef:            record.GatewayRef,
		Amount:            amount,
		ChargedAmount:     charged,
		Currency:          record.Currency,
		Status:            string(record.Status),
		PaymentType:       record.PaymentType,
		ProcessorResponse: record.ProcessorResponse,
		Customer: customerDocument{
			ID:          record.Customer.ID,
			Name:        record.Customer.Name,
			Email:       record.Customer.Email,
			PhoneNumber: record.Customer.PhoneNumber,
		},
		CreatedAt: record.CreatedAt,
	}

	if len(record.Raw) > 0 {
		if err := bson.UnmarshalExtJSON(record.Raw, false, &doc.Raw); err != nil {
			s.log.WithError(err).WithField("tx_ref", record.TxRef).Warn("Raw payload is not storable as a document, keeping it as text")
			doc.Raw = bson.D{{Key: "text", Value: string(record.Raw)}}
		}
	}
	return doc, nil
}

func (s *MongoTransactionStore) fromDocument(doc storedTransaction) models.TransactionRecord {
	record := models.TransactionRecord{
		ID:                doc.ID.Hex(),
		TxRef:             doc.TxRef,
		GatewayRef:        doc.FlwRef,
		Amount:            decimalFromRaw(doc.Amount),
		ChargedAmount:     decimalFromRaw(doc.ChargedAmount),
		Currency:          doc.Currency,
		Status:            models.Status(doc.Status),
		PaymentType:       doc.PaymentType,
		ProcessorResponse: doc.ProcessorResponse,
		Customer: models.Customer{
			ID:          stringFromRaw(doc.Customer.ID),
			Name:        doc.Customer.Name,
			Email:       doc.Customer.Email,
			PhoneNumber: doc.Customer.PhoneNumber,
		},
		CreatedAt: doc.CreatedAt.UTC(),
	}

	if len(doc.Raw) > 0 {
		if raw, err := bson.MarshalExtJSON(doc.Raw, false, false); err == nil {
			record.Raw = json.RawMessage(raw)
		} else {
			s.log.WithError(err).WithField("tx_ref", doc.TxRef).Warn("Failed to render raw payload")
		}
	}
	return record
}

func decimalFromRaw(v bson.RawValue) decimal.Decimal {
	if d, ok := v.Decimal128OK(); ok {
		if parsed, err := decimal.NewFromString(d.String()); err == nil {
			return parsed
		}
	}
	if f, ok := v.DoubleOK(); ok {
		return decimal.NewFromFloat(f)
	}
	if i, ok := v.Int32OK(); ok {
		return decimal.NewFromInt32(i)
	}
	if i, ok := v.Int64OK(); ok {
		return decimal.NewFromInt(i)
	}
	if s, ok := v.StringValueOK(); ok {
		if parsed, err := decimal.NewFromString(s); err == nil {
			return parsed
		}
	}
	return decimal.Zero
}

func stringFromRaw(v bson.RawValue) string {
	if s, ok := v.StringValueOK(); ok {
		return s
	}
	if i, ok := v.Int32OK(); ok {
		return strconv.FormatInt(int64(i), 10)
	}
	if i, ok := v.Int64OK(); ok {
		return strconv.FormatInt(i, 10)
	}
	if f, ok := v.DoubleOK(); ok {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return ""
}
