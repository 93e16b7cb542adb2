package services

import (
	"context"
	"time"

	"github.com/ghpaylink/paylink-gobackend/internal/models"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const defectsCollection = "webhook_defects"

// DefectReporter surfaces webhooks that were acknowledged to the gateway but
// could not be stored. Reporting never fails the webhook.
type DefectReporter interface {
	Report(ctx context.Context, defect models.WebhookDefect)
}

// LogDefectReporter writes defects to the error log only.
type LogDefectReporter struct {
	log logrus.FieldLogger
}

func NewLogDefectReporter(log logrus.FieldLogger) *LogDefectReporter {
	return &LogDefectReporter{log: log}
}

func (r *LogDefectReporter) Report(_ context.Context, defect models.WebhookDefect) {
	logDefect(r.log, defect)
}

// MongoDefectReporter logs defects and keeps them in the webhook_defects
// collection for follow-up.
type MongoDefectReporter struct {
	collection *mongo.Collection
	log        logrus.FieldLogger
}

func NewMongoDefectReporter(db *mongo.Database, log logrus.FieldLogger) *MongoDefectReporter {
	return &MongoDefectReporter{collection: db.Collection(defectsCollection), log: log}
}

func NewMongoDefectReporterWithCollection(collection *mongo.Collection, log logrus.FieldLogger) *MongoDefectReporter {
	return &MongoDefectReporter{collection: collection, log: log}
}

func (r *MongoDefectReporter) Report(ctx context.Context, defect models.WebhookDefect) {
	logDefect(r.log, defect)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	doc := bson.D{
		{Key: "reason", Value: defect.Reason},
		{Key: "field", Value: defect.Field},
		{Key: "received_at", Value: defect.ReceivedAt},
	}
	if len(defect.Raw) > 0 {
		var raw bson.D
		if err := bson.UnmarshalExtJSON(defect.Raw, false, &raw); err == nil {
			doc = append(doc, bson.E{Key: "raw", Value: raw})
		} else {
			doc = append(doc, bson.E{Key: "raw_text", Value: string(defect.Raw)})
		}
	}

	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		r.log.WithError(err).WithField("reason", defect.Reason).Error("Failed to record webhook defect")
	}
}

func logDefect(log logrus.FieldLogger, defect models.WebhookDefect) {
	log.WithFields(logrus.Fields{
		"reason": defect.Reason,
		"field":  defect.Field,
		"raw":    string(defect.Raw),
	}).Error("Webhook acknowledged but not stored")
}
