package handlers

import (
	"context"
	"net/http"

	"github.com/ghpaylink/paylink-gobackend/internal/models"
	"github.com/sirupsen/logrus"
)

// TransactionLister reads stored transactions, newest first.
type TransactionLister interface {
	List(ctx context.Context) ([]models.TransactionRecord, error)
}

type TransactionHandler struct {
	store TransactionLister
	log   logrus.FieldLogger
}

func NewTransactionHandler(store TransactionLister, log logrus.FieldLogger) *TransactionHandler {
	return &TransactionHandler{store: store, log: log}
}

func (h *TransactionHandler) GetTransactions(w http.ResponseWriter, r *http.Request) {
	records, err := h.store.List(r.Context())
	if err != nil {
		h.log.WithError(err).Error("Failed to fetch transactions")
		writeJSON(w, h.log, http.StatusInternalServerError, errorResponse{
			Message: "Failed to fetch transactions",
			Error:   err.Error(),
		})
		return
	}
	if records == nil {
		records = []models.TransactionRecord{}
	}
	writeJSON(w, h.log, http.StatusOK, records)
}
