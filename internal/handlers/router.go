package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// NewRouter registers every route. Middleware is applied by the caller.
func NewRouter(log logrus.FieldLogger, payments *PaymentHandler, webhooks *WebhookHandler, transactions *TransactionHandler) *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/", Root(log)).Methods(http.MethodGet, http.MethodHead)

	router.HandleFunc("/pay", payments.CreatePayment).Methods(http.MethodPost)
	router.HandleFunc("/api/pay", payments.CreatePayment).Methods(http.MethodPost)

	router.HandleFunc("/webhook", webhooks.Webhook).Methods(http.MethodPost)

	router.HandleFunc("/transactions", transactions.GetTransactions).Methods(http.MethodGet)
	return router
}
