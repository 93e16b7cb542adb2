package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ghpaylink/paylink-gobackend/internal/config"
	"github.com/ghpaylink/paylink-gobackend/internal/db"
	"github.com/ghpaylink/paylink-gobackend/internal/handlers"
	"github.com/ghpaylink/paylink-gobackend/internal/logger"
	"github.com/ghpaylink/paylink-gobackend/internal/middleware"
	"github.com/ghpaylink/paylink-gobackend/internal/services"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// storage is whatever backend was selected at startup plus its teardown.
type storage struct {
	transactions services.TransactionStore
	defects      services.DefectReporter
	close        func() error
}

func main() {
	cfg := config.Load(".env")
	log := logger.New(cfg.LogLevel, os.Stdout)

	for _, warning := range cfg.Warnings() {
		log.Warn(warning)
	}

	// Amounts go out as JSON numbers, the way the frontend reads them.
	decimal.MarshalJSONWithoutQuotes = true

	store := openStorage(context.Background(), cfg, log)

	normalizer := services.NewNormalizer(cfg.Currency)
	webhookService := services.NewWebhookService(cfg.WebhookSecretHash, normalizer, store.transactions, store.defects, log)
	gateway := services.NewFlutterwaveClient(cfg, log)

	router := handlers.NewRouter(
		log,
		handlers.NewPaymentHandler(gateway, log),
		handlers.NewWebhookHandler(webhookService, log),
		handlers.NewTransactionHandler(store.transactions, log),
	)

	server := &http.Server{
		Addr: "0.0.0.0:" + cfg.Port,
		Handler: middleware.Chain(router,
			middleware.Recover(log),
			middleware.RequestLogger(log),
			middleware.CORS(cfg.AllowedOrigin),
		),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.GatewayTimeout + 10*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.WithField("port", cfg.Port).Info("Server running")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("Server stopped")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.WithField("signal", sig.String()).Info("Shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.WithError(err).Error("Graceful shutdown failed")
	}
	if err := store.close(); err != nil {
		log.WithError(err).Error("Error closing storage")
	}
	log.Info("Server exited")
}

// openStorage picks MongoDB or PostgreSQL from the URI scheme. Any failure
// leaves the process running with an unavailable store so health checks
// keep answering.
func openStorage(ctx context.Context, cfg *config.Config, log *logrus.Logger) storage {
	unavailable := storage{
		transactions: services.UnavailableStore{},
		defects:      services.NewLogDefectReporter(log),
		close:        func() error { return nil },
	}

	if cfg.StorageURI == "" {
		return unavailable
	}

	if cfg.UsesPostgres() {
		conn, err := db.ConnectPostgres(ctx, cfg.StorageURI)
		if err != nil {
			log.WithError(err).Error("PostgreSQL connection error, transactions cannot be stored")
			return unavailable
		}
		log.Info("Successfully connected to PostgreSQL")

		store := services.NewPostgresTransactionStore(conn, log)
		if err := store.EnsureIndexes(ctx); err != nil {
			log.WithError(err).Warn("Failed to apply transactions schema")
		}
		return storage{
			transactions: store,
			defects:      services.NewLogDefectReporter(log),
			close:        conn.Close,
		}
	}

	client, err := db.ConnectMongo(ctx, cfg.StorageURI)
	if client == nil {
		log.WithError(err).Error("MongoDB connection error, transactions cannot be stored")
		return unavailable
	}
	if err != nil {
		// The driver keeps retrying in the background; requests fail until
		// the server becomes reachable.
		log.WithError(err).Error("MongoDB connection error")
	} else {
		log.Info("Successfully connected to MongoDB")
	}

	database := client.Database(cfg.Database)
	store := services.NewMongoTransactionStore(database, log)
	if err := store.EnsureIndexes(ctx); err != nil {
		log.WithError(err).Warn("Failed to create transaction indexes, writes are refused until a retry succeeds")
	}
	return storage{
		transactions: store,
		defects:      services.NewMongoDefectReporter(database, log),
		close:        func() error { return db.DisconnectMongo(client) },
	}
}
