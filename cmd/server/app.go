package main

import (
	"net/http"

	"gorm.io/gorm"

	"github.com/fremancer/fremancer/internal/config"
	"github.com/fremancer/fremancer/internal/payments"
	"github.com/fremancer/fremancer/internal/server"
)

// NewApp bundles the API router with the configured payment processor.
// Split out of main so end-to-end tests can mount the whole application
// against a test database and a fake processor.
func NewApp(dbConn *gorm.DB, cfg config.Config) http.Handler {
	processor := payments.NewClient(cfg.PaymentAPIURL, cfg.PaymentAPIKey)
	return server.New(dbConn, processor)
}
