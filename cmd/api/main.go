// NovaPay Connector
//
// This is the main entry point for the NovaPay/ShopStack reconciliation
// service. It wires up all dependencies and starts the HTTP server.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/shopstack/novapay-connector/config"
	"github.com/shopstack/novapay-connector/internal/api"
	"github.com/shopstack/novapay-connector/internal/core/service"
	"github.com/shopstack/novapay-connector/internal/platform/commerce"
	"github.com/shopstack/novapay-connector/internal/platform/novapay"
	"github.com/shopstack/novapay-connector/internal/store"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("starting novapay-connector")

	cfg := config.Load()
	validateConfig(cfg, logger)

	// Wire up dependencies (manual dependency injection)
	//
	// Infrastructure layer
	correlationStore, err := store.NewRedisStore(cfg.Redis.URL, logger)
	if err != nil {
		logger.Fatal("failed to connect to correlation store", zap.Error(err))
	}
	defer correlationStore.Close()

	commerceClient := commerce.NewClient(cfg.Commerce.BaseURL, cfg.Commerce.APIKey, logger)
	gatewayClient := novapay.NewClient(cfg.Gateway.BaseURL, cfg.Gateway.AccessKey, logger)
	checksumValidator := novapay.NewWebhookValidator(cfg.Gateway.PaymentAccessKey, logger)
	sourceChecker := novapay.NewSourceChecker(cfg.Gateway.WebhookHost, cfg.Gateway.WebhookTestMode, novapay.DNSResolver{}, logger)

	// Service layer
	composer := service.NewCommentComposer()
	reconciler := service.NewReconciler(commerceClient, logger)
	webhookService := service.NewWebhookService(
		checksumValidator,
		sourceChecker,
		correlationStore,
		reconciler,
		composer,
		logger,
	)
	paymentService := service.NewPaymentService(commerceClient, gatewayClient, correlationStore, logger)

	// API layer
	handler := api.NewHandler(webhookService, paymentService, logger)
	router := api.SetupRouter(handler, cfg.Server.GinMode)

	serverAddr := fmt.Sprintf(":%s", cfg.Server.Port)
	go func() {
		logger.Info("server listening", zap.String("addr", serverAddr))
		if err := router.Run(serverAddr); err != nil {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")
}

// validateConfig warns about configuration that weakens webhook security.
func validateConfig(cfg *config.Config, logger *zap.Logger) {
	if cfg.Commerce.APIKey == "" {
		logger.Warn("SHOPSTACK_API_KEY not set")
	}
	if cfg.Gateway.AccessKey == "" {
		logger.Warn("NOVAPAY_ACCESS_KEY not set, outbound gateway calls will fail")
	}
	if cfg.Gateway.PaymentAccessKey == "" {
		logger.Warn("NOVAPAY_PAYMENT_ACCESS_KEY not set: webhook checksum validation is DISABLED")
	}
	if cfg.Gateway.WebhookTestMode {
		logger.Warn("WEBHOOK_TEST_MODE enabled: source-IP enforcement is off, do not use in production")
	}
}
