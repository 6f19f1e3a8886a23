// Package ports defines the interfaces (ports) for the reconciliation
// connector. These are contracts that adapters must implement.
package ports

import (
	"context"

	"github.com/shopstack/novapay-connector/internal/core/domain"
)

// CommercePlatform is the ShopStack payment/cart API.
type CommercePlatform interface {
	// GetPayment fetches a payment including its current version.
	GetPayment(ctx context.Context, id string) (*domain.Payment, error)

	// UpdatePayment applies a versioned action batch atomically. Returns
	// domain.ErrVersionConflict when the version is stale.
	UpdatePayment(ctx context.Context, id string, version int64, actions []domain.UpdateAction) (*domain.Payment, error)

	// GetCart fetches a cart by id.
	GetCart(ctx context.Context, id string) (*domain.Cart, error)

	// AddPayment attaches a payment to a cart.
	AddPayment(ctx context.Context, cartID string, cartVersion int64, paymentID string) error
}

// PaymentGateway is the NovaPay REST API.
type PaymentGateway interface {
	// CreateHostedPayment creates a hosted payment page session.
	CreateHostedPayment(ctx context.Context, req domain.HostedPaymentRequest) (*domain.HostedPaymentResponse, error)

	// GetTransactionDetails looks up a gateway transaction by tid.
	GetTransactionDetails(ctx context.Context, tid string) (*domain.GatewayTransaction, error)
}

// CorrelationStore is the key-value store holding CorrelationRecords.
type CorrelationStore interface {
	// Get returns the record for a key, or domain.ErrRecordNotFound.
	Get(ctx context.Context, key domain.CorrelationKey) (*domain.CorrelationRecord, error)

	// Upsert writes the record for a key, creating or replacing it.
	Upsert(ctx context.Context, key domain.CorrelationKey, record *domain.CorrelationRecord) error
}

// HostResolver resolves a hostname to its IP addresses. Extracted so the
// source-IP check can be tested without real DNS.
type HostResolver interface {
	LookupHost(ctx context.Context, host string) ([]string, error)
}

// WebhookValidator verifies the authenticity of a parsed webhook payload.
type WebhookValidator interface {
	// Validate returns nil when the payload checksum matches, or
	// domain.ErrChecksumValidation.
	Validate(n *domain.WebhookNotification) error
}

// SourceValidator confirms a webhook request originated from the gateway.
type SourceValidator interface {
	// Validate returns nil for a trusted origin, or
	// domain.ErrUnauthorizedSource.
	Validate(ctx context.Context, headers map[string][]string, remoteAddr string) error
}
