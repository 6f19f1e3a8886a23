package novapay

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"

	"go.uber.org/zap"

	"github.com/shopstack/novapay-connector/internal/core/domain"
)

// WebhookValidator verifies NovaPay webhook checksums.
type WebhookValidator struct {
	secret string
	log    *zap.Logger
}

// NewWebhookValidator creates a validator for the given payment access key.
// An empty secret disables verification; callers are expected to have warned
// about that at startup.
func NewWebhookValidator(secret string, log *zap.Logger) *WebhookValidator {
	return &WebhookValidator{secret: secret, log: log}
}

// Validate checks the payload-supplied checksum against
// SHA-256(tid + eventType + resultStatus + [amount] + [currency] + reverse(secret)).
// Amount and currency are concatenated only when present in the transaction
// object, matching the sender's own omission.
func (v *WebhookValidator) Validate(n *domain.WebhookNotification) error {
	if v.secret == "" {
		v.log.Warn("no payment access key configured, skipping webhook checksum validation",
			zap.String("event_tid", n.Event.TID))
		return nil
	}

	expected := ComputeChecksum(n, v.secret)
	if n.Event.Checksum != expected {
		return domain.NewServiceError(domain.ErrChecksumValidation,
			"checksum mismatch for event tid "+n.Event.TID, "CHECKSUM_MISMATCH")
	}
	return nil
}

// ComputeChecksum builds the checksum the gateway signs webhooks with.
// Exported so tests and tooling can produce valid payloads.
func ComputeChecksum(n *domain.WebhookNotification, secret string) string {
	token := n.Event.TID + n.Event.Type + n.Result.Status
	if n.Transaction.Amount != nil {
		token += strconv.FormatInt(*n.Transaction.Amount, 10)
	}
	if n.Transaction.Currency != "" {
		token += n.Transaction.Currency
	}
	token += reverse(secret)

	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func reverse(s string) string {
	runes := []rune(s)
	for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
		runes[i], runes[j] = runes[j], runes[i]
	}
	return string(runes)
}
