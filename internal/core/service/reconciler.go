package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/shopstack/novapay-connector/internal/core/domain"
	"github.com/shopstack/novapay-connector/internal/core/ports"
)

// maxReconcileAttempts bounds the read-modify-write loop on version
// conflicts. Webhook delivery can be concurrent, so one conflict is normal;
// persistent conflict is surfaced.
const maxReconcileAttempts = 3

// ReconcileUpdate is the batch of changes one webhook event applies to a
// payment.
type ReconcileUpdate struct {
	// Comment is appended to the transaction's audit trail. Empty means no
	// comment action.
	Comment string

	// InterfaceCode records the gateway status code on the payment.
	InterfaceCode string

	// State, when set, moves the matched transaction to a new state.
	State *domain.TransactionState
}

// Reconciler applies webhook outcomes to ShopStack payments.
type Reconciler struct {
	platform ports.CommercePlatform
	log      *zap.Logger
}

// NewReconciler creates a reconciliation writer.
func NewReconciler(platform ports.CommercePlatform, log *zap.Logger) *Reconciler {
	return &Reconciler{platform: platform, log: log}
}

// Apply locates the transaction by interaction id and submits the update as
// a single versioned call. The payment is re-read and the batch rebuilt on a
// version conflict. If no transaction matches the psp reference, the whole
// operation fails before any write is issued.
func (r *Reconciler) Apply(ctx context.Context, key domain.CorrelationKey, update ReconcileUpdate) error {
	var lastErr error
	for attempt := 1; attempt <= maxReconcileAttempts; attempt++ {
		payment, err := r.platform.GetPayment(ctx, key.PaymentID)
		if err != nil {
			return err
		}

		tx := payment.FindTransaction(key.PSPReference)
		if tx == nil {
			return domain.NewServiceError(domain.ErrTransactionNotFound,
				fmt.Sprintf("no transaction with interaction id %s on payment %s",
					key.PSPReference, key.PaymentID),
				"TRANSACTION_NOT_FOUND")
		}

		actions := buildActions(tx, update)
		if len(actions) == 0 {
			return nil
		}

		if _, err := r.platform.UpdatePayment(ctx, payment.ID, payment.Version, actions); err != nil {
			if errors.Is(err, domain.ErrVersionConflict) {
				lastErr = err
				r.log.Warn("payment version conflict, retrying reconciliation",
					zap.String("payment_id", key.PaymentID),
					zap.Int("attempt", attempt))
				continue
			}
			return err
		}
		return nil
	}
	return lastErr
}

// buildActions assembles the versioned action batch from the current
// transaction state.
func buildActions(tx *domain.Transaction, update ReconcileUpdate) []domain.UpdateAction {
	var actions []domain.UpdateAction
	if update.Comment != "" {
		existing := tx.Custom[domain.TransactionCommentsField]
		actions = append(actions, domain.SetTransactionComment(tx.ID, appendComment(existing, update.Comment)))
	}
	if update.InterfaceCode != "" {
		actions = append(actions, domain.SetStatusInterfaceCode(update.InterfaceCode))
	}
	if update.State != nil && *update.State != tx.State {
		actions = append(actions, domain.ChangeTransactionState(tx.ID, *update.State))
	}
	return actions
}

// appendComment concatenates a new audit comment after the existing history.
func appendComment(existing, comment string) string {
	if existing == "" {
		return comment
	}
	return existing + commentSeparator + comment
}
