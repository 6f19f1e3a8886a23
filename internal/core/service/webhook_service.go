// Package service implements the core reconciliation logic.
package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/shopstack/novapay-connector/internal/core/domain"
	"github.com/shopstack/novapay-connector/internal/core/ports"
	"github.com/shopstack/novapay-connector/internal/metrics"
)

// resultSuccess is the only result.status that triggers event routing.
const resultSuccess = "SUCCESS"

// Webhook event types sent by NovaPay.
const (
	EventPayment            = "PAYMENT"
	EventTransactionCapture = "TRANSACTION_CAPTURE"
	EventTransactionCancel  = "TRANSACTION_CANCEL"
	EventTransactionRefund  = "TRANSACTION_REFUND"
	EventTransactionUpdate  = "TRANSACTION_UPDATE"
	EventCredit             = "CREDIT"
	EventChargeback         = "CHARGEBACK"
	EventPaymentReminder1   = "PAYMENT_REMINDER_1"
	EventPaymentReminder2   = "PAYMENT_REMINDER_2"
	EventCollectionAgency   = "SUBMISSION_TO_COLLECTION_AGENCY"
)

// WebhookResult is the data section of a successful webhook response.
type WebhookResult struct {
	Message   string `json:"message"`
	EventType string `json:"event_type,omitempty"`
	TID       string `json:"tid,omitempty"`
	Handled   bool   `json:"handled"`
}

// eventContext is the shared reconciliation context handed to an event
// handler: the parsed notification plus the prior correlation state, fetched
// once before dispatch.
type eventContext struct {
	notification *domain.WebhookNotification
	record       *domain.CorrelationRecord
	locale       string
}

// eventOutcome is what a handler decided: the audit comment and the optional
// transaction state change.
type eventOutcome struct {
	comment string
	state   *domain.TransactionState
}

type eventHandler func(*eventContext) eventOutcome

// WebhookService validates inbound webhooks and reconciles them with
// ShopStack payment records.
type WebhookService struct {
	validator  ports.WebhookValidator
	source     ports.SourceValidator
	store      ports.CorrelationStore
	reconciler *Reconciler
	composer   *CommentComposer
	log        *zap.Logger
	handlers   map[string]eventHandler
}

// NewWebhookService creates the webhook processing service.
func NewWebhookService(
	validator ports.WebhookValidator,
	source ports.SourceValidator,
	store ports.CorrelationStore,
	reconciler *Reconciler,
	composer *CommentComposer,
	log *zap.Logger,
) *WebhookService {
	s := &WebhookService{
		validator:  validator,
		source:     source,
		store:      store,
		reconciler: reconciler,
		composer:   composer,
		log:        log,
	}
	s.handlers = map[string]eventHandler{
		EventPayment:            s.handlePayment,
		EventTransactionCapture: s.handleCapture,
		EventTransactionCancel:  s.handleCancel,
		EventTransactionRefund:  s.handleRefund,
		EventTransactionUpdate:  s.handleUpdate,
		EventCredit:             s.handleCredit,
		EventChargeback:         s.handleChargeback,
		EventPaymentReminder1:   s.handleReminder,
		EventPaymentReminder2:   s.handleReminder,
		EventCollectionAgency:   s.handleCollection,
	}
	return s
}

// Process runs the validation pipeline and, for successful recognized
// events, applies the reconciliation update. Replayed events (same
// fingerprint) are acknowledged without re-applying their effects.
func (s *WebhookService) Process(ctx context.Context, n *domain.WebhookNotification, headers map[string][]string, remoteAddr string) (*WebhookResult, error) {
	metrics.WebhooksReceivedTotal.WithLabelValues(n.Event.Type).Inc()

	if err := s.validator.Validate(n); err != nil {
		metrics.WebhooksRejectedTotal.WithLabelValues("checksum").Inc()
		return nil, err
	}

	if err := s.source.Validate(ctx, headers, remoteAddr); err != nil {
		metrics.WebhooksRejectedTotal.WithLabelValues("source").Inc()
		return nil, err
	}

	if n.Result.Status != resultSuccess {
		metrics.WebhooksIgnoredTotal.WithLabelValues("non_success_result").Inc()
		s.log.Info("ignoring webhook with non-success result",
			zap.String("event_type", n.Event.Type),
			zap.String("result_status", n.Result.Status))
		return &WebhookResult{
			Message:   "webhook ignored: result status is " + n.Result.Status,
			EventType: n.Event.Type,
			TID:       n.Event.TID,
		}, nil
	}

	key := domain.CorrelationKey{
		PaymentID:    n.Custom.PaymentID,
		PSPReference: n.Custom.PSPReference,
	}

	record, err := s.store.Get(ctx, key)
	if errors.Is(err, domain.ErrRecordNotFound) {
		// Payment initiation may have happened outside this connector;
		// reconcile anyway with an empty prior state.
		record = &domain.CorrelationRecord{}
	} else if err != nil {
		return nil, err
	}

	fingerprint := eventFingerprint(n)
	if record.SeenEvent(fingerprint) {
		metrics.WebhooksIgnoredTotal.WithLabelValues("duplicate").Inc()
		s.log.Info("webhook event already processed",
			zap.String("event_type", n.Event.Type),
			zap.String("event_tid", n.Event.TID))
		return &WebhookResult{
			Message:   "event already processed",
			EventType: n.Event.Type,
			TID:       n.Event.TID,
			Handled:   true,
		}, nil
	}

	handler, ok := s.handlers[n.Event.Type]
	if !ok {
		metrics.WebhooksIgnoredTotal.WithLabelValues("unhandled_event").Inc()
		s.log.Info("unhandled webhook event type",
			zap.String("event_type", n.Event.Type),
			zap.String("event_tid", n.Event.TID))
		return &WebhookResult{
			Message:   "the webhook notification has been received for the unhandled event type " + n.Event.Type,
			EventType: n.Event.Type,
			TID:       n.Event.TID,
		}, nil
	}

	if n.Transaction.Status != "" && !domain.IsKnownGatewayStatus(n.Transaction.Status) {
		s.log.Warn("unrecognized gateway status, mapping to Failure",
			zap.String("status", n.Transaction.Status),
			zap.String("event_tid", n.Event.TID))
	}

	evCtx := &eventContext{
		notification: n,
		record:       record,
		locale:       s.resolveLocale(record, n),
	}
	outcome := handler(evCtx)

	update := ReconcileUpdate{
		Comment:       outcome.comment,
		InterfaceCode: n.Transaction.StatusCode,
		State:         outcome.state,
	}
	if err := s.reconciler.Apply(ctx, key, update); err != nil {
		return nil, err
	}

	s.updateRecord(ctx, key, record, n, outcome, fingerprint)

	return &WebhookResult{
		Message:   "webhook processed for event " + n.Event.Type,
		EventType: n.Event.Type,
		TID:       n.Event.TID,
		Handled:   true,
	}, nil
}

// eventFingerprint identifies one delivered event for replay detection. The
// gateway checksum covers tid, event type, result status, amount and
// currency; the transaction status, update type, due date and refund tid are
// appended because two distinct update events can otherwise carry the same
// checksum.
func eventFingerprint(n *domain.WebhookNotification) string {
	refundTID := ""
	if n.Transaction.Refund != nil {
		refundTID = n.Transaction.Refund.TID
	}
	return strings.Join([]string{
		n.Event.Checksum,
		n.Transaction.Status,
		n.Transaction.UpdateType,
		n.Transaction.DueDate,
		refundTID,
	}, "|")
}

// updateRecord persists the post-event correlation state. Best effort: the
// payment update already succeeded, so a store failure is logged, not
// surfaced.
func (s *WebhookService) updateRecord(ctx context.Context, key domain.CorrelationKey, record *domain.CorrelationRecord, n *domain.WebhookNotification, outcome eventOutcome, fingerprint string) {
	if n.Transaction.TID != "" {
		record.GatewayTID = n.Transaction.TID
	}
	if n.Transaction.PaymentType != "" {
		record.PaymentMethod = n.Transaction.PaymentType
	}
	if n.Transaction.Status != "" {
		record.Status = n.Transaction.Status
	}
	if record.Locale == "" && n.Custom.Lang != "" {
		record.Locale = n.Custom.Lang
	}
	if outcome.comment != "" {
		record.Comments = appendComment(record.Comments, outcome.comment)
	}
	record.MarkEvent(fingerprint)

	if err := s.store.Upsert(ctx, key, record); err != nil {
		s.log.Error("failed to persist correlation record, a redelivery of this event will not be detected as a replay",
			zap.String("payment_id", key.PaymentID),
			zap.String("psp_reference", key.PSPReference),
			zap.String("fingerprint", fingerprint),
			zap.Error(err))
	}
}

// resolveLocale prefers the locale stored at payment initiation, then the
// webhook-carried language tag.
func (s *WebhookService) resolveLocale(record *domain.CorrelationRecord, n *domain.WebhookNotification) string {
	if record.Locale != "" {
		return record.Locale
	}
	if n.Custom.Lang != "" {
		return n.Custom.Lang
	}
	return defaultLocale
}

func (s *WebhookService) handlePayment(c *eventContext) eventOutcome {
	state := domain.StateSuccess
	return eventOutcome{
		comment: s.composer.Compose(c.locale, "payment", map[string]string{
			"tid":          c.notification.Transaction.TID,
			"payment_type": c.notification.Transaction.PaymentType,
		}),
		state: &state,
	}
}

func (s *WebhookService) handleCapture(c *eventContext) eventOutcome {
	state := domain.MapGatewayStatus(c.notification.Transaction.Status)
	return eventOutcome{
		comment: s.composer.Compose(c.locale, "capture", map[string]string{
			"tid": c.notification.Transaction.TID,
		}),
		state: &state,
	}
}

func (s *WebhookService) handleCancel(c *eventContext) eventOutcome {
	state := domain.MapGatewayStatus(c.notification.Transaction.Status)
	return eventOutcome{
		comment: s.composer.Compose(c.locale, "cancel", map[string]string{
			"tid": c.notification.Transaction.TID,
		}),
		state: &state,
	}
}

// handleRefund emits a comment only; the transaction state is left as is.
// The refund sub-object carries the refunded amount and, for standalone
// refunds, the new transaction reference.
func (s *WebhookService) handleRefund(c *eventContext) eventOutcome {
	tx := c.notification.Transaction
	amount := int64(0)
	currency := tx.Currency
	refundTID := ""
	if tx.Refund != nil {
		amount = tx.Refund.Amount
		refundTID = tx.Refund.TID
		if tx.Refund.Currency != "" {
			currency = tx.Refund.Currency
		}
	} else if tx.Amount != nil {
		amount = *tx.Amount
	}

	vars := map[string]string{
		"tid":    tx.TID,
		"amount": formatAmount(amount, currency),
	}
	key := "refund"
	if refundTID != "" {
		key = "refund_new_tid"
		vars["refund_tid"] = refundTID
	}
	return eventOutcome{comment: s.composer.Compose(c.locale, key, vars)}
}

// handleUpdate encodes the prior-state-aware transition table: the wording
// depends on both the stored correlation status and the incoming one.
func (s *WebhookService) handleUpdate(c *eventContext) eventOutcome {
	tx := c.notification.Transaction
	prior := c.record.Status
	state := domain.MapGatewayStatus(tx.Status)
	vars := map[string]string{
		"tid":      tx.TID,
		"status":   tx.Status,
		"due_date": tx.DueDate,
	}
	if tx.Amount != nil {
		vars["amount"] = formatAmount(*tx.Amount, tx.Currency)
	}

	var key string
	switch {
	case isScheduleUpdate(tx.UpdateType):
		key = "update_schedule"
	case prior == domain.GatewayStatusOnHold && tx.Status == domain.GatewayStatusConfirmed:
		key = "update_confirmed"
	case tx.Status == domain.GatewayStatusCancelled || tx.Status == domain.GatewayStatusDeactivated:
		key = "update_canceled"
	case prior == domain.GatewayStatusPending && tx.Status != prior:
		key = "update_pending_complete"
	case prior == domain.GatewayStatusOnHold && tx.Status != prior:
		key = "update_onhold_complete"
	default:
		key = "update_generic"
	}
	return eventOutcome{
		comment: s.composer.Compose(c.locale, key, vars),
		state:   &state,
	}
}

// isScheduleUpdate reports whether the update changed the amount or due
// date rather than the status.
func isScheduleUpdate(updateType string) bool {
	switch updateType {
	case "AMOUNT", "DUE_DATE", "AMOUNT_DUE_DATE":
		return true
	}
	return false
}

func (s *WebhookService) handleCredit(c *eventContext) eventOutcome {
	tx := c.notification.Transaction
	state := domain.MapGatewayStatus(tx.Status)
	amount := int64(0)
	if tx.Amount != nil {
		amount = *tx.Amount
	}
	return eventOutcome{
		comment: s.composer.Compose(c.locale, "credit", map[string]string{
			"tid":    tx.TID,
			"amount": formatAmount(amount, tx.Currency),
		}),
		state: &state,
	}
}

func (s *WebhookService) handleChargeback(c *eventContext) eventOutcome {
	tx := c.notification.Transaction
	state := domain.MapGatewayStatus(tx.Status)
	amount := int64(0)
	if tx.Amount != nil {
		amount = *tx.Amount
	}
	return eventOutcome{
		comment: s.composer.Compose(c.locale, "chargeback", map[string]string{
			"tid":    tx.TID,
			"amount": formatAmount(amount, tx.Currency),
		}),
		state: &state,
	}
}

// handleReminder covers both reminder events; the index comes from the event
// type suffix.
func (s *WebhookService) handleReminder(c *eventContext) eventOutcome {
	index := strings.TrimPrefix(c.notification.Event.Type, "PAYMENT_REMINDER_")
	return eventOutcome{
		comment: s.composer.Compose(c.locale, "reminder", map[string]string{
			"tid":      c.notification.Transaction.TID,
			"reminder": index,
		}),
	}
}

func (s *WebhookService) handleCollection(c *eventContext) eventOutcome {
	return eventOutcome{
		comment: s.composer.Compose(c.locale, "collection", map[string]string{
			"tid":       c.notification.Transaction.TID,
			"reference": c.notification.Event.TID,
		}),
	}
}
