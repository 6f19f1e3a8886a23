package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/shopstack/novapay-connector/internal/core/domain"
)

func captureNotification() *domain.WebhookNotification {
	return &domain.WebhookNotification{
		Event:    domain.EventData{Type: EventTransactionCapture, TID: "T1", Checksum: "fp-capture-1"},
		Merchant: domain.MerchantData{Vendor: "V", Project: "P"},
		Result:   domain.ResultData{Status: "SUCCESS"},
		Transaction: domain.TransactionData{
			TID:         "T1",
			PaymentType: "CREDITCARD",
			Status:      "CONFIRMED",
			StatusCode:  "100",
		},
		Custom: domain.CustomData{PaymentID: "pay-123", PSPReference: "psp-456"},
	}
}

func newTestService(platform *fakePlatform, st *fakeStore) *WebhookService {
	return NewWebhookService(
		okValidator{},
		okSource{},
		st,
		NewReconciler(platform, zap.NewNop()),
		NewCommentComposer(),
		zap.NewNop(),
	)
}

func process(t *testing.T, s *WebhookService, n *domain.WebhookNotification) *WebhookResult {
	t.Helper()
	result, err := s.Process(context.Background(), n, nil, "203.0.113.10:443")
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	return result
}

func TestProcessCaptureReconcilesPayment(t *testing.T) {
	platform := newFakePlatform()
	seedPayment(platform)
	st := newFakeStore()
	s := newTestService(platform, st)

	result := process(t, s, captureNotification())
	if !result.Handled {
		t.Error("capture event should be handled")
	}

	p := platform.payments["pay-123"]
	if p.Transactions[0].State != domain.StateSuccess {
		t.Errorf("transaction state = %q, want Success", p.Transactions[0].State)
	}
	if p.InterfaceCode != "100" {
		t.Errorf("interface code = %q, want 100", p.InterfaceCode)
	}
	comment := p.Transactions[0].Custom[domain.TransactionCommentsField]
	if !strings.Contains(comment, "T1") || !strings.Contains(comment, "captured") {
		t.Errorf("unexpected audit comment: %q", comment)
	}
}

func TestProcessNonSuccessResultShortCircuits(t *testing.T) {
	platform := newFakePlatform()
	seedPayment(platform)
	s := newTestService(platform, newFakeStore())

	n := captureNotification()
	n.Result.Status = "FAILURE"
	result := process(t, s, n)

	if result.Handled {
		t.Error("non-success result must not be handled")
	}
	if !strings.Contains(result.Message, "ignored") {
		t.Errorf("expected ignored message, got %q", result.Message)
	}
	if platform.updateCount() != 0 {
		t.Errorf("no payment writes may occur, got %d", platform.updateCount())
	}
}

func TestProcessChecksumFailureBlocksWrites(t *testing.T) {
	platform := newFakePlatform()
	seedPayment(platform)
	s := NewWebhookService(rejectValidator{}, okSource{}, newFakeStore(),
		NewReconciler(platform, zap.NewNop()), NewCommentComposer(), zap.NewNop())

	_, err := s.Process(context.Background(), captureNotification(), nil, "203.0.113.10:443")
	if !errors.Is(err, domain.ErrChecksumValidation) {
		t.Fatalf("want ErrChecksumValidation, got %v", err)
	}
	if platform.updateCount() != 0 {
		t.Errorf("rejected webhook must not write, got %d updates", platform.updateCount())
	}
}

func TestProcessUnauthorizedSourceBlocksWrites(t *testing.T) {
	platform := newFakePlatform()
	seedPayment(platform)
	s := NewWebhookService(okValidator{}, rejectSource{}, newFakeStore(),
		NewReconciler(platform, zap.NewNop()), NewCommentComposer(), zap.NewNop())

	_, err := s.Process(context.Background(), captureNotification(), nil, "198.51.100.7:443")
	if !errors.Is(err, domain.ErrUnauthorizedSource) {
		t.Fatalf("want ErrUnauthorizedSource, got %v", err)
	}
	if platform.updateCount() != 0 {
		t.Errorf("rejected webhook must not write, got %d updates", platform.updateCount())
	}
}

func TestProcessTransactionNotFoundNoPartialWrite(t *testing.T) {
	platform := newFakePlatform()
	seedPayment(platform)
	s := newTestService(platform, newFakeStore())

	n := captureNotification()
	n.Custom.PSPReference = "psp-unmatched"
	_, err := s.Process(context.Background(), n, nil, "203.0.113.10:443")
	if !errors.Is(err, domain.ErrTransactionNotFound) {
		t.Fatalf("want ErrTransactionNotFound, got %v", err)
	}
	if platform.updateCount() != 0 {
		t.Errorf("no update call may be issued before the failure, got %d", platform.updateCount())
	}
}

func TestProcessUnrecognizedEventIsNoOpSuccess(t *testing.T) {
	platform := newFakePlatform()
	seedPayment(platform)
	s := newTestService(platform, newFakeStore())

	n := captureNotification()
	n.Event.Type = "SUBSCRIPTION_SUSPEND"
	result := process(t, s, n)
	if result.Handled {
		t.Error("unrecognized event must not be handled")
	}
	if platform.updateCount() != 0 {
		t.Errorf("unrecognized event must not write, got %d updates", platform.updateCount())
	}
}

func TestProcessReplayedEventAppendsOnce(t *testing.T) {
	platform := newFakePlatform()
	seedPayment(platform)
	st := newFakeStore()
	s := newTestService(platform, st)

	first := process(t, s, captureNotification())
	second := process(t, s, captureNotification())

	if !first.Handled || !second.Handled {
		t.Error("both deliveries should be acknowledged as handled")
	}
	if platform.updateCount() != 1 {
		t.Fatalf("replay must not write again, got %d updates", platform.updateCount())
	}
	comment := platform.payments["pay-123"].Transactions[0].Custom[domain.TransactionCommentsField]
	if strings.Contains(comment, commentSeparator) {
		t.Errorf("replay duplicated the audit comment: %q", comment)
	}
}

func TestProcessDistinctUpdatesShareChecksumNotDeduplicated(t *testing.T) {
	platform := newFakePlatform()
	seedPayment(platform)
	s := newTestService(platform, newFakeStore())

	update := func(dueDate string) *domain.WebhookNotification {
		n := captureNotification()
		n.Event.Type = EventTransactionUpdate
		n.Event.Checksum = "fp-update-shared"
		n.Transaction.Status = "PENDING"
		n.Transaction.UpdateType = "DUE_DATE"
		n.Transaction.DueDate = dueDate
		amount := int64(2000)
		n.Transaction.Amount = &amount
		n.Transaction.Currency = "EUR"
		return n
	}

	// Same gateway checksum: the checksum covers neither the update type
	// nor the due date, so only the fingerprint keeps these apart.
	first := process(t, s, update("2026-10-01"))
	second := process(t, s, update("2026-12-01"))

	if !first.Handled || !second.Handled {
		t.Error("both distinct updates should be handled")
	}
	if platform.updateCount() != 2 {
		t.Fatalf("second distinct update dropped as duplicate, got %d updates", platform.updateCount())
	}
	comment := platform.payments["pay-123"].Transactions[0].Custom[domain.TransactionCommentsField]
	if !strings.Contains(comment, "2026-10-01") || !strings.Contains(comment, "2026-12-01") {
		t.Errorf("audit trail missing one of the due-date changes: %q", comment)
	}
}

func TestProcessRedeliveredUpdateStillDeduplicated(t *testing.T) {
	platform := newFakePlatform()
	seedPayment(platform)
	s := newTestService(platform, newFakeStore())

	n := captureNotification()
	n.Event.Type = EventTransactionUpdate
	n.Event.Checksum = "fp-update-redelivered"
	n.Transaction.Status = "PENDING"
	n.Transaction.UpdateType = "DUE_DATE"
	n.Transaction.DueDate = "2026-10-01"

	process(t, s, n)
	process(t, s, n)

	if platform.updateCount() != 1 {
		t.Fatalf("identical redelivery must not write again, got %d updates", platform.updateCount())
	}
}

// upsertFailStore reads normally but fails every write.
type upsertFailStore struct {
	*fakeStore
}

func (upsertFailStore) Upsert(context.Context, domain.CorrelationKey, *domain.CorrelationRecord) error {
	return errors.New("store unavailable")
}

func TestProcessSucceedsWhenRecordStoreWriteFails(t *testing.T) {
	platform := newFakePlatform()
	seedPayment(platform)
	s := NewWebhookService(okValidator{}, okSource{}, upsertFailStore{newFakeStore()},
		NewReconciler(platform, zap.NewNop()), NewCommentComposer(), zap.NewNop())

	result := process(t, s, captureNotification())
	if !result.Handled {
		t.Error("a record-store failure after the payment update must not fail the webhook")
	}
	if platform.updateCount() != 1 {
		t.Errorf("payment update should have been applied once, got %d", platform.updateCount())
	}
}

func TestProcessReminderIsCommentOnly(t *testing.T) {
	platform := newFakePlatform()
	seedPayment(platform)
	s := newTestService(platform, newFakeStore())

	n := captureNotification()
	n.Event.Type = EventPaymentReminder1
	n.Event.Checksum = "fp-reminder-1"
	n.Transaction.Status = "PENDING"
	n.Transaction.StatusCode = ""
	process(t, s, n)

	p := platform.payments["pay-123"]
	if p.Transactions[0].State != domain.StatePending {
		t.Errorf("reminder must not change state, got %q", p.Transactions[0].State)
	}
	comment := p.Transactions[0].Custom[domain.TransactionCommentsField]
	if !strings.Contains(comment, "reminder 1") {
		t.Errorf("unexpected reminder comment: %q", comment)
	}
}

func TestProcessRefundCommentCarriesNewTID(t *testing.T) {
	platform := newFakePlatform()
	seedPayment(platform)
	s := newTestService(platform, newFakeStore())

	n := captureNotification()
	n.Event.Type = EventTransactionRefund
	n.Event.Checksum = "fp-refund-1"
	n.Transaction.Refund = &domain.RefundData{TID: "T-REF-9", Amount: 500, Currency: "EUR"}
	process(t, s, n)

	comment := platform.payments["pay-123"].Transactions[0].Custom[domain.TransactionCommentsField]
	if !strings.Contains(comment, "T-REF-9") || !strings.Contains(comment, "5.00 EUR") {
		t.Errorf("refund comment missing new tid or amount: %q", comment)
	}
	if platform.payments["pay-123"].Transactions[0].State != domain.StatePending {
		t.Error("refund must not change the transaction state")
	}
}

func TestProcessUpdateUsesPriorStatus(t *testing.T) {
	cases := []struct {
		name       string
		prior      string
		newStatus  string
		updateType string
		wantPhrase string
		wantState  domain.TransactionState
	}{
		{"on hold to confirmed", "ON_HOLD", "CONFIRMED", "STATUS", "confirmed", domain.StateSuccess},
		{"pending to confirmed", "PENDING", "CONFIRMED", "STATUS", "no longer pending", domain.StateSuccess},
		{"on hold to completed", "ON_HOLD", "COMPLETED", "STATUS", "on-hold transaction T1 has been completed", domain.StateFailure},
		{"canceled", "PENDING", "CANCELLED", "STATUS", "canceled", domain.StateCanceled},
		{"due date change", "PENDING", "PENDING", "DUE_DATE", "due date", domain.StatePending},
		{"no prior state", "", "PENDING", "STATUS", "updated to status PENDING", domain.StatePending},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			platform := newFakePlatform()
			seedPayment(platform)
			st := newFakeStore()
			key := domain.CorrelationKey{PaymentID: "pay-123", PSPReference: "psp-456"}
			if tc.prior != "" {
				st.records[key] = &domain.CorrelationRecord{Status: tc.prior}
			}
			s := newTestService(platform, st)

			n := captureNotification()
			n.Event.Type = EventTransactionUpdate
			n.Event.Checksum = "fp-update-" + tc.name
			n.Transaction.Status = tc.newStatus
			n.Transaction.UpdateType = tc.updateType
			if tc.updateType == "DUE_DATE" {
				n.Transaction.DueDate = "2026-10-01"
				amount := int64(2000)
				n.Transaction.Amount = &amount
				n.Transaction.Currency = "EUR"
			}
			process(t, s, n)

			p := platform.payments["pay-123"]
			comment := p.Transactions[0].Custom[domain.TransactionCommentsField]
			if !strings.Contains(comment, tc.wantPhrase) {
				t.Errorf("comment %q missing %q", comment, tc.wantPhrase)
			}
			if p.Transactions[0].State != tc.wantState {
				t.Errorf("state = %q, want %q", p.Transactions[0].State, tc.wantState)
			}
		})
	}
}

func TestProcessUpdatesCorrelationRecord(t *testing.T) {
	platform := newFakePlatform()
	seedPayment(platform)
	st := newFakeStore()
	s := newTestService(platform, st)

	n := captureNotification()
	n.Custom.Lang = "de"
	process(t, s, n)

	key := domain.CorrelationKey{PaymentID: "pay-123", PSPReference: "psp-456"}
	record, err := st.Get(context.Background(), key)
	if err != nil {
		t.Fatalf("record not stored: %v", err)
	}
	if record.Status != "CONFIRMED" {
		t.Errorf("record status = %q, want CONFIRMED", record.Status)
	}
	if record.GatewayTID != "T1" || record.PaymentMethod != "CREDITCARD" {
		t.Errorf("record gateway fields not tracked: %+v", record)
	}
	if record.Locale != "de" {
		t.Errorf("record locale = %q, want de", record.Locale)
	}
	if !record.SeenEvent(eventFingerprint(n)) {
		t.Error("processed event fingerprint not recorded")
	}
}

func TestProcessGermanLocaleComments(t *testing.T) {
	platform := newFakePlatform()
	seedPayment(platform)
	st := newFakeStore()
	key := domain.CorrelationKey{PaymentID: "pay-123", PSPReference: "psp-456"}
	st.records[key] = &domain.CorrelationRecord{Locale: "de", Status: "PENDING"}
	s := newTestService(platform, st)

	process(t, s, captureNotification())
	comment := platform.payments["pay-123"].Transactions[0].Custom[domain.TransactionCommentsField]
	if !strings.Contains(comment, "eingezogen") {
		t.Errorf("expected german comment, got %q", comment)
	}
}
