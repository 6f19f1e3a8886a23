package service

import (
	"context"
	"sync"

	"github.com/shopstack/novapay-connector/internal/core/domain"
)

// fakePlatform is an in-memory ports.CommercePlatform that records update
// calls and can inject version conflicts.
type fakePlatform struct {
	mu        sync.Mutex
	payments  map[string]*domain.Payment
	carts     map[string]*domain.Cart
	updates   [][]domain.UpdateAction
	conflicts int // reject this many updates with a version conflict first
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{
		payments: make(map[string]*domain.Payment),
		carts:    make(map[string]*domain.Cart),
	}
}

func (f *fakePlatform) GetPayment(ctx context.Context, id string) (*domain.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.payments[id]
	if !ok {
		return nil, domain.ErrPaymentNotFound
	}
	cp := *p
	cp.Transactions = append([]domain.Transaction(nil), p.Transactions...)
	return &cp, nil
}

func (f *fakePlatform) UpdatePayment(ctx context.Context, id string, version int64, actions []domain.UpdateAction) (*domain.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.payments[id]
	if !ok {
		return nil, domain.ErrPaymentNotFound
	}
	if f.conflicts > 0 {
		f.conflicts--
		return nil, domain.NewServiceError(domain.ErrVersionConflict, "stale version", "VERSION_CONFLICT")
	}
	if version != p.Version {
		return nil, domain.NewServiceError(domain.ErrVersionConflict, "stale version", "VERSION_CONFLICT")
	}

	f.updates = append(f.updates, actions)
	for _, a := range actions {
		switch a.Action {
		case "setTransactionCustomField":
			for i := range p.Transactions {
				if p.Transactions[i].ID == a.TransactionID {
					if p.Transactions[i].Custom == nil {
						p.Transactions[i].Custom = make(map[string]string)
					}
					p.Transactions[i].Custom[a.Name] = a.Value
				}
			}
		case "changeTransactionState":
			for i := range p.Transactions {
				if p.Transactions[i].ID == a.TransactionID {
					p.Transactions[i].State = a.State
				}
			}
		case "setStatusInterfaceCode":
			p.InterfaceCode = a.InterfaceCode
		case "addTransaction":
			tx := *a.Transaction
			tx.ID = "generated-tx"
			p.Transactions = append(p.Transactions, tx)
		}
	}
	p.Version++
	return p, nil
}

func (f *fakePlatform) GetCart(ctx context.Context, id string) (*domain.Cart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.carts[id]
	if !ok {
		return nil, domain.ErrCartNotFound
	}
	cp := *c
	return &cp, nil
}

func (f *fakePlatform) AddPayment(ctx context.Context, cartID string, cartVersion int64, paymentID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.carts[cartID]; !ok {
		return domain.ErrCartNotFound
	}
	return nil
}

func (f *fakePlatform) updateCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.updates)
}

// fakeStore is an in-memory ports.CorrelationStore.
type fakeStore struct {
	mu      sync.Mutex
	records map[domain.CorrelationKey]*domain.CorrelationRecord
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: make(map[domain.CorrelationKey]*domain.CorrelationRecord)}
}

func (f *fakeStore) Get(ctx context.Context, key domain.CorrelationKey) (*domain.CorrelationRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.records[key]
	if !ok {
		return nil, domain.ErrRecordNotFound
	}
	cp := *r
	cp.ProcessedEvents = append([]string(nil), r.ProcessedEvents...)
	return &cp, nil
}

func (f *fakeStore) Upsert(ctx context.Context, key domain.CorrelationKey, record *domain.CorrelationRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *record
	cp.ProcessedEvents = append([]string(nil), record.ProcessedEvents...)
	f.records[key] = &cp
	return nil
}

// fakeGateway is a canned ports.PaymentGateway that records the last
// hosted payment request.
type fakeGateway struct {
	hosted  domain.HostedPaymentResponse
	details domain.GatewayTransaction
	err     error
	lastReq domain.HostedPaymentRequest
}

func (f *fakeGateway) CreateHostedPayment(ctx context.Context, req domain.HostedPaymentRequest) (*domain.HostedPaymentResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.lastReq = req
	resp := f.hosted
	return &resp, nil
}

func (f *fakeGateway) GetTransactionDetails(ctx context.Context, tid string) (*domain.GatewayTransaction, error) {
	if f.err != nil {
		return nil, f.err
	}
	resp := f.details
	return &resp, nil
}

// okValidator accepts every payload.
type okValidator struct{}

func (okValidator) Validate(*domain.WebhookNotification) error { return nil }

// rejectValidator fails every payload with a checksum error.
type rejectValidator struct{}

func (rejectValidator) Validate(*domain.WebhookNotification) error {
	return domain.NewServiceError(domain.ErrChecksumValidation, "checksum mismatch", "CHECKSUM_MISMATCH")
}

// okSource trusts every origin.
type okSource struct{}

func (okSource) Validate(context.Context, map[string][]string, string) error { return nil }

// rejectSource distrusts every origin.
type rejectSource struct{}

func (rejectSource) Validate(context.Context, map[string][]string, string) error {
	return domain.NewServiceError(domain.ErrUnauthorizedSource, "untrusted origin", "UNAUTHORIZED_SOURCE")
}
