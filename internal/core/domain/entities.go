// Package domain contains the core business entities for the reconciliation
// connector. This is the innermost layer - no external dependencies.
package domain

import "encoding/json"

// WebhookNotification is the typed form of an inbound NovaPay webhook.
// It is constructed once per request by the parse step and never mutated.
type WebhookNotification struct {
	Event       EventData       `json:"event"`
	Merchant    MerchantData    `json:"merchant"`
	Result      ResultData      `json:"result"`
	Transaction TransactionData `json:"transaction"`
	Custom      CustomData      `json:"custom"`

	// Raw preserves top-level members the typed model does not know about,
	// for forward compatibility. Never accessed positionally.
	Raw map[string]json.RawMessage `json:"-"`
}

// EventData identifies the webhook event.
type EventData struct {
	Type      string `json:"type"`
	Checksum  string `json:"checksum"`
	TID       string `json:"tid"`
	ParentTID string `json:"parent_tid,omitempty"`
}

// MerchantData identifies the NovaPay merchant account.
type MerchantData struct {
	Vendor  string `json:"vendor"`
	Project string `json:"project"`
}

// ResultData carries the overall outcome of the notified event.
type ResultData struct {
	Status     string `json:"status"`
	StatusText string `json:"status_text,omitempty"`
}

// TransactionData describes the gateway transaction the event refers to.
// Amount is in minor units and nil when the gateway omitted it; the checksum
// scheme distinguishes omitted from zero, so a pointer is required.
type TransactionData struct {
	TID         string      `json:"tid"`
	PaymentType string      `json:"payment_type"`
	Status      string      `json:"status"`
	StatusCode  string      `json:"status_code,omitempty"`
	Amount      *int64      `json:"amount,omitempty"`
	Currency    string      `json:"currency,omitempty"`
	DueDate     string      `json:"due_date,omitempty"`
	UpdateType  string      `json:"update_type,omitempty"`
	Refund      *RefundData `json:"refund,omitempty"`
	Bank        *BankData   `json:"bank_details,omitempty"`
}

// RefundData is present on TRANSACTION_REFUND events.
type RefundData struct {
	TID      string `json:"tid,omitempty"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency,omitempty"`
}

// BankData carries payee account details for invoice-style payments.
type BankData struct {
	AccountHolder string `json:"account_holder,omitempty"`
	IBAN          string `json:"iban,omitempty"`
	BIC           string `json:"bic,omitempty"`
	BankName      string `json:"bank_name,omitempty"`
}

// CustomData carries the opaque correlation values set at payment creation.
type CustomData struct {
	PaymentID    string `json:"inputval1"`
	PSPReference string `json:"inputval2"`
	Lang         string `json:"lang,omitempty"`
}

// CorrelationKey identifies a CorrelationRecord by the pair set at payment
// creation. A value type with field equality, so delimiter collisions in
// either id cannot conflate two keys.
type CorrelationKey struct {
	PaymentID    string
	PSPReference string
}

// CorrelationRecord is the connector-private side channel linking a
// payment/psp-reference pair to gateway metadata. ShopStack never sees it.
type CorrelationRecord struct {
	GatewayTID    string `json:"gateway_tid"`
	PaymentMethod string `json:"payment_method"`
	Status        string `json:"status"` // gateway vocabulary (PENDING, ON_HOLD, ...)
	MaskedDevice  string `json:"masked_device,omitempty"`
	RiskScore     int    `json:"risk_score,omitempty"`
	Locale        string `json:"locale,omitempty"`
	Comments      string `json:"comments,omitempty"`

	// ProcessedEvents holds the fingerprints of webhooks already applied, so
	// a redelivered event is acknowledged without duplicating its effects.
	ProcessedEvents []string `json:"processed_events,omitempty"`
}

// SeenEvent reports whether the event fingerprint was already applied.
func (r *CorrelationRecord) SeenEvent(fingerprint string) bool {
	for _, p := range r.ProcessedEvents {
		if p == fingerprint {
			return true
		}
	}
	return false
}

// MarkEvent records an applied event fingerprint.
func (r *CorrelationRecord) MarkEvent(fingerprint string) {
	if !r.SeenEvent(fingerprint) {
		r.ProcessedEvents = append(r.ProcessedEvents, fingerprint)
	}
}

// Payment is the ShopStack payment aggregate, referenced not owned.
// Every mutation must carry the Version read immediately before writing.
type Payment struct {
	ID            string        `json:"id"`
	Version       int64         `json:"version"`
	InterfaceCode string        `json:"interfaceCode,omitempty"`
	Transactions  []Transaction `json:"transactions"`
}

// Transaction is one transaction on a ShopStack payment. InteractionID holds
// the psp reference used to locate it on webhook arrival.
type Transaction struct {
	ID            string            `json:"id"`
	InteractionID string            `json:"interactionId"`
	Type          string            `json:"type"`
	State         TransactionState  `json:"state"`
	Amount        int64             `json:"amount"`
	Currency      string            `json:"currency"`
	Custom        map[string]string `json:"custom,omitempty"`
}

// TransactionCommentsField is the custom field carrying the append-only
// audit trail on a transaction.
const TransactionCommentsField = "transactionComments"

// FindTransaction returns the transaction whose interaction id matches the
// psp reference, or nil.
func (p *Payment) FindTransaction(pspReference string) *Transaction {
	for i := range p.Transactions {
		if p.Transactions[i].InteractionID == pspReference {
			return &p.Transactions[i]
		}
	}
	return nil
}

// Cart is the ShopStack cart the checkout payment attaches to.
type Cart struct {
	ID         string `json:"id"`
	Version    int64  `json:"version"`
	Currency   string `json:"currency"`
	TotalCents int64  `json:"totalCents"`
	Locale     string `json:"locale,omitempty"`
}

// UpdateAction is one element of a ShopStack versioned update batch.
type UpdateAction struct {
	Action        string           `json:"action"`
	TransactionID string           `json:"transactionId,omitempty"`
	Name          string           `json:"name,omitempty"`
	Value         string           `json:"value,omitempty"`
	InterfaceCode string           `json:"interfaceCode,omitempty"`
	State         TransactionState `json:"state,omitempty"`
	Transaction   *Transaction     `json:"transaction,omitempty"`
}

// AddTransaction builds the action appending a new transaction to a payment.
func AddTransaction(tx Transaction) UpdateAction {
	return UpdateAction{Action: "addTransaction", Transaction: &tx}
}

// SetTransactionComment builds the action writing the audit-trail custom
// field on a transaction.
func SetTransactionComment(transactionID, value string) UpdateAction {
	return UpdateAction{
		Action:        "setTransactionCustomField",
		TransactionID: transactionID,
		Name:          TransactionCommentsField,
		Value:         value,
	}
}

// SetStatusInterfaceCode builds the action recording the gateway status code
// on the payment.
func SetStatusInterfaceCode(code string) UpdateAction {
	return UpdateAction{Action: "setStatusInterfaceCode", InterfaceCode: code}
}

// ChangeTransactionState builds the action moving a transaction to a new
// state.
func ChangeTransactionState(transactionID string, state TransactionState) UpdateAction {
	return UpdateAction{
		Action:        "changeTransactionState",
		TransactionID: transactionID,
		State:         state,
	}
}

// HostedPaymentRequest is sent to NovaPay to create a hosted payment page.
type HostedPaymentRequest struct {
	Amount      int64             `json:"amount"`
	Currency    string            `json:"currency"`
	PaymentType string            `json:"payment_type"`
	ReturnURL   string            `json:"return_url"`
	ErrorURL    string            `json:"error_url"`
	Custom      map[string]string `json:"custom"`
}

// HostedPaymentResponse is the gateway response to a hosted payment request.
type HostedPaymentResponse struct {
	TID         string `json:"tid"`
	RedirectURL string `json:"redirect_url"`
	Status      string `json:"status"`
}

// GatewayTransaction is the detail record returned by the NovaPay
// transaction lookup API.
type GatewayTransaction struct {
	TID         string `json:"tid"`
	PaymentType string `json:"payment_type"`
	Status      string `json:"status"`
	StatusCode  string `json:"status_code"`
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
	DueDate     string `json:"due_date,omitempty"`
}
