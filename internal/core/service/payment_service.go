package service

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/shopstack/novapay-connector/internal/core/domain"
	"github.com/shopstack/novapay-connector/internal/core/ports"
)

// CheckoutRequest starts a hosted payment page session for an existing
// ShopStack cart and payment.
type CheckoutRequest struct {
	CartID      string `json:"cart_id" binding:"required"`
	PaymentID   string `json:"payment_id" binding:"required"`
	PaymentType string `json:"payment_type" binding:"required"`
	ReturnURL   string `json:"return_url" binding:"required"`
	ErrorURL    string `json:"error_url"`
	Locale      string `json:"locale"`
}

// CheckoutResponse carries the hosted page redirect and the correlation
// reference the webhook will use to find the transaction.
type CheckoutResponse struct {
	RedirectURL  string `json:"redirect_url"`
	TID          string `json:"tid"`
	PSPReference string `json:"psp_reference"`
}

// PaymentService creates gateway payments and seeds the correlation state
// consumed later by webhook reconciliation.
type PaymentService struct {
	platform ports.CommercePlatform
	gateway  ports.PaymentGateway
	store    ports.CorrelationStore
	log      *zap.Logger
}

// NewPaymentService creates the checkout service.
func NewPaymentService(platform ports.CommercePlatform, gateway ports.PaymentGateway, store ports.CorrelationStore, log *zap.Logger) *PaymentService {
	return &PaymentService{platform: platform, gateway: gateway, store: store, log: log}
}

// CreateCheckout creates the hosted payment session. The generated psp
// reference is planted three places that must agree later: the gateway
// custom values (echoed back in webhooks), the new transaction's
// interactionId, and the correlation record key.
func (s *PaymentService) CreateCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutResponse, error) {
	cart, err := s.platform.GetCart(ctx, req.CartID)
	if err != nil {
		return nil, err
	}

	payment, err := s.platform.GetPayment(ctx, req.PaymentID)
	if err != nil {
		return nil, err
	}

	pspReference := uuid.New().String()
	errorURL := req.ErrorURL
	if errorURL == "" {
		errorURL = req.ReturnURL
	}

	hosted, err := s.gateway.CreateHostedPayment(ctx, domain.HostedPaymentRequest{
		Amount:      cart.TotalCents,
		Currency:    cart.Currency,
		PaymentType: req.PaymentType,
		ReturnURL:   req.ReturnURL,
		ErrorURL:    errorURL,
		Custom: map[string]string{
			"inputval1": req.PaymentID,
			"inputval2": pspReference,
			"lang":      s.checkoutLocale(req, cart),
		},
	})
	if err != nil {
		return nil, err
	}

	actions := []domain.UpdateAction{
		domain.AddTransaction(domain.Transaction{
			Type:          "Charge",
			State:         domain.StateInitial,
			Amount:        cart.TotalCents,
			Currency:      cart.Currency,
			InteractionID: pspReference,
		}),
	}
	if _, err := s.platform.UpdatePayment(ctx, payment.ID, payment.Version, actions); err != nil {
		return nil, err
	}

	record := &domain.CorrelationRecord{
		GatewayTID:    hosted.TID,
		PaymentMethod: req.PaymentType,
		Status:        hosted.Status,
		Locale:        s.checkoutLocale(req, cart),
	}
	key := domain.CorrelationKey{PaymentID: req.PaymentID, PSPReference: pspReference}
	if err := s.store.Upsert(ctx, key, record); err != nil {
		return nil, err
	}

	if err := s.platform.AddPayment(ctx, cart.ID, cart.Version, req.PaymentID); err != nil {
		return nil, err
	}

	s.log.Info("created hosted payment session",
		zap.String("payment_id", req.PaymentID),
		zap.String("psp_reference", pspReference),
		zap.String("gateway_tid", hosted.TID))

	return &CheckoutResponse{
		RedirectURL:  hosted.RedirectURL,
		TID:          hosted.TID,
		PSPReference: pspReference,
	}, nil
}

// GetTransactionStatus looks up the gateway-side transaction detail record.
func (s *PaymentService) GetTransactionStatus(ctx context.Context, tid string) (*domain.GatewayTransaction, error) {
	return s.gateway.GetTransactionDetails(ctx, tid)
}

func (s *PaymentService) checkoutLocale(req CheckoutRequest, cart *domain.Cart) string {
	if req.Locale != "" {
		return req.Locale
	}
	if cart.Locale != "" {
		return cart.Locale
	}
	return defaultLocale
}
