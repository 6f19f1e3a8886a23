// Package api contains the HTTP handlers and routing for the connector.
package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/shopstack/novapay-connector/internal/core/domain"
	"github.com/shopstack/novapay-connector/internal/core/service"
	"github.com/shopstack/novapay-connector/internal/platform/novapay"
)

// Handler contains the HTTP handlers for the connector API.
type Handler struct {
	webhookService *service.WebhookService
	paymentService *service.PaymentService
	log            *zap.Logger
}

// NewHandler creates a new API handler.
func NewHandler(webhookService *service.WebhookService, paymentService *service.PaymentService, log *zap.Logger) *Handler {
	return &Handler{
		webhookService: webhookService,
		paymentService: paymentService,
		log:            log,
	}
}

// SuccessResponse wraps successful response data.
type SuccessResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
}

// ErrorResponse represents a failed request.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// HandleWebhook handles POST /webhook
// Receives notifications from NovaPay and reconciles them with ShopStack.
func (h *Handler) HandleWebhook(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Success: false,
			Message: "failed to read webhook body",
			Code:    "READ_ERROR",
		})
		return
	}

	notification, err := novapay.ParseNotification(body)
	if err != nil {
		h.webhookError(c, err)
		return
	}

	result, err := h.webhookService.Process(c.Request.Context(), notification, c.Request.Header, c.Request.RemoteAddr)
	if err != nil {
		h.webhookError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Success: true, Data: result})
}

// webhookError surfaces every validation/processing failure as a 500 with a
// descriptive message, so the gateway knows to redeliver.
func (h *Handler) webhookError(c *gin.Context, err error) {
	h.log.Error("webhook processing failed", zap.Error(err))

	code := ""
	var svcErr *domain.ServiceError
	if errors.As(err, &svcErr) {
		code = svcErr.Code
	}
	c.JSON(http.StatusInternalServerError, ErrorResponse{
		Success: false,
		Message: err.Error(),
		Code:    code,
	})
}

// CreateCheckout handles POST /api/v1/payments/checkout
// Creates a NovaPay hosted payment session for a cart.
func (h *Handler) CreateCheckout(c *gin.Context) {
	var req service.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Success: false,
			Message: "invalid request body: " + err.Error(),
			Code:    "VALIDATION_ERROR",
		})
		return
	}

	resp, err := h.paymentService.CreateCheckout(c.Request.Context(), req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Success: true, Data: resp})
}

// GetPaymentStatus handles GET /api/v1/payments/:tid/status
// Looks up the gateway transaction detail record.
func (h *Handler) GetPaymentStatus(c *gin.Context) {
	tid := c.Param("tid")
	tx, err := h.paymentService.GetTransactionStatus(c.Request.Context(), tid)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Success: true, Data: tx})
}

// Health handles GET /health
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "novapay-connector",
	})
}

// handleServiceError maps domain errors to HTTP responses.
func handleServiceError(c *gin.Context, err error) {
	statusCode := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrCartNotFound), errors.Is(err, domain.ErrPaymentNotFound):
		statusCode = http.StatusNotFound
	case errors.Is(err, domain.ErrGatewayAPI), errors.Is(err, domain.ErrPlatformAPI):
		statusCode = http.StatusBadGateway
	}

	message := err.Error()
	code := ""
	var svcErr *domain.ServiceError
	if errors.As(err, &svcErr) {
		message = svcErr.Message
		code = svcErr.Code
	}

	c.JSON(statusCode, ErrorResponse{
		Success: false,
		Message: message,
		Code:    code,
	})
}
