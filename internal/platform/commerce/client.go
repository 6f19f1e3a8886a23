// Package commerce provides the HTTP client for the ShopStack payment/cart
// API.
package commerce

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/shopstack/novapay-connector/internal/core/domain"
	"github.com/shopstack/novapay-connector/internal/metrics"
)

// Client implements ports.CommercePlatform.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	log        *zap.Logger
}

// NewClient creates a new ShopStack API client.
func NewClient(baseURL, apiKey string, log *zap.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "shopstack",
			Timeout: 30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				log.Warn("circuit breaker state change",
					zap.String("breaker", name),
					zap.String("from", from.String()),
					zap.String("to", to.String()))
			},
		}),
		log: log,
	}
}

// GetPayment fetches a payment including its current version.
// GET /payments/:id
func (c *Client) GetPayment(ctx context.Context, id string) (*domain.Payment, error) {
	start := time.Now()
	defer func() {
		metrics.PlatformRequestDuration.WithLabelValues("get_payment").Observe(time.Since(start).Seconds())
	}()

	var payment domain.Payment
	if err := c.getWithRetry(ctx, "/payments/"+id, &payment, domain.ErrPaymentNotFound); err != nil {
		return nil, err
	}
	return &payment, nil
}

// GetCart fetches a cart by id.
// GET /carts/:id
func (c *Client) GetCart(ctx context.Context, id string) (*domain.Cart, error) {
	start := time.Now()
	defer func() {
		metrics.PlatformRequestDuration.WithLabelValues("get_cart").Observe(time.Since(start).Seconds())
	}()

	var cart domain.Cart
	if err := c.getWithRetry(ctx, "/carts/"+id, &cart, domain.ErrCartNotFound); err != nil {
		return nil, err
	}
	return &cart, nil
}

// updatePaymentRequest is the versioned action batch body.
type updatePaymentRequest struct {
	Version int64                 `json:"version"`
	Actions []domain.UpdateAction `json:"actions"`
}

// UpdatePayment applies a versioned action batch atomically.
// POST /payments/:id
func (c *Client) UpdatePayment(ctx context.Context, id string, version int64, actions []domain.UpdateAction) (*domain.Payment, error) {
	start := time.Now()
	defer func() {
		metrics.PlatformRequestDuration.WithLabelValues("update_payment").Observe(time.Since(start).Seconds())
	}()

	body := updatePaymentRequest{Version: version, Actions: actions}
	var payment domain.Payment
	if err := c.post(ctx, "/payments/"+id, body, &payment, domain.ErrPaymentNotFound); err != nil {
		return nil, err
	}
	return &payment, nil
}

// addPaymentRequest attaches a payment to a cart.
type addPaymentRequest struct {
	Version int64              `json:"version"`
	Actions []cartUpdateAction `json:"actions"`
}

type cartUpdateAction struct {
	Action    string          `json:"action"`
	PaymentID json.RawMessage `json:"payment,omitempty"`
}

// AddPayment attaches a payment to a cart.
// POST /carts/:id
func (c *Client) AddPayment(ctx context.Context, cartID string, cartVersion int64, paymentID string) error {
	start := time.Now()
	defer func() {
		metrics.PlatformRequestDuration.WithLabelValues("add_payment").Observe(time.Since(start).Seconds())
	}()

	ref, _ := json.Marshal(map[string]string{"id": paymentID})
	body := addPaymentRequest{
		Version: cartVersion,
		Actions: []cartUpdateAction{{Action: "addPayment", PaymentID: ref}},
	}
	var cart domain.Cart
	return c.post(ctx, "/carts/"+cartID, body, &cart, domain.ErrCartNotFound)
}

// getWithRetry performs an idempotent GET with a single bounded retry on
// transport failure. Non-idempotent calls never go through here.
func (c *Client) getWithRetry(ctx context.Context, path string, out interface{}, notFound error) error {
	err := c.get(ctx, path, out, notFound)
	if err == nil || ctx.Err() != nil {
		return err
	}

	var svcErr *domain.ServiceError
	if errors.As(err, &svcErr) && svcErr.Code == "HTTP_ERROR" {
		c.log.Warn("retrying shopstack lookup after transport failure",
			zap.String("path", path), zap.Error(err))
		return c.get(ctx, path, out, notFound)
	}
	return err
}

func (c *Client) get(ctx context.Context, path string, out interface{}, notFound error) error {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
		if err != nil {
			return nil, domain.NewServiceError(domain.ErrPlatformAPI,
				"failed to create request", "REQUEST_ERROR")
		}
		req.Header.Set("Authorization", "Bearer "+c.apiKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, domain.NewServiceError(domain.ErrPlatformAPI,
				"request failed: "+err.Error(), "HTTP_ERROR")
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusNotFound {
			return nil, notFound
		}
		if resp.StatusCode != http.StatusOK {
			data, _ := io.ReadAll(resp.Body)
			return nil, domain.NewServiceError(domain.ErrPlatformAPI,
				fmt.Sprintf("shopstack returned status %d: %s", resp.StatusCode, string(data)),
				"PLATFORM_ERROR")
		}

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, domain.NewServiceError(domain.ErrPlatformAPI,
				"failed to read response", "READ_ERROR")
		}
		return data, nil
	})
	if err != nil {
		return err
	}

	if err := json.Unmarshal(result.([]byte), out); err != nil {
		return domain.NewServiceError(domain.ErrPlatformAPI,
			"failed to decode response", "DECODE_ERROR")
	}
	return nil
}

func (c *Client) post(ctx context.Context, path string, payload, out interface{}, notFound error) error {
	jsonBody, err := json.Marshal(payload)
	if err != nil {
		return domain.NewServiceError(domain.ErrPlatformAPI,
			"failed to marshal payload", "MARSHAL_ERROR")
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost,
			c.baseURL+path, bytes.NewReader(jsonBody))
		if err != nil {
			return nil, domain.NewServiceError(domain.ErrPlatformAPI,
				"failed to create request", "REQUEST_ERROR")
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.apiKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, domain.NewServiceError(domain.ErrPlatformAPI,
				"request failed: "+err.Error(), "HTTP_ERROR")
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusConflict {
			metrics.ReconcileConflictsTotal.Inc()
			return nil, domain.NewServiceError(domain.ErrVersionConflict,
				"stale version for "+path, "VERSION_CONFLICT")
		}
		if resp.StatusCode == http.StatusNotFound {
			return nil, notFound
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			data, _ := io.ReadAll(resp.Body)
			return nil, domain.NewServiceError(domain.ErrPlatformAPI,
				fmt.Sprintf("shopstack returned status %d: %s", resp.StatusCode, string(data)),
				"PLATFORM_ERROR")
		}

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, domain.NewServiceError(domain.ErrPlatformAPI,
				"failed to read response", "READ_ERROR")
		}
		return data, nil
	})
	if err != nil {
		return err
	}

	if err := json.Unmarshal(result.([]byte), out); err != nil {
		return domain.NewServiceError(domain.ErrPlatformAPI,
			"failed to decode response", "DECODE_ERROR")
	}
	return nil
}
