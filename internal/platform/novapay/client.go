package novapay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/shopstack/novapay-connector/internal/core/domain"
	"github.com/shopstack/novapay-connector/internal/metrics"
)

// Client implements ports.PaymentGateway against the NovaPay REST API.
type Client struct {
	baseURL    string
	accessKey  string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	log        *zap.Logger
}

// NewClient creates a new NovaPay API client.
func NewClient(baseURL, accessKey string, log *zap.Logger) *Client {
	return &Client{
		baseURL:   baseURL,
		accessKey: accessKey,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "novapay",
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

// CreateHostedPayment creates a hosted payment page session.
// POST /v2/payment
func (c *Client) CreateHostedPayment(ctx context.Context, req domain.HostedPaymentRequest) (*domain.HostedPaymentResponse, error) {
	start := time.Now()
	defer func() {
		metrics.GatewayRequestDuration.WithLabelValues("create_hosted_payment").Observe(time.Since(start).Seconds())
	}()

	var resp domain.HostedPaymentResponse
	if err := c.post(ctx, "/v2/payment", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetTransactionDetails looks up a gateway transaction by tid.
// POST /v2/transaction/details
func (c *Client) GetTransactionDetails(ctx context.Context, tid string) (*domain.GatewayTransaction, error) {
	start := time.Now()
	defer func() {
		metrics.GatewayRequestDuration.WithLabelValues("transaction_details").Observe(time.Since(start).Seconds())
	}()

	body := map[string]string{"tid": tid}
	var resp domain.GatewayTransaction
	if err := c.post(ctx, "/v2/transaction/details", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// post sends an authenticated JSON request through the circuit breaker and
// decodes the response into out.
func (c *Client) post(ctx context.Context, path string, payload, out interface{}) error {
	jsonBody, err := json.Marshal(payload)
	if err != nil {
		return domain.NewServiceError(domain.ErrGatewayAPI,
			"failed to marshal request", "MARSHAL_ERROR")
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost,
			c.baseURL+path, bytes.NewReader(jsonBody))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-NP-Access-Key", c.accessKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, fmt.Errorf("novapay returned status %d: %s", resp.StatusCode, string(data))
		}
		return data, nil
	})
	if err != nil {
		return domain.NewServiceError(domain.ErrGatewayAPI, err.Error(), "GATEWAY_ERROR")
	}

	if err := json.Unmarshal(result.([]byte), out); err != nil {
		return domain.NewServiceError(domain.ErrGatewayAPI,
			"failed to decode response", "DECODE_ERROR")
	}
	return nil
}
