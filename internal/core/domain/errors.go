// Package domain contains the core business entities for the reconciliation
// connector.
package domain

import "errors"

// Domain errors - represent validation and processing failures.
var (
	// ErrMissingField is returned when a mandatory webhook field is absent.
	ErrMissingField = errors.New("required webhook field missing")

	// ErrChecksumValidation is returned when the webhook checksum does not
	// match the payload - a possible forgery.
	ErrChecksumValidation = errors.New("webhook checksum validation failed")

	// ErrUnauthorizedSource is returned when the webhook did not originate
	// from the gateway's published host.
	ErrUnauthorizedSource = errors.New("webhook source not authorized")

	// ErrTransactionNotFound is returned when no transaction matches the psp
	// reference. Fatal - no partial update is applied.
	ErrTransactionNotFound = errors.New("transaction not found for psp reference")

	// ErrPaymentNotFound is returned when ShopStack has no payment with the
	// correlated id.
	ErrPaymentNotFound = errors.New("payment not found")

	// ErrCartNotFound is returned when the checkout cart does not exist.
	ErrCartNotFound = errors.New("cart not found")

	// ErrVersionConflict is returned when a versioned update is rejected by
	// ShopStack's optimistic concurrency check.
	ErrVersionConflict = errors.New("payment version conflict")

	// ErrGatewayAPI is returned when a NovaPay API call fails.
	ErrGatewayAPI = errors.New("gateway api error")

	// ErrPlatformAPI is returned when a ShopStack API call fails.
	ErrPlatformAPI = errors.New("commerce platform api error")

	// ErrRecordNotFound is returned when no correlation record exists for a
	// key.
	ErrRecordNotFound = errors.New("correlation record not found")
)

// ServiceError wraps errors with additional context.
type ServiceError struct {
	Err     error
	Message string
	Code    string
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Err.Error()
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewServiceError creates a new ServiceError.
func NewServiceError(err error, message, code string) *ServiceError {
	return &ServiceError{Err: err, Message: message, Code: code}
}
