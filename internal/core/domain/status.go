package domain

// TransactionState is the ShopStack transaction-state vocabulary.
type TransactionState string

const (
	StateInitial  TransactionState = "Initial"
	StatePending  TransactionState = "Pending"
	StateSuccess  TransactionState = "Success"
	StateFailure  TransactionState = "Failure"
	StateCanceled TransactionState = "Canceled"
)

// Gateway transaction statuses as sent by NovaPay.
const (
	GatewayStatusPending     = "PENDING"
	GatewayStatusOnHold      = "ON_HOLD"
	GatewayStatusConfirmed   = "CONFIRMED"
	GatewayStatusCancelled   = "CANCELLED"
	GatewayStatusDeactivated = "DEACTIVATED"
)

// MapGatewayStatus translates a gateway status into a ShopStack transaction
// state. Total: unrecognized statuses map to Failure so a transaction is
// never left unmapped. Callers should log unknown inputs, see
// IsKnownGatewayStatus.
func MapGatewayStatus(status string) TransactionState {
	switch status {
	case GatewayStatusPending, GatewayStatusOnHold:
		return StatePending
	case GatewayStatusConfirmed:
		return StateSuccess
	case GatewayStatusCancelled:
		return StateCanceled
	default:
		return StateFailure
	}
}

// IsKnownGatewayStatus reports whether the status is part of the recognized
// gateway enumeration.
func IsKnownGatewayStatus(status string) bool {
	switch status {
	case GatewayStatusPending, GatewayStatusOnHold, GatewayStatusConfirmed,
		GatewayStatusCancelled, GatewayStatusDeactivated:
		return true
	}
	return false
}
