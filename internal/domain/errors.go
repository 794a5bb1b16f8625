package domain

import "errors"

// Domain errors
var (
	// Lookup errors
	ErrEventNotFound  = errors.New("event not found")
	ErrOrderNotFound  = errors.New("order not found")
	ErrTicketNotFound = errors.New("ticket not found")

	// Reservation errors
	ErrInsufficientInventory = errors.New("not enough tickets available")
	ErrTicketContended       = errors.New("ticket is held by another reservation attempt")

	// Settlement errors
	ErrAlreadySettled     = errors.New("order already settled")
	ErrInvalidSignature   = errors.New("webhook signature verification failed")
	ErrMalformedPayload   = errors.New("webhook payload could not be parsed")
	ErrPaymentUnavailable = errors.New("payment provider unavailable")

	// Validation errors
	ErrInvalidQuantity = errors.New("quantity must be greater than zero")
	ErrInvalidEventID  = errors.New("invalid event id")
	ErrInvalidUserID   = errors.New("invalid user id")
	ErrInvalidOrderID  = errors.New("invalid order id")
)

// IsNotFoundError checks if the error is a not found error
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrEventNotFound) ||
		errors.Is(err, ErrOrderNotFound) ||
		errors.Is(err, ErrTicketNotFound)
}

// IsContentionError checks if the error means the caller lost a race
// and may retry.
func IsContentionError(err error) bool {
	return errors.Is(err, ErrTicketContended)
}

// IsConflictError checks if the error is a conflict the caller cannot
// fix by retrying the same request.
func IsConflictError(err error) bool {
	return errors.Is(err, ErrInsufficientInventory) ||
		errors.Is(err, ErrAlreadySettled)
}

// IsValidationError checks if the error is a request validation error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidQuantity) ||
		errors.Is(err, ErrInvalidEventID) ||
		errors.Is(err, ErrInvalidUserID) ||
		errors.Is(err, ErrInvalidOrderID)
}
