package models

import "errors"

// Domain errors. Validation and conflict errors are returned before any
// mutation; errors discovered mid-operation trigger compensation first.
var (
	// Booking errors
	ErrValidation       = errors.New("validation failed")
	ErrBookingConflict  = errors.New("booking dates conflict with an existing booking")
	ErrBookingNotFound  = errors.New("booking not found")
	ErrBookingCancelled = errors.New("booking is cancelled")
	ErrAlreadyPaid      = errors.New("booking already has a completed payment")

	// Inventory errors
	ErrHotelNotFound    = errors.New("hotel not found")
	ErrCapacityExceeded = errors.New("no rooms available")

	// Loyalty errors
	ErrInsufficientPoints = errors.New("insufficient loyalty points")
	ErrInvalidPoints      = errors.New("points amount must be positive")
	ErrAccountNotFound    = errors.New("loyalty account not found")

	// Payment errors
	ErrPaymentDeclined = errors.New("payment declined")
	ErrPaymentNotFound = errors.New("payment not found")
	ErrRefundFailed    = errors.New("refund failed")

	// Ownership errors
	ErrUnauthorized = errors.New("authentication required")
	ErrForbidden    = errors.New("not allowed to access this booking")
)

// ErrorKind maps a domain error to the machine-readable kind surfaced in
// HTTP responses. Unknown errors map to "internal".
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, ErrValidation):
		return "validation_error"
	case errors.Is(err, ErrBookingConflict):
		return "booking_conflict"
	case errors.Is(err, ErrCapacityExceeded):
		return "capacity_exceeded"
	case errors.Is(err, ErrInsufficientPoints):
		return "insufficient_points"
	case errors.Is(err, ErrInvalidPoints):
		return "invalid_amount"
	case errors.Is(err, ErrPaymentDeclined):
		return "payment_declined"
	case errors.Is(err, ErrRefundFailed):
		return "refund_failed"
	case errors.Is(err, ErrAlreadyPaid):
		return "already_paid"
	case errors.Is(err, ErrBookingCancelled):
		return "booking_cancelled"
	case errors.Is(err, ErrBookingNotFound),
		errors.Is(err, ErrHotelNotFound),
		errors.Is(err, ErrPaymentNotFound),
		errors.Is(err, ErrAccountNotFound):
		return "not_found"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	default:
		return "internal"
	}
}
