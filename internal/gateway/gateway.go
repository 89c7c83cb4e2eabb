package gateway

import (
	"context"
	"time"
)

// Authorization outcomes
const (
	StatusCompleted = "COMPLETED"
	StatusFailed    = "FAILED"
	StatusRefunded  = "REFUNDED"
)

// CardDetails carries the card fields forwarded to the processor. The mock
// never validates them beyond presence.
type CardDetails struct {
	Number      string
	HolderName  string
	ExpiryMonth int
	ExpiryYear  int
	CVV         string
}

// AuthorizeRequest is a charge authorization request
type AuthorizeRequest struct {
	BookingID int64
	Amount    float64
	Currency  string
	Method    string
	Card      CardDetails
}

// Result is the authoritative outcome of a gateway call
type Result struct {
	Status        string
	TransactionID string
	ProcessedAt   time.Time
	ErrorMessage  string
}

// PaymentGateway is the interchangeable payment-processing boundary. A real
// processor integration swaps in here without touching the booking lifecycle.
type PaymentGateway interface {
	Authorize(ctx context.Context, req *AuthorizeRequest) (*Result, error)
	Refund(ctx context.Context, transactionID string, amount float64) (*Result, error)
}
