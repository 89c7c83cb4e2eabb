package gateway

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MockGateway simulates a payment processor: it authorizes with probability
// SuccessRate after a configurable delay. The delay honours context
// cancellation, so a timed-out charge surfaces as an error instead of
// blocking the request. The mutex keeps refunds at-most-once under
// concurrent calls for the same transaction.
type MockGateway struct {
	config       MockConfig
	mu           sync.Mutex
	transactions map[string]*mockTransaction
}

// MockConfig holds configuration for the mock gateway
type MockConfig struct {
	SuccessRate    float64
	DelayMs        int
	FailureReasons []string
}

// DefaultMockConfig returns default configuration
func DefaultMockConfig() MockConfig {
	return MockConfig{
		SuccessRate: 0.9,
		DelayMs:     200,
		FailureReasons: []string{
			"insufficient_funds",
			"card_declined",
			"expired_card",
			"processing_error",
		},
	}
}

// NewMockGateway creates a new mock gateway
func NewMockGateway(config MockConfig) *MockGateway {
	if config.SuccessRate < 0 {
		config.SuccessRate = 0
	}
	if config.SuccessRate > 1 {
		config.SuccessRate = 1
	}
	if len(config.FailureReasons) == 0 {
		config.FailureReasons = DefaultMockConfig().FailureReasons
	}

	return &MockGateway{
		config:       config,
		transactions: make(map[string]*mockTransaction),
	}
}

func (g *MockGateway) simulateDelay(ctx context.Context) error {
	if g.config.DelayMs <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(time.Duration(g.config.DelayMs) * time.Millisecond):
		return nil
	}
}

// Authorize processes a mock charge
func (g *MockGateway) Authorize(ctx context.Context, req *AuthorizeRequest) (*Result, error) {
	if req == nil {
		return nil, fmt.Errorf("authorize request is required")
	}

	if err := g.simulateDelay(ctx); err != nil {
		return nil, err
	}

	transactionID := fmt.Sprintf("TXN-%s", uuid.New().String()[:8])
	now := time.Now()

	if rand.Float64() < g.config.SuccessRate {
		g.mu.Lock()
		g.transactions[transactionID] = &mockTransaction{
			status:   StatusCompleted,
			amount:   req.Amount,
			currency: req.Currency,
		}
		g.mu.Unlock()

		return &Result{
			Status:        StatusCompleted,
			TransactionID: transactionID,
			ProcessedAt:   now,
		}, nil
	}

	reason := g.config.FailureReasons[rand.Intn(len(g.config.FailureReasons))]
	return &Result{
		Status:       StatusFailed,
		ProcessedAt:  now,
		ErrorMessage: reason,
	}, nil
}

// Refund marks a completed transaction refunded. Refunding an unknown or
// non-completed transaction fails.
func (g *MockGateway) Refund(ctx context.Context, transactionID string, amount float64) (*Result, error) {
	if transactionID == "" {
		return nil, fmt.Errorf("transaction ID is required")
	}

	if err := g.simulateDelay(ctx); err != nil {
		return nil, err
	}

	g.mu.Lock()
	txn, ok := g.transactions[transactionID]
	if !ok {
		g.mu.Unlock()
		return nil, fmt.Errorf("transaction not found: %s", transactionID)
	}
	if txn.status != StatusCompleted {
		status := txn.status
		g.mu.Unlock()
		return nil, fmt.Errorf("transaction %s is %s, not refundable", transactionID, status)
	}
	txn.status = StatusRefunded
	g.mu.Unlock()

	return &Result{
		Status:        StatusRefunded,
		TransactionID: transactionID,
		ProcessedAt:   time.Now(),
	}, nil
}

type mockTransaction struct {
	status   string
	amount   float64
	currency string
}
