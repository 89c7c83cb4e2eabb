package gateway

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthorizeAlwaysSucceeds(t *testing.T) {
	gw := NewMockGateway(MockConfig{SuccessRate: 1.0, DelayMs: 0})

	for i := 0; i < 20; i++ {
		result, err := gw.Authorize(context.Background(), &AuthorizeRequest{
			BookingID: 1, Amount: 300, Currency: "INR", Method: "card",
		})
		require.NoError(t, err)
		assert.Equal(t, StatusCompleted, result.Status)
		assert.True(t, strings.HasPrefix(result.TransactionID, "TXN-"))
		assert.False(t, result.ProcessedAt.IsZero())
	}
}

func TestAuthorizeAlwaysFails(t *testing.T) {
	gw := NewMockGateway(MockConfig{SuccessRate: 0.0, DelayMs: 0})

	reasons := map[string]bool{}
	for _, r := range DefaultMockConfig().FailureReasons {
		reasons[r] = true
	}

	for i := 0; i < 20; i++ {
		result, err := gw.Authorize(context.Background(), &AuthorizeRequest{
			BookingID: 1, Amount: 300, Currency: "INR", Method: "card",
		})
		require.NoError(t, err)
		assert.Equal(t, StatusFailed, result.Status)
		assert.Empty(t, result.TransactionID)
		assert.True(t, reasons[result.ErrorMessage], "unexpected failure reason %q", result.ErrorMessage)
	}
}

func TestAuthorizeNilRequest(t *testing.T) {
	gw := NewMockGateway(MockConfig{SuccessRate: 1.0})

	_, err := gw.Authorize(context.Background(), nil)
	assert.Error(t, err)
}

func TestAuthorizeHonoursContextCancellation(t *testing.T) {
	gw := NewMockGateway(MockConfig{SuccessRate: 1.0, DelayMs: 5000})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := gw.Authorize(ctx, &AuthorizeRequest{BookingID: 1, Amount: 300})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRefundCompletedTransaction(t *testing.T) {
	gw := NewMockGateway(MockConfig{SuccessRate: 1.0, DelayMs: 0})

	auth, err := gw.Authorize(context.Background(), &AuthorizeRequest{
		BookingID: 1, Amount: 300, Currency: "INR",
	})
	require.NoError(t, err)

	refund, err := gw.Refund(context.Background(), auth.TransactionID, 300)
	require.NoError(t, err)
	assert.Equal(t, StatusRefunded, refund.Status)
	assert.Equal(t, auth.TransactionID, refund.TransactionID)
}

func TestRefundUnknownTransaction(t *testing.T) {
	gw := NewMockGateway(MockConfig{SuccessRate: 1.0, DelayMs: 0})

	_, err := gw.Refund(context.Background(), "TXN-missing1", 300)
	assert.Error(t, err)

	_, err = gw.Refund(context.Background(), "", 300)
	assert.Error(t, err)
}

func TestRefundTwiceFails(t *testing.T) {
	gw := NewMockGateway(MockConfig{SuccessRate: 1.0, DelayMs: 0})

	auth, err := gw.Authorize(context.Background(), &AuthorizeRequest{BookingID: 1, Amount: 300})
	require.NoError(t, err)

	_, err = gw.Refund(context.Background(), auth.TransactionID, 300)
	require.NoError(t, err)

	_, err = gw.Refund(context.Background(), auth.TransactionID, 300)
	assert.Error(t, err)
}

func TestConcurrentRefundsAtMostOnce(t *testing.T) {
	gw := NewMockGateway(MockConfig{SuccessRate: 1.0, DelayMs: 0})

	auth, err := gw.Authorize(context.Background(), &AuthorizeRequest{BookingID: 1, Amount: 300})
	require.NoError(t, err)

	const attempts = 16
	var wg sync.WaitGroup
	var succeeded int32

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := gw.Refund(context.Background(), auth.TransactionID, 300); err == nil {
				atomic.AddInt32(&succeeded, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), succeeded)
}
