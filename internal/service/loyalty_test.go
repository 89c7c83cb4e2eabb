package service

import (
	"context"
	"testing"

	"hotel-booking-service/config"
	"hotel-booking-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeLoyaltyStore struct {
	account     *models.LoyaltyAccount
	redeemErr   error
	awardErr    error
	awarded     bool
	redeemCalls int
	awardCalls  int
}

func (f *fakeLoyaltyStore) RedeemPoints(ctx context.Context, userID int64, points int, description string) (*models.LoyaltyAccount, error) {
	f.redeemCalls++
	if f.redeemErr != nil {
		return nil, f.redeemErr
	}
	return f.account, nil
}

func (f *fakeLoyaltyStore) AwardPoints(ctx context.Context, userID, bookingID int64, points int, description string) (*models.LoyaltyAccount, bool, error) {
	f.awardCalls++
	if f.awardErr != nil {
		return nil, false, f.awardErr
	}
	return f.account, f.awarded, nil
}

func (f *fakeLoyaltyStore) RefundRedeemedPoints(ctx context.Context, userID int64, bookingID *int64, points int, description string) (*models.LoyaltyAccount, bool, error) {
	return f.account, true, nil
}

func (f *fakeLoyaltyStore) RevokeEarnedPoints(ctx context.Context, userID, bookingID int64, description string) (int, error) {
	return 0, nil
}

func (f *fakeLoyaltyStore) GetLoyaltyAccountByUserID(ctx context.Context, userID int64) (*models.LoyaltyAccount, error) {
	return f.account, nil
}

func (f *fakeLoyaltyStore) GetPointsTransactions(ctx context.Context, accountID int64, limit, offset int) ([]models.PointsTransaction, error) {
	return nil, nil
}

func newTestLedger(st *fakeLoyaltyStore) *LoyaltyLedger {
	return &LoyaltyLedger{
		store: st,
		cfg: config.BusinessConfig{
			PointsPercentage:     0.10,
			MinimumBookingAmount: 50.0,
		},
		logger: zap.NewNop(),
	}
}

func TestCalculatePoints(t *testing.T) {
	ledger := newTestLedger(&fakeLoyaltyStore{})

	tests := []struct {
		name   string
		amount float64
		want   int
	}{
		{"below minimum earns nothing", 49.99, 0},
		{"at minimum", 50.0, 5},
		{"typical booking", 1700.0, 170},
		{"fractional result floors", 105.5, 10},
		{"zero amount", 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ledger.CalculatePoints(tt.amount))
		})
	}
}

func TestCalculateDiscount(t *testing.T) {
	ledger := newTestLedger(&fakeLoyaltyStore{})

	assert.Equal(t, 0.0, ledger.CalculateDiscount(0))
	assert.Equal(t, 0.0, ledger.CalculateDiscount(-5))
	assert.Equal(t, 100.0, ledger.CalculateDiscount(100))
}

func TestRedeemRejectsNonPositivePoints(t *testing.T) {
	st := &fakeLoyaltyStore{}
	ledger := newTestLedger(st)

	_, err := ledger.Redeem(context.Background(), 1, 0)
	assert.ErrorIs(t, err, models.ErrInvalidPoints)

	_, err = ledger.Redeem(context.Background(), 1, -10)
	assert.ErrorIs(t, err, models.ErrInvalidPoints)

	assert.Zero(t, st.redeemCalls)
}

func TestRedeemInsufficientBalance(t *testing.T) {
	st := &fakeLoyaltyStore{redeemErr: models.ErrInsufficientPoints}
	ledger := newTestLedger(st)

	_, err := ledger.Redeem(context.Background(), 1, 100)
	assert.ErrorIs(t, err, models.ErrInsufficientPoints)
}

func TestRedeemReturnsDiscount(t *testing.T) {
	st := &fakeLoyaltyStore{account: &models.LoyaltyAccount{ID: 1, UserID: 1, PointsBalance: 400}}
	ledger := newTestLedger(st)

	result, err := ledger.Redeem(context.Background(), 1, 100)
	require.NoError(t, err)
	assert.Equal(t, 100, result.PointsRedeemed)
	assert.Equal(t, 100.0, result.DiscountAmount)
}

func TestAwardBelowMinimumSkipsStore(t *testing.T) {
	st := &fakeLoyaltyStore{}
	ledger := newTestLedger(st)

	points, err := ledger.Award(context.Background(), 1, 7, 49.0)
	require.NoError(t, err)
	assert.Zero(t, points)
	assert.Zero(t, st.awardCalls)
}

func TestAwardCreditsOnce(t *testing.T) {
	st := &fakeLoyaltyStore{
		account: &models.LoyaltyAccount{ID: 1, UserID: 1},
		awarded: true,
	}
	ledger := newTestLedger(st)

	points, err := ledger.Award(context.Background(), 1, 7, 1700.0)
	require.NoError(t, err)
	assert.Equal(t, 170, points)

	// A duplicate award is reported as zero points, not an error.
	st.awarded = false
	points, err = ledger.Award(context.Background(), 1, 7, 1700.0)
	require.NoError(t, err)
	assert.Zero(t, points)
}
