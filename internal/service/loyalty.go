package service

import (
	"context"
	"fmt"
	"math"

	"hotel-booking-service/config"
	"hotel-booking-service/internal/models"
	"hotel-booking-service/internal/store"
	"hotel-booking-service/internal/util"

	"go.uber.org/zap"
)

type loyaltyStore interface {
	RedeemPoints(ctx context.Context, userID int64, points int, description string) (*models.LoyaltyAccount, error)
	AwardPoints(ctx context.Context, userID, bookingID int64, points int, description string) (*models.LoyaltyAccount, bool, error)
	RefundRedeemedPoints(ctx context.Context, userID int64, bookingID *int64, points int, description string) (*models.LoyaltyAccount, bool, error)
	RevokeEarnedPoints(ctx context.Context, userID, bookingID int64, description string) (int, error)
	GetLoyaltyAccountByUserID(ctx context.Context, userID int64) (*models.LoyaltyAccount, error)
	GetPointsTransactions(ctx context.Context, accountID int64, limit, offset int) ([]models.PointsTransaction, error)
}

// LoyaltyLedger computes and mutates loyalty points. Balance mutations go
// through the store's per-account row locks and always pair with one ledger
// entry.
type LoyaltyLedger struct {
	store  loyaltyStore
	cfg    config.BusinessConfig
	logger *zap.Logger
}

// NewLoyaltyLedger creates a new loyalty ledger
func NewLoyaltyLedger(st *store.Store, cfg config.BusinessConfig) *LoyaltyLedger {
	return &LoyaltyLedger{
		store:  st,
		cfg:    cfg,
		logger: util.GetLogger(),
	}
}

// RedemptionResult is the outcome of a successful redemption
type RedemptionResult struct {
	PointsRedeemed int
	DiscountAmount float64
}

// CalculatePoints returns floor(amount * pointsPercentage) for amounts at or
// above the minimum booking amount, otherwise 0.
func (l *LoyaltyLedger) CalculatePoints(amount float64) int {
	if amount < l.cfg.MinimumBookingAmount {
		return 0
	}
	return int(math.Floor(amount * l.cfg.PointsPercentage))
}

// CalculateDiscount converts points to a monetary discount at 1:1
func (l *LoyaltyLedger) CalculateDiscount(points int) float64 {
	if points < 1 {
		return 0
	}
	return float64(points)
}

// Redeem converts points into a discount, decrementing the balance and
// appending a negative ledger entry.
func (l *LoyaltyLedger) Redeem(ctx context.Context, userID int64, points int) (*RedemptionResult, error) {
	ctx, span := util.StartSpan(ctx, "LoyaltyLedger.Redeem")
	defer span.End()

	if points <= 0 {
		return nil, fmt.Errorf("%w: points=%d", models.ErrInvalidPoints, points)
	}

	discount := l.CalculateDiscount(points)
	desc := fmt.Sprintf("Redeemed %d points for a %.2f discount", points, discount)

	if _, err := l.store.RedeemPoints(ctx, userID, points, desc); err != nil {
		return nil, err
	}

	util.PointsRedeemedTotal.Add(float64(points))
	l.logger.Info("Points redeemed",
		zap.Int64("user_id", userID),
		zap.Int("points", points))

	return &RedemptionResult{
		PointsRedeemed: points,
		DiscountAmount: discount,
	}, nil
}

// Award credits the points earned by a completed payment, at most once per
// booking. Returns the points credited; 0 when the amount earns nothing or
// the booking was already awarded.
func (l *LoyaltyLedger) Award(ctx context.Context, userID, bookingID int64, amount float64) (int, error) {
	ctx, span := util.StartSpan(ctx, "LoyaltyLedger.Award")
	defer span.End()

	points := l.CalculatePoints(amount)
	if points == 0 {
		return 0, nil
	}

	desc := fmt.Sprintf("Earned %d points for booking %d", points, bookingID)
	_, awarded, err := l.store.AwardPoints(ctx, userID, bookingID, points, desc)
	if err != nil {
		return 0, err
	}
	if !awarded {
		l.logger.Info("Points already awarded for booking",
			zap.Int64("booking_id", bookingID))
		return 0, nil
	}

	util.PointsAwardedTotal.Add(float64(points))
	l.logger.Info("Points awarded",
		zap.Int64("user_id", userID),
		zap.Int64("booking_id", bookingID),
		zap.Int("points", points))

	return points, nil
}

// RefundRedeemedPoints reverses a prior redemption on cancellation. With a
// booking ID the refund applies at most once.
func (l *LoyaltyLedger) RefundRedeemedPoints(ctx context.Context, userID int64, bookingID *int64, points int) error {
	ctx, span := util.StartSpan(ctx, "LoyaltyLedger.RefundRedeemedPoints")
	defer span.End()

	if points <= 0 {
		return nil
	}

	desc := fmt.Sprintf("Refunded %d redeemed points", points)
	_, refunded, err := l.store.RefundRedeemedPoints(ctx, userID, bookingID, points, desc)
	if err != nil {
		return err
	}
	if !refunded {
		l.logger.Info("Redeemed points already refunded",
			zap.Int64p("booking_id", bookingID))
	}
	return nil
}

// RevokeEarnedPoints subtracts the points awarded for a booking, clamped at
// zero. Returns the points actually revoked.
func (l *LoyaltyLedger) RevokeEarnedPoints(ctx context.Context, userID, bookingID int64) (int, error) {
	ctx, span := util.StartSpan(ctx, "LoyaltyLedger.RevokeEarnedPoints")
	defer span.End()

	desc := fmt.Sprintf("Revoked points earned for booking %d", bookingID)
	revoked, err := l.store.RevokeEarnedPoints(ctx, userID, bookingID, desc)
	if err != nil {
		return 0, err
	}

	if revoked > 0 {
		l.logger.Info("Points revoked",
			zap.Int64("user_id", userID),
			zap.Int64("booking_id", bookingID),
			zap.Int("points", revoked))
	}
	return revoked, nil
}

// Account retrieves a user's loyalty account
func (l *LoyaltyLedger) Account(ctx context.Context, userID int64) (*models.LoyaltyAccount, error) {
	return l.store.GetLoyaltyAccountByUserID(ctx, userID)
}

// Transactions retrieves a page of a user's ledger entries
func (l *LoyaltyLedger) Transactions(ctx context.Context, userID int64, limit, offset int) ([]models.PointsTransaction, error) {
	account, err := l.store.GetLoyaltyAccountByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return l.store.GetPointsTransactions(ctx, account.ID, limit, offset)
}
