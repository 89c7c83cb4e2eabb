package store

import (
	"context"
	"database/sql"
	"fmt"

	"hotel-booking-service/internal/models"

	"github.com/jmoiron/sqlx"
)

// Every balance mutation runs in a transaction holding a row lock on the
// account and pairs the balance update with exactly one ledger entry, so the
// balance always equals the sum of the account's points transactions and
// concurrent mutations for one account serialize.

// lockAccount locks the user's loyalty account row, creating it lazily.
func (s *Store) lockAccount(ctx context.Context, tx *sqlx.Tx, userID int64) (*models.LoyaltyAccount, error) {
	_, err := tx.ExecContext(ctx,
		"INSERT INTO loyalty_accounts (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING", userID)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure loyalty account: %w", err)
	}

	var account models.LoyaltyAccount
	err = tx.GetContext(ctx, &account,
		"SELECT * FROM loyalty_accounts WHERE user_id = $1 FOR UPDATE", userID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock loyalty account: %w", err)
	}
	return &account, nil
}

func (s *Store) appendLedgerEntry(ctx context.Context, tx *sqlx.Tx, accountID int64, bookingID *int64, kind string, points int, description string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO points_transactions (loyalty_account_id, booking_id, kind, points_earned, description)
		VALUES ($1, $2, $3, $4, $5)`,
		accountID, bookingID, kind, points, description)
	return err
}

// appendLedgerEntryOnce appends a ledger entry unless one with the same kind
// already exists for the booking. Returns false when the entry was skipped.
// Backed by partial unique indexes on (booking_id) per kind.
func (s *Store) appendLedgerEntryOnce(ctx context.Context, tx *sqlx.Tx, accountID, bookingID int64, kind string, points int, description string) (bool, error) {
	res, err := tx.ExecContext(ctx, `
		INSERT INTO points_transactions (loyalty_account_id, booking_id, kind, points_earned, description)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT DO NOTHING`,
		accountID, bookingID, kind, points, description)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *Store) updateBalance(ctx context.Context, tx *sqlx.Tx, accountID int64, balanceDelta, earnedDelta int) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE loyalty_accounts
		SET points_balance = points_balance + $1,
		    total_points_earned = total_points_earned + $2,
		    last_updated = NOW()
		WHERE id = $3`,
		balanceDelta, earnedDelta, accountID)
	return err
}

// RedeemPoints decrements the balance and appends a negative ledger entry.
// The redemption happens before the booking row exists, so the entry carries
// no booking ID.
func (s *Store) RedeemPoints(ctx context.Context, userID int64, points int, description string) (*models.LoyaltyAccount, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	account, err := s.lockAccount(ctx, tx, userID)
	if err != nil {
		return nil, err
	}

	if account.PointsBalance < points {
		return nil, fmt.Errorf("%w: balance=%d, requested=%d",
			models.ErrInsufficientPoints, account.PointsBalance, points)
	}

	if err := s.appendLedgerEntry(ctx, tx, account.ID, nil, models.PointsKindRedeem, -points, description); err != nil {
		return nil, err
	}
	if err := s.updateBalance(ctx, tx, account.ID, -points, 0); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	account.PointsBalance -= points
	return account, nil
}

// AwardPoints credits points earned by a completed payment. At most one award
// per booking: a retried payment call finds the existing award entry and
// leaves the balance untouched.
func (s *Store) AwardPoints(ctx context.Context, userID, bookingID int64, points int, description string) (*models.LoyaltyAccount, bool, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, false, err
	}
	defer tx.Rollback()

	account, err := s.lockAccount(ctx, tx, userID)
	if err != nil {
		return nil, false, err
	}

	inserted, err := s.appendLedgerEntryOnce(ctx, tx, account.ID, bookingID, models.PointsKindAward, points, description)
	if err != nil {
		return nil, false, err
	}
	if !inserted {
		return account, false, tx.Commit()
	}

	if err := s.updateBalance(ctx, tx, account.ID, points, points); err != nil {
		return nil, false, err
	}

	if err := tx.Commit(); err != nil {
		return nil, false, err
	}

	account.PointsBalance += points
	account.TotalPointsEarned += points
	return account, true, nil
}

// RefundRedeemedPoints re-credits points redeemed against a cancelled
// booking. With a booking ID the refund is recorded at most once; a nil
// booking ID is the create-path compensation for a booking that was never
// persisted.
func (s *Store) RefundRedeemedPoints(ctx context.Context, userID int64, bookingID *int64, points int, description string) (*models.LoyaltyAccount, bool, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, false, err
	}
	defer tx.Rollback()

	account, err := s.lockAccount(ctx, tx, userID)
	if err != nil {
		return nil, false, err
	}

	if bookingID != nil {
		inserted, err := s.appendLedgerEntryOnce(ctx, tx, account.ID, *bookingID, models.PointsKindRefund, points, description)
		if err != nil {
			return nil, false, err
		}
		if !inserted {
			return account, false, tx.Commit()
		}
	} else {
		if err := s.appendLedgerEntry(ctx, tx, account.ID, nil, models.PointsKindRefund, points, description); err != nil {
			return nil, false, err
		}
	}

	if err := s.updateBalance(ctx, tx, account.ID, points, 0); err != nil {
		return nil, false, err
	}

	if err := tx.Commit(); err != nil {
		return nil, false, err
	}

	account.PointsBalance += points
	return account, true, nil
}

// RevokeEarnedPoints reverses the award recorded for a booking, clamped at
// the current balance so it never goes negative even when the points were
// already spent elsewhere. Returns the number of points actually revoked.
func (s *Store) RevokeEarnedPoints(ctx context.Context, userID, bookingID int64, description string) (int, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	account, err := s.lockAccount(ctx, tx, userID)
	if err != nil {
		return 0, err
	}

	var awarded int
	err = tx.GetContext(ctx, &awarded, `
		SELECT points_earned FROM points_transactions
		WHERE booking_id = $1 AND kind = $2`,
		bookingID, models.PointsKindAward)
	if err == sql.ErrNoRows {
		return 0, tx.Commit()
	}
	if err != nil {
		return 0, err
	}

	revoke := awarded
	if revoke > account.PointsBalance {
		revoke = account.PointsBalance
	}
	if revoke <= 0 {
		return 0, tx.Commit()
	}

	inserted, err := s.appendLedgerEntryOnce(ctx, tx, account.ID, bookingID, models.PointsKindRevoke, -revoke, description)
	if err != nil {
		return 0, err
	}
	if !inserted {
		return 0, tx.Commit()
	}

	if err := s.updateBalance(ctx, tx, account.ID, -revoke, 0); err != nil {
		return 0, err
	}

	return revoke, tx.Commit()
}

// GetLoyaltyAccountByUserID retrieves a user's loyalty account
func (s *Store) GetLoyaltyAccountByUserID(ctx context.Context, userID int64) (*models.LoyaltyAccount, error) {
	var account models.LoyaltyAccount
	err := s.db.GetContext(ctx, &account,
		"SELECT * FROM loyalty_accounts WHERE user_id = $1", userID)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: user=%d", models.ErrAccountNotFound, userID)
	}
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// GetPointsTransactions retrieves a page of ledger entries for an account
func (s *Store) GetPointsTransactions(ctx context.Context, accountID int64, limit, offset int) ([]models.PointsTransaction, error) {
	var txs []models.PointsTransaction
	err := s.db.SelectContext(ctx, &txs, `
		SELECT * FROM points_transactions
		WHERE loyalty_account_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`,
		accountID, limit, offset)
	return txs, err
}
