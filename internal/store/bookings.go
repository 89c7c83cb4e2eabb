package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"hotel-booking-service/internal/models"
)

// BookingDates is the projection the overlap validator works on.
type BookingDates struct {
	ID       int64     `db:"id"`
	CheckIn  time.Time `db:"check_in"`
	CheckOut time.Time `db:"check_out"`
}

// CreateBooking creates a new booking
func (s *Store) CreateBooking(ctx context.Context, booking *models.Booking) error {
	query := `
		INSERT INTO bookings (hotel_id, user_id, guest_name, guest_email, check_in, check_out,
			number_of_guests, total_amount, loyalty_points_redeemed, loyalty_discount_amount,
			status, idempotency_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at, updated_at`

	return s.db.GetContext(ctx, booking, query,
		booking.HotelID, booking.UserID, booking.GuestName, booking.GuestEmail,
		booking.CheckIn, booking.CheckOut, booking.NumberOfGuests, booking.TotalAmount,
		booking.LoyaltyPointsRedeemed, booking.LoyaltyDiscountAmount,
		booking.Status, booking.IdempotencyKey)
}

// GetBookingByID retrieves a booking by ID
func (s *Store) GetBookingByID(ctx context.Context, id int64) (*models.Booking, error) {
	var booking models.Booking
	err := s.db.GetContext(ctx, &booking, "SELECT * FROM bookings WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: id=%d", models.ErrBookingNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

// GetBookingByIdempotencyKey retrieves a booking by idempotency key
func (s *Store) GetBookingByIdempotencyKey(ctx context.Context, key string) (*models.Booking, error) {
	var booking models.Booking
	err := s.db.GetContext(ctx, &booking, "SELECT * FROM bookings WHERE idempotency_key = $1", key)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

// GetBookingsByUserID retrieves bookings for a user
func (s *Store) GetBookingsByUserID(ctx context.Context, userID int64) ([]models.Booking, error) {
	var bookings []models.Booking
	err := s.db.SelectContext(ctx, &bookings,
		"SELECT * FROM bookings WHERE user_id = $1 ORDER BY created_at DESC", userID)
	return bookings, err
}

// CancelBooking transitions a confirmed booking to cancelled. Returns false
// when the booking is no longer confirmed, so of two concurrent cancellations
// exactly one runs the compensation chain.
func (s *Store) CancelBooking(ctx context.Context, bookingID int64) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		"UPDATE bookings SET status = $1, updated_at = NOW() WHERE id = $2 AND status = $3",
		models.BookingStatusCancelled, bookingID, models.BookingStatusConfirmed)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// CompleteBooking transitions a confirmed booking to completed. Returns false
// when the booking was cancelled or completed in the meantime.
func (s *Store) CompleteBooking(ctx context.Context, bookingID int64) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		"UPDATE bookings SET status = $1, updated_at = NOW() WHERE id = $2 AND status = $3",
		models.BookingStatusCompleted, bookingID, models.BookingStatusConfirmed)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// GetActiveBookingDates returns the date ranges of all non-cancelled bookings
// for a hotel. excludeBookingID > 0 leaves out that booking, so an update can
// ignore itself.
func (s *Store) GetActiveBookingDates(ctx context.Context, hotelID, excludeBookingID int64) ([]BookingDates, error) {
	var dates []BookingDates
	err := s.db.SelectContext(ctx, &dates, `
		SELECT id, check_in, check_out FROM bookings
		WHERE hotel_id = $1 AND status <> $2 AND ($3 = 0 OR id <> $3)`,
		hotelID, models.BookingStatusCancelled, excludeBookingID)
	return dates, err
}

// ListConfirmedBookingsCheckedOutBefore returns confirmed bookings whose stay
// ended before the cutoff, for the completion worker.
func (s *Store) ListConfirmedBookingsCheckedOutBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.Booking, error) {
	var bookings []models.Booking
	err := s.db.SelectContext(ctx, &bookings, `
		SELECT * FROM bookings
		WHERE status = $1 AND check_out < $2
		ORDER BY check_out LIMIT $3`,
		models.BookingStatusConfirmed, cutoff, limit)
	return bookings, err
}

// CreatePayment creates a new payment record
func (s *Store) CreatePayment(ctx context.Context, payment *models.Payment) error {
	query := `
		INSERT INTO payments (booking_id, amount, currency, method, status, transaction_id, error_message)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`

	return s.db.GetContext(ctx, payment, query,
		payment.BookingID, payment.Amount, payment.Currency, payment.Method,
		payment.Status, payment.TransactionID, payment.ErrorMessage)
}

// GetPaymentByID retrieves a payment by ID
func (s *Store) GetPaymentByID(ctx context.Context, id int64) (*models.Payment, error) {
	var payment models.Payment
	err := s.db.GetContext(ctx, &payment, "SELECT * FROM payments WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: id=%d", models.ErrPaymentNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// GetCompletedPaymentByBookingID returns the booking's completed payment, or
// nil when no payment has completed.
func (s *Store) GetCompletedPaymentByBookingID(ctx context.Context, bookingID int64) (*models.Payment, error) {
	var payment models.Payment
	err := s.db.GetContext(ctx, &payment,
		"SELECT * FROM payments WHERE booking_id = $1 AND status = $2 ORDER BY created_at DESC LIMIT 1",
		bookingID, models.PaymentStatusCompleted)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// GetPaymentsByBookingID retrieves all payment attempts for a booking
func (s *Store) GetPaymentsByBookingID(ctx context.Context, bookingID int64) ([]models.Payment, error) {
	var payments []models.Payment
	err := s.db.SelectContext(ctx, &payments,
		"SELECT * FROM payments WHERE booking_id = $1 ORDER BY created_at DESC", bookingID)
	return payments, err
}

// UpdatePaymentStatus updates payment status and gateway outcome fields
func (s *Store) UpdatePaymentStatus(ctx context.Context, paymentID int64, status, transactionID, errorMessage string, processedAt *time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE payments
		SET status = $1, transaction_id = $2, error_message = $3, processed_at = $4, updated_at = NOW()
		WHERE id = $5`,
		status, transactionID, errorMessage, processedAt, paymentID)
	return err
}

// IsEventProcessed checks if an event has been processed
func (s *Store) IsEventProcessed(ctx context.Context, eventID string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists,
		"SELECT EXISTS(SELECT 1 FROM processed_events WHERE event_id = $1)", eventID)
	return exists, err
}

// MarkEventProcessed marks an event as processed
func (s *Store) MarkEventProcessed(ctx context.Context, eventID, eventType string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO processed_events (event_id, event_type) VALUES ($1, $2) ON CONFLICT (event_id) DO NOTHING",
		eventID, eventType)
	return err
}
