package models

import "time"

// Hotel is the partial view of a hotel owned by the catalog subsystem.
// available_rooms is mutated exclusively through the room inventory.
type Hotel struct {
	ID             int64     `db:"id" json:"id"`
	Name           string    `db:"name" json:"name"`
	PricePerNight  float64   `db:"price_per_night" json:"price_per_night"`
	AvailableRooms int       `db:"available_rooms" json:"available_rooms"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// Booking represents a guest's stay. Status is mutated only by the booking
// lifecycle; a booking is never deleted once a payment row exists for it.
type Booking struct {
	ID                    int64     `db:"id" json:"id"`
	HotelID               int64     `db:"hotel_id" json:"hotel_id"`
	UserID                *int64    `db:"user_id" json:"user_id,omitempty"`
	GuestName             string    `db:"guest_name" json:"guest_name"`
	GuestEmail            string    `db:"guest_email" json:"guest_email"`
	CheckIn               time.Time `db:"check_in" json:"check_in"`
	CheckOut              time.Time `db:"check_out" json:"check_out"`
	NumberOfGuests        int       `db:"number_of_guests" json:"number_of_guests"`
	TotalAmount           float64   `db:"total_amount" json:"total_amount"`
	LoyaltyPointsRedeemed int       `db:"loyalty_points_redeemed" json:"loyalty_points_redeemed,omitempty"`
	LoyaltyDiscountAmount float64   `db:"loyalty_discount_amount" json:"loyalty_discount_amount,omitempty"`
	Status                string    `db:"status" json:"status"`
	IdempotencyKey        string    `db:"idempotency_key" json:"idempotency_key,omitempty"`
	CreatedAt             time.Time `db:"created_at" json:"created_at"`
	UpdatedAt             time.Time `db:"updated_at" json:"updated_at"`
}

// Payment records one authorization attempt against a booking. At most one
// COMPLETED payment per booking is meaningful for refunds.
type Payment struct {
	ID            int64      `db:"id" json:"id"`
	BookingID     int64      `db:"booking_id" json:"booking_id"`
	Amount        float64    `db:"amount" json:"amount"`
	Currency      string     `db:"currency" json:"currency"`
	Method        string     `db:"method" json:"method"`
	Status        string     `db:"status" json:"status"`
	TransactionID string     `db:"transaction_id" json:"transaction_id,omitempty"`
	ErrorMessage  string     `db:"error_message" json:"error_message,omitempty"`
	ProcessedAt   *time.Time `db:"processed_at" json:"processed_at,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}

// LoyaltyAccount holds a user's points balance. One per user, created lazily.
// The balance always equals the sum of the account's points transactions.
type LoyaltyAccount struct {
	ID                int64     `db:"id" json:"id"`
	UserID            int64     `db:"user_id" json:"user_id"`
	PointsBalance     int       `db:"points_balance" json:"points_balance"`
	TotalPointsEarned int       `db:"total_points_earned" json:"total_points_earned"`
	LastUpdated       time.Time `db:"last_updated" json:"last_updated"`
}

// PointsTransaction is an append-only ledger entry. PointsEarned is signed:
// positive for awards and refunds, negative for redemptions and revocations.
type PointsTransaction struct {
	ID               int64     `db:"id" json:"id"`
	LoyaltyAccountID int64     `db:"loyalty_account_id" json:"loyalty_account_id"`
	BookingID        *int64    `db:"booking_id" json:"booking_id,omitempty"`
	Kind             string    `db:"kind" json:"kind"`
	PointsEarned     int       `db:"points_earned" json:"points_earned"`
	Description      string    `db:"description" json:"description"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
}

// Booking statuses. A freshly created booking is CONFIRMED with a derived
// payment-required flag; it is logically pending payment until a COMPLETED
// payment exists. COMPLETED is set by the stay-completion worker after
// checkout.
const (
	BookingStatusConfirmed = "CONFIRMED"
	BookingStatusCancelled = "CANCELLED"
	BookingStatusCompleted = "COMPLETED"
)

// Payment statuses
const (
	PaymentStatusPending   = "PENDING"
	PaymentStatusCompleted = "COMPLETED"
	PaymentStatusFailed    = "FAILED"
	PaymentStatusRefunded  = "REFUNDED"
)

// Points transaction kinds
const (
	PointsKindAward  = "award"
	PointsKindRedeem = "redeem"
	PointsKindRefund = "refund"
	PointsKindRevoke = "revoke"
)

// Roles recognised by the ownership checks
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// ProcessedEvent for consumer idempotency
type ProcessedEvent struct {
	EventID     string    `db:"event_id"`
	EventType   string    `db:"event_type"`
	ProcessedAt time.Time `db:"processed_at"`
}
