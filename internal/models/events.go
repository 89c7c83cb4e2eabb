package models

import "time"

// Event types
const (
	EventTypeBookingCreated   = "BOOKING_CREATED"
	EventTypeBookingConfirmed = "BOOKING_CONFIRMED"
	EventTypeBookingCancelled = "BOOKING_CANCELLED"
	EventTypePaymentCompleted = "PAYMENT_COMPLETED"
	EventTypePaymentFailed    = "PAYMENT_FAILED"
	EventTypePaymentRefunded  = "PAYMENT_REFUNDED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// BookingCreatedEvent published when a booking is persisted (room reserved,
// payment not yet attempted)
type BookingCreatedEvent struct {
	BaseEvent
	BookingID      int64     `json:"booking_id"`
	HotelID        int64     `json:"hotel_id"`
	UserID         *int64    `json:"user_id,omitempty"`
	GuestEmail     string    `json:"guest_email"`
	CheckIn        time.Time `json:"check_in"`
	CheckOut       time.Time `json:"check_out"`
	TotalAmount    float64   `json:"total_amount"`
	PointsRedeemed int       `json:"points_redeemed,omitempty"`
}

// BookingConfirmedEvent published when payment completes
type BookingConfirmedEvent struct {
	BaseEvent
	BookingID    int64  `json:"booking_id"`
	HotelID      int64  `json:"hotel_id"`
	GuestEmail   string `json:"guest_email"`
	PointsEarned int    `json:"points_earned"`
}

// BookingCancelledEvent published on cancellation, whether user-initiated or
// triggered by a failed payment
type BookingCancelledEvent struct {
	BaseEvent
	BookingID  int64  `json:"booking_id"`
	HotelID    int64  `json:"hotel_id"`
	GuestEmail string `json:"guest_email"`
	Reason     string `json:"reason"`
}

// PaymentCompletedEvent published when the gateway authorizes a charge
type PaymentCompletedEvent struct {
	BaseEvent
	BookingID     int64   `json:"booking_id"`
	PaymentID     int64   `json:"payment_id"`
	Amount        float64 `json:"amount"`
	Currency      string  `json:"currency"`
	TransactionID string  `json:"transaction_id"`
}

// PaymentFailedEvent published when the gateway declines a charge
type PaymentFailedEvent struct {
	BaseEvent
	BookingID int64  `json:"booking_id"`
	PaymentID int64  `json:"payment_id"`
	Reason    string `json:"reason"`
}

// PaymentRefundedEvent published when a completed payment is refunded
type PaymentRefundedEvent struct {
	BaseEvent
	BookingID     int64   `json:"booking_id"`
	PaymentID     int64   `json:"payment_id"`
	Amount        float64 `json:"amount"`
	TransactionID string  `json:"transaction_id"`
}
