package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"hotel-booking-service/config"
	"hotel-booking-service/internal/gateway"
	"hotel-booking-service/internal/models"
	"hotel-booking-service/internal/redisclient"
	"hotel-booking-service/internal/store"
	"hotel-booking-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const dateLayout = "2006-01-02"

type lifecycleStore interface {
	GetHotelByID(ctx context.Context, id int64) (*models.Hotel, error)
	CreateBooking(ctx context.Context, booking *models.Booking) error
	GetBookingByID(ctx context.Context, id int64) (*models.Booking, error)
	GetBookingByIdempotencyKey(ctx context.Context, key string) (*models.Booking, error)
	GetBookingsByUserID(ctx context.Context, userID int64) ([]models.Booking, error)
	CancelBooking(ctx context.Context, bookingID int64) (bool, error)
}

type roomInventory interface {
	Reserve(ctx context.Context, hotelID int64) error
	Release(ctx context.Context, hotelID int64) error
}

type overlapChecker interface {
	HasOverlap(ctx context.Context, hotelID int64, checkIn, checkOut time.Time, excludeBookingID int64) (bool, error)
}

type pointsLedger interface {
	CalculatePoints(amount float64) int
	Redeem(ctx context.Context, userID int64, points int) (*RedemptionResult, error)
	Award(ctx context.Context, userID, bookingID int64, amount float64) (int, error)
	RefundRedeemedPoints(ctx context.Context, userID int64, bookingID *int64, points int) error
	RevokeEarnedPoints(ctx context.Context, userID, bookingID int64) (int, error)
}

type paymentProcessor interface {
	Process(ctx context.Context, booking *models.Booking, method string, card gateway.CardDetails) (*models.Payment, error)
	Refund(ctx context.Context, payment *models.Payment) (*gateway.Result, error)
	CompletedPayment(ctx context.Context, bookingID int64) (*models.Payment, error)
}

type lifecyclePublisher interface {
	PublishBookingCreated(ctx context.Context, event *models.BookingCreatedEvent) error
	PublishBookingConfirmed(ctx context.Context, event *models.BookingConfirmedEvent) error
	PublishBookingCancelled(ctx context.Context, event *models.BookingCancelledEvent) error
}

type idempotencyCache interface {
	GetIdempotencyKey(ctx context.Context, key string) (string, error)
	SetIdempotencyKey(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// BookingLifecycle orchestrates the create / pay / cancel state machine and
// is the only component that mutates a booking's status. Every step that
// mutates shared state is compensated when a later step fails, except the
// point award after a successful payment, which is deliberately non-fatal.
type BookingLifecycle struct {
	store     lifecycleStore
	inventory roomInventory
	overlap   overlapChecker
	ledger    pointsLedger
	payments  paymentProcessor
	publisher lifecyclePublisher
	cache     idempotencyCache
	cfg       config.BusinessConfig
	logger    *zap.Logger
}

// NewBookingLifecycle creates the booking lifecycle orchestrator
func NewBookingLifecycle(
	st *store.Store,
	inventory *RoomInventory,
	overlap *OverlapValidator,
	ledger *LoyaltyLedger,
	payments *PaymentService,
	publisher lifecyclePublisher,
	cache *redisclient.Client,
	cfg config.BusinessConfig,
) *BookingLifecycle {
	return &BookingLifecycle{
		store:     st,
		inventory: inventory,
		overlap:   overlap,
		ledger:    ledger,
		payments:  payments,
		publisher: publisher,
		cache:     cache,
		cfg:       cfg,
		logger:    util.GetLogger(),
	}
}

// CreateBookingRequest is the booking creation payload
type CreateBookingRequest struct {
	HotelID        int64  `json:"hotel_id" binding:"required"`
	CheckInDate    string `json:"check_in_date" binding:"required"`
	CheckOutDate   string `json:"check_out_date" binding:"required"`
	NumberOfGuests int    `json:"number_of_guests" binding:"required"`
	GuestName      string `json:"guest_name"`
	GuestEmail     string `json:"guest_email"`
	PointsToRedeem int    `json:"points_to_redeem,omitempty"`
	IdempotencyKey string `json:"idempotency_key,omitempty"`
}

// BookingResponse is the booking projection returned to clients
type BookingResponse struct {
	Booking             *models.Booking `json:"booking"`
	PaymentRequired     bool            `json:"payment_required"`
	LoyaltyPointsEarned int             `json:"loyalty_points_earned,omitempty"`
}

// PaymentRequest is the payment payload for a booking
type PaymentRequest struct {
	Amount         float64 `json:"amount,omitempty"`
	Currency       string  `json:"currency,omitempty"`
	PaymentMethod  string  `json:"payment_method" binding:"required"`
	CardNumber     string  `json:"card_number,omitempty"`
	CardHolderName string  `json:"card_holder_name,omitempty"`
	ExpiryMonth    int     `json:"expiry_month,omitempty"`
	ExpiryYear     int     `json:"expiry_year,omitempty"`
	CVV            string  `json:"cvv,omitempty"`
}

// PaymentResponse reports the outcome of a payment attempt
type PaymentResponse struct {
	PaymentID     int64      `json:"payment_id"`
	Status        string     `json:"status"`
	TransactionID string     `json:"transaction_id,omitempty"`
	Amount        float64    `json:"amount"`
	Currency      string     `json:"currency"`
	ErrorMessage  string     `json:"error_message,omitempty"`
	ProcessedAt   *time.Time `json:"processed_at,omitempty"`
}

// CancelResponse reports the outcome of a cancellation. Status and
// TransactionID are set only when a refund was issued.
type CancelResponse struct {
	Status        string `json:"status,omitempty"`
	TransactionID string `json:"transaction_id,omitempty"`
}

// Create validates the request, reserves a room, applies an optional points
// redemption, and persists the booking. Redemption failure after the room
// was reserved releases the room before the error surfaces.
func (bl *BookingLifecycle) Create(ctx context.Context, req *CreateBookingRequest, userID *int64) (*BookingResponse, error) {
	ctx, span := util.StartSpan(ctx, "BookingLifecycle.Create")
	defer span.End()

	if req.IdempotencyKey == "" {
		req.IdempotencyKey = uuid.New().String()
	}

	if existing, err := bl.findExisting(ctx, req.IdempotencyKey); err != nil {
		return nil, err
	} else if existing != nil {
		bl.logger.Info("Duplicate booking request detected",
			zap.String("idempotency_key", req.IdempotencyKey),
			zap.Int64("booking_id", existing.ID))
		return bl.projection(ctx, existing)
	}

	checkIn, checkOut, err := bl.validate(req, userID)
	if err != nil {
		util.BookingsFailedTotal.WithLabelValues("validation").Inc()
		return nil, err
	}

	hotel, err := bl.store.GetHotelByID(ctx, req.HotelID)
	if err != nil {
		return nil, err
	}

	conflict, err := bl.overlap.HasOverlap(ctx, req.HotelID, checkIn, checkOut, 0)
	if err != nil {
		return nil, fmt.Errorf("overlap check failed: %w", err)
	}
	if conflict {
		util.BookingsFailedTotal.WithLabelValues("conflict").Inc()
		return nil, fmt.Errorf("%w: hotel=%d %s..%s",
			models.ErrBookingConflict, req.HotelID, req.CheckInDate, req.CheckOutDate)
	}

	if err := bl.inventory.Reserve(ctx, req.HotelID); err != nil {
		if errors.Is(err, models.ErrCapacityExceeded) {
			util.BookingsFailedTotal.WithLabelValues("capacity").Inc()
		}
		return nil, err
	}

	nights := int(checkOut.Sub(checkIn).Hours() / 24)
	baseAmount := float64(nights) * hotel.PricePerNight

	var pointsRedeemed int
	var discount float64
	if req.PointsToRedeem > 0 {
		if userID == nil {
			bl.releaseRoom(ctx, req.HotelID)
			return nil, fmt.Errorf("%w: guests cannot redeem points", models.ErrValidation)
		}

		redemption, err := bl.ledger.Redeem(ctx, *userID, req.PointsToRedeem)
		if err != nil {
			// Compensate the reservation made above before surfacing the error.
			bl.releaseRoom(ctx, req.HotelID)
			util.BookingsFailedTotal.WithLabelValues("redemption").Inc()
			return nil, err
		}
		pointsRedeemed = redemption.PointsRedeemed
		discount = redemption.DiscountAmount
	}

	totalAmount := baseAmount - discount
	if totalAmount < 0 {
		totalAmount = 0
	}

	booking := &models.Booking{
		HotelID:               req.HotelID,
		UserID:                userID,
		GuestName:             req.GuestName,
		GuestEmail:            req.GuestEmail,
		CheckIn:               checkIn,
		CheckOut:              checkOut,
		NumberOfGuests:        req.NumberOfGuests,
		TotalAmount:           totalAmount,
		LoyaltyPointsRedeemed: pointsRedeemed,
		LoyaltyDiscountAmount: discount,
		Status:                models.BookingStatusConfirmed,
		IdempotencyKey:        req.IdempotencyKey,
	}

	if err := bl.store.CreateBooking(ctx, booking); err != nil {
		bl.releaseRoom(ctx, req.HotelID)
		if pointsRedeemed > 0 && userID != nil {
			if rerr := bl.ledger.RefundRedeemedPoints(ctx, *userID, nil, pointsRedeemed); rerr != nil {
				bl.logger.Error("Failed to refund points after create failure",
					zap.Int64("user_id", *userID),
					zap.Error(rerr))
			}
		}
		util.BookingsFailedTotal.WithLabelValues("db_error").Inc()
		return nil, fmt.Errorf("failed to create booking: %w", err)
	}

	util.BookingsCreatedTotal.Inc()
	bl.logger.Info("Booking created",
		zap.Int64("booking_id", booking.ID),
		zap.Int64("hotel_id", booking.HotelID),
		zap.Float64("total_amount", booking.TotalAmount))

	if err := bl.cache.SetIdempotencyKey(ctx, req.IdempotencyKey, strconv.FormatInt(booking.ID, 10), 24*time.Hour); err != nil {
		bl.logger.Warn("Failed to cache idempotency key", zap.Error(err))
	}

	event := &models.BookingCreatedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeBookingCreated,
			Timestamp: time.Now(),
		},
		BookingID:      booking.ID,
		HotelID:        booking.HotelID,
		UserID:         booking.UserID,
		GuestEmail:     booking.GuestEmail,
		CheckIn:        booking.CheckIn,
		CheckOut:       booking.CheckOut,
		TotalAmount:    booking.TotalAmount,
		PointsRedeemed: booking.LoyaltyPointsRedeemed,
	}
	if err := bl.publisher.PublishBookingCreated(ctx, event); err != nil {
		bl.logger.Error("Failed to publish BookingCreated event", zap.Error(err))
	}

	return &BookingResponse{
		Booking:             booking,
		PaymentRequired:     true,
		LoyaltyPointsEarned: bl.ledger.CalculatePoints(booking.TotalAmount),
	}, nil
}

// ProcessPayment charges the booking. On a completed payment the booking
// stays confirmed and points are awarded (award failure is logged, never
// surfaced). On a declined payment the room is released and the booking is
// cancelled.
func (bl *BookingLifecycle) ProcessPayment(ctx context.Context, bookingID int64, req *PaymentRequest, userID *int64, role string) (*PaymentResponse, error) {
	ctx, span := util.StartSpan(ctx, "BookingLifecycle.ProcessPayment")
	defer span.End()

	booking, err := bl.store.GetBookingByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	if err := authorize(booking, userID, role); err != nil {
		return nil, err
	}

	switch booking.Status {
	case models.BookingStatusCancelled:
		return nil, fmt.Errorf("%w: cannot pay for booking %d", models.ErrBookingCancelled, bookingID)
	case models.BookingStatusCompleted:
		return nil, fmt.Errorf("%w: booking %d is completed", models.ErrValidation, bookingID)
	}

	if existing, err := bl.payments.CompletedPayment(ctx, bookingID); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, fmt.Errorf("%w: booking=%d", models.ErrAlreadyPaid, bookingID)
	}

	// Tolerate sub-cent drift from clients echoing a rounded total.
	if req.Amount != 0 && math.Abs(req.Amount-booking.TotalAmount) >= 0.01 {
		return nil, fmt.Errorf("%w: amount %.2f does not match booking total %.2f",
			models.ErrValidation, req.Amount, booking.TotalAmount)
	}

	card := gateway.CardDetails{
		Number:      req.CardNumber,
		HolderName:  req.CardHolderName,
		ExpiryMonth: req.ExpiryMonth,
		ExpiryYear:  req.ExpiryYear,
		CVV:         req.CVV,
	}

	payment, err := bl.payments.Process(ctx, booking, req.PaymentMethod, card)
	if err != nil {
		if payment != nil && errors.Is(err, models.ErrPaymentDeclined) {
			bl.compensateFailedPayment(ctx, booking, payment)
			return paymentResponse(payment), err
		}
		return nil, err
	}

	pointsEarned := 0
	if booking.UserID != nil {
		points, aerr := bl.ledger.Award(ctx, *booking.UserID, booking.ID, booking.TotalAmount)
		if aerr != nil {
			// Payment success is the primary contract; a failed award must not
			// undo it.
			bl.logger.Error("Failed to award loyalty points",
				zap.Int64("booking_id", booking.ID),
				zap.Int64("user_id", *booking.UserID),
				zap.Error(aerr))
		} else {
			pointsEarned = points
		}
	}

	event := &models.BookingConfirmedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeBookingConfirmed,
			Timestamp: time.Now(),
		},
		BookingID:    booking.ID,
		HotelID:      booking.HotelID,
		GuestEmail:   booking.GuestEmail,
		PointsEarned: pointsEarned,
	}
	if err := bl.publisher.PublishBookingConfirmed(ctx, event); err != nil {
		bl.logger.Error("Failed to publish BookingConfirmed event", zap.Error(err))
	}

	return paymentResponse(payment), nil
}

// compensateFailedPayment cancels the booking and releases the room after a
// declined charge. The conditional status transition decides the winner when
// a user cancellation races this path, so the room is released exactly once.
func (bl *BookingLifecycle) compensateFailedPayment(ctx context.Context, booking *models.Booking, payment *models.Payment) {
	cancelled, err := bl.store.CancelBooking(ctx, booking.ID)
	if err != nil {
		bl.logger.Error("Failed to cancel booking after payment failure",
			zap.Int64("booking_id", booking.ID),
			zap.Error(err))
		return
	}
	if !cancelled {
		return
	}

	bl.releaseRoom(ctx, booking.HotelID)
	util.BookingsCancelledTotal.Inc()

	event := &models.BookingCancelledEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeBookingCancelled,
			Timestamp: time.Now(),
		},
		BookingID:  booking.ID,
		HotelID:    booking.HotelID,
		GuestEmail: booking.GuestEmail,
		Reason:     "payment_failed",
	}
	if err := bl.publisher.PublishBookingCancelled(ctx, event); err != nil {
		bl.logger.Error("Failed to publish BookingCancelled event", zap.Error(err))
	}
}

// Cancel refunds the completed payment if one exists, then cancels the
// booking, releases the room, refunds redeemed points, and revokes earned
// points. A failed refund aborts the whole cancellation: the booking keeps
// its prior state rather than risk losing the charge.
func (bl *BookingLifecycle) Cancel(ctx context.Context, bookingID int64, userID *int64, role string) (*CancelResponse, error) {
	ctx, span := util.StartSpan(ctx, "BookingLifecycle.Cancel")
	defer span.End()

	booking, err := bl.store.GetBookingByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	if err := authorize(booking, userID, role); err != nil {
		return nil, err
	}

	switch booking.Status {
	case models.BookingStatusCancelled:
		return nil, fmt.Errorf("%w: booking %d already cancelled", models.ErrBookingCancelled, bookingID)
	case models.BookingStatusCompleted:
		return nil, fmt.Errorf("%w: booking %d is completed", models.ErrValidation, bookingID)
	}

	completed, err := bl.payments.CompletedPayment(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	var refund *gateway.Result
	if completed != nil {
		refund, err = bl.payments.Refund(ctx, completed)
		if err != nil {
			return nil, err
		}
	}

	// Conditional transition: a concurrent cancellation that also read the
	// booking as confirmed loses here and mutates nothing further.
	cancelled, err := bl.store.CancelBooking(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("failed to cancel booking: %w", err)
	}
	if !cancelled {
		return nil, fmt.Errorf("%w: booking %d already cancelled", models.ErrBookingCancelled, bookingID)
	}
	util.BookingsCancelledTotal.Inc()

	bl.releaseRoom(ctx, booking.HotelID)

	if booking.UserID != nil {
		if booking.LoyaltyPointsRedeemed > 0 {
			if err := bl.ledger.RefundRedeemedPoints(ctx, *booking.UserID, &booking.ID, booking.LoyaltyPointsRedeemed); err != nil {
				bl.logger.Error("Failed to refund redeemed points",
					zap.Int64("booking_id", bookingID),
					zap.Error(err))
			}
		}
		if completed != nil {
			if _, err := bl.ledger.RevokeEarnedPoints(ctx, *booking.UserID, booking.ID); err != nil {
				bl.logger.Error("Failed to revoke earned points",
					zap.Int64("booking_id", bookingID),
					zap.Error(err))
			}
		}
	}

	event := &models.BookingCancelledEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeBookingCancelled,
			Timestamp: time.Now(),
		},
		BookingID:  booking.ID,
		HotelID:    booking.HotelID,
		GuestEmail: booking.GuestEmail,
		Reason:     "user_cancelled",
	}
	if err := bl.publisher.PublishBookingCancelled(ctx, event); err != nil {
		bl.logger.Error("Failed to publish BookingCancelled event", zap.Error(err))
	}

	bl.logger.Info("Booking cancelled", zap.Int64("booking_id", bookingID))

	resp := &CancelResponse{}
	if refund != nil {
		resp.Status = models.PaymentStatusRefunded
		resp.TransactionID = refund.TransactionID
	}
	return resp, nil
}

// GetBooking returns the booking projection for its owner or an admin
func (bl *BookingLifecycle) GetBooking(ctx context.Context, bookingID int64, userID *int64, role string) (*BookingResponse, error) {
	booking, err := bl.store.GetBookingByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if err := authorize(booking, userID, role); err != nil {
		return nil, err
	}
	return bl.projection(ctx, booking)
}

// ListBookings returns the authenticated user's bookings
func (bl *BookingLifecycle) ListBookings(ctx context.Context, userID int64) ([]models.Booking, error) {
	return bl.store.GetBookingsByUserID(ctx, userID)
}

func (bl *BookingLifecycle) findExisting(ctx context.Context, key string) (*models.Booking, error) {
	// Fast path via Redis; the unique key on the bookings table is the
	// authoritative check.
	if cached, err := bl.cache.GetIdempotencyKey(ctx, key); err != nil {
		bl.logger.Warn("Idempotency cache lookup failed", zap.Error(err))
	} else if cached != "" {
		if id, perr := strconv.ParseInt(cached, 10, 64); perr == nil {
			booking, gerr := bl.store.GetBookingByID(ctx, id)
			if gerr == nil {
				return booking, nil
			}
		}
	}

	booking, err := bl.store.GetBookingByIdempotencyKey(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to check idempotency: %w", err)
	}
	return booking, nil
}

func (bl *BookingLifecycle) projection(ctx context.Context, booking *models.Booking) (*BookingResponse, error) {
	paymentRequired := false
	if booking.Status == models.BookingStatusConfirmed {
		completed, err := bl.payments.CompletedPayment(ctx, booking.ID)
		if err != nil {
			return nil, err
		}
		paymentRequired = completed == nil
	}

	resp := &BookingResponse{
		Booking:         booking,
		PaymentRequired: paymentRequired,
	}
	if paymentRequired {
		resp.LoyaltyPointsEarned = bl.ledger.CalculatePoints(booking.TotalAmount)
	}
	return resp, nil
}

func (bl *BookingLifecycle) validate(req *CreateBookingRequest, userID *int64) (checkIn, checkOut time.Time, err error) {
	checkIn, err = time.Parse(dateLayout, req.CheckInDate)
	if err != nil {
		return checkIn, checkOut, fmt.Errorf("%w: invalid check-in date %q", models.ErrValidation, req.CheckInDate)
	}
	checkOut, err = time.Parse(dateLayout, req.CheckOutDate)
	if err != nil {
		return checkIn, checkOut, fmt.Errorf("%w: invalid check-out date %q", models.ErrValidation, req.CheckOutDate)
	}

	if !checkOut.After(checkIn) {
		return checkIn, checkOut, fmt.Errorf("%w: check-out must be after check-in", models.ErrValidation)
	}

	today := time.Now().UTC().Truncate(24 * time.Hour)
	if checkIn.Before(today) {
		return checkIn, checkOut, fmt.Errorf("%w: check-in date is in the past", models.ErrValidation)
	}

	if req.NumberOfGuests < 1 || req.NumberOfGuests > bl.cfg.MaxGuests {
		return checkIn, checkOut, fmt.Errorf("%w: number of guests must be between 1 and %d",
			models.ErrValidation, bl.cfg.MaxGuests)
	}

	if strings.TrimSpace(req.GuestName) == "" || strings.TrimSpace(req.GuestEmail) == "" {
		return checkIn, checkOut, fmt.Errorf("%w: guest name and email are required", models.ErrValidation)
	}

	return checkIn, checkOut, nil
}

func (bl *BookingLifecycle) releaseRoom(ctx context.Context, hotelID int64) {
	if err := bl.inventory.Release(ctx, hotelID); err != nil {
		bl.logger.Error("Failed to release room",
			zap.Int64("hotel_id", hotelID),
			zap.Error(err))
	}
}

// authorize enforces ownership: a booking tied to a user account is only
// visible to that user or an admin. Guest bookings carry no owner.
func authorize(booking *models.Booking, userID *int64, role string) error {
	if booking.UserID == nil || role == models.RoleAdmin {
		return nil
	}
	if userID == nil {
		return fmt.Errorf("%w: booking %d", models.ErrUnauthorized, booking.ID)
	}
	if *userID != *booking.UserID {
		return fmt.Errorf("%w: booking %d", models.ErrForbidden, booking.ID)
	}
	return nil
}

func paymentResponse(p *models.Payment) *PaymentResponse {
	return &PaymentResponse{
		PaymentID:     p.ID,
		Status:        p.Status,
		TransactionID: p.TransactionID,
		Amount:        p.Amount,
		Currency:      p.Currency,
		ErrorMessage:  p.ErrorMessage,
		ProcessedAt:   p.ProcessedAt,
	}
}
