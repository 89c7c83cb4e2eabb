package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"hotel-booking-service/config"
	"hotel-booking-service/internal/gateway"
	"hotel-booking-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeLifecycleStore struct {
	hotel         *models.Hotel
	bookings      map[int64]*models.Booking
	byKey         map[string]*models.Booking
	createErr     error
	nextID        int64
	statusUpdates map[int64]string
	cancelRace    bool
}

func newFakeLifecycleStore(hotel *models.Hotel) *fakeLifecycleStore {
	return &fakeLifecycleStore{
		hotel:         hotel,
		bookings:      map[int64]*models.Booking{},
		byKey:         map[string]*models.Booking{},
		nextID:        100,
		statusUpdates: map[int64]string{},
	}
}

func (f *fakeLifecycleStore) GetHotelByID(ctx context.Context, id int64) (*models.Hotel, error) {
	if f.hotel == nil || f.hotel.ID != id {
		return nil, fmt.Errorf("%w: id=%d", models.ErrHotelNotFound, id)
	}
	return f.hotel, nil
}

func (f *fakeLifecycleStore) CreateBooking(ctx context.Context, booking *models.Booking) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.nextID++
	booking.ID = f.nextID
	booking.CreatedAt = time.Now()
	booking.UpdatedAt = booking.CreatedAt
	f.bookings[booking.ID] = booking
	f.byKey[booking.IdempotencyKey] = booking
	return nil
}

func (f *fakeLifecycleStore) GetBookingByID(ctx context.Context, id int64) (*models.Booking, error) {
	b, ok := f.bookings[id]
	if !ok {
		return nil, fmt.Errorf("%w: id=%d", models.ErrBookingNotFound, id)
	}
	return b, nil
}

func (f *fakeLifecycleStore) GetBookingByIdempotencyKey(ctx context.Context, key string) (*models.Booking, error) {
	return f.byKey[key], nil
}

func (f *fakeLifecycleStore) GetBookingsByUserID(ctx context.Context, userID int64) ([]models.Booking, error) {
	var out []models.Booking
	for _, b := range f.bookings {
		if b.UserID != nil && *b.UserID == userID {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (f *fakeLifecycleStore) CancelBooking(ctx context.Context, bookingID int64) (bool, error) {
	if f.cancelRace {
		return false, nil
	}
	b, ok := f.bookings[bookingID]
	if !ok || b.Status != models.BookingStatusConfirmed {
		return false, nil
	}
	b.Status = models.BookingStatusCancelled
	f.statusUpdates[bookingID] = models.BookingStatusCancelled
	return true, nil
}

type fakeRoomInventory struct {
	reserveErr error
	reserved   int
	released   int
}

func (f *fakeRoomInventory) Reserve(ctx context.Context, hotelID int64) error {
	if f.reserveErr != nil {
		return f.reserveErr
	}
	f.reserved++
	return nil
}

func (f *fakeRoomInventory) Release(ctx context.Context, hotelID int64) error {
	f.released++
	return nil
}

type fakeOverlapChecker struct {
	overlap bool
	err     error
}

func (f *fakeOverlapChecker) HasOverlap(ctx context.Context, hotelID int64, checkIn, checkOut time.Time, excludeBookingID int64) (bool, error) {
	return f.overlap, f.err
}

type fakePointsLedger struct {
	redeemErr       error
	awardErr        error
	awardPoints     int
	refundErr       error
	refundCalls     int
	refundBookingID *int64
	refundPoints    int
	revokeCalls     int
}

func (f *fakePointsLedger) CalculatePoints(amount float64) int {
	if amount < 50 {
		return 0
	}
	return int(amount * 0.10)
}

func (f *fakePointsLedger) Redeem(ctx context.Context, userID int64, points int) (*RedemptionResult, error) {
	if f.redeemErr != nil {
		return nil, f.redeemErr
	}
	return &RedemptionResult{PointsRedeemed: points, DiscountAmount: float64(points)}, nil
}

func (f *fakePointsLedger) Award(ctx context.Context, userID, bookingID int64, amount float64) (int, error) {
	if f.awardErr != nil {
		return 0, f.awardErr
	}
	if f.awardPoints > 0 {
		return f.awardPoints, nil
	}
	return f.CalculatePoints(amount), nil
}

func (f *fakePointsLedger) RefundRedeemedPoints(ctx context.Context, userID int64, bookingID *int64, points int) error {
	if f.refundErr != nil {
		return f.refundErr
	}
	f.refundCalls++
	f.refundBookingID = bookingID
	f.refundPoints = points
	return nil
}

func (f *fakePointsLedger) RevokeEarnedPoints(ctx context.Context, userID, bookingID int64) (int, error) {
	f.revokeCalls++
	return 0, nil
}

type fakePaymentProcessor struct {
	processPayment *models.Payment
	processErr     error
	refundResult   *gateway.Result
	refundErr      error
	completed      *models.Payment
	processCalls   int
}

func (f *fakePaymentProcessor) Process(ctx context.Context, booking *models.Booking, method string, card gateway.CardDetails) (*models.Payment, error) {
	f.processCalls++
	return f.processPayment, f.processErr
}

func (f *fakePaymentProcessor) Refund(ctx context.Context, payment *models.Payment) (*gateway.Result, error) {
	return f.refundResult, f.refundErr
}

func (f *fakePaymentProcessor) CompletedPayment(ctx context.Context, bookingID int64) (*models.Payment, error) {
	return f.completed, nil
}

type fakeLifecyclePublisher struct {
	created          int
	confirmed        int
	cancelled        int
	lastCancelReason string
}

func (f *fakeLifecyclePublisher) PublishBookingCreated(ctx context.Context, event *models.BookingCreatedEvent) error {
	f.created++
	return nil
}

func (f *fakeLifecyclePublisher) PublishBookingConfirmed(ctx context.Context, event *models.BookingConfirmedEvent) error {
	f.confirmed++
	return nil
}

func (f *fakeLifecyclePublisher) PublishBookingCancelled(ctx context.Context, event *models.BookingCancelledEvent) error {
	f.cancelled++
	f.lastCancelReason = event.Reason
	return nil
}

type fakeIdempotencyCache struct {
	values map[string]string
}

func (f *fakeIdempotencyCache) GetIdempotencyKey(ctx context.Context, key string) (string, error) {
	if f.values == nil {
		return "", nil
	}
	return f.values[key], nil
}

func (f *fakeIdempotencyCache) SetIdempotencyKey(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if f.values == nil {
		f.values = map[string]string{}
	}
	f.values[key] = fmt.Sprintf("%v", value)
	return nil
}

type lifecycleFixture struct {
	lifecycle *BookingLifecycle
	store     *fakeLifecycleStore
	inventory *fakeRoomInventory
	overlap   *fakeOverlapChecker
	ledger    *fakePointsLedger
	payments  *fakePaymentProcessor
	publisher *fakeLifecyclePublisher
}

func newLifecycleFixture() *lifecycleFixture {
	st := newFakeLifecycleStore(&models.Hotel{ID: 1, Name: "Grand Plaza", PricePerNight: 100, AvailableRooms: 5})
	inventory := &fakeRoomInventory{}
	overlap := &fakeOverlapChecker{}
	ledger := &fakePointsLedger{}
	payments := &fakePaymentProcessor{}
	publisher := &fakeLifecyclePublisher{}

	return &lifecycleFixture{
		lifecycle: &BookingLifecycle{
			store:     st,
			inventory: inventory,
			overlap:   overlap,
			ledger:    ledger,
			payments:  payments,
			publisher: publisher,
			cache:     &fakeIdempotencyCache{},
			cfg:       config.BusinessConfig{Currency: "INR", MaxGuests: 10},
			logger:    zap.NewNop(),
		},
		store:     st,
		inventory: inventory,
		overlap:   overlap,
		ledger:    ledger,
		payments:  payments,
		publisher: publisher,
	}
}

func futureDate(daysAhead int) string {
	return time.Now().UTC().AddDate(0, 0, daysAhead).Format("2006-01-02")
}

func validRequest() *CreateBookingRequest {
	return &CreateBookingRequest{
		HotelID:        1,
		CheckInDate:    futureDate(7),
		CheckOutDate:   futureDate(10),
		NumberOfGuests: 2,
		GuestName:      "Asha Rao",
		GuestEmail:     "asha@example.com",
	}
}

func TestCreateValidationLeavesNoSideEffects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*CreateBookingRequest)
	}{
		{"check-out before check-in", func(r *CreateBookingRequest) {
			r.CheckInDate = futureDate(10)
			r.CheckOutDate = futureDate(7)
		}},
		{"check-out equals check-in", func(r *CreateBookingRequest) {
			r.CheckOutDate = r.CheckInDate
		}},
		{"check-in in the past", func(r *CreateBookingRequest) {
			r.CheckInDate = futureDate(-3)
		}},
		{"zero guests", func(r *CreateBookingRequest) { r.NumberOfGuests = 0 }},
		{"too many guests", func(r *CreateBookingRequest) { r.NumberOfGuests = 11 }},
		{"missing guest name", func(r *CreateBookingRequest) { r.GuestName = "  " }},
		{"missing guest email", func(r *CreateBookingRequest) { r.GuestEmail = "" }},
		{"unparseable date", func(r *CreateBookingRequest) { r.CheckInDate = "next tuesday" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := newLifecycleFixture()
			req := validRequest()
			tt.mutate(req)

			_, err := fx.lifecycle.Create(context.Background(), req, nil)
			assert.ErrorIs(t, err, models.ErrValidation)
			assert.Zero(t, fx.inventory.reserved)
			assert.Empty(t, fx.store.bookings)
		})
	}
}

func TestCreateRejectsOverlap(t *testing.T) {
	fx := newLifecycleFixture()
	fx.overlap.overlap = true

	_, err := fx.lifecycle.Create(context.Background(), validRequest(), nil)
	assert.ErrorIs(t, err, models.ErrBookingConflict)
	assert.Zero(t, fx.inventory.reserved)
}

func TestCreateSoldOut(t *testing.T) {
	fx := newLifecycleFixture()
	fx.inventory.reserveErr = models.ErrCapacityExceeded

	_, err := fx.lifecycle.Create(context.Background(), validRequest(), nil)
	assert.ErrorIs(t, err, models.ErrCapacityExceeded)
	assert.Empty(t, fx.store.bookings)
}

func TestCreateGuestBooking(t *testing.T) {
	fx := newLifecycleFixture()

	resp, err := fx.lifecycle.Create(context.Background(), validRequest(), nil)
	require.NoError(t, err)

	// 3 nights at 100 per night.
	assert.Equal(t, 300.0, resp.Booking.TotalAmount)
	assert.Equal(t, models.BookingStatusConfirmed, resp.Booking.Status)
	assert.Nil(t, resp.Booking.UserID)
	assert.True(t, resp.PaymentRequired)
	assert.Equal(t, 30, resp.LoyaltyPointsEarned)
	assert.Equal(t, 1, fx.inventory.reserved)
	assert.Equal(t, 1, fx.publisher.created)
}

func TestCreateRedemptionFailureReleasesRoom(t *testing.T) {
	fx := newLifecycleFixture()
	fx.ledger.redeemErr = models.ErrInsufficientPoints
	userID := int64(42)

	req := validRequest()
	req.PointsToRedeem = 500

	_, err := fx.lifecycle.Create(context.Background(), req, &userID)
	assert.ErrorIs(t, err, models.ErrInsufficientPoints)
	assert.Equal(t, 1, fx.inventory.reserved)
	assert.Equal(t, 1, fx.inventory.released)
	assert.Empty(t, fx.store.bookings)
}

func TestCreateGuestCannotRedeem(t *testing.T) {
	fx := newLifecycleFixture()

	req := validRequest()
	req.PointsToRedeem = 100

	_, err := fx.lifecycle.Create(context.Background(), req, nil)
	assert.ErrorIs(t, err, models.ErrValidation)
	assert.Equal(t, fx.inventory.reserved, fx.inventory.released)
}

func TestCreateTotalNeverNegative(t *testing.T) {
	fx := newLifecycleFixture()
	userID := int64(42)

	// Discount 500 against a 300 total.
	req := validRequest()
	req.PointsToRedeem = 500

	resp, err := fx.lifecycle.Create(context.Background(), req, &userID)
	require.NoError(t, err)
	assert.Equal(t, 0.0, resp.Booking.TotalAmount)
	assert.Equal(t, 500, resp.Booking.LoyaltyPointsRedeemed)
}

func TestCreatePersistFailureCompensates(t *testing.T) {
	fx := newLifecycleFixture()
	fx.store.createErr = errors.New("connection reset")
	userID := int64(42)

	req := validRequest()
	req.PointsToRedeem = 100

	_, err := fx.lifecycle.Create(context.Background(), req, &userID)
	require.Error(t, err)
	assert.Equal(t, 1, fx.inventory.released)
	assert.Equal(t, 1, fx.ledger.refundCalls)
	assert.Nil(t, fx.ledger.refundBookingID)
	assert.Equal(t, 100, fx.ledger.refundPoints)
}

func TestCreateIdempotencyReturnsExisting(t *testing.T) {
	fx := newLifecycleFixture()

	req := validRequest()
	req.IdempotencyKey = "retry-key-1"

	first, err := fx.lifecycle.Create(context.Background(), req, nil)
	require.NoError(t, err)

	second, err := fx.lifecycle.Create(context.Background(), req, nil)
	require.NoError(t, err)

	assert.Equal(t, first.Booking.ID, second.Booking.ID)
	assert.Equal(t, 1, fx.inventory.reserved)
	assert.Len(t, fx.store.bookings, 1)
}

func paidFixture(t *testing.T, userID *int64) (*lifecycleFixture, *models.Booking) {
	t.Helper()
	fx := newLifecycleFixture()

	resp, err := fx.lifecycle.Create(context.Background(), validRequest(), userID)
	require.NoError(t, err)
	return fx, resp.Booking
}

func TestProcessPaymentSuccess(t *testing.T) {
	userID := int64(42)
	fx, booking := paidFixture(t, &userID)

	now := time.Now()
	fx.payments.processPayment = &models.Payment{
		ID:            1,
		BookingID:     booking.ID,
		Amount:        booking.TotalAmount,
		Currency:      "INR",
		Status:        models.PaymentStatusCompleted,
		TransactionID: "TXN-abc12345",
		ProcessedAt:   &now,
	}

	resp, err := fx.lifecycle.ProcessPayment(context.Background(), booking.ID,
		&PaymentRequest{PaymentMethod: "card"}, &userID, models.RoleUser)
	require.NoError(t, err)

	assert.Equal(t, models.PaymentStatusCompleted, resp.Status)
	assert.Equal(t, "TXN-abc12345", resp.TransactionID)
	assert.Equal(t, 1, fx.publisher.confirmed)
	assert.Equal(t, models.BookingStatusConfirmed, booking.Status)
	assert.Zero(t, fx.inventory.released)
}

func TestProcessPaymentAwardFailureDoesNotFailPayment(t *testing.T) {
	userID := int64(42)
	fx, booking := paidFixture(t, &userID)

	fx.payments.processPayment = &models.Payment{
		ID: 1, BookingID: booking.ID, Status: models.PaymentStatusCompleted,
	}
	fx.ledger.awardErr = errors.New("ledger unavailable")

	resp, err := fx.lifecycle.ProcessPayment(context.Background(), booking.ID,
		&PaymentRequest{PaymentMethod: "card"}, &userID, models.RoleUser)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusCompleted, resp.Status)
	assert.Equal(t, 1, fx.publisher.confirmed)
}

func TestProcessPaymentDeclinedCancelsBooking(t *testing.T) {
	fx, booking := paidFixture(t, nil)

	failed := &models.Payment{
		ID:           1,
		BookingID:    booking.ID,
		Status:       models.PaymentStatusFailed,
		ErrorMessage: "card_declined",
	}
	fx.payments.processPayment = failed
	fx.payments.processErr = fmt.Errorf("%w: card_declined", models.ErrPaymentDeclined)

	resp, err := fx.lifecycle.ProcessPayment(context.Background(), booking.ID,
		&PaymentRequest{PaymentMethod: "card"}, nil, "")
	assert.ErrorIs(t, err, models.ErrPaymentDeclined)
	require.NotNil(t, resp)
	assert.Equal(t, models.PaymentStatusFailed, resp.Status)

	assert.Equal(t, 1, fx.inventory.released)
	assert.Equal(t, models.BookingStatusCancelled, fx.store.statusUpdates[booking.ID])
	assert.Equal(t, "payment_failed", fx.publisher.lastCancelReason)
}

func TestProcessPaymentRejectsDoublePay(t *testing.T) {
	fx, booking := paidFixture(t, nil)
	fx.payments.completed = &models.Payment{ID: 1, BookingID: booking.ID, Status: models.PaymentStatusCompleted}

	_, err := fx.lifecycle.ProcessPayment(context.Background(), booking.ID,
		&PaymentRequest{PaymentMethod: "card"}, nil, "")
	assert.ErrorIs(t, err, models.ErrAlreadyPaid)
	assert.Zero(t, fx.payments.processCalls)
}

func TestProcessPaymentRejectsCancelledBooking(t *testing.T) {
	fx, booking := paidFixture(t, nil)
	booking.Status = models.BookingStatusCancelled

	_, err := fx.lifecycle.ProcessPayment(context.Background(), booking.ID,
		&PaymentRequest{PaymentMethod: "card"}, nil, "")
	assert.ErrorIs(t, err, models.ErrBookingCancelled)
}

func TestProcessPaymentRejectsAmountMismatch(t *testing.T) {
	fx, booking := paidFixture(t, nil)

	_, err := fx.lifecycle.ProcessPayment(context.Background(), booking.ID,
		&PaymentRequest{PaymentMethod: "card", Amount: booking.TotalAmount + 1}, nil, "")
	assert.ErrorIs(t, err, models.ErrValidation)
	assert.Zero(t, fx.payments.processCalls)
}

func TestProcessPaymentAcceptsSubCentAmountDrift(t *testing.T) {
	fx, booking := paidFixture(t, nil)
	fx.payments.processPayment = &models.Payment{
		ID: 1, BookingID: booking.ID, Status: models.PaymentStatusCompleted,
	}

	// A client echoing a decimal-rounded total must not be rejected.
	_, err := fx.lifecycle.ProcessPayment(context.Background(), booking.ID,
		&PaymentRequest{PaymentMethod: "card", Amount: booking.TotalAmount + 0.004}, nil, "")
	assert.NoError(t, err)
	assert.Equal(t, 1, fx.payments.processCalls)
}

func TestProcessPaymentOwnership(t *testing.T) {
	owner := int64(42)
	fx, booking := paidFixture(t, &owner)
	fx.payments.processPayment = &models.Payment{ID: 1, BookingID: booking.ID, Status: models.PaymentStatusCompleted}

	other := int64(99)
	_, err := fx.lifecycle.ProcessPayment(context.Background(), booking.ID,
		&PaymentRequest{PaymentMethod: "card"}, &other, models.RoleUser)
	assert.ErrorIs(t, err, models.ErrForbidden)

	_, err = fx.lifecycle.ProcessPayment(context.Background(), booking.ID,
		&PaymentRequest{PaymentMethod: "card"}, nil, "")
	assert.ErrorIs(t, err, models.ErrUnauthorized)

	// Admins act on any booking.
	_, err = fx.lifecycle.ProcessPayment(context.Background(), booking.ID,
		&PaymentRequest{PaymentMethod: "card"}, &other, models.RoleAdmin)
	assert.NoError(t, err)
}

func TestCancelUnpaidBooking(t *testing.T) {
	fx, booking := paidFixture(t, nil)

	resp, err := fx.lifecycle.Cancel(context.Background(), booking.ID, nil, "")
	require.NoError(t, err)
	assert.Empty(t, resp.Status)
	assert.Equal(t, models.BookingStatusCancelled, fx.store.statusUpdates[booking.ID])
	assert.Equal(t, 1, fx.inventory.released)
	assert.Zero(t, fx.ledger.revokeCalls)
	assert.Equal(t, "user_cancelled", fx.publisher.lastCancelReason)
}

func TestCancelPaidBookingRefundsAndRevokes(t *testing.T) {
	userID := int64(42)
	fx, booking := paidFixture(t, &userID)
	booking.LoyaltyPointsRedeemed = 50

	fx.payments.completed = &models.Payment{
		ID: 1, BookingID: booking.ID,
		Status: models.PaymentStatusCompleted, TransactionID: "TXN-deadbeef",
	}
	fx.payments.refundResult = &gateway.Result{
		Status: gateway.StatusRefunded, TransactionID: "TXN-deadbeef",
	}

	resp, err := fx.lifecycle.Cancel(context.Background(), booking.ID, &userID, models.RoleUser)
	require.NoError(t, err)

	assert.Equal(t, models.PaymentStatusRefunded, resp.Status)
	assert.Equal(t, "TXN-deadbeef", resp.TransactionID)
	assert.Equal(t, models.BookingStatusCancelled, fx.store.statusUpdates[booking.ID])
	assert.Equal(t, 1, fx.inventory.released)
	assert.Equal(t, 1, fx.ledger.refundCalls)
	require.NotNil(t, fx.ledger.refundBookingID)
	assert.Equal(t, booking.ID, *fx.ledger.refundBookingID)
	assert.Equal(t, 1, fx.ledger.revokeCalls)
}

func TestCancelRefundFailureAborts(t *testing.T) {
	fx, booking := paidFixture(t, nil)

	fx.payments.completed = &models.Payment{
		ID: 1, BookingID: booking.ID, Status: models.PaymentStatusCompleted,
	}
	fx.payments.refundErr = fmt.Errorf("%w: gateway timeout", models.ErrRefundFailed)

	_, err := fx.lifecycle.Cancel(context.Background(), booking.ID, nil, "")
	assert.ErrorIs(t, err, models.ErrRefundFailed)

	// Nothing was mutated: the booking is still live and the room still held.
	assert.Empty(t, fx.store.statusUpdates)
	assert.Zero(t, fx.inventory.released)
	assert.Equal(t, models.BookingStatusConfirmed, booking.Status)
}

func TestCancelLosingRaceMutatesNothing(t *testing.T) {
	userID := int64(42)
	fx, booking := paidFixture(t, &userID)
	booking.LoyaltyPointsRedeemed = 50

	// The booking still reads as confirmed, but another cancellation wins the
	// status transition in between.
	fx.store.cancelRace = true

	_, err := fx.lifecycle.Cancel(context.Background(), booking.ID, &userID, models.RoleUser)
	assert.ErrorIs(t, err, models.ErrBookingCancelled)

	assert.Zero(t, fx.inventory.released)
	assert.Zero(t, fx.ledger.refundCalls)
	assert.Zero(t, fx.ledger.revokeCalls)
	assert.Zero(t, fx.publisher.cancelled)
}

func TestPaymentFailureCompensationLosesRaceToUserCancel(t *testing.T) {
	fx, booking := paidFixture(t, nil)

	failed := &models.Payment{ID: 1, BookingID: booking.ID, Status: models.PaymentStatusFailed}
	fx.payments.processPayment = failed
	fx.payments.processErr = fmt.Errorf("%w: card_declined", models.ErrPaymentDeclined)
	fx.store.cancelRace = true

	_, err := fx.lifecycle.ProcessPayment(context.Background(), booking.ID,
		&PaymentRequest{PaymentMethod: "card"}, nil, "")
	assert.ErrorIs(t, err, models.ErrPaymentDeclined)

	// The concurrent cancellation owns the compensation; this path must not
	// release the room a second time.
	assert.Zero(t, fx.inventory.released)
	assert.Zero(t, fx.publisher.cancelled)
}

func TestCancelRejectsCompletedBooking(t *testing.T) {
	fx, booking := paidFixture(t, nil)
	booking.Status = models.BookingStatusCompleted
	delete(fx.store.statusUpdates, booking.ID)

	_, err := fx.lifecycle.Cancel(context.Background(), booking.ID, nil, "")
	assert.ErrorIs(t, err, models.ErrValidation)
	assert.Zero(t, fx.inventory.released)
	assert.Empty(t, fx.store.statusUpdates)
}

func TestCancelAlreadyCancelled(t *testing.T) {
	fx, booking := paidFixture(t, nil)
	booking.Status = models.BookingStatusCancelled
	delete(fx.store.statusUpdates, booking.ID)

	_, err := fx.lifecycle.Cancel(context.Background(), booking.ID, nil, "")
	assert.ErrorIs(t, err, models.ErrBookingCancelled)
	assert.Zero(t, fx.inventory.released)
}

func TestCancelRestoresCapacity(t *testing.T) {
	fx := newLifecycleFixture()

	resp, err := fx.lifecycle.Create(context.Background(), validRequest(), nil)
	require.NoError(t, err)

	_, err = fx.lifecycle.Cancel(context.Background(), resp.Booking.ID, nil, "")
	require.NoError(t, err)

	assert.Equal(t, fx.inventory.reserved, fx.inventory.released)
}
