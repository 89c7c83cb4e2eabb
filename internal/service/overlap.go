package service

import (
	"context"
	"time"

	"hotel-booking-service/internal/store"
	"hotel-booking-service/internal/util"
)

type overlapStore interface {
	GetActiveBookingDates(ctx context.Context, hotelID, excludeBookingID int64) ([]store.BookingDates, error)
}

// OverlapValidator decides whether a proposed date range conflicts with
// existing non-cancelled bookings for a hotel. Read-only.
type OverlapValidator struct {
	store overlapStore
}

// NewOverlapValidator creates a new overlap validator
func NewOverlapValidator(st *store.Store) *OverlapValidator {
	return &OverlapValidator{store: st}
}

// HasOverlap reports whether [checkIn, checkOut) intersects any non-cancelled
// booking for the hotel. Date ranges are half-open: a new check-in on an
// existing check-out day is not an overlap. excludeBookingID > 0 lets an
// update ignore its own booking.
func (v *OverlapValidator) HasOverlap(ctx context.Context, hotelID int64, checkIn, checkOut time.Time, excludeBookingID int64) (bool, error) {
	ctx, span := util.StartSpan(ctx, "OverlapValidator.HasOverlap")
	defer span.End()

	existing, err := v.store.GetActiveBookingDates(ctx, hotelID, excludeBookingID)
	if err != nil {
		return false, err
	}

	for _, b := range existing {
		if b.CheckIn.Before(checkOut) && b.CheckOut.After(checkIn) {
			return true, nil
		}
	}
	return false, nil
}
