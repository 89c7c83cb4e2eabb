package service

import (
	"context"
	"testing"
	"time"

	"hotel-booking-service/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeOverlapStore struct {
	dates []store.BookingDates
	err   error
}

func (f *fakeOverlapStore) GetActiveBookingDates(ctx context.Context, hotelID, excludeBookingID int64) ([]store.BookingDates, error) {
	return f.dates, f.err
}

func day(d int) time.Time {
	return time.Date(2026, time.September, d, 0, 0, 0, 0, time.UTC)
}

func TestHasOverlap(t *testing.T) {
	// One existing stay: Sep 10 to Sep 15.
	validator := &OverlapValidator{store: &fakeOverlapStore{
		dates: []store.BookingDates{{ID: 1, CheckIn: day(10), CheckOut: day(15)}},
	}}

	tests := []struct {
		name     string
		checkIn  int
		checkOut int
		want     bool
	}{
		{"check-in on existing check-out day", 15, 20, false},
		{"check-out on existing check-in day", 5, 10, false},
		{"fully before", 1, 5, false},
		{"fully after", 20, 25, false},
		{"contained within", 12, 14, true},
		{"straddles check-in", 5, 11, true},
		{"straddles check-out", 14, 20, true},
		{"contains existing stay", 5, 20, true},
		{"identical range", 10, 15, true},
		{"one night inside", 10, 11, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := validator.HasOverlap(context.Background(), 1, day(tt.checkIn), day(tt.checkOut), 0)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHasOverlapNoExistingBookings(t *testing.T) {
	validator := &OverlapValidator{store: &fakeOverlapStore{}}

	got, err := validator.HasOverlap(context.Background(), 1, day(1), day(5), 0)
	require.NoError(t, err)
	assert.False(t, got)
}
