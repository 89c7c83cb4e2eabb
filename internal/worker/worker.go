package worker

import (
	"context"
	"log"
	"time"

	"hotel-booking-service/internal/broker"
	"hotel-booking-service/internal/models"
	"hotel-booking-service/internal/store"
	"hotel-booking-service/internal/util"

	"go.uber.org/zap"
)

// NotificationWorker consumes booking lifecycle events and sends guest
// notifications. Delivery here is a structured log line; the event plumbing
// and exactly-once handling are real.
type NotificationWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	store        *store.Store
	logger       *zap.Logger
}

// NewNotificationWorker creates a new notification worker
func NewNotificationWorker(consumer *broker.Consumer, st *store.Store) *NotificationWorker {
	w := &NotificationWorker{
		consumer: consumer,
		store:    st,
		logger:   util.GetLogger(),
	}

	eventHandler := broker.NewEventHandler()
	eventHandler.OnBookingCreated(w.handleBookingCreated)
	eventHandler.OnBookingConfirmed(w.handleBookingConfirmed)
	eventHandler.OnBookingCancelled(w.handleBookingCancelled)
	eventHandler.OnPaymentRefunded(w.handlePaymentRefunded)
	w.eventHandler = eventHandler

	return w
}

// Start starts the worker
func (w *NotificationWorker) Start(ctx context.Context) error {
	log.Println("Starting notification worker...")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *NotificationWorker) Stop() error {
	log.Println("Stopping notification worker...")
	return w.consumer.Close()
}

// claimEvent reports whether the event should be handled. Already-processed
// events are skipped; a dedup store failure lets the event through since a
// duplicate notification beats a dropped one.
func (w *NotificationWorker) claimEvent(ctx context.Context, eventID, eventType string) bool {
	processed, err := w.store.IsEventProcessed(ctx, eventID)
	if err != nil {
		w.logger.Warn("Event dedup check failed",
			zap.String("event_id", eventID),
			zap.Error(err))
		return true
	}
	if processed {
		return false
	}
	if err := w.store.MarkEventProcessed(ctx, eventID, eventType); err != nil {
		w.logger.Warn("Failed to mark event processed",
			zap.String("event_id", eventID),
			zap.Error(err))
	}
	return true
}

func (w *NotificationWorker) handleBookingCreated(ctx context.Context, event *models.BookingCreatedEvent) error {
	if !w.claimEvent(ctx, event.EventID, event.EventType) {
		return nil
	}

	w.logger.Info("Notification: booking created, payment pending",
		zap.Int64("booking_id", event.BookingID),
		zap.String("guest_email", event.GuestEmail),
		zap.Float64("total_amount", event.TotalAmount))
	return nil
}

func (w *NotificationWorker) handleBookingConfirmed(ctx context.Context, event *models.BookingConfirmedEvent) error {
	if !w.claimEvent(ctx, event.EventID, event.EventType) {
		return nil
	}

	w.logger.Info("Notification: booking confirmed",
		zap.Int64("booking_id", event.BookingID),
		zap.String("guest_email", event.GuestEmail),
		zap.Int("points_earned", event.PointsEarned))
	return nil
}

func (w *NotificationWorker) handleBookingCancelled(ctx context.Context, event *models.BookingCancelledEvent) error {
	if !w.claimEvent(ctx, event.EventID, event.EventType) {
		return nil
	}

	w.logger.Info("Notification: booking cancelled",
		zap.Int64("booking_id", event.BookingID),
		zap.String("guest_email", event.GuestEmail),
		zap.String("reason", event.Reason))
	return nil
}

func (w *NotificationWorker) handlePaymentRefunded(ctx context.Context, event *models.PaymentRefundedEvent) error {
	if !w.claimEvent(ctx, event.EventID, event.EventType) {
		return nil
	}

	w.logger.Info("Notification: payment refunded",
		zap.Int64("booking_id", event.BookingID),
		zap.Float64("amount", event.Amount),
		zap.String("transaction_id", event.TransactionID))
	return nil
}

type completionStore interface {
	ListConfirmedBookingsCheckedOutBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.Booking, error)
	CompleteBooking(ctx context.Context, bookingID int64) (bool, error)
}

// CompletionWorker periodically marks confirmed bookings whose stay has
// ended as completed.
type CompletionWorker struct {
	store    completionStore
	interval time.Duration
	logger   *zap.Logger
	done     chan struct{}
}

const completionBatchSize = 100

// NewCompletionWorker creates a new completion worker
func NewCompletionWorker(st *store.Store, interval time.Duration) *CompletionWorker {
	return &CompletionWorker{
		store:    st,
		interval: interval,
		logger:   util.GetLogger(),
		done:     make(chan struct{}),
	}
}

// Start runs the completion loop until the context is cancelled
func (cw *CompletionWorker) Start(ctx context.Context) error {
	log.Println("Starting completion worker...")
	defer close(cw.done)

	ticker := time.NewTicker(cw.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := cw.RunOnce(ctx); err != nil {
				cw.logger.Error("Completion sweep failed", zap.Error(err))
			}
		}
	}
}

// Stop waits for the completion loop to exit
func (cw *CompletionWorker) Stop() error {
	log.Println("Stopping completion worker...")
	<-cw.done
	return nil
}

// RunOnce completes every confirmed booking whose check-out has passed
func (cw *CompletionWorker) RunOnce(ctx context.Context) error {
	cutoff := time.Now().UTC()

	for {
		bookings, err := cw.store.ListConfirmedBookingsCheckedOutBefore(ctx, cutoff, completionBatchSize)
		if err != nil {
			return err
		}
		if len(bookings) == 0 {
			return nil
		}

		completed := 0
		for _, booking := range bookings {
			done, err := cw.store.CompleteBooking(ctx, booking.ID)
			if err != nil {
				cw.logger.Error("Failed to complete booking",
					zap.Int64("booking_id", booking.ID),
					zap.Error(err))
				continue
			}
			if !done {
				// Cancelled between the list and the update.
				continue
			}
			completed++
			util.BookingsCompletedTotal.Inc()
			cw.logger.Info("Booking completed",
				zap.Int64("booking_id", booking.ID),
				zap.Time("check_out", booking.CheckOut))
		}

		// Failed updates stay in the list; without progress the next tick
		// retries instead of this loop spinning.
		if completed == 0 || len(bookings) < completionBatchSize {
			return nil
		}
	}
}
