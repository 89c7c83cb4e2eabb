package service

import (
	"context"
	"fmt"
	"time"

	"hotel-booking-service/config"
	"hotel-booking-service/internal/gateway"
	"hotel-booking-service/internal/models"
	"hotel-booking-service/internal/store"
	"hotel-booking-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type paymentStore interface {
	CreatePayment(ctx context.Context, payment *models.Payment) error
	UpdatePaymentStatus(ctx context.Context, paymentID int64, status, transactionID, errorMessage string, processedAt *time.Time) error
	GetCompletedPaymentByBookingID(ctx context.Context, bookingID int64) (*models.Payment, error)
	GetPaymentsByBookingID(ctx context.Context, bookingID int64) ([]models.Payment, error)
}

type paymentPublisher interface {
	PublishPaymentCompleted(ctx context.Context, event *models.PaymentCompletedEvent) error
	PublishPaymentFailed(ctx context.Context, event *models.PaymentFailedEvent) error
	PublishPaymentRefunded(ctx context.Context, event *models.PaymentRefundedEvent) error
}

// PaymentService drives the payment gateway and records every attempt as a
// Payment row. The gateway result is the authoritative payment status.
type PaymentService struct {
	store     paymentStore
	gateway   gateway.PaymentGateway
	publisher paymentPublisher
	cfg       config.BusinessConfig
	logger    *zap.Logger
}

// NewPaymentService creates a new payment service
func NewPaymentService(st *store.Store, gw gateway.PaymentGateway, publisher paymentPublisher, cfg config.BusinessConfig) *PaymentService {
	return &PaymentService{
		store:     st,
		gateway:   gw,
		publisher: publisher,
		cfg:       cfg,
		logger:    util.GetLogger(),
	}
}

// Process charges the booking's total amount. The gateway call carries a
// timeout; a timed-out or errored call is treated as declined so the caller
// compensates the same way as for an explicit decline.
func (ps *PaymentService) Process(ctx context.Context, booking *models.Booking, method string, card gateway.CardDetails) (*models.Payment, error) {
	ctx, span := util.StartSpan(ctx, "PaymentService.Process")
	defer span.End()

	util.PaymentAttemptsTotal.Inc()
	start := time.Now()
	defer func() {
		util.PaymentProcessingLatency.Observe(time.Since(start).Seconds())
	}()

	payment := &models.Payment{
		BookingID: booking.ID,
		Amount:    booking.TotalAmount,
		Currency:  ps.cfg.Currency,
		Method:    method,
		Status:    models.PaymentStatusPending,
	}

	if err := ps.store.CreatePayment(ctx, payment); err != nil {
		return nil, fmt.Errorf("failed to create payment: %w", err)
	}

	gwCtx, cancel := context.WithTimeout(ctx, time.Duration(ps.cfg.PaymentTimeoutSeconds)*time.Second)
	defer cancel()

	result, err := ps.gateway.Authorize(gwCtx, &gateway.AuthorizeRequest{
		BookingID: booking.ID,
		Amount:    payment.Amount,
		Currency:  payment.Currency,
		Method:    method,
		Card:      card,
	})
	if err != nil {
		return ps.markFailed(ctx, payment, err.Error())
	}

	if result.Status != gateway.StatusCompleted {
		return ps.markFailed(ctx, payment, result.ErrorMessage)
	}

	processedAt := result.ProcessedAt
	if err := ps.store.UpdatePaymentStatus(ctx, payment.ID, models.PaymentStatusCompleted, result.TransactionID, "", &processedAt); err != nil {
		return nil, fmt.Errorf("failed to update payment status: %w", err)
	}

	payment.Status = models.PaymentStatusCompleted
	payment.TransactionID = result.TransactionID
	payment.ProcessedAt = &processedAt

	util.PaymentSuccessTotal.Inc()
	ps.logger.Info("Payment completed",
		zap.Int64("booking_id", booking.ID),
		zap.String("transaction_id", result.TransactionID))

	event := &models.PaymentCompletedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypePaymentCompleted,
			Timestamp: time.Now(),
		},
		BookingID:     booking.ID,
		PaymentID:     payment.ID,
		Amount:        payment.Amount,
		Currency:      payment.Currency,
		TransactionID: result.TransactionID,
	}
	if err := ps.publisher.PublishPaymentCompleted(ctx, event); err != nil {
		ps.logger.Error("Failed to publish PaymentCompleted event", zap.Error(err))
	}

	return payment, nil
}

func (ps *PaymentService) markFailed(ctx context.Context, payment *models.Payment, reason string) (*models.Payment, error) {
	now := time.Now()
	if err := ps.store.UpdatePaymentStatus(ctx, payment.ID, models.PaymentStatusFailed, "", reason, &now); err != nil {
		ps.logger.Error("Failed to record payment failure", zap.Error(err))
	}

	payment.Status = models.PaymentStatusFailed
	payment.ErrorMessage = reason
	payment.ProcessedAt = &now

	util.PaymentFailedTotal.Inc()
	ps.logger.Warn("Payment failed",
		zap.Int64("booking_id", payment.BookingID),
		zap.String("reason", reason))

	event := &models.PaymentFailedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypePaymentFailed,
			Timestamp: now,
		},
		BookingID: payment.BookingID,
		PaymentID: payment.ID,
		Reason:    reason,
	}
	if err := ps.publisher.PublishPaymentFailed(ctx, event); err != nil {
		ps.logger.Error("Failed to publish PaymentFailed event", zap.Error(err))
	}

	return payment, fmt.Errorf("%w: %s", models.ErrPaymentDeclined, reason)
}

// Refund reverses a completed payment. On gateway failure the payment keeps
// its status and the error is surfaced; the caller decides what to abort.
func (ps *PaymentService) Refund(ctx context.Context, payment *models.Payment) (*gateway.Result, error) {
	ctx, span := util.StartSpan(ctx, "PaymentService.Refund")
	defer span.End()

	if payment.Status != models.PaymentStatusCompleted {
		return nil, fmt.Errorf("%w: payment %d is %s", models.ErrRefundFailed, payment.ID, payment.Status)
	}

	result, err := ps.gateway.Refund(ctx, payment.TransactionID, payment.Amount)
	if err != nil {
		util.RefundsFailedTotal.Inc()
		ps.logger.Error("Refund failed",
			zap.Int64("booking_id", payment.BookingID),
			zap.Int64("payment_id", payment.ID),
			zap.String("transaction_id", payment.TransactionID),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %v", models.ErrRefundFailed, err)
	}

	if err := ps.store.UpdatePaymentStatus(ctx, payment.ID, models.PaymentStatusRefunded, payment.TransactionID, "", payment.ProcessedAt); err != nil {
		ps.logger.Error("Failed to record refund", zap.Error(err))
	}
	payment.Status = models.PaymentStatusRefunded

	util.PaymentRefundedTotal.Inc()
	ps.logger.Info("Payment refunded",
		zap.Int64("booking_id", payment.BookingID),
		zap.String("transaction_id", payment.TransactionID))

	event := &models.PaymentRefundedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypePaymentRefunded,
			Timestamp: time.Now(),
		},
		BookingID:     payment.BookingID,
		PaymentID:     payment.ID,
		Amount:        payment.Amount,
		TransactionID: payment.TransactionID,
	}
	if err := ps.publisher.PublishPaymentRefunded(ctx, event); err != nil {
		ps.logger.Error("Failed to publish PaymentRefunded event", zap.Error(err))
	}

	return result, nil
}

// CompletedPayment returns the booking's completed payment, or nil
func (ps *PaymentService) CompletedPayment(ctx context.Context, bookingID int64) (*models.Payment, error) {
	return ps.store.GetCompletedPaymentByBookingID(ctx, bookingID)
}

// Payments returns all payment attempts for a booking
func (ps *PaymentService) Payments(ctx context.Context, bookingID int64) ([]models.Payment, error) {
	return ps.store.GetPaymentsByBookingID(ctx, bookingID)
}
