package broker

import (
	"context"
	"encoding/json"
	"fmt"

	"hotel-booking-service/internal/models"

	"github.com/segmentio/kafka-go"
)

// EventPublisher handles publishing booking lifecycle events. All events for
// one booking share a key so consumers see them in order.
type EventPublisher struct {
	producer *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

func bookingKey(bookingID int64) string {
	return fmt.Sprintf("booking-%d", bookingID)
}

// PublishBookingCreated publishes BookingCreated event
func (ep *EventPublisher) PublishBookingCreated(ctx context.Context, event *models.BookingCreatedEvent) error {
	return ep.producer.PublishEvent(ctx, bookingKey(event.BookingID), event)
}

// PublishBookingConfirmed publishes BookingConfirmed event
func (ep *EventPublisher) PublishBookingConfirmed(ctx context.Context, event *models.BookingConfirmedEvent) error {
	return ep.producer.PublishEvent(ctx, bookingKey(event.BookingID), event)
}

// PublishBookingCancelled publishes BookingCancelled event
func (ep *EventPublisher) PublishBookingCancelled(ctx context.Context, event *models.BookingCancelledEvent) error {
	return ep.producer.PublishEvent(ctx, bookingKey(event.BookingID), event)
}

// PublishPaymentCompleted publishes PaymentCompleted event
func (ep *EventPublisher) PublishPaymentCompleted(ctx context.Context, event *models.PaymentCompletedEvent) error {
	return ep.producer.PublishEvent(ctx, bookingKey(event.BookingID), event)
}

// PublishPaymentFailed publishes PaymentFailed event
func (ep *EventPublisher) PublishPaymentFailed(ctx context.Context, event *models.PaymentFailedEvent) error {
	return ep.producer.PublishEvent(ctx, bookingKey(event.BookingID), event)
}

// PublishPaymentRefunded publishes PaymentRefunded event
func (ep *EventPublisher) PublishPaymentRefunded(ctx context.Context, event *models.PaymentRefundedEvent) error {
	return ep.producer.PublishEvent(ctx, bookingKey(event.BookingID), event)
}

// EventHandler routes incoming lifecycle events to registered callbacks
type EventHandler struct {
	onBookingCreated   func(context.Context, *models.BookingCreatedEvent) error
	onBookingConfirmed func(context.Context, *models.BookingConfirmedEvent) error
	onBookingCancelled func(context.Context, *models.BookingCancelledEvent) error
	onPaymentRefunded  func(context.Context, *models.PaymentRefundedEvent) error
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{}
}

// OnBookingCreated registers a handler for BookingCreated events
func (eh *EventHandler) OnBookingCreated(handler func(context.Context, *models.BookingCreatedEvent) error) {
	eh.onBookingCreated = handler
}

// OnBookingConfirmed registers a handler for BookingConfirmed events
func (eh *EventHandler) OnBookingConfirmed(handler func(context.Context, *models.BookingConfirmedEvent) error) {
	eh.onBookingConfirmed = handler
}

// OnBookingCancelled registers a handler for BookingCancelled events
func (eh *EventHandler) OnBookingCancelled(handler func(context.Context, *models.BookingCancelledEvent) error) {
	eh.onBookingCancelled = handler
}

// OnPaymentRefunded registers a handler for PaymentRefunded events
func (eh *EventHandler) OnPaymentRefunded(handler func(context.Context, *models.PaymentRefundedEvent) error) {
	eh.onPaymentRefunded = handler
}

// HandleMessage routes messages to appropriate handlers
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	switch baseEvent.EventType {
	case models.EventTypeBookingCreated:
		if eh.onBookingCreated != nil {
			var event models.BookingCreatedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal BookingCreated event: %w", err)
			}
			return eh.onBookingCreated(ctx, &event)
		}

	case models.EventTypeBookingConfirmed:
		if eh.onBookingConfirmed != nil {
			var event models.BookingConfirmedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal BookingConfirmed event: %w", err)
			}
			return eh.onBookingConfirmed(ctx, &event)
		}

	case models.EventTypeBookingCancelled:
		if eh.onBookingCancelled != nil {
			var event models.BookingCancelledEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal BookingCancelled event: %w", err)
			}
			return eh.onBookingCancelled(ctx, &event)
		}

	case models.EventTypePaymentRefunded:
		if eh.onPaymentRefunded != nil {
			var event models.PaymentRefundedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal PaymentRefunded event: %w", err)
			}
			return eh.onPaymentRefunded(ctx, &event)
		}
	}

	return nil
}
