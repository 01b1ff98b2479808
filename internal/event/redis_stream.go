package event

import (
	"context"
	"encoding/json"

	"github.com/cinetix/booking-engine/internal/domain"
	"github.com/redis/go-redis/v9"
)

const bookingStream = "booking.events"

// StreamObserver appends every booking event to a Redis stream for
// downstream analytics consumers.
type StreamObserver struct {
	redis redis.UniversalClient
}

func NewStreamObserver(client redis.UniversalClient) *StreamObserver {
	return &StreamObserver{redis: client}
}

func (o *StreamObserver) Name() string { return "redis-stream" }

func (o *StreamObserver) Notify(ctx context.Context, event domain.BookingEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return o.redis.XAdd(ctx, &redis.XAddArgs{
		Stream: bookingStream,
		Values: map[string]interface{}{
			"booking_id": event.BookingID,
			"status":     string(event.Status),
			"payload":    payload,
		},
	}).Err()
}
