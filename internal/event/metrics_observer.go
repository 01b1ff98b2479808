package event

import (
	"context"

	"github.com/cinetix/booking-engine/internal/domain"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsObserver counts booking outcomes on the global meter provider.
type MetricsObserver struct {
	bookings metric.Int64Counter
}

func NewMetricsObserver() (*MetricsObserver, error) {
	meter := otel.Meter("booking-engine")

	bookings, err := meter.Int64Counter("bookings_total",
		metric.WithDescription("Booking attempts by terminal status"))
	if err != nil {
		return nil, err
	}

	return &MetricsObserver{bookings: bookings}, nil
}

func (o *MetricsObserver) Name() string { return "metrics" }

func (o *MetricsObserver) Notify(ctx context.Context, event domain.BookingEvent) error {
	o.bookings.Add(ctx, 1, metric.WithAttributes(
		attribute.String("status", string(event.Status)),
		attribute.String("show_id", event.ShowID),
	))

	return nil
}
