package hold

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/cinetix/booking-engine/internal/domain"
	"github.com/cinetix/booking-engine/internal/inventory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testPrice = decimal.NewFromInt(50)

type fixture struct {
	store   *inventory.Store
	manager *Manager
	now     time.Time
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()

	f := &fixture{now: time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)}

	f.store = inventory.NewStore()
	f.store.AddShow(domain.Show{ID: "show-1", Seats: []domain.SeatDefinition{
		{ID: "A1"}, {ID: "A2"}, {ID: "A3"},
	}})

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	opts = append([]Option{WithClock(func() time.Time { return f.now })}, opts...)
	f.manager = NewManager(f.store, logger, opts...)

	return f
}

func (f *fixture) advance(d time.Duration) {
	f.now = f.now.Add(d)
}

func (f *fixture) seatState(t *testing.T, seatID string) domain.SeatState {
	t.Helper()

	views, err := f.store.SeatVersions("show-1", []string{seatID})
	require.NoError(t, err)

	return views[0].State
}

func TestCreateHold(t *testing.T) {
	f := newFixture(t, WithTTL(5*time.Minute))

	h, err := f.manager.Create("show-1", []string{"A1", "A2"}, "user-1", testPrice)
	require.NoError(t, err)

	assert.NotEmpty(t, h.ID)
	assert.Equal(t, "show-1", h.ShowID)
	assert.Equal(t, []string{"A1", "A2"}, h.SeatIDs)
	assert.Equal(t, domain.HoldActive, h.Status)
	assert.Equal(t, f.now.Add(5*time.Minute), h.ExpiresAt)
	assert.True(t, testPrice.Equal(h.TotalPrice))

	assert.Equal(t, domain.SeatHeld, f.seatState(t, "A1"))
	assert.Equal(t, domain.SeatHeld, f.seatState(t, "A2"))
	assert.Equal(t, domain.SeatAvailable, f.seatState(t, "A3"))
}

func TestCreateHoldConflict(t *testing.T) {
	f := newFixture(t)

	_, err := f.manager.Create("show-1", []string{"A1"}, "user-1", testPrice)
	require.NoError(t, err)

	_, err = f.manager.Create("show-1", []string{"A1", "A2"}, "user-2", testPrice)
	require.ErrorIs(t, err, domain.ErrSeatsUnavailable)

	// the losing attempt must not have touched the free seat
	assert.Equal(t, domain.SeatAvailable, f.seatState(t, "A2"))
}

func TestCreateHoldUnknownShow(t *testing.T) {
	f := newFixture(t)

	_, err := f.manager.Create("nope", []string{"A1"}, "user-1", testPrice)
	assert.ErrorIs(t, err, domain.ErrRecordNotFound)
}

func TestConvert(t *testing.T) {
	t.Run("converts an active hold", func(t *testing.T) {
		f := newFixture(t)

		h, err := f.manager.Create("show-1", []string{"A1"}, "user-1", testPrice)
		require.NoError(t, err)

		require.NoError(t, f.manager.Convert(h.ID))

		got, err := f.manager.Get(h.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.HoldConverted, got.Status)
	})

	t.Run("rejects an expired hold even before the sweep ran", func(t *testing.T) {
		f := newFixture(t, WithTTL(time.Minute))

		h, err := f.manager.Create("show-1", []string{"A1"}, "user-1", testPrice)
		require.NoError(t, err)

		f.advance(time.Minute)

		assert.ErrorIs(t, f.manager.Convert(h.ID), domain.ErrHoldExpired)
	})

	t.Run("rejects unknown and terminal holds", func(t *testing.T) {
		f := newFixture(t)

		assert.ErrorIs(t, f.manager.Convert("nope"), domain.ErrHoldNotFound)

		h, err := f.manager.Create("show-1", []string{"A1"}, "user-1", testPrice)
		require.NoError(t, err)
		require.NoError(t, f.manager.Release(h.ID))

		assert.ErrorIs(t, f.manager.Convert(h.ID), domain.ErrHoldNotFound)
	})
}

func TestRelease(t *testing.T) {
	f := newFixture(t)

	h, err := f.manager.Create("show-1", []string{"A1", "A2"}, "user-1", testPrice)
	require.NoError(t, err)

	require.NoError(t, f.manager.Release(h.ID))

	got, err := f.manager.Get(h.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.HoldReleased, got.Status)
	assert.Equal(t, domain.SeatAvailable, f.seatState(t, "A1"))
	assert.Equal(t, domain.SeatAvailable, f.seatState(t, "A2"))

	// releasing twice, or releasing an unknown hold, is a no-op
	assert.NoError(t, f.manager.Release(h.ID))
	assert.NoError(t, f.manager.Release("nope"))
}

func TestSweepExpired(t *testing.T) {
	f := newFixture(t, WithTTL(time.Minute))

	expired, err := f.manager.Create("show-1", []string{"A1"}, "user-1", testPrice)
	require.NoError(t, err)

	f.advance(30 * time.Second)

	fresh, err := f.manager.Create("show-1", []string{"A2"}, "user-2", testPrice)
	require.NoError(t, err)

	f.advance(30 * time.Second)

	assert.Equal(t, 1, f.manager.SweepExpired())

	got, err := f.manager.Get(expired.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.HoldExpired, got.Status)
	assert.Equal(t, domain.SeatAvailable, f.seatState(t, "A1"))

	got, err = f.manager.Get(fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.HoldActive, got.Status)
	assert.Equal(t, domain.SeatHeld, f.seatState(t, "A2"))

	// a second sweep finds nothing new
	assert.Equal(t, 0, f.manager.SweepExpired())
}

func TestSweepDropsFinishedHoldsAfterRetention(t *testing.T) {
	f := newFixture(t, WithTTL(time.Minute), WithRetention(10*time.Minute))

	expired, err := f.manager.Create("show-1", []string{"A1"}, "user-1", testPrice)
	require.NoError(t, err)

	released, err := f.manager.Create("show-1", []string{"A2"}, "user-2", testPrice)
	require.NoError(t, err)
	require.NoError(t, f.manager.Release(released.ID))

	f.advance(time.Minute)
	assert.Equal(t, 1, f.manager.SweepExpired())

	// still inside the retention window, both records stay readable
	_, err = f.manager.Get(expired.ID)
	require.NoError(t, err)
	_, err = f.manager.Get(released.ID)
	require.NoError(t, err)

	f.advance(10 * time.Minute)
	f.manager.SweepExpired()

	_, err = f.manager.Get(expired.ID)
	assert.ErrorIs(t, err, domain.ErrHoldNotFound)
	_, err = f.manager.Get(released.ID)
	assert.ErrorIs(t, err, domain.ErrHoldNotFound)

	// the seats themselves went back to the pool when the holds finished
	assert.Equal(t, domain.SeatAvailable, f.seatState(t, "A1"))
	assert.Equal(t, domain.SeatAvailable, f.seatState(t, "A2"))
}

func TestSweepDoesNotTouchReassignedSeats(t *testing.T) {
	f := newFixture(t, WithTTL(time.Minute))

	stale, err := f.manager.Create("show-1", []string{"A1"}, "user-1", testPrice)
	require.NoError(t, err)

	f.advance(2 * time.Minute)

	// the overdue hold is released and the seat re-held by someone else
	// before the sweep notices the expiry
	require.NoError(t, f.manager.Release(stale.ID))

	fresh, err := f.manager.Create("show-1", []string{"A1"}, "user-2", testPrice)
	require.NoError(t, err)

	assert.Equal(t, 0, f.manager.SweepExpired())

	views, err := f.store.SeatVersions("show-1", []string{"A1"})
	require.NoError(t, err)
	assert.Equal(t, domain.SeatHeld, views[0].State)
	assert.Equal(t, fresh.ID, views[0].HoldID)
}

func TestGetReturnsCopy(t *testing.T) {
	f := newFixture(t)

	h, err := f.manager.Create("show-1", []string{"A1"}, "user-1", testPrice)
	require.NoError(t, err)

	got, err := f.manager.Get(h.ID)
	require.NoError(t, err)

	got.SeatIDs[0] = "tampered"
	got.Status = domain.HoldConverted

	again, err := f.manager.Get(h.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"A1"}, again.SeatIDs)
	assert.Equal(t, domain.HoldActive, again.Status)
}
