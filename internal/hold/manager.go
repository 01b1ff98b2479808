// Package hold turns seat-set requests into time-bounded holds and reclaims
// the inventory of holds that were never paid for.
package hold

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/cinetix/booking-engine/internal/domain"
	"github.com/cinetix/booking-engine/internal/inventory"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	DefaultTTL           = 10 * time.Minute
	DefaultSweepInterval = 30 * time.Second
	DefaultRetention     = 1 * time.Hour
)

// Manager owns every hold record. Other components transition holds only
// through Convert and Release, never by touching the records directly.
type Manager struct {
	store  *inventory.Store
	logger *slog.Logger

	ttl           time.Duration
	sweepInterval time.Duration
	retention     time.Duration
	now           func() time.Time

	mu    sync.Mutex
	holds map[string]*domain.Hold
}

type Option func(*Manager)

// WithTTL overrides the default hold TTL.
func WithTTL(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.ttl = d
		}
	}
}

// WithSweepInterval overrides how often the expiry sweep runs.
func WithSweepInterval(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.sweepInterval = d
		}
	}
}

// WithRetention overrides how long finished holds stay readable before the
// sweep drops them.
func WithRetention(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.retention = d
		}
	}
}

// WithClock replaces the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

func NewManager(store *inventory.Store, logger *slog.Logger, opts ...Option) *Manager {
	m := &Manager{
		store:         store,
		logger:        logger,
		ttl:           DefaultTTL,
		sweepInterval: DefaultSweepInterval,
		retention:     DefaultRetention,
		now:           time.Now,
		holds:         make(map[string]*domain.Hold),
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Create places a hold on all requested seats or none of them. It reads the
// current seat versions, attempts the versioned transition, and on a version
// conflict retries exactly once against freshly read versions. A second
// conflict means a concurrent caller genuinely won the seats, so the loss is
// surfaced as ErrSeatsUnavailable instead of retrying forever.
func (m *Manager) Create(showID string, seatIDs []string, userID string, totalPrice decimal.Decimal) (*domain.Hold, error) {
	holdID := uuid.New().String()
	now := m.now()
	expiry := now.Add(m.ttl)

	const attempts = 2
	var lastErr error

	for i := 0; i < attempts; i++ {
		views, err := m.store.SeatVersions(showID, seatIDs)
		if err != nil {
			return nil, err
		}

		expected := make([]domain.SeatVersion, len(views))
		for j, v := range views {
			expected[j] = domain.SeatVersion{SeatID: v.SeatID, Version: v.Version}
		}

		_, err = m.store.TryHoldSeats(showID, expected, holdID, expiry)
		if err == nil {
			hold := &domain.Hold{
				ID:         holdID,
				ShowID:     showID,
				SeatIDs:    append([]string(nil), seatIDs...),
				UserID:     userID,
				TotalPrice: totalPrice,
				Status:     domain.HoldActive,
				CreatedAt:  now,
				ExpiresAt:  expiry,
			}

			m.mu.Lock()
			m.holds[holdID] = hold
			m.mu.Unlock()

			return copyHold(hold), nil
		}

		var conflict *inventory.ConflictError
		if !errors.As(err, &conflict) {
			return nil, err
		}

		lastErr = err
		m.logger.Warn("hold attempt lost a seat race",
			"show_id", showID, "hold_id", holdID, "conflict_seats", conflict.SeatIDs, "attempt", i+1)
	}

	return nil, errors.Join(domain.ErrSeatsUnavailable, lastErr)
}

// Convert marks a still-active, unexpired hold CONVERTED so the coordinator
// may confirm its seats. An expired hold can never be converted, even if the
// sweep has not collected it yet.
func (m *Manager) Convert(holdID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	hold, ok := m.holds[holdID]
	if !ok {
		return domain.ErrHoldNotFound
	}

	switch hold.Status {
	case domain.HoldActive:
	case domain.HoldExpired:
		return domain.ErrHoldExpired
	default:
		return domain.ErrHoldNotFound
	}

	if hold.Expired(m.now()) {
		return domain.ErrHoldExpired
	}

	hold.Status = domain.HoldConverted

	return nil
}

// Release marks a hold RELEASED and returns its seats to the pool. Releasing
// an unknown or already released hold is a no-op.
func (m *Manager) Release(holdID string) error {
	m.mu.Lock()
	hold, ok := m.holds[holdID]
	if !ok || hold.Status != domain.HoldActive {
		m.mu.Unlock()
		return nil
	}

	hold.Status = domain.HoldReleased
	showID, seatIDs := hold.ShowID, hold.SeatIDs
	m.mu.Unlock()

	return m.store.ReleaseSeats(showID, seatIDs, holdID)
}

// Get returns a copy of the hold record.
func (m *Manager) Get(holdID string) (*domain.Hold, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	hold, ok := m.holds[holdID]
	if !ok {
		return nil, domain.ErrHoldNotFound
	}

	return copyHold(hold), nil
}

// Run drives the recurring expiry sweep until ctx is cancelled. This is the
// mechanism that reclaims inventory from abandoned sessions; clients never
// have to cancel explicitly.
func (m *Manager) Run(ctx context.Context) {
	ticker := time.NewTicker(m.sweepInterval)
	defer ticker.Stop()

	m.logger.Info("hold expiry sweep started", "interval", m.sweepInterval)

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("hold expiry sweep stopped")
			return
		case <-ticker.C:
			m.SweepExpired()
		}
	}
}

// SweepExpired expires every overdue ACTIVE hold and releases its seats. It
// also drops finished holds once they are older than the retention window, so
// the record map does not grow for the lifetime of the process. Finished holds
// inside the window stay readable because a session binding in Redis may still
// point at them. Returns the number of holds expired.
func (m *Manager) SweepExpired() int {
	now := m.now()

	type reclaim struct {
		holdID  string
		showID  string
		seatIDs []string
	}

	var overdue []reclaim

	m.mu.Lock()
	for id, hold := range m.holds {
		if hold.Status == domain.HoldActive && hold.Expired(now) {
			hold.Status = domain.HoldExpired
			overdue = append(overdue, reclaim{holdID: id, showID: hold.ShowID, seatIDs: hold.SeatIDs})
			continue
		}

		if hold.Status != domain.HoldActive && !now.Before(hold.ExpiresAt.Add(m.retention)) {
			delete(m.holds, id)
		}
	}
	m.mu.Unlock()

	for _, r := range overdue {
		if err := m.store.ReleaseSeats(r.showID, r.seatIDs, r.holdID); err != nil {
			m.logger.Error("failed to release seats of expired hold",
				"hold_id", r.holdID, "show_id", r.showID, "error", err)
			continue
		}

		m.logger.Info("expired hold reclaimed", "hold_id", r.holdID, "show_id", r.showID, "seats", r.seatIDs)
	}

	return len(overdue)
}

func copyHold(h *domain.Hold) *domain.Hold {
	out := *h
	out.SeatIDs = append([]string(nil), h.SeatIDs...)
	return &out
}
