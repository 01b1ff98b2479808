// Package inventory holds the authoritative, per-show seat state. All seat
// transitions go through here; holds and bookings elsewhere are bookkeeping
// around what this store says.
package inventory

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cinetix/booking-engine/internal/domain"
)

// ConflictError reports which seats failed the version or availability check
// of a hold attempt. The attempt mutated nothing.
type ConflictError struct {
	ShowID  string
	SeatIDs []string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("seat conflict on show %s: %s", e.ShowID, strings.Join(e.SeatIDs, ", "))
}

type seatRecord struct {
	state      domain.SeatState
	version    int64
	holdID     string
	holdExpiry time.Time
}

type showInventory struct {
	mu    sync.Mutex
	seats map[string]*seatRecord
}

// Store maps show IDs to their seat inventories. Each show has its own
// critical section, so contention on one show never blocks another.
type Store struct {
	mu    sync.RWMutex
	shows map[string]*showInventory
}

func NewStore() *Store {
	return &Store{
		shows: make(map[string]*showInventory),
	}
}

// AddShow initializes inventory for a show from its catalog definition. All
// seats start AVAILABLE at version zero. Re-adding an existing show is a
// no-op so a catalog reload cannot clobber live state.
func (s *Store) AddShow(show domain.Show) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.shows[show.ID]; ok {
		return
	}

	seats := make(map[string]*seatRecord, len(show.Seats))
	for _, seat := range show.Seats {
		seats[seat.ID] = &seatRecord{state: domain.SeatAvailable}
	}

	s.shows[show.ID] = &showInventory{seats: seats}
}

func (s *Store) show(showID string) (*showInventory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	inv, ok := s.shows[showID]
	if !ok {
		return nil, domain.ErrRecordNotFound
	}

	return inv, nil
}

// SeatVersions returns the current state and version of the given seats,
// for the read-then-try-hold cycle.
func (s *Store) SeatVersions(showID string, seatIDs []string) ([]domain.SeatView, error) {
	inv, err := s.show(showID)
	if err != nil {
		return nil, err
	}

	inv.mu.Lock()
	defer inv.mu.Unlock()

	views := make([]domain.SeatView, 0, len(seatIDs))
	for _, seatID := range seatIDs {
		rec, ok := inv.seats[seatID]
		if !ok {
			return nil, domain.ErrRecordNotFound
		}

		views = append(views, domain.SeatView{
			SeatID:     seatID,
			State:      rec.state,
			Version:    rec.version,
			HoldID:     rec.holdID,
			HoldExpiry: rec.holdExpiry,
		})
	}

	return views, nil
}

// TryHoldSeats atomically transitions every requested seat from AVAILABLE to
// HELD, provided each seat's current version matches the expected one. On any
// mismatch or unavailable seat the whole operation aborts with a
// ConflictError and no seat changes. Returns the new versions on success.
func (s *Store) TryHoldSeats(showID string, expected []domain.SeatVersion, holdID string, expiry time.Time) ([]domain.SeatVersion, error) {
	inv, err := s.show(showID)
	if err != nil {
		return nil, err
	}

	inv.mu.Lock()
	defer inv.mu.Unlock()

	var conflicts []string
	seen := make(map[string]bool, len(expected))
	for _, sv := range expected {
		rec, ok := inv.seats[sv.SeatID]
		if !ok {
			return nil, domain.ErrRecordNotFound
		}

		// A seat listed twice cannot be acquired twice.
		if seen[sv.SeatID] || rec.state != domain.SeatAvailable || rec.version != sv.Version {
			conflicts = append(conflicts, sv.SeatID)
		}
		seen[sv.SeatID] = true
	}

	if len(conflicts) > 0 {
		sort.Strings(conflicts)
		return nil, &ConflictError{ShowID: showID, SeatIDs: conflicts}
	}

	updated := make([]domain.SeatVersion, 0, len(expected))
	for _, sv := range expected {
		rec := inv.seats[sv.SeatID]
		rec.state = domain.SeatHeld
		rec.version++
		rec.holdID = holdID
		rec.holdExpiry = expiry

		updated = append(updated, domain.SeatVersion{SeatID: sv.SeatID, Version: rec.version})
	}

	return updated, nil
}

// ConfirmSeats transitions HELD seats to BOOKED. Every seat must currently be
// held by the given hold; otherwise nothing changes and ErrSeatsNotHeld is
// returned. BOOKED is terminal for the show.
func (s *Store) ConfirmSeats(showID string, seatIDs []string, holdID string) error {
	inv, err := s.show(showID)
	if err != nil {
		return err
	}

	inv.mu.Lock()
	defer inv.mu.Unlock()

	for _, seatID := range seatIDs {
		rec, ok := inv.seats[seatID]
		if !ok {
			return domain.ErrRecordNotFound
		}

		if rec.state != domain.SeatHeld || rec.holdID != holdID {
			return domain.ErrSeatsNotHeld
		}
	}

	for _, seatID := range seatIDs {
		rec := inv.seats[seatID]
		rec.state = domain.SeatBooked
		rec.version++
		rec.holdID = ""
		rec.holdExpiry = time.Time{}
	}

	return nil
}

// ReleaseSeats transitions seats held by the given hold back to AVAILABLE.
// Seats that are already available, booked, or held by someone else are left
// alone, which makes release safe to call twice.
func (s *Store) ReleaseSeats(showID string, seatIDs []string, holdID string) error {
	inv, err := s.show(showID)
	if err != nil {
		return err
	}

	inv.mu.Lock()
	defer inv.mu.Unlock()

	for _, seatID := range seatIDs {
		rec, ok := inv.seats[seatID]
		if !ok {
			continue
		}

		if rec.state != domain.SeatHeld || rec.holdID != holdID {
			continue
		}

		rec.state = domain.SeatAvailable
		rec.version++
		rec.holdID = ""
		rec.holdExpiry = time.Time{}
	}

	return nil
}

// Snapshot returns the full seat inventory of a show, sorted by seat ID.
func (s *Store) Snapshot(showID string) ([]domain.SeatView, error) {
	inv, err := s.show(showID)
	if err != nil {
		return nil, err
	}

	inv.mu.Lock()
	defer inv.mu.Unlock()

	views := make([]domain.SeatView, 0, len(inv.seats))
	for seatID, rec := range inv.seats {
		views = append(views, domain.SeatView{
			SeatID:     seatID,
			State:      rec.state,
			Version:    rec.version,
			HoldID:     rec.holdID,
			HoldExpiry: rec.holdExpiry,
		})
	}

	sort.Slice(views, func(i, j int) bool { return views[i].SeatID < views[j].SeatID })

	return views, nil
}
