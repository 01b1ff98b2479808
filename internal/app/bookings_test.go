package app

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/cinetix/booking-engine/internal/domain"
	"github.com/cinetix/booking-engine/internal/mocks"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

type BookingsTestSuite struct {
	suite.Suite
	app         *Application
	bookingRepo *mocks.MockBookingRepo
}

func TestBookingsSuite(t *testing.T) {
	suite.Run(t, new(BookingsTestSuite))
}

func (s *BookingsTestSuite) SetupTest() {
	s.app = newTestApplication()
	s.bookingRepo = s.app.bookingRepo.(*mocks.MockBookingRepo)
}

func (s *BookingsTestSuite) booking(userID string) *domain.Booking {
	return &domain.Booking{
		ID:         "booking-1",
		ShowID:     testShow.ID,
		SeatIDs:    []string{"A1", "A2"},
		UserID:     userID,
		PaymentRef: "pi_123",
		Amount:     decimal.NewFromInt(115),
		Status:     domain.BookingConfirmed,
		CreatedAt:  time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC),
	}
}

func (s *BookingsTestSuite) TestGetBookingHandler() {
	w, r := executeRequest(s.T(), http.MethodGet, "/bookings/booking-1", nil)
	r = withURLParam(r, "bookingID", "booking-1")
	r, token := setupTestSession(s.T(), s.app, r)

	s.bookingRepo.On("GetByID", mock.Anything, "booking-1").Return(s.booking(token), nil)

	s.app.GetBookingHandler(w, r)

	s.Equal(http.StatusOK, w.Code)

	var resp BookingResponse
	s.Require().NoError(json.NewDecoder(w.Body).Decode(&resp))

	s.Equal("booking-1", resp.ID)
	s.Equal(string(domain.BookingConfirmed), resp.Status)
	s.Equal("pi_123", resp.PaymentRef)
}

func (s *BookingsTestSuite) TestGetBookingHandlerHidesForeignBookings() {
	w, r := executeRequest(s.T(), http.MethodGet, "/bookings/booking-1", nil)
	r = withURLParam(r, "bookingID", "booking-1")
	r, _ = setupTestSession(s.T(), s.app, r)

	s.bookingRepo.On("GetByID", mock.Anything, "booking-1").Return(s.booking("someone-else"), nil)

	s.app.GetBookingHandler(w, r)

	s.Equal(http.StatusNotFound, w.Code)
	checkErrorResponse(s.T(), w, http.StatusNotFound, ErrNotFound)
}

func (s *BookingsTestSuite) TestGetBookingHandlerUnknownBooking() {
	w, r := executeRequest(s.T(), http.MethodGet, "/bookings/nope", nil)
	r = withURLParam(r, "bookingID", "nope")
	r, _ = setupTestSession(s.T(), s.app, r)

	s.bookingRepo.On("GetByID", mock.Anything, "nope").Return(nil, domain.ErrRecordNotFound)

	s.app.GetBookingHandler(w, r)

	s.Equal(http.StatusNotFound, w.Code)
}
