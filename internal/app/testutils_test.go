package app

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alexedwards/scs/v2"
	"github.com/cinetix/booking-engine/internal/booking"
	"github.com/cinetix/booking-engine/internal/event"
	"github.com/cinetix/booking-engine/internal/hold"
	"github.com/cinetix/booking-engine/internal/inventory"
	"github.com/cinetix/booking-engine/internal/mocks"
	"github.com/cinetix/booking-engine/internal/validator"
	"github.com/go-chi/chi/v5"
)

func newTestApplication(opts ...func(*Application)) *Application {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	store := inventory.NewStore()
	holds := hold.NewManager(store, logger)
	dispatcher := event.NewDispatcher(logger)

	catalogRepo := &mocks.MockCatalogRepo{}
	bookingRepo := &mocks.MockBookingRepo{}
	paymentRepo := &mocks.MockPaymentRepo{}
	gateway := &mocks.MockPaymentGateway{}

	app := &Application{
		logger:         logger,
		validator:      validator.NewValidator(),
		sessionManager: scs.New(),
		store:          store,
		holds:          holds,
		dispatcher:     dispatcher,
		catalogRepo:    catalogRepo,
		bookingRepo:    bookingRepo,
		paymentRepo:    paymentRepo,
		gateway:        gateway,
	}

	app.coordinator = booking.NewCoordinator(
		store, holds, catalogRepo, bookingRepo, paymentRepo, gateway, dispatcher, logger,
	)

	for _, opt := range opts {
		opt(app)
	}

	return app
}

// setupTestSession commits a session so the request carries a stable session
// token, the way LoadAndSave would for a returning visitor. Returns the
// request with the session context and the token the handlers will see.
func setupTestSession(t *testing.T, app *Application, r *http.Request) (*http.Request, string) {
	t.Helper()

	ctx, err := app.sessionManager.Load(r.Context(), "")
	if err != nil {
		t.Fatalf("Failed to load session: %v", err)
	}

	app.sessionManager.Put(ctx, SessionKeyGuest.String(), true)

	token, _, err := app.sessionManager.Commit(ctx)
	if err != nil {
		t.Fatalf("Failed to commit session: %v", err)
	}

	ctx, err = app.sessionManager.Load(r.Context(), token)
	if err != nil {
		t.Fatalf("Failed to reload session: %v", err)
	}

	return r.WithContext(ctx), token
}

func executeRequest(t *testing.T, method, url string, body any) (*httptest.ResponseRecorder, *http.Request) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(jsonData)
	}

	r := httptest.NewRequest(method, url, reader)
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	return w, r
}

// withURLParam injects a chi route parameter without running the full router.
func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)

	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func checkErrorResponse(t *testing.T, w *httptest.ResponseRecorder, wantStatus int, wantErrMessage string) {
	t.Helper()

	if wantStatus >= 200 && wantStatus < 300 || wantErrMessage == "" {
		return
	}

	switch wantStatus {
	case http.StatusUnprocessableEntity:
		var validationResp ValidationErrorResponse
		if err := json.NewDecoder(w.Body).Decode(&validationResp); err != nil {
			t.Fatalf("Failed to decode validation error response: %v", err)
		}

		errorSet := make(map[string]bool)
		for _, vErr := range validationResp.ValidationErrors {
			errorSet[vErr.Issue] = true
		}

		if !errorSet[wantErrMessage] {
			t.Errorf("Expected validation error message '%s' not found in response", wantErrMessage)
		}

	default:
		var errorResp ErrorResponse
		if err := json.NewDecoder(w.Body).Decode(&errorResp); err != nil {
			t.Fatalf("Failed to decode error response: %v", err)
		}

		if errorResp.Message != wantErrMessage {
			t.Errorf("Error message = %v, want %v", errorResp.Message, wantErrMessage)
		}
	}
}
