package mocks

import (
	"context"

	"github.com/cinetix/booking-engine/internal/domain"
	"github.com/stretchr/testify/mock"
)

type MockPaymentRepo struct {
	mock.Mock
	domain.PaymentRepository
}

func (m *MockPaymentRepo) Create(ctx context.Context, payment *domain.Payment) error {
	args := m.Called(ctx, payment)
	return args.Error(0)
}

func (m *MockPaymentRepo) UpdateStatus(ctx context.Context, bookingID string, status domain.PaymentStatus, reference, errMsg string) error {
	args := m.Called(ctx, bookingID, status, reference, errMsg)
	return args.Error(0)
}
