package mocks

import (
	"context"

	"github.com/cinetix/booking-engine/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

type MockPaymentGateway struct {
	mock.Mock
	domain.PaymentGateway
}

func (m *MockPaymentGateway) Charge(ctx context.Context, amount decimal.Decimal, method string) (*domain.ChargeResult, error) {
	args := m.Called(ctx, amount, method)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ChargeResult), args.Error(1)
}

func (m *MockPaymentGateway) Refund(ctx context.Context, reference string, amount decimal.Decimal) error {
	args := m.Called(ctx, reference, amount)
	return args.Error(0)
}
