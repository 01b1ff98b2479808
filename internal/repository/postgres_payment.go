package repository

import (
	"context"
	"errors"

	"github.com/cinetix/booking-engine/internal/domain"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresPaymentRepository struct {
	db *pgxpool.Pool
}

func NewPostgresPaymentRepository(db *pgxpool.Pool) *PostgresPaymentRepository {
	return &PostgresPaymentRepository{
		db: db,
	}
}

func (p *PostgresPaymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	query := `
		INSERT INTO payments (booking_id, amount, currency, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`

	err := p.db.QueryRow(
		ctx,
		query,
		payment.BookingID,
		payment.Amount,
		payment.Currency,
		payment.Status,
	).Scan(&payment.ID, &payment.CreatedAt)

	return err
}

func (p *PostgresPaymentRepository) UpdateStatus(
	ctx context.Context,
	bookingID string,
	status domain.PaymentStatus,
	reference, errMsg string) error {

	query := `
		UPDATE payments
		SET status = $1, reference = NULLIF($2, ''), error_message = NULLIF($3, ''), updated_at = NOW()
		WHERE booking_id = $4
	`

	_, err := p.db.Exec(ctx, query, status, reference, errMsg, bookingID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return domain.ErrDuplicatePayment
		}

		return err
	}

	return nil
}
