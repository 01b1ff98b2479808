package repository

import (
	"context"
	"errors"

	"github.com/cinetix/booking-engine/internal/domain"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresBookingRepository struct {
	db *pgxpool.Pool
}

func NewPostgresBookingRepository(db *pgxpool.Pool) *PostgresBookingRepository {
	return &PostgresBookingRepository{
		db: db,
	}
}

func (p *PostgresBookingRepository) Create(ctx context.Context, booking *domain.Booking) error {
	return runInTx(ctx, p.db, func(tx pgx.Tx) error {
		query := `
			INSERT INTO bookings (id, show_id, user_id, customer_email, hold_id, amount, status, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`

		_, err := tx.Exec(
			ctx,
			query,
			booking.ID,
			booking.ShowID,
			booking.UserID,
			booking.CustomerEmail,
			booking.HoldID,
			booking.Amount,
			booking.Status,
			booking.CreatedAt,
			booking.UpdatedAt,
		)
		if err != nil {
			return err
		}

		rows := make([][]any, 0, len(booking.SeatIDs))
		for _, seatID := range booking.SeatIDs {
			rows = append(rows, []any{booking.ID, booking.ShowID, seatID})
		}

		_, err = tx.CopyFrom(
			ctx,
			pgx.Identifier{"booking_seats"},
			[]string{"booking_id", "show_id", "seat_id"},
			pgx.CopyFromRows(rows),
		)

		return err
	})
}

func (p *PostgresBookingRepository) UpdateStatus(ctx context.Context, bookingID string, status domain.BookingStatus, paymentRef string) error {
	query := `
		UPDATE bookings
		SET status = $1, payment_ref = NULLIF($2, ''), updated_at = NOW()
		WHERE id = $3
	`

	tag, err := p.db.Exec(ctx, query, status, paymentRef, bookingID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return domain.ErrDuplicatePayment
		}

		return err
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrRecordNotFound
	}

	return nil
}

func (p *PostgresBookingRepository) GetByID(ctx context.Context, bookingID string) (*domain.Booking, error) {
	query := `
		SELECT id, show_id, user_id, customer_email, hold_id, COALESCE(payment_ref, ''), amount, status, created_at, updated_at
		FROM bookings
		WHERE id = $1
	`

	var booking domain.Booking

	err := p.db.QueryRow(ctx, query, bookingID).Scan(
		&booking.ID,
		&booking.ShowID,
		&booking.UserID,
		&booking.CustomerEmail,
		&booking.HoldID,
		&booking.PaymentRef,
		&booking.Amount,
		&booking.Status,
		&booking.CreatedAt,
		&booking.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRecordNotFound
		}

		return nil, err
	}

	seatIDs, err := p.retrieveBookingSeats(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	booking.SeatIDs = seatIDs

	return &booking, nil
}

func (p *PostgresBookingRepository) GetByUserID(ctx context.Context, userID string) ([]domain.Booking, error) {
	query := `
		SELECT id, show_id, user_id, customer_email, hold_id, COALESCE(payment_ref, ''), amount, status, created_at, updated_at
		FROM bookings
		WHERE user_id = $1
		ORDER BY created_at DESC
	`

	rows, err := p.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bookings := make([]domain.Booking, 0)

	for rows.Next() {
		var booking domain.Booking

		err = rows.Scan(
			&booking.ID,
			&booking.ShowID,
			&booking.UserID,
			&booking.CustomerEmail,
			&booking.HoldID,
			&booking.PaymentRef,
			&booking.Amount,
			&booking.Status,
			&booking.CreatedAt,
			&booking.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}

		bookings = append(bookings, booking)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	for i := range bookings {
		seatIDs, err := p.retrieveBookingSeats(ctx, bookings[i].ID)
		if err != nil {
			return nil, err
		}

		bookings[i].SeatIDs = seatIDs
	}

	return bookings, nil
}

func (p *PostgresBookingRepository) retrieveBookingSeats(ctx context.Context, bookingID string) ([]string, error) {
	query := `
		SELECT seat_id
		FROM booking_seats
		WHERE booking_id = $1
		ORDER BY seat_id
	`

	rows, err := p.db.Query(ctx, query, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	seatIDs := make([]string, 0)

	for rows.Next() {
		var seatID string

		if err = rows.Scan(&seatID); err != nil {
			return nil, err
		}

		seatIDs = append(seatIDs, seatID)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return seatIDs, nil
}

func runInTx(ctx context.Context, db *pgxpool.Pool, fn func(tx pgx.Tx) error) error {
	var txOptions pgx.TxOptions

	tx, err := db.BeginTx(ctx, txOptions)
	if err != nil {
		return err
	}

	err = fn(tx)
	if err == nil {
		return tx.Commit(ctx)
	}

	rollbackErr := tx.Rollback(ctx)
	if rollbackErr != nil {
		return errors.Join(err, rollbackErr)
	}

	return err
}
