package repository

import (
	"context"
	"errors"

	"github.com/cinetix/booking-engine/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresCatalogRepository serves immutable show definitions. The engine
// reads these once at startup to initialize the seat inventory.
type PostgresCatalogRepository struct {
	db *pgxpool.Pool
}

func NewPostgresCatalogRepository(db *pgxpool.Pool) *PostgresCatalogRepository {
	return &PostgresCatalogRepository{
		db: db,
	}
}

func (p *PostgresCatalogRepository) GetShow(ctx context.Context, showID string) (*domain.Show, error) {
	query := `
		SELECT id, movie_title, theater_name, hall_name, start_time, base_price
		FROM shows
		WHERE id = $1
	`

	var show domain.Show

	err := p.db.QueryRow(ctx, query, showID).Scan(
		&show.ID,
		&show.MovieTitle,
		&show.TheaterName,
		&show.HallName,
		&show.StartTime,
		&show.BasePrice,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRecordNotFound
		}

		return nil, err
	}

	seats, err := p.retrieveShowSeats(ctx, showID)
	if err != nil {
		return nil, err
	}

	show.Seats = seats

	return &show, nil
}

func (p *PostgresCatalogRepository) GetShows(ctx context.Context) ([]domain.Show, error) {
	query := `
		SELECT id, movie_title, theater_name, hall_name, start_time, base_price
		FROM shows
		ORDER BY start_time
	`

	rows, err := p.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	shows := make([]domain.Show, 0)

	for rows.Next() {
		var show domain.Show

		err = rows.Scan(
			&show.ID,
			&show.MovieTitle,
			&show.TheaterName,
			&show.HallName,
			&show.StartTime,
			&show.BasePrice,
		)
		if err != nil {
			return nil, err
		}

		shows = append(shows, show)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	for i := range shows {
		seats, err := p.retrieveShowSeats(ctx, shows[i].ID)
		if err != nil {
			return nil, err
		}

		shows[i].Seats = seats
	}

	return shows, nil
}

func (p *PostgresCatalogRepository) retrieveShowSeats(ctx context.Context, showID string) ([]domain.SeatDefinition, error) {
	query := `
		SELECT seat_id, seat_row, seat_col, category, extra_price
		FROM show_seats
		WHERE show_id = $1
		ORDER BY seat_row, seat_col
	`

	rows, err := p.db.Query(ctx, query, showID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	seats := make([]domain.SeatDefinition, 0)

	for rows.Next() {
		var seat domain.SeatDefinition

		err = rows.Scan(
			&seat.ID,
			&seat.Row,
			&seat.Col,
			&seat.Category,
			&seat.ExtraPrice,
		)
		if err != nil {
			return nil, err
		}

		seats = append(seats, seat)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return seats, nil
}
