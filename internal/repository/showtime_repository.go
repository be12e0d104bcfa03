package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/cinema-booking/internal/model"
)

// ShowtimeRepo reads showtimes and halls.  The catalog owns these rows; the
// booking core only reads them and takes row locks on showtimes.
type ShowtimeRepo struct {
	db *sql.DB
}

// NewShowtimeRepo constructs a ShowtimeRepo with the given DB handle.
func NewShowtimeRepo(db *sql.DB) *ShowtimeRepo {
	return &ShowtimeRepo{db: db}
}

const showtimeColumns = `id, hall_id, movie_title, start_time, end_time, price, format`

func scanShowtime(row *sql.Row) (*model.Showtime, error) {
	var s model.Showtime
	if err := row.Scan(&s.ID, &s.HallID, &s.MovieTitle, &s.StartTime, &s.EndTime, &s.Price, &s.Format); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrShowtimeNotFound
		}
		return nil, err
	}
	return &s, nil
}

// GetByID retrieves a showtime by id.
func (r *ShowtimeRepo) GetByID(ctx context.Context, id uint64) (*model.Showtime, error) {
	return scanShowtime(r.db.QueryRowContext(ctx,
		`SELECT `+showtimeColumns+` FROM sessions WHERE id = ?`, id))
}

// LockTx retrieves a showtime and locks its row for the lifetime of tx.
// Concurrent bookings of the same showtime queue on this lock, while
// bookings of different showtimes proceed independently.
func (r *ShowtimeRepo) LockTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Showtime, error) {
	return scanShowtime(tx.QueryRowContext(ctx,
		`SELECT `+showtimeColumns+` FROM sessions WHERE id = ? FOR UPDATE`, id))
}

// GetHall retrieves a hall with its raw scheme document.
func (r *ShowtimeRepo) GetHall(ctx context.Context, id uint64) (*model.Hall, error) {
	const q = `SELECT id, name, scheme_data FROM halls WHERE id = ?`
	var (
		h      model.Hall
		scheme []byte
	)
	if err := r.db.QueryRowContext(ctx, q, id).Scan(&h.ID, &h.Name, &scheme); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrHallNotFound
		}
		return nil, err
	}
	h.SchemeData = scheme
	return &h, nil
}

// CreateHall inserts a hall and populates its ID.
func (r *ShowtimeRepo) CreateHall(ctx context.Context, h *model.Hall) error {
	var scheme any
	if len(h.SchemeData) > 0 {
		scheme = []byte(h.SchemeData)
	}
	res, err := r.db.ExecContext(ctx, `INSERT INTO halls (name, scheme_data) VALUES (?, ?)`, h.Name, scheme)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	h.ID = uint64(id)
	return nil
}

// Create inserts a showtime and populates its ID.
func (r *ShowtimeRepo) Create(ctx context.Context, s *model.Showtime) error {
	const q = `INSERT INTO sessions (hall_id, movie_title, start_time, end_time, price, format)
	           VALUES (?, ?, ?, ?, ?, ?)`
	format := s.Format
	if format == "" {
		format = model.Format2D
	}
	res, err := r.db.ExecContext(ctx, q, s.HallID, s.MovieTitle, s.StartTime, s.EndTime, s.Price, format)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	s.Format = format
	return nil
}
