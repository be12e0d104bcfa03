package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/cinema-booking/internal/model"
)

// BookingRepo persists bookings and their seat links.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo constructs a BookingRepo with the given DB handle.
func NewBookingRepo(db *sql.DB) *BookingRepo {
	return &BookingRepo{db: db}
}

// holdsSeats renders the condition under which the booking aliased as alias
// still occupies its seats: it is paid, or its hold has not expired.  It
// consumes one positional argument, the current instant.  Every query that
// asks whether a seat is taken goes through this function.
func holdsSeats(alias string) string {
	return fmt.Sprintf("(%[1]s.is_paid = 1 OR %[1]s.expires_at >= ?)", alias)
}

// CommittedSeatIDsTx returns the subset of seatIDs that are held by a paid
// or unexpired booking of the showtime at now.
func (r *BookingRepo) CommittedSeatIDsTx(ctx context.Context, tx *sql.Tx, showtimeID uint64, seatIDs []uint64, now time.Time) ([]uint64, error) {
	if len(seatIDs) == 0 {
		return nil, nil
	}
	q := `SELECT DISTINCT bs.seat_id
	      FROM booking_seats bs
	      JOIN bookings b ON b.id = bs.booking_id
	      WHERE b.session_id = ? AND bs.seat_id IN (` + placeholders(len(seatIDs)) + `) AND ` + holdsSeats("b")
	args := make([]any, 0, len(seatIDs)+2)
	args = append(args, showtimeID)
	for _, id := range seatIDs {
		args = append(args, id)
	}
	args = append(args, now)

	rows, err := tx.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var taken []uint64
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		taken = append(taken, id)
	}
	return taken, rows.Err()
}

// CommittedSeats lists every seat position of the showtime that is held at
// now, ordered by row then number.
func (r *BookingRepo) CommittedSeats(ctx context.Context, showtimeID uint64, now time.Time) ([]model.SeatPosition, error) {
	q := `SELECT DISTINCT s.seat_row, s.seat_number
	      FROM booking_seats bs
	      JOIN bookings b ON b.id = bs.booking_id
	      JOIN seats s ON s.id = bs.seat_id
	      WHERE b.session_id = ? AND ` + holdsSeats("b") + `
	      ORDER BY s.seat_row, s.seat_number`
	rows, err := r.db.QueryContext(ctx, q, showtimeID, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.SeatPosition
	for rows.Next() {
		var p model.SeatPosition
		if err := rows.Scan(&p.Row, &p.Number); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// CreateTx inserts the booking row and populates b.ID.  Seats are linked
// separately through AttachSeatsTx.
func (r *BookingRepo) CreateTx(ctx context.Context, tx *sql.Tx, b *model.Booking) error {
	const q = `INSERT INTO bookings (user_id, session_id, ticket_price, total_amount, created_at, expires_at, is_paid)
	           VALUES (?, ?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q,
		b.UserID, b.ShowtimeID, b.TicketPrice, b.TotalAmount, b.CreatedAt, nullTime(b.ExpiresAt), b.IsPaid)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	return nil
}

// AttachSeatsTx links seats to a booking in a single statement.
func (r *BookingRepo) AttachSeatsTx(ctx context.Context, tx *sql.Tx, bookingID uint64, seatIDs []uint64) error {
	if len(seatIDs) == 0 {
		return nil
	}
	query := `INSERT INTO booking_seats (booking_id, seat_id) VALUES `
	args := make([]any, 0, len(seatIDs)*2)
	for i, id := range seatIDs {
		if i > 0 {
			query += ","
		}
		query += "(?, ?)"
		args = append(args, bookingID, id)
	}
	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

const bookingColumns = `id, user_id, session_id, ticket_price, total_amount, created_at, expires_at, is_paid`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(row rowScanner) (*model.Booking, error) {
	var (
		b   model.Booking
		exp sql.NullTime
	)
	if err := row.Scan(&b.ID, &b.UserID, &b.ShowtimeID, &b.TicketPrice, &b.TotalAmount, &b.CreatedAt, &exp, &b.IsPaid); err != nil {
		return nil, err
	}
	if exp.Valid {
		t := exp.Time
		b.ExpiresAt = &t
	}
	return &b, nil
}

// LockTx loads a booking by id and locks its row for the lifetime of tx.
func (r *BookingRepo) LockTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Booking, error) {
	b, err := scanBooking(tx.QueryRowContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE id = ? FOR UPDATE`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBookingNotFound
	}
	return b, err
}

// MarkPaidTx flags the booking as paid and clears its expiry.
func (r *BookingRepo) MarkPaidTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	res, err := tx.ExecContext(ctx, `UPDATE bookings SET is_paid = 1, expires_at = NULL WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrBookingNotFound
	}
	return nil
}

// GetByIDForUser loads a booking with its seats.  Bookings of other users
// are reported as ErrBookingNotFound.
func (r *BookingRepo) GetByIDForUser(ctx context.Context, id, userID uint64) (*model.Booking, error) {
	b, err := scanBooking(r.db.QueryRowContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE id = ? AND user_id = ?`, id, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, err
	}
	seats, err := r.seatsFor(ctx, []uint64{b.ID})
	if err != nil {
		return nil, err
	}
	b.Seats = seats[b.ID]
	return b, nil
}

// ListByUser returns the user's bookings, newest first, with seats.
func (r *BookingRepo) ListByUser(ctx context.Context, userID uint64) ([]model.Booking, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE user_id = ? ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var (
		out []model.Booking
		ids []uint64
	)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
		ids = append(ids, b.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return out, nil
	}
	seats, err := r.seatsFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Seats = seats[out[i].ID]
	}
	return out, nil
}

// seatsFor loads the seats of the given bookings keyed by booking id.
func (r *BookingRepo) seatsFor(ctx context.Context, bookingIDs []uint64) (map[uint64][]model.Seat, error) {
	q := `SELECT bs.booking_id, s.id, s.hall_id, s.seat_row, s.seat_number, s.is_available
	      FROM booking_seats bs
	      JOIN seats s ON s.id = bs.seat_id
	      WHERE bs.booking_id IN (` + placeholders(len(bookingIDs)) + `)
	      ORDER BY s.seat_row, s.seat_number`
	args := make([]any, len(bookingIDs))
	for i, id := range bookingIDs {
		args[i] = id
	}
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[uint64][]model.Seat, len(bookingIDs))
	for rows.Next() {
		var (
			bookingID uint64
			s         model.Seat
		)
		if err := rows.Scan(&bookingID, &s.ID, &s.HallID, &s.Row, &s.Number, &s.IsAvailable); err != nil {
			return nil, err
		}
		out[bookingID] = append(out[bookingID], s)
	}
	return out, rows.Err()
}

// PurgeExpired deletes unpaid bookings whose hold lapsed before cutoff.
// Their seat links go with them through the foreign key cascade.
func (r *BookingRepo) PurgeExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM bookings WHERE is_paid = 0 AND expires_at IS NOT NULL AND expires_at < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
