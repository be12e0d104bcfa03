package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/cinema-booking/internal/model"
)

// Store is the persistence boundary used by the booking service.  Write
// paths run through WithTx; the remaining methods serve reads outside any
// transaction.
type Store interface {
	// WithTx runs fn inside one transaction.  The transaction commits when
	// fn returns nil and rolls back otherwise; fn's error is returned as is.
	// fn may run again in a fresh transaction after a lock deadlock, so it
	// must not keep state from a failed attempt.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	GetShowtime(ctx context.Context, id uint64) (*model.Showtime, error)
	GetHall(ctx context.Context, id uint64) (*model.Hall, error)
	// CommittedSeats lists the seat positions of a showtime that are held by
	// a paid or unexpired booking at now.
	CommittedSeats(ctx context.Context, showtimeID uint64, now time.Time) ([]model.SeatPosition, error)
	GetBookingForUser(ctx context.Context, bookingID, userID uint64) (*model.Booking, error)
	ListBookingsByUser(ctx context.Context, userID uint64) ([]model.Booking, error)
}

// Tx is the set of operations available inside a booking transaction.
type Tx interface {
	// LockShowtime loads the showtime and holds a row lock on it until the
	// transaction ends, serializing bookings for the same showtime.
	LockShowtime(ctx context.Context, id uint64) (*model.Showtime, error)
	// ResolveSeat returns the seat at pos in the hall, creating it on first
	// reference.
	ResolveSeat(ctx context.Context, hallID uint64, pos model.SeatPosition) (model.Seat, error)
	// CommittedSeatIDs returns the subset of seatIDs already committed to a
	// booking of the showtime at now.
	CommittedSeatIDs(ctx context.Context, showtimeID uint64, seatIDs []uint64, now time.Time) ([]uint64, error)
	InsertBooking(ctx context.Context, b *model.Booking) error
	AttachSeats(ctx context.Context, bookingID uint64, seatIDs []uint64) error
	// LockBooking loads a booking (without seats) and locks its row.
	LockBooking(ctx context.Context, id uint64) (*model.Booking, error)
	MarkPaid(ctx context.Context, id uint64) error
}

// UserStore persists user accounts for the auth endpoints.
type UserStore interface {
	CreateUser(ctx context.Context, email, passwordHash string) (uint64, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByID(ctx context.Context, id uint64) (*model.User, error)
}

// MySQLStore implements Store on top of the individual MySQL repositories.
type MySQLStore struct {
	db        *sql.DB
	Showtimes *ShowtimeRepo
	Seats     *SeatRepo
	Bookings  *BookingRepo
}

// NewMySQLStore wires the repositories around a shared *sql.DB.
func NewMySQLStore(db *sql.DB) *MySQLStore {
	return &MySQLStore{
		db:        db,
		Showtimes: NewShowtimeRepo(db),
		Seats:     NewSeatRepo(db),
		Bookings:  NewBookingRepo(db),
	}
}

// DB exposes the underlying sql.DB.
func (s *MySQLStore) DB() *sql.DB { return s.db }

// maxTxAttempts bounds how often WithTx reruns a transaction that InnoDB
// rolled back on a deadlock or lock wait timeout.
const maxTxAttempts = 3

// WithTx runs fn in a READ COMMITTED transaction, rerunning it when InnoDB
// aborts it on a deadlock or lock wait timeout.
func (s *MySQLStore) WithTx(ctx context.Context, fn func(tx Tx) error) error {
	for attempt := 1; ; attempt++ {
		err := s.runTx(ctx, fn)
		if err == nil || !isRetryableLock(err) || attempt == maxTxAttempts {
			return err
		}
		select {
		case <-ctx.Done():
			return err
		case <-time.After(time.Duration(attempt) * 10 * time.Millisecond):
		}
	}
}

// runTx is one transaction attempt.  Every statement inside it sees rows
// committed before the statement started, so the availability check that
// runs after the showtime lock observes any booking committed by the
// previous lock holder.
func (s *MySQLStore) runTx(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(&mysqlTx{tx: tx, s: s}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	committed = true
	return nil
}

func (s *MySQLStore) GetShowtime(ctx context.Context, id uint64) (*model.Showtime, error) {
	return s.Showtimes.GetByID(ctx, id)
}

func (s *MySQLStore) GetHall(ctx context.Context, id uint64) (*model.Hall, error) {
	return s.Showtimes.GetHall(ctx, id)
}

func (s *MySQLStore) CommittedSeats(ctx context.Context, showtimeID uint64, now time.Time) ([]model.SeatPosition, error) {
	return s.Bookings.CommittedSeats(ctx, showtimeID, now)
}

func (s *MySQLStore) GetBookingForUser(ctx context.Context, bookingID, userID uint64) (*model.Booking, error) {
	return s.Bookings.GetByIDForUser(ctx, bookingID, userID)
}

func (s *MySQLStore) ListBookingsByUser(ctx context.Context, userID uint64) ([]model.Booking, error) {
	return s.Bookings.ListByUser(ctx, userID)
}

// mysqlTx binds a *sql.Tx to the repositories' Tx methods.
type mysqlTx struct {
	tx *sql.Tx
	s  *MySQLStore
}

func (t *mysqlTx) LockShowtime(ctx context.Context, id uint64) (*model.Showtime, error) {
	return t.s.Showtimes.LockTx(ctx, t.tx, id)
}

func (t *mysqlTx) ResolveSeat(ctx context.Context, hallID uint64, pos model.SeatPosition) (model.Seat, error) {
	return t.s.Seats.ResolveTx(ctx, t.tx, hallID, pos)
}

func (t *mysqlTx) CommittedSeatIDs(ctx context.Context, showtimeID uint64, seatIDs []uint64, now time.Time) ([]uint64, error) {
	return t.s.Bookings.CommittedSeatIDsTx(ctx, t.tx, showtimeID, seatIDs, now)
}

func (t *mysqlTx) InsertBooking(ctx context.Context, b *model.Booking) error {
	return t.s.Bookings.CreateTx(ctx, t.tx, b)
}

func (t *mysqlTx) AttachSeats(ctx context.Context, bookingID uint64, seatIDs []uint64) error {
	return t.s.Bookings.AttachSeatsTx(ctx, t.tx, bookingID, seatIDs)
}

func (t *mysqlTx) LockBooking(ctx context.Context, id uint64) (*model.Booking, error) {
	return t.s.Bookings.LockTx(ctx, t.tx, id)
}

func (t *mysqlTx) MarkPaid(ctx context.Context, id uint64) error {
	return t.s.Bookings.MarkPaidTx(ctx, t.tx, id)
}

// placeholders returns "?, ?, ?" for n arguments.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

var (
	_ Store = (*MySQLStore)(nil)
	_ Tx    = (*mysqlTx)(nil)
)
