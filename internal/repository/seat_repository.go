package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iliyamo/cinema-booking/internal/model"
)

// SeatRepo provides get-or-create access to the seats of a hall.
type SeatRepo struct {
	db *sql.DB
}

// NewSeatRepo constructs a SeatRepo with the given DB handle.
func NewSeatRepo(db *sql.DB) *SeatRepo {
	return &SeatRepo{db: db}
}

const selectSeatByPosition = `SELECT id, hall_id, seat_row, seat_number, is_available
	FROM seats WHERE hall_id = ? AND seat_row = ? AND seat_number = ?`

// ResolveTx returns the seat at pos in the hall, creating it when no row
// exists yet.  Two transactions may race to create the same position; the
// loser hits the unique key on (hall_id, seat_row, seat_number) and reads
// the winner's row instead, so callers always get the canonical seat.
func (r *SeatRepo) ResolveTx(ctx context.Context, tx *sql.Tx, hallID uint64, pos model.SeatPosition) (model.Seat, error) {
	s, err := r.findTx(ctx, tx, hallID, pos)
	if err == nil {
		return s, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return model.Seat{}, err
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO seats (hall_id, seat_row, seat_number, is_available) VALUES (?, ?, ?, 1)`,
		hallID, pos.Row, pos.Number)
	if err != nil {
		if isDuplicateKey(err) {
			s, err = r.findTx(ctx, tx, hallID, pos)
			if err != nil {
				return model.Seat{}, fmt.Errorf("reload seat %s: %w", pos, err)
			}
			return s, nil
		}
		return model.Seat{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Seat{}, err
	}
	return model.Seat{ID: uint64(id), HallID: hallID, Row: pos.Row, Number: pos.Number, IsAvailable: true}, nil
}

func (r *SeatRepo) findTx(ctx context.Context, tx *sql.Tx, hallID uint64, pos model.SeatPosition) (model.Seat, error) {
	var s model.Seat
	err := tx.QueryRowContext(ctx, selectSeatByPosition, hallID, pos.Row, pos.Number).
		Scan(&s.ID, &s.HallID, &s.Row, &s.Number, &s.IsAvailable)
	return s, err
}
