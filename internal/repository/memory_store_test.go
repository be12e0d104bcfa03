package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cinema-booking/internal/model"
)

func TestMemoryStore_ResolveSeatIsIdempotent(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	pos := model.SeatPosition{Row: 3, Number: 5}

	var first, second model.Seat
	require.NoError(t, s.WithTx(ctx, func(tx Tx) error {
		var err error
		first, err = tx.ResolveSeat(ctx, 1, pos)
		return err
	}))
	require.NoError(t, s.WithTx(ctx, func(tx Tx) error {
		var err error
		second, err = tx.ResolveSeat(ctx, 1, pos)
		return err
	}))
	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, s.seats, 1)

	var otherHall model.Seat
	require.NoError(t, s.WithTx(ctx, func(tx Tx) error {
		var err error
		otherHall, err = tx.ResolveSeat(ctx, 2, pos)
		return err
	}))
	assert.NotEqual(t, first.ID, otherHall.ID)
}

func TestMemoryStore_RollbackRestoresState(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	st := s.AddShowtime(model.Showtime{HallID: 1, Price: decimal.NewFromInt(100)})
	boom := errors.New("boom")

	err := s.WithTx(ctx, func(tx Tx) error {
		seat, err := tx.ResolveSeat(ctx, 1, model.SeatPosition{Row: 1, Number: 1})
		require.NoError(t, err)
		b := &model.Booking{UserID: 1, ShowtimeID: st.ID, IsPaid: true}
		require.NoError(t, tx.InsertBooking(ctx, b))
		require.NoError(t, tx.AttachSeats(ctx, b.ID, []uint64{seat.ID}))
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.Empty(t, s.seats)
	assert.Empty(t, s.bookings)

	taken, err := s.CommittedSeats(ctx, st.ID, time.Now())
	require.NoError(t, err)
	assert.Empty(t, taken)
}

func TestMemoryStore_CommittedSeatIDs(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	now := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	past := now.Add(-time.Second)
	future := now.Add(time.Hour)

	var a, b, c model.Seat
	require.NoError(t, s.WithTx(ctx, func(tx Tx) error {
		a, _ = tx.ResolveSeat(ctx, 1, model.SeatPosition{Row: 1, Number: 1})
		b, _ = tx.ResolveSeat(ctx, 1, model.SeatPosition{Row: 1, Number: 2})
		c, _ = tx.ResolveSeat(ctx, 1, model.SeatPosition{Row: 1, Number: 3})
		for _, bk := range []struct {
			seat model.Seat
			b    model.Booking
		}{
			{a, model.Booking{ShowtimeID: 7, ExpiresAt: &future}},
			{b, model.Booking{ShowtimeID: 7, ExpiresAt: &past}},
			{c, model.Booking{ShowtimeID: 8, IsPaid: true}},
		} {
			row := bk.b
			if err := tx.InsertBooking(ctx, &row); err != nil {
				return err
			}
			if err := tx.AttachSeats(ctx, row.ID, []uint64{bk.seat.ID}); err != nil {
				return err
			}
		}
		return nil
	}))

	require.NoError(t, s.WithTx(ctx, func(tx Tx) error {
		taken, err := tx.CommittedSeatIDs(ctx, 7, []uint64{a.ID, b.ID, c.ID}, now)
		require.NoError(t, err)
		assert.Equal(t, []uint64{a.ID}, taken)
		return nil
	}))
}

func TestMemoryStore_Users(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	id, err := s.CreateUser(ctx, " Viewer@Example.com ", "hash")
	require.NoError(t, err)

	_, err = s.CreateUser(ctx, "viewer@example.com", "hash2")
	assert.ErrorIs(t, err, ErrEmailExists)

	u, err := s.GetUserByEmail(ctx, "VIEWER@example.com")
	require.NoError(t, err)
	assert.Equal(t, id, u.ID)

	_, err = s.GetUserByID(ctx, id+1)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestMemoryStore_PurgeExpired(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	now := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	old := now.Add(-48 * time.Hour)
	recent := now.Add(-time.Hour)

	require.NoError(t, s.WithTx(ctx, func(tx Tx) error {
		for _, b := range []model.Booking{
			{UserID: 1, ShowtimeID: 1, ExpiresAt: &old},
			{UserID: 1, ShowtimeID: 1, ExpiresAt: &recent},
			{UserID: 1, ShowtimeID: 1, IsPaid: true},
		} {
			row := b
			if err := tx.InsertBooking(ctx, &row); err != nil {
				return err
			}
		}
		return nil
	}))

	n, err := s.PurgeExpired(ctx, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	left, err := s.ListBookingsByUser(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, left, 2)
}
