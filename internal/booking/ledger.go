package booking

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/cinema-booking/internal/model"
	"github.com/iliyamo/cinema-booking/internal/repository"
)

// Request is a validated seat selection for one showtime.
type Request struct {
	UserID     uint64
	ShowtimeID uint64
	Seats      []model.SeatPosition
	Action     Action
}

// Ledger is the transactional write path for bookings.
//
// Fields:
//
//	store  – persistence boundary providing transactions.
//	policy – expiry policy stamping new holds.
//	fee    – fixed per-seat booking fee added to the showtime price.
type Ledger struct {
	store  repository.Store
	policy Policy
	fee    decimal.Decimal
}

// NewLedger constructs a Ledger.
func NewLedger(store repository.Store, policy Policy, fee decimal.Decimal) *Ledger {
	return &Ledger{store: store, policy: policy, fee: fee}
}

// Commit creates the booking described by req at instant now.  Inside one
// transaction it locks the showtime, resolves every seat, verifies none is
// held by another booking and inserts the booking with its seats.  On a
// conflict nothing is persisted and a *SeatConflictError is returned.
func (l *Ledger) Commit(ctx context.Context, req Request, now time.Time) (*model.Booking, *model.Showtime, error) {
	var (
		booking  *model.Booking
		showtime *model.Showtime
	)
	err := l.store.WithTx(ctx, func(tx repository.Tx) error {
		st, err := tx.LockShowtime(ctx, req.ShowtimeID)
		if err != nil {
			return translate(err)
		}
		seats, err := resolveSeats(ctx, tx, st.HallID, req.Seats)
		if err != nil {
			return err
		}
		if err := ensureAvailable(ctx, tx, st.ID, seats, now); err != nil {
			return err
		}

		price := st.Price.Add(l.fee)
		b := &model.Booking{
			UserID:      req.UserID,
			ShowtimeID:  st.ID,
			Seats:       seats,
			TicketPrice: price,
			TotalAmount: model.TotalFor(price, len(seats)),
			CreatedAt:   now,
			ExpiresAt:   l.policy.ExpiresAt(req.Action, now),
			IsPaid:      req.Action == ActionPurchase,
		}
		if err := tx.InsertBooking(ctx, b); err != nil {
			return err
		}
		ids := make([]uint64, len(seats))
		for i, s := range seats {
			ids[i] = s.ID
		}
		if err := tx.AttachSeats(ctx, b.ID, ids); err != nil {
			return err
		}
		booking, showtime = b, st
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return booking, showtime, nil
}

// Pay marks the user's pending hold as paid at instant now.  Paying a hold
// that already lapsed is refused because its seats may have been taken by
// someone else in the meantime.
func (l *Ledger) Pay(ctx context.Context, userID, bookingID uint64, now time.Time) (*model.Booking, error) {
	var paid *model.Booking
	err := l.store.WithTx(ctx, func(tx repository.Tx) error {
		b, err := tx.LockBooking(ctx, bookingID)
		if err != nil {
			return translate(err)
		}
		switch {
		case b.UserID != userID:
			return ErrForbidden
		case b.IsPaid:
			return ErrAlreadyPaid
		case b.IsExpired(now):
			return ErrBookingExpired
		}
		if err := tx.MarkPaid(ctx, b.ID); err != nil {
			return translate(err)
		}
		b.IsPaid = true
		b.ExpiresAt = nil
		paid = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return paid, nil
}
