package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// BookingState is the lifecycle state of a booking at a given instant.
// It is derived from IsPaid and ExpiresAt and never stored.
type BookingState string

const (
	// StatePending is an unpaid hold that has not expired yet.
	StatePending BookingState = "PENDING"
	// StateExpired is an unpaid hold whose expiry has passed.  Its seats are
	// available again although the row remains until cleanup.
	StateExpired BookingState = "EXPIRED"
	// StatePaid is a purchased booking.  Terminal.
	StatePaid BookingState = "PAID"
)

// Booking represents a hold or a purchase of one or more seats for a
// showtime.
//
// Fields:
//
//	ID          – primary key identifier.
//	UserID      – owning user.
//	ShowtimeID  – showtime the seats are booked for.
//	Seats       – seats attached to the booking.
//	TicketPrice – per-seat price (showtime price plus booking fee).
//	TotalAmount – TicketPrice × number of seats.
//	CreatedAt   – creation timestamp.
//	ExpiresAt   – hold expiry; nil once paid or when bought outright.
//	IsPaid      – whether the booking has been paid.
type Booking struct {
	ID          uint64
	UserID      uint64
	ShowtimeID  uint64
	Seats       []Seat
	TicketPrice decimal.Decimal
	TotalAmount decimal.Decimal
	CreatedAt   time.Time
	ExpiresAt   *time.Time
	IsPaid      bool
}

// State reports the lifecycle state of the booking at now.  A hold is still
// pending at the exact expiry instant, matching the availability predicate
// expires_at >= now.
func (b *Booking) State(now time.Time) BookingState {
	if b.IsPaid {
		return StatePaid
	}
	if b.ExpiresAt == nil || b.ExpiresAt.Before(now) {
		return StateExpired
	}
	return StatePending
}

// HoldsSeats reports whether the booking occupies its seats at now: it is
// paid, or its hold expires at or after now.
func (b *Booking) HoldsSeats(now time.Time) bool {
	return b.IsPaid || (b.ExpiresAt != nil && !b.ExpiresAt.Before(now))
}

// IsExpired reports whether the booking is an unpaid, lapsed hold.
func (b *Booking) IsExpired(now time.Time) bool {
	return b.State(now) == StateExpired
}

// RecomputeTotal sets TotalAmount to TicketPrice × len(Seats).  It is a
// no-op while no seats are attached.
func (b *Booking) RecomputeTotal() {
	if len(b.Seats) == 0 {
		return
	}
	b.TotalAmount = TotalFor(b.TicketPrice, len(b.Seats))
}

// TotalFor returns price × count.
func TotalFor(price decimal.Decimal, count int) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(int64(count)))
}
