package model

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestBookingState(t *testing.T) {
	now := time.Date(2026, 5, 1, 14, 0, 0, 0, time.UTC)
	future := now.Add(time.Minute)
	past := now.Add(-time.Minute)

	tests := []struct {
		name  string
		b     Booking
		state BookingState
		holds bool
	}{
		{"pending", Booking{ExpiresAt: &future}, StatePending, true},
		{"expires now", Booking{ExpiresAt: &now}, StatePending, true},
		{"lapsed", Booking{ExpiresAt: &past}, StateExpired, false},
		{"no expiry unpaid", Booking{}, StateExpired, false},
		{"paid", Booking{IsPaid: true}, StatePaid, true},
		{"paid with stale expiry", Booking{IsPaid: true, ExpiresAt: &past}, StatePaid, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.state, tt.b.State(now))
			assert.Equal(t, tt.holds, tt.b.HoldsSeats(now))
			assert.Equal(t, tt.state == StateExpired, tt.b.IsExpired(now))
		})
	}
}

func TestRecomputeTotal(t *testing.T) {
	b := Booking{TicketPrice: decimal.RequireFromString("412.50"), TotalAmount: decimal.NewFromInt(7)}
	b.RecomputeTotal()
	assert.True(t, decimal.NewFromInt(7).Equal(b.TotalAmount), "no seats keeps the stored total")

	b.Seats = []Seat{{ID: 1}, {ID: 2}}
	b.RecomputeTotal()
	assert.Equal(t, "825.00", b.TotalAmount.StringFixed(2))
}

func TestSeatPositionString(t *testing.T) {
	assert.Equal(t, "ряд 3, место 5", SeatPosition{Row: 3, Number: 5}.String())
	assert.Equal(t, SeatPosition{Row: 2, Number: 9}, Seat{Row: 2, Number: 9}.Position())
}
