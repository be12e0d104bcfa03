package model

import "fmt"

// Seat describes a physical seat in a hall.  Seats are uniquely identified
// by their hall, row and number and are created on first reference, so the
// set of known seats grows as bookings mention new positions.  A seat row
// is shared by every booking that ever referenced that position.
type Seat struct {
	ID          uint64 // seats.id
	HallID      uint64 // seats.hall_id
	Row         uint32 // seats.seat_row
	Number      uint32 // seats.seat_number
	IsAvailable bool   // seats.is_available; false takes the seat out of sale
}

// Position returns the (row, number) pair of the seat.
func (s Seat) Position() SeatPosition {
	return SeatPosition{Row: s.Row, Number: s.Number}
}

// SeatPosition is a (row, number) coordinate inside a hall.
type SeatPosition struct {
	Row    uint32 `json:"row"`
	Number uint32 `json:"seat"`
}

// Less orders positions by row, then number.
func (p SeatPosition) Less(q SeatPosition) bool {
	if p.Row != q.Row {
		return p.Row < q.Row
	}
	return p.Number < q.Number
}

func (p SeatPosition) String() string {
	return fmt.Sprintf("ряд %d, место %d", p.Row, p.Number)
}
