package model

import "encoding/json"

// Hall is a screening hall together with its seating scheme.  The scheme is
// stored as an opaque JSON document produced by the hall editor; the booking
// core only reads it to describe the layout to clients.
type Hall struct {
	ID         uint64          // halls.id
	Name       string          // halls.name
	SchemeData json.RawMessage // halls.scheme_data (nullable)
}

// HallScheme is the decoded form of Hall.SchemeData.
type HallScheme struct {
	Rows   int          `json:"rows"`
	Cols   int          `json:"cols"`
	Screen string       `json:"screen"`
	Seats  []SchemeSeat `json:"seats"`
}

// SchemeSeat is one cell of the hall grid.  Active cells are real seats.
type SchemeSeat struct {
	Row    int  `json:"row"`
	Col    int  `json:"col"`
	Active bool `json:"active"`
}

// ParseScheme decodes a hall scheme.  Missing or malformed data yields an
// empty scheme rather than an error because the layout is informational.
func ParseScheme(raw []byte) HallScheme {
	var s HallScheme
	if len(raw) == 0 {
		return s
	}
	if err := json.Unmarshal(raw, &s); err != nil {
		return HallScheme{}
	}
	return s
}

// ActiveSeats returns the active grid cells as seat positions.
func (s HallScheme) ActiveSeats() []SeatPosition {
	out := make([]SeatPosition, 0, len(s.Seats))
	for _, c := range s.Seats {
		if c.Active && c.Row > 0 && c.Col > 0 {
			out = append(out, SeatPosition{Row: uint32(c.Row), Number: uint32(c.Col)})
		}
	}
	return out
}
