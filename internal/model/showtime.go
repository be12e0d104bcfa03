package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Showtime represents a scheduled screening of a movie in a particular
// hall.  It carries the ticket price and presentation format used by the
// booking ledger.  Showtimes are managed by the catalog and are read-only
// from the booking core's perspective.
//
// Fields:
//
//	ID         – primary key identifier.
//	HallID     – hall where the screening takes place.
//	MovieTitle – title of the movie being shown.
//	StartTime  – when the screening begins (UTC).
//	EndTime    – when the screening ends (UTC).
//	Price      – ticket price for a single seat, excluding the booking fee.
//	Format     – presentation format (2D, 3D, IMAX).
type Showtime struct {
	ID         uint64          // sessions.id
	HallID     uint64          // sessions.hall_id
	MovieTitle string          // sessions.movie_title
	StartTime  time.Time       // sessions.start_time
	EndTime    time.Time       // sessions.end_time
	Price      decimal.Decimal // sessions.price
	Format     string          // sessions.format
}

// Supported presentation formats.
const (
	Format2D   = "2D"
	Format3D   = "3D"
	FormatIMAX = "IMAX"
)
