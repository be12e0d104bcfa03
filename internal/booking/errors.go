package booking

import (
	"errors"
	"fmt"
	"strings"

	"github.com/iliyamo/cinema-booking/internal/model"
	"github.com/iliyamo/cinema-booking/internal/repository"
)

// Sentinel errors returned by the service.  Callers use errors.Is to map
// them onto transport responses.
var (
	ErrUnauthorized   = errors.New("authentication required")
	ErrInvalidRequest = errors.New("invalid request")
	ErrNotFound       = errors.New("not found")
	ErrSeatConflict   = errors.New("seats already taken")
	ErrForbidden      = errors.New("forbidden")
	ErrBookingExpired = errors.New("booking hold has expired")
	ErrAlreadyPaid    = errors.New("booking already paid")
)

// SeatConflictError lists the requested seats that another booking already
// holds.  It unwraps to ErrSeatConflict.
type SeatConflictError struct {
	ShowtimeID uint64
	Seats      []model.SeatPosition
}

func (e *SeatConflictError) Error() string {
	labels := make([]string, len(e.Seats))
	for i, p := range e.Seats {
		labels[i] = p.String()
	}
	return fmt.Sprintf("showtime %d: seats already taken: %s", e.ShowtimeID, strings.Join(labels, "; "))
}

func (e *SeatConflictError) Unwrap() error { return ErrSeatConflict }

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidRequest, fmt.Sprintf(format, args...))
}

// translate maps repository sentinels onto service errors.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrShowtimeNotFound):
		return fmt.Errorf("%w: showtime", ErrNotFound)
	case errors.Is(err, repository.ErrHallNotFound):
		return fmt.Errorf("%w: hall", ErrNotFound)
	case errors.Is(err, repository.ErrBookingNotFound):
		return fmt.Errorf("%w: booking", ErrNotFound)
	default:
		return err
	}
}
