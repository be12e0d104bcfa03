package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/iliyamo/cinema-booking/internal/model"
	"github.com/iliyamo/cinema-booking/internal/repository"
)

// ensureAvailable fails with *SeatConflictError when any of seats is held
// by a paid or unexpired booking of the showtime at now.  It must run in
// the same transaction as the insert that follows it.
func ensureAvailable(ctx context.Context, tx repository.Tx, showtimeID uint64, seats []model.Seat, now time.Time) error {
	ids := make([]uint64, len(seats))
	for i, s := range seats {
		ids[i] = s.ID
	}
	taken, err := tx.CommittedSeatIDs(ctx, showtimeID, ids, now)
	if err != nil {
		return fmt.Errorf("check availability: %w", err)
	}
	if len(taken) == 0 {
		return nil
	}
	takenSet := make(map[uint64]bool, len(taken))
	for _, id := range taken {
		takenSet[id] = true
	}
	conflict := &SeatConflictError{ShowtimeID: showtimeID}
	for _, s := range seats {
		if takenSet[s.ID] {
			conflict.Seats = append(conflict.Seats, s.Position())
		}
	}
	return conflict
}
