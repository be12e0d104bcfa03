package booking

import (
	"context"
	"fmt"
	"sort"

	"github.com/iliyamo/cinema-booking/internal/model"
	"github.com/iliyamo/cinema-booking/internal/repository"
)

// normalizeSelection validates the requested positions and drops duplicates
// while keeping the first-seen order.
func normalizeSelection(seats []model.SeatPosition) ([]model.SeatPosition, error) {
	if len(seats) == 0 {
		return nil, invalidf("no seats selected")
	}
	seen := make(map[model.SeatPosition]bool, len(seats))
	out := make([]model.SeatPosition, 0, len(seats))
	for _, p := range seats {
		if p.Row == 0 || p.Number == 0 {
			return nil, invalidf("row and seat must be positive")
		}
		if seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out, nil
}

// resolveSeats maps every position to its durable seat inside tx.  Seats
// are resolved in (row, number) order so transactions creating overlapping
// seats in one hall take the unique-key locks in the same order; the result
// keeps the order of positions.  A seat taken out of sale is rejected.
func resolveSeats(ctx context.Context, tx repository.Tx, hallID uint64, positions []model.SeatPosition) ([]model.Seat, error) {
	order := make([]int, len(positions))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return positions[order[a]].Less(positions[order[b]])
	})

	seats := make([]model.Seat, len(positions))
	for _, i := range order {
		p := positions[i]
		s, err := tx.ResolveSeat(ctx, hallID, p)
		if err != nil {
			return nil, fmt.Errorf("resolve seat %s: %w", p, err)
		}
		if !s.IsAvailable {
			return nil, invalidf("seat %s is not available", p)
		}
		seats[i] = s
	}
	return seats, nil
}
