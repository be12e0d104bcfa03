package booking

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cinema-booking/internal/model"
	"github.com/iliyamo/cinema-booking/internal/repository"
)

// recordingTx records the order in which seats are resolved.
type recordingTx struct {
	repository.Tx
	resolved []model.SeatPosition
	offSale  map[model.SeatPosition]bool
}

func (r *recordingTx) ResolveSeat(_ context.Context, hallID uint64, pos model.SeatPosition) (model.Seat, error) {
	r.resolved = append(r.resolved, pos)
	return model.Seat{
		ID:          uint64(pos.Row)*100 + uint64(pos.Number),
		HallID:      hallID,
		Row:         pos.Row,
		Number:      pos.Number,
		IsAvailable: !r.offSale[pos],
	}, nil
}

func TestResolveSeats_CanonicalOrder(t *testing.T) {
	tx := &recordingTx{}

	got, err := resolveSeats(context.Background(), tx, 1, seats(2, 1, 1, 3, 1, 1))
	require.NoError(t, err)

	assert.Equal(t, seats(1, 1, 1, 3, 2, 1), tx.resolved)
	ids := make([]uint64, len(got))
	for i, s := range got {
		ids[i] = s.ID
	}
	assert.Equal(t, []uint64{201, 103, 101}, ids)
}

func TestResolveSeats_SameOrderForReversedRequests(t *testing.T) {
	a, b := &recordingTx{}, &recordingTx{}

	_, err := resolveSeats(context.Background(), a, 1, seats(1, 1, 1, 2))
	require.NoError(t, err)
	_, err = resolveSeats(context.Background(), b, 1, seats(1, 2, 1, 1))
	require.NoError(t, err)

	assert.Equal(t, a.resolved, b.resolved)
}

func TestResolveSeats_RejectsSeatOffSale(t *testing.T) {
	tx := &recordingTx{offSale: map[model.SeatPosition]bool{{Row: 1, Number: 2}: true}}

	_, err := resolveSeats(context.Background(), tx, 1, seats(1, 1, 1, 2))
	assert.ErrorIs(t, err, ErrInvalidRequest)
	assert.Contains(t, err.Error(), "ряд 1, место 2")
}
