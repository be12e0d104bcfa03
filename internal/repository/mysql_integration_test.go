package repository_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cinema-booking/internal/booking"
	"github.com/iliyamo/cinema-booking/internal/config"
	"github.com/iliyamo/cinema-booking/internal/database"
	"github.com/iliyamo/cinema-booking/internal/model"
	"github.com/iliyamo/cinema-booking/internal/repository"
)

func skipIfNoIntegration(t *testing.T) {
	if os.Getenv("INTEGRATION_TEST") != "true" {
		t.Skip("Skipping integration test. Set INTEGRATION_TEST=true to run")
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// openTestStore connects to the MySQL instance described by TEST_MYSQL_DSN
// or the TEST_MYSQL_* variables and applies the schema.
func openTestStore(t *testing.T) *repository.MySQLStore {
	skipIfNoIntegration(t)

	dsn := os.Getenv("TEST_MYSQL_DSN")
	if dsn == "" {
		dsn = database.DSN(
			getenv("TEST_MYSQL_USER", "root"),
			getenv("TEST_MYSQL_PASSWORD", "root"),
			getenv("TEST_MYSQL_HOST", "localhost"),
			getenv("TEST_MYSQL_PORT", "3306"),
			getenv("TEST_MYSQL_DB", "cinema_booking_test"),
		)
	}
	db, err := database.Open(dsn)
	if err != nil {
		t.Fatalf("Failed to connect to MySQL: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.Migrate(context.Background(), db))
	return repository.NewMySQLStore(db)
}

type fixture struct {
	store    *repository.MySQLStore
	hall     model.Hall
	showtime model.Showtime
	users    []uint64
}

func newFixture(t *testing.T, nUsers int) *fixture {
	store := openTestStore(t)
	ctx := context.Background()
	suffix := time.Now().UnixNano()

	hall := model.Hall{Name: fmt.Sprintf("it-%d", suffix%1e6), SchemeData: []byte(`{"rows":10,"cols":10}`)}
	require.NoError(t, store.Showtimes.CreateHall(ctx, &hall))
	st := model.Showtime{
		HallID:     hall.ID,
		MovieTitle: "Integration",
		StartTime:  time.Now().UTC().Add(24 * time.Hour).Truncate(time.Second),
		EndTime:    time.Now().UTC().Add(26 * time.Hour).Truncate(time.Second),
		Price:      decimal.RequireFromString("300.00"),
	}
	require.NoError(t, store.Showtimes.Create(ctx, &st))

	users := repository.NewUserRepo(store.DB())
	f := &fixture{store: store, hall: hall, showtime: st}
	for i := 0; i < nUsers; i++ {
		id, err := users.CreateUser(ctx, fmt.Sprintf("it-%d-%d@example.com", suffix, i), "x")
		require.NoError(t, err)
		f.users = append(f.users, id)
	}
	return f
}

func newService(store repository.Store) *booking.Service {
	return booking.NewService(store, config.BookingConfig{HoldDuration: 30 * time.Minute, Fee: decimal.NewFromInt(20)})
}

func TestIntegration_ConcurrentBookingsOfOneSeat(t *testing.T) {
	const n = 16
	f := newFixture(t, n)
	svc := newService(f.store)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	for _, uid := range f.users {
		wg.Add(1)
		go func(uid uint64) {
			defer wg.Done()
			_, err := svc.Process(context.Background(), booking.Request{
				UserID:     uid,
				ShowtimeID: f.showtime.ID,
				Seats:      []model.SeatPosition{{Row: 3, Number: 5}},
				Action:     booking.ActionHold,
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, booking.ErrSeatConflict):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(uid)
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, n-1, conflicts)

	taken, err := f.store.CommittedSeats(context.Background(), f.showtime.ID, time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, []model.SeatPosition{{Row: 3, Number: 5}}, taken)
}

func TestIntegration_SeatResolutionRaceAcrossShowtimes(t *testing.T) {
	const n = 8
	f := newFixture(t, 1)
	ctx := context.Background()
	svc := newService(f.store)

	// showtimes of one hall lock different rows, so first references to a
	// new seat race on the unique key
	showtimes := make([]uint64, n)
	for i := range showtimes {
		st := f.showtime
		st.ID = 0
		require.NoError(t, f.store.Showtimes.Create(ctx, &st))
		showtimes[i] = st.ID
	}

	seatIDs := make(chan uint64, n)
	var wg sync.WaitGroup
	for _, sid := range showtimes {
		wg.Add(1)
		go func(sid uint64) {
			defer wg.Done()
			out, err := svc.Process(ctx, booking.Request{
				UserID:     f.users[0],
				ShowtimeID: sid,
				Seats:      []model.SeatPosition{{Row: 9, Number: 9}},
				Action:     booking.ActionPurchase,
			})
			if !assert.NoError(t, err) {
				return
			}
			seatIDs <- out.Booking.Seats[0].ID
		}(sid)
	}
	wg.Wait()
	close(seatIDs)

	distinct := map[uint64]bool{}
	for id := range seatIDs {
		distinct[id] = true
	}
	assert.Len(t, distinct, 1)
}

func TestIntegration_OppositeSeatOrderAcrossShowtimes(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()
	svc := newService(f.store)

	other := f.showtime
	other.ID = 0
	require.NoError(t, f.store.Showtimes.Create(ctx, &other))

	// each round uses seats no booking has referenced yet, so both
	// transactions insert the same two seats in the order the client sent
	for round := uint32(1); round <= 10; round++ {
		row := 100 + round
		requests := []booking.Request{
			{UserID: f.users[0], ShowtimeID: f.showtime.ID, Action: booking.ActionPurchase,
				Seats: []model.SeatPosition{{Row: row, Number: 1}, {Row: row, Number: 2}}},
			{UserID: f.users[1], ShowtimeID: other.ID, Action: booking.ActionPurchase,
				Seats: []model.SeatPosition{{Row: row, Number: 2}, {Row: row, Number: 1}}},
		}
		errs := make([]error, len(requests))
		var wg sync.WaitGroup
		for i, req := range requests {
			wg.Add(1)
			go func(i int, req booking.Request) {
				defer wg.Done()
				_, errs[i] = svc.Process(ctx, req)
			}(i, req)
		}
		wg.Wait()
		for i, err := range errs {
			assert.NoError(t, err, "round %d request %d", round, i)
		}
	}
}

func TestIntegration_ExpiredHoldReleasesSeat(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()
	svc := booking.NewService(f.store, config.BookingConfig{HoldDuration: time.Millisecond})

	_, err := svc.Process(ctx, booking.Request{
		UserID: f.users[0], ShowtimeID: f.showtime.ID,
		Seats: []model.SeatPosition{{Row: 1, Number: 1}}, Action: booking.ActionHold,
	})
	require.NoError(t, err)
	time.Sleep(20 * time.Millisecond)

	out, err := svc.Process(ctx, booking.Request{
		UserID: f.users[1], ShowtimeID: f.showtime.ID,
		Seats: []model.SeatPosition{{Row: 1, Number: 1}}, Action: booking.ActionPurchase,
	})
	require.NoError(t, err)

	got, err := f.store.GetBookingForUser(ctx, out.BookingID, f.users[1])
	require.NoError(t, err)
	assert.True(t, got.IsPaid)
	assert.Nil(t, got.ExpiresAt)
	assert.Equal(t, "320.00", got.TicketPrice.StringFixed(2))
	assert.Len(t, got.Seats, 1)
}
