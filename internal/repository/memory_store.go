package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/cinema-booking/internal/model"
)

type seatKey struct {
	hallID uint64
	row    uint32
	number uint32
}

type memBooking struct {
	booking model.Booking // Seats left empty; see seatIDs
	seatIDs []uint64
}

// MemoryStore is an in-process implementation of Store and UserStore.  A
// single mutex serializes transactions, which trivially satisfies the
// showtime lock; a failed transaction restores the snapshot taken when it
// began.  It backs the memory storage driver and the tests.
type MemoryStore struct {
	mu sync.Mutex

	halls     map[uint64]model.Hall
	showtimes map[uint64]model.Showtime
	seats     map[uint64]model.Seat
	seatIndex map[seatKey]uint64
	bookings  map[uint64]memBooking
	users     map[uint64]model.User

	nextHall, nextShowtime, nextSeat, nextBooking, nextUser uint64
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		halls:     make(map[uint64]model.Hall),
		showtimes: make(map[uint64]model.Showtime),
		seats:     make(map[uint64]model.Seat),
		seatIndex: make(map[seatKey]uint64),
		bookings:  make(map[uint64]memBooking),
		users:     make(map[uint64]model.User),
	}
}

// AddHall stores a hall and assigns its ID when zero.
func (s *MemoryStore) AddHall(h model.Hall) model.Hall {
	s.mu.Lock()
	defer s.mu.Unlock()
	if h.ID == 0 {
		s.nextHall++
		h.ID = s.nextHall
	} else if h.ID > s.nextHall {
		s.nextHall = h.ID
	}
	s.halls[h.ID] = h
	return h
}

// AddShowtime stores a showtime and assigns its ID when zero.
func (s *MemoryStore) AddShowtime(st model.Showtime) model.Showtime {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st.ID == 0 {
		s.nextShowtime++
		st.ID = s.nextShowtime
	} else if st.ID > s.nextShowtime {
		s.nextShowtime = st.ID
	}
	if st.Format == "" {
		st.Format = model.Format2D
	}
	s.showtimes[st.ID] = st
	return st
}

// SetSeatAvailable marks the seat at pos in the hall as on or off sale,
// creating the seat when it was never referenced.
func (s *MemoryStore) SetSeatAvailable(hallID uint64, pos model.SeatPosition, available bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seat, _ := memTx{s: s}.ResolveSeat(context.Background(), hallID, pos)
	seat.IsAvailable = available
	s.seats[seat.ID] = seat
}

type memSnapshot struct {
	seats                 map[uint64]model.Seat
	seatIndex             map[seatKey]uint64
	bookings              map[uint64]memBooking
	nextSeat, nextBooking uint64
}

func (s *MemoryStore) snapshot() memSnapshot {
	snap := memSnapshot{
		seats:       make(map[uint64]model.Seat, len(s.seats)),
		seatIndex:   make(map[seatKey]uint64, len(s.seatIndex)),
		bookings:    make(map[uint64]memBooking, len(s.bookings)),
		nextSeat:    s.nextSeat,
		nextBooking: s.nextBooking,
	}
	for k, v := range s.seats {
		snap.seats[k] = v
	}
	for k, v := range s.seatIndex {
		snap.seatIndex[k] = v
	}
	for k, v := range s.bookings {
		v.seatIDs = append([]uint64(nil), v.seatIDs...)
		snap.bookings[k] = v
	}
	return snap
}

func (s *MemoryStore) restore(snap memSnapshot) {
	s.seats = snap.seats
	s.seatIndex = snap.seatIndex
	s.bookings = snap.bookings
	s.nextSeat = snap.nextSeat
	s.nextBooking = snap.nextBooking
}

// WithTx runs fn while holding the store lock.  fn must not call the
// store's non-transactional methods.
func (s *MemoryStore) WithTx(ctx context.Context, fn func(tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	snap := s.snapshot()
	if err := fn(memTx{s: s}); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

func (s *MemoryStore) GetShowtime(_ context.Context, id uint64) (*model.Showtime, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.showtimes[id]
	if !ok {
		return nil, ErrShowtimeNotFound
	}
	return &st, nil
}

func (s *MemoryStore) GetHall(_ context.Context, id uint64) (*model.Hall, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.halls[id]
	if !ok {
		return nil, ErrHallNotFound
	}
	return &h, nil
}

func (s *MemoryStore) CommittedSeats(_ context.Context, showtimeID uint64, now time.Time) ([]model.SeatPosition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := make(map[uint64]bool)
	var out []model.SeatPosition
	for _, mb := range s.bookings {
		if mb.booking.ShowtimeID != showtimeID || !mb.booking.HoldsSeats(now) {
			continue
		}
		for _, id := range mb.seatIDs {
			if seen[id] {
				continue
			}
			seen[id] = true
			out = append(out, s.seats[id].Position())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Row != out[j].Row {
			return out[i].Row < out[j].Row
		}
		return out[i].Number < out[j].Number
	})
	return out, nil
}

func (s *MemoryStore) GetBookingForUser(_ context.Context, bookingID, userID uint64) (*model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	mb, ok := s.bookings[bookingID]
	if !ok || mb.booking.UserID != userID {
		return nil, ErrBookingNotFound
	}
	b := s.materialize(mb)
	return &b, nil
}

func (s *MemoryStore) ListBookingsByUser(_ context.Context, userID uint64) ([]model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Booking
	for _, mb := range s.bookings {
		if mb.booking.UserID == userID {
			out = append(out, s.materialize(mb))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

// PurgeExpired removes unpaid bookings whose hold lapsed before cutoff.
func (s *MemoryStore) PurgeExpired(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, mb := range s.bookings {
		b := mb.booking
		if !b.IsPaid && b.ExpiresAt != nil && b.ExpiresAt.Before(cutoff) {
			delete(s.bookings, id)
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) materialize(mb memBooking) model.Booking {
	b := mb.booking
	b.Seats = make([]model.Seat, 0, len(mb.seatIDs))
	for _, id := range mb.seatIDs {
		b.Seats = append(b.Seats, s.seats[id])
	}
	sort.Slice(b.Seats, func(i, j int) bool {
		if b.Seats[i].Row != b.Seats[j].Row {
			return b.Seats[i].Row < b.Seats[j].Row
		}
		return b.Seats[i].Number < b.Seats[j].Number
	})
	return b
}

func (s *MemoryStore) CreateUser(_ context.Context, email, passwordHash string) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	email = NormalizeEmail(email)
	for _, u := range s.users {
		if u.Email == email {
			return 0, ErrEmailExists
		}
	}
	s.nextUser++
	s.users[s.nextUser] = model.User{
		ID:           s.nextUser,
		Email:        email,
		PasswordHash: passwordHash,
		IsActive:     true,
		CreatedAt:    time.Now().UTC(),
	}
	return s.nextUser, nil
}

func (s *MemoryStore) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	email = NormalizeEmail(email)
	for _, u := range s.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, ErrUserNotFound
}

func (s *MemoryStore) GetUserByID(_ context.Context, id uint64) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return &u, nil
}

// memTx operates on the store while WithTx holds its lock.
type memTx struct {
	s *MemoryStore
}

func (t memTx) LockShowtime(_ context.Context, id uint64) (*model.Showtime, error) {
	st, ok := t.s.showtimes[id]
	if !ok {
		return nil, ErrShowtimeNotFound
	}
	return &st, nil
}

func (t memTx) ResolveSeat(_ context.Context, hallID uint64, pos model.SeatPosition) (model.Seat, error) {
	key := seatKey{hallID: hallID, row: pos.Row, number: pos.Number}
	if id, ok := t.s.seatIndex[key]; ok {
		return t.s.seats[id], nil
	}
	t.s.nextSeat++
	seat := model.Seat{ID: t.s.nextSeat, HallID: hallID, Row: pos.Row, Number: pos.Number, IsAvailable: true}
	t.s.seats[seat.ID] = seat
	t.s.seatIndex[key] = seat.ID
	return seat, nil
}

func (t memTx) CommittedSeatIDs(_ context.Context, showtimeID uint64, seatIDs []uint64, now time.Time) ([]uint64, error) {
	wanted := make(map[uint64]bool, len(seatIDs))
	for _, id := range seatIDs {
		wanted[id] = true
	}
	var taken []uint64
	for _, mb := range t.s.bookings {
		if mb.booking.ShowtimeID != showtimeID || !mb.booking.HoldsSeats(now) {
			continue
		}
		for _, id := range mb.seatIDs {
			if wanted[id] {
				taken = append(taken, id)
				delete(wanted, id)
			}
		}
	}
	return taken, nil
}

func (t memTx) InsertBooking(_ context.Context, b *model.Booking) error {
	t.s.nextBooking++
	b.ID = t.s.nextBooking
	row := *b
	row.Seats = nil
	t.s.bookings[b.ID] = memBooking{booking: row}
	return nil
}

func (t memTx) AttachSeats(_ context.Context, bookingID uint64, seatIDs []uint64) error {
	mb, ok := t.s.bookings[bookingID]
	if !ok {
		return ErrBookingNotFound
	}
	mb.seatIDs = append(append([]uint64(nil), mb.seatIDs...), seatIDs...)
	t.s.bookings[bookingID] = mb
	return nil
}

func (t memTx) LockBooking(_ context.Context, id uint64) (*model.Booking, error) {
	mb, ok := t.s.bookings[id]
	if !ok {
		return nil, ErrBookingNotFound
	}
	b := mb.booking
	return &b, nil
}

func (t memTx) MarkPaid(_ context.Context, id uint64) error {
	mb, ok := t.s.bookings[id]
	if !ok {
		return ErrBookingNotFound
	}
	mb.booking.IsPaid = true
	mb.booking.ExpiresAt = nil
	t.s.bookings[id] = mb
	return nil
}

var (
	_ Store     = (*MemoryStore)(nil)
	_ UserStore = (*MemoryStore)(nil)
	_ Tx        = memTx{}
)
