// Package booking implements the seat-booking core: seat resolution,
// availability checks, the transactional ledger and the request-level
// service orchestrating them.
package booking

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/cinema-booking/internal/config"
	"github.com/iliyamo/cinema-booking/internal/model"
	"github.com/iliyamo/cinema-booking/internal/queue"
	"github.com/iliyamo/cinema-booking/internal/repository"
)

// Publisher delivers booking events after a transaction commits.
type Publisher interface {
	Publish(ctx context.Context, ev queue.BookingEvent) error
}

// Invalidator drops cached availability for a showtime.
type Invalidator interface {
	InvalidateShowtime(ctx context.Context, showtimeID uint64) error
}

// publishTimeout bounds the post-commit side effects so a slow broker
// cannot hold a request open.
const publishTimeout = 3 * time.Second

// Service is the entry point used by the HTTP layer.
type Service struct {
	store       repository.Store
	ledger      *Ledger
	clock       Clock
	publisher   Publisher
	invalidator Invalidator
	log         *zap.Logger
}

// Option customizes a Service.
type Option func(*Service)

// WithClock overrides the clock used for expiry decisions.
func WithClock(c Clock) Option {
	return func(s *Service) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithPublisher enables booking events.
func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithInvalidator enables seat-map cache invalidation.
func WithInvalidator(inv Invalidator) Option {
	return func(s *Service) { s.invalidator = inv }
}

// WithLogger sets the structured logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// NewService constructs a Service over store using cfg for hold duration
// and booking fee.
func NewService(store repository.Store, cfg config.BookingConfig, opts ...Option) *Service {
	hold := cfg.HoldDuration
	if hold <= 0 {
		hold = config.DefaultHoldDuration
	}
	s := &Service{
		store:  store,
		ledger: NewLedger(store, Policy{HoldDuration: hold}, cfg.Fee),
		clock:  SystemClock{},
		log:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Now reports the service clock's current instant.
func (s *Service) Now() time.Time { return s.clock.Now() }

// Outcome is the result of a successful Process or Pay call.
type Outcome struct {
	BookingID uint64
	Message   string
	Booking   *model.Booking
}

// Process validates and commits a seat selection.  Validation happens
// before any transaction is opened: the user must be known, the action
// recognised, the selection non-empty and the showtime must exist.
func (s *Service) Process(ctx context.Context, req Request) (*Outcome, error) {
	if req.UserID == 0 {
		return nil, ErrUnauthorized
	}
	if _, err := ParseAction(string(req.Action)); err != nil {
		return nil, err
	}
	seats, err := normalizeSelection(req.Seats)
	if err != nil {
		return nil, err
	}
	req.Seats = seats
	if _, err := s.store.GetShowtime(ctx, req.ShowtimeID); err != nil {
		return nil, translate(err)
	}

	now := s.clock.Now()
	b, st, err := s.ledger.Commit(ctx, req, now)
	if err != nil {
		var conflict *SeatConflictError
		if errors.As(err, &conflict) {
			s.log.Warn("seat conflict",
				zap.Uint64("user_id", req.UserID),
				zap.Uint64("showtime_id", req.ShowtimeID),
				zap.Stringers("seats", conflict.Seats))
		}
		return nil, err
	}

	s.log.Info("booking committed",
		zap.Uint64("booking_id", b.ID),
		zap.Uint64("user_id", b.UserID),
		zap.Uint64("showtime_id", b.ShowtimeID),
		zap.String("action", string(req.Action)),
		zap.Int("seats", len(b.Seats)),
		zap.String("total", b.TotalAmount.StringFixed(2)))

	evType := queue.EventBookingHeld
	if b.IsPaid {
		evType = queue.EventBookingPurchased
	}
	s.afterCommit(ctx, evType, b, st, now)
	return &Outcome{BookingID: b.ID, Message: req.Action.message(), Booking: b}, nil
}

// Pay settles the caller's pending hold.
func (s *Service) Pay(ctx context.Context, userID, bookingID uint64) (*Outcome, error) {
	if userID == 0 {
		return nil, ErrUnauthorized
	}
	now := s.clock.Now()
	b, err := s.ledger.Pay(ctx, userID, bookingID, now)
	if err != nil {
		return nil, err
	}
	s.log.Info("booking paid", zap.Uint64("booking_id", b.ID), zap.Uint64("user_id", userID))

	full, err := s.store.GetBookingForUser(ctx, b.ID, userID)
	if err != nil {
		s.log.Warn("reload paid booking", zap.Uint64("booking_id", b.ID), zap.Error(err))
		full = b
	}
	st, err := s.store.GetShowtime(ctx, full.ShowtimeID)
	if err != nil {
		st = &model.Showtime{ID: full.ShowtimeID}
	}
	s.afterCommit(ctx, queue.EventBookingPaid, full, st, now)
	return &Outcome{BookingID: b.ID, Message: MessagePaid, Booking: full}, nil
}

// Get returns one of the caller's bookings.
func (s *Service) Get(ctx context.Context, userID, bookingID uint64) (*model.Booking, error) {
	if userID == 0 {
		return nil, ErrUnauthorized
	}
	b, err := s.store.GetBookingForUser(ctx, bookingID, userID)
	if err != nil {
		return nil, translate(err)
	}
	return b, nil
}

// ListMine returns the caller's bookings, newest first.
func (s *Service) ListMine(ctx context.Context, userID uint64) ([]model.Booking, error) {
	if userID == 0 {
		return nil, ErrUnauthorized
	}
	return s.store.ListBookingsByUser(ctx, userID)
}

// SeatMap describes a showtime's layout and its currently taken seats.
type SeatMap struct {
	Showtime model.Showtime
	HallName string
	Scheme   model.HallScheme
	Taken    []model.SeatPosition
}

// SeatMap reports which seats of the showtime are held right now.  A hall
// without a usable scheme yields an empty layout.
func (s *Service) SeatMap(ctx context.Context, showtimeID uint64) (*SeatMap, error) {
	st, err := s.store.GetShowtime(ctx, showtimeID)
	if err != nil {
		return nil, translate(err)
	}
	out := &SeatMap{Showtime: *st}
	hall, err := s.store.GetHall(ctx, st.HallID)
	switch {
	case err == nil:
		out.HallName = hall.Name
		out.Scheme = model.ParseScheme(hall.SchemeData)
	case errors.Is(err, repository.ErrHallNotFound):
	default:
		return nil, err
	}
	taken, err := s.store.CommittedSeats(ctx, st.ID, s.clock.Now())
	if err != nil {
		return nil, err
	}
	out.Taken = taken
	return out, nil
}

// afterCommit runs side effects that must never fail the request.  now is
// the instant the transaction was evaluated at.
func (s *Service) afterCommit(ctx context.Context, evType string, b *model.Booking, st *model.Showtime, now time.Time) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if s.invalidator != nil {
		if err := s.invalidator.InvalidateShowtime(ctx, b.ShowtimeID); err != nil {
			s.log.Warn("invalidate seat map cache", zap.Uint64("showtime_id", b.ShowtimeID), zap.Error(err))
		}
	}
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, newEvent(evType, b, st, now)); err != nil {
		s.log.Warn("publish booking event",
			zap.String("type", evType),
			zap.Uint64("booking_id", b.ID),
			zap.Error(err))
	}
}

func newEvent(evType string, b *model.Booking, st *model.Showtime, now time.Time) queue.BookingEvent {
	ev := queue.BookingEvent{
		Type:        evType,
		BookingID:   b.ID,
		UserID:      b.UserID,
		ShowtimeID:  b.ShowtimeID,
		MovieTitle:  st.MovieTitle,
		TotalAmount: b.TotalAmount.StringFixed(2),
		OccurredAt:  now.UTC().Format(time.RFC3339),
	}
	if !st.StartTime.IsZero() {
		ev.StartsAt = st.StartTime.UTC().Format(time.RFC3339)
	}
	if b.ExpiresAt != nil {
		ev.ExpiresAt = b.ExpiresAt.UTC().Format(time.RFC3339)
	}
	for _, seat := range b.Seats {
		ev.SeatLabels = append(ev.SeatLabels, seat.Position().String())
	}
	return ev
}
