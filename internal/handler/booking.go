package handler

import (
	"math"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-booking/internal/booking"
	"github.com/iliyamo/cinema-booking/internal/model"
)

// BookingHandler exposes the booking service over HTTP.  Write endpoints
// assume JWTAuth ran before them; the seat map is public.
type BookingHandler struct {
	Svc *booking.Service
}

// NewBookingHandler constructs a BookingHandler.  svc must be non-nil.
func NewBookingHandler(svc *booking.Service) *BookingHandler {
	if svc == nil {
		panic("nil booking service passed to NewBookingHandler")
	}
	return &BookingHandler{Svc: svc}
}

// seatSelection is one element of the "seats" array.  Pointers tell a
// missing coordinate apart from zero.
type seatSelection struct {
	Row  *int64 `json:"row"`
	Seat *int64 `json:"seat"`
}

type processReq struct {
	Seats  []seatSelection `json:"seats"`
	Action string          `json:"action"`
}

type bookingView struct {
	ID          uint64               `json:"id"`
	SessionID   uint64               `json:"session_id"`
	Seats       []model.SeatPosition `json:"seats"`
	TicketPrice string               `json:"ticket_price"`
	TotalAmount string               `json:"total_amount"`
	CreatedAt   time.Time            `json:"created_at"`
	ExpiresAt   *time.Time           `json:"expires_at"`
	IsPaid      bool                 `json:"is_paid"`
	Status      model.BookingState   `json:"status"`
}

func newBookingView(b *model.Booking, now time.Time) bookingView {
	seats := make([]model.SeatPosition, 0, len(b.Seats))
	for _, s := range b.Seats {
		seats = append(seats, s.Position())
	}
	return bookingView{
		ID:          b.ID,
		SessionID:   b.ShowtimeID,
		Seats:       seats,
		TicketPrice: b.TicketPrice.StringFixed(2),
		TotalAmount: b.TotalAmount.StringFixed(2),
		CreatedAt:   b.CreatedAt,
		ExpiresAt:   b.ExpiresAt,
		IsPaid:      b.IsPaid,
		Status:      b.State(now),
	}
}

func toPositions(in []seatSelection) ([]model.SeatPosition, bool) {
	out := make([]model.SeatPosition, 0, len(in))
	for _, s := range in {
		if s.Row == nil || s.Seat == nil {
			return nil, false
		}
		if *s.Row <= 0 || *s.Seat <= 0 || *s.Row > math.MaxUint32 || *s.Seat > math.MaxUint32 {
			return nil, false
		}
		out = append(out, model.SeatPosition{Row: uint32(*s.Row), Number: uint32(*s.Seat)})
	}
	return out, true
}

// Process handles POST /api/booking/:session_id/process/.  The body is
// {"seats":[{"row":3,"seat":5}],"action":"book"|"buy"}.  On success it
// returns {"success":true,"booking_id":..,"message":..}; a seat conflict
// yields 400 with a user-facing message.
func (h *BookingHandler) Process(c echo.Context) error {
	userID := getUserID(c)
	if userID == 0 {
		return writeError(c, booking.ErrUnauthorized)
	}
	sessionID, ok := parseID(c, "session_id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid session id"})
	}
	var req processReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if len(req.Seats) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "seats is required"})
	}
	positions, ok := toPositions(req.Seats)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "row and seat must be positive integers"})
	}
	action, err := booking.ParseAction(req.Action)
	if err != nil {
		return writeError(c, err)
	}

	out, err := h.Svc.Process(c.Request().Context(), booking.Request{
		UserID:     userID,
		ShowtimeID: sessionID,
		Seats:      positions,
		Action:     action,
	})
	if err != nil {
		return writeError(c, err)
	}
	resp := echo.Map{
		"success":      true,
		"booking_id":   out.BookingID,
		"message":      out.Message,
		"total_amount": out.Booking.TotalAmount.StringFixed(2),
	}
	if out.Booking.ExpiresAt != nil {
		resp["expires_at"] = out.Booking.ExpiresAt
	}
	return c.JSON(http.StatusOK, resp)
}

// Pay handles POST /api/booking/:id/pay/.  It settles a pending hold of
// the caller; no payment gateway is involved.
func (h *BookingHandler) Pay(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	out, err := h.Svc.Pay(c.Request().Context(), getUserID(c), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success":    true,
		"booking_id": out.BookingID,
		"message":    out.Message,
	})
}

// Get handles GET /api/booking/:id/.  Bookings of other users are
// reported as not found.
func (h *BookingHandler) Get(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	b, err := h.Svc.Get(c.Request().Context(), getUserID(c), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, newBookingView(b, h.Svc.Now()))
}

// ListMine handles GET /api/my-bookings/.
func (h *BookingHandler) ListMine(c echo.Context) error {
	list, err := h.Svc.ListMine(c.Request().Context(), getUserID(c))
	if err != nil {
		return writeError(c, err)
	}
	now := h.Svc.Now()
	items := make([]bookingView, 0, len(list))
	for i := range list {
		items = append(items, newBookingView(&list[i], now))
	}
	return c.JSON(http.StatusOK, echo.Map{"bookings": items})
}

// SeatMap handles GET /api/booking/:session_id/seats/.  It lists the hall
// layout and the seats currently held by paid or unexpired bookings.
func (h *BookingHandler) SeatMap(c echo.Context) error {
	sessionID, ok := parseID(c, "session_id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid session id"})
	}
	m, err := h.Svc.SeatMap(c.Request().Context(), sessionID)
	if err != nil {
		return writeError(c, err)
	}
	taken := m.Taken
	if taken == nil {
		taken = []model.SeatPosition{}
	}
	return c.JSON(http.StatusOK, echo.Map{
		"session_id":  m.Showtime.ID,
		"movie_title": m.Showtime.MovieTitle,
		"start_time":  m.Showtime.StartTime,
		"end_time":    m.Showtime.EndTime,
		"price":       m.Showtime.Price.StringFixed(2),
		"format":      m.Showtime.Format,
		"hall": echo.Map{
			"id":     m.Showtime.HallID,
			"name":   m.HallName,
			"rows":   m.Scheme.Rows,
			"cols":   m.Scheme.Cols,
			"screen": m.Scheme.Screen,
		},
		"taken": taken,
	})
}
