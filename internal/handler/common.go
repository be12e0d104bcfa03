package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-booking/internal/booking"
	"github.com/iliyamo/cinema-booking/internal/middleware"
	"github.com/iliyamo/cinema-booking/internal/model"
)

// SeatConflictMessage is shown when some requested seats are already taken.
const SeatConflictMessage = "Некоторые из выбранных мест уже забронированы"

// getUserID extracts the authenticated user ID placed in the context by
// JWTAuth.  It returns 0 when no user is authenticated.
func getUserID(c echo.Context) uint64 {
	switch t := c.Get(middleware.UserIDKey).(type) {
	case uint64:
		return t
	case int64:
		if t > 0 {
			return uint64(t)
		}
	case float64:
		if t > 0 {
			return uint64(t)
		}
	case string:
		if n, err := strconv.ParseUint(t, 10, 64); err == nil {
			return n
		}
	}
	return 0
}

// parseID reads a positive integer path parameter.
func parseID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}

// writeError maps service errors onto HTTP responses.  Unknown errors are
// reported as 500 with their message.
func writeError(c echo.Context, err error) error {
	var conflict *booking.SeatConflictError
	switch {
	case errors.As(err, &conflict):
		seats := conflict.Seats
		if seats == nil {
			seats = []model.SeatPosition{}
		}
		return c.JSON(http.StatusBadRequest, echo.Map{"error": SeatConflictMessage, "seats": seats})
	case errors.Is(err, booking.ErrSeatConflict):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": SeatConflictMessage})
	case errors.Is(err, booking.ErrUnauthorized):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": middleware.AuthRequiredMessage})
	case errors.Is(err, booking.ErrInvalidRequest):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.Is(err, booking.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
	case errors.Is(err, booking.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": err.Error()})
	case errors.Is(err, booking.ErrAlreadyPaid), errors.Is(err, booking.ErrBookingExpired):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
	}
}
