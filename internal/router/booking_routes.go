package router

import (
	"fmt"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-booking/internal/handler"
	"github.com/iliyamo/cinema-booking/internal/middleware"
)

// SeatMapPath is the concrete URL path of a showtime's seat map.  The
// response cache is keyed on it, so it must match the route below.
func SeatMapPath(showtimeID uint64) string {
	return fmt.Sprintf("/api/booking/%d/seats/", showtimeID)
}

// BookingDeps collects the middleware placed in front of booking routes.
type BookingDeps struct {
	JWTSecret string
	RateLimit echo.MiddlewareFunc // applied to write endpoints
	SeatCache echo.MiddlewareFunc // applied to the public seat map
}

// RegisterBooking registers the booking endpoints under /api.  The seat
// map is public and cached; everything else requires a valid JWT, and the
// write endpoints are rate limited per user and route.
func RegisterBooking(e *echo.Echo, h *handler.BookingHandler, deps BookingDeps) {
	rate := deps.RateLimit
	if rate == nil {
		rate = func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	cache := deps.SeatCache
	if cache == nil {
		cache = func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}

	e.GET("/api/booking/:session_id/seats/", h.SeatMap, cache)

	g := e.Group("/api", middleware.JWTAuth(deps.JWTSecret))
	g.POST("/booking/:session_id/process/", h.Process, rate)
	g.POST("/booking/:id/pay/", h.Pay, rate)
	g.GET("/booking/:id/", h.Get)
	g.GET("/my-bookings/", h.ListMine)
}
