// Package queue defines message payloads exchanged over the message broker
// and the consumer that records them.
package queue

// BookingQueueName is the durable queue carrying booking lifecycle events.
const BookingQueueName = "booking.events"

// Event types carried in BookingEvent.Type.
const (
	EventBookingHeld      = "booking.held"
	EventBookingPurchased = "booking.purchased"
	EventBookingPaid      = "booking.paid"
)

// BookingEvent is published after a booking transaction commits.  It
// carries enough information for downstream consumers to log, notify, or
// trigger analytics without querying the primary database.
type BookingEvent struct {
	Type        string   `json:"type"`
	BookingID   uint64   `json:"booking_id"`
	UserID      uint64   `json:"user_id"`
	ShowtimeID  uint64   `json:"session_id"`
	MovieTitle  string   `json:"movie_title"`
	StartsAt    string   `json:"starts_at"`
	SeatLabels  []string `json:"seats"`
	TotalAmount string   `json:"total_amount"`
	ExpiresAt   string   `json:"expires_at,omitempty"`
	OccurredAt  string   `json:"occurred_at"`
}
