package queue

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatLine(t *testing.T) {
	line := FormatLine(BookingEvent{
		Type:        EventBookingHeld,
		BookingID:   7,
		UserID:      3,
		ShowtimeID:  10,
		MovieTitle:  "Дюна",
		SeatLabels:  []string{"ряд 3, место 5"},
		TotalAmount: "350.00",
		ExpiresAt:   "2026-03-14T14:30:00Z",
		OccurredAt:  "2026-03-14T14:00:00Z",
	})
	assert.Equal(t,
		`[2026-03-14T14:00:00Z] booking.held | booking_id=7 | user_id=3 | session_id=10 | movie="Дюна" | total=350.00 | seats=[ряд 3, место 5] | expires_at=2026-03-14T14:30:00Z`+"\n",
		line)
}

func TestConsumerHandle(t *testing.T) {
	c := NewConsumer("", nil)
	c.logPath = filepath.Join(t.TempDir(), "logs", "booking.log")

	require.NoError(t, c.Handle([]byte(`{"type":"booking.paid","booking_id":1,"session_id":2,"total_amount":"10.00","occurred_at":"now"}`)))
	require.NoError(t, c.Handle([]byte(`{"type":"booking.purchased","booking_id":2,"session_id":2}`)))

	assert.Error(t, c.Handle([]byte(`{`)))
	assert.Error(t, c.Handle([]byte(`{"type":"booking.paid"}`)))

	data, err := os.ReadFile(c.logPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "booking.paid | booking_id=1")
	assert.Contains(t, string(data), "booking.purchased | booking_id=2")
}
