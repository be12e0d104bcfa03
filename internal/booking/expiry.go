package booking

import "time"

// Clock supplies the current instant.  Expiry is always evaluated against
// this clock rather than the database server time.
type Clock interface {
	Now() time.Time
}

// SystemClock reports wall-clock time in UTC.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// Policy decides when an unpaid hold stops occupying its seats.  Expiry is
// never written; the availability predicate compares expires_at with the
// current instant at query time.
type Policy struct {
	HoldDuration time.Duration
}

// ExpiresAt returns the expiry stamped on a new booking created at now.
// Purchases never expire.
func (p Policy) ExpiresAt(action Action, now time.Time) *time.Time {
	if action == ActionPurchase {
		return nil
	}
	t := now.Add(p.HoldDuration)
	return &t
}
