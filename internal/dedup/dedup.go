// Package dedup enforces at most one SMS per phone number per calendar day.
package dedup

import (
	"context"
	"time"
)

// Result of a reservation attempt.
type Result int

const (
	Allowed Result = iota
	AlreadySent
)

func (r Result) String() string {
	if r == Allowed {
		return "allowed"
	}
	return "already_sent"
}

// Store hands out the single daily send slot per phone number. CheckAndReserve
// must be atomic: concurrent calls for the same phone on the same day yield
// exactly one Allowed. The reservation is taken before the gateway call and is
// never rolled back on send failure; a failed attempt still consumes the slot.
type Store interface {
	CheckAndReserve(ctx context.Context, phone string) (Result, error)
}

// DayKey renders the calendar day for now in loc, e.g. "2025-03-21".
// A fixed reference zone keeps keys stable regardless of the server clock.
func DayKey(now time.Time, loc *time.Location) string {
	return now.In(loc).Format("2006-01-02")
}
