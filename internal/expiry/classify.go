// Package expiry derives the expiry classification of a grocery item from its
// expiry date and the current date. All comparisons happen at midnight
// granularity: an item expiring "today" is not yet expired.
package expiry

import (
	"errors"
	"fmt"
	"time"
)

// DateLayout is the calendar date format used throughout the API.
const DateLayout = "2006-01-02"

// ErrInvalidDate is returned when a date string cannot be parsed.
var ErrInvalidDate = errors.New("invalid date")

// Urgency bands an item's remaining shelf life for display and ordering.
// It never feeds back into the persisted status.
type Urgency string

const (
	UrgencyExpired Urgency = "expired"
	UrgencyUrgent  Urgency = "urgent"  // expires today or tomorrow
	UrgencyWarning Urgency = "warning" // within 3 days
	UrgencyNotice  Urgency = "notice"  // within 7 days
	UrgencyFresh   Urgency = "fresh"
)

// Verdict is the derived expiry classification of one item. It is a pure
// computation result and is never persisted.
type Verdict struct {
	IsExpired       bool `json:"isExpired"`
	DaysUntilExpiry int  `json:"daysUntilExpiry"`
}

// Urgency returns the urgency band for the verdict.
func (v Verdict) Urgency() Urgency {
	switch {
	case v.IsExpired:
		return UrgencyExpired
	case v.DaysUntilExpiry <= 1:
		return UrgencyUrgent
	case v.DaysUntilExpiry <= 3:
		return UrgencyWarning
	case v.DaysUntilExpiry <= 7:
		return UrgencyNotice
	default:
		return UrgencyFresh
	}
}

// ParseDate parses an ISO calendar date. Full RFC 3339 timestamps are
// accepted and truncated to their date part.
func ParseDate(s string) (time.Time, error) {
	if t, err := time.Parse(DateLayout, s); err == nil {
		return midnight(t), nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return midnight(t), nil
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
}

// FormatDate formats t as an ISO calendar date.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// Classify computes the expiry verdict for expiryDate relative to today.
// It is total for parseable dates; unparseable dates are a caller
// precondition failure reported as ErrInvalidDate.
func Classify(expiryDate string, today time.Time) (Verdict, error) {
	exp, err := ParseDate(expiryDate)
	if err != nil {
		return Verdict{}, err
	}
	return classifyAt(exp, midnight(today)), nil
}

// StatusIsExpired is a convenience wrapper for callers that only need the
// expired bit and have already validated the date.
func StatusIsExpired(expiryDate string, today time.Time) bool {
	v, err := Classify(expiryDate, today)
	if err != nil {
		return false
	}
	return v.IsExpired
}

func classifyAt(exp, today time.Time) Verdict {
	// Both arguments are midnight UTC, so the hour difference is an exact
	// multiple of 24 and the ceil in the day count is a no-op.
	days := int(exp.Sub(today).Hours() / 24)
	return Verdict{
		IsExpired:       days < 0,
		DaysUntilExpiry: days,
	}
}

func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
