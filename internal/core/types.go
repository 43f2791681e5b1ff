package core

import "time"

// DateLayout is the calendar-day format used throughout the engine.
// Market data, ledger rows and transactions are all keyed by dates in
// this form.
const DateLayout = "2006-01-02"

// Direction is the side of a transaction.
type Direction string

const (
	Buy  Direction = "BUY"
	Sell Direction = "SELL"
)

// IsValid checks that the direction is one of the two known sides.
func (d Direction) IsValid() bool {
	return d == Buy || d == Sell
}

// Sign returns +1 for a buy and -1 for a sell.
func (d Direction) Sign() float64 {
	if d == Sell {
		return -1
	}
	return 1
}

// ParseDate parses an ISO calendar date (YYYY-MM-DD).
func ParseDate(date string) (time.Time, error) {
	t, err := time.Parse(DateLayout, date)
	if err != nil {
		return time.Time{}, WrapError(ErrBadDate, err)
	}
	return t, nil
}

// ValidDate reports whether date is a well-formed calendar date.
func ValidDate(date string) bool {
	_, err := time.Parse(DateLayout, date)
	return err == nil
}
