// Package event defines the simulation's event types, the FIFO queue
// that orders them, and the dispatcher that applies them to a
// portfolio.
package event

import (
	"fmt"

	"github.com/svandell/allokera/internal/portfolio"
)

// Event is the closed set of things that can happen on a simulated
// date: a new market close, or a fill against the portfolio. Events
// carry only dispatch data plus a label for verbose logging.
type Event interface {
	Date() string
	Details() string
}

// MarketEvent signals that a new day has passed and prices moved.
type MarketEvent struct {
	date string
}

// NewMarket creates a market event for a date.
func NewMarket(date string) MarketEvent {
	return MarketEvent{date: date}
}

func (e MarketEvent) Date() string { return e.date }

func (e MarketEvent) Details() string {
	return fmt.Sprintf("market event [date: %s]", e.date)
}

// TransactionEvent carries a fill emitted by a strategy.
type TransactionEvent struct {
	date  string
	Trans *portfolio.Transaction
}

// NewTransaction creates a transaction event for a date.
func NewTransaction(date string, t *portfolio.Transaction) TransactionEvent {
	return TransactionEvent{date: date, Trans: t}
}

func (e TransactionEvent) Date() string { return e.date }

func (e TransactionEvent) Details() string {
	return fmt.Sprintf("transaction event [date: %s, direction: %s, name: %s, quantity: %g, price: %g]",
		e.date, e.Trans.Direction, e.Trans.Name, e.Trans.Quantity, e.Trans.Price)
}
