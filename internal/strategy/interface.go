// Package strategy defines the capability interface trading
// strategies implement. Concrete variants live in subpackages.
package strategy

import (
	"github.com/svandell/allokera/internal/market"
	"github.com/svandell/allokera/internal/portfolio"
)

// Strategy observes the market and portfolio on a trigger date and
// emits zero or more transactions. Implementations hold no state
// between calls beyond their own configuration.
type Strategy interface {
	Name() string
	Describe() string

	// ShouldTrigger reports whether the strategy wants to act on a
	// date, given its calendar flags.
	ShouldTrigger(date string, flags market.CalendarFlags) bool

	// CalcSignal computes the fills needed on a trigger date. The
	// portfolio is already revalued for the date.
	CalcSignal(date string, data *market.Table, pf *portfolio.Portfolio) ([]*portfolio.Transaction, error)
}
