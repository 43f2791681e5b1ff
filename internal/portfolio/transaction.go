// Package portfolio implements the position and cash accounting engine:
// immutable transactions, weighted-average-cost positions, and the
// per-date history ledger the metric engine reads after a run.
package portfolio

import (
	"fmt"
	"math"

	"github.com/svandell/allokera/internal/commission"
	"github.com/svandell/allokera/internal/core"
)

// Transaction is an immutable record of one fill. Quantity is always a
// positive magnitude; the side lives in Direction. Commission is
// computed eagerly at construction and cached.
type Transaction struct {
	Name       string
	Direction  core.Direction
	Quantity   float64
	Price      float64
	Commission float64
	Date       string

	// TotalCash is commission + quantity*price. The sign of the cash
	// movement is derived from Direction by the portfolio.
	TotalCash float64
}

// NewTransaction validates and constructs a fill record. An invalid
// direction, quantity or date is a configuration error.
func NewTransaction(name string, direction core.Direction, quantity, price float64, scheme commission.Scheme, date string) (*Transaction, error) {
	if !direction.IsValid() {
		return nil, core.WrapError(core.ErrBadDirection, fmt.Errorf("%q", direction))
	}
	quantity = math.Abs(quantity)
	if quantity == 0 {
		return nil, core.WrapError(core.ErrBadQuantity, fmt.Errorf("%s %s", direction, name))
	}
	if !core.ValidDate(date) {
		return nil, core.WrapError(core.ErrBadDate, fmt.Errorf("%q", date))
	}

	fee := scheme.Calculate(quantity, price)
	return &Transaction{
		Name:       name,
		Direction:  direction,
		Quantity:   quantity,
		Price:      price,
		Commission: fee,
		Date:       date,
		TotalCash:  fee + quantity*price,
	}, nil
}
