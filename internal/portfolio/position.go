package portfolio

import "math"

// Position aggregates the fills of one instrument. The weighted
// average price covers the currently open lot only: additions move it,
// reductions realize P&L against it and leave it unchanged. A fill
// that crosses through zero is treated as a closing leg at the old wap
// plus an opening leg whose wap is the fill price.
type Position struct {
	Name          string
	Quantity      float64 // signed net quantity
	WAP           float64
	RealizedPnL   float64
	CurrentPrice  float64
	MarketValue   float64
	UnrealizedPnL float64
	History       []*Transaction
}

// NewPosition opens a position from its first fill.
func NewPosition(t *Transaction) *Position {
	p := &Position{Name: t.Name}
	p.Apply(t)
	return p
}

// Apply books a fill against the position and returns the P&L realized
// by it (zero when the fill only adds exposure).
func (p *Position) Apply(t *Transaction) float64 {
	p.History = append(p.History, t)
	signed := t.Quantity * t.Direction.Sign()

	var realized float64
	switch {
	case p.Quantity == 0 || sameSign(p.Quantity, signed):
		// Adding exposure: wap becomes the quantity-weighted average
		// of the open lot and the fill.
		open := math.Abs(p.Quantity)
		p.WAP = (p.WAP*open + t.Price*t.Quantity) / (open + t.Quantity)
		p.Quantity += signed

	default:
		// Reducing exposure: realize against the existing wap.
		closed := math.Min(t.Quantity, math.Abs(p.Quantity))
		realized = (t.Price - p.WAP) * closed * sign(p.Quantity)
		p.RealizedPnL += realized
		p.Quantity += signed

		if remainder := t.Quantity - closed; remainder > 0 {
			// Crossed zero: the remainder opens a new lot.
			p.WAP = t.Price
		}
	}

	p.MarkToMarket(t.Price)
	return realized
}

// MarkToMarket revalues the position at a market price.
func (p *Position) MarkToMarket(price float64) {
	p.CurrentPrice = price
	p.MarketValue = price * p.Quantity
	p.UnrealizedPnL = (price - p.WAP) * p.Quantity
}

// TotalPnL is realized plus unrealized P&L.
func (p *Position) TotalPnL() float64 {
	return p.RealizedPnL + p.UnrealizedPnL
}

// Flat reports whether the net quantity has returned to exactly zero.
func (p *Position) Flat() bool {
	return p.Quantity == 0
}

func sign(v float64) float64 {
	if v < 0 {
		return -1
	}
	return 1
}

func sameSign(a, b float64) bool {
	return (a > 0 && b > 0) || (a < 0 && b < 0)
}
