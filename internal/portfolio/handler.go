package portfolio

// Handler owns the instrument → Position mapping of one portfolio.
// Iteration order is insertion order so reports are deterministic, and
// no entry ever has a net quantity of zero: a position that goes flat
// is removed on the fill that flattens it.
type Handler struct {
	order     []string
	positions map[string]*Position
}

// NewHandler creates an empty position handler.
func NewHandler() *Handler {
	return &Handler{
		positions: make(map[string]*Position),
	}
}

// Apply routes a fill to the instrument's position, creating it on the
// first fill and removing it when it goes flat. Returns the P&L the
// fill realized.
func (h *Handler) Apply(t *Transaction) float64 {
	pos, exists := h.positions[t.Name]
	if !exists {
		h.positions[t.Name] = NewPosition(t)
		h.order = append(h.order, t.Name)
		return 0
	}

	realized := pos.Apply(t)
	if pos.Flat() {
		h.remove(t.Name)
	}
	return realized
}

func (h *Handler) remove(name string) {
	delete(h.positions, name)
	for i, n := range h.order {
		if n == name {
			h.order = append(h.order[:i], h.order[i+1:]...)
			break
		}
	}
}

// Get returns the position for an instrument, if open.
func (h *Handler) Get(name string) (*Position, bool) {
	pos, ok := h.positions[name]
	return pos, ok
}

// Names returns the open instruments in insertion order.
func (h *Handler) Names() []string {
	out := make([]string, len(h.order))
	copy(out, h.order)
	return out
}

// Len returns the number of open positions.
func (h *Handler) Len() int {
	return len(h.positions)
}

// TotalMarketValue sums the market value of all open positions.
func (h *Handler) TotalMarketValue() float64 {
	var total float64
	for _, pos := range h.positions {
		total += pos.MarketValue
	}
	return total
}

// TotalUnrealizedPnL sums unrealized P&L over all open positions.
func (h *Handler) TotalUnrealizedPnL() float64 {
	var total float64
	for _, pos := range h.positions {
		total += pos.UnrealizedPnL
	}
	return total
}

// TotalRealizedPnL sums realized P&L over open positions only. The
// portfolio keeps the cumulative figure that survives position
// removal.
func (h *Handler) TotalRealizedPnL() float64 {
	var total float64
	for _, pos := range h.positions {
		total += pos.RealizedPnL
	}
	return total
}

// TotalPnL sums realized plus unrealized P&L over open positions.
func (h *Handler) TotalPnL() float64 {
	return h.TotalRealizedPnL() + h.TotalUnrealizedPnL()
}
