// Package rebalance implements periodic portfolio rebalancing toward
// fixed target weights on calendar boundaries.
package rebalance

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/svandell/allokera/internal/core"
	"github.com/svandell/allokera/internal/market"
	"github.com/svandell/allokera/internal/portfolio"
	"go.uber.org/zap"
)

// Period is the calendar boundary the strategy rebalances on.
type Period string

const (
	StartOfMonth Period = "som"
	EndOfMonth   Period = "eom"
	StartOfWeek  Period = "sow"
	EndOfWeek    Period = "eow"
)

func (p Period) describe() string {
	switch p {
	case StartOfMonth:
		return "start-of-month"
	case EndOfMonth:
		return "end-of-month"
	case StartOfWeek:
		return "start-of-week"
	default:
		return "end-of-week"
	}
}

// Rebalance buys or sells each configured instrument toward its
// target weight whenever the period flag is set for the date. The
// last business day of a month counts as its last day.
type Rebalance struct {
	period  Period
	weights map[string]float64
	names   []string // sorted for deterministic order emission
	log     *zap.Logger
}

// New validates the period and target weights. Violations are fatal
// configuration errors.
func New(period Period, weights map[string]float64, log *zap.Logger) (*Rebalance, error) {
	switch period {
	case StartOfMonth, EndOfMonth, StartOfWeek, EndOfWeek:
	default:
		return nil, core.WrapError(core.ErrBadPeriod, fmt.Errorf("%q", period))
	}

	names := make([]string, 0, len(weights))
	for name, w := range weights {
		if w < 0 || w > 1 {
			return nil, core.WrapError(core.ErrBadWeight,
				fmt.Errorf("weight for %s is %g", name, w))
		}
		names = append(names, name)
	}
	if len(names) == 0 {
		return nil, core.WrapError(core.ErrConfigMissing, fmt.Errorf("no target weights configured"))
	}
	sort.Strings(names)

	return &Rebalance{
		period:  period,
		weights: weights,
		names:   names,
		log:     log,
	}, nil
}

func (r *Rebalance) Name() string {
	return "periodic_rebalancing"
}

// Describe lists the trigger period and target weights.
func (r *Rebalance) Describe() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Periodic re-balancing at %s:\n", r.period.describe())
	for _, name := range r.names {
		fmt.Fprintf(&b, "%s: %g %%\n", name, 100*r.weights[name])
	}
	return b.String()
}

// ShouldTrigger reports whether the date sits on the configured
// calendar boundary.
func (r *Rebalance) ShouldTrigger(date string, flags market.CalendarFlags) bool {
	switch r.period {
	case StartOfMonth:
		return flags.StartOfMonth
	case EndOfMonth:
		return flags.EndOfMonth
	case StartOfWeek:
		return flags.StartOfWeek
	default:
		return flags.EndOfWeek
	}
}

// CalcSignal sizes one fill per instrument toward its target weight.
// Order quantities are whole units truncated toward zero; a zero
// quantity emits nothing.
func (r *Rebalance) CalcSignal(date string, data *market.Table, pf *portfolio.Portfolio) ([]*portfolio.Transaction, error) {
	var out []*portfolio.Transaction
	totalMV := pf.TotalMarketValue()

	for _, name := range r.names {
		target := r.weights[name]
		price, err := data.PriceAt(name, date)
		if err != nil {
			return nil, err
		}

		pos, held := pf.Handler.Get(name)
		if !held {
			quantity := math.Trunc(target * totalMV / price)
			if quantity <= 0 {
				continue
			}
			t, err := portfolio.NewTransaction(name, core.Buy, quantity, price, pf.Scheme(), date)
			if err != nil {
				return nil, err
			}
			out = append(out, t)
			continue
		}

		diff := pos.MarketValue/totalMV - target
		quantity := math.Trunc(diff * totalMV / price)
		if quantity == 0 {
			continue
		}

		direction := core.Buy
		if quantity > 0 {
			// Overweight: sell the excess.
			direction = core.Sell
		}
		t, err := portfolio.NewTransaction(name, direction, math.Abs(quantity), price, pf.Scheme(), date)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}

	r.log.Debug("rebalancing signals calculated",
		zap.String("date", date),
		zap.Int("count", len(out)))

	return out, nil
}
