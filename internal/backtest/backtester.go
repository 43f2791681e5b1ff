// Package backtest drives the simulation: it steps through the market
// calendar one date at a time, dispatches events, lets the strategy
// react, and hands the finished portfolio to the metric engine.
package backtest

import (
	"context"
	"fmt"
	"time"

	"github.com/svandell/allokera/internal/core"
	"github.com/svandell/allokera/internal/event"
	"github.com/svandell/allokera/internal/market"
	"github.com/svandell/allokera/internal/metric"
	"github.com/svandell/allokera/internal/portfolio"
	"github.com/svandell/allokera/internal/strategy"
	"github.com/svandell/allokera/internal/telemetry"
	"go.uber.org/zap"
)

// State is the loop's lifecycle phase.
type State int

const (
	Running State = iota
	Completed
)

// Backtest replays the market table from start to end date against
// one portfolio and strategy. The whole run is single-threaded; the
// event queue exists for ordering, not concurrency.
type Backtest struct {
	market *market.Table
	pf     *portfolio.Portfolio
	strat  strategy.Strategy
	events *event.Handler
	calc   *metric.Calculator
	tel    *telemetry.Registry
	log    *zap.Logger

	startDate    string
	endDate      string
	currentDate  string
	currentIndex int
	endIndex     int
	state        State
}

// New validates the date range against the market index. A start or
// end date with no market data is a configuration error and aborts
// the run before it begins.
func New(m *market.Table, pf *portfolio.Portfolio, strat strategy.Strategy, calc *metric.Calculator, tel *telemetry.Registry, log *zap.Logger, startDate, endDate string) (*Backtest, error) {
	startIndex, ok := m.IndexOf(startDate)
	if !ok {
		return nil, core.WrapError(core.ErrDateNotFound, fmt.Errorf("start date %q", startDate))
	}
	endIndex, ok := m.IndexOf(endDate)
	if !ok {
		return nil, core.WrapError(core.ErrDateNotFound, fmt.Errorf("end date %q", endDate))
	}
	if startIndex > endIndex {
		return nil, core.WrapError(core.ErrBadDate,
			fmt.Errorf("start %s is after end %s", startDate, endDate))
	}

	return &Backtest{
		market:       m,
		pf:           pf,
		strat:        strat,
		events:       event.NewHandler(pf, m, tel, log),
		calc:         calc,
		tel:          tel,
		log:          log,
		startDate:    startDate,
		endDate:      endDate,
		currentDate:  startDate,
		currentIndex: startIndex,
		endIndex:     endIndex,
		state:        Running,
	}, nil
}

// State returns the loop's current phase.
func (b *Backtest) State() State {
	return b.state
}

// Run executes the simulation to completion and computes the metrics
// over the accumulated history. Each tick drains events pending from
// the prior date, emits and dispatches the date's market event, then
// lets the strategy enqueue fills against the revalued portfolio.
func (b *Backtest) Run(ctx context.Context) (*metric.Records, error) {
	started := time.Now()
	b.log.Info("backtest running",
		zap.String("portfolio", b.pf.ID),
		zap.String("from", b.startDate),
		zap.String("to", b.endDate))

	for b.state == Running {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		if err := b.events.Drain(); err != nil {
			return nil, err
		}

		b.events.Put(event.NewMarket(b.currentDate))
		if err := b.events.HandleNext(); err != nil {
			return nil, err
		}

		if err := b.triggerStrategy(); err != nil {
			return nil, err
		}

		b.currentIndex++
		if b.currentIndex > b.endIndex {
			b.state = Completed
		} else {
			b.currentDate = b.market.DateAt(b.currentIndex)
		}
	}

	// Fills emitted on the final date still settle against the
	// portfolio; the ledger already ends at the final revaluation.
	if err := b.events.Drain(); err != nil {
		return nil, err
	}

	b.tel.RecordDuration(time.Since(started).Seconds())
	b.log.Info("backtest completed",
		zap.String("portfolio", b.pf.ID),
		zap.Duration("elapsed", time.Since(started)))

	return b.calc.Compute(b.pf)
}

// triggerStrategy asks the strategy for fills on the current date and
// enqueues them for the next drain, so they always see the already
// revalued portfolio.
func (b *Backtest) triggerStrategy() error {
	if b.strat == nil {
		return nil
	}

	flags, err := b.market.FlagsAt(b.currentDate)
	if err != nil {
		return err
	}
	if !b.strat.ShouldTrigger(b.currentDate, flags) {
		return nil
	}

	signals, err := b.strat.CalcSignal(b.currentDate, b.market, b.pf)
	if err != nil {
		return err
	}
	for _, t := range signals {
		b.tel.RecordSignal(b.strat.Name())
		b.events.Put(event.NewTransaction(b.currentDate, t))
	}
	return nil
}
