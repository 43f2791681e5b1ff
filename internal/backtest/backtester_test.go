package backtest

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/svandell/allokera/internal/commission"
	"github.com/svandell/allokera/internal/core"
	"github.com/svandell/allokera/internal/market"
	"github.com/svandell/allokera/internal/metric"
	"github.com/svandell/allokera/internal/portfolio"
	"github.com/svandell/allokera/internal/strategy"
	"github.com/svandell/allokera/internal/strategy/rebalance"
	"github.com/svandell/allokera/internal/telemetry"
	"go.uber.org/zap"
)

func testMarket(t *testing.T) *market.Table {
	t.Helper()
	dates := []string{
		"2021-04-29", "2021-04-30", "2021-05-03", "2021-05-04",
		"2021-05-05", "2021-05-06", "2021-05-07", "2021-05-10",
	}
	data := map[string][]float64{
		"A": {220.0, 221.5, 223.5, 224.0, 222.8, 225.1, 226.0, 227.3},
		"B": {50.0, 50.5, 51.0, 50.8, 51.2, 51.5, 52.0, 51.8},
	}
	m, err := market.New(dates, []string{"A", "B"}, data)
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func testPortfolio(t *testing.T) *portfolio.Portfolio {
	t.Helper()
	pf, err := portfolio.New("2021-04-29", portfolio.Settings{
		ID:       "pf-test",
		InitCash: 100000,
	}, commission.NewRegistry(), zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	return pf
}

func newBacktest(t *testing.T, pf *portfolio.Portfolio, strat strategy.Strategy, start, end string) *Backtest {
	t.Helper()
	tel := telemetry.NewRegistry()
	calc := metric.NewCalculator(metric.Defaults(), tel, zap.NewNop())
	bt, err := New(testMarket(t), pf, strat, calc, tel, zap.NewNop(), start, end)
	if err != nil {
		t.Fatal(err)
	}
	return bt
}

func TestNew_DateValidation(t *testing.T) {
	pf := testPortfolio(t)
	tel := telemetry.NewRegistry()
	calc := metric.NewCalculator(metric.Defaults(), tel, zap.NewNop())
	m := testMarket(t)

	_, err := New(m, pf, nil, calc, tel, zap.NewNop(), "2021-05-01", "2021-05-10")
	if !errors.Is(err, core.ErrDateNotFound) {
		t.Errorf("start date off-calendar: expected ErrDateNotFound, got %v", err)
	}

	_, err = New(m, pf, nil, calc, tel, zap.NewNop(), "2021-04-29", "2021-05-08")
	if !errors.Is(err, core.ErrDateNotFound) {
		t.Errorf("end date off-calendar: expected ErrDateNotFound, got %v", err)
	}

	_, err = New(m, pf, nil, calc, tel, zap.NewNop(), "2021-05-10", "2021-04-29")
	if !errors.Is(err, core.ErrBadDate) {
		t.Errorf("inverted range: expected ErrBadDate, got %v", err)
	}
}

func TestRun_LedgerHasOneRowPerDate(t *testing.T) {
	pf := testPortfolio(t)
	bt := newBacktest(t, pf, nil, "2021-04-29", "2021-05-10")

	records, err := bt.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if bt.State() != Completed {
		t.Error("backtest should be completed")
	}

	m := testMarket(t)
	if len(pf.History) != m.Len() {
		t.Fatalf("history has %d rows, want %d", len(pf.History), m.Len())
	}
	for i, row := range pf.History {
		if row.Date != m.DateAt(i) {
			t.Errorf("row %d: date %s, want %s", i, row.Date, m.DateAt(i))
		}
	}
	if len(records.Rows) != m.Len() {
		t.Errorf("records have %d rows, want %d", len(records.Rows), m.Len())
	}
}

func TestRun_RebalancingOpensPositions(t *testing.T) {
	pf := testPortfolio(t)
	strat, err := rebalance.New(rebalance.StartOfMonth, map[string]float64{"A": 0.89, "B": 0.10}, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	bt := newBacktest(t, pf, strat, "2021-04-29", "2021-05-10")

	if _, err := bt.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	// The first trigger date emits the initial buys; they settle on
	// the next tick, so day one is still a cash-only row.
	if pf.History[0].OpenPositions != 0 {
		t.Errorf("day one should be cash only, got %d positions", pf.History[0].OpenPositions)
	}
	if pf.History[1].OpenPositions != 2 {
		t.Errorf("day two should hold both instruments, got %d", pf.History[1].OpenPositions)
	}

	// Ledger consistency: every row's market value is cash plus
	// position value, and the final row matches the live portfolio.
	last := pf.History[len(pf.History)-1]
	if math.Abs(last.TotalMarketValue-pf.TotalMarketValue()) > 1e-6 {
		t.Errorf("final row %f != portfolio value %f", last.TotalMarketValue, pf.TotalMarketValue())
	}
}

func TestRun_BuyAndHoldScenario(t *testing.T) {
	pf := testPortfolio(t)
	bt := newBacktest(t, pf, &buyOnce{name: "A", quantity: 100}, "2021-04-29", "2021-05-10")

	if _, err := bt.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	// Bought 100 @ 220 on the first date, settled on the second.
	wantCash := 100000 - 100*220.0
	if math.Abs(pf.CurrentCash-wantCash) > 1e-9 {
		t.Errorf("cash = %f, want %f", pf.CurrentCash, wantCash)
	}

	row := pf.History[1]
	if math.Abs(row.TotalMarketValue-(wantCash+100*221.5)) > 1e-9 {
		t.Errorf("day two value = %f, want cash + 100*221.50", row.TotalMarketValue)
	}
}

func TestRun_ContextCancellation(t *testing.T) {
	pf := testPortfolio(t)
	bt := newBacktest(t, pf, nil, "2021-04-29", "2021-05-10")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := bt.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

// buyOnce is a minimal strategy buying a fixed quantity on the first
// date it sees.
type buyOnce struct {
	name     string
	quantity float64
	done     bool
}

func (s *buyOnce) Name() string     { return "buy_once" }
func (s *buyOnce) Describe() string { return "buy once, hold forever" }

func (s *buyOnce) ShouldTrigger(date string, flags market.CalendarFlags) bool {
	return !s.done
}

func (s *buyOnce) CalcSignal(date string, data *market.Table, pf *portfolio.Portfolio) ([]*portfolio.Transaction, error) {
	s.done = true
	price, err := data.PriceAt(s.name, date)
	if err != nil {
		return nil, err
	}
	t, err := portfolio.NewTransaction(s.name, core.Buy, s.quantity, price, pf.Scheme(), date)
	if err != nil {
		return nil, err
	}
	return []*portfolio.Transaction{t}, nil
}
