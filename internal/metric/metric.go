// Package metric computes performance analytics over a finished
// portfolio history: returns, drawdowns, rolling risk ratios, CAGR
// and Sortino. It reads the ledger and produces a separate derived
// projection; the ledger itself is never mutated.
package metric

import (
	"math"

	"github.com/svandell/allokera/internal/core"
	"github.com/svandell/allokera/internal/portfolio"
	"github.com/svandell/allokera/internal/telemetry"
	"go.uber.org/zap"
)

// Config holds the window lengths and annualization settings, loaded
// once at startup.
type Config struct {
	RollingSharpeWindow int
	RollingBetaWindow   int
	Annualization       float64 // trading periods per year
	VarianceFloor       float64 // floor for near-zero rolling variance
}

// Defaults returns the conventional daily-data configuration: six
// month windows and a 252-day year.
func Defaults() Config {
	return Config{
		RollingSharpeWindow: 126,
		RollingBetaWindow:   126,
		Annualization:       252,
		VarianceFloor:       1e-5,
	}
}

// Row is one date of the derived projection.
type Row struct {
	Date             string
	TotalMarketValue float64
	Cash             float64
	BenchmarkValue   float64
	Return           float64 // daily fractional return
	CumReturn        float64 // cumulative return, percent
	BenchReturn      float64
	BenchCumReturn   float64
	Drawdown         float64 // percent, always <= 0
	Duration         int     // periods spent in the current drawdown
	RealizedPnL      float64
	UnrealizedPnL    float64
}

// Records is the full projection plus scalar summary statistics.
// Rolling columns are nil when the history was too short for their
// window.
type Records struct {
	PortfolioID string
	Benchmark   string

	Rows []Row

	RollingSharpe      []float64
	BenchRollingSharpe []float64
	RollingBeta        []float64

	MaxDrawdown         float64 // percent
	MaxDrawdownDuration int
	CAGR                float64 // percent
	Sortino             float64
}

// Calculator runs the batch metric computation.
type Calculator struct {
	cfg Config
	tel *telemetry.Registry
	log *zap.Logger
}

// NewCalculator creates a calculator with the given windows.
func NewCalculator(cfg Config, tel *telemetry.Registry, log *zap.Logger) *Calculator {
	return &Calculator{cfg: cfg, tel: tel, log: log}
}

// Compute derives all metrics from a portfolio's history ledger.
// Rolling statistics that lack history are skipped with a warning;
// everything else always computes.
func (c *Calculator) Compute(pf *portfolio.Portfolio) (*Records, error) {
	history := pf.History
	if len(history) == 0 {
		return nil, core.WrapError(core.ErrNoData, nil)
	}

	r := &Records{
		PortfolioID: pf.ID,
		Benchmark:   pf.Benchmark,
		Rows:        make([]Row, len(history)),
	}
	for i, snap := range history {
		r.Rows[i] = Row{
			Date:             snap.Date,
			TotalMarketValue: snap.TotalMarketValue,
			Cash:             snap.Cash,
			BenchmarkValue:   snap.BenchmarkValue,
			RealizedPnL:      snap.RealizedPnL,
			UnrealizedPnL:    snap.UnrealizedPnL,
		}
	}

	c.calcReturns(r, pf.InitCash)
	c.calcDrawdowns(r)
	c.calcRollingSharpe(r)
	c.calcRollingBeta(r)
	c.calcCAGR(r, pf.InitCash)
	c.calcSortino(r)

	c.log.Info("metrics calculated",
		zap.String("portfolio", pf.ID),
		zap.Int("rows", len(r.Rows)))

	return r, nil
}

// calcReturns fills daily and cumulative returns for the portfolio
// and, when present, the benchmark. The first row's return is taken
// against initial cash, not a nonexistent prior row.
func (c *Calculator) calcReturns(r *Records, initCash float64) {
	cum := 1.0
	benchCum := 1.0

	for i := range r.Rows {
		row := &r.Rows[i]

		if i == 0 {
			row.Return = row.TotalMarketValue/initCash - 1
		} else if prev := r.Rows[i-1].TotalMarketValue; prev != 0 {
			row.Return = row.TotalMarketValue/prev - 1
		}
		cum *= 1 + row.Return
		row.CumReturn = (cum - 1) * 100

		if r.Benchmark != "" && i > 0 {
			if prev := r.Rows[i-1].BenchmarkValue; prev != 0 {
				row.BenchReturn = row.BenchmarkValue/prev - 1
			}
		}
		if r.Benchmark != "" {
			benchCum *= 1 + row.BenchReturn
			row.BenchCumReturn = (benchCum - 1) * 100
		}
	}
}

// calcDrawdowns computes the decline from the running peak and how
// long each decline has lasted. Duration resets to zero exactly when
// the drawdown does.
func (c *Calculator) calcDrawdowns(r *Records) {
	peak := r.Rows[0].TotalMarketValue

	for i := range r.Rows {
		row := &r.Rows[i]
		if row.TotalMarketValue > peak {
			peak = row.TotalMarketValue
		}
		if peak > 0 {
			row.Drawdown = (row.TotalMarketValue/peak - 1) * 100
		}
		if row.Drawdown != 0 && i > 0 {
			row.Duration = r.Rows[i-1].Duration + 1
		}
		if row.Drawdown < r.MaxDrawdown {
			r.MaxDrawdown = row.Drawdown
		}
		if row.Duration > r.MaxDrawdownDuration {
			r.MaxDrawdownDuration = row.Duration
		}
	}
}

// calcRollingSharpe computes sqrt(window) * mean / std over a trailing
// window of daily returns. Rows before the first full window stay
// zero; zero variance yields zero rather than infinity.
func (c *Calculator) calcRollingSharpe(r *Records) {
	window := c.cfg.RollingSharpeWindow
	if len(r.Rows) < window {
		c.warnShortHistory("rolling Sharpe ratio", window, len(r.Rows))
		return
	}

	r.RollingSharpe = rollingSharpe(returnsOf(r, false), window)
	if r.Benchmark != "" {
		r.BenchRollingSharpe = rollingSharpe(returnsOf(r, true), window)
	} else {
		c.log.Warn("no benchmark selected, benchmark rolling Sharpe ratio not calculated",
			zap.String("portfolio", r.PortfolioID))
	}
}

// calcRollingBeta computes rolling cov(portfolio, benchmark) over
// benchmark variance. Near-zero variance is floored to keep the ratio
// finite over flat stretches.
func (c *Calculator) calcRollingBeta(r *Records) {
	window := c.cfg.RollingBetaWindow
	if len(r.Rows) < window {
		c.warnShortHistory("rolling beta", window, len(r.Rows))
		return
	}
	if r.Benchmark == "" {
		c.log.Warn("no benchmark selected, rolling beta not calculated",
			zap.String("portfolio", r.PortfolioID))
		return
	}

	pfRets := returnsOf(r, false)
	bmRets := returnsOf(r, true)

	beta := make([]float64, len(r.Rows))
	for i := window - 1; i < len(r.Rows); i++ {
		pw := pfRets[i-window+1 : i+1]
		bw := bmRets[i-window+1 : i+1]
		variance := sampleVariance(bw)
		if variance < c.cfg.VarianceFloor {
			variance = c.cfg.VarianceFloor
		}
		beta[i] = sampleCovariance(pw, bw) / variance
	}
	r.RollingBeta = beta
}

// calcCAGR annualizes total growth from initial cash to the final
// market value.
func (c *Calculator) calcCAGR(r *Records, initCash float64) {
	final := r.Rows[len(r.Rows)-1].TotalMarketValue
	years := float64(len(r.Rows)) / c.cfg.Annualization
	if years <= 0 || initCash <= 0 || final <= 0 {
		return
	}
	r.CAGR = (math.Pow(final/initCash, 1/years) - 1) * 100
}

// calcSortino is the annualized mean return over the deviation of
// negative returns only.
func (c *Calculator) calcSortino(r *Records) {
	rets := returnsOf(r, false)

	var downside []float64
	for _, v := range rets {
		if v < 0 {
			downside = append(downside, v)
		}
	}
	if len(downside) < 2 {
		c.tel.RecordMetricWarning()
		c.log.Warn("not enough negative returns for Sortino ratio",
			zap.Int("count", len(downside)))
		return
	}

	dev := math.Sqrt(sampleVariance(downside))
	if dev == 0 {
		return
	}
	r.Sortino = mean(rets) / dev * math.Sqrt(c.cfg.Annualization)
}

func (c *Calculator) warnShortHistory(name string, window, have int) {
	c.tel.RecordMetricWarning()
	c.log.Warn("backtesting period too short for metric, skipping",
		zap.String("metric", name),
		zap.Int("data_points", have),
		zap.Int("window", window))
}

func returnsOf(r *Records, benchmark bool) []float64 {
	out := make([]float64, len(r.Rows))
	for i, row := range r.Rows {
		if benchmark {
			out[i] = row.BenchReturn
		} else {
			out[i] = row.Return
		}
	}
	return out
}

func rollingSharpe(rets []float64, window int) []float64 {
	out := make([]float64, len(rets))
	for i := window - 1; i < len(rets); i++ {
		w := rets[i-window+1 : i+1]
		std := math.Sqrt(sampleVariance(w))
		if std == 0 {
			continue
		}
		out[i] = math.Sqrt(float64(window)) * mean(w) / std
	}
	return out
}

func mean(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// sampleVariance uses the n-1 denominator.
func sampleVariance(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	m := mean(values)
	var sum float64
	for _, v := range values {
		sum += (v - m) * (v - m)
	}
	return sum / float64(len(values)-1)
}

func sampleCovariance(a, b []float64) float64 {
	if len(a) < 2 || len(a) != len(b) {
		return 0
	}
	ma := mean(a)
	mb := mean(b)
	var sum float64
	for i := range a {
		sum += (a[i] - ma) * (b[i] - mb)
	}
	return sum / float64(len(a)-1)
}
