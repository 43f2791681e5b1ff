package report

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/svandell/allokera/internal/core"
	"github.com/svandell/allokera/internal/metric"
	"go.uber.org/zap"
)

// Writer renders finished run records and publishes them to the
// archive.
type Writer struct {
	store Storage
	log   *zap.Logger
}

func NewWriter(store Storage, log *zap.Logger) *Writer {
	return &Writer{store: store, log: log}
}

// Summary is the scalar statistics of one run, written next to the
// full table.
type Summary struct {
	RunID               string  `json:"run_id"`
	PortfolioID         string  `json:"portfolio_id"`
	Benchmark           string  `json:"benchmark,omitempty"`
	StartDate           string  `json:"start_date"`
	EndDate             string  `json:"end_date"`
	Rows                int     `json:"rows"`
	FinalMarketValue    float64 `json:"final_market_value"`
	CumReturn           float64 `json:"cum_return_pct"`
	MaxDrawdown         float64 `json:"max_drawdown_pct"`
	MaxDrawdownDuration int     `json:"max_drawdown_duration"`
	CAGR                float64 `json:"cagr_pct"`
	Sortino             float64 `json:"sortino"`
	GeneratedAt         string  `json:"generated_at"`
}

// Publish writes records.csv and summary.json under the run's
// directory in the archive.
func (w *Writer) Publish(ctx context.Context, runID string, rec *metric.Records) error {
	if len(rec.Rows) == 0 {
		return core.WrapError(core.ErrNoData, fmt.Errorf("run %s has no rows", runID))
	}

	table, err := renderCSV(rec)
	if err != nil {
		return core.WrapError(core.ErrArchiveFailed, err)
	}
	if err := w.store.Put(ctx, runID+"/records.csv", table); err != nil {
		return core.WrapError(core.ErrArchiveFailed, err)
	}

	summary, err := json.MarshalIndent(newSummary(runID, rec), "", "  ")
	if err != nil {
		return core.WrapError(core.ErrArchiveFailed, err)
	}
	if err := w.store.Put(ctx, runID+"/summary.json", summary); err != nil {
		return core.WrapError(core.ErrArchiveFailed, err)
	}

	w.log.Info("run archived",
		zap.String("run", runID),
		zap.String("portfolio", rec.PortfolioID),
		zap.Int("rows", len(rec.Rows)))
	return nil
}

func newSummary(runID string, rec *metric.Records) Summary {
	last := rec.Rows[len(rec.Rows)-1]
	return Summary{
		RunID:               runID,
		PortfolioID:         rec.PortfolioID,
		Benchmark:           rec.Benchmark,
		StartDate:           rec.Rows[0].Date,
		EndDate:             last.Date,
		Rows:                len(rec.Rows),
		FinalMarketValue:    last.TotalMarketValue,
		CumReturn:           last.CumReturn,
		MaxDrawdown:         rec.MaxDrawdown,
		MaxDrawdownDuration: rec.MaxDrawdownDuration,
		CAGR:                rec.CAGR,
		Sortino:             rec.Sortino,
		GeneratedAt:         time.Now().UTC().Format(time.RFC3339),
	}
}

func renderCSV(rec *metric.Records) ([]byte, error) {
	header := []string{
		"date", "total_market_value", "cash", "benchmark_value",
		"return", "cum_return", "bench_return", "bench_cum_return",
		"drawdown", "duration", "realized_pnl", "unrealized_pnl",
	}
	if rec.RollingSharpe != nil {
		header = append(header, "rolling_sharpe")
	}
	if rec.BenchRollingSharpe != nil {
		header = append(header, "bench_rolling_sharpe")
	}
	if rec.RollingBeta != nil {
		header = append(header, "rolling_beta")
	}

	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)
	if err := cw.Write(header); err != nil {
		return nil, err
	}

	for i, row := range rec.Rows {
		record := []string{
			row.Date,
			formatFloat(row.TotalMarketValue),
			formatFloat(row.Cash),
			formatFloat(row.BenchmarkValue),
			formatFloat(row.Return),
			formatFloat(row.CumReturn),
			formatFloat(row.BenchReturn),
			formatFloat(row.BenchCumReturn),
			formatFloat(row.Drawdown),
			strconv.Itoa(row.Duration),
			formatFloat(row.RealizedPnL),
			formatFloat(row.UnrealizedPnL),
		}
		if rec.RollingSharpe != nil {
			record = append(record, formatFloat(rec.RollingSharpe[i]))
		}
		if rec.BenchRollingSharpe != nil {
			record = append(record, formatFloat(rec.BenchRollingSharpe[i]))
		}
		if rec.RollingBeta != nil {
			record = append(record, formatFloat(rec.RollingBeta[i]))
		}
		if err := cw.Write(record); err != nil {
			return nil, err
		}
	}

	cw.Flush()
	return buf.Bytes(), cw.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
