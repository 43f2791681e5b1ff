package market

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/svandell/allokera/internal/core"
	"go.uber.org/zap"
)

// Fill-missing methods accepted by Load.
const (
	FillNone        = "none"
	FillForward     = "forward"
	FillBackward    = "backward"
	FillInterpolate = "interpolate"
)

// Load reads a CSV price file into a Table. The first column must be
// DATE in YYYY-MM-DD form; every other column is an instrument price
// series. Missing or non-numeric cells are filled with the given
// method and logged as data-quality warnings. Rows that remain
// unfillable are dropped.
func Load(path, fillMethod string, log *zap.Logger) (*Table, error) {
	switch fillMethod {
	case FillNone, FillForward, FillBackward, FillInterpolate, "":
	default:
		return nil, core.WrapError(core.ErrUnknownFill, fmt.Errorf("%q", fillMethod))
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, core.WrapError(core.ErrNoData, err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, core.WrapError(core.ErrNoData, err)
	}
	if len(records) < 2 {
		return nil, core.WrapError(core.ErrNoData, fmt.Errorf("%s has no data rows", path))
	}

	header := records[0]
	if len(header) < 2 || strings.ToUpper(header[0]) != "DATE" {
		return nil, core.WrapError(core.ErrNoData,
			fmt.Errorf("%s: first column must be DATE", path))
	}
	columns := header[1:]

	dates := make([]string, 0, len(records)-1)
	series := make(map[string][]float64, len(columns))
	for _, col := range columns {
		series[col] = make([]float64, 0, len(records)-1)
	}

	missing := make(map[string]int)
	for _, row := range records[1:] {
		if len(row) != len(header) {
			return nil, core.WrapError(core.ErrNoData,
				fmt.Errorf("%s: row for %s has %d cells, want %d", path, row[0], len(row), len(header)))
		}
		dates = append(dates, row[0])
		for j, col := range columns {
			cell := strings.TrimSpace(row[j+1])
			v, err := strconv.ParseFloat(cell, 64)
			if cell == "" || err != nil {
				v = math.NaN()
				missing[col]++
			}
			series[col] = append(series[col], v)
		}
	}

	for col, n := range missing {
		log.Warn("column has missing or non-numeric values",
			zap.String("column", col),
			zap.Int("count", n),
			zap.String("fill_method", fillMethod))
		fillMissing(series[col], fillMethod)
	}

	dates, series = dropIncompleteRows(dates, columns, series, log)
	if len(dates) == 0 {
		return nil, core.WrapError(core.ErrNoData, fmt.Errorf("%s: all rows incomplete", path))
	}

	log.Info("market data loaded",
		zap.String("file", path),
		zap.Int("days", len(dates)),
		zap.Int("instruments", len(columns)))

	return New(dates, columns, series)
}

// fillMissing replaces NaN values in place using the chosen method.
func fillMissing(values []float64, method string) {
	switch method {
	case FillForward:
		for i := 1; i < len(values); i++ {
			if math.IsNaN(values[i]) && !math.IsNaN(values[i-1]) {
				values[i] = values[i-1]
			}
		}
	case FillBackward:
		for i := len(values) - 2; i >= 0; i-- {
			if math.IsNaN(values[i]) && !math.IsNaN(values[i+1]) {
				values[i] = values[i+1]
			}
		}
	case FillInterpolate:
		for i := 0; i < len(values); i++ {
			if !math.IsNaN(values[i]) {
				continue
			}
			lo := i - 1
			hi := i
			for hi < len(values) && math.IsNaN(values[hi]) {
				hi++
			}
			if lo < 0 || hi >= len(values) {
				continue // no neighbor on one side, leave for row drop
			}
			step := (values[hi] - values[lo]) / float64(hi-lo)
			for j := lo + 1; j < hi; j++ {
				values[j] = values[lo] + step*float64(j-lo)
			}
			i = hi
		}
	}
}

// dropIncompleteRows removes any row that still holds a NaN after
// filling, mirroring a dropna over the raw frame.
func dropIncompleteRows(dates []string, columns []string, series map[string][]float64, log *zap.Logger) ([]string, map[string][]float64) {
	keep := make([]int, 0, len(dates))
	for i := range dates {
		complete := true
		for _, col := range columns {
			if math.IsNaN(series[col][i]) {
				complete = false
				break
			}
		}
		if complete {
			keep = append(keep, i)
		}
	}

	if len(keep) == len(dates) {
		return dates, series
	}

	log.Warn("dropping incomplete rows", zap.Int("count", len(dates)-len(keep)))

	outDates := make([]string, 0, len(keep))
	out := make(map[string][]float64, len(columns))
	for _, col := range columns {
		out[col] = make([]float64, 0, len(keep))
	}
	for _, i := range keep {
		outDates = append(outDates, dates[i])
		for _, col := range columns {
			out[col] = append(out[col], series[col][i])
		}
	}
	return outDates, out
}
