// Package market provides the date-indexed price table the simulation
// runs against, including the calendar flags rebalancing strategies
// trigger on.
package market

import (
	"fmt"
	"time"

	"github.com/svandell/allokera/internal/core"
)

// CalendarFlags marks a trading day's place in the business calendar.
// The first and last trading day of a month or ISO week count as
// start and end, so month boundaries land on business days.
type CalendarFlags struct {
	StartOfMonth bool
	EndOfMonth   bool
	StartOfWeek  bool
	EndOfWeek    bool
}

// Table is an immutable date-indexed table of prices. Rows are trading
// days in ascending order; columns are instrument identifiers.
type Table struct {
	dates   []string
	index   map[string]int
	columns []string
	data    map[string][]float64
	flags   []CalendarFlags
}

// New builds a Table from parallel slices. Every column must have one
// value per date and every date must be a valid, strictly increasing
// calendar day.
func New(dates []string, columns []string, data map[string][]float64) (*Table, error) {
	if len(dates) == 0 {
		return nil, core.ErrNoData
	}

	parsed := make([]time.Time, len(dates))
	for i, d := range dates {
		t, err := core.ParseDate(d)
		if err != nil {
			return nil, err
		}
		if i > 0 && !t.After(parsed[i-1]) {
			return nil, core.WrapError(core.ErrBadDate,
				fmt.Errorf("dates must be strictly increasing, %s follows %s", d, dates[i-1]))
		}
		parsed[i] = t
	}

	index := make(map[string]int, len(dates))
	for i, d := range dates {
		index[d] = i
	}

	for _, col := range columns {
		values, ok := data[col]
		if !ok {
			return nil, core.WrapError(core.ErrColumnNotFound, fmt.Errorf("%q", col))
		}
		if len(values) != len(dates) {
			return nil, core.WrapError(core.ErrNoData,
				fmt.Errorf("column %q has %d values for %d dates", col, len(values), len(dates)))
		}
	}

	return &Table{
		dates:   dates,
		index:   index,
		columns: columns,
		data:    data,
		flags:   calendarFlags(parsed),
	}, nil
}

// calendarFlags precomputes the boundary flags for each trading day.
func calendarFlags(days []time.Time) []CalendarFlags {
	flags := make([]CalendarFlags, len(days))
	for i, day := range days {
		year, week := day.ISOWeek()
		flags[i].StartOfMonth = i == 0 || days[i-1].Month() != day.Month()
		flags[i].StartOfWeek = i == 0
		if i > 0 {
			py, pw := days[i-1].ISOWeek()
			flags[i].StartOfWeek = py != year || pw != week
		}
		flags[i].EndOfMonth = i == len(days)-1 || days[i+1].Month() != day.Month()
		flags[i].EndOfWeek = i == len(days)-1
		if i < len(days)-1 {
			ny, nw := days[i+1].ISOWeek()
			flags[i].EndOfWeek = ny != year || nw != week
		}
	}
	return flags
}

// Len returns the number of trading days in the table.
func (t *Table) Len() int { return len(t.dates) }

// Dates returns the date index in ascending order.
func (t *Table) Dates() []string { return t.dates }

// Columns returns the instrument columns in file order.
func (t *Table) Columns() []string { return t.columns }

// IndexOf returns the row index of a date.
func (t *Table) IndexOf(date string) (int, bool) {
	i, ok := t.index[date]
	return i, ok
}

// DateAt returns the date at row index i.
func (t *Table) DateAt(i int) string { return t.dates[i] }

// FlagsAt returns the calendar flags for a date.
func (t *Table) FlagsAt(date string) (CalendarFlags, error) {
	i, ok := t.index[date]
	if !ok {
		return CalendarFlags{}, core.WrapError(core.ErrDateNotFound, fmt.Errorf("%q", date))
	}
	return t.flags[i], nil
}

// PriceAt returns the price of an instrument on a date.
func (t *Table) PriceAt(name, date string) (float64, error) {
	values, ok := t.data[name]
	if !ok {
		return 0, core.WrapError(core.ErrColumnNotFound, fmt.Errorf("%q", name))
	}
	i, ok := t.index[date]
	if !ok {
		return 0, core.WrapError(core.ErrDateNotFound, fmt.Errorf("%q", date))
	}
	return values[i], nil
}

// Select returns a sub-table of the given columns over [start, end],
// both dates inclusive. Absent columns or dates are configuration
// errors, not empty results.
func (t *Table) Select(columns []string, start, end string) (*Table, error) {
	lo, ok := t.index[start]
	if !ok {
		return nil, core.WrapError(core.ErrDateNotFound, fmt.Errorf("start date %q", start))
	}
	hi, ok := t.index[end]
	if !ok {
		return nil, core.WrapError(core.ErrDateNotFound, fmt.Errorf("end date %q", end))
	}
	if lo > hi {
		return nil, core.WrapError(core.ErrBadDate,
			fmt.Errorf("start %s is after end %s", start, end))
	}

	data := make(map[string][]float64, len(columns))
	for _, col := range columns {
		values, ok := t.data[col]
		if !ok {
			return nil, core.WrapError(core.ErrColumnNotFound, fmt.Errorf("%q", col))
		}
		data[col] = values[lo : hi+1]
	}

	return New(t.dates[lo:hi+1], columns, data)
}
