// Package store persists finished runs to SQLite so results survive
// the process and can be compared across runs.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/svandell/allokera/internal/core"
	"github.com/svandell/allokera/internal/portfolio"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// Run is the persisted header of one completed simulation.
type Run struct {
	ID          string
	PortfolioID string
	Benchmark   string
	StartDate   string
	EndDate     string
	InitCash    float64
	FinalValue  float64
	CAGR        float64
	MaxDrawdown float64
	Sortino     float64
	CreatedAt   string
}

// SQLite stores runs, their per-date snapshots and their executed
// transactions in a single database file.
type SQLite struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id            TEXT PRIMARY KEY,
	portfolio_id  TEXT NOT NULL,
	benchmark     TEXT NOT NULL DEFAULT '',
	start_date    TEXT NOT NULL,
	end_date      TEXT NOT NULL,
	init_cash     REAL NOT NULL,
	final_value   REAL NOT NULL,
	cagr          REAL NOT NULL,
	max_drawdown  REAL NOT NULL,
	sortino       REAL NOT NULL,
	created_at    TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS snapshots (
	run_id             TEXT NOT NULL REFERENCES runs(id),
	date               TEXT NOT NULL,
	total_market_value REAL NOT NULL,
	cash               REAL NOT NULL,
	benchmark_value    REAL NOT NULL,
	realized_pnl       REAL NOT NULL,
	unrealized_pnl     REAL NOT NULL,
	open_positions     INTEGER NOT NULL,
	PRIMARY KEY (run_id, date)
);

CREATE TABLE IF NOT EXISTS transactions (
	run_id     TEXT NOT NULL REFERENCES runs(id),
	seq        INTEGER NOT NULL,
	date       TEXT NOT NULL,
	name       TEXT NOT NULL,
	direction  TEXT NOT NULL,
	quantity   REAL NOT NULL,
	price      REAL NOT NULL,
	commission REAL NOT NULL,
	total_cash REAL NOT NULL,
	PRIMARY KEY (run_id, seq)
);
`

// NewSQLite opens (or creates) the database at dbPath and applies the
// schema.
func NewSQLite(dbPath string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, core.WrapError(core.ErrStoreFailed, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, core.WrapError(core.ErrStoreFailed, fmt.Errorf("applying schema: %w", err))
	}
	return &SQLite{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// SaveRun persists the run header together with its snapshots and
// transaction log in one database transaction.
func (s *SQLite) SaveRun(ctx context.Context, run Run, snapshots []portfolio.Snapshot, fills []*portfolio.Transaction) error {
	if run.CreatedAt == "" {
		run.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return core.WrapError(core.ErrStoreFailed, err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, portfolio_id, benchmark, start_date, end_date, init_cash, final_value, cagr, max_drawdown, sortino, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.PortfolioID, run.Benchmark, run.StartDate, run.EndDate,
		run.InitCash, run.FinalValue, run.CAGR, run.MaxDrawdown, run.Sortino, run.CreatedAt)
	if err != nil {
		return core.WrapError(core.ErrStoreFailed, fmt.Errorf("inserting run: %w", err))
	}

	for _, snap := range snapshots {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO snapshots (run_id, date, total_market_value, cash, benchmark_value, realized_pnl, unrealized_pnl, open_positions)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			run.ID, snap.Date, snap.TotalMarketValue, snap.Cash,
			snap.BenchmarkValue, snap.RealizedPnL, snap.UnrealizedPnL, snap.OpenPositions)
		if err != nil {
			return core.WrapError(core.ErrStoreFailed, fmt.Errorf("inserting snapshot %s: %w", snap.Date, err))
		}
	}

	for i, f := range fills {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO transactions (run_id, seq, date, name, direction, quantity, price, commission, total_cash)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			run.ID, i, f.Date, f.Name, string(f.Direction), f.Quantity, f.Price, f.Commission, f.TotalCash)
		if err != nil {
			return core.WrapError(core.ErrStoreFailed, fmt.Errorf("inserting transaction %d: %w", i, err))
		}
	}

	if err := tx.Commit(); err != nil {
		return core.WrapError(core.ErrStoreFailed, err)
	}
	return nil
}

// GetRun retrieves one run header by id.
func (s *SQLite) GetRun(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, portfolio_id, benchmark, start_date, end_date, init_cash, final_value, cagr, max_drawdown, sortino, created_at
		 FROM runs WHERE id = ?`, id)

	var r Run
	err := row.Scan(&r.ID, &r.PortfolioID, &r.Benchmark, &r.StartDate, &r.EndDate,
		&r.InitCash, &r.FinalValue, &r.CAGR, &r.MaxDrawdown, &r.Sortino, &r.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, core.WrapError(core.ErrNoData, fmt.Errorf("run %s", id))
	}
	if err != nil {
		return nil, core.WrapError(core.ErrStoreFailed, err)
	}
	return &r, nil
}

// ListRuns returns all run headers, newest first.
func (s *SQLite) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, portfolio_id, benchmark, start_date, end_date, init_cash, final_value, cagr, max_drawdown, sortino, created_at
		 FROM runs ORDER BY created_at DESC`)
	if err != nil {
		return nil, core.WrapError(core.ErrStoreFailed, err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.PortfolioID, &r.Benchmark, &r.StartDate, &r.EndDate,
			&r.InitCash, &r.FinalValue, &r.CAGR, &r.MaxDrawdown, &r.Sortino, &r.CreatedAt); err != nil {
			return nil, core.WrapError(core.ErrStoreFailed, err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Snapshots returns a run's ledger rows in date order.
func (s *SQLite) Snapshots(ctx context.Context, runID string) ([]portfolio.Snapshot, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT date, total_market_value, cash, benchmark_value, realized_pnl, unrealized_pnl, open_positions
		 FROM snapshots WHERE run_id = ? ORDER BY date`, runID)
	if err != nil {
		return nil, core.WrapError(core.ErrStoreFailed, err)
	}
	defer rows.Close()

	var snaps []portfolio.Snapshot
	for rows.Next() {
		var snap portfolio.Snapshot
		if err := rows.Scan(&snap.Date, &snap.TotalMarketValue, &snap.Cash,
			&snap.BenchmarkValue, &snap.RealizedPnL, &snap.UnrealizedPnL, &snap.OpenPositions); err != nil {
			return nil, core.WrapError(core.ErrStoreFailed, err)
		}
		snaps = append(snaps, snap)
	}
	return snaps, rows.Err()
}

// Transactions returns a run's fills in execution order.
func (s *SQLite) Transactions(ctx context.Context, runID string) ([]portfolio.Transaction, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT date, name, direction, quantity, price, commission, total_cash
		 FROM transactions WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, core.WrapError(core.ErrStoreFailed, err)
	}
	defer rows.Close()

	var fills []portfolio.Transaction
	for rows.Next() {
		var f portfolio.Transaction
		var direction string
		if err := rows.Scan(&f.Date, &f.Name, &direction, &f.Quantity,
			&f.Price, &f.Commission, &f.TotalCash); err != nil {
			return nil, core.WrapError(core.ErrStoreFailed, err)
		}
		f.Direction = core.Direction(direction)
		fills = append(fills, f)
	}
	return fills, rows.Err()
}
