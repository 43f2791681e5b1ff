package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/svandell/allokera/internal/core"
	"github.com/svandell/allokera/internal/portfolio"
)

func testStore(t *testing.T) *SQLite {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveRun_RoundTrip(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	run := Run{
		ID:          "run-1",
		PortfolioID: "pf-omx",
		Benchmark:   "XACT OMXS30",
		StartDate:   "2021-05-03",
		EndDate:     "2021-05-05",
		InitCash:    100000,
		FinalValue:  101500,
		CAGR:        2.5,
		MaxDrawdown: -1.2,
		Sortino:     0.8,
	}
	snaps := []portfolio.Snapshot{
		{Date: "2021-05-03", TotalMarketValue: 100000, Cash: 100000},
		{Date: "2021-05-04", TotalMarketValue: 100900, Cash: 500, OpenPositions: 2},
		{Date: "2021-05-05", TotalMarketValue: 101500, Cash: 500, OpenPositions: 2},
	}
	fills := []*portfolio.Transaction{
		{Name: "A", Direction: core.Buy, Quantity: 398, Price: 223.50, Commission: 69, Date: "2021-05-03", TotalCash: 89022},
		{Name: "B", Direction: core.Buy, Quantity: 200, Price: 50, Commission: 69, Date: "2021-05-03", TotalCash: 10069},
	}

	if err := s.SaveRun(ctx, run, snaps, fills); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}

	got, err := s.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got.PortfolioID != "pf-omx" || got.FinalValue != 101500 {
		t.Errorf("run = %+v", got)
	}
	if got.CreatedAt == "" {
		t.Error("created_at should be stamped on save")
	}

	gotSnaps, err := s.Snapshots(ctx, "run-1")
	if err != nil {
		t.Fatalf("Snapshots: %v", err)
	}
	if len(gotSnaps) != 3 {
		t.Fatalf("got %d snapshots, want 3", len(gotSnaps))
	}
	if gotSnaps[0].Date != "2021-05-03" || gotSnaps[2].OpenPositions != 2 {
		t.Errorf("snapshots = %+v", gotSnaps)
	}

	gotFills, err := s.Transactions(ctx, "run-1")
	if err != nil {
		t.Fatalf("Transactions: %v", err)
	}
	if len(gotFills) != 2 {
		t.Fatalf("got %d fills, want 2", len(gotFills))
	}
	if gotFills[0].Name != "A" || gotFills[0].Direction != core.Buy {
		t.Errorf("first fill = %+v", gotFills[0])
	}
}

func TestGetRun_Missing(t *testing.T) {
	s := testStore(t)

	_, err := s.GetRun(context.Background(), "nope")
	if !errors.Is(err, core.ErrNoData) {
		t.Errorf("expected ErrNoData, got %v", err)
	}
}

func TestSaveRun_DuplicateID(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	run := Run{ID: "run-1", PortfolioID: "pf", StartDate: "2021-05-03", EndDate: "2021-05-04"}
	if err := s.SaveRun(ctx, run, nil, nil); err != nil {
		t.Fatal(err)
	}
	if err := s.SaveRun(ctx, run, nil, nil); !errors.Is(err, core.ErrStoreFailed) {
		t.Errorf("expected ErrStoreFailed for duplicate id, got %v", err)
	}
}

func TestListRuns(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	for _, id := range []string{"run-a", "run-b"} {
		run := Run{ID: id, PortfolioID: "pf", StartDate: "2021-05-03", EndDate: "2021-05-04"}
		if err := s.SaveRun(ctx, run, nil, nil); err != nil {
			t.Fatal(err)
		}
	}

	runs, err := s.ListRuns(ctx)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 2 {
		t.Errorf("got %d runs, want 2", len(runs))
	}
}
