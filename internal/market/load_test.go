package market

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/svandell/allokera/internal/core"
	"go.uber.org/zap"
)

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "prices.csv")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeCSV(t, `DATE,XACTOMXS30.ST
2021-05-03,223.50
2021-05-04,224.00
2021-05-05,222.80
`)

	tbl, err := Load(path, FillForward, zap.NewNop())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if tbl.Len() != 3 {
		t.Errorf("table has %d rows, want 3", tbl.Len())
	}
	price, err := tbl.PriceAt("XACTOMXS30.ST", "2021-05-04")
	if err != nil || price != 224.0 {
		t.Errorf("PriceAt = %f, %v; want 224.0", price, err)
	}
}

func TestLoad_UnknownFillMethod(t *testing.T) {
	path := writeCSV(t, "DATE,A\n2021-05-03,1\n")

	_, err := Load(path, "extrapolate", zap.NewNop())
	if !errors.Is(err, core.ErrUnknownFill) {
		t.Errorf("expected ErrUnknownFill, got %v", err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load("/does/not/exist.csv", FillForward, zap.NewNop()); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoad_ForwardFill(t *testing.T) {
	path := writeCSV(t, `DATE,A
2021-05-03,10
2021-05-04,
2021-05-05,12
`)

	tbl, err := Load(path, FillForward, zap.NewNop())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	price, _ := tbl.PriceAt("A", "2021-05-04")
	if price != 10 {
		t.Errorf("forward-filled price = %f, want 10", price)
	}
}

func TestLoad_DropsUnfillableRows(t *testing.T) {
	// A leading gap cannot be forward-filled; the row must go.
	path := writeCSV(t, `DATE,A
2021-05-03,
2021-05-04,11
`)

	tbl, err := Load(path, FillForward, zap.NewNop())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if tbl.Len() != 1 {
		t.Errorf("table has %d rows, want 1", tbl.Len())
	}
}

func TestFillMissing_Interpolate(t *testing.T) {
	values := []float64{10, math.NaN(), math.NaN(), 16}
	fillMissing(values, FillInterpolate)

	if values[1] != 12 || values[2] != 14 {
		t.Errorf("interpolated = %v, want [10 12 14 16]", values)
	}
}

func TestFillMissing_Backward(t *testing.T) {
	values := []float64{math.NaN(), 11, math.NaN(), 13}
	fillMissing(values, FillBackward)

	if values[0] != 11 || values[2] != 13 {
		t.Errorf("backward-filled = %v", values)
	}
}
