package event

import (
	"strings"
	"testing"

	"github.com/svandell/allokera/internal/commission"
	"github.com/svandell/allokera/internal/core"
	"github.com/svandell/allokera/internal/portfolio"
)

func TestQueue_FIFO(t *testing.T) {
	q := NewQueue()

	q.Push(NewMarket("2021-05-03"))
	q.Push(NewMarket("2021-05-04"))
	q.Push(NewMarket("2021-05-05"))

	if q.Len() != 3 {
		t.Fatalf("Len = %d, want 3", q.Len())
	}

	for _, want := range []string{"2021-05-03", "2021-05-04", "2021-05-05"} {
		e, ok := q.Pop()
		if !ok {
			t.Fatal("queue unexpectedly empty")
		}
		if e.Date() != want {
			t.Errorf("popped %s, want %s", e.Date(), want)
		}
	}

	if !q.Empty() {
		t.Error("queue should be empty")
	}
	if _, ok := q.Pop(); ok {
		t.Error("Pop on empty queue should report not ok")
	}
}

func TestMarketEvent_Details(t *testing.T) {
	e := NewMarket("2021-05-03")
	if !strings.Contains(e.Details(), "2021-05-03") {
		t.Errorf("details missing date: %s", e.Details())
	}
}

func TestTransactionEvent_Details(t *testing.T) {
	tr, err := portfolio.NewTransaction("XACTOMXS30.ST", core.Buy, 100, 223.50, commission.Free{}, "2021-05-03")
	if err != nil {
		t.Fatal(err)
	}

	e := NewTransaction("2021-05-03", tr)
	for _, want := range []string{"XACTOMXS30.ST", "BUY", "100", "223.5"} {
		if !strings.Contains(e.Details(), want) {
			t.Errorf("details missing %q: %s", want, e.Details())
		}
	}
}
