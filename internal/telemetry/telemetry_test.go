package telemetry

import (
	"testing"

	"go.uber.org/zap"
)

func TestNewRegistry(t *testing.T) {
	reg := NewRegistry()
	if reg == nil {
		t.Fatal("expected non-nil registry")
	}

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather failed: %v", err)
	}
	// Counters are lazy; only the histogram shows before any record.
	if len(mfs) == 0 {
		t.Error("expected registered metrics")
	}
}

func TestRegistry_RecordCounters(t *testing.T) {
	reg := NewRegistry()

	reg.RecordEvent("market")
	reg.RecordEvent("market")
	reg.RecordEvent("transaction")
	reg.RecordTransaction("BUY")
	reg.RecordSignal("rebalance")
	reg.RecordMetricWarning()
	reg.RecordDuration(0.42)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather failed: %v", err)
	}

	values := map[string]float64{}
	for _, mf := range mfs {
		for _, m := range mf.GetMetric() {
			key := mf.GetName()
			for _, label := range m.GetLabel() {
				key += "/" + label.GetValue()
			}
			if m.GetCounter() != nil {
				values[key] = m.GetCounter().GetValue()
			}
		}
	}

	if values["allokera_events_processed_total/market"] != 2 {
		t.Errorf("market events = %f, want 2", values["allokera_events_processed_total/market"])
	}
	if values["allokera_events_processed_total/transaction"] != 1 {
		t.Errorf("transaction events = %f, want 1", values["allokera_events_processed_total/transaction"])
	}
	if values["allokera_transactions_applied_total/BUY"] != 1 {
		t.Errorf("buys = %f, want 1", values["allokera_transactions_applied_total/BUY"])
	}
	if values["allokera_signals_generated_total/rebalance"] != 1 {
		t.Errorf("signals = %f, want 1", values["allokera_signals_generated_total/rebalance"])
	}
	if values["allokera_metric_warnings_total"] != 1 {
		t.Errorf("warnings = %f, want 1", values["allokera_metric_warnings_total"])
	}
}

func TestRegistry_LogSummary(t *testing.T) {
	reg := NewRegistry()
	reg.RecordEvent("market")
	reg.RecordDuration(1.5)

	// Must not panic on a mixed counter/histogram registry.
	reg.LogSummary(zap.NewNop())
}
