package event

import (
	"fmt"

	"github.com/svandell/allokera/internal/market"
	"github.com/svandell/allokera/internal/portfolio"
	"github.com/svandell/allokera/internal/telemetry"
	"go.uber.org/zap"
)

// Handler drains the queue and applies each event to the portfolio:
// market events revalue it, transaction events trade against it.
type Handler struct {
	queue  *Queue
	pf     *portfolio.Portfolio
	market *market.Table
	tel    *telemetry.Registry
	log    *zap.Logger
}

// NewHandler creates a dispatcher over an empty queue.
func NewHandler(pf *portfolio.Portfolio, m *market.Table, tel *telemetry.Registry, log *zap.Logger) *Handler {
	return &Handler{
		queue:  NewQueue(),
		pf:     pf,
		market: m,
		tel:    tel,
		log:    log,
	}
}

// Put enqueues an event.
func (h *Handler) Put(e Event) {
	h.queue.Push(e)
}

// Empty reports whether any events are pending.
func (h *Handler) Empty() bool {
	return h.queue.Empty()
}

// HandleNext pops one event and dispatches it. The type switch is
// exhaustive over the event set; an unknown type is a programming
// error.
func (h *Handler) HandleNext() error {
	e, ok := h.queue.Pop()
	if !ok {
		return nil
	}

	h.log.Debug(e.Details())

	switch ev := e.(type) {
	case MarketEvent:
		h.tel.RecordEvent("market")
		return h.pf.Revalue(ev.Date(), h.market)
	case TransactionEvent:
		h.tel.RecordEvent("transaction")
		h.tel.RecordTransaction(string(ev.Trans.Direction))
		h.pf.ApplyTransaction(ev.Trans)
		return nil
	default:
		return fmt.Errorf("unhandled event type %T", e)
	}
}

// Drain processes pending events in FIFO order until the queue is
// empty.
func (h *Handler) Drain() error {
	for !h.queue.Empty() {
		if err := h.HandleNext(); err != nil {
			return err
		}
	}
	return nil
}
