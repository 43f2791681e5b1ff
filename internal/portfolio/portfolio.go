package portfolio

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/svandell/allokera/internal/commission"
	"github.com/svandell/allokera/internal/core"
	"github.com/svandell/allokera/internal/market"
	"go.uber.org/zap"
)

// Settings are the config-driven defaults supplied once at
// construction.
type Settings struct {
	ID               string
	Currency         string
	InitCash         float64
	Benchmark        string
	CommissionScheme string
}

// Snapshot is one row of the history ledger: the portfolio state at
// the close of a simulated date.
type Snapshot struct {
	Date             string
	TotalMarketValue float64
	Cash             float64
	BenchmarkValue   float64
	RealizedPnL      float64 // cumulative, survives closed positions
	UnrealizedPnL    float64
	OpenPositions    int
}

// Portfolio owns cash, the position handler and the append-only
// history ledger. It is mutated once per market event (revalue) and
// once per transaction event (trade), and read-only after the run.
type Portfolio struct {
	ID            string
	Currency      string
	InceptionDate string
	InitCash      float64
	CurrentCash   float64
	Benchmark     string
	SchemeName    string

	Handler *Handler
	History []Snapshot

	// Transactions is the chronological log of every applied fill.
	Transactions []*Transaction

	scheme   commission.Scheme
	realized float64
	log      *zap.Logger
}

// New creates a portfolio at its inception date. The commission scheme
// is resolved once from the registry; an unknown name aborts here.
func New(inceptionDate string, s Settings, schemes *commission.Registry, log *zap.Logger) (*Portfolio, error) {
	if !core.ValidDate(inceptionDate) {
		return nil, core.WrapError(core.ErrBadDate, fmt.Errorf("inception date %q", inceptionDate))
	}
	if s.InitCash <= 0 {
		return nil, core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("initial cash must be positive, got %f", s.InitCash))
	}

	scheme, err := schemes.Get(s.CommissionScheme)
	if err != nil {
		return nil, err
	}

	id := s.ID
	if id == "" {
		id = uuid.NewString()
	}

	log.Info("portfolio created",
		zap.String("id", id),
		zap.String("inception", inceptionDate),
		zap.Float64("init_cash", s.InitCash),
		zap.String("commission_scheme", scheme.Name()))

	return &Portfolio{
		ID:            id,
		Currency:      s.Currency,
		InceptionDate: inceptionDate,
		InitCash:      s.InitCash,
		CurrentCash:   s.InitCash,
		Benchmark:     s.Benchmark,
		SchemeName:    s.CommissionScheme,
		Handler:       NewHandler(),
		scheme:        scheme,
		log:           log,
	}, nil
}

// Scheme returns the resolved commission scheme for building
// transactions against this portfolio.
func (p *Portfolio) Scheme() commission.Scheme {
	return p.scheme
}

// ApplyTransaction books a fill: positions through the handler, cash
// by the fill's total impact. Buys pay price plus commission; sells
// receive proceeds net of commission.
func (p *Portfolio) ApplyTransaction(t *Transaction) {
	p.realized += p.Handler.Apply(t)
	p.Transactions = append(p.Transactions, t)

	if t.Direction == core.Buy {
		p.CurrentCash -= t.TotalCash
	} else {
		p.CurrentCash += t.Quantity*t.Price - t.Commission
	}

	if p.CurrentCash < 0 {
		p.log.Warn("cash balance negative after transaction",
			zap.String("portfolio", p.ID),
			zap.Float64("cash", p.CurrentCash))
	}

	p.log.Info("transaction applied",
		zap.String("date", t.Date),
		zap.String("direction", string(t.Direction)),
		zap.String("name", t.Name),
		zap.Float64("quantity", t.Quantity),
		zap.Float64("price", t.Price),
		zap.Float64("commission", t.Commission))
}

// Revalue marks every open position to the date's market price and
// appends the date's row to the history ledger. A cash-only portfolio
// still gets its row.
func (p *Portfolio) Revalue(date string, m *market.Table) error {
	for _, name := range p.Handler.Names() {
		price, err := m.PriceAt(name, date)
		if err != nil {
			return err
		}
		pos, _ := p.Handler.Get(name)
		pos.MarkToMarket(price)
	}

	var benchmark float64
	if p.Benchmark != "" {
		v, err := m.PriceAt(p.Benchmark, date)
		if err != nil {
			return err
		}
		benchmark = v
	}

	p.History = append(p.History, Snapshot{
		Date:             date,
		TotalMarketValue: p.TotalMarketValue(),
		Cash:             p.CurrentCash,
		BenchmarkValue:   benchmark,
		RealizedPnL:      p.realized,
		UnrealizedPnL:    p.Handler.TotalUnrealizedPnL(),
		OpenPositions:    p.Handler.Len(),
	})
	return nil
}

// TotalMarketValue is current cash plus the market value of all open
// positions.
func (p *Portfolio) TotalMarketValue() float64 {
	return p.CurrentCash + p.Handler.TotalMarketValue()
}

// RealizedPnL returns cumulative realized P&L including positions that
// have since been closed and removed.
func (p *Portfolio) RealizedPnL() float64 {
	return p.realized
}
