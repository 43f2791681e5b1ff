// Package commission maps fill size and price to a broker fee.
// Schemes form an open set selected by name through a registry.
package commission

import (
	"fmt"
	"sync"

	"github.com/svandell/allokera/internal/core"
)

// Scheme calculates the fee for a single fill.
type Scheme interface {
	Name() string
	Calculate(quantity, price float64) float64
}

// Registry manages commission scheme instances
type Registry struct {
	mu      sync.RWMutex
	schemes map[string]Scheme
}

// NewRegistry creates a registry preloaded with the built-in schemes.
// The empty name resolves to the free scheme so portfolios without a
// configured broker pay no fees.
func NewRegistry() *Registry {
	r := &Registry{
		schemes: make(map[string]Scheme),
	}
	r.schemes[""] = Free{}
	r.schemes[Free{}.Name()] = Free{}

	avanza := NewTiered("avanza_medium", 69, 0.00069)
	r.schemes[avanza.Name()] = avanza

	return r
}

// Register adds a scheme to the registry
func (r *Registry) Register(s Scheme) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := s.Name()
	if _, exists := r.schemes[name]; exists {
		return fmt.Errorf("commission scheme %s already registered", name)
	}

	r.schemes[name] = s
	return nil
}

// Get retrieves a scheme by name. An unknown name is a configuration
// error, never a silent zero fee.
func (r *Registry) Get(name string) (Scheme, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, exists := r.schemes[name]
	if !exists {
		return nil, core.WrapError(core.ErrUnknownScheme, fmt.Errorf("%q", name))
	}
	return s, nil
}

// Free charges nothing.
type Free struct{}

func (Free) Name() string { return "free" }

func (Free) Calculate(quantity, price float64) float64 { return 0 }

// Tiered charges a fraction of the traded notional with a minimum fee
// floor, the usual retail broker schedule.
type Tiered struct {
	name    string
	minimum float64
	rate    float64
}

// NewTiered creates a tiered scheme charging rate * notional, floored
// at minimum.
func NewTiered(name string, minimum, rate float64) Tiered {
	return Tiered{name: name, minimum: minimum, rate: rate}
}

func (t Tiered) Name() string { return t.name }

func (t Tiered) Calculate(quantity, price float64) float64 {
	fee := quantity * price * t.rate
	if fee < t.minimum {
		return t.minimum
	}
	return fee
}
