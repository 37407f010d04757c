package aiprovider

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"planforge/logging"
)

// Sentinel errors returned by the Manager.
var (
	// ErrUnknownProvider is returned when switching to or requesting a
	// provider name that was never registered.
	ErrUnknownProvider = errors.New("aiprovider: unknown provider")

	// ErrNoProviderAvailable is returned when every registered provider
	// probed unavailable (or none is registered).
	ErrNoProviderAvailable = errors.New("aiprovider: no provider available")

	// ErrDuplicateProvider is returned when registering a name twice.
	ErrDuplicateProvider = errors.New("aiprovider: provider already registered")
)

// SelectionState is the failover state machine position. Selection is
// modeled explicitly (rather than as implicit try/catch chains) so failover
// decisions are inspectable and testable.
type SelectionState string

const (
	// StateProbing means no selection has completed yet.
	StateProbing SelectionState = "probing"

	// StateSelected means a provider from the failover order was chosen.
	StateSelected SelectionState = "selected"

	// StateDegraded means the failover order yielded nothing and the
	// manager fell back to registration order - or to no provider at all
	// (Provider empty) when everything probed unavailable.
	StateDegraded SelectionState = "degraded"
)

// ProbeResult records one availability probe during selection.
type ProbeResult struct {
	Provider  string
	Available bool
	Latency   time.Duration
}

// Selection is the inspectable outcome of the most recent
// GetBestAvailableProvider call.
type Selection struct {
	State    SelectionState
	Provider string
	Probes   []ProbeResult
	At       time.Time
}

// Manager holds the registry of named providers, the current provider
// pointer and the failover order. It is safe for concurrent use.
type Manager struct {
	mu            sync.RWMutex
	providers     map[string]Provider
	order         []string // registration order
	failoverOrder []string
	current       string
	lastSelection Selection
	logger        *logging.Logger
}

// NewManager creates a Manager with the given failover order. Names in the
// failover order that are never registered are simply skipped during
// selection.
func NewManager(failoverOrder []string, logger *logging.Logger) *Manager {
	if logger != nil {
		logger = logger.Named("provider-manager")
	}
	return &Manager{
		providers:     make(map[string]Provider),
		failoverOrder: append([]string(nil), failoverOrder...),
		lastSelection: Selection{State: StateProbing},
		logger:        logger,
	}
}

// Register adds a provider to the registry. The first registered provider
// becomes the current provider.
func (m *Manager) Register(p Provider) error {
	if p == nil {
		return fmt.Errorf("aiprovider: provider cannot be nil")
	}
	name := p.Name()
	if name == "" {
		return fmt.Errorf("aiprovider: provider name cannot be empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.providers[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateProvider, name)
	}

	m.providers[name] = p
	m.order = append(m.order, name)
	if m.current == "" {
		m.current = name
	}

	if m.logger != nil {
		m.logger.Info("provider registered",
			zap.String("provider", name),
			zap.String("capabilities", p.Capabilities().String()))
	}
	return nil
}

// SwitchProvider sets the current provider pointer. Fails with
// ErrUnknownProvider (leaving the current selection untouched) if the name
// was never registered.
func (m *Manager) SwitchProvider(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.providers[name]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownProvider, name)
	}
	m.current = name
	return nil
}

// Current returns the current provider, or false if none is registered.
func (m *Manager) Current() (Provider, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.providers[m.current]
	return p, ok
}

// Get returns a registered provider by name.
func (m *Manager) Get(name string) (Provider, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.providers[name]
	return p, ok
}

// Names returns provider names in registration order.
func (m *Manager) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return append([]string(nil), m.order...)
}

// FailoverOrder returns the configured failover order.
func (m *Manager) FailoverOrder() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return append([]string(nil), m.failoverOrder...)
}

// LastSelection returns the outcome of the most recent best-available
// selection, including every probe taken. Before any selection has run the
// state is StateProbing.
func (m *Manager) LastSelection() Selection {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sel := m.lastSelection
	sel.Probes = append([]ProbeResult(nil), m.lastSelection.Probes...)
	return sel
}

// GetBestAvailableProvider probes every registered provider and selects one:
//
//  1. the first name in the failover order that probed available, else
//  2. the first available provider in registration order, else
//  3. none (ErrNoProviderAvailable).
//
// Probes run sequentially against a registration snapshot; no ordering
// guarantee exists between probes. The resulting Selection (state machine
// position plus probe evidence) is retained for inspection and the current
// provider pointer is updated on success.
func (m *Manager) GetBestAvailableProvider(ctx context.Context) (Provider, error) {
	m.mu.RLock()
	names := append([]string(nil), m.order...)
	failover := append([]string(nil), m.failoverOrder...)
	providers := make(map[string]Provider, len(m.providers))
	for name, p := range m.providers {
		providers[name] = p
	}
	m.mu.RUnlock()

	available := make(map[string]bool, len(names))
	probes := make([]ProbeResult, 0, len(names))
	for _, name := range names {
		start := time.Now()
		ok := providers[name].IsAvailable(ctx)
		probes = append(probes, ProbeResult{
			Provider:  name,
			Available: ok,
			Latency:   time.Since(start),
		})
		available[name] = ok
	}

	chosen := ""
	state := StateDegraded
	for _, name := range failover {
		if available[name] {
			chosen = name
			state = StateSelected
			break
		}
	}
	if chosen == "" {
		for _, name := range names {
			if available[name] {
				chosen = name
				break
			}
		}
	}
	// With no failover order configured, any availability-based pick is a
	// first-class selection, not a degraded one.
	if chosen != "" && len(failover) == 0 {
		state = StateSelected
	}

	selection := Selection{
		State:    state,
		Provider: chosen,
		Probes:   probes,
		At:       time.Now(),
	}

	m.mu.Lock()
	m.lastSelection = selection
	if chosen != "" {
		m.current = chosen
	}
	m.mu.Unlock()

	if chosen == "" {
		if m.logger != nil {
			m.logger.Warn("no provider available", zap.Int("probed", len(probes)))
		}
		return nil, ErrNoProviderAvailable
	}

	if m.logger != nil {
		m.logger.Info("provider selected",
			zap.String("provider", chosen),
			zap.String("state", string(state)))
	}
	return providers[chosen], nil
}
