package health

import (
	"sort"
	"sync"
	"time"
)

// CheckFunc reports the current health of one component.
type CheckFunc func() Status

// Monitor tracks the health of named components. A component's status is either
// pushed with Update or pulled from a registered CheckFunc on every Check.
type Monitor struct {
	mu       sync.RWMutex
	statuses map[string]Status
	checks   map[string]CheckFunc
	started  time.Time
}

// NewMonitor creates a new health monitor
func NewMonitor() *Monitor {
	return &Monitor{
		statuses: make(map[string]Status),
		checks:   make(map[string]CheckFunc),
		started:  time.Now(),
	}
}

// Register adds a pull-style check for name, replacing any previous one.
func (m *Monitor) Register(name string, check CheckFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checks[name] = check
}

// Update records a pushed status for a named component
func (m *Monitor) Update(name string, status Status) {
	m.mu.Lock()
	defer m.mu.Unlock()

	status.Component = name
	if status.Timestamp.IsZero() {
		status.Timestamp = time.Now()
	}

	m.statuses[name] = status
}

// UpdateHealthy marks a component healthy
func (m *Monitor) UpdateHealthy(name, message string) {
	m.Update(name, NewHealthy(name, message))
}

// UpdateUnhealthy marks a component unhealthy
func (m *Monitor) UpdateUnhealthy(name, message string) {
	m.Update(name, NewUnhealthy(name, message))
}

// Get returns the last known status for a named component
func (m *Monitor) Get(name string) (Status, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	status, exists := m.statuses[name]
	return status, exists
}

// Remove stops tracking a component
func (m *Monitor) Remove(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.statuses, name)
	delete(m.checks, name)
}

// Check runs every registered check, stores the results and returns the aggregate.
// Sub-statuses are ordered by component name.
func (m *Monitor) Check(systemName string) Status {
	m.mu.RLock()
	checks := make(map[string]CheckFunc, len(m.checks))
	for name, check := range m.checks {
		checks[name] = check
	}
	m.mu.RUnlock()

	// Checks run unlocked so they may take their own locks
	results := make(map[string]Status, len(checks))
	for name, check := range checks {
		results[name] = check()
	}

	m.mu.Lock()
	for name, status := range results {
		status.Component = name
		if status.Timestamp.IsZero() {
			status.Timestamp = time.Now()
		}
		m.statuses[name] = status
	}
	subStatuses := make([]Status, 0, len(m.statuses))
	for _, status := range m.statuses {
		subStatuses = append(subStatuses, status)
	}
	m.mu.Unlock()

	sort.Slice(subStatuses, func(i, j int) bool {
		return subStatuses[i].Component < subStatuses[j].Component
	})

	return Aggregate(systemName, subStatuses).WithMetrics(&Metrics{Uptime: time.Since(m.started)})
}

// ListComponents returns the sorted names of all tracked components
func (m *Monitor) ListComponents() []string {
	m.mu.RLock()
	seen := make(map[string]struct{}, len(m.statuses)+len(m.checks))
	for name := range m.statuses {
		seen[name] = struct{}{}
	}
	for name := range m.checks {
		seen[name] = struct{}{}
	}
	m.mu.RUnlock()

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
