package sync

import (
	"log"
	"sync"
	"time"
)

// Status is the connectivity state shown to the rest of the system and the
// UI. `syncing` means reachable with work left in the queue.
type Status string

const (
	StatusOnline  Status = "online"
	StatusOffline Status = "offline"
	StatusSyncing Status = "syncing"
)

// Prober answers whether the remote backend is reachable right now
type Prober interface {
	Ping() error
}

// PendingCounter is the slice of the local store the monitor reads
type PendingCounter interface {
	CountPending() (int, error)
}

// Monitor tracks backend reachability and derives the tri-state status.
// It owns no queue logic; it only reads the pending counter.
type Monitor struct {
	mu sync.RWMutex

	prober  Prober
	counter PendingCounter

	reachable    bool
	pendingCount int
	status       Status

	probeInterval time.Duration
	listeners     []func(Status, int)

	running  bool
	stopChan chan struct{}
}

// NewMonitor creates a connection monitor. The initial state is derived
// from an immediate probe when Start is called.
func NewMonitor(prober Prober, counter PendingCounter, probeInterval time.Duration) *Monitor {
	return &Monitor{
		prober:        prober,
		counter:       counter,
		status:        StatusOffline,
		probeInterval: probeInterval,
		stopChan:      make(chan struct{}),
	}
}

// Start derives the initial state and begins the probe loop
func (m *Monitor) Start() {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return
	}
	m.running = true
	m.mu.Unlock()

	m.probe()
	go m.probeLoop()
}

// Stop halts the probe loop
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}
	m.running = false
	close(m.stopChan)
}

// Status returns the current derived status
func (m *Monitor) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

// IsOnline reports whether the backend is reachable (online or syncing)
func (m *Monitor) IsOnline() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status == StatusOnline || m.status == StatusSyncing
}

// PendingCount returns the last observed pending counter
func (m *Monitor) PendingCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pendingCount
}

// OnStatusChange registers a listener invoked on every status transition.
// Listeners must not block; they run on the monitor's goroutine.
func (m *Monitor) OnStatusChange(fn func(status Status, pendingCount int)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

// SetReachable feeds a reachability observation into the state machine.
// Exposed so platform connectivity events can short-circuit the probe loop.
func (m *Monitor) SetReachable(reachable bool) {
	m.mu.Lock()
	m.reachable = reachable
	changed, listeners, status, count := m.recomputeLocked()
	m.mu.Unlock()

	if changed {
		notify(listeners, status, count)
	}
}

// RefreshPendingCount re-reads the pending counter and re-derives the
// status. Called after every queue mutation.
func (m *Monitor) RefreshPendingCount() {
	n, err := m.counter.CountPending()
	if err != nil {
		log.Printf("⚠️ Monitor: failed to count pending operations: %v", err)
		return
	}

	m.mu.Lock()
	m.pendingCount = n
	changed, listeners, status, count := m.recomputeLocked()
	m.mu.Unlock()

	if changed {
		notify(listeners, status, count)
	}
}

func (m *Monitor) probe() {
	err := m.prober.Ping()

	n, cerr := m.counter.CountPending()

	m.mu.Lock()
	m.reachable = err == nil
	if cerr == nil {
		m.pendingCount = n
	}
	changed, listeners, status, count := m.recomputeLocked()
	m.mu.Unlock()

	if changed {
		notify(listeners, status, count)
	}
}

func (m *Monitor) probeLoop() {
	ticker := time.NewTicker(m.probeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.probe()
		case <-m.stopChan:
			return
		}
	}
}

// recomputeLocked derives the status. Unreachable wins unconditionally; a
// reachable device is syncing while work remains, online otherwise.
// Listeners are returned so callers can notify after releasing the lock.
func (m *Monitor) recomputeLocked() (bool, []func(Status, int), Status, int) {
	next := StatusOffline
	if m.reachable {
		if m.pendingCount > 0 {
			next = StatusSyncing
		} else {
			next = StatusOnline
		}
	}

	if next == m.status {
		return false, nil, next, m.pendingCount
	}

	log.Printf("🔌 Connection status: %s -> %s (pending=%d)", m.status, next, m.pendingCount)
	m.status = next

	listeners := make([]func(Status, int), len(m.listeners))
	copy(listeners, m.listeners)
	return true, listeners, next, m.pendingCount
}

func notify(listeners []func(Status, int), status Status, count int) {
	for _, fn := range listeners {
		fn(status, count)
	}
}
