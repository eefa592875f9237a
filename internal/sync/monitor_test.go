package sync

import (
	"errors"
	"testing"
	"time"
)

func TestMonitor_StatusDerivation(t *testing.T) {
	tests := []struct {
		name      string
		reachable bool
		pending   int
		want      Status
	}{
		{"unreachable with empty queue", false, 0, StatusOffline},
		{"unreachable wins over pending work", false, 5, StatusOffline},
		{"reachable with empty queue", true, 0, StatusOnline},
		{"reachable with pending work", true, 3, StatusSyncing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			counter := &fakeCounter{n: tt.pending}
			m := NewMonitor(&fakeProber{}, counter, time.Hour)

			m.RefreshPendingCount()
			m.SetReachable(tt.reachable)

			if got := m.Status(); got != tt.want {
				t.Errorf("Status() = %s, want %s", got, tt.want)
			}
			if got := m.PendingCount(); got != tt.pending {
				t.Errorf("PendingCount() = %d, want %d", got, tt.pending)
			}
		})
	}
}

func TestMonitor_IsOnline(t *testing.T) {
	counter := &fakeCounter{}
	m := NewMonitor(&fakeProber{}, counter, time.Hour)

	if m.IsOnline() {
		t.Error("Fresh monitor should start offline")
	}

	m.SetReachable(true)
	if !m.IsOnline() {
		t.Error("Reachable monitor should report online")
	}

	counter.n = 2
	m.RefreshPendingCount()
	if m.Status() != StatusSyncing {
		t.Fatalf("Status = %s, want syncing", m.Status())
	}
	if !m.IsOnline() {
		t.Error("Syncing still counts as online")
	}
}

func TestMonitor_ListenersFireOnTransitionsOnly(t *testing.T) {
	counter := &fakeCounter{}
	m := NewMonitor(&fakeProber{}, counter, time.Hour)

	type event struct {
		status Status
		count  int
	}
	var events []event
	m.OnStatusChange(func(status Status, pendingCount int) {
		events = append(events, event{status, pendingCount})
	})

	m.SetReachable(true)  // offline -> online
	m.SetReachable(true)  // no transition
	counter.n = 4
	m.RefreshPendingCount() // online -> syncing
	m.RefreshPendingCount() // no transition
	counter.n = 0
	m.RefreshPendingCount() // syncing -> online
	m.SetReachable(false)   // online -> offline

	want := []event{
		{StatusOnline, 0},
		{StatusSyncing, 4},
		{StatusOnline, 0},
		{StatusOffline, 0},
	}
	if len(events) != len(want) {
		t.Fatalf("Expected %d transitions, got %d: %v", len(want), len(events), events)
	}
	for i, w := range want {
		if events[i] != w {
			t.Errorf("Transition %d = %v, want %v", i, events[i], w)
		}
	}
}

func TestMonitor_ListenerMayCallBack(t *testing.T) {
	counter := &fakeCounter{}
	m := NewMonitor(&fakeProber{}, counter, time.Hour)

	var observed Status
	m.OnStatusChange(func(status Status, pendingCount int) {
		// Listeners run outside the lock, so reading back must not deadlock
		observed = m.Status()
	})

	done := make(chan struct{})
	go func() {
		m.SetReachable(true)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("SetReachable deadlocked with a re-entrant listener")
	}
	if observed != StatusOnline {
		t.Errorf("Listener observed %s, want online", observed)
	}
}

func TestMonitor_CounterErrorKeepsLastValue(t *testing.T) {
	counter := &fakeCounter{n: 3}
	m := NewMonitor(&fakeProber{}, counter, time.Hour)
	m.RefreshPendingCount()
	m.SetReachable(true)

	if m.Status() != StatusSyncing {
		t.Fatalf("Status = %s, want syncing", m.Status())
	}

	counter.err = errors.New("database gone")
	m.RefreshPendingCount()

	if got := m.PendingCount(); got != 3 {
		t.Errorf("PendingCount() = %d, want last good value 3", got)
	}
	if m.Status() != StatusSyncing {
		t.Errorf("Status = %s, counter failure must not flip status", m.Status())
	}
}
