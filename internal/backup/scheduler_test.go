package backup

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/modaretail/posync/internal/models"
)

type fakeBackupStore struct {
	last     *time.Time
	lastErr  error
	written  []models.BackupTrigger
	writeErr error
}

func (s *fakeBackupStore) WriteBackup(trigger models.BackupTrigger) (*models.BackupSnapshot, error) {
	if s.writeErr != nil {
		return nil, s.writeErr
	}
	s.written = append(s.written, trigger)
	now := time.Now().UTC()
	s.last = &now
	return &models.BackupSnapshot{ID: uuid.NewString(), Trigger: trigger, CreatedAt: now}, nil
}

func (s *fakeBackupStore) LastBackupTime() (*time.Time, error) {
	return s.last, s.lastErr
}

func newTestScheduler(st *fakeBackupStore, now time.Time) *Scheduler {
	s := NewScheduler(st, time.Minute, 30*time.Minute)
	s.now = func() time.Time { return now }
	return s
}

func TestShouldCreateBackup(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		last *time.Time
		want bool
	}{
		{"no backup yet", nil, true},
		{"fresh backup", timePtr(now.Add(-5 * time.Minute)), false},
		{"exactly at threshold", timePtr(now.Add(-30 * time.Minute)), false},
		{"stale backup", timePtr(now.Add(-31 * time.Minute)), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := &fakeBackupStore{last: tt.last}
			s := newTestScheduler(st, now)

			got, err := s.ShouldCreateBackup()
			if err != nil {
				t.Fatalf("ShouldCreateBackup failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("ShouldCreateBackup() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestShouldCreateBackup_StoreError(t *testing.T) {
	st := &fakeBackupStore{lastErr: errors.New("disk full")}
	s := newTestScheduler(st, time.Now().UTC())

	if _, err := s.ShouldCreateBackup(); err == nil {
		t.Error("Expected store error surfaced")
	}
}

func TestRunOnce_WritesWhenDue(t *testing.T) {
	now := time.Now().UTC()
	st := &fakeBackupStore{}
	s := newTestScheduler(st, now)

	s.runOnce()
	if len(st.written) != 1 {
		t.Fatalf("Expected 1 backup written, got %d", len(st.written))
	}
	if st.written[0] != models.BackupAuto {
		t.Errorf("Scheduled backup trigger = %s, want auto", st.written[0])
	}

	// A second check inside the freshness window is a no-op
	stamped := now.Add(-time.Minute)
	st.last = &stamped
	s.runOnce()
	if len(st.written) != 1 {
		t.Errorf("Expected no second backup inside the window, got %d", len(st.written))
	}
}

func TestRunOnce_WriteFailureIsNonFatal(t *testing.T) {
	st := &fakeBackupStore{writeErr: errors.New("jsonb encode failed")}
	s := newTestScheduler(st, time.Now().UTC())

	// Must log and move on, never panic or loop
	s.runOnce()
	if len(st.written) != 0 {
		t.Errorf("Expected no backup recorded, got %d", len(st.written))
	}
}

func timePtr(t time.Time) *time.Time { return &t }
