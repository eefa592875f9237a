package backup

import (
	"log"
	"time"

	"github.com/modaretail/posync/internal/models"
)

// Store is the slice of the local store the scheduler drives
type Store interface {
	WriteBackup(trigger models.BackupTrigger) (*models.BackupSnapshot, error)
	LastBackupTime() (*time.Time, error)
}

// Scheduler snapshots the pending queue at fixed intervals, independent of
// sync success or failure. Write-only: restore is an operational procedure
// outside this component.
type Scheduler struct {
	store    Store
	interval time.Duration
	maxAge   time.Duration
	stop     chan struct{}

	// now is the clock, swapped out in tests
	now func() time.Time
}

// NewScheduler creates a backup scheduler. maxAge is how old the last
// backup may be before a new one is due.
func NewScheduler(st Store, interval, maxAge time.Duration) *Scheduler {
	return &Scheduler{
		store:    st,
		interval: interval,
		maxAge:   maxAge,
		stop:     make(chan struct{}),
		now:      time.Now,
	}
}

// Start runs one check at startup, then one per interval
func (s *Scheduler) Start() {
	go func() {
		log.Println("💾 Backup Scheduler started")

		s.runOnce()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.runOnce()
			case <-s.stop:
				log.Println("🛑 Backup Scheduler stopped")
				return
			}
		}
	}()
}

// Stop halts the scheduler
func (s *Scheduler) Stop() {
	close(s.stop)
}

// ShouldCreateBackup is true when no backup exists or the last one is
// older than the retention threshold
func (s *Scheduler) ShouldCreateBackup() (bool, error) {
	last, err := s.store.LastBackupTime()
	if err != nil {
		return false, err
	}
	if last == nil {
		return true, nil
	}
	return s.now().UTC().Sub(last.UTC()) > s.maxAge, nil
}

func (s *Scheduler) runOnce() {
	due, err := s.ShouldCreateBackup()
	if err != nil {
		log.Printf("⚠️ Backup check failed: %v", err)
		return
	}
	if !due {
		return
	}

	snapshot, err := s.store.WriteBackup(models.BackupAuto)
	if err != nil {
		log.Printf("❌ Backup failed: %v", err)
		return
	}
	log.Printf("✅ Backup %s written (%d operation(s))", snapshot.ID, snapshot.OperationCount)
}
