package sync

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/modaretail/posync/internal/config"
	"github.com/modaretail/posync/internal/models"
	"github.com/modaretail/posync/internal/remote"
	"github.com/modaretail/posync/internal/store"
)

// Store is the slice of the local store the sync subsystem mutates
type Store interface {
	ListPendingOperations() ([]models.PendingOperation, error)
	UpdateOperationStatus(id string, status models.OperationStatus) error
	MarkOperationFailed(id string, message string) error
	RemoveOperation(id string) error
	SetLastSyncTime(ts time.Time) error
}

// Notifier pushes sync events towards the UI layer. Nil is allowed.
type Notifier interface {
	SyncCompleted(summary *Summary)
	ConflictDetected(rec *ConflictRecord)
}

// Summary is the outcome of one sync cycle
type Summary struct {
	Synced    int           `json:"synced"`
	Skipped   int           `json:"skipped"`
	Conflicts int           `json:"conflicts"`
	Errors    []string      `json:"errors"`
	Duration  time.Duration `json:"duration"`
	Timestamp time.Time     `json:"timestamp"`
}

var (
	// ErrOffline is returned when a cycle is requested without connectivity
	ErrOffline = errors.New("sync: backend not reachable")

	// ErrSyncInProgress is returned when a cycle is already running;
	// triggers are not queued, a later one will pick up the same queue
	ErrSyncInProgress = errors.New("sync: cycle already in progress")

	// errConflict is the internal signal that replay was vetoed by a
	// detected divergence; the operation is held, not failed
	errConflict = errors.New("sync: conflict detected")
)

// Engine drains the pending-operation queue against the remote backend.
// One cycle at a time, operations strictly in creation order, each awaited
// before the next, so a given stock row sees at most one in-flight write
// from this device.
type Engine struct {
	mu sync.Mutex

	store     Store
	backend   remote.Backend
	monitor   *Monitor
	conflicts *Resolver
	cfg       *config.SyncConfig
	notifier  Notifier

	isRunning      bool
	syncInProgress bool
	lastSync       time.Time
	lastErrors     []string

	stopChan chan struct{}
	syncChan chan struct{}

	// sleep is the backoff clock, swapped out in tests
	sleep func(time.Duration)
}

// NewEngine creates a sync engine
func NewEngine(st Store, backend remote.Backend, monitor *Monitor, conflicts *Resolver, cfg *config.SyncConfig) *Engine {
	return &Engine{
		store:     st,
		backend:   backend,
		monitor:   monitor,
		conflicts: conflicts,
		cfg:       cfg,
		stopChan:  make(chan struct{}),
		syncChan:  make(chan struct{}, 1),
		sleep:     time.Sleep,
	}
}

// SetNotifier attaches the UI push channel
func (e *Engine) SetNotifier(n Notifier) {
	e.notifier = n
}

// Start wires the engine to connectivity transitions and begins the worker.
// A transition to syncing (reachable with pending work) schedules a cycle
// after a short debounce so a flapping connection does not thrash.
func (e *Engine) Start() error {
	e.mu.Lock()
	if e.isRunning {
		e.mu.Unlock()
		return fmt.Errorf("sync engine already running")
	}
	e.isRunning = true
	e.mu.Unlock()

	log.Println("🔄 Sync Engine starting...")

	e.monitor.OnStatusChange(func(status Status, pendingCount int) {
		if status != StatusSyncing {
			return
		}
		go func() {
			e.sleep(time.Duration(e.cfg.ReconnectDelay) * time.Second)
			e.RequestSync()
		}()
	})

	go e.worker()

	if e.cfg.SyncOnStartup {
		e.RequestSync()
	}

	log.Println("✅ Sync Engine started")
	return nil
}

// Stop halts the worker. An in-flight cycle finishes its current operation.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.isRunning {
		return
	}
	e.isRunning = false
	close(e.stopChan)
	log.Println("🛑 Sync Engine stopped")
}

// RequestSync asks for a cycle without blocking. Requests collapse: while
// one is queued, further ones are no-ops.
func (e *Engine) RequestSync() {
	select {
	case e.syncChan <- struct{}{}:
	default:
	}
}

// LastSyncTime returns when the last cycle completed
func (e *Engine) LastSyncTime() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastSync
}

// LastErrors returns the error list of the last cycle
func (e *Engine) LastErrors() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, len(e.lastErrors))
	copy(out, e.lastErrors)
	return out
}

// IsSyncing reports whether a cycle is in flight
func (e *Engine) IsSyncing() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.syncInProgress
}

func (e *Engine) worker() {
	for {
		select {
		case <-e.syncChan:
			if _, err := e.SyncAll(); err != nil &&
				!errors.Is(err, ErrOffline) && !errors.Is(err, ErrSyncInProgress) {
				log.Printf("❌ Sync cycle failed: %v", err)
			}
		case <-e.stopChan:
			return
		}
	}
}

// SyncAll runs one sync cycle: fetch the queue once, replay in FIFO order,
// remove successes, fail-and-count failures. Non-reentrant; a second call
// while a cycle runs returns ErrSyncInProgress. Storage failures abort the
// cycle and are returned; per-operation remote failures never do.
func (e *Engine) SyncAll() (*Summary, error) {
	if !e.monitor.IsOnline() {
		return nil, ErrOffline
	}

	e.mu.Lock()
	if e.syncInProgress {
		e.mu.Unlock()
		return nil, ErrSyncInProgress
	}
	e.syncInProgress = true
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.syncInProgress = false
		e.mu.Unlock()
	}()

	start := time.Now()
	summary := &Summary{Timestamp: start.UTC(), Errors: []string{}}

	ops, err := e.store.ListPendingOperations()
	if err != nil {
		// A broken queue read means we cannot trust partial data
		return nil, err
	}

	log.Printf("🔄 Sync cycle: %d operation(s) queued", len(ops))

	for i := range ops {
		op := &ops[i]

		// Frozen at the ceiling: operator action required, never deleted
		if op.RetryCount >= e.cfg.MaxRetries {
			summary.Skipped++
			continue
		}

		// Held behind an unresolved divergence
		if e.conflicts.HasOpenConflict(op.ID) {
			summary.Skipped++
			continue
		}

		if op.RetryCount > 0 {
			e.sleep(e.cfg.Backoff(op.RetryCount))
		}

		if err := e.store.UpdateOperationStatus(op.ID, models.OperationSyncing); err != nil {
			return summary, err
		}

		replayErr := e.replay(op)

		switch {
		case replayErr == nil:
			if err := e.store.RemoveOperation(op.ID); err != nil {
				return summary, err
			}
			summary.Synced++

		case errors.Is(replayErr, errConflict):
			if err := e.store.UpdateOperationStatus(op.ID, models.OperationPending); err != nil {
				return summary, err
			}
			summary.Conflicts++

		case store.IsStorageError(replayErr):
			return summary, replayErr

		default:
			msg := replayErr.Error()
			if err := e.store.MarkOperationFailed(op.ID, msg); err != nil {
				return summary, err
			}
			summary.Errors = append(summary.Errors, fmt.Sprintf("%s %s: %s", op.Type, op.ID, msg))
			log.Printf("⚠️ Replay failed (%s %s): %s", op.Type, op.ID, msg)
		}
	}

	now := time.Now().UTC()
	summary.Duration = time.Since(start)

	if err := e.store.SetLastSyncTime(now); err != nil {
		return summary, err
	}

	e.mu.Lock()
	e.lastSync = now
	e.lastErrors = summary.Errors
	e.mu.Unlock()

	e.monitor.RefreshPendingCount()

	log.Printf("✅ Sync cycle done in %v: %d synced, %d skipped, %d conflict(s), %d error(s)",
		summary.Duration, summary.Synced, summary.Skipped, summary.Conflicts, len(summary.Errors))

	if e.notifier != nil {
		e.notifier.SyncCompleted(summary)
	}
	return summary, nil
}

// replay dispatches one operation to its type-specific handler
func (e *Engine) replay(op *models.PendingOperation) error {
	switch op.Type {
	case models.OperationSale:
		return e.replaySale(op)
	case models.OperationStockAdjustment:
		return e.replayStockAdjustment(op)
	default:
		// A queued type this client version does not know: treated as
		// trivially successful so it cannot block the queue, but it signals
		// a schema mismatch between queued data and this client.
		log.Printf("⚠️ Unknown operation type %q (%s), dropping", op.Type, op.ID)
		return nil
	}
}

// replaySale pushes the sale, its line items, then one stock decrement per
// line, all sequential. The operation id is the idempotency key: an already
// inserted sale is found by reference and resumed instead of re-inserted,
// and each decrement is keyed opID/line so the backend drops duplicates.
func (e *Engine) replaySale(op *models.PendingOperation) error {
	p, err := op.SalePayload()
	if err != nil {
		return err
	}

	saleID, err := e.backend.FindSaleByRef(op.ID)
	if err != nil {
		return fmt.Errorf("sale lookup: %w", err)
	}
	if saleID == 0 {
		saleID, err = e.backend.CreateSale(p, op.ID)
		if err != nil {
			return fmt.Errorf("sale insert: %w", err)
		}
	}

	for i, line := range p.Lines {
		ref := fmt.Sprintf("%s/%d", op.ID, i)
		if _, err := e.backend.CreateSaleLine(saleID, line, ref); err != nil {
			return fmt.Errorf("line %d insert: %w", i, err)
		}
	}

	for i, line := range p.Lines {
		ref := fmt.Sprintf("%s/%d", op.ID, i)
		if err := e.backend.DecrementStock(p.BoutiqueID, line.ProductID, line.Quantity, ref); err != nil {
			return fmt.Errorf("line %d stock decrement: %w", i, err)
		}
	}

	return nil
}

// replayStockAdjustment reconciles against the server row first: if the
// server changed after this adjustment was queued and no longer matches the
// baseline it was computed from, the divergence goes to the resolver and
// the operation is held.
func (e *Engine) replayStockAdjustment(op *models.PendingOperation) error {
	p, err := op.StockAdjustmentPayload()
	if err != nil {
		return err
	}

	info, err := e.backend.StockInfo(p.BoutiqueID, p.ProductID)
	if err != nil {
		return fmt.Errorf("stock reconciliation: %w", err)
	}

	if info != nil && info.WriteDate.After(op.CreatedAt) && info.Quantity != p.BaseQuantity {
		rec := e.conflicts.RegisterStockConflict(op, p, info)
		log.Printf("⚡ Stock conflict on product %d: local %v vs server %v", p.ProductID, p.NewQuantity, info.Quantity)
		if e.notifier != nil {
			e.notifier.ConflictDetected(rec)
		}
		return errConflict
	}

	if err := e.backend.WriteStockQuantity(p.BoutiqueID, p.ProductID, p.NewQuantity); err != nil {
		return fmt.Errorf("stock write: %w", err)
	}
	return nil
}
