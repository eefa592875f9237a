package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/modaretail/posync/internal/database"
	"github.com/modaretail/posync/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// StorageError marks a failure of the local persistence medium. Sync cycles
// treat these as fatal, unlike remote failures which are retried.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// IsStorageError reports whether err originated in the local store
func IsStorageError(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}

// Store is the durable on-device storage for pending operations, the
// reference-data cache and backup snapshots. It owns no network access.
type Store struct {
	db         *database.DB
	maxRetries int
}

// New creates a store. maxRetries is needed to distinguish operations that
// are still retryable from ones frozen for manual intervention.
func New(db *database.DB, maxRetries int) *Store {
	return &Store{db: db, maxRetries: maxRetries}
}

// EnqueueOperation persists a new pending operation
func (s *Store) EnqueueOperation(op *models.PendingOperation) error {
	return wrap("enqueue operation", s.db.Create(op).Error)
}

// ListPendingOperations returns all operations awaiting replay (pending or
// error state), oldest first. FIFO fairness: replay order is creation order.
func (s *Store) ListPendingOperations() ([]models.PendingOperation, error) {
	var ops []models.PendingOperation
	err := s.db.
		Where("status IN ?", []models.OperationStatus{models.OperationPending, models.OperationError}).
		Order("created_at ASC").
		Find(&ops).Error
	if err != nil {
		return nil, wrap("list pending operations", err)
	}
	return ops, nil
}

// GetOperation fetches a single operation by id. Returns (nil, nil) when the
// operation no longer exists.
func (s *Store) GetOperation(id string) (*models.PendingOperation, error) {
	var op models.PendingOperation
	err := s.db.Where("id = ?", id).First(&op).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, wrap("get operation", err)
	}
	return &op, nil
}

// UpdateOperationStatus sets the status of an operation. Safe to call with
// the same target status twice; the second call is a no-op update.
func (s *Store) UpdateOperationStatus(id string, status models.OperationStatus) error {
	err := s.db.Model(&models.PendingOperation{}).
		Where("id = ?", id).
		Update("status", status).Error
	return wrap("update operation status", err)
}

// MarkOperationFailed records a failed replay attempt: status, last error
// and retry counter move in a single UPDATE so the retry ceiling check can
// never observe a half-applied failure.
func (s *Store) MarkOperationFailed(id string, message string) error {
	err := s.db.Model(&models.PendingOperation{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":      models.OperationError,
			"last_error":  message,
			"retry_count": gorm.Expr("retry_count + 1"),
		}).Error
	return wrap("mark operation failed", err)
}

// RemoveOperation deletes an operation after successful replay
func (s *Store) RemoveOperation(id string) error {
	err := s.db.Where("id = ?", id).Delete(&models.PendingOperation{}).Error
	return wrap("remove operation", err)
}

// CountPending counts operations that still take part in automatic sync:
// pending, in-flight, and errored below the retry ceiling. Operations frozen
// at the ceiling are excluded; they no longer drive the syncing indicator.
func (s *Store) CountPending() (int, error) {
	var n int64
	err := s.db.Model(&models.PendingOperation{}).
		Where("status IN ? OR (status = ? AND retry_count < ?)",
			[]models.OperationStatus{models.OperationPending, models.OperationSyncing},
			models.OperationError, s.maxRetries).
		Count(&n).Error
	if err != nil {
		return 0, wrap("count pending operations", err)
	}
	return int(n), nil
}

// CountFrozen counts operations stuck at the retry ceiling, awaiting manual
// operator intervention. The queue never silently drops these.
func (s *Store) CountFrozen() (int, error) {
	var n int64
	err := s.db.Model(&models.PendingOperation{}).
		Where("status = ? AND retry_count >= ?", models.OperationError, s.maxRetries).
		Count(&n).Error
	if err != nil {
		return 0, wrap("count frozen operations", err)
	}
	return int(n), nil
}

// ReplaceProductCache overwrites the product cache wholesale
func (s *Store) ReplaceProductCache(products []models.CachedProduct) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).
			Delete(&models.CachedProduct{}).Error; err != nil {
			return err
		}
		if len(products) == 0 {
			return nil
		}
		return tx.CreateInBatches(products, 200).Error
	})
	return wrap("replace product cache", err)
}

// ReplaceStockCache overwrites the stock cache wholesale
func (s *Store) ReplaceStockCache(stock []models.CachedStock) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).
			Delete(&models.CachedStock{}).Error; err != nil {
			return err
		}
		if len(stock) == 0 {
			return nil
		}
		return tx.CreateInBatches(stock, 200).Error
	})
	return wrap("replace stock cache", err)
}

// Products returns the cached catalog, name-ordered for display
func (s *Store) Products() ([]models.CachedProduct, error) {
	var products []models.CachedProduct
	err := s.db.Order("name ASC").Find(&products).Error
	if err != nil {
		return nil, wrap("read products", err)
	}
	return products, nil
}

// StockFor returns the cached stock row for a product at a boutique, or
// (nil, nil) when the cache holds no such row.
func (s *Store) StockFor(productID, boutiqueID int64) (*models.CachedStock, error) {
	var row models.CachedStock
	err := s.db.Where("product_id = ? AND boutique_id = ?", productID, boutiqueID).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, wrap("read stock", err)
	}
	return &row, nil
}

// PruneStale evicts cache entries and backup snapshots older than maxAge
func (s *Store) PruneStale(maxAge time.Duration) error {
	cutoff := time.Now().UTC().Add(-maxAge)

	if err := s.db.Where("last_synced_at < ?", cutoff).
		Delete(&models.CachedProduct{}).Error; err != nil {
		return wrap("prune product cache", err)
	}
	if err := s.db.Where("last_synced_at < ?", cutoff).
		Delete(&models.CachedStock{}).Error; err != nil {
		return wrap("prune stock cache", err)
	}
	if err := s.db.Where("created_at < ?", cutoff).
		Delete(&models.BackupSnapshot{}).Error; err != nil {
		return wrap("prune backups", err)
	}
	return nil
}

// WriteBackup snapshots the entire pending queue, error state included, into
// an immutable backup row and records the backup timestamp.
func (s *Store) WriteBackup(trigger models.BackupTrigger) (*models.BackupSnapshot, error) {
	var ops []models.PendingOperation
	if err := s.db.Order("created_at ASC").Find(&ops).Error; err != nil {
		return nil, wrap("read queue for backup", err)
	}

	raw, err := json.Marshal(ops)
	if err != nil {
		return nil, wrap("encode backup", err)
	}

	snapshot := &models.BackupSnapshot{
		Trigger:        trigger,
		OperationCount: len(ops),
		Payload:        datatypes.JSON(raw),
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.db.Create(snapshot).Error; err != nil {
		return nil, wrap("write backup", err)
	}

	if err := s.SetLastBackupTime(snapshot.CreatedAt); err != nil {
		return nil, err
	}
	return snapshot, nil
}

// LastBackupTime returns the time of the most recent backup, nil when none
// has ever been written.
func (s *Store) LastBackupTime() (*time.Time, error) {
	state, err := s.syncState()
	if err != nil {
		return nil, err
	}
	return state.LastBackupAt, nil
}

// SetLastBackupTime records when the last backup was written
func (s *Store) SetLastBackupTime(ts time.Time) error {
	return s.updateSyncState(map[string]interface{}{"last_backup_at": ts})
}

// LastSyncTime returns the completion time of the last sync cycle
func (s *Store) LastSyncTime() (*time.Time, error) {
	state, err := s.syncState()
	if err != nil {
		return nil, err
	}
	return state.LastSyncAt, nil
}

// SetLastSyncTime records when the last sync cycle completed
func (s *Store) SetLastSyncTime(ts time.Time) error {
	return s.updateSyncState(map[string]interface{}{"last_sync_at": ts})
}

func (s *Store) syncState() (*models.SyncState, error) {
	var state models.SyncState
	err := s.db.First(&state).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &models.SyncState{ID: 1}, nil
	}
	if err != nil {
		return nil, wrap("read sync state", err)
	}
	return &state, nil
}

func (s *Store) updateSyncState(fields map[string]interface{}) error {
	state := models.SyncState{ID: 1}
	err := s.db.Where(models.SyncState{ID: 1}).
		Assign(fields).
		FirstOrCreate(&state).Error
	return wrap("update sync state", err)
}
