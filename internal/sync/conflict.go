package sync

import (
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/modaretail/posync/internal/models"
	"github.com/modaretail/posync/internal/remote"
)

// ConflictType classifies which entity diverged
type ConflictType string

const (
	ConflictSale    ConflictType = "sale"
	ConflictStock   ConflictType = "stock"
	ConflictProduct ConflictType = "product"
)

// Choice is the user's resolution decision
type Choice string

const (
	ChooseLocal  Choice = "local"
	ChooseServer Choice = "server"
	ChooseMerge  Choice = "merge" // reserved, not implemented
)

// ConflictVersion is one side of a divergence, with the timestamp that
// side was produced at
type ConflictVersion struct {
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}

// ConflictRecord pairs the local and server views of one entity. Transient:
// it exists only until the user's choice has been applied.
type ConflictRecord struct {
	ID             string          `json:"id"`
	OperationID    string          `json:"operationId"`
	Type           ConflictType    `json:"type"`
	Description    string          `json:"description"`
	Local          ConflictVersion `json:"local"`
	Server         ConflictVersion `json:"server"`
	Recommendation Choice          `json:"recommendation,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
}

// resolverStore is the store slice needed to apply a resolution
type resolverStore interface {
	RemoveOperation(id string) error
}

// Resolver holds detected divergences until the user picks a surviving
// version. Resolution is manual; Recommend only surfaces guidance.
type Resolver struct {
	mu sync.Mutex

	store   resolverStore
	backend remote.Backend

	open      map[string]*ConflictRecord // by conflict id
	byOp      map[string]string          // operation id -> conflict id
	resolving map[string]bool
}

// NewResolver creates a conflict resolver
func NewResolver(st resolverStore, backend remote.Backend) *Resolver {
	return &Resolver{
		store:     st,
		backend:   backend,
		open:      make(map[string]*ConflictRecord),
		byOp:      make(map[string]string),
		resolving: make(map[string]bool),
	}
}

// Recommend returns the default guidance per conflict type: the server
// reflects authoritative concurrent state for stock, an unsynced local sale
// has no server counterpart yet, products need human judgment.
func Recommend(t ConflictType) Choice {
	switch t {
	case ConflictStock:
		return ChooseServer
	case ConflictSale:
		return ChooseLocal
	default:
		return ""
	}
}

// RegisterStockConflict records a stock divergence detected during
// reconciliation. Re-detection of the same operation returns the existing
// record instead of stacking duplicates.
func (r *Resolver) RegisterStockConflict(op *models.PendingOperation, p *models.StockAdjustmentPayload, info *remote.StockInfo) *ConflictRecord {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id, ok := r.byOp[op.ID]; ok {
		return r.open[id]
	}

	rec := &ConflictRecord{
		ID:          uuid.NewString(),
		OperationID: op.ID,
		Type:        ConflictStock,
		Description: fmt.Sprintf("Stock of product %d at boutique %d: local adjustment to %v, server now holds %v",
			p.ProductID, p.BoutiqueID, p.NewQuantity, info.Quantity),
		Local:          ConflictVersion{Data: p, Timestamp: op.CreatedAt},
		Server:         ConflictVersion{Data: info, Timestamp: info.WriteDate},
		Recommendation: Recommend(ConflictStock),
		CreatedAt:      time.Now().UTC(),
	}

	r.open[rec.ID] = rec
	r.byOp[op.ID] = rec.ID
	return rec
}

// HasOpenConflict reports whether an operation is held by an unresolved
// conflict
func (r *Resolver) HasOpenConflict(operationID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.byOp[operationID]
	return ok
}

// List returns the open conflicts, oldest first
func (r *Resolver) List() []*ConflictRecord {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*ConflictRecord, 0, len(r.open))
	for _, rec := range r.open {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Resolve applies the user's choice. Choosing server discards the local
// pending change without any remote write; choosing local forces the local
// version onto the server, superseding its value. A conflict being resolved
// cannot be resolved or dismissed again until the attempt finishes.
func (r *Resolver) Resolve(conflictID string, choice Choice) error {
	r.mu.Lock()
	rec, ok := r.open[conflictID]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("conflict %s not found", conflictID)
	}
	if r.resolving[conflictID] {
		r.mu.Unlock()
		return fmt.Errorf("conflict %s: resolution already in flight", conflictID)
	}
	r.resolving[conflictID] = true
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		delete(r.resolving, conflictID)
		r.mu.Unlock()
	}()

	switch choice {
	case ChooseServer:
		// Server survives: drop the local pending change, touch nothing remote
		if err := r.store.RemoveOperation(rec.OperationID); err != nil {
			return err
		}

	case ChooseLocal:
		if err := r.applyLocal(rec); err != nil {
			return err
		}
		if err := r.store.RemoveOperation(rec.OperationID); err != nil {
			return err
		}

	case ChooseMerge:
		return fmt.Errorf("conflict %s: merge resolution is reserved and not available", conflictID)

	default:
		return fmt.Errorf("conflict %s: unknown choice %q", conflictID, choice)
	}

	r.mu.Lock()
	delete(r.open, conflictID)
	delete(r.byOp, rec.OperationID)
	r.mu.Unlock()

	log.Printf("✅ Conflict %s resolved: %s wins", conflictID, choice)
	return nil
}

// Dismiss withdraws a conflict without applying either side. Refused while
// a resolution is in flight.
func (r *Resolver) Dismiss(conflictID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.open[conflictID]
	if !ok {
		return fmt.Errorf("conflict %s not found", conflictID)
	}
	if r.resolving[conflictID] {
		return fmt.Errorf("conflict %s: cannot dismiss while resolution is in flight", conflictID)
	}

	delete(r.open, conflictID)
	delete(r.byOp, rec.OperationID)
	return nil
}

// applyLocal forces the local version onto the server
func (r *Resolver) applyLocal(rec *ConflictRecord) error {
	switch rec.Type {
	case ConflictStock:
		p, ok := rec.Local.Data.(*models.StockAdjustmentPayload)
		if !ok {
			return fmt.Errorf("conflict %s: unexpected local payload", rec.ID)
		}
		return r.backend.WriteStockQuantity(p.BoutiqueID, p.ProductID, p.NewQuantity)
	default:
		return fmt.Errorf("conflict %s: no local-wins handler for type %s", rec.ID, rec.Type)
	}
}
