package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// OperationType tags the payload variant of a pending operation
type OperationType string

const (
	OperationSale            OperationType = "sale"
	OperationStockAdjustment OperationType = "stock_adjustment"
)

// OperationStatus represents the queue lifecycle state of an operation.
// Transitions are linear: pending -> syncing -> {removed | error}.
type OperationStatus string

const (
	OperationPending OperationStatus = "pending"
	OperationSyncing OperationStatus = "syncing"
	OperationError   OperationStatus = "error"
)

// PendingOperation is a locally recorded business action awaiting replay
// against the remote backend. The ID doubles as the idempotency key the
// backend dedups on, so a partially applied replay can be resumed safely.
type PendingOperation struct {
	ID         string          `gorm:"type:varchar(36);primaryKey" json:"id"`
	Type       OperationType   `gorm:"type:varchar(50);not null;index" json:"type"`
	Payload    datatypes.JSON  `gorm:"type:jsonb" json:"payload"`
	Status     OperationStatus `gorm:"type:varchar(20);not null;default:'pending';index:idx_ops_pending" json:"status"`
	RetryCount int             `gorm:"not null;default:0" json:"retryCount"`
	LastError  *string         `gorm:"type:text" json:"lastError,omitempty"`
	CreatedAt  time.Time       `gorm:"not null;index:idx_ops_pending" json:"createdAt"`
}

// TableName specifies the table name
func (PendingOperation) TableName() string {
	return "pending_operations"
}

// BeforeCreate hook
func (op *PendingOperation) BeforeCreate(tx *gorm.DB) error {
	if op.ID == "" {
		op.ID = uuid.NewString()
	}
	if op.CreatedAt.IsZero() {
		op.CreatedAt = time.Now().UTC()
	}
	return nil
}

// SaleLine is one sold article within a sale
type SaleLine struct {
	ProductID int64   `json:"product_id"`
	Quantity  float64 `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
	Discount  float64 `json:"discount,omitempty"` // percent
}

// SalePayload carries everything needed to replay a sale remotely:
// the sale record, its line items, and the stock decrements they imply.
type SalePayload struct {
	Reference     string     `json:"reference"` // receipt number printed on the ticket
	BoutiqueID    int64      `json:"boutique_id"`
	Total         float64    `json:"total"`
	PaymentMethod string     `json:"payment_method"`
	SoldAt        time.Time  `json:"sold_at"`
	Lines         []SaleLine `json:"lines"`
}

// StockAdjustmentPayload carries a manual stock correction. BaseQuantity is
// the cached server quantity at the moment the adjustment was entered; the
// engine uses it to detect concurrent server-side changes.
type StockAdjustmentPayload struct {
	ProductID    int64     `json:"product_id"`
	BoutiqueID   int64     `json:"boutique_id"`
	NewQuantity  float64   `json:"new_quantity"`
	BaseQuantity float64   `json:"base_quantity"`
	Reason       string    `json:"reason"`
	AdjustedAt   time.Time `json:"adjusted_at"`
}

// NewSaleOperation builds a queued sale operation
func NewSaleOperation(p SalePayload) (*PendingOperation, error) {
	return newOperation(OperationSale, p)
}

// NewStockAdjustmentOperation builds a queued stock adjustment operation
func NewStockAdjustmentOperation(p StockAdjustmentPayload) (*PendingOperation, error) {
	return newOperation(OperationStockAdjustment, p)
}

func newOperation(t OperationType, payload interface{}) (*PendingOperation, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s payload: %w", t, err)
	}
	return &PendingOperation{
		ID:        uuid.NewString(),
		Type:      t,
		Payload:   datatypes.JSON(raw),
		Status:    OperationPending,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// SalePayload decodes the payload of a sale operation
func (op *PendingOperation) SalePayload() (*SalePayload, error) {
	if op.Type != OperationSale {
		return nil, fmt.Errorf("operation %s is %s, not a sale", op.ID, op.Type)
	}
	var p SalePayload
	if err := json.Unmarshal(op.Payload, &p); err != nil {
		return nil, fmt.Errorf("failed to decode sale payload of %s: %w", op.ID, err)
	}
	return &p, nil
}

// StockAdjustmentPayload decodes the payload of a stock adjustment operation
func (op *PendingOperation) StockAdjustmentPayload() (*StockAdjustmentPayload, error) {
	if op.Type != OperationStockAdjustment {
		return nil, fmt.Errorf("operation %s is %s, not a stock adjustment", op.ID, op.Type)
	}
	var p StockAdjustmentPayload
	if err := json.Unmarshal(op.Payload, &p); err != nil {
		return nil, fmt.Errorf("failed to decode stock adjustment payload of %s: %w", op.ID, err)
	}
	return &p, nil
}
