package models

import (
	"testing"
	"time"
)

func TestNewSaleOperation(t *testing.T) {
	sale := SalePayload{
		Reference:     "TICKET-0042",
		BoutiqueID:    7,
		Total:         89.90,
		PaymentMethod: "cash",
		SoldAt:        time.Now().UTC(),
		Lines: []SaleLine{
			{ProductID: 11, Quantity: 2, UnitPrice: 44.95},
		},
	}

	op, err := NewSaleOperation(sale)
	if err != nil {
		t.Fatalf("NewSaleOperation failed: %v", err)
	}

	if op.ID == "" {
		t.Error("Expected a generated operation id")
	}
	if op.Type != OperationSale {
		t.Errorf("Type = %s, want sale", op.Type)
	}
	if op.Status != OperationPending {
		t.Errorf("Status = %s, want pending", op.Status)
	}
	if op.RetryCount != 0 {
		t.Errorf("RetryCount = %d, want 0", op.RetryCount)
	}

	decoded, err := op.SalePayload()
	if err != nil {
		t.Fatalf("SalePayload failed: %v", err)
	}
	if decoded.Reference != sale.Reference {
		t.Errorf("Reference = %q, want %q", decoded.Reference, sale.Reference)
	}
	if len(decoded.Lines) != 1 || decoded.Lines[0].ProductID != 11 {
		t.Errorf("Lines round trip broken: %+v", decoded.Lines)
	}

	// The payload is tagged; decoding it as the other variant must refuse
	if _, err := op.StockAdjustmentPayload(); err == nil {
		t.Error("Expected type mismatch decoding a sale as a stock adjustment")
	}
}

func TestNewStockAdjustmentOperation(t *testing.T) {
	adj := StockAdjustmentPayload{
		ProductID:    11,
		BoutiqueID:   7,
		NewQuantity:  4,
		BaseQuantity: 6,
		Reason:       "damaged item",
		AdjustedAt:   time.Now().UTC(),
	}

	op, err := NewStockAdjustmentOperation(adj)
	if err != nil {
		t.Fatalf("NewStockAdjustmentOperation failed: %v", err)
	}
	if op.Type != OperationStockAdjustment {
		t.Errorf("Type = %s, want stock_adjustment", op.Type)
	}

	decoded, err := op.StockAdjustmentPayload()
	if err != nil {
		t.Fatalf("StockAdjustmentPayload failed: %v", err)
	}
	if decoded.BaseQuantity != 6 || decoded.NewQuantity != 4 {
		t.Errorf("Quantities round trip broken: %+v", decoded)
	}
	if decoded.Reason != "damaged item" {
		t.Errorf("Reason = %q", decoded.Reason)
	}

	if _, err := op.SalePayload(); err == nil {
		t.Error("Expected type mismatch decoding an adjustment as a sale")
	}
}

func TestPendingOperation_BeforeCreate(t *testing.T) {
	op := &PendingOperation{Type: OperationSale}
	if err := op.BeforeCreate(nil); err != nil {
		t.Fatalf("BeforeCreate failed: %v", err)
	}
	if op.ID == "" {
		t.Error("Expected id assigned on create")
	}
	if op.CreatedAt.IsZero() {
		t.Error("Expected creation timestamp assigned")
	}

	fixed := &PendingOperation{ID: "keep-me", CreatedAt: time.Unix(1000, 0)}
	if err := fixed.BeforeCreate(nil); err != nil {
		t.Fatalf("BeforeCreate failed: %v", err)
	}
	if fixed.ID != "keep-me" {
		t.Error("Existing id must not be overwritten")
	}
	if !fixed.CreatedAt.Equal(time.Unix(1000, 0)) {
		t.Error("Existing timestamp must not be overwritten")
	}
}
