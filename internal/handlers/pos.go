package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/modaretail/posync/internal/models"
	"github.com/modaretail/posync/internal/store"
	posync "github.com/modaretail/posync/internal/sync"
)

// PosHandler is the boundary the business screens call: browsing the
// cached catalog and recording sales and stock adjustments. Recording
// always goes through the queue, online or not, so there is exactly one
// code path.
type PosHandler struct {
	store    *store.Store
	monitor  *posync.Monitor
	boutique int64
}

// NewPosHandler creates a new POS handler
func NewPosHandler(st *store.Store, monitor *posync.Monitor, boutique int64) *PosHandler {
	return &PosHandler{
		store:    st,
		monitor:  monitor,
		boutique: boutique,
	}
}

// RegisterRoutes registers POS routes
func (ph *PosHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/products", ph.ListProducts).Methods("GET")
	r.HandleFunc("/api/sales", ph.RecordSale).Methods("POST")
	r.HandleFunc("/api/stock/adjustments", ph.RecordStockAdjustment).Methods("POST")
}

// ListProducts serves the catalog from the local cache
func (ph *PosHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := ph.store.Products()
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":    len(products),
		"products": products,
	})
}

// RecordSale enqueues a sale for replay against the backend
func (ph *PosHandler) RecordSale(w http.ResponseWriter, r *http.Request) {
	var payload models.SalePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(payload.Lines) == 0 {
		respondError(w, http.StatusBadRequest, "a sale needs at least one line")
		return
	}
	if payload.BoutiqueID == 0 {
		payload.BoutiqueID = ph.boutique
	}
	if payload.SoldAt.IsZero() {
		payload.SoldAt = time.Now().UTC()
	}

	op, err := models.NewSaleOperation(payload)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := ph.store.EnqueueOperation(op); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	// A rising pending count flips the monitor to syncing, which is what
	// schedules the debounced sync when we are reachable
	ph.monitor.RefreshPendingCount()

	respondJSON(w, http.StatusAccepted, op)
}

// RecordStockAdjustment enqueues a manual stock correction
func (ph *PosHandler) RecordStockAdjustment(w http.ResponseWriter, r *http.Request) {
	var payload models.StockAdjustmentPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if payload.ProductID == 0 {
		respondError(w, http.StatusBadRequest, "product_id is required")
		return
	}
	if payload.BoutiqueID == 0 {
		payload.BoutiqueID = ph.boutique
	}
	if payload.AdjustedAt.IsZero() {
		payload.AdjustedAt = time.Now().UTC()
	}

	// Capture the cached server quantity as the reconciliation baseline
	// when the screen did not provide one
	if payload.BaseQuantity == 0 {
		if row, err := ph.store.StockFor(payload.ProductID, payload.BoutiqueID); err == nil && row != nil {
			payload.BaseQuantity = row.Quantity
		}
	}

	op, err := models.NewStockAdjustmentOperation(payload)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := ph.store.EnqueueOperation(op); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	ph.monitor.RefreshPendingCount()

	respondJSON(w, http.StatusAccepted, op)
}
