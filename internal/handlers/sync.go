package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/modaretail/posync/internal/models"
	"github.com/modaretail/posync/internal/store"
	posync "github.com/modaretail/posync/internal/sync"
)

// SyncHandler exposes sync status and control to the UI layer
type SyncHandler struct {
	store    *store.Store
	engine   *posync.Engine
	monitor  *posync.Monitor
	resolver *posync.Resolver
}

// NewSyncHandler creates a new sync handler
func NewSyncHandler(st *store.Store, engine *posync.Engine, monitor *posync.Monitor, resolver *posync.Resolver) *SyncHandler {
	return &SyncHandler{
		store:    st,
		engine:   engine,
		monitor:  monitor,
		resolver: resolver,
	}
}

// RegisterRoutes registers sync routes
func (sh *SyncHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/status", sh.GetStatus).Methods("GET")
	r.HandleFunc("/api/sync/now", sh.SyncNow).Methods("POST")
	r.HandleFunc("/api/backup", sh.CreateBackup).Methods("POST")
	r.HandleFunc("/api/conflicts", sh.ListConflicts).Methods("GET")
	r.HandleFunc("/api/conflicts/{id}/resolve", sh.ResolveConflict).Methods("POST")
	r.HandleFunc("/api/conflicts/{id}", sh.DismissConflict).Methods("DELETE")
}

// GetStatus returns everything the UI needs to render the sync indicator
func (sh *SyncHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	frozen, err := sh.store.CountFrozen()
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	lastSync, err := sh.store.LastSyncTime()
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":       sh.monitor.Status(),
		"isOnline":     sh.monitor.IsOnline(),
		"isSyncing":    sh.engine.IsSyncing(),
		"pendingCount": sh.monitor.PendingCount(),
		"frozenCount":  frozen,
		"lastSyncTime": lastSync,
		"lastErrors":   sh.engine.LastErrors(),
	})
}

// SyncNow triggers a sync cycle and returns its summary
func (sh *SyncHandler) SyncNow(w http.ResponseWriter, r *http.Request) {
	summary, err := sh.engine.SyncAll()
	if err != nil {
		switch {
		case errors.Is(err, posync.ErrOffline):
			respondError(w, http.StatusServiceUnavailable, err.Error())
		case errors.Is(err, posync.ErrSyncInProgress):
			respondError(w, http.StatusConflict, err.Error())
		default:
			respondError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

// CreateBackup writes a manual snapshot of the pending queue
func (sh *SyncHandler) CreateBackup(w http.ResponseWriter, r *http.Request) {
	snapshot, err := sh.store.WriteBackup(models.BackupManual)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, snapshot)
}

// ListConflicts returns the open conflicts awaiting a decision
func (sh *SyncHandler) ListConflicts(w http.ResponseWriter, r *http.Request) {
	conflicts := sh.resolver.List()
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":     len(conflicts),
		"conflicts": conflicts,
	})
}

// ResolveConflict applies the user's choice for one conflict
func (sh *SyncHandler) ResolveConflict(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	var req struct {
		Choice posync.Choice `json:"choice"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := sh.resolver.Resolve(vars["id"], req.Choice); err != nil {
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	sh.monitor.RefreshPendingCount()
	respondJSON(w, http.StatusOK, map[string]string{"resolved": vars["id"]})
}

// DismissConflict withdraws a conflict without applying either side
func (sh *SyncHandler) DismissConflict(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if err := sh.resolver.Dismiss(vars["id"]); err != nil {
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"dismissed": vars["id"]})
}
