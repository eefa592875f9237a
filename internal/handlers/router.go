package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/modaretail/posync/internal/notify"
	"github.com/modaretail/posync/internal/store"
	posync "github.com/modaretail/posync/internal/sync"
)

// Router wraps the mux router and the subsystem handles the API exposes
type Router struct {
	*mux.Router
}

// NewRouter creates the HTTP boundary of the sync subsystem: status and
// control endpoints for the UI, plus the enqueue endpoints the business
// screens call. Screens never talk to the remote backend directly.
func NewRouter(st *store.Store, engine *posync.Engine, monitor *posync.Monitor, resolver *posync.Resolver, hub *notify.Hub, boutique int64) *Router {
	r := &Router{Router: mux.NewRouter()}

	r.HandleFunc("/health", r.healthCheck).Methods("GET")
	r.HandleFunc("/ws", hub.ServeWS)

	sh := NewSyncHandler(st, engine, monitor, resolver)
	sh.RegisterRoutes(r.Router)

	ph := NewPosHandler(st, monitor, boutique)
	ph.RegisterRoutes(r.Router)

	return r
}

// healthCheck returns the health status of the API
func (r *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// respondJSON writes a JSON response with the given status code
func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

// respondError writes a JSON error response
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
