package cache

import (
	"log"
	"time"

	"github.com/modaretail/posync/internal/models"
	"github.com/modaretail/posync/internal/remote"
)

// Store is the slice of the local store the refresher writes
type Store interface {
	ReplaceProductCache(products []models.CachedProduct) error
	ReplaceStockCache(stock []models.CachedStock) error
	PruneStale(maxAge time.Duration) error
}

// Refresher periodically repopulates the reference-data cache from the
// remote backend so the register can browse products and stock offline.
// Stale cache is an accepted degraded mode: refresh failures are logged,
// never surfaced as user-facing errors.
type Refresher struct {
	store    Store
	backend  remote.Backend
	boutique int64
	interval time.Duration
	maxAge   time.Duration
	stop     chan struct{}
}

// NewRefresher creates a cache refresher scoped to one boutique
func NewRefresher(st Store, backend remote.Backend, boutique int64, interval, maxAge time.Duration) *Refresher {
	return &Refresher{
		store:    st,
		backend:  backend,
		boutique: boutique,
		interval: interval,
		maxAge:   maxAge,
		stop:     make(chan struct{}),
	}
}

// Start begins the background refresh loop. The existing cache stays
// readable for immediate display; the first refresh runs asynchronously
// shortly after startup.
func (r *Refresher) Start() {
	go func() {
		log.Println("📡 Cache Refresher started")

		// Short delay so startup display reads the existing cache first
		time.Sleep(5 * time.Second)
		r.RefreshNow()

		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				r.RefreshNow()
			case <-r.stop:
				log.Println("🛑 Cache Refresher stopped")
				return
			}
		}
	}()
}

// Stop halts the refresh loop
func (r *Refresher) Stop() {
	close(r.stop)
}

// RefreshNow pulls the full active catalog and the boutique's stock rows
// and replaces the local cache wholesale, then evicts entries past the
// retention window.
func (r *Refresher) RefreshNow() {
	log.Println("🔄 Cache: refreshing products and stock...")

	now := time.Now().UTC()

	products, err := r.backend.FetchProducts()
	if err != nil {
		log.Printf("⚠️ Cache refresh failed (products): %v", err)
		return
	}
	for i := range products {
		products[i].LastSyncedAt = now
	}
	if err := r.store.ReplaceProductCache(products); err != nil {
		log.Printf("⚠️ Cache refresh failed (store products): %v", err)
		return
	}

	stock, err := r.backend.FetchStock(r.boutique)
	if err != nil {
		log.Printf("⚠️ Cache refresh failed (stock): %v", err)
		return
	}
	for i := range stock {
		stock[i].LastSyncedAt = now
	}
	if err := r.store.ReplaceStockCache(stock); err != nil {
		log.Printf("⚠️ Cache refresh failed (store stock): %v", err)
		return
	}

	if err := r.store.PruneStale(r.maxAge); err != nil {
		log.Printf("⚠️ Cache cleanup failed: %v", err)
	}

	log.Printf("✅ Cache: %d products, %d stock rows", len(products), len(stock))
}
