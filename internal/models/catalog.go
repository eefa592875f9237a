package models

import (
	"strconv"
	"time"
)

// CachedProduct is a read-only projection of Odoo 'product.product',
// refreshed wholesale so the register can browse the catalog offline.
type CachedProduct struct {
	ID           int64      `gorm:"primaryKey;autoIncrement:false" json:"id" xmlrpc:"id"`
	DefaultCode  OdooString `gorm:"index" json:"default_code" xmlrpc:"default_code"` // SKU
	Barcode      OdooString `gorm:"index" json:"barcode" xmlrpc:"barcode"`           // EAN13
	Name         string     `json:"name" xmlrpc:"name"`
	Active       bool       `gorm:"default:true" json:"active" xmlrpc:"active"`
	ListPrice    float64    `json:"list_price" xmlrpc:"list_price"`
	WriteDate    time.Time  `json:"write_date" xmlrpc:"write_date"`
	LastSyncedAt time.Time  `json:"last_synced_at"`
}

func (CachedProduct) TableName() string { return "cached_products" }

// Key returns the cache key of the product
func (p CachedProduct) Key() string { return strconv.FormatInt(p.ID, 10) }

// CachedStock is a read-only projection of Odoo 'stock.quant', keyed by
// product and boutique (location).
type CachedStock struct {
	ID           int64     `gorm:"primaryKey;autoIncrement:false" json:"id" xmlrpc:"id"`
	ProductID    OdooRef   `gorm:"index:idx_stock_product_boutique" json:"product_id" xmlrpc:"product_id"`
	BoutiqueID   OdooRef   `gorm:"index:idx_stock_product_boutique" json:"location_id" xmlrpc:"location_id"`
	Quantity     float64   `json:"quantity" xmlrpc:"quantity"`
	WriteDate    time.Time `json:"write_date" xmlrpc:"write_date"`
	LastSyncedAt time.Time `json:"last_synced_at"`
}

func (CachedStock) TableName() string { return "cached_stock" }
