package remote

import (
	"fmt"
	"time"

	"github.com/modaretail/posync/internal/models"
)

// StockInfo is the server-side view of one stock row, used for
// reconciliation before replaying a stock adjustment.
type StockInfo struct {
	QuantID   int64     `json:"id" xmlrpc:"id"`
	Quantity  float64   `json:"quantity" xmlrpc:"quantity"`
	WriteDate time.Time `json:"write_date" xmlrpc:"write_date"`
}

// Backend is the contract the sync subsystem needs from the remote system
// of record. clientRef parameters carry the local operation id; the backend
// dedups on them, which is what makes partial replays resumable.
type Backend interface {
	// Ping reports whether the backend is reachable right now
	Ping() error

	// FindSaleByRef returns the remote id of a sale previously created with
	// this client reference, or 0 when none exists
	FindSaleByRef(clientRef string) (int64, error)

	// CreateSale inserts the sale record and returns its remote id
	CreateSale(p *models.SalePayload, clientRef string) (int64, error)

	// CreateSaleLine inserts one line item referencing a remote sale id
	CreateSaleLine(saleID int64, line models.SaleLine, clientRef string) (int64, error)

	// DecrementStock issues the stock-decrement side effect for one line
	DecrementStock(boutiqueID, productID int64, quantity float64, clientRef string) error

	// WriteStockQuantity sets a stock row to an absolute quantity
	WriteStockQuantity(boutiqueID, productID int64, quantity float64) error

	// StockInfo reads the server's current stock row for reconciliation.
	// Returns (nil, nil) when the server holds no such row.
	StockInfo(boutiqueID, productID int64) (*StockInfo, error)

	// FetchProducts bulk-reads the active product catalog
	FetchProducts() ([]models.CachedProduct, error)

	// FetchStock bulk-reads stock rows, scoped to one boutique
	FetchStock(boutiqueID int64) ([]models.CachedStock, error)
}

// OdooBackend implements Backend against an Odoo instance
type OdooBackend struct {
	client *Client
}

// NewOdooBackend wraps an authenticated client
func NewOdooBackend(client *Client) *OdooBackend {
	return &OdooBackend{client: client}
}

// Ping checks backend reachability via the unauthenticated version endpoint
func (b *OdooBackend) Ping() error {
	return b.client.Version()
}

// FindSaleByRef looks up a sale by the client reference stamped at creation
func (b *OdooBackend) FindSaleByRef(clientRef string) (int64, error) {
	domain := []interface{}{
		[]interface{}{"pos_reference", "=", clientRef},
	}
	ids, err := b.client.Search("pos.order", domain, 1, 0)
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}
	return ids[0], nil
}

// CreateSale inserts the sale record, stamping the operation id as its
// client reference so a replay after partial failure finds it again
func (b *OdooBackend) CreateSale(p *models.SalePayload, clientRef string) (int64, error) {
	return b.client.Create("pos.order", map[string]interface{}{
		"name":           p.Reference,
		"pos_reference":  clientRef,
		"location_id":    p.BoutiqueID,
		"amount_total":   p.Total,
		"payment_method": p.PaymentMethod,
		"date_order":     p.SoldAt.UTC().Format("2006-01-02 15:04:05"),
	})
}

// CreateSaleLine inserts one line item for a remote sale
func (b *OdooBackend) CreateSaleLine(saleID int64, line models.SaleLine, clientRef string) (int64, error) {
	return b.client.Create("pos.order.line", map[string]interface{}{
		"order_id":   saleID,
		"product_id": line.ProductID,
		"qty":        line.Quantity,
		"price_unit": line.UnitPrice,
		"discount":   line.Discount,
		"client_ref": clientRef,
	})
}

// DecrementStock calls the backend's side-effecting decrement. The clientRef
// is keyed per line (opID/index) so the backend can drop duplicates.
func (b *OdooBackend) DecrementStock(boutiqueID, productID int64, quantity float64, clientRef string) error {
	_, err := b.client.CallMethod("stock.quant", "pos_decrement_stock", []interface{}{}, map[string]interface{}{
		"location_id": boutiqueID,
		"product_id":  productID,
		"quantity":    quantity,
		"client_ref":  clientRef,
	})
	return err
}

// WriteStockQuantity writes an absolute quantity to the stock row for a
// product at a boutique, creating the row if the server has none yet
func (b *OdooBackend) WriteStockQuantity(boutiqueID, productID int64, quantity float64) error {
	domain := []interface{}{
		[]interface{}{"product_id", "=", productID},
		[]interface{}{"location_id", "=", boutiqueID},
	}
	ids, err := b.client.Search("stock.quant", domain, 1, 0)
	if err != nil {
		return err
	}

	if len(ids) == 0 {
		_, err := b.client.Create("stock.quant", map[string]interface{}{
			"product_id":  productID,
			"location_id": boutiqueID,
			"quantity":    quantity,
		})
		return err
	}

	return b.client.Write("stock.quant", ids[:1], map[string]interface{}{
		"quantity": quantity,
	})
}

// StockInfo reads the current server stock row for one product at a boutique
func (b *OdooBackend) StockInfo(boutiqueID, productID int64) (*StockInfo, error) {
	domain := []interface{}{
		[]interface{}{"product_id", "=", productID},
		[]interface{}{"location_id", "=", boutiqueID},
	}

	var rows []StockInfo
	err := b.client.SearchRead("stock.quant", domain, []string{
		"quantity", "write_date",
	}, 1, 0, &rows)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

// FetchProducts bulk-reads the active catalog
func (b *OdooBackend) FetchProducts() ([]models.CachedProduct, error) {
	domain := []interface{}{
		[]interface{}{"active", "=", true},
		[]interface{}{"available_in_pos", "=", true},
	}

	var products []models.CachedProduct
	err := b.client.SearchRead("product.product", domain, []string{
		"default_code", "barcode", "name", "active", "list_price", "write_date",
	}, 5000, 0, &products)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch products: %w", err)
	}
	return products, nil
}

// FetchStock bulk-reads stock rows for one boutique
func (b *OdooBackend) FetchStock(boutiqueID int64) ([]models.CachedStock, error) {
	domain := []interface{}{
		[]interface{}{"location_id", "=", boutiqueID},
	}

	var stock []models.CachedStock
	err := b.client.SearchRead("stock.quant", domain, []string{
		"product_id", "location_id", "quantity", "write_date",
	}, 5000, 0, &stock)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch stock: %w", err)
	}
	return stock, nil
}
