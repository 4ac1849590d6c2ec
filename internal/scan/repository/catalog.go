// Package repository implements the resolver's Catalog contract on top of
// PostgreSQL. Retail and wholesale stock live in parallel tables with the
// same shape; one repository type serves both.
package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/nazifia/pharmpos-backend/internal/scan/resolver"
	"github.com/nazifia/pharmpos-backend/pkg/database"
)

const (
	tableItems          = "items"
	tableWholesaleItems = "wholesale_items"

	// Identifier lookups are bounded; a barcode matching hundreds of rows
	// is a data problem, not something to stream back to the scanner.
	maxLookupRows = 50
)

const itemColumns = `id, name, brand, unit, price, cost, stock, barcode, barcode_type, gtin, batch_number, serial_number, exp_date`

// backfillColumns whitelists what a scan may write back onto an item.
// The slice fixes assignment order so generated SQL is deterministic.
var backfillColumns = []string{"gtin", "batch_number", "serial_number", "exp_date"}

// itemRow is the database shape of a catalog item.
type itemRow struct {
	ID           int64           `db:"id"`
	Name         string          `db:"name"`
	Brand        sql.NullString  `db:"brand"`
	Unit         sql.NullString  `db:"unit"`
	Price        decimal.Decimal `db:"price"`
	Cost         decimal.Decimal `db:"cost"`
	Stock        int             `db:"stock"`
	Barcode      sql.NullString  `db:"barcode"`
	BarcodeType  sql.NullString  `db:"barcode_type"`
	GTIN         sql.NullString  `db:"gtin"`
	BatchNumber  sql.NullString  `db:"batch_number"`
	SerialNumber sql.NullString  `db:"serial_number"`
	ExpDate      sql.NullString  `db:"exp_date"`
}

func (r *itemRow) toItem() *resolver.Item {
	return &resolver.Item{
		ID:           r.ID,
		Name:         r.Name,
		Brand:        r.Brand.String,
		Unit:         r.Unit.String,
		Price:        r.Price,
		Cost:         r.Cost,
		Stock:        r.Stock,
		Barcode:      r.Barcode.String,
		BarcodeType:  r.BarcodeType.String,
		GTIN:         r.GTIN.String,
		BatchNumber:  r.BatchNumber.String,
		SerialNumber: r.SerialNumber.String,
		ExpiryDate:   r.ExpDate.String,
	}
}

// CatalogRepository serves resolver lookups against one item table. A
// business miss is (nil, nil) / an empty slice, never an error: unknown
// barcodes are routine in a scanning workflow.
type CatalogRepository struct {
	db    *database.DB
	table string
}

// NewItemCatalog returns the retail catalog.
func NewItemCatalog(db *database.DB) *CatalogRepository {
	return &CatalogRepository{db: db, table: tableItems}
}

// NewWholesaleItemCatalog returns the wholesale catalog.
func NewWholesaleItemCatalog(db *database.DB) *CatalogRepository {
	return &CatalogRepository{db: db, table: tableWholesaleItems}
}

func (r *CatalogRepository) getOne(ctx context.Context, query string, args ...any) (*resolver.Item, error) {
	var row itemRow
	err := r.db.GetContext(ctx, &row, query, args...)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", r.table, err)
	}
	return row.toItem(), nil
}

func (r *CatalogRepository) selectMany(ctx context.Context, query string, args ...any) ([]*resolver.Item, error) {
	var rows []itemRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", r.table, err)
	}
	items := make([]*resolver.Item, 0, len(rows))
	for i := range rows {
		items = append(items, rows[i].toItem())
	}
	return items, nil
}

// FindByID retrieves an item by primary key.
func (r *CatalogRepository) FindByID(ctx context.Context, id int64) (*resolver.Item, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, itemColumns, r.table)
	return r.getOne(ctx, query, id)
}

// FindByBarcode retrieves the item whose stored barcode exactly equals the
// scanned string.
func (r *CatalogRepository) FindByBarcode(ctx context.Context, barcode string) (*resolver.Item, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE barcode = $1 ORDER BY id LIMIT 1`, itemColumns, r.table)
	return r.getOne(ctx, query, barcode)
}

// FindByGTIN retrieves items sharing a GTIN. Several pack sizes of one
// product legitimately share it.
func (r *CatalogRepository) FindByGTIN(ctx context.Context, gtin string) ([]*resolver.Item, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE gtin = $1 ORDER BY id LIMIT %d`, itemColumns, r.table, maxLookupRows)
	return r.selectMany(ctx, query, gtin)
}

// FindByGTINSuffix retrieves items whose GTIN ends with the given digit
// string, bridging records stored with differing symbology padding.
func (r *CatalogRepository) FindByGTINSuffix(ctx context.Context, suffix string) ([]*resolver.Item, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE gtin LIKE '%%' || $1 ORDER BY id LIMIT %d`, itemColumns, r.table, maxLookupRows)
	return r.selectMany(ctx, query, suffix)
}

// FindByBatchAndSerial retrieves items matching both identifiers.
func (r *CatalogRepository) FindByBatchAndSerial(ctx context.Context, batch, serial string) ([]*resolver.Item, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE batch_number = $1 AND serial_number = $2 ORDER BY id LIMIT %d`, itemColumns, r.table, maxLookupRows)
	return r.selectMany(ctx, query, batch, serial)
}

// FindByBatch retrieves items by batch number alone.
func (r *CatalogRepository) FindByBatch(ctx context.Context, batch string) ([]*resolver.Item, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE batch_number = $1 ORDER BY id LIMIT %d`, itemColumns, r.table, maxLookupRows)
	return r.selectMany(ctx, query, batch)
}

// FindBySerial retrieves items by serial number alone.
func (r *CatalogRepository) FindBySerial(ctx context.Context, serial string) ([]*resolver.Item, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE serial_number = $1 ORDER BY id LIMIT %d`, itemColumns, r.table, maxLookupRows)
	return r.selectMany(ctx, query, serial)
}

// UpdateFields backfills scan-derived identifiers onto an item. Columns
// outside the whitelist are rejected, and COALESCE keeps any value that
// appeared since the resolver's read, so concurrent scans only ever fill
// blanks.
func (r *CatalogRepository) UpdateFields(ctx context.Context, id int64, fields map[string]string) error {
	if len(fields) == 0 {
		return nil
	}

	assignments := make([]string, 0, len(fields))
	args := make([]any, 0, len(fields)+1)
	for _, column := range backfillColumns {
		value, ok := fields[column]
		if !ok {
			continue
		}
		args = append(args, value)
		assignments = append(assignments, fmt.Sprintf("%s = COALESCE(NULLIF(%s, ''), $%d)", column, column, len(args)))
	}
	if len(assignments) != len(fields) {
		return fmt.Errorf("fields contain a column that is not backfillable")
	}
	args = append(args, id)

	query := fmt.Sprintf(`UPDATE %s SET %s, updated_at = NOW() WHERE id = $%d`,
		r.table, strings.Join(assignments, ", "), len(args))

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update %s: %w", r.table, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
