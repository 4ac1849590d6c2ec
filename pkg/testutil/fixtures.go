package testutil

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

// ItemFixture represents test catalog item data. Empty string fields are
// inserted as NULL so backfill behavior can be exercised.
type ItemFixture struct {
	Name         string
	Brand        string
	Unit         string
	Price        decimal.Decimal
	Cost         decimal.Decimal
	Stock        int
	Barcode      string
	BarcodeType  string
	GTIN         string
	BatchNumber  string
	SerialNumber string
	ExpDate      string
}

// DefaultItemFixture returns a representative retail item.
func DefaultItemFixture() ItemFixture {
	return ItemFixture{
		Name:        "Paracetamol 500mg",
		Brand:       "Emzor",
		Unit:        "pack",
		Price:       decimal.RequireFromString("850.00"),
		Cost:        decimal.RequireFromString("600.00"),
		Stock:       42,
		Barcode:     "8904091155823",
		BarcodeType: "ean13",
		GTIN:        "8904091155823",
	}
}

// InsertItem inserts a fixture into the given catalog table ("items" or
// "wholesale_items") and returns the generated id.
func InsertItem(ctx context.Context, db *sqlx.DB, table string, f ItemFixture) (int64, error) {
	if table != "items" && table != "wholesale_items" {
		return 0, fmt.Errorf("unknown catalog table %q", table)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (name, brand, unit, price, cost, stock, barcode, barcode_type, gtin, batch_number, serial_number, exp_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id
	`, table)

	var id int64
	err := db.QueryRowxContext(ctx, query,
		f.Name, nullable(f.Brand), nullable(f.Unit), f.Price, f.Cost, f.Stock,
		nullable(f.Barcode), nullable(f.BarcodeType), nullable(f.GTIN),
		nullable(f.BatchNumber), nullable(f.SerialNumber), nullable(f.ExpDate),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to insert %s fixture: %w", table, err)
	}
	return id, nil
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
