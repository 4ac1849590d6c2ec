package testutil

import (
	"context"
	"strings"
	"sync"

	"github.com/nazifia/pharmpos-backend/internal/scan/resolver"
)

// MemCatalog is an in-memory resolver.Catalog backed by linear scans,
// matching the SQL repository's lookup semantics closely enough for
// handler and service tests.
type MemCatalog struct {
	mu      sync.Mutex
	Items   []*resolver.Item
	Updates []map[string]string
}

// NewMemCatalog creates an in-memory catalog with the given items.
func NewMemCatalog(items ...*resolver.Item) *MemCatalog {
	return &MemCatalog{Items: items}
}

func (c *MemCatalog) FindByID(_ context.Context, id int64) (*resolver.Item, error) {
	for _, item := range c.Items {
		if item.ID == id {
			return item, nil
		}
	}
	return nil, nil
}

func (c *MemCatalog) FindByBarcode(_ context.Context, barcode string) (*resolver.Item, error) {
	for _, item := range c.Items {
		if item.Barcode == barcode {
			return item, nil
		}
	}
	return nil, nil
}

func (c *MemCatalog) FindByGTIN(_ context.Context, gtin string) ([]*resolver.Item, error) {
	var out []*resolver.Item
	for _, item := range c.Items {
		if item.GTIN == gtin {
			out = append(out, item)
		}
	}
	return out, nil
}

func (c *MemCatalog) FindByGTINSuffix(_ context.Context, suffix string) ([]*resolver.Item, error) {
	var out []*resolver.Item
	for _, item := range c.Items {
		if item.GTIN != "" && strings.HasSuffix(item.GTIN, suffix) {
			out = append(out, item)
		}
	}
	return out, nil
}

func (c *MemCatalog) FindByBatchAndSerial(_ context.Context, batch, serial string) ([]*resolver.Item, error) {
	var out []*resolver.Item
	for _, item := range c.Items {
		if item.BatchNumber == batch && item.SerialNumber == serial {
			out = append(out, item)
		}
	}
	return out, nil
}

func (c *MemCatalog) FindByBatch(_ context.Context, batch string) ([]*resolver.Item, error) {
	var out []*resolver.Item
	for _, item := range c.Items {
		if item.BatchNumber == batch {
			out = append(out, item)
		}
	}
	return out, nil
}

func (c *MemCatalog) FindBySerial(_ context.Context, serial string) ([]*resolver.Item, error) {
	var out []*resolver.Item
	for _, item := range c.Items {
		if item.SerialNumber == serial {
			out = append(out, item)
		}
	}
	return out, nil
}

// UpdateFields records the backfill without applying it.
func (c *MemCatalog) UpdateFields(_ context.Context, id int64, fields map[string]string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Updates = append(c.Updates, fields)
	return nil
}
