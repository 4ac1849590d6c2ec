package resolver

import (
	"context"

	"github.com/nazifia/pharmpos-backend/internal/scan/gs1"
)

// enrichIfMissing backfills identifiers the parse discovered onto a
// matched catalog item whose record lacks them. Only currently empty
// fields are written; existing values are never overwritten, so repeated
// scans of the same label are idempotent. A failed write is logged and
// swallowed: enrichment is opportunistic and must never fail a resolve.
//
// Returns the fields that were persisted, or nil.
func (r *Resolver) enrichIfMissing(ctx context.Context, catalog Catalog, item *Item, parsed *gs1.ParsedBarcode) map[string]string {
	updates := make(map[string]string)

	if item.GTIN == "" && parsed.GTIN != "" {
		updates["gtin"] = parsed.GTIN
	}
	if item.BatchNumber == "" && parsed.BatchNumber != "" {
		updates["batch_number"] = parsed.BatchNumber
	}
	if item.SerialNumber == "" && parsed.SerialNumber != "" {
		updates["serial_number"] = parsed.SerialNumber
	}
	if item.ExpiryDate == "" && parsed.ExpiryDate != "" {
		updates["exp_date"] = parsed.ExpiryDate
	}

	if len(updates) == 0 {
		return nil
	}

	if err := catalog.UpdateFields(ctx, item.ID, updates); err != nil {
		r.log.Warn().
			Err(err).
			Int64("item_id", item.ID).
			Msg("Failed to backfill item fields from scan")
		return nil
	}

	// Reflect the enrichment on the returned item so the response shows
	// the record as it now stands.
	if gtin, ok := updates["gtin"]; ok {
		item.GTIN = gtin
	}
	if batch, ok := updates["batch_number"]; ok {
		item.BatchNumber = batch
	}
	if serial, ok := updates["serial_number"]; ok {
		item.SerialNumber = serial
	}
	if expiry, ok := updates["exp_date"]; ok {
		item.ExpiryDate = expiry
	}

	return updates
}
