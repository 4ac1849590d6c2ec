package resolver

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nazifia/pharmpos-backend/internal/scan/gs1"
	apperrors "github.com/nazifia/pharmpos-backend/pkg/errors"
	"github.com/nazifia/pharmpos-backend/pkg/logger"
)

// fakeCatalog is an in-memory Catalog with linear scans, close enough to
// the SQL repository's matching semantics for resolver tests.
type fakeCatalog struct {
	items       []*Item
	updateCalls []map[string]string
	failUpdates bool
	failFinds   bool
}

var errStoreDown = errors.New("connection refused")

func (c *fakeCatalog) FindByID(_ context.Context, id int64) (*Item, error) {
	if c.failFinds {
		return nil, errStoreDown
	}
	for _, item := range c.items {
		if item.ID == id {
			return item, nil
		}
	}
	return nil, nil
}

func (c *fakeCatalog) FindByBarcode(_ context.Context, barcode string) (*Item, error) {
	if c.failFinds {
		return nil, errStoreDown
	}
	for _, item := range c.items {
		if item.Barcode == barcode {
			return item, nil
		}
	}
	return nil, nil
}

func (c *fakeCatalog) FindByGTIN(_ context.Context, gtin string) ([]*Item, error) {
	if c.failFinds {
		return nil, errStoreDown
	}
	var out []*Item
	for _, item := range c.items {
		if item.GTIN == gtin {
			out = append(out, item)
		}
	}
	return out, nil
}

func (c *fakeCatalog) FindByGTINSuffix(_ context.Context, suffix string) ([]*Item, error) {
	if c.failFinds {
		return nil, errStoreDown
	}
	var out []*Item
	for _, item := range c.items {
		if item.GTIN != "" && strings.HasSuffix(item.GTIN, suffix) {
			out = append(out, item)
		}
	}
	return out, nil
}

func (c *fakeCatalog) FindByBatchAndSerial(_ context.Context, batch, serial string) ([]*Item, error) {
	if c.failFinds {
		return nil, errStoreDown
	}
	var out []*Item
	for _, item := range c.items {
		if item.BatchNumber == batch && item.SerialNumber == serial {
			out = append(out, item)
		}
	}
	return out, nil
}

func (c *fakeCatalog) FindByBatch(_ context.Context, batch string) ([]*Item, error) {
	if c.failFinds {
		return nil, errStoreDown
	}
	var out []*Item
	for _, item := range c.items {
		if item.BatchNumber == batch {
			out = append(out, item)
		}
	}
	return out, nil
}

func (c *fakeCatalog) FindBySerial(_ context.Context, serial string) ([]*Item, error) {
	if c.failFinds {
		return nil, errStoreDown
	}
	var out []*Item
	for _, item := range c.items {
		if item.SerialNumber == serial {
			out = append(out, item)
		}
	}
	return out, nil
}

func (c *fakeCatalog) UpdateFields(_ context.Context, id int64, fields map[string]string) error {
	if c.failUpdates {
		return errStoreDown
	}
	c.updateCalls = append(c.updateCalls, fields)
	return nil
}

func newTestResolver() *Resolver {
	parser := gs1.NewParser(gs1.WithClock(func() time.Time {
		return time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	}))
	return New(parser, "PHARM-", logger.New("scan-test", "test"))
}

func TestResolveQRFastPath(t *testing.T) {
	r := newTestResolver()
	catalog := &fakeCatalog{items: []*Item{{ID: 123, Name: "Paracetamol 500mg"}}}

	result, err := r.Resolve(context.Background(), "PHARM-RETAIL-123", ModeRetail, catalog)

	require.NoError(t, err)
	assert.Equal(t, OutcomeSuccess, result.Outcome)
	assert.True(t, result.ViaQR)
	assert.Nil(t, result.Parsed, "QR path bypasses the parser")
	require.NotNil(t, result.Best)
	assert.Equal(t, int64(123), result.Best.Item.ID)
	assert.Equal(t, MatchExactBarcode, result.Best.MatchType)
	assert.InDelta(t, 1.0, result.Best.Confidence, 0.0001)
}

func TestResolveQRModeMismatch(t *testing.T) {
	r := newTestResolver()
	catalog := &fakeCatalog{items: []*Item{{ID: 5}}}

	_, err := r.Resolve(context.Background(), "PHARM-WHOLESALE-5", ModeRetail, catalog)

	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrModeMismatch))

	var appErr *apperrors.AppError
	require.True(t, apperrors.As(err, &appErr))
	assert.Equal(t, "wholesale", appErr.Details["qr_mode"])
	assert.Equal(t, "retail", appErr.Details["mode"])
}

func TestResolveQRInvalidFormat(t *testing.T) {
	r := newTestResolver()
	catalog := &fakeCatalog{}

	tests := []struct {
		name    string
		barcode string
	}{
		{"missing id segment", "PHARM-RETAIL"},
		{"extra segment", "PHARM-RETAIL-12-3"},
		{"non numeric id", "PHARM-RETAIL-abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Resolve(context.Background(), tt.barcode, ModeRetail, catalog)
			require.Error(t, err)
			assert.True(t, apperrors.Is(err, apperrors.ErrInvalidFormat))
		})
	}
}

func TestResolveQRUnknownItem(t *testing.T) {
	r := newTestResolver()
	catalog := &fakeCatalog{}

	result, err := r.Resolve(context.Background(), "PHARM-RETAIL-999", ModeRetail, catalog)

	require.NoError(t, err)
	assert.Equal(t, OutcomeNotFound, result.Outcome)
	assert.True(t, result.ViaQR)
}

func TestResolveGS1PrefersExactBarcode(t *testing.T) {
	r := newTestResolver()

	// One item carries the scanned string as its stored barcode, another
	// only shares the extracted GTIN. The barcode-exact item must win.
	barcode := "(01)8904091155823(10)B001"
	catalog := &fakeCatalog{items: []*Item{
		{ID: 2, Name: "By GTIN", GTIN: "8904091155823"},
		{ID: 1, Name: "By Barcode", Barcode: barcode, GTIN: "8904091155823", BatchNumber: "B001"},
	}}

	result, err := r.Resolve(context.Background(), barcode, ModeRetail, catalog)

	require.NoError(t, err)
	assert.Equal(t, OutcomeSuccess, result.Outcome)
	require.NotNil(t, result.Best)
	assert.Equal(t, int64(1), result.Best.Item.ID)
	assert.Equal(t, MatchExactBarcode, result.Best.MatchType)
	assert.InDelta(t, 1.0, result.Best.Confidence, 0.0001)

	require.Len(t, result.Alternates, 1)
	assert.Equal(t, int64(2), result.Alternates[0].Item.ID)
	assert.Equal(t, MatchGTIN, result.Alternates[0].MatchType)
}

func TestResolveGS1ExcludesDuplicateItems(t *testing.T) {
	r := newTestResolver()

	// Item 7 matches by GTIN, batch, and serial; it must appear exactly
	// once, credited to the highest-priority step.
	catalog := &fakeCatalog{items: []*Item{
		{ID: 7, GTIN: "8904091155823", BatchNumber: "B001", SerialNumber: "S9"},
	}}

	result, err := r.Resolve(context.Background(), "(01)8904091155823(10)B001(21)S9", ModeRetail, catalog)

	require.NoError(t, err)
	require.NotNil(t, result.Best)
	assert.Equal(t, MatchGTIN, result.Best.MatchType)
	assert.Empty(t, result.Alternates)

	ids := map[int64]int{result.Best.Item.ID: 1}
	for _, alt := range result.Alternates {
		ids[alt.Item.ID]++
	}
	for id, n := range ids {
		assert.Equal(t, 1, n, "item %d returned more than once", id)
	}
}

func TestResolveGS1CascadeOrdering(t *testing.T) {
	r := newTestResolver()

	catalog := &fakeCatalog{items: []*Item{
		{ID: 10, GTIN: "00008904091155823"},                  // suffix only
		{ID: 11, BatchNumber: "B001", SerialNumber: "S9"},    // batch+serial
		{ID: 12, BatchNumber: "B001"},                        // batch only
		{ID: 13, SerialNumber: "S9"},                         // serial only
	}}

	result, err := r.Resolve(context.Background(), "(01)8904091155823(10)B001(21)S9", ModeRetail, catalog)

	require.NoError(t, err)
	require.NotNil(t, result.Best)
	assert.Equal(t, int64(11), result.Best.Item.ID)
	assert.Equal(t, MatchBatchSerial, result.Best.MatchType)
	assert.InDelta(t, 0.8, result.Best.Confidence, 0.0001)

	require.Len(t, result.Alternates, 3)
	assert.Equal(t, MatchPartialGTIN, result.Alternates[0].MatchType)
	assert.Equal(t, int64(10), result.Alternates[0].Item.ID)
	// Equal confidence resolves by cascade order: batch before serial.
	assert.Equal(t, int64(12), result.Alternates[1].Item.ID)
	assert.Equal(t, int64(13), result.Alternates[2].Item.ID)
}

func TestResolveGS1CapsAlternates(t *testing.T) {
	r := newTestResolver()

	catalog := &fakeCatalog{items: []*Item{
		{ID: 1, GTIN: "8904091155823"},
		{ID: 2, GTIN: "8904091155823"},
		{ID: 3, GTIN: "8904091155823"},
		{ID: 4, GTIN: "8904091155823"},
		{ID: 5, GTIN: "8904091155823"},
	}}

	result, err := r.Resolve(context.Background(), "(01)8904091155823", ModeRetail, catalog)

	require.NoError(t, err)
	require.NotNil(t, result.Best)
	assert.Len(t, result.Alternates, 3)
}

func TestResolveGS1Enrichment(t *testing.T) {
	r := newTestResolver()

	t.Run("backfills empty fields", func(t *testing.T) {
		barcode := "(01)8904091155823(10)B001(17)271231(21)S9"
		catalog := &fakeCatalog{items: []*Item{
			{ID: 1, Barcode: barcode},
		}}

		result, err := r.Resolve(context.Background(), barcode, ModeRetail, catalog)

		require.NoError(t, err)
		require.Len(t, catalog.updateCalls, 1)
		assert.Equal(t, map[string]string{
			"gtin":          "8904091155823",
			"batch_number":  "B001",
			"serial_number": "S9",
			"exp_date":      "2027-12-31",
		}, catalog.updateCalls[0])
		assert.Equal(t, catalog.updateCalls[0], result.Enrichments)

		// The returned item reflects the backfill.
		assert.Equal(t, "8904091155823", result.Best.Item.GTIN)
	})

	t.Run("never overwrites existing values", func(t *testing.T) {
		barcode := "(01)8904091155823(10)B001"
		catalog := &fakeCatalog{items: []*Item{
			{ID: 1, Barcode: barcode, GTIN: "1111111111111", BatchNumber: "OLD"},
		}}

		result, err := r.Resolve(context.Background(), barcode, ModeRetail, catalog)

		require.NoError(t, err)
		assert.Empty(t, catalog.updateCalls)
		assert.Nil(t, result.Enrichments)
		assert.Equal(t, "1111111111111", result.Best.Item.GTIN)
	})

	t.Run("update failure does not fail the resolve", func(t *testing.T) {
		barcode := "(01)8904091155823"
		catalog := &fakeCatalog{
			items:       []*Item{{ID: 1, Barcode: barcode}},
			failUpdates: true,
		}

		result, err := r.Resolve(context.Background(), barcode, ModeRetail, catalog)

		require.NoError(t, err)
		assert.Equal(t, OutcomeSuccess, result.Outcome)
		assert.Nil(t, result.Enrichments)
	})
}

func TestResolveFallbackExactBarcode(t *testing.T) {
	r := newTestResolver()
	catalog := &fakeCatalog{items: []*Item{
		{ID: 3, Barcode: "8904091155823"},
	}}

	result, err := r.Resolve(context.Background(), "8904091155823", ModeRetail, catalog)

	require.NoError(t, err)
	assert.Equal(t, OutcomeSuccess, result.Outcome)
	require.NotNil(t, result.Best)
	assert.Equal(t, int64(3), result.Best.Item.ID)
	assert.Equal(t, MatchExactBarcode, result.Best.MatchType)
}

func TestResolveFallbackPartialMatch(t *testing.T) {
	r := newTestResolver()

	// No stored barcode equals the scan, but two records share its GTIN.
	catalog := &fakeCatalog{items: []*Item{
		{ID: 1, Barcode: "other-1", GTIN: "680577895232"},
		{ID: 2, Barcode: "other-2", GTIN: "680577895232"},
	}}

	result, err := r.Resolve(context.Background(), "680577895232", ModeRetail, catalog)

	require.NoError(t, err)
	assert.Equal(t, OutcomePartialMatch, result.Outcome)
	assert.Nil(t, result.Best)
	require.Len(t, result.Candidates, 2)
	assert.Equal(t, MatchGTIN, result.Candidates[0].MatchType)
}

func TestResolveNotFoundDiagnostics(t *testing.T) {
	r := newTestResolver()
	catalog := &fakeCatalog{}

	t.Run("plain upc", func(t *testing.T) {
		result, err := r.Resolve(context.Background(), "680577895232", ModeRetail, catalog)

		require.NoError(t, err)
		assert.Equal(t, OutcomeNotFound, result.Outcome)
		require.NotNil(t, result.Diagnostics)
		assert.False(t, result.Diagnostics.GS1Attempted)
		assert.Equal(t, "680577895232", result.Diagnostics.GTIN)
		assert.Contains(t, result.Diagnostics.SearchTerms, "680577895232")
	})

	t.Run("gs1 label", func(t *testing.T) {
		result, err := r.Resolve(context.Background(), "(01)8904091155823(10)B001", ModeRetail, catalog)

		require.NoError(t, err)
		assert.Equal(t, OutcomeNotFound, result.Outcome)
		require.NotNil(t, result.Diagnostics)
		assert.True(t, result.Diagnostics.GS1Attempted)
		assert.Equal(t, "8904091155823", result.Diagnostics.GTIN)
		assert.Equal(t, "B001", result.Diagnostics.BatchNumber)
		assert.Contains(t, result.Diagnostics.SearchTerms, "B001")
	})
}

func TestResolveCatalogFailure(t *testing.T) {
	r := newTestResolver()
	catalog := &fakeCatalog{failFinds: true}

	_, err := r.Resolve(context.Background(), "8904091155823", ModeRetail, catalog)

	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrCatalogUnavailable))
}

func TestModeValid(t *testing.T) {
	assert.True(t, ModeRetail.Valid())
	assert.True(t, ModeWholesale.Valid())
	assert.False(t, Mode("").Valid())
	assert.False(t, Mode("online").Valid())
}
