// Package resolver matches parsed barcode payloads against an item
// catalog using a fixed-priority search cascade.
package resolver

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/nazifia/pharmpos-backend/internal/scan/gs1"
	apperrors "github.com/nazifia/pharmpos-backend/pkg/errors"
	"github.com/nazifia/pharmpos-backend/pkg/logger"
)

// Mode selects which catalog a scan resolves against.
type Mode string

const (
	ModeRetail    Mode = "retail"
	ModeWholesale Mode = "wholesale"
)

// Valid reports whether the mode is one of the known catalog modes.
func (m Mode) Valid() bool {
	return m == ModeRetail || m == ModeWholesale
}

// Item is a catalog record as seen by the resolver. Price and Cost are
// exact decimals; float money does not belong in a pharmacy ledger.
type Item struct {
	ID           int64           `json:"id"`
	Name         string          `json:"name"`
	Brand        string          `json:"brand,omitempty"`
	Unit         string          `json:"unit,omitempty"`
	Price        decimal.Decimal `json:"price"`
	Cost         decimal.Decimal `json:"cost"`
	Stock        int             `json:"stock"`
	Barcode      string          `json:"barcode,omitempty"`
	BarcodeType  string          `json:"barcode_type,omitempty"`
	GTIN         string          `json:"gtin,omitempty"`
	BatchNumber  string          `json:"batch_number,omitempty"`
	SerialNumber string          `json:"serial_number,omitempty"`
	ExpiryDate   string          `json:"exp_date,omitempty"`
}

// Catalog is the mode-selected item store the resolver queries. Single-item
// finders return (nil, nil) when nothing matches; an error always means the
// store itself failed, never a business miss.
type Catalog interface {
	FindByID(ctx context.Context, id int64) (*Item, error)
	FindByBarcode(ctx context.Context, barcode string) (*Item, error)
	FindByGTIN(ctx context.Context, gtin string) ([]*Item, error)
	FindByGTINSuffix(ctx context.Context, suffix string) ([]*Item, error)
	FindByBatchAndSerial(ctx context.Context, batch, serial string) ([]*Item, error)
	FindByBatch(ctx context.Context, batch string) ([]*Item, error)
	FindBySerial(ctx context.Context, serial string) ([]*Item, error)
	UpdateFields(ctx context.Context, id int64, fields map[string]string) error
}

// MatchType labels which cascade step produced a candidate.
type MatchType string

const (
	MatchExactBarcode MatchType = "exact_barcode"
	MatchGTIN         MatchType = "gtin"
	MatchPartialGTIN  MatchType = "partial_gtin"
	MatchBatchSerial  MatchType = "batch_serial"
	MatchBatchOnly    MatchType = "batch_only"
	MatchSerialOnly   MatchType = "serial_only"
)

// Confidence per match type is fixed by the cascade step, never derived
// from the parse confidence.
var matchConfidence = map[MatchType]float64{
	MatchExactBarcode: 1.0,
	MatchGTIN:         0.9,
	MatchPartialGTIN:  0.7,
	MatchBatchSerial:  0.8,
	MatchBatchOnly:    0.6,
	MatchSerialOnly:   0.6,
}

// MatchCandidate pairs a catalog item with how it was found.
type MatchCandidate struct {
	Item       *Item     `json:"item"`
	MatchType  MatchType `json:"match_type"`
	Confidence float64   `json:"confidence"`
}

// Outcome tags the business result of a resolve call. Malformed QR input
// and catalog failures are reported as errors instead, so an Outcome is
// always a legitimate scan disposition.
type Outcome string

const (
	OutcomeSuccess      Outcome = "success"
	OutcomePartialMatch Outcome = "partial_match"
	OutcomeNotFound     Outcome = "not_found"
)

// Diagnostics accompanies a NotFound outcome so the operator can fall back
// to manual search.
type Diagnostics struct {
	GS1Attempted bool     `json:"gs1_attempted"`
	GTIN         string   `json:"gtin,omitempty"`
	BatchNumber  string   `json:"batch_number,omitempty"`
	SerialNumber string   `json:"serial_number,omitempty"`
	SearchTerms  []string `json:"search_terms,omitempty"`
}

// Result is the outcome of one resolve call.
type Result struct {
	Outcome Outcome `json:"outcome"`
	Mode    Mode    `json:"mode"`

	// Best and Alternates are set on Success. Alternates carries up to
	// maxAlternates runner-up candidates for operator disambiguation.
	Best       *MatchCandidate  `json:"best,omitempty"`
	Alternates []MatchCandidate `json:"alternates,omitempty"`

	// Candidates is set on PartialMatch: GTIN-level hits without an exact
	// barcode, needing an operator choice.
	Candidates []MatchCandidate `json:"candidates,omitempty"`

	// ViaQR marks an internal QR fast-path match.
	ViaQR bool `json:"via_qr,omitempty"`

	// Parsed is the parser output, absent on the QR fast path which
	// bypasses parsing entirely.
	Parsed *gs1.ParsedBarcode `json:"parsed,omitempty"`

	Diagnostics *Diagnostics `json:"diagnostics,omitempty"`

	// Enrichments lists catalog fields backfilled from the parse onto the
	// matched item during this call.
	Enrichments map[string]string `json:"enrichments,omitempty"`
}

const maxAlternates = 3

// Resolver runs the lookup cascade. It is stateless apart from its
// configuration and safe for concurrent use.
type Resolver struct {
	parser   *gs1.Parser
	qrPrefix string
	log      *logger.Logger
}

// New creates a resolver. qrPrefix is the internal QR payload prefix,
// including its trailing separator (e.g. "PHARM-").
func New(parser *gs1.Parser, qrPrefix string, log *logger.Logger) *Resolver {
	return &Resolver{
		parser:   parser,
		qrPrefix: qrPrefix,
		log:      log.WithComponent("resolver"),
	}
}

// Resolve matches a decoded barcode against the mode-selected catalog.
//
// The error return carries malformed-QR conditions (ErrInvalidFormat,
// ErrModeMismatch) and catalog failures (ErrCatalogUnavailable); every
// expected scan disposition, including NotFound, comes back as a Result.
func (r *Resolver) Resolve(ctx context.Context, rawBarcode string, mode Mode, catalog Catalog) (*Result, error) {
	trimmed := strings.TrimSpace(rawBarcode)

	if strings.HasPrefix(trimmed, r.qrPrefix) {
		return r.resolveQR(ctx, trimmed, mode, catalog)
	}

	parsed := r.parser.Parse(trimmed)

	if parsed.Format == gs1.FormatGS1AI {
		result, err := r.resolveGS1(ctx, parsed, mode, catalog)
		if err != nil {
			return nil, err
		}
		if result != nil {
			return result, nil
		}
	}

	return r.resolveFallback(ctx, trimmed, parsed, mode, catalog)
}

// resolveQR handles internal "PHARM-<mode>-<id>" codes printed on shelf
// labels. These bypass GS1 parsing entirely.
func (r *Resolver) resolveQR(ctx context.Context, payload string, mode Mode, catalog Catalog) (*Result, error) {
	parts := strings.Split(payload, "-")
	if len(parts) != 3 {
		return nil, apperrors.InvalidFormat("QR code must have exactly three segments")
	}

	id, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return nil, apperrors.InvalidFormat("QR code item id is not numeric")
	}

	qrMode := strings.ToLower(parts[1])
	if qrMode != string(mode) {
		return nil, apperrors.ModeMismatch(qrMode, string(mode))
	}

	item, err := catalog.FindByID(ctx, id)
	if err != nil {
		return nil, apperrors.CatalogUnavailable(err)
	}
	if item == nil {
		return &Result{
			Outcome:     OutcomeNotFound,
			Mode:        mode,
			ViaQR:       true,
			Diagnostics: &Diagnostics{},
		}, nil
	}

	return &Result{
		Outcome: OutcomeSuccess,
		Mode:    mode,
		ViaQR:   true,
		Best: &MatchCandidate{
			Item:       item,
			MatchType:  MatchExactBarcode,
			Confidence: matchConfidence[MatchExactBarcode],
		},
	}, nil
}

// resolveGS1 runs the priority cascade over the parsed fields. It returns
// (nil, nil) when no step matched, letting Resolve fall through to the
// plain barcode fallback.
func (r *Resolver) resolveGS1(ctx context.Context, parsed *gs1.ParsedBarcode, mode Mode, catalog Catalog) (*Result, error) {
	seen := make(map[int64]struct{})
	var candidates []MatchCandidate

	addOne := func(item *Item, matchType MatchType) {
		if item == nil {
			return
		}
		if _, dup := seen[item.ID]; dup {
			return
		}
		seen[item.ID] = struct{}{}
		candidates = append(candidates, MatchCandidate{
			Item:       item,
			MatchType:  matchType,
			Confidence: matchConfidence[matchType],
		})
	}
	addAll := func(items []*Item, matchType MatchType) {
		for _, item := range items {
			addOne(item, matchType)
		}
	}

	item, err := catalog.FindByBarcode(ctx, parsed.OriginalBarcode)
	if err != nil {
		return nil, apperrors.CatalogUnavailable(err)
	}
	addOne(item, MatchExactBarcode)

	if len(parsed.GTIN) >= 8 {
		items, err := catalog.FindByGTIN(ctx, parsed.GTIN)
		if err != nil {
			return nil, apperrors.CatalogUnavailable(err)
		}
		addAll(items, MatchGTIN)
	}

	if len(parsed.GTIN) > 8 {
		suffix := parsed.GTIN[len(parsed.GTIN)-8:]
		items, err := catalog.FindByGTINSuffix(ctx, suffix)
		if err != nil {
			return nil, apperrors.CatalogUnavailable(err)
		}
		addAll(items, MatchPartialGTIN)
	}

	if parsed.BatchNumber != "" && parsed.SerialNumber != "" {
		items, err := catalog.FindByBatchAndSerial(ctx, parsed.BatchNumber, parsed.SerialNumber)
		if err != nil {
			return nil, apperrors.CatalogUnavailable(err)
		}
		addAll(items, MatchBatchSerial)
	}

	if parsed.BatchNumber != "" {
		items, err := catalog.FindByBatch(ctx, parsed.BatchNumber)
		if err != nil {
			return nil, apperrors.CatalogUnavailable(err)
		}
		addAll(items, MatchBatchOnly)
	}

	if parsed.SerialNumber != "" {
		items, err := catalog.FindBySerial(ctx, parsed.SerialNumber)
		if err != nil {
			return nil, apperrors.CatalogUnavailable(err)
		}
		addAll(items, MatchSerialOnly)
	}

	if len(candidates) == 0 {
		return nil, nil
	}

	// Stable sort keeps cascade order among equal confidences, so a
	// batch-only hit still outranks a serial-only hit.
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Confidence > candidates[j].Confidence
	})

	best := candidates[0]
	alternates := candidates[1:]
	if len(alternates) > maxAlternates {
		alternates = alternates[:maxAlternates]
	}

	result := &Result{
		Outcome:    OutcomeSuccess,
		Mode:       mode,
		Best:       &best,
		Alternates: alternates,
		Parsed:     parsed,
	}
	result.Enrichments = r.enrichIfMissing(ctx, catalog, best.Item, parsed)
	return result, nil
}

// resolveFallback covers non-GS1 input and GS1 input the cascade missed:
// one exact barcode lookup, then a GTIN-only retry that yields a partial
// match instead of a hard not-found.
func (r *Resolver) resolveFallback(ctx context.Context, trimmed string, parsed *gs1.ParsedBarcode, mode Mode, catalog Catalog) (*Result, error) {
	item, err := catalog.FindByBarcode(ctx, trimmed)
	if err != nil {
		return nil, apperrors.CatalogUnavailable(err)
	}
	if item != nil {
		return &Result{
			Outcome: OutcomeSuccess,
			Mode:    mode,
			Best: &MatchCandidate{
				Item:       item,
				MatchType:  MatchExactBarcode,
				Confidence: matchConfidence[MatchExactBarcode],
			},
			Parsed: parsed,
		}, nil
	}

	if len(parsed.GTIN) >= 8 {
		items, err := catalog.FindByGTIN(ctx, parsed.GTIN)
		if err != nil {
			return nil, apperrors.CatalogUnavailable(err)
		}
		if len(items) > 0 {
			if len(items) > maxAlternates {
				items = items[:maxAlternates]
			}
			candidates := make([]MatchCandidate, 0, len(items))
			for _, it := range items {
				candidates = append(candidates, MatchCandidate{
					Item:       it,
					MatchType:  MatchGTIN,
					Confidence: matchConfidence[MatchGTIN],
				})
			}
			return &Result{
				Outcome:    OutcomePartialMatch,
				Mode:       mode,
				Candidates: candidates,
				Parsed:     parsed,
			}, nil
		}
	}

	return &Result{
		Outcome: OutcomeNotFound,
		Mode:    mode,
		Parsed:  parsed,
		Diagnostics: &Diagnostics{
			GS1Attempted: parsed.Format == gs1.FormatGS1AI,
			GTIN:         parsed.GTIN,
			BatchNumber:  parsed.BatchNumber,
			SerialNumber: parsed.SerialNumber,
			SearchTerms:  gs1.SearchTerms(parsed),
		},
	}, nil
}
