// Package service orchestrates barcode scan workflows: parse, resolve
// against the mode-selected catalog, surface parse anomalies, and publish
// outcome events.
package service

import (
	"context"
	"strings"

	"github.com/nazifia/pharmpos-backend/internal/scan/events"
	"github.com/nazifia/pharmpos-backend/internal/scan/gs1"
	"github.com/nazifia/pharmpos-backend/internal/scan/resolver"
	"github.com/nazifia/pharmpos-backend/pkg/config"
	apperrors "github.com/nazifia/pharmpos-backend/pkg/errors"
	"github.com/nazifia/pharmpos-backend/pkg/logger"
)

// ScanService handles barcode scans against the retail and wholesale
// catalogs.
type ScanService struct {
	cfg       config.ScanConfig
	parser    *gs1.Parser
	resolver  *resolver.Resolver
	retail    resolver.Catalog
	wholesale resolver.Catalog
	events    *events.ScanEventPublisher
	log       *logger.Logger
}

// NewScanService creates a new scan service. events may be nil when no
// broker is configured.
func NewScanService(
	cfg config.ScanConfig,
	parser *gs1.Parser,
	res *resolver.Resolver,
	retail resolver.Catalog,
	wholesale resolver.Catalog,
	pub *events.ScanEventPublisher,
	log *logger.Logger,
) *ScanService {
	return &ScanService{
		cfg:       cfg,
		parser:    parser,
		resolver:  res,
		retail:    retail,
		wholesale: wholesale,
		events:    pub,
		log:       log.WithComponent("scan-service"),
	}
}

func (s *ScanService) catalogFor(mode resolver.Mode) resolver.Catalog {
	if mode == resolver.ModeWholesale {
		return s.wholesale
	}
	return s.retail
}

func (s *ScanService) checkBarcode(barcode string) (string, error) {
	trimmed := strings.TrimSpace(barcode)
	if trimmed == "" {
		return "", apperrors.BadRequest("barcode is required")
	}
	if len(trimmed) > s.cfg.MaxBarcodeLength {
		return "", apperrors.BadRequest("barcode exceeds maximum length")
	}
	return trimmed, nil
}

// Lookup resolves a scanned barcode against the catalog for the given
// mode and publishes the outcome.
func (s *ScanService) Lookup(ctx context.Context, barcode string, mode resolver.Mode) (*resolver.Result, error) {
	trimmed, err := s.checkBarcode(barcode)
	if err != nil {
		return nil, err
	}
	if !mode.Valid() {
		return nil, apperrors.BadRequest("mode must be retail or wholesale")
	}

	result, err := s.resolver.Resolve(ctx, trimmed, mode, s.catalogFor(mode))
	if err != nil {
		return nil, err
	}

	s.logParseFlags(trimmed, result.Parsed)

	switch result.Outcome {
	case resolver.OutcomeSuccess:
		s.log.Info().
			Str("barcode", trimmed).
			Str("mode", string(mode)).
			Str("match_type", string(result.Best.MatchType)).
			Float64("confidence", result.Best.Confidence).
			Int64("item_id", result.Best.Item.ID).
			Msg("barcode resolved")
		s.events.PublishItemScanned(ctx, trimmed, result)
		s.events.PublishItemEnriched(ctx, trimmed, result)
	case resolver.OutcomePartialMatch:
		s.log.Info().
			Str("barcode", trimmed).
			Str("mode", string(mode)).
			Int("candidates", len(result.Candidates)).
			Msg("barcode partially resolved, needs disambiguation")
	case resolver.OutcomeNotFound:
		s.log.Info().
			Str("barcode", trimmed).
			Str("mode", string(mode)).
			Msg("barcode not found in catalog")
		s.events.PublishScanUnmatched(ctx, trimmed, result)
	}

	return result, nil
}

// Parse runs the parser without touching the catalog. Used by clients that
// want to inspect extracted fields before committing a lookup.
func (s *ScanService) Parse(barcode string) (*gs1.ParsedBarcode, error) {
	trimmed, err := s.checkBarcode(barcode)
	if err != nil {
		return nil, err
	}

	parsed := s.parser.Parse(trimmed)
	s.logParseFlags(trimmed, parsed)
	return parsed, nil
}

// SearchTerms derives catalog search strings for a barcode, for manual
// lookup flows after a failed scan.
func (s *ScanService) SearchTerms(barcode string) ([]string, error) {
	trimmed, err := s.checkBarcode(barcode)
	if err != nil {
		return nil, err
	}
	return gs1.SearchTerms(s.parser.Parse(trimmed)), nil
}

// logParseFlags surfaces parse states that must not disappear silently: an
// expiry that was scanned but not interpretable, and dates that resolved
// only through the ambiguous permutation fallback.
func (s *ScanService) logParseFlags(barcode string, parsed *gs1.ParsedBarcode) {
	if parsed == nil {
		return
	}

	if parsed.HasUnparsedExpiry() {
		s.log.Warn().
			Str("barcode", barcode).
			Str("raw_expiry", parsed.Fields["ai_17_raw"]).
			Msg("expiry present on label but not interpretable, item will be invisible to expiry alerts")
	}

	if len(parsed.AmbiguousDates) > 0 {
		s.log.Warn().
			Str("barcode", barcode).
			Strs("ambiguous_ais", parsed.AmbiguousDates).
			Msg("date fields resolved ambiguously, first plausible reading was used")
	}
}
