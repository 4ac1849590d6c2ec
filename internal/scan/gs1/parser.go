// Package gs1 parses decoded pharmacy barcode payloads.
//
// Pharmaceutical barcodes come in two shapes here: GS1 Application
// Identifier strings such as
//
//	NAVIDOXINE(01) 18906047654987(10) 250203 (17) 012028(21) NVDXN0225
//
// and plain numeric barcodes (EAN/UPC). The parser classifies the input,
// extracts GTIN/batch/serial/date fields, and scores the result. It never
// fails on malformed input; garbage degrades to a low-confidence simple
// parse.
//
// NOTE: This package works on already-decoded strings. Symbology decoding
// (camera image or laser signal to string) happens on the scanner.
package gs1

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Format classifies a decoded barcode payload.
type Format string

const (
	// FormatGS1AI marks payloads containing GS1 Application Identifier markers.
	FormatGS1AI Format = "gs1_ai"
	// FormatSimple marks plain payloads (bare EAN/UPC digits or free text).
	FormatSimple Format = "simple"
)

// aiMarker matches a GS1 Application Identifier marker like "(01)" or "(310)".
var aiMarker = regexp.MustCompile(`\((\d{2,3})\)`)

var (
	nonDigits  = regexp.MustCompile(`[^0-9]`)
	nonNumeric = regexp.MustCompile(`[^0-9.]`)
)

// ParsedBarcode is the immutable result of parsing one payload.
type ParsedBarcode struct {
	OriginalBarcode string            `json:"original_barcode"`
	Format          Format            `json:"format"`
	ProductName     string            `json:"product_name,omitempty"`
	Fields          map[string]string `json:"fields"`
	GTIN            string            `json:"gtin,omitempty"`
	BatchNumber     string            `json:"batch_number,omitempty"`
	SerialNumber    string            `json:"serial_number,omitempty"`
	// ExpiryDate is ISO YYYY-MM-DD when AI 17 was interpretable. The raw
	// value is always kept under fields["ai_17_raw"], so a failed
	// interpretation stays visible to expiry-alert logic.
	ExpiryDate string  `json:"expiry_date,omitempty"`
	Confidence float64 `json:"confidence"`
	// AmbiguousDates lists AI codes whose date only resolved through the
	// permutation fallback with more than one plausible reading. The first
	// reading wins; callers should flag these rather than trust them blindly.
	AmbiguousDates []string `json:"ambiguous_dates,omitempty"`
}

// HasUnparsedExpiry reports whether an expiry value was scanned but could
// not be interpreted as a date. Callers must surface this state; dropping
// it silently hides the expiry from alerting.
func (p *ParsedBarcode) HasUnparsedExpiry() bool {
	_, present := p.Fields["ai_17_raw"]
	return present && p.ExpiryDate == ""
}

// IsGS1Barcode reports whether the payload carries at least one GS1
// Application Identifier marker.
func IsGS1Barcode(barcode string) bool {
	return aiMarker.MatchString(barcode)
}

// Parser turns decoded barcode strings into ParsedBarcode values. It holds
// no call-spanning state; one instance is safe for concurrent reuse.
type Parser struct {
	now           func() time.Time
	lookbackDays  int
	lookaheadDays int
}

// Option configures a Parser.
type Option func(*Parser)

// WithClock overrides the time source used for the expiry plausibility
// window. Tests use this for deterministic date interpretation.
func WithClock(now func() time.Time) Option {
	return func(p *Parser) { p.now = now }
}

// WithExpiryWindow overrides how far back and forward of "now" an
// interpreted expiry date may plausibly fall.
func WithExpiryWindow(lookbackDays, lookaheadDays int) Option {
	return func(p *Parser) {
		p.lookbackDays = lookbackDays
		p.lookaheadDays = lookaheadDays
	}
}

// NewParser creates a parser. Defaults: real clock, 365 days lookback,
// 3650 days lookahead.
func NewParser(opts ...Option) *Parser {
	p := &Parser{
		now:           time.Now,
		lookbackDays:  365,
		lookaheadDays: 3650,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse classifies and parses a decoded barcode payload. It never returns
// an error: empty input yields a simple parse with confidence 0.0, and
// anything without AI markers falls back to simple parsing.
func (p *Parser) Parse(barcode string) *ParsedBarcode {
	trimmed := strings.TrimSpace(barcode)
	result := &ParsedBarcode{
		OriginalBarcode: trimmed,
		Format:          FormatSimple,
		Fields:          make(map[string]string),
	}

	if trimmed == "" {
		return result
	}

	if IsGS1Barcode(trimmed) {
		p.parseGS1(trimmed, result)
	} else {
		p.parseSimple(trimmed, result)
	}

	return result
}

// parseGS1 tokenizes "(AI)value" pairs and interprets each known AI.
func (p *Parser) parseGS1(barcode string, result *ParsedBarcode) {
	result.Format = FormatGS1AI

	markers := aiMarker.FindAllStringSubmatchIndex(barcode, -1)

	// Free text before the first AI marker is the printed product name.
	if name := strings.TrimSpace(barcode[:markers[0][0]]); name != "" {
		result.ProductName = name
	}

	for i, m := range markers {
		ai := barcode[m[2]:m[3]]

		valueEnd := len(barcode)
		if i+1 < len(markers) {
			valueEnd = markers[i+1][0]
		}
		value := strings.TrimSpace(barcode[m[1]:valueEnd])

		result.Fields["ai_"+ai+"_raw"] = value
		p.interpretAI(ai, value, result)
	}

	confidence := 0.7
	if result.GTIN != "" {
		confidence += 0.15
	}
	if result.BatchNumber != "" {
		confidence += 0.10
	}
	if result.SerialNumber != "" {
		confidence += 0.05
	}
	if confidence > 1.0 {
		confidence = 1.0
	}
	result.Confidence = confidence
}

// dateFieldKeys maps date-bearing AIs to their interpreted field names.
var dateFieldKeys = map[string]string{
	"11": "production_date",
	"13": "packaging_date",
	"15": "best_before_date",
	"17": "expiry_date",
}

func (p *Parser) interpretAI(ai, value string, result *ParsedBarcode) {
	switch ai {
	case "01":
		digits := nonDigits.ReplaceAllString(value, "")
		if len(digits) >= 8 {
			result.GTIN = digits
			result.Fields["gtin"] = digits
		}
	case "10":
		result.BatchNumber = value
		result.Fields["batch_number"] = value
	case "11", "13", "15", "17":
		iso, ambiguous, ok := p.interpretDate(value)
		if !ok {
			// Keep only the raw value; HasUnparsedExpiry exposes this.
			return
		}
		result.Fields[dateFieldKeys[ai]] = iso
		if ai == "17" {
			result.ExpiryDate = iso
		}
		if ambiguous {
			result.AmbiguousDates = append(result.AmbiguousDates, ai)
		}
	case "21":
		result.SerialNumber = value
		result.Fields["serial_number"] = value
	case "37", "310", "320":
		// Count / net weight. Strip units, keep the decimal point.
		cleaned := nonNumeric.ReplaceAllString(value, "")
		if f, err := strconv.ParseFloat(cleaned, 64); err == nil {
			result.Fields["ai_"+ai] = strconv.FormatFloat(f, 'f', -1, 64)
		} else {
			result.Fields["ai_"+ai] = value
		}
	default:
		result.Fields["ai_"+ai] = value
	}
}

// parseSimple treats the payload as a plain barcode. A digits-only
// remainder of GTIN length is promoted to a bare GTIN.
func (p *Parser) parseSimple(barcode string, result *ParsedBarcode) {
	result.Fields["simple_barcode"] = barcode

	digits := nonDigits.ReplaceAllString(barcode, "")
	if len(digits) >= 8 {
		result.GTIN = digits
		result.Fields["gtin"] = digits
		result.Confidence = 0.5
	} else {
		result.Confidence = 0.3
	}
}
