package gs1

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixedClock pins "now" so date interpretation is deterministic.
func fixedClock() func() time.Time {
	return func() time.Time {
		return time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	}
}

func newTestParser() *Parser {
	return NewParser(WithClock(fixedClock()))
}

func TestIsGS1Barcode(t *testing.T) {
	tests := []struct {
		name    string
		barcode string
		want    bool
	}{
		{"ai markers", "(01)18906047654987(10)250203", true},
		{"three digit ai", "(310)001250", true},
		{"leading product name", "NAVIDOXINE(01) 18906047654987", true},
		{"plain ean", "8904091155823", false},
		{"parens without digits", "(AB)12345", false},
		{"single digit in parens", "(1)2345", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsGS1Barcode(tt.barcode))
		})
	}
}

func TestParseFullPharmaceuticalLabel(t *testing.T) {
	parser := newTestParser()

	parsed := parser.Parse("NAVIDOXINE(01) 18906047654987(10) 250203 (17) 012028(21) NVDXN0225")

	assert.Equal(t, FormatGS1AI, parsed.Format)
	assert.Equal(t, "NAVIDOXINE", parsed.ProductName)
	assert.Equal(t, "18906047654987", parsed.GTIN)
	assert.Equal(t, "250203", parsed.BatchNumber)
	assert.Equal(t, "NVDXN0225", parsed.SerialNumber)
	assert.Equal(t, "2028-02-01", parsed.ExpiryDate)
	assert.InDelta(t, 1.0, parsed.Confidence, 0.0001)

	// Raw values stay addressable next to the interpreted ones.
	assert.Equal(t, "18906047654987", parsed.Fields["ai_01_raw"])
	assert.Equal(t, "012028", parsed.Fields["ai_17_raw"])
	assert.Equal(t, "2028-02-01", parsed.Fields["expiry_date"])

	// "012028" only resolves through the permutation fallback and has
	// more than one plausible reading.
	assert.Equal(t, []string{"17"}, parsed.AmbiguousDates)
	assert.False(t, parsed.HasUnparsedExpiry())
}

func TestParseSimpleBarcode(t *testing.T) {
	parser := newTestParser()

	t.Run("ean13", func(t *testing.T) {
		parsed := parser.Parse("8904091155823")

		assert.Equal(t, FormatSimple, parsed.Format)
		assert.Equal(t, "8904091155823", parsed.GTIN)
		assert.Equal(t, "8904091155823", parsed.Fields["simple_barcode"])
		assert.InDelta(t, 0.5, parsed.Confidence, 0.0001)
	})

	t.Run("short code keeps no gtin", func(t *testing.T) {
		parsed := parser.Parse("ABC123")

		assert.Equal(t, FormatSimple, parsed.Format)
		assert.Empty(t, parsed.GTIN)
		assert.InDelta(t, 0.3, parsed.Confidence, 0.0001)
	})

	t.Run("surrounding whitespace is trimmed", func(t *testing.T) {
		parsed := parser.Parse("  8904091155823  ")

		assert.Equal(t, "8904091155823", parsed.OriginalBarcode)
		assert.Equal(t, "8904091155823", parsed.GTIN)
	})
}

func TestParseEmptyInput(t *testing.T) {
	parser := newTestParser()

	for _, input := range []string{"", "   ", "\t\n"} {
		parsed := parser.Parse(input)

		assert.Equal(t, FormatSimple, parsed.Format)
		assert.Empty(t, parsed.Fields)
		assert.Zero(t, parsed.Confidence)
	}
}

func TestParseGS1Confidence(t *testing.T) {
	parser := newTestParser()

	tests := []struct {
		name    string
		barcode string
		want    float64
	}{
		{"markers only", "(99)XYZ", 0.7},
		{"gtin", "(01)18906047654987", 0.85},
		{"gtin and batch", "(01)18906047654987(10)B001", 0.95},
		{"gtin batch serial caps at one", "(01)18906047654987(10)B001(21)S9", 1.0},
		{"batch and serial without gtin", "(10)B001(21)S9", 0.85},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parsed := parser.Parse(tt.barcode)
			require.Equal(t, FormatGS1AI, parsed.Format)
			assert.InDelta(t, tt.want, parsed.Confidence, 0.0001)
		})
	}
}

func TestParseGTINRequiresEightDigits(t *testing.T) {
	parser := newTestParser()

	parsed := parser.Parse("(01)1234567")

	assert.Empty(t, parsed.GTIN)
	assert.Equal(t, "1234567", parsed.Fields["ai_01_raw"])
	assert.NotContains(t, parsed.Fields, "gtin")
}

func TestParseNumericAIs(t *testing.T) {
	parser := newTestParser()

	tests := []struct {
		name    string
		barcode string
		field   string
		want    string
	}{
		{"count", "(37)24", "ai_37", "24"},
		{"count with unit noise", "(37)24EA", "ai_37", "24"},
		{"net weight decimal", "(310)1.250", "ai_310", "1.25"},
		{"unparseable keeps raw", "(37)N/A", "ai_37", "N/A"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parsed := parser.Parse(tt.barcode)
			assert.Equal(t, tt.want, parsed.Fields[tt.field])
		})
	}
}

func TestParseUnknownAIKeptRaw(t *testing.T) {
	parser := newTestParser()

	parsed := parser.Parse("(99)CUSTOM-DATA(240)REF42")

	assert.Equal(t, "CUSTOM-DATA", parsed.Fields["ai_99"])
	assert.Equal(t, "REF42", parsed.Fields["ai_240"])
}

func TestHasUnparsedExpiry(t *testing.T) {
	parser := newTestParser()

	t.Run("uninterpretable expiry is flagged", func(t *testing.T) {
		parsed := parser.Parse("(01)18906047654987(17)999999")

		assert.Empty(t, parsed.ExpiryDate)
		assert.Equal(t, "999999", parsed.Fields["ai_17_raw"])
		assert.True(t, parsed.HasUnparsedExpiry())
	})

	t.Run("no expiry field at all", func(t *testing.T) {
		parsed := parser.Parse("(01)18906047654987")

		assert.False(t, parsed.HasUnparsedExpiry())
	})
}

func TestParseOtherDateAIs(t *testing.T) {
	parser := newTestParser()

	parsed := parser.Parse("(11)250203(15)260815(17)271231")

	assert.Equal(t, "2025-02-03", parsed.Fields["production_date"])
	assert.Equal(t, "2026-08-15", parsed.Fields["best_before_date"])
	assert.Equal(t, "2027-12-31", parsed.Fields["expiry_date"])
	assert.Equal(t, "2027-12-31", parsed.ExpiryDate)
	assert.Empty(t, parsed.AmbiguousDates)
}
