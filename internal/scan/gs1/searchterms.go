package gs1

import "strings"

// SearchTerms derives ordered, deduplicated catalog lookup terms from a
// parse result, most specific first. Resolution failures report these to
// the operator so a manual search can pick up where matching stopped.
func SearchTerms(parsed *ParsedBarcode) []string {
	var terms []string
	seen := make(map[string]struct{})
	add := func(term string) {
		term = strings.TrimSpace(term)
		if term == "" {
			return
		}
		if _, dup := seen[term]; dup {
			return
		}
		seen[term] = struct{}{}
		terms = append(terms, term)
	}

	add(parsed.OriginalBarcode)

	if len(parsed.GTIN) >= 8 {
		add(parsed.GTIN)
		switch len(parsed.GTIN) {
		case 13:
			// EAN-13 payload without its check digit.
			add(parsed.GTIN[:12])
		case 14:
			// ITF-14 payload without its packaging indicator.
			add(parsed.GTIN[1:])
		}
	}

	if parsed.BatchNumber != "" && parsed.SerialNumber != "" {
		add(parsed.BatchNumber + parsed.SerialNumber)
		add(parsed.BatchNumber + "-" + parsed.SerialNumber)
	}
	if parsed.BatchNumber != "" {
		add(parsed.BatchNumber)
	}
	if parsed.SerialNumber != "" {
		add(parsed.SerialNumber)
	}

	for _, token := range strings.Fields(parsed.ProductName) {
		add(token)
	}

	return terms
}
