package gs1

import (
	"time"
)

// GS1 prescribes YYMMDD for date AIs, but field printers in the supply
// chain routinely emit transposed orderings. interpretDate tries the
// known orderings in a fixed sequence, then falls back to scoring every
// plausible permutation against a recency window around "now".
//
// The returned ambiguous flag is set only when the permutation fallback
// found more than one plausible reading; the fixed-order strategies are
// trusted without it.
func (p *Parser) interpretDate(value string) (iso string, ambiguous bool, ok bool) {
	digits := nonDigits.ReplaceAllString(value, "")
	if len(digits) < 6 {
		return "", false, false
	}
	digits = digits[:6]

	p1 := atoi2(digits[0:2])
	p2 := atoi2(digits[2:4])
	p3 := atoi2(digits[4:6])

	// Strategy 1: standard GS1 YYMMDD.
	if t, valid := makeDate(expandYear(p1), p2, p3); valid {
		return formatISO(t), false, true
	}

	// Strategy 2: DDMMYY, swapping month and year when they are clearly
	// transposed (month slot > 12 while the year slot could be a month).
	{
		year, month := p3, p2
		if month > 12 && year <= 12 {
			month, year = year, month
		}
		if t, valid := makeDate(expandYear(year), month, p1); valid {
			return formatISO(t), false, true
		}
	}

	// Strategy 3: YYDDMM.
	if t, valid := makeDate(expandYear(p1), p3, p2); valid {
		return formatISO(t), false, true
	}

	return p.permutationFallback(digits, p1, p2, p3)
}

// permutationFallback tries every plausible (year, month, day) assignment
// of the three digit pairs and keeps those that form a valid calendar date
// inside the recency window. The first plausible candidate in a fixed
// preference order wins.
func (p *Parser) permutationFallback(digits string, p1, p2, p3 int) (string, bool, bool) {
	candidates := [][3]int{
		{p2, p3, p1},
		{p1, p2, p3},
		{p3, p2, p1},
		{p1, p3, p2},
		{p2, p1, p3},
	}

	// A middle pair of "20" often means a transposed February ("02").
	// Try forced-February readings of the outer pairs as well.
	if digits[2:4] == "20" {
		candidates = append(candidates,
			[3]int{p1, 2, p3},
			[3]int{p3, 2, p1},
			[3]int{p3, 2, p2},
		)
	}

	now := p.now()
	earliest := now.AddDate(0, 0, -p.lookbackDays)
	latest := now.AddDate(0, 0, p.lookaheadDays)

	var plausible []time.Time
	for _, c := range candidates {
		t, valid := makeDate(expandYear(c[0]), c[1], c[2])
		if !valid {
			continue
		}
		if t.Before(earliest) || t.After(latest) {
			continue
		}
		plausible = append(plausible, t)
	}

	if len(plausible) == 0 {
		return "", false, false
	}
	return formatISO(plausible[0]), len(plausible) > 1, true
}

// expandYear maps a two-digit year onto a century: 00-49 is 2000s,
// 50-99 is 1900s.
func expandYear(yy int) int {
	if yy < 50 {
		return 2000 + yy
	}
	return 1900 + yy
}

// makeDate builds a calendar date, rejecting out-of-range components.
// time.Date normalizes overflow (Feb 30 becomes Mar 2), so the result is
// checked against the inputs instead of trusted.
func makeDate(year, month, day int) (time.Time, bool) {
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || t.Month() != time.Month(month) || t.Day() != day {
		return time.Time{}, false
	}
	return t, true
}

func formatISO(t time.Time) string {
	return t.Format("2006-01-02")
}

func atoi2(s string) int {
	return int(s[0]-'0')*10 + int(s[1]-'0')
}
