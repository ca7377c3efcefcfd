package loader

import (
	"math"
	"strconv"
	"strings"
)

// ============================================================================
// NORMALIZATION — Identifier and count cleanup
// ============================================================================
// Both transforms are pure string functions. Counts are lenient: a cell that
// cannot be read as a non-negative integer becomes 0 and the reason is
// reported, never raised.
// ============================================================================

// Coercion reasons.
const (
	ReasonNotNumeric = "not a number"
	ReasonNonFinite  = "not finite"
	ReasonNegative   = "negative"
	ReasonOverflow   = "out of range"
	ReasonRounded    = "rounded to integer"
)

// NormalizeIdentifier turns a path-like identifier into a display name: the
// last "/"-separated segment, underscores as spaces, whitespace trimmed.
// "http://ex.org/district/Mount_Lebanon" → "Mount Lebanon". A trailing slash
// yields "".
func NormalizeIdentifier(raw string) string {
	seg := raw
	if i := strings.LastIndex(raw, "/"); i >= 0 {
		seg = raw[i+1:]
	}
	return strings.TrimSpace(strings.ReplaceAll(seg, "_", " "))
}

// ParseCount reads a head count. Thousands separators are ignored, decimals
// are rounded, and anything empty, unparsable, non-finite or negative is 0.
func ParseCount(raw string) int64 {
	n, _ := parseCount(raw)
	return n
}

// parseCount returns the count and, when the cell was coerced, why.
// Empty cells are 0 with no reason.
func parseCount(raw string) (int64, string) {
	s := strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	if s == "" {
		return 0, ""
	}

	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		if n < 0 {
			return 0, ReasonNegative
		}
		return n, ""
	}

	if isHex(s) {
		return 0, ReasonNotNumeric
	}
	f, err := strconv.ParseFloat(s, 64)
	switch {
	case err != nil && !isRangeErr(err):
		return 0, ReasonNotNumeric
	case math.IsNaN(f) || math.IsInf(f, 0):
		return 0, ReasonNonFinite
	case f < 0:
		return 0, ReasonNegative
	case f >= math.MaxInt64:
		return 0, ReasonOverflow
	}

	rounded := math.Round(f)
	if rounded != f {
		return int64(rounded), ReasonRounded
	}
	return int64(rounded), ""
}

// isHex reports a hexadecimal literal, which ParseFloat would accept.
func isHex(s string) bool {
	s = strings.TrimLeft(s, "+-")
	return strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X")
}

func isRangeErr(err error) bool {
	ne, ok := err.(*strconv.NumError)
	return ok && ne.Err == strconv.ErrRange
}
