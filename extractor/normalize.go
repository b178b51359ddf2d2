package extractor

import (
	"regexp"
	"strconv"
	"strings"
)

const (
	// noiseCeiling: amounts at or below this are unit prices or counters.
	noiseCeiling = 100

	// plausibleFloor: amounts above this are treated as real product prices.
	plausibleFloor = 2000
)

var (
	nonDigit = regexp.MustCompile(`\D`)

	// wonAmount matches "15,000원", "15000 원" and the like.
	wonAmount = regexp.MustCompile(`(\d{1,3}(?:,\d{3})+|\d+)\s*원`)
)

// ParseDigits strips every non-digit character from s and parses the rest
// as a base-10 integer. An empty remainder (or an overflow) yields 0.
func ParseDigits(s string) int {
	digits := nonDigit.ReplaceAllString(s, "")
	if digits == "" {
		return 0
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0
	}
	return n
}

// WonAmounts returns every won-denominated amount found in text, in order.
func WonAmounts(text string) []int {
	matches := wonAmount.FindAllStringSubmatch(text, -1)
	vals := make([]int, 0, len(matches))
	for _, m := range matches {
		vals = append(vals, ParseDigits(strings.ReplaceAll(m[1], ",", "")))
	}
	return vals
}

// PlausiblePrice picks the product price out of a set of amounts.
//
// Amounts <= 100 are dropped. If any amount exceeds 2000 the smallest of
// those wins, since pages show the discounted price next to larger
// original/anchor prices. Otherwise the largest remaining amount wins.
// The min/max asymmetry is a heuristic that has not been validated across
// layouts; returns 0 when nothing survives the filter.
func PlausiblePrice(vals []int) int {
	var (
		maxValid    int
		minAbove    int
		hasAbove    bool
		hasAnyValid bool
	)
	for _, v := range vals {
		if v <= noiseCeiling {
			continue
		}
		if !hasAnyValid || v > maxValid {
			maxValid = v
		}
		hasAnyValid = true
		if v > plausibleFloor && (!hasAbove || v < minAbove) {
			minAbove = v
			hasAbove = true
		}
	}
	if hasAbove {
		return minAbove
	}
	return maxValid
}
