package ingest

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	priceNumberRe = regexp.MustCompile(`\d[\d,]*(?:\.\d+)?`)
	thousandsRe   = regexp.MustCompile(`\d[\d,]*(?:\.\d+)?\s*k\b`)
)

// noPriceMarkers are advertised-price phrases that carry no usable
// figure. A listing with one of these gets a nil price and is held in
// UNVERIFIED rather than guessed at.
var noPriceMarkers = []string{
	"poa",
	"price on application",
	"contact dealer",
	"contact seller",
	"auction",
	"bidding",
	"make an offer",
	"enquire",
	"tba",
}

// ParsePrice extracts a dollar figure from advertised price text.
// Handles "$45,990 Drive Away", "45990 EGC", "From $38,500". Returns
// nil when the text carries no usable figure rather than zero, so the
// caller can tell "no price" apart from "free".
func ParsePrice(text string) *float64 {
	cleaned := strings.ToLower(strings.TrimSpace(text))
	if cleaned == "" {
		return nil
	}

	for _, marker := range noPriceMarkers {
		if strings.Contains(cleaned, marker) {
			return nil
		}
	}

	m := priceNumberRe.FindString(cleaned)
	if m == "" {
		return nil
	}

	val, err := strconv.ParseFloat(strings.ReplaceAll(m, ",", ""), 64)
	if err != nil {
		return nil
	}

	// Sites sometimes advertise in thousands ("$45.9k").
	if thousandsRe.MatchString(cleaned) {
		val *= 1000
	}

	// Reject junk figures: nothing on the road sells for under $100,
	// and eight digits means we grabbed a phone number.
	if val < 100 || val > 10_000_000 {
		return nil
	}

	return &val
}

var odometerRe = regexp.MustCompile(`(\d[\d,]*)\s*(?:km|kms|kilometres|kilometers)`)

// ParseOdometer extracts a km reading from odometer text like
// "123,456 km" or "45000kms". Returns 0 when absent.
func ParseOdometer(text string) int {
	m := odometerRe.FindStringSubmatch(strings.ToLower(text))
	if m == nil {
		// Bare number fallback ("87,000" in an odometer column)
		bare := priceNumberRe.FindString(text)
		if bare == "" {
			return 0
		}
		val, err := strconv.Atoi(strings.ReplaceAll(bare, ",", ""))
		if err != nil || val < 0 || val > 2_000_000 {
			return 0
		}
		return val
	}

	val, err := strconv.Atoi(strings.ReplaceAll(m[1], ",", ""))
	if err != nil || val < 0 || val > 2_000_000 {
		return 0
	}
	return val
}

var yearRe = regexp.MustCompile(`\b(19[5-9]\d|20[0-4]\d)\b`)

// ParseYear pulls a model year out of text, usually the listing title
// ("2021 Toyota Landcruiser..."). Returns 0 when no plausible year is found.
func ParseYear(text string) int {
	m := yearRe.FindString(text)
	if m == "" {
		return 0
	}
	year, _ := strconv.Atoi(m)
	return year
}
