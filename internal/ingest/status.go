package ingest

import (
	"strings"

	"github.com/mackayauctioneers-design/ooglemate-auction-edge-sub003/internal/models"
)

var soldMarkers = []string{
	"sold", "under offer", "deposit taken", "sale pending", "passed in",
}

var expiredMarkers = []string{
	"expired", "removed", "withdrawn", "ended", "no longer available", "delisted",
}

// NormalizeStatus maps raw source status text onto the listing status
// enum. Unknown or empty text means the listing is still live, which is
// what sources signal by saying nothing.
func NormalizeStatus(raw string) models.ListingStatus {
	cleaned := strings.ToLower(strings.TrimSpace(raw))
	if cleaned == "" {
		return models.ListingActive
	}

	for _, marker := range soldMarkers {
		if strings.Contains(cleaned, marker) {
			return models.ListingSold
		}
	}
	for _, marker := range expiredMarkers {
		if strings.Contains(cleaned, marker) {
			return models.ListingExpired
		}
	}

	return models.ListingActive
}

// stateTokens resolve a location blurb down to the state code stored
// on the listing and filtered by hunt geo scope.
var stateTokens = map[string]string{
	"queensland":         "QLD",
	"qld":                "QLD",
	"new south wales":    "NSW",
	"nsw":                "NSW",
	"victoria":           "VIC",
	"vic":                "VIC",
	"south australia":    "SA",
	"sa":                 "SA",
	"western australia":  "WA",
	"wa":                 "WA",
	"nt":                 "NT",
	"tasmania":           "TAS",
	"tas":                "TAS",
	"northern territory": "NT",
	"act":                "ACT",
	"canberra":           "ACT",
}

// NormalizeLocation extracts a state code from location text like
// "Mackay, QLD" or "Western Australia". Returns "" when unrecognized.
func NormalizeLocation(raw string) string {
	cleaned := " " + strings.ToLower(normalizeSpace(raw)) + " "
	if cleaned == "  " {
		return ""
	}

	// Longest tokens first so "western australia" wins over a stray "wa".
	for _, token := range []string{
		"new south wales", "south australia", "western australia",
		"northern territory", "queensland", "victoria", "tasmania", "canberra",
	} {
		if strings.Contains(cleaned, token) {
			return stateTokens[token]
		}
	}
	for token, code := range stateTokens {
		if containsWord(cleaned, token) {
			return code
		}
	}
	return ""
}
