package ingest

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var relativeAgeRe = regexp.MustCompile(`(\d+)\s*(minute|min|hour|hr|day|week|month)s?\s*ago`)

// absoluteFormats are tried in order. Day-first layouts come first
// since every supported source advertises AU-format dates.
var absoluteFormats = []string{
	"02/01/2006",
	"2/1/2006",
	"02-01-2006",
	"2 January 2006",
	"2 Jan 2006",
	"Jan 2, 2006",
	"2006-01-02",
	time.RFC3339,
}

// ParseListedAt resolves listing-date text into a timestamp, handling
// both relative ages ("Listed 3 days ago", "yesterday") and absolute
// dates ("14/08/2026"). Returns now when the text is empty or opaque,
// which makes an undatable listing count as fresh rather than stale.
func ParseListedAt(text string, now time.Time) time.Time {
	cleaned := strings.ToLower(strings.TrimSpace(text))
	if cleaned == "" {
		return now
	}

	switch {
	case strings.Contains(cleaned, "today"), strings.Contains(cleaned, "just now"):
		return now
	case strings.Contains(cleaned, "yesterday"):
		return now.AddDate(0, 0, -1)
	}

	if m := relativeAgeRe.FindStringSubmatch(cleaned); m != nil {
		n, _ := strconv.Atoi(m[1])
		switch m[2] {
		case "minute", "min":
			return now.Add(-time.Duration(n) * time.Minute)
		case "hour", "hr":
			return now.Add(-time.Duration(n) * time.Hour)
		case "day":
			return now.AddDate(0, 0, -n)
		case "week":
			return now.AddDate(0, 0, -7*n)
		case "month":
			return now.AddDate(0, -n, 0)
		}
	}

	// Strip label prefixes like "Listed:" before trying absolute formats.
	candidate := cleaned
	if idx := strings.IndexAny(candidate, "0123456789"); idx > 0 {
		candidate = candidate[idx:]
	}
	candidate = strings.TrimSpace(candidate)

	for _, layout := range absoluteFormats {
		if t, err := time.Parse(layout, candidate); err == nil {
			return t
		}
	}
	// Retry with original casing for month-name layouts.
	orig := strings.TrimSpace(text)
	if idx := strings.IndexAny(orig, "0123456789"); idx > 0 {
		orig = strings.TrimSpace(orig[idx:])
	}
	for _, layout := range absoluteFormats {
		if t, err := time.Parse(layout, orig); err == nil {
			return t
		}
	}

	return now
}
