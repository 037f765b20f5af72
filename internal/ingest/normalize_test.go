package ingest

import (
	"testing"
	"time"

	"github.com/mackayauctioneers-design/ooglemate-auction-edge-sub003/internal/models"
)

func TestNormalizeStatus(t *testing.T) {
	tests := []struct {
		raw  string
		want models.ListingStatus
	}{
		{"", models.ListingActive},
		{"For Sale", models.ListingActive},
		{"SOLD", models.ListingSold},
		{"Under Offer", models.ListingSold},
		{"Deposit taken", models.ListingSold},
		{"Listing expired", models.ListingExpired},
		{"Ad removed by seller", models.ListingExpired},
		{"no longer available", models.ListingExpired},
	}

	for _, tt := range tests {
		if got := NormalizeStatus(tt.raw); got != tt.want {
			t.Errorf("NormalizeStatus(%q) = %s, want %s", tt.raw, got, tt.want)
		}
	}
}

func TestNormalizeLocation(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"Mackay, QLD", "QLD"},
		{"Western Australia", "WA"},
		{"Dubbo NSW 2830", "NSW"},
		{"Melbourne, Victoria", "VIC"},
		{"", ""},
		{"Auckland, NZ", ""},
	}

	for _, tt := range tests {
		if got := NormalizeLocation(tt.raw); got != tt.want {
			t.Errorf("NormalizeLocation(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestParseListedAt(t *testing.T) {
	now := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		text string
		want time.Time
	}{
		{"empty counts as fresh", "", now},
		{"today", "Listed today", now},
		{"yesterday", "yesterday", now.AddDate(0, 0, -1)},
		{"days ago", "Listed 3 days ago", now.AddDate(0, 0, -3)},
		{"weeks ago", "2 weeks ago", now.AddDate(0, 0, -14)},
		{"hours ago", "5 hours ago", now.Add(-5 * time.Hour)},
		{"au short date", "14/08/2026", time.Date(2026, 8, 14, 0, 0, 0, 0, time.UTC)},
		{"month name", "Listed: 2 Aug 2026", time.Date(2026, 8, 2, 0, 0, 0, 0, time.UTC)},
		{"iso date", "2026-08-10", time.Date(2026, 8, 10, 0, 0, 0, 0, time.UTC)},
		{"opaque text counts as fresh", "recently listed", now},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseListedAt(tt.text, now)
			if !got.Equal(tt.want) {
				t.Errorf("ParseListedAt(%q) = %s, want %s", tt.text, got, tt.want)
			}
		})
	}
}
