package db

import (
	"testing"

	"github.com/mackayauctioneers-design/ooglemate-auction-edge-sub003/internal/models"
)

func baseHunt() models.Hunt {
	return models.Hunt{
		Name: "79 Series hunt",
		Identity: models.IdentityTarget{
			Make:         "toyota",
			Model:        "landcruiser",
			SeriesFamily: "70",
			Badge:        "gxl",
			YearMin:      2017,
			YearMax:      2023,
		},
		KmTarget:         150000,
		KmTolerancePct:   25,
		ProvenExitMethod: "manual",
		ProvenExitValue:  82000,
		Thresholds: models.Thresholds{
			MinGapAbsBuy:   8000,
			MinGapPctBuy:   10,
			MinGapAbsWatch: 4000,
			MinGapPctWatch: 5,
		},
		Sources:        models.SourceScope{EnabledSources: []string{"grays_auctions"}},
		Geo:            models.GeoScope{States: []string{"qld"}},
		MustHaveTokens: []string{"bullbar"},
		MustHaveMode:   models.MustHaveSoft,
	}
}

func TestCriteriaChanged(t *testing.T) {
	tests := []struct {
		name string
		edit func(h *models.Hunt)
		want bool
	}{
		{"no edit", func(h *models.Hunt) {}, false},
		{"rename only", func(h *models.Hunt) { h.Name = "renamed" }, false},
		{"identity badge", func(h *models.Hunt) { h.Identity.Badge = "gx" }, true},
		{"identity year range", func(h *models.Hunt) { h.Identity.YearMax = 2024 }, true},
		{"buy threshold", func(h *models.Hunt) { h.Thresholds.MinGapAbsBuy = 10000 }, true},
		{"proven exit value", func(h *models.Hunt) { h.ProvenExitValue = 85000 }, true},
		{"km target", func(h *models.Hunt) { h.KmTarget = 120000 }, true},
		{"must-have mode", func(h *models.Hunt) { h.MustHaveMode = models.MustHaveStrict }, true},
		{"must-have token added", func(h *models.Hunt) { h.MustHaveTokens = append(h.MustHaveTokens, "canopy") }, true},
		{"must-have token swapped", func(h *models.Hunt) { h.MustHaveTokens = []string{"canopy"} }, true},
		{"source scope", func(h *models.Hunt) {
			h.Sources.EnabledSources = append(h.Sources.EnabledSources, "gumtree_cars")
		}, false},
		{"geo scope", func(h *models.Hunt) { h.Geo.States = []string{"qld", "nsw"} }, false},
		{"scan interval", func(h *models.Hunt) { h.ScanIntervalMins = 30 }, false},
		{"status pause", func(h *models.Hunt) { h.Status = models.HuntPaused }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			old := baseHunt()
			edited := baseHunt()
			tt.edit(&edited)
			if got := criteriaChanged(old, edited); got != tt.want {
				t.Errorf("criteriaChanged = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMergeCoverage(t *testing.T) {
	coverage := []models.SourceCoverage{
		{Source: "grays_auctions", Candidates: 3},
		{Source: "gumtree_cars", Failed: true, Error: "fetch timed out"},
	}
	counts := map[string]int{
		"grays_auctions":   41,
		"gumtree_cars":     12,
		"manheim_auctions": 7,
	}

	merged := mergeCoverage(coverage, counts)
	if len(merged) != 3 {
		t.Fatalf("expected 3 coverage rows, got %d: %+v", len(merged), merged)
	}

	bySource := make(map[string]models.SourceCoverage)
	for _, cov := range merged {
		bySource[cov.Source] = cov
	}

	// Stored counts override the refresh figure for healthy sources.
	if got := bySource["grays_auctions"].Candidates; got != 41 {
		t.Errorf("grays_auctions candidates = %d, want 41", got)
	}

	// A failed refresh keeps its failure row and original count.
	gumtree := bySource["gumtree_cars"]
	if !gumtree.Failed || gumtree.Error != "fetch timed out" {
		t.Errorf("failed source lost its failure marker: %+v", gumtree)
	}
	if gumtree.Candidates != 0 {
		t.Errorf("failed source candidates = %d, want 0", gumtree.Candidates)
	}

	// Sources with stored listings but no refresh entry are appended.
	if got := bySource["manheim_auctions"].Candidates; got != 7 {
		t.Errorf("manheim_auctions candidates = %d, want 7", got)
	}
}

func TestMergeCoverageEmptyRefresh(t *testing.T) {
	merged := mergeCoverage(nil, map[string]int{"carsearch_api": 9, "grays_auctions": 2})
	if len(merged) != 2 {
		t.Fatalf("expected 2 coverage rows, got %d", len(merged))
	}
	// Appended rows come out sorted by source name.
	if merged[0].Source != "carsearch_api" || merged[1].Source != "grays_auctions" {
		t.Errorf("unexpected order: %+v", merged)
	}
}
