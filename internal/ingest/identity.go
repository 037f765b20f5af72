package ingest

import (
	"strings"

	"github.com/mackayauctioneers-design/ooglemate-auction-edge-sub003/internal/models"
)

// modelTable drives identity resolution from listing text. Keys are
// lowercase model tokens; aliases fold common shorthand onto the
// canonical model so "lc79" and "land cruiser" both resolve.
type modelEntry struct {
	Make      string
	Model     string
	ModelRoot string
}

var modelTable = map[string]modelEntry{
	"landcruiser": {"Toyota", "Landcruiser", "landcruiser"},
	"hilux":       {"Toyota", "Hilux", "hilux"},
	"prado":       {"Toyota", "Prado", "prado"},
	"ranger":      {"Ford", "Ranger", "ranger"},
	"everest":     {"Ford", "Everest", "everest"},
	"d-max":       {"Isuzu", "D-Max", "dmax"},
	"mu-x":        {"Isuzu", "MU-X", "mux"},
	"triton":      {"Mitsubishi", "Triton", "triton"},
	"pajero":      {"Mitsubishi", "Pajero", "pajero"},
	"navara":      {"Nissan", "Navara", "navara"},
	"patrol":      {"Nissan", "Patrol", "patrol"},
	"amarok":      {"Volkswagen", "Amarok", "amarok"},
	"bt-50":       {"Mazda", "BT-50", "bt50"},
}

var modelAliases = map[string]string{
	"land cruiser": "landcruiser",
	"lc79":         "landcruiser",
	"lc70":         "landcruiser",
	"lc200":        "landcruiser",
	"lc300":        "landcruiser",
	"dmax":         "d-max",
	"d max":        "d-max",
	"mux":          "mu-x",
	"bt50":         "bt-50",
	"bt 50":        "bt-50",
}

// seriesTable maps series tokens to the family they belong to. The 76,
// 78 and 79 variants all belong to the 70 series family, which is what
// hunts constrain on.
var seriesTable = map[string]string{
	"70 series":  "70",
	"76 series":  "70",
	"78 series":  "70",
	"79 series":  "70",
	"vdj76":      "70",
	"vdj78":      "70",
	"vdj79":      "70",
	"gdj76":      "70",
	"gdj79":      "70",
	"200 series": "200",
	"vdj200":     "200",
	"300 series": "300",
	"fja300":     "300",
	"py ranger":  "py",
	"px3":        "px",
	"px ranger":  "px",
}

// engineTable maps engine code tokens to (family, code). Family groups
// interchangeable variants the way buyers talk about them.
type engineEntry struct {
	Family string
	Code   string
}

var engineTable = map[string]engineEntry{
	"1gd":      {"1GD", "1GD-FTV"},
	"1gd-ftv":  {"1GD", "1GD-FTV"},
	"2.8 td":   {"1GD", "1GD-FTV"},
	"1vd":      {"1VD", "1VD-FTV"},
	"1vd-ftv":  {"1VD", "1VD-FTV"},
	"4.5 v8":   {"1VD", "1VD-FTV"},
	"v8 diesel": {"1VD", "1VD-FTV"},
	"2gd":      {"2GD", "2GD-FTV"},
	"3.0 v6":   {"V6TD", "3.0 V6 TD"},
	"bi-turbo": {"YN2S", "2.0 Bi-Turbo"},
	"4jj3":     {"4JJ3", "4JJ3-TCX"},
	"4jj1":     {"4JJ1", "4JJ1-TC"},
	"ddi":      {"YS23", "2.3 DDT"},
}

var bodyTokens = map[string]string{
	"ute":         "ute",
	"utility":     "ute",
	"pickup":      "ute",
	"cab chassis": "cab chassis",
	"tray":        "cab chassis",
	"wagon":       "wagon",
	"suv":         "wagon",
	"troop":       "troopcarrier",
	"troopcarrier": "troopcarrier",
	"van":         "van",
}

var cabTokens = map[string]string{
	"dual cab":   "dual cab",
	"double cab": "dual cab",
	"crew cab":   "dual cab",
	"single cab": "single cab",
	"extra cab":  "extra cab",
	"space cab":  "extra cab",
	"king cab":   "extra cab",
}

// badgeTokens resolve trim levels. Checked longest-first so "GXL" is
// not shadowed by "GX".
var badgeTokens = []string{
	"workmate", "gxl", "gx", "sahara", "vx", "gr sport",
	"sr5", "sr", "rogue", "rugged x", "raptor", "wildtrak", "xlt", "xls", "xl",
	"x-terrain", "ls-u", "ls-m", "ls-t",
	"gls", "glx-r", "glx", "gsr",
	"st-x", "st-l", "st", "pro-4x", "ti-l", "ti", "warrior",
	"aventura", "style", "life", "core",
	"gt", "xtr", "sp",
}

// ResolveIdentity extracts structured vehicle tags from listing text.
// Returns nil when no known make/model can be found, in which case the
// listing stays unresolved and is matched on raw text with capped
// confidence.
func ResolveIdentity(rawText string) *models.ResolvedIdentity {
	text := " " + normalizeSpace(strings.ToLower(rawText)) + " "

	var entry *modelEntry
	for alias, canonical := range modelAliases {
		if strings.Contains(text, alias) {
			e := modelTable[canonical]
			entry = &e
			break
		}
	}
	if entry == nil {
		for token, e := range modelTable {
			if strings.Contains(text, token) {
				e := e
				entry = &e
				break
			}
		}
	}
	if entry == nil {
		return nil
	}

	id := &models.ResolvedIdentity{
		Make:      entry.Make,
		Model:     entry.Model,
		ModelRoot: entry.ModelRoot,
	}

	for token, family := range seriesTable {
		if strings.Contains(text, token) {
			id.SeriesFamily = family
			break
		}
	}

	for token, engine := range engineTable {
		if strings.Contains(text, token) {
			id.EngineFamily = engine.Family
			id.EngineCode = engine.Code
			break
		}
	}

	for token, body := range bodyTokens {
		if strings.Contains(text, token) {
			id.BodyType = body
			break
		}
	}

	for token, cab := range cabTokens {
		if strings.Contains(text, token) {
			id.CabType = cab
			break
		}
	}

	for _, badge := range badgeTokens {
		if containsWord(text, badge) {
			id.Badge = strings.ToUpper(badge)
			break
		}
	}

	// A cab token on a Landcruiser or ute implies the body when the
	// listing never says "ute" outright.
	if id.BodyType == "" && id.CabType != "" {
		id.BodyType = "ute"
	}

	return id
}

// containsWord reports whether token appears in text on word
// boundaries. Substring matching would resolve "sr5" inside "sr50" or
// "gx" inside "gxl".
func containsWord(text, token string) bool {
	idx := 0
	for {
		i := strings.Index(text[idx:], token)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(token)
		beforeOK := start == 0 || !isWordChar(text[start-1])
		afterOK := end >= len(text) || !isWordChar(text[end])
		if beforeOK && afterOK {
			return true
		}
		idx = start + 1
	}
}

func isWordChar(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= '0' && c <= '9'
}
