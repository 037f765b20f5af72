package ingest

import (
	"embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/mackayauctioneers-design/ooglemate-auction-edge-sub003/internal/models"
)

//go:embed config/sources.yaml
var sourcesYAML embed.FS

// Registry holds the configuration for all listing sources.
type Registry struct {
	Sources []SourceConfig `yaml:"sources"`
}

// FetchConfig defines HTTP fetching configuration for a source.
type FetchConfig struct {
	TimeoutSeconds int     `yaml:"timeout_seconds,omitempty"` // Default: 30
	MaxRetries     int     `yaml:"max_retries,omitempty"`     // Default: 3
	RateLimitRPS   float64 `yaml:"rate_limit_rps,omitempty"`  // Requests per second, default: 1.0
	ProxyURL       string  `yaml:"proxy_url,omitempty"`
}

// SourceConfig defines a single listing source for ingestion.
type SourceConfig struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Tier     string `yaml:"tier"`     // "auction", "marketplace", "dealer"
	Strategy string `yaml:"strategy"` // "html_listing", "api_search"
	BaseURL  string `yaml:"base_url,omitempty"`
	APIKey   string `yaml:"api_key,omitempty"`
	Active   bool   `yaml:"active"`

	Fetch FetchConfig `yaml:"fetch,omitempty"`

	// For the html_listing strategy
	Selectors  SelectorConfig   `yaml:"selectors,omitempty"`
	Pagination PaginationConfig `yaml:"pagination,omitempty"`
	MaxPages   int              `yaml:"max_pages,omitempty"`
}

type PaginationConfig struct {
	Next string `yaml:"next,omitempty"` // CSS selector for the next page link
}

type SelectorConfig struct {
	Container string `yaml:"container,omitempty"` // CSS selector for the listing card wrapper
	Link      string `yaml:"link,omitempty"`
	LinkAttr  string `yaml:"link_attr,omitempty"` // Attribute to extract link from (default: href)
	Title     string `yaml:"title,omitempty"`
	// Description opts the source into a detail-page fetch per card.
	// Card text alone is often too thin to resolve a vehicle identity.
	Description string `yaml:"description,omitempty"`
	Price     string `yaml:"price,omitempty"`
	Odometer  string `yaml:"odometer,omitempty"`
	Location  string `yaml:"location,omitempty"`
	Status    string `yaml:"status,omitempty"`
	ListedAt  string `yaml:"listed_at,omitempty"`
}

// TierNumber maps the yaml tier label to its numeric priority. Auction
// sources outrank marketplaces, which outrank dealer inventory.
func (c SourceConfig) TierNumber() int {
	switch c.Tier {
	case "auction":
		return models.TierAuction
	case "dealer":
		return models.TierDealer
	default:
		return models.TierMarketplace
	}
}

// LoadRegistry reads the embedded sources.yaml and returns a Registry.
// The path parameter is a filesystem fallback for local development.
func LoadRegistry(path string) (*Registry, error) {
	data, err := sourcesYAML.ReadFile("config/sources.yaml")
	if err != nil {
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, err
		}
	}

	// Expand environment variables within the YAML content (e.g. ${CARSEARCH_API_KEY})
	expanded := os.ExpandEnv(string(data))

	var reg Registry
	if err := yaml.Unmarshal([]byte(expanded), &reg); err != nil {
		return nil, err
	}

	return &reg, nil
}

// FindSource returns the config for a source name, matching either the
// yaml id or the display name used in hunts' enabled_sources.
func (r *Registry) FindSource(name string) (*SourceConfig, error) {
	for i := range r.Sources {
		if r.Sources[i].ID == name || r.Sources[i].Name == name {
			return &r.Sources[i], nil
		}
	}
	return nil, fmt.Errorf("source %q not found in registry", name)
}
