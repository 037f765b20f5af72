package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"strconv"
)

// APISearchStrategy pulls listings from sources that expose a JSON
// search endpoint, paging until the reported total is exhausted.
type APISearchStrategy struct{}

type apiSearchResponse struct {
	Total    int              `json:"total"`
	Listings []apiListingItem `json:"listings"`
}

type apiListingItem struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	URL         string   `json:"url"`
	Price       *float64 `json:"price"`
	Odometer    int      `json:"odometer_km"`
	Year        int      `json:"year"`
	State       string   `json:"state"`
	Status      string   `json:"status"`
	ListedAt    string   `json:"listed_at"`
}

func (s *APISearchStrategy) Run(ctx context.Context, config SourceConfig, p *Pipeline) (IngestStats, error) {
	stats := IngestStats{}

	const pageSize = 100
	page := 1

	for {
		resp, err := s.fetchPage(ctx, config, p, page, pageSize)
		if err != nil {
			if page == 1 {
				return stats, fmt.Errorf("%s search error on page %d: %w", config.ID, page, err)
			}
			log.Printf("[%s] search error on page %d: %v", config.ID, page, err)
			stats.Errors++
			break
		}

		stats.TotalFound = resp.Total

		for _, item := range resp.Listings {
			raw := RawListing{
				Title:      sanitizeText(item.Title),
				RawText:    sanitizeText(item.Title + " " + item.Description),
				URL:        CanonicalizeURL(item.URL),
				SourceName: config.Name,
				SourceTier: config.TierNumber(),
				RawYear:    strconv.Itoa(item.Year),
				RawStatus:  item.Status,
				RawListedAt: item.ListedAt,
				Location:   item.State,
				Extra:      map[string]string{"source_listing_id": item.ID},
			}
			if item.Price != nil {
				raw.RawPrice = strconv.FormatFloat(*item.Price, 'f', -1, 64)
			}
			if item.Odometer > 0 {
				raw.RawOdometer = strconv.Itoa(item.Odometer) + " km"
			}

			if err := p.SaveRaw(ctx, raw); err != nil {
				log.Printf("[%s] failed to save %q: %v", config.ID, item.Title, err)
				stats.Errors++
			} else {
				stats.TotalSaved++
			}
		}

		fetched := (page-1)*pageSize + len(resp.Listings)
		log.Printf("[%s] progress: saved %d, fetched %d/%d", config.ID, stats.TotalSaved, fetched, resp.Total)

		if len(resp.Listings) == 0 || fetched >= resp.Total {
			break
		}
		page++
	}

	return stats, nil
}

func (s *APISearchStrategy) fetchPage(ctx context.Context, config SourceConfig, p *Pipeline, page, pageSize int) (*apiSearchResponse, error) {
	u, err := url.Parse(config.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	q := u.Query()
	q.Set("page", strconv.Itoa(page))
	q.Set("per_page", strconv.Itoa(pageSize))
	if config.APIKey != "" {
		q.Set("api_key", config.APIKey)
	}
	u.RawQuery = q.Encode()

	doc, err := p.Fetcher.Fetch(ctx, u.String())
	if err != nil {
		return nil, err
	}
	defer doc.Body.Close()

	var resp apiSearchResponse
	if err := json.NewDecoder(doc.Body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("decoding search response: %w", err)
	}
	return &resp, nil
}
