package ingest

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"strings"

	"github.com/gocolly/colly/v2"
)

// HTMLListingStrategy scrapes listing cards off search-result pages
// using per-source CSS selectors from the registry.
type HTMLListingStrategy struct{}

func (s *HTMLListingStrategy) Run(ctx context.Context, config SourceConfig, p *Pipeline) (IngestStats, error) {
	stats := IngestStats{}

	maxPages := config.MaxPages
	if maxPages == 0 {
		maxPages = 1
	}

	parsedURL, err := url.Parse(config.BaseURL)
	if err != nil {
		return stats, fmt.Errorf("invalid base URL: %w", err)
	}

	sel := config.Selectors
	if sel.Container == "" {
		return stats, fmt.Errorf("selector 'container' is required for html_listing strategy")
	}

	collector := buildCollector(parsedURL.Host, config.Fetch)

	var nextPageURL string

	collector.OnHTML(sel.Container, func(e *colly.HTMLElement) {
		title := sanitizeText(e.ChildText(sel.Title))

		linkAttr := sel.LinkAttr
		if linkAttr == "" {
			linkAttr = "href"
		}
		var link string
		if sel.Link == "" || sel.Link == "." {
			link = strings.TrimSpace(e.Attr(linkAttr))
		} else {
			link = strings.TrimSpace(e.ChildAttr(sel.Link, linkAttr))
		}

		if title == "" || link == "" {
			return
		}
		stats.TotalFound++

		raw := RawListing{
			Title:      title,
			RawText:    title,
			URL:        CanonicalizeURL(e.Request.AbsoluteURL(link)),
			SourceName: config.Name,
			SourceTier: config.TierNumber(),
			Extra:      make(map[string]string),
		}

		if sel.Price != "" {
			raw.RawPrice = sanitizeText(e.ChildText(sel.Price))
		}
		if sel.Odometer != "" {
			raw.RawOdometer = sanitizeText(e.ChildText(sel.Odometer))
		}
		if sel.Location != "" {
			raw.Location = sanitizeText(e.ChildText(sel.Location))
		}
		if sel.Status != "" {
			raw.RawStatus = sanitizeText(e.ChildText(sel.Status))
		}
		if sel.ListedAt != "" {
			raw.RawListedAt = sanitizeText(e.ChildText(sel.ListedAt))
		}

		if sel.Description != "" && p.Fetcher != nil {
			detail, err := fetchDetailText(ctx, p.Fetcher, raw.URL, sel.Description)
			if err != nil {
				log.Printf("[%s] detail fetch failed for %s: %v", config.ID, raw.URL, err)
			} else {
				raw.RawText = raw.RawText + " " + detail
			}
		}

		if err := p.SaveRaw(ctx, raw); err != nil {
			log.Printf("[%s] failed to save %q: %v", config.ID, title, err)
			stats.Errors++
		} else {
			stats.TotalSaved++
		}
	})

	if config.Pagination.Next != "" {
		collector.OnHTML(config.Pagination.Next, func(e *colly.HTMLElement) {
			nextPageURL = e.Request.AbsoluteURL(e.Attr("href"))
		})
	}

	collector.OnError(func(r *colly.Response, err error) {
		log.Printf("[%s] error fetching %s: %v", config.ID, r.Request.URL, err)
		stats.Errors++
	})

	visited := make(map[string]bool)
	currentURL := config.BaseURL
	pageCount := 0

	for pageCount < maxPages {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		canonPage := CanonicalizeURL(currentURL)
		if visited[canonPage] {
			log.Printf("[%s] pagination cycle detected at %s, stopping", config.ID, canonPage)
			break
		}
		visited[canonPage] = true
		pageCount++

		log.Printf("[%s] fetching page %d: %s", config.ID, pageCount, currentURL)
		nextPageURL = ""

		if err := collector.Visit(currentURL); err != nil {
			if pageCount == 1 {
				return stats, fmt.Errorf("fetch failed for %s: %w", currentURL, err)
			}
			log.Printf("[%s] fetch error on page %d: %v", config.ID, pageCount, err)
			break
		}
		collector.Wait()

		if nextPageURL == "" || config.Pagination.Next == "" {
			break
		}
		currentURL = nextPageURL
	}

	if stats.TotalFound == 0 && stats.Errors > 0 {
		return stats, fmt.Errorf("source %s returned no listings (%d errors)", config.ID, stats.Errors)
	}

	return stats, nil
}
