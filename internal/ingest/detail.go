package ingest

import (
	"context"
	"fmt"

	"github.com/PuerkitoBio/goquery"
)

// fetchDetailText pulls a listing's detail page and extracts its
// description block. Used when the search-result card does not carry
// enough text to resolve the vehicle identity.
func fetchDetailText(ctx context.Context, fetcher Fetcher, pageURL, selector string) (string, error) {
	doc, err := fetcher.Fetch(ctx, pageURL)
	if err != nil {
		return "", err
	}
	defer doc.Body.Close()

	parsed, err := goquery.NewDocumentFromReader(doc.Body)
	if err != nil {
		return "", fmt.Errorf("parse detail page: %w", err)
	}

	text := sanitizeText(parsed.Find(selector).Text())
	if text == "" {
		return "", fmt.Errorf("selector %q matched nothing on %s", selector, pageURL)
	}
	return text, nil
}
