package ingest

import (
	"log"
	"time"

	"github.com/gocolly/colly/v2"
)

// buildCollector configures a Colly collector for one source domain:
// browser UA, per-domain delay from the source's fetch config, and
// bounded retries on transport errors.
func buildCollector(host string, fetch FetchConfig) *colly.Collector {
	c := colly.NewCollector(
		colly.AllowedDomains(host),
		colly.UserAgent(browserUA),
		colly.DetectCharset(),
		colly.AllowURLRevisit(),
		colly.MaxBodySize(10*1024*1024),
	)

	delay := 1 * time.Second
	if fetch.RateLimitRPS > 0 {
		delay = time.Duration(float64(time.Second) / fetch.RateLimitRPS)
	}
	c.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: 1,
		Delay:       delay,
		RandomDelay: delay / 2,
	})

	timeout := 30 * time.Second
	if fetch.TimeoutSeconds > 0 {
		timeout = time.Duration(fetch.TimeoutSeconds) * time.Second
	}
	c.SetRequestTimeout(timeout)

	if fetch.ProxyURL != "" {
		if err := c.SetProxy(fetch.ProxyURL); err != nil {
			log.Printf("[ingest] invalid proxy %q: %v", fetch.ProxyURL, err)
		}
	}

	maxRetries := fetch.MaxRetries
	if maxRetries == 0 {
		maxRetries = 3
	}
	c.OnError(func(r *colly.Response, err error) {
		retries, _ := r.Request.Ctx.GetAny("retries").(int)
		if retries < maxRetries {
			r.Request.Ctx.Put("retries", retries+1)
			log.Printf("[ingest] retry %d/%d for %s: %v", retries+1, maxRetries, r.Request.URL, err)
			time.Sleep(time.Duration(retries+1) * time.Second)
			r.Request.Retry()
		}
	})

	return c
}
