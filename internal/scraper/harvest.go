package scraper

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/pfrederiksen/dasny-bids/internal/logger"
)

// ListingPath is the site path under which opportunity categories are listed
const ListingPath = "index.php/opportunities/"

// DocumentFetcher retrieves a parsed document for a URL
type DocumentFetcher interface {
	Fetch(ctx context.Context, url string) (*goquery.Document, error)
}

// Scraper runs harvests and extractions against one site
type Scraper struct {
	fetcher DocumentFetcher
	site    *url.URL
	log     *logger.Logger
	metrics *logger.Metrics
}

// New creates a Scraper for siteURL. The site URL is the base that relative
// opportunity links are resolved against.
func New(fetcher DocumentFetcher, siteURL string, log *logger.Logger, metrics *logger.Metrics) (*Scraper, error) {
	site, err := url.Parse(siteURL)
	if err != nil {
		return nil, fmt.Errorf("parsing site URL: %w", err)
	}
	if site.Scheme == "" || site.Host == "" {
		return nil, fmt.Errorf("site URL must be absolute: %s", siteURL)
	}
	if !strings.HasSuffix(site.Path, "/") {
		site.Path += "/"
	}

	if log == nil {
		log = logger.Nop()
	}
	if metrics == nil {
		metrics = logger.NewMetrics()
	}

	return &Scraper{fetcher: fetcher, site: site, log: log, metrics: metrics}, nil
}

// ListingURLs returns the listing page URLs for category, pages 0 through pages-1
func ListingURLs(siteURL, category string, pages int) []string {
	base := strings.TrimRight(siteURL, "/") + "/" + ListingPath + category
	urls := make([]string, 0, pages)
	for page := 0; page < pages; page++ {
		urls = append(urls, fmt.Sprintf("%s?page=%d", base, page))
	}
	return urls
}

// Harvest fetches every listing page of category and merges their links.
// A title seen on a later page overwrites the earlier URL.
func (s *Scraper) Harvest(ctx context.Context, category string, pages int) (map[string]string, error) {
	links := make(map[string]string)

	listing := ListingURLs(s.site.String(), category, pages)
	for i, pageURL := range listing {
		doc, err := s.fetcher.Fetch(ctx, pageURL)
		if err != nil {
			return nil, fmt.Errorf("harvesting page %d: %w", i, err)
		}

		found := ExtractLinks(doc)
		for title, href := range found {
			links[title] = href
		}

		s.metrics.AddCounter("links.harvested", int64(len(found)))
		s.log.Info("Harvested listing page", logger.Fields{
			"page":  i + 1,
			"pages": len(listing),
			"links": len(found),
		})
	}

	return links, nil
}

// ExtractLinks maps the normalized title of every bid-title block to its href.
// Blocks without a link, a title or an href are skipped.
func ExtractLinks(doc *goquery.Document) map[string]string {
	links := make(map[string]string)

	doc.Find("div.rfp-bid-title").Each(func(_ int, block *goquery.Selection) {
		a := block.Find("a").First()
		if a.Length() == 0 {
			return
		}

		title := NormalizeTitle(strings.TrimSpace(a.Text()))
		href, _ := a.Attr("href")
		if title == "" || href == "" {
			return
		}
		links[title] = href
	})

	return links
}

// NormalizeTitle turns a listing title into a slug key: apostrophes are
// removed, spaces become underscores, and the "_–_" left by a spaced en-dash
// becomes "-". The replacements run in that order.
func NormalizeTitle(title string) string {
	title = strings.ReplaceAll(title, "'", "")
	title = strings.ReplaceAll(title, " ", "_")
	return strings.ReplaceAll(title, "_–_", "-")
}
