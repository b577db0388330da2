package scraper

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/pfrederiksen/dasny-bids/internal/logger"
	"github.com/pfrederiksen/dasny-bids/internal/record"
)

const (
	titleSelector   = "h1.page-header"
	noticeSelector  = "div#rfp-ad-notice"
	bidsSelector    = "table#bidresultlist"
	awardsSelector  = "table#awardlist"
	estimateKeyword = "estimated"
)

// numberPattern matches digit runs optionally grouped with commas, e.g. "1,250,000"
var numberPattern = regexp.MustCompile(`\b\d[\d,]*\b`)

// Extract fetches the page of every link in order and extracts its record.
// The first fetch failure aborts the run.
func (s *Scraper) Extract(ctx context.Context, links []record.OpportunityLink) ([]record.OpportunityRecord, error) {
	records := make([]record.OpportunityRecord, 0, len(links))

	for i, link := range links {
		pageURL, err := s.resolve(link.URL)
		if err != nil {
			return nil, fmt.Errorf("resolving %s: %w", link.Title, err)
		}

		doc, err := s.fetcher.Fetch(ctx, pageURL)
		if err != nil {
			return nil, fmt.Errorf("extracting %s: %w", link.Title, err)
		}

		rec := ExtractRecord(doc)
		records = append(records, rec)

		s.metrics.IncrCounter("records.extracted")
		s.log.Info("Extracted record", logger.Fields{
			"page":      i + 1,
			"pages":     len(links),
			"title":     rec.Title,
			"estimates": len(rec.EstimatedNumbers),
			"bids":      len(rec.BidResults),
			"awards":    len(rec.Awards),
		})
	}

	return records, nil
}

// resolve joins a relative opportunity URL onto the site URL
func (s *Scraper) resolve(href string) (string, error) {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return "", err
	}
	if ref.IsAbs() {
		return ref.String(), nil
	}

	resolved := *s.site
	resolved.Path = strings.TrimRight(s.site.Path, "/") + "/" + strings.TrimLeft(ref.Path, "/")
	resolved.RawPath = ""
	resolved.RawQuery = ref.RawQuery
	resolved.Fragment = ""
	return resolved.String(), nil
}

// ExtractRecord extracts the title, estimate mentions, bid results and awards
// of an opportunity page. Missing sections yield empty values.
func ExtractRecord(doc *goquery.Document) record.OpportunityRecord {
	rec := record.New(extractTitle(doc))
	rec.EstimatedNumbers = extractEstimates(doc)

	for _, cells := range tableRows(doc, bidsSelector) {
		rec.BidResults = append(rec.BidResults, record.BidRow{Company: cells[0], BidAmount: cells[1]})
	}
	for _, cells := range tableRows(doc, awardsSelector) {
		rec.Awards = append(rec.Awards, record.AwardRow{FirmName: cells[0], AwardAmt: cells[1]})
	}

	return rec
}

func extractTitle(doc *goquery.Document) string {
	h1 := doc.Find(titleSelector).First()
	if h1.Length() == 0 {
		return record.TitleNotFound
	}
	return strings.TrimSpace(h1.Text())
}

// extractEstimates splits the notice text into sentences on "." and keeps
// every sentence mentioning an estimate, with or without numbers
func extractEstimates(doc *goquery.Document) []record.EstimateMention {
	mentions := make([]record.EstimateMention, 0)

	notice := doc.Find(noticeSelector).First()
	if notice.Length() == 0 {
		return mentions
	}

	for _, sentence := range strings.Split(strings.TrimSpace(notice.Text()), ".") {
		if !strings.Contains(strings.ToLower(sentence), estimateKeyword) {
			continue
		}
		mentions = append(mentions, record.NewEstimateMention(
			strings.TrimSpace(sentence),
			numberPattern.FindAllString(sentence, -1),
		))
	}

	return mentions
}

// tableRows returns the trimmed text of cells 1 and 2 of every data row of the
// first table matching selector. The header row and rows with fewer than three
// cells are skipped.
func tableRows(doc *goquery.Document, selector string) [][2]string {
	rows := make([][2]string, 0)

	table := doc.Find(selector).First()
	if table.Length() == 0 {
		return rows
	}

	table.Find("tr").Each(func(i int, tr *goquery.Selection) {
		if i == 0 {
			return // header
		}
		cells := tr.Find("td")
		if cells.Length() < 3 {
			return
		}
		rows = append(rows, [2]string{
			strings.TrimSpace(cells.Eq(1).Text()),
			strings.TrimSpace(cells.Eq(2).Text()),
		})
	})

	return rows
}
