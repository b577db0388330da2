package scraper

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pfrederiksen/dasny-bids/internal/logger"
	"github.com/pfrederiksen/dasny-bids/internal/record"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractRecord_Fixture(t *testing.T) {
	rec := ExtractRecord(docFromFixture(t, "opportunity.html"))

	assert.Equal(t, "Request for Proposal – Roof Repair", rec.Title)
	assert.Equal(t, []record.EstimateMention{
		{
			Sentence: "The estimated construction cost is between 1,250,000 and 1,500,000 dollars",
			Numbers:  []string{"1,250,000", "1,500,000"},
		},
		{
			Sentence: "Estimated completion is subject to change",
			Numbers:  []string{},
		},
	}, rec.EstimatedNumbers)
	assert.Equal(t, []record.BidRow{
		{Company: "Acme Roofing Inc.", BidAmount: "$1,310,000.00"},
		{Company: "Empire State Builders", BidAmount: "$1,425,500.00"},
	}, rec.BidResults)
	assert.Equal(t, []record.AwardRow{
		{FirmName: "Acme Roofing Inc.", AwardAmt: "$1,310,000.00"},
	}, rec.Awards)
}

func TestExtractRecord_EmptyPage(t *testing.T) {
	rec := ExtractRecord(docFromString(t, `<html><body><p>Nothing here</p></body></html>`))

	assert.Equal(t, record.TitleNotFound, rec.Title)
	assert.NotNil(t, rec.EstimatedNumbers)
	assert.Empty(t, rec.EstimatedNumbers)
	assert.NotNil(t, rec.BidResults)
	assert.Empty(t, rec.BidResults)
	assert.NotNil(t, rec.Awards)
	assert.Empty(t, rec.Awards)
}

func TestExtractRecord_MissingAwards(t *testing.T) {
	rec := ExtractRecord(docFromString(t, `
		<h1 class="page-header">Boiler Replacement</h1>
		<table id="bidresultlist">
			<tr><th>#</th><th>Company</th><th>Bid Amount</th></tr>
			<tr><td>1</td><td>Heat Co</td><td>$90,000</td></tr>
		</table>`))

	assert.Equal(t, "Boiler Replacement", rec.Title)
	assert.Len(t, rec.BidResults, 1)
	assert.Equal(t, []record.AwardRow{}, rec.Awards)
}

func TestExtractEstimates(t *testing.T) {
	tests := []struct {
		name   string
		notice string
		want   []record.EstimateMention
	}{
		{
			name:   "single estimate",
			notice: "Total estimated cost is 1,250,000 dollars. Other info here.",
			want: []record.EstimateMention{
				{Sentence: "Total estimated cost is 1,250,000 dollars", Numbers: []string{"1,250,000"}},
			},
		},
		{
			name:   "case insensitive without numbers",
			notice: "ESTIMATED value to be announced. Bids due soon.",
			want: []record.EstimateMention{
				{Sentence: "ESTIMATED value to be announced", Numbers: []string{}},
			},
		},
		{
			name:   "trailing comma is not part of number",
			notice: "Estimated between 500,000, and 750,000 dollars",
			want: []record.EstimateMention{
				{Sentence: "Estimated between 500,000, and 750,000 dollars", Numbers: []string{"500,000", "750,000"}},
			},
		},
		{
			name:   "digits inside identifiers are not numbers",
			notice: "Project C12345 estimated at 1,250,000, total",
			want: []record.EstimateMention{
				{Sentence: "Project C12345 estimated at 1,250,000, total", Numbers: []string{"1,250,000"}},
			},
		},
		{
			name:   "no estimate sentences",
			notice: "Bids are due Friday. Contact the office.",
			want:   []record.EstimateMention{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := docFromString(t, fmt.Sprintf(`<div id="rfp-ad-notice">%s</div>`, tt.notice))
			assert.Equal(t, tt.want, extractEstimates(doc))
		})
	}
}

func TestExtractEstimates_NoNotice(t *testing.T) {
	doc := docFromString(t, `<div id="other">Total estimated cost is 5 dollars.</div>`)
	assert.Equal(t, []record.EstimateMention{}, extractEstimates(doc))
}

func TestTableRows(t *testing.T) {
	tests := []struct {
		name string
		html string
		want [][2]string
	}{
		{
			name: "header and two rows",
			html: `<table id="bidresultlist">
				<tr><th>#</th><th>Company</th><th>Bid Amount</th></tr>
				<tr><td>1</td><td>First Co</td><td>$100</td></tr>
				<tr><td>2</td><td>Second Co</td><td>$200</td></tr>
			</table>`,
			want: [][2]string{{"First Co", "$100"}, {"Second Co", "$200"}},
		},
		{
			name: "header made of td cells is still skipped",
			html: `<table id="bidresultlist">
				<tr><td>#</td><td>Company</td><td>Bid Amount</td></tr>
				<tr><td>1</td><td>Only Co</td><td>$300</td></tr>
			</table>`,
			want: [][2]string{{"Only Co", "$300"}},
		},
		{
			name: "short rows skipped",
			html: `<table id="bidresultlist">
				<tr><th>#</th><th>Company</th><th>Bid Amount</th></tr>
				<tr><td>1</td><td>Short Co</td></tr>
				<tr><td>2</td><td>Long Co</td><td>$400</td><td>extra</td></tr>
			</table>`,
			want: [][2]string{{"Long Co", "$400"}},
		},
		{
			name: "missing table",
			html: `<table id="somethingelse"><tr><td>1</td><td>A</td><td>B</td></tr></table>`,
			want: [][2]string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tableRows(docFromString(t, tt.html), bidsSelector))
		})
	}
}

func TestResolve(t *testing.T) {
	tests := []struct {
		site string
		href string
		want string
	}{
		{"https://www.dasny.org/", "/opportunities/roof", "https://www.dasny.org/opportunities/roof"},
		{"https://www.dasny.org/", "opportunities/roof", "https://www.dasny.org/opportunities/roof"},
		{"https://www.dasny.org", "/opportunities/roof?x=1", "https://www.dasny.org/opportunities/roof?x=1"},
		{"https://example.com/mirror/", "/opportunities/roof", "https://example.com/mirror/opportunities/roof"},
		{"https://www.dasny.org/", "https://other.example/page", "https://other.example/page"},
	}

	for _, tt := range tests {
		t.Run(tt.site+tt.href, func(t *testing.T) {
			s, err := New(NewFetcher(), tt.site, nil, nil)
			require.NoError(t, err)

			got, err := s.resolve(tt.href)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtract(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/opportunities/roof":
			fmt.Fprint(w, `<h1 class="page-header">Roof Repair</h1>
				<table id="awardlist">
					<tr><th>#</th><th>Firm</th><th>Amt</th></tr>
					<tr><td>1</td><td>Acme</td><td>$10</td></tr>
				</table>`)
		case "/opportunities/boiler":
			fmt.Fprint(w, `<h1 class="page-header">Boiler</h1>`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	metrics := logger.NewMetrics()
	s, err := New(NewFetcher(WithLogger(logger.Nop())), server.URL, logger.Nop(), metrics)
	require.NoError(t, err)

	records, err := s.Extract(context.Background(), []record.OpportunityLink{
		{Title: "Roof_Repair", URL: "/opportunities/roof"},
		{Title: "Boiler", URL: "/opportunities/boiler"},
	})
	require.NoError(t, err)

	require.Len(t, records, 2)
	assert.Equal(t, "Roof Repair", records[0].Title)
	assert.Equal(t, []record.AwardRow{{FirmName: "Acme", AwardAmt: "$10"}}, records[0].Awards)
	assert.Equal(t, "Boiler", records[1].Title)
	assert.Empty(t, records[1].Awards)
	assert.EqualValues(t, 2, metrics.Counter("records.extracted"))
}

func TestExtract_FetchErrorAborts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, `<h1 class="page-header">Fine</h1>`)
	}))
	defer server.Close()

	s, err := New(NewFetcher(WithLogger(logger.Nop())), server.URL, nil, nil)
	require.NoError(t, err)

	records, err := s.Extract(context.Background(), []record.OpportunityLink{
		{Title: "Fine", URL: "/fine"},
		{Title: "Missing", URL: "/missing"},
		{Title: "Never_Fetched", URL: "/fine"},
	})

	assert.Nil(t, records)
	var ferr *FetchError
	require.True(t, errors.As(err, &ferr))
	assert.Equal(t, http.StatusNotFound, ferr.StatusCode)
	assert.Contains(t, err.Error(), "Missing")
}
