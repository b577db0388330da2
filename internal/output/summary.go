package output

import (
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pfrederiksen/dasny-bids/internal/record"
)

// RenderSummary writes a table with one line per record and a totals footer
func RenderSummary(w io.Writer, records []record.OpportunityRecord) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)

	t.AppendHeader(table.Row{"#", "Title", "Estimates", "Bids", "Awards", "Awarded To"})

	var estimates, bids, awards int
	for i, rec := range records {
		awardedTo := "-"
		if len(rec.Awards) > 0 {
			awardedTo = rec.Awards[0].FirmName
		}

		t.AppendRow(table.Row{
			i + 1,
			rec.Title,
			len(rec.EstimatedNumbers),
			len(rec.BidResults),
			len(rec.Awards),
			awardedTo,
		})

		estimates += len(rec.EstimatedNumbers)
		bids += len(rec.BidResults)
		awards += len(rec.Awards)
	}

	t.AppendFooter(table.Row{"", "Total", estimates, bids, awards, ""})
	t.Render()
}
