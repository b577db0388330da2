package urlconfig

import (
	"sort"

	"github.com/pfrederiksen/dasny-bids/internal/record"
)

// DiffResult contains the differences between two harvests
type DiffResult struct {
	Added   []record.OpportunityLink
	Changed []record.OpportunityLink // known title, new URL
	Removed []record.OpportunityLink
}

// Diff compares a freshly harvested mapping against the previous one.
// Each slice of the result is sorted by title.
func Diff(previous []record.OpportunityLink, current map[string]string) *DiffResult {
	result := &DiffResult{
		Added:   make([]record.OpportunityLink, 0),
		Changed: make([]record.OpportunityLink, 0),
		Removed: make([]record.OpportunityLink, 0),
	}

	known := make(map[string]string, len(previous))
	for _, link := range previous {
		known[link.Title] = link.URL
	}

	for title, url := range current {
		prevURL, exists := known[title]
		switch {
		case !exists:
			result.Added = append(result.Added, record.OpportunityLink{Title: title, URL: url})
		case prevURL != url:
			result.Changed = append(result.Changed, record.OpportunityLink{Title: title, URL: url})
		}
	}

	for title, url := range known {
		if _, exists := current[title]; !exists {
			result.Removed = append(result.Removed, record.OpportunityLink{Title: title, URL: url})
		}
	}

	sortLinks(result.Added)
	sortLinks(result.Changed)
	sortLinks(result.Removed)
	return result
}

func sortLinks(links []record.OpportunityLink) {
	sort.Slice(links, func(i, j int) bool {
		return links[i].Title < links[j].Title
	})
}
