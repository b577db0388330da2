// Package scraper provides HTTP fetching and HTML extraction for DASNY procurement pages.
//
// The scraper package fetches listing and opportunity pages from dasny.org and
// parses them with goquery. Listing pages are harvested for opportunity links,
// whose titles are normalized into slug keys. Opportunity pages are reduced to
// a record holding the page title, sentences mentioning estimated amounts, and
// the rows of the bid results and awards tables. Missing page sections are
// expected and yield empty values; only fetch failures are errors.
package scraper
