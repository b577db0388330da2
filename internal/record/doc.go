// Package record provides the data model for DASNY procurement opportunities.
//
// The record package defines the links harvested from listing pages and the
// structured records extracted from individual opportunity pages: the page
// title, sentences mentioning estimated amounts, and the bid-result and award
// table rows. Records are independent of one another and carry raw text only;
// currency amounts are never parsed.
package record
