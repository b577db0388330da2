// Package cli implements the command-line interface for dasny-bids.
//
// The harvest command walks the DASNY opportunity listing pages of a category
// and saves the discovered title to URL mapping as YAML. The extract command
// reads such a mapping, scrapes every opportunity page it names and writes the
// resulting records as CSV or JSON. Settings shared by both commands come from
// the config package.
package cli
