// Package urlconfig reads and writes the YAML files that map opportunity slug
// titles to their relative page URLs.
//
// A harvest run writes one file per opportunity category (for example
// urls/bid-results-and-awards.yaml); an extract run reads it back. The file is a
// flat YAML mapping:
//
//	Request_for_Proposal-Roof_Repair: /opportunities/rfp-bid-results-and-awards/request-proposal-roof-repair
package urlconfig
