// Package output serializes extracted opportunity records to CSV or JSON files.
//
// The format is chosen from the output path: ".json" writes an indented JSON
// array that keeps the nested structure of each record, ".csv" writes one row
// per record with nested sections stringified as compact JSON. Without an
// output path, records go to a CSV file named after the url config. Any other
// extension is rejected before anything is written.
package output
