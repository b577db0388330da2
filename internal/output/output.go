package output

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pfrederiksen/dasny-bids/internal/record"
)

// Format specifies the output format
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// DefaultDir is the directory default CSV output is written under
const DefaultDir = "output"

// Columns is the CSV header
var Columns = []string{"title", "estimated_numbers", "bid_results", "awards"}

// UnsupportedFormatError reports an output path with neither a .csv nor a .json extension
type UnsupportedFormatError struct {
	Path string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported file format: %s (use .csv or .json extension)", e.Path)
}

// Target is a resolved output file
type Target struct {
	Path   string
	Format Format
}

// ResolveTarget chooses the output file and format. An empty outputPath
// selects CSV at <outputDir>/csv/<config name>.csv, where the config name is
// the base name of configPath up to its first dot.
func ResolveTarget(outputPath, configPath, outputDir string) (Target, error) {
	if outputPath == "" {
		name, _, _ := strings.Cut(filepath.Base(configPath), ".")
		if outputDir == "" {
			outputDir = DefaultDir
		}
		return Target{Path: filepath.Join(outputDir, "csv", name+".csv"), Format: FormatCSV}, nil
	}

	switch {
	case strings.HasSuffix(outputPath, ".json"):
		return Target{Path: outputPath, Format: FormatJSON}, nil
	case strings.HasSuffix(outputPath, ".csv"):
		return Target{Path: outputPath, Format: FormatCSV}, nil
	default:
		return Target{}, &UnsupportedFormatError{Path: outputPath}
	}
}

// WriteFile writes records to the target, creating parent directories
func WriteFile(target Target, records []record.OpportunityRecord) error {
	if target.Format != FormatCSV && target.Format != FormatJSON {
		return &UnsupportedFormatError{Path: target.Path}
	}

	if dir := filepath.Dir(target.Path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}
	}

	f, err := os.Create(target.Path)
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}

	if err := Write(f, records, target.Format); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing output file: %w", err)
	}
	return nil
}

// Write writes records in the specified format
func Write(w io.Writer, records []record.OpportunityRecord, format Format) error {
	switch format {
	case FormatJSON:
		return WriteJSON(w, records)
	case FormatCSV:
		return WriteCSV(w, records)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

// WriteJSON writes records as an indented JSON array with non-ASCII and HTML
// characters left unescaped
func WriteJSON(w io.Writer, records []record.OpportunityRecord) error {
	if records == nil {
		records = make([]record.OpportunityRecord, 0)
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "    ")
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(records); err != nil {
		return fmt.Errorf("encoding json: %w", err)
	}
	return nil
}

// WriteCSV writes a header and one row per record. Nested sections are
// stringified, so the CSV cannot be parsed back into records.
func WriteCSV(w io.Writer, records []record.OpportunityRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}

	for _, rec := range records {
		row, err := csvRow(rec)
		if err != nil {
			return err
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing csv row: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("writing csv: %w", err)
	}
	return nil
}

func csvRow(rec record.OpportunityRecord) ([]string, error) {
	row := []string{rec.Title}
	for _, section := range []interface{}{rec.EstimatedNumbers, rec.BidResults, rec.Awards} {
		text, err := stringify(section)
		if err != nil {
			return nil, err
		}
		row = append(row, text)
	}
	return row, nil
}

// stringify renders v as compact JSON text
func stringify(v interface{}) (string, error) {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(v); err != nil {
		return "", fmt.Errorf("stringifying field: %w", err)
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}
