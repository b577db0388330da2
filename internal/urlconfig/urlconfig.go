package urlconfig

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pfrederiksen/dasny-bids/internal/logger"
	"github.com/pfrederiksen/dasny-bids/internal/record"
	"gopkg.in/yaml.v3"
)

// Ext is the extension of mapping files
const Ext = ".yaml"

// ConfigReadError reports a mapping file that is missing or malformed
type ConfigReadError struct {
	Path string
	Err  error
}

func (e *ConfigReadError) Error() string {
	return fmt.Sprintf("reading url config %s: %v", e.Path, e.Err)
}

func (e *ConfigReadError) Unwrap() error {
	return e.Err
}

var errNotMapping = errors.New("expected a mapping of titles to urls")

// Read parses the mapping file at path and returns its links in file order
func Read(path string) ([]record.OpportunityLink, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigReadError{Path: path, Err: err}
	}

	links, err := parse(data)
	if err != nil {
		return nil, &ConfigReadError{Path: path, Err: err}
	}
	return links, nil
}

// Load reads the mapping file at path. Read failures are logged and reported
// as a nil result, which callers must check for.
func Load(path string, log *logger.Logger) []record.OpportunityLink {
	links, err := Read(path)
	if err != nil {
		log.Error("Error reading url config", logger.Fields{"path": path}, err)
		return nil
	}
	return links
}

func parse(data []byte) ([]record.OpportunityLink, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing yaml: %w", err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, errors.New("empty document")
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, errNotMapping
	}

	links := make([]record.OpportunityLink, 0, len(root.Content)/2)
	seen := make(map[string]int, len(root.Content)/2)
	for i := 0; i+1 < len(root.Content); i += 2 {
		key, value := root.Content[i], root.Content[i+1]
		if key.Kind != yaml.ScalarNode || value.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("line %d: %w", key.Line, errNotMapping)
		}
		if line, ok := seen[key.Value]; ok {
			return nil, fmt.Errorf("line %d: title %q already defined at line %d", key.Line, key.Value, line)
		}
		seen[key.Value] = key.Line
		// a key without a value decodes as a null scalar
		if value.Tag == "!!null" || strings.TrimSpace(value.Value) == "" {
			return nil, fmt.Errorf("line %d: no url for title %q", key.Line, key.Value)
		}
		links = append(links, record.OpportunityLink{Title: key.Value, URL: value.Value})
	}
	return links, nil
}

// Path returns the mapping file path for category inside dir
func Path(dir, category string) string {
	return filepath.Join(dir, category+Ext)
}

// Save writes links as the mapping file for category inside dir, creating dir
// if needed, and returns the file path. Keys are written in sorted order.
func Save(dir, category string, links map[string]string) (string, error) {
	path := Path(dir, category)

	data, err := yaml.Marshal(links)
	if err != nil {
		return "", fmt.Errorf("encoding url config: %w", err)
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating url config directory: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return "", fmt.Errorf("writing url config: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("writing url config: %w", err)
	}

	return path, nil
}
