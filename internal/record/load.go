package record

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"
)

// DefaultPatterns are the globs searched for record files under a root.
var DefaultPatterns = []string{
	"**/*.json",
	"**/*.yaml",
	"**/*.yml",
}

// Skipped describes a record that could not be decoded.
type Skipped struct {
	File   string
	Index  int
	Reason string
}

// LoadResult is the outcome of loading one or more record files.
type LoadResult struct {
	Records []FormRecord
	Skipped []Skipped
}

// Discover returns the record files under root that match patterns, sorted.
func Discover(root string, patterns []string) ([]string, error) {
	if len(patterns) == 0 {
		patterns = DefaultPatterns
	}

	seen := make(map[string]bool)
	var files []string
	for _, pattern := range patterns {
		matches, err := doublestar.Glob(os.DirFS(root), pattern)
		if err != nil {
			return nil, fmt.Errorf("error evaluating pattern %s: %w", pattern, err)
		}
		for _, match := range matches {
			full := filepath.Join(root, match)
			info, err := os.Stat(full)
			if err != nil || info.IsDir() || seen[full] {
				continue
			}
			seen[full] = true
			files = append(files, full)
		}
	}

	sort.Strings(files)
	return files, nil
}

// LoadPath loads records from a single file or every record file under a
// directory. Individual malformed records are skipped, not fatal.
func LoadPath(path string, patterns []string) (*LoadResult, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("error reading records path: %w", err)
	}

	files := []string{path}
	if info.IsDir() {
		files, err = Discover(path, patterns)
		if err != nil {
			return nil, err
		}
	}

	result := &LoadResult{}
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return nil, fmt.Errorf("error reading %s: %w", f, err)
		}
		records, skipped, err := Decode(data, filepath.Ext(f))
		if err != nil {
			result.Skipped = append(result.Skipped, Skipped{File: f, Index: -1, Reason: err.Error()})
			continue
		}
		for i := range skipped {
			skipped[i].File = f
		}
		result.Records = append(result.Records, records...)
		result.Skipped = append(result.Skipped, skipped...)
	}
	return result, nil
}

// Decode parses a JSON or YAML document holding one record or a list of
// records. ext selects the format (".yaml"/".yml" for YAML, JSON otherwise).
// The error is only returned when the document itself cannot be parsed.
func Decode(data []byte, ext string) ([]FormRecord, []Skipped, error) {
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		converted, err := yamlToJSON(data)
		if err != nil {
			return nil, nil, err
		}
		data = converted
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, nil, nil
	}

	var raws []json.RawMessage
	if trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &raws); err != nil {
			return nil, nil, fmt.Errorf("error parsing record list: %w", err)
		}
	} else {
		raws = []json.RawMessage{trimmed}
	}

	var records []FormRecord
	var skipped []Skipped
	for i, raw := range raws {
		var r FormRecord
		if err := json.Unmarshal(raw, &r); err != nil {
			skipped = append(skipped, Skipped{Index: i, Reason: err.Error()})
			continue
		}
		records = append(records, r)
	}
	return records, skipped, nil
}

// yamlToJSON re-encodes a YAML document as JSON so records decode through a
// single code path and keep their unknown fields. Timestamps keep their
// source text.
func yamlToJSON(data []byte) ([]byte, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("error parsing yaml: %w", err)
	}
	if root.Kind == 0 {
		return nil, nil
	}
	keepTimestampText(&root)

	var doc any
	if err := root.Decode(&doc); err != nil {
		return nil, fmt.Errorf("error parsing yaml: %w", err)
	}
	out, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("error converting yaml: %w", err)
	}
	return out, nil
}

func keepTimestampText(n *yaml.Node) {
	if n.Kind == yaml.ScalarNode && n.ShortTag() == "!!timestamp" {
		n.Tag = "!!str"
	}
	for _, c := range n.Content {
		keepTimestampText(c)
	}
}

// Save writes records as an indented JSON array.
func Save(path string, records []FormRecord) error {
	if records == nil {
		records = []FormRecord{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("error marshaling records: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("error writing records: %w", err)
	}
	return nil
}
