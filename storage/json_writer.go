package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"reklama5-scraper/models"
)

// WriteAggregatesJSON writes the make/model rollup to path, replacing any
// previous file. Keys come out sorted.
func WriteAggregatesJSON(path string, entries map[string]*models.AggregateEntry) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("json: create output dir: %w", err)
	}
	if entries == nil {
		entries = map[string]*models.AggregateEntry{}
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("json: marshal aggregates: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("json: write %q: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("json: rename %q: %w", tmp, err)
	}
	return nil
}
