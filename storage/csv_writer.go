package storage

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"reklama5-scraper/models"
)

// metaHeader extends models.CSVHeader in files that back a FileStore.
var metaHeader = []string{"hash", "created_at", "updated_at", "last_seen"}

var changeHeader = []string{"id", "listing_id", "field", "old_value", "new_value", "changed_at"}

// CSVWriter appends rows to a CSV file, writing the header only when the
// file is new or empty. It is safe for concurrent use.
type CSVWriter struct {
	mu     sync.Mutex
	file   *os.File
	writer *csv.Writer
}

// NewCSVWriter opens the flat listing export at path.
func NewCSVWriter(path string) (*CSVWriter, error) {
	return openCSV(path, models.CSVHeader)
}

func openCSV(path string, header []string) (*CSVWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("csv: create output dir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("csv: open file %q: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("csv: stat %q: %w", path, err)
	}

	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := w.Write(header); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("csv: write header: %w", err)
		}
		w.Flush()
		if err := w.Error(); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("csv: write header: %w", err)
		}
	}

	return &CSVWriter{file: f, writer: w}, nil
}

// WriteListings appends one row per listing in models.CSVHeader order.
func (c *CSVWriter) WriteListings(listings []*models.Listing) error {
	rows := make([][]string, 0, len(listings))
	for _, l := range listings {
		rows = append(rows, l.CSVRecord())
	}
	return c.writeRows(rows)
}

func (c *CSVWriter) writeRows(rows [][]string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, row := range rows {
		if err := c.writer.Write(row); err != nil {
			return fmt.Errorf("csv: write row: %w", err)
		}
	}
	c.writer.Flush()
	return c.writer.Error()
}

// Close flushes and closes the underlying file.
func (c *CSVWriter) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writer.Flush()
	return c.file.Close()
}

func storedRecord(l *models.Listing) []string {
	return append(l.CSVRecord(),
		l.Hash,
		formatTime(l.CreatedAt),
		formatTime(l.UpdatedAt),
		formatTime(l.LastSeen),
	)
}

func changeRecord(c *models.ListingChange) []string {
	return []string{
		strconv.FormatInt(c.ID, 10),
		c.ListingID,
		c.Field,
		c.OldValue,
		c.NewValue,
		formatTime(c.ChangedAt),
	}
}

// ReadListingsCSV reads listings from a CSV with a header row. Columns are
// matched by name so both the flat export and FileStore files can be read;
// unknown columns are ignored.
func ReadListingsCSV(r io.Reader) ([]*models.Listing, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("csv: read header: %w", err)
	}
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[h] = i
	}
	if _, ok := idx["id"]; !ok {
		return nil, fmt.Errorf("csv: missing id column")
	}

	var out []*models.Listing
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv: read line %d: %w", line, err)
		}
		l, err := listingFromRecord(idx, rec)
		if err != nil {
			return nil, fmt.Errorf("csv: line %d: %w", line, err)
		}
		out = append(out, l)
	}
	return out, nil
}

func listingFromRecord(idx map[string]int, rec []string) (*models.Listing, error) {
	get := func(name string) string {
		i, ok := idx[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return rec[i]
	}

	l := &models.Listing{
		ID:            get("id"),
		Link:          get("link"),
		Make:          get("make"),
		Model:         get("model"),
		Fuel:          get("fuel"),
		Gearbox:       get("gearbox"),
		Body:          get("body"),
		Color:         get("color"),
		Registration:  get("registration"),
		RegUntil:      get("reg_until"),
		EmissionClass: get("emission_class"),
		Date:          get("date"),
		City:          get("city"),
		Hash:          get("hash"),
	}

	var err error
	ints := []struct {
		name string
		dst  **int
	}{
		{"year", &l.Year}, {"price", &l.Price}, {"km", &l.KM}, {"kw", &l.KW}, {"ps", &l.PS},
	}
	for _, f := range ints {
		if *f.dst, err = parseOptionalInt(get(f.name)); err != nil {
			return nil, fmt.Errorf("%s: %w", f.name, err)
		}
	}
	if v := get("promoted"); v != "" {
		if l.Promoted, err = strconv.ParseBool(v); err != nil {
			return nil, fmt.Errorf("promoted: %w", err)
		}
	}
	if l.CreatedAt, err = parseTime(get("created_at")); err != nil {
		return nil, fmt.Errorf("created_at: %w", err)
	}
	if l.UpdatedAt, err = parseTime(get("updated_at")); err != nil {
		return nil, fmt.Errorf("updated_at: %w", err)
	}
	if l.LastSeen, err = parseTime(get("last_seen")); err != nil {
		return nil, fmt.Errorf("last_seen: %w", err)
	}
	return l, nil
}

func readChangesCSV(r io.Reader) ([]*models.ListingChange, error) {
	cr := csv.NewReader(r)
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("csv: read changes: %w", err)
	}
	var out []*models.ListingChange
	for i, rec := range rows {
		if i == 0 || len(rec) < len(changeHeader) {
			continue
		}
		id, err := strconv.ParseInt(rec[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("csv: change line %d: %w", i+1, err)
		}
		at, err := parseTime(rec[5])
		if err != nil {
			return nil, fmt.Errorf("csv: change line %d: %w", i+1, err)
		}
		out = append(out, &models.ListingChange{
			ID: id, ListingID: rec[1], Field: rec[2], OldValue: rec[3], NewValue: rec[4], ChangedAt: at,
		})
	}
	return out, nil
}

func parseOptionalInt(s string) (*int, error) {
	if s == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, s)
}
