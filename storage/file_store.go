package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"reklama5-scraper/models"
)

var _ ListingStore = (*FileStore)(nil)

// FileStore persists listings to an append-only CSV file. On open the file
// is replayed and the last row per id wins. Change rows go to a sibling
// "_changes.csv" file.
type FileStore struct {
	mem     *MemoryStore
	rows    *CSVWriter
	changes *CSVWriter
}

// NewFileStore opens or creates the store at path.
func NewFileStore(path string) (*FileStore, error) {
	mem := NewMemoryStore()
	changesPath := ChangesPath(path)

	if err := replay(path, func(f *os.File) error {
		listings, err := ReadListingsCSV(f)
		if err != nil {
			return err
		}
		for _, l := range listings {
			if l.Hash == "" {
				l.Hash = l.ComparisonHash()
			}
			mem.load(l)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	if err := replay(changesPath, func(f *os.File) error {
		rows, err := readChangesCSV(f)
		if err != nil {
			return err
		}
		for _, c := range rows {
			mem.loadChange(c)
		}
		return nil
	}); err != nil {
		return nil, err
	}

	rows, err := openCSV(path, append(append([]string{}, models.CSVHeader...), metaHeader...))
	if err != nil {
		return nil, err
	}
	changes, err := openCSV(changesPath, changeHeader)
	if err != nil {
		_ = rows.Close()
		return nil, err
	}
	return &FileStore{mem: mem, rows: rows, changes: changes}, nil
}

// ChangesPath is where a FileStore at path keeps its change rows.
func ChangesPath(path string) string {
	return strings.TrimSuffix(path, ".csv") + "_changes.csv"
}

func replay(path string, fn func(*os.File) error) error {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("file store: open %q: %w", path, err)
	}
	defer f.Close()
	if err := fn(f); err != nil {
		return fmt.Errorf("file store: load %q: %w", path, err)
	}
	return nil
}

func (s *FileStore) Get(ctx context.Context, id string) (*models.Listing, error) {
	return s.mem.Get(ctx, id)
}

func (s *FileStore) Upsert(_ context.Context, l *models.Listing, class models.Classification, now time.Time) error {
	s.mem.mu.Lock()
	defer s.mem.mu.Unlock()

	rec, added := s.mem.apply(l, class, now)
	if err := s.rows.writeRows([][]string{storedRecord(rec)}); err != nil {
		return err
	}
	if len(added) == 0 {
		return nil
	}
	rows := make([][]string, 0, len(added))
	for _, c := range added {
		rows = append(rows, changeRecord(c))
	}
	return s.changes.writeRows(rows)
}

func (s *FileStore) All(ctx context.Context) ([]*models.Listing, error) {
	return s.mem.All(ctx)
}

func (s *FileStore) RecentChanges(ctx context.Context, field string, limit int) ([]*models.ListingChange, error) {
	return s.mem.RecentChanges(ctx, field, limit)
}

func (s *FileStore) Close() error {
	return errors.Join(s.rows.Close(), s.changes.Close())
}
