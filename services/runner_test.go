package services

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reklama5-scraper/models"
	apperrors "reklama5-scraper/pkg/errors"
	"reklama5-scraper/storage"
)

type sliceExporter struct {
	rows []*models.Listing
	err  error
}

func (e *sliceExporter) WriteListings(ls []*models.Listing) error {
	e.rows = append(e.rows, ls...)
	return e.err
}

func newTestRunner(t *testing.T, src PageSource, store storage.ListingStore, enrich bool) *Runner {
	t.Helper()
	p := newTestPaginator(src)
	var e *Enricher
	if enrich {
		var err error
		e, err = NewEnricher(&detailFetcher{}, EnrichPolicy{Workers: 2}, testLogger())
		require.NoError(t, err)
		e.Sleep = noSleep
	}
	clock := testNow
	r := NewRunner(
		Query{URLTemplate: testTemplate, SearchTerm: "golf", Days: 1},
		p, e, newTestPersister(store, &clock), store, NewAggregator(500, testLogger()), testLogger(),
	)
	return r
}

func TestRunnerTwoRuns(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	aggPath := filepath.Join(t.TempDir(), "agg.json")

	first := newPageSource(map[int][]*models.Listing{
		1: {
			car("A", "2024-01-05 10:00", models.Int(4000)),
			car("B", "2024-01-05 09:00", models.Int(9000)),
			car("A", "2024-01-05 10:00", models.Int(4000)),
		},
	})
	r := newTestRunner(t, first, store, true)
	r.AggregatePath = aggPath
	exp := &sliceExporter{}
	r.Exporter = exp

	report, err := r.Run(ctx)
	require.NoError(t, err)
	s := report.Summary
	assert.Equal(t, 2, s.Pages)
	assert.Equal(t, 3, s.Found)
	assert.Equal(t, 1, s.Duplicates)
	assert.Equal(t, 2, s.New)
	assert.Zero(t, s.DetailFailed)
	assert.Nil(t, s.Err)
	assert.Len(t, exp.rows, 2)

	a, err := store.Get(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, "Дизел", a.Fuel)

	second := newPageSource(map[int][]*models.Listing{
		1: {
			car("A", "2024-01-05 10:00", models.Int(4500)),
			car("B", "2024-01-05 09:00", models.Int(9000)),
		},
	})
	r = newTestRunner(t, second, store, false)
	r.AggregatePath = aggPath

	report, err = r.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Summary.Changed)
	assert.Equal(t, 1, report.Summary.Unchanged)
	require.Len(t, report.RecentChanges, 1)
	assert.Equal(t, "4500", report.RecentChanges[0].NewValue)

	a, err = store.Get(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, "Дизел", a.Fuel, "detail fields survive a run without details")

	data, err := os.ReadFile(aggPath)
	require.NoError(t, err)
	var agg map[string]map[string]any
	require.NoError(t, json.Unmarshal(data, &agg))
	assert.Equal(t, 2.0, agg["Volkswagen Golf"]["count_total"])
	assert.Equal(t, 6750.0, agg["Volkswagen Golf"]["avg_price"])
}

func TestRunnerPersistsPartialResultsOnPageError(t *testing.T) {
	store := storage.NewMemoryStore()
	src := newPageSource(map[int][]*models.Listing{
		1: {car("A", "2024-01-05 10:00", models.Int(4000))},
	})
	src.errs[2] = apperrors.NewParse("page 2", "no listing rows", nil)

	report, err := newTestRunner(t, src, store, false).Run(context.Background())
	assert.True(t, apperrors.IsParse(err))
	require.NotNil(t, report)
	assert.Equal(t, err, report.Summary.Err)
	assert.Equal(t, 1, report.Summary.New)

	all, err := store.All(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 1)
	assert.Contains(t, report.Aggregates, "Volkswagen Golf")
	assert.NotEmpty(t, report.ByYear)
}

func TestRunnerStopsOnStoreError(t *testing.T) {
	store := &failingStore{MemoryStore: storage.NewMemoryStore(), upsertErr: errors.New("disk full")}
	src := newPageSource(map[int][]*models.Listing{
		1: {car("A", "2024-01-05 10:00", models.Int(4000))},
	})
	r := newTestRunner(t, src, store, false)
	r.AggregatePath = filepath.Join(t.TempDir(), "agg.json")

	report, err := r.Run(context.Background())
	assert.True(t, apperrors.IsStore(err))
	assert.Nil(t, report.Aggregates)
	_, statErr := os.Stat(r.AggregatePath)
	assert.True(t, os.IsNotExist(statErr))
}

func TestRunnerEmptyRun(t *testing.T) {
	report, err := newTestRunner(t, newPageSource(nil), storage.NewMemoryStore(), true).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Summary.Pages)
	assert.Zero(t, report.Summary.Found)
	assert.Empty(t, report.Aggregates)
	assert.Less(t, report.Summary.Elapsed, time.Minute)
}
