package models

import "time"

// AggregateEntry is the per make/model rollup. Only the count and average
// fields are exported to JSON.
type AggregateEntry struct {
	Make           string   `json:"-"`
	Model          string   `json:"-"`
	CountTotal     int      `json:"count_total"`
	CountWithPrice int      `json:"count_with_price"`
	AvgPrice       *float64 `json:"avg_price"`

	CountBelowMin     int  `json:"-"`
	CountWithoutPrice int  `json:"-"`
	MinPrice          *int `json:"-"`
	MaxPrice          *int `json:"-"`

	sum int64
}

// AddPrice folds one listing price into the entry.
func (e *AggregateEntry) AddPrice(price *int, minPrice int) {
	e.CountTotal++
	switch {
	case price == nil:
		e.CountWithoutPrice++
	case *price < minPrice:
		e.CountBelowMin++
	default:
		e.CountWithPrice++
		e.sum += int64(*price)
		if e.MinPrice == nil || *price < *e.MinPrice {
			e.MinPrice = Int(*price)
		}
		if e.MaxPrice == nil || *price > *e.MaxPrice {
			e.MaxPrice = Int(*price)
		}
		avg := float64(e.sum) / float64(e.CountWithPrice)
		e.AvgPrice = &avg
	}
}

// YearAggregate is the rollup for one make, model and year. Year is nil for
// listings without a known year.
type YearAggregate struct {
	AggregateEntry
	Year *int
}

// RunSummary is reported at the end of every run, failed or not.
type RunSummary struct {
	Pages        int
	Found        int
	Duplicates   int
	New          int
	Changed      int
	Unchanged    int
	Skipped      int
	DetailFailed int
	Elapsed      time.Duration
	Err          error
}

// Persisted is the number of listings actually written.
func (s *RunSummary) Persisted() int {
	return s.New + s.Changed + s.Unchanged - s.Skipped
}

// Report is everything printed after a run.
type Report struct {
	Summary       *RunSummary
	Aggregates    map[string]*AggregateEntry
	ByYear        []*YearAggregate
	MinPrice      int
	RecentChanges []*ListingChange
}
