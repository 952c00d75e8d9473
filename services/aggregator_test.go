package services

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reklama5-scraper/models"
)

func TestAggregateMinPrice(t *testing.T) {
	a := NewAggregator(5000, testLogger())
	got := a.Aggregate([]*models.Listing{
		car("1", "", models.Int(3000)),
		car("2", "", models.Int(8000)),
		car("3", "", nil),
	})

	require.Contains(t, got, "Volkswagen Golf")
	e := got["Volkswagen Golf"]
	assert.Equal(t, 3, e.CountTotal)
	assert.Equal(t, 1, e.CountWithPrice)
	require.NotNil(t, e.AvgPrice)
	assert.Equal(t, 8000.0, *e.AvgPrice)
}

func TestNewAggregatorMinPrice(t *testing.T) {
	assert.Equal(t, DefaultMinPrice, NewAggregator(-1, testLogger()).MinPrice)
	assert.Equal(t, 0, NewAggregator(0, testLogger()).MinPrice)
	assert.Equal(t, 1500, NewAggregator(1500, testLogger()).MinPrice)
}

func TestAggregateZeroMinPriceCountsEveryPrice(t *testing.T) {
	a := NewAggregator(0, testLogger())
	got := a.Aggregate([]*models.Listing{
		car("1", "", models.Int(300)),
		car("2", "", models.Int(700)),
	})

	e := got["Volkswagen Golf"]
	require.NotNil(t, e)
	assert.Equal(t, 2, e.CountWithPrice)
	assert.Zero(t, e.CountBelowMin)
	require.NotNil(t, e.AvgPrice)
	assert.Equal(t, 500.0, *e.AvgPrice)
}

func TestAggregateWithoutQualifyingPrice(t *testing.T) {
	a := NewAggregator(DefaultMinPrice, testLogger())

	l := car("1", "", models.Int(100))
	l.Make, l.Model = "Zastava", ""
	got := a.Aggregate([]*models.Listing{l})

	require.Contains(t, got, "Zastava")
	assert.Equal(t, 1, got["Zastava"].CountTotal)
	assert.Zero(t, got["Zastava"].CountWithPrice)
	assert.Nil(t, got["Zastava"].AvgPrice)
}

func TestAggregateIsDeterministic(t *testing.T) {
	listings := []*models.Listing{
		car("1", "", models.Int(5000)),
		car("2", "", models.Int(7000)),
		{ID: "3", Make: "Audi", Model: "A4", Price: models.Int(12000)},
	}
	a := NewAggregator(500, testLogger())
	first := a.Aggregate(listings)
	second := a.Aggregate(listings)
	assert.Equal(t, first, second)
	assert.Equal(t, 6000.0, *first["Volkswagen Golf"].AvgPrice)

	ranked := Ranked(first)
	require.Len(t, ranked, 2)
	assert.Equal(t, "Volkswagen Golf", ranked[0].Key)
	assert.Equal(t, "Audi A4", ranked[1].Key)
}

func TestAggregateByYear(t *testing.T) {
	withYear := func(id string, year *int, price *int) *models.Listing {
		l := car(id, "", price)
		l.Year = year
		return l
	}

	tests := []struct {
		name     string
		minPrice int
		listings []*models.Listing
		want     []models.YearAggregate
	}{
		{
			name:     "groups by year with low prices excluded from the average",
			minPrice: 1500,
			listings: []*models.Listing{
				withYear("1", models.Int(2010), nil),
				withYear("2", models.Int(2010), models.Int(900)),
				withYear("3", models.Int(2011), models.Int(2200)),
				withYear("4", nil, models.Int(2300)),
			},
			want: []models.YearAggregate{
				{Year: models.Int(2010), AggregateEntry: models.AggregateEntry{CountTotal: 2, CountBelowMin: 1, CountWithoutPrice: 1}},
				{Year: models.Int(2011), AggregateEntry: models.AggregateEntry{CountTotal: 1, CountWithPrice: 1}},
				{AggregateEntry: models.AggregateEntry{CountTotal: 1, CountWithPrice: 1}},
			},
		},
		{
			name:     "years sort ascending within a model",
			minPrice: 0,
			listings: []*models.Listing{
				withYear("1", models.Int(2015), models.Int(9000)),
				withYear("2", models.Int(2008), models.Int(3000)),
				withYear("3", models.Int(2015), models.Int(11000)),
			},
			want: []models.YearAggregate{
				{Year: models.Int(2008), AggregateEntry: models.AggregateEntry{CountTotal: 1, CountWithPrice: 1}},
				{Year: models.Int(2015), AggregateEntry: models.AggregateEntry{CountTotal: 2, CountWithPrice: 2}},
			},
		},
		{
			name:     "no listings",
			listings: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewAggregator(tt.minPrice, testLogger()).AggregateByYear(tt.listings)
			require.Len(t, got, len(tt.want))
			for i, w := range tt.want {
				g := got[i]
				assert.Equal(t, "Volkswagen", g.Make)
				assert.Equal(t, "Golf", g.Model)
				assert.Equal(t, w.Year, g.Year)
				assert.Equal(t, w.CountTotal, g.CountTotal)
				assert.Equal(t, w.CountWithPrice, g.CountWithPrice)
				assert.Equal(t, w.CountBelowMin, g.CountBelowMin)
				assert.Equal(t, w.CountWithoutPrice, g.CountWithoutPrice)
			}
		})
	}
}

func TestAggregateByYearAverages(t *testing.T) {
	l1 := car("1", "", models.Int(9000))
	l1.Year = models.Int(2015)
	l2 := car("2", "", models.Int(11000))
	l2.Year = models.Int(2015)
	l3 := &models.Listing{ID: "3", Make: "Audi", Model: "A4", Year: models.Int(2015), Price: models.Int(400)}

	got := NewAggregator(500, testLogger()).AggregateByYear([]*models.Listing{l1, l2, l3})

	require.Len(t, got, 2)
	assert.Equal(t, "Audi", got[0].Make)
	assert.Nil(t, got[0].AvgPrice)
	require.NotNil(t, got[1].AvgPrice)
	assert.Equal(t, 10000.0, *got[1].AvgPrice)
}

func TestReporterPrint(t *testing.T) {
	avg := 12345.0
	var buf bytes.Buffer
	NewReporter(&buf).Print(&models.Report{
		Summary:  &models.RunSummary{Pages: 3, Found: 1200, New: 2, Changed: 1, Elapsed: 1500 * time.Millisecond},
		MinPrice: 500,
		Aggregates: map[string]*models.AggregateEntry{
			"Volkswagen Golf": {Make: "Volkswagen", Model: "Golf", CountTotal: 2, CountWithPrice: 1, AvgPrice: &avg},
		},
		ByYear: []*models.YearAggregate{
			{Year: models.Int(2014), AggregateEntry: models.AggregateEntry{Make: "Volkswagen", Model: "Golf", CountTotal: 2, AvgPrice: &avg}},
		},
		RecentChanges: []*models.ListingChange{
			{ListingID: "5551", Field: "price", OldValue: "4000", NewValue: "4500", ChangedAt: time.Now()},
		},
	})

	out := buf.String()
	assert.Contains(t, out, "1,200")
	assert.Contains(t, out, "Volkswagen Golf")
	assert.Contains(t, out, "12,345 €")
	assert.Contains(t, out, "Average Price by Model Year")
	assert.Contains(t, out, "2014")
	assert.Contains(t, out, "5551")
	assert.Contains(t, out, "1.5s")
}
