package services

import (
	"sort"

	"reklama5-scraper/models"
	"reklama5-scraper/utils"
)

// DefaultMinPrice is the lowest price counted towards averages.
const DefaultMinPrice = 500

// Aggregator rolls listings up per make and model.
type Aggregator struct {
	MinPrice int
	logger   *utils.Logger
}

// NewAggregator creates an Aggregator. A negative minPrice means
// DefaultMinPrice; zero counts every price.
func NewAggregator(minPrice int, logger *utils.Logger) *Aggregator {
	if minPrice < 0 {
		minPrice = DefaultMinPrice
	}
	return &Aggregator{MinPrice: minPrice, logger: logger}
}

// Aggregate groups listings by their make/model key. Prices below MinPrice
// count towards the total only.
func (a *Aggregator) Aggregate(listings []*models.Listing) map[string]*models.AggregateEntry {
	out := make(map[string]*models.AggregateEntry)
	for _, l := range listings {
		key := l.Key()
		e, ok := out[key]
		if !ok {
			e = &models.AggregateEntry{Make: l.Make, Model: l.Model}
			out[key] = e
		}
		e.AddPrice(l.Price, a.MinPrice)
	}
	a.logger.Info("[aggregator] %d listings in %d make/model groups (min price %d)",
		len(listings), len(out), a.MinPrice)
	return out
}

// AggregateByYear groups listings by make, model and year, ordered by make,
// model, then year with unknown years last. The MinPrice rule is the same as
// in Aggregate.
func (a *Aggregator) AggregateByYear(listings []*models.Listing) []*models.YearAggregate {
	type yearKey struct {
		key  string
		year int
		ok   bool
	}
	index := make(map[yearKey]*models.YearAggregate)
	var out []*models.YearAggregate
	for _, l := range listings {
		k := yearKey{key: l.Key()}
		if l.Year != nil {
			k.year, k.ok = *l.Year, true
		}
		g, exists := index[k]
		if !exists {
			g = &models.YearAggregate{AggregateEntry: models.AggregateEntry{Make: l.Make, Model: l.Model}}
			if k.ok {
				g.Year = models.Int(k.year)
			}
			index[k] = g
			out = append(out, g)
		}
		g.AddPrice(l.Price, a.MinPrice)
	}

	sort.Slice(out, func(i, j int) bool {
		gi, gj := out[i], out[j]
		if gi.Make != gj.Make {
			return gi.Make < gj.Make
		}
		if gi.Model != gj.Model {
			return gi.Model < gj.Model
		}
		if (gi.Year == nil) != (gj.Year == nil) {
			return gj.Year == nil
		}
		return gi.Year != nil && *gi.Year < *gj.Year
	})
	a.logger.Info("[aggregator] %d make/model/year groups", len(out))
	return out
}

// RankedKey is one aggregate with its key.
type RankedKey struct {
	Key   string
	Entry *models.AggregateEntry
}

// Ranked orders entries by count descending, then key ascending.
func Ranked(entries map[string]*models.AggregateEntry) []RankedKey {
	out := make([]RankedKey, 0, len(entries))
	for k, e := range entries {
		out = append(out, RankedKey{Key: k, Entry: e})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Entry.CountTotal != out[j].Entry.CountTotal {
			return out[i].Entry.CountTotal > out[j].Entry.CountTotal
		}
		return out[i].Key < out[j].Key
	})
	return out
}
