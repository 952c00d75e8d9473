package services

import (
	"strings"
	"time"
	"unicode"

	"reklama5-scraper/models"
)

// Classifier compares an observed listing with its stored counterpart over
// the comparison set.
type Classifier struct {
	// DateDriftTolerance treats dates this close together as equal.
	DateDriftTolerance time.Duration
}

// NewClassifier returns a Classifier comparing dates exactly.
func NewClassifier() *Classifier { return &Classifier{} }

// overviewOptional are comparison fields that result pages often omit. When
// unset in observed they carry no information and never count as a change.
var overviewOptional = map[string]bool{"km": true, "kw": true, "ps": true}

// Classify reports new when stored is nil, changed with the differing fields
// in comparison-set order, or unchanged. Any other field that goes unset, such
// as a price replaced by "По договор", is a change.
func (c *Classifier) Classify(observed, stored *models.Listing) models.Classification {
	if stored == nil {
		return models.Classification{Status: models.StatusNew}
	}

	var changes []models.FieldChange
	for _, f := range models.ComparisonFields {
		newVal := observed.FieldValue(f)
		if newVal == "" && overviewOptional[f] {
			continue
		}
		oldVal := stored.FieldValue(f)
		if c.equal(f, oldVal, newVal) {
			continue
		}
		changes = append(changes, models.FieldChange{Field: f, Old: oldVal, New: newVal})
	}

	if len(changes) == 0 {
		return models.Classification{Status: models.StatusUnchanged}
	}
	return models.Classification{Status: models.StatusChanged, Changes: changes}
}

func (c *Classifier) equal(field, a, b string) bool {
	switch field {
	case "link", "city":
		return normalizeSpace(a) == normalizeSpace(b)
	case "date":
		if a == b {
			return true
		}
		if c.DateDriftTolerance <= 0 {
			return false
		}
		ta, errA := time.Parse(models.DateLayout, a)
		tb, errB := time.Parse(models.DateLayout, b)
		if errA != nil || errB != nil {
			return false
		}
		d := ta.Sub(tb)
		if d < 0 {
			d = -d
		}
		return d <= c.DateDriftTolerance
	default:
		return a == b
	}
}

// Merge builds the record to persist. It starts from stored, takes the
// changed comparison fields and any freshly fetched detail fields from
// observed, and recomputes the hash.
func Merge(stored, observed *models.Listing, class models.Classification) *models.Listing {
	if stored == nil {
		m := observed.Clone()
		m.Hash = m.ComparisonHash()
		return m
	}

	m := stored.Clone()
	for _, ch := range class.Changes {
		m.CopyField(ch.Field, observed)
	}
	for _, f := range models.DetailOnlyFields {
		if observed.FieldValue(f) != "" {
			m.CopyField(f, observed)
		}
	}
	if class.Status == models.StatusChanged {
		for _, f := range []string{"make", "model", "promoted"} {
			if observed.FieldValue(f) != "" {
				m.CopyField(f, observed)
			}
		}
	}
	m.Hash = m.ComparisonHash()
	return m
}

func normalizeSpace(s string) string {
	return strings.Join(strings.FieldsFunc(s, unicode.IsSpace), " ")
}
