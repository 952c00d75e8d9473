package models

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the canonical form of Listing.Date.
const DateLayout = "2006-01-02 15:04"

// Listing is one observed advertisement. Unset numerics are nil and unset
// strings are empty.
type Listing struct {
	ID    string
	Link  string
	Make  string
	Model string
	Year  *int
	Price *int
	KM    *int
	KW    *int
	PS    *int

	Fuel          string
	Gearbox       string
	Body          string
	Color         string
	Registration  string
	RegUntil      string
	EmissionClass string

	Date     string
	City     string
	Promoted bool

	Hash      string
	CreatedAt time.Time
	UpdatedAt time.Time
	LastSeen  time.Time
}

// ComparisonFields decide changed vs unchanged. Detail-only fields are absent
// on purpose: a run without detail capture must not look like a change.
var ComparisonFields = []string{"link", "year", "price", "km", "kw", "ps", "date", "city"}

// DetailOnlyFields are filled exclusively from the detail page.
var DetailOnlyFields = []string{"fuel", "gearbox", "body", "color", "registration", "reg_until", "emission_class"}

// CSVHeader is the flat export column order.
var CSVHeader = []string{
	"id", "link", "make", "model", "year", "price", "km", "kw", "ps",
	"fuel", "gearbox", "body", "color", "registration", "reg_until",
	"emission_class", "date", "city", "promoted",
}

// Int returns a pointer to v.
func Int(v int) *int { return &v }

// FieldValue returns the canonical text of a named attribute, "" when unset.
func (l *Listing) FieldValue(name string) string {
	switch name {
	case "id":
		return l.ID
	case "link":
		return l.Link
	case "make":
		return l.Make
	case "model":
		return l.Model
	case "year":
		return formatInt(l.Year)
	case "price":
		return formatInt(l.Price)
	case "km":
		return formatInt(l.KM)
	case "kw":
		return formatInt(l.KW)
	case "ps":
		return formatInt(l.PS)
	case "fuel":
		return l.Fuel
	case "gearbox":
		return l.Gearbox
	case "body":
		return l.Body
	case "color":
		return l.Color
	case "registration":
		return l.Registration
	case "reg_until":
		return l.RegUntil
	case "emission_class":
		return l.EmissionClass
	case "date":
		return l.Date
	case "city":
		return l.City
	case "promoted":
		return strconv.FormatBool(l.Promoted)
	}
	return ""
}

// ComparisonHash is the SHA-256 digest over the comparison set.
func (l *Listing) ComparisonHash() string {
	var b strings.Builder
	for _, f := range ComparisonFields {
		b.WriteString(f)
		b.WriteByte('=')
		b.WriteString(l.FieldValue(f))
		b.WriteByte('\n')
	}
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// PostedAt parses Date. ok is false when Date is unset or not canonical.
func (l *Listing) PostedAt() (time.Time, bool) {
	if l.Date == "" {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation(DateLayout, l.Date, time.Local)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Key groups listings for aggregation.
func (l *Listing) Key() string {
	return strings.TrimSpace(l.Make + " " + l.Model)
}

// CSVRecord renders the listing in CSVHeader order.
func (l *Listing) CSVRecord() []string {
	rec := make([]string, len(CSVHeader))
	for i, f := range CSVHeader {
		rec[i] = l.FieldValue(f)
	}
	return rec
}

// Clone returns a copy that shares no pointers with l.
func (l *Listing) Clone() *Listing {
	c := *l
	c.Year = clonePtr(l.Year)
	c.Price = clonePtr(l.Price)
	c.KM = clonePtr(l.KM)
	c.KW = clonePtr(l.KW)
	c.PS = clonePtr(l.PS)
	return &c
}

// Details holds the attributes read from a detail page.
type Details struct {
	Make          string
	Model         string
	Year          *int
	KM            *int
	KW            *int
	PS            *int
	Fuel          string
	Gearbox       string
	Body          string
	Color         string
	Registration  string
	RegUntil      string
	EmissionClass string
}

// IsEmpty reports whether no attribute was found.
func (d Details) IsEmpty() bool {
	return d == Details{}
}

// ApplyDetails merges non-empty detail values into the listing.
func (l *Listing) ApplyDetails(d Details) {
	setString(&l.Make, d.Make)
	setString(&l.Model, d.Model)
	setString(&l.Fuel, d.Fuel)
	setString(&l.Gearbox, d.Gearbox)
	setString(&l.Body, d.Body)
	setString(&l.Color, d.Color)
	setString(&l.Registration, d.Registration)
	setString(&l.RegUntil, d.RegUntil)
	setString(&l.EmissionClass, d.EmissionClass)
	if d.Year != nil {
		l.Year = clonePtr(d.Year)
	}
	if d.KM != nil {
		l.KM = clonePtr(d.KM)
	}
	if d.KW != nil {
		l.KW = clonePtr(d.KW)
	}
	if d.PS != nil {
		l.PS = clonePtr(d.PS)
	}
}

func setString(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}

func formatInt(p *int) string {
	if p == nil {
		return ""
	}
	return strconv.Itoa(*p)
}

func clonePtr(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// CopyField copies one named attribute from src.
func (l *Listing) CopyField(name string, src *Listing) {
	switch name {
	case "link":
		l.Link = src.Link
	case "make":
		l.Make = src.Make
	case "model":
		l.Model = src.Model
	case "year":
		l.Year = clonePtr(src.Year)
	case "price":
		l.Price = clonePtr(src.Price)
	case "km":
		l.KM = clonePtr(src.KM)
	case "kw":
		l.KW = clonePtr(src.KW)
	case "ps":
		l.PS = clonePtr(src.PS)
	case "fuel":
		l.Fuel = src.Fuel
	case "gearbox":
		l.Gearbox = src.Gearbox
	case "body":
		l.Body = src.Body
	case "color":
		l.Color = src.Color
	case "registration":
		l.Registration = src.Registration
	case "reg_until":
		l.RegUntil = src.RegUntil
	case "emission_class":
		l.EmissionClass = src.EmissionClass
	case "date":
		l.Date = src.Date
	case "city":
		l.City = src.City
	case "promoted":
		l.Promoted = src.Promoted
	}
}
