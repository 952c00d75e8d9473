package reklama5

import (
	"io"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"reklama5-scraper/models"
	apperrors "reklama5-scraper/pkg/errors"
)

const (
	selectorDetailLabel = "div.row.mt-3 div.col-5"
	selectorDetailValue = "div.col-7"
)

// detailFieldMap maps the Macedonian labels of the detail table to
// attribute names.
var detailFieldMap = map[string]string{
	"марка":            "make",
	"модел":            "model",
	"година":           "year",
	"гориво":           "fuel",
	"километри":        "km",
	"менувач":          "gearbox",
	"каросерија":       "body",
	"боја":             "color",
	"регистрација":     "registration",
	"регистрирана до":  "reg_until",
	"сила на моторот":  "power_text",
	"класа на емисија": "emission_class",
	// Latin k seen on some ads.
	"kласа на емисија": "emission_class",
}

var (
	powerKWRegexp = regexp.MustCompile(`(\d+)\s*(?:kw|кw|кв)`)
	powerPSRegexp = regexp.MustCompile(`(\d+)\s*(?:ks|кс|hp)`)
)

// ParseDetailPage reads the attribute table of an ad detail page. A page
// without any known attribute is a parse error.
func ParseDetailPage(r io.Reader) (models.Details, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return models.Details{}, apperrors.NewParse("detail page", "read document", err)
	}

	raw := make(map[string]string)
	doc.Find(selectorDetailLabel).Each(func(_ int, label *goquery.Selection) {
		text := strings.ToLower(strings.TrimRight(collapse(label.Text()), ":"))
		key, ok := detailFieldMap[strings.TrimSpace(text)]
		if !ok {
			return
		}
		value := label.NextAllFiltered(selectorDetailValue).First()
		if value.Length() == 0 {
			return
		}
		raw[key] = collapse(value.Text())
	})

	if len(raw) == 0 {
		return models.Details{}, apperrors.NewParse("detail page", "no attribute table", nil)
	}
	return normalizeDetails(raw), nil
}

func normalizeDetails(raw map[string]string) models.Details {
	d := models.Details{
		Make:          raw["make"],
		Model:         raw["model"],
		Fuel:          raw["fuel"],
		Gearbox:       raw["gearbox"],
		Body:          raw["body"],
		Color:         raw["color"],
		Registration:  raw["registration"],
		RegUntil:      raw["reg_until"],
		EmissionClass: raw["emission_class"],
	}
	if v, ok := raw["year"]; ok {
		d.Year = parseIntValue(v)
	}
	if v, ok := raw["km"]; ok {
		d.KM = parseIntValue(v)
	}
	if v := raw["power_text"]; v != "" {
		d.KW, d.PS = ParsePowerText(v)
	}
	return d
}

// ParsePowerText reads "85 kW / 115 КС" style engine power.
func ParsePowerText(text string) (kw, ps *int) {
	lower := strings.ToLower(text)
	return firstInt(powerKWRegexp, lower), firstInt(powerPSRegexp, lower)
}
