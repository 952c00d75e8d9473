package reklama5

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"reklama5-scraper/models"
	apperrors "reklama5-scraper/pkg/errors"
)

const (
	siteURL   = "https://www.reklama5.mk"
	detailURL = siteURL + "/AdDetails?ad="
)

// CSS selectors for the search result page.
const (
	selectorRow      = "div.row.ad-top-div"
	selectorTitle    = "h3 > a.SearchAdTitle"
	selectorPrice    = "span.search-ad-price"
	selectorDesc     = "div.ad-desc-div p"
	selectorCity     = "span.city-span"
	selectorPromoted = "div.promotedBtn"
)

var (
	dateSelectors = []string{"div.ad-date-div-1 span", "div.ad-date-div-2 span", "div.ad-date-div-3 span"}
	specSelectors = []string{"div.search-ad-info p", "div.searchAdInfo p", "div.ad-info p", "div.ad-desc-div p", "p"}

	adIDRegexp = regexp.MustCompile(`ad=(\d+)`)
	yearRegexp = regexp.MustCompile(`\b((?:19|20)\d{2})\b`)

	specKMRegexp = regexp.MustCompile(`(?i)\b(\d{1,3}(?:[.,\s]\d{3})+|\d+)\s*(?:km|км)`)
	specKWRegexp = regexp.MustCompile(`(?i)(\d+)\s*(?:kw|кw|кв)`)
	specPSRegexp = regexp.MustCompile(`(?i)\((\d+)\s*(?:hp|кс)\)`)

	descKMRegexp   = regexp.MustCompile(`(?i)\b(\d{1,3}(?:[.,]\d{3})+|\d+)\s*km`)
	descKWRegexp   = regexp.MustCompile(`(?i)(\d+)\s*kw`)
	descPSRegexp   = regexp.MustCompile(`(?i)\((\d+)\s*hp\)`)
	descHPRegexp   = regexp.MustCompile(`(?i)(\d+)\s*hp`)
	whitespaceRepl = regexp.MustCompile(`\s+`)
)

// ParseListingPage extracts the list-level fields of every ad on a search
// result page. Dates are normalised relative to now. Detail-only fields are
// left empty.
func ParseListingPage(r io.Reader, now time.Time) ([]*models.Listing, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, apperrors.NewParse("listing page", "read document", err)
	}

	rows := doc.Find(selectorRow)
	results := make([]*models.Listing, 0, rows.Length())
	rows.Each(func(_ int, row *goquery.Selection) {
		if l := parseRow(row, now); l != nil {
			results = append(results, l)
		}
	})

	if rows.Length() > 0 && len(results) == 0 {
		return nil, apperrors.NewParse("listing page", "result rows without title links", nil)
	}
	return results, nil
}

func parseRow(row *goquery.Selection, now time.Time) *models.Listing {
	titleLink := row.Find(selectorTitle).First()
	if titleLink.Length() == 0 {
		return nil
	}
	href, _ := titleLink.Attr("href")
	id, link := resolveLink(strings.TrimSpace(href))
	if id == "" {
		return nil
	}

	title := collapse(titleLink.Text())
	desc := collapse(row.Find(selectorDesc).First().Text())

	l := &models.Listing{
		ID:       id,
		Link:     link,
		City:     collapse(row.Find(selectorCity).First().Text()),
		Promoted: row.Find(selectorPromoted).Length() > 0,
	}
	l.Make, l.Model, l.Year = ExtractTitleDetails(title)

	if price := row.Find(selectorPrice).First(); price.Length() > 0 {
		l.Price = CleanPrice(price.Text())
	}
	for _, sel := range dateSelectors {
		if d := row.Find(sel).First(); d.Length() > 0 {
			l.Date = NormalizeDate(d.Text(), now)
			break
		}
	}

	year, km, kw, ps := ParseSpecLine(findSpecLine(row))
	if year != nil {
		l.Year = year
	} else if l.Year == nil {
		l.Year = firstInt(yearRegexp, desc)
	}
	l.KM = orElse(km, func() *int { return firstInt(descKMRegexp, desc) })
	l.KW = orElse(kw, func() *int { return firstInt(descKWRegexp, desc) })
	l.PS = orElse(ps, func() *int {
		if v := firstInt(descPSRegexp, desc); v != nil {
			return v
		}
		return firstInt(descHPRegexp, desc)
	})
	return l
}

// resolveLink returns the ad id and canonical detail link for an href. Links
// without an ad id get an id derived from the link itself.
func resolveLink(href string) (string, string) {
	if m := adIDRegexp.FindStringSubmatch(href); m != nil {
		return m[1], detailURL + m[1]
	}
	if href == "" {
		return "", ""
	}
	link := href
	if !strings.HasPrefix(href, "http") {
		link = siteURL + href
	}
	sum := sha256.Sum256([]byte(link))
	return "h" + hex.EncodeToString(sum[:8]), link
}

// ExtractTitleDetails splits an ad title into make, model and a year when
// one is mentioned.
func ExtractTitleDetails(title string) (string, string, *int) {
	parts := strings.Fields(title)
	var brand, model string
	if len(parts) > 0 {
		brand = parts[0]
	}
	if len(parts) > 1 {
		model = strings.Join(parts[1:], " ")
	}
	return brand, model, firstInt(yearRegexp, title)
}

func findSpecLine(row *goquery.Selection) string {
	for _, sel := range specSelectors {
		var found string
		row.Find(sel).EachWithBreak(func(_ int, p *goquery.Selection) bool {
			text := spacedText(p)
			if looksLikeSpecLine(text) {
				found = text
				return false
			}
			return true
		})
		if found != "" {
			return found
		}
	}
	return ""
}

func looksLikeSpecLine(text string) bool {
	if text == "" || !yearRegexp.MatchString(text) {
		return false
	}
	lower := strings.ToLower(text)
	return strings.Contains(lower, "km") || strings.Contains(lower, "км") ||
		strings.Contains(lower, "kw") || strings.Contains(lower, "кв") ||
		strings.Contains(lower, "hp") || strings.Contains(lower, "кс")
}

// ParseSpecLine reads year, km, kW and HP from a line such as
// "2016 | 185.000 km | 81 kW (110 Hp)".
func ParseSpecLine(text string) (year, km, kw, ps *int) {
	if text == "" {
		return nil, nil, nil, nil
	}
	text = whitespaceRepl.ReplaceAllString(text, " ")
	return firstInt(yearRegexp, text), firstInt(specKMRegexp, text),
		firstInt(specKWRegexp, text), firstInt(specPSRegexp, text)
}

func firstInt(re *regexp.Regexp, text string) *int {
	m := re.FindStringSubmatch(text)
	if len(m) < 2 {
		return nil
	}
	return parseIntValue(m[1])
}

func orElse(v *int, fallback func() *int) *int {
	if v != nil {
		return v
	}
	return fallback()
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// spacedText joins the text nodes under s with single spaces.
func spacedText(s *goquery.Selection) string {
	var parts []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				parts = append(parts, t)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range s.Nodes {
		walk(n)
	}
	return strings.Join(parts, " ")
}
