package reklama5

import (
	"strconv"
	"strings"
	"time"

	"reklama5-scraper/models"
)

var mkMonths = map[string]time.Month{
	"јан": time.January,
	"фев": time.February,
	"мар": time.March,
	"апр": time.April,
	"мај": time.May,
	"јун": time.June,
	"јул": time.July,
	"авг": time.August,
	"сеп": time.September,
	"окт": time.October,
	"ное": time.November,
	"дек": time.December,
}

var isoLayouts = []string{
	models.DateLayout,
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseMKDate understands the date labels shown on reklama5 result pages:
// "денес 14:05", "вчера 08:30", "31 дек 23:45" and already normalised
// timestamps. Labels carry no year; a date more than a day ahead of now is
// taken to be from the previous year.
func ParseMKDate(text string, now time.Time) (time.Time, bool) {
	raw := strings.TrimSpace(text)
	if raw == "" {
		return time.Time{}, false
	}
	loc := now.Location()
	for _, layout := range isoLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t, true
		}
	}

	lower := strings.ToLower(raw)
	parts := strings.Fields(lower)

	switch {
	case strings.HasPrefix(lower, "вчера"):
		h, m := clockFromParts(parts)
		y := now.AddDate(0, 0, -1)
		return time.Date(y.Year(), y.Month(), y.Day(), h, m, 0, 0, loc), true
	case strings.HasPrefix(lower, "денес"):
		h, m := clockFromParts(parts)
		return time.Date(now.Year(), now.Month(), now.Day(), h, m, 0, 0, loc), true
	}

	if len(parts) < 3 {
		return time.Time{}, false
	}
	day, err := strconv.Atoi(parts[0])
	if err != nil || day < 1 || day > 31 {
		return time.Time{}, false
	}
	month, ok := mkMonths[monthKey(parts[1])]
	if !ok {
		return time.Time{}, false
	}
	h, m, ok := parseClock(parts[2])
	if !ok {
		return time.Time{}, false
	}

	dt := time.Date(now.Year(), month, day, h, m, 0, 0, loc)
	if dt.After(now.Add(24 * time.Hour)) {
		dt = time.Date(now.Year()-1, month, day, h, m, 0, 0, loc)
	}
	return dt, true
}

// NormalizeDate converts a date label to models.DateLayout. Labels that
// cannot be parsed are returned unchanged.
func NormalizeDate(text string, now time.Time) string {
	if t, ok := ParseMKDate(text, now); ok {
		return t.Format(models.DateLayout)
	}
	return strings.TrimSpace(text)
}

func monthKey(s string) string {
	s = strings.TrimRight(s, ".,")
	r := []rune(s)
	if len(r) > 3 {
		r = r[:3]
	}
	return string(r)
}

func clockFromParts(parts []string) (int, int) {
	if len(parts) >= 2 {
		if h, m, ok := parseClock(parts[1]); ok {
			return h, m
		}
	}
	return 0, 0
}

func parseClock(s string) (int, int, bool) {
	hs, ms, found := strings.Cut(s, ":")
	if !found {
		return 0, 0, false
	}
	h, err1 := strconv.Atoi(hs)
	m, err2 := strconv.Atoi(ms)
	if err1 != nil || err2 != nil || h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, 0, false
	}
	return h, m, true
}
