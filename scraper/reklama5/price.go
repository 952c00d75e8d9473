package reklama5

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	// negotiableRegexp matches "price on request" labels.
	negotiableRegexp = regexp.MustCompile(`(?i)(по\s*договор|дог|nach\s*vereinbarung)`)
	numberRegexp     = regexp.MustCompile(`-?\s*\d[\d\s.,]*`)
	digitsRegexp     = regexp.MustCompile(`[^0-9]`)
)

// CleanPrice turns a price label into whole currency units. It returns nil
// for negotiable prices, the "1 €" placeholder, and text without a number.
//
//	"6,500 €"       → 6500
//	"12 345,00 €"   → 12345
//	"По договор"    → nil
func CleanPrice(text string) *int {
	text = strings.TrimSpace(strings.ReplaceAll(text, "\u00a0", " "))
	if text == "" || negotiableRegexp.MatchString(text) {
		return nil
	}
	if strings.ReplaceAll(text, " ", "") == "1€" {
		return nil
	}

	number := strings.TrimSpace(numberRegexp.FindString(text))
	if number == "" {
		return nil
	}
	negative := strings.HasPrefix(number, "-")
	number = strings.TrimLeft(number, "- ")
	number = strings.ReplaceAll(number, " ", "")

	// A trailing separator followed by one or two digits is a decimal part.
	if sep := max(strings.LastIndex(number, ","), strings.LastIndex(number, ".")); sep != -1 {
		frac := number[sep+1:]
		if len(frac) >= 1 && len(frac) <= 2 && isDigits(frac) {
			number = number[:sep]
		}
	}

	integer := strings.NewReplacer(",", "", ".", "").Replace(number)
	if !isDigits(integer) {
		return nil
	}
	v, err := strconv.Atoi(integer)
	if err != nil {
		return nil
	}
	if negative {
		v = -v
	}
	return &v
}

// parseIntValue keeps only the digits of s.
func parseIntValue(s string) *int {
	digits := digitsRegexp.ReplaceAllString(s, "")
	if digits == "" {
		return nil
	}
	v, err := strconv.Atoi(digits)
	if err != nil {
		return nil
	}
	return &v
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
