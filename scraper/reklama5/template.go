package reklama5

import (
	"net/url"
	"strings"

	apperrors "reklama5-scraper/pkg/errors"
)

const (
	SearchTermPlaceholder = "{search_term}"
	PageNumPlaceholder    = "{page_num}"
)

// BuildBaseURLTemplate accepts either a ready template or a search URL copied
// from the browser, in which case the q and page parameters are replaced by
// placeholders. An empty input yields "".
func BuildBaseURLTemplate(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", nil
	}
	if strings.Contains(trimmed, SearchTermPlaceholder) && strings.Contains(trimmed, PageNumPlaceholder) {
		return trimmed, nil
	}

	u, err := url.Parse(trimmed)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", apperrors.NewConfig("invalid base url " + trimmed + ": need a complete address")
	}

	pairs := splitQuery(u.RawQuery)
	pairs = ensurePlaceholder(pairs, "q", SearchTermPlaceholder)
	pairs = ensurePlaceholder(pairs, "page", PageNumPlaceholder)

	var b strings.Builder
	b.WriteString(u.Scheme)
	b.WriteString("://")
	b.WriteString(u.Host)
	b.WriteString(u.EscapedPath())
	b.WriteByte('?')
	b.WriteString(joinQuery(pairs))
	if u.Fragment != "" {
		b.WriteByte('#')
		b.WriteString(u.Fragment)
	}
	return b.String(), nil
}

type queryPair struct{ key, value string }

// splitQuery keeps parameter order and raw encoding, unlike url.ParseQuery.
func splitQuery(raw string) []queryPair {
	var pairs []queryPair
	for _, part := range strings.Split(raw, "&") {
		if part == "" {
			continue
		}
		k, v, _ := strings.Cut(part, "=")
		pairs = append(pairs, queryPair{k, v})
	}
	return pairs
}

func ensurePlaceholder(pairs []queryPair, key, placeholder string) []queryPair {
	for i := range pairs {
		if strings.EqualFold(pairs[i].key, key) {
			pairs[i].value = placeholder
			return pairs
		}
	}
	return append(pairs, queryPair{key, placeholder})
}

func joinQuery(pairs []queryPair) string {
	parts := make([]string, len(pairs))
	for i, p := range pairs {
		parts[i] = p.key + "=" + p.value
	}
	return strings.Join(parts, "&")
}
