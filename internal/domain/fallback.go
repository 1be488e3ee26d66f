package domain

import (
	"strings"
)

// FallbackMatcher answers queries from a small static dataset when the
// provider cannot be used.
type FallbackMatcher struct {
	places []Suggestion
	lowers []string
}

// NewFallbackMatcher creates a matcher over places, preserving their order.
func NewFallbackMatcher(places []Suggestion) *FallbackMatcher {
	m := &FallbackMatcher{
		places: make([]Suggestion, len(places)),
		lowers: make([]string, len(places)),
	}

	copy(m.places, places)
	for i, p := range m.places {
		m.lowers[i] = strings.ToLower(p.Label)
	}

	return m
}

// NewFallbackMatcherFromLabels creates a matcher from place labels. Blank
// labels are skipped. An empty list yields the default dataset.
func NewFallbackMatcherFromLabels(labels []string) *FallbackMatcher {
	places := make([]Suggestion, 0, len(labels))
	for _, label := range labels {
		if s, ok := SuggestionFromLabel(label); ok {
			places = append(places, s)
		}
	}

	if len(places) == 0 {
		return NewFallbackMatcher(DefaultFallbackPlaces())
	}
	return NewFallbackMatcher(places)
}

// Match returns up to limit places whose label contains query, ignoring case.
func (m *FallbackMatcher) Match(query string, limit int) []Suggestion {
	results := make([]Suggestion, 0, min(max(limit, 0), len(m.places)))

	needle := strings.ToLower(strings.TrimSpace(query))
	if needle == "" {
		return results
	}

	for i, lower := range m.lowers {
		if len(results) >= limit {
			break
		}
		if strings.Contains(lower, needle) {
			results = append(results, m.places[i])
		}
	}

	return results
}

// Len returns the dataset size.
func (m *FallbackMatcher) Len() int {
	return len(m.places)
}
