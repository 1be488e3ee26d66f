package domain

import (
	"strings"
)

const labelSeparator = ", "

// Normalize converts a provider record into a Suggestion.
// It returns false when the record carries nothing that can be shown.
func Normalize(rec PlaceRecord) (Suggestion, bool) {
	display := strings.TrimSpace(rec.DisplayName)
	segments := splitLabel(display)

	city := firstNonEmpty(rec.City, rec.Name)
	if city == "" && len(segments) > 0 {
		city = segments[0]
	}

	country := strings.TrimSpace(rec.Country)
	if country == "" && len(segments) > 1 {
		country = segments[len(segments)-1]
	}

	var label string
	switch {
	case city != "" && country != "":
		label = city + labelSeparator + country
	case display != "":
		label = display
	default:
		label = city
	}

	if label == "" {
		return Suggestion{}, false
	}

	s := Suggestion{
		Label:       label,
		City:        city,
		Country:     country,
		CountryCode: strings.ToUpper(strings.TrimSpace(rec.CountryCode)),
	}

	if rec.HasCoordinates && validCoordinates(rec.Latitude, rec.Longitude) {
		lat, lon := rec.Latitude, rec.Longitude
		s.Latitude = &lat
		s.Longitude = &lon
	}

	return s, true
}

// NormalizeAll normalizes records, drops unusable ones and duplicates by label,
// and caps the result at limit. The result is never nil.
func NormalizeAll(records []PlaceRecord, limit int) []Suggestion {
	results := make([]Suggestion, 0, min(len(records), max(limit, 0)))
	seen := make(map[string]struct{}, len(records))

	for _, rec := range records {
		if len(results) >= limit {
			break
		}

		s, ok := Normalize(rec)
		if !ok {
			continue
		}

		if _, dup := seen[s.Label]; dup {
			continue
		}
		seen[s.Label] = struct{}{}
		results = append(results, s)
	}

	return results
}

// SuggestionFromLabel builds a suggestion from a "City, ..., Country" label.
func SuggestionFromLabel(label string) (Suggestion, bool) {
	return Normalize(PlaceRecord{DisplayName: label})
}

// CacheKey derives the cache key for a query and its scope.
func CacheKey(query, scope string) string {
	key := strings.ToLower(strings.TrimSpace(query))

	scope = strings.ToLower(strings.TrimSpace(scope))
	if scope != "" {
		key += "|" + scope
	}

	return key
}

func splitLabel(label string) []string {
	if label == "" {
		return nil
	}

	parts := strings.Split(label, ",")
	segments := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			segments = append(segments, p)
		}
	}
	return segments
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func validCoordinates(lat, lon float64) bool {
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}
