package domain

import "time"

// Suggestion is a single autocomplete entry shown to the user.
type Suggestion struct {
	Label       string   `json:"label"`
	City        string   `json:"city"`
	Country     string   `json:"country"`
	CountryCode string   `json:"country_code,omitempty"`
	Latitude    *float64 `json:"latitude,omitempty"`
	Longitude   *float64 `json:"longitude,omitempty"`
}

// Equal reports whether two suggestions name the same place.
func (s Suggestion) Equal(other Suggestion) bool {
	return s.Label == other.Label
}

// SearchOptions scopes a single search.
type SearchOptions struct {
	Scope string // comma separated ISO 3166-1 alpha-2 country codes
	Limit int
}

// ProviderRequest is what a provider adapter receives for one upstream call.
type ProviderRequest struct {
	Query string
	Scope string
	Limit int
}

// PlaceRecord is a provider-neutral view of one upstream result.
// Adapters fill in what their wire format carries; Normalize does the rest.
type PlaceRecord struct {
	DisplayName    string
	Name           string
	City           string
	Country        string
	CountryCode    string
	Latitude       float64
	Longitude      float64
	HasCoordinates bool
}

// CacheEntry is a stored result set.
type CacheEntry struct {
	Results   []Suggestion `json:"results"`
	CreatedAt time.Time    `json:"cached_at"`
}

// BreakerState is the externally visible state of the availability breaker.
type BreakerState int

const (
	// BreakerClosed means the provider is healthy.
	BreakerClosed BreakerState = iota
	// BreakerOpen means the provider is skipped until the cooldown elapses.
	BreakerOpen
	// BreakerHalfOpen means the cooldown elapsed and one trial call is permitted.
	BreakerHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// BreakerSnapshot is a point-in-time copy of the breaker.
type BreakerSnapshot struct {
	State          BreakerState
	Healthy        bool
	UnhealthySince time.Time
}
