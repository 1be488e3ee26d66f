package domain

type knownPlace struct {
	city, country, code string
	lat, lon            float64
}

//nolint:gochecknoglobals // Read-only seed data
var knownPlaces = []knownPlace{
	{"Paris", "France", "FR", 48.8566, 2.3522},
	{"London", "United Kingdom", "GB", 51.5074, -0.1278},
	{"New York", "United States", "US", 40.7128, -74.0060},
	{"Tokyo", "Japan", "JP", 35.6762, 139.6503},
	{"Barcelona", "Spain", "ES", 41.3874, 2.1686},
	{"Madrid", "Spain", "ES", 40.4168, -3.7038},
	{"Rome", "Italy", "IT", 41.9028, 12.4964},
	{"Milan", "Italy", "IT", 45.4642, 9.1900},
	{"Berlin", "Germany", "DE", 52.5200, 13.4050},
	{"Amsterdam", "Netherlands", "NL", 52.3676, 4.9041},
	{"Lisbon", "Portugal", "PT", 38.7223, -9.1393},
	{"Prague", "Czechia", "CZ", 50.0755, 14.4378},
	{"Vienna", "Austria", "AT", 48.2082, 16.3738},
	{"Dublin", "Ireland", "IE", 53.3498, -6.2603},
	{"Istanbul", "Turkey", "TR", 41.0082, 28.9784},
	{"Dubai", "United Arab Emirates", "AE", 25.2048, 55.2708},
	{"Bangkok", "Thailand", "TH", 13.7563, 100.5018},
	{"Singapore", "Singapore", "SG", 1.3521, 103.8198},
	{"Sydney", "Australia", "AU", -33.8688, 151.2093},
	{"Los Angeles", "United States", "US", 34.0522, -118.2437},
	{"San Francisco", "United States", "US", 37.7749, -122.4194},
	{"Mexico City", "Mexico", "MX", 19.4326, -99.1332},
	{"Buenos Aires", "Argentina", "AR", -34.6037, -58.3816},
	{"Rio de Janeiro", "Brazil", "BR", -22.9068, -43.1729},
	{"Cape Town", "South Africa", "ZA", -33.9249, 18.4241},
	{"Marrakech", "Morocco", "MA", 31.6295, -7.9811},
	{"Bali", "Indonesia", "ID", -8.3405, 115.0920},
	{"Seoul", "South Korea", "KR", 37.5665, 126.9780},
	{"Toronto", "Canada", "CA", 43.6532, -79.3832},
	{"Montreal", "Canada", "CA", 45.5017, -73.5673},
}

// DefaultFallbackPlaces returns the built-in list of well-known destinations.
func DefaultFallbackPlaces() []Suggestion {
	places := make([]Suggestion, 0, len(knownPlaces))
	for _, p := range knownPlaces {
		s, _ := Normalize(PlaceRecord{
			City:           p.city,
			Country:        p.country,
			CountryCode:    p.code,
			Latitude:       p.lat,
			Longitude:      p.lon,
			HasCoordinates: true,
		})
		places = append(places, s)
	}
	return places
}
