package mapbox

// Config contains Mapbox geocoding configuration.
// An empty AccessToken leaves the provider unregistered.
type Config struct {
	AccessToken string  `env:"MAPBOX_ACCESS_TOKEN"`
	BaseURL     string  `env:"MAPBOX_BASE_URL"     envDefault:"https://api.mapbox.com"`
	Language    string  `env:"MAPBOX_LANGUAGE"     envDefault:"en"`
	RPS         float64 `env:"MAPBOX_RPS"          envDefault:"10"`
}
