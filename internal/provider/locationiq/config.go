package locationiq

// Config contains LocationIQ provider configuration.
// An empty APIKey leaves the provider unregistered.
type Config struct {
	APIKey   string  `env:"LOCATIONIQ_API_KEY"`
	BaseURL  string  `env:"LOCATIONIQ_BASE_URL" envDefault:"https://api.locationiq.com/v1"`
	Language string  `env:"LOCATIONIQ_LANGUAGE" envDefault:"en"`
	RPS      float64 `env:"LOCATIONIQ_RPS"      envDefault:"2"`
}
