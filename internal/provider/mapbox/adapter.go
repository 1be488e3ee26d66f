// Package mapbox adapts the Mapbox forward geocoding API (places endpoint)
// to domain.Provider.
package mapbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/davidbz/placefinder/internal/domain"
	"github.com/davidbz/placefinder/internal/observability"
	"github.com/davidbz/placefinder/internal/provider"
)

const (
	providerName  = "mapbox"
	countryPrefix = "country."
	// Mapbox caps autocomplete results at 10.
	maxLimit = 10
)

// Provider implements domain.Provider for Mapbox.
type Provider struct {
	transport   *provider.Transport
	baseURL     string
	accessToken string
	language    string
}

// NewProvider creates a new Mapbox provider.
func NewProvider(config Config, httpClient *http.Client) (*Provider, error) {
	if config.AccessToken == "" {
		return nil, errors.New("Mapbox access token is required")
	}

	return &Provider{
		transport:   provider.NewTransport(providerName, httpClient, config.RPS),
		baseURL:     strings.TrimRight(config.BaseURL, "/"),
		accessToken: config.AccessToken,
		language:    config.Language,
	}, nil
}

type featureCollection struct {
	Features []feature `json:"features"`
}

type feature struct {
	Text      string      `json:"text"`
	PlaceName string      `json:"place_name"`
	Center    []float64   `json:"center"` // [lon, lat]
	Context   []component `json:"context"`
}

type component struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	ShortCode string `json:"short_code"`
}

// Search calls the places endpoint in autocomplete mode.
func (p *Provider) Search(ctx context.Context, req *domain.ProviderRequest) ([]domain.PlaceRecord, error) {
	if req == nil {
		return nil, errors.New("request cannot be nil")
	}

	ctx = observability.WithProvider(ctx, providerName)
	logger := observability.FromContext(ctx)
	logger.Debug("calling Mapbox geocoding")

	resp, err := p.transport.Get(ctx, p.buildURL(req))
	if err != nil {
		return nil, err
	}

	var fc featureCollection
	if decodeErr := json.Unmarshal(resp.Body, &fc); decodeErr != nil {
		return nil, provider.MalformedError(providerName, decodeErr)
	}
	if fc.Features == nil {
		return nil, provider.MalformedError(providerName, fmt.Errorf("missing features"))
	}

	records := make([]domain.PlaceRecord, 0, len(fc.Features))
	for _, f := range fc.Features {
		records = append(records, toRecord(f))
	}

	logger.Debug("Mapbox geocoding succeeded", observability.Int("results", len(records)))
	return records, nil
}

// Name returns the provider identifier.
func (p *Provider) Name() string {
	return providerName
}

func (p *Provider) buildURL(req *domain.ProviderRequest) string {
	q := url.Values{}
	q.Set("access_token", p.accessToken)
	q.Set("autocomplete", "true")
	q.Set("types", "place")
	q.Set("limit", strconv.Itoa(min(max(req.Limit, 1), maxLimit)))
	if p.language != "" {
		q.Set("language", p.language)
	}
	if req.Scope != "" {
		q.Set("country", strings.ToLower(req.Scope))
	}

	return fmt.Sprintf("%s/geocoding/v5/mapbox.places/%s.json?%s",
		p.baseURL, url.PathEscape(req.Query), q.Encode())
}

func toRecord(f feature) domain.PlaceRecord {
	rec := domain.PlaceRecord{
		DisplayName: f.PlaceName,
		Name:        f.Text,
	}

	for _, c := range f.Context {
		if strings.HasPrefix(c.ID, countryPrefix) {
			rec.Country = c.Text
			rec.CountryCode = c.ShortCode
		}
	}

	const lonLat = 2
	if len(f.Center) == lonLat {
		rec.Longitude = f.Center[0]
		rec.Latitude = f.Center[1]
		rec.HasCoordinates = true
	}

	return rec
}
