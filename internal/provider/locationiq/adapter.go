// Package locationiq adapts the LocationIQ autocomplete API to domain.Provider.
package locationiq

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/davidbz/placefinder/internal/domain"
	"github.com/davidbz/placefinder/internal/observability"
	"github.com/davidbz/placefinder/internal/provider"
)

const providerName = "locationiq"

// Provider implements domain.Provider for LocationIQ.
type Provider struct {
	transport *provider.Transport
	baseURL   string
	apiKey    string
	language  string
}

// NewProvider creates a new LocationIQ provider.
func NewProvider(config Config, httpClient *http.Client) (*Provider, error) {
	if config.APIKey == "" {
		return nil, errors.New("LocationIQ API key is required")
	}

	return &Provider{
		transport: provider.NewTransport(providerName, httpClient, config.RPS),
		baseURL:   strings.TrimRight(config.BaseURL, "/"),
		apiKey:    config.APIKey,
		language:  config.Language,
	}, nil
}

// place mirrors the fields of an autocomplete result that we consume.
type place struct {
	DisplayName  string  `json:"display_name"`
	DisplayPlace string  `json:"display_place"`
	Lat          string  `json:"lat"`
	Lon          string  `json:"lon"`
	Address      address `json:"address"`
}

type address struct {
	Name        string `json:"name"`
	City        string `json:"city"`
	Town        string `json:"town"`
	Village     string `json:"village"`
	Country     string `json:"country"`
	CountryCode string `json:"country_code"`
}

// Search calls the autocomplete endpoint.
func (p *Provider) Search(ctx context.Context, req *domain.ProviderRequest) ([]domain.PlaceRecord, error) {
	if req == nil {
		return nil, errors.New("request cannot be nil")
	}

	ctx = observability.WithProvider(ctx, providerName)
	logger := observability.FromContext(ctx)
	logger.Debug("calling LocationIQ autocomplete")

	// LocationIQ answers 404 "Unable to geocode" when nothing matches.
	resp, err := p.transport.Get(ctx, p.buildURL(req), http.StatusNotFound)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusNotFound {
		return []domain.PlaceRecord{}, nil
	}

	var places []place
	if decodeErr := json.Unmarshal(resp.Body, &places); decodeErr != nil {
		return nil, provider.MalformedError(providerName, decodeErr)
	}

	records := make([]domain.PlaceRecord, 0, len(places))
	for _, pl := range places {
		records = append(records, toRecord(pl))
	}

	logger.Debug("LocationIQ autocomplete succeeded", observability.Int("results", len(records)))
	return records, nil
}

// Name returns the provider identifier.
func (p *Provider) Name() string {
	return providerName
}

func (p *Provider) buildURL(req *domain.ProviderRequest) string {
	q := url.Values{}
	q.Set("key", p.apiKey)
	q.Set("q", req.Query)
	q.Set("limit", strconv.Itoa(req.Limit))
	q.Set("dedupe", "1")
	q.Set("tag", "place:city,place:town,place:village")
	if p.language != "" {
		q.Set("accept-language", p.language)
	}
	if req.Scope != "" {
		q.Set("countrycodes", strings.ToLower(req.Scope))
	}
	return p.baseURL + "/autocomplete?" + q.Encode()
}

func toRecord(pl place) domain.PlaceRecord {
	rec := domain.PlaceRecord{
		DisplayName: pl.DisplayName,
		Name:        firstNonEmpty(pl.DisplayPlace, pl.Address.Name),
		City:        firstNonEmpty(pl.Address.City, pl.Address.Town, pl.Address.Village),
		Country:     pl.Address.Country,
		CountryCode: pl.Address.CountryCode,
	}

	lat, latErr := strconv.ParseFloat(pl.Lat, 64)
	lon, lonErr := strconv.ParseFloat(pl.Lon, 64)
	if latErr == nil && lonErr == nil {
		rec.Latitude = lat
		rec.Longitude = lon
		rec.HasCoordinates = true
	}

	return rec
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
