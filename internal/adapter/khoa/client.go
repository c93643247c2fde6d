// Package khoa calls the KHOA OceanGrid open API for station listings and
// observation series.
package khoa

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/danbi-studio/disaster-sim-service/internal/domain"
)

// Client implements domain.StationLocator and domain.SeriesFetcher against
// the OceanGrid search endpoints.
type Client struct {
	serviceKey string
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
}

// NewClient creates an OceanGrid API client.
func NewClient(serviceKey, baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		serviceKey: serviceKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: baseURL,
		logger:  logger,
	}
}

// FetchStationListing retrieves the station catalog for a data kind, for
// example "ObsServiceObj" or "tideObsRecent".
func (c *Client) FetchStationListing(ctx context.Context, kind string) (any, error) {
	payload, err := c.search(ctx, kind, url.Values{})
	if err != nil {
		return nil, &domain.StationFetchError{Kind: kind, Err: err}
	}
	return payload, nil
}

// FetchSeries retrieves the observation series for one station and date.
// The date uses the YYYYMMDD form the API expects.
func (c *Client) FetchSeries(ctx context.Context, kind, obsCode, date string) (any, error) {
	params := url.Values{
		"ObsCode": {obsCode},
		"Date":    {date},
	}
	payload, err := c.search(ctx, kind, params)
	if err != nil {
		return nil, &domain.StationFetchError{Kind: kind, Err: err}
	}
	return payload, nil
}

// Nearest resolves the station of the given kind closest to (lat, lon).
func (c *Client) Nearest(ctx context.Context, kind string, lat, lon float64, filters domain.StationFilters) (domain.StationInfo, error) {
	listing, err := c.FetchStationListing(ctx, kind)
	if err != nil {
		return domain.StationInfo{}, err
	}
	return domain.NearestStation(listing, lat, lon, filters)
}

func (c *Client) search(ctx context.Context, kind string, params url.Values) (any, error) {
	params.Set("ServiceKey", c.serviceKey)
	params.Set("ResultType", "json")
	fullURL := fmt.Sprintf("%s/%s/search.do?%s", c.baseURL, url.PathEscape(kind), params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("oceangrid request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// The body stays server-side; error details reach API clients.
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		c.logger.Error("oceangrid API error", "kind", kind, "status", resp.StatusCode, "body", string(body))
		return nil, fmt.Errorf("oceangrid API error: status %d", resp.StatusCode)
	}

	var payload any
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return payload, nil
}
