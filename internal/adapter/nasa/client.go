// Package nasa implements the NeoWs feed client.
//
// NeoWs (https://api.nasa.gov/neo/rest/v1) groups close approaches by
// calendar date and encodes velocity and miss distance as decimal strings.
// Any transport failure, non-200 status, or undecodable body is reported as
// domain.ErrUpstreamUnavailable; the client performs no retries.
package nasa

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/perihelion-labs/neo-watch/internal/domain"
	"github.com/perihelion-labs/neo-watch/internal/observability"
)

// Client fetches near-Earth-object observations from the NeoWs feed.
type Client struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a NeoWs feed client.
func NewClient(apiKey, baseURL string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: baseURL,
		metrics: metrics,
		logger:  logger,
	}
}

// FetchRange returns observations for the inclusive date range, keyed by
// approach date. Miss distance is populated from the first close approach.
func (c *Client) FetchRange(ctx context.Context, startDate, endDate string) (map[string][]domain.Observation, error) {
	params := url.Values{
		"start_date": {startDate},
		"end_date":   {endDate},
		"api_key":    {c.apiKey},
	}

	feed, err := c.doRequest(ctx, c.baseURL+"/feed?"+params.Encode(), "range")
	if err != nil {
		return nil, err
	}

	byDate := make(map[string][]domain.Observation, len(feed.NearEarthObjects))
	for date, objects := range feed.NearEarthObjects {
		byDate[date] = c.mapObservations(date, objects)
	}
	return byDate, nil
}

// FetchByDate returns the observations approaching on a single calendar date.
func (c *Client) FetchByDate(ctx context.Context, date string) ([]domain.Observation, error) {
	params := url.Values{
		"start_date": {date},
		"end_date":   {date},
		"api_key":    {c.apiKey},
	}

	feed, err := c.doRequest(ctx, c.baseURL+"/feed?"+params.Encode(), "date")
	if err != nil {
		return nil, err
	}

	return c.mapObservations(date, feed.NearEarthObjects[date]), nil
}

func (c *Client) doRequest(ctx context.Context, fullURL, endpoint string) (*feedResponse, error) {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	c.metrics.FeedAPIDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.FeedRequests.WithLabelValues(endpoint, "error").Inc()
		return nil, fmt.Errorf("%w: %s feed request: %v", domain.ErrUpstreamUnavailable, endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.metrics.FeedRequests.WithLabelValues(endpoint, "error").Inc()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: NeoWs status %d: %s", domain.ErrUpstreamUnavailable, resp.StatusCode, body)
	}

	var feed feedResponse
	if err := json.NewDecoder(resp.Body).Decode(&feed); err != nil {
		c.metrics.FeedRequests.WithLabelValues(endpoint, "error").Inc()
		return nil, fmt.Errorf("%w: decode feed response: %v", domain.ErrUpstreamUnavailable, err)
	}

	c.metrics.FeedRequests.WithLabelValues(endpoint, "success").Inc()
	return &feed, nil
}

// mapObservations converts feed entries to domain observations. Entries with
// no close approach data carry neither velocity nor miss distance and are
// dropped with a warning.
func (c *Client) mapObservations(date string, objects []neoObject) []domain.Observation {
	observations := make([]domain.Observation, 0, len(objects))
	for _, obj := range objects {
		if len(obj.CloseApproachData) == 0 {
			c.logger.Warn("feed entry has no close approach data, skipping",
				"neo_id", obj.ID, "date", date)
			continue
		}
		approach := obj.CloseApproachData[0]
		observations = append(observations, domain.Observation{
			NeoID:          obj.ID,
			Name:           obj.Name,
			ApproachDate:   date,
			DiameterKM:     obj.EstimatedDiameter.Kilometers.Max,
			VelocityKMS:    c.parseFloat(obj.ID, "velocity_km_s", approach.RelativeVelocity.KilometersPerSecond),
			MissDistanceKM: c.parseFloat(obj.ID, "miss_distance_km", approach.MissDistance.Kilometers),
			Hazardous:      obj.Hazardous,
			NASAURL:        obj.NASAJPLURL,
		})
	}
	return observations
}

// parseFloat parses a NeoWs decimal string. A malformed value is logged and
// becomes 0 rather than failing the whole feed response.
func (c *Client) parseFloat(neoID, field, s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		c.logger.Warn("feed entry has malformed decimal, using 0",
			"neo_id", neoID, "field", field, "value", s)
		return 0
	}
	return v
}

// NeoWs feed response types.

type feedResponse struct {
	NearEarthObjects map[string][]neoObject `json:"near_earth_objects"`
}

type neoObject struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	NASAJPLURL        string `json:"nasa_jpl_url"`
	EstimatedDiameter struct {
		Kilometers struct {
			Max float64 `json:"estimated_diameter_max"`
		} `json:"kilometers"`
	} `json:"estimated_diameter"`
	Hazardous         bool            `json:"is_potentially_hazardous_asteroid"`
	CloseApproachData []closeApproach `json:"close_approach_data"`
}

type closeApproach struct {
	RelativeVelocity struct {
		KilometersPerSecond string `json:"kilometers_per_second"`
	} `json:"relative_velocity"`
	MissDistance struct {
		Kilometers string `json:"kilometers"`
	} `json:"miss_distance"`
}
