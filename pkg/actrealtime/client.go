// Package actrealtime talks to the transit authority's proprietary
// BusTime-style REST API: stop profiles, arrival predictions, vehicle
// positions and system time. Batch endpoints are chunked to the API's
// identifier limit, chunks fetched in parallel and each chunk cached
// independently.
package actrealtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/pool"

	"github.com/actlive/actlive/pkg/cache"
	"github.com/actlive/actlive/pkg/config"
	"github.com/actlive/actlive/pkg/upstreamerr"
	"github.com/actlive/actlive/pkg/util"
)

const Source = "ACT_REALTIME"

const (
	stopProfilesPath = "/stop"
	predictionsPath  = "/prediction"
	vehiclesPath     = "/vehicle"
	systemTimePath   = "/time"
)

type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	chunkSize  int
	ttl        config.CacheTTL
	cache      *cache.Cache
}

func NewClient(cfg *config.Config, store *cache.Cache) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(cfg.RestAPIBaseURL, "/"),
		token:      cfg.APIToken,
		httpClient: &http.Client{Timeout: cfg.HTTPTimeout},
		chunkSize:  cfg.RestChunkSize,
		ttl:        cfg.CacheTTL,
		cache:      store,
	}
}

// FetchStopProfiles looks up stop profiles for public stop codes,
// keyed back by stop code. Codes the upstream does not know are simply
// missing from the result.
func (c *Client) FetchStopProfiles(ctx context.Context, stopCodes []string) (map[string]StopRow, error) {
	profiles := map[string]StopRow{}
	if len(stopCodes) == 0 {
		return profiles, nil
	}

	chunks := util.ChunkSlice(stopCodes, c.chunkSize)

	p := pool.NewWithResults[map[string]StopRow]().WithErrors().WithContext(ctx)
	for _, chunk := range chunks {
		p.Go(func(ctx context.Context) (map[string]StopRow, error) {
			cacheKey := fmt.Sprintf("bus-stop-profiles:%s", canonicalChunkKey(chunk))

			return cache.GetOrFetch(ctx, c.cache, cacheKey, c.ttl.StopProfiles, func(ctx context.Context) (map[string]StopRow, error) {
				return c.fetchStopProfilesRaw(ctx, chunk)
			})
		})
	}

	chunkMaps, err := p.Wait()
	if err != nil {
		return nil, err
	}

	for _, chunkMap := range chunkMaps {
		for code, profile := range chunkMap {
			profiles[code] = profile
		}
	}

	return profiles, nil
}

func (c *Client) fetchStopProfilesRaw(ctx context.Context, stopCodes []string) (map[string]StopRow, error) {
	profiles := map[string]StopRow{}

	params := url.Values{}
	params.Set("stpid", strings.Join(stopCodes, ","))

	body, err := c.requestJSON(ctx, stopProfilesPath, params)
	if err != nil {
		return nil, err
	}

	var response stopsResponse
	if err := json.Unmarshal(body, &response); err != nil {
		// Malformed shape is treated as "no data", not an error.
		log.Debug().Err(err).Msg("Unexpected stop profile response shape")
		return profiles, nil
	}

	for _, code := range stopCodes {
		for _, stop := range response.BustimeResponse.Stops {
			if stop.StopCode == code {
				profiles[code] = stop
				break
			}
		}
	}

	return profiles, nil
}

// FetchStopPredictions looks up arrival predictions for stop codes,
// optionally restricted to one route, keyed back by stop code. Every
// requested code maps to a slice, empty when the upstream has no
// predictions for it.
func (c *Client) FetchStopPredictions(ctx context.Context, stopCodes []string, routeID string) (map[string][]PredictionRow, error) {
	predictions := map[string][]PredictionRow{}
	if len(stopCodes) == 0 {
		return predictions, nil
	}

	chunks := util.ChunkSlice(stopCodes, c.chunkSize)

	p := pool.NewWithResults[map[string][]PredictionRow]().WithErrors().WithContext(ctx)
	for _, chunk := range chunks {
		p.Go(func(ctx context.Context) (map[string][]PredictionRow, error) {
			cacheKey := fmt.Sprintf("bus-stop-predictions:%s:%s", routeOrAll(routeID), canonicalChunkKey(chunk))

			return cache.GetOrFetch(ctx, c.cache, cacheKey, c.ttl.Predictions, func(ctx context.Context) (map[string][]PredictionRow, error) {
				return c.fetchStopPredictionsRaw(ctx, chunk, routeID)
			})
		})
	}

	chunkMaps, err := p.Wait()
	if err != nil {
		return nil, err
	}

	for _, chunkMap := range chunkMaps {
		for code, rows := range chunkMap {
			predictions[code] = rows
		}
	}

	return predictions, nil
}

func (c *Client) fetchStopPredictionsRaw(ctx context.Context, stopCodes []string, routeID string) (map[string][]PredictionRow, error) {
	predictions := map[string][]PredictionRow{}

	params := url.Values{}
	params.Set("stpid", strings.Join(stopCodes, ","))
	if routeID != "" {
		params.Set("rt", routeID)
	}

	body, err := c.requestJSON(ctx, predictionsPath, params)
	if err != nil {
		return nil, err
	}

	var response predictionsResponse
	if err := json.Unmarshal(body, &response); err != nil {
		log.Debug().Err(err).Msg("Unexpected prediction response shape")
		return predictions, nil
	}

	for _, code := range stopCodes {
		rows := []PredictionRow{}
		for _, row := range response.BustimeResponse.Predictions {
			if row.StopCode == code {
				rows = append(rows, row)
			}
		}

		predictions[code] = rows
	}

	return predictions, nil
}

// FetchVehiclePositions returns raw vehicle rows, optionally for one
// route.
func (c *Client) FetchVehiclePositions(ctx context.Context, routeID string) ([]VehicleRow, error) {
	cacheKey := fmt.Sprintf("vehicle-positions:%s", routeOrAll(routeID))

	return cache.GetOrFetch(ctx, c.cache, cacheKey, c.ttl.VehiclePositions, func(ctx context.Context) ([]VehicleRow, error) {
		return c.fetchVehiclePositionsRaw(ctx, routeID)
	})
}

func (c *Client) fetchVehiclePositionsRaw(ctx context.Context, routeID string) ([]VehicleRow, error) {
	params := url.Values{}
	if routeID != "" {
		params.Set("rt", routeID)
	}

	body, err := c.requestJSON(ctx, vehiclesPath, params)
	if err != nil {
		return nil, err
	}

	var response vehiclesResponse
	if err := json.Unmarshal(body, &response); err != nil {
		log.Debug().Err(err).Msg("Unexpected vehicle response shape")
		return []VehicleRow{}, nil
	}

	return response.BustimeResponse.Vehicles, nil
}

// FetchSystemTime returns the upstream clock, always live and never
// cached. It cannot fail: any upstream problem is logged and the local
// clock returned instead.
func (c *Client) FetchSystemTime(ctx context.Context) time.Time {
	now := time.Now()

	params := url.Values{}
	params.Set("unixTime", "true")

	body, err := c.requestJSON(ctx, systemTimePath, params)
	if err != nil {
		log.Error().Err(err).Msg("Failed fetching upstream system time")
		return now
	}

	var response systemTimeResponse
	if err := json.Unmarshal(body, &response); err != nil {
		log.Error().Err(err).Msg("Unexpected system time response shape")
		return now
	}

	milliseconds, err := strconv.ParseInt(strings.TrimSpace(response.BustimeResponse.Time.String()), 10, 64)
	if err != nil || milliseconds <= 0 {
		log.Error().Str("tm", response.BustimeResponse.Time.String()).Msg("Invalid upstream system time value")
		return now
	}

	return time.UnixMilli(milliseconds)
}

func (c *Client) requestJSON(ctx context.Context, path string, params url.Values) ([]byte, error) {
	params.Set("token", c.token)
	requestURL := fmt.Sprintf("%s%s?%s", c.baseURL, path, params.Encode())

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, err
	}
	request.Header.Set("Accept", "application/json")

	response, err := c.httpClient.Do(request)
	if err != nil {
		var urlError *url.Error
		if errors.As(err, &urlError) && urlError.Timeout() {
			return nil, &upstreamerr.TimeoutError{Source: Source, URL: requestURL, Elapsed: c.httpClient.Timeout}
		}

		return nil, err
	}
	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return nil, &upstreamerr.HTTPError{Source: Source, URL: requestURL, StatusCode: response.StatusCode}
	}

	return io.ReadAll(response.Body)
}

// canonicalChunkKey sorts a copy of the chunk so the same set of
// identifiers always maps to the same cache entry.
func canonicalChunkKey(chunk []string) string {
	sorted := make([]string, len(chunk))
	copy(sorted, chunk)
	sort.Strings(sorted)

	return strings.Join(sorted, ",")
}

func routeOrAll(routeID string) string {
	if routeID == "" {
		return "all"
	}

	return routeID
}
