// Package gtfsrt fetches and decodes the transit authority's
// GTFS-Realtime protobuf feeds. Each top-level feed is cached whole as
// raw bytes ("all routes"); decoding happens per call so route and
// stop filtering work on a private message and never touch shared
// state.
package gtfsrt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"google.golang.org/protobuf/proto"

	"github.com/actlive/actlive/pkg/cache"
	"github.com/actlive/actlive/pkg/config"
	"github.com/actlive/actlive/pkg/upstreamerr"
)

const Source = "GTFS_RT"

const (
	vehiclePositionsPath = "/vehicles"
	tripUpdatesPath      = "/tripupdates"
	serviceAlertsPath    = "/alerts"
)

type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	ttl        config.CacheTTL
	cache      *cache.Cache
}

func NewClient(cfg *config.Config, store *cache.Cache) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(cfg.FeedAPIBaseURL, "/"),
		token:      cfg.APIToken,
		httpClient: &http.Client{Timeout: cfg.HTTPTimeout},
		ttl:        cfg.CacheTTL,
		cache:      store,
	}
}

func (c *Client) FetchVehiclePositions(ctx context.Context) (*gtfs.FeedMessage, error) {
	return c.fetchFeed(ctx, vehiclePositionsPath, "gtfs-vehicles:all", c.ttl.VehiclePositions)
}

func (c *Client) FetchVehiclePositionsForRoute(ctx context.Context, routeID string) (*gtfs.FeedMessage, error) {
	feed, err := c.FetchVehiclePositions(ctx)
	if err != nil {
		return nil, err
	}

	return FilterByRoute(feed, routeID), nil
}

func (c *Client) FetchTripUpdates(ctx context.Context) (*gtfs.FeedMessage, error) {
	return c.fetchFeed(ctx, tripUpdatesPath, "gtfs-tripupdates:all", c.ttl.TripUpdates)
}

// FetchTripUpdatesForRoute filters trip updates down to one route and,
// when stopID is non-empty, to stop-time updates for that stop.
func (c *Client) FetchTripUpdatesForRoute(ctx context.Context, routeID string, stopID string) (*gtfs.FeedMessage, error) {
	feed, err := c.FetchTripUpdates(ctx)
	if err != nil {
		return nil, err
	}

	filtered := FilterByRoute(feed, routeID)
	if stopID == "" {
		return filtered, nil
	}

	return FilterTripUpdatesByStop(filtered, stopID), nil
}

func (c *Client) FetchServiceAlerts(ctx context.Context) (*gtfs.FeedMessage, error) {
	return c.fetchFeed(ctx, serviceAlertsPath, "gtfs-alerts:all", c.ttl.ServiceAlerts)
}

func (c *Client) FetchServiceAlertsForRoute(ctx context.Context, routeID string) (*gtfs.FeedMessage, error) {
	feed, err := c.FetchServiceAlerts(ctx)
	if err != nil {
		return nil, err
	}

	return FilterByRoute(feed, routeID), nil
}

func (c *Client) fetchFeed(ctx context.Context, path string, cacheKey string, ttl time.Duration) (*gtfs.FeedMessage, error) {
	body, err := cache.GetOrFetch(ctx, c.cache, cacheKey, ttl, func(ctx context.Context) ([]byte, error) {
		return c.download(ctx, path)
	})
	if err != nil {
		return nil, err
	}

	feed := &gtfs.FeedMessage{}
	if err := proto.Unmarshal(body, feed); err != nil {
		return nil, &upstreamerr.ParseError{Source: Source, URL: c.baseURL + path, Err: err}
	}

	return feed, nil
}

func (c *Client) download(ctx context.Context, path string) ([]byte, error) {
	params := url.Values{}
	params.Set("token", c.token)
	requestURL := fmt.Sprintf("%s%s?%s", c.baseURL, path, params.Encode())

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, err
	}

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
