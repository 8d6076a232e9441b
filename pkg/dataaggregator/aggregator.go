package dataaggregator

import (
	"context"
	"fmt"
	"time"

	"github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"github.com/actlive/actlive/pkg/actrealtime"
	"github.com/actlive/actlive/pkg/batchloader"
	"github.com/actlive/actlive/pkg/busdata"
	"github.com/actlive/actlive/pkg/config"
	"github.com/actlive/actlive/pkg/gtfsrt"
	"github.com/actlive/actlive/pkg/subscription"
	"github.com/sourcegraph/conc/pool"
)

// Aggregator is the single entry point consumers use to read live transit
// data. It hides which upstream (REST or GTFS-Realtime feed) a given entity
// came from and hands back canonical busdata values.
type Aggregator struct {
	cfg  *config.Config
	rest *actrealtime.Client
	feed *gtfsrt.Client
}

func New(cfg *config.Config, rest *actrealtime.Client, feed *gtfsrt.Client) *Aggregator {
	return &Aggregator{
		cfg:  cfg,
		rest: rest,
		feed: feed,
	}
}

// PredictionKey identifies one prediction stream: a stop on a route in one
// travel direction.
type PredictionKey struct {
	RouteID  string
	StopCode string
	Outbound bool
}

func (a *Aggregator) FetchBusPositions(ctx context.Context, routeID string) ([]busdata.BusPosition, error) {
	rows, err := a.rest.FetchVehiclePositions(ctx, routeID)
	if err != nil {
		return nil, err
	}

	return busdata.PositionsFromRest(rows), nil
}

func (a *Aggregator) FetchBusPositionsFromFeed(ctx context.Context, routeID string) ([]busdata.BusPosition, error) {
	feed, err := a.feed.FetchVehiclePositionsForRoute(ctx, routeID)
	if err != nil {
		return nil, err
	}

	return busdata.PositionsFromFeed(feed), nil
}

// FetchBusStopProfile returns nil without an error when the upstream does
// not know the stop code.
func (a *Aggregator) FetchBusStopProfile(ctx context.Context, stopCode string) (*busdata.BusStopProfile, error) {
	rows, err := a.rest.FetchStopProfiles(ctx, []string{stopCode})
	if err != nil {
		return nil, err
	}

	row, found := rows[stopCode]
	if !found {
		return nil, nil
	}

	return busdata.NewBusStopProfile(row)
}

func (a *Aggregator) FetchBusStopPredictions(ctx context.Context, routeID string, stopCode string, outbound bool) ([]busdata.BusStopPrediction, error) {
	rows, err := a.rest.FetchStopPredictions(ctx, []string{stopCode}, routeID)
	if err != nil {
		return nil, err
	}

	return busdata.PredictionsFromRest(rows[stopCode], outbound), nil
}

func (a *Aggregator) FetchBusStopPredictionsFromFeed(ctx context.Context, routeID string, stopCode string, outbound bool) ([]busdata.BusStopPrediction, error) {
	feed, err := a.feed.FetchTripUpdatesForRoute(ctx, routeID, stopCode)
	if err != nil {
		return nil, err
	}

	return busdata.PredictionsFromFeed(feed, outbound), nil
}

func (a *Aggregator) FetchServiceAlerts(ctx context.Context, routeID string) (*gtfs.FeedMessage, error) {
	if routeID == "" {
		return a.feed.FetchServiceAlerts(ctx)
	}

	return a.feed.FetchServiceAlertsForRoute(ctx, routeID)
}

func (a *Aggregator) FetchSystemTime(ctx context.Context) time.Time {
	return a.rest.FetchSystemTime(ctx)
}

// SubscribeBusPositions emits the positions for one route immediately and
// then on every interval tick until ctx is cancelled or the poller is
// stopped. Each subscription gets its own batch loader so concurrent
// subscribers within a tick share one upstream call per route.
func (a *Aggregator) SubscribeBusPositions(ctx context.Context, routeID string, interval time.Duration) (*subscription.Poller[[]busdata.BusPosition], <-chan []busdata.BusPosition) {
	loader := batchloader.New(a.positionsBatch)

	poller := subscription.NewPoller(
		fmt.Sprintf("bus-positions:%s", routeID),
		interval,
		func(ctx context.Context) ([]busdata.BusPosition, error) {
			// Drop the previous tick's result so live data is re-fetched.
			loader.Clear(routeID)
			return loader.Load(ctx, routeID)
		},
	)

	return poller, poller.Start(ctx)
}

// SubscribeBusStopPredictions emits predictions for one stop and direction on
// a route, immediately and then on every interval tick.
func (a *Aggregator) SubscribeBusStopPredictions(ctx context.Context, routeID string, stopCode string, outbound bool, interval time.Duration) (*subscription.Poller[[]busdata.BusStopPrediction], <-chan []busdata.BusStopPrediction) {
	loader := batchloader.New(a.predictionsBatch)
	key := PredictionKey{RouteID: routeID, StopCode: stopCode, Outbound: outbound}

	poller := subscription.NewPoller(
		fmt.Sprintf("bus-stop-predictions:%s:%s", routeID, stopCode),
		interval,
		func(ctx context.Context) ([]busdata.BusStopPrediction, error) {
			loader.Clear(key)
			return loader.Load(ctx, key)
		},
	)

	return poller, poller.Start(ctx)
}

// SubscribeBusStopProfile emits the profile for one stop immediately and then
// on every interval tick. Concurrent profile subscribers within a tick are
// batched into one chunked upstream call.
func (a *Aggregator) SubscribeBusStopProfile(ctx context.Context, stopCode string, interval time.Duration) (*subscription.Poller[*busdata.BusStopProfile], <-chan *busdata.BusStopProfile) {
	loader := batchloader.New(a.profilesBatch)

	poller := subscription.NewPoller(
		fmt.Sprintf("bus-stop-profile:%s", stopCode),
		interval,
		func(ctx context.Context) (*busdata.BusStopProfile, error) {
			loader.Clear(stopCode)
			return loader.Load(ctx, stopCode)
		},
	)

	return poller, poller.Start(ctx)
}

// SubscribeSystemTime emits the upstream clock on every tick. The fetch
// cannot fail, so every tick emits.
func (a *Aggregator) SubscribeSystemTime(ctx context.Context, interval time.Duration) (*subscription.Poller[time.Time], <-chan time.Time) {
	poller := subscription.NewPoller(
		"system-time",
		interval,
		func(ctx context.Context) (time.Time, error) {
			return a.rest.FetchSystemTime(ctx), nil
		},
	)

	return poller, poller.Start(ctx)
}

func (a *Aggregator) positionsBatch(ctx context.Context, routeIDs []string) (map[string][]busdata.BusPosition, error) {
	type routePositions struct {
		routeID   string
		positions []busdata.BusPosition
	}

	p := pool.NewWithResults[routePositions]().WithErrors().WithContext(ctx)
	for _, routeID := range routeIDs {
		p.Go(func(ctx context.Context) (routePositions, error) {
			positions, err := a.FetchBusPositions(ctx, routeID)
			if err != nil {
				return routePositions{}, err
			}

			return routePositions{routeID: routeID, positions: positions}, nil
		})
	}

	perRoute, err := p.Wait()
	if err != nil {
		return nil, err
	}

	results := map[string][]busdata.BusPosition{}
	for _, entry := range perRoute {
		results[entry.routeID] = entry.positions
	}

	return results, nil
}

// predictionsBatch groups keys by route so one upstream call covers every
// stop requested on that route this tick, then fans rows back out per key
// with the direction filter applied.
func (a *Aggregator) predictionsBatch(ctx context.Context, keys []PredictionKey) (map[PredictionKey][]busdata.BusStopPrediction, error) {
	stopCodesByRoute := map[string][]string{}
	for _, key := range keys {
		if !containsString(stopCodesByRoute[key.RouteID], key.StopCode) {
			stopCodesByRoute[key.RouteID] = append(stopCodesByRoute[key.RouteID], key.StopCode)
		}
	}

	type routeRows struct {
		routeID string
		rows    map[string][]actrealtime.PredictionRow
	}

	p := pool.NewWithResults[routeRows]().WithErrors().WithContext(ctx)
	for routeID, stopCodes := range stopCodesByRoute {
		p.Go(func(ctx context.Context) (routeRows, error) {
			rows, err := a.rest.FetchStopPredictions(ctx, stopCodes, routeID)
			if err != nil {
				return routeRows{}, err
			}

			return routeRows{routeID: routeID, rows: rows}, nil
		})
	}

	perRoute, err := p.Wait()
	if err != nil {
		return nil, err
	}

	rowsByRoute := map[string]map[string][]actrealtime.PredictionRow{}
	for _, entry := range perRoute {
		rowsByRoute[entry.routeID] = entry.rows
	}

	results := map[PredictionKey][]busdata.BusStopPrediction{}
	for _, key := range keys {
		results[key] = busdata.PredictionsFromRest(rowsByRoute[key.RouteID][key.StopCode], key.Outbound)
	}

	return results, nil
}

// profilesBatch resolves every stop code requested this tick through one
// chunked upstream call. Unknown codes resolve to nil; a row the upstream
// returns without its identifiers fails just that key.
func (a *Aggregator) profilesBatch(ctx context.Context, stopCodes []string) (map[string]*busdata.BusStopProfile, error) {
	rows, err := a.rest.FetchStopProfiles(ctx, stopCodes)
	if err != nil {
		return nil, err
	}

	results := map[string]*busdata.BusStopProfile{}
	for _, code := range stopCodes {
		row, found := rows[code]
		if !found {
			results[code] = nil
			continue
		}

		profile, err := busdata.NewBusStopProfile(row)
		if err != nil {
			continue
		}

		results[code] = profile
	}

	return results, nil
}

func containsString(values []string, value string) bool {
	for _, existing := range values {
		if existing == value {
			return true
		}
	}

	return false
}
