package tracker

import (
	"context"
	"sync"

	"github.com/actlive/actlive/pkg/busdata"
	"github.com/actlive/actlive/pkg/config"
	"github.com/actlive/actlive/pkg/dataaggregator"
	"github.com/rs/zerolog/log"
)

// Tracker runs long-lived subscriptions for every configured route and logs
// each emission. It is the always-on consumer of the live streams.
type Tracker struct {
	Config     *config.Config
	Aggregator *dataaggregator.Aggregator
}

func (t Tracker) Run(ctx context.Context) {
	log.Info().Msg("Starting live vehicle & alerts tracker")

	if len(t.Config.TrackedRoutes) == 0 {
		log.Fatal().Msg("No tracked routes configured")
	}

	var wg sync.WaitGroup

	for _, routeID := range t.Config.TrackedRoutes {
		log.Info().
			Str("route", routeID).
			Dur("interval", t.Config.PollingInterval).
			Msg("Registered route")

		_, positions := t.Aggregator.SubscribeBusPositions(ctx, routeID, t.Config.PollingInterval)

		wg.Add(1)
		go func(routeID string) {
			defer wg.Done()
			t.consumePositions(routeID, positions)
		}(routeID)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		t.trackAlerts(ctx)
	}()

	wg.Wait()
}

func (t Tracker) consumePositions(routeID string, positions <-chan []busdata.BusPosition) {
	for batch := range positions {
		log.Info().
			Str("route", routeID).
			Int("vehicles", len(batch)).
			Msg("Vehicle positions updated")

		for _, position := range batch {
			log.Debug().
				Str("route", routeID).
				Str("vehicle", position.VehicleID).
				Float64("latitude", position.Latitude).
				Float64("longitude", position.Longitude).
				Time("timestamp", position.Timestamp).
				Msg("Vehicle position")
		}
	}
}

func (t Tracker) trackAlerts(ctx context.Context) {
	poller := newAlertsPoller(t.Aggregator, t.Config.AlertsPollingInterval)

	for feed := range poller.Start(ctx) {
		log.Info().
			Int("entities", len(feed.GetEntity())).
			Msg("Service alerts updated")
	}
}
