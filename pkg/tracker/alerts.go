package tracker

import (
	"context"
	"time"

	"github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"github.com/actlive/actlive/pkg/dataaggregator"
	"github.com/actlive/actlive/pkg/subscription"
)

func newAlertsPoller(aggregator *dataaggregator.Aggregator, interval time.Duration) *subscription.Poller[*gtfs.FeedMessage] {
	return subscription.NewPoller(
		"service-alerts",
		interval,
		func(ctx context.Context) (*gtfs.FeedMessage, error) {
			return aggregator.FetchServiceAlerts(ctx, "")
		},
	)
}
