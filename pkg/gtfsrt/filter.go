package gtfsrt

import (
	"github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"

	"github.com/actlive/actlive/pkg/util"
)

// FilterByRoute keeps the entities whose vehicle, trip-update or alert
// payload references routeID. The header is carried over unchanged.
func FilterByRoute(feed *gtfs.FeedMessage, routeID string) *gtfs.FeedMessage {
	var entities []*gtfs.FeedEntity

	for _, entity := range feed.GetEntity() {
		if entityReferencesRoute(entity, routeID) {
			entities = append(entities, entity)
		}
	}

	return &gtfs.FeedMessage{
		Header: feed.GetHeader(),
		Entity: entities,
	}
}

func entityReferencesRoute(entity *gtfs.FeedEntity, routeID string) bool {
	if entity.GetVehicle().GetTrip().GetRouteId() == routeID {
		return true
	}

	if entity.GetTripUpdate().GetTrip().GetRouteId() == routeID {
		return true
	}

	for _, informed := range entity.GetAlert().GetInformedEntity() {
		if informed.GetRouteId() == routeID {
			return true
		}
	}

	return false
}

// FilterTripUpdatesByStop restricts each trip update's stop-time
// updates to stopID. Trip updates left with no stop-time updates are
// dropped, as is any entity without a trip-update payload; once a stop
// filter is requested only matching trip updates are meaningful.
func FilterTripUpdatesByStop(feed *gtfs.FeedMessage, stopID string) *gtfs.FeedMessage {
	var entities []*gtfs.FeedEntity

	for _, entity := range feed.GetEntity() {
		tripUpdate := entity.GetTripUpdate()
		if tripUpdate == nil {
			continue
		}

		// The feed was decoded for this call alone, so the trip update
		// can be narrowed in place.
		util.InPlaceFilter(&tripUpdate.StopTimeUpdate, func(update *gtfs.TripUpdate_StopTimeUpdate) bool {
			return update.GetStopId() == stopID
		})

		if len(tripUpdate.StopTimeUpdate) == 0 {
			continue
		}

		entities = append(entities, entity)
	}

	return &gtfs.FeedMessage{
		Header: feed.GetHeader(),
		Entity: entities,
	}
}
