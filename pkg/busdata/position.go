// Package busdata holds the canonical entities served to subscribers
// and the normalizers that build them from raw upstream records.
// Entities are immutable value objects constructed fresh on every
// fetch; a record that cannot satisfy an entity's invariants is
// dropped, never partially constructed.
package busdata

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"

	"github.com/actlive/actlive/pkg/actrealtime"
)

// REST speeds are miles per hour; canonical speed is meters per
// second. Feed speeds are already meters per second.
const milesPerHourToMetersPerSecond = 0.44704

type BusPosition struct {
	VehicleID            string
	RouteID              string
	Latitude             float64
	Longitude            float64
	Heading              *float64
	SpeedMetersPerSecond *float64
	TripID               *string
	StopSequence         *int
	Timestamp            time.Time
}

// PositionsFromRest normalizes raw REST vehicle rows. Rows missing a
// vehicle id, route id or finite coordinates are dropped; heading and
// speed are optional. Results are sorted ascending by vehicle id.
func PositionsFromRest(rows []actrealtime.VehicleRow) []BusPosition {
	positions := []BusPosition{}

	for _, row := range rows {
		vehicleID := strings.TrimSpace(row.VehicleID)
		routeID := strings.TrimSpace(row.RouteID)
		latitude := parseFiniteNumber(row.Latitude.String())
		longitude := parseFiniteNumber(row.Longitude.String())

		if vehicleID == "" || routeID == "" || latitude == nil || longitude == nil {
			continue
		}

		speed := parseFiniteNumber(row.Speed.String())
		if speed != nil {
			converted := *speed * milesPerHourToMetersPerSecond
			speed = &converted
		}

		positions = append(positions, BusPosition{
			VehicleID:            vehicleID,
			RouteID:              routeID,
			Latitude:             *latitude,
			Longitude:            *longitude,
			Heading:              parseFiniteNumber(row.Heading.String()),
			SpeedMetersPerSecond: speed,
			TripID:               resolveTripID(row),
			Timestamp:            actrealtime.ParseTimestamp(row.Timestamp),
		})
	}

	sortPositions(positions)

	return positions
}

// PositionsFromFeed normalizes GTFS-Realtime vehicle entities. The
// vehicle id prefers the vehicle descriptor, falling back to the
// entity id; the timestamp prefers the entity's own, falling back to
// the feed header, falling back to now.
func PositionsFromFeed(feed *gtfs.FeedMessage) []BusPosition {
	positions := []BusPosition{}
	headerTimestamp := feed.GetHeader().GetTimestamp()

	for _, entity := range feed.GetEntity() {
		vehicle := entity.GetVehicle()
		if vehicle == nil || vehicle.GetPosition() == nil {
			continue
		}

		vehicleID := vehicle.GetVehicle().GetId()
		if vehicleID == "" {
			vehicleID = entity.GetId()
		}

		routeID := vehicle.GetTrip().GetRouteId()

		latitude := float64(vehicle.GetPosition().GetLatitude())
		longitude := float64(vehicle.GetPosition().GetLongitude())

		if vehicleID == "" || routeID == "" || !isFinite(latitude) || !isFinite(longitude) {
			continue
		}

		position := BusPosition{
			VehicleID: vehicleID,
			RouteID:   routeID,
			Latitude:  latitude,
			Longitude: longitude,
			Timestamp: feedEntityTimestamp(vehicle.Timestamp, headerTimestamp),
		}

		if vehicle.GetPosition().Bearing != nil {
			if heading := float64(vehicle.GetPosition().GetBearing()); isFinite(heading) {
				position.Heading = &heading
			}
		}

		if vehicle.GetPosition().Speed != nil {
			if speed := float64(vehicle.GetPosition().GetSpeed()); isFinite(speed) {
				position.SpeedMetersPerSecond = &speed
			}
		}

		if vehicle.CurrentStopSequence != nil {
			sequence := int(vehicle.GetCurrentStopSequence())
			position.StopSequence = &sequence
		}

		if tripID := vehicle.GetTrip().GetTripId(); tripID != "" {
			position.TripID = &tripID
		}

		positions = append(positions, position)
	}

	sortPositions(positions)

	return positions
}

func sortPositions(positions []BusPosition) {
	sort.Slice(positions, func(i, j int) bool {
		return positions[i].VehicleID < positions[j].VehicleID
	})
}

func feedEntityTimestamp(entityTimestamp *uint64, headerTimestamp uint64) time.Time {
	if entityTimestamp != nil && *entityTimestamp > 0 {
		return time.Unix(int64(*entityTimestamp), 0)
	}

	if headerTimestamp > 0 {
		return time.Unix(int64(headerTimestamp), 0)
	}

	return time.Now()
}

// resolveTripID prefers the trimmed string trip id, falling back to
// the numeric field's string form.
func resolveTripID(row actrealtime.VehicleRow) *string {
	if trimmed := strings.TrimSpace(row.TripIDText); trimmed != "" {
		return &trimmed
	}

	if numeric := strings.TrimSpace(row.TripID.String()); numeric != "" {
		return &numeric
	}

	return nil
}

func parseFiniteNumber(value string) *float64 {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}

	parsed, err := strconv.ParseFloat(trimmed, 64)
	if err != nil || !isFinite(parsed) {
		return nil
	}

	return &parsed
}

func isFinite(value float64) bool {
	return !math.IsNaN(value) && !math.IsInf(value, 0)
}
