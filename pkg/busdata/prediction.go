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

type BusStopPrediction struct {
	VehicleID          string
	TripID             string
	ArrivalTime        time.Time
	DepartureTime      time.Time
	MinutesAway        int
	IsOutbound         bool
	DistanceToStopFeet *float64
}

// The outbound/inbound split is a keyword heuristic on the upstream's
// free-text direction strings, tied to this system's terminus names.
// It is a business rule; do not replace it with a geometric
// definition.
var outboundKeywords = []string{"away", "amtrak"}

func isOutboundDirection(routeDirection string) bool {
	lowered := strings.ToLower(routeDirection)

	for _, keyword := range outboundKeywords {
		if strings.Contains(lowered, keyword) {
			return true
		}
	}

	return false
}

// PredictionsFromRest normalizes raw REST prediction rows matching the
// requested direction. Rows missing a vehicle id or a predicted time
// are dropped. Results are sorted ascending by arrival time.
func PredictionsFromRest(rows []actrealtime.PredictionRow, outbound bool) []BusStopPrediction {
	predictions := []BusStopPrediction{}

	for _, row := range rows {
		if isOutboundDirection(row.RouteDirection) != outbound {
			continue
		}

		if row.VehicleID == "" || row.PredictedTime == "" {
			continue
		}

		predictedTime := actrealtime.ParseTimestamp(row.PredictedTime)

		prediction := BusStopPrediction{
			VehicleID:     row.VehicleID,
			TripID:        row.TripID,
			ArrivalTime:   predictedTime,
			DepartureTime: predictedTime,
			MinutesAway:   parseCountdown(row.Countdown),
			IsOutbound:    outbound,
		}

		if row.DistanceToStopFeet.Valid && isFinite(row.DistanceToStopFeet.Value) {
			distance := row.DistanceToStopFeet.Value
			prediction.DistanceToStopFeet = &distance
		}

		predictions = append(predictions, prediction)
	}

	sortPredictions(predictions)

	return predictions
}

// parseCountdown reads the upstream countdown field: "Due" and
// anything non-numeric mean the bus is here, and negative minutes
// clamp to zero.
func parseCountdown(value string) int {
	minutes, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || minutes < 0 {
		return 0
	}

	return minutes
}

// PredictionsFromFeed flattens GTFS trip updates into one prediction
// per stop-time update, matching the requested direction (direction id
// 1 is outbound). Updates with an empty stop id, no usable time, or no
// vehicle id on the trip update are dropped. Results are sorted
// ascending by arrival time.
func PredictionsFromFeed(feed *gtfs.FeedMessage, outbound bool) []BusStopPrediction {
	predictions := []BusStopPrediction{}
	now := time.Now()

	for _, entity := range feed.GetEntity() {
		tripUpdate := entity.GetTripUpdate()
		if tripUpdate == nil {
			continue
		}

		if (tripUpdate.GetTrip().GetDirectionId() == 1) != outbound {
			continue
		}

		vehicleID := tripUpdate.GetVehicle().GetId()
		if vehicleID == "" {
			continue
		}

		tripID := tripUpdate.GetTrip().GetTripId()

		for _, update := range tripUpdate.GetStopTimeUpdate() {
			if update.GetStopId() == "" {
				continue
			}

			arrivalUnix := update.GetArrival().GetTime()
			departureUnix := update.GetDeparture().GetTime()

			// Arrival and departure fall back to one another when one
			// is absent.
			if arrivalUnix == 0 {
				arrivalUnix = departureUnix
			}
			if departureUnix == 0 {
				departureUnix = arrivalUnix
			}

			if arrivalUnix == 0 {
				continue
			}

			arrival := time.Unix(arrivalUnix, 0)

			predictions = append(predictions, BusStopPrediction{
				VehicleID:     vehicleID,
				TripID:        tripID,
				ArrivalTime:   arrival,
				DepartureTime: time.Unix(departureUnix, 0),
				MinutesAway:   minutesUntil(now, arrival),
				IsOutbound:    outbound,
			})
		}
	}

	sortPredictions(predictions)

	return predictions
}

func minutesUntil(now time.Time, arrival time.Time) int {
	minutes := int(math.Ceil(arrival.Sub(now).Seconds() / 60))
	if minutes < 0 {
		return 0
	}

	return minutes
}

func sortPredictions(predictions []BusStopPrediction) {
	sort.Slice(predictions, func(i, j int) bool {
		return predictions[i].ArrivalTime.Before(predictions[j].ArrivalTime)
	})
}
