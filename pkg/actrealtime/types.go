package actrealtime

import (
	"encoding/json"
	"strconv"
	"strings"
)

// The BusTime API is loose about scalar types: numeric fields arrive
// as strings or numbers depending on endpoint and firmware. These
// flexible scalars absorb either form; anything unparsable decodes to
// the absent value so a bad field drops a row, never a batch.

// FlexString holds a JSON string or number as its string form.
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*f = ""
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var value string
		if err := json.Unmarshal(data, &value); err != nil {
			return nil
		}
		*f = FlexString(value)
		return nil
	}

	*f = FlexString(data)
	return nil
}

func (f FlexString) String() string {
	return string(f)
}

// FlexFloat holds a JSON string or number as a float, tracking
// presence separately so zero stays distinguishable from absent.
type FlexFloat struct {
	Value float64
	Valid bool
}

func (f *FlexFloat) UnmarshalJSON(data []byte) error {
	raw := string(data)
	if raw == "null" {
		return nil
	}

	if data[0] == '"' {
		var value string
		if err := json.Unmarshal(data, &value); err != nil {
			return nil
		}
		raw = strings.TrimSpace(value)
	}

	if raw == "" {
		return nil
	}

	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil
	}

	f.Value = value
	f.Valid = true

	return nil
}

// MarshalJSON is symmetric with UnmarshalJSON: the bare number when
// present, null when absent, so rows survive the cache round trip.
func (f FlexFloat) MarshalJSON() ([]byte, error) {
	if !f.Valid {
		return []byte("null"), nil
	}

	return json.Marshal(f.Value)
}

// StopRow is a raw stop profile row. stpid is the public 5-digit stop
// code; geoid is the GTFS stop_id. Unknown fields are ignored.
type StopRow struct {
	StopCode  string    `json:"stpid"`
	Name      string    `json:"stpnm"`
	GTFSID    string    `json:"geoid"`
	Latitude  FlexFloat `json:"lat"`
	Longitude FlexFloat `json:"lon"`
}

// PredictionRow is a raw arrival prediction row.
type PredictionRow struct {
	StopCode           string    `json:"stpid"`
	VehicleID          string    `json:"vid"`
	DistanceToStopFeet FlexFloat `json:"dstp"`
	RouteDirection     string    `json:"rtdir"`
	PredictedTime      string    `json:"prdtm"`
	TripID             string    `json:"tatripid"`
	Countdown          string    `json:"prdctdn"`
}

// VehicleRow is a raw vehicle position row. Speed is miles per hour.
type VehicleRow struct {
	VehicleID  string     `json:"vid"`
	RouteID    string     `json:"rt"`
	Timestamp  string     `json:"tmstmp"`
	Latitude   FlexString `json:"lat"`
	Longitude  FlexString `json:"lon"`
	Heading    FlexString `json:"hdg"`
	Speed      FlexString `json:"spd"`
	TripIDText string     `json:"tatripid"`
	TripID     FlexString `json:"tripid"`
}

type stopsResponse struct {
	BustimeResponse struct {
		Stops []StopRow `json:"stops"`
	} `json:"bustime-response"`
}

type predictionsResponse struct {
	BustimeResponse struct {
		Predictions []PredictionRow `json:"prd"`
	} `json:"bustime-response"`
}

type vehiclesResponse struct {
	BustimeResponse struct {
		Vehicles []VehicleRow `json:"vehicle"`
	} `json:"bustime-response"`
}

type systemTimeResponse struct {
	BustimeResponse struct {
		Time FlexString `json:"tm"`
	} `json:"bustime-response"`
}
