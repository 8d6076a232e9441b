package busdata

import (
	"github.com/actlive/actlive/pkg/actrealtime"
	"github.com/actlive/actlive/pkg/upstreamerr"
)

// BusStopProfile identifies a physical stop under both of its keys:
// ID is the GTFS stop_id used by the realtime feeds, Code the public
// 5-digit code printed on the sign. Code is the primary lookup key.
type BusStopProfile struct {
	ID        string
	Code      string
	Name      string
	Latitude  float64
	Longitude float64
}

// NewBusStopProfile builds a profile from a raw stop row. A row with
// either identifier missing is a contract violation, not a recoverable
// upstream condition.
func NewBusStopProfile(row actrealtime.StopRow) (*BusStopProfile, error) {
	if row.GTFSID == "" {
		return nil, &upstreamerr.ValidationError{Message: "cannot create BusStopProfile without a GTFS stop id"}
	}

	if row.StopCode == "" {
		return nil, &upstreamerr.ValidationError{Message: "cannot create BusStopProfile without a stop code"}
	}

	return &BusStopProfile{
		ID:        row.GTFSID,
		Code:      row.StopCode,
		Name:      row.Name,
		Latitude:  row.Latitude.Value,
		Longitude: row.Longitude.Value,
	}, nil
}
