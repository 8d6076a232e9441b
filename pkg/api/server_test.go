package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/actlive/actlive/pkg/actrealtime"
	"github.com/actlive/actlive/pkg/config"
	"github.com/actlive/actlive/pkg/dataaggregator"
	"github.com/actlive/actlive/pkg/gtfsrt"
	"github.com/gofiber/fiber/v2"
)

func newTestApp(t *testing.T, handler http.HandlerFunc) *fiber.App {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := &config.Config{
		RestAPIBaseURL: server.URL,
		FeedAPIBaseURL: server.URL,
		APIToken:       "test-token",
		HTTPTimeout:    5 * time.Second,
		RestChunkSize:  10,
	}

	aggregator := dataaggregator.New(cfg, actrealtime.NewClient(cfg, nil), gtfsrt.NewClient(cfg, nil))

	return NewServer(aggregator)
}

func TestAPIVersion(t *testing.T) {
	app := newTestApp(t, func(w http.ResponseWriter, r *http.Request) {})

	response, err := app.Test(httptest.NewRequest(http.MethodGet, "/core/version", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	if response.StatusCode != fiber.StatusOK {
		t.Errorf("status = %d, want 200", response.StatusCode)
	}

	var body map[string]string
	if err := json.NewDecoder(response.Body).Decode(&body); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if body["version"] == "" {
		t.Error("version missing from response")
	}
}

func TestGetStop(t *testing.T) {
	app := newTestApp(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"bustime-response":{"stops":[
			{"stpid":"55555","stpnm":"College Av & Ashby Av","geoid":"9902350","lat":37.86,"lon":-122.25}
		]}}`)
	})

	response, err := app.Test(httptest.NewRequest(http.MethodGet, "/core/stops/55555", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	if response.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", response.StatusCode)
	}

	var body struct {
		ID   string
		Code string
	}
	if err := json.NewDecoder(response.Body).Decode(&body); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if body.ID != "9902350" || body.Code != "55555" {
		t.Errorf("unexpected body %+v", body)
	}
}

func TestGetStopUnknownIs404(t *testing.T) {
	app := newTestApp(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"bustime-response":{"stops":[]}}`)
	})

	response, err := app.Test(httptest.NewRequest(http.MethodGet, "/core/stops/99999", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	if response.StatusCode != fiber.StatusNotFound {
		t.Errorf("status = %d, want 404", response.StatusCode)
	}
}

func TestGetStopPredictions(t *testing.T) {
	app := newTestApp(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("rt") != "51B" {
			t.Errorf("rt = %q, want 51B", r.URL.Query().Get("rt"))
		}

		fmt.Fprint(w, `{"bustime-response":{"prd":[
			{"stpid":"55555","vid":"1409","rtdir":"Away from Downtown","prdtm":"20240701 12:40","prdctdn":"6"},
			{"stpid":"55555","vid":"1210","rtdir":"To Downtown","prdtm":"20240701 12:36","prdctdn":"2"}
		]}}`)
	})

	request := httptest.NewRequest(http.MethodGet, "/core/stops/55555/predictions?route=51B&direction=outbound", nil)
	response, err := app.Test(request)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	if response.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", response.StatusCode)
	}

	var body []struct {
		VehicleID  string
		IsOutbound bool
	}
	if err := json.NewDecoder(response.Body).Decode(&body); err != nil {
		t.Fatalf("decoding body: %v", err)
	}

	if len(body) != 1 || body[0].VehicleID != "1409" || !body[0].IsOutbound {
		t.Errorf("unexpected body %+v", body)
	}
}

func TestGetRoutePositions(t *testing.T) {
	app := newTestApp(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"bustime-response":{"vehicle":[
			{"vid":"1409","rt":"51B","tmstmp":"20240701 12:34","lat":"37.87","lon":"-122.26"}
		]}}`)
	})

	response, err := app.Test(httptest.NewRequest(http.MethodGet, "/core/routes/51B/positions", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	if response.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", response.StatusCode)
	}

	var body []struct {
		VehicleID string
		RouteID   string
	}
	if err := json.NewDecoder(response.Body).Decode(&body); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if len(body) != 1 || body[0].VehicleID != "1409" {
		t.Errorf("unexpected body %+v", body)
	}
}

func TestUpstreamFailureMapsTo503(t *testing.T) {
	app := newTestApp(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	response, err := app.Test(httptest.NewRequest(http.MethodGet, "/core/routes/51B/positions", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	if response.StatusCode != fiber.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", response.StatusCode)
	}
}

func TestUndecodableFeedMapsTo500(t *testing.T) {
	app := newTestApp(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("this is not a protobuf message at all"))
	})

	response, err := app.Test(httptest.NewRequest(http.MethodGet, "/core/routes/51B/positions?source=feed", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	if response.StatusCode != fiber.StatusInternalServerError {
		t.Errorf("status = %d, want 500", response.StatusCode)
	}
}

func TestGetSystemTime(t *testing.T) {
	app := newTestApp(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"bustime-response":{"tm":"1719862440000"}}`)
	})

	response, err := app.Test(httptest.NewRequest(http.MethodGet, "/core/time", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	if response.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", response.StatusCode)
	}

	var body map[string]string
	if err := json.NewDecoder(response.Body).Decode(&body); err != nil {
		t.Fatalf("decoding body: %v", err)
	}

	want := time.UnixMilli(1719862440000).UTC().Format(time.RFC3339)
	if body["time"] != want {
		t.Errorf("time = %q, want %q", body["time"], want)
	}
}
