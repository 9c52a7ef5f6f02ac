package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/lintang-b-s/navigatorx-pt/pkg/engine/ptrouter"
	"github.com/lintang-b-s/navigatorx-pt/pkg/server"
	"github.com/lintang-b-s/navigatorx-pt/pkg/server/rest/service"
	"github.com/lintang-b-s/navigatorx-pt/pkg/snap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePtService struct {
	lastRequest ptrouter.Request
	routeErr    error
	uploads     map[string][]byte
}

func (f *fakePtService) Route(ctx context.Context, req ptrouter.Request) (ptrouter.Response, error) {
	f.lastRequest = req
	if f.routeErr != nil {
		return ptrouter.Response{}, f.routeErr
	}
	dep := req.EarliestDepartureTime
	return ptrouter.Response{
		Trips: []ptrouter.Trip{{
			Legs:          []ptrouter.Leg{{Type: ptrouter.LegWalk, DepartureTime: dep, ArrivalTime: dep.Add(5 * time.Minute)}},
			DepartureTime: dep,
			ArrivalTime:   dep.Add(5 * time.Minute),
			WalkTime:      5 * time.Minute,
		}},
		VisitedNodes: 12,
	}, nil
}

func (f *fakePtService) RouteTripBased(ctx context.Context, req ptrouter.Request) (ptrouter.Response, error) {
	return ptrouter.Response{}, server.WrapErrorf(ptrouter.ErrTripBasedDisabled, server.ErrUnavailable, "trip based routing is not enabled on this server")
}

func (f *fakePtService) NearestStations(ctx context.Context, lat, lon, radiusKm float64, k int) ([]snap.Station, error) {
	return []snap.Station{{FeedID: "transjogja", StopID: "tugu", Lat: lat, Lon: lon}}, nil
}

func (f *fakePtService) UpdateRealtime(ctx context.Context, feedID string, body []byte) (service.RealtimeSnapshot, error) {
	f.uploads[feedID] = body
	return service.RealtimeSnapshot{ID: "snap-1", AdditionalEdges: 3}, nil
}

func (f *fakePtService) CurrentRealtime(ctx context.Context) (service.RealtimeSnapshot, error) {
	return service.RealtimeSnapshot{ID: "snap-1"}, nil
}

func newTestRouter(svc PtService) *chi.Mux {
	r := chi.NewRouter()
	PtRouter(r, svc)
	return r
}

func postJSON(t *testing.T, r http.Handler, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func validRouteRequest() RouteRequest {
	return RouteRequest{
		SrcLat:            -7.7780,
		SrcLon:            110.3671,
		DstLat:            -7.8100,
		DstLon:            110.3642,
		DepartureTime:     "2024-03-05T08:00:00+07:00",
		BlockedRouteTypes: []int{2, 3},
	}
}

func TestRouteHandler(t *testing.T) {
	svc := &fakePtService{}
	rec := postJSON(t, newTestRouter(svc), "/api/pt/route", validRouteRequest())
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp RouteResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Trips, 1)
	assert.Equal(t, 300.0, resp.Trips[0].DurationSeconds)
	assert.Equal(t, 300.0, resp.Trips[0].WalkTimeSeconds)
	assert.Equal(t, 12, resp.VisitedNodes)

	assert.Equal(t, 1<<2|1<<3, svc.lastRequest.BlockedRouteTypes)
	assert.Equal(t, -7.7780, svc.lastRequest.FromLat)
	_, offset := svc.lastRequest.EarliestDepartureTime.Zone()
	assert.Equal(t, 7*3600, offset)
}

func TestRouteHandlerRejectsBadRequests(t *testing.T) {
	r := newTestRouter(&fakePtService{})

	noTime := validRouteRequest()
	noTime.DepartureTime = ""
	assert.Equal(t, http.StatusBadRequest, postJSON(t, r, "/api/pt/route", noTime).Code)

	badTime := validRouteRequest()
	badTime.DepartureTime = "tomorrow morning"
	assert.Equal(t, http.StatusBadRequest, postJSON(t, r, "/api/pt/route", badTime).Code)

	badLat := validRouteRequest()
	badLat.SrcLat = 95
	rec := postJSON(t, r, "/api/pt/route", badLat)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var errResp ErrResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errResp))
	assert.NotEmpty(t, errResp.ErrValidation)
}

func TestRouteHandlerMapsServiceErrors(t *testing.T) {
	svc := &fakePtService{routeErr: server.WrapErrorf(snap.ErrNoStreetNode, server.ErrNotFound, "not covered")}
	rec := postJSON(t, newTestRouter(svc), "/api/pt/route", validRouteRequest())
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = postJSON(t, newTestRouter(svc), "/api/pt/route-trip-based", validRouteRequest())
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	svc.routeErr = server.WrapErrorf(context.DeadlineExceeded, server.ErrInternalServerError, "internal server error")
	rec = postJSON(t, newTestRouter(svc), "/api/pt/route", validRouteRequest())
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestNearestStationsHandler(t *testing.T) {
	r := newTestRouter(&fakePtService{})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/pt/stations/nearest?lat=-7.78&lon=110.36&k=3", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var resp NearestStationsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Stations, 1)
	assert.Equal(t, "tugu", resp.Stations[0].StopID)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/pt/stations/nearest?lat=abc&lon=110.36", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/pt/stations/nearest?lat=-7.78&lon=110.36&k=1000", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateRealtimeHandler(t *testing.T) {
	svc := &fakePtService{uploads: make(map[string][]byte)}
	r := newTestRouter(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/pt/realtime/transjogja", bytes.NewReader([]byte{0x0a, 0x00}))
	req.Header.Set("Content-Type", "application/x-protobuf")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, []byte{0x0a, 0x00}, svc.uploads["transjogja"])

	var resp RealtimeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "snap-1", resp.ID)
	assert.Equal(t, 3, resp.AdditionalEdges)
}
