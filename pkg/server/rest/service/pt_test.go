package service

import (
	"context"
	"fmt"
	"testing"

	gtfsrt "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"github.com/lintang-b-s/navigatorx-pt/pkg/engine/ptrouter"
	"github.com/lintang-b-s/navigatorx-pt/pkg/realtime"
	"github.com/lintang-b-s/navigatorx-pt/pkg/server"
	"github.com/lintang-b-s/navigatorx-pt/pkg/snap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"
)

type fakeRouter struct {
	err error
}

func (f fakeRouter) Route(ctx context.Context, req ptrouter.Request) (ptrouter.Response, error) {
	if f.err != nil {
		return ptrouter.Response{}, f.err
	}
	return ptrouter.Response{Trips: []ptrouter.Trip{{NumTransfers: 1}}, VisitedNodes: 42}, nil
}

func (f fakeRouter) RouteTripBased(ctx context.Context, req ptrouter.Request) (ptrouter.Response, error) {
	return f.Route(ctx, req)
}

type fakePublisher struct {
	updated map[string]*gtfsrt.FeedMessage
}

func (p *fakePublisher) Update(feedID string, message *gtfsrt.FeedMessage) *realtime.Feed {
	p.updated[feedID] = message
	return nil
}

func (p *fakePublisher) Load() *realtime.Feed {
	return nil
}

func TestRouteMapsErrors(t *testing.T) {
	tests := []struct {
		err  error
		code server.ErrorCode
	}{
		{fmt.Errorf("origin: %w", snap.ErrNoStreetNode), server.ErrNotFound},
		{fmt.Errorf("%w: missing departure time", ptrouter.ErrInvalidRequest), server.ErrBadParamInput},
		{ptrouter.ErrArriveByUnsupported, server.ErrBadParamInput},
		{ptrouter.ErrTripBasedDisabled, server.ErrUnavailable},
		{context.Canceled, server.ErrUnavailable},
		{fmt.Errorf("disk on fire"), server.ErrInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			svc := NewPtService(fakeRouter{err: tt.err}, snap.NewStationIndex(), nil, nil)
			_, err := svc.Route(context.Background(), ptrouter.Request{})
			assert.Equal(t, tt.code, server.CodeOf(err))
			assert.ErrorIs(t, err, tt.err)

			_, err = svc.RouteTripBased(context.Background(), ptrouter.Request{})
			assert.Equal(t, tt.code, server.CodeOf(err))
		})
	}
}

func TestRoute(t *testing.T) {
	svc := NewPtService(fakeRouter{}, snap.NewStationIndex(), nil, nil)
	resp, err := svc.Route(context.Background(), ptrouter.Request{})
	require.NoError(t, err)
	assert.Len(t, resp.Trips, 1)
	assert.Equal(t, 42, resp.VisitedNodes)
}

func TestNearestStations(t *testing.T) {
	index := snap.NewStationIndex()
	index.Insert(snap.Station{Node: 0, FeedID: "f", StopID: "tugu", Lat: -7.7829, Lon: 110.3671})
	index.Insert(snap.Station{Node: 1, FeedID: "f", StopID: "malioboro", Lat: -7.7925, Lon: 110.3658})
	index.Insert(snap.Station{Node: 2, FeedID: "f", StopID: "prambanan", Lat: -7.7520, Lon: 110.4915})
	svc := NewPtService(fakeRouter{}, index, nil, nil)

	stations, err := svc.NearestStations(context.Background(), -7.7830, 110.3670, 0, 2)
	require.NoError(t, err)
	require.Len(t, stations, 2)
	assert.Equal(t, "tugu", stations[0].StopID)
	assert.Equal(t, "malioboro", stations[1].StopID)

	stations, err = svc.NearestStations(context.Background(), -7.7830, 110.3670, 0.5, 5)
	require.NoError(t, err)
	require.Len(t, stations, 1)
	assert.Equal(t, "tugu", stations[0].StopID)

	_, err = svc.NearestStations(context.Background(), -6.2, 106.8, 1, 5)
	assert.Equal(t, server.ErrNotFound, server.CodeOf(err))
}

func TestUpdateRealtime(t *testing.T) {
	pub := &fakePublisher{updated: make(map[string]*gtfsrt.FeedMessage)}
	svc := NewPtService(fakeRouter{}, snap.NewStationIndex(), pub, []string{"transjogja"})

	body, err := proto.Marshal(&gtfsrt.FeedMessage{
		Header: &gtfsrt.FeedHeader{GtfsRealtimeVersion: proto.String("2.0"), Timestamp: proto.Uint64(1709625600)},
	})
	require.NoError(t, err)

	_, err = svc.UpdateRealtime(context.Background(), "transjogja", body)
	require.NoError(t, err)
	require.Contains(t, pub.updated, "transjogja")
	assert.Equal(t, uint64(1709625600), pub.updated["transjogja"].GetHeader().GetTimestamp())

	_, err = svc.UpdateRealtime(context.Background(), "krl", body)
	assert.Equal(t, server.ErrNotFound, server.CodeOf(err))

	_, err = svc.UpdateRealtime(context.Background(), "transjogja", []byte{0xff, 0xff, 0xff})
	assert.Equal(t, server.ErrBadParamInput, server.CodeOf(err))

	disabled := NewPtService(fakeRouter{}, snap.NewStationIndex(), nil, nil)
	_, err = disabled.UpdateRealtime(context.Background(), "transjogja", body)
	assert.Equal(t, server.ErrUnavailable, server.CodeOf(err))
}
