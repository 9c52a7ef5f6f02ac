package tripbased

import (
	"testing"

	"github.com/lintang-b-s/navigatorx-pt/pkg/gtfs"
	"github.com/lintang-b-s/navigatorx-pt/pkg/logger"
	"github.com/lintang-b-s/navigatorx-pt/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPatternsGroupTripsByDeparture(t *testing.T) {
	n := newNetwork(t, buildFeed(t, ""))

	patterns := n.trips.PatternBoardings(stop("B"))
	require.Len(t, patterns, 2, "a1 and the b pattern serve B")
	var bPattern PatternBoardings
	for _, p := range patterns {
		if len(p.Boardings) == 3 {
			bPattern = p
		}
	}
	require.Len(t, bPattern.Boardings, 3)
	assert.Equal(t, n.run("b2", "").Idx, bPattern.Boardings[0].TripIdx)
	assert.Equal(t, n.run("b1", "").Idx, bPattern.Boardings[1].TripIdx)
	assert.Equal(t, n.run("b3", "").Idx, bPattern.Boardings[2].TripIdx)

	b2 := n.run("b2", "")
	assert.Equal(t, b2.Idx+3, b2.EndIdxOfPattern)
	assert.Equal(t, b2.EndIdxOfPattern, n.run("b3", "").EndIdxOfPattern)
}

func TestFrequencyTripsAreUnrolled(t *testing.T) {
	n := newNetwork(t, buildFeed(t, ""))

	first := n.run("f1", "00:16:40")
	second := n.run("f1", "00:25:00")
	assert.Equal(t, first.Idx+1, second.Idx)

	st, ok := first.StopTime(2)
	require.True(t, ok)
	assert.Equal(t, 1300, st.ArrivalTime)
	st, ok = second.StopTime(2)
	require.True(t, ok)
	assert.Equal(t, 1800, st.ArrivalTime)

	_, ok = first.StopTime(0)
	assert.False(t, ok, "stop_sequence starts at 1")
	assert.Equal(t, "f1", first.Descriptor.TripID)
}

func TestTripTransfersPruneByArrivalTime(t *testing.T) {
	n := newNetwork(t, buildFeed(t, ""))
	tt, err := n.index.TripTransfers(serviceDay)
	require.NoError(t, err)

	a1 := n.run("a1", "")
	atB := TripAtStopTime{FeedID: "f", TripIdx: a1.Idx, StopSequence: 2}
	atC := TripAtStopTime{FeedID: "f", TripIdx: a1.Idx, StopSequence: 3}

	// b2 left before a1 arrives, b3 reaches D later than b1
	assert.Equal(t, []TripAtStopTime{{FeedID: "f", TripIdx: n.run("b1", "").Idx, StopSequence: 1}}, tt[atB])
	assert.Equal(t, []TripAtStopTime{{FeedID: "f", TripIdx: n.run("f1", "00:16:40").Idx, StopSequence: 1}}, tt[atC])

	_, ok := tt[TripAtStopTime{FeedID: "f", TripIdx: a1.Idx, StopSequence: 1}]
	assert.False(t, ok, "no transfers from the first stop")
}

func TestTripTransfersHonourMinTransferTime(t *testing.T) {
	rule := gtfs.Transfer{FromStopID: "B", ToStopID: "B", Type: gtfs.TransferMinTime, MinTransferTime: 200, HasMinTransferTime: true}
	n := newNetwork(t, buildFeed(t, "", rule))
	tt, err := n.index.TripTransfers(serviceDay)
	require.NoError(t, err)

	// b1 departs 100 s after the arrival, b3 does not beat the f1 ride to D
	atB := TripAtStopTime{FeedID: "f", TripIdx: n.run("a1", "").Idx, StopSequence: 2}
	assert.Empty(t, tt[atB])
}

func TestTripTransfersOnInactiveDay(t *testing.T) {
	n := newNetwork(t, buildFeed(t, ""))
	tt, err := n.index.TripTransfers(serviceDay.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Empty(t, tt)
}

func TestTripTransfersUseInterpolatedTransfers(t *testing.T) {
	n := newNetwork(t, buildFeed(t, ""), func(st *storage.GtfsStorage) {
		st.InterpolatedTransfers[stop("C")] = []storage.InterpolatedTransfer{{
			FromPlatform: platformOf("C"),
			ToPlatform:   platformOf("E"),
			StreetTime:   60,
		}}
	})
	tt, err := n.index.TripTransfers(serviceDay)
	require.NoError(t, err)

	atC := TripAtStopTime{FeedID: "f", TripIdx: n.run("a1", "").Idx, StopSequence: 3}
	assert.Contains(t, tt[atC], TripAtStopTime{FeedID: "f", TripIdx: n.run("e1", "").Idx, StopSequence: 1})
}

func TestTripTransfersArePersisted(t *testing.T) {
	store, err := OpenInMemoryTransferStore()
	require.NoError(t, err)
	defer store.Close()

	n := newNetwork(t, buildFeed(t, ""))
	index := NewTripTransferIndex(n.trips, TransferConfig{}, store, logger.Nop())
	computed, err := index.TripTransfers(serviceDay)
	require.NoError(t, err)

	loaded, err := store.Load("20240305")
	require.NoError(t, err)
	assert.Equal(t, computed, loaded)

	_, err = store.Load("20240306")
	assert.ErrorIs(t, err, ErrNotFound)

	// a new index reads the stored day
	warm := NewTripTransferIndex(n.trips, TransferConfig{}, store, logger.Nop())
	again, err := warm.TripTransfers(serviceDay)
	require.NoError(t, err)
	assert.Equal(t, computed, again)
}

func TestOriginKeyWithSlashInFeedID(t *testing.T) {
	origin := TripAtStopTime{FeedID: "id/jakarta", TripIdx: 12, StopSequence: 4}
	key := string(originKey("20240305", origin))
	assert.Equal(t, "tt/20240305/id/jakarta/12/4", key)

	parsed, err := parseOriginKey(key[len("tt/20240305/"):])
	require.NoError(t, err)
	assert.Equal(t, origin, parsed)
}
