package dataset

import (
	"path/filepath"
	"testing"

	"github.com/lintang-b-s/navigatorx-pt/pkg/datastructure"
	"github.com/lintang-b-s/navigatorx-pt/pkg/gtfs"
	"github.com/lintang-b-s/navigatorx-pt/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPaths(t *testing.T) {
	p := NewPaths("data")
	assert.Equal(t, filepath.Join("data", "street_graph.zst"), p.StreetGraph)
	assert.Equal(t, filepath.Join("data", "pt_graph.zst"), p.PtGraph)
	assert.Equal(t, filepath.Join("data", "navigatorx-pt-kv"), p.KV)
	assert.Equal(t, filepath.Join("data", "navigatorx-pt-triptransfers"), p.TripTransfers)
}

func TestBuildStationIndex(t *testing.T) {
	feed := gtfs.NewFeed("transjogja")
	feed.AddStop(gtfs.Stop{ID: "tugu", Name: "Halte Tugu", Lat: -7.7829, Lon: 110.3671})
	feed.AddStop(gtfs.Stop{ID: "malioboro", Name: "Halte Malioboro", Lat: -7.7925, Lon: 110.3658})
	feed.AddStop(gtfs.Stop{ID: "unsnapped", Name: "Halte Jauh", Lat: -7.9, Lon: 110.5})
	feed.AddStop(gtfs.Stop{ID: "station", Name: "Stasiun", Lat: -7.7890, Lon: 110.3630, LocationType: 1})

	st := storage.NewGtfsStorage()
	st.AddFeed(feed)
	key := func(id string) datastructure.FeedIDWithStopID {
		return datastructure.FeedIDWithStopID{FeedID: "transjogja", StopID: id}
	}
	st.StationNodes[key("tugu")] = 0
	st.StationNodes[key("malioboro")] = 1
	st.StationNodes[key("unsnapped")] = 2
	st.StationNodes[key("station")] = 3
	st.PtToStreet[0] = 10
	st.PtToStreet[1] = 11
	st.PtToStreet[3] = 12

	index := BuildStationIndex(st)
	require.Equal(t, 2, index.Size())

	nearest := index.Nearest(-7.7830, 110.3670, 1)
	require.Len(t, nearest, 1)
	assert.Equal(t, "tugu", nearest[0].StopID)
	assert.Equal(t, "Halte Tugu", nearest[0].Name)
	assert.Equal(t, int32(0), nearest[0].Node)
}
