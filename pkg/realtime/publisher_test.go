package realtime

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	gtfsrt "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"github.com/lintang-b-s/navigatorx-pt/pkg/datastructure"
	"github.com/lintang-b-s/navigatorx-pt/pkg/logger"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"
)

type countingMetrics struct {
	mu      sync.Mutex
	applied map[string]int
	failed  map[string]int
	edges   int
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{applied: make(map[string]int), failed: make(map[string]int)}
}

func (m *countingMetrics) RealtimeUpdateApplied(feedID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.applied[feedID]++
}

func (m *countingMetrics) RealtimeUpdateFailed(feedID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failed[feedID]++
}

func (m *countingMetrics) SetAdditionalEdges(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.edges = n
}

func skipT1() *gtfsrt.FeedMessage {
	return feedMessage(tripUpdateEntity("t1", "", gtfsrt.TripDescriptor_SCHEDULED,
		stopUpdateSpec{seq: 2, relationship: skipped}))
}

func TestPublisherSwapsSnapshots(t *testing.T) {
	st, g := buildStatic(t)
	metrics := newCountingMetrics()
	p := NewPublisher(st, g, logger.Nop(), metrics, DefaultStaleAfter)

	first := p.Load()
	require.NotNil(t, first)
	assert.Equal(t, 0, first.AdditionalEdgeCount())

	second := p.Update("f", skipT1())
	assert.Same(t, second, p.Load())
	assert.NotEqual(t, first.ID(), second.ID())

	board := st.BoardEdges("f", datastructure.TripDescriptor{TripID: "t1"})
	assert.False(t, first.IsBlocked(board[2]), "older snapshots stay untouched")
	assert.True(t, second.IsBlocked(board[2]))
	assert.Equal(t, 1, metrics.applied["f"])

	third := p.Publish(map[string]*gtfsrt.FeedMessage{})
	assert.False(t, third.IsBlocked(board[2]))
}

func TestFetcher(t *testing.T) {
	st, g := buildStatic(t)
	body, err := proto.Marshal(skipT1())
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/f" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/x-protobuf")
		_, _ = w.Write(body)
	}))
	defer srv.Close()

	metrics := newCountingMetrics()
	p := NewPublisher(st, g, logger.Nop(), metrics, DefaultStaleAfter)
	fetcher := NewFetcher(map[string]string{"f": srv.URL + "/f", "missing": srv.URL + "/missing"}, time.Minute, p, logger.Nop())

	fetcher.FetchAll(context.Background())
	board := st.BoardEdges("f", datastructure.TripDescriptor{TripID: "t1"})
	assert.True(t, p.Load().IsBlocked(board[2]))
	assert.Equal(t, 1, metrics.failed["missing"])

	_, err = fetcher.Fetch(context.Background(), srv.URL+"/missing")
	assert.Error(t, err)
}

func TestFetcherRunStopsWithContext(t *testing.T) {
	st, g := buildStatic(t)
	p := NewPublisher(st, g, logger.Nop(), nil, DefaultStaleAfter)
	fetcher := NewFetcher(map[string]string{}, 10*time.Millisecond, p, logger.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := fetcher.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDecodeGarbage(t *testing.T) {
	_, err := Decode([]byte{0xff, 0xff, 0xff})
	assert.Error(t, err)
}

func TestHandleNatsFeedMessage(t *testing.T) {
	st, g := buildStatic(t)
	metrics := newCountingMetrics()
	p := NewPublisher(st, g, logger.Nop(), metrics, DefaultStaleAfter)
	body, err := proto.Marshal(skipT1())
	require.NoError(t, err)

	handleFeedMessage(p, logger.Nop(), "gtfsrt", &nats.Msg{Subject: "gtfsrt.f", Data: body})
	board := st.BoardEdges("f", datastructure.TripDescriptor{TripID: "t1"})
	assert.True(t, p.Load().IsBlocked(board[2]))

	handleFeedMessage(p, logger.Nop(), "gtfsrt", &nats.Msg{Subject: "gtfsrt.f", Data: []byte{0xff, 0xff}})
	assert.Equal(t, 1, metrics.failed["f"])
	assert.True(t, p.Load().IsBlocked(board[2]), "a bad message keeps the snapshot")
}
