package realtime

import (
	"sync"
	"sync/atomic"
	"time"

	gtfsrt "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"github.com/lintang-b-s/navigatorx-pt/pkg/logger"
	"github.com/lintang-b-s/navigatorx-pt/pkg/ptgraph"
	"github.com/lintang-b-s/navigatorx-pt/pkg/storage"
)

type PublisherMetrics interface {
	RealtimeUpdateApplied(feedID string)
	RealtimeUpdateFailed(feedID string)
	SetAdditionalEdges(n int)
}

// Publisher owns the current realtime snapshot. Readers Load it without locking,
// a new snapshot is built from the latest message of every feed and swapped in.
type Publisher struct {
	static     *storage.GtfsStorage
	graph      *ptgraph.PtGraph
	log        logger.Logger
	metrics    PublisherMetrics
	staleAfter time.Duration

	current atomic.Pointer[Feed]

	mu       sync.Mutex
	messages map[string]*gtfsrt.FeedMessage
}

func NewPublisher(static *storage.GtfsStorage, graph *ptgraph.PtGraph, log logger.Logger, metrics PublisherMetrics,
	staleAfter time.Duration) *Publisher {
	p := &Publisher{
		static:     static,
		graph:      graph,
		log:        log,
		metrics:    metrics,
		staleAfter: staleAfter,
		messages:   make(map[string]*gtfsrt.FeedMessage),
	}
	p.current.Store(Empty(static, graph))
	return p
}

// Load returns the current snapshot.
func (p *Publisher) Load() *Feed {
	return p.current.Load()
}

// Publish replaces all feed messages and swaps in the rebuilt snapshot.
func (p *Publisher) Publish(feeds map[string]*gtfsrt.FeedMessage) *Feed {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = make(map[string]*gtfsrt.FeedMessage, len(feeds))
	for id, m := range feeds {
		p.messages[id] = m
	}
	return p.rebuild()
}

// Update replaces the message of one feed and swaps in the rebuilt snapshot.
func (p *Publisher) Update(feedID string, message *gtfsrt.FeedMessage) *Feed {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages[feedID] = message
	return p.rebuild()
}

func (p *Publisher) rebuild() *Feed {
	messages := make(map[string]*gtfsrt.FeedMessage, len(p.messages))
	for id, m := range p.messages {
		messages[id] = m
	}
	start := time.Now()
	feed := FromProtobuf(p.static, p.graph, messages, p.log, WithStaleAfter(p.staleAfter))
	p.current.Store(feed)
	p.log.Info("published realtime snapshot", "id", feed.ID(), "feeds", len(messages),
		"additional_edges", feed.AdditionalEdgeCount(), "took", time.Since(start).String())
	if p.metrics != nil {
		for id := range messages {
			p.metrics.RealtimeUpdateApplied(id)
		}
		p.metrics.SetAdditionalEdges(feed.AdditionalEdgeCount())
	}
	return feed
}

func (p *Publisher) failed(feedID string) {
	if p.metrics != nil {
		p.metrics.RealtimeUpdateFailed(feedID)
	}
}
