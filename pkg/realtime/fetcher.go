package realtime

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	gtfsrt "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"github.com/lintang-b-s/navigatorx-pt/pkg/logger"
	"google.golang.org/protobuf/proto"
)

// Fetcher polls the GTFS-RT trip update URL of every feed and publishes what it gets.
type Fetcher struct {
	client    *http.Client
	urls      map[string]string // feed id -> url
	interval  time.Duration
	publisher *Publisher
	log       logger.Logger
}

func NewFetcher(urls map[string]string, interval time.Duration, publisher *Publisher, log logger.Logger) *Fetcher {
	return &Fetcher{
		client:    &http.Client{Timeout: 30 * time.Second},
		urls:      urls,
		interval:  interval,
		publisher: publisher,
		log:       log,
	}
}

// Run fetches once right away and then on every tick until ctx is done.
func (f *Fetcher) Run(ctx context.Context) error {
	f.FetchAll(ctx)
	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			f.FetchAll(ctx)
		}
	}
}

// FetchAll fetches every feed and publishes one snapshot with the feeds that succeeded.
// A failing feed keeps its previous message.
func (f *Fetcher) FetchAll(ctx context.Context) {
	feedIDs := make([]string, 0, len(f.urls))
	for id := range f.urls {
		feedIDs = append(feedIDs, id)
	}
	sort.Strings(feedIDs)

	f.publisher.mu.Lock()
	defer f.publisher.mu.Unlock()
	fetched := 0
	for _, id := range feedIDs {
		message, err := f.Fetch(ctx, f.urls[id])
		if err != nil {
			f.log.Error("fetching realtime feed", "feed", id, "error", err)
			f.publisher.failed(id)
			continue
		}
		f.publisher.messages[id] = message
		fetched++
	}
	if fetched > 0 {
		f.publisher.rebuild()
	}
}

func (f *Fetcher) Fetch(ctx context.Context, url string) (*gtfsrt.FeedMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request for %s: %w", url, err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching %s: status %d", url, resp.StatusCode)
	}
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", url, err)
	}
	return Decode(b)
}

// Decode parses a protobuf FeedMessage.
func Decode(b []byte) (*gtfsrt.FeedMessage, error) {
	var message gtfsrt.FeedMessage
	if err := proto.Unmarshal(b, &message); err != nil {
		return nil, fmt.Errorf("decoding feed message: %w", err)
	}
	return &message, nil
}
