package tripbased

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
	"github.com/kelindar/binary"
)

var ErrNotFound = errors.New("tripbased: trip transfers not stored")

const keyPrefix = "tt/"

// TransferStore persists trip transfers, one key per origin: tt/<date>/<feed>/<trip idx>/<stop sequence>.
// tt/<date> marks a completely written day.
type TransferStore struct {
	db *pebble.DB
}

func OpenTransferStore(dir string) (*TransferStore, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("open pebble %s: %w", dir, err)
	}
	return &TransferStore{db: db}, nil
}

func OpenInMemoryTransferStore() (*TransferStore, error) {
	db, err := pebble.Open("", &pebble.Options{FS: vfs.NewMem()})
	if err != nil {
		return nil, fmt.Errorf("open in-memory pebble: %w", err)
	}
	return &TransferStore{db: db}, nil
}

func (s *TransferStore) Save(date string, tt TripTransfers) error {
	batch := s.db.NewBatch()
	defer batch.Close()
	for origin, destinations := range tt {
		val, err := binary.Marshal(destinations)
		if err != nil {
			return fmt.Errorf("encode trip transfers of %s: %w", origin, err)
		}
		if err := batch.Set(originKey(date, origin), val, nil); err != nil {
			return err
		}
	}
	if err := batch.Set(dayKey(date), []byte{1}, nil); err != nil {
		return err
	}
	return batch.Commit(pebble.Sync)
}

func (s *TransferStore) Load(date string) (TripTransfers, error) {
	_, closer, err := s.db.Get(dayKey(date))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	closer.Close()

	prefix := []byte(string(dayKey(date)) + "/")
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: upperBound(prefix),
	})
	if err != nil {
		return nil, err
	}
	tt := make(TripTransfers)
	for iter.First(); iter.Valid(); iter.Next() {
		origin, err := parseOriginKey(string(iter.Key()[len(prefix):]))
		if err != nil {
			iter.Close()
			return nil, err
		}
		// the iterator reuses its buffer
		val := append([]byte(nil), iter.Value()...)
		var destinations []TripAtStopTime
		if err := binary.Unmarshal(val, &destinations); err != nil {
			iter.Close()
			return nil, fmt.Errorf("decode trip transfers of %s: %w", origin, err)
		}
		if destinations == nil {
			destinations = make([]TripAtStopTime, 0)
		}
		tt[origin] = destinations
	}
	return tt, iter.Close()
}

func (s *TransferStore) Close() error {
	return s.db.Close()
}

func dayKey(date string) []byte {
	return []byte(keyPrefix + date)
}

func originKey(date string, origin TripAtStopTime) []byte {
	return []byte(keyPrefix + date + "/" + origin.FeedID + "/" +
		strconv.Itoa(int(origin.TripIdx)) + "/" + strconv.Itoa(int(origin.StopSequence)))
}

// parseOriginKey parses <feed>/<trip idx>/<stop sequence>, the feed id may contain '/'.
func parseOriginKey(key string) (TripAtStopTime, error) {
	i := strings.LastIndexByte(key, '/')
	if i < 0 {
		return TripAtStopTime{}, fmt.Errorf("malformed trip transfer key %q", key)
	}
	seq, err := strconv.Atoi(key[i+1:])
	if err != nil {
		return TripAtStopTime{}, fmt.Errorf("malformed trip transfer key %q: %w", key, err)
	}
	rest := key[:i]
	j := strings.LastIndexByte(rest, '/')
	if j < 0 {
		return TripAtStopTime{}, fmt.Errorf("malformed trip transfer key %q", key)
	}
	tripIdx, err := strconv.Atoi(rest[j+1:])
	if err != nil {
		return TripAtStopTime{}, fmt.Errorf("malformed trip transfer key %q: %w", key, err)
	}
	return TripAtStopTime{FeedID: rest[:j], TripIdx: int32(tripIdx), StopSequence: int32(seq)}, nil
}

func upperBound(prefix []byte) []byte {
	end := append([]byte(nil), prefix...)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil
}
