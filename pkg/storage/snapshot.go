package storage

import (
	"fmt"
	"sort"
	"time"

	"github.com/bits-and-blooms/bitset"
	"github.com/lintang-b-s/navigatorx-pt/pkg/datastructure"
)

const noRef = int32(-1)

// PersistedEdgeAttributes is PtEdgeAttributes with references replaced by table ids.
type PersistedEdgeAttributes struct {
	Type             uint8
	Time             int32
	RouteType        int32
	Transfers        int32
	StopSequence     int32
	ValidityID       int32
	FeedZoneID       int32
	PlatformID       int32
	TripDescriptorID int32
}

type PersistedValidity struct {
	Days  []uint64
	Len   uint64
	Zone  string
	Start int64
}

type PersistedFeedZone struct {
	FeedID string
	Zone   string
}

type AttributeTables struct {
	Validities      []PersistedValidity
	FeedZones       []PersistedFeedZone
	Platforms       []datastructure.PlatformDescriptor
	TripDescriptors []datastructure.TripDescriptor
}

// EncodeAttributes interns the references of every edge into tables.
func EncodeAttributes(attrs []datastructure.PtEdgeAttributes) (AttributeTables, []PersistedEdgeAttributes) {
	tables := AttributeTables{}
	validityIDs := make(map[*datastructure.Validity]int32)
	validityKeys := make(map[string]int32)
	zoneIDs := make(map[PersistedFeedZone]int32)
	platformIDs := make(map[datastructure.PlatformDescriptor]int32)
	tripIDs := make(map[datastructure.TripDescriptor]int32)

	out := make([]PersistedEdgeAttributes, len(attrs))
	for i, a := range attrs {
		p := PersistedEdgeAttributes{
			Type:             uint8(a.Type),
			Time:             a.Time,
			RouteType:        a.RouteType,
			Transfers:        a.Transfers,
			StopSequence:     a.StopSequence,
			ValidityID:       noRef,
			FeedZoneID:       noRef,
			PlatformID:       noRef,
			TripDescriptorID: noRef,
		}
		if a.Validity != nil {
			id, ok := validityIDs[a.Validity]
			if !ok {
				key := a.Validity.Key()
				id, ok = validityKeys[key]
				if !ok {
					id = int32(len(tables.Validities))
					tables.Validities = append(tables.Validities, PersistedValidity{
						Days:  a.Validity.Days.Bytes(),
						Len:   uint64(a.Validity.Days.Len()),
						Zone:  a.Validity.Zone.String(),
						Start: a.Validity.Start.Unix(),
					})
					validityKeys[key] = id
				}
				validityIDs[a.Validity] = id
			}
			p.ValidityID = id
		}
		if a.FeedIDWithTimezone != nil {
			z := PersistedFeedZone{FeedID: a.FeedIDWithTimezone.FeedID, Zone: a.FeedIDWithTimezone.Zone.String()}
			id, ok := zoneIDs[z]
			if !ok {
				id = int32(len(tables.FeedZones))
				tables.FeedZones = append(tables.FeedZones, z)
				zoneIDs[z] = id
			}
			p.FeedZoneID = id
		}
		if a.Platform != nil {
			id, ok := platformIDs[*a.Platform]
			if !ok {
				id = int32(len(tables.Platforms))
				tables.Platforms = append(tables.Platforms, *a.Platform)
				platformIDs[*a.Platform] = id
			}
			p.PlatformID = id
		}
		if a.TripDescriptor != nil {
			id, ok := tripIDs[*a.TripDescriptor]
			if !ok {
				id = int32(len(tables.TripDescriptors))
				tables.TripDescriptors = append(tables.TripDescriptors, *a.TripDescriptor)
				tripIDs[*a.TripDescriptor] = id
			}
			p.TripDescriptorID = id
		}
		out[i] = p
	}
	return tables, out
}

// DecodeAttributes rebuilds the attribute side table, sharing equal references through the storage.
func (s *GtfsStorage) DecodeAttributes(tables AttributeTables, persisted []PersistedEdgeAttributes) ([]datastructure.PtEdgeAttributes, error) {
	zones := make(map[string]*time.Location)
	loadZone := func(name string) (*time.Location, error) {
		if z, ok := zones[name]; ok {
			return z, nil
		}
		z, err := time.LoadLocation(name)
		if err != nil {
			return nil, fmt.Errorf("load timezone %q: %w", name, err)
		}
		zones[name] = z
		return z, nil
	}
	// feeds already loaded keep their own zone instance
	for _, f := range s.Feeds {
		zones[f.Timezone().String()] = f.Timezone()
	}

	validities := make([]*datastructure.Validity, len(tables.Validities))
	for i, v := range tables.Validities {
		zone, err := loadZone(v.Zone)
		if err != nil {
			return nil, err
		}
		validities[i] = s.InternValidity(datastructure.NewValidity(bitset.FromWithLength(uint(v.Len), v.Days), zone, time.Unix(v.Start, 0).UTC()))
	}
	feedZones := make([]*datastructure.FeedIDWithTimezone, len(tables.FeedZones))
	for i, z := range tables.FeedZones {
		zone, err := loadZone(z.Zone)
		if err != nil {
			return nil, err
		}
		feedZones[i] = s.InternFeedZone(datastructure.FeedIDWithTimezone{FeedID: z.FeedID, Zone: zone})
	}
	platforms := make([]*datastructure.PlatformDescriptor, len(tables.Platforms))
	for i, p := range tables.Platforms {
		platforms[i] = s.InternPlatform(p)
	}
	descriptors := make([]*datastructure.TripDescriptor, len(tables.TripDescriptors))
	for i, td := range tables.TripDescriptors {
		descriptors[i] = s.InternTripDescriptor(td)
	}

	ref := func(id int32, n int) (bool, error) {
		if id == noRef {
			return false, nil
		}
		if id < 0 || int(id) >= n {
			return false, fmt.Errorf("attribute table reference %d of %d", id, n)
		}
		return true, nil
	}

	attrs := make([]datastructure.PtEdgeAttributes, len(persisted))
	for i, p := range persisted {
		a := datastructure.PtEdgeAttributes{
			Type:         datastructure.EdgeType(p.Type),
			Time:         p.Time,
			RouteType:    p.RouteType,
			Transfers:    p.Transfers,
			StopSequence: p.StopSequence,
		}
		if ok, err := ref(p.ValidityID, len(validities)); err != nil {
			return nil, err
		} else if ok {
			a.Validity = validities[p.ValidityID]
		}
		if ok, err := ref(p.FeedZoneID, len(feedZones)); err != nil {
			return nil, err
		} else if ok {
			a.FeedIDWithTimezone = feedZones[p.FeedZoneID]
		}
		if ok, err := ref(p.PlatformID, len(platforms)); err != nil {
			return nil, err
		} else if ok {
			a.Platform = platforms[p.PlatformID]
		}
		if ok, err := ref(p.TripDescriptorID, len(descriptors)); err != nil {
			return nil, err
		} else if ok {
			a.TripDescriptor = descriptors[p.TripDescriptorID]
		}
		attrs[i] = a
	}
	return attrs, nil
}

type StationNodeEntry struct {
	FeedID string
	StopID string
	Node   int32
}

type PlatformNodeEntry struct {
	Node     int32
	Platform datastructure.PlatformDescriptor
}

type TripEdgesEntry struct {
	FeedID    string
	TripID    string
	StartTime string
	Board     []int32
	Alight    []int32
}

type InterpolatedTransferEntry struct {
	FeedID   string
	StopID   string
	Transfer InterpolatedTransfer
}

type NodePair struct {
	Pt     int32
	Street int32
}

type SkippedEdgesEntry struct {
	Edge  int32
	Edges []int32
}

// Snapshot is the storage without its feeds, in a form kelindar/binary can encode.
type Snapshot struct {
	StationNodes          []StationNodeEntry
	PtToStreet            []NodePair
	Platforms             []PlatformNodeEntry
	TripEdges             []TripEdgesEntry
	InterpolatedTransfers []InterpolatedTransferEntry
	SkippedEdges          []SkippedEdgesEntry
}

func (s *GtfsStorage) ToSnapshot() Snapshot {
	snap := Snapshot{}
	for k, n := range s.StationNodes {
		snap.StationNodes = append(snap.StationNodes, StationNodeEntry{FeedID: k.FeedID, StopID: k.StopID, Node: n})
	}
	sort.Slice(snap.StationNodes, func(i, j int) bool { return snap.StationNodes[i].Node < snap.StationNodes[j].Node })

	for pt, street := range s.PtToStreet {
		snap.PtToStreet = append(snap.PtToStreet, NodePair{Pt: pt, Street: street})
	}
	sort.Slice(snap.PtToStreet, func(i, j int) bool { return snap.PtToStreet[i].Pt < snap.PtToStreet[j].Pt })

	for _, nodes := range s.PlatformsByStop {
		for _, pn := range nodes {
			snap.Platforms = append(snap.Platforms, PlatformNodeEntry{Node: pn.Node, Platform: pn.Platform})
		}
	}
	sort.Slice(snap.Platforms, func(i, j int) bool { return snap.Platforms[i].Node < snap.Platforms[j].Node })

	for k, board := range s.BoardEdgesForTrip {
		snap.TripEdges = append(snap.TripEdges, TripEdgesEntry{
			FeedID:    k.FeedID,
			TripID:    k.TripID,
			StartTime: k.StartTime,
			Board:     board,
			Alight:    s.AlightEdgesForTrip[k],
		})
	}
	sort.Slice(snap.TripEdges, func(i, j int) bool {
		a, b := snap.TripEdges[i], snap.TripEdges[j]
		if a.FeedID != b.FeedID {
			return a.FeedID < b.FeedID
		}
		if a.TripID != b.TripID {
			return a.TripID < b.TripID
		}
		return a.StartTime < b.StartTime
	})

	for k, transfers := range s.InterpolatedTransfers {
		for _, t := range transfers {
			snap.InterpolatedTransfers = append(snap.InterpolatedTransfers, InterpolatedTransferEntry{FeedID: k.FeedID, StopID: k.StopID, Transfer: t})
		}
	}
	for e, edges := range s.SkippedEdgesForTransfer {
		snap.SkippedEdges = append(snap.SkippedEdges, SkippedEdgesEntry{Edge: e, Edges: edges})
	}
	sort.Slice(snap.SkippedEdges, func(i, j int) bool { return snap.SkippedEdges[i].Edge < snap.SkippedEdges[j].Edge })
	return snap
}

// ApplySnapshot restores everything ToSnapshot captured.
func (s *GtfsStorage) ApplySnapshot(snap Snapshot) {
	for _, e := range snap.StationNodes {
		s.StationNodes[datastructure.FeedIDWithStopID{FeedID: e.FeedID, StopID: e.StopID}] = e.Node
	}
	for _, p := range snap.PtToStreet {
		s.PtToStreet[p.Pt] = p.Street
		s.StreetToPt[p.Street] = p.Pt
	}
	for _, p := range snap.Platforms {
		s.PutPlatformNode(p.Node, p.Platform)
	}
	for _, t := range snap.TripEdges {
		key := TripKey{FeedID: t.FeedID, TripDescriptor: datastructure.TripDescriptor{TripID: t.TripID, StartTime: t.StartTime}}
		s.BoardEdgesForTrip[key] = t.Board
		s.AlightEdgesForTrip[key] = t.Alight
	}
	for _, t := range snap.InterpolatedTransfers {
		key := datastructure.FeedIDWithStopID{FeedID: t.FeedID, StopID: t.StopID}
		s.InterpolatedTransfers[key] = append(s.InterpolatedTransfers[key], t.Transfer)
	}
	for _, e := range snap.SkippedEdges {
		s.SkippedEdgesForTransfer[e.Edge] = e.Edges
	}
}
