package mcls

import (
	"fmt"

	"github.com/lintang-b-s/navigatorx-pt/pkg/datastructure"
	"github.com/lintang-b-s/navigatorx-pt/pkg/engine/explorer"
	"github.com/lintang-b-s/navigatorx-pt/pkg/util"
)

// Label is a node of the shortest path tree. Times are epoch millis.
type Label struct {
	CurrentTime int64
	Edge        *explorer.MultiModalEdge
	Node        datastructure.NodeID
	NTransfers  int
	// first transit departure, nil until the label enters the network
	DepartureTime *int64
	StreetTime    int64
	ExtraWeight   int64
	ResidualDelay int64
	Impossible    bool
	Parent        *Label
	Deleted       bool

	seq uint64
}

func (l *Label) String() string {
	dep := "-"
	if l.DepartureTime != nil {
		dep = fmt.Sprint(*l.DepartureTime)
	}
	return fmt.Sprintf("%s time:%d transfers:%d street:%d dep:%s impossible:%t", l.Node, l.CurrentTime, l.NTransfers,
		l.StreetTime, dep, l.Impossible)
}

// Transition is one step of a path, Edge is nil for the first one.
type Transition struct {
	Label *Label
	Edge  *explorer.MultiModalEdge
}

// Transitions walks from label back to the root and returns the path in travel order.
// For a reverse search the root is the destination, so the walk is already in travel order.
func Transitions(label *Label, reverse bool) []Transition {
	result := make([]Transition, 0)
	if reverse {
		result = append(result, Transition{Label: label})
	}
	for label.Parent != nil {
		if reverse {
			result = append(result, Transition{Label: label.Parent, Edge: label.Edge})
		} else {
			result = append(result, Transition{Label: label, Edge: label.Edge})
		}
		label = label.Parent
	}
	if !reverse {
		result = append(result, Transition{Label: label})
		result = util.ReverseG(result)
	}
	return result
}

// WalkPath rebuilds a walk over street edges starting at currentTime, used for the legs behind
// an interpolated transfer.
func WalkPath(ex *explorer.GraphExplorer, streetEdges []int32, currentTime int64) []Transition {
	if len(streetEdges) == 0 {
		return nil
	}
	first := ex.StreetEdge(streetEdges[0])
	label := &Label{
		CurrentTime: currentTime,
		Node:        datastructure.StreetNodeID(first.BaseNode()),
	}
	for _, id := range streetEdges {
		e := ex.StreetEdge(id)
		label = &Label{
			CurrentTime: label.CurrentTime + e.TimeMillis(),
			Edge:        &e,
			Node:        datastructure.StreetNodeID(e.AdjNode().StreetNode),
			StreetTime:  label.StreetTime + e.TimeMillis(),
			Parent:      label,
		}
	}
	return Transitions(label, false)
}
