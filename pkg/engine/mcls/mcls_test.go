package mcls

import (
	"testing"

	"github.com/lintang-b-s/navigatorx-pt/pkg/datastructure"
	"github.com/lintang-b-s/navigatorx-pt/pkg/engine/explorer"
	"github.com/lintang-b-s/navigatorx-pt/pkg/ptgraph"
	"github.com/lintang-b-s/navigatorx-pt/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWalkBetweenTwoStreetNodes(t *testing.T) {
	street := datastructure.NewStreetGraph()
	a := street.AddNode(-7.7829, 110.3671, 1)
	b := street.AddNode(-7.7925, 110.3658, 2)
	e := street.AddEdge(a, b, 694.4, true, "Jalan Malioboro", nil)
	street.Edges[e].WeightMillis = 500000

	ex := explorer.NewGraphExplorer(street, ptgraph.NewPtGraph(), storage.NewGtfsStorage(), nil, explorer.Options{})
	m := New(ex, DefaultOptions())
	m.Targets(ex.StreetNodeID(b))
	result := m.Search(ex.StreetNodeID(a), 0)

	require.Len(t, result.Labels, 1)
	label := result.Labels[0]
	assert.Equal(t, int64(500000), label.CurrentTime)
	assert.Equal(t, 0, label.NTransfers)
	assert.Equal(t, int64(500000), label.StreetTime)
	assert.False(t, label.Impossible)
	assert.Nil(t, label.DepartureTime)
	assert.Equal(t, ReasonNone, result.Reason)
}

func TestWalkSpeedScalesStreetTime(t *testing.T) {
	street := datastructure.NewStreetGraph()
	a := street.AddNode(0, 0, 1)
	b := street.AddNode(0, 0.001, 2)
	e := street.AddEdge(a, b, 100, true, "", nil)
	street.Edges[e].WeightMillis = 72000

	ex := explorer.NewGraphExplorer(street, ptgraph.NewPtGraph(), storage.NewGtfsStorage(), nil, explorer.Options{WalkSpeedKmh: 10})
	m := New(ex, DefaultOptions())
	m.Targets(ex.StreetNodeID(b))
	result := m.Search(ex.StreetNodeID(a), 0)

	require.Len(t, result.Labels, 1)
	assert.Equal(t, int64(36000), result.Labels[0].CurrentTime)
}

func TestRideScheduledTrip(t *testing.T) {
	n := buildNetwork(t)
	m := New(n.explorer(nil, explorer.Options{}), DefaultOptions())
	m.Targets(n.station(t, "C"))
	result := m.Search(n.station(t, "A"), serviceDay.UnixMilli())

	require.Len(t, result.Labels, 1)
	label := result.Labels[0]
	assert.Equal(t, secondsAfter(serviceDay, 900), label.CurrentTime)
	assert.Equal(t, 1, label.NTransfers)
	require.NotNil(t, label.DepartureTime)
	assert.Equal(t, secondsAfter(serviceDay, 100), *label.DepartureTime)
	assert.False(t, label.Impossible)

	path := Transitions(label, false)
	assert.Equal(t, n.station(t, "A"), path[0].Label.Node)
	assert.Nil(t, path[0].Edge)
	assert.Equal(t, n.station(t, "C"), path[len(path)-1].Label.Node)
	assert.Equal(t, datastructure.EdgeExitPt, path[len(path)-1].Edge.Type())
	hops := 0
	for _, tr := range path[1:] {
		if tr.Edge.Type() == datastructure.EdgeHop {
			hops++
		}
	}
	assert.Equal(t, 2, hops)
}

func TestNoServiceOnDay(t *testing.T) {
	n := buildNetwork(t)
	m := New(n.explorer(nil, explorer.Options{}), DefaultOptions())
	m.Targets(n.station(t, "C"))
	result := m.Search(n.station(t, "A"), secondsAfter(serviceDay, 3*datastructure.SecondsPerDay))

	assert.Empty(t, result.Labels)
	assert.Equal(t, ReasonDisconnected, result.Reason)
}

func TestLaterDayWithValidities(t *testing.T) {
	n := buildNetwork(t)
	m := New(n.explorer(nil, explorer.Options{}), DefaultOptions())
	m.Targets(n.station(t, "C"))
	// after the last departure of the day, the next ride is t1 tomorrow
	result := m.Search(n.station(t, "A"), secondsAfter(serviceDay, 500))

	require.Len(t, result.Labels, 1)
	assert.Equal(t, secondsAfter(serviceDay, datastructure.SecondsPerDay+900), result.Labels[0].CurrentTime)
}

func TestArriveBy(t *testing.T) {
	n := buildNetwork(t)
	m := New(n.explorer(nil, explorer.Options{Reverse: true}), DefaultOptions())
	m.Targets(n.station(t, "A"))
	result := m.Search(n.station(t, "C"), secondsAfter(serviceDay, 1000))

	require.Len(t, result.Labels, 1)
	label := result.Labels[0]
	assert.Equal(t, secondsAfter(serviceDay, 100), label.CurrentTime)
	assert.Equal(t, 1, label.NTransfers)
	require.NotNil(t, label.DepartureTime)
	assert.Equal(t, secondsAfter(serviceDay, 900), *label.DepartureTime)

	path := Transitions(label, true)
	assert.Equal(t, n.station(t, "A"), path[0].Label.Node)
	assert.Nil(t, path[0].Edge)
	assert.Equal(t, datastructure.EdgeEnterPt, path[1].Edge.Type())
	assert.Equal(t, n.station(t, "C"), path[len(path)-1].Label.Node)
}

func TestDelayedArrivalKeepsMissedLabel(t *testing.T) {
	n := buildNetwork(t)
	rt := n.departureDelayed(120)
	m := New(n.explorer(rt, explorer.Options{}), DefaultOptions())
	m.Targets(n.station(t, "C"))
	result := m.Search(n.station(t, "A"), serviceDay.UnixMilli())

	require.Len(t, result.Labels, 2)
	possible, missed := result.Labels[0], result.Labels[1]
	assert.False(t, possible.Impossible)
	assert.Equal(t, secondsAfter(serviceDay, 1020), possible.CurrentTime)
	assert.Equal(t, int64(0), possible.ResidualDelay)
	assert.True(t, missed.Impossible)
	assert.Equal(t, secondsAfter(serviceDay, 900), missed.CurrentTime)
	assert.Equal(t, ReasonNone, result.Reason)
}

func TestBudgetExceeded(t *testing.T) {
	n := buildNetwork(t)
	opts := DefaultOptions()
	opts.MaxVisitedNodes = 3
	m := New(n.explorer(nil, explorer.Options{}), opts)
	m.Targets(n.station(t, "C"))
	result := m.Search(n.station(t, "A"), serviceDay.UnixMilli())

	assert.Empty(t, result.Labels)
	assert.Equal(t, ReasonBudgetExceeded, result.Reason)
	assert.Equal(t, 3, result.VisitedNodes)
	assert.True(t, m.BudgetExceeded())
}

func TestSearchIsDeterministic(t *testing.T) {
	n := buildNetwork(t)
	settled := func() []string {
		m := New(n.explorer(nil, explorer.Options{}), DefaultOptions())
		out := make([]string, 0)
		for label := range m.Calc(n.station(t, "A"), serviceDay.UnixMilli()) {
			out = append(out, label.String())
		}
		return out
	}
	first := settled()
	require.NotEmpty(t, first)
	for i := 0; i < 3; i++ {
		assert.Equal(t, first, settled())
	}
}

func TestLeastWaitEnterKeepsReachableSet(t *testing.T) {
	n := buildNetwork(t)
	reachable := func(leastWait bool) map[datastructure.NodeID]int64 {
		m := New(n.explorer(nil, explorer.Options{LeastWaitEnter: leastWait}), DefaultOptions())
		earliest := make(map[datastructure.NodeID]int64)
		for label := range m.Calc(n.station(t, "A"), serviceDay.UnixMilli()) {
			if label.Impossible {
				continue
			}
			if cur, ok := earliest[label.Node]; !ok || label.CurrentTime < cur {
				earliest[label.Node] = label.CurrentTime
			}
		}
		return earliest
	}
	assert.Equal(t, reachable(false), reachable(true))
}

func TestEnterThenExitWithoutRideIsDiscarded(t *testing.T) {
	g := ptgraph.NewPtGraph()
	station := g.CreateNode()
	platform := g.CreateNode()
	other := g.CreateNode()
	g.CreateEdge(station, platform, datastructure.PtEdgeAttributes{Type: datastructure.EdgeEnterPt, RouteType: 3})
	g.CreateEdge(platform, other, datastructure.PtEdgeAttributes{Type: datastructure.EdgeExitPt, RouteType: 3})

	ex := explorer.NewGraphExplorer(nil, g, storage.NewGtfsStorage(), nil, explorer.Options{})
	m := New(ex, DefaultOptions())
	m.Targets(datastructure.TransitNodeID(other))
	seen := make([]datastructure.NodeID, 0)
	for label := range m.Calc(datastructure.TransitNodeID(station), 0) {
		seen = append(seen, label.Node)
	}

	assert.Equal(t, []datastructure.NodeID{datastructure.TransitNodeID(station), datastructure.TransitNodeID(platform)}, seen)
}

func TestDominance(t *testing.T) {
	ex := explorer.NewGraphExplorer(nil, ptgraph.NewPtGraph(), storage.NewGtfsStorage(), nil, explorer.Options{})
	fast := &Label{CurrentTime: 900, NTransfers: 2}
	slow := &Label{CurrentTime: 1000, NTransfers: 1}
	fastImpossible := &Label{CurrentTime: 800, NTransfers: 1, Impossible: true}

	m := New(ex, DefaultOptions())
	assert.False(t, m.dominates(fast, slow))
	assert.False(t, m.dominates(slow, fast))
	assert.True(t, m.dominates(fast, fast))
	assert.False(t, m.dominates(fastImpossible, slow), "an impossible label never removes a possible one")
	assert.False(t, m.dominates(slow, fastImpossible))

	opts := DefaultOptions()
	opts.MindTransfers = false
	ignoring := New(ex, opts)
	assert.True(t, ignoring.dominates(fast, slow))
	assert.False(t, ignoring.dominates(slow, fast))
}

func TestWeightUsesBetas(t *testing.T) {
	ex := explorer.NewGraphExplorer(nil, ptgraph.NewPtGraph(), storage.NewGtfsStorage(), nil, explorer.Options{})
	opts := DefaultOptions()
	opts.BetaTransfers = 300000
	opts.BetaStreetTime = 1.5
	m := New(ex, opts)
	m.startTime = 1000

	l := &Label{CurrentTime: 61000, NTransfers: 2, StreetTime: 20000, ExtraWeight: 5}
	assert.Equal(t, int64(60000+600000+10000+5), m.Weight(l))
}

func TestProfilePartition(t *testing.T) {
	ex := explorer.NewGraphExplorer(nil, ptgraph.NewPtGraph(), storage.NewGtfsStorage(), nil, explorer.Options{})
	opts := DefaultOptions()
	opts.ProfileQuery = true
	opts.MaxProfileDuration = 3600000
	m := New(ex, opts)

	dep := func(v int64) *int64 { return &v }
	me := &Label{CurrentTime: 2000, DepartureTime: dep(100)}
	later := &Label{CurrentTime: 1000, DepartureTime: dep(200)}
	earlier := &Label{CurrentTime: 1000, DepartureTime: dep(50)}
	walkOnly := &Label{CurrentTime: 1000}

	in, out := m.partitionByProfileCriterion(me, []*Label{later, earlier, walkOnly})
	assert.Equal(t, []*Label{later}, in)
	assert.Equal(t, []*Label{earlier, walkOnly}, out)
}

func TestTransitionsOrder(t *testing.T) {
	root := &Label{CurrentTime: 0, Node: datastructure.StreetNodeID(0)}
	e1, e2 := explorer.MultiModalEdge{}, explorer.MultiModalEdge{}
	mid := &Label{CurrentTime: 10, Node: datastructure.StreetNodeID(1), Edge: &e1, Parent: root}
	last := &Label{CurrentTime: 20, Node: datastructure.StreetNodeID(2), Edge: &e2, Parent: mid}

	forward := Transitions(last, false)
	require.Len(t, forward, 3)
	assert.Same(t, root, forward[0].Label)
	assert.Nil(t, forward[0].Edge)
	assert.Same(t, mid, forward[1].Label)
	assert.Same(t, &e1, forward[1].Edge)
	assert.Same(t, last, forward[2].Label)
	assert.Same(t, &e2, forward[2].Edge)

	// reverse search: last is the origin of travel, root the destination
	backward := Transitions(last, true)
	require.Len(t, backward, 3)
	assert.Same(t, last, backward[0].Label)
	assert.Nil(t, backward[0].Edge)
	assert.Same(t, mid, backward[1].Label)
	assert.Same(t, &e2, backward[1].Edge)
	assert.Same(t, root, backward[2].Label)
	assert.Same(t, &e1, backward[2].Edge)
}
