package mcls

import (
	"cmp"
	"iter"
	"math"
	"slices"

	"github.com/lintang-b-s/navigatorx-pt/pkg/datastructure"
	"github.com/lintang-b-s/navigatorx-pt/pkg/engine/explorer"
	"github.com/lintang-b-s/navigatorx-pt/pkg/util"
)

const DefaultMaxVisitedNodes = 1_000_000

type Options struct {
	// false ignores the transfer count in dominance
	MindTransfers bool
	ProfileQuery  bool
	// millis
	MaxProfileDuration int64
	LimitSolutions     int
	// millis
	LimitTripTime   int64
	LimitStreetTime int64
	BetaTransfers   float64
	BetaStreetTime  float64
	// millis added when boarding (or transferring onto) a route type
	BoardingPenaltyByRouteType map[int]int64
	MaxVisitedNodes            int
}

func DefaultOptions() Options {
	return Options{
		MindTransfers:   true,
		LimitSolutions:  math.MaxInt,
		LimitTripTime:   math.MaxInt64,
		LimitStreetTime: math.MaxInt64,
		BetaStreetTime:  1.0,
		MaxVisitedNodes: DefaultMaxVisitedNodes,
	}
}

type NoPathReason int

const (
	ReasonNone NoPathReason = iota
	ReasonDisconnected
	ReasonBudgetExceeded
)

func (r NoPathReason) String() string {
	switch r {
	case ReasonDisconnected:
		return "disconnected"
	case ReasonBudgetExceeded:
		return "maximum number of visited nodes exceeded"
	default:
		return ""
	}
}

type Result struct {
	// possible solutions first, then impossible ones, each ordered by departure time
	Labels       []*Label
	VisitedNodes int
	Reason       NoPathReason
}

// MultiCriteriaLabelSetting is a label setting search on arrival time and transfers, with
// street time, departure time and realtime feasibility as further criteria. One instance
// serves one query.
type MultiCriteriaLabelSetting struct {
	explorer *explorer.GraphExplorer
	reverse  bool
	opts     Options

	startTime    int64
	targets      map[datastructure.NodeID]struct{}
	targetLabels []*Label
	fromMap      map[datastructure.NodeID][]*Label
	fromHeap     *datastructure.MinHeap[*Label]
	nextSeq      uint64
	visited      int
	exceeded     bool
}

// New creates a search in the direction of the explorer.
func New(ex *explorer.GraphExplorer, opts Options) *MultiCriteriaLabelSetting {
	if opts.MaxVisitedNodes <= 0 {
		opts.MaxVisitedNodes = DefaultMaxVisitedNodes
	}
	if opts.LimitSolutions <= 0 {
		opts.LimitSolutions = math.MaxInt
	}
	if opts.LimitTripTime <= 0 {
		opts.LimitTripTime = math.MaxInt64
	}
	if opts.LimitStreetTime <= 0 {
		opts.LimitStreetTime = math.MaxInt64
	}
	if opts.BetaStreetTime == 0 {
		opts.BetaStreetTime = 1.0
	}
	m := &MultiCriteriaLabelSetting{
		explorer: ex,
		reverse:  ex.Reverse(),
		opts:     opts,
		targets:  make(map[datastructure.NodeID]struct{}),
		fromMap:  make(map[datastructure.NodeID][]*Label),
	}
	m.fromHeap = datastructure.NewMinHeap(func(a, b *Label) bool {
		c := m.compare(a, b)
		if c != 0 {
			return c < 0
		}
		return a.seq < b.seq
	})
	return m
}

// Targets sets the nodes whose labels are collected as solutions.
func (m *MultiCriteriaLabelSetting) Targets(targets ...datastructure.NodeID) {
	for _, t := range targets {
		m.targets[t] = struct{}{}
	}
}

func (m *MultiCriteriaLabelSetting) VisitedNodes() int {
	return m.visited
}

// BudgetExceeded reports whether Calc stopped at MaxVisitedNodes.
func (m *MultiCriteriaLabelSetting) BudgetExceeded() bool {
	return m.exceeded
}

// Calc settles labels from node from at startTime (epoch millis) in queue order and yields
// every settled label. The caller may stop early, the search also stops after MaxVisitedNodes.
func (m *MultiCriteriaLabelSetting) Calc(from datastructure.NodeID, startTime int64) iter.Seq[*Label] {
	return func(yield func(*Label) bool) {
		m.startTime = startTime
		root := m.newLabel(Label{CurrentTime: startTime, Node: from})
		m.fromMap[from] = append(m.fromMap[from], root)
		m.fromHeap.Insert(root)

		for {
			label, ok := m.pop()
			if !ok {
				return
			}
			if m.visited >= m.opts.MaxVisitedNodes {
				m.exceeded = true
				return
			}
			m.visited++
			if !yield(label) {
				return
			}
			m.relax(label)
		}
	}
}

// Search runs Calc towards the targets and collects the solutions.
func (m *MultiCriteriaLabelSetting) Search(from datastructure.NodeID, startTime int64) Result {
	var possible, impossible []*Label
	var closedWeight int64 = math.MinInt64
	hasClosed := false

	for label := range m.Calc(from, startTime) {
		if hasClosed && m.weight(label) > closedWeight+m.opts.MaxProfileDuration {
			break
		}
		if _, ok := m.targets[label.Node]; !ok {
			continue
		}
		m.targetLabels = append(m.targetLabels, label)
		if label.Impossible {
			// documents a connection missed because of a delay, it does not count as an answer
			impossible = append(impossible, label)
			continue
		}
		possible = append(possible, label)
		if len(possible) >= m.opts.LimitSolutions {
			break
		}
		if m.opts.ProfileQuery && m.beyondHorizon(label) {
			if w := m.weight(label); !hasClosed || w > closedWeight {
				closedWeight = w
			}
			hasClosed = true
		}
	}

	sortByDepartureTime(possible)
	sortByDepartureTime(impossible)
	result := Result{
		Labels:       append(possible, impossible...),
		VisitedNodes: m.visited,
	}
	if len(possible) == 0 {
		result.Reason = ReasonDisconnected
		if m.exceeded {
			result.Reason = ReasonBudgetExceeded
		}
	}
	return result
}

// beyondHorizon reports whether the label departs at or after the end of the profile window.
func (m *MultiCriteriaLabelSetting) beyondHorizon(l *Label) bool {
	if l.DepartureTime == nil {
		return true
	}
	if m.reverse {
		return *l.DepartureTime <= m.startTime-m.opts.MaxProfileDuration
	}
	return *l.DepartureTime >= m.startTime+m.opts.MaxProfileDuration
}

func sortByDepartureTime(labels []*Label) {
	dep := func(l *Label) int64 {
		if l.DepartureTime == nil {
			return 0
		}
		return *l.DepartureTime
	}
	slices.SortStableFunc(labels, func(a, b *Label) int {
		return cmp.Compare(dep(a), dep(b))
	})
}

func (m *MultiCriteriaLabelSetting) pop() (*Label, bool) {
	for {
		label, ok := m.fromHeap.ExtractMin()
		if !ok {
			return nil, false
		}
		if !label.Deleted {
			return label, true
		}
	}
}

func (m *MultiCriteriaLabelSetting) newLabel(l Label) *Label {
	l.seq = m.nextSeq
	m.nextSeq++
	return &l
}

func (m *MultiCriteriaLabelSetting) sign() int64 {
	if m.reverse {
		return -1
	}
	return 1
}

func (m *MultiCriteriaLabelSetting) relax(label *Label) {
	ex := m.explorer
	for edge := range ex.ExploreEdgesAround(label.Node, label.CurrentTime) {
		edgeType := edge.Type()
		tt := ex.CalcTravelTimeMillis(edge, label.CurrentTime)
		nextTime := label.CurrentTime + m.sign()*tt
		nTransfers := label.NTransfers + edge.Transfers()
		extraWeight := label.ExtraWeight
		departureTime := label.DepartureTime

		if (!m.reverse && edgeType == datastructure.EdgeEnterPt) || (m.reverse && edgeType == datastructure.EdgeExitPt) ||
			edgeType == datastructure.EdgeTransfer {
			extraWeight += m.opts.BoardingPenaltyByRouteType[edge.RouteType()]
		}
		if !m.reverse && (edgeType == datastructure.EdgeEnterNetwork || edgeType == datastructure.EdgeWait) {
			if label.NTransfers == 0 {
				d := nextTime - label.StreetTime
				departureTime = &d
			}
		} else if m.reverse && (edgeType == datastructure.EdgeLeaveNetwork || edgeType == datastructure.EdgeWaitArrival) {
			if label.NTransfers == 0 {
				d := nextTime + label.StreetTime
				departureTime = &d
			}
		}

		streetTime := label.StreetTime
		if edgeType == datastructure.EdgeHighway || edgeType == datastructure.EdgeEnterPt || edgeType == datastructure.EdgeExitPt {
			streetTime += m.sign() * (nextTime - label.CurrentTime)
		}
		if streetTime > m.opts.LimitStreetTime {
			continue
		}
		if util.AbsInt64(nextTime-m.startTime) > m.opts.LimitTripTime {
			continue
		}
		if m.isDegenerateLeg(label, edgeType) {
			continue
		}

		impossible := label.Impossible ||
			ex.IsBlocked(edge) ||
			(!m.reverse && edgeType == datastructure.EdgeBoard && label.ResidualDelay > 0) ||
			(m.reverse && edgeType == datastructure.EdgeAlight && label.ResidualDelay < ex.DelayFromAlightEdge(edge, label.CurrentTime))

		var residualDelay int64
		if !m.reverse {
			switch edgeType {
			case datastructure.EdgeWait, datastructure.EdgeTransfer:
				residualDelay = max(0, label.ResidualDelay-tt)
			case datastructure.EdgeAlight:
				residualDelay = label.ResidualDelay + ex.DelayFromAlightEdge(edge, label.CurrentTime)
			case datastructure.EdgeBoard:
				residualDelay = -ex.DelayFromBoardEdge(edge, label.CurrentTime)
			default:
				residualDelay = label.ResidualDelay
			}
		} else if edgeType == datastructure.EdgeWait || edgeType == datastructure.EdgeTransfer {
			residualDelay = label.ResidualDelay + tt
		}

		e := edge
		next := Label{
			CurrentTime:   nextTime,
			Edge:          &e,
			Node:          edge.AdjNode(),
			NTransfers:    nTransfers,
			DepartureTime: departureTime,
			StreetTime:    streetTime,
			ExtraWeight:   extraWeight,
			ResidualDelay: residualDelay,
			Impossible:    impossible,
			Parent:        label,
		}
		if !m.reverse && edgeType == datastructure.EdgeLeaveNetwork && residualDelay > 0 {
			// the scheduled arrival is kept as an impossible label, the delayed one goes on
			missed := next
			missed.Impossible = true
			m.insertIfNotDominated(m.newLabel(missed))
			next.CurrentTime += residualDelay
			next.ResidualDelay = 0
		}
		m.insertIfNotDominated(m.newLabel(next))
	}
}

// isDegenerateLeg rejects leaving the network on a path that entered it without riding a HOP.
func (m *MultiCriteriaLabelSetting) isDegenerateLeg(label *Label, edgeType datastructure.EdgeType) bool {
	leave, enter := datastructure.EdgeExitPt, datastructure.EdgeEnterPt
	if m.reverse {
		leave, enter = enter, leave
	}
	if edgeType != leave {
		return false
	}
	for l := label; l != nil && l.Edge != nil; l = l.Parent {
		switch l.Edge.Type() {
		case datastructure.EdgeHop:
			return false
		case enter:
			return true
		}
	}
	return false
}

func (m *MultiCriteriaLabelSetting) insertIfNotDominated(me *Label) {
	targetLabels := m.targetLabels
	if m.opts.ProfileQuery && me.DepartureTime != nil {
		targetLabels, _ = m.partitionByProfileCriterion(me, targetLabels)
	}
	if !m.isNotDominatedByAnyOf(me, targetLabels) {
		return
	}

	sptEntries := m.fromMap[me.Node]
	var filtered, others []*Label
	if m.opts.ProfileQuery && me.DepartureTime != nil {
		filtered, others = m.partitionByProfileCriterion(me, sptEntries)
	} else {
		filtered = append([]*Label(nil), sptEntries...)
	}
	if !m.isNotDominatedByAnyOf(me, filtered) {
		return
	}
	kept := make([]*Label, 0, len(filtered)+len(others)+1)
	for _, they := range filtered {
		if m.dominates(me, they) {
			they.Deleted = true
			continue
		}
		kept = append(kept, they)
	}
	kept = append(kept, others...)
	kept = append(kept, me)
	m.fromMap[me.Node] = kept
	m.fromHeap.Insert(me)
}

// partitionByProfileCriterion splits entries into those departing at or after me (or past the
// profile horizon), which compete with me, and the rest.
func (m *MultiCriteriaLabelSetting) partitionByProfileCriterion(me *Label, entries []*Label) ([]*Label, []*Label) {
	var in, out []*Label
	for _, they := range entries {
		if m.competes(me, they) {
			in = append(in, they)
		} else {
			out = append(out, they)
		}
	}
	return in, out
}

func (m *MultiCriteriaLabelSetting) competes(me, they *Label) bool {
	if they.DepartureTime == nil {
		return false
	}
	if !m.reverse {
		return *they.DepartureTime >= *me.DepartureTime || *they.DepartureTime >= m.startTime+m.opts.MaxProfileDuration
	}
	return *they.DepartureTime <= *me.DepartureTime || *they.DepartureTime <= m.startTime-m.opts.MaxProfileDuration
}

func (m *MultiCriteriaLabelSetting) isNotDominatedByAnyOf(me *Label, entries []*Label) bool {
	for _, they := range entries {
		if m.dominates(they, me) {
			return false
		}
	}
	return true
}

func (m *MultiCriteriaLabelSetting) dominates(me, they *Label) bool {
	wMe, wThey := m.weight(me), m.weight(they)
	if wMe > wThey {
		return false
	}
	if m.opts.MindTransfers && me.NTransfers > they.NTransfers {
		return false
	}
	if me.Impossible && !they.Impossible {
		return false
	}
	if wMe < wThey {
		return true
	}
	if m.opts.MindTransfers && me.NTransfers < they.NTransfers {
		return true
	}
	return m.compare(me, they) <= 0
}

// compare orders labels by weight, transfers, street time, departure time and impossibility.
func (m *MultiCriteriaLabelSetting) compare(a, b *Label) int {
	if c := cmpInt64(m.weight(a), m.weight(b)); c != 0 {
		return c
	}
	if c := cmpInt64(int64(a.NTransfers), int64(b.NTransfers)); c != 0 {
		return c
	}
	if c := cmpInt64(a.StreetTime, b.StreetTime); c != 0 {
		return c
	}
	if c := cmpInt64(m.departureTimeCriterion(a), m.departureTimeCriterion(b)); c != 0 {
		return c
	}
	return cmpInt64(boolToInt64(a.Impossible), boolToInt64(b.Impossible))
}

// departureTimeCriterion prefers later departures forward and earlier ones in reverse.
func (m *MultiCriteriaLabelSetting) departureTimeCriterion(l *Label) int64 {
	if l.DepartureTime == nil {
		return 0
	}
	if m.reverse {
		return *l.DepartureTime
	}
	return -*l.DepartureTime
}

// Weight is the queue key of a label.
func (m *MultiCriteriaLabelSetting) Weight(l *Label) int64 {
	return m.weight(l)
}

func (m *MultiCriteriaLabelSetting) weight(l *Label) int64 {
	return m.timeSinceStartTime(l) +
		int64(float64(l.NTransfers)*m.opts.BetaTransfers) +
		int64(float64(l.StreetTime)*(m.opts.BetaStreetTime-1.0)) +
		l.ExtraWeight
}

func (m *MultiCriteriaLabelSetting) timeSinceStartTime(l *Label) int64 {
	return m.sign() * (l.CurrentTime - m.startTime)
}

func cmpInt64(a, b int64) int {
	return cmp.Compare(a, b)
}

func boolToInt64(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
