package builder

import (
	"sort"
)

// timeline maps a second of day to a time expanded node of one platform.
type timeline struct {
	times []int32 // ascending
	nodes map[int32]int32
}

func newTimeline() *timeline {
	return &timeline{nodes: make(map[int32]int32)}
}

func (t *timeline) len() int {
	return len(t.times)
}

// getOrCreate returns the node at sec, creating it when missing.
func (t *timeline) getOrCreate(sec int32, create func() int32) int32 {
	if node, ok := t.nodes[sec]; ok {
		return node
	}
	node := create()
	i := sort.Search(len(t.times), func(i int) bool { return t.times[i] >= sec })
	t.times = append(t.times, 0)
	copy(t.times[i+1:], t.times[i:])
	t.times[i] = sec
	t.nodes[sec] = node
	return node
}

func (t *timeline) put(sec, node int32) {
	t.getOrCreate(sec, func() int32 { return node })
}

// ceiling returns the first entry at or after sec.
func (t *timeline) ceiling(sec int32) (int32, int32, bool) {
	i := sort.Search(len(t.times), func(i int) bool { return t.times[i] >= sec })
	if i == len(t.times) {
		return 0, 0, false
	}
	return t.times[i], t.nodes[t.times[i]], true
}

// lower returns the last entry strictly before sec.
func (t *timeline) lower(sec int32) (int32, int32, bool) {
	i := sort.Search(len(t.times), func(i int) bool { return t.times[i] >= sec })
	if i == 0 {
		return 0, 0, false
	}
	return t.times[i-1], t.nodes[t.times[i-1]], true
}

func (t *timeline) first() (int32, int32) {
	return t.times[0], t.nodes[t.times[0]]
}

func (t *timeline) last() (int32, int32) {
	sec := t.times[len(t.times)-1]
	return sec, t.nodes[sec]
}

// ascending calls fn for every entry, earliest first.
func (t *timeline) ascending(fn func(sec, node int32)) {
	for _, sec := range t.times {
		fn(sec, t.nodes[sec])
	}
}

func (t *timeline) descending(fn func(sec, node int32)) {
	for i := len(t.times) - 1; i >= 0; i-- {
		fn(t.times[i], t.nodes[t.times[i]])
	}
}
