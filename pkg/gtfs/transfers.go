package gtfs

import (
	"sort"
)

// Transfers indexes the transfer rules of a feed. Rules on parent stations are exploded
// to their platforms. Only route specific rules are supported, trip specific columns are kept but ignored.
type Transfers struct {
	transfersFromStop map[string][]Transfer
	transfersToStop   map[string][]Transfer
	routesByStop      map[string][]string
}

func NewTransfers(feed *Feed) *Transfers {
	t := &Transfers{
		transfersFromStop: make(map[string][]Transfer),
		transfersToStop:   make(map[string][]Transfer),
		routesByStop:      make(map[string][]string),
	}

	childrenOf := make(map[string][]string)
	for _, stopID := range feed.StopIDs() {
		s := feed.Stops[stopID]
		if s.LocationType == LocationTypeStop && s.ParentStation != "" {
			childrenOf[s.ParentStation] = append(childrenOf[s.ParentStation], s.ID)
		}
	}
	explode := func(stopID string) []string {
		s, ok := feed.Stops[stopID]
		if ok && s.LocationType == LocationTypeStation {
			return childrenOf[stopID]
		}
		return []string{stopID}
	}

	for _, rule := range feed.Transfers {
		for _, from := range explode(rule.FromStopID) {
			for _, to := range explode(rule.ToStopID) {
				r := rule
				r.FromStopID = from
				r.ToStopID = to
				t.transfersFromStop[from] = append(t.transfersFromStop[from], r)
				t.transfersToStop[to] = append(t.transfersToStop[to], r)
			}
		}
	}

	routeSet := make(map[string]map[string]struct{})
	for _, tripID := range feed.TripIDs() {
		trip := feed.Trips[tripID]
		for _, st := range feed.StopTimes[tripID] {
			if routeSet[st.StopID] == nil {
				routeSet[st.StopID] = make(map[string]struct{})
			}
			routeSet[st.StopID][trip.RouteID] = struct{}{}
		}
	}
	for stopID, routes := range routeSet {
		t.routesByStop[stopID] = sortedKeys(routes)
	}
	return t
}

func usable(rule Transfer) bool {
	return rule.Type == TransferRecommended || rule.Type == TransferMinTime
}

// TransfersToStop returns the effective rules for transferring to a departure at toStopID on route toRouteID.
// An empty toRouteID stands for departures of any route.
func (t *Transfers) TransfersToStop(toStopID, toRouteID string) []Transfer {
	byFromStop := make(map[string][]Transfer)
	for _, rule := range t.transfersToStop[toStopID] {
		if !usable(rule) {
			continue
		}
		if rule.ToRouteID != "" && rule.ToRouteID != toRouteID {
			continue
		}
		byFromStop[rule.FromStopID] = append(byFromStop[rule.FromStopID], rule)
	}

	result := make([]Transfer, 0)
	for _, fromStop := range sortedKeys(byFromStop) {
		rules := byFromStop[fromStop]
		if t.HasNoRouteSpecificArrivalTransferRules(fromStop) {
			generic := Transfer{FromStopID: fromStop, ToStopID: toStopID}
			if len(rules) == 1 {
				generic.Type = rules[0].Type
				generic.MinTransferTime = rules[0].MinTransferTime
				generic.HasMinTransferTime = rules[0].HasMinTransferTime
			}
			result = append(result, generic)
			continue
		}
		for _, fromRoute := range t.routesByStop[fromStop] {
			best, ok := mostSpecificRule(rules, fromRoute, toRouteID)
			if !ok {
				continue
			}
			best.FromRouteID = fromRoute
			best.ToRouteID = toRouteID
			result = append(result, best)
		}
	}

	if !containsFrom(result, toStopID) {
		result = append(result, Transfer{FromStopID: toStopID, ToStopID: toStopID})
	}
	return result
}

// TransfersFromStop returns the effective rules for transferring from an arrival at fromStopID on route fromRouteID.
func (t *Transfers) TransfersFromStop(fromStopID, fromRouteID string) []Transfer {
	byToStop := make(map[string][]Transfer)
	for _, rule := range t.transfersFromStop[fromStopID] {
		if !usable(rule) {
			continue
		}
		if rule.FromRouteID != "" && rule.FromRouteID != fromRouteID {
			continue
		}
		byToStop[rule.ToStopID] = append(byToStop[rule.ToStopID], rule)
	}

	result := make([]Transfer, 0)
	for _, toStop := range sortedKeys(byToStop) {
		rules := byToStop[toStop]
		if t.HasNoRouteSpecificDepartureTransferRules(toStop) {
			generic := Transfer{FromStopID: fromStopID, ToStopID: toStop}
			if len(rules) == 1 {
				generic.Type = rules[0].Type
				generic.MinTransferTime = rules[0].MinTransferTime
				generic.HasMinTransferTime = rules[0].HasMinTransferTime
			}
			result = append(result, generic)
			continue
		}
		for _, toRoute := range t.routesByStop[toStop] {
			best, ok := mostSpecificRule(rules, fromRouteID, toRoute)
			if !ok {
				continue
			}
			best.FromRouteID = fromRouteID
			best.ToRouteID = toRoute
			result = append(result, best)
		}
	}

	if !containsTo(result, fromStopID) {
		result = append(result, Transfer{FromStopID: fromStopID, ToStopID: fromStopID})
	}
	return result
}

// mostSpecificRule picks, among the rules applicable to the route pair, the one naming most of the routes.
func mostSpecificRule(rules []Transfer, fromRouteID, toRouteID string) (Transfer, bool) {
	ranked := make([]Transfer, 0, len(rules))
	for _, r := range rules {
		if (r.FromRouteID == "" || r.FromRouteID == fromRouteID) && (r.ToRouteID == "" || r.ToRouteID == toRouteID) {
			ranked = append(ranked, r)
		}
	}
	if len(ranked) == 0 {
		return Transfer{}, false
	}
	score := func(r Transfer) int {
		s := 0
		if r.FromRouteID == fromRouteID {
			s++
		}
		if r.ToRouteID == toRouteID {
			s++
		}
		return s
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return score(ranked[i]) > score(ranked[j])
	})
	return ranked[0], true
}

func containsFrom(rules []Transfer, stopID string) bool {
	for _, r := range rules {
		if r.FromStopID == stopID {
			return true
		}
	}
	return false
}

func containsTo(rules []Transfer, stopID string) bool {
	for _, r := range rules {
		if r.ToStopID == stopID {
			return true
		}
	}
	return false
}

// HasNoRouteSpecificArrivalTransferRules is true when no rule leaving the stop names a from_route.
func (t *Transfers) HasNoRouteSpecificArrivalTransferRules(stopID string) bool {
	for _, r := range t.transfersFromStop[stopID] {
		if r.FromRouteID != "" {
			return false
		}
	}
	return true
}

// HasNoRouteSpecificDepartureTransferRules is true when no rule entering the stop names a to_route.
func (t *Transfers) HasNoRouteSpecificDepartureTransferRules(stopID string) bool {
	for _, r := range t.transfersToStop[stopID] {
		if r.ToRouteID != "" {
			return false
		}
	}
	return true
}

func (t *Transfers) RoutesByStop(stopID string) []string {
	return t.routesByStop[stopID]
}
