package osmparser

import (
	"github.com/paulmach/osm"
)

type NodeType int

const (
	END_NODE NodeType = iota
	BETWEEN_NODE
	JUNCTION_NODE
)

var (
	walkableHighway = map[string]struct{}{
		"footway":        {},
		"path":           {},
		"pedestrian":     {},
		"steps":          {},
		"living_street":  {},
		"residential":    {},
		"service":        {},
		"track":          {},
		"unclassified":   {},
		"road":           {},
		"platform":       {},
		"corridor":       {},
		"cycleway":       {},
		"bridleway":      {},
		"tertiary":       {},
		"tertiary_link":  {},
		"secondary":      {},
		"secondary_link": {},
		"primary":        {},
		"primary_link":   {},
		"trunk":          {},
		"trunk_link":     {},
	}

	// walkable only with a sidewalk or an explicit foot tag
	motorHighway = map[string]struct{}{
		"motorway":      {},
		"motorway_link": {},
	}

	footDenied = map[string]struct{}{
		"no":           {},
		"private":      {},
		"use_sidepath": {},
		"military":     {},
		"restricted":   {},
	}

	footAllowed = map[string]struct{}{
		"yes":         {},
		"designated":  {},
		"permissive":  {},
		"official":    {},
		"destination": {},
	}

	blockingBarrier = map[string]struct{}{
		"fence":          {},
		"wall":           {},
		"hedge":          {},
		"retaining_wall": {},
		"city_wall":      {},
		"ditch":          {},
		"hampshire_gate": {},
	}

	sidewalkValues = map[string]struct{}{
		"yes":   {},
		"both":  {},
		"left":  {},
		"right": {},
	}
)

// acceptFootWay reports whether a pedestrian may walk along way.
func acceptFootWay(way *osm.Way) bool {
	if len(way.Nodes) < 2 {
		return false
	}
	foot := way.Tags.Find("foot")
	if _, denied := footDenied[foot]; denied {
		return false
	}
	_, explicitFoot := footAllowed[foot]

	highway := way.Tags.Find("highway")
	if highway == "" {
		// stop platforms are often drawn without a highway tag
		return way.Tags.Find("railway") == "platform" || way.Tags.Find("public_transport") == "platform"
	}
	if way.Tags.Find("area") == "yes" && highway != "pedestrian" && highway != "platform" {
		return false
	}
	if way.Tags.Find("construction") != "" || highway == "construction" || highway == "proposed" {
		return false
	}

	if !explicitFoot {
		if _, denied := footDenied[way.Tags.Find("access")]; denied {
			return false
		}
	}

	if _, ok := motorHighway[highway]; ok {
		return explicitFoot || hasSidewalk(way.Tags)
	}
	if _, ok := walkableHighway[highway]; ok {
		return true
	}
	return explicitFoot
}

func hasSidewalk(tags osm.Tags) bool {
	for _, key := range []string{"sidewalk", "sidewalk:both", "sidewalk:left", "sidewalk:right"} {
		if _, ok := sidewalkValues[tags.Find(key)]; ok {
			return true
		}
	}
	return false
}

// blocksFoot reports whether node is a barrier a pedestrian cannot pass.
func blocksFoot(node *osm.Node) bool {
	foot := node.Tags.Find("foot")
	if _, ok := footAllowed[foot]; ok {
		return false
	}
	if _, denied := footDenied[foot]; denied {
		return true
	}
	barrier := node.Tags.Find("barrier")
	if barrier == "" {
		return false
	}
	if _, ok := blockingBarrier[barrier]; ok {
		return true
	}
	_, denied := footDenied[node.Tags.Find("access")]
	return denied
}

func wayName(way *osm.Way) string {
	if name := way.Tags.Find("name"); name != "" {
		return name
	}
	return way.Tags.Find("ref")
}
