// Package mapmodel implements RouteModel (spec section 4.1): the static
// road graph, random-position sampling, closest-node lookup, and the
// neighbour discovery that seeds the A* planner's adjacency lists.
package mapmodel

import (
	"errors"
	"math/rand"
	"sort"

	"ridesim/model"
)

// RoadType is the highway classification kept from the OSM "highway" tag.
// living_street collapses into Residential per spec section 6.
type RoadType int

const (
	Motorway RoadType = iota
	Trunk
	Primary
	Secondary
	Tertiary
	Residential
)

// Road is one OSM "way": an ordered sequence of node indices plus its
// classification.
type Road struct {
	Type  RoadType
	Nodes []int
}

// Bounds are the OSM document's <bounds> element, required at construction.
type Bounds struct {
	MinLat, MaxLat, MinLon, MaxLon float64
}

// RouteModel holds the road graph plus the working/pristine node pair spec
// section 4.1 describes: Nodes is mutated in place by the planner during a
// search, cleanNodes is a pristine copy taken at construction. ResetNodes
// does not read cleanNodes; it resets the scratch fields in place.
type RouteModel struct {
	Nodes      []model.Node
	cleanNodes []model.Node
	Roads      []Road
	Bounds     Bounds

	// DistancePerCycle is handed to every newly constructed MapObject
	// (spec section 3: (maxLat-minLat)/1000).
	DistancePerCycle float64
}

// ErrMissingBounds is returned when a map document has no usable bounds.
var ErrMissingBounds = errors.New("mapmodel: missing bounds")

// New builds a RouteModel from raw nodes and roads, sorts roads by type
// ordinal, and populates neighbour lists. It fails if bounds are missing
// (spec section 4.1).
func New(nodes []model.Node, roads []Road, bounds Bounds) (*RouteModel, error) {
	if bounds.MaxLat == 0 && bounds.MinLat == 0 && bounds.MaxLon == 0 && bounds.MinLon == 0 {
		return nil, ErrMissingBounds
	}
	rm := &RouteModel{
		Nodes:            append([]model.Node(nil), nodes...),
		Roads:            append([]Road(nil), roads...),
		Bounds:           bounds,
		DistancePerCycle: (bounds.MaxLat - bounds.MinLat) / 1000,
	}
	sort.SliceStable(rm.Roads, func(i, j int) bool { return rm.Roads[i].Type < rm.Roads[j].Type })
	rm.buildNeighbors()
	for i := range rm.Nodes {
		rm.Nodes[i].ResetScratch()
	}
	rm.cleanNodes = append([]model.Node(nil), rm.Nodes...)
	for i := range rm.cleanNodes {
		rm.cleanNodes[i].Neighbors = append([]int(nil), rm.Nodes[i].Neighbors...)
	}
	return rm, nil
}

// buildNeighbors runs once at construction: for every road, every interior
// node links to both its road-adjacent predecessor and successor, and each
// endpoint links to its one adjacent node. Linking only to the single
// nearest node on the way (rather than both sides) leaves interior nodes
// with one live edge apiece and strands any way of three or more nodes
// once the search marks that edge visited — this walks the whole chain
// instead, matching how the original's search-time neighbor lookup
// considers every other node on the way. Duplicate edges across multiple
// roads are kept, per spec section 4.1.
func (rm *RouteModel) buildNeighbors() {
	for _, road := range rm.Roads {
		for k, i := range road.Nodes {
			if k > 0 {
				rm.Nodes[i].Neighbors = append(rm.Nodes[i].Neighbors, road.Nodes[k-1])
			}
			if k < len(road.Nodes)-1 {
				rm.Nodes[i].Neighbors = append(rm.Nodes[i].Neighbors, road.Nodes[k+1])
			}
		}
	}
}

// ResetNodes resets every node's A*-scratch fields in place to their
// post-reset values via Node.ResetScratch (spec section 4.2 step 6,
// section 8's reset invariant); positions and neighbour lists are left
// untouched.
func (rm *RouteModel) ResetNodes() {
	for i := range rm.Nodes {
		rm.Nodes[i].ResetScratch()
	}
}

// GetRandomMapPosition returns a uniform-random coordinate inside the
// bounds box (spec section 4.1).
func (rm *RouteModel) GetRandomMapPosition() model.Coordinate {
	lon := rm.Bounds.MinLon + rand.Float64()*(rm.Bounds.MaxLon-rm.Bounds.MinLon)
	lat := rm.Bounds.MinLat + rand.Float64()*(rm.Bounds.MaxLat-rm.Bounds.MinLat)
	return model.Coordinate{X: lon, Y: lat}
}

// FindClosestNode linearly scans every node index (including nodes that no
// road uses) and returns the first-encountered minimum-distance index
// (spec section 4.1 tie-break).
// Nodes never mutate their Pos after construction, so this is safe to call
// without taking the planner's mutex even while a search is in flight.
func (rm *RouteModel) FindClosestNode(c model.Coordinate) int {
	best := -1
	bestDist := 0.0
	for i := range rm.Nodes {
		d := model.Dist(c, rm.Nodes[i].Pos)
		if best == -1 || d < bestDist {
			best = i
			bestDist = d
		}
	}
	return best
}
