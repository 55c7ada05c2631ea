package mapmodel_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "ridesim/mapmodel"
	"ridesim/model"
	"ridesim/routing"
)

func TestNewFailsWithoutBounds(t *testing.T) {
	_, err := New(nil, nil, Bounds{})
	assert.ErrorIs(t, err, ErrMissingBounds)
}

func lineModel(t *testing.T) *RouteModel {
	t.Helper()
	nodes := []model.Node{
		{Pos: model.Coordinate{X: 0, Y: 0}},
		{Pos: model.Coordinate{X: 1, Y: 0}},
		{Pos: model.Coordinate{X: 2, Y: 0}},
	}
	roads := []Road{{Type: Residential, Nodes: []int{0, 1, 2}}}
	rm, err := New(nodes, roads, Bounds{MinLat: 0, MaxLat: 1, MinLon: 0, MaxLon: 2})
	require.NoError(t, err)
	return rm
}

func TestBuildNeighborsLinksAdjacentNodes(t *testing.T) {
	rm := lineModel(t)
	assert.Contains(t, rm.Nodes[0].Neighbors, 1)
	assert.Contains(t, rm.Nodes[2].Neighbors, 1)
	// The middle node must link to both sides, not just one, or a search
	// starting from either end dead-ends here once this edge is visited.
	assert.Contains(t, rm.Nodes[1].Neighbors, 0)
	assert.Contains(t, rm.Nodes[1].Neighbors, 2)
}

// TestBuildNeighborsAllowsFullWayTraversal guards against a neighbour
// graph that links each node to only one side of a >=3-node road: such a
// graph lets A* leave node 0 but strands it at node 1 with no unvisited
// edge left to reach node 2.
func TestBuildNeighborsAllowsFullWayTraversal(t *testing.T) {
	rm := lineModel(t)
	p := routing.NewPlanner(rm)
	obj := &model.Passenger{Object: model.Object{
		Position:    model.Coordinate{X: 0, Y: 0},
		Destination: model.Coordinate{X: 2, Y: 0},
	}}
	p.AStarSearch(obj)
	require.Equal(t, []int{0, 1, 2}, obj.Path)
}

func TestFindClosestNodeTieBreaksFirst(t *testing.T) {
	nodes := []model.Node{
		{Pos: model.Coordinate{X: 0, Y: 0}},
		{Pos: model.Coordinate{X: 0, Y: 0}},
	}
	rm, err := New(nodes, nil, Bounds{MaxLat: 1, MaxLon: 1})
	require.NoError(t, err)
	assert.Equal(t, 0, rm.FindClosestNode(model.Coordinate{X: 0, Y: 0}))
}

func TestGetRandomMapPositionWithinBounds(t *testing.T) {
	rm := lineModel(t)
	for i := 0; i < 100; i++ {
		c := rm.GetRandomMapPosition()
		assert.GreaterOrEqual(t, c.X, rm.Bounds.MinLon)
		assert.LessOrEqual(t, c.X, rm.Bounds.MaxLon)
		assert.GreaterOrEqual(t, c.Y, rm.Bounds.MinLat)
		assert.LessOrEqual(t, c.Y, rm.Bounds.MaxLat)
	}
}

func TestResetNodesRestoresScratch(t *testing.T) {
	rm := lineModel(t)
	rm.Nodes[0].Visited = true
	rm.Nodes[0].G = 42
	rm.ResetNodes()
	assert.False(t, rm.Nodes[0].Visited)
	assert.Equal(t, 0.0, rm.Nodes[0].G)
}

func TestDistancePerCycleFromBounds(t *testing.T) {
	rm := lineModel(t)
	assert.Equal(t, (rm.Bounds.MaxLat-rm.Bounds.MinLat)/1000, rm.DistancePerCycle)
}
