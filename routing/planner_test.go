package routing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ridesim/mapmodel"
	"ridesim/model"
)

// lineModel is a three-node straight road plus one isolated node, used
// across the planner's reachable/unreachable test cases.
func lineModel(t *testing.T) *mapmodel.RouteModel {
	t.Helper()
	nodes := []model.Node{
		{Pos: model.Coordinate{X: 0, Y: 0}},
		{Pos: model.Coordinate{X: 1, Y: 0}},
		{Pos: model.Coordinate{X: 2, Y: 0}},
		{Pos: model.Coordinate{X: 5, Y: 5}}, // isolated
	}
	roads := []mapmodel.Road{{Type: mapmodel.Residential, Nodes: []int{0, 1, 2}}}
	rm, err := mapmodel.New(nodes, roads, mapmodel.Bounds{MinLat: 0, MaxLat: 5, MinLon: 0, MaxLon: 5})
	require.NoError(t, err)
	return rm
}

func TestAStarSearchFindsReachablePath(t *testing.T) {
	rm := lineModel(t)
	p := NewPlanner(rm)
	obj := &model.Passenger{Object: model.Object{
		Position:    model.Coordinate{X: 0, Y: 0},
		Destination: model.Coordinate{X: 2, Y: 0},
	}}
	p.AStarSearch(obj)
	require.NotEmpty(t, obj.Path)
	assert.Equal(t, 0, obj.Path[0])
	assert.Equal(t, 2, obj.Path[len(obj.Path)-1])
}

func TestAStarSearchUnreachableLeavesEmptyPath(t *testing.T) {
	rm := lineModel(t)
	p := NewPlanner(rm)
	obj := &model.Passenger{Object: model.Object{
		Position:    model.Coordinate{X: 0, Y: 0},
		Destination: model.Coordinate{X: 5, Y: 5},
	}}
	p.AStarSearch(obj)
	assert.Empty(t, obj.Path)
}

func TestAStarSearchIsIdempotent(t *testing.T) {
	rm := lineModel(t)
	p := NewPlanner(rm)
	obj1 := &model.Passenger{Object: model.Object{
		Position:    model.Coordinate{X: 0, Y: 0},
		Destination: model.Coordinate{X: 2, Y: 0},
	}}
	obj2 := &model.Passenger{Object: model.Object{
		Position:    model.Coordinate{X: 0, Y: 0},
		Destination: model.Coordinate{X: 2, Y: 0},
	}}
	p.AStarSearch(obj1)
	p.AStarSearch(obj2)
	assert.Equal(t, obj1.Path, obj2.Path)
}

func TestAStarSearchResetsNodesAfterSearch(t *testing.T) {
	rm := lineModel(t)
	p := NewPlanner(rm)
	obj := &model.Passenger{Object: model.Object{
		Position:    model.Coordinate{X: 0, Y: 0},
		Destination: model.Coordinate{X: 2, Y: 0},
	}}
	p.AStarSearch(obj)
	for _, n := range rm.Nodes {
		assert.False(t, n.Visited)
		assert.Equal(t, 0.0, n.G)
	}
}

func TestAStarSearchSingleNodePath(t *testing.T) {
	rm := lineModel(t)
	p := NewPlanner(rm)
	obj := &model.Passenger{Object: model.Object{
		Position:    model.Coordinate{X: 0.1, Y: 0},
		Destination: model.Coordinate{X: 0.2, Y: 0},
	}}
	p.AStarSearch(obj)
	require.Len(t, obj.Path, 1)
	assert.Equal(t, 0, obj.Path[0])
}
