// Package routing implements RoutePlanner (spec section 4.2): a single
// mutex-serialised A* search over a mapmodel.RouteModel.
package routing

import (
	"container/heap"
	"sync"

	"ridesim/mapmodel"
	"ridesim/model"
)

// Pathable is the tagged-variant trait spec section 9 describes in place
// of dynamic polymorphism: anything the planner can resolve start/end
// coordinates for and write a path back into. model.Object (embedded in
// both Passenger and Vehicle) implements it.
type Pathable interface {
	GetPosition() model.Coordinate
	GetDestination() model.Coordinate
	SetPath(path []int)
}

// Planner is the sole public surface: AStarSearch. Its mutex serialises
// every search, since a search mutates the RouteModel's working nodes
// (spec section 4.2 step 1, section 5's resource table).
type Planner struct {
	mu sync.Mutex
	rm *mapmodel.RouteModel
}

// NewPlanner builds a planner over the given route model.
func NewPlanner(rm *mapmodel.RouteModel) *Planner {
	return &Planner{rm: rm}
}

// openItem is one entry in the planner's open list.
type openItem struct {
	node int
	f    float64
}

// openList is a container/heap min-heap on f-value, the idiomatic Go
// substitute for spec section 4.2's "vector sorted descending by f,
// popped from back" — semantics are unchanged per the spec's own note.
type openList []openItem

func (o openList) Len() int            { return len(o) }
func (o openList) Less(i, j int) bool  { return o[i].f < o[j].f }
func (o openList) Swap(i, j int)       { o[i], o[j] = o[j], o[i] }
func (o *openList) Push(x interface{}) { *o = append(*o, x.(openItem)) }
func (o *openList) Pop() interface{} {
	old := *o
	n := len(old)
	item := old[n-1]
	*o = old[:n-1]
	return item
}

// AStarSearch resolves obj's position and destination to the nearest road
// nodes and searches between them, writing the result path (possibly
// empty, meaning unreachable) back via SetPath. Callers interpret an empty
// path as "unreachable" (spec section 4.2 step 5).
func (p *Planner) AStarSearch(obj Pathable) {
	p.mu.Lock()
	defer p.mu.Unlock()
	defer p.rm.ResetNodes()

	start := p.rm.FindClosestNode(obj.GetPosition())
	end := p.rm.FindClosestNode(obj.GetDestination())

	nodes := p.rm.Nodes

	nodes[start].G = 0
	nodes[start].H = model.Dist(nodes[start].Pos, nodes[end].Pos)
	nodes[start].Parent = -1
	nodes[start].Visited = true

	open := &openList{{node: start, f: nodes[start].H}}
	heap.Init(open)

	for open.Len() > 0 {
		cur := heap.Pop(open).(openItem).node

		if nodes[cur].Pos == nodes[end].Pos {
			obj.SetPath(reconstructPath(nodes, cur))
			return
		}

		for _, n := range nodes[cur].Neighbors {
			g := nodes[cur].G + model.Dist(nodes[cur].Pos, nodes[n].Pos)
			if nodes[n].Visited && g >= nodes[n].G {
				continue
			}
			nodes[n].G = g
			nodes[n].H = model.Dist(nodes[n].Pos, nodes[end].Pos)
			nodes[n].Parent = cur
			nodes[n].Visited = true
			heap.Push(open, openItem{node: n, f: g + nodes[n].H})
		}
	}

	// Open list emptied without reaching the goal: leave the path empty.
	obj.SetPath(nil)
}

// reconstructPath walks parent pointers from end back to the start and
// returns the path start-to-end.
func reconstructPath(nodes []model.Node, end int) []int {
	var rev []int
	for n := end; n != -1; n = nodes[n].Parent {
		rev = append(rev, n)
	}
	path := make([]int, len(rev))
	for i, n := range rev {
		path[len(rev)-1-i] = n
	}
	return path
}
