package actor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ridesim/mapmodel"
	"ridesim/model"
	"ridesim/routing"
	"ridesim/simlog"
)

// twoNodeModel is a minimal connected map: nodes at (0,0) and (1,0), with
// DistancePerCycle set to 1 so a single tick always completes one hop —
// keeping these tests tick-count-small without faking the physics.
func twoNodeModel(t *testing.T) *mapmodel.RouteModel {
	t.Helper()
	nodes := []model.Node{
		{Pos: model.Coordinate{X: 0, Y: 0}},
		{Pos: model.Coordinate{X: 1, Y: 0}},
	}
	roads := []mapmodel.Road{{Type: mapmodel.Residential, Nodes: []int{0, 1}}}
	rm, err := mapmodel.New(nodes, roads, mapmodel.Bounds{MinLat: 0, MaxLat: 1000, MinLon: 0, MaxLon: 1})
	require.NoError(t, err)
	return rm
}

func newTestLogger(t *testing.T) *simlog.Logger {
	t.Helper()
	l, err := simlog.New()
	require.NoError(t, err)
	return l
}

// TestEndToEndSimpleMatch mirrors spec section 8's scenario S1: one
// vehicle and one passenger on a two-node map, simple matching policy.
func TestEndToEndSimpleMatch(t *testing.T) {
	rm := twoNodeModel(t)
	planner := routing.NewPlanner(rm)
	log := newTestLogger(t)

	// Caps of 1 keep the scenario at exactly one vehicle and one passenger:
	// below the cap, both managers would generate extra actors every tick.
	queue := NewPassengerQueue(rm, planner, log, 1, 3, 2)
	vehicles := NewVehicleManager(rm, planner, log, 1)
	matcher := NewRideMatcher(queue, vehicles, log, MatchSimple, rm.Bounds.MaxLat-rm.Bounds.MinLat)

	v := &model.Vehicle{Object: model.Object{
		Position:         model.Coordinate{X: 0, Y: 0},
		Destination:      model.Coordinate{X: 1, Y: 0},
		DistancePerCycle: rm.DistancePerCycle,
	}, State: model.NoPassengerRequested}
	vehicles.vehicles[0] = v
	vehicles.nextID = 1

	p := &model.Passenger{Object: model.Object{
		Position:         model.Coordinate{X: 0, Y: 0},
		Destination:      model.Coordinate{X: 1, Y: 0},
		DistancePerCycle: rm.DistancePerCycle,
	}, Status: model.NoRideRequested}
	queue.newPassengers[0] = p
	queue.nextID = 1

	pickedUp := false
	droppedOff := false
	for i := 0; i < 20 && !droppedOff; i++ {
		queue.Tick()
		vehicles.Tick()
		matcher.Tick()
		if v.Passenger != nil {
			pickedUp = true
		}
		if v.Passenger == nil && pickedUp {
			droppedOff = true
		}
	}

	assert.True(t, pickedUp, "vehicle should have picked up the passenger")
	assert.True(t, droppedOff, "vehicle should have dropped the passenger off")
	assert.Empty(t, matcher.vehicleToPassenger)
	assert.Empty(t, matcher.passengerToVehicle)
}

// TestVehicleCannotReachPassengerRecordsInvalidMatch mirrors scenario S5:
// a committed match whose assignment routing fails must be un-matched and
// recorded so it is never re-proposed.
func TestVehicleCannotReachPassengerRecordsInvalidMatch(t *testing.T) {
	rm := twoNodeModel(t)
	planner := routing.NewPlanner(rm)
	log := newTestLogger(t)

	queue := NewPassengerQueue(rm, planner, log, 10, 3, 2)
	vehicles := NewVehicleManager(rm, planner, log, 10)
	matcher := NewRideMatcher(queue, vehicles, log, MatchSimple, rm.Bounds.MaxLat-rm.Bounds.MinLat)

	matcher.vehicleToPassenger[7] = 9
	matcher.Message(model.SimpleMessage{Code: model.VehicleCannotReachPassenger, ID: 7})
	matcher.Tick()

	assert.True(t, matcher.invalidMatches[invalidPair{passengerID: 9, vehicleID: 7}])
	_, stillMatched := matcher.vehicleToPassenger[7]
	assert.False(t, stillMatched)
}

// TestVehicleIsIneligibleUsesForwardLookup guards spec section 9's
// redesign note: eviction must read vehicle_to_passenger[v_id], not a
// buggy reverse lookup.
func TestVehicleIsIneligibleUsesForwardLookup(t *testing.T) {
	rm := twoNodeModel(t)
	planner := routing.NewPlanner(rm)
	log := newTestLogger(t)

	queue := NewPassengerQueue(rm, planner, log, 10, 3, 2)
	vehicles := NewVehicleManager(rm, planner, log, 10)
	matcher := NewRideMatcher(queue, vehicles, log, MatchSimple, rm.Bounds.MaxLat-rm.Bounds.MinLat)

	matcher.vehicleToPassenger[3] = 4
	matcher.passengerToVehicle[4] = 3
	matcher.vehicleIDs.Add(3)

	matcher.Message(model.SimpleMessage{Code: model.VehicleIsIneligible, ID: 3})
	matcher.Tick()

	_, ok := matcher.vehicleToPassenger[3]
	assert.False(t, ok)
	_, ok = matcher.passengerToVehicle[4]
	assert.False(t, ok)
	assert.False(t, matcher.vehicleIDs.Has(3))
}

func (s *orderedSet) Has(id int) bool { return s.present[id] }
