package actor

import (
	"context"
	"math"
	"sync"
	"time"

	"ridesim/mapmodel"
	"ridesim/model"
	"ridesim/routing"
	"ridesim/simlog"
)

// VehicleManager is C4 (spec section 4.4).
type VehicleManager struct {
	rm      *mapmodel.RouteModel
	planner *routing.Planner
	log     *simlog.Logger
	matcher *RideMatcher

	maxObjects int
	nextID     int

	viewMu   sync.RWMutex
	vehicles map[int]*model.Vehicle

	assignMu           sync.Mutex
	pendingAssignment  map[int]model.Coordinate

	pickupMu      sync.Mutex
	pendingPickup map[int]*model.Passenger

	toRemove []int
}

// NewVehicleManager builds C4.
func NewVehicleManager(rm *mapmodel.RouteModel, planner *routing.Planner, log *simlog.Logger, maxObjects int) *VehicleManager {
	return &VehicleManager{
		rm:                rm,
		planner:           planner,
		log:               log,
		maxObjects:        maxObjects,
		vehicles:          make(map[int]*model.Vehicle),
		pendingAssignment: make(map[int]model.Coordinate),
		pendingPickup:     make(map[int]*model.Passenger),
	}
}

func (vm *VehicleManager) bindMatcher(m *RideMatcher) { vm.matcher = m }

// Start generates exactly max_objects vehicles (spec section 4.4,
// "Construction").
func (vm *VehicleManager) Start() {
	for i := 0; i < vm.maxObjects; i++ {
		vm.GenerateNew()
	}
}

// GenerateNew places a new vehicle at the road node closest to a random
// point, with a random cruise destination, in state no_passenger_requested.
func (vm *VehicleManager) GenerateNew() {
	spawn := vm.rm.GetRandomMapPosition()
	snapped := vm.rm.Nodes[vm.rm.FindClosestNode(spawn)].Pos
	cruise := vm.rm.GetRandomMapPosition()

	v := &model.Vehicle{
		Object: model.Object{
			Position:         snapped,
			Destination:      cruise,
			DistancePerCycle: vm.rm.DistancePerCycle,
		},
		State: model.NoPassengerRequested,
	}

	vm.viewMu.Lock()
	id := vm.nextID
	vm.nextID++
	v.ID = id
	vm.vehicles[id] = v
	vm.viewMu.Unlock()

	vm.log.VehicleDriving(id, v.Position)
}

// RequestAssignment is the thread-safe setter RideMatcher calls to queue a
// vehicle's next pickup coordinate (spec section 4.4's pending-assignment
// map, section 2's "a few thread-safe getters").
func (vm *VehicleManager) RequestAssignment(vehicleID int, pickup model.Coordinate) {
	vm.assignMu.Lock()
	vm.pendingAssignment[vehicleID] = pickup
	vm.assignMu.Unlock()
}

// QueuePickup is the thread-safe setter RideMatcher calls to hand a vehicle
// its matched passenger once they've walked to the pickup node.
func (vm *VehicleManager) QueuePickup(vehicleID int, passenger *model.Passenger) {
	vm.pickupMu.Lock()
	vm.pendingPickup[vehicleID] = passenger
	vm.pickupMu.Unlock()
}

// Tick runs one iteration of Drive (spec section 4.4).
func (vm *VehicleManager) Tick() {
	vm.pickUpPassengers()
	vm.newPassengerAssignments()
	vm.driveVehicles()
	vm.applyRemovals()

	vm.viewMu.RLock()
	short := len(vm.vehicles) < vm.maxObjects
	vm.viewMu.RUnlock()
	if short {
		vm.GenerateNew()
	}
}

func (vm *VehicleManager) pickUpPassengers() {
	vm.pickupMu.Lock()
	pickups := vm.pendingPickup
	vm.pendingPickup = make(map[int]*model.Passenger)
	vm.pickupMu.Unlock()

	for vID, p := range pickups {
		v, ok := vm.vehicles[vID]
		if !ok {
			continue
		}
		v.Passenger = p
		destIdx := vm.rm.FindClosestNode(p.Destination)
		v.Destination = vm.rm.Nodes[destIdx].Pos
		v.SetPath(nil)
		v.State = model.DrivingPassenger
		vm.log.PickedUp(vID, p.ID)
	}
}

func (vm *VehicleManager) newPassengerAssignments() {
	vm.assignMu.Lock()
	assignments := vm.pendingAssignment
	vm.pendingAssignment = make(map[int]model.Coordinate)
	vm.assignMu.Unlock()

	for vID, pickup := range assignments {
		v, ok := vm.vehicles[vID]
		if !ok {
			continue
		}
		if len(v.Path) == 0 {
			vm.assignmentFailure(vID, v)
			continue
		}

		// Preserve the vehicle's visible position while routing from the
		// next path node, per spec section 4.4 and the design note in
		// section 9: the technique is kept verbatim, but the mutation
		// happens under viewMu so the telemetry snapshot never observes
		// the transient value.
		vm.viewMu.Lock()
		saved := v.Position
		nextNode := vm.rm.Nodes[v.Path[v.PathIndex]].Pos
		v.Position = nextNode
		destIdx := vm.rm.FindClosestNode(pickup)
		v.Destination = vm.rm.Nodes[destIdx].Pos
		vm.planner.AStarSearch(v)
		v.Position = saved
		vm.viewMu.Unlock()

		if len(v.Path) == 0 {
			vm.assignmentFailure(vID, v)
			continue
		}
		v.State = model.PassengerQueued
	}
}

func (vm *VehicleManager) assignmentFailure(vID int, v *model.Vehicle) {
	vm.matcher.Message(model.SimpleMessage{Code: model.VehicleCannotReachPassenger, ID: vID})
	v.State = model.NoPassengerRequested
	if v.MovementFailure() {
		vm.toRemove = append(vm.toRemove, vID)
	}
}

func (vm *VehicleManager) driveVehicles() {
	for id, v := range vm.vehicles {
		if len(v.Path) == 0 {
			vm.planner.AStarSearch(v)
		}
		if len(v.Path) == 0 {
			if v.State == model.NoPassengerRequested || v.State == model.NoPassengerQueued {
				if v.MovementFailure() {
					vm.toRemove = append(vm.toRemove, id)
				} else {
					v.Destination = vm.rm.GetRandomMapPosition()
				}
			}
			continue
		}

		if v.State == model.NoPassengerRequested {
			v.State = model.NoPassengerQueued
			vm.matcher.Message(model.SimpleMessage{Code: model.VehicleRequestsPassenger, ID: id})
		}

		if v.State != model.Waiting {
			advanceVehicle(v, vm.rm)
		}

		if v.Position == v.Destination {
			switch v.State {
			case model.NoPassengerQueued:
				v.Destination = vm.rm.GetRandomMapPosition()
				v.SetPath(nil)
			case model.PassengerQueued:
				v.State = model.Waiting
				vm.matcher.Message(model.SimpleMessage{Code: model.VehicleHasArrived, ID: id})
			case model.DrivingPassenger:
				pax := v.Passenger
				vm.log.DroppedOff(id, pax.ID)
				v.Passenger = nil
				v.Failures = 0
				v.Destination = vm.rm.GetRandomMapPosition()
				v.SetPath(nil)
				v.State = model.NoPassengerRequested
			}
		}
	}
}

// advanceVehicle performs one incremental step along v's path (spec
// section 4.4's "Incremental step"), carrying an aboard passenger's
// position along with it.
func advanceVehicle(v *model.Vehicle, rm *mapmodel.RouteModel) {
	if v.PathIndex >= len(v.Path) {
		return
	}
	next := rm.Nodes[v.Path[v.PathIndex]].Pos
	d := model.Dist(v.Position, next)
	if d <= v.DistancePerCycle {
		v.Position = next
		v.PathIndex++
	} else {
		heading := model.Heading(v.Position, next)
		v.Position.X += v.DistancePerCycle * math.Cos(heading)
		v.Position.Y += v.DistancePerCycle * math.Sin(heading)
	}
	if v.Passenger != nil {
		v.Passenger.Position = v.Position
	}
}

func (vm *VehicleManager) applyRemovals() {
	if len(vm.toRemove) == 0 {
		return
	}
	for _, id := range vm.toRemove {
		vm.matcher.Message(model.SimpleMessage{Code: model.VehicleIsIneligible, ID: id})
		vm.log.VehicleStuck(id)
		vm.viewMu.Lock()
		delete(vm.vehicles, id)
		vm.viewMu.Unlock()
	}
	vm.toRemove = vm.toRemove[:0]
}

// PositionOf is the thread-safe getter RideMatcher uses for distance-based
// matching.
func (vm *VehicleManager) PositionOf(id int) (model.Coordinate, bool) {
	vm.viewMu.RLock()
	defer vm.viewMu.RUnlock()
	v, ok := vm.vehicles[id]
	if !ok {
		return model.Coordinate{}, false
	}
	return v.Position, true
}

// Snapshot returns a best-effort copy of the current fleet for the
// visualisation reader.
func (vm *VehicleManager) Snapshot() []model.Vehicle {
	vm.viewMu.RLock()
	defer vm.viewMu.RUnlock()
	out := make([]model.Vehicle, 0, len(vm.vehicles))
	for _, v := range vm.vehicles {
		out = append(out, *v)
	}
	return out
}

// Run drives the 10ms tick loop until ctx is cancelled.
func (vm *VehicleManager) Run(ctx context.Context) error {
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			vm.Tick()
		}
	}
}
