// Package actor implements the three tick-loop actors spec section 2
// describes: PassengerQueue, VehicleManager, and RideMatcher. They share a
// package so they can hold direct pointers to each other — the only
// "cross-actor call" they ever make is appending a SimpleMessage to
// another actor's inbox, or a few dedicated thread-safe setters
// (VehicleManager's RequestAssignment/QueuePickup) and getters (PositionOf,
// PassengerRef), never a reach into another actor's owned maps.
package actor

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"

	"ridesim/mapmodel"
	"ridesim/model"
	"ridesim/routing"
	"ridesim/simlog"
)

// PassengerQueue is C3 (spec section 4.3).
type PassengerQueue struct {
	rm      *mapmodel.RouteModel
	planner *routing.Planner
	log     *simlog.Logger
	matcher *RideMatcher

	maxObjects int
	minWait    time.Duration
	waitRange  time.Duration

	viewMu             sync.RWMutex
	newPassengers      map[int]*model.Passenger
	walkingPassengers  map[int]*model.Passenger
	nextID             int

	inboxMu sync.Mutex
	inbox   []model.SimpleMessage

	nextGenAt time.Time
}

// NewPassengerQueue builds C3. minWait/waitRange are seconds, per the -w/-r
// CLI flags (spec section 6).
func NewPassengerQueue(rm *mapmodel.RouteModel, planner *routing.Planner, log *simlog.Logger, maxObjects, minWaitSec, waitRangeSec int) *PassengerQueue {
	return &PassengerQueue{
		rm:                rm,
		planner:           planner,
		log:               log,
		maxObjects:        maxObjects,
		minWait:           time.Duration(minWaitSec) * time.Second,
		waitRange:         time.Duration(waitRangeSec) * time.Second,
		newPassengers:     make(map[int]*model.Passenger),
		walkingPassengers: make(map[int]*model.Passenger),
	}
}

// bindMatcher wires the cross-actor pointer after all three actors exist.
func (q *PassengerQueue) bindMatcher(m *RideMatcher) { q.matcher = m }

// Message appends a SimpleMessage under the inbox mutex; callable from any
// goroutine (spec section 4.3's "Public message input").
func (q *PassengerQueue) Message(m model.SimpleMessage) {
	q.inboxMu.Lock()
	q.inbox = append(q.inbox, m)
	q.inboxMu.Unlock()
}

// Start seeds max_objects/2 passengers, retrying on failed candidates to
// stay at that level (spec section 4.3 "Startup").
func (q *PassengerQueue) Start() {
	target := q.maxObjects / 2
	for len(q.newPassengers) < target {
		q.GenerateNew()
	}
}

// GenerateNew picks a random start/destination pair, plans a route between
// them, and either discards the candidate (empty path) or admits it with a
// fresh id. Returns whether a passenger was admitted.
func (q *PassengerQueue) GenerateNew() bool {
	start := q.rm.GetRandomMapPosition()
	dest := q.rm.GetRandomMapPosition()

	p := &model.Passenger{
		Object: model.Object{
			Position:         start,
			Destination:      dest,
			DistancePerCycle: q.rm.DistancePerCycle,
		},
		Status: model.NoRideRequested,
	}
	q.planner.AStarSearch(p)
	if len(p.Path) == 0 {
		q.log.Infof("discarding passenger candidate: unreachable destination")
		return false
	}

	q.viewMu.Lock()
	id := q.nextID
	q.nextID++
	p.ID = id
	q.newPassengers[id] = p
	q.viewMu.Unlock()
	return true
}

// Tick runs one iteration of WaitForRide (spec section 4.3).
func (q *PassengerQueue) Tick() {
	now := time.Now()
	if !now.Before(q.nextGenAt) {
		if len(q.newPassengers) < q.maxObjects {
			q.GenerateNew()
		} else {
			q.log.QueueFull()
		}
		jitter := time.Duration(0)
		if q.waitRange > 0 {
			jitter = time.Duration(rand.Int63n(int64(q.waitRange) + 1))
		}
		q.nextGenAt = now.Add(q.minWait + jitter)
	}

	q.drainInbox()
	q.walkWalkingPassengers()
	q.requestRides()
}

func (q *PassengerQueue) drainInbox() {
	q.inboxMu.Lock()
	msgs := q.inbox
	q.inbox = nil
	q.inboxMu.Unlock()

	for _, m := range msgs {
		switch m.Code {
		case model.RideOnWay:
			// no-op, per spec section 4.3.
		case model.RideArrived:
			q.onRideArrived(m.ID)
		case model.PassengerPickedUp:
			q.viewMu.Lock()
			delete(q.walkingPassengers, m.ID)
			q.viewMu.Unlock()
		case model.PassengerFailure:
			q.onPassengerFailure(m.ID)
		}
	}
}

func (q *PassengerQueue) onRideArrived(id int) {
	q.viewMu.Lock()
	defer q.viewMu.Unlock()
	p, ok := q.newPassengers[id]
	if !ok {
		return
	}
	delete(q.newPassengers, id)
	// The matched vehicle waits at the road node closest to this
	// passenger (spec section 3's Vehicle-waiting invariant); the
	// passenger independently resolves the same node rather than being
	// handed a coordinate over the wire.
	closest := q.rm.Nodes[q.rm.FindClosestNode(p.Position)]
	p.WalkToPos = closest.Pos
	p.HasWalkTo = true
	p.Status = model.Walking
	q.walkingPassengers[id] = p
}

func (q *PassengerQueue) onPassengerFailure(id int) {
	q.viewMu.Lock()
	defer q.viewMu.Unlock()
	p, ok := q.newPassengers[id]
	if !ok {
		return
	}
	if p.MovementFailure() {
		delete(q.newPassengers, id)
		q.log.PassengerUnreachable(id)
		q.matcher.Message(model.SimpleMessage{Code: model.PassengerIsIneligible, ID: id})
		return
	}
	p.Status = model.NoRideRequested
}

func (q *PassengerQueue) walkWalkingPassengers() {
	q.viewMu.Lock()
	defer q.viewMu.Unlock()
	for id, p := range q.walkingPassengers {
		if !p.HasWalkTo {
			continue
		}
		d := model.Dist(p.Position, p.WalkToPos)
		if d <= p.DistancePerCycle {
			p.Position = p.WalkToPos
			if p.Status != model.AtRide {
				p.Status = model.AtRide
				q.matcher.Message(model.SimpleMessage{Code: model.PassengerToVehicle, ID: id})
			}
			continue
		}
		heading := model.Heading(p.Position, p.WalkToPos)
		p.Position.X += p.DistancePerCycle * math.Cos(heading)
		p.Position.Y += p.DistancePerCycle * math.Sin(heading)
	}
}

func (q *PassengerQueue) requestRides() {
	q.viewMu.Lock()
	defer q.viewMu.Unlock()
	for id, p := range q.newPassengers {
		if p.Status != model.NoRideRequested {
			continue
		}
		p.Status = model.RideRequested
		q.log.PassengerRequesting(id, p.Position)
		q.matcher.Message(model.SimpleMessage{Code: model.PassengerRequestsRide, ID: id})
	}
}

// PositionOf is the thread-safe getter RideMatcher uses for distance-based
// matching (spec section 2's "a few thread-safe getters").
func (q *PassengerQueue) PositionOf(id int) (model.Coordinate, bool) {
	q.viewMu.RLock()
	defer q.viewMu.RUnlock()
	if p, ok := q.newPassengers[id]; ok {
		return p.Position, true
	}
	if p, ok := q.walkingPassengers[id]; ok {
		return p.Position, true
	}
	return model.Coordinate{}, false
}

// PassengerRef returns the live passenger record for a pickup handoff to
// VehicleManager. Ownership passes to the vehicle from here: the matcher
// immediately posts passenger_picked_up, which erases q's own reference on
// the next drain.
func (q *PassengerQueue) PassengerRef(id int) (*model.Passenger, bool) {
	q.viewMu.RLock()
	defer q.viewMu.RUnlock()
	if p, ok := q.walkingPassengers[id]; ok {
		return p, true
	}
	if p, ok := q.newPassengers[id]; ok {
		return p, true
	}
	return nil, false
}

// Snapshot returns a best-effort, race-free copy of the waiting/walking
// passengers for the visualisation reader (spec section 5's resource
// table: reads of actor-owned maps are race-tolerant; we still take a
// brief lock so a reader never observes a half-mutated map entry).
func (q *PassengerQueue) Snapshot() []model.Passenger {
	q.viewMu.RLock()
	defer q.viewMu.RUnlock()
	out := make([]model.Passenger, 0, len(q.newPassengers)+len(q.walkingPassengers))
	for _, p := range q.newPassengers {
		out = append(out, *p)
	}
	for _, p := range q.walkingPassengers {
		out = append(out, *p)
	}
	return out
}

// Run drives the 10ms tick loop until ctx is cancelled. Per spec section
// 5, the simulation itself provides no cancellation — ctx exists so tests
// and an optional operator-initiated shutdown have a clean hook, not
// because the core design requires one.
func (q *PassengerQueue) Run(ctx context.Context) error {
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			q.Tick()
		}
	}
}
