package actor

import (
	"context"
	"sync"
	"time"

	"github.com/samber/lo"

	"ridesim/model"
	"ridesim/simlog"
)

// MatchType selects RideMatcher's pairing policy (spec section 4.5).
type MatchType int

const (
	MatchSimple MatchType = iota
	MatchClosest
)

// invalidPair is a (passenger, vehicle) pair proven unreachable.
type invalidPair struct {
	passengerID int
	vehicleID   int
}

// orderedSet is an insertion-ordered set of ids, the structure behind
// RideMatcher's passenger_ids and vehicle_ids (spec section 4.5).
type orderedSet struct {
	order   []int
	present map[int]bool
}

func newOrderedSet() *orderedSet {
	return &orderedSet{present: make(map[int]bool)}
}

func (s *orderedSet) Add(id int) {
	if s.present[id] {
		return
	}
	s.present[id] = true
	s.order = append(s.order, id)
}

func (s *orderedSet) Remove(id int) {
	if !s.present[id] {
		return
	}
	delete(s.present, id)
	s.order = lo.Filter(s.order, func(v int, _ int) bool { return v != id })
}

func (s *orderedSet) Len() int { return len(s.order) }

// RideMatcher is C5 (spec section 4.5).
type RideMatcher struct {
	queue    *PassengerQueue
	vehicles *VehicleManager
	log      *simlog.Logger

	matchType   MatchType
	closeEnough float64

	passengers *orderedSet
	vehicleIDs *orderedSet

	vehicleToPassenger map[int]int
	passengerToVehicle map[int]int
	invalidMatches     map[invalidPair]bool

	inboxMu sync.Mutex
	inbox   []model.SimpleMessage
}

// NewRideMatcher builds C5. mapDimension is the single map-dimension span
// (spec section 9's Open Question #1: kept as a named, exposed parameter
// rather than silently re-deriving it) that close_enough is 15% of.
func NewRideMatcher(queue *PassengerQueue, vehicles *VehicleManager, log *simlog.Logger, matchType MatchType, mapDimension float64) *RideMatcher {
	m := &RideMatcher{
		queue:              queue,
		vehicles:           vehicles,
		log:                log,
		matchType:          matchType,
		closeEnough:        mapDimension * 0.15,
		passengers:         newOrderedSet(),
		vehicleIDs:         newOrderedSet(),
		vehicleToPassenger: make(map[int]int),
		passengerToVehicle: make(map[int]int),
		invalidMatches:     make(map[invalidPair]bool),
	}
	queue.bindMatcher(m)
	vehicles.bindMatcher(m)
	return m
}

// Message appends a SimpleMessage under the inbox mutex; callable from any
// goroutine.
func (m *RideMatcher) Message(msg model.SimpleMessage) {
	m.inboxMu.Lock()
	m.inbox = append(m.inbox, msg)
	m.inboxMu.Unlock()
}

// Tick runs one iteration of MatchRides (spec section 4.5).
func (m *RideMatcher) Tick() {
	m.drainInbox()
	if m.passengers.Len() > 0 && m.vehicleIDs.Len() > 0 {
		m.tryMatch()
	}
}

func (m *RideMatcher) drainInbox() {
	m.inboxMu.Lock()
	msgs := m.inbox
	m.inbox = nil
	m.inboxMu.Unlock()

	for _, msg := range msgs {
		switch msg.Code {
		case model.PassengerRequestsRide:
			m.passengers.Add(msg.ID)
		case model.VehicleRequestsPassenger:
			m.vehicleIDs.Add(msg.ID)
		case model.VehicleCannotReachPassenger:
			m.onVehicleCannotReach(msg.ID)
		case model.VehicleHasArrived:
			m.onVehicleArrived(msg.ID)
		case model.PassengerToVehicle:
			m.onPassengerAtRide(msg.ID)
		case model.PassengerIsIneligible:
			m.onPassengerIneligible(msg.ID)
		case model.VehicleIsIneligible:
			m.onVehicleIneligible(msg.ID)
		}
	}
}

func (m *RideMatcher) onVehicleCannotReach(vID int) {
	pID, ok := m.vehicleToPassenger[vID]
	if !ok {
		return
	}
	m.clearMatch(vID, pID)
	m.invalidMatches[invalidPair{passengerID: pID, vehicleID: vID}] = true
	m.log.Unmatched(vID, pID)
	m.queue.Message(model.SimpleMessage{Code: model.PassengerFailure, ID: pID})
}

func (m *RideMatcher) onVehicleArrived(vID int) {
	if pID, ok := m.vehicleToPassenger[vID]; ok {
		m.queue.Message(model.SimpleMessage{Code: model.RideArrived, ID: pID})
	}
}

// onPassengerAtRide looks up the passenger's matched vehicle in
// passenger_to_vehicle, hands the passenger to that vehicle, and erases the
// match both ways.
func (m *RideMatcher) onPassengerAtRide(pID int) {
	vID, ok := m.passengerToVehicle[pID]
	if !ok {
		return
	}
	if pax, ok := m.queue.PassengerRef(pID); ok {
		m.vehicles.QueuePickup(vID, pax)
	}
	m.clearMatch(vID, pID)
	m.clearInvalidFor(pID)
	m.queue.Message(model.SimpleMessage{Code: model.PassengerPickedUp, ID: pID})
}

func (m *RideMatcher) onPassengerIneligible(pID int) {
	m.passengers.Remove(pID)
	if vID, ok := m.passengerToVehicle[pID]; ok {
		m.clearMatch(vID, pID)
	}
	m.clearInvalidFor(pID)
}

// onVehicleIneligible reads the vehicle's matched passenger straight from
// vehicle_to_passenger (spec section 9); there is no reverse lookup.
func (m *RideMatcher) onVehicleIneligible(vID int) {
	m.vehicleIDs.Remove(vID)
	if pID, ok := m.vehicleToPassenger[vID]; ok {
		m.clearMatch(vID, pID)
		m.queue.Message(model.SimpleMessage{Code: model.PassengerFailure, ID: pID})
	}
}

func (m *RideMatcher) clearMatch(vID, pID int) {
	delete(m.vehicleToPassenger, vID)
	delete(m.passengerToVehicle, pID)
}

func (m *RideMatcher) clearInvalidFor(pID int) {
	for pair := range m.invalidMatches {
		if pair.passengerID == pID {
			delete(m.invalidMatches, pair)
		}
	}
}

// tryMatch attempts exactly one match, per spec section 4.5's matching
// policies.
func (m *RideMatcher) tryMatch() {
	pID := m.passengers.order[0]

	switch m.matchType {
	case MatchClosest:
		m.tryMatchClosest(pID)
	default:
		m.tryMatchSimple(pID)
	}
}

func (m *RideMatcher) tryMatchSimple(pID int) {
	for _, vID := range m.vehicleIDs.order {
		if m.invalidMatches[invalidPair{passengerID: pID, vehicleID: vID}] {
			continue
		}
		m.commit(pID, vID)
		return
	}
	m.queue.Message(model.SimpleMessage{Code: model.PassengerFailure, ID: pID})
}

func (m *RideMatcher) tryMatchClosest(pID int) {
	pPos, ok := m.queue.PositionOf(pID)
	if !ok {
		return
	}
	candidates := lo.Filter(m.vehicleIDs.order, func(vID int, _ int) bool {
		return !m.invalidMatches[invalidPair{passengerID: pID, vehicleID: vID}]
	})
	if len(candidates) == 0 {
		m.queue.Message(model.SimpleMessage{Code: model.PassengerFailure, ID: pID})
		return
	}

	best, bestDist := -1, 0.0
	for _, vID := range candidates {
		vPos, ok := m.vehicles.PositionOf(vID)
		if !ok {
			continue
		}
		d := model.Dist(pPos, vPos)
		if d <= m.closeEnough {
			m.commit(pID, vID)
			return
		}
		if best == -1 || d < bestDist {
			best, bestDist = vID, d
		}
	}
	if best == -1 {
		m.queue.Message(model.SimpleMessage{Code: model.PassengerFailure, ID: pID})
		return
	}
	m.commit(pID, best)
}

// commit installs a match, removes both ids from the candidate queues,
// logs it, and routes the follow-up messages (spec section 4.5).
func (m *RideMatcher) commit(pID, vID int) {
	m.vehicleToPassenger[vID] = pID
	m.passengerToVehicle[pID] = vID
	m.passengers.Remove(pID)
	m.vehicleIDs.Remove(vID)
	m.log.Matched(vID, pID)

	pPos, _ := m.queue.PositionOf(pID)
	m.vehicles.RequestAssignment(vID, pPos)
	m.queue.Message(model.SimpleMessage{Code: model.RideOnWay, ID: pID})
}

// Run drives the 10ms tick loop until ctx is cancelled.
func (m *RideMatcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			m.Tick()
		}
	}
}
