// Package telemetry is the visualisation-reader goroutine spec section 5
// names as the fourth long-lived worker thread: a read-only, best-effort
// consumer of actor positions (spec section 1's Out-of-scope note). It
// never posts SimpleMessages or mutates actor state.
package telemetry

import (
	"context"
	"time"

	"ridesim/actor"
	"ridesim/geo"
)

// VehicleView is one fleet entry in a Snapshot.
type VehicleView struct {
	ID         int     `json:"id"`
	Lat        float64 `json:"lat"`
	Lon        float64 `json:"lon"`
	State      string  `json:"state"`
	PassengerID *int   `json:"passenger_id,omitempty"`
	DistanceKM float64 `json:"distance_km"`
}

// PassengerView is one waiting/walking passenger entry in a Snapshot.
type PassengerView struct {
	ID     int     `json:"id"`
	Lat    float64 `json:"lat"`
	Lon    float64 `json:"lon"`
	Status string  `json:"status"`
}

// Snapshot is the read-only payload pushed to HTTP/WebSocket/redis
// subscribers.
type Snapshot struct {
	Vehicles   []VehicleView   `json:"vehicles"`
	Passengers []PassengerView `json:"passengers"`
	AtUnixMilli int64          `json:"at_unix_milli"`
}

// Reader polls the queue and fleet on its own tick and builds snapshots.
// It never blocks the three simulation tick loops: PositionOf/Snapshot
// calls on PassengerQueue/VehicleManager only ever take a brief read lock.
type Reader struct {
	queue    *actor.PassengerQueue
	vehicles *actor.VehicleManager
	interval time.Duration

	publish func(Snapshot)
}

// NewReader builds a telemetry reader. publish may be nil.
func NewReader(queue *actor.PassengerQueue, vehicles *actor.VehicleManager, interval time.Duration, publish func(Snapshot)) *Reader {
	if publish == nil {
		publish = func(Snapshot) {}
	}
	return &Reader{queue: queue, vehicles: vehicles, interval: interval, publish: publish}
}

// SetPublish replaces the reader's fan-out sink. Used once at startup,
// after the telemetry server (which needs a constructed Reader to serve
// /snapshot from) exists to hand back its own Publish method.
func (r *Reader) SetPublish(publish func(Snapshot)) {
	if publish == nil {
		publish = func(Snapshot) {}
	}
	r.publish = publish
}

// Latest builds a single snapshot on demand (used by the HTTP poll
// endpoint).
func (r *Reader) Latest() Snapshot {
	vs := r.vehicles.Snapshot()
	ps := r.queue.Snapshot()

	snap := Snapshot{
		Vehicles:    make([]VehicleView, 0, len(vs)),
		Passengers:  make([]PassengerView, 0, len(ps)),
		AtUnixMilli: time.Now().UnixMilli(),
	}
	for _, v := range vs {
		view := VehicleView{
			ID:    v.ID,
			Lat:   v.Position.Lat(),
			Lon:   v.Position.Lon(),
			State: v.State.String(),
		}
		if v.Passenger != nil {
			id := v.Passenger.ID
			view.PassengerID = &id
		}
		view.DistanceKM = geo.GreatCircleKm(v.Position, v.Destination)
		snap.Vehicles = append(snap.Vehicles, view)
	}
	for _, p := range ps {
		snap.Passengers = append(snap.Passengers, PassengerView{
			ID:     p.ID,
			Lat:    p.Position.Lat(),
			Lon:    p.Position.Lon(),
			Status: p.Status.String(),
		})
	}
	return snap
}

// Run polls Latest on an interval and fans it out to publish until ctx is
// cancelled.
func (r *Reader) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.publish(r.Latest())
		}
	}
}
