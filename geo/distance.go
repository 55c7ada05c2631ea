// Package geo adds a human-readable great-circle distance for telemetry
// display. It never feeds the A* heuristic or any invariant-checked
// distance — those stay the plain Euclidean math spec section 4.2
// specifies (see ridesim/model.Dist).
package geo

import (
	"github.com/kellydunn/golang-geo"

	"ridesim/model"
)

// GreatCircleKm returns the approximate great-circle distance between two
// coordinates in kilometres, treating X/Y as lon/lat degrees.
func GreatCircleKm(a, b model.Coordinate) float64 {
	pa := geo.NewPoint(a.Lat(), a.Lon())
	pb := geo.NewPoint(b.Lat(), b.Lon())
	return pa.GreatCircleDistance(pb)
}
