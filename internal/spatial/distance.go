package spatial

import (
	"github.com/golang/geo/s2"
)

// Constants
const (
	EarthRadiusMeters = 6371000.0 // Earth's mean radius in meters
	EarthRadiusKm     = 6371.0    // Earth's mean radius in kilometers
)

// Position is a latitude/longitude pair in degrees.
// Lat always comes first, including in the [2]float64 form used on the wire.
type Position struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// PositionFromPair builds a Position from a {lat, lon} pair
func PositionFromPair(pair [2]float64) Position {
	return Position{Lat: pair[0], Lon: pair[1]}
}

// Pair returns the position as {lat, lon}
func (p Position) Pair() [2]float64 {
	return [2]float64{p.Lat, p.Lon}
}

// LatLng converts the position to an s2.LatLng
func (p Position) LatLng() s2.LatLng {
	return s2.LatLngFromDegrees(p.Lat, p.Lon)
}

// Haversine calculates the great-circle distance between a and b in kilometers.
// s2.LatLng.Distance evaluates the haversine central angle.
func Haversine(a, b Position) float64 {
	return a.LatLng().Distance(b.LatLng()).Radians() * EarthRadiusKm
}

// HaversineDistance calculates the great-circle distance between two points in meters
// using the Haversine formula
func HaversineDistance(lat1, lon1, lat2, lon2 float64) float64 {
	p1 := s2.LatLngFromDegrees(lat1, lon1)
	p2 := s2.LatLngFromDegrees(lat2, lon2)
	return p1.Distance(p2).Radians() * EarthRadiusMeters
}
