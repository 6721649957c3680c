package spatial

import (
	"github.com/golang/geo/s2"
)

// Centroid calculates the spherical centroid of a set of positions.
// Points are averaged as unit vectors, so clusters straddling the
// antimeridian do not collapse towards longitude 0.
func Centroid(points []Position) Position {
	if len(points) == 0 {
		return Position{}
	}
	if len(points) == 1 {
		return points[0]
	}

	var sum s2.Point
	for _, p := range points {
		sum = s2.Point{Vector: sum.Add(s2.PointFromLatLng(p.LatLng()).Vector)}
	}

	// Antipodal inputs cancel out; fall back to the first point
	if sum.Norm() == 0 {
		return points[0]
	}

	ll := s2.LatLngFromPoint(s2.Point{Vector: sum.Normalize()})
	return Position{Lat: ll.Lat.Degrees(), Lon: ll.Lng.Degrees()}
}

// MaxDistanceFrom returns the largest distance in meters between center and any point
func MaxDistanceFrom(center Position, points []Position) float64 {
	var maxDist float64
	for _, p := range points {
		dist := HaversineDistance(center.Lat, center.Lon, p.Lat, p.Lon)
		if dist > maxDist {
			maxDist = dist
		}
	}
	return maxDist
}

// BoundingBox calculates the bounding box of a set of positions
// Returns (minLat, minLon, maxLat, maxLon)
func BoundingBox(points []Position) (float64, float64, float64, float64) {
	if len(points) == 0 {
		return 0, 0, 0, 0
	}

	minLat, maxLat := points[0].Lat, points[0].Lat
	minLon, maxLon := points[0].Lon, points[0].Lon

	for _, p := range points[1:] {
		if p.Lat < minLat {
			minLat = p.Lat
		}
		if p.Lat > maxLat {
			maxLat = p.Lat
		}
		if p.Lon < minLon {
			minLon = p.Lon
		}
		if p.Lon > maxLon {
			maxLon = p.Lon
		}
	}

	return minLat, minLon, maxLat, maxLon
}
