package geo

import "github.com/paulmach/orb"

// Point converts a (lat, lng) pair to an orb.Point, which stores
// coordinates as (X, Y) = (lng, lat). pkg/snap indexes road endpoints
// as orb.Point so it can hand them straight to tidwall/rtree.
func Point(lat, lng float64) orb.Point {
	return orb.Point{lng, lat}
}

// Lat and Lng recover the latitude/longitude from an orb.Point built by
// Point.
func Lat(p orb.Point) float64 { return p[1] }
func Lng(p orb.Point) float64 { return p[0] }

// HaversinePoints is Haversine over orb.Point values.
func HaversinePoints(a, b orb.Point) float64 {
	return Haversine(Lat(a), Lng(a), Lat(b), Lng(b))
}

// PointToSegmentDistPoints is PointToSegmentDist over orb.Point values.
func PointToSegmentDistPoints(p, a, b orb.Point) (dist, ratio float64) {
	return PointToSegmentDist(Lat(p), Lng(p), Lat(a), Lng(a), Lat(b), Lng(b))
}
