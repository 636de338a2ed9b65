package geospatial

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"

	"civiclens/portal-backend/pkg/validate"
)

// Coordinate is a WGS84 latitude/longitude pair.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Validate rejects coordinates outside the valid WGS84 ranges.
func (c Coordinate) Validate() error {
	if err := validate.Range("lat", c.Lat, -90, 90); err != nil {
		return err
	}
	if err := validate.Range("lng", c.Lng, -180, 180); err != nil {
		return err
	}
	return nil
}

// Point converts the coordinate to an orb point (lng, lat order).
func (c Coordinate) Point() orb.Point {
	return orb.Point{c.Lng, c.Lat}
}

// DistanceMeters returns the haversine distance between two coordinates.
func DistanceMeters(a, b Coordinate) float64 {
	return geo.Distance(a.Point(), b.Point())
}

// WithinRadius reports whether b lies within radiusMeters of a.
func WithinRadius(a, b Coordinate, radiusMeters float64) bool {
	return DistanceMeters(a, b) <= radiusMeters
}
