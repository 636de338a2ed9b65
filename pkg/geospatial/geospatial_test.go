package geospatial

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCoordinateValidate(t *testing.T) {
	assert.NoError(t, Coordinate{Lat: 16.8524, Lng: 74.5815}.Validate())
	assert.NoError(t, Coordinate{Lat: -90, Lng: 180}.Validate())
	assert.Error(t, Coordinate{Lat: 90.001, Lng: 0}.Validate())
	assert.Error(t, Coordinate{Lat: 0, Lng: -180.5}.Validate())
}

func TestDistanceMeters(t *testing.T) {
	sangli := Coordinate{Lat: 16.8524, Lng: 74.5815}
	miraj := Coordinate{Lat: 16.8300, Lng: 74.6400}

	d := DistanceMeters(sangli, miraj)
	assert.Greater(t, d, 5000.0)
	assert.Less(t, d, 10000.0)

	assert.Zero(t, DistanceMeters(sangli, sangli))
}

func TestWithinRadius(t *testing.T) {
	center := Coordinate{Lat: 16.8524, Lng: 74.5815}
	nearby := Coordinate{Lat: 16.8530, Lng: 74.5820}

	assert.True(t, WithinRadius(center, nearby, 500))
	assert.False(t, WithinRadius(center, Coordinate{Lat: 16.83, Lng: 74.64}, 500))
}
