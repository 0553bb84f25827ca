package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/geoattend-api/internal/models"
	appErrors "github.com/noah-isme/geoattend-api/pkg/errors"
)

func TestHaversineIdenticalPoints(t *testing.T) {
	assert.Zero(t, HaversineDistanceMeters(-12.0464, -77.0428, -12.0464, -77.0428, DefaultEarthRadiusKm))
	assert.Zero(t, HaversineDistanceMeters(0, 0, 0, 0, DefaultEarthRadiusKm))
}

func TestHaversineSymmetry(t *testing.T) {
	d1 := HaversineDistanceMeters(48.8566, 2.3522, 51.5074, -0.1278, DefaultEarthRadiusKm)
	d2 := HaversineDistanceMeters(51.5074, -0.1278, 48.8566, 2.3522, DefaultEarthRadiusKm)
	assert.InDelta(t, d1, d2, 1e-6)
}

func TestHaversineReferenceDistance(t *testing.T) {
	// One degree of latitude along a meridian at the equator is ~111.19 km.
	d := HaversineDistanceMeters(0, 0, 1, 0, DefaultEarthRadiusKm)
	assert.InEpsilon(t, 111195.0, d, 0.01)
}

func TestHaversineAntipodal(t *testing.T) {
	// Half the Earth's circumference, must not NaN.
	d := HaversineDistanceMeters(0, 0, 0, 180, DefaultEarthRadiusKm)
	assert.InEpsilon(t, DefaultEarthRadiusKm*1000*3.14159265, d, 0.001)
}

func TestValidCoordinates(t *testing.T) {
	assert.True(t, ValidCoordinates(-90, 180))
	assert.True(t, ValidCoordinates(90, -180))
	assert.True(t, ValidCoordinates(0, 0))
	assert.False(t, ValidCoordinates(91, 0))
	assert.False(t, ValidCoordinates(-90.1, 0))
	assert.False(t, ValidCoordinates(0, 180.5))
}

func TestValidAccuracy(t *testing.T) {
	assert.True(t, ValidAccuracy(10, 10))
	assert.True(t, ValidAccuracy(4.2, 10))
	assert.False(t, ValidAccuracy(10.01, 10))
}

func TestNearestClassroomPicksClosest(t *testing.T) {
	// Offsets along the equator: roughly 50m, 10m and 30m away.
	candidates := []models.Classroom{
		{ID: "far", Latitude: 0.00045, Longitude: 0},
		{ID: "near", Latitude: 0.00009, Longitude: 0},
		{ID: "mid", Latitude: 0.00027, Longitude: 0},
	}

	nearest, distance, err := NearestClassroom(0, 0, candidates, DefaultEarthRadiusKm)
	require.NoError(t, err)
	assert.Equal(t, "near", nearest.ID)
	assert.InDelta(t, 10.0, distance, 1.0)
}

func TestNearestClassroomFirstWinsTies(t *testing.T) {
	candidates := []models.Classroom{
		{ID: "a", Latitude: 0.0001, Longitude: 0},
		{ID: "b", Latitude: 0.0001, Longitude: 0},
	}

	nearest, _, err := NearestClassroom(0, 0, candidates, DefaultEarthRadiusKm)
	require.NoError(t, err)
	assert.Equal(t, "a", nearest.ID)
}

func TestNearestClassroomEmptySet(t *testing.T) {
	_, _, err := NearestClassroom(0, 0, nil, DefaultEarthRadiusKm)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrEmptyCandidateSet, appErrors.FromError(err))
}
