// Package geo provides the pure geodesy functions behind geofenced
// attendance: great-circle distance, fix validation and nearest-candidate
// search.
package geo

import (
	"math"

	"github.com/noah-isme/geoattend-api/internal/models"
	appErrors "github.com/noah-isme/geoattend-api/pkg/errors"
)

// DefaultEarthRadiusKm is the mean Earth radius used when no override is
// configured.
const DefaultEarthRadiusKm = 6371.0

// HaversineDistanceMeters computes the great-circle distance in meters
// between two coordinates given in decimal degrees.
func HaversineDistanceMeters(lat1, lon1, lat2, lon2, earthRadiusKm float64) float64 {
	if earthRadiusKm <= 0 {
		earthRadiusKm = DefaultEarthRadiusKm
	}

	lat1Rad := lat1 * math.Pi / 180
	lon1Rad := lon1 * math.Pi / 180
	lat2Rad := lat2 * math.Pi / 180
	lon2Rad := lon2 * math.Pi / 180

	dLat := lat2Rad - lat1Rad
	dLon := lon2Rad - lon1Rad

	sinLat := math.Sin(dLat / 2)
	sinLon := math.Sin(dLon / 2)
	a := sinLat*sinLat + math.Cos(lat1Rad)*math.Cos(lat2Rad)*sinLon*sinLon

	// Clamp guards against rounding pushing the argument past 1 for
	// antipodal points.
	c := 2 * math.Asin(math.Min(1, math.Sqrt(a)))

	return earthRadiusKm * c * 1000
}

// ValidCoordinates reports whether the pair lies within valid GPS ranges.
// Bounds are inclusive.
func ValidCoordinates(lat, lon float64) bool {
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

// ValidAccuracy reports whether the reported accuracy (meters) is acceptable
// against the given threshold.
func ValidAccuracy(accuracy, threshold float64) bool {
	return accuracy <= threshold
}

// NearestClassroom returns the candidate closest to the given position using
// a linear scan. Ties keep the first candidate. An empty candidate set is an
// error; callers must surface a domain-level rejection before reaching here.
func NearestClassroom(lat, lon float64, candidates []models.Classroom, earthRadiusKm float64) (models.Classroom, float64, error) {
	if len(candidates) == 0 {
		return models.Classroom{}, 0, appErrors.ErrEmptyCandidateSet
	}

	nearest := candidates[0]
	minDistance := HaversineDistanceMeters(lat, lon, nearest.Latitude, nearest.Longitude, earthRadiusKm)

	for _, candidate := range candidates[1:] {
		distance := HaversineDistanceMeters(lat, lon, candidate.Latitude, candidate.Longitude, earthRadiusKm)
		if distance < minDistance {
			minDistance = distance
			nearest = candidate
		}
	}

	return nearest, minDistance, nil
}
