// Package geo verifies on-site presence. Geofencing is advisory: a failed or
// missing check never blocks the surrounding workflow, it is recorded and
// surfaced to operators.
package geo

import "math"

const (
	earthRadiusM = 6371000.0

	// DefaultRadiusM is the geofence acceptance threshold around a service
	// coordinate.
	DefaultRadiusM = 100.0
)

type Result struct {
	DistanceM float64 `json:"distance_m"`
	Valid     bool    `json:"valid"`
}

// HaversineDistance returns the great-circle distance in meters between two
// WGS84 coordinates.
func HaversineDistance(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusM * c
}

// CheckGeofence compares a reported position against a service coordinate.
// radiusM <= 0 falls back to DefaultRadiusM.
func CheckGeofence(currentLat, currentLon, serviceLat, serviceLon, radiusM float64) Result {
	if radiusM <= 0 {
		radiusM = DefaultRadiusM
	}
	distance := HaversineDistance(currentLat, currentLon, serviceLat, serviceLon)
	return Result{
		DistanceM: distance,
		Valid:     distance <= radiusM,
	}
}
