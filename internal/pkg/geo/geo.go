package geo

import "math"

const earthRadiusMeters = 6371000

// DistanceMeters computes the great-circle distance between two coordinates
// using the haversine formula.
func DistanceMeters(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := (lat2 - lat1) * (math.Pi / 180.0)
	dLon := (lon2 - lon1) * (math.Pi / 180.0)

	lat1Rad := lat1 * (math.Pi / 180.0)
	lat2Rad := lat2 * (math.Pi / 180.0)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Sin(dLon/2)*math.Sin(dLon/2)*math.Cos(lat1Rad)*math.Cos(lat2Rad)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusMeters * c
}

// WithinRadius reports whether the position lies within radius+tolerance
// meters of the center.
func WithinRadius(lat, lon, centerLat, centerLon, radiusMeters, toleranceMeters float64) bool {
	return DistanceMeters(lat, lon, centerLat, centerLon) <= radiusMeters+toleranceMeters
}

type Presence int

const (
	// Inconclusive means the reading is too imprecise to confirm or refute
	// presence. Inconclusive samples must not trigger transitions; treating
	// them as failed checks makes noisy GPS fixes oscillate the session.
	Inconclusive Presence = iota
	Inside
	Outside
)

func (p Presence) String() string {
	switch p {
	case Inside:
		return "inside"
	case Outside:
		return "outside"
	default:
		return "inconclusive"
	}
}

// Evaluate classifies a position reading against a circular geofence.
// accuracyMeters is the reading's reported accuracy; maxAccuracyMeters is the
// policy bound beyond which a reading is inconclusive.
func Evaluate(lat, lon, accuracyMeters, centerLat, centerLon, radiusMeters, toleranceMeters, maxAccuracyMeters float64) Presence {
	if maxAccuracyMeters > 0 && accuracyMeters > maxAccuracyMeters {
		return Inconclusive
	}
	if WithinRadius(lat, lon, centerLat, centerLon, radiusMeters, toleranceMeters) {
		return Inside
	}
	return Outside
}
