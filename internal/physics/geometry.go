package physics

import "math"

var compassPoints = [16]string{
	"N", "NNE", "NE", "ENE", "E", "ESE", "SE", "SSE",
	"S", "SSW", "SW", "WSW", "W", "WNW", "NW", "NNW",
}

// NormalizeDegrees maps any angle into [0, 360)
func NormalizeDegrees(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	return deg
}

// DistanceMiles returns the great-circle (haversine) distance in statute miles
func DistanceMiles(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := lat1 * degToRad
	phi2 := lat2 * degToRad
	dPhi := (lat2 - lat1) * degToRad
	dLambda := (lon2 - lon1) * degToRad

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	// Rounding can push a slightly past 1 for antipodal points
	a = math.Min(1, math.Max(0, a))

	return 2 * EarthRadiusMiles * math.Asin(math.Sqrt(a))
}

// InitialBearing calculates the initial bearing from point 1 to point 2 in [0, 360)
func InitialBearing(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := lat1 * degToRad
	phi2 := lat2 * degToRad
	dLambda := (lon2 - lon1) * degToRad

	y := math.Sin(dLambda) * math.Cos(phi2)
	x := math.Cos(phi1)*math.Sin(phi2) - math.Sin(phi1)*math.Cos(phi2)*math.Cos(dLambda)

	return NormalizeDegrees(math.Atan2(y, x) * radToDeg)
}

// DestinationPoint returns the point reached by travelling distanceMi along bearing from lat, lon
func DestinationPoint(lat, lon, bearing, distanceMi float64) (float64, float64) {
	phi := lat * degToRad
	lambda := lon * degToRad
	theta := bearing * degToRad
	delta := distanceMi / EarthRadiusMiles

	phi2 := math.Asin(math.Sin(phi)*math.Cos(delta) + math.Cos(phi)*math.Sin(delta)*math.Cos(theta))
	lambda2 := lambda + math.Atan2(
		math.Sin(theta)*math.Sin(delta)*math.Cos(phi),
		math.Cos(delta)-math.Sin(phi)*math.Sin(phi2),
	)

	return phi2 * radToDeg, lambda2 * radToDeg
}

// AngularDifference returns the smallest angle between two headings, in [0, 180]
func AngularDifference(a, b float64) float64 {
	d := math.Abs(NormalizeDegrees(a) - NormalizeDegrees(b))
	if d > 180 {
		d = 360 - d
	}
	return d
}

// SignedTurn returns the signed change from heading "from" to heading "to" in (-180, 180].
// Positive values are right (clockwise) turns.
func SignedTurn(from, to float64) float64 {
	d := math.Mod(to-from, 360)
	if d > 180 {
		d -= 360
	} else if d <= -180 {
		d += 360
	}
	return d
}

// ETASeconds estimates the time until an aircraft closing at closingMph reaches targetRingMi.
// It returns nil when the aircraft is not closing or is already at or inside the ring.
func ETASeconds(distanceMi, targetRingMi float64, closingMph *float64) *float64 {
	if closingMph == nil || *closingMph <= 0 || distanceMi <= targetRingMi {
		return nil
	}
	eta := (distanceMi - targetRingMi) / *closingMph * SecondsPerHour
	return &eta
}

// Compass returns the 16-point compass label for a bearing
func Compass(bearing float64) string {
	idx := int((NormalizeDegrees(bearing)+11.25)/22.5) % 16
	return compassPoints[idx]
}
