package physics

import (
	"math"
	"time"

	"github.com/westphae/geomag/pkg/egm96"
	"github.com/westphae/geomag/pkg/wmm"
)

// Constants
const (
	EarthRadiusMiles = 3958.8   // Mean Earth radius in statute miles
	FeetToMeters     = 0.3048   // Conversion factor from feet to meters
	KnotsToMph       = 1.150779 // Conversion factor from knots to statute miles per hour
	SecondsPerHour   = 3600.0   // Used to turn miles per second into miles per hour
	degToRad         = math.Pi / 180
	radToDeg         = 180 / math.Pi
)

// CalculateMagneticVariation calculates the magnetic declination for a given position and time
// Returns declination in degrees (+East, -West)
func CalculateMagneticVariation(lat, lon, altFt float64, date time.Time) float64 {
	loc := egm96.NewLocationGeodetic(lat, lon, altFt*FeetToMeters)

	mag, err := wmm.CalculateWMMMagneticField(loc, date)
	if err != nil {
		// Outside the model's validity window
		return 0.0
	}

	return mag.D()
}

// MagneticBearing converts a true bearing to a magnetic one using the declination at the observer
func MagneticBearing(trueBearing, declination float64) float64 {
	return NormalizeDegrees(trueBearing - declination)
}
