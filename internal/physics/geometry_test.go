package physics

import (
	"math"
	"testing"
	"time"
)

func approx(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestDistanceMiles(t *testing.T) {
	if d := DistanceMiles(40, -75, 40, -75); d != 0 {
		t.Errorf("Expected 0 for identical points, got %f", d)
	}

	// One degree of latitude is ~69.09 statute miles on a 3958.8 mi sphere
	if d := DistanceMiles(0, 0, 1, 0); !approx(d, 69.09, 0.01) {
		t.Errorf("Expected ~69.09 mi, got %f", d)
	}

	a := DistanceMiles(37.6189, -122.3750, 37.7213, -122.2208)
	b := DistanceMiles(37.7213, -122.2208, 37.6189, -122.3750)
	if a != b {
		t.Errorf("Expected symmetric distance, got %f and %f", a, b)
	}
}

func TestInitialBearing(t *testing.T) {
	tests := []struct {
		name                   string
		lat1, lon1, lat2, lon2 float64
		expected               float64
	}{
		{"north", 0, 0, 1, 0, 0},
		{"east", 0, 0, 0, 1, 90},
		{"south", 1, 0, 0, 0, 180},
		{"west", 0, 1, 0, 0, 270},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := InitialBearing(tt.lat1, tt.lon1, tt.lat2, tt.lon2)
			if !approx(got, tt.expected, 1e-9) {
				t.Errorf("Expected %f, got %f", tt.expected, got)
			}
			if got < 0 || got >= 360 {
				t.Errorf("Expected bearing in [0, 360), got %f", got)
			}
		})
	}
}

func TestAngularDifference(t *testing.T) {
	tests := []struct {
		a, b, expected float64
	}{
		{0, 350, 10},
		{350, 0, 10},
		{90, 270, 180},
		{45, 45, 0},
		{-10, 10, 20},
		{720, 1, 1},
	}

	for _, tt := range tests {
		if got := AngularDifference(tt.a, tt.b); !approx(got, tt.expected, 1e-9) {
			t.Errorf("AngularDifference(%v, %v): expected %v, got %v", tt.a, tt.b, tt.expected, got)
		}
	}
}

func TestSignedTurn(t *testing.T) {
	tests := []struct {
		from, to, expected float64
	}{
		{350, 10, 20},
		{10, 350, -20},
		{0, 180, 180},
		{180, 0, 180},
		{90, 90, 0},
	}

	for _, tt := range tests {
		if got := SignedTurn(tt.from, tt.to); !approx(got, tt.expected, 1e-9) {
			t.Errorf("SignedTurn(%v, %v): expected %v, got %v", tt.from, tt.to, tt.expected, got)
		}
	}
}

func TestETASeconds(t *testing.T) {
	closing := 60.0
	eta := ETASeconds(2.0, 1.0, &closing)
	if eta == nil || !approx(*eta, 60, 1e-9) {
		t.Fatalf("Expected 60s, got %v", eta)
	}

	if ETASeconds(2.0, 1.0, nil) != nil {
		t.Error("Expected nil without closing speed")
	}
	receding := -20.0
	if ETASeconds(2.0, 1.0, &receding) != nil {
		t.Error("Expected nil for receding aircraft")
	}
	if ETASeconds(0.8, 1.0, &closing) != nil {
		t.Error("Expected nil when already inside the ring")
	}
}

func TestCompass(t *testing.T) {
	tests := map[float64]string{
		0:      "N",
		11.24:  "N",
		11.25:  "NNE",
		90:     "E",
		180:    "S",
		225:    "SW",
		348.74: "NNW",
		348.75: "N",
		359.9:  "N",
	}

	for bearing, expected := range tests {
		if got := Compass(bearing); got != expected {
			t.Errorf("Compass(%v): expected %s, got %s", bearing, expected, got)
		}
	}
}

func TestDestinationPointRoundTrip(t *testing.T) {
	lat, lon := DestinationPoint(47.0, -122.0, 135, 2.5)
	if d := DistanceMiles(47.0, -122.0, lat, lon); !approx(d, 2.5, 1e-6) {
		t.Errorf("Expected 2.5 mi, got %f", d)
	}
	if b := InitialBearing(47.0, -122.0, lat, lon); !approx(b, 135, 1e-3) {
		t.Errorf("Expected bearing 135, got %f", b)
	}
}

func TestCalculateMagneticVariation(t *testing.T) {
	// Seattle has an easterly declination of roughly 15 degrees
	decl := CalculateMagneticVariation(47.6, -122.3, 0, time.Date(2022, 6, 1, 0, 0, 0, 0, time.UTC))
	if decl < 10 || decl > 20 {
		t.Errorf("Expected declination between 10 and 20 degrees, got %f", decl)
	}

	if got := MagneticBearing(10, 15); !approx(got, 355, 1e-9) {
		t.Errorf("Expected magnetic bearing 355, got %f", got)
	}
}
