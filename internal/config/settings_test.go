package config

import (
	"errors"
	"testing"
)

func TestSetCautionRadiusText(t *testing.T) {
	tests := []struct {
		input    string
		expected float64
	}{
		{"2", 2.0},
		{" 2.7 ", 2.5},
		{"2.8", 3.0},
		{"0.2", 1.0},
		{"25", 10.0},
		{"10", 10.0},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			s := NewSettings(Default().Alerts)
			if err := s.SetCautionRadiusText(tt.input); err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if got := s.Snapshot().CautionRadiusMi; got != tt.expected {
				t.Errorf("Expected %.1f, got %.1f", tt.expected, got)
			}
		})
	}
}

func TestInvalidTextKeepsPreviousValue(t *testing.T) {
	s := NewSettings(Default().Alerts)
	before := s.Snapshot()

	if err := s.SetFieldElevationText("abc"); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("Expected ErrInvalidValue for elevation, got %v", err)
	}
	if err := s.SetCeilingText("1.5k"); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("Expected ErrInvalidValue for ceiling, got %v", err)
	}
	if err := s.SetCautionRadiusText("far"); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("Expected ErrInvalidValue for radius, got %v", err)
	}

	if after := s.Snapshot(); after != before {
		t.Errorf("Expected settings unchanged, got %+v (was %+v)", after, before)
	}
}

func TestSetFieldElevationAndCeiling(t *testing.T) {
	s := NewSettings(Default().Alerts)
	if err := s.SetFieldElevationText(" 645 "); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if err := s.SetCeilingText("1200"); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	snap := s.Snapshot()
	if snap.FieldElevationFt != 645 {
		t.Errorf("Expected elevation 645, got %d", snap.FieldElevationFt)
	}
	if snap.CeilingFt != 1200 {
		t.Errorf("Expected ceiling 1200, got %d", snap.CeilingFt)
	}
}
