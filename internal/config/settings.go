package config

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
)

// Caution radius bounds and step for runtime adjustment
const (
	MinCautionRadiusMi  = 1.0
	MaxCautionRadiusMi  = 10.0
	CautionRadiusStepMi = 0.5
)

// SettingsSnapshot is a consistent copy of the runtime settings
type SettingsSnapshot struct {
	FieldElevationFt int     `json:"field_elevation_ft"`
	CeilingFt        int     `json:"ceiling_ft"`
	CautionRadiusMi  float64 `json:"caution_radius_mi"`
}

// Settings holds the values that may change while the engine runs.
// The poll loop reads a snapshot once per cycle.
type Settings struct {
	mu               sync.RWMutex
	fieldElevationFt int
	ceilingFt        int
	cautionRadiusMi  float64
}

// NewSettings seeds runtime settings from the alerts configuration
func NewSettings(cfg AlertsConfig) *Settings {
	return &Settings{
		fieldElevationFt: cfg.FieldElevationFt,
		ceilingFt:        cfg.CeilingFt,
		cautionRadiusMi:  clampCautionRadius(cfg.CautionRadiusMi),
	}
}

// Snapshot returns the current settings
func (s *Settings) Snapshot() SettingsSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return SettingsSnapshot{
		FieldElevationFt: s.fieldElevationFt,
		CeilingFt:        s.ceilingFt,
		CautionRadiusMi:  s.cautionRadiusMi,
	}
}

// SetFieldElevationText parses an integer number of feet. On error the previous value is kept.
func (s *Settings) SetFieldElevationText(text string) error {
	v, err := parseFeet(text)
	if err != nil {
		return fmt.Errorf("field elevation: %w", err)
	}
	s.mu.Lock()
	s.fieldElevationFt = v
	s.mu.Unlock()
	return nil
}

// SetCeilingText parses an integer number of feet. On error the previous value is kept.
func (s *Settings) SetCeilingText(text string) error {
	v, err := parseFeet(text)
	if err != nil {
		return fmt.Errorf("ceiling: %w", err)
	}
	if v < 0 {
		return fmt.Errorf("ceiling: %w: %d is negative", ErrInvalidValue, v)
	}
	s.mu.Lock()
	s.ceilingFt = v
	s.mu.Unlock()
	return nil
}

// SetCautionRadiusText parses a radius in miles, clamps it to [1, 10] and rounds it to the nearest 0.5
func (s *Settings) SetCautionRadiusText(text string) error {
	v, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("caution radius: %w: %q", ErrInvalidValue, text)
	}
	s.SetCautionRadius(v)
	return nil
}

// SetCautionRadius clamps and stores the caution radius
func (s *Settings) SetCautionRadius(mi float64) {
	s.mu.Lock()
	s.cautionRadiusMi = clampCautionRadius(mi)
	s.mu.Unlock()
}

func parseFeet(text string) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a whole number of feet", ErrInvalidValue, text)
	}
	return v, nil
}

func clampCautionRadius(mi float64) float64 {
	mi = math.Round(mi/CautionRadiusStepMi) * CautionRadiusStepMi
	return math.Max(MinCautionRadiusMi, math.Min(MaxCautionRadiusMi, mi))
}
