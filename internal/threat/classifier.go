// Package threat turns aircraft snapshots into classified aircraft with a threat tier.
package threat

import (
	"math"
	"sort"
	"time"

	"github.com/macman10536/Adsb-alert/internal/config"
	"github.com/macman10536/Adsb-alert/internal/orbit"
	"github.com/macman10536/Adsb-alert/internal/physics"
)

// Params holds the fixed classification thresholds. The caution radius, ceiling and
// field elevation come from the runtime settings instead.
type Params struct {
	WarningRadiusMi  float64
	DangerRadiusMi   float64
	HeadingWindowDeg float64
	MinClosingMph    float64
}

// ParamsFromConfig extracts classification thresholds from the alerts configuration
func ParamsFromConfig(cfg config.AlertsConfig) Params {
	return Params{
		WarningRadiusMi:  cfg.WarningRadiusMi,
		DangerRadiusMi:   cfg.DangerRadiusMi,
		HeadingWindowDeg: cfg.HeadingWindowDeg,
		MinClosingMph:    cfg.MinClosingMph,
	}
}

// Env is everything a cycle supplies to the classifier besides the snapshot itself
type Env struct {
	Observer  Observer
	Settings  config.SettingsSnapshot
	Watchlist Watchlist
	Now       time.Time
}

// Classifier applies the threat rules. It reads and writes the distance history and
// orbit tracker it was built with, so it belongs to a single poll loop.
type Classifier struct {
	params  Params
	history *DistanceHistory
	orbits  *orbit.Tracker
}

// NewClassifier creates a classifier over the given per-aircraft state
func NewClassifier(params Params, history *DistanceHistory, orbits *orbit.Tracker) *Classifier {
	return &Classifier{
		params:  params,
		history: history,
		orbits:  orbits,
	}
}

// Classify evaluates one snapshot. It returns false when the snapshot is rejected or
// falls outside the caution ring without matching the watchlist.
func (c *Classifier) Classify(s Snapshot, env Env) (*Aircraft, bool) {
	if s.Hex == "" || math.IsNaN(s.Lat) || math.IsNaN(s.Lon) {
		return nil, false
	}
	if s.AltitudeFt == nil || math.IsNaN(*s.AltitudeFt) || math.IsInf(*s.AltitudeFt, 0) {
		return nil, false
	}
	alt := *s.AltitudeFt
	obs := env.Observer

	distance := physics.DistanceMiles(obs.Lat, obs.Lon, s.Lat, s.Lon)
	watched := env.Watchlist.Matches(s.Registration, s.Callsign, s.Hex)
	if distance > env.Settings.CautionRadiusMi && !watched {
		return nil, false
	}

	bearingFrom := physics.InitialBearing(obs.Lat, obs.Lon, s.Lat, s.Lon)
	bearingTo := physics.InitialBearing(s.Lat, s.Lon, obs.Lat, obs.Lon)

	closing := c.history.Observe(s.Hex, distance, env.Now)
	eta := physics.ETASeconds(distance, c.params.WarningRadiusMi, closing)

	ac := &Aircraft{
		Hex:               s.Hex,
		Callsign:          s.Callsign,
		Registration:      s.Registration,
		Lat:               s.Lat,
		Lon:               s.Lon,
		AltitudeFt:        int(alt),
		AGLFt:             int(alt) - env.Settings.FieldElevationFt,
		TrackDeg:          s.TrackDeg,
		SpeedKts:          s.SpeedKts,
		DistanceMi:        distance,
		BearingFromUser:   bearingFrom,
		BearingToUser:     bearingTo,
		ClosingMph:        closing,
		ETAToInnerRingSec: eta,
		IsWatched:         watched,
		UpdatedAt:         env.Now,
	}

	ac.IsThreat = c.admit(alt, distance, bearingTo, s.TrackDeg, closing, env.Settings)
	if ac.IsThreat {
		ac.Tier = c.ringTier(distance)
	}

	ac.IsOrbiting = c.orbits.Update(s.Hex, s.TrackDeg, env.Now)

	return ac, true
}

func (c *Classifier) admit(alt, distance, bearingTo float64, track, closing *float64, settings config.SettingsSnapshot) bool {
	if alt > float64(settings.CeilingFt+settings.FieldElevationFt) {
		return false
	}
	// First contact never has a closing speed and is never admitted
	if closing == nil || *closing < c.params.MinClosingMph {
		return false
	}
	if track != nil {
		return physics.AngularDifference(*track, bearingTo) <= c.params.HeadingWindowDeg
	}
	// Without a heading only aircraft already inside the warning ring qualify
	return distance <= c.params.WarningRadiusMi
}

func (c *Classifier) ringTier(distance float64) Tier {
	switch {
	case distance <= c.params.DangerRadiusMi:
		return TierDanger
	case distance <= c.params.WarningRadiusMi:
		return TierWarning
	default:
		return TierCaution
	}
}

// SortThreats orders watched aircraft first, then by ascending distance
func SortThreats(list []*Aircraft) {
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].IsWatched != list[j].IsWatched {
			return list[i].IsWatched
		}
		return list[i].DistanceMi < list[j].DistanceMi
	})
}

// SortByDistance orders aircraft by ascending distance
func SortByDistance(list []*Aircraft) {
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].DistanceMi < list[j].DistanceMi
	})
}
