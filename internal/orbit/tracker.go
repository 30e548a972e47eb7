// Package orbit detects aircraft circling over a point from their track history.
package orbit

import (
	"math"
	"time"

	"github.com/macman10536/Adsb-alert/internal/physics"
)

// Params controls orbit detection
type Params struct {
	Window         time.Duration // samples older than this are evicted
	MinSamples     int
	MinSpan        time.Duration
	MinTurnDeg     float64 // cumulative absolute turn
	MinTurnRateDps float64 // average absolute turn rate
}

// DefaultParams returns the stock detection parameters
func DefaultParams() Params {
	return Params{
		Window:         120 * time.Second,
		MinSamples:     6,
		MinSpan:        10 * time.Second,
		MinTurnDeg:     270,
		MinTurnRateDps: 1.5,
	}
}

type sample struct {
	at    time.Time
	track float64
}

// Tracker keeps a sliding window of track samples per aircraft.
// It is not safe for concurrent use; the poll loop owns it.
type Tracker struct {
	params  Params
	history map[string][]sample
}

// NewTracker creates a tracker with the given parameters
func NewTracker(params Params) *Tracker {
	return &Tracker{
		params:  params,
		history: make(map[string][]sample),
	}
}

// Update records a track sample for hex and reports whether the aircraft is orbiting.
// A nil track records nothing and returns false.
func (t *Tracker) Update(hex string, track *float64, now time.Time) bool {
	if track == nil {
		return false
	}

	samples := append(t.history[hex], sample{at: now, track: physics.NormalizeDegrees(*track)})

	cutoff := now.Add(-t.params.Window)
	drop := 0
	for drop < len(samples) && samples[drop].at.Before(cutoff) {
		drop++
	}
	samples = samples[drop:]
	t.history[hex] = samples

	if len(samples) < t.params.MinSamples {
		return false
	}

	span := samples[len(samples)-1].at.Sub(samples[0].at)
	if span < t.params.MinSpan {
		return false
	}

	var turned float64
	for i := 1; i < len(samples); i++ {
		turned += physics.SignedTurn(samples[i-1].track, samples[i].track)
	}
	turned = math.Abs(turned)

	if turned < t.params.MinTurnDeg {
		return false
	}
	return turned/span.Seconds() >= t.params.MinTurnRateDps
}

// Cleanup drops the history of every aircraft not in active
func (t *Tracker) Cleanup(active map[string]struct{}) {
	for hex := range t.history {
		if _, ok := active[hex]; !ok {
			delete(t.history, hex)
		}
	}
}

// Len returns the number of aircraft with history
func (t *Tracker) Len() int {
	return len(t.history)
}
