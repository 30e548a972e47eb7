package threat

import (
	"time"

	"github.com/macman10536/Adsb-alert/internal/physics"
)

// Closing speed is only derived from a prior sample whose age falls strictly inside this band
const (
	MinSampleAge = 500 * time.Millisecond
	MaxSampleAge = 30 * time.Second
)

type distanceSample struct {
	distanceMi float64
	at         time.Time
}

// DistanceHistory remembers the last observed distance per aircraft.
// It is owned by the poll loop and is not safe for concurrent use.
type DistanceHistory struct {
	samples map[string]distanceSample
}

// NewDistanceHistory creates an empty history
func NewDistanceHistory() *DistanceHistory {
	return &DistanceHistory{samples: make(map[string]distanceSample)}
}

// Observe returns the closing speed against the prior sample for hex, if one is fresh enough,
// and then records the current distance. Positive values mean the range is decreasing.
func (h *DistanceHistory) Observe(hex string, distanceMi float64, now time.Time) *float64 {
	var closing *float64
	if prev, ok := h.samples[hex]; ok {
		dt := now.Sub(prev.at)
		if dt > MinSampleAge && dt < MaxSampleAge {
			mph := (prev.distanceMi - distanceMi) / dt.Seconds() * physics.SecondsPerHour
			closing = &mph
		}
	}
	h.samples[hex] = distanceSample{distanceMi: distanceMi, at: now}
	return closing
}

// Prune drops samples for aircraft not in active
func (h *DistanceHistory) Prune(active map[string]struct{}) {
	for hex := range h.samples {
		if _, ok := active[hex]; !ok {
			delete(h.samples, hex)
		}
	}
}

// Reset forgets every sample
func (h *DistanceHistory) Reset() {
	clear(h.samples)
}

// Len returns the number of aircraft with a recorded sample
func (h *DistanceHistory) Len() int {
	return len(h.samples)
}
