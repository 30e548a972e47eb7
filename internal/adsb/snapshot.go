package adsb

import (
	"strings"

	"github.com/macman10536/Adsb-alert/internal/threat"
)

// RegistrationLookup resolves a hex id to a display registration
type RegistrationLookup interface {
	Lookup(hex string) (string, bool)
}

// ToSnapshots converts raw feed records into classifier input.
// Records without a hex id or a position are dropped.
func ToSnapshots(raw *RawAircraftData, lookup RegistrationLookup) []threat.Snapshot {
	if raw == nil {
		return nil
	}

	out := make([]threat.Snapshot, 0, len(raw.Aircraft))
	for _, t := range raw.Aircraft {
		hex := strings.ToLower(strings.TrimSpace(t.Hex))
		if hex == "" || t.Lat == nil || t.Lon == nil {
			continue
		}

		s := threat.Snapshot{
			Hex:          hex,
			Callsign:     strings.TrimSpace(t.Flight),
			Registration: strings.TrimSpace(t.Registration),
			Lat:          *t.Lat,
			Lon:          *t.Lon,
			AltitudeFt:   altitude(t),
			TrackDeg:     t.Track,
			SpeedKts:     t.GS,
		}
		if lookup != nil {
			if reg, ok := lookup.Lookup(hex); ok {
				s.Registration = reg
			}
		}
		out = append(out, s)
	}
	return out
}

// altitude prefers the barometric value. A non-numeric alt_baro such as "ground"
// leaves the altitude unknown, which the classifier rejects.
func altitude(t ADSBTarget) *float64 {
	if t.AltBaro != nil {
		if v, ok := t.AltBaro.Number(); ok {
			return &v
		}
		return nil
	}
	if t.AltGeom != nil {
		v := *t.AltGeom
		return &v
	}
	return nil
}
