package threat

import (
	"fmt"
	"strings"
	"time"

	"github.com/macman10536/Adsb-alert/internal/physics"
)

// Tier is the proximity level of an admitted threat
type Tier int

const (
	TierNone Tier = iota
	TierCaution
	TierWarning
	TierDanger
)

// String returns the lowercase tier name
func (t Tier) String() string {
	switch t {
	case TierCaution:
		return "caution"
	case TierWarning:
		return "warning"
	case TierDanger:
		return "danger"
	default:
		return "none"
	}
}

// MarshalText renders the tier by name in JSON
func (t Tier) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText parses a tier name
func (t *Tier) UnmarshalText(text []byte) error {
	for _, candidate := range []Tier{TierNone, TierCaution, TierWarning, TierDanger} {
		if string(text) == candidate.String() {
			*t = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown tier %q", text)
}

// Snapshot is one aircraft report from the feed as the classifier sees it.
// Reports without an identifier or position never become snapshots.
type Snapshot struct {
	Hex          string   `json:"hex"`
	Callsign     string   `json:"callsign,omitempty"`
	Registration string   `json:"registration,omitempty"`
	Lat          float64  `json:"lat"`
	Lon          float64  `json:"lon"`
	AltitudeFt   *float64 `json:"altitude_ft,omitempty"` // barometric preferred, geometric fallback
	TrackDeg     *float64 `json:"track_deg,omitempty"`
	SpeedKts     *float64 `json:"speed_kts,omitempty"`
}

// Observer is the current position of the local user
type Observer struct {
	Lat float64
	Lon float64
}

// Aircraft is a classified snapshot with derived geometry and threat status
type Aircraft struct {
	Hex          string   `json:"hex"`
	Callsign     string   `json:"callsign,omitempty"`
	Registration string   `json:"registration,omitempty"`
	Lat          float64  `json:"lat"`
	Lon          float64  `json:"lon"`
	AltitudeFt   int      `json:"altitude_ft"`
	AGLFt        int      `json:"agl_ft"`
	TrackDeg     *float64 `json:"track_deg,omitempty"`
	SpeedKts     *float64 `json:"speed_kts,omitempty"`

	DistanceMi        float64  `json:"distance_mi"`
	BearingFromUser   float64  `json:"bearing_from_user"` // observer to aircraft
	BearingToUser     float64  `json:"bearing_to_user"`   // aircraft to observer
	ClosingMph        *float64 `json:"closing_mph,omitempty"`
	ETAToInnerRingSec *float64 `json:"eta_to_inner_ring_sec,omitempty"`

	IsThreat   bool `json:"is_threat"`
	Tier       Tier `json:"tier"`
	IsOrbiting bool `json:"is_orbiting"`
	IsWatched  bool `json:"is_watched"`

	UpdatedAt time.Time `json:"updated_at"`
}

// Ident returns the display identity: registration plus callsign when both are known,
// otherwise whichever is present, falling back to the upper-cased hex id
func (a *Aircraft) Ident() string {
	if a.Registration != "" {
		if a.Callsign != "" {
			return a.Registration + " " + a.Callsign
		}
		return a.Registration
	}
	if a.Callsign != "" {
		return a.Callsign
	}
	return strings.ToUpper(a.Hex)
}

// Compass returns the 16-point direction of the aircraft from the user
func (a *Aircraft) Compass() string {
	return physics.Compass(a.BearingFromUser)
}

// ETAText formats the time to the warning ring
func (a *Aircraft) ETAText() string {
	if a.ETAToInnerRingSec == nil {
		return "ETA ---"
	}
	eta := *a.ETAToInnerRingSec
	if eta < 60 {
		return fmt.Sprintf("ETA %ds", int(eta))
	}
	return fmt.Sprintf("ETA %.1fm", eta/60)
}

// ClosingText formats the closing speed; empty unless the aircraft is approaching
func (a *Aircraft) ClosingText() string {
	if a.ClosingMph == nil || *a.ClosingMph <= 0 {
		return ""
	}
	return fmt.Sprintf("%.0fmph", *a.ClosingMph)
}
