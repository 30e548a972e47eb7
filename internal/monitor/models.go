package monitor

import (
	"context"
	"time"

	"github.com/macman10536/Adsb-alert/internal/adsb"
	"github.com/macman10536/Adsb-alert/internal/alert"
	"github.com/macman10536/Adsb-alert/internal/gps"
	"github.com/macman10536/Adsb-alert/internal/physics"
	"github.com/macman10536/Adsb-alert/internal/threat"
	"github.com/macman10536/Adsb-alert/internal/websocket"
)

// Banner levels, most severe first
const (
	BannerDanger    = "danger"
	BannerWarning   = "warning"
	BannerCaution   = "caution"
	BannerWatchlist = "watchlist"
	BannerOrbit     = "orbit"
	BannerClear     = "clear"
)

const (
	bannerAwaitingFix = "AWAITING GPS FIX"
	bannerNoData      = "NO AIRCRAFT DATA"
	bannerClear       = "AIRSPACE CLEAR"
)

// Banner is the one-line headline of a published result
type Banner struct {
	Level string `json:"level"`
	Text  string `json:"text"`
}

// Status reports the health of the inputs for one cycle
type Status struct {
	GPSLock       bool      `json:"gps_lock"`
	Lat           float64   `json:"lat,omitempty"`
	Lon           float64   `json:"lon,omitempty"`
	FeedOK        bool      `json:"feed_ok"`
	AircraftCount int       `json:"aircraft_count"` // records in the feed document
	Tracked       int       `json:"tracked"`        // aircraft inside the caution ring or watched
	UpdatedAt     time.Time `json:"updated_at"`
}

// Result is what one poll cycle publishes
type Result struct {
	Threats  []*threat.Aircraft `json:"threats"`
	Safe     []*threat.Aircraft `json:"safe"`
	Selected *Selection         `json:"selected,omitempty"`
	Banner   Banner             `json:"banner"`
	Status   Status             `json:"status"`
}

// Selection is the detail view of the selected aircraft
type Selection struct {
	*threat.Aircraft
	Compass         string  `json:"compass"`
	MagneticBearing float64 `json:"magnetic_bearing"` // observer to aircraft
	DeclinationDeg  float64 `json:"declination_deg"`  // +East at the observer
}

func newSelection(ac *threat.Aircraft, st Status) *Selection {
	if ac == nil {
		return nil
	}
	decl := physics.CalculateMagneticVariation(st.Lat, st.Lon, 0, st.UpdatedAt)
	return &Selection{
		Aircraft:        ac,
		Compass:         ac.Compass(),
		MagneticBearing: physics.MagneticBearing(ac.BearingFromUser, decl),
		DeclinationDeg:  decl,
	}
}

// FeedSource supplies the aircraft document
type FeedSource interface {
	FetchData(ctx context.Context) (*adsb.RawAircraftData, error)
}

// FixSource supplies the observer position
type FixSource interface {
	CurrentFix() gps.Fix
}

// AlertSink receives fired alerts for playback. Deliver must not block.
type AlertSink interface {
	Deliver(ev alert.Event) bool
}

// WebSocketServer pushes messages to connected displays
type WebSocketServer interface {
	Broadcast(message *websocket.Message) bool
}

// WatchlistStore persists the watchlist
type WatchlistStore interface {
	Save(entries []string) error
}

// AlertStore persists fired alerts
type AlertStore interface {
	Insert(ev alert.Event) (int64, error)
}
