package alert

import (
	"fmt"
	"strings"
	"time"

	"github.com/macman10536/Adsb-alert/internal/threat"
)

// Category is the kind of alert
type Category int

const (
	CategoryCaution Category = iota + 1
	CategoryWarning
	CategoryDanger
	CategoryOrbit
	CategoryWatchlist
)

// priorityOrder lists categories from most to least important
var priorityOrder = []Category{
	CategoryWatchlist,
	CategoryDanger,
	CategoryWarning,
	CategoryCaution,
	CategoryOrbit,
}

// Categories returns every category, most important first
func Categories() []Category {
	return append([]Category(nil), priorityOrder...)
}

// String returns the lowercase category name
func (c Category) String() string {
	switch c {
	case CategoryCaution:
		return "caution"
	case CategoryWarning:
		return "warning"
	case CategoryDanger:
		return "danger"
	case CategoryOrbit:
		return "orbit"
	case CategoryWatchlist:
		return "watchlist"
	default:
		return "unknown"
	}
}

// MarshalText renders the category by name in JSON
func (c Category) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText parses a category name
func (c *Category) UnmarshalText(text []byte) error {
	parsed, err := ParseCategory(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ParseCategory converts a category name into a Category
func ParseCategory(name string) (Category, error) {
	for _, c := range priorityOrder {
		if strings.EqualFold(strings.TrimSpace(name), c.String()) {
			return c, nil
		}
	}
	return 0, fmt.Errorf("unknown alert category %q", name)
}

// Event is one fired alert
type Event struct {
	Category   Category  `json:"category"`
	Hex        string    `json:"hex"`
	Ident      string    `json:"ident"`
	DistanceMi float64   `json:"distance_mi"`
	AltitudeFt int       `json:"altitude_ft"`
	Compass    string    `json:"compass"`
	ETASec     *float64  `json:"eta_sec,omitempty"`
	ClosingMph *float64  `json:"closing_mph,omitempty"`
	Summary    string    `json:"summary"`
	Spoken     string    `json:"spoken"`
	FiredAt    time.Time `json:"fired_at"`
}

func newEvent(category Category, ac *threat.Aircraft, now time.Time) Event {
	ev := Event{
		Category:   category,
		Hex:        ac.Hex,
		Ident:      ac.Ident(),
		DistanceMi: ac.DistanceMi,
		AltitudeFt: ac.AltitudeFt,
		Compass:    ac.Compass(),
		ETASec:     ac.ETAToInnerRingSec,
		ClosingMph: ac.ClosingMph,
		FiredAt:    now,
	}
	ev.Summary, ev.Spoken = describe(category, ac)
	return ev
}

// describe builds the log summary and the spoken sentence for an alert
func describe(category Category, ac *threat.Aircraft) (string, string) {
	ident := ac.Ident()
	compass := ac.Compass()

	switch category {
	case CategoryDanger:
		return fmt.Sprintf("DANGER: %s  %.2fmi  %dft", ident, ac.DistanceMi, ac.AltitudeFt),
			fmt.Sprintf("DANGER. Aircraft %s, %.1f miles, %d feet.", ident, ac.DistanceMi, ac.AltitudeFt)

	case CategoryWarning:
		etaClause := ""
		if eta := ac.ETAToInnerRingSec; eta != nil && *eta > 0 && *eta < 120 {
			etaClause = fmt.Sprintf(", ETA %d seconds", int(*eta))
		}
		return fmt.Sprintf("WARNING: %s  %.2fmi  %dft  %s", ident, ac.DistanceMi, ac.AltitudeFt, ac.ETAText()),
			fmt.Sprintf("Warning. Aircraft %s, %.1f miles, %d feet%s.", ident, ac.DistanceMi, ac.AltitudeFt, etaClause)

	case CategoryCaution:
		return strings.TrimRight(fmt.Sprintf("CAUTION: %s  %.2fmi  %dft  %s", ident, ac.DistanceMi, ac.AltitudeFt, ac.ClosingText()), " "),
			fmt.Sprintf("Caution. Aircraft %s, %.1f miles, %d feet, closing.", ident, ac.DistanceMi, ac.AltitudeFt)

	case CategoryOrbit:
		return fmt.Sprintf("SKY CIRCLE: %s  %.2fmi  %s  %dft", ident, ac.DistanceMi, compass, ac.AltitudeFt),
			fmt.Sprintf("Caution. Circling aircraft %s, %.1f miles, %s.", ident, ac.DistanceMi, strings.ToLower(compass))

	case CategoryWatchlist:
		return fmt.Sprintf("WATCHLIST: %s  %.2fmi  %s  %dft", ident, ac.DistanceMi, compass, ac.AltitudeFt),
			fmt.Sprintf("Attention. Watched aircraft %s, %.1f miles, %s.", ident, ac.DistanceMi, strings.ToLower(compass))
	}

	return ident, ident
}
