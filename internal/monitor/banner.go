package monitor

import (
	"fmt"

	"github.com/macman10536/Adsb-alert/internal/threat"
)

// banner headlines the most severe admitted threat (nearest on a tie), then a watched
// aircraft, then the nearest orbiting aircraft
func banner(threats, safe []*threat.Aircraft) Banner {
	var top, watched *threat.Aircraft
	for _, ac := range threats {
		if ac.Tier == threat.TierNone {
			if watched == nil {
				watched = ac
			}
			continue
		}
		if top == nil || ac.Tier > top.Tier || (ac.Tier == top.Tier && ac.DistanceMi < top.DistanceMi) {
			top = ac
		}
	}
	if top == nil {
		top = watched
	}

	if top != nil {
		text := fmt.Sprintf("%s  %.2fmi  %dft  %s", top.Ident(), top.DistanceMi, top.AltitudeFt, top.ETAText())
		switch top.Tier {
		case threat.TierDanger:
			return Banner{Level: BannerDanger, Text: "DANGER: " + text}
		case threat.TierWarning:
			return Banner{Level: BannerWarning, Text: "WARNING: " + text}
		case threat.TierCaution:
			return Banner{Level: BannerCaution, Text: "CAUTION: " + text}
		default:
			return Banner{Level: BannerWatchlist, Text: "WATCHLIST: " + text}
		}
	}

	for _, ac := range safe {
		if ac.IsOrbiting {
			return Banner{
				Level: BannerOrbit,
				Text:  fmt.Sprintf("ORBIT: %s  %.2fmi  %s", ac.Ident(), ac.DistanceMi, ac.Compass()),
			}
		}
	}

	return Banner{Level: BannerClear, Text: bannerClear}
}
