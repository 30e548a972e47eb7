// Package alert turns classified aircraft into debounced, prioritized alert events.
package alert

import (
	"time"

	"golang.org/x/time/rate"

	"github.com/macman10536/Adsb-alert/internal/config"
	"github.com/macman10536/Adsb-alert/internal/threat"
	"github.com/macman10536/Adsb-alert/pkg/logger"
)

// Cooldowns holds the minimum time between firings of each category
type Cooldowns struct {
	Warn      time.Duration // shared by caution and warning
	Danger    time.Duration // per aircraft and global
	Orbit     time.Duration
	Watchlist time.Duration
}

// CooldownsFromConfig extracts cooldowns from the alerts configuration
func CooldownsFromConfig(cfg config.AlertsConfig) Cooldowns {
	return Cooldowns{
		Warn:      cfg.WarnCooldown(),
		Danger:    cfg.DangerCooldown(),
		Orbit:     cfg.OrbitCooldown(),
		Watchlist: cfg.WatchlistCooldown(),
	}
}

// cooldownKey groups categories that share a cooldown
type cooldownKey int

const (
	keyWarn cooldownKey = iota
	keyDanger
	keyOrbit
	keyWatchlist
)

type aircraftKey struct {
	hex string
	key cooldownKey
}

// Dispatcher fires at most one alert per aircraft per cycle, the highest priority
// eligible category that is not cooling down. It is owned by the poll loop.
type Dispatcher struct {
	cooldowns Cooldowns
	enabled   map[Category]bool
	lastFired map[aircraftKey]time.Time
	// A single token refilled once per danger cooldown across all aircraft
	dangerLimiter *rate.Limiter
	logger        *logger.Logger
}

// NewDispatcher creates a dispatcher. An empty enabled list enables every category.
func NewDispatcher(cooldowns Cooldowns, enabled []Category, log *logger.Logger) *Dispatcher {
	en := make(map[Category]bool, len(priorityOrder))
	if len(enabled) == 0 {
		enabled = priorityOrder
	}
	for _, c := range enabled {
		en[c] = true
	}

	return &Dispatcher{
		cooldowns:     cooldowns,
		enabled:       en,
		lastFired:     make(map[aircraftKey]time.Time),
		dangerLimiter: rate.NewLimiter(rate.Every(cooldowns.Danger), 1),
		logger:        log.Named("alert"),
	}
}

// Evaluate decides whether ac fires an alert at now. The returned event has already been logged.
func (d *Dispatcher) Evaluate(ac *threat.Aircraft, now time.Time) (Event, bool) {
	for _, category := range priorityOrder {
		if !d.enabled[category] || !eligible(category, ac) {
			continue
		}
		if !d.ready(category, ac.Hex, now) {
			continue
		}

		d.record(category, ac.Hex, now)
		ev := newEvent(category, ac, now)
		fields := []logger.Field{
			logger.String("category", category.String()),
			logger.String("hex", ac.Hex),
			logger.String("ident", ev.Ident),
			logger.Float64("distance_mi", ac.DistanceMi),
			logger.Int("altitude_ft", ac.AltitudeFt),
			logger.String("compass", ev.Compass),
			logger.String("eta", ac.ETAText()),
			logger.String("closing", ac.ClosingText()),
		}
		if category == CategoryDanger {
			d.logger.Error(ev.Summary, fields...)
		} else {
			d.logger.Warn(ev.Summary, fields...)
		}
		return ev, true
	}
	return Event{}, false
}

func eligible(category Category, ac *threat.Aircraft) bool {
	switch category {
	case CategoryWatchlist:
		return ac.IsWatched
	case CategoryDanger:
		return ac.IsThreat && ac.Tier == threat.TierDanger
	case CategoryWarning:
		return ac.IsThreat && ac.Tier == threat.TierWarning
	case CategoryCaution:
		return ac.IsThreat && ac.Tier == threat.TierCaution
	case CategoryOrbit:
		return ac.IsOrbiting
	}
	return false
}

func (d *Dispatcher) ready(category Category, hex string, now time.Time) bool {
	switch category {
	case CategoryDanger:
		if !d.elapsed(hex, keyDanger, d.cooldowns.Danger, now) {
			return false
		}
		// Consumes the global token, so it must be the last check
		return d.dangerLimiter.AllowN(now, 1)
	case CategoryWarning, CategoryCaution:
		return d.elapsed(hex, keyWarn, d.cooldowns.Warn, now)
	case CategoryOrbit:
		return d.elapsed(hex, keyOrbit, d.cooldowns.Orbit, now)
	case CategoryWatchlist:
		return d.elapsed(hex, keyWatchlist, d.cooldowns.Watchlist, now)
	}
	return false
}

func (d *Dispatcher) elapsed(hex string, key cooldownKey, cooldown time.Duration, now time.Time) bool {
	last, ok := d.lastFired[aircraftKey{hex: hex, key: key}]
	return !ok || now.Sub(last) >= cooldown
}

func (d *Dispatcher) record(category Category, hex string, now time.Time) {
	switch category {
	case CategoryDanger:
		d.lastFired[aircraftKey{hex, keyDanger}] = now
		// A downgraded re-detection must not immediately fire a lower tier
		d.lastFired[aircraftKey{hex, keyWarn}] = now
	case CategoryWarning, CategoryCaution:
		d.lastFired[aircraftKey{hex, keyWarn}] = now
	case CategoryOrbit:
		d.lastFired[aircraftKey{hex, keyOrbit}] = now
	case CategoryWatchlist:
		d.lastFired[aircraftKey{hex, keyWatchlist}] = now
	}
}

// Prune forgets cooldowns for aircraft not in active
func (d *Dispatcher) Prune(active map[string]struct{}) {
	for k := range d.lastFired {
		if _, ok := active[k.hex]; !ok {
			delete(d.lastFired, k)
		}
	}
}

// Enabled reports whether category may fire
func (d *Dispatcher) Enabled(category Category) bool {
	return d.enabled[category]
}
