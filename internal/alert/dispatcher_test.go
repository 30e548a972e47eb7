package alert

import (
	"strings"
	"testing"
	"time"

	"github.com/macman10536/Adsb-alert/internal/config"
	"github.com/macman10536/Adsb-alert/internal/threat"
	"github.com/macman10536/Adsb-alert/pkg/logger"
)

var start = time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestDispatcher(enabled ...Category) *Dispatcher {
	return NewDispatcher(CooldownsFromConfig(config.Default().Alerts), enabled, logger.NewNop())
}

func aircraftWithTier(hex string, tier threat.Tier) *threat.Aircraft {
	return &threat.Aircraft{
		Hex:             hex,
		DistanceMi:      0.3,
		AltitudeFt:      600,
		BearingFromUser: 45,
		IsThreat:        tier != threat.TierNone,
		Tier:            tier,
	}
}

func TestDangerCooldown(t *testing.T) {
	tests := []struct {
		name     string
		gap      time.Duration
		expected int
	}{
		{"two seconds apart", 2 * time.Second, 1},
		{"five seconds apart", 5 * time.Second, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newTestDispatcher()
			ac := aircraftWithTier("a1b2c3", threat.TierDanger)

			fired := 0
			for _, at := range []time.Time{start, start.Add(tt.gap)} {
				if ev, ok := d.Evaluate(ac, at); ok {
					fired++
					if ev.Category != CategoryDanger {
						t.Errorf("Expected danger, got %s", ev.Category)
					}
				}
			}
			if fired != tt.expected {
				t.Errorf("Expected %d alerts, got %d", tt.expected, fired)
			}
		})
	}
}

func TestDangerIsGloballyRateLimited(t *testing.T) {
	d := newTestDispatcher()

	if _, ok := d.Evaluate(aircraftWithTier("a1b2c3", threat.TierDanger), start); !ok {
		t.Fatal("Expected first danger alert to fire")
	}
	if _, ok := d.Evaluate(aircraftWithTier("d4e5f6", threat.TierDanger), start.Add(time.Second)); ok {
		t.Error("Expected second aircraft to be held by the global danger limit")
	}
	if _, ok := d.Evaluate(aircraftWithTier("d4e5f6", threat.TierDanger), start.Add(4*time.Second)); !ok {
		t.Error("Expected second aircraft to fire once the global limit refills")
	}
}

func TestWarnCooldownSharedWithCautionAndDanger(t *testing.T) {
	d := newTestDispatcher()
	hex := "a1b2c3"

	if _, ok := d.Evaluate(aircraftWithTier(hex, threat.TierDanger), start); !ok {
		t.Fatal("Expected danger to fire")
	}
	// Downgraded to warning: still cooling down from the danger alert
	if _, ok := d.Evaluate(aircraftWithTier(hex, threat.TierWarning), start.Add(5*time.Second)); ok {
		t.Error("Expected warning to be suppressed after danger")
	}
	// Caution shares the same key
	if _, ok := d.Evaluate(aircraftWithTier(hex, threat.TierCaution), start.Add(20*time.Second)); ok {
		t.Error("Expected caution to be suppressed within 25 s")
	}
	if ev, ok := d.Evaluate(aircraftWithTier(hex, threat.TierCaution), start.Add(25*time.Second)); !ok || ev.Category != CategoryCaution {
		t.Errorf("Expected caution to fire after 25 s, got %v %v", ev.Category, ok)
	}
}

func TestPriorityOneEventPerCycle(t *testing.T) {
	d := newTestDispatcher()
	ac := aircraftWithTier("a1b2c3", threat.TierDanger)
	ac.IsWatched = true
	ac.IsOrbiting = true

	expected := []Category{CategoryWatchlist, CategoryDanger, CategoryOrbit}
	for i, want := range expected {
		ev, ok := d.Evaluate(ac, start.Add(time.Duration(i)*time.Second))
		if !ok {
			t.Fatalf("Cycle %d: expected an alert", i)
		}
		if ev.Category != want {
			t.Errorf("Cycle %d: expected %s, got %s", i, want, ev.Category)
		}
	}

	// Everything is cooling down now
	if ev, ok := d.Evaluate(ac, start.Add(3*time.Second)); ok {
		t.Errorf("Expected no alert, got %s", ev.Category)
	}
}

func TestDisabledCategories(t *testing.T) {
	d := newTestDispatcher(CategoryDanger, CategoryWarning)

	orbiting := aircraftWithTier("a1b2c3", threat.TierNone)
	orbiting.IsOrbiting = true
	if _, ok := d.Evaluate(orbiting, start); ok {
		t.Error("Expected orbit alerts to be disabled")
	}

	if _, ok := d.Evaluate(aircraftWithTier("d4e5f6", threat.TierCaution), start); ok {
		t.Error("Expected caution alerts to be disabled")
	}
	if !d.Enabled(CategoryDanger) || d.Enabled(CategoryWatchlist) {
		t.Error("Unexpected enabled set")
	}
}

func TestPruneResetsCooldown(t *testing.T) {
	d := newTestDispatcher()
	ac := aircraftWithTier("a1b2c3", threat.TierWarning)

	if _, ok := d.Evaluate(ac, start); !ok {
		t.Fatal("Expected warning to fire")
	}
	d.Prune(map[string]struct{}{})
	if _, ok := d.Evaluate(ac, start.Add(time.Second)); !ok {
		t.Error("Expected warning to fire again once the aircraft was pruned")
	}
}

func TestEventText(t *testing.T) {
	eta := 42.0
	closing := 85.0
	ac := &threat.Aircraft{
		Hex:               "a1b2c3",
		Registration:      "N12345",
		DistanceMi:        1.84,
		AltitudeFt:        700,
		BearingFromUser:   300,
		ETAToInnerRingSec: &eta,
		ClosingMph:        &closing,
	}

	tests := []struct {
		category Category
		summary  string
		spoken   string
	}{
		{CategoryDanger, "DANGER: N12345  1.84mi  700ft", "DANGER. Aircraft N12345, 1.8 miles, 700 feet."},
		{CategoryWarning, "WARNING: N12345  1.84mi  700ft  ETA 42s", "Warning. Aircraft N12345, 1.8 miles, 700 feet, ETA 42 seconds."},
		{CategoryCaution, "CAUTION: N12345  1.84mi  700ft  85mph", "Caution. Aircraft N12345, 1.8 miles, 700 feet, closing."},
		{CategoryOrbit, "SKY CIRCLE: N12345  1.84mi  WNW  700ft", "Caution. Circling aircraft N12345, 1.8 miles, wnw."},
		{CategoryWatchlist, "WATCHLIST: N12345  1.84mi  WNW  700ft", "Attention. Watched aircraft N12345, 1.8 miles, wnw."},
	}

	for _, tt := range tests {
		t.Run(tt.category.String(), func(t *testing.T) {
			summary, spoken := describe(tt.category, ac)
			if summary != tt.summary {
				t.Errorf("Expected summary %q, got %q", tt.summary, summary)
			}
			if spoken != tt.spoken {
				t.Errorf("Expected spoken %q, got %q", tt.spoken, spoken)
			}
		})
	}

	// No ETA clause beyond two minutes
	eta = 300
	_, spoken := describe(CategoryWarning, ac)
	if strings.Contains(spoken, "ETA") {
		t.Errorf("Expected no ETA clause, got %q", spoken)
	}
}

func TestParseCategory(t *testing.T) {
	c, err := ParseCategory(" Danger ")
	if err != nil || c != CategoryDanger {
		t.Errorf("Expected danger, got %v %v", c, err)
	}
	if _, err := ParseCategory("panic"); err == nil {
		t.Error("Expected error for unknown category")
	}
}
