// Package monitor runs the poll loop: once per interval it reads the observer fix and
// the aircraft feed, classifies every aircraft, dispatches alerts and publishes the result.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/macman10536/Adsb-alert/internal/adsb"
	"github.com/macman10536/Adsb-alert/internal/alert"
	"github.com/macman10536/Adsb-alert/internal/config"
	"github.com/macman10536/Adsb-alert/internal/orbit"
	"github.com/macman10536/Adsb-alert/internal/threat"
	"github.com/macman10536/Adsb-alert/internal/websocket"
	"github.com/macman10536/Adsb-alert/pkg/logger"
)

// maxRecentAlerts bounds the in-memory alert log
const maxRecentAlerts = 200

// persistQueueSize bounds alerts waiting to be written to storage
const persistQueueSize = 64

// ErrUnknownAircraft is returned when selecting an aircraft that is not currently displayed
var ErrUnknownAircraft = errors.New("aircraft not currently tracked")

// Deps are the collaborators of the poll loop. Feed, GPS and Settings are required;
// the rest may be nil.
type Deps struct {
	Feed       FeedSource
	GPS        FixSource
	Registry   adsb.RegistrationLookup
	Settings   *config.Settings
	Audio      AlertSink
	WebSocket  WebSocketServer
	Watchlists WatchlistStore
	Alerts     AlertStore
}

// Service is the poll loop and the owner of all per-aircraft tracking state
type Service struct {
	deps        Deps
	interval    time.Duration
	feedTimeout time.Duration

	// Owned by the loop goroutine
	history    *threat.DistanceHistory
	orbits     *orbit.Tracker
	classifier *threat.Classifier
	dispatcher *alert.Dispatcher
	feedWasOK  bool

	mu        sync.RWMutex
	watchlist threat.Watchlist
	selected  string
	result    Result
	recent    []alert.Event

	cycleMu   sync.Mutex
	persistCh chan alert.Event
	stopCh    chan struct{}
	stopOnce  sync.Once
	wg        sync.WaitGroup
	clock     func() time.Time
	logger    *logger.Logger
}

// NewService creates the poll loop
func NewService(cfg *config.Config, deps Deps, watchlist threat.Watchlist, log *logger.Logger) *Service {
	svcLogger := log.Named("monitor")

	history := threat.NewDistanceHistory()
	orbits := orbit.NewTracker(orbit.Params{
		Window:         cfg.Alerts.OrbitWindow(),
		MinSamples:     cfg.Alerts.OrbitMinSamples,
		MinSpan:        cfg.Alerts.OrbitMinSpan(),
		MinTurnDeg:     cfg.Alerts.OrbitMinTurnDeg,
		MinTurnRateDps: cfg.Alerts.OrbitMinTurnRateDps,
	})

	var enabled []alert.Category
	for _, name := range cfg.Alerts.EnabledCategories {
		c, err := alert.ParseCategory(name)
		if err != nil {
			svcLogger.Warn("Ignoring unknown alert category", logger.String("category", name))
			continue
		}
		enabled = append(enabled, c)
	}

	return &Service{
		deps:        deps,
		interval:    cfg.Feed.SampleInterval(),
		feedTimeout: cfg.Feed.Timeout(),
		history:     history,
		orbits:      orbits,
		classifier:  threat.NewClassifier(threat.ParamsFromConfig(cfg.Alerts), history, orbits),
		dispatcher:  alert.NewDispatcher(alert.CooldownsFromConfig(cfg.Alerts), enabled, log),
		feedWasOK:   true,
		watchlist:   watchlist,
		result:      emptyResult(time.Time{}),
		persistCh:   make(chan alert.Event, persistQueueSize),
		stopCh:      make(chan struct{}),
		clock:       time.Now,
		logger:      svcLogger,
	}
}

// Start runs one cycle immediately, then keeps polling until Stop or ctx is done
func (s *Service) Start(ctx context.Context) error {
	var categories []string
	for _, c := range alert.Categories() {
		if s.dispatcher.Enabled(c) {
			categories = append(categories, c.String())
		}
	}
	s.logger.Info("Starting monitor",
		logger.Duration("interval", s.interval),
		logger.Any("alerts", categories),
		logger.Int("watchlist_entries", s.Watchlist().Len()))

	if s.deps.Alerts != nil {
		s.wg.Add(1)
		go s.persistLoop()
	}

	s.RunCycle(ctx, s.clock())

	s.wg.Add(1)
	go s.pollLoop(ctx)
	return nil
}

// Stop stops the poll loop and waits for pending alert writes
func (s *Service) Stop() {
	s.stopOnce.Do(func() {
		s.logger.Info("Stopping monitor")
		close(s.stopCh)
	})
	s.wg.Wait()
}

func (s *Service) pollLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.RunCycle(ctx, s.clock())
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

// RunCycle performs one poll cycle at now and publishes its result
func (s *Service) RunCycle(ctx context.Context, now time.Time) Result {
	s.cycleMu.Lock()
	defer s.cycleMu.Unlock()

	fix := s.deps.GPS.CurrentFix()
	settings := s.deps.Settings.Snapshot()
	watchlist := s.Watchlist()

	res := emptyResult(now)
	res.Status.GPSLock = fix.Valid

	if !fix.Valid {
		// A closing speed must never span a gap in the observer position
		s.history.Reset()
		res.Banner = Banner{Level: BannerCaution, Text: bannerAwaitingFix}
		s.publish(res, false)
		return res
	}
	res.Status.Lat = fix.Lat
	res.Status.Lon = fix.Lon

	raw, err := s.fetch(ctx)
	if err != nil {
		if s.feedWasOK {
			s.logger.Warn("Aircraft feed unavailable", logger.Error(err))
		}
		s.feedWasOK = false
		res.Banner = Banner{Level: BannerCaution, Text: bannerNoData}
		s.publish(res, false)
		return res
	}
	if !s.feedWasOK {
		s.logger.Info("Aircraft feed recovered")
	}
	s.feedWasOK = true
	res.Status.FeedOK = true
	res.Status.AircraftCount = len(raw.Aircraft)

	env := threat.Env{
		Observer:  threat.Observer{Lat: fix.Lat, Lon: fix.Lon},
		Settings:  settings,
		Watchlist: watchlist,
		Now:       now,
	}

	active := make(map[string]struct{})
	for _, snap := range adsb.ToSnapshots(raw, s.deps.Registry) {
		ac, ok := s.classifier.Classify(snap, env)
		if !ok {
			continue
		}
		active[ac.Hex] = struct{}{}

		if ac.IsThreat || ac.IsWatched {
			res.Threats = append(res.Threats, ac)
		} else {
			res.Safe = append(res.Safe, ac)
		}

		if ev, fired := s.dispatcher.Evaluate(ac, now); fired {
			s.handleEvent(ev)
		}
	}

	s.history.Prune(active)
	s.orbits.Cleanup(active)
	s.dispatcher.Prune(active)

	threat.SortThreats(res.Threats)
	threat.SortByDistance(res.Safe)
	res.Status.Tracked = len(active)
	res.Banner = banner(res.Threats, res.Safe)

	s.publish(res, true)
	return res
}

func (s *Service) fetch(ctx context.Context) (*adsb.RawAircraftData, error) {
	ctx, cancel := context.WithTimeout(ctx, s.feedTimeout)
	defer cancel()

	raw, err := s.deps.Feed.FetchData(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch aircraft: %w", err)
	}
	return raw, nil
}

// publish refreshes the selection, stores the result and pushes it to displays.
// The selection is only dropped when a complete cycle no longer contains it.
func (s *Service) publish(res Result, complete bool) {
	s.mu.Lock()
	if s.selected != "" {
		res.Selected = newSelection(find(res, s.selected), res.Status)
		if res.Selected == nil && complete {
			s.logger.Debug("Selected aircraft left the display", logger.String("hex", s.selected))
			s.selected = ""
		}
	}
	s.result = res
	s.mu.Unlock()

	if s.deps.WebSocket != nil {
		s.deps.WebSocket.Broadcast(&websocket.Message{
			Type: websocket.MessageTypeSnapshot,
			Data: map[string]any{"result": res},
		})
	}
}

func (s *Service) handleEvent(ev alert.Event) {
	s.mu.Lock()
	s.recent = append(s.recent, ev)
	if over := len(s.recent) - maxRecentAlerts; over > 0 {
		s.recent = append(s.recent[:0:0], s.recent[over:]...)
	}
	s.mu.Unlock()

	if s.deps.Audio != nil && !s.deps.Audio.Deliver(ev) {
		s.logger.Debug("Audio busy, alert not voiced", logger.String("hex", ev.Hex))
	}

	if s.deps.WebSocket != nil {
		s.deps.WebSocket.Broadcast(&websocket.Message{
			Type: websocket.MessageTypeAlert,
			Data: map[string]any{"event": ev},
		})
	}

	if s.deps.Alerts != nil {
		select {
		case s.persistCh <- ev:
		default:
			s.logger.Warn("Alert history queue full, dropping record", logger.String("hex", ev.Hex))
		}
	}
}

func (s *Service) persistLoop() {
	defer s.wg.Done()

	for {
		select {
		case ev := <-s.persistCh:
			s.persist(ev)
		case <-s.stopCh:
			// Drain what is already queued
			for {
				select {
				case ev := <-s.persistCh:
					s.persist(ev)
				default:
					return
				}
			}
		}
	}
}

func (s *Service) persist(ev alert.Event) {
	if _, err := s.deps.Alerts.Insert(ev); err != nil {
		s.logger.Error("Failed to store alert", logger.Error(err), logger.String("hex", ev.Hex))
	}
}

// Snapshot returns the last published result
func (s *Service) Snapshot() Result {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.result
}

// Aircraft returns the currently displayed aircraft with the given hex id
func (s *Service) Aircraft(hex string) (*threat.Aircraft, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ac := find(s.result, normalizeHex(hex))
	return ac, ac != nil
}

// Select marks a displayed aircraft as selected; it is refreshed every cycle
func (s *Service) Select(hex string) (*threat.Aircraft, error) {
	hex = normalizeHex(hex)
	if hex == "" {
		return nil, fmt.Errorf("%w: empty hex", ErrUnknownAircraft)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	ac := find(s.result, hex)
	if ac == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAircraft, hex)
	}
	s.selected = hex
	s.result.Selected = newSelection(ac, s.result.Status)
	return ac, nil
}

// ClearSelection drops the current selection
func (s *Service) ClearSelection() {
	s.mu.Lock()
	s.selected = ""
	s.result.Selected = nil
	s.mu.Unlock()
}

// Watchlist returns the active watchlist
func (s *Service) Watchlist() threat.Watchlist {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.watchlist
}

// SetWatchlist validates and activates a new watchlist, then persists it.
// The new list is active from the next cycle even when persisting fails.
func (s *Service) SetWatchlist(entries []string) (threat.Watchlist, error) {
	wl, err := threat.NewWatchlist(entries)
	if err != nil {
		return threat.Watchlist{}, err
	}

	s.mu.Lock()
	s.watchlist = wl
	s.mu.Unlock()

	s.logger.Info("Watchlist updated", logger.Int("entries", wl.Len()))

	if s.deps.Watchlists != nil {
		if err := s.deps.Watchlists.Save(wl.Entries()); err != nil {
			return wl, fmt.Errorf("failed to save watchlist: %w", err)
		}
	}
	return wl, nil
}

// Settings returns the runtime-mutable settings
func (s *Service) Settings() *config.Settings {
	return s.deps.Settings
}

// RecentAlerts returns up to limit fired alerts, newest first. limit <= 0 returns all retained.
func (s *Service) RecentAlerts(limit int) []alert.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := len(s.recent)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]alert.Event, 0, n)
	for i := len(s.recent) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, s.recent[i])
	}
	return out
}

func emptyResult(now time.Time) Result {
	return Result{
		Threats: []*threat.Aircraft{},
		Safe:    []*threat.Aircraft{},
		Banner:  Banner{Level: BannerClear, Text: bannerClear},
		Status:  Status{UpdatedAt: now},
	}
}

func find(res Result, hex string) *threat.Aircraft {
	for _, list := range [][]*threat.Aircraft{res.Threats, res.Safe} {
		for _, ac := range list {
			if ac.Hex == hex {
				return ac
			}
		}
	}
	return nil
}

func normalizeHex(hex string) string {
	return strings.ToLower(strings.TrimSpace(hex))
}
