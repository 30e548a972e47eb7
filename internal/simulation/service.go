package simulation

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/macman10536/Adsb-alert/internal/adsb"
	"github.com/macman10536/Adsb-alert/internal/config"
	"github.com/macman10536/Adsb-alert/internal/gps"
	"github.com/macman10536/Adsb-alert/internal/physics"
	"github.com/macman10536/Adsb-alert/pkg/logger"
)

const (
	MaxSimulatedAircraft = 10 // Hardcoded maximum number of simulated aircraft
)

var (
	// ErrNoFix is returned when an aircraft is placed relative to an observer that has no position yet
	ErrNoFix = errors.New("no gps fix to place simulated aircraft")
	// ErrNotFound is returned for an unknown simulated hex
	ErrNotFound = errors.New("simulated aircraft not found")
	// ErrFull is returned when MaxSimulatedAircraft are already flying
	ErrFull = fmt.Errorf("maximum number of simulated aircraft (%d) reached", MaxSimulatedAircraft)
)

// FixSource supplies the observer position used to place new aircraft
type FixSource interface {
	CurrentFix() gps.Fix
}

// Controls are the values an operator may change on a flying aircraft
type Controls struct {
	TrackDeg        float64 `json:"track_deg"`
	SpeedKt         float64 `json:"speed_kt"`
	VerticalRateFpm float64 `json:"vertical_rate_fpm"`
	TurnRateDps     float64 `json:"turn_rate_dps"`
}

// SimulatedAircraft represents a single simulated aircraft with its current state
type SimulatedAircraft struct {
	Hex        string    `json:"hex"`
	Callsign   string    `json:"callsign"`
	Lat        float64   `json:"lat"`
	Lon        float64   `json:"lon"`
	AltitudeFt float64   `json:"altitude_ft"`
	Controls   Controls  `json:"controls"`
	LastUpdate time.Time `json:"last_update"`
	CreatedAt  time.Time `json:"created_at"`
}

// Service flies synthetic aircraft around the observer and serves them as an aircraft feed
type Service struct {
	aircraft map[string]*SimulatedAircraft
	pending  []config.SimulatedAircraftConfig
	fixes    FixSource
	seq      int
	mutex    sync.Mutex
	logger   *logger.Logger

	clock func() time.Time
}

// NewService creates a simulation service. The scenario is placed on the first valid fix.
func NewService(scenario []config.SimulatedAircraftConfig, fixes FixSource, log *logger.Logger) *Service {
	return &Service{
		aircraft: make(map[string]*SimulatedAircraft),
		pending:  append([]config.SimulatedAircraftConfig(nil), scenario...),
		fixes:    fixes,
		logger:   log.Named("simulation"),
		clock:    func() time.Time { return time.Now().UTC() },
	}
}

// FetchData advances every aircraft to now and returns them in aircraft.json form
func (s *Service) FetchData(ctx context.Context) (*adsb.RawAircraftData, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	now := s.clock()
	s.spawnPending(now)
	s.updatePositions(now)

	targets := make([]adsb.ADSBTarget, 0, len(s.aircraft))
	for _, hex := range s.sortedHexes() {
		targets = append(targets, toTarget(s.aircraft[hex]))
	}

	return &adsb.RawAircraftData{
		Now:      float64(now.UnixMilli()) / 1000,
		Messages: len(targets),
		Aircraft: targets,
	}, nil
}

// CreateAircraft places a new aircraft relative to the current fix
func (s *Service) CreateAircraft(spawn config.SimulatedAircraftConfig) (SimulatedAircraft, error) {
	if err := spawn.Validate(); err != nil {
		return SimulatedAircraft{}, err
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	fix := s.fixes.CurrentFix()
	if !fix.Valid {
		return SimulatedAircraft{}, ErrNoFix
	}
	ac, err := s.place(fix, spawn, s.clock())
	if err != nil {
		return SimulatedAircraft{}, err
	}
	return *ac, nil
}

// UpdateControls changes the track, speed, vertical rate and turn rate of a flying aircraft
func (s *Service) UpdateControls(hex string, c Controls) error {
	check := config.SimulatedAircraftConfig{
		TrackDeg:        c.TrackDeg,
		SpeedKt:         c.SpeedKt,
		VerticalRateFpm: c.VerticalRateFpm,
		TurnRateDps:     c.TurnRateDps,
	}
	if err := check.Validate(); err != nil {
		return err
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	ac, exists := s.aircraft[normalizeHex(hex)]
	if !exists {
		return fmt.Errorf("%w: %s", ErrNotFound, hex)
	}
	s.advance(ac, s.clock())
	ac.Controls = c

	s.logger.Debug("Updated simulation controls",
		logger.String("hex", ac.Hex),
		logger.Float64("track", c.TrackDeg),
		logger.Float64("speed", c.SpeedKt),
		logger.Float64("vertical_rate", c.VerticalRateFpm),
		logger.Float64("turn_rate", c.TurnRateDps))
	return nil
}

// RemoveAircraft removes a simulated aircraft
func (s *Service) RemoveAircraft(hex string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	key := normalizeHex(hex)
	if _, exists := s.aircraft[key]; !exists {
		return fmt.Errorf("%w: %s", ErrNotFound, hex)
	}

	delete(s.aircraft, key)
	s.logger.Info("Removed simulated aircraft", logger.String("hex", key))
	return nil
}

// GetAllAircraft returns copies of all simulated aircraft ordered by hex
func (s *Service) GetAllAircraft() []SimulatedAircraft {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	result := make([]SimulatedAircraft, 0, len(s.aircraft))
	for _, hex := range s.sortedHexes() {
		result = append(result, *s.aircraft[hex])
	}
	return result
}

func (s *Service) spawnPending(now time.Time) {
	if len(s.pending) == 0 {
		return
	}
	fix := s.fixes.CurrentFix()
	if !fix.Valid {
		return
	}

	for _, spawn := range s.pending {
		if _, err := s.place(fix, spawn, now); err != nil {
			s.logger.Warn("Skipping simulated aircraft", logger.String("callsign", spawn.Callsign), logger.Error(err))
		}
	}
	s.pending = nil
}

func (s *Service) place(fix gps.Fix, spawn config.SimulatedAircraftConfig, now time.Time) (*SimulatedAircraft, error) {
	if len(s.aircraft) >= MaxSimulatedAircraft {
		return nil, ErrFull
	}

	lat, lon := physics.DestinationPoint(fix.Lat, fix.Lon, spawn.BearingDeg, spawn.DistanceMi)
	s.seq++
	callsign := strings.ToUpper(strings.TrimSpace(spawn.Callsign))
	if callsign == "" {
		callsign = fmt.Sprintf("SIM%03d", s.seq)
	}

	ac := &SimulatedAircraft{
		Hex:        s.generateUniqueHex(),
		Callsign:   callsign,
		Lat:        lat,
		Lon:        lon,
		AltitudeFt: spawn.AltitudeFt,
		Controls: Controls{
			TrackDeg:        spawn.TrackDeg,
			SpeedKt:         spawn.SpeedKt,
			VerticalRateFpm: spawn.VerticalRateFpm,
			TurnRateDps:     spawn.TurnRateDps,
		},
		LastUpdate: now,
		CreatedAt:  now,
	}
	s.aircraft[ac.Hex] = ac

	s.logger.Info("Created simulated aircraft",
		logger.String("hex", ac.Hex),
		logger.String("callsign", ac.Callsign),
		logger.Float64("lat", lat),
		logger.Float64("lon", lon))
	return ac, nil
}

func (s *Service) updatePositions(now time.Time) {
	for _, ac := range s.aircraft {
		s.advance(ac, now)
	}
}

// advance dead-reckons one aircraft along its track, turning at a constant rate
func (s *Service) advance(ac *SimulatedAircraft, now time.Time) {
	dt := now.Sub(ac.LastUpdate).Seconds()
	if dt <= 0 {
		return
	}
	c := &ac.Controls

	// Fly the turn as one-second legs so an orbit closes on itself
	for remaining := dt; remaining > 0; remaining-- {
		step := min(remaining, 1)
		distanceMi := c.SpeedKt * physics.KnotsToMph * step / 3600
		ac.Lat, ac.Lon = physics.DestinationPoint(ac.Lat, ac.Lon, c.TrackDeg, distanceMi)
		c.TrackDeg = physics.NormalizeDegrees(c.TrackDeg + c.TurnRateDps*step)
	}

	ac.AltitudeFt += c.VerticalRateFpm * dt / 60
	if ac.AltitudeFt < 0 {
		ac.AltitudeFt = 0
		c.VerticalRateFpm = 0
	}
	ac.LastUpdate = now
}

func (s *Service) sortedHexes() []string {
	hexes := make([]string, 0, len(s.aircraft))
	for hex := range s.aircraft {
		hexes = append(hexes, hex)
	}
	sort.Strings(hexes)
	return hexes
}

// generateUniqueHex generates a 6-character hex id in the ICAO non-assigned range
func (s *Service) generateUniqueHex() string {
	for {
		hex := fmt.Sprintf("~%05x", rand.IntN(0xFFFFF))
		if _, exists := s.aircraft[hex]; !exists {
			return hex
		}
	}
}

func toTarget(ac *SimulatedAircraft) adsb.ADSBTarget {
	lat, lon := ac.Lat, ac.Lon
	gs, track := ac.Controls.SpeedKt, ac.Controls.TrackDeg
	rate := ac.Controls.VerticalRateFpm

	return adsb.ADSBTarget{
		Hex:          ac.Hex,
		Type:         "sim",
		Flight:       ac.Callsign,
		AircraftType: "SIM",
		AltBaro:      adsb.NewNumberField(ac.AltitudeFt),
		GS:           &gs,
		Track:        &track,
		BaroRate:     &rate,
		Lat:          &lat,
		Lon:          &lon,
		Messages:     100,
		RSSI:         -20,
	}
}

func normalizeHex(hex string) string {
	return strings.ToLower(strings.TrimSpace(hex))
}
