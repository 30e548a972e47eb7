package api

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/macman10536/Adsb-alert/internal/config"
	"github.com/macman10536/Adsb-alert/internal/monitor"
	"github.com/macman10536/Adsb-alert/internal/simulation"
	"github.com/macman10536/Adsb-alert/internal/threat"
	"github.com/macman10536/Adsb-alert/pkg/logger"
)

func newSimulatedServer(t *testing.T) (http.Handler, *monitor.Service) {
	t.Helper()
	cfg := config.Default()
	sim := simulation.NewService(nil, lockedGPS{}, logger.NewNop())

	svc := monitor.NewService(cfg, monitor.Deps{
		Feed:     sim,
		GPS:      lockedGPS{},
		Settings: config.NewSettings(cfg.Alerts),
	}, threat.Watchlist{}, logger.NewNop())

	return NewRouter(NewHandler(svc, nil, sim, logger.NewNop()), nil, config.ServerConfig{}, logger.NewNop()), svc
}

func TestSimulationRoutesRequireSimulator(t *testing.T) {
	router, _, _ := newTestServer(t, nil, config.ServerConfig{})
	if rec := do(t, router, http.MethodGet, "/api/simulation/aircraft", ""); rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 without a simulated feed, got %d", rec.Code)
	}
}

func TestSimulatedAircraftLifecycle(t *testing.T) {
	router, svc := newSimulatedServer(t)

	rec := do(t, router, http.MethodPost, "/api/simulation/aircraft",
		`{"callsign":"n51sim","bearing_deg":0,"distance_mi":2,"altitude_ft":600,"track_deg":180,"speed_kt":90}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var created struct {
		Aircraft simulation.SimulatedAircraft `json:"aircraft"`
	}
	decode(t, rec, &created)
	hex := created.Aircraft.Hex
	if created.Aircraft.Callsign != "N51SIM" {
		t.Errorf("Expected callsign N51SIM, got %q", created.Aircraft.Callsign)
	}

	// First contact has no closing speed yet, so the aircraft is displayed but not admitted
	svc.RunCycle(context.Background(), time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))
	ac, found := svc.Aircraft(hex)
	if !found {
		t.Fatalf("Expected simulated aircraft %s on the display", hex)
	}
	if ac.Callsign != "N51SIM" || ac.AltitudeFt != 600 {
		t.Errorf("Expected N51SIM at 600 ft, got %s at %d", ac.Callsign, ac.AltitudeFt)
	}

	rec = do(t, router, http.MethodPut, "/api/simulation/aircraft/"+hex, `{"track_deg":0,"speed_kt":90}`)
	if rec.Code != http.StatusOK {
		t.Errorf("Expected 200 on controls update, got %d: %s", rec.Code, rec.Body.String())
	}
	rec = do(t, router, http.MethodPut, "/api/simulation/aircraft/"+hex, `{"track_deg":720}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for an invalid track, got %d", rec.Code)
	}

	rec = do(t, router, http.MethodGet, "/api/simulation/aircraft", "")
	var all []simulation.SimulatedAircraft
	decode(t, rec, &all)
	if len(all) != 1 || all[0].Controls.TrackDeg != 0 {
		t.Errorf("Expected one aircraft heading north, got %+v", all)
	}

	if rec := do(t, router, http.MethodDelete, "/api/simulation/aircraft/"+hex, ""); rec.Code != http.StatusOK {
		t.Errorf("Expected 200 on remove, got %d", rec.Code)
	}
	if rec := do(t, router, http.MethodDelete, "/api/simulation/aircraft/"+hex, ""); rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 on second remove, got %d", rec.Code)
	}
	if rec := do(t, router, http.MethodPost, "/api/simulation/aircraft", `{"speed_kt":9000}`); rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for an invalid speed, got %d", rec.Code)
	}
}
