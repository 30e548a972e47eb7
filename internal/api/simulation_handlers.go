package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/macman10536/Adsb-alert/internal/config"
	"github.com/macman10536/Adsb-alert/internal/simulation"
	"github.com/macman10536/Adsb-alert/pkg/logger"
)

// Simulator manages synthetic traffic when the feed is simulated
type Simulator interface {
	CreateAircraft(spawn config.SimulatedAircraftConfig) (simulation.SimulatedAircraft, error)
	UpdateControls(hex string, c simulation.Controls) error
	RemoveAircraft(hex string) error
	GetAllAircraft() []simulation.SimulatedAircraft
}

// CreateSimulatedAircraft places a new simulated aircraft relative to the observer
func (h *Handler) CreateSimulatedAircraft(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Callsign        string  `json:"callsign"`
		BearingDeg      float64 `json:"bearing_deg"`
		DistanceMi      float64 `json:"distance_mi"`
		AltitudeFt      float64 `json:"altitude_ft"`
		TrackDeg        float64 `json:"track_deg"`
		SpeedKt         float64 `json:"speed_kt"`
		VerticalRateFpm float64 `json:"vertical_rate_fpm"`
		TurnRateDps     float64 `json:"turn_rate_dps"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	aircraft, err := h.simulator.CreateAircraft(config.SimulatedAircraftConfig(req))
	switch {
	case errors.Is(err, simulation.ErrNoFix):
		http.Error(w, err.Error(), http.StatusConflict)
		return
	case err != nil:
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	h.logger.Info("Created simulated aircraft via API",
		logger.String("hex", aircraft.Hex),
		logger.String("callsign", aircraft.Callsign))

	WriteJSON(w, http.StatusCreated, map[string]any{
		"status":   "success",
		"aircraft": aircraft,
	})
}

// UpdateSimulationControls changes the controls of a simulated aircraft
func (h *Handler) UpdateSimulationControls(w http.ResponseWriter, r *http.Request) {
	hex := chi.URLParam(r, "hex")

	var req simulation.Controls
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	err := h.simulator.UpdateControls(hex, req)
	switch {
	case errors.Is(err, simulation.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	case err != nil:
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"status": "success"})
}

// RemoveSimulatedAircraft removes a simulated aircraft
func (h *Handler) RemoveSimulatedAircraft(w http.ResponseWriter, r *http.Request) {
	hex := chi.URLParam(r, "hex")

	if err := h.simulator.RemoveAircraft(hex); err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	h.logger.Info("Removed simulated aircraft via API", logger.String("hex", hex))
	WriteJSON(w, http.StatusOK, map[string]any{"status": "success"})
}

// GetSimulatedAircraft returns all simulated aircraft
func (h *Handler) GetSimulatedAircraft(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, h.simulator.GetAllAircraft())
}
