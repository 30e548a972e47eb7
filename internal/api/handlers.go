package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/macman10536/Adsb-alert/internal/alert"
	"github.com/macman10536/Adsb-alert/internal/monitor"
	"github.com/macman10536/Adsb-alert/internal/threat"
	"github.com/macman10536/Adsb-alert/pkg/logger"
)

const (
	defaultAlertLimit = 50
	maxAlertLimit     = 500
	maxBodyBytes      = 16 << 10
)

// AlertHistory reads persisted alerts
type AlertHistory interface {
	Recent(limit int) ([]alert.Event, error)
}

// Handler contains the API handlers
type Handler struct {
	monitor   *monitor.Service
	history   AlertHistory
	simulator Simulator
	logger    *logger.Logger
}

// NewHandler creates a new API handler. history is nil when storage is disabled
// and simulator is nil unless the feed is simulated.
func NewHandler(monitorService *monitor.Service, history AlertHistory, simulator Simulator, log *logger.Logger) *Handler {
	return &Handler{
		monitor:   monitorService,
		history:   history,
		simulator: simulator,
		logger:    log.Named("api-handler"),
	}
}

// GetStatus returns input health and the banner of the last cycle
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	res := h.monitor.Snapshot()

	WriteJSON(w, http.StatusOK, map[string]any{
		"status":    res.Status,
		"banner":    res.Banner,
		"threats":   len(res.Threats),
		"safe":      len(res.Safe),
		"settings":  h.monitor.Settings().Snapshot(),
		"watchlist": h.monitor.Watchlist().Len(),
	})
}

// GetAllAircraft returns the last published result
func (h *Handler) GetAllAircraft(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, h.monitor.Snapshot())
}

// GetAircraftByHex returns one displayed aircraft
func (h *Handler) GetAircraftByHex(w http.ResponseWriter, r *http.Request) {
	hex := chi.URLParam(r, "hex")
	if hex == "" {
		http.Error(w, "Missing aircraft hex", http.StatusBadRequest)
		return
	}

	ac, found := h.monitor.Aircraft(hex)
	if !found {
		http.Error(w, "Aircraft not found", http.StatusNotFound)
		return
	}
	WriteJSON(w, http.StatusOK, ac)
}

// SelectAircraft selects a displayed aircraft
func (h *Handler) SelectAircraft(w http.ResponseWriter, r *http.Request) {
	ac, err := h.monitor.Select(chi.URLParam(r, "hex"))
	if errors.Is(err, monitor.ErrUnknownAircraft) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	WriteJSON(w, http.StatusOK, ac)
}

// ClearSelection drops the selection
func (h *Handler) ClearSelection(w http.ResponseWriter, r *http.Request) {
	h.monitor.ClearSelection()
	w.WriteHeader(http.StatusNoContent)
}

// GetSettings returns the runtime settings
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, h.monitor.Settings().Snapshot())
}

// settingsUpdate carries operator text exactly as typed
type settingsUpdate struct {
	FieldElevationFt *string `json:"field_elevation_ft"`
	CeilingFt        *string `json:"ceiling_ft"`
	CautionRadiusMi  *string `json:"caution_radius_mi"`
}

// UpdateSettings applies each supplied value. Invalid values keep their previous
// setting and are reported back with a 400.
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req settingsUpdate
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	settings := h.monitor.Settings()
	invalid := map[string]string{}
	apply := func(name string, value *string, set func(string) error) {
		if value == nil {
			return
		}
		if err := set(*value); err != nil {
			invalid[name] = err.Error()
		}
	}
	apply("field_elevation_ft", req.FieldElevationFt, settings.SetFieldElevationText)
	apply("ceiling_ft", req.CeilingFt, settings.SetCeilingText)
	apply("caution_radius_mi", req.CautionRadiusMi, settings.SetCautionRadiusText)

	snapshot := settings.Snapshot()
	if len(invalid) > 0 {
		h.logger.Info("Rejected settings", logger.Any("errors", invalid))
		WriteJSON(w, http.StatusBadRequest, map[string]any{
			"settings": snapshot,
			"errors":   invalid,
		})
		return
	}

	h.logger.Info("Settings updated",
		logger.Int("field_elevation_ft", snapshot.FieldElevationFt),
		logger.Int("ceiling_ft", snapshot.CeilingFt),
		logger.Float64("caution_radius_mi", snapshot.CautionRadiusMi))
	WriteJSON(w, http.StatusOK, map[string]any{"settings": snapshot})
}

// GetWatchlist returns the active watchlist
func (h *Handler) GetWatchlist(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]any{
		"entries": h.monitor.Watchlist().Entries(),
		"max":     threat.MaxWatchlistEntries,
	})
}

// UpdateWatchlist replaces the watchlist
func (h *Handler) UpdateWatchlist(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Entries []string `json:"entries"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	wl, err := h.monitor.SetWatchlist(req.Entries)
	if errors.Is(err, threat.ErrWatchlistFull) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err != nil {
		// Active but not persisted
		h.logger.Error("Failed to persist watchlist", logger.Error(err))
		http.Error(w, "Watchlist applied but could not be saved", http.StatusInternalServerError)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"entries": wl.Entries()})
}

// GetAlerts returns recent alerts, newest first. ?source=history reads persisted alerts.
func (h *Handler) GetAlerts(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r)

	var (
		events []alert.Event
		source = "memory"
	)
	if r.URL.Query().Get("source") == "history" {
		if h.history == nil {
			http.Error(w, "Alert history is disabled", http.StatusNotFound)
			return
		}
		var err error
		events, err = h.history.Recent(limit)
		if err != nil {
			h.logger.Error("Failed to retrieve alert history", logger.Error(err))
			http.Error(w, "Failed to retrieve alert history", http.StatusInternalServerError)
			return
		}
		source = "history"
	} else {
		events = h.monitor.RecentAlerts(limit)
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"timestamp": time.Now(),
		"source":    source,
		"count":     len(events),
		"alerts":    events,
	})
}

// WriteJSON writes a JSON response
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func parseLimit(r *http.Request) int {
	limit := defaultAlertLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			limit = l
		}
	}
	if limit > maxAlertLimit {
		limit = maxAlertLimit
	}
	return limit
}
