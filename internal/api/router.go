package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/macman10536/Adsb-alert/internal/config"
	"github.com/macman10536/Adsb-alert/pkg/logger"
)

// ConnectionHandler upgrades display connections to the push hub
type ConnectionHandler interface {
	HandleConnection(w http.ResponseWriter, r *http.Request)
}

// NewRouter mounts the REST surface, the WebSocket endpoint and the display bundle
func NewRouter(h *Handler, ws ConnectionHandler, cfg config.ServerConfig, log *logger.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: cfg.CORSAllowedOrigins,
			AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type"},
			MaxAge:         300,
		}))
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/status", h.GetStatus)

		r.Get("/aircraft", h.GetAllAircraft)
		r.Get("/aircraft/{hex}", h.GetAircraftByHex)

		r.Post("/select/{hex}", h.SelectAircraft)
		r.Delete("/select", h.ClearSelection)

		r.Get("/settings", h.GetSettings)
		r.Put("/settings", h.UpdateSettings)

		r.Get("/watchlist", h.GetWatchlist)
		r.Put("/watchlist", h.UpdateWatchlist)

		r.Get("/alerts", h.GetAlerts)

		if h.simulator != nil {
			r.Route("/simulation/aircraft", func(r chi.Router) {
				r.Get("/", h.GetSimulatedAircraft)
				r.Post("/", h.CreateSimulatedAircraft)
				r.Put("/{hex}", h.UpdateSimulationControls)
				r.Delete("/{hex}", h.RemoveSimulatedAircraft)
			})
		}
	})

	if ws != nil {
		r.Get("/ws", ws.HandleConnection)
	}

	if cfg.StaticDir != "" {
		r.Handle("/*", NewStaticFileHandler(cfg.StaticDir, log))
	}

	return r
}
