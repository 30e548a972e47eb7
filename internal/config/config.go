package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

var (
	// ErrInvalidValue is returned when a configuration or runtime setting fails validation
	ErrInvalidValue = errors.New("invalid value")
	// ErrNotFound is returned when no configuration file exists
	ErrNotFound = errors.New("config file not found")
)

// Config represents the main application configuration structure
// containing all configuration sections
type Config struct {
	Server    ServerConfig    `toml:"server"`    // HTTP server settings
	Logging   LoggingConfig   `toml:"logging"`   // Application logging settings
	Feed      FeedConfig      `toml:"feed"`      // Aircraft feed and registration database settings
	GPS       GPSConfig       `toml:"gps"`       // Position daemon settings
	Alerts    AlertsConfig    `toml:"alerts"`    // Threat thresholds and alert cooldowns
	Audio     AudioConfig     `toml:"audio"`     // Tone and speech output settings
	Storage   StorageConfig   `toml:"storage"`   // Data persistence settings
	Watchlist WatchlistConfig `toml:"watchlist"` // Seed entries for the watchlist
}

// ServerConfig contains HTTP server configuration settings
type ServerConfig struct {
	Enabled          bool   `toml:"enabled"`               // Serve the HTTP API and WebSocket endpoint
	Port             int    `toml:"port"`                  // HTTP port for the server
	Host             string `toml:"host"`                  // Host address to bind to (e.g., 127.0.0.1 for localhost only, 0.0.0.0 for all interfaces)
	ReadTimeoutSecs  int    `toml:"read_timeout_seconds"`  // Maximum duration for reading the entire request (0 = no timeout)
	WriteTimeoutSecs int    `toml:"write_timeout_seconds"` // Maximum duration for writing the response (0 = no timeout, recommended for WebSocket)
	IdleTimeoutSecs  int    `toml:"idle_timeout_seconds"`  // Maximum duration to wait for the next request when keep-alives are enabled

	StaticDir          string   `toml:"static_dir"`           // Display bundle served at / (empty = API only)
	CORSAllowedOrigins []string `toml:"cors_allowed_origins"` // Origins allowed to call the API from a browser (empty = same origin only)
}

// LoggingConfig contains application logging configuration
type LoggingConfig struct {
	Level      string `toml:"level"`        // Log level: "debug", "info", "warn", or "error"
	Format     string `toml:"format"`       // Log format: "json" (structured) or "console" (human-readable)
	File       string `toml:"file"`         // Optional rotating log file path (empty = console only)
	MaxSizeMB  int    `toml:"max_size_mb"`  // Rotate the log file after it reaches this size
	MaxBackups int    `toml:"max_backups"`  // Number of rotated files to keep
	MaxAgeDays int    `toml:"max_age_days"` // Delete rotated files older than this
	Compress   bool   `toml:"compress"`     // Gzip rotated files
}

// FeedConfig contains ADS-B feed configuration
type FeedConfig struct {
	// Source selection
	// Allowed values:
	// - "file": read the decoder's aircraft.json from disk (readsb / dump1090 style)
	// - "http": fetch aircraft.json from a tar1090 style web endpoint
	// - "sim": synthesize traffic around the observer for rehearsals
	SourceType         string `toml:"source_type"`
	Path               string `toml:"path"`                 // Path to aircraft.json when source_type = "file"
	URL                string `toml:"url"`                  // URL of aircraft.json when source_type = "http"
	TimeoutMs          int    `toml:"timeout_ms"`           // Upper bound on a single feed read
	RegistrationDBPath string `toml:"registration_db_path"` // Hex to registration database (.json, .txt FAA MASTER or .csv)
	SampleIntervalMs   int    `toml:"sample_interval_ms"`   // Poll loop period

	Simulated []SimulatedAircraftConfig `toml:"simulated"` // Initial traffic when source_type = "sim"
}

// SimulatedAircraftConfig places one synthetic aircraft relative to the first GPS fix
type SimulatedAircraftConfig struct {
	Callsign        string  `toml:"callsign"`          // Generated when empty
	BearingDeg      float64 `toml:"bearing_deg"`       // Bearing from the observer to the spawn point
	DistanceMi      float64 `toml:"distance_mi"`       // Distance from the observer to the spawn point
	AltitudeFt      float64 `toml:"altitude_ft"`       // MSL
	TrackDeg        float64 `toml:"track_deg"`         // Initial track over ground
	SpeedKt         float64 `toml:"speed_kt"`          // Ground speed
	VerticalRateFpm float64 `toml:"vertical_rate_fpm"` // Climb (+) or descent (-)
	TurnRateDps     float64 `toml:"turn_rate_dps"`     // Constant turn, positive is right (0 = straight)
}

// GPSConfig contains position daemon settings
type GPSConfig struct {
	Address            string   `toml:"address"`                 // host:port of the gpsd style daemon
	StartCommand       []string `toml:"start_command"`           // Command used to start the daemon when it does not answer (empty = never start)
	StartTimeoutSecs   int      `toml:"start_timeout_seconds"`   // Upper bound on the start command
	ReadyTimeoutSecs   int      `toml:"ready_timeout_seconds"`   // How long to wait for the daemon to accept connections after starting it
	ConnectTimeoutSecs int      `toml:"connect_timeout_seconds"` // Dial timeout
	ReadDeadlineSecs   int      `toml:"read_deadline_seconds"`   // Wall clock bound on reading a single fix
	InitialBackoffSecs int      `toml:"initial_backoff_seconds"` // First reconnect delay, doubled on every failure
	MaxBackoffSecs     int      `toml:"max_backoff_seconds"`     // Reconnect delay cap
}

// AlertsConfig contains threat thresholds and alert cooldowns
type AlertsConfig struct {
	CautionRadiusMi  float64 `toml:"caution_radius_mi"`  // Outer ring, adjustable at runtime between 1 and 10
	WarningRadiusMi  float64 `toml:"warning_radius_mi"`  // Middle ring
	DangerRadiusMi   float64 `toml:"danger_radius_mi"`   // Inner ring
	CeilingFt        int     `toml:"ceiling_ft"`         // Only aircraft at or below field elevation + ceiling are threats
	FieldElevationFt int     `toml:"field_elevation_ft"` // Field elevation MSL
	HeadingWindowDeg float64 `toml:"heading_window_deg"` // Track must point within this many degrees of the observer
	MinClosingMph    float64 `toml:"min_closing_mph"`    // Minimum closing speed for admission

	WarnCooldownSecs      int `toml:"warn_cooldown_seconds"`      // Shared by caution and warning alerts per aircraft
	DangerCooldownSecs    int `toml:"danger_cooldown_seconds"`    // Per aircraft and global danger limit
	OrbitCooldownSecs     int `toml:"orbit_cooldown_seconds"`     // Per aircraft orbit alerts
	WatchlistCooldownSecs int `toml:"watchlist_cooldown_seconds"` // Per aircraft watchlist alerts

	OrbitWindowSecs     int      `toml:"orbit_window_seconds"`    // Heading history horizon
	OrbitMinTurnDeg     float64  `toml:"orbit_min_turn_deg"`      // Cumulative turn needed to call an orbit
	OrbitMinTurnRateDps float64  `toml:"orbit_min_turn_rate_dps"` // Average turn rate needed to call an orbit
	OrbitMinSamples     int      `toml:"orbit_min_samples"`       // Samples needed before evaluating
	OrbitMinSpanSecs    int      `toml:"orbit_min_span_seconds"`  // Time span needed before evaluating
	EnabledCategories   []string `toml:"enabled_categories"`      // Alert categories that may fire (empty = all)
}

// AudioConfig contains tone and speech output settings
type AudioConfig struct {
	Enabled         bool     `toml:"enabled"`          // Play tones and speech for alerts
	MaxConcurrent   int      `toml:"max_concurrent"`   // Playback requests in flight before new ones are dropped
	SpeechCommand   string   `toml:"speech_command"`   // Text to speech binary (espeak-ng)
	SpeechRate      int      `toml:"speech_rate"`      // Words per minute
	SpeechPitch     int      `toml:"speech_pitch"`     // 0-99
	SpeechAmplitude int      `toml:"speech_amplitude"` // 0-200
	Players         []string `toml:"players"`          // WAV players tried in order, arguments separated by spaces
	SampleRate      int      `toml:"sample_rate"`      // Tone sample rate in Hz
	Amplitude       int      `toml:"amplitude"`        // Tone peak amplitude (16 bit)
}

// StorageConfig contains data persistence configuration
type StorageConfig struct {
	Enabled    bool   `toml:"enabled"`     // Persist the watchlist and alert history
	SQLitePath string `toml:"sqlite_path"` // Path of the SQLite database file
}

// WatchlistConfig contains watchlist seed entries used when the database holds none
type WatchlistConfig struct {
	Entries []string `toml:"entries"` // Registrations, callsigns or hex ids
}

// Default returns a configuration populated with the stock values
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Enabled:          true,
			Port:             8080,
			Host:             "127.0.0.1",
			ReadTimeoutSecs:  15,
			WriteTimeoutSecs: 0,
			IdleTimeoutSecs:  60,
			StaticDir:        "web",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "console",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 14,
		},
		Feed: FeedConfig{
			SourceType:         "file",
			Path:               "/run/readsb/aircraft.json",
			TimeoutMs:          800,
			RegistrationDBPath: "/etc/adsb-alert/reg.json",
			SampleIntervalMs:   1000,
		},
		GPS: GPSConfig{
			Address:            "127.0.0.1:2947",
			StartCommand:       []string{"sudo", "/usr/bin/systemctl", "start", "gpsd"},
			StartTimeoutSecs:   10,
			ReadyTimeoutSecs:   15,
			ConnectTimeoutSecs: 5,
			ReadDeadlineSecs:   5,
			InitialBackoffSecs: 1,
			MaxBackoffSecs:     30,
		},
		Alerts: AlertsConfig{
			CautionRadiusMi:       3.0,
			WarningRadiusMi:       1.0,
			DangerRadiusMi:        0.4,
			CeilingFt:             1000,
			FieldElevationFt:      0,
			HeadingWindowDeg:      45,
			MinClosingMph:         5,
			WarnCooldownSecs:      25,
			DangerCooldownSecs:    4,
			OrbitCooldownSecs:     60,
			WatchlistCooldownSecs: 1800,
			OrbitWindowSecs:       120,
			OrbitMinTurnDeg:       270,
			OrbitMinTurnRateDps:   1.5,
			OrbitMinSamples:       6,
			OrbitMinSpanSecs:      10,
		},
		Audio: AudioConfig{
			Enabled:         true,
			MaxConcurrent:   2,
			SpeechCommand:   "espeak-ng",
			SpeechRate:      150,
			SpeechPitch:     45,
			SpeechAmplitude: 200,
			Players:         []string{"paplay", "aplay -q"},
			SampleRate:      22050,
			Amplitude:       28000,
		},
		Storage: StorageConfig{
			Enabled:    true,
			SQLitePath: "adsb-alert.db",
		},
	}
}

// Load reads the configuration file at path on top of the stock values
func Load(path string) (*Config, error) {
	config := Default()

	// Check if the file exists
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}

	// Read the config file
	if _, err := toml.DecodeFile(path, config); err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	return config, nil
}

// LoadWithFallback tries the preferred path first and then the usual locations
func LoadWithFallback(preferredPath string) (*Config, error) {
	// List of paths to check in order of preference
	searchPaths := []string{
		preferredPath,         // User-specified path (if provided)
		"configs/config.toml", // configs/ folder
		"config.toml",         // Root directory
	}

	// Remove duplicates while preserving order
	uniquePaths := make([]string, 0, len(searchPaths))
	seen := make(map[string]bool)
	for _, path := range searchPaths {
		if path != "" && !seen[path] {
			uniquePaths = append(uniquePaths, path)
			seen[path] = true
		}
	}

	// A file that exists but fails to decode wins over the missing ones
	var loadErr error
	for _, path := range uniquePaths {
		if _, err := os.Stat(path); err == nil {
			config, err := Load(path)
			if err != nil {
				if loadErr == nil {
					loadErr = fmt.Errorf("failed to load config from %s: %w", path, err)
				}
				continue
			}
			return config, nil
		}
	}
	if loadErr != nil {
		return nil, loadErr
	}

	return nil, fmt.Errorf("%w in any of the expected locations: %v", ErrNotFound, uniquePaths)
}

// Validate checks the configuration and fills in values that may be derived
func (c *Config) Validate() error {
	if c.Server.Enabled && (c.Server.Port <= 0 || c.Server.Port > 65535) {
		return fmt.Errorf("%w: server port %d", ErrInvalidValue, c.Server.Port)
	}

	switch c.Feed.SourceType {
	case "", "file":
		c.Feed.SourceType = "file"
		if c.Feed.Path == "" {
			return fmt.Errorf("%w: feed path is required for file source", ErrInvalidValue)
		}
	case "http":
		if c.Feed.URL == "" {
			return fmt.Errorf("%w: feed url is required for http source", ErrInvalidValue)
		}
	case "sim":
		for i, sim := range c.Feed.Simulated {
			if err := sim.Validate(); err != nil {
				return fmt.Errorf("simulated aircraft %d: %w", i, err)
			}
		}
	default:
		return fmt.Errorf("%w: feed source type %q (must be 'file', 'http' or 'sim')", ErrInvalidValue, c.Feed.SourceType)
	}
	if c.Feed.SampleIntervalMs <= 0 {
		return fmt.Errorf("%w: sample interval %d ms", ErrInvalidValue, c.Feed.SampleIntervalMs)
	}

	if c.GPS.Address == "" {
		return fmt.Errorf("%w: gps address is required", ErrInvalidValue)
	}
	if c.GPS.InitialBackoffSecs <= 0 || c.GPS.MaxBackoffSecs < c.GPS.InitialBackoffSecs {
		return fmt.Errorf("%w: gps backoff %ds..%ds", ErrInvalidValue, c.GPS.InitialBackoffSecs, c.GPS.MaxBackoffSecs)
	}

	a := c.Alerts
	if !(a.DangerRadiusMi > 0 && a.DangerRadiusMi < a.WarningRadiusMi && a.WarningRadiusMi < a.CautionRadiusMi) {
		return fmt.Errorf("%w: rings must satisfy 0 < danger (%.2f) < warning (%.2f) < caution (%.2f)",
			ErrInvalidValue, a.DangerRadiusMi, a.WarningRadiusMi, a.CautionRadiusMi)
	}
	if a.CautionRadiusMi < MinCautionRadiusMi || a.CautionRadiusMi > MaxCautionRadiusMi {
		return fmt.Errorf("%w: caution radius %.1f outside [%.0f, %.0f]",
			ErrInvalidValue, a.CautionRadiusMi, MinCautionRadiusMi, MaxCautionRadiusMi)
	}
	if a.HeadingWindowDeg <= 0 || a.HeadingWindowDeg > 180 {
		return fmt.Errorf("%w: heading window %.1f", ErrInvalidValue, a.HeadingWindowDeg)
	}
	for _, category := range a.EnabledCategories {
		switch strings.ToLower(category) {
		case "caution", "warning", "danger", "orbit", "watchlist":
		default:
			return fmt.Errorf("%w: unknown alert category %q", ErrInvalidValue, category)
		}
	}

	if c.Audio.Enabled && c.Audio.MaxConcurrent <= 0 {
		c.Audio.MaxConcurrent = 2
	}

	if c.Storage.Enabled && c.Storage.SQLitePath == "" {
		return fmt.Errorf("%w: sqlite path is required when storage is enabled", ErrInvalidValue)
	}

	return nil
}

// Validate checks the ranges accepted for a synthetic aircraft
func (s SimulatedAircraftConfig) Validate() error {
	switch {
	case s.DistanceMi < 0 || s.DistanceMi > 50:
		return fmt.Errorf("%w: distance %.1f mi (0-50)", ErrInvalidValue, s.DistanceMi)
	case s.AltitudeFt < 0 || s.AltitudeFt > 60000:
		return fmt.Errorf("%w: altitude %.0f ft (0-60000)", ErrInvalidValue, s.AltitudeFt)
	case s.TrackDeg < 0 || s.TrackDeg >= 360:
		return fmt.Errorf("%w: track %.1f (0-359)", ErrInvalidValue, s.TrackDeg)
	case s.SpeedKt < 0 || s.SpeedKt > 500:
		return fmt.Errorf("%w: speed %.0f kt (0-500)", ErrInvalidValue, s.SpeedKt)
	case s.VerticalRateFpm < -3000 || s.VerticalRateFpm > 3000:
		return fmt.Errorf("%w: vertical rate %.0f fpm (-3000 to 3000)", ErrInvalidValue, s.VerticalRateFpm)
	case s.TurnRateDps < -6 || s.TurnRateDps > 6:
		return fmt.Errorf("%w: turn rate %.1f deg/s (-6 to 6)", ErrInvalidValue, s.TurnRateDps)
	}
	return nil
}

// SampleInterval returns the poll loop period
func (f FeedConfig) SampleInterval() time.Duration {
	return time.Duration(f.SampleIntervalMs) * time.Millisecond
}

// Timeout returns the upper bound on a single feed read
func (f FeedConfig) Timeout() time.Duration {
	return time.Duration(f.TimeoutMs) * time.Millisecond
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

func (a AlertsConfig) WarnCooldown() time.Duration      { return seconds(a.WarnCooldownSecs) }
func (a AlertsConfig) DangerCooldown() time.Duration    { return seconds(a.DangerCooldownSecs) }
func (a AlertsConfig) OrbitCooldown() time.Duration     { return seconds(a.OrbitCooldownSecs) }
func (a AlertsConfig) WatchlistCooldown() time.Duration { return seconds(a.WatchlistCooldownSecs) }
func (a AlertsConfig) OrbitWindow() time.Duration       { return seconds(a.OrbitWindowSecs) }
func (a AlertsConfig) OrbitMinSpan() time.Duration      { return seconds(a.OrbitMinSpanSecs) }

func (g GPSConfig) StartTimeout() time.Duration   { return seconds(g.StartTimeoutSecs) }
func (g GPSConfig) ReadyTimeout() time.Duration   { return seconds(g.ReadyTimeoutSecs) }
func (g GPSConfig) ConnectTimeout() time.Duration { return seconds(g.ConnectTimeoutSecs) }
func (g GPSConfig) ReadDeadline() time.Duration   { return seconds(g.ReadDeadlineSecs) }
func (g GPSConfig) InitialBackoff() time.Duration { return seconds(g.InitialBackoffSecs) }
func (g GPSConfig) MaxBackoff() time.Duration     { return seconds(g.MaxBackoffSecs) }
