package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/macman10536/Adsb-alert/internal/alert"
	"github.com/macman10536/Adsb-alert/pkg/logger"
)

// AlertStorage records fired alerts
type AlertStorage struct {
	db     *sql.DB
	logger *logger.Logger
}

// NewAlertStorage creates the alert history table if needed
func NewAlertStorage(db *sql.DB, log *logger.Logger) (*AlertStorage, error) {
	s := &AlertStorage{
		db:     db,
		logger: log.Named("sqlite-alerts"),
	}

	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS alert_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			category TEXT NOT NULL,
			hex TEXT NOT NULL,
			ident TEXT NOT NULL,
			distance_mi REAL NOT NULL,
			altitude_ft INTEGER NOT NULL,
			compass TEXT,
			eta_sec REAL,
			closing_mph REAL,
			summary TEXT NOT NULL,
			spoken TEXT NOT NULL,
			fired_at INTEGER NOT NULL -- unix milliseconds
		)
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to create alert_history table: %w", err)
	}

	if _, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_alert_history_fired_at ON alert_history(fired_at)`); err != nil {
		return nil, fmt.Errorf("failed to create fired_at index: %w", err)
	}
	return s, nil
}

// Insert stores a fired alert and returns its row id
func (s *AlertStorage) Insert(ev alert.Event) (int64, error) {
	result, err := s.db.Exec(`
		INSERT INTO alert_history (
			category, hex, ident, distance_mi, altitude_ft, compass,
			eta_sec, closing_mph, summary, spoken, fired_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.Category.String(),
		ev.Hex,
		ev.Ident,
		ev.DistanceMi,
		ev.AltitudeFt,
		ev.Compass,
		nullFloat(ev.ETASec),
		nullFloat(ev.ClosingMph),
		ev.Summary,
		ev.Spoken,
		ev.FiredAt.UnixMilli(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert alert: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID: %w", err)
	}
	return id, nil
}

// Recent returns up to limit alerts, newest first
func (s *AlertStorage) Recent(limit int) ([]alert.Event, error) {
	rows, err := s.db.Query(`
		SELECT category, hex, ident, distance_mi, altitude_ft, compass,
			eta_sec, closing_mph, summary, spoken, fired_at
		FROM alert_history
		ORDER BY fired_at DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts: %w", err)
	}
	defer rows.Close()

	events := []alert.Event{}
	for rows.Next() {
		var (
			ev        alert.Event
			category  string
			compass   sql.NullString
			eta       sql.NullFloat64
			closing   sql.NullFloat64
			firedAtMs int64
		)
		if err := rows.Scan(
			&category,
			&ev.Hex,
			&ev.Ident,
			&ev.DistanceMi,
			&ev.AltitudeFt,
			&compass,
			&eta,
			&closing,
			&ev.Summary,
			&ev.Spoken,
			&firedAtMs,
		); err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}

		ev.Category, err = alert.ParseCategory(category)
		if err != nil {
			s.logger.Warn("Skipping alert with unknown category", logger.String("category", category))
			continue
		}
		ev.Compass = compass.String
		ev.ETASec = floatPtr(eta)
		ev.ClosingMph = floatPtr(closing)
		ev.FiredAt = time.UnixMilli(firedAtMs).UTC()
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate alerts: %w", err)
	}
	return events, nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
