package sqlite

import (
	"database/sql"
	"fmt"

	"github.com/macman10536/Adsb-alert/pkg/logger"
)

// WatchlistStorage persists the ordered watchlist
type WatchlistStorage struct {
	db     *sql.DB
	logger *logger.Logger
}

// NewWatchlistStorage creates the watchlist table if needed
func NewWatchlistStorage(db *sql.DB, log *logger.Logger) (*WatchlistStorage, error) {
	s := &WatchlistStorage{
		db:     db,
		logger: log.Named("sqlite-watchlist"),
	}

	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS watchlist (
			position INTEGER PRIMARY KEY,
			entry TEXT NOT NULL
		)
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to create watchlist table: %w", err)
	}
	return s, nil
}

// Load returns the stored entries in order
func (s *WatchlistStorage) Load() ([]string, error) {
	rows, err := s.db.Query(`SELECT entry FROM watchlist ORDER BY position ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query watchlist: %w", err)
	}
	defer rows.Close()

	entries := []string{}
	for rows.Next() {
		var entry string
		if err := rows.Scan(&entry); err != nil {
			return nil, fmt.Errorf("failed to scan watchlist entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate watchlist: %w", err)
	}
	return entries, nil
}

// Save replaces the stored watchlist with entries, preserving their order
func (s *WatchlistStorage) Save(entries []string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM watchlist`); err != nil {
		return fmt.Errorf("failed to clear watchlist: %w", err)
	}
	for i, entry := range entries {
		if _, err := tx.Exec(`INSERT INTO watchlist (position, entry) VALUES (?, ?)`, i, entry); err != nil {
			return fmt.Errorf("failed to insert watchlist entry: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit watchlist: %w", err)
	}

	s.logger.Debug("Saved watchlist", logger.Int("entries", len(entries)))
	return nil
}
