package threat

import (
	"errors"
	"fmt"
	"strings"
)

// MaxWatchlistEntries bounds the watchlist size
const MaxWatchlistEntries = 10

// ErrWatchlistFull is returned when more than MaxWatchlistEntries distinct entries are supplied
var ErrWatchlistFull = errors.New("watchlist full")

// Watchlist is an ordered set of upper-cased registrations, callsigns or hex ids.
// The zero value is an empty watchlist.
type Watchlist struct {
	entries []string
}

// NewWatchlist normalizes entries: trims and upper-cases them, drops empties and duplicates
func NewWatchlist(entries []string) (Watchlist, error) {
	seen := make(map[string]bool, len(entries))
	normalized := make([]string, 0, len(entries))
	for _, e := range entries {
		e = strings.ToUpper(strings.TrimSpace(e))
		if e == "" || seen[e] {
			continue
		}
		seen[e] = true
		normalized = append(normalized, e)
	}
	if len(normalized) > MaxWatchlistEntries {
		return Watchlist{}, fmt.Errorf("%w: %d entries (max %d)", ErrWatchlistFull, len(normalized), MaxWatchlistEntries)
	}
	return Watchlist{entries: normalized}, nil
}

// Entries returns a copy of the entries in order
func (w Watchlist) Entries() []string {
	out := make([]string, len(w.entries))
	copy(out, w.entries)
	return out
}

// Len returns the number of entries
func (w Watchlist) Len() int {
	return len(w.entries)
}

// Matches reports whether any of ids equals or ends with a watchlist entry, ignoring case.
// Empty ids never match.
func (w Watchlist) Matches(ids ...string) bool {
	for _, id := range ids {
		id = strings.ToUpper(strings.TrimSpace(id))
		if id == "" {
			continue
		}
		for _, entry := range w.entries {
			if strings.HasSuffix(id, entry) {
				return true
			}
		}
	}
	return false
}
