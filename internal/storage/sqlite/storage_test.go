package sqlite

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/macman10536/Adsb-alert/internal/alert"
	"github.com/macman10536/Adsb-alert/pkg/logger"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"), logger.NewNop())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestWatchlistStorage(t *testing.T) {
	db := openTestDB(t)
	store, err := NewWatchlistStorage(db, logger.NewNop())
	if err != nil {
		t.Fatalf("NewWatchlistStorage failed: %v", err)
	}

	entries, err := store.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("Expected empty watchlist, got %v", entries)
	}

	if err := store.Save([]string{"N12345", "SWA", "C-GABC"}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := store.Save([]string{"N999", "N12345"}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	entries, err = store.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if diff := cmp.Diff([]string{"N999", "N12345"}, entries); diff != "" {
		t.Errorf("Watchlist mismatch (-want +got):\n%s", diff)
	}
}

func TestAlertStorage(t *testing.T) {
	db := openTestDB(t)
	store, err := NewAlertStorage(db, logger.NewNop())
	if err != nil {
		t.Fatalf("NewAlertStorage failed: %v", err)
	}

	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	eta := 42.0
	closing := 95.5
	events := []alert.Event{
		{
			Category:   alert.CategoryWarning,
			Hex:        "a1b2c3",
			Ident:      "N12345 SKW12",
			DistanceMi: 0.93,
			AltitudeFt: 800,
			Compass:    "NE",
			ETASec:     &eta,
			ClosingMph: &closing,
			Summary:    "WARNING: N12345 SKW12  0.93mi  800ft  ETA 42s",
			Spoken:     "Warning. Aircraft N12345 SKW12, 0.9 miles, 800 feet, ETA 42 seconds.",
			FiredAt:    base,
		},
		{
			Category:   alert.CategoryOrbit,
			Hex:        "abcdef",
			Ident:      "ABCDEF",
			DistanceMi: 1.5,
			AltitudeFt: 1200,
			Compass:    "S",
			Summary:    "SKY CIRCLE: ABCDEF  1.50mi  S  1200ft",
			Spoken:     "Caution. Circling aircraft ABCDEF, 1.5 miles, s.",
			FiredAt:    base.Add(5 * time.Second),
		},
	}
	for _, ev := range events {
		if _, err := store.Insert(ev); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	got, err := store.Recent(10)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	want := []alert.Event{events[1], events[0]}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Recent mismatch (-want +got):\n%s", diff)
	}

	got, err = store.Recent(1)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(got) != 1 || got[0].Hex != "abcdef" {
		t.Errorf("Expected newest alert only, got %+v", got)
	}
}
