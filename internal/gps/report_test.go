package gps

import (
	"errors"
	"testing"
	"time"
)

func TestParseReport(t *testing.T) {
	tests := []struct {
		name  string
		line  string
		valid bool
		lat   float64
	}{
		{"3d fix", `{"class":"TPV","mode":3,"lat":47.6062,"lon":-122.3321,"alt":56.1}`, true, 47.6062},
		{"2d fix", `{"class":"TPV","mode":2,"lat":47.5,"lon":-122.3}`, true, 47.5},
		{"no fix mode", `{"class":"TPV","mode":1}`, false, 0},
		{"mode 1 with stale position", `{"class":"TPV","mode":1,"lat":47.5,"lon":-122.3}`, false, 0},
		{"sky report", `{"class":"SKY","satellites":[]}`, false, 0},
		{"missing lon", `{"class":"TPV","mode":3,"lat":47.5}`, false, 0},
		{"malformed", `{"class":"TPV","mode":3,"lat":`, false, 0},
		{"empty", `   `, false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fix, ok := ParseReport([]byte(tt.line))
			if ok != tt.valid {
				t.Fatalf("Expected valid=%v, got %v", tt.valid, ok)
			}
			if ok && fix.Lat != tt.lat {
				t.Errorf("Expected lat %f, got %f", tt.lat, fix.Lat)
			}
			if ok && !fix.Valid {
				t.Error("Expected parsed fix to be marked valid")
			}
		})
	}
}

func TestLineBufferSplitReport(t *testing.T) {
	var b lineBuffer
	report := `{"class":"TPV","mode":3,"lat":47.6,"lon":-122.3}` + "\n"

	if err := b.write([]byte(report[:20])); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if _, ok := b.latestFix(); ok {
		t.Fatal("Expected no fix from a partial line")
	}

	if err := b.write([]byte(report[20:])); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	fix, ok := b.latestFix()
	if !ok {
		t.Fatal("Expected fix once the line completed")
	}
	if fix.Lat != 47.6 || fix.Lon != -122.3 {
		t.Errorf("Unexpected fix %+v", fix)
	}
	if len(b.pending) != 0 {
		t.Errorf("Expected empty buffer, got %q", b.pending)
	}
}

func TestLineBufferKeepsNewestFix(t *testing.T) {
	var b lineBuffer
	data := `{"class":"TPV","mode":3,"lat":1,"lon":1}` + "\n" +
		`{"class":"SKY"}` + "\n" +
		`{"class":"TPV","mode":3,"lat":2,"lon":2}` + "\n" +
		`{"class":"TPV","mode":3,"lat":3`

	if err := b.write([]byte(data)); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	fix, ok := b.latestFix()
	if !ok || fix.Lat != 2 {
		t.Errorf("Expected newest complete fix with lat 2, got %+v (ok=%v)", fix, ok)
	}
	if string(b.pending) != `{"class":"TPV","mode":3,"lat":3` {
		t.Errorf("Expected partial line to remain buffered, got %q", b.pending)
	}
}

func TestLineBufferOverflow(t *testing.T) {
	var b lineBuffer
	big := make([]byte, maxPendingBytes+1)
	for i := range big {
		big[i] = 'x'
	}
	if err := b.write(big); !errors.Is(err, errStreamOverflow) {
		t.Errorf("Expected errStreamOverflow, got %v", err)
	}
}

func TestBackoff(t *testing.T) {
	b := newBackoff(time.Second, 30*time.Second)

	want := []time.Duration{1, 2, 4, 8, 16, 30, 30}
	for i, w := range want {
		if got := b.next(); got != w*time.Second {
			t.Errorf("Step %d: expected %v, got %v", i, w*time.Second, got)
		}
	}

	b.reset()
	if got := b.next(); got != time.Second {
		t.Errorf("Expected reset to 1s, got %v", got)
	}
}
