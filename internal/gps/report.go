package gps

import (
	"bytes"
	"encoding/json"
	"errors"
	"time"
)

// watchCommand enables JSON reports on a gpsd connection
const watchCommand = "?WATCH={\"enable\":true,\"json\":true}\n"

// maxPendingBytes bounds the unterminated data kept between reads
const maxPendingBytes = 64 * 1024

// errStreamOverflow is returned when the daemon sends a line longer than maxPendingBytes
var errStreamOverflow = errors.New("gpsd stream line too long")

// Fix is the observer position. Valid is false until a 2D or 3D fix arrives
// and again after the daemon connection is lost.
type Fix struct {
	Lat       float64   `json:"lat"`
	Lon       float64   `json:"lon"`
	Mode      int       `json:"mode"`
	Valid     bool      `json:"valid"`
	UpdatedAt time.Time `json:"updated_at"`
}

// tpvReport is the subset of a gpsd report that matters here
type tpvReport struct {
	Class string   `json:"class"`
	Mode  int      `json:"mode"`
	Lat   *float64 `json:"lat"`
	Lon   *float64 `json:"lon"`
}

// ParseReport extracts a fix from one gpsd JSON line. Non-TPV reports, reports
// with mode below 2 (no fix) and malformed lines yield false.
func ParseReport(line []byte) (Fix, bool) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return Fix{}, false
	}

	var r tpvReport
	if err := json.Unmarshal(line, &r); err != nil {
		return Fix{}, false
	}
	if r.Class != "TPV" || r.Mode < 2 || r.Lat == nil || r.Lon == nil {
		return Fix{}, false
	}

	return Fix{
		Lat:   *r.Lat,
		Lon:   *r.Lon,
		Mode:  r.Mode,
		Valid: true,
	}, true
}

// lineBuffer accumulates stream data so a report split across reads is never lost
type lineBuffer struct {
	pending []byte
}

// write appends raw bytes from the connection
func (b *lineBuffer) write(p []byte) error {
	b.pending = append(b.pending, p...)
	if len(b.pending) > maxPendingBytes && bytes.IndexByte(b.pending, '\n') < 0 {
		b.pending = b.pending[:0]
		return errStreamOverflow
	}
	return nil
}

// latestFix consumes every complete line and returns the newest valid fix among them.
// A trailing partial line stays buffered for the next read.
func (b *lineBuffer) latestFix() (Fix, bool) {
	var (
		latest Fix
		found  bool
		start  int
	)
	for {
		idx := bytes.IndexByte(b.pending[start:], '\n')
		if idx < 0 {
			break
		}
		if fix, ok := ParseReport(b.pending[start : start+idx]); ok {
			latest, found = fix, true
		}
		start += idx + 1
	}

	if start > 0 {
		n := copy(b.pending, b.pending[start:])
		b.pending = b.pending[:n]
	}
	return latest, found
}
