package audio

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/macman10536/Adsb-alert/internal/alert"
	"github.com/macman10536/Adsb-alert/internal/config"
	"github.com/macman10536/Adsb-alert/pkg/logger"
)

type recordingRunner struct {
	mu      sync.Mutex
	calls   []string
	fail    map[string]bool
	release chan struct{}
}

func (r *recordingRunner) run(ctx context.Context, name string, args ...string) error {
	if r.release != nil {
		<-r.release
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, name)
	if name == "paplay" || name == "aplay" {
		// The tone file must exist while it plays
		if _, err := os.Stat(args[len(args)-1]); err != nil {
			return err
		}
	}
	if r.fail[name] {
		return errors.New("executable file not found")
	}
	return nil
}

func (r *recordingRunner) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func TestDeliverPlaysToneThenSpeech(t *testing.T) {
	r := &recordingRunner{fail: map[string]bool{"paplay": true}}
	e := NewEngineWithRunner(config.Default().Audio, r.run, logger.NewNop())

	ok := e.Deliver(alert.Event{Category: alert.CategoryDanger, Spoken: "DANGER. Aircraft N1, 0.3 miles, 600 feet."})
	if !ok {
		t.Fatal("Expected request to be admitted")
	}
	e.Wait()

	// paplay fails, aplay is the fallback, then speech
	want := []string{"paplay", "aplay", "espeak-ng"}
	if diff := cmp.Diff(want, r.Calls()); diff != "" {
		t.Errorf("Calls mismatch (-want +got):\n%s", diff)
	}
}

func TestDeliverDropsBeyondBudget(t *testing.T) {
	r := &recordingRunner{release: make(chan struct{})}
	e := NewEngineWithRunner(config.Default().Audio, r.run, logger.NewNop())

	ev := alert.Event{Category: alert.CategoryCaution, Spoken: "Caution."}
	admitted := 0
	for i := 0; i < 5; i++ {
		if e.Deliver(ev) {
			admitted++
		}
	}
	if admitted != 2 {
		t.Errorf("Expected 2 admitted requests, got %d", admitted)
	}

	close(r.release)
	e.Wait()

	// Budget is available again after playback completes
	if !e.Deliver(ev) {
		t.Error("Expected request to be admitted after playback finished")
	}
	e.Wait()
}

func TestDisabledEngine(t *testing.T) {
	r := &recordingRunner{}
	cfg := config.Default().Audio
	cfg.Enabled = false
	e := NewEngineWithRunner(cfg, r.run, logger.NewNop())

	if e.Deliver(alert.Event{Category: alert.CategoryOrbit, Spoken: "hello"}) {
		t.Error("Expected disabled engine to reject requests")
	}
	e.Wait()
	if len(r.Calls()) != 0 {
		t.Errorf("Expected no commands, got %v", r.Calls())
	}
}

func TestDeliverDoesNotBlock(t *testing.T) {
	r := &recordingRunner{release: make(chan struct{})}
	e := NewEngineWithRunner(config.Default().Audio, r.run, logger.NewNop())

	done := make(chan struct{})
	go func() {
		for _, text := range []string{"one", "two", "three"} {
			e.Deliver(alert.Event{Category: alert.CategoryWarning, Spoken: text})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Deliver blocked the caller")
	}
	close(r.release)
	e.Wait()
}

func TestSynthesize(t *testing.T) {
	tone := Tones[alert.CategoryWarning]
	samples := tone.Synthesize(22050, 28000)

	beep := int(float64(22050) * tone.Duration.Seconds())
	gap := int(float64(22050) * tone.Gap.Seconds())
	if len(samples) != 2*beep+gap {
		t.Fatalf("Expected %d samples, got %d", 2*beep+gap, len(samples))
	}
	if samples[0] != 0 || samples[beep-1] != 0 {
		t.Error("Expected beep edges to fade to zero")
	}
	for i := beep; i < beep+gap; i++ {
		if samples[i] != 0 {
			t.Fatalf("Expected silence in the gap at sample %d", i)
		}
	}

	var peak int16
	for _, s := range samples {
		if s > peak {
			peak = s
		}
	}
	if peak < 27000 || peak > 28000 {
		t.Errorf("Expected peak near 28000, got %d", peak)
	}
}

func TestWriteWAV(t *testing.T) {
	var buf bytes.Buffer
	samples := []int16{0, 1000, -1000, 0}
	if err := WriteWAV(&buf, samples, 22050); err != nil {
		t.Fatalf("WriteWAV failed: %v", err)
	}

	b := buf.Bytes()
	if len(b) != 44+len(samples)*2 {
		t.Fatalf("Expected %d bytes, got %d", 44+len(samples)*2, len(b))
	}
	if string(b[0:4]) != "RIFF" || string(b[8:12]) != "WAVE" || string(b[36:40]) != "data" {
		t.Error("Unexpected chunk markers")
	}
	if rate := binary.LittleEndian.Uint32(b[24:28]); rate != 22050 {
		t.Errorf("Expected sample rate 22050, got %d", rate)
	}
	if size := binary.LittleEndian.Uint32(b[40:44]); size != 8 {
		t.Errorf("Expected data size 8, got %d", size)
	}
	if v := int16(binary.LittleEndian.Uint16(b[46:48])); v != 1000 {
		t.Errorf("Expected second sample 1000, got %d", v)
	}
}
