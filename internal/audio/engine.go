// Package audio plays alert tones and spoken summaries through external players.
package audio

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/macman10536/Adsb-alert/internal/alert"
	"github.com/macman10536/Adsb-alert/internal/config"
	"github.com/macman10536/Adsb-alert/pkg/logger"
)

// playbackTimeout bounds a single external command
const playbackTimeout = 15 * time.Second

// Runner executes an external command and waits for it to finish
type Runner func(ctx context.Context, name string, args ...string) error

// execRunner runs the command with its output discarded
func execRunner(ctx context.Context, name string, args ...string) error {
	return exec.CommandContext(ctx, name, args...).Run()
}

// Engine plays alerts one at a time. Requests beyond the admission budget are
// dropped so stale alerts never play long after the threat has passed.
type Engine struct {
	cfg     config.AudioConfig
	slots   *semaphore.Weighted
	playMu  sync.Mutex
	run     Runner
	players [][]string
	wg      sync.WaitGroup
	logger  *logger.Logger
}

// NewEngine creates an audio engine using the system players
func NewEngine(cfg config.AudioConfig, log *logger.Logger) *Engine {
	return NewEngineWithRunner(cfg, execRunner, log)
}

// NewEngineWithRunner creates an audio engine that executes commands through run
func NewEngineWithRunner(cfg config.AudioConfig, run Runner, log *logger.Logger) *Engine {
	budget := int64(cfg.MaxConcurrent)
	if budget <= 0 {
		budget = 2
	}

	players := make([][]string, 0, len(cfg.Players))
	for _, p := range cfg.Players {
		if fields := strings.Fields(p); len(fields) > 0 {
			players = append(players, fields)
		}
	}

	return &Engine{
		cfg:     cfg,
		slots:   semaphore.NewWeighted(budget),
		run:     run,
		players: players,
		logger:  log.Named("audio"),
	}
}

// Deliver plays the category tone followed by the spoken sentence. It never blocks
// and reports whether the request was admitted.
func (e *Engine) Deliver(ev alert.Event) bool {
	tone, hasTone := Tones[ev.Category]
	return e.submit(ev.Category.String(), func(ctx context.Context) {
		if hasTone {
			e.playTone(ctx, tone)
		}
		if ev.Spoken != "" {
			e.speak(ctx, ev.Spoken)
		}
	})
}

// Wait blocks until every admitted request has finished playing
func (e *Engine) Wait() {
	e.wg.Wait()
}

func (e *Engine) submit(kind string, job func(ctx context.Context)) bool {
	if !e.cfg.Enabled {
		return false
	}
	if !e.slots.TryAcquire(1) {
		e.logger.Debug("Dropping audio request, playback busy", logger.String("kind", kind))
		return false
	}

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		defer e.slots.Release(1)

		e.playMu.Lock()
		defer e.playMu.Unlock()
		job(context.Background())
	}()
	return true
}

func (e *Engine) speak(ctx context.Context, text string) {
	ctx, cancel := context.WithTimeout(ctx, playbackTimeout)
	defer cancel()

	args := []string{
		"-s", strconv.Itoa(e.cfg.SpeechRate),
		"-p", strconv.Itoa(e.cfg.SpeechPitch),
		"-a", strconv.Itoa(e.cfg.SpeechAmplitude),
		text,
	}
	if err := e.run(ctx, e.cfg.SpeechCommand, args...); err != nil {
		e.logger.Debug("Speech failed", logger.String("command", e.cfg.SpeechCommand), logger.Error(err))
	}
}

func (e *Engine) playTone(ctx context.Context, tone Tone) {
	path, err := e.writeToneFile(tone)
	if err != nil {
		e.logger.Debug("Failed to render tone", logger.Error(err))
		return
	}
	defer os.Remove(path)

	ctx, cancel := context.WithTimeout(ctx, playbackTimeout)
	defer cancel()

	for _, player := range e.players {
		args := append(append([]string{}, player[1:]...), path)
		err := e.run(ctx, player[0], args...)
		if err == nil {
			return
		}
		e.logger.Debug("Tone player failed", logger.String("player", player[0]), logger.Error(err))
	}
}

func (e *Engine) writeToneFile(tone Tone) (string, error) {
	f, err := os.CreateTemp("", "adsb-alert-*.wav")
	if err != nil {
		return "", fmt.Errorf("failed to create tone file: %w", err)
	}

	samples := tone.Synthesize(e.cfg.SampleRate, float64(e.cfg.Amplitude))
	if err := WriteWAV(f, samples, e.cfg.SampleRate); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("failed to close tone file: %w", err)
	}
	return f.Name(), nil
}
