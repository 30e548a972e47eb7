// Package gps keeps a best-effort observer position from a local gpsd daemon.
package gps

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os/exec"
	"sync"
	"sync/atomic"
	"time"

	"github.com/macman10536/Adsb-alert/internal/config"
	"github.com/macman10536/Adsb-alert/pkg/logger"
)

// ErrNoFix is returned when the read deadline passes without a usable fix
var ErrNoFix = errors.New("no gps fix before deadline")

// Options controls the acquirer
type Options struct {
	Address        string
	StartCommand   []string
	StartTimeout   time.Duration
	ReadyTimeout   time.Duration
	ReadyPoll      time.Duration
	ConnectTimeout time.Duration
	ReadDeadline   time.Duration // wall clock bound on one fix
	ReadSlice      time.Duration // per-read socket timeout inside ReadDeadline
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	PollPause      time.Duration // pause after each fix
}

// OptionsFromConfig converts the gps configuration section
func OptionsFromConfig(cfg config.GPSConfig) Options {
	return Options{
		Address:        cfg.Address,
		StartCommand:   cfg.StartCommand,
		StartTimeout:   cfg.StartTimeout(),
		ReadyTimeout:   cfg.ReadyTimeout(),
		ReadyPoll:      time.Second,
		ConnectTimeout: cfg.ConnectTimeout(),
		ReadDeadline:   cfg.ReadDeadline(),
		ReadSlice:      2 * time.Second,
		InitialBackoff: cfg.InitialBackoff(),
		MaxBackoff:     cfg.MaxBackoff(),
		PollPause:      500 * time.Millisecond,
	}
}

// Acquirer owns the daemon connection. It is the only writer of the current fix.
type Acquirer struct {
	opts   Options
	logger *logger.Logger
	run    func(ctx context.Context, name string, args ...string) error

	mu  sync.RWMutex
	fix Fix

	running  atomic.Bool
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewAcquirer creates an acquirer; nothing happens until Start
func NewAcquirer(opts Options, log *logger.Logger) *Acquirer {
	return &Acquirer{
		opts:   opts,
		logger: log.Named("gps"),
		run: func(ctx context.Context, name string, args ...string) error {
			return exec.CommandContext(ctx, name, args...).Run()
		},
		stopCh: make(chan struct{}),
	}
}

// Start launches the acquisition loop. Calling it again while running is a no-op.
func (a *Acquirer) Start(ctx context.Context) error {
	if !a.running.CompareAndSwap(false, true) {
		return nil
	}

	a.logger.Info("Starting GPS acquirer", logger.String("address", a.opts.Address))
	a.wg.Add(1)
	go a.acquireLoop(ctx)
	return nil
}

// Stop asks the loop to exit and waits for it
func (a *Acquirer) Stop() {
	a.stopOnce.Do(func() {
		close(a.stopCh)
	})
	a.wg.Wait()
	a.logger.Info("GPS acquirer stopped")
}

// CurrentFix returns a copy of the latest fix
func (a *Acquirer) CurrentFix() Fix {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.fix
}

func (a *Acquirer) setFix(fix Fix) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.fix.Valid {
		a.logger.Info("GPS fix acquired",
			logger.Float64("lat", fix.Lat),
			logger.Float64("lon", fix.Lon),
			logger.Int("mode", fix.Mode))
	}
	a.fix = fix
}

func (a *Acquirer) invalidate() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.fix.Valid {
		a.logger.Warn("GPS fix lost")
	}
	a.fix.Valid = false
}

func (a *Acquirer) acquireLoop(ctx context.Context) {
	defer a.wg.Done()

	a.ensureDaemon(ctx)

	retry := newBackoff(a.opts.InitialBackoff, a.opts.MaxBackoff)
	var sess *session
	defer func() {
		if sess != nil {
			sess.close()
		}
	}()

	for {
		if a.shouldStop(ctx) {
			return
		}

		if sess == nil {
			s, err := a.connect()
			if err != nil {
				a.invalidate()
				wait := retry.next()
				a.logger.Warn("Failed to connect to gpsd, retrying",
					logger.Error(err),
					logger.Duration("backoff", wait))
				if !a.sleep(ctx, wait) {
					return
				}
				continue
			}
			retry.reset()
			sess = s
			a.logger.Debug("Connected to gpsd")
		}

		fix, err := sess.readFix(a.opts.ReadDeadline, a.opts.ReadSlice)
		if err != nil {
			a.invalidate()
			sess.close()
			sess = nil
			wait := retry.next()
			a.logger.Warn("Lost gpsd stream, reconnecting",
				logger.Error(err),
				logger.Duration("backoff", wait))
			if !a.sleep(ctx, wait) {
				return
			}
			continue
		}

		fix.UpdatedAt = time.Now()
		a.setFix(fix)

		if !a.sleep(ctx, a.opts.PollPause) {
			return
		}
	}
}

func (a *Acquirer) shouldStop(ctx context.Context) bool {
	select {
	case <-a.stopCh:
		return true
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

// sleep waits for d and reports false if the acquirer is stopping
func (a *Acquirer) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return !a.shouldStop(ctx)
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-a.stopCh:
		return false
	case <-ctx.Done():
		return false
	}
}

// ensureDaemon starts gpsd when nothing answers on its port. A daemon that is
// already running is never restarted; readiness polling decides success.
func (a *Acquirer) ensureDaemon(ctx context.Context) {
	if a.probe() {
		return
	}
	if len(a.opts.StartCommand) == 0 {
		a.logger.Warn("gpsd not reachable and no start command configured", logger.String("address", a.opts.Address))
		return
	}

	a.logger.Info("gpsd not reachable, starting it", logger.Any("command", a.opts.StartCommand))
	startCtx, cancel := context.WithTimeout(ctx, a.opts.StartTimeout)
	err := a.run(startCtx, a.opts.StartCommand[0], a.opts.StartCommand[1:]...)
	cancel()
	if err != nil {
		a.logger.Warn("gpsd start command failed", logger.Error(err))
	}

	deadline := time.Now().Add(a.opts.ReadyTimeout)
	for time.Now().Before(deadline) {
		if a.probe() {
			a.logger.Info("gpsd is ready")
			return
		}
		if !a.sleep(ctx, a.opts.ReadyPoll) {
			return
		}
	}
	a.logger.Warn("gpsd did not become ready", logger.Duration("waited", a.opts.ReadyTimeout))
}

func (a *Acquirer) probe() bool {
	conn, err := net.DialTimeout("tcp", a.opts.Address, time.Second)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

func (a *Acquirer) connect() (*session, error) {
	conn, err := net.DialTimeout("tcp", a.opts.Address, a.opts.ConnectTimeout)
	if err != nil {
		return nil, fmt.Errorf("failed to dial gpsd: %w", err)
	}
	if err := conn.SetWriteDeadline(time.Now().Add(a.opts.ConnectTimeout)); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to set write deadline: %w", err)
	}
	if _, err := conn.Write([]byte(watchCommand)); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to send watch command: %w", err)
	}
	return &session{conn: conn}, nil
}

// session is one open daemon connection with its pending stream data
type session struct {
	conn net.Conn
	buf  lineBuffer
}

// readFix returns the newest fix that arrives before deadline elapses
func (s *session) readFix(deadline, slice time.Duration) (Fix, error) {
	end := time.Now().Add(deadline)
	chunk := make([]byte, 4096)

	for {
		if fix, ok := s.buf.latestFix(); ok {
			return fix, nil
		}

		now := time.Now()
		if !now.Before(end) {
			return Fix{}, ErrNoFix
		}
		readUntil := now.Add(slice)
		if readUntil.After(end) {
			readUntil = end
		}
		if err := s.conn.SetReadDeadline(readUntil); err != nil {
			return Fix{}, fmt.Errorf("failed to set read deadline: %w", err)
		}

		n, err := s.conn.Read(chunk)
		if n > 0 {
			if werr := s.buf.write(chunk[:n]); werr != nil {
				return Fix{}, werr
			}
		}
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			// Use whatever complete lines arrived with the error
			if fix, ok := s.buf.latestFix(); ok {
				return fix, nil
			}
			return Fix{}, fmt.Errorf("failed to read from gpsd: %w", err)
		}
	}
}

func (s *session) close() {
	s.conn.Close()
}

// backoff doubles a delay up to a cap
type backoff struct {
	initial time.Duration
	max     time.Duration
	current time.Duration
}

func newBackoff(initial, maxDelay time.Duration) *backoff {
	return &backoff{initial: initial, max: maxDelay, current: initial}
}

// next returns the delay to wait now and doubles the following one
func (b *backoff) next() time.Duration {
	d := b.current
	b.current = min(b.current*2, b.max)
	return d
}

func (b *backoff) reset() {
	b.current = b.initial
}
